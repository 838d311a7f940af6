package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/petrolink/marketstream/internal/metrics"
	"github.com/petrolink/marketstream/internal/model"
	"github.com/petrolink/marketstream/internal/registry"
	"github.com/petrolink/marketstream/internal/router"
	"github.com/petrolink/marketstream/internal/simulator"
)

type testEngine struct {
	reg   registry.Registry
	rtr   router.Router
	store *simulator.Store
	url   string
}

func startTestServer(t *testing.T, ent EntitlementChecker) *testEngine {
	t.Helper()
	return startTestServerCfg(t, DefaultConfig(), ent)
}

func startTestServerCfg(t *testing.T, cfg Config, ent EntitlementChecker) *testEngine {
	t.Helper()

	m := metrics.New("test")
	reg := registry.NewRegistry(registry.DefaultConfig(), m, nil)
	rtr := router.NewRouter(reg, nil)
	store := simulator.NewStore([]simulator.Seed{
		{Symbol: "crude_oil", Price: 75.50, Volume: 12000},
		{Symbol: "natural_gas", Price: 2.85, Volume: 45000},
	})

	h := NewHandler(cfg, reg, store, ent, m, nil)
	srv := httptest.NewServer(h)

	t.Cleanup(func() {
		srv.Close()
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		reg.Stop(ctx)
	})

	return &testEngine{
		reg:   reg,
		rtr:   rtr,
		store: store,
		url:   "ws" + strings.TrimPrefix(srv.URL, "http"),
	}
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial %s: %v", url, err)
	}
	t.Cleanup(func() { ws.Close() })
	return ws
}

// readEnvelope reads the next text frame and returns its decoded fields.
func readEnvelope(t *testing.T, ws *websocket.Conn) map[string]json.RawMessage {
	t.Helper()
	ws.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := ws.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var env map[string]json.RawMessage
	if err := json.Unmarshal(data, &env); err != nil {
		t.Fatalf("unmarshal %s: %v", data, err)
	}
	return env
}

func envType(t *testing.T, env map[string]json.RawMessage) string {
	t.Helper()
	var typ string
	if err := json.Unmarshal(env["type"], &typ); err != nil {
		t.Fatalf("envelope has no type: %v", err)
	}
	return typ
}

func send(t *testing.T, ws *websocket.Conn, frame model.InboundFrame) {
	t.Helper()
	if err := ws.WriteJSON(frame); err != nil {
		t.Fatalf("write frame: %v", err)
	}
}

// subscribeAndConfirm subscribes and consumes the confirmation, returning
// the granted topics.
func subscribeAndConfirm(t *testing.T, ws *websocket.Conn, topics ...string) []string {
	t.Helper()
	send(t, ws, model.InboundFrame{Type: model.TypeSubscribe, Topics: topics})
	env := readEnvelope(t, ws)
	if typ := envType(t, env); typ != model.TypeSubscriptionConfirmed {
		t.Fatalf("got %s, want SUBSCRIPTION_CONFIRMED", typ)
	}
	var granted []string
	if err := json.Unmarshal(env["topics"], &granted); err != nil {
		t.Fatalf("unmarshal topics: %v", err)
	}
	return granted
}

func TestHandler_ConnectedHandshake(t *testing.T) {
	eng := startTestServer(t, nil)
	ws := dial(t, eng.url)

	env := readEnvelope(t, ws)
	if typ := envType(t, env); typ != model.TypeConnected {
		t.Fatalf("first envelope is %s, want CONNECTED", typ)
	}
	var connID string
	if err := json.Unmarshal(env["connection_id"], &connID); err != nil || connID == "" {
		t.Fatalf("connection_id = %q, err = %v, want non-empty id", connID, err)
	}
}

func TestHandler_SubscribeAndReceive(t *testing.T) {
	eng := startTestServer(t, nil)
	ws := dial(t, eng.url)
	readEnvelope(t, ws) // CONNECTED

	granted := subscribeAndConfirm(t, ws, "market_data_crude_oil")
	if len(granted) != 1 || granted[0] != "market_data_crude_oil" {
		t.Fatalf("granted = %v, want [market_data_crude_oil]", granted)
	}

	tick, _ := eng.store.Get("crude_oil")
	if n := eng.rtr.Publish("market_data_crude_oil", model.NewMarketUpdate(tick)); n != 1 {
		t.Fatalf("Publish delivered to %d connections, want 1", n)
	}

	env := readEnvelope(t, ws)
	if typ := envType(t, env); typ != model.TypeMarketUpdate {
		t.Fatalf("got %s, want MARKET_UPDATE", typ)
	}
	var metricsBody model.TickMetrics
	if err := json.Unmarshal(env["metrics"], &metricsBody); err != nil {
		t.Fatalf("unmarshal metrics: %v", err)
	}
	if metricsBody.Price != tick.Price {
		t.Errorf("price = %v, want %v", metricsBody.Price, tick.Price)
	}
}

func TestHandler_UnsubscribeStopsDelivery(t *testing.T) {
	eng := startTestServer(t, nil)
	ws := dial(t, eng.url)
	readEnvelope(t, ws) // CONNECTED
	subscribeAndConfirm(t, ws, "trading_activity")

	send(t, ws, model.InboundFrame{Type: model.TypeUnsubscribe, Topics: []string{"trading_activity"}})

	// Unsubscribe has no acknowledgment; ping-pong round trip proves the
	// frame was processed before we publish.
	send(t, ws, model.InboundFrame{Type: model.TypePing})
	env := readEnvelope(t, ws)
	if typ := envType(t, env); typ != model.TypePong {
		t.Fatalf("got %s, want PONG", typ)
	}

	if n := eng.rtr.Publish("trading_activity", model.NewPong()); n != 0 {
		t.Errorf("Publish delivered to %d connections after unsubscribe, want 0", n)
	}
}

func TestHandler_GetCurrentData(t *testing.T) {
	eng := startTestServer(t, nil)
	ws := dial(t, eng.url)
	readEnvelope(t, ws) // CONNECTED

	// Single commodity
	send(t, ws, model.InboundFrame{Type: model.TypeGetCurrentData, Commodity: "crude_oil"})
	env := readEnvelope(t, ws)
	if typ := envType(t, env); typ != model.TypeCurrentData {
		t.Fatalf("got %s, want CURRENT_DATA", typ)
	}
	var data map[string]model.CommodityTick
	if err := json.Unmarshal(env["data"], &data); err != nil {
		t.Fatalf("unmarshal data: %v", err)
	}
	if len(data) != 1 || data["crude_oil"].Price != 75.50 {
		t.Fatalf("data = %v, want crude_oil at 75.50", data)
	}

	// All commodities
	send(t, ws, model.InboundFrame{Type: model.TypeGetCurrentData})
	env = readEnvelope(t, ws)
	if err := json.Unmarshal(env["data"], &data); err != nil {
		t.Fatalf("unmarshal data: %v", err)
	}
	if len(data) != eng.store.Len() {
		t.Errorf("snapshot has %d commodities, want %d", len(data), eng.store.Len())
	}

	// Unknown commodity gets an ERROR, not a disconnect
	send(t, ws, model.InboundFrame{Type: model.TypeGetCurrentData, Commodity: "uranium"})
	env = readEnvelope(t, ws)
	if typ := envType(t, env); typ != model.TypeError {
		t.Errorf("got %s, want ERROR", typ)
	}
}

func TestHandler_MalformedFrameKeepsSessionOpen(t *testing.T) {
	eng := startTestServer(t, nil)
	ws := dial(t, eng.url)
	readEnvelope(t, ws) // CONNECTED

	if err := ws.WriteMessage(websocket.TextMessage, []byte("{not json")); err != nil {
		t.Fatalf("write garbage: %v", err)
	}
	env := readEnvelope(t, ws)
	if typ := envType(t, env); typ != model.TypeError {
		t.Fatalf("got %s, want ERROR", typ)
	}

	// The session must survive the bad frame.
	send(t, ws, model.InboundFrame{Type: model.TypePing})
	env = readEnvelope(t, ws)
	if typ := envType(t, env); typ != model.TypePong {
		t.Fatalf("got %s after bad frame, want PONG", typ)
	}
	if eng.reg.Count() != 1 {
		t.Errorf("Count() = %d, want 1", eng.reg.Count())
	}
}

type denyTopic struct{ topic string }

func (d denyTopic) Allowed(_, topic string) bool { return topic != d.topic }

func TestHandler_EntitlementsFilterSubscriptions(t *testing.T) {
	eng := startTestServer(t, denyTopic{topic: "market_data_lng"})
	ws := dial(t, eng.url+"?user_id=u-basic")
	readEnvelope(t, ws) // CONNECTED

	granted := subscribeAndConfirm(t, ws, "market_data_crude_oil", "market_data_lng")
	if len(granted) != 1 || granted[0] != "market_data_crude_oil" {
		t.Fatalf("granted = %v, want only market_data_crude_oil", granted)
	}
	if subs := eng.reg.SubscribersOf("market_data_lng"); len(subs) != 0 {
		t.Errorf("denied topic has %d subscribers, want 0", len(subs))
	}
}

func TestHandler_UserIDRoutesTargetedPushes(t *testing.T) {
	eng := startTestServer(t, nil)
	ws1 := dial(t, eng.url+"?user_id=u-7")
	ws2 := dial(t, eng.url+"?user_id=u-7")
	readEnvelope(t, ws1) // CONNECTED
	readEnvelope(t, ws2) // CONNECTED

	eng.reg.SendToUser("u-7", model.NewPriceAlert(json.RawMessage(`{"commodity":"diesel"}`)))

	for _, ws := range []*websocket.Conn{ws1, ws2} {
		env := readEnvelope(t, ws)
		if typ := envType(t, env); typ != model.TypePriceAlert {
			t.Fatalf("got %s, want PRICE_ALERT", typ)
		}
	}
}

func TestHandler_DisconnectUnregisters(t *testing.T) {
	eng := startTestServer(t, nil)
	ws := dial(t, eng.url)
	readEnvelope(t, ws) // CONNECTED

	if eng.reg.Count() != 1 {
		t.Fatalf("Count() = %d, want 1", eng.reg.Count())
	}
	ws.Close()

	deadline := time.Now().Add(2 * time.Second)
	for eng.reg.Count() != 0 {
		if time.Now().After(deadline) {
			t.Fatalf("Count() = %d after disconnect, want 0", eng.reg.Count())
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestHandler_IdleConnectionReaped(t *testing.T) {
	cfg := DefaultConfig()
	cfg.IdleTimeout = 200 * time.Millisecond
	eng := startTestServerCfg(t, cfg, nil)

	ws := dial(t, eng.url)
	readEnvelope(t, ws) // CONNECTED
	if eng.reg.Count() != 1 {
		t.Fatalf("Count() = %d, want 1", eng.reg.Count())
	}

	// Frames push the idle deadline forward: stay chatty for longer than
	// the window and the session must survive.
	for i := 0; i < 5; i++ {
		time.Sleep(50 * time.Millisecond)
		send(t, ws, model.InboundFrame{Type: model.TypePing})
		readEnvelope(t, ws) // PONG
	}
	if eng.reg.Count() != 1 {
		t.Fatalf("Count() = %d after active traffic, want 1", eng.reg.Count())
	}

	// Go silent; the read deadline expires and the connection is reaped.
	deadline := time.Now().Add(2 * time.Second)
	for eng.reg.Count() != 0 {
		if time.Now().After(deadline) {
			t.Fatalf("idle connection never reaped, Count() = %d", eng.reg.Count())
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestHandler_RejectsPlainHTTP(t *testing.T) {
	eng := startTestServer(t, nil)

	resp, err := http.Get("http" + strings.TrimPrefix(eng.url, "ws"))
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusBadRequest)
	}
}
