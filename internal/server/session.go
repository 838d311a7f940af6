package server

import (
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"

	"github.com/petrolink/marketstream/internal/model"
)

// session is one client's read loop and frame dispatcher. Outbound traffic
// goes through the registry; the session never writes to the socket itself.
type session struct {
	handler *Handler
	ws      *websocket.Conn
	connID  string
	userID  string
}

// readLoop consumes frames until the client disconnects or goes idle.
// The deadline is pushed forward on every frame and every pong, so a
// silent connection is reaped after IdleTimeout.
func (s *session) readLoop() {
	h := s.handler

	defer func() {
		h.reg.Unregister(s.connID)
		h.logger.Info("websocket session closed", "conn_id", s.connID, "user_id", s.userID)
	}()

	s.ws.SetReadLimit(h.cfg.MaxFrameBytes)
	s.ws.SetReadDeadline(time.Now().Add(h.cfg.IdleTimeout))
	s.ws.SetPongHandler(func(string) error {
		return s.ws.SetReadDeadline(time.Now().Add(h.cfg.IdleTimeout))
	})

	for {
		_, data, err := s.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.logger.Debug("read failed", "conn_id", s.connID, "error", err)
			}
			return
		}
		s.ws.SetReadDeadline(time.Now().Add(h.cfg.IdleTimeout))
		h.metrics.FramesReceived.Inc()

		var frame model.InboundFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			h.metrics.DecodeErrors.Inc()
			h.reg.SendTo(s.connID, model.NewError("invalid JSON"))
			continue
		}

		s.dispatch(frame)
	}
}

// dispatch routes one decoded frame to its operation.
func (s *session) dispatch(frame model.InboundFrame) {
	h := s.handler

	switch frame.Type {
	case model.TypeSubscribe:
		s.subscribe(frame.Topics)

	case model.TypeUnsubscribe:
		for _, topic := range frame.Topics {
			h.reg.Unsubscribe(s.connID, topic)
		}

	case model.TypeGetCurrentData:
		s.currentData(frame.Commodity)

	case model.TypePing:
		h.reg.SendTo(s.connID, model.NewPong())

	default:
		// Unknown types are tolerated for forward compatibility.
		h.logger.Debug("unknown frame type", "conn_id", s.connID, "type", frame.Type)
	}
}

// subscribe adds the entitled subset of the requested topics and confirms
// what was actually subscribed.
func (s *session) subscribe(topics []string) {
	h := s.handler

	granted := make([]string, 0, len(topics))
	for _, topic := range topics {
		if topic == "" {
			continue
		}
		if !h.entitlements.Allowed(s.userID, topic) {
			h.logger.Debug("subscription denied",
				"conn_id", s.connID,
				"user_id", s.userID,
				"topic", topic,
			)
			continue
		}
		h.reg.Subscribe(s.connID, topic)
		granted = append(granted, topic)
	}

	h.reg.SendTo(s.connID, model.SubscriptionConfirmed{
		Type:   model.TypeSubscriptionConfirmed,
		Topics: granted,
	})
}

// currentData answers with one commodity's tick, or all of them.
func (s *session) currentData(commodity string) {
	h := s.handler

	var data map[string]model.CommodityTick
	if commodity == "" {
		data = h.store.Snapshot()
	} else {
		tick, ok := h.store.Get(commodity)
		if !ok {
			h.reg.SendTo(s.connID, model.NewError("unknown commodity: "+commodity))
			return
		}
		data = map[string]model.CommodityTick{commodity: tick}
	}

	h.reg.SendTo(s.connID, model.CurrentData{
		Type:      model.TypeCurrentData,
		Data:      data,
		Timestamp: time.Now().UTC(),
	})
}
