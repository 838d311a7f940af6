// Command streamtest is a console WebSocket client for exercising a running
// streamd instance: it connects, subscribes, and prints every envelope.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gorilla/websocket"

	"github.com/petrolink/marketstream/internal/model"
)

func main() {
	url := flag.String("url", "ws://localhost:8080/ws", "streamd websocket URL")
	user := flag.String("user", "", "user id to connect as (optional)")
	topics := flag.String("topics", "market_data_all,trading_activity", "comma-separated topics to subscribe to")
	snapshot := flag.Bool("snapshot", true, "request current data after subscribing")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	target := *url
	if *user != "" {
		target += "?user_id=" + *user
	}

	ws, _, err := websocket.DefaultDialer.Dial(target, nil)
	if err != nil {
		logger.Error("dial failed", "url", target, "error", err)
		os.Exit(1)
	}
	defer ws.Close()

	logger.Info("connected", "url", target)

	subscribe := model.InboundFrame{
		Type:   model.TypeSubscribe,
		Topics: strings.Split(*topics, ","),
	}
	if err := ws.WriteJSON(subscribe); err != nil {
		logger.Error("subscribe failed", "error", err)
		os.Exit(1)
	}
	if *snapshot {
		if err := ws.WriteJSON(model.InboundFrame{Type: model.TypeGetCurrentData}); err != nil {
			logger.Error("snapshot request failed", "error", err)
			os.Exit(1)
		}
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("closing")
		ws.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		ws.Close()
	}()

	for {
		_, data, err := ws.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				return
			}
			logger.Error("read failed", "error", err)
			os.Exit(1)
		}

		var env struct {
			Type string `json:"type"`
		}
		if err := json.Unmarshal(data, &env); err != nil {
			logger.Warn("unparseable frame", "data", string(data))
			continue
		}
		fmt.Printf("%s %s %s\n", time.Now().Format(time.TimeOnly), env.Type, data)
	}
}
