package server

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/petrolink/marketstream/internal/metrics"
	"github.com/petrolink/marketstream/internal/model"
	"github.com/petrolink/marketstream/internal/registry"
	"github.com/petrolink/marketstream/internal/simulator"
)

// Config holds WebSocket endpoint settings.
type Config struct {
	MaxFrameBytes int64         // Inbound frame size limit
	IdleTimeout   time.Duration // Connection is reaped after this long without frames or pongs
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		MaxFrameBytes: 64 * 1024,
		IdleTimeout:   60 * time.Second,
	}
}

// EntitlementChecker decides whether a user may subscribe to a topic.
type EntitlementChecker interface {
	Allowed(userID, topic string) bool
}

// AllowAll permits every subscription. It is the default checker.
type AllowAll struct{}

func (AllowAll) Allowed(string, string) bool { return true }

// Handler upgrades HTTP requests to WebSocket sessions.
type Handler struct {
	cfg          Config
	reg          registry.Registry
	store        *simulator.Store
	entitlements EntitlementChecker
	logger       *slog.Logger
	metrics      *metrics.Metrics
	upgrader     websocket.Upgrader
}

// NewHandler creates the WebSocket endpoint handler.
func NewHandler(cfg Config, reg registry.Registry, store *simulator.Store, ent EntitlementChecker, m *metrics.Metrics, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	if ent == nil {
		ent = AllowAll{}
	}

	return &Handler{
		cfg:          cfg,
		reg:          reg,
		store:        store,
		entitlements: ent,
		logger:       logger,
		metrics:      m,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
}

// ServeHTTP upgrades the request and runs the session until the client
// disconnects or goes idle.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")

	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}

	connID := h.reg.Register(ws, userID)
	h.reg.SendTo(connID, model.NewConnected(connID))

	h.logger.Info("websocket session opened",
		"conn_id", connID,
		"user_id", userID,
		"remote", r.RemoteAddr,
	)

	s := &session{
		handler: h,
		ws:      ws,
		connID:  connID,
		userID:  userID,
	}
	s.readLoop()
}
