package dashboard

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/betfair-go/stream/internal/cache"
	"github.com/betfair-go/stream/internal/config"
	"github.com/betfair-go/stream/internal/stream"
)

// Server runs the HTTP/WebSocket dashboard.
type Server struct {
	cfg     config.DashboardConfig
	tracker *cache.Tracker
	hub     *Hub
	server  *http.Server
	logger  *slog.Logger
}

// NewServer creates a dashboard server reading state from tracker.
func NewServer(cfg config.DashboardConfig, tracker *cache.Tracker, logger *slog.Logger) *Server {
	hub := NewHub(logger)
	s := &Server{cfg: cfg, tracker: tracker, hub: hub, logger: logger.With("component", "dashboard-server")}

	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/api/snapshot", s.handleSnapshot)
	mux.HandleFunc("/ws", s.handleWebSocket)

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// Start runs the hub and the periodic snapshot broadcaster, then serves
// HTTP until ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	go s.hub.Run()
	go s.broadcastLoop(ctx)

	s.logger.Info("dashboard server starting", "addr", s.server.Addr)
	errCh := make(chan error, 1)
	go func() { errCh <- s.server.ListenAndServe() }()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return s.server.Shutdown(shutdownCtx)
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("dashboard: server error: %w", err)
		}
		return nil
	}
}

// BroadcastMetadata reports a stream lifecycle transition to connected
// dashboard clients.
func (s *Server) BroadcastMetadata(update stream.MetadataUpdate) {
	s.hub.BroadcastMetadata(update)
}

func (s *Server) broadcastLoop(ctx context.Context) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.hub.BroadcastSnapshot(BuildSnapshot(s.tracker))
		}
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(BuildSnapshot(s.tracker))
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("websocket upgrade failed", "error", err)
		return
	}
	NewClient(s.hub, conn)
}
