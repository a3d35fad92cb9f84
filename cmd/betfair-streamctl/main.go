// betfair-streamctl connects to the Betfair Exchange Stream API and keeps a
// local cache of the market and order books the stream delivers — printing
// cache state to the log and, if enabled, serving it on the dashboard
// WebSocket. It sends no subscription of its own.
//
// Architecture:
//
//	main.go                    — entry point: loads config, starts the client, waits for SIGINT/SIGTERM
//	internal/config            — YAML + env configuration
//	internal/rpc               — certificate login, produces/refreshes the session token
//	internal/transport         — raw TLS dial
//	internal/codec             — CRLF-JSON frame encode/decode
//	internal/session           — connect/authenticate handshake state machine
//	internal/supervisor        — reconnect/heartbeat/read-write pump supervision
//	internal/cache             — market/order book materialization from deltas
//	internal/subscriber        — market/order subscription builders
//	internal/stream            — the client tying all of the above together
//	internal/dashboard         — read-only WebSocket observability feed
//	internal/metrics           — Prometheus collectors
package main

import (
	"context"
	"crypto/tls"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/betfair-go/stream/internal/config"
	"github.com/betfair-go/stream/internal/dashboard"
	"github.com/betfair-go/stream/internal/metrics"
	"github.com/betfair-go/stream/internal/rpc"
	"github.com/betfair-go/stream/internal/stream"
	"github.com/betfair-go/stream/internal/supervisor"
	"github.com/betfair-go/stream/internal/transport"
)

func main() {
	cfgPath := "configs/config.yaml"
	if p := os.Getenv("BFSTREAM_CONFIG"); p != "" {
		cfgPath = p
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		slog.Error("failed to load config", "error", err, "path", cfgPath)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	logger := newLogger(cfg.Logging)

	cert, err := tls.LoadX509KeyPair(cfg.Account.CertFile, cfg.Account.KeyFile)
	if err != nil {
		logger.Error("failed to load client certificate", "error", err)
		os.Exit(1)
	}

	loginClient := rpc.NewClient(rpc.Config{
		Endpoint: cfg.RPC.LoginEndpoint,
		AppKey:   cfg.Account.AppKey,
		Username: cfg.Account.Username,
		Password: cfg.Account.Password,
		Cert:     cert,
		Timeout:  cfg.RPC.RequestTimeout,
	})

	var registry *metrics.Registry
	if cfg.Metrics.Enabled {
		registry = metrics.NewRegistry()
		go serveMetrics(cfg.Metrics.Addr, registry, logger)
	}

	maxLatency := cfg.Stream.MaxLatencyMs
	client := stream.New(stream.Config{
		Supervisor: supervisor.Config{
			StreamAddr:        cfg.Stream.Addr,
			AppKey:            cfg.Account.AppKey,
			TLS:               transport.Options{ServerName: cfg.Stream.ServerName},
			HeartbeatInterval: cfg.Stream.HeartbeatInterval,
			Logger:            logger,
		},
		MaxLatencyMs: &maxLatency,
		Logger:       logger,
		Metrics:      registry,
	}, loginClient)

	ctx, cancel := context.WithCancel(context.Background())

	var dashboardServer *dashboard.Server
	if cfg.Dashboard.Enabled {
		dashboardServer = dashboard.NewServer(cfg.Dashboard, client.Tracker(), logger)
		go func() {
			if err := dashboardServer.Start(ctx); err != nil {
				logger.Error("dashboard server failed", "error", err)
			}
		}()
	}

	runDone := make(chan error, 1)
	go func() { runDone <- client.Run(ctx) }()
	go consumeUpdates(ctx, client, dashboardServer, logger)

	logger.Info("betfair stream client started", "addr", cfg.Stream.Addr)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("received shutdown signal", "signal", sig.String())
	case err := <-runDone:
		if err != nil && err != context.Canceled {
			logger.Error("stream client stopped", "error", err)
		}
	}

	cancel()
}

func consumeUpdates(ctx context.Context, client *stream.Client, dashboardServer *dashboard.Server, logger *slog.Logger) {
	for {
		select {
		case <-ctx.Done():
			return
		case u := <-client.Updates():
			for _, mb := range u.MarketBooks {
				logger.Debug("market book updated", "market_id", mb.MarketID, "runners", len(mb.Runners()))
			}
			for _, ob := range u.OrderBooks {
				logger.Debug("order book updated", "market_id", ob.MarketID)
			}
			if u.Metadata != nil {
				logger.Info("connection state changed", "state", *u.Metadata)
				if dashboardServer != nil {
					dashboardServer.BroadcastMetadata(*u.Metadata)
				}
			}
		}
	}
}

func serveMetrics(addr string, registry *metrics.Registry, logger *slog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", registry.Handler())
	logger.Info("metrics server starting", "addr", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		logger.Error("metrics server failed", "error", err)
	}
}

func newLogger(cfg config.LoggingConfig) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLogLevel(cfg.Level)}
	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	return slog.New(handler)
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
