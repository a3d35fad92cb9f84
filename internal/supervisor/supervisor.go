// Package supervisor owns the connect/authenticate/read/write/heartbeat
// lifecycle of one Exchange Stream connection: it dials, runs the
// handshake, then keeps four concurrent loops alive (read pump, write
// pump, heartbeat ticker, and the connect loop itself) until one of them
// reports a failure, at which point it tears the rest down and either
// retries (NeedsRestart) or gives up (Fatal).
package supervisor

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"time"

	"github.com/betfair-go/stream/internal/codec"
	"github.com/betfair-go/stream/internal/errs"
	"github.com/betfair-go/stream/internal/session"
	"github.com/betfair-go/stream/internal/transport"
	"github.com/betfair-go/stream/pkg/bfstream"
)

const (
	initialBackoff = time.Second
	maxBackoff     = 30 * time.Second

	// defaultMaxConsecutiveFailures bounds how many connect attempts in a
	// row may fail without ever completing a handshake before Run gives
	// up, used when Config.MaxConsecutiveFailures is zero.
	defaultMaxConsecutiveFailures = 10
)

// Event reports something the supervisor observed, for metrics/dashboard
// consumption independent of the decoded message stream itself.
type Event int

const (
	EventTCPConnected Event = iota
	EventAuthenticated
	EventFailedToConnect
	EventFailedToAuthenticate
	EventDisconnected
)

// Config configures one supervised connection.
type Config struct {
	StreamAddr        string
	AppKey            string
	TLS               transport.Options
	HeartbeatInterval time.Duration // 0 disables heartbeats
	MaxLatencyMs      *int64
	Logger            *slog.Logger

	// MaxConsecutiveFailures bounds how many connect attempts in a row
	// may fail, without a single one of them reaching an authenticated
	// connection, before Run gives up and returns a Fatal error instead
	// of retrying again. A successful handshake resets the count, so
	// this only trips on a run of attempts that never get past dialing
	// or authenticating — not on a long-lived connection that eventually
	// drops. Zero uses defaultMaxConsecutiveFailures.
	MaxConsecutiveFailures int
}

func (c Config) maxConsecutiveFailures() int {
	if c.MaxConsecutiveFailures > 0 {
		return c.MaxConsecutiveFailures
	}
	return defaultMaxConsecutiveFailures
}

// Supervisor runs Config's connect/auth/read/write/heartbeat loop,
// forwarding decoded responses to Responses and accepting outgoing
// requests from Commands.
type Supervisor struct {
	cfg      Config
	tokens   *tokenCache
	logger   *slog.Logger
	events   chan Event
	commands chan any
	outbox   chan any
}

// New creates a Supervisor. commands is read by the write pump — pass the
// same channel to subscriber.MarketSubscriber/OrderSubscriber so their
// requests reach the wire.
func New(cfg Config, provider SessionProvider, commands chan any) *Supervisor {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Supervisor{
		cfg:      cfg,
		tokens:   newTokenCache(provider),
		logger:   logger.With("component", "supervisor"),
		events:   make(chan Event, 16),
		commands: commands,
		outbox:   make(chan any, 256),
	}
}

// Responses returns the channel decoded response messages are published
// on (*bfstream.ConnectionMessage, *bfstream.StatusMessage,
// *bfstream.MarketChangeMessage, *bfstream.OrderChangeMessage).
func (s *Supervisor) Responses() <-chan any { return s.outbox }

// Events returns the channel of connection lifecycle events, for metrics
// and dashboard consumers that don't need the full message stream.
func (s *Supervisor) Events() <-chan Event { return s.events }

// Run connects and supervises the stream until ctx is cancelled or a
// fatal error occurs, retrying NeedsRestart failures with exponential
// backoff. A run of consecutive attempts that never reach an
// authenticated connection is itself treated as fatal once it exceeds
// Config.MaxConsecutiveFailures.
func (s *Supervisor) Run(ctx context.Context) error {
	backoff := initialBackoff
	consecutiveFailures := 0

	for {
		authenticated, err := s.connectOnce(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}

		if errs.IsFatal(err) {
			s.logger.Error("fatal stream error, giving up", "error", err)
			return err
		}

		if authenticated {
			consecutiveFailures = 0
		} else {
			consecutiveFailures++
			if consecutiveFailures >= s.cfg.maxConsecutiveFailures() {
				s.logger.Error("exceeded reconnect budget, giving up",
					"error", err, "consecutive_failures", consecutiveFailures)
				return errs.AsFatal(fmt.Errorf("supervisor: exceeded retry budget of %d consecutive failed connection attempts: %w",
					consecutiveFailures, err))
			}
		}

		s.emit(EventDisconnected)
		s.logger.Warn("stream connection ended, reconnecting", "error", err, "backoff", backoff, "consecutive_failures", consecutiveFailures)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}

		backoff *= 2
		if backoff > maxBackoff {
			backoff = maxBackoff
		}
	}
}

func (s *Supervisor) emit(evt Event) {
	select {
	case s.events <- evt:
	default:
	}
}

// connectOnce dials, authenticates, and runs one connection to
// completion, reporting whether it ever reached an authenticated state —
// Run uses that to decide whether this attempt counts against the
// consecutive-failure budget.
func (s *Supervisor) connectOnce(ctx context.Context) (bool, error) {
	token, err := s.tokens.get(ctx)
	if err != nil {
		return false, errs.Restart(fmt.Errorf("supervisor: get session token: %w", err))
	}

	conn, err := transport.Dial(ctx, s.cfg.StreamAddr, s.cfg.TLS)
	if err != nil {
		s.emit(EventFailedToConnect)
		return false, errs.Restart(fmt.Errorf("supervisor: dial stream: %w", err))
	}
	defer conn.Close()
	s.emit(EventTCPConnected)

	dec := codec.NewDecoder(conn)
	enc := codec.NewEncoder(conn)

	hs := session.New(dec, enc, token, s.cfg.AppKey)
	for hs.State() != session.Authenticated {
		evt, err := hs.Step()
		if err != nil {
			s.emit(EventFailedToAuthenticate)
			return false, err
		}
		if evt.Connection == nil && evt.Status == nil {
			continue
		}
		var msg any = evt.Status
		if evt.Connection != nil {
			msg = evt.Connection
		}
		select {
		case s.outbox <- msg:
		case <-ctx.Done():
			return false, ctx.Err()
		}
	}
	s.emit(EventAuthenticated)

	return true, s.runConnection(ctx, conn, dec, enc)
}

// runConnection drives the read pump, write pump, and heartbeat loop
// concurrently, returning as soon as any one of them fails.
func (s *Supervisor) runConnection(ctx context.Context, conn *tls.Conn, dec *codec.Decoder, enc *codec.Encoder) error {
	connCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	failures := make(chan error, 3)

	go func() { failures <- s.readPump(connCtx, dec) }()
	go func() { failures <- s.writePump(connCtx, enc) }()
	go func() { failures <- s.heartbeatLoop(connCtx) }()

	return <-failures
}

func (s *Supervisor) readPump(ctx context.Context, dec *codec.Decoder) error {
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		msg, err := dec.DecodeResponse()
		if err != nil {
			return errs.Restart(fmt.Errorf("supervisor: read pump: %w", err))
		}
		select {
		case s.outbox <- msg:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (s *Supervisor) writePump(ctx context.Context, enc *codec.Encoder) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case cmd := <-s.commands:
			if err := enc.Encode(cmd); err != nil {
				return errs.Restart(fmt.Errorf("supervisor: write pump: %w", err))
			}
			if err := enc.Flush(); err != nil {
				return errs.Restart(fmt.Errorf("supervisor: write pump flush: %w", err))
			}
		}
	}
}

func (s *Supervisor) heartbeatLoop(ctx context.Context) error {
	if s.cfg.HeartbeatInterval <= 0 {
		<-ctx.Done()
		return ctx.Err()
	}

	ticker := time.NewTicker(s.cfg.HeartbeatInterval)
	defer ticker.Stop()

	var id int
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			id++
			select {
			case s.commands <- bfstream.NewHeartbeatMessage(id):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
}
