// Package stream ties the transport, session, supervisor, cache, and
// subscriber layers together into one client: the equivalent of the
// upstream StreamApi<T>, minus its Rust Stream trait — Go callers range
// over a channel instead of polling.
package stream

import (
	"context"
	"log/slog"

	"github.com/betfair-go/stream/internal/cache"
	"github.com/betfair-go/stream/internal/metrics"
	"github.com/betfair-go/stream/internal/subscriber"
	"github.com/betfair-go/stream/internal/supervisor"
	"github.com/betfair-go/stream/pkg/bfstream"
)

// MetadataUpdate reports a supervisor lifecycle event, renamed from the
// underlying Event for callers who only import this package.
type MetadataUpdate int

const (
	Disconnected MetadataUpdate = iota
	TCPConnected
	FailedToConnect
	Authenticated
	FailedToAuthenticate
)

func fromSupervisorEvent(e supervisor.Event) MetadataUpdate {
	switch e {
	case supervisor.EventTCPConnected:
		return TCPConnected
	case supervisor.EventAuthenticated:
		return Authenticated
	case supervisor.EventFailedToConnect:
		return FailedToConnect
	case supervisor.EventFailedToAuthenticate:
		return FailedToAuthenticate
	default:
		return Disconnected
	}
}

// Update is one item off the client's Updates channel: either a batch of
// market/order books touched by the last message, or a connection
// lifecycle event.
type Update struct {
	MarketBooks []*cache.MarketBook
	OrderBooks  []*cache.OrderBook
	Metadata    *MetadataUpdate
}

// Config configures a Client.
type Config struct {
	Supervisor supervisor.Config
	MaxLatencyMs *int64
	Logger       *slog.Logger
	Metrics      *metrics.Registry
}

// Client is the caching, subscribable Exchange Stream client.
type Client struct {
	sv      *supervisor.Supervisor
	tracker *cache.Tracker
	logger  *slog.Logger
	metrics *metrics.Registry

	commands chan any
	updates  chan Update

	marketSub *subscriber.MarketSubscriber
	orderSub  *subscriber.OrderSubscriber
}

// New builds a Client. provider authenticates (and re-authenticates) the
// connection; it is typically an *rpc.Client.
func New(cfg Config, provider supervisor.SessionProvider) *Client {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	commands := make(chan any, 64)
	sv := supervisor.New(cfg.Supervisor, provider, commands)

	return &Client{
		sv:        sv,
		tracker:   cache.NewTracker(logger, cfg.MaxLatencyMs),
		logger:    logger.With("component", "stream-client"),
		metrics:   cfg.Metrics,
		commands:  commands,
		updates:   make(chan Update, 256),
		marketSub: subscriber.NewMarketSubscriber(commands, bfstream.MarketFilter{}, nil, nil),
		orderSub:  subscriber.NewOrderSubscriber(commands, bfstream.OrderFilter{}),
	}
}

// Markets returns the market subscription builder.
func (c *Client) Markets() *subscriber.MarketSubscriber { return c.marketSub }

// Orders returns the order subscription builder.
func (c *Client) Orders() *subscriber.OrderSubscriber { return c.orderSub }

// Tracker exposes the underlying cache, for dashboard/metrics consumers
// that want the full book state rather than the delta feed.
func (c *Client) Tracker() *cache.Tracker { return c.tracker }

// Updates returns the channel of cache deltas and lifecycle events. Range
// over it until ctx passed to Run is cancelled.
func (c *Client) Updates() <-chan Update { return c.updates }

// Run drives the supervisor and fans its output into Updates until ctx is
// cancelled or a fatal error occurs.
func (c *Client) Run(ctx context.Context) error {
	done := make(chan error, 1)
	go func() { done <- c.sv.Run(ctx) }()

	for {
		select {
		case <-ctx.Done():
			return <-done

		case evt := <-c.sv.Events():
			if c.metrics != nil {
				c.metrics.ObserveEvent(int(evt))
			}
			meta := fromSupervisorEvent(evt)
			if !c.publish(ctx, Update{Metadata: &meta}) {
				return <-done
			}

		case msg := <-c.sv.Responses():
			if !c.handleResponse(ctx, msg) {
				return <-done
			}

		case err := <-done:
			return err
		}
	}
}

// handleResponse applies msg to the cache and publishes the resulting
// update. It returns false if ctx was cancelled while blocked publishing,
// signalling Run to stop.
func (c *Client) handleResponse(ctx context.Context, msg any) bool {
	ok := true
	switch m := msg.(type) {
	case *bfstream.MarketChangeMessage:
		if c.metrics != nil {
			c.metrics.MessagesReceived.WithLabelValues("mcm").Inc()
		}
		books := c.tracker.ApplyMarketChange(m)
		if len(books) > 0 {
			ok = c.publish(ctx, Update{MarketBooks: books})
		}
	case *bfstream.OrderChangeMessage:
		if c.metrics != nil {
			c.metrics.MessagesReceived.WithLabelValues("ocm").Inc()
		}
		books := c.tracker.ApplyOrderChange(m)
		if len(books) > 0 {
			ok = c.publish(ctx, Update{OrderBooks: books})
		}
	case *bfstream.ConnectionMessage, *bfstream.StatusMessage:
		// Handshake bookkeeping only; nothing for cache consumers to see.
	default:
		c.logger.Warn("unhandled response message", "type", msg)
	}

	if c.metrics != nil {
		c.metrics.CachedMarkets.Set(float64(len(c.tracker.MarketBooks())))
		c.metrics.CachedOrderBooks.Set(float64(len(c.tracker.OrderBooks())))
	}
	return ok
}

// publish delivers u to Updates, blocking if the channel is full. A slow
// consumer therefore stalls this call, which stalls Run's dispatch loop,
// which in turn stalls the supervisor's read pump — the same backpressure
// chain that runs all the way down to the TCP connection. It returns
// false only when ctx is cancelled before the send completes.
func (c *Client) publish(ctx context.Context, u Update) bool {
	select {
	case c.updates <- u:
		return true
	case <-ctx.Done():
		return false
	}
}
