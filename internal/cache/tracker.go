package cache

import (
	"log/slog"
	"time"

	"github.com/betfair-go/stream/pkg/bfstream"
)

// staleCacheLookback is how long a closed market's book is kept after its
// last update before ClearStaleCache prunes it.
const staleCacheLookback = 5 * time.Minute

// Tracker owns every market and order book materialized from the stream
// for one connection, and dispatches incoming change messages to them
// according to their change type (image vs. delta vs. heartbeat),
// tracking the resubscription clock and update latency along the way.
type Tracker struct {
	logger *slog.Logger

	updateClock  *string
	initialClock *string
	maxLatencyMs *int64

	timeCreated time.Time
	timeUpdated time.Time

	marketBooks map[bfstream.MarketID]*MarketBook
	orderBooks  map[bfstream.MarketID]*OrderBook
}

// NewTracker creates an empty tracker. maxLatencyMs, if non-nil, enables a
// warning log whenever a message's age exceeds it on arrival.
func NewTracker(logger *slog.Logger, maxLatencyMs *int64) *Tracker {
	if logger == nil {
		logger = slog.Default()
	}
	now := time.Now()
	return &Tracker{
		logger:       logger,
		maxLatencyMs: maxLatencyMs,
		timeCreated:  now,
		timeUpdated:  now,
		marketBooks:  make(map[bfstream.MarketID]*MarketBook),
		orderBooks:   make(map[bfstream.MarketID]*OrderBook),
	}
}

// UpdateClock returns the resubscription clock to use if this connection
// needs to reconnect and resume rather than resubscribe from scratch.
func (t *Tracker) UpdateClock() *string { return t.updateClock }

// InitialClock returns the initial (image) clock for resumption.
func (t *Tracker) InitialClock() *string { return t.initialClock }

// MarketBooks returns every market book currently cached.
func (t *Tracker) MarketBooks() map[bfstream.MarketID]*MarketBook { return t.marketBooks }

// OrderBooks returns every order book currently cached.
func (t *Tracker) OrderBooks() map[bfstream.MarketID]*OrderBook { return t.orderBooks }

// ApplyMarketChange dispatches one market change message, returning the
// market books touched by it (nil on a bare heartbeat, which carries no
// market deltas).
func (t *Tracker) ApplyMarketChange(msg *bfstream.MarketChangeMessage) []*MarketBook {
	switch {
	case msg.ChangeType != nil && *msg.ChangeType == bfstream.CtHeartbeat:
		t.updateClockFrom(msg.InitialClock, msg.Clock)
		return nil
	case msg.ChangeType != nil && *msg.ChangeType == bfstream.CtSubImage:
		t.updateClockFrom(msg.InitialClock, msg.Clock)
		return t.processMarketChange(msg, true)
	default: // absent or RESUB_DELTA
		t.onUpdate(msg.InitialClock, msg.Clock)
		t.checkLatency(msg.PublishTimeMs)
		return t.processMarketChange(msg, false)
	}
}

// ApplyOrderChange dispatches one order change message, returning the
// order books touched by it.
func (t *Tracker) ApplyOrderChange(msg *bfstream.OrderChangeMessage) []*OrderBook {
	switch {
	case msg.ChangeType != nil && *msg.ChangeType == bfstream.CtHeartbeat:
		t.updateClockFrom(msg.InitialClock, msg.Clock)
		return nil
	case msg.ChangeType != nil && *msg.ChangeType == bfstream.CtSubImage:
		t.updateClockFrom(msg.InitialClock, msg.Clock)
		return t.processOrderChange(msg)
	default:
		t.onUpdate(msg.InitialClock, msg.Clock)
		t.checkLatency(msg.PublishTimeMs)
		return t.processOrderChange(msg)
	}
}

func (t *Tracker) onUpdate(initialClock, clock *string) {
	if t.updateClock != nil {
		t.updateClockFrom(initialClock, clock)
	}
}

func (t *Tracker) checkLatency(publishTimeMs *int64) {
	if publishTimeMs == nil || t.maxLatencyMs == nil {
		return
	}
	publishTime := time.UnixMilli(*publishTimeMs).UTC()
	latencyMs := time.Since(publishTime).Milliseconds()
	if latencyMs > *t.maxLatencyMs {
		t.logger.Warn("high stream latency",
			"latency_ms", latencyMs,
			"max_latency_ms", *t.maxLatencyMs)
	}
}

func (t *Tracker) updateClockFrom(initialClock, clock *string) {
	if initialClock != nil {
		t.initialClock = initialClock
	}
	if clock != nil {
		t.updateClock = clock
	}
	t.timeUpdated = time.Now()
}

func (t *Tracker) processMarketChange(msg *bfstream.MarketChangeMessage, isImage bool) []*MarketBook {
	publishTime, _ := msg.PublishTime()
	touched := make([]*MarketBook, 0, len(msg.MarketChanges))
	for _, mc := range msg.MarketChanges {
		book, ok := t.marketBooks[mc.ID]
		if !ok {
			book = NewMarketBook(mc.ID, publishTime)
			t.marketBooks[mc.ID] = book
		}
		book.UpdateCache(mc, publishTime, true, isImage)
		touched = append(touched, book)
	}
	return touched
}

func (t *Tracker) processOrderChange(msg *bfstream.OrderChangeMessage) []*OrderBook {
	publishTime, _ := msg.PublishTime()
	touched := make([]*OrderBook, 0, len(msg.OrderChanges))
	for _, oc := range msg.OrderChanges {
		book, ok := t.orderBooks[oc.MarketID]
		if !ok {
			book = NewOrderBook(oc.MarketID, publishTime)
			t.orderBooks[oc.MarketID] = book
		}
		book.UpdateCache(oc, publishTime)
		touched = append(touched, book)
	}
	return touched
}

// ClearStaleCache prunes market and order books for markets that closed
// more than staleCacheLookback before now, the way a long-running
// connection avoids accumulating every settled market it has ever seen.
func (t *Tracker) ClearStaleCache(now time.Time) {
	for id, book := range t.marketBooks {
		if book.IsClosed() && now.Sub(book.PublishTime()) > staleCacheLookback {
			delete(t.marketBooks, id)
			delete(t.orderBooks, id)
		}
	}
}
