package dashboard

import (
	"time"

	"github.com/betfair-go/stream/internal/cache"
)

// Event wraps anything broadcast to dashboard clients.
type Event struct {
	Type      string    `json:"type"` // "snapshot", "metadata"
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data"`
}

// Snapshot is the full observable cache state at one instant.
type Snapshot struct {
	Timestamp time.Time           `json:"timestamp"`
	Markets   []MarketSummary     `json:"markets"`
	Orders    []OrderMarketSummary `json:"orders"`
}

// MarketSummary is one market's book state, flattened for display.
type MarketSummary struct {
	MarketID     string    `json:"market_id"`
	PublishTime  time.Time `json:"publish_time"`
	Closed       bool      `json:"closed"`
	TotalMatched string    `json:"total_matched,omitempty"`
	RunnerCount  int       `json:"runner_count"`
}

// OrderMarketSummary is one market's order book state.
type OrderMarketSummary struct {
	MarketID    string    `json:"market_id"`
	PublishTime time.Time `json:"publish_time"`
	Closed      bool      `json:"closed"`
	AccountID   *int64    `json:"account_id,omitempty"`
	RunnerCount int       `json:"runner_count"`
}

// BuildSnapshot reads the tracker's current cache state. Tracker exposes
// its books as plain maps rather than a snapshot type of its own, so the
// aggregation — and the decision of what's worth showing on a dashboard —
// lives here rather than in the cache package itself.
func BuildSnapshot(tracker *cache.Tracker) Snapshot {
	marketBooks := tracker.MarketBooks()
	markets := make([]MarketSummary, 0, len(marketBooks))
	for id, mb := range marketBooks {
		summary := MarketSummary{
			MarketID:    string(id),
			PublishTime: mb.PublishTime(),
			Closed:      mb.IsClosed(),
			RunnerCount: len(mb.Runners()),
		}
		summary.TotalMatched = mb.TotalMatched().String()
		markets = append(markets, summary)
	}

	orderBooks := tracker.OrderBooks()
	orders := make([]OrderMarketSummary, 0, len(orderBooks))
	for id, ob := range orderBooks {
		orders = append(orders, OrderMarketSummary{
			MarketID:    string(id),
			PublishTime: ob.PublishTime(),
			Closed:      ob.IsClosed(),
			AccountID:   ob.AccountID(),
			RunnerCount: len(ob.Runners()),
		})
	}

	return Snapshot{Timestamp: time.Now(), Markets: markets, Orders: orders}
}
