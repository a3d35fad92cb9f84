package cache

import (
	"time"

	"github.com/betfair-go/stream/pkg/bfstream"
)

// OrderRunnerBook is the local cache for one runner's order activity:
// matched volume ladders (overall and per customer strategy) plus the
// current set of resting unmatched orders.
type OrderRunnerBook struct {
	SelectionID bfstream.SelectionID
	Handicap    *float64

	matchedBacks *bfstream.Available[bfstream.UpdateSet2]
	matchedLays  *bfstream.Available[bfstream.UpdateSet2]

	strategyMatches map[bfstream.CustomerStrategyRef]*strategyLadders
	unmatchedOrders map[bfstream.BetID]bfstream.Order
}

type strategyLadders struct {
	matchedBacks *bfstream.Available[bfstream.UpdateSet2]
	matchedLays  *bfstream.Available[bfstream.UpdateSet2]
}

func newOrderRunnerBook(orc bfstream.OrderRunnerChange) *OrderRunnerBook {
	b := &OrderRunnerBook{
		SelectionID:     orc.ID,
		Handicap:        orc.Handicap,
		matchedBacks:    bfstream.NewAvailable[bfstream.UpdateSet2](nil),
		matchedLays:     bfstream.NewAvailable[bfstream.UpdateSet2](nil),
		strategyMatches: make(map[bfstream.CustomerStrategyRef]*strategyLadders),
		unmatchedOrders: make(map[bfstream.BetID]bfstream.Order),
	}
	b.applyRunnerChange(orc)
	return b
}

func (b *OrderRunnerBook) applyRunnerChange(orc bfstream.OrderRunnerChange) {
	if orc.MatchedBacks != nil {
		b.matchedBacks.Update(orc.MatchedBacks)
	}
	if orc.MatchedLays != nil {
		b.matchedLays.Update(orc.MatchedLays)
	}
	for ref, smc := range orc.StrategyMatches {
		ladders, ok := b.strategyMatches[ref]
		if !ok {
			ladders = &strategyLadders{
				matchedBacks: bfstream.NewAvailable[bfstream.UpdateSet2](nil),
				matchedLays:  bfstream.NewAvailable[bfstream.UpdateSet2](nil),
			}
			b.strategyMatches[ref] = ladders
		}
		if smc.MatchedBacks != nil {
			ladders.matchedBacks.Update(smc.MatchedBacks)
		}
		if smc.MatchedLays != nil {
			ladders.matchedLays.Update(smc.MatchedLays)
		}
	}

	// uo carries the full current set of unmatched orders for the runner,
	// not a delta keyed by bet id: an order that lapsed, was cancelled, or
	// fully matched simply stops appearing, so every update replaces the
	// set wholesale rather than merging into it.
	if orc.UnmatchedOrders != nil {
		b.unmatchedOrders = make(map[bfstream.BetID]bfstream.Order, len(orc.UnmatchedOrders))
		for _, o := range orc.UnmatchedOrders {
			b.unmatchedOrders[o.BetID] = o
		}
	}
}

// MatchedBacks returns the runner's overall matched-back ladder.
func (b *OrderRunnerBook) MatchedBacks() *bfstream.Available[bfstream.UpdateSet2] { return b.matchedBacks }

// MatchedLays returns the runner's overall matched-lay ladder.
func (b *OrderRunnerBook) MatchedLays() *bfstream.Available[bfstream.UpdateSet2] { return b.matchedLays }

// UnmatchedOrders returns the current resting orders, keyed by bet id.
func (b *OrderRunnerBook) UnmatchedOrders() map[bfstream.BetID]bfstream.Order { return b.unmatchedOrders }

// OrderBook is the local cache for one market's order activity across all
// its runners, for a single account.
type OrderBook struct {
	MarketID    bfstream.MarketID
	publishTime time.Time
	closed      bool
	accountID   *int64

	runners map[RunnerKey]*OrderRunnerBook
}

// NewOrderBook creates an empty order book for marketID.
func NewOrderBook(marketID bfstream.MarketID, publishTime time.Time) *OrderBook {
	return &OrderBook{
		MarketID:    marketID,
		publishTime: publishTime,
		runners:     make(map[RunnerKey]*OrderRunnerBook),
	}
}

// IsClosed reports whether the market has been marked closed by the stream.
func (b *OrderBook) IsClosed() bool { return b.closed }

// PublishTime returns the timestamp of the last message applied.
func (b *OrderBook) PublishTime() time.Time { return b.publishTime }

// AccountID returns the account this order book's activity belongs to, if known.
func (b *OrderBook) AccountID() *int64 { return b.accountID }

// Runners returns every runner currently cached in this order book.
func (b *OrderBook) Runners() map[RunnerKey]*OrderRunnerBook { return b.runners }

// Runner looks up an order runner book by selection id and handicap.
func (b *OrderBook) Runner(selectionID bfstream.SelectionID, handicap *float64) (*OrderRunnerBook, bool) {
	r, ok := b.runners[RunnerKey{SelectionID: selectionID, Handicap: handicapKey(handicap)}]
	return r, ok
}

// UpdateCache applies one OrderMarketChange delta.
func (b *OrderBook) UpdateCache(oc bfstream.OrderMarketChange, publishTime time.Time) {
	b.publishTime = publishTime
	b.closed = oc.Closed
	if oc.AccountID != nil {
		b.accountID = oc.AccountID
	}

	for _, orc := range oc.OrderRunnerChange {
		key := RunnerKey{SelectionID: orc.ID, Handicap: handicapKey(orc.Handicap)}
		runner, ok := b.runners[key]
		if !ok {
			b.runners[key] = newOrderRunnerBook(orc)
			continue
		}
		runner.applyRunnerChange(orc)
	}
}
