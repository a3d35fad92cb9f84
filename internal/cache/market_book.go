package cache

import (
	"time"

	"github.com/betfair-go/stream/pkg/bfstream"
)

// MarketBook is the local cache for one market: its static definition plus
// every runner's ladders, kept current by applying MarketChange deltas.
type MarketBook struct {
	MarketID    bfstream.MarketID
	publishTime time.Time
	active      bool

	totalMatched     bfstream.Size
	marketDefinition *bfstream.MarketDefinition
	runners          map[RunnerKey]*RunnerBook
}

// NewMarketBook creates an empty, active market book.
func NewMarketBook(marketID bfstream.MarketID, publishTime time.Time) *MarketBook {
	return &MarketBook{
		MarketID:     marketID,
		publishTime:  publishTime,
		active:       true,
		totalMatched: bfstream.ZeroSize,
		runners:      make(map[RunnerKey]*RunnerBook),
	}
}

// IsClosed reports whether the market definition says the market is
// anything other than OPEN (including "no definition seen yet").
func (m *MarketBook) IsClosed() bool {
	return m.marketDefinition == nil || m.marketDefinition.Status != bfstream.MarketOpen
}

// PublishTime returns the timestamp of the last message applied to this
// book, used for staleness pruning.
func (m *MarketBook) PublishTime() time.Time { return m.publishTime }

// TotalMatched returns the market-level cached total matched volume.
func (m *MarketBook) TotalMatched() bfstream.Size { return m.totalMatched }

// MarketDefinition returns the market's static definition, if known.
func (m *MarketBook) MarketDefinition() *bfstream.MarketDefinition { return m.marketDefinition }

// Runner looks up a runner's book by selection id and handicap.
func (m *MarketBook) Runner(selectionID bfstream.SelectionID, handicap *float64) (*RunnerBook, bool) {
	r, ok := m.runners[RunnerKey{SelectionID: selectionID, Handicap: handicapKey(handicap)}]
	return r, ok
}

// Runners returns every runner currently cached for this market.
func (m *MarketBook) Runners() map[RunnerKey]*RunnerBook { return m.runners }

// UpdateCache applies one MarketChange delta, following the field-by-field
// semantics of the upstream market_book_cache: every field is independently
// optional, and totalMatched is only recomputed from the sum of runner
// totals when at least one runner received a "traded" delta in this
// message (recomputing on every message would be wrong whenever only tv
// moved at the market level without any runner trade).
//
// isImage marks a full-image update — either the enclosing message's ct is
// SUB_IMAGE, or this particular market change carries img: true. An image
// is a replace, not a merge: an already-cached runner's ladders are
// cleared before this message's deltas are applied, so any ladder absent
// from the image ends up empty rather than keeping stale levels from
// before the resubscribe.
func (m *MarketBook) UpdateCache(mc bfstream.MarketChange, publishTime time.Time, active bool, isImage bool) {
	m.active = active
	m.publishTime = publishTime

	replace := isImage || mc.IsImage

	if mc.MarketDefinition != nil {
		m.marketDefinition = mc.MarketDefinition
	}
	if mc.TotalValue != nil {
		m.totalMatched = *mc.TotalValue
	}

	recomputeTotal := false
	for _, rc := range mc.RunnerChange {
		if rc.ID == nil {
			continue
		}
		key := RunnerKey{SelectionID: *rc.ID, Handicap: handicapKey(rc.Handicap)}
		runner, ok := m.runners[key]
		if !ok {
			newRunner, err := NewRunnerBookFromChange(rc)
			if err != nil {
				continue
			}
			m.runners[key] = newRunner
			if rc.Traded != nil {
				newRunner.UpdateTraded(rc.Traded)
				recomputeTotal = true
			}
			continue
		}

		if replace {
			runner.ClearLadders()
		}

		if rc.LastTradedPrice != nil {
			runner.SetLastPriceTraded(*rc.LastTradedPrice)
		}
		if rc.TotalValue != nil {
			runner.SetTotalMatched(*rc.TotalValue)
		}
		if rc.StartingPriceNear != nil {
			runner.SetStartingPriceNear(*rc.StartingPriceNear)
		}
		if rc.StartingPriceFar != nil {
			runner.SetStartingPriceFar(*rc.StartingPriceFar)
		}
		if rc.Traded != nil {
			runner.UpdateTraded(rc.Traded)
			recomputeTotal = true
		}
		if rc.AvailableToBack != nil {
			runner.availableToBack.Update(rc.AvailableToBack)
		}
		if rc.AvailableToLay != nil {
			runner.availableToLay.Update(rc.AvailableToLay)
		}
		if rc.BestAvailableToBack != nil {
			runner.bestAvailableToBack.Update(rc.BestAvailableToBack)
		}
		if rc.BestAvailableToLay != nil {
			runner.bestAvailableToLay.Update(rc.BestAvailableToLay)
		}
		if rc.BestDisplayAvailableToBack != nil {
			runner.bestDisplayAvailableToBack.Update(rc.BestDisplayAvailableToBack)
		}
		if rc.BestDisplayAvailableToLay != nil {
			runner.bestDisplayAvailableToLay.Update(rc.BestDisplayAvailableToLay)
		}
		if rc.StartingPriceBack != nil {
			runner.startingPriceBack.Update(rc.StartingPriceBack)
		}
		if rc.StartingPriceLay != nil {
			runner.startingPriceLay.Update(rc.StartingPriceLay)
		}
	}

	if recomputeTotal {
		sum := bfstream.ZeroSize
		for _, r := range m.runners {
			if r.totalMatched != nil {
				sum = sum.Add(*r.totalMatched)
			}
		}
		m.totalMatched = sum
	}
}

// UpdateMarketDefinition replaces the market definition and pushes each
// runner's static fields down into its (possibly newly created) runner
// book, independent of any ladder deltas in the same message.
func (m *MarketBook) UpdateMarketDefinition(def bfstream.MarketDefinition) {
	m.marketDefinition = &def

	for _, rd := range def.Runners {
		if rd.ID == nil {
			continue
		}
		key := RunnerKey{SelectionID: *rd.ID, Handicap: handicapKey(rd.Handicap)}
		if runner, ok := m.runners[key]; ok {
			runner.SetDefinition(rd)
			continue
		}
		newRunner, err := NewRunnerBookFromDefinition(rd)
		if err != nil {
			continue
		}
		m.runners[key] = newRunner
	}
}
