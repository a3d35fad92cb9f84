// Package cache materializes the incremental market/order change deltas
// the stream sends into queryable local books, mirroring the upstream
// cache/primitives and cache/tracker modules field-for-field.
package cache

import (
	"fmt"
	"strconv"

	"github.com/betfair-go/stream/pkg/bfstream"
)

// RunnerKey identifies a runner within a market: selection id plus the
// optional handicap that distinguishes asian-handicap lines on the same
// selection.
type RunnerKey struct {
	SelectionID bfstream.SelectionID
	Handicap    string // canonical string form of the handicap, "" if absent
}

func handicapKey(hc *float64) string {
	if hc == nil {
		return ""
	}
	return strconv.FormatFloat(*hc, 'f', -1, 64)
}

// RunnerBook is the local cache for one runner's ladders and traded volume.
type RunnerBook struct {
	SelectionID bfstream.SelectionID
	Handicap    *float64

	lastPriceTraded *bfstream.Price
	totalMatched    *bfstream.Size

	traded                     *bfstream.Available[bfstream.UpdateSet2]
	availableToBack            *bfstream.Available[bfstream.UpdateSet2]
	bestAvailableToBack        *bfstream.Available[bfstream.UpdateSet3]
	bestDisplayAvailableToBack *bfstream.Available[bfstream.UpdateSet3]
	availableToLay             *bfstream.Available[bfstream.UpdateSet2]
	bestAvailableToLay         *bfstream.Available[bfstream.UpdateSet3]
	bestDisplayAvailableToLay  *bfstream.Available[bfstream.UpdateSet3]
	startingPriceBack          *bfstream.Available[bfstream.UpdateSet2]
	startingPriceLay           *bfstream.Available[bfstream.UpdateSet2]
	startingPriceNear          *bfstream.Price
	startingPriceFar           *bfstream.Price

	definition *bfstream.RunnerDefinition
}

// NewRunnerBookFromChange builds a RunnerBook from a runner's first
// appearance in a market change (no prior definition seen yet).
func NewRunnerBookFromChange(rc bfstream.RunnerChange) (*RunnerBook, error) {
	if rc.ID == nil {
		return nil, fmt.Errorf("cache: runner change missing selection id")
	}
	return &RunnerBook{
		SelectionID:                *rc.ID,
		Handicap:                   rc.Handicap,
		lastPriceTraded:            rc.LastTradedPrice,
		totalMatched:               rc.TotalValue,
		traded:                     bfstream.NewAvailable(rc.Traded),
		availableToBack:            bfstream.NewAvailable(rc.AvailableToBack),
		bestAvailableToBack:        bfstream.NewAvailable(rc.BestAvailableToBack),
		bestDisplayAvailableToBack: bfstream.NewAvailable(rc.BestDisplayAvailableToBack),
		availableToLay:             bfstream.NewAvailable(rc.AvailableToLay),
		bestAvailableToLay:         bfstream.NewAvailable(rc.BestAvailableToLay),
		bestDisplayAvailableToLay:  bfstream.NewAvailable(rc.BestDisplayAvailableToLay),
		startingPriceBack:          bfstream.NewAvailable(rc.StartingPriceBack),
		startingPriceLay:           bfstream.NewAvailable(rc.StartingPriceLay),
		startingPriceNear:          rc.StartingPriceNear,
		startingPriceFar:           rc.StartingPriceFar,
	}, nil
}

// NewRunnerBookFromDefinition builds a RunnerBook from a market
// definition's runner entry, with every ladder empty.
func NewRunnerBookFromDefinition(def bfstream.RunnerDefinition) (*RunnerBook, error) {
	if def.ID == nil {
		return nil, fmt.Errorf("cache: runner definition missing selection id")
	}
	d := def
	return &RunnerBook{
		SelectionID:                *def.ID,
		traded:                     bfstream.NewAvailable[bfstream.UpdateSet2](nil),
		availableToBack:            bfstream.NewAvailable[bfstream.UpdateSet2](nil),
		bestAvailableToBack:        bfstream.NewAvailable[bfstream.UpdateSet3](nil),
		bestDisplayAvailableToBack: bfstream.NewAvailable[bfstream.UpdateSet3](nil),
		availableToLay:             bfstream.NewAvailable[bfstream.UpdateSet2](nil),
		bestAvailableToLay:         bfstream.NewAvailable[bfstream.UpdateSet3](nil),
		bestDisplayAvailableToLay:  bfstream.NewAvailable[bfstream.UpdateSet3](nil),
		startingPriceBack:          bfstream.NewAvailable[bfstream.UpdateSet2](nil),
		startingPriceLay:           bfstream.NewAvailable[bfstream.UpdateSet2](nil),
		definition:                 &d,
	}, nil
}

// UpdateTraded merges trd into the traded-volume ladder (a zero size
// removes that price) and sets totalMatched to the sum of sizes across the
// resulting ladder. An empty (but non-nil)
// list means "clear everything and report zero volume", matching the
// upstream distinction between "no traded field in this message" (nil,
// handled by the caller skipping the call entirely) and "traded field
// present but empty" (len==0).
func (r *RunnerBook) UpdateTraded(trd []bfstream.UpdateSet2) {
	if len(trd) == 0 {
		r.traded.Clear()
		zero := bfstream.ZeroSize
		r.totalMatched = &zero
		return
	}
	r.traded.Update(trd)
	sum := bfstream.ZeroSize
	for _, u := range r.traded.Entries() {
		sum = sum.Add(u.Size)
	}
	r.totalMatched = &sum
}

// ClearLadders empties every ladder without touching the scalar fields
// (total matched, last traded price, starting prices), used when a full
// image replaces this runner's state: the image's own deltas are applied
// right after, so any ladder the image doesn't mention ends up empty
// instead of keeping levels left over from before the resubscribe.
func (r *RunnerBook) ClearLadders() {
	r.traded.Clear()
	r.availableToBack.Clear()
	r.availableToLay.Clear()
	r.bestAvailableToBack.Clear()
	r.bestAvailableToLay.Clear()
	r.bestDisplayAvailableToBack.Clear()
	r.bestDisplayAvailableToLay.Clear()
	r.startingPriceBack.Clear()
	r.startingPriceLay.Clear()
}

// SetDefinition replaces the runner's static definition.
func (r *RunnerBook) SetDefinition(def bfstream.RunnerDefinition) { d := def; r.definition = &d }

// SetLastPriceTraded records a new last-traded price.
func (r *RunnerBook) SetLastPriceTraded(p bfstream.Price) { r.lastPriceTraded = &p }

// SetTotalMatched overwrites the cached total-matched volume directly
// (used by the "tv" field, as opposed to recomputing from "trd").
func (r *RunnerBook) SetTotalMatched(s bfstream.Size) { r.totalMatched = &s }

// SetStartingPriceNear records a new near starting price.
func (r *RunnerBook) SetStartingPriceNear(p bfstream.Price) { r.startingPriceNear = &p }

// SetStartingPriceFar records a new far starting price.
func (r *RunnerBook) SetStartingPriceFar(p bfstream.Price) { r.startingPriceFar = &p }

// TotalMatched returns the cached total-matched volume, if any.
func (r *RunnerBook) TotalMatched() *bfstream.Size { return r.totalMatched }

// LastPriceTraded returns the cached last-traded price, if any.
func (r *RunnerBook) LastPriceTraded() *bfstream.Price { return r.lastPriceTraded }

// Definition returns the runner's static definition, if known.
func (r *RunnerBook) Definition() *bfstream.RunnerDefinition { return r.definition }

// AvailableToBack returns the back ladder.
func (r *RunnerBook) AvailableToBack() *bfstream.Available[bfstream.UpdateSet2] { return r.availableToBack }

// AvailableToLay returns the lay ladder.
func (r *RunnerBook) AvailableToLay() *bfstream.Available[bfstream.UpdateSet2] { return r.availableToLay }

// BestAvailableToBack returns the best-N back ladder.
func (r *RunnerBook) BestAvailableToBack() *bfstream.Available[bfstream.UpdateSet3] {
	return r.bestAvailableToBack
}

// BestAvailableToLay returns the best-N lay ladder.
func (r *RunnerBook) BestAvailableToLay() *bfstream.Available[bfstream.UpdateSet3] {
	return r.bestAvailableToLay
}

// Traded returns the traded-volume ladder.
func (r *RunnerBook) Traded() *bfstream.Available[bfstream.UpdateSet2] { return r.traded }

func (r *RunnerBook) key() RunnerKey {
	return RunnerKey{SelectionID: r.SelectionID, Handicap: handicapKey(r.Handicap)}
}
