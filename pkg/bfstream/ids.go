// Package bfstream is the shared wire vocabulary for the Betfair Exchange
// Stream client — message envelopes, market/order change payloads, and the
// request messages sent back over the same connection. It has no
// dependencies on internal packages, so it can be imported by any layer.
package bfstream

import (
	"github.com/shopspring/decimal"
)

// MarketID identifies a market, e.g. "1.23456789".
type MarketID string

// SelectionID identifies a runner within a market.
type SelectionID int64

// BetID identifies a single order.
type BetID string

// CustomerStrategyRef is the customer-supplied strategy tag orders are
// placed under; order changes are bundled per strategy in strategyMatches.
type CustomerStrategyRef string

// Price is a decimal odds value. Wrapping decimal.Decimal (rather than an
// alias) keeps its JSON behavior while giving the wire types their own
// documented identity.
type Price struct{ decimal.Decimal }

// Size is a monetary stake amount.
type Size struct{ decimal.Decimal }

// Position is the rank of a price level in a best-N ladder (0 = best).
type Position struct{ decimal.Decimal }

// NewPrice wraps a decimal value as a Price.
func NewPrice(d decimal.Decimal) Price { return Price{d} }

// NewSize wraps a decimal value as a Size.
func NewSize(d decimal.Decimal) Size { return Size{d} }

// ZeroSize is the zero stake, used as the default total-matched value and
// as the starting value when summing sizes.
var ZeroSize = Size{decimal.Zero}

// IsZero reports whether the size is exactly zero — the sentinel Betfair
// uses on a ladder entry to mean "remove this level".
func (s Size) IsZero() bool { return s.Decimal.IsZero() }

// Add returns the sum of two sizes.
func (s Size) Add(other Size) Size { return Size{s.Decimal.Add(other.Decimal)} }
