package bfstream

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
)

// UpdateSet2 is a single (price, size) ladder delta. On the wire it is a
// two-element JSON array, e.g. [1.01, 200] — not an object.
type UpdateSet2 struct {
	Price Price
	Size  Size
}

// MarshalJSON renders the pair as a two-element array.
func (u UpdateSet2) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]decimal.Decimal{u.Price.Decimal, u.Size.Decimal})
}

// UnmarshalJSON parses a two-element array.
func (u *UpdateSet2) UnmarshalJSON(data []byte) error {
	var pair [2]decimal.Decimal
	if err := json.Unmarshal(data, &pair); err != nil {
		return fmt.Errorf("decode UpdateSet2: %w", err)
	}
	u.Price = Price{pair[0]}
	u.Size = Size{pair[1]}
	return nil
}

func (u UpdateSet2) mapKey() string             { return u.Price.Decimal.String() }
func (u UpdateSet2) deleted() bool              { return u.Size.IsZero() }
func (u UpdateSet2) sortValue() decimal.Decimal { return u.Price.Decimal }
func (u UpdateSet2) valueKey() string           { return u.Size.Decimal.String() }

// UpdateSet3 is a single (position, price, size) ladder delta, used for the
// best-N-offers ladders. On the wire it is a three-element JSON array.
type UpdateSet3 struct {
	Position Position
	Price    Price
	Size     Size
}

// MarshalJSON renders the triple as a three-element array.
func (u UpdateSet3) MarshalJSON() ([]byte, error) {
	return json.Marshal([3]decimal.Decimal{u.Position.Decimal, u.Price.Decimal, u.Size.Decimal})
}

// UnmarshalJSON parses a three-element array.
func (u *UpdateSet3) UnmarshalJSON(data []byte) error {
	var triple [3]decimal.Decimal
	if err := json.Unmarshal(data, &triple); err != nil {
		return fmt.Errorf("decode UpdateSet3: %w", err)
	}
	u.Position = Position{triple[0]}
	u.Price = Price{triple[1]}
	u.Size = Size{triple[2]}
	return nil
}

func (u UpdateSet3) mapKey() string             { return u.Position.Decimal.String() }
func (u UpdateSet3) deleted() bool              { return u.Size.IsZero() }
func (u UpdateSet3) sortValue() decimal.Decimal { return u.Position.Decimal }
func (u UpdateSet3) valueKey() string {
	return u.Price.Decimal.String() + "/" + u.Size.Decimal.String()
}

// ladderUpdate is satisfied by UpdateSet2 and UpdateSet3 so Available can be
// generic over either shape. The methods are unexported: only this package
// defines new ladder delta kinds.
type ladderUpdate interface {
	mapKey() string
	deleted() bool
	sortValue() decimal.Decimal
	valueKey() string
}

// Available holds the current state of one ladder (available-to-back,
// best-offers, starting price, etc.) keyed by price or position. A size of
// zero in an update means "remove this level"; otherwise the level is set
// to the given value. Keys are unique so application order within one
// batch never changes the result — entries are kept in a plain map and
// sorted on read only for deterministic iteration/display, mirroring the
// BTreeMap the protocol's ordering guarantee was modeled on upstream.
type Available[T ladderUpdate] struct {
	entries map[string]T
}

// NewAvailable builds an Available pre-populated from an initial batch.
func NewAvailable[T ladderUpdate](initial []T) *Available[T] {
	a := &Available[T]{entries: make(map[string]T, len(initial))}
	a.Update(initial)
	return a
}

// Update applies a batch of deltas in place.
func (a *Available[T]) Update(updates []T) {
	if a.entries == nil {
		a.entries = make(map[string]T)
	}
	for _, u := range updates {
		if u.deleted() {
			delete(a.entries, u.mapKey())
			continue
		}
		a.entries[u.mapKey()] = u
	}
}

// Clear removes every level, used when a full image replaces the ladder.
func (a *Available[T]) Clear() {
	a.entries = make(map[string]T)
}

// Len returns the number of levels currently held.
func (a *Available[T]) Len() int { return len(a.entries) }

// Entries returns the current levels sorted ascending by price/position.
func (a *Available[T]) Entries() []T {
	out := make([]T, 0, len(a.entries))
	for _, v := range a.entries {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].sortValue().LessThan(out[j].sortValue())
	})
	return out
}

// Equal reports whether two ladders hold the same set of levels, used by
// tests rather than production code (maps are compared by key/value, not
// by the raw decimal representation pointer).
func (a *Available[T]) Equal(other *Available[T]) bool {
	if a.Len() != other.Len() {
		return false
	}
	for k, v := range a.entries {
		ov, ok := other.entries[k]
		if !ok || v.valueKey() != ov.valueKey() {
			return false
		}
	}
	return true
}
