// Package subscriber provides ergonomic builders over the raw
// MarketSubscriptionMessage/OrderSubscriptionMessage request shapes,
// tracking a filter across subscribe/unsubscribe calls and resubscribing
// the whole thing each time the filter changes.
package subscriber

import (
	"context"
	"fmt"

	"github.com/betfair-go/stream/pkg/bfstream"
)

// unsubscribeAllMarketID is the sentinel documented by Betfair for
// "unsubscribe from everything": there is no explicit unsubscribe op, so a
// subscription naming a market that can never exist has the same effect.
const unsubscribeAllMarketID = bfstream.MarketID("1.23456789")

// MarketSubscriber builds and resends MarketSubscriptionMessage requests
// over commands as its filter, fields, or ladder depth change.
type MarketSubscriber struct {
	commands chan<- any

	filter           bfstream.MarketFilter
	marketDataFields []bfstream.Field
	ladderLevel      *bfstream.LadderLevel
}

// NewMarketSubscriber creates a subscriber that writes subscription
// requests to commands (typically the supervisor's write-pump channel).
func NewMarketSubscriber(commands chan<- any, filter bfstream.MarketFilter, fields []bfstream.Field, ladderLevel *bfstream.LadderLevel) *MarketSubscriber {
	return &MarketSubscriber{commands: commands, filter: filter, marketDataFields: fields, ladderLevel: ladderLevel}
}

// SubscribeToMarket adds marketID to the filter and resubscribes.
func (s *MarketSubscriber) SubscribeToMarket(ctx context.Context, marketID bfstream.MarketID) error {
	s.filter.MarketIDs = append(s.filter.MarketIDs, marketID)
	return s.Resubscribe(ctx)
}

// UnsubscribeFromMarket removes marketID from the filter. If it was the
// last market being watched, this resubscribes to nothing via the
// unsubscribe-all sentinel rather than sending an empty filter (which
// Betfair interprets as "no change", not "no markets").
func (s *MarketSubscriber) UnsubscribeFromMarket(ctx context.Context, marketID bfstream.MarketID) error {
	filtered := s.filter.MarketIDs[:0]
	for _, id := range s.filter.MarketIDs {
		if id != marketID {
			filtered = append(filtered, id)
		}
	}
	s.filter.MarketIDs = filtered

	if len(s.filter.MarketIDs) == 0 {
		return s.UnsubscribeFromAllMarkets(ctx)
	}
	return s.Resubscribe(ctx)
}

// UnsubscribeFromAllMarkets resets the filter and subscribes to the
// nonexistent sentinel market, Betfair's documented idiom for clearing a
// stream's market subscription without tearing down the connection.
func (s *MarketSubscriber) UnsubscribeFromAllMarkets(ctx context.Context) error {
	s.filter = bfstream.MarketFilter{}

	req := bfstream.MarketSubscriptionMessage{
		Operation:           "marketSubscription",
		SegmentationEnabled: boolPtr(true),
		HeartbeatMs:         int64Ptr(1000),
		MarketFilter:        bfstream.MarketFilter{MarketIDs: []bfstream.MarketID{unsubscribeAllMarketID}},
		MarketDataFilter:    &bfstream.MarketDataFilter{},
	}
	return s.send(ctx, req)
}

// Resubscribe resends the current filter/fields/ladder level as a fresh
// subscription. The clock fields are always left nil: Betfair documents
// that a subscription with a populated clk resumes from that point, and a
// filter/field change requires starting over from a fresh image.
func (s *MarketSubscriber) Resubscribe(ctx context.Context) error {
	req := bfstream.MarketSubscriptionMessage{
		Operation:           "marketSubscription",
		SegmentationEnabled: boolPtr(true),
		HeartbeatMs:         int64Ptr(1000),
		MarketFilter:        s.filter,
		MarketDataFilter: &bfstream.MarketDataFilter{
			LadderLevels: s.ladderLevel,
			Fields:       s.marketDataFields,
		},
	}
	return s.send(ctx, req)
}

// Filter returns the subscriber's current market filter.
func (s *MarketSubscriber) Filter() bfstream.MarketFilter { return s.filter }

// SetFilter replaces the filter outright and resubscribes.
func (s *MarketSubscriber) SetFilter(ctx context.Context, filter bfstream.MarketFilter) error {
	s.filter = filter
	return s.Resubscribe(ctx)
}

// LadderLevel returns the current best-offers depth, if restricted.
func (s *MarketSubscriber) LadderLevel() *bfstream.LadderLevel { return s.ladderLevel }

// SetLadderLevel changes the best-offers depth and resubscribes.
func (s *MarketSubscriber) SetLadderLevel(ctx context.Context, level *bfstream.LadderLevel) error {
	s.ladderLevel = level
	return s.Resubscribe(ctx)
}

// MarketDataFields returns the currently requested data fields.
func (s *MarketSubscriber) MarketDataFields() []bfstream.Field { return s.marketDataFields }

// SetMarketDataFields changes the requested data fields and resubscribes.
func (s *MarketSubscriber) SetMarketDataFields(ctx context.Context, fields []bfstream.Field) error {
	s.marketDataFields = fields
	return s.Resubscribe(ctx)
}

func (s *MarketSubscriber) send(ctx context.Context, req bfstream.MarketSubscriptionMessage) error {
	select {
	case s.commands <- req:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("subscriber: send market subscription: %w", ctx.Err())
	}
}

func boolPtr(b bool) *bool    { return &b }
func int64Ptr(n int64) *int64 { return &n }
