package subscriber

import (
	"context"
	"fmt"

	"github.com/betfair-go/stream/pkg/bfstream"
)

// unsubscribeAllStrategyRef is the order-stream equivalent of
// unsubscribeAllMarketID: a strategy reference that can never be a real
// customer tag, used to simulate "subscribe to nothing".
const unsubscribeAllStrategyRef = "doesnt exist   "

// OrderSubscriber builds and resends OrderSubscriptionMessage requests as
// its filter changes.
type OrderSubscriber struct {
	commands chan<- any
	filter   bfstream.OrderFilter
}

// NewOrderSubscriber creates a subscriber that writes subscription
// requests to commands.
func NewOrderSubscriber(commands chan<- any, filter bfstream.OrderFilter) *OrderSubscriber {
	return &OrderSubscriber{commands: commands, filter: filter}
}

// SubscribeToStrategyUpdates adds strategyRef to the filter and resubscribes.
func (s *OrderSubscriber) SubscribeToStrategyUpdates(ctx context.Context, strategyRef bfstream.CustomerStrategyRef) error {
	s.filter.CustomerStrategyRefs = append(s.filter.CustomerStrategyRefs, string(strategyRef))
	return s.Resubscribe(ctx)
}

// UnsubscribeFromStrategyUpdates removes strategyRef from the filter,
// falling back to UnsubscribeFromAllMarkets if that empties it.
func (s *OrderSubscriber) UnsubscribeFromStrategyUpdates(ctx context.Context, strategyRef bfstream.CustomerStrategyRef) error {
	filtered := s.filter.CustomerStrategyRefs[:0]
	for _, ref := range s.filter.CustomerStrategyRefs {
		if ref != string(strategyRef) {
			filtered = append(filtered, ref)
		}
	}
	s.filter.CustomerStrategyRefs = filtered

	if len(s.filter.CustomerStrategyRefs) == 0 {
		return s.UnsubscribeFromAllMarkets(ctx)
	}
	return s.Resubscribe(ctx)
}

// UnsubscribeFromAllMarkets resets the filter and subscribes to the
// nonexistent strategy-ref sentinel.
func (s *OrderSubscriber) UnsubscribeFromAllMarkets(ctx context.Context) error {
	s.filter = bfstream.OrderFilter{}

	req := bfstream.OrderSubscriptionMessage{
		Operation:           "orderSubscription",
		SegmentationEnabled: boolPtr(true),
		HeartbeatMs:         int64Ptr(500),
		OrderFilter:         bfstream.OrderFilter{CustomerStrategyRefs: []string{unsubscribeAllStrategyRef}},
	}
	return s.send(ctx, req)
}

// Resubscribe resends the current filter as a fresh subscription, always
// with the clock fields nil to force a new image.
func (s *OrderSubscriber) Resubscribe(ctx context.Context) error {
	req := bfstream.OrderSubscriptionMessage{
		Operation:           "orderSubscription",
		SegmentationEnabled: boolPtr(true),
		HeartbeatMs:         int64Ptr(500),
		OrderFilter:         s.filter,
	}
	return s.send(ctx, req)
}

// Filter returns the subscriber's current order filter.
func (s *OrderSubscriber) Filter() bfstream.OrderFilter { return s.filter }

// SetFilter replaces the filter outright and resubscribes.
func (s *OrderSubscriber) SetFilter(ctx context.Context, filter bfstream.OrderFilter) error {
	s.filter = filter
	return s.Resubscribe(ctx)
}

func (s *OrderSubscriber) send(ctx context.Context, req bfstream.OrderSubscriptionMessage) error {
	select {
	case s.commands <- req:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("subscriber: send order subscription: %w", ctx.Err())
	}
}
