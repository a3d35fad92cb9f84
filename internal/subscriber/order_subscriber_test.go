package subscriber

import (
	"context"
	"testing"

	"github.com/betfair-go/stream/pkg/bfstream"
)

func TestOrderSubscriberSubscribeToStrategy(t *testing.T) {
	commands := make(chan any, 4)
	sub := NewOrderSubscriber(commands, bfstream.OrderFilter{})

	if err := sub.SubscribeToStrategyUpdates(context.Background(), bfstream.CustomerStrategyRef("my-strategy")); err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	msg := (<-commands).(bfstream.OrderSubscriptionMessage)
	if len(msg.OrderFilter.CustomerStrategyRefs) != 1 || msg.OrderFilter.CustomerStrategyRefs[0] != "my-strategy" {
		t.Fatalf("unexpected order filter: %+v", msg.OrderFilter)
	}
}

func TestOrderSubscriberUnsubscribeLastStrategyUnsubscribesAll(t *testing.T) {
	commands := make(chan any, 4)
	sub := NewOrderSubscriber(commands, bfstream.OrderFilter{CustomerStrategyRefs: []string{"only-one"}})

	if err := sub.UnsubscribeFromStrategyUpdates(context.Background(), bfstream.CustomerStrategyRef("only-one")); err != nil {
		t.Fatalf("unsubscribe: %v", err)
	}

	msg := (<-commands).(bfstream.OrderSubscriptionMessage)
	if len(msg.OrderFilter.CustomerStrategyRefs) != 1 || msg.OrderFilter.CustomerStrategyRefs[0] != unsubscribeAllStrategyRef {
		t.Fatalf("expected unsubscribe-all sentinel, got %+v", msg.OrderFilter)
	}
}
