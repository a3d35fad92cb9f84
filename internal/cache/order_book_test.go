package cache

import (
	"testing"
	"time"

	"github.com/betfair-go/stream/pkg/bfstream"
)

func TestOrderBookUpdateCacheMatchedLadders(t *testing.T) {
	marketID := bfstream.MarketID("1.23456789")
	book := NewOrderBook(marketID, time.Now().UTC())

	oc := bfstream.OrderMarketChange{
		MarketID: marketID,
		OrderRunnerChange: []bfstream.OrderRunnerChange{
			{
				ID:           bfstream.SelectionID(13536143),
				MatchedBacks: []bfstream.UpdateSet2{{Price: priceOf("2.0"), Size: *sizeOf("10")}},
			},
		},
	}

	book.UpdateCache(oc, time.Now().UTC())

	runner, ok := book.Runner(13536143, nil)
	if !ok {
		t.Fatal("expected runner to be cached")
	}
	if runner.MatchedBacks().Len() != 1 {
		t.Fatalf("expected 1 matched-back level, got %d", runner.MatchedBacks().Len())
	}

	// a zero size removes the level
	book.UpdateCache(bfstream.OrderMarketChange{
		MarketID: marketID,
		OrderRunnerChange: []bfstream.OrderRunnerChange{
			{
				ID:           bfstream.SelectionID(13536143),
				MatchedBacks: []bfstream.UpdateSet2{{Price: priceOf("2.0"), Size: *sizeOf("0")}},
			},
		},
	}, time.Now().UTC())

	if runner.MatchedBacks().Len() != 0 {
		t.Fatalf("expected matched-back level removed, got %d", runner.MatchedBacks().Len())
	}
}

func TestOrderBookUnmatchedOrdersReplaceWholesale(t *testing.T) {
	marketID := bfstream.MarketID("1.23456789")
	book := NewOrderBook(marketID, time.Now().UTC())

	order1 := bfstream.Order{BetID: bfstream.BetID("bet-1"), Side: bfstream.SideBack, Price: priceOf("2.0"), Size: *sizeOf("10")}
	book.UpdateCache(bfstream.OrderMarketChange{
		MarketID: marketID,
		OrderRunnerChange: []bfstream.OrderRunnerChange{
			{ID: bfstream.SelectionID(1), UnmatchedOrders: []bfstream.Order{order1}},
		},
	}, time.Now().UTC())

	runner, _ := book.Runner(1, nil)
	if len(runner.UnmatchedOrders()) != 1 {
		t.Fatalf("expected 1 unmatched order, got %d", len(runner.UnmatchedOrders()))
	}

	// a later update with a different set replaces rather than merges
	order2 := bfstream.Order{BetID: bfstream.BetID("bet-2"), Side: bfstream.SideLay, Price: priceOf("3.0"), Size: *sizeOf("5")}
	book.UpdateCache(bfstream.OrderMarketChange{
		MarketID: marketID,
		OrderRunnerChange: []bfstream.OrderRunnerChange{
			{ID: bfstream.SelectionID(1), UnmatchedOrders: []bfstream.Order{order2}},
		},
	}, time.Now().UTC())

	runner, _ = book.Runner(1, nil)
	if len(runner.UnmatchedOrders()) != 1 {
		t.Fatalf("expected unmatched orders replaced to 1, got %d", len(runner.UnmatchedOrders()))
	}
	if _, ok := runner.UnmatchedOrders()[bfstream.BetID("bet-1")]; ok {
		t.Fatal("expected stale order bet-1 to be gone after replace")
	}
	if _, ok := runner.UnmatchedOrders()[bfstream.BetID("bet-2")]; !ok {
		t.Fatal("expected order bet-2 present")
	}
}

func TestOrderBookClosedFlag(t *testing.T) {
	marketID := bfstream.MarketID("1.23456789")
	book := NewOrderBook(marketID, time.Now().UTC())

	book.UpdateCache(bfstream.OrderMarketChange{MarketID: marketID, Closed: true}, time.Now().UTC())

	if !book.IsClosed() {
		t.Fatal("expected order book to be closed")
	}
}
