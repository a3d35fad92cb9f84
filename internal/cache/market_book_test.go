package cache

import (
	"testing"
	"time"

	"github.com/betfair-go/stream/pkg/bfstream"
	"github.com/shopspring/decimal"
)

func newTestMarketBook() (bfstream.MarketID, time.Time, *MarketBook) {
	marketID := bfstream.MarketID("1.23456789")
	publishTime := time.Now().UTC()
	return marketID, publishTime, NewMarketBook(marketID, publishTime)
}

func selectionID(n int64) *bfstream.SelectionID {
	id := bfstream.SelectionID(n)
	return &id
}

func sizeOf(v string) *bfstream.Size {
	d, err := decimal.NewFromString(v)
	if err != nil {
		panic(err)
	}
	s := bfstream.NewSize(d)
	return &s
}

func priceOf(v string) bfstream.Price {
	d, err := decimal.NewFromString(v)
	if err != nil {
		panic(err)
	}
	return bfstream.NewPrice(d)
}

func TestMarketBookInit(t *testing.T) {
	marketID, publishTime, book := newTestMarketBook()

	if !book.active {
		t.Fatal("expected new book to be active")
	}
	if book.MarketID != marketID {
		t.Fatalf("unexpected market id: %v", book.MarketID)
	}
	if !book.PublishTime().Equal(publishTime) {
		t.Fatalf("unexpected publish time: %v", book.PublishTime())
	}
	if !book.TotalMatched().IsZero() {
		t.Fatalf("expected zero total matched, got %v", book.TotalMatched())
	}
	if book.MarketDefinition() != nil {
		t.Fatal("expected no market definition yet")
	}
	if len(book.Runners()) != 0 {
		t.Fatal("expected no runners yet")
	}
}

func TestMarketBookUpdateMC(t *testing.T) {
	_, _, book := newTestMarketBook()

	status := bfstream.MarketSuspended
	mc := bfstream.MarketChange{
		ID: bfstream.MarketID("1.128149474"),
		MarketDefinition: &bfstream.MarketDefinition{
			BSPMarket:             false,
			TurnInPlayEnabled:     true,
			PersistenceEnabled:    true,
			MarketBaseRate:        5,
			NumberOfWinners:       1,
			BetDelay:              5,
			NumberOfActiveRunners: 2,
			Status:                status,
			Runners: []bfstream.RunnerDefinition{
				{Status: bfstream.RunnerActive, SortPriority: 1, ID: selectionID(4520808)},
				{Status: bfstream.RunnerActive, SortPriority: 2, ID: selectionID(7431682)},
			},
		},
	}

	book.UpdateCache(mc, time.Now().UTC(), true, false)

	if !book.active {
		t.Fatal("expected book to remain active")
	}
	if !book.TotalMatched().IsZero() {
		t.Fatalf("expected total matched unchanged at zero, got %v", book.TotalMatched())
	}
	if book.MarketDefinition() == nil || book.MarketDefinition().Status != status {
		t.Fatal("expected market definition to be applied")
	}
}

func TestMarketBookUpdateTV(t *testing.T) {
	_, _, book := newTestMarketBook()

	tv := sizeOf("69.69")
	mc := bfstream.MarketChange{ID: bfstream.MarketID("1.126235656"), TotalValue: tv}

	book.UpdateCache(mc, time.Now().UTC(), true, false)

	if !book.active {
		t.Fatal("expected book to remain active")
	}
	if book.TotalMatched().Decimal.Cmp(tv.Decimal) != 0 {
		t.Fatalf("expected total matched %v, got %v", tv, book.TotalMatched())
	}
}

func TestMarketBookUpdateMultipleRC(t *testing.T) {
	marketID, _, book := newTestMarketBook()

	mc := bfstream.MarketChange{
		ID: marketID,
		RunnerChange: []bfstream.RunnerChange{
			{
				ID:              selectionID(13536143),
				AvailableToBack: []bfstream.UpdateSet2{{Price: priceOf("1.01"), Size: *sizeOf("200")}},
			},
			{
				ID:             selectionID(13536143),
				AvailableToLay: []bfstream.UpdateSet2{{Price: priceOf("1.02"), Size: *sizeOf("200")}},
			},
		},
	}

	book.UpdateCache(mc, time.Now().UTC(), true, false)

	if !book.active {
		t.Fatal("expected book to remain active")
	}
	if len(book.Runners()) != 1 {
		t.Fatalf("expected a single runner, got %d", len(book.Runners()))
	}
	if !book.TotalMatched().IsZero() {
		t.Fatalf("expected total matched unchanged at zero, got %v", book.TotalMatched())
	}

	runner, ok := book.Runner(13536143, nil)
	if !ok {
		t.Fatal("expected runner 13536143 to be cached")
	}

	wantATB := bfstream.NewAvailable([]bfstream.UpdateSet2{{Price: priceOf("1.01"), Size: *sizeOf("200")}})
	if !runner.AvailableToBack().Equal(wantATB) {
		t.Fatal("expected available-to-back ladder to be updated")
	}
	wantATL := bfstream.NewAvailable([]bfstream.UpdateSet2{{Price: priceOf("1.02"), Size: *sizeOf("200")}})
	if !runner.AvailableToLay().Equal(wantATL) {
		t.Fatal("expected available-to-lay ladder to be updated")
	}
}

func TestMarketBookDeltaMergesIntoExistingLadder(t *testing.T) {
	marketID, _, book := newTestMarketBook()

	book.UpdateCache(bfstream.MarketChange{
		ID: marketID,
		RunnerChange: []bfstream.RunnerChange{
			{
				ID:              selectionID(13536143),
				AvailableToBack: []bfstream.UpdateSet2{{Price: priceOf("1.01"), Size: *sizeOf("200")}},
			},
		},
	}, time.Now().UTC(), true, false)

	book.UpdateCache(bfstream.MarketChange{
		ID: marketID,
		RunnerChange: []bfstream.RunnerChange{
			{
				ID:              selectionID(13536143),
				AvailableToBack: []bfstream.UpdateSet2{{Price: priceOf("1.02"), Size: *sizeOf("50")}},
			},
		},
	}, time.Now().UTC(), true, false)

	runner, _ := book.Runner(13536143, nil)
	if runner.AvailableToBack().Len() != 2 {
		t.Fatalf("expected a non-image delta to merge into the existing ladder, got %d levels", runner.AvailableToBack().Len())
	}
}

func TestMarketBookSubImageReplacesExistingLadder(t *testing.T) {
	marketID, _, book := newTestMarketBook()

	book.UpdateCache(bfstream.MarketChange{
		ID: marketID,
		RunnerChange: []bfstream.RunnerChange{
			{
				ID:              selectionID(13536143),
				AvailableToBack: []bfstream.UpdateSet2{{Price: priceOf("1.01"), Size: *sizeOf("200")}},
				AvailableToLay:  []bfstream.UpdateSet2{{Price: priceOf("1.05"), Size: *sizeOf("10")}},
			},
		},
	}, time.Now().UTC(), true, false)

	book.UpdateCache(bfstream.MarketChange{
		ID: marketID,
		RunnerChange: []bfstream.RunnerChange{
			{
				ID:              selectionID(13536143),
				AvailableToBack: []bfstream.UpdateSet2{{Price: priceOf("1.02"), Size: *sizeOf("50")}},
			},
		},
	}, time.Now().UTC(), true, true)

	runner, _ := book.Runner(13536143, nil)
	if runner.AvailableToBack().Len() != 1 {
		t.Fatalf("expected the image to replace available-to-back wholesale, got %d levels", runner.AvailableToBack().Len())
	}
	if got := runner.AvailableToBack().Entries()[0]; got.Price.Decimal.String() != "1.02" {
		t.Fatalf("expected the replaced level to be 1.02, got %v", got.Price)
	}
	if runner.AvailableToLay().Len() != 0 {
		t.Fatalf("expected available-to-lay, absent from the image, to end up empty, got %d levels", runner.AvailableToLay().Len())
	}
}

func TestMarketBookMarketLevelImageFlagReplacesLadder(t *testing.T) {
	marketID, _, book := newTestMarketBook()

	book.UpdateCache(bfstream.MarketChange{
		ID: marketID,
		RunnerChange: []bfstream.RunnerChange{
			{
				ID:              selectionID(13536143),
				AvailableToBack: []bfstream.UpdateSet2{{Price: priceOf("1.01"), Size: *sizeOf("200")}},
			},
		},
	}, time.Now().UTC(), true, false)

	book.UpdateCache(bfstream.MarketChange{
		ID:      marketID,
		IsImage: true,
		RunnerChange: []bfstream.RunnerChange{
			{
				ID:              selectionID(13536143),
				AvailableToBack: []bfstream.UpdateSet2{{Price: priceOf("1.03"), Size: *sizeOf("75")}},
			},
		},
	}, time.Now().UTC(), true, false)

	runner, _ := book.Runner(13536143, nil)
	if runner.AvailableToBack().Len() != 1 {
		t.Fatalf("expected a market change with img:true to replace the ladder even with isImage=false, got %d levels", runner.AvailableToBack().Len())
	}
}

func TestMarketBookUpdateMarketDefinition(t *testing.T) {
	_, _, book := newTestMarketBook()

	def := bfstream.MarketDefinition{
		BetDelay:              1,
		Version:               234,
		Complete:               true,
		RunnersVoidable:       false,
		Status:                bfstream.MarketOpen,
		BSPReconciled:         true,
		CrossMatching:         false,
		InPlay:                true,
		NumberOfWinners:       5,
		NumberOfActiveRunners: 6,
	}

	book.UpdateMarketDefinition(def)

	if book.MarketDefinition() == nil {
		t.Fatal("expected market definition to be set")
	}
	if book.MarketDefinition().Status != bfstream.MarketOpen {
		t.Fatalf("expected status OPEN, got %v", book.MarketDefinition().Status)
	}
	if book.MarketDefinition().Version != 234 {
		t.Fatalf("expected version 234, got %d", book.MarketDefinition().Version)
	}
}

func TestMarketBookUpdateRunnerCacheTV(t *testing.T) {
	marketID, _, book := newTestMarketBook()

	book.UpdateCache(bfstream.MarketChange{
		ID: marketID,
		RunnerChange: []bfstream.RunnerChange{
			{ID: selectionID(13536143), TotalValue: sizeOf("123.0")},
		},
	}, time.Now().UTC(), true, false)

	runner, _ := book.Runner(13536143, nil)
	if runner.TotalMatched() == nil || runner.TotalMatched().Decimal.Cmp(decimal.RequireFromString("123.0")) != 0 {
		t.Fatalf("expected runner total matched 123.0, got %v", runner.TotalMatched())
	}

	book.UpdateCache(bfstream.MarketChange{
		ID: marketID,
		RunnerChange: []bfstream.RunnerChange{
			{ID: selectionID(13536143), Traded: []bfstream.UpdateSet2{}},
		},
	}, time.Now().UTC(), true, false)

	runner, _ = book.Runner(13536143, nil)
	if runner.TotalMatched() == nil || !runner.TotalMatched().IsZero() {
		t.Fatalf("expected runner total matched reset to zero, got %v", runner.TotalMatched())
	}

	book.UpdateCache(bfstream.MarketChange{
		ID: marketID,
		RunnerChange: []bfstream.RunnerChange{
			{ID: selectionID(13536143), Traded: []bfstream.UpdateSet2{
				{Price: priceOf("12.0"), Size: *sizeOf("2.0")},
			}},
		},
	}, time.Now().UTC(), true, false)

	runner, _ = book.Runner(13536143, nil)
	if runner.TotalMatched() == nil || runner.TotalMatched().Decimal.Cmp(decimal.RequireFromString("2.0")) != 0 {
		t.Fatalf("expected runner total matched 2.0, got %v", runner.TotalMatched())
	}
}

func TestMarketBookUpdateMarketCacheTV(t *testing.T) {
	marketID, _, book := newTestMarketBook()

	book.UpdateCache(bfstream.MarketChange{
		ID: marketID,
		RunnerChange: []bfstream.RunnerChange{
			{ID: selectionID(13536143), TotalValue: sizeOf("123.0")},
		},
	}, time.Now().UTC(), true, false)

	if !book.TotalMatched().IsZero() {
		t.Fatalf("expected market total matched to stay zero until a trade lands, got %v", book.TotalMatched())
	}

	book.UpdateCache(bfstream.MarketChange{
		ID: marketID,
		RunnerChange: []bfstream.RunnerChange{
			{ID: selectionID(13536143), Traded: []bfstream.UpdateSet2{
				{Price: priceOf("12.0"), Size: *sizeOf("2.0")},
			}},
		},
	}, time.Now().UTC(), true, false)

	if book.TotalMatched().Decimal.Cmp(decimal.RequireFromString("2.0")) != 0 {
		t.Fatalf("expected market total matched 2.0, got %v", book.TotalMatched())
	}
}
