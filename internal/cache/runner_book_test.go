package cache

import (
	"testing"

	"github.com/betfair-go/stream/pkg/bfstream"
	"github.com/shopspring/decimal"
)

func TestRunnerBookUpdateTraded(t *testing.T) {
	id := bfstream.SelectionID(13536143)
	runner, err := NewRunnerBookFromChange(bfstream.RunnerChange{ID: &id})
	if err != nil {
		t.Fatalf("new runner book: %v", err)
	}

	runner.UpdateTraded([]bfstream.UpdateSet2{
		{Price: priceOf("12.0"), Size: *sizeOf("2.0")},
		{Price: priceOf("13.0"), Size: *sizeOf("3.5")},
	})

	if runner.TotalMatched() == nil || runner.TotalMatched().Decimal.Cmp(decimal.RequireFromString("5.5")) != 0 {
		t.Fatalf("expected total matched 5.5, got %v", runner.TotalMatched())
	}
	if runner.Traded().Len() != 2 {
		t.Fatalf("expected 2 traded levels, got %d", runner.Traded().Len())
	}

	runner.UpdateTraded([]bfstream.UpdateSet2{})

	if runner.TotalMatched() == nil || !runner.TotalMatched().IsZero() {
		t.Fatalf("expected total matched reset to zero, got %v", runner.TotalMatched())
	}
	if runner.Traded().Len() != 0 {
		t.Fatalf("expected traded ladder cleared, got %d levels", runner.Traded().Len())
	}
}

func TestRunnerBookFromChangeRequiresID(t *testing.T) {
	if _, err := NewRunnerBookFromChange(bfstream.RunnerChange{}); err == nil {
		t.Fatal("expected error for missing selection id")
	}
}

func TestRunnerBookFromDefinitionRequiresID(t *testing.T) {
	if _, err := NewRunnerBookFromDefinition(bfstream.RunnerDefinition{}); err == nil {
		t.Fatal("expected error for missing selection id")
	}
}

func TestRunnerBookSetDefinition(t *testing.T) {
	id := bfstream.SelectionID(1)
	runner, err := NewRunnerBookFromDefinition(bfstream.RunnerDefinition{ID: &id})
	if err != nil {
		t.Fatalf("new runner book: %v", err)
	}
	if runner.Definition() == nil {
		t.Fatal("expected definition to be set")
	}

	runner.SetDefinition(bfstream.RunnerDefinition{ID: &id, SortPriority: 7})
	if runner.Definition().SortPriority != 7 {
		t.Fatalf("expected sort priority 7, got %d", runner.Definition().SortPriority)
	}
}
