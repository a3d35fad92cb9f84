package dashboard

import (
	"log/slog"
	"testing"
	"time"

	"github.com/betfair-go/stream/internal/stream"
)

func TestHubBroadcastSnapshotRecordsLatestForNewClients(t *testing.T) {
	hub := NewHub(slog.Default())

	if got := hub.currentSnapshot(); got != nil {
		t.Fatalf("expected no snapshot before any broadcast, got %v", got)
	}

	snap := Snapshot{Markets: []MarketSummary{{MarketID: "1.111", RunnerCount: 2}}}
	hub.BroadcastSnapshot(snap)

	got := hub.currentSnapshot()
	if got == nil {
		t.Fatal("expected a recorded snapshot after BroadcastSnapshot")
	}
	if len(got.Markets) != 1 || got.Markets[0].MarketID != "1.111" {
		t.Fatalf("expected recorded snapshot to match broadcast snapshot, got %+v", got)
	}
	if got.Timestamp.IsZero() {
		t.Fatal("expected BroadcastSnapshot to stamp a timestamp when one isn't set")
	}

	select {
	case evt := <-hub.broadcast:
		if evt.Type != "snapshot" {
			t.Fatalf("expected a snapshot event on the broadcast channel, got type %q", evt.Type)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for the snapshot to reach the broadcast channel")
	}
}

func TestHubBroadcastMetadataLabelsLifecycleEvents(t *testing.T) {
	hub := NewHub(slog.Default())

	hub.BroadcastMetadata(stream.Authenticated)

	select {
	case evt := <-hub.broadcast:
		if evt.Type != "metadata" {
			t.Fatalf("expected a metadata event, got type %q", evt.Type)
		}
		if evt.Data != "authenticated" {
			t.Fatalf("expected metadata label %q, got %v", "authenticated", evt.Data)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for the metadata event to reach the broadcast channel")
	}
}
