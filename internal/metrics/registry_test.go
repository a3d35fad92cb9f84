package metrics

import "testing"

func TestObserveEventUpdatesConnectionState(t *testing.T) {
	r := NewRegistry()

	r.ObserveEvent(0) // tcp connected
	if v := testutilGaugeValue(t, r.ConnectionState); v != 1 {
		t.Fatalf("expected state 1 after tcp connect, got %v", v)
	}

	r.ObserveEvent(1) // authenticated
	if v := testutilGaugeValue(t, r.ConnectionState); v != 2 {
		t.Fatalf("expected state 2 after authenticate, got %v", v)
	}

	r.ObserveEvent(4) // disconnected
	if v := testutilGaugeValue(t, r.ConnectionState); v != 0 {
		t.Fatalf("expected state 0 after disconnect, got %v", v)
	}
}

func TestObserveEventCountsFailures(t *testing.T) {
	r := NewRegistry()
	r.ObserveEvent(3) // failed to authenticate
	r.ObserveEvent(3)

	if v := testutilCounterValue(t, r.AuthFailures); v != 2 {
		t.Fatalf("expected 2 auth failures, got %v", v)
	}
}
