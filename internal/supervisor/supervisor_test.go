package supervisor_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/betfair-go/stream/internal/errs"
	"github.com/betfair-go/stream/internal/supervisor"
	"github.com/betfair-go/stream/internal/testutil"
	"github.com/betfair-go/stream/internal/transport"
	"github.com/betfair-go/stream/pkg/bfstream"
)

type staticProvider struct{ token string }

func (p staticProvider) Authenticate(ctx context.Context) (string, error) {
	return p.token, nil
}

func TestSupervisorConnectsAuthenticatesAndHeartbeats(t *testing.T) {
	server, err := testutil.NewMockServer()
	if err != nil {
		t.Fatalf("new mock server: %v", err)
	}
	defer server.Close()

	rootCAs, err := server.RootCAs()
	if err != nil {
		t.Fatalf("root CAs: %v", err)
	}

	serverDone := make(chan error, 1)
	go func() {
		conn, err := server.Accept()
		if err != nil {
			serverDone <- err
			return
		}
		defer conn.Close()

		if err := conn.ServeHandshake(true); err != nil {
			serverDone <- err
			return
		}

		var hb struct {
			Operation string `json:"op"`
			ID        *int   `json:"id"`
		}
		if err := conn.ReadFrame(&hb); err != nil {
			serverDone <- err
			return
		}
		if hb.Operation != "heartbeat" {
			serverDone <- errors.New("expected heartbeat request, got " + hb.Operation)
			return
		}
		serverDone <- nil
	}()

	commands := make(chan any, 8)
	cfg := supervisor.Config{
		StreamAddr:        server.Addr,
		AppKey:            "app-key-fake",
		TLS:               transport.Options{RootCAs: rootCAs, ServerName: "localhost"},
		HeartbeatInterval: 20 * time.Millisecond,
	}
	sv := supervisor.New(cfg, staticProvider{token: "session-token-fake"}, commands)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	runDone := make(chan error, 1)
	go func() { runDone <- sv.Run(ctx) }()

	var gotConnection, gotStatus bool
	for !gotConnection || !gotStatus {
		select {
		case msg := <-sv.Responses():
			switch msg.(type) {
			case *bfstream.ConnectionMessage:
				gotConnection = true
			case *bfstream.StatusMessage:
				gotStatus = true
			}
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for handshake responses")
		}
	}

	wantEvents := []supervisor.Event{supervisor.EventTCPConnected, supervisor.EventAuthenticated}
	for _, want := range wantEvents {
		select {
		case got := <-sv.Events():
			if got != want {
				t.Fatalf("expected event %v, got %v", want, got)
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for event %v", want)
		}
	}

	if err := <-serverDone; err != nil {
		t.Fatalf("mock server: %v", err)
	}

	cancel()
	if err := <-runDone; !errors.Is(err, context.Canceled) {
		t.Fatalf("expected Run to return context.Canceled, got %v", err)
	}
}

func TestSupervisorFailedAuthenticationEmitsEvent(t *testing.T) {
	server, err := testutil.NewMockServer()
	if err != nil {
		t.Fatalf("new mock server: %v", err)
	}
	defer server.Close()

	rootCAs, err := server.RootCAs()
	if err != nil {
		t.Fatalf("root CAs: %v", err)
	}

	go func() {
		conn, err := server.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		_ = conn.ServeHandshake(false)
	}()

	commands := make(chan any, 8)
	cfg := supervisor.Config{
		StreamAddr: server.Addr,
		AppKey:     "app-key-fake",
		TLS:        transport.Options{RootCAs: rootCAs, ServerName: "localhost"},
	}
	sv := supervisor.New(cfg, staticProvider{token: "session-token-fake"}, commands)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	runDone := make(chan error, 1)
	go func() { runDone <- sv.Run(ctx) }()

	select {
	case got := <-sv.Events():
		if got != supervisor.EventTCPConnected {
			t.Fatalf("expected EventTCPConnected first, got %v", got)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for EventTCPConnected")
	}

	select {
	case got := <-sv.Events():
		if got != supervisor.EventFailedToAuthenticate {
			t.Fatalf("expected EventFailedToAuthenticate, got %v", got)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for EventFailedToAuthenticate")
	}

	cancel()
	<-runDone
}

func TestSupervisorExceedsRetryBudgetReturnsFatal(t *testing.T) {
	commands := make(chan any, 8)
	cfg := supervisor.Config{
		StreamAddr:             "127.0.0.1:1", // nothing listens here; dial is refused immediately
		AppKey:                 "app-key-fake",
		TLS:                    transport.Options{ServerName: "localhost"},
		MaxConsecutiveFailures: 2,
	}
	sv := supervisor.New(cfg, staticProvider{token: "session-token-fake"}, commands)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	err := sv.Run(ctx)
	if !errs.IsFatal(err) {
		t.Fatalf("expected a fatal error once the retry budget is exceeded, got %v", err)
	}
}
