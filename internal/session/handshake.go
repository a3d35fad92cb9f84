// Package session drives the Exchange Stream handshake: the short
// sequence of messages exchanged right after the TLS socket opens, before
// any market or order subscription can be made.
package session

import (
	"fmt"

	"github.com/betfair-go/stream/internal/codec"
	"github.com/betfair-go/stream/internal/errs"
	"github.com/betfair-go/stream/pkg/bfstream"
)

// State is one step of the handshake state machine.
type State int

const (
	AwaitConnection State = iota
	SendAuth
	FlushAuth
	AwaitStatus
	Authenticated
	Failed
)

func (s State) String() string {
	switch s {
	case AwaitConnection:
		return "AwaitConnection"
	case SendAuth:
		return "SendAuth"
	case FlushAuth:
		return "FlushAuth"
	case AwaitStatus:
		return "AwaitStatus"
	case Authenticated:
		return "Authenticated"
	case Failed:
		return "Failed"
	default:
		return "Unknown"
	}
}

// Event reports what happened on a single Step call, matching whichever
// state was just left: Connection after AwaitConnection,
// AuthenticationSent after SendAuth, nothing after FlushAuth, and Status
// together with ConnectionID and ConnectionsAvailable after AwaitStatus.
type Event struct {
	Connection            *bfstream.ConnectionMessage
	AuthenticationSent    bool
	Status                *bfstream.StatusMessage
	ConnectionID          string
	ConnectionsAvailable  int
}

// Handshake runs the four-step connect/auth/status sequence described by
// SPEC_FULL §6: AwaitConnection → SendAuth → FlushAuth → AwaitStatus →
// Authenticated|Failed. Call Step repeatedly until State is terminal.
type Handshake struct {
	state        State
	dec          *codec.Decoder
	enc          *codec.Encoder
	sessionToken string
	appKey       string
}

// New constructs a Handshake ready to run over an already-connected
// (TLS-dialed) stream.
func New(dec *codec.Decoder, enc *codec.Encoder, sessionToken, appKey string) *Handshake {
	return &Handshake{state: AwaitConnection, dec: dec, enc: enc, sessionToken: sessionToken, appKey: appKey}
}

// State returns the current step.
func (h *Handshake) State() State { return h.state }

// Step advances the handshake by one transition.
func (h *Handshake) Step() (Event, error) {
	switch h.state {
	case AwaitConnection:
		return h.stepAwaitConnection()
	case SendAuth:
		return h.stepSendAuth()
	case FlushAuth:
		return h.stepFlushAuth()
	case AwaitStatus:
		return h.stepAwaitStatus()
	default:
		return Event{}, fmt.Errorf("session: Step called in terminal state %s", h.state)
	}
}

// Run drives the handshake to completion, returning the terminal event
// (the Authenticated metadata) or the first error encountered.
func (h *Handshake) Run() (Event, error) {
	var last Event
	for h.state != Authenticated && h.state != Failed {
		evt, err := h.Step()
		if err != nil {
			return Event{}, err
		}
		last = evt
	}
	if h.state == Failed {
		return Event{}, errs.Restart(errs.ErrHandshakeAuthFailed)
	}
	return last, nil
}

func (h *Handshake) stepAwaitConnection() (Event, error) {
	msg, err := h.dec.DecodeResponse()
	if err != nil {
		h.state = Failed
		return Event{}, errs.Restart(fmt.Errorf("session: await connection message: %w", err))
	}
	conn, ok := msg.(*bfstream.ConnectionMessage)
	if !ok {
		h.state = Failed
		return Event{}, errs.Restart(fmt.Errorf("%w: got %T, expected connection message", errs.ErrHandshakeUnexpectedMessage, msg))
	}
	h.state = SendAuth
	return Event{Connection: conn}, nil
}

func (h *Handshake) stepSendAuth() (Event, error) {
	auth := bfstream.NewAuthenticationMessage(-1, h.sessionToken, h.appKey)
	if err := h.enc.Encode(auth); err != nil {
		h.state = Failed
		return Event{}, errs.Restart(fmt.Errorf("session: send authentication message: %w", err))
	}
	h.state = FlushAuth
	return Event{AuthenticationSent: true}, nil
}

func (h *Handshake) stepFlushAuth() (Event, error) {
	if err := h.enc.Flush(); err != nil {
		h.state = Failed
		return Event{}, errs.Restart(fmt.Errorf("session: flush authentication message: %w", err))
	}
	h.state = AwaitStatus
	return Event{}, nil
}

func (h *Handshake) stepAwaitStatus() (Event, error) {
	msg, err := h.dec.DecodeResponse()
	if err != nil {
		h.state = Failed
		return Event{}, errs.Restart(fmt.Errorf("session: await status message: %w", err))
	}
	status, ok := msg.(*bfstream.StatusMessage)
	if !ok {
		h.state = Failed
		return Event{}, errs.Restart(fmt.Errorf("%w: got %T, expected status message", errs.ErrHandshakeUnexpectedMessage, msg))
	}
	if !status.Succeeded() {
		h.state = Failed
		return Event{}, errs.Restart(fmt.Errorf("%w: code=%v", errs.ErrHandshakeAuthFailed, status.ErrorCode))
	}

	connID := ""
	if status.ConnectionID != nil {
		connID = *status.ConnectionID
	}
	connsAvailable := -1
	if status.ConnectionsAvailable != nil {
		connsAvailable = *status.ConnectionsAvailable
	}

	h.state = Authenticated
	return Event{
		Status:               status,
		ConnectionID:         connID,
		ConnectionsAvailable: connsAvailable,
	}, nil
}
