// Package session owns the per-call state machine and the manager that
// drives conversation turns through the resolved pipeline.
package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ava-voice/ava-agent/src/adapters"
	"github.com/ava-voice/ava-agent/src/pipeline"
)

// State is a call session lifecycle state
type State string

const (
	StateInitiating   State = "INITIATING"
	StateActive       State = "ACTIVE"
	StateTransferring State = "TRANSFERRING"
	StateExited       State = "EXITED"
	StateEnding       State = "ENDING"
	StateEnded        State = "ENDED"
)

// validTransitions lists the allowed state moves. Terminal states have
// no outgoing edges.
var validTransitions = map[State][]State{
	StateInitiating:   {StateActive, StateEnding, StateEnded},
	StateActive:       {StateTransferring, StateEnding, StateEnded},
	StateTransferring: {StateExited, StateEnded},
	StateEnding:       {StateEnded},
}

// CallSession holds everything the runtime knows about one live call.
// State mutation serializes on the session mutex. The separate turn
// mutex is held for an entire conversation turn so operations on one
// call never interleave while calls stay independent of each other.
type CallSession struct {
	ID           string
	ChannelID    string
	PipelineName string
	StartedAt    time.Time

	turnMu sync.Mutex

	mu    sync.Mutex
	state State

	// Transfer bookkeeping. TransferActive must be set before the
	// dialplan continue is issued: the call-end event that follows a
	// successful transfer races the REST response, and the flag is what
	// distinguishes a clean exit from a caller hangup.
	transferActive bool
	transferState  string
	transferTarget string

	Resolution   *pipeline.Resolution
	Conversation *adapters.Conversation
	Vars         map[string]string

	ctx    context.Context
	cancel context.CancelFunc
}

// NewCallSession creates a session in INITIATING with its own context,
// canceled when the call finishes
func NewCallSession(parent context.Context, callID, channelID string, res *pipeline.Resolution, systemPrompt string) *CallSession {
	ctx, cancel := context.WithCancel(parent)
	return &CallSession{
		ID:           callID,
		ChannelID:    channelID,
		PipelineName: res.PipelineName,
		StartedAt:    time.Now(),
		state:        StateInitiating,
		Resolution:   res,
		Conversation: adapters.NewConversation(systemPrompt),
		Vars:         make(map[string]string),
		ctx:          ctx,
		cancel:       cancel,
	}
}

// Context returns the session-scoped context
func (s *CallSession) Context() context.Context { return s.ctx }

// LockTurn serializes conversation turns for this call
func (s *CallSession) LockTurn() { s.turnMu.Lock() }

// UnlockTurn releases the turn lock
func (s *CallSession) UnlockTurn() { s.turnMu.Unlock() }

// State returns the current lifecycle state
func (s *CallSession) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Transition moves the session to next if the edge is allowed
func (s *CallSession) Transition(next State) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.transitionLocked(next)
}

func (s *CallSession) transitionLocked(next State) error {
	for _, allowed := range validTransitions[s.state] {
		if allowed == next {
			s.state = next
			return nil
		}
	}
	return fmt.Errorf("invalid transition %s -> %s for call %s", s.state, next, s.ID)
}

// MarkTransferring sets the transfer flag and enters TRANSFERRING in
// one step, before any dialplan continue is attempted
func (s *CallSession) MarkTransferring(target string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.transitionLocked(StateTransferring); err != nil {
		return err
	}
	s.transferActive = true
	s.transferState = "requested"
	s.transferTarget = target
	return nil
}

// ClearTransfer reverts a failed transfer attempt back to ACTIVE
func (s *CallSession) ClearTransfer() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.transferActive = false
	s.transferState = ""
	s.transferTarget = ""
	if s.state == StateTransferring {
		s.state = StateActive
	}
}

// MarkTransferIssued records that the dialplan continue was accepted
func (s *CallSession) MarkTransferIssued() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.transferActive {
		s.transferState = "issued"
	}
}

// TransferState returns the progress of an in-flight transfer
func (s *CallSession) TransferState() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.transferState
}

// TransferActive reports whether a transfer is in flight
func (s *CallSession) TransferActive() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.transferActive
}

// TransferTarget returns the dialplan location a transfer is headed to
func (s *CallSession) TransferTarget() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.transferTarget
}

// Finish resolves the terminal state for a call-end notification: a
// session with a transfer in flight exited cleanly, everything else
// ended. The session context is canceled either way.
func (s *CallSession) Finish() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch {
	case s.state == StateExited || s.state == StateEnded:
		// already terminal
	case s.transferActive:
		s.state = StateExited
	default:
		s.state = StateEnded
	}
	s.cancel()
	return s.state
}

// Terminal reports whether the session has reached a final state
func (s *CallSession) Terminal() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state == StateExited || s.state == StateEnded
}

// SetVar stores a call-scoped variable used for template rendering
func (s *CallSession) SetVar(name, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Vars[name] = value
}

// Var reads a call-scoped variable
func (s *CallSession) Var(name string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.Vars[name]
	return v, ok
}

// VarsCopy returns a snapshot of the call-scoped variables
func (s *CallSession) VarsCopy() map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]string, len(s.Vars))
	for k, v := range s.Vars {
		out[k] = v
	}
	return out
}
