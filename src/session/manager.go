package session

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/ava-voice/ava-agent/src/adapters"
	"github.com/ava-voice/ava-agent/src/audio"
	"github.com/ava-voice/ava-agent/src/logger"
	"github.com/ava-voice/ava-agent/src/pipeline"
	"github.com/ava-voice/ava-agent/src/telephony"
)

const defaultApology = "I'm sorry, I'm having trouble right now. Could you say that again?"

// AudioSink delivers synthesized audio to a call's media leg
type AudioSink interface {
	SendAudio(channelID string, data []byte, encoding string) error
}

// CallRecorder persists call lifecycle records. A nil recorder
// disables persistence.
type CallRecorder interface {
	CreateCall(ctx context.Context, callID, channelID, pipelineName string) error
	UpdateCallStatus(ctx context.Context, callID, status string) error
}

// ContextProfile is the per-dialplan-context behavior a call starts
// with: which pipeline to run and, for broadcast contexts, what to say.
type ContextProfile struct {
	Pipeline           string
	SystemPrompt       string
	Greeting           string
	TTSOnlyText        string
	AutoHangupAfterTTS bool
	Vars               map[string]string
}

// Manager creates, drives, and finishes call sessions. Turns on one
// call serialize on the session's turn lock; different calls proceed
// independently.
type Manager struct {
	orchestrator *pipeline.Orchestrator
	ari          telephony.AriClient
	sink         AudioSink
	recorder     CallRecorder
	apology      string
	log          *logger.Logger

	mu        sync.RWMutex
	sessions  map[string]*CallSession
	byChannel map[string]string
}

// NewManager creates a session manager. sink and recorder may be nil
// in tests.
func NewManager(orch *pipeline.Orchestrator, ari telephony.AriClient, sink AudioSink, recorder CallRecorder) *Manager {
	return &Manager{
		orchestrator: orch,
		ari:          ari,
		sink:         sink,
		recorder:     recorder,
		apology:      defaultApology,
		log:          logger.WithPrefix("[Session]"),
		sessions:     make(map[string]*CallSession),
		byChannel:    make(map[string]string),
	}
}

// SetApology overrides the degraded-mode reply
func (m *Manager) SetApology(text string) {
	if text != "" {
		m.apology = text
	}
}

// StartCall resolves the profile's pipeline, opens every adapter for
// the call, and activates the session. Broadcast profiles speak their
// rendered text immediately.
func (m *Manager) StartCall(ctx context.Context, channelID string, profile ContextProfile, runtime map[string]adapters.Options) (*CallSession, error) {
	callID := uuid.NewString()

	res, err := m.orchestrator.Resolve(callID, profile.Pipeline, runtime)
	if err != nil {
		return nil, err
	}

	sess := NewCallSession(ctx, callID, channelID, res, profile.SystemPrompt)
	for name, value := range profile.Vars {
		sess.SetVar(name, value)
	}

	if err := m.openAdapters(sess); err != nil {
		sess.Finish()
		return nil, err
	}

	if err := sess.Transition(StateActive); err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.sessions[callID] = sess
	m.byChannel[channelID] = callID
	m.mu.Unlock()

	if m.recorder != nil {
		if err := m.recorder.CreateCall(ctx, callID, channelID, profile.Pipeline); err != nil {
			m.log.Warn("call record failed call=%s: %v", callID, err)
		}
	}
	m.log.Info("call started call=%s channel=%s pipeline=%s", callID, channelID, profile.Pipeline)

	if res.IsTTSOnly {
		go m.runBroadcast(sess, profile)
	} else if profile.Greeting != "" {
		go func() {
			sess.LockTurn()
			defer sess.UnlockTurn()
			if err := m.speak(sess, RenderTemplate(profile.Greeting, sess.VarsCopy())); err != nil {
				m.log.Warn("greeting failed call=%s: %v", callID, err)
			}
		}()
	}

	return sess, nil
}

// openAdapters opens every role for the call, closing the ones already
// opened when a later one fails
func (m *Manager) openAdapters(sess *CallSession) error {
	res := sess.Resolution
	var opened []adapters.Adapter
	closeOpened := func() {
		for _, a := range opened {
			if err := a.CloseCall(sess.Context(), sess.ID); err != nil {
				m.log.Warn("rollback close failed call=%s: %v", sess.ID, err)
			}
		}
	}

	if err := res.STT.OpenCall(sess.Context(), sess.ID, res.STTOptions); err != nil {
		return fmt.Errorf("open stt: %w", err)
	}
	opened = append(opened, res.STT)

	if err := res.LLM.OpenCall(sess.Context(), sess.ID, res.LLMOptions); err != nil {
		closeOpened()
		return fmt.Errorf("open llm: %w", err)
	}
	opened = append(opened, res.LLM)

	if res.TTS != nil {
		if err := res.TTS.OpenCall(sess.Context(), sess.ID, res.TTSOptions); err != nil {
			closeOpened()
			return fmt.Errorf("open tts: %w", err)
		}
	}
	return nil
}

// Session looks a session up by call ID
func (m *Manager) Session(callID string) *CallSession {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.sessions[callID]
}

// SessionByChannel looks a session up by Asterisk channel ID
func (m *Manager) SessionByChannel(channelID string) *CallSession {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if callID, ok := m.byChannel[channelID]; ok {
		return m.sessions[callID]
	}
	return nil
}

// ProcessTurn runs one conversation turn: transcribe, generate, speak.
// Empty or unrecognized audio ends the turn silently. A provider
// failure degrades to the apology line instead of killing the call.
func (m *Manager) ProcessTurn(ctx context.Context, callID string, pcm16 []byte, sampleRate int) error {
	sess := m.Session(callID)
	if sess == nil {
		return fmt.Errorf("no session for call %s", callID)
	}

	sess.LockTurn()
	defer sess.UnlockTurn()

	if sess.State() != StateActive {
		m.log.Debug("turn dropped call=%s state=%s", callID, sess.State())
		return nil
	}

	res := sess.Resolution
	transcript, err := res.STT.Transcribe(sess.Context(), callID, pcm16, sampleRate, res.STTOptions)
	if err != nil {
		m.log.Error("stt failed call=%s: %v", callID, err)
		return m.speak(sess, m.apology)
	}
	if transcript == "" {
		return nil
	}
	m.log.Info("user call=%s: %s", callID, transcript)

	reply, err := res.LLM.Generate(sess.Context(), callID, transcript, sess.Conversation, res.LLMOptions)
	if err != nil {
		m.log.Error("llm failed call=%s: %v", callID, err)
		return m.speak(sess, m.apology)
	}
	if reply == "" {
		return nil
	}
	m.log.Info("assistant call=%s: %s", callID, reply)

	return m.speak(sess, reply)
}

// Speak synthesizes text on a call outside the normal turn flow, for
// tool farewells and operator announcements
func (m *Manager) Speak(callID, text string) error {
	sess := m.Session(callID)
	if sess == nil {
		return fmt.Errorf("no session for call %s", callID)
	}
	return m.speak(sess, text)
}

func (m *Manager) speak(sess *CallSession, text string) error {
	res := sess.Resolution
	if res.TTS == nil || text == "" {
		return nil
	}

	chunks, err := res.TTS.Synthesize(sess.Context(), sess.ID, text, res.TTSOptions)
	if err != nil {
		m.log.Error("tts failed call=%s: %v", sess.ID, err)
		return err
	}

	encoding := res.TTSOptions.String("target_encoding", audio.EncodingMulaw)
	sent := 0
	for chunk := range chunks {
		if m.sink == nil {
			continue
		}
		if err := m.sink.SendAudio(sess.ChannelID, chunk, encoding); err != nil {
			m.log.Warn("audio send failed call=%s: %v", sess.ID, err)
			// Drain the channel so the producer can finish
			for range chunks {
			}
			return err
		}
		sent++
	}
	m.log.Debug("spoke call=%s chunks=%d chars=%d", sess.ID, sent, len(text))
	return nil
}

// runBroadcast speaks a tts_only profile's rendered text and optionally
// hangs up afterwards
func (m *Manager) runBroadcast(sess *CallSession, profile ContextProfile) {
	sess.LockTurn()
	defer sess.UnlockTurn()

	text := RenderTemplate(profile.TTSOnlyText, sess.VarsCopy())
	if err := m.speak(sess, text); err != nil {
		m.log.Error("broadcast failed call=%s: %v", sess.ID, err)
	}

	if profile.AutoHangupAfterTTS {
		if err := sess.Transition(StateEnding); err == nil {
			if err := m.ari.Hangup(context.Background(), sess.ChannelID); err != nil {
				m.log.Warn("hangup failed call=%s: %v", sess.ID, err)
			}
		}
	}
}

// RequestTransfer marks the session transferring and continues the
// channel into the dialplan. The transfer flag is committed before the
// continue request goes out: the call-end notification that follows a
// successful continue can arrive before the REST response does, and it
// must see the flag.
func (m *Manager) RequestTransfer(ctx context.Context, callID, dialplanContext, extension string, priority int) (bool, error) {
	sess := m.Session(callID)
	if sess == nil {
		return false, fmt.Errorf("no session for call %s", callID)
	}

	target := fmt.Sprintf("%s,%s,%d", dialplanContext, extension, priority)
	if err := sess.MarkTransferring(target); err != nil {
		return false, err
	}

	ok, err := m.ari.ContinueInDialplan(ctx, sess.ChannelID, dialplanContext, extension, priority)
	if err != nil || !ok {
		sess.ClearTransfer()
		m.log.Error("transfer failed call=%s target=%s: %v", callID, target, err)
		return false, err
	}

	sess.MarkTransferIssued()
	m.log.Info("transfer issued call=%s target=%s", callID, target)
	return true, nil
}

// HandleCallEnd finalizes a session when Asterisk reports the channel
// gone. A transfer in flight resolves to EXITED, anything else to
// ENDED. Adapter close failures are isolated per adapter.
func (m *Manager) HandleCallEnd(ctx context.Context, callID string) {
	sess := m.Session(callID)
	if sess == nil {
		return
	}

	final := sess.Finish()
	m.log.Info("call finished call=%s state=%s", callID, final)

	res := sess.Resolution
	closers := []struct {
		name    string
		adapter adapters.Adapter
	}{
		{"stt", res.STT},
		{"llm", res.LLM},
	}
	if res.TTS != nil {
		closers = append(closers, struct {
			name    string
			adapter adapters.Adapter
		}{"tts", res.TTS})
	}
	for _, c := range closers {
		if err := c.adapter.CloseCall(ctx, callID); err != nil {
			m.log.Warn("close %s failed call=%s: %v", c.name, callID, err)
		}
	}

	if m.recorder != nil {
		if err := m.recorder.UpdateCallStatus(ctx, callID, string(final)); err != nil {
			m.log.Warn("status record failed call=%s: %v", callID, err)
		}
	}

	m.mu.Lock()
	delete(m.sessions, callID)
	delete(m.byChannel, sess.ChannelID)
	m.mu.Unlock()
}

// HandleChannelEnd finalizes the session owning a channel
func (m *Manager) HandleChannelEnd(ctx context.Context, channelID string) {
	if sess := m.SessionByChannel(channelID); sess != nil {
		m.HandleCallEnd(ctx, sess.ID)
	}
}

// ActiveCalls returns the IDs of sessions not yet finished
func (m *Manager) ActiveCalls() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := make([]string, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	return ids
}

// RenderTemplate substitutes {name} placeholders from vars. Unknown
// placeholders are left intact so misconfigured text is visible in
// logs rather than silently blanked.
func RenderTemplate(text string, vars map[string]string) string {
	if text == "" || len(vars) == 0 {
		return text
	}
	pairs := make([]string, 0, len(vars)*2)
	for name, value := range vars {
		pairs = append(pairs, "{"+name+"}", value)
	}
	return strings.NewReplacer(pairs...).Replace(text)
}
