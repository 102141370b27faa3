package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ava-voice/ava-agent/src/adapters"
	"github.com/ava-voice/ava-agent/src/pipeline"
)

type fakeSTT struct {
	transcript string
	err        error
	calls      int
}

func (f *fakeSTT) Key() string { return "fake_stt" }
func (f *fakeSTT) Start(ctx context.Context) error { return nil }
func (f *fakeSTT) Stop() error { return nil }
func (f *fakeSTT) CloseCall(ctx context.Context, callID string) error { return nil }
func (f *fakeSTT) OpenCall(ctx context.Context, callID string, opts adapters.Options) error {
	return nil
}
func (f *fakeSTT) ValidateConnectivity(ctx context.Context, opts adapters.Options) adapters.ConnectivityStatus {
	return adapters.ConnectivityStatus{OK: true}
}
func (f *fakeSTT) Transcribe(ctx context.Context, callID string, pcm16 []byte, sampleRate int, opts adapters.Options) (string, error) {
	f.calls++
	if len(pcm16) == 0 {
		return "", nil
	}
	return f.transcript, f.err
}

type fakeLLM struct {
	reply string
	err   error
	calls int
}

func (f *fakeLLM) Key() string { return "fake_llm" }
func (f *fakeLLM) Start(ctx context.Context) error { return nil }
func (f *fakeLLM) Stop() error { return nil }
func (f *fakeLLM) CloseCall(ctx context.Context, callID string) error { return nil }
func (f *fakeLLM) OpenCall(ctx context.Context, callID string, opts adapters.Options) error {
	return nil
}
func (f *fakeLLM) ValidateConnectivity(ctx context.Context, opts adapters.Options) adapters.ConnectivityStatus {
	return adapters.ConnectivityStatus{OK: true}
}
func (f *fakeLLM) Generate(ctx context.Context, callID, input string, conv *adapters.Conversation, opts adapters.Options) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	conv.AddUserMessage(input)
	conv.AddAssistantMessage(f.reply)
	return f.reply, nil
}

type fakeTTS struct {
	mu     sync.Mutex
	spoken []string
	err    error
}

func (f *fakeTTS) Key() string { return "fake_tts" }
func (f *fakeTTS) Start(ctx context.Context) error { return nil }
func (f *fakeTTS) Stop() error { return nil }
func (f *fakeTTS) CloseCall(ctx context.Context, callID string) error { return nil }
func (f *fakeTTS) OpenCall(ctx context.Context, callID string, opts adapters.Options) error {
	return nil
}
func (f *fakeTTS) ValidateConnectivity(ctx context.Context, opts adapters.Options) adapters.ConnectivityStatus {
	return adapters.ConnectivityStatus{OK: true}
}
func (f *fakeTTS) Synthesize(ctx context.Context, callID, text string, opts adapters.Options) (<-chan []byte, error) {
	ch := make(chan []byte, 1)
	if f.err != nil {
		close(ch)
		return ch, f.err
	}
	f.mu.Lock()
	f.spoken = append(f.spoken, text)
	f.mu.Unlock()
	ch <- []byte(text)
	close(ch)
	return ch, nil
}

func (f *fakeTTS) Spoken() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.spoken...)
}

type fakeAri struct {
	mu          sync.Mutex
	continued   bool
	continueErr error
	hungUp      chan string
}

func newFakeAri() *fakeAri {
	return &fakeAri{hungUp: make(chan string, 4)}
}

func (f *fakeAri) ContinueInDialplan(ctx context.Context, channelID, dialplanContext, extension string, priority int) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.continueErr != nil {
		return false, f.continueErr
	}
	f.continued = true
	return true, nil
}
func (f *fakeAri) SetChannelVar(ctx context.Context, channelID, name, value string) error { return nil }
func (f *fakeAri) Hangup(ctx context.Context, channelID string) error {
	f.hungUp <- channelID
	return nil
}
func (f *fakeAri) Answer(ctx context.Context, channelID string) error { return nil }
func (f *fakeAri) PlayAudio(ctx context.Context, channelID, mediaURI string) error { return nil }

type fakeSink struct {
	mu     sync.Mutex
	frames [][]byte
}

func (f *fakeSink) SendAudio(channelID string, data []byte, encoding string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.frames = append(f.frames, data)
	return nil
}

type harness struct {
	manager *Manager
	stt     *fakeSTT
	llm     *fakeLLM
	tts     *fakeTTS
	ari     *fakeAri
	sink    *fakeSink
}

func newHarness(t *testing.T, pipelines map[string]pipeline.Entry) *harness {
	t.Helper()

	h := &harness{
		stt:  &fakeSTT{transcript: "hello"},
		llm:  &fakeLLM{reply: "hi there"},
		tts:  &fakeTTS{},
		ari:  newFakeAri(),
		sink: &fakeSink{},
	}

	reg := pipeline.NewRegistry()
	reg.RegisterSTT(h.stt, nil)
	reg.RegisterLLM(h.llm, nil)
	reg.RegisterTTS(h.tts, nil)

	orch, err := pipeline.NewOrchestrator(reg, pipelines)
	require.NoError(t, err)

	h.manager = NewManager(orch, h.ari, h.sink, nil)
	return h
}

func standardPipelines() map[string]pipeline.Entry {
	return map[string]pipeline.Entry{
		"default": {STT: "fake_stt", LLM: "fake_llm", TTS: "fake_tts"},
	}
}

func TestProcessTurnSpeaksReply(t *testing.T) {
	h := newHarness(t, standardPipelines())

	sess, err := h.manager.StartCall(context.Background(), "chan-1", ContextProfile{Pipeline: "default"}, nil)
	require.NoError(t, err)
	assert.Equal(t, StateActive, sess.State())

	require.NoError(t, h.manager.ProcessTurn(context.Background(), sess.ID, []byte("audio"), 8000))
	assert.Equal(t, []string{"hi there"}, h.tts.Spoken())
	require.Len(t, sess.Conversation.Messages, 2)
}

func TestProcessTurnEmptyAudioShortCircuits(t *testing.T) {
	h := newHarness(t, standardPipelines())

	sess, err := h.manager.StartCall(context.Background(), "chan-1", ContextProfile{Pipeline: "default"}, nil)
	require.NoError(t, err)

	require.NoError(t, h.manager.ProcessTurn(context.Background(), sess.ID, nil, 8000))
	assert.Equal(t, 0, h.llm.calls)
	assert.Empty(t, h.tts.Spoken())
}

func TestProcessTurnLLMFailureDegradesToApology(t *testing.T) {
	h := newHarness(t, standardPipelines())
	h.llm.err = errors.New("provider down")

	sess, err := h.manager.StartCall(context.Background(), "chan-1", ContextProfile{Pipeline: "default"}, nil)
	require.NoError(t, err)

	require.NoError(t, h.manager.ProcessTurn(context.Background(), sess.ID, []byte("audio"), 8000))
	require.Len(t, h.tts.Spoken(), 1)
	assert.Contains(t, h.tts.Spoken()[0], "sorry")
	// The call survives the failure
	assert.Equal(t, StateActive, sess.State())
}

func TestProcessTurnSTTFailureDegradesToApology(t *testing.T) {
	h := newHarness(t, standardPipelines())
	h.stt.err = errors.New("provider down")

	sess, err := h.manager.StartCall(context.Background(), "chan-1", ContextProfile{Pipeline: "default"}, nil)
	require.NoError(t, err)

	require.NoError(t, h.manager.ProcessTurn(context.Background(), sess.ID, []byte("audio"), 8000))
	assert.Equal(t, 0, h.llm.calls)
	require.Len(t, h.tts.Spoken(), 1)
	assert.Contains(t, h.tts.Spoken()[0], "sorry")
}

func TestTransferThenEndIsCleanExit(t *testing.T) {
	h := newHarness(t, standardPipelines())

	sess, err := h.manager.StartCall(context.Background(), "chan-1", ContextProfile{Pipeline: "default"}, nil)
	require.NoError(t, err)

	ok, err := h.manager.RequestTransfer(context.Background(), sess.ID, "internal", "100", 1)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, h.ari.continued)
	assert.Equal(t, StateTransferring, sess.State())
	assert.True(t, sess.TransferActive())
	assert.Equal(t, "issued", sess.TransferState())
	assert.Equal(t, "internal,100,1", sess.TransferTarget())

	// The end notification that follows a successful continue
	h.manager.HandleCallEnd(context.Background(), sess.ID)
	assert.Equal(t, StateExited, sess.State())
	assert.Nil(t, h.manager.Session(sess.ID))
}

func TestPlainEndIsEnded(t *testing.T) {
	h := newHarness(t, standardPipelines())

	sess, err := h.manager.StartCall(context.Background(), "chan-1", ContextProfile{Pipeline: "default"}, nil)
	require.NoError(t, err)

	h.manager.HandleCallEnd(context.Background(), sess.ID)
	assert.Equal(t, StateEnded, sess.State())

	// The session context is canceled with the call
	select {
	case <-sess.Context().Done():
	default:
		t.Fatal("session context still live after call end")
	}
}

func TestFailedTransferRevertsToActive(t *testing.T) {
	h := newHarness(t, standardPipelines())
	h.ari.continueErr = errors.New("asterisk unreachable")

	sess, err := h.manager.StartCall(context.Background(), "chan-1", ContextProfile{Pipeline: "default"}, nil)
	require.NoError(t, err)

	ok, err := h.manager.RequestTransfer(context.Background(), sess.ID, "internal", "100", 1)
	assert.False(t, ok)
	require.Error(t, err)
	assert.Equal(t, StateActive, sess.State())
	assert.False(t, sess.TransferActive())

	// A later end without a transfer in flight is a normal hangup
	h.manager.HandleCallEnd(context.Background(), sess.ID)
	assert.Equal(t, StateEnded, sess.State())
}

func TestTTSOnlyBroadcastRendersAndHangsUp(t *testing.T) {
	h := newHarness(t, map[string]pipeline.Entry{
		"announce": {Type: pipeline.TypeTTSOnly, TTS: "fake_tts"},
	})

	profile := ContextProfile{
		Pipeline:           "announce",
		TTSOnlyText:        "Hello {name}, your order {order} is ready.",
		AutoHangupAfterTTS: true,
		Vars:               map[string]string{"name": "Ada", "order": "42"},
	}
	sess, err := h.manager.StartCall(context.Background(), "chan-1", profile, nil)
	require.NoError(t, err)

	select {
	case channelID := <-h.ari.hungUp:
		assert.Equal(t, "chan-1", channelID)
	case <-time.After(2 * time.Second):
		t.Fatal("auto hangup never happened")
	}

	require.Len(t, h.tts.Spoken(), 1)
	assert.Equal(t, "Hello Ada, your order 42 is ready.", h.tts.Spoken()[0])
	assert.Equal(t, StateEnding, sess.State())

	h.manager.HandleChannelEnd(context.Background(), "chan-1")
	assert.Equal(t, StateEnded, sess.State())
}

func TestTurnsDroppedAfterCallEnds(t *testing.T) {
	h := newHarness(t, standardPipelines())

	sess, err := h.manager.StartCall(context.Background(), "chan-1", ContextProfile{Pipeline: "default"}, nil)
	require.NoError(t, err)
	h.manager.HandleCallEnd(context.Background(), sess.ID)

	// The session is gone from the manager entirely
	err = h.manager.ProcessTurn(context.Background(), sess.ID, []byte("audio"), 8000)
	require.Error(t, err)
}

func TestSessionTransitionsRejectInvalidEdges(t *testing.T) {
	h := newHarness(t, standardPipelines())
	sess, err := h.manager.StartCall(context.Background(), "chan-1", ContextProfile{Pipeline: "default"}, nil)
	require.NoError(t, err)

	assert.Error(t, sess.Transition(StateExited)) // only reachable through a transfer
	require.NoError(t, sess.Transition(StateEnding))
	assert.Error(t, sess.Transition(StateActive))
}

func TestRenderTemplate(t *testing.T) {
	vars := map[string]string{"name": "Ada"}
	assert.Equal(t, "hi Ada", RenderTemplate("hi {name}", vars))
	assert.Equal(t, "hi {missing}", RenderTemplate("hi {missing}", vars))
	assert.Equal(t, "plain", RenderTemplate("plain", nil))
}

func TestSessionLookupByChannel(t *testing.T) {
	h := newHarness(t, standardPipelines())
	sess, err := h.manager.StartCall(context.Background(), "chan-9", ContextProfile{Pipeline: "default"}, nil)
	require.NoError(t, err)

	found := h.manager.SessionByChannel("chan-9")
	require.NotNil(t, found)
	assert.Equal(t, sess.ID, found.ID)
	assert.Nil(t, h.manager.SessionByChannel("chan-none"))
	assert.Equal(t, []string{sess.ID}, h.manager.ActiveCalls())
}
