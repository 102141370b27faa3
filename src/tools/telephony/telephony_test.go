package telephony

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ava-voice/ava-agent/src/adapters"
	"github.com/ava-voice/ava-agent/src/pipeline"
	"github.com/ava-voice/ava-agent/src/session"
	"github.com/ava-voice/ava-agent/src/tools"
)

type scriptTTS struct {
	mu      sync.Mutex
	spoken  []string
	failErr error
}

func (f *scriptTTS) Key() string { return "script_tts" }
func (f *scriptTTS) Start(ctx context.Context) error { return nil }
func (f *scriptTTS) Stop() error { return nil }
func (f *scriptTTS) CloseCall(ctx context.Context, callID string) error { return nil }
func (f *scriptTTS) OpenCall(ctx context.Context, callID string, opts adapters.Options) error {
	return nil
}
func (f *scriptTTS) ValidateConnectivity(ctx context.Context, opts adapters.Options) adapters.ConnectivityStatus {
	return adapters.ConnectivityStatus{OK: true}
}
func (f *scriptTTS) Synthesize(ctx context.Context, callID, text string, opts adapters.Options) (<-chan []byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failErr != nil {
		return nil, f.failErr
	}
	f.spoken = append(f.spoken, text)
	ch := make(chan []byte)
	close(ch)
	return ch, nil
}

type recordingAri struct {
	mu        sync.Mutex
	continued []string
	vars      map[string]string
	hungUp    []string
}

func newRecordingAri() *recordingAri {
	return &recordingAri{vars: make(map[string]string)}
}

func (f *recordingAri) ContinueInDialplan(ctx context.Context, channelID, dialplanContext, extension string, priority int) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.continued = append(f.continued, channelID)
	return true, nil
}
func (f *recordingAri) SetChannelVar(ctx context.Context, channelID, name, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.vars[name] = value
	return nil
}
func (f *recordingAri) Hangup(ctx context.Context, channelID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.hungUp = append(f.hungUp, channelID)
	return nil
}
func (f *recordingAri) Answer(ctx context.Context, channelID string) error { return nil }
func (f *recordingAri) PlayAudio(ctx context.Context, channelID, mediaURI string) error { return nil }

func setup(t *testing.T) (*session.Manager, *session.CallSession, *recordingAri, *scriptTTS) {
	t.Helper()

	tts := &scriptTTS{}
	ari := newRecordingAri()

	reg := pipeline.NewRegistry()
	reg.RegisterTTS(tts, nil)
	orch, err := pipeline.NewOrchestrator(reg, map[string]pipeline.Entry{
		"default": {TTS: "script_tts"},
	})
	require.NoError(t, err)

	manager := session.NewManager(orch, ari, nil, nil)
	sess, err := manager.StartCall(context.Background(), "chan-1", session.ContextProfile{Pipeline: "default"}, nil)
	require.NoError(t, err)
	return manager, sess, ari, tts
}

func toolContext(manager *session.Manager, sess *session.CallSession, ari *recordingAri) *tools.Context {
	return &tools.Context{
		CallID:          sess.ID,
		CallerChannelID: sess.ChannelID,
		Session:         sess,
		Manager:         manager,
		Ari:             ari,
	}
}

func TestExitToDialplanSpeaksThenTransfers(t *testing.T) {
	manager, sess, ari, tts := setup(t)

	tool := NewExitToDialplan("internal", "operator", 1)
	result := tool.Execute(context.Background(), toolContext(manager, sess, ari), map[string]interface{}{
		"farewell": "Transferring you now.",
	})

	assert.Equal(t, "success", result["status"])
	assert.Equal(t, true, result["will_exit"])
	assert.Equal(t, "internal,operator,1", result["dialplan_location"])
	assert.Equal(t, []string{"Transferring you now."}, tts.spoken)
	assert.Equal(t, []string{"chan-1"}, ari.continued)

	// The session carries the flag, so the coming end event exits clean
	assert.True(t, sess.TransferActive())
	assert.Equal(t, session.StateTransferring, sess.State())

	manager.HandleCallEnd(context.Background(), sess.ID)
	assert.Equal(t, session.StateExited, sess.State())
}

func TestExitToDialplanTransfersWhenFarewellFails(t *testing.T) {
	manager, sess, ari, tts := setup(t)
	tts.failErr = errors.New("tts offline")

	tool := NewExitToDialplan("internal", "operator", 1)
	result := tool.Execute(context.Background(), toolContext(manager, sess, ari), map[string]interface{}{
		"farewell": "Transferring you now.",
	})

	// The goodbye is best effort, the handoff still has to happen
	assert.Equal(t, "success", result["status"])
	assert.Equal(t, true, result["will_exit"])
	assert.Equal(t, []string{"chan-1"}, ari.continued)
}

func TestExitToDialplanHonorsParamOverrides(t *testing.T) {
	manager, sess, ari, _ := setup(t)

	tool := NewExitToDialplan("internal", "operator", 1)
	result := tool.Execute(context.Background(), toolContext(manager, sess, ari), map[string]interface{}{
		"context":   "sales",
		"extension": "200",
		"priority":  3.0, // JSON numbers decode as float64
	})
	assert.Equal(t, "sales,200,3", result["dialplan_location"])
}

func TestHangupSpeaksThenHangsUp(t *testing.T) {
	manager, sess, ari, tts := setup(t)

	tool := NewHangup()
	result := tool.Execute(context.Background(), toolContext(manager, sess, ari), map[string]interface{}{
		"farewell": "Goodbye!",
	})

	assert.Equal(t, "success", result["status"])
	assert.Equal(t, []string{"Goodbye!"}, tts.spoken)
	assert.Equal(t, []string{"chan-1"}, ari.hungUp)
}

func TestHangupHangsUpWhenFarewellFails(t *testing.T) {
	manager, sess, ari, tts := setup(t)
	tts.failErr = errors.New("tts offline")

	result := NewHangup().Execute(context.Background(), toolContext(manager, sess, ari), map[string]interface{}{
		"farewell": "Goodbye!",
	})

	assert.Equal(t, "success", result["status"])
	assert.Equal(t, []string{"chan-1"}, ari.hungUp)
}

func TestSetChannelVarWritesChannelAndSession(t *testing.T) {
	manager, sess, ari, _ := setup(t)

	tool := NewSetChannelVar()
	result := tool.Execute(context.Background(), toolContext(manager, sess, ari), map[string]interface{}{
		"name":  "ACCOUNT",
		"value": "12345",
	})

	assert.Equal(t, "success", result["status"])
	assert.Equal(t, "12345", ari.vars["ACCOUNT"])
	v, ok := sess.Var("ACCOUNT")
	assert.True(t, ok)
	assert.Equal(t, "12345", v)
}

func TestSetChannelVarEnforcesAllowList(t *testing.T) {
	manager, sess, ari, _ := setup(t)

	tool := NewSetChannelVar("ACCOUNT")
	result := tool.Execute(context.Background(), toolContext(manager, sess, ari), map[string]interface{}{
		"name":  "SECRET",
		"value": "x",
	})
	assert.Equal(t, "error", result["status"])
	assert.Empty(t, ari.vars)
}

func TestSetChannelVarRequiresName(t *testing.T) {
	manager, sess, ari, _ := setup(t)

	tool := NewSetChannelVar()
	result := tool.Execute(context.Background(), toolContext(manager, sess, ari), map[string]interface{}{})
	assert.Equal(t, "error", result["status"])
}
