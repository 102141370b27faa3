package deepgram

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ava-voice/ava-agent/src/tools"
)

type captureWriter struct {
	messages []interface{}
	err      error
}

func (w *captureWriter) WriteJSON(v interface{}) error {
	if w.err != nil {
		return w.err
	}
	w.messages = append(w.messages, v)
	return nil
}

type echoTool struct{}

func (echoTool) Definition() tools.Definition {
	return tools.Definition{Name: "echo"}
}
func (echoTool) Execute(ctx context.Context, tc *tools.Context, params map[string]interface{}) tools.Result {
	return tools.OK("echoed").With("input", params["text"])
}

func newExecutor(t *testing.T) *tools.Executor {
	t.Helper()
	reg := tools.NewRegistry()
	require.NoError(t, reg.Register(echoTool{}))
	return tools.NewExecutor(reg, func(callID string) (*tools.Context, error) {
		return &tools.Context{CallID: callID, CallerChannelID: "chan-1"}, nil
	})
}

func TestIsFunctionCall(t *testing.T) {
	assert.True(t, IsFunctionCall([]byte(`{"type":"FunctionCallRequest"}`)))
	assert.True(t, IsFunctionCall([]byte(`{"type":"function_call"}`)))
	assert.False(t, IsFunctionCall([]byte(`{"type":"ConversationText"}`)))
	assert.False(t, IsFunctionCall([]byte(`not json`)))
}

func TestHandleMessageExecutesAndReplies(t *testing.T) {
	bridge := NewBridge(newExecutor(t))
	writer := &captureWriter{}

	raw := []byte(`{"type":"FunctionCallRequest","function_call_id":"fc-1","function_name":"echo","input":{"text":"hi"}}`)
	bridge.HandleMessage(context.Background(), "call-1", raw, writer)

	require.Len(t, writer.messages, 1)
	response := writer.messages[0].(FunctionCallResult)
	assert.Equal(t, "FunctionCallResponse", response.Type)
	assert.Equal(t, "fc-1", response.ID)
	assert.Equal(t, "echo", response.Name)
	assert.Equal(t, "success", response.Output["status"])
	assert.Equal(t, "hi", response.Output["input"])
}

func TestHandleMessageUnknownToolStillReplies(t *testing.T) {
	bridge := NewBridge(newExecutor(t))
	writer := &captureWriter{}

	raw := []byte(`{"type":"FunctionCallRequest","function_call_id":"fc-2","function_name":"missing","input":{}}`)
	bridge.HandleMessage(context.Background(), "call-1", raw, writer)

	require.Len(t, writer.messages, 1)
	response := writer.messages[0].(FunctionCallResult)
	assert.Equal(t, "error", response.Output["status"])
}

func TestHandleMessageDeliveryFailureIsSwallowed(t *testing.T) {
	bridge := NewBridge(newExecutor(t))
	writer := &captureWriter{err: errors.New("socket closed")}

	raw := []byte(`{"type":"FunctionCallRequest","function_call_id":"fc-3","function_name":"echo","input":{}}`)
	// Must not panic or propagate; delivery is fire and forget
	bridge.HandleMessage(context.Background(), "call-1", raw, writer)
	assert.Empty(t, writer.messages)
}

func TestHandleMessageIgnoresMalformedEvents(t *testing.T) {
	bridge := NewBridge(newExecutor(t))
	writer := &captureWriter{}

	bridge.HandleMessage(context.Background(), "call-1", []byte(`garbage`), writer)
	bridge.HandleMessage(context.Background(), "call-1", []byte(`{"type":"function_call"}`), writer)
	assert.Empty(t, writer.messages)
}
