// Package deepgram bridges Deepgram agent function-call events to the
// tool executor.
package deepgram

import (
	"context"
	"encoding/json"

	"github.com/ava-voice/ava-agent/src/logger"
	"github.com/ava-voice/ava-agent/src/tools"
)

// ResultWriter sends a JSON message back over the agent socket.
// *websocket.Conn satisfies it.
type ResultWriter interface {
	WriteJSON(v interface{}) error
}

// FunctionCall is the inbound function-call event
type FunctionCall struct {
	Type   string                 `json:"type"`
	ID     string                 `json:"function_call_id"`
	Name   string                 `json:"function_name"`
	Params map[string]interface{} `json:"input"`
}

// FunctionCallResult is the outbound result event
type FunctionCallResult struct {
	Type   string       `json:"type"`
	ID     string       `json:"function_call_id"`
	Name   string       `json:"function_name"`
	Output tools.Result `json:"output"`
}

// Bridge decodes function-call events, runs them through the executor,
// and writes results back. Delivery is fire and forget: a failed write
// is logged and dropped, never retried, because the agent moves on
// regardless.
type Bridge struct {
	executor *tools.Executor
	log      *logger.Logger
}

// NewBridge creates a bridge over an executor
func NewBridge(executor *tools.Executor) *Bridge {
	return &Bridge{executor: executor, log: logger.WithPrefix("[DeepgramTools]")}
}

// IsFunctionCall reports whether a raw agent message is a
// function-call event
func IsFunctionCall(raw []byte) bool {
	var probe struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return false
	}
	return probe.Type == "FunctionCallRequest" || probe.Type == "function_call"
}

// HandleMessage executes the function call in a raw agent message and
// writes the result back on w
func (b *Bridge) HandleMessage(ctx context.Context, callID string, raw []byte, w ResultWriter) {
	var call FunctionCall
	if err := json.Unmarshal(raw, &call); err != nil {
		b.log.Warn("unparseable function call call=%s: %v", callID, err)
		return
	}
	if call.Name == "" {
		b.log.Warn("function call without a name call=%s id=%s", callID, call.ID)
		return
	}

	result := b.executor.Execute(ctx, callID, call.Name, call.Params)

	response := FunctionCallResult{
		Type:   "FunctionCallResponse",
		ID:     call.ID,
		Name:   call.Name,
		Output: result,
	}
	if err := w.WriteJSON(response); err != nil {
		b.log.Warn("result delivery failed call=%s tool=%s: %v", callID, call.Name, err)
	}
}
