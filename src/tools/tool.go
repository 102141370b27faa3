// Package tools defines the mid-call tool framework: definitions the
// LLM providers advertise, a registry, and an executor that isolates
// each invocation.
package tools

import (
	"context"
	"time"

	"github.com/ava-voice/ava-agent/src/session"
	"github.com/ava-voice/ava-agent/src/telephony"
)

// Parameter describes one tool argument for provider schemas
type Parameter struct {
	Name        string
	Type        string // "string", "number", "boolean"
	Description string
	Required    bool
	Enum        []string
}

// Definition describes a tool to the registry and to providers
type Definition struct {
	Name             string
	Description      string
	Category         string
	RequiresChannel  bool
	MaxExecutionTime time.Duration
	Parameters       []Parameter
}

// Context is the per-invocation execution context. The executor builds
// a fresh one for every call so tools never observe each other's state.
type Context struct {
	CallID          string
	CallerChannelID string
	Session         *session.CallSession
	Manager         *session.Manager
	Ari             telephony.AriClient
	ProviderName    string
}

// Result is the structured outcome a tool hands back to the provider
type Result map[string]interface{}

// OK builds a success result
func OK(message string) Result {
	return Result{"status": "success", "message": message}
}

// Fail builds an error result
func Fail(message string) Result {
	return Result{"status": "error", "message": message}
}

// With adds a key to the result and returns it for chaining
func (r Result) With(key string, value interface{}) Result {
	r[key] = value
	return r
}

// Tool is one invocable capability
type Tool interface {
	Definition() Definition
	Execute(ctx context.Context, tc *Context, params map[string]interface{}) Result
}

// StringParam reads a string argument with a fallback
func StringParam(params map[string]interface{}, name, fallback string) string {
	if v, ok := params[name].(string); ok && v != "" {
		return v
	}
	return fallback
}

// IntParam reads a numeric argument, tolerating JSON float decoding
func IntParam(params map[string]interface{}, name string, fallback int) int {
	switch v := params[name].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return fallback
	}
}
