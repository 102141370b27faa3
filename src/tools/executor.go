package tools

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/ava-voice/ava-agent/src/logger"
)

const defaultExecutionTime = 10 * time.Second

// ContextFactory builds a fresh execution context for a call. It
// returns an error when the call is unknown or already finished.
type ContextFactory func(callID string) (*Context, error)

// Executor runs tools with per-invocation isolation: a fresh context,
// a deadline from the tool's definition, and panic containment.
type Executor struct {
	registry *Registry
	factory  ContextFactory
	log      *logger.Logger
}

// NewExecutor creates an executor over a registry
func NewExecutor(registry *Registry, factory ContextFactory) *Executor {
	return &Executor{
		registry: registry,
		factory:  factory,
		log:      logger.WithPrefix("[Tools]"),
	}
}

// Execute runs one tool invocation. Every failure mode comes back as a
// structured error result rather than an error return, so providers
// always receive something to relay.
func (e *Executor) Execute(ctx context.Context, callID, name string, params map[string]interface{}) Result {
	tool, ok := e.registry.Get(name)
	if !ok {
		e.log.Warn("unknown tool call=%s name=%s", callID, name)
		return Fail(fmt.Sprintf("unknown tool %q", name))
	}

	tc, err := e.factory(callID)
	if err != nil {
		e.log.Warn("context build failed call=%s tool=%s: %v", callID, name, err)
		return Fail(err.Error())
	}

	def := tool.Definition()
	if def.RequiresChannel && tc.CallerChannelID == "" {
		return Fail(fmt.Sprintf("tool %q requires an active channel", name))
	}

	timeout := def.MaxExecutionTime
	if timeout <= 0 {
		timeout = defaultExecutionTime
	}
	execCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	started := time.Now()
	result := e.run(execCtx, tool, tc, params)
	if execCtx.Err() == context.DeadlineExceeded {
		e.log.Error("tool timed out call=%s tool=%s after=%s", callID, name, timeout)
		return Fail(fmt.Sprintf("tool %q timed out after %s", name, timeout))
	}

	e.log.Info("tool executed call=%s tool=%s elapsed=%s status=%v",
		callID, name, time.Since(started).Round(time.Millisecond), result["status"])
	return result
}

// run invokes the tool under a deadline watchdog with panic recovery.
// The tool goroutine is left to finish on its own after a timeout; the
// caller gets the timeout result immediately.
func (e *Executor) run(ctx context.Context, tool Tool, tc *Context, params map[string]interface{}) Result {
	done := make(chan Result, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				e.log.Error("tool panicked tool=%s: %v\n%s", tool.Definition().Name, r, debug.Stack())
				done <- Fail(fmt.Sprintf("tool %q failed internally", tool.Definition().Name))
			}
		}()
		done <- tool.Execute(ctx, tc, params)
	}()

	select {
	case result := <-done:
		return result
	case <-ctx.Done():
		return Fail(ctx.Err().Error())
	}
}
