// Package telephony provides the built-in call-control tools.
package telephony

import (
	"context"
	"fmt"
	"time"

	"github.com/ava-voice/ava-agent/src/logger"
	"github.com/ava-voice/ava-agent/src/tools"
)

// ExitToDialplan hands the caller back to the Asterisk dialplan, with
// an optional spoken farewell first. The transfer flag is committed
// before the continue goes out, so the call-end event that follows a
// successful exit resolves as a clean handoff.
type ExitToDialplan struct {
	DefaultContext  string
	DefaultExten    string
	DefaultPriority int

	log *logger.Logger
}

// NewExitToDialplan creates the exit tool with fallback dialplan
// coordinates
func NewExitToDialplan(dialplanContext, exten string, priority int) *ExitToDialplan {
	return &ExitToDialplan{
		DefaultContext:  dialplanContext,
		DefaultExten:    exten,
		DefaultPriority: priority,
		log:             logger.WithPrefix("[ExitToDialplan]"),
	}
}

func (t *ExitToDialplan) Definition() tools.Definition {
	return tools.Definition{
		Name:             "exit_to_dialplan",
		Description:      "Transfer the caller out of the assistant and back into the phone system, for example to reach a human operator.",
		Category:         "telephony",
		RequiresChannel:  true,
		MaxExecutionTime: 15 * time.Second,
		Parameters: []tools.Parameter{
			{Name: "farewell", Type: "string", Description: "Optional goodbye message spoken before transferring"},
			{Name: "context", Type: "string", Description: "Dialplan context to continue in"},
			{Name: "extension", Type: "string", Description: "Dialplan extension to continue at"},
			{Name: "priority", Type: "number", Description: "Dialplan priority to continue at"},
		},
	}
}

func (t *ExitToDialplan) Execute(ctx context.Context, tc *tools.Context, params map[string]interface{}) tools.Result {
	dialplanContext := tools.StringParam(params, "context", t.DefaultContext)
	exten := tools.StringParam(params, "extension", t.DefaultExten)
	priority := tools.IntParam(params, "priority", t.DefaultPriority)
	if priority <= 0 {
		priority = 1
	}

	if farewell := tools.StringParam(params, "farewell", ""); farewell != "" {
		if err := tc.Manager.Speak(tc.CallID, farewell); err != nil {
			// Keep going; the transfer matters more than the goodbye
			t.log.Warn("farewell failed call=%s: %v", tc.CallID, err)
		}
	}

	ok, err := tc.Manager.RequestTransfer(ctx, tc.CallID, dialplanContext, exten, priority)
	if err != nil || !ok {
		msg := "transfer to dialplan failed"
		if err != nil {
			msg = fmt.Sprintf("%s: %v", msg, err)
		}
		return tools.Fail(msg).With("will_exit", false)
	}

	location := fmt.Sprintf("%s,%s,%d", dialplanContext, exten, priority)
	return tools.OK("caller is being transferred").
		With("will_exit", true).
		With("dialplan_location", location)
}
