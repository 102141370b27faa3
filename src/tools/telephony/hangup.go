package telephony

import (
	"context"
	"fmt"
	"time"

	"github.com/ava-voice/ava-agent/src/logger"
	"github.com/ava-voice/ava-agent/src/tools"
)

// Hangup ends the call, optionally speaking a farewell first
type Hangup struct {
	log *logger.Logger
}

// NewHangup creates the hangup tool
func NewHangup() *Hangup {
	return &Hangup{log: logger.WithPrefix("[Hangup]")}
}

func (t *Hangup) Definition() tools.Definition {
	return tools.Definition{
		Name:             "hangup_call",
		Description:      "End the current phone call, for example when the caller says goodbye.",
		Category:         "telephony",
		RequiresChannel:  true,
		MaxExecutionTime: 10 * time.Second,
		Parameters: []tools.Parameter{
			{Name: "farewell", Type: "string", Description: "Optional goodbye message spoken before hanging up"},
		},
	}
}

func (t *Hangup) Execute(ctx context.Context, tc *tools.Context, params map[string]interface{}) tools.Result {
	if farewell := tools.StringParam(params, "farewell", ""); farewell != "" {
		if err := tc.Manager.Speak(tc.CallID, farewell); err != nil {
			t.log.Warn("farewell failed call=%s: %v", tc.CallID, err)
		}
	}

	if err := tc.Ari.Hangup(ctx, tc.CallerChannelID); err != nil {
		return tools.Fail(fmt.Sprintf("hangup failed: %v", err))
	}
	return tools.OK("call is ending").With("will_exit", true)
}
