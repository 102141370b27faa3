package telephony

import (
	"context"
	"fmt"
	"time"

	"github.com/ava-voice/ava-agent/src/tools"
)

// SetChannelVar records a value on the Asterisk channel and in the
// session, so both the dialplan after an exit and later tool calls can
// read it
type SetChannelVar struct {
	// AllowedVars restricts which names may be written. Empty allows all.
	AllowedVars []string
}

// NewSetChannelVar creates the variable tool
func NewSetChannelVar(allowed ...string) *SetChannelVar {
	return &SetChannelVar{AllowedVars: allowed}
}

func (t *SetChannelVar) Definition() tools.Definition {
	return tools.Definition{
		Name:             "set_channel_variable",
		Description:      "Store a value on the call, such as an account number the caller provided, so the phone system can use it after the assistant hands off.",
		Category:         "telephony",
		RequiresChannel:  true,
		MaxExecutionTime: 5 * time.Second,
		Parameters: []tools.Parameter{
			{Name: "name", Type: "string", Description: "Variable name", Required: true},
			{Name: "value", Type: "string", Description: "Variable value", Required: true},
		},
	}
}

func (t *SetChannelVar) Execute(ctx context.Context, tc *tools.Context, params map[string]interface{}) tools.Result {
	name := tools.StringParam(params, "name", "")
	if name == "" {
		return tools.Fail("variable name is required")
	}
	value := tools.StringParam(params, "value", "")

	if len(t.AllowedVars) > 0 && !t.allowed(name) {
		return tools.Fail(fmt.Sprintf("variable %q is not permitted", name))
	}

	if err := tc.Ari.SetChannelVar(ctx, tc.CallerChannelID, name, value); err != nil {
		return tools.Fail(fmt.Sprintf("channel variable set failed: %v", err))
	}
	tc.Session.SetVar(name, value)

	return tools.OK(fmt.Sprintf("variable %s stored", name))
}

func (t *SetChannelVar) allowed(name string) bool {
	for _, v := range t.AllowedVars {
		if v == name {
			return true
		}
	}
	return false
}
