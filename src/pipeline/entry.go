// Package pipeline resolves named provider combinations into the
// concrete adapters and merged options a call session runs with.
package pipeline

import (
	"fmt"

	"github.com/ava-voice/ava-agent/src/adapters"
)

// Pipeline type discriminators
const (
	TypeStandard = "standard"
	TypeTTSOnly  = "tts_only"
)

// Entry is one named pipeline definition: which adapter serves each
// role, which tools are exposed, and the pipeline-level option layer.
type Entry struct {
	Type    string                      `yaml:"type" json:"type"`
	STT     string                      `yaml:"stt" json:"stt"`
	LLM     string                      `yaml:"llm" json:"llm"`
	TTS     string                      `yaml:"tts" json:"tts"`
	Tools   []string                    `yaml:"tools" json:"tools"`
	Options map[string]adapters.Options `yaml:"options" json:"options"`
}

// Normalize fills defaults and applies the tts_only rules: broadcast
// pipelines never run recognition or generation regardless of what the
// entry declares, and they must name a TTS adapter.
func (e Entry) Normalize(name string) (Entry, error) {
	if e.Type == "" {
		e.Type = TypeStandard
	}

	switch e.Type {
	case TypeStandard:
		if e.STT == "" {
			e.STT = adapters.NoneSTTKey
		}
		if e.LLM == "" {
			e.LLM = adapters.NoneLLMKey
		}
	case TypeTTSOnly:
		e.STT = adapters.NoneSTTKey
		e.LLM = adapters.NoneLLMKey
		if e.TTS == "" {
			return e, &ConfigurationError{
				Pipeline: name,
				Reason:   "tts_only pipeline requires a tts adapter",
			}
		}
	default:
		return e, &ConfigurationError{
			Pipeline: name,
			Reason:   fmt.Sprintf("unknown pipeline type %q", e.Type),
		}
	}

	return e, nil
}

// IsTTSOnly reports whether the entry is a broadcast pipeline
func (e Entry) IsTTSOnly() bool { return e.Type == TypeTTSOnly }

// ConfigurationError marks a pipeline definition or resolution problem
// that no retry can fix.
type ConfigurationError struct {
	Pipeline string
	Reason   string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("pipeline %q misconfigured: %s", e.Pipeline, e.Reason)
}
