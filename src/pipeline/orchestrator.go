package pipeline

import (
	"github.com/ava-voice/ava-agent/src/adapters"
	"github.com/ava-voice/ava-agent/src/logger"
)

// Resolution is the fully bound outcome of resolving a pipeline for
// one call: concrete adapters plus the merged option set per role.
type Resolution struct {
	CallID       string
	PipelineName string
	IsTTSOnly    bool
	Tools        []string

	STTKey string
	LLMKey string
	TTSKey string

	STT adapters.STTAdapter
	LLM adapters.LLMAdapter
	TTS adapters.TTSAdapter

	STTOptions adapters.Options
	LLMOptions adapters.Options
	TTSOptions adapters.Options
}

// Orchestrator resolves pipeline names against the registry
type Orchestrator struct {
	registry  *Registry
	pipelines map[string]Entry
	log       *logger.Logger
}

// NewOrchestrator creates an orchestrator over registered adapters and
// named pipeline entries. Entries are normalized up front so definition
// errors surface at startup rather than on the first call.
func NewOrchestrator(registry *Registry, pipelines map[string]Entry) (*Orchestrator, error) {
	normalized := make(map[string]Entry, len(pipelines))
	for name, entry := range pipelines {
		n, err := entry.Normalize(name)
		if err != nil {
			return nil, err
		}
		normalized[name] = n
	}
	return &Orchestrator{
		registry:  registry,
		pipelines: normalized,
		log:       logger.WithPrefix("[Orchestrator]"),
	}, nil
}

// Pipelines lists the known pipeline names
func (o *Orchestrator) Pipelines() []string {
	names := make([]string, 0, len(o.pipelines))
	for name := range o.pipelines {
		names = append(names, name)
	}
	return names
}

// Entry returns the normalized definition for a pipeline name
func (o *Orchestrator) Entry(name string) (Entry, bool) {
	e, ok := o.pipelines[name]
	return e, ok
}

// Resolve binds a pipeline name to adapters and merged options for one
// call. Runtime options are keyed by role ("stt", "llm", "tts") and
// form the highest-precedence layer; provider defaults the lowest.
func (o *Orchestrator) Resolve(callID, pipelineName string, runtime map[string]adapters.Options) (*Resolution, error) {
	entry, ok := o.pipelines[pipelineName]
	if !ok {
		return nil, &ConfigurationError{Pipeline: pipelineName, Reason: "unknown pipeline"}
	}

	stt, err := o.registry.lookupSTT(entry.STT)
	if err != nil {
		return nil, &ConfigurationError{Pipeline: pipelineName, Reason: err.Error()}
	}
	llm, err := o.registry.lookupLLM(entry.LLM)
	if err != nil {
		return nil, &ConfigurationError{Pipeline: pipelineName, Reason: err.Error()}
	}

	res := &Resolution{
		CallID:       callID,
		PipelineName: pipelineName,
		IsTTSOnly:    entry.IsTTSOnly(),
		Tools:        append([]string(nil), entry.Tools...),
		STTKey:       entry.STT,
		LLMKey:       entry.LLM,
		STT:          stt,
		LLM:          llm,
		STTOptions:   o.mergeRole(entry, "stt", entry.STT, runtime),
		LLMOptions:   o.mergeRole(entry, "llm", entry.LLM, runtime),
	}

	if entry.TTS != "" {
		tts, err := o.registry.lookupTTS(entry.TTS)
		if err != nil {
			return nil, &ConfigurationError{Pipeline: pipelineName, Reason: err.Error()}
		}
		res.TTSKey = entry.TTS
		res.TTS = tts
		res.TTSOptions = o.mergeRole(entry, "tts", entry.TTS, runtime)
	}

	o.log.Info("resolved call=%s pipeline=%s stt=%s llm=%s tts=%s tts_only=%v",
		callID, pipelineName, res.STTKey, res.LLMKey, res.TTSKey, res.IsTTSOnly)
	return res, nil
}

// mergeRole layers provider defaults, the pipeline's option block for
// the role, and runtime options, lowest precedence first
func (o *Orchestrator) mergeRole(entry Entry, role, adapterKey string, runtime map[string]adapters.Options) adapters.Options {
	layers := []adapters.Options{o.registry.Defaults(adapterKey)}
	if entry.Options != nil {
		layers = append(layers, entry.Options[role])
	}
	if runtime != nil {
		layers = append(layers, runtime[role])
	}
	return adapters.MergeAll(layers...)
}
