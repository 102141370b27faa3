package pipeline

import (
	"fmt"
	"sync"

	"github.com/ava-voice/ava-agent/src/adapters"
)

// Registry holds every adapter the runtime can resolve, keyed by
// adapter key within each role, plus the provider-default option layer
// for each adapter key.
type Registry struct {
	mu       sync.RWMutex
	stt      map[string]adapters.STTAdapter
	llm      map[string]adapters.LLMAdapter
	tts      map[string]adapters.TTSAdapter
	defaults map[string]adapters.Options
}

// NewRegistry creates a registry pre-populated with the no-op STT and
// LLM sentinels so tts_only pipelines always resolve.
func NewRegistry() *Registry {
	r := &Registry{
		stt:      make(map[string]adapters.STTAdapter),
		llm:      make(map[string]adapters.LLMAdapter),
		tts:      make(map[string]adapters.TTSAdapter),
		defaults: make(map[string]adapters.Options),
	}
	r.RegisterSTT(adapters.NewNoOpSTT(), nil)
	r.RegisterLLM(adapters.NewNoOpLLM(), nil)
	return r
}

// RegisterSTT adds a recognition adapter with its default options
func (r *Registry) RegisterSTT(a adapters.STTAdapter, defaults adapters.Options) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stt[a.Key()] = a
	r.defaults[a.Key()] = defaults.Clone()
}

// RegisterLLM adds a generation adapter with its default options
func (r *Registry) RegisterLLM(a adapters.LLMAdapter, defaults adapters.Options) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.llm[a.Key()] = a
	r.defaults[a.Key()] = defaults.Clone()
}

// RegisterTTS adds a synthesis adapter with its default options
func (r *Registry) RegisterTTS(a adapters.TTSAdapter, defaults adapters.Options) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tts[a.Key()] = a
	r.defaults[a.Key()] = defaults.Clone()
}

func (r *Registry) lookupSTT(key string) (adapters.STTAdapter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.stt[key]
	if !ok {
		return nil, fmt.Errorf("no stt adapter registered for key %q", key)
	}
	return a, nil
}

func (r *Registry) lookupLLM(key string) (adapters.LLMAdapter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.llm[key]
	if !ok {
		return nil, fmt.Errorf("no llm adapter registered for key %q", key)
	}
	return a, nil
}

func (r *Registry) lookupTTS(key string) (adapters.TTSAdapter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.tts[key]
	if !ok {
		return nil, fmt.Errorf("no tts adapter registered for key %q", key)
	}
	return a, nil
}

// Defaults returns the provider-default option layer for an adapter key
func (r *Registry) Defaults(key string) adapters.Options {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.defaults[key].Clone()
}

// Adapters returns every registered adapter once, for lifecycle fan-out
func (r *Registry) Adapters() []adapters.Adapter {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := make(map[adapters.Adapter]bool)
	var all []adapters.Adapter
	for _, a := range r.stt {
		if !seen[a] {
			seen[a] = true
			all = append(all, a)
		}
	}
	for _, a := range r.llm {
		if !seen[a] {
			seen[a] = true
			all = append(all, a)
		}
	}
	for _, a := range r.tts {
		if !seen[a] {
			seen[a] = true
			all = append(all, a)
		}
	}
	return all
}
