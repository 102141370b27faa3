package adapters

import "context"

// NoOpSTT fills the stt role of a tts_only pipeline. It satisfies the
// full adapter contract and returns empty text immediately, so the
// orchestrator and session never special-case broadcast pipelines.
type NoOpSTT struct{}

func NewNoOpSTT() *NoOpSTT { return &NoOpSTT{} }

func (a *NoOpSTT) Key() string { return NoneSTTKey }
func (a *NoOpSTT) Start(context.Context) error { return nil }
func (a *NoOpSTT) Stop() error { return nil }
func (a *NoOpSTT) OpenCall(context.Context, string, Options) error { return nil }
func (a *NoOpSTT) CloseCall(context.Context, string) error { return nil }

func (a *NoOpSTT) ValidateConnectivity(context.Context, Options) ConnectivityStatus {
	return ConnectivityStatus{OK: true, Detail: "no-op"}
}

func (a *NoOpSTT) Transcribe(context.Context, string, []byte, int, Options) (string, error) {
	return "", nil
}

// NoOpLLM fills the llm role of a tts_only pipeline
type NoOpLLM struct{}

func NewNoOpLLM() *NoOpLLM { return &NoOpLLM{} }

func (a *NoOpLLM) Key() string { return NoneLLMKey }
func (a *NoOpLLM) Start(context.Context) error { return nil }
func (a *NoOpLLM) Stop() error { return nil }
func (a *NoOpLLM) OpenCall(context.Context, string, Options) error { return nil }
func (a *NoOpLLM) CloseCall(context.Context, string) error { return nil }

func (a *NoOpLLM) ValidateConnectivity(context.Context, Options) ConnectivityStatus {
	return ConnectivityStatus{OK: true, Detail: "no-op"}
}

func (a *NoOpLLM) Generate(context.Context, string, string, *Conversation, Options) (string, error) {
	return "", nil
}
