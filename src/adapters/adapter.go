package adapters

import "context"

// Role names the capability an adapter fills inside a pipeline
type Role string

const (
	RoleSTT Role = "stt"
	RoleLLM Role = "llm"
	RoleTTS Role = "tts"
)

// Sentinel keys for the no-op adapters that fill unused roles of a
// tts_only pipeline
const (
	NoneSTTKey = "none_stt"
	NoneLLMKey = "none_llm"
)

// ConnectivityStatus reports the outcome of a best-effort reachability
// and credential check. Expected failure modes (bad credentials, network
// unreachable) are reported here, never returned as errors.
type ConnectivityStatus struct {
	OK      bool   `json:"ok"`
	Detail  string `json:"detail,omitempty"`
	Latency int64  `json:"latency_ms,omitempty"`
}

// Adapter is the lifecycle shared by every provider adapter.
//
// Start/Stop bracket process-lifetime shared resources and are
// idempotent; Stop releases resources even if Start never ran.
// OpenCall/CloseCall bracket per-call resources and must not leak when a
// call ends abnormally.
type Adapter interface {
	Key() string
	Start(ctx context.Context) error
	Stop() error
	OpenCall(ctx context.Context, callID string, opts Options) error
	CloseCall(ctx context.Context, callID string) error
	ValidateConnectivity(ctx context.Context, opts Options) ConnectivityStatus
}

// STTAdapter transcribes canonical PCM16-LE audio.
// Empty audio yields empty text with no network call.
type STTAdapter interface {
	Adapter
	Transcribe(ctx context.Context, callID string, pcm16 []byte, sampleRate int, opts Options) (string, error)
}

// LLMAdapter generates a reply for one conversational turn
type LLMAdapter interface {
	Adapter
	Generate(ctx context.Context, callID, input string, conv *Conversation, opts Options) (string, error)
}

// TTSAdapter synthesizes speech as a finite, consume-once sequence of
// audio chunks delivered in generation order. Empty text yields a closed
// empty channel with no network call.
type TTSAdapter interface {
	Adapter
	Synthesize(ctx context.Context, callID, text string, opts Options) (<-chan []byte, error)
}
