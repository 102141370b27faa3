// Package gemini provides the Gemini LLM adapter built on the official
// genai SDK.
package gemini

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"google.golang.org/genai"

	"github.com/ava-voice/ava-agent/src/adapters"
	"github.com/ava-voice/ava-agent/src/logger"
)

// LLM generates conversational replies through the Gemini API
type LLM struct {
	mu     sync.Mutex
	client *genai.Client
	log    *logger.Logger
}

// NewLLM creates the Gemini adapter. The SDK client is created on
// first use because the API key arrives with per-call options.
func NewLLM() *LLM {
	return &LLM{log: logger.WithPrefix("[Gemini]")}
}

func (a *LLM) Key() string { return "gemini_llm" }

func (a *LLM) Start(ctx context.Context) error { return nil }

func (a *LLM) Stop() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.client = nil
	return nil
}

func (a *LLM) OpenCall(ctx context.Context, callID string, opts adapters.Options) error {
	_, err := a.sdk(ctx, opts)
	return err
}

func (a *LLM) CloseCall(ctx context.Context, callID string) error { return nil }

func (a *LLM) sdk(ctx context.Context, opts adapters.Options) (*genai.Client, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.client != nil {
		return a.client, nil
	}

	apiKey := opts.String("api_key", "")
	if apiKey == "" {
		return nil, fmt.Errorf("gemini llm requires api_key")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("gemini client: %w", err)
	}
	a.client = client
	return client, nil
}

func (a *LLM) ValidateConnectivity(ctx context.Context, opts adapters.Options) adapters.ConnectivityStatus {
	started := time.Now()
	probe := adapters.NewConversation("")
	_, err := a.Generate(ctx, "connectivity-probe", "ping", probe, opts)
	latency := time.Since(started).Milliseconds()
	if err != nil {
		return adapters.ConnectivityStatus{OK: false, Detail: err.Error(), Latency: latency}
	}
	return adapters.ConnectivityStatus{OK: true, Latency: latency}
}

// mapRole translates conversation roles to the typed Gemini role names
func mapRole(role string) genai.Role {
	if role == "assistant" {
		return genai.RoleModel
	}
	return genai.RoleUser
}

// Generate appends input to the conversation and returns the model's
// reply. Gemini uses the role "model" where the conversation stores
// "assistant".
func (a *LLM) Generate(ctx context.Context, callID, input string, conv *adapters.Conversation, opts adapters.Options) (string, error) {
	if input == "" && (conv == nil || len(conv.Messages) == 0) {
		return "", nil
	}

	client, err := a.sdk(ctx, opts)
	if err != nil {
		return "", err
	}

	model := opts.String("model", "gemini-2.0-flash")

	if conv == nil {
		conv = adapters.NewConversation("")
	}
	if input != "" {
		conv.AddUserMessage(input)
	}

	contents := make([]*genai.Content, 0, len(conv.Messages))
	for _, msg := range conv.Messages {
		contents = append(contents, genai.NewContentFromText(msg.Content, mapRole(msg.Role)))
	}

	config := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(float32(opts.Float("temperature", 0.7))),
	}
	if conv.SystemPrompt != "" {
		config.SystemInstruction = genai.NewContentFromText(conv.SystemPrompt, genai.RoleUser)
	}

	reqCtx, cancel := context.WithTimeout(ctx, time.Duration(opts.Float("request_timeout_sec", 30))*time.Second)
	defer cancel()

	started := time.Now()
	resp, err := client.Models.GenerateContent(reqCtx, model, contents, config)
	if err != nil {
		return "", fmt.Errorf("gemini generate: %w", err)
	}

	reply := strings.TrimSpace(resp.Text())
	conv.AddAssistantMessage(reply)
	a.log.Info("reply generated call=%s model=%s latency=%s len=%d",
		callID, model, time.Since(started).Round(time.Millisecond), len(reply))
	return reply, nil
}
