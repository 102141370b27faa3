// Package openai provides the chat-completions LLM adapter.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/ava-voice/ava-agent/src/adapters"
	"github.com/ava-voice/ava-agent/src/logger"
)

const defaultBaseURL = "https://api.openai.com/v1/chat/completions"

// LLM generates conversational replies through the OpenAI
// chat-completions API
type LLM struct {
	once       sync.Once
	httpClient *http.Client
	log        *logger.Logger
}

// NewLLM creates the OpenAI adapter
func NewLLM() *LLM {
	return &LLM{log: logger.WithPrefix("[OpenAI]")}
}

func (a *LLM) Key() string { return "openai_llm" }

func (a *LLM) Start(ctx context.Context) error { return nil }

func (a *LLM) Stop() error {
	if a.httpClient != nil {
		a.httpClient.CloseIdleConnections()
	}
	return nil
}

func (a *LLM) OpenCall(ctx context.Context, callID string, opts adapters.Options) error {
	a.client()
	return nil
}

func (a *LLM) CloseCall(ctx context.Context, callID string) error { return nil }

func (a *LLM) client() *http.Client {
	a.once.Do(func() {
		if a.httpClient == nil {
			a.httpClient = &http.Client{Timeout: 60 * time.Second}
		}
	})
	return a.httpClient
}

func (a *LLM) ValidateConnectivity(ctx context.Context, opts adapters.Options) adapters.ConnectivityStatus {
	apiKey := opts.String("api_key", "")
	if apiKey == "" {
		return adapters.ConnectivityStatus{OK: false, Detail: "missing api_key"}
	}

	// A one-token completion is the cheapest authenticated probe.
	started := time.Now()
	probe := adapters.NewConversation("")
	probe.AddUserMessage("ping")
	_, err := a.Generate(ctx, "connectivity-probe", "", probe, adapters.Merge(opts, adapters.Options{"max_tokens": 1}))
	latency := time.Since(started).Milliseconds()
	if err != nil {
		return adapters.ConnectivityStatus{OK: false, Detail: err.Error(), Latency: latency}
	}
	return adapters.ConnectivityStatus{OK: true, Latency: latency}
}

// Generate appends input to the conversation and returns the model's
// reply. Empty input with a non-empty history still runs the model;
// empty input with no history short-circuits.
func (a *LLM) Generate(ctx context.Context, callID, input string, conv *adapters.Conversation, opts adapters.Options) (string, error) {
	if input == "" && (conv == nil || len(conv.Messages) == 0) {
		return "", nil
	}

	apiKey := opts.String("api_key", "")
	if apiKey == "" {
		return "", fmt.Errorf("openai llm requires api_key")
	}

	model := opts.String("model", "gpt-4o-mini")
	url := opts.String("base_url", defaultBaseURL)

	if conv == nil {
		conv = adapters.NewConversation("")
	}
	if input != "" {
		conv.AddUserMessage(input)
	}

	messages := make([]map[string]string, 0, len(conv.Messages)+1)
	if conv.SystemPrompt != "" {
		messages = append(messages, map[string]string{"role": "system", "content": conv.SystemPrompt})
	}
	for _, msg := range conv.Messages {
		messages = append(messages, map[string]string{"role": msg.Role, "content": msg.Content})
	}

	requestBody := map[string]interface{}{
		"model":       model,
		"messages":    messages,
		"temperature": opts.Float("temperature", 0.7),
	}
	if maxTokens := opts.Int("max_tokens", 0); maxTokens > 0 {
		requestBody["max_tokens"] = maxTokens
	}

	bodyBytes, err := json.Marshal(requestBody)
	if err != nil {
		return "", err
	}

	reqCtx, cancel := context.WithTimeout(ctx, time.Duration(opts.Float("request_timeout_sec", 30))*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, url, bytes.NewReader(bodyBytes))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+apiKey)
	req.Header.Set("Content-Type", "application/json")

	started := time.Now()
	resp, err := a.client().Do(req)
	if err != nil {
		return "", fmt.Errorf("openai request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}

	if resp.StatusCode >= 400 {
		a.log.Error("request failed call=%s status=%d", callID, resp.StatusCode)
		return "", adapters.NewProviderRequestError("OpenAI", resp.StatusCode, raw)
	}

	var data struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(raw, &data); err != nil {
		return "", fmt.Errorf("openai response: %w", err)
	}
	if len(data.Choices) == 0 {
		return "", fmt.Errorf("openai response contained no choices")
	}

	reply := strings.TrimSpace(data.Choices[0].Message.Content)
	conv.AddAssistantMessage(reply)
	a.log.Info("reply generated call=%s model=%s latency=%s len=%d",
		callID, model, time.Since(started).Round(time.Millisecond), len(reply))
	return reply, nil
}
