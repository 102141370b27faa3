package azure

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ava-voice/ava-agent/src/adapters"
	"github.com/ava-voice/ava-agent/src/audio"
	"github.com/ava-voice/ava-agent/src/logger"
)

// STTFast is the Azure Fast Transcription REST adapter.
//
// Endpoint: POST {region}.api.cognitive.microsoft.com/speechtotext/transcriptions:transcribe
// Auth:     Ocp-Apim-Subscription-Key header
// Input:    multipart/form-data with 'audio' (WAV) + 'definition' (JSON)
// Output:   JSON { combinedPhrases: [{ text: "..." }], ... }
type STTFast struct {
	client *Client
	log    *logger.Logger
}

// NewSTTFast creates the fast-transcription adapter on a shared client
func NewSTTFast(client *Client) *STTFast {
	return &STTFast{client: client, log: logger.WithPrefix("[AzureSTTFast]")}
}

func (a *STTFast) Key() string { return "azure_stt_fast" }

func (a *STTFast) Start(ctx context.Context) error { return nil }

func (a *STTFast) Stop() error {
	a.client.Close()
	return nil
}

func (a *STTFast) OpenCall(ctx context.Context, callID string, opts adapters.Options) error {
	a.client.HTTP()
	return nil
}

func (a *STTFast) CloseCall(ctx context.Context, callID string) error { return nil }

func (a *STTFast) ValidateConnectivity(ctx context.Context, opts adapters.Options) adapters.ConnectivityStatus {
	return validateSpeechKey(ctx, a.client, opts)
}

// Transcribe uploads PCM16 audio as WAV and returns the combined
// transcript. Empty or all-silent audio short-circuits without a
// network call.
func (a *STTFast) Transcribe(ctx context.Context, callID string, pcm16 []byte, sampleRate int, opts adapters.Options) (string, error) {
	if len(pcm16) == 0 || audio.IsSilence(pcm16) {
		return "", nil
	}

	apiKey := opts.String("api_key", "")
	if apiKey == "" {
		return "", fmt.Errorf("azure stt fast requires api_key")
	}

	language := opts.String("language", "en-US")
	url := opts.String("fast_stt_base_url", sttFastURL(opts.String("region", "eastus")))
	requestID := "azure-stt-fast-" + uuid.NewString()[:12]

	wav := audio.WrapPCMAsWAV(pcm16, sampleRate)
	definition, _ := json.Marshal(map[string]interface{}{"locales": []string{language}})

	var form bytes.Buffer
	writer := multipart.NewWriter(&form)
	part, err := writer.CreateFormFile("audio", "audio.wav")
	if err != nil {
		return "", err
	}
	if _, err := part.Write(wav); err != nil {
		return "", err
	}
	if err := writer.WriteField("definition", string(definition)); err != nil {
		return "", err
	}
	if err := writer.Close(); err != nil {
		return "", err
	}

	reqCtx, cancel := context.WithTimeout(ctx, requestTimeout(opts, 30))
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, url, &form)
	if err != nil {
		return "", err
	}
	req.Header.Set("Ocp-Apim-Subscription-Key", apiKey)
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	started := time.Now()
	resp, err := a.client.HTTP().Do(req)
	if err != nil {
		return "", fmt.Errorf("azure stt fast request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}

	if resp.StatusCode >= 400 {
		a.log.Error("request failed call=%s request=%s status=%d", callID, requestID, resp.StatusCode)
		return "", adapters.NewProviderRequestError("Azure STT Fast", resp.StatusCode, raw)
	}

	transcript := parseFastTranscript(raw)
	a.log.Info("transcript received call=%s request=%s latency=%s len=%d",
		callID, requestID, time.Since(started).Round(time.Millisecond), len(transcript))
	return transcript, nil
}

// parseFastTranscript extracts text from a fast-transcription response,
// preferring combinedPhrases and falling back to joining phrase texts
func parseFastTranscript(payload []byte) string {
	var data struct {
		CombinedPhrases []struct {
			Text string `json:"text"`
		} `json:"combinedPhrases"`
		Phrases []struct {
			Text string `json:"text"`
		} `json:"phrases"`
	}
	if err := json.Unmarshal(payload, &data); err != nil {
		return strings.TrimSpace(string(payload))
	}

	if len(data.CombinedPhrases) > 0 && data.CombinedPhrases[0].Text != "" {
		return strings.TrimSpace(data.CombinedPhrases[0].Text)
	}

	texts := make([]string, 0, len(data.Phrases))
	for _, p := range data.Phrases {
		if p.Text != "" {
			texts = append(texts, p.Text)
		}
	}
	return strings.TrimSpace(strings.Join(texts, " "))
}

// STTRealtime is the Azure real-time STT REST adapter.
//
// Endpoint: POST {region}.stt.speech.microsoft.com/speech/recognition/conversation/cognitiveservices/v1?language={lang}
// Input:    audio/wav binary body
// Output:   JSON { RecognitionStatus, DisplayText, ... }
type STTRealtime struct {
	client *Client
	log    *logger.Logger
}

// NewSTTRealtime creates the real-time adapter on a shared client
func NewSTTRealtime(client *Client) *STTRealtime {
	return &STTRealtime{client: client, log: logger.WithPrefix("[AzureSTTRealtime]")}
}

func (a *STTRealtime) Key() string { return "azure_stt_realtime" }

func (a *STTRealtime) Start(ctx context.Context) error { return nil }

func (a *STTRealtime) Stop() error {
	a.client.Close()
	return nil
}

func (a *STTRealtime) OpenCall(ctx context.Context, callID string, opts adapters.Options) error {
	a.client.HTTP()
	return nil
}

func (a *STTRealtime) CloseCall(ctx context.Context, callID string) error { return nil }

func (a *STTRealtime) ValidateConnectivity(ctx context.Context, opts adapters.Options) adapters.ConnectivityStatus {
	return validateSpeechKey(ctx, a.client, opts)
}

func (a *STTRealtime) Transcribe(ctx context.Context, callID string, pcm16 []byte, sampleRate int, opts adapters.Options) (string, error) {
	if len(pcm16) == 0 || audio.IsSilence(pcm16) {
		return "", nil
	}

	apiKey := opts.String("api_key", "")
	if apiKey == "" {
		return "", fmt.Errorf("azure stt realtime requires api_key")
	}

	language := opts.String("language", "en-US")
	region := opts.String("region", "eastus")
	url := opts.String("realtime_stt_base_url", sttRealtimeURL(region, language))
	requestID := "azure-stt-rt-" + uuid.NewString()[:12]

	wav := audio.WrapPCMAsWAV(pcm16, sampleRate)

	reqCtx, cancel := context.WithTimeout(ctx, requestTimeout(opts, 30))
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, url, bytes.NewReader(wav))
	if err != nil {
		return "", err
	}
	req.Header.Set("Ocp-Apim-Subscription-Key", apiKey)
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "audio/wav")

	started := time.Now()
	resp, err := a.client.HTTP().Do(req)
	if err != nil {
		return "", fmt.Errorf("azure stt realtime request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}

	if resp.StatusCode >= 400 {
		a.log.Error("request failed call=%s request=%s status=%d", callID, requestID, resp.StatusCode)
		return "", adapters.NewProviderRequestError("Azure STT Realtime", resp.StatusCode, raw)
	}

	var data struct {
		RecognitionStatus string `json:"RecognitionStatus"`
		DisplayText       string `json:"DisplayText"`
	}
	if err := json.Unmarshal(raw, &data); err != nil {
		return strings.TrimSpace(string(raw)), nil
	}
	if data.RecognitionStatus != "" && data.RecognitionStatus != "Success" {
		a.log.Debug("non-success recognition status call=%s status=%s", callID, data.RecognitionStatus)
	}

	a.log.Info("transcript received call=%s request=%s latency=%s",
		callID, requestID, time.Since(started).Round(time.Millisecond))
	return strings.TrimSpace(data.DisplayText), nil
}

// validateSpeechKey probes the voices-list endpoint, which answers
// cheaply and authenticates with the same subscription key
func validateSpeechKey(ctx context.Context, client *Client, opts adapters.Options) adapters.ConnectivityStatus {
	apiKey := opts.String("api_key", "")
	if apiKey == "" {
		return adapters.ConnectivityStatus{OK: false, Detail: "missing api_key"}
	}

	reqCtx, cancel := context.WithTimeout(ctx, requestTimeout(opts, 10))
	defer cancel()

	url := opts.String("voices_base_url", ttsVoicesURL(opts.String("region", "eastus")))
	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, url, nil)
	if err != nil {
		return adapters.ConnectivityStatus{OK: false, Detail: err.Error()}
	}
	req.Header.Set("Ocp-Apim-Subscription-Key", apiKey)
	req.Header.Set("User-Agent", userAgent)

	started := time.Now()
	resp, err := client.HTTP().Do(req)
	if err != nil {
		return adapters.ConnectivityStatus{OK: false, Detail: err.Error()}
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	latency := time.Since(started).Milliseconds()
	if resp.StatusCode >= 400 {
		return adapters.ConnectivityStatus{
			OK:      false,
			Detail:  fmt.Sprintf("status %d", resp.StatusCode),
			Latency: latency,
		}
	}
	return adapters.ConnectivityStatus{OK: true, Latency: latency}
}
