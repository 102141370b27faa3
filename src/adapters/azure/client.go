// Package azure provides REST adapters for the Azure Speech service:
// fast transcription, real-time transcription, and SSML text-to-speech.
// No Azure SDK dependency is required; everything goes over HTTPS.
package azure

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/ava-voice/ava-agent/src/adapters"
)

const userAgent = "AVA-AI-Voice-Agent/1.0"

// Client owns the HTTP client shared by every Azure adapter across all
// calls. It is initialized lazily exactly once, so concurrent first use
// from multiple calls is safe.
type Client struct {
	once       sync.Once
	httpClient *http.Client
}

// NewClient creates an uninitialized shared client
func NewClient() *Client {
	return &Client{}
}

// HTTP returns the underlying http.Client, creating it on first use
func (c *Client) HTTP() *http.Client {
	c.once.Do(func() {
		if c.httpClient == nil {
			c.httpClient = &http.Client{Timeout: 60 * time.Second}
		}
	})
	return c.httpClient
}

// Close releases idle connections. Safe to call even if HTTP was never
// used.
func (c *Client) Close() {
	if c.httpClient != nil {
		c.httpClient.CloseIdleConnections()
	}
}

func sttFastURL(region string) string {
	return fmt.Sprintf("https://%s.api.cognitive.microsoft.com/speechtotext/transcriptions:transcribe?api-version=2025-10-01", region)
}

func sttRealtimeURL(region, language string) string {
	return fmt.Sprintf("https://%s.stt.speech.microsoft.com/speech/recognition/conversation/cognitiveservices/v1?language=%s", region, language)
}

func ttsURL(region string) string {
	return fmt.Sprintf("https://%s.tts.speech.microsoft.com/cognitiveservices/v1", region)
}

func ttsVoicesURL(region string) string {
	return fmt.Sprintf("https://%s.tts.speech.microsoft.com/cognitiveservices/voices/list", region)
}

func requestTimeout(opts adapters.Options, fallbackSec float64) time.Duration {
	sec := opts.Float("request_timeout_sec", fallbackSec)
	return time.Duration(sec * float64(time.Second))
}
