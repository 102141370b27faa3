// Package telephony connects the runtime to Asterisk: the ARI REST
// client for channel control, the ARI event stream for call lifecycle,
// and the media WebSocket server that carries call audio.
package telephony

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/ava-voice/ava-agent/src/logger"
)

// AriClient is the channel-control surface the session layer depends
// on. Production code talks to Asterisk over REST; tests substitute a
// recording fake.
type AriClient interface {
	ContinueInDialplan(ctx context.Context, channelID, dialplanContext, extension string, priority int) (bool, error)
	SetChannelVar(ctx context.Context, channelID, name, value string) error
	Hangup(ctx context.Context, channelID string) error
	Answer(ctx context.Context, channelID string) error
	PlayAudio(ctx context.Context, channelID, mediaURI string) error
}

// AriConfig holds connection settings for the Asterisk REST interface
type AriConfig struct {
	BaseURL  string // e.g. http://localhost:8088/ari
	Username string
	Password string
	AppName  string
}

// RestAriClient talks to the Asterisk REST interface
type RestAriClient struct {
	config     AriConfig
	httpClient *http.Client
	log        *logger.Logger
}

// NewRestAriClient creates the REST client
func NewRestAriClient(config AriConfig) *RestAriClient {
	return &RestAriClient{
		config:     config,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		log:        logger.WithPrefix("[ARI]"),
	}
}

// ContinueInDialplan moves a channel out of the Stasis application and
// back into the dialplan at the given location. Returns whether
// Asterisk accepted the request.
func (c *RestAriClient) ContinueInDialplan(ctx context.Context, channelID, dialplanContext, extension string, priority int) (bool, error) {
	params := url.Values{}
	if dialplanContext != "" {
		params.Set("context", dialplanContext)
	}
	if extension != "" {
		params.Set("extension", extension)
	}
	if priority > 0 {
		params.Set("priority", fmt.Sprintf("%d", priority))
	}

	err := c.do(ctx, http.MethodPost, fmt.Sprintf("/channels/%s/continue", channelID), params, nil)
	if err != nil {
		c.log.Error("continue failed channel=%s: %v", channelID, err)
		return false, err
	}
	c.log.Info("channel continued channel=%s context=%s extension=%s priority=%d",
		channelID, dialplanContext, extension, priority)
	return true, nil
}

// SetChannelVar sets an Asterisk channel variable
func (c *RestAriClient) SetChannelVar(ctx context.Context, channelID, name, value string) error {
	params := url.Values{}
	params.Set("variable", name)
	params.Set("value", value)
	return c.do(ctx, http.MethodPost, fmt.Sprintf("/channels/%s/variable", channelID), params, nil)
}

// Hangup terminates a channel
func (c *RestAriClient) Hangup(ctx context.Context, channelID string) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/channels/%s", channelID), nil, nil)
}

// Answer answers a ringing channel
func (c *RestAriClient) Answer(ctx context.Context, channelID string) error {
	return c.do(ctx, http.MethodPost, fmt.Sprintf("/channels/%s/answer", channelID), nil, nil)
}

// PlayAudio starts playback of a media URI on a channel
func (c *RestAriClient) PlayAudio(ctx context.Context, channelID, mediaURI string) error {
	params := url.Values{}
	params.Set("media", mediaURI)
	return c.do(ctx, http.MethodPost, fmt.Sprintf("/channels/%s/play", channelID), params, nil)
}

func (c *RestAriClient) do(ctx context.Context, method, path string, params url.Values, body interface{}) error {
	endpoint := c.config.BaseURL + path
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return err
	}
	req.SetBasicAuth(c.config.Username, c.config.Password)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("ari %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()
	payload, _ := io.ReadAll(io.LimitReader(resp.Body, 512))

	if resp.StatusCode >= 400 {
		return fmt.Errorf("ari %s %s: status %d: %s", method, path, resp.StatusCode, payload)
	}
	return nil
}
