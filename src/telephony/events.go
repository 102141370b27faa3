package telephony

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ava-voice/ava-agent/src/logger"
)

// Channel is the subset of the ARI channel object the runtime uses
type Channel struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	State  string `json:"state"`
	Caller struct {
		Name   string `json:"name"`
		Number string `json:"number"`
	} `json:"caller"`
	Dialplan struct {
		Context  string `json:"context"`
		Exten    string `json:"exten"`
		Priority int    `json:"priority"`
	} `json:"dialplan"`
}

// EventHandlers receives call lifecycle notifications from the ARI
// event stream. Nil handlers are skipped.
type EventHandlers struct {
	OnStasisStart      func(ctx context.Context, channel Channel, args []string)
	OnStasisEnd        func(ctx context.Context, channel Channel)
	OnChannelDestroyed func(ctx context.Context, channelID string, cause int)
}

// EventClient consumes the ARI WebSocket event stream and dispatches
// call lifecycle events
type EventClient struct {
	config   AriConfig
	handlers EventHandlers
	log      *logger.Logger
}

// NewEventClient creates an event stream client
func NewEventClient(config AriConfig, handlers EventHandlers) *EventClient {
	return &EventClient{
		config:   config,
		handlers: handlers,
		log:      logger.WithPrefix("[ARIEvents]"),
	}
}

// Run connects to the event stream and dispatches events until ctx is
// canceled, reconnecting with a fixed backoff on failure
func (c *EventClient) Run(ctx context.Context) error {
	wsURL, err := c.eventsURL()
	if err != nil {
		return err
	}

	for {
		if err := c.consume(ctx, wsURL); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			c.log.Warn("event stream dropped: %v, reconnecting", err)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(3 * time.Second):
		}
	}
}

func (c *EventClient) eventsURL() (string, error) {
	base, err := url.Parse(c.config.BaseURL)
	if err != nil {
		return "", fmt.Errorf("ari base url: %w", err)
	}
	switch base.Scheme {
	case "http":
		base.Scheme = "ws"
	case "https":
		base.Scheme = "wss"
	}
	base.Path = base.Path + "/events"

	params := url.Values{}
	params.Set("app", c.config.AppName)
	params.Set("api_key", c.config.Username+":"+c.config.Password)
	params.Set("subscribeAll", "false")
	base.RawQuery = params.Encode()
	return base.String(), nil
}

func (c *EventClient) consume(ctx context.Context, wsURL string) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return fmt.Errorf("ari events dial: %w", err)
	}
	defer conn.Close()
	c.log.Info("event stream connected app=%s", c.config.AppName)

	// The watcher must not outlive this connection, or reconnect cycles
	// would accumulate one goroutine each
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		c.dispatch(ctx, message)
	}
}

func (c *EventClient) dispatch(ctx context.Context, message []byte) {
	var envelope struct {
		Type    string   `json:"type"`
		Args    []string `json:"args"`
		Channel Channel  `json:"channel"`
		Cause   int      `json:"cause"`
	}
	if err := json.Unmarshal(message, &envelope); err != nil {
		c.log.Debug("unparseable event: %v", err)
		return
	}

	switch envelope.Type {
	case "StasisStart":
		c.log.Info("StasisStart channel=%s caller=%s", envelope.Channel.ID, envelope.Channel.Caller.Number)
		if c.handlers.OnStasisStart != nil {
			c.handlers.OnStasisStart(ctx, envelope.Channel, envelope.Args)
		}
	case "StasisEnd":
		c.log.Info("StasisEnd channel=%s", envelope.Channel.ID)
		if c.handlers.OnStasisEnd != nil {
			c.handlers.OnStasisEnd(ctx, envelope.Channel)
		}
	case "ChannelDestroyed":
		c.log.Info("ChannelDestroyed channel=%s cause=%d", envelope.Channel.ID, envelope.Cause)
		if c.handlers.OnChannelDestroyed != nil {
			c.handlers.OnChannelDestroyed(ctx, envelope.Channel.ID, envelope.Cause)
		}
	default:
		c.log.Debug("ignoring event type=%s", envelope.Type)
	}
}
