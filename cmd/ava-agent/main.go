package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/ava-voice/ava-agent/src/adapters/azure"
	"github.com/ava-voice/ava-agent/src/adapters/gemini"
	"github.com/ava-voice/ava-agent/src/adapters/openai"
	"github.com/ava-voice/ava-agent/src/audio"
	"github.com/ava-voice/ava-agent/src/config"
	"github.com/ava-voice/ava-agent/src/logger"
	"github.com/ava-voice/ava-agent/src/pipeline"
	"github.com/ava-voice/ava-agent/src/session"
	"github.com/ava-voice/ava-agent/src/store"
	"github.com/ava-voice/ava-agent/src/telephony"
	"github.com/ava-voice/ava-agent/src/tools"
	"github.com/ava-voice/ava-agent/src/tools/business"
	tooltel "github.com/ava-voice/ava-agent/src/tools/telephony"
)

// utteranceCollector batches inbound mu-law frames per channel and
// flushes a turn after a quiet gap
type utteranceCollector struct {
	mu      sync.Mutex
	buffers map[string][]byte
	timers  map[string]*time.Timer
	gap     time.Duration
	onFlush func(channelID string, pcm16 []byte, sampleRate int)
}

func newUtteranceCollector(gap time.Duration, onFlush func(string, []byte, int)) *utteranceCollector {
	return &utteranceCollector{
		buffers: make(map[string][]byte),
		timers:  make(map[string]*time.Timer),
		gap:     gap,
		onFlush: onFlush,
	}
}

func (c *utteranceCollector) Add(channelID string, mulaw []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.buffers[channelID] = append(c.buffers[channelID], mulaw...)
	if t, ok := c.timers[channelID]; ok {
		t.Reset(c.gap)
		return
	}
	c.timers[channelID] = time.AfterFunc(c.gap, func() { c.flush(channelID) })
}

func (c *utteranceCollector) flush(channelID string) {
	c.mu.Lock()
	buffered := c.buffers[channelID]
	delete(c.buffers, channelID)
	delete(c.timers, channelID)
	c.mu.Unlock()

	if len(buffered) == 0 {
		return
	}
	pcm16, err := audio.DecodeToPCM16(buffered, audio.EncodingMulaw)
	if err != nil {
		return
	}
	c.onFlush(channelID, pcm16, 8000)
}

func (c *utteranceCollector) Drop(channelID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if t, ok := c.timers[channelID]; ok {
		t.Stop()
	}
	delete(c.buffers, channelID)
	delete(c.timers, channelID)
}

func main() {
	configPath := flag.String("config", "config.yaml", "path to configuration file")
	flag.Parse()

	godotenv.Load()
	logger.Init()
	log := logger.WithPrefix("[Main]")

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Error("configuration: %v", err)
		os.Exit(1)
	}

	db, err := store.Open(cfg.StorePath)
	if err != nil {
		log.Error("store: %v", err)
		os.Exit(1)
	}
	defer db.Close()

	// Provider adapters share one Azure HTTP client
	azureClient := azure.NewClient()
	registry := pipeline.NewRegistry()
	registry.RegisterSTT(azure.NewSTTFast(azureClient), cfg.ProviderDefaults("azure_stt_fast"))
	registry.RegisterSTT(azure.NewSTTRealtime(azureClient), cfg.ProviderDefaults("azure_stt_realtime"))
	registry.RegisterTTS(azure.NewTTS(azureClient), cfg.ProviderDefaults("azure_tts"))
	registry.RegisterLLM(openai.NewLLM(), cfg.ProviderDefaults("openai_llm"))
	registry.RegisterLLM(gemini.NewLLM(), cfg.ProviderDefaults("gemini_llm"))

	orchestrator, err := pipeline.NewOrchestrator(registry, cfg.Pipelines)
	if err != nil {
		log.Error("pipelines: %v", err)
		os.Exit(1)
	}

	ari := telephony.NewRestAriClient(telephony.AriConfig{
		BaseURL:  cfg.Ari.BaseURL,
		Username: cfg.Ari.Username,
		Password: cfg.Ari.Password,
		AppName:  cfg.Ari.AppName,
	})

	// The collector closes over manager, assigned right after the media
	// server that feeds it
	var manager *session.Manager
	collector := newUtteranceCollector(600*time.Millisecond, func(channelID string, pcm16 []byte, sampleRate int) {
		sess := manager.SessionByChannel(channelID)
		if sess == nil {
			return
		}
		if err := manager.ProcessTurn(sess.Context(), sess.ID, pcm16, sampleRate); err != nil {
			log.Warn("turn failed channel=%s: %v", channelID, err)
		}
	})

	media := telephony.NewMediaServer(cfg.MediaPort, collector.Add)
	manager = session.NewManager(orchestrator, ari, media, db)
	manager.SetApology(cfg.Apology)

	toolRegistry := tools.NewRegistry()
	builtins := []tools.Tool{
		tooltel.NewExitToDialplan("internal", "operator", 1),
		tooltel.NewHangup(),
		tooltel.NewSetChannelVar(),
	}
	if cal := buildCalendar(cfg, log); cal != nil {
		builtins = append(builtins,
			business.NewListEvents(cal),
			business.NewGetEvent(cal),
			business.NewCreateEvent(cal),
		)
	}
	for _, tool := range builtins {
		if err := toolRegistry.Register(tool); err != nil {
			log.Error("tool registry: %v", err)
			os.Exit(1)
		}
	}

	executor := tools.NewExecutor(toolRegistry, func(callID string) (*tools.Context, error) {
		sess := manager.Session(callID)
		if sess == nil {
			return nil, fmt.Errorf("no active call %s", callID)
		}
		return &tools.Context{
			CallID:          callID,
			CallerChannelID: sess.ChannelID,
			Session:         sess,
			Manager:         manager,
			Ari:             ari,
		}, nil
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	for _, a := range registry.Adapters() {
		if err := a.Start(ctx); err != nil {
			log.Error("adapter %s start: %v", a.Key(), err)
			os.Exit(1)
		}
	}
	defer func() {
		for _, a := range registry.Adapters() {
			if err := a.Stop(); err != nil {
				log.Warn("adapter %s stop: %v", a.Key(), err)
			}
		}
	}()

	if err := media.Start(ctx); err != nil {
		log.Error("media server: %v", err)
		os.Exit(1)
	}
	defer media.Stop()

	admin := newAdminServer(cfg.AdminPort, manager, executor, db, registry, cfg)
	admin.Start(ctx)
	defer admin.Stop()

	events := telephony.NewEventClient(telephony.AriConfig{
		BaseURL:  cfg.Ari.BaseURL,
		Username: cfg.Ari.Username,
		Password: cfg.Ari.Password,
		AppName:  cfg.Ari.AppName,
	}, telephony.EventHandlers{
		OnStasisStart: func(ctx context.Context, channel telephony.Channel, args []string) {
			settings, ok := cfg.Context(channel.Dialplan.Context)
			if !ok {
				log.Warn("no context settings for %s, dropping channel %s", channel.Dialplan.Context, channel.ID)
				return
			}

			if err := ari.Answer(ctx, channel.ID); err != nil {
				log.Error("answer failed channel=%s: %v", channel.ID, err)
				return
			}

			profile := session.ContextProfile{
				Pipeline:           settings.Pipeline,
				SystemPrompt:       settings.SystemPrompt,
				Greeting:           settings.Greeting,
				TTSOnlyText:        settings.TTSOnlyText,
				AutoHangupAfterTTS: settings.AutoHangupAfterTTS,
				Vars:               mergeVars(settings.Vars, channel),
			}
			if _, err := manager.StartCall(ctx, channel.ID, profile, nil); err != nil {
				log.Error("call start failed channel=%s: %v", channel.ID, err)
				ari.Hangup(ctx, channel.ID)
			}
		},
		OnStasisEnd: func(ctx context.Context, channel telephony.Channel) {
			collector.Drop(channel.ID)
			manager.HandleChannelEnd(ctx, channel.ID)
		},
		OnChannelDestroyed: func(ctx context.Context, channelID string, cause int) {
			collector.Drop(channelID)
			manager.HandleChannelEnd(ctx, channelID)
		},
	})

	log.Info("agent up: ari=%s app=%s media_port=%d pipelines=%d",
		cfg.Ari.BaseURL, cfg.Ari.AppName, cfg.MediaPort, len(cfg.Pipelines))

	if err := events.Run(ctx); err != nil && ctx.Err() == nil {
		log.Error("event loop: %v", err)
		os.Exit(1)
	}
	log.Info("shutting down")
}

// buildCalendar connects the Google Calendar client when credentials
// are configured. A missing block just skips the calendar tools; a bad
// credential file is reported but does not stop the agent.
func buildCalendar(cfg *config.Config, log *logger.Logger) *business.GoogleCalendar {
	if cfg.Calendar.CredentialsPath == "" {
		return nil
	}
	cal, err := business.NewGoogleCalendar(context.Background(),
		cfg.Calendar.CredentialsPath, cfg.Calendar.CalendarID, cfg.Calendar.Timezone)
	if err != nil {
		log.Error("calendar unavailable: %v", err)
		return nil
	}
	return cal
}

// mergeVars combines configured vars with caller identity from the
// channel
func mergeVars(configured map[string]string, channel telephony.Channel) map[string]string {
	vars := make(map[string]string, len(configured)+2)
	for k, v := range configured {
		vars[k] = v
	}
	if channel.Caller.Number != "" {
		vars["caller_number"] = channel.Caller.Number
	}
	if channel.Caller.Name != "" {
		vars["caller_name"] = channel.Caller.Name
	}
	return vars
}
