// Package config loads the runtime's YAML configuration and overlays
// secrets from the environment.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/ava-voice/ava-agent/src/adapters"
	"github.com/ava-voice/ava-agent/src/pipeline"
)

// AriSettings holds the Asterisk connection block
type AriSettings struct {
	BaseURL  string `yaml:"base_url"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	AppName  string `yaml:"app_name"`
}

// ContextSettings maps a dialplan context to runtime behavior
type ContextSettings struct {
	Pipeline           string            `yaml:"pipeline"`
	SystemPrompt       string            `yaml:"system_prompt"`
	Greeting           string            `yaml:"greeting"`
	TTSOnlyText        string            `yaml:"tts_only_text"`
	AutoHangupAfterTTS bool              `yaml:"auto_hangup_after_tts"`
	Tools              []string          `yaml:"tools"`
	Vars               map[string]string `yaml:"vars"`
}

// CalendarSettings holds the Google Calendar connection block. Tools
// backed by it are registered only when credentials are configured.
type CalendarSettings struct {
	CredentialsPath string `yaml:"credentials_path"`
	CalendarID      string `yaml:"calendar_id"`
	Timezone        string `yaml:"timezone"`
}

// Config is the full runtime configuration
type Config struct {
	Ari       AriSettings                 `yaml:"ari"`
	MediaPort int                         `yaml:"media_port"`
	AdminPort int                         `yaml:"admin_port"`
	StorePath string                      `yaml:"store_path"`
	Apology   string                      `yaml:"apology"`
	Calendar  CalendarSettings            `yaml:"calendar"`
	Providers map[string]adapters.Options `yaml:"providers"`
	Pipelines map[string]pipeline.Entry   `yaml:"pipelines"`
	Contexts  map[string]ContextSettings  `yaml:"contexts"`
}

// Load reads a YAML config file, applies defaults, and overlays
// provider credentials from the environment
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.applyDefaults()
	cfg.applyEnv()

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Ari.BaseURL == "" {
		c.Ari.BaseURL = "http://localhost:8088/ari"
	}
	if c.Ari.AppName == "" {
		c.Ari.AppName = "ava-agent"
	}
	if c.MediaPort == 0 {
		c.MediaPort = 8090
	}
	if c.AdminPort == 0 {
		c.AdminPort = 8091
	}
	if c.StorePath == "" {
		c.StorePath = "ava-agent.db"
	}
	if c.Providers == nil {
		c.Providers = make(map[string]adapters.Options)
	}
}

// applyEnv overlays credentials so keys never have to live in the
// config file. Each environment variable fills every provider block it
// applies to, without clobbering an explicit file value.
func (c *Config) applyEnv() {
	overlay := func(providerKeys []string, optionKey, envName string) {
		value := os.Getenv(envName)
		if value == "" {
			return
		}
		for _, pk := range providerKeys {
			opts := c.Providers[pk]
			if opts == nil {
				opts = adapters.Options{}
			}
			if opts.String(optionKey, "") == "" {
				opts[optionKey] = value
			}
			c.Providers[pk] = opts
		}
	}

	overlay([]string{"azure_stt_fast", "azure_stt_realtime", "azure_tts"}, "api_key", "AZURE_SPEECH_KEY")
	overlay([]string{"azure_stt_fast", "azure_stt_realtime", "azure_tts"}, "region", "AZURE_SPEECH_REGION")
	overlay([]string{"openai_llm"}, "api_key", "OPENAI_API_KEY")
	overlay([]string{"gemini_llm"}, "api_key", "GEMINI_API_KEY")

	if user := os.Getenv("ARI_USERNAME"); user != "" && c.Ari.Username == "" {
		c.Ari.Username = user
	}
	if pass := os.Getenv("ARI_PASSWORD"); pass != "" && c.Ari.Password == "" {
		c.Ari.Password = pass
	}
	if creds := os.Getenv("GOOGLE_CALENDAR_CREDENTIALS"); creds != "" && c.Calendar.CredentialsPath == "" {
		c.Calendar.CredentialsPath = creds
	}
	if id := os.Getenv("GOOGLE_CALENDAR_ID"); id != "" && c.Calendar.CalendarID == "" {
		c.Calendar.CalendarID = id
	}
}

func (c *Config) validate() error {
	if len(c.Pipelines) == 0 {
		return fmt.Errorf("config: at least one pipeline is required")
	}
	for name, ctx := range c.Contexts {
		if ctx.Pipeline == "" {
			return fmt.Errorf("config: context %q names no pipeline", name)
		}
		if _, ok := c.Pipelines[ctx.Pipeline]; !ok {
			return fmt.Errorf("config: context %q references unknown pipeline %q", name, ctx.Pipeline)
		}
	}
	return nil
}

// ProviderDefaults returns the default option layer for an adapter key
func (c *Config) ProviderDefaults(key string) adapters.Options {
	return c.Providers[key].Clone()
}

// Context returns the settings for a dialplan context, falling back to
// the "default" entry
func (c *Config) Context(name string) (ContextSettings, bool) {
	if ctx, ok := c.Contexts[name]; ok {
		return ctx, true
	}
	ctx, ok := c.Contexts["default"]
	return ctx, ok
}
