package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleConfig = `
ari:
  base_url: http://asterisk:8088/ari
  username: agent
  password: secret

media_port: 9000

providers:
  azure_tts:
    region: westeurope
    voice_name: en-US-JennyNeural
  openai_llm:
    model: gpt-4o-mini

pipelines:
  default:
    stt: azure_stt_fast
    llm: openai_llm
    tts: azure_tts
    options:
      tts:
        chunk_size_ms: 20
  announce:
    type: tts_only
    tts: azure_tts

contexts:
  default:
    pipeline: default
    system_prompt: You are a helpful phone agent.
    tools: [exit_to_dialplan, hangup_call]
  broadcast:
    pipeline: announce
    tts_only_text: "Hello {name}"
    auto_hangup_after_tts: true
    vars:
      name: caller
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadParsesFullConfig(t *testing.T) {
	cfg, err := Load(writeConfig(t, sampleConfig))
	require.NoError(t, err)

	assert.Equal(t, "http://asterisk:8088/ari", cfg.Ari.BaseURL)
	assert.Equal(t, 9000, cfg.MediaPort)
	assert.Equal(t, "ava-agent", cfg.Ari.AppName) // default applied

	pipe := cfg.Pipelines["default"]
	assert.Equal(t, "azure_stt_fast", pipe.STT)
	assert.Equal(t, 20, pipe.Options["tts"].Int("chunk_size_ms", 0))

	broadcast := cfg.Contexts["broadcast"]
	assert.True(t, broadcast.AutoHangupAfterTTS)
	assert.Equal(t, "caller", broadcast.Vars["name"])

	assert.Equal(t, "westeurope", cfg.ProviderDefaults("azure_tts").String("region", ""))
}

func TestLoadEnvOverlayFillsMissingKeys(t *testing.T) {
	t.Setenv("AZURE_SPEECH_KEY", "azure-secret")
	t.Setenv("OPENAI_API_KEY", "openai-secret")

	cfg, err := Load(writeConfig(t, sampleConfig))
	require.NoError(t, err)

	assert.Equal(t, "azure-secret", cfg.ProviderDefaults("azure_tts").String("api_key", ""))
	assert.Equal(t, "azure-secret", cfg.ProviderDefaults("azure_stt_fast").String("api_key", ""))
	assert.Equal(t, "openai-secret", cfg.ProviderDefaults("openai_llm").String("api_key", ""))
	// File values win over the environment
	assert.Equal(t, "westeurope", cfg.ProviderDefaults("azure_tts").String("region", ""))
}

func TestLoadEnvOverlayFillsCalendarBlock(t *testing.T) {
	t.Setenv("GOOGLE_CALENDAR_CREDENTIALS", "/etc/ava/calendar.json")
	t.Setenv("GOOGLE_CALENDAR_ID", "bookings@example.com")

	cfg, err := Load(writeConfig(t, sampleConfig))
	require.NoError(t, err)
	assert.Equal(t, "/etc/ava/calendar.json", cfg.Calendar.CredentialsPath)
	assert.Equal(t, "bookings@example.com", cfg.Calendar.CalendarID)

	// File values win over the environment
	withFile := sampleConfig + `
calendar:
  credentials_path: /srv/key.json
  calendar_id: front-desk@example.com
  timezone: Europe/Berlin
`
	cfg, err = Load(writeConfig(t, withFile))
	require.NoError(t, err)
	assert.Equal(t, "/srv/key.json", cfg.Calendar.CredentialsPath)
	assert.Equal(t, "front-desk@example.com", cfg.Calendar.CalendarID)
	assert.Equal(t, "Europe/Berlin", cfg.Calendar.Timezone)
}

func TestLoadRejectsContextWithUnknownPipeline(t *testing.T) {
	bad := `
pipelines:
  default:
    tts: azure_tts
contexts:
  default:
    pipeline: missing
`
	_, err := Load(writeConfig(t, bad))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing")
}

func TestLoadRequiresPipelines(t *testing.T) {
	_, err := Load(writeConfig(t, `media_port: 9000`))
	require.Error(t, err)
}

func TestContextFallsBackToDefault(t *testing.T) {
	cfg, err := Load(writeConfig(t, sampleConfig))
	require.NoError(t, err)

	ctx, ok := cfg.Context("from-pstn")
	assert.True(t, ok)
	assert.Equal(t, "default", ctx.Pipeline)

	ctx, ok = cfg.Context("broadcast")
	assert.True(t, ok)
	assert.Equal(t, "announce", ctx.Pipeline)
}
