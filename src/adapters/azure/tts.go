package azure

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ava-voice/ava-agent/src/adapters"
	"github.com/ava-voice/ava-agent/src/audio"
	"github.com/ava-voice/ava-agent/src/logger"
)

const defaultOutputFormat = "riff-8khz-16bit-mono-pcm"

// TTS is the Azure text-to-speech REST adapter.
//
// Endpoint: POST {region}.tts.speech.microsoft.com/cognitiveservices/v1
// Input:    SSML XML body
// Output:   audio bytes in the X-Microsoft-OutputFormat encoding
type TTS struct {
	client *Client
	log    *logger.Logger
}

// NewTTS creates the TTS adapter on a shared client
func NewTTS(client *Client) *TTS {
	return &TTS{client: client, log: logger.WithPrefix("[AzureTTS]")}
}

func (a *TTS) Key() string { return "azure_tts" }

func (a *TTS) Start(ctx context.Context) error { return nil }

func (a *TTS) Stop() error {
	a.client.Close()
	return nil
}

func (a *TTS) OpenCall(ctx context.Context, callID string, opts adapters.Options) error {
	a.client.HTTP()
	return nil
}

func (a *TTS) CloseCall(ctx context.Context, callID string) error { return nil }

func (a *TTS) ValidateConnectivity(ctx context.Context, opts adapters.Options) adapters.ConnectivityStatus {
	return validateSpeechKey(ctx, a.client, opts)
}

// Synthesize requests SSML synthesis, converts the response into the
// target telephony encoding, and streams fixed-duration chunks on the
// returned channel. Empty text yields a closed channel with no request.
func (a *TTS) Synthesize(ctx context.Context, callID, text string, opts adapters.Options) (<-chan []byte, error) {
	out := make(chan []byte, 8)
	if text == "" {
		close(out)
		return out, nil
	}

	apiKey := opts.String("api_key", "")
	if apiKey == "" {
		close(out)
		return out, fmt.Errorf("azure tts requires api_key")
	}

	region := opts.String("region", "eastus")
	url := opts.String("tts_base_url", ttsURL(region))
	voiceName := opts.String("voice_name", "en-US-JennyNeural")
	language := opts.String("language", "")
	outputFormat := opts.String("output_format", defaultOutputFormat)
	targetEncoding := audio.NormalizeEncoding(opts.String("target_encoding", audio.EncodingMulaw))
	targetRate := opts.Int("target_sample_rate_hz", 8000)
	chunkMS := opts.Int("chunk_size_ms", 20)

	ssml := buildSSML(text, voiceName, language)

	reqCtx, cancel := context.WithTimeout(ctx, requestTimeout(opts, 30))
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, url, strings.NewReader(ssml))
	if err != nil {
		close(out)
		return out, err
	}
	req.Header.Set("Ocp-Apim-Subscription-Key", apiKey)
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "application/ssml+xml")
	req.Header.Set("X-Microsoft-OutputFormat", outputFormat)

	a.log.Info("synthesis started call=%s voice=%s format=%s chars=%d", callID, voiceName, outputFormat, len(text))
	started := time.Now()

	resp, err := a.client.HTTP().Do(req)
	if err != nil {
		close(out)
		return out, fmt.Errorf("azure tts request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		close(out)
		return out, err
	}

	if resp.StatusCode >= 400 {
		close(out)
		a.log.Error("synthesis failed call=%s status=%d", callID, resp.StatusCode)
		return out, adapters.NewProviderRequestError("Azure TTS", resp.StatusCode, raw)
	}

	converted, err := a.convert(raw, outputFormat, targetEncoding, targetRate)
	if err != nil {
		close(out)
		return out, err
	}

	a.log.Info("synthesis completed call=%s bytes=%d latency=%s target=%s/%d",
		callID, len(converted), time.Since(started).Round(time.Millisecond), targetEncoding, targetRate)

	go func() {
		defer close(out)
		for _, chunk := range audio.Chunk(converted, targetEncoding, targetRate, chunkMS) {
			select {
			case out <- chunk:
			case <-ctx.Done():
				return
			}
		}
	}()

	return out, nil
}

// convert takes vendor bytes to the target encoding/rate. Audio tagged
// unknown by the codec layer is dropped with a warning.
func (a *TTS) convert(raw []byte, outputFormat, targetEncoding string, targetRate int) ([]byte, error) {
	decoded, sourceRate, nativeEncoding := audio.DecodeVendorAudio(raw, outputFormat)

	switch nativeEncoding {
	case audio.EncodingPCM16:
		pcm := decoded
		if sourceRate != targetRate {
			resampled, err := audio.ResampleBytes(pcm, sourceRate, targetRate)
			if err != nil {
				return nil, err
			}
			pcm = resampled
		}
		return audio.ConvertPCM16(pcm, targetEncoding)
	case targetEncoding:
		// Already in the target telephony encoding, e.g. raw mu-law out
		// of the vendor headed for a mu-law channel
		return decoded, nil
	case audio.EncodingUnknown:
		// Bytes in an unrecognized format would play as noise on a
		// telephony leg, so they are dropped rather than forwarded
		a.log.Warn("unknown output format %q; dropping %d bytes", outputFormat, len(decoded))
		return nil, nil
	default:
		pcm, err := audio.DecodeToPCM16(decoded, nativeEncoding)
		if err != nil {
			return nil, err
		}
		if sourceRate != targetRate {
			pcm, err = audio.ResampleBytes(pcm, sourceRate, targetRate)
			if err != nil {
				return nil, err
			}
		}
		return audio.ConvertPCM16(pcm, targetEncoding)
	}
}

// buildSSML wraps text in a minimal SSML document. The xml:lang falls
// back to the voice name's locale prefix (en-US-JennyNeural -> en-US).
func buildSSML(text, voiceName, language string) string {
	lang := language
	if lang == "" {
		parts := strings.SplitN(voiceName, "-", 3)
		if len(parts) >= 2 {
			lang = parts[0] + "-" + parts[1]
		} else {
			lang = "en-US"
		}
	}

	replacer := strings.NewReplacer(
		"&", "&amp;",
		"<", "&lt;",
		">", "&gt;",
		`"`, "&quot;",
		"'", "&apos;",
	)

	var b bytes.Buffer
	fmt.Fprintf(&b, "<speak version='1.0' xml:lang='%s'>", lang)
	fmt.Fprintf(&b, "<voice name='%s'>%s</voice>", voiceName, replacer.Replace(text))
	b.WriteString("</speak>")
	return b.String()
}
