package audio

// Format describes a provider's named output format: the encoding it
// carries, the sample rate implied by the name, and whether the payload
// is wrapped in a RIFF container.
type Format struct {
	Encoding    string
	SampleRate  int
	RIFFWrapped bool
}

// formatTable maps vendor output-format names onto descriptors. Keys are
// the Azure Speech REST names; lookup is by exact string.
var formatTable = map[string]Format{
	// raw-*: no container, native encoding
	"raw-8khz-8bit-mono-mulaw": {Encoding: EncodingMulaw, SampleRate: 8000},
	"raw-8khz-8bit-mono-alaw":  {Encoding: EncodingAlaw, SampleRate: 8000},
	"raw-8khz-16bit-mono-pcm":  {Encoding: EncodingPCM16, SampleRate: 8000},
	"raw-16khz-16bit-mono-pcm": {Encoding: EncodingPCM16, SampleRate: 16000},
	"raw-24khz-16bit-mono-pcm": {Encoding: EncodingPCM16, SampleRate: 24000},
	// riff-*: RIFF/WAV container wrapping PCM
	"riff-8khz-16bit-mono-pcm":  {Encoding: EncodingPCM16, SampleRate: 8000, RIFFWrapped: true},
	"riff-16khz-16bit-mono-pcm": {Encoding: EncodingPCM16, SampleRate: 16000, RIFFWrapped: true},
	"riff-24khz-16bit-mono-pcm": {Encoding: EncodingPCM16, SampleRate: 24000, RIFFWrapped: true},
}

// LookupFormat returns the descriptor for a vendor format name
func LookupFormat(name string) (Format, bool) {
	f, ok := formatTable[name]
	return f, ok
}

// DecodeVendorAudio decodes provider response bytes into canonical form.
// It returns the audio bytes, their sample rate, and their encoding
// (pcm16 or a native telephony encoding left as-is).
//
// An unrecognized format is not fatal: a generic WAV decode is attempted
// first, and on failure the original bytes are returned tagged
// EncodingUnknown at 8 kHz so the caller can decide to drop or pass
// through.
func DecodeVendorAudio(raw []byte, formatName string) ([]byte, int, string) {
	f, ok := LookupFormat(formatName)
	if !ok {
		if pcm, rate, err := ParseWAV(raw); err == nil {
			return pcm, rate, EncodingPCM16
		}
		return raw, 8000, EncodingUnknown
	}

	if f.RIFFWrapped {
		pcm, rate, err := ParseWAV(raw)
		if err != nil {
			return raw, f.SampleRate, EncodingUnknown
		}
		return pcm, rate, EncodingPCM16
	}

	return raw, f.SampleRate, f.Encoding
}
