package adapters

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMergeThreeLayers(t *testing.T) {
	defaults := Options{"a": 1, "b": Options{"x": 1}}
	pipeline := Options{"b": Options{"y": 2}}
	runtime := Options{"b": Options{"x": 9}}

	merged := MergeAll(defaults, pipeline, runtime)

	assert.Equal(t, 1, merged["a"])
	b := merged.Sub("b")
	assert.Equal(t, 9, b["x"])
	assert.Equal(t, 2, b["y"])
}

func TestMergeNilNeverOverrides(t *testing.T) {
	base := Options{"voice": "jenny", "rate": 8000}
	override := Options{"voice": nil, "rate": 16000}

	merged := Merge(base, override)
	assert.Equal(t, "jenny", merged["voice"])
	assert.Equal(t, 16000, merged["rate"])
}

func TestMergeNestedOnlyReplacesPresentKeys(t *testing.T) {
	base := Options{"tts": Options{"voice": "jenny", "format": "riff-8khz-16bit-mono-pcm"}}
	override := Options{"tts": Options{"voice": "nova"}}

	merged := Merge(base, override)
	tts := merged.Sub("tts")
	assert.Equal(t, "nova", tts["voice"])
	assert.Equal(t, "riff-8khz-16bit-mono-pcm", tts["format"])
}

func TestMergeAcceptsPlainMaps(t *testing.T) {
	base := Options{"tts": map[string]interface{}{"voice": "jenny"}}
	override := Options{"tts": map[string]interface{}{"speed": 1.2}}

	tts := Merge(base, override).Sub("tts")
	assert.Equal(t, "jenny", tts["voice"])
	assert.Equal(t, 1.2, tts["speed"])
}

func TestMergeDoesNotMutateInputs(t *testing.T) {
	base := Options{"b": Options{"x": 1}}
	override := Options{"b": Options{"x": 2}}
	_ = Merge(base, override)
	assert.Equal(t, 1, base.Sub("b")["x"])
}

func TestOptionsAccessors(t *testing.T) {
	opts := Options{
		"region":  "eastus",
		"timeout": 30.0, // JSON-style number
		"chunk":   20,
		"flag":    true,
	}

	assert.Equal(t, "eastus", opts.String("region", "westus"))
	assert.Equal(t, "westus", opts.String("missing", "westus"))
	assert.Equal(t, 30, opts.Int("timeout", 5))
	assert.Equal(t, 20, opts.Int("chunk", 5))
	assert.Equal(t, 30.0, opts.Float("timeout", 1.0))
	assert.True(t, opts.Bool("flag", false))
	assert.False(t, opts.Bool("missing", false))
	assert.Empty(t, opts.Sub("missing"))
}
