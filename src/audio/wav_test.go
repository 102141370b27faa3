package audio

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWAVRoundTrip(t *testing.T) {
	pcm := PCMToBytes([]int16{0, 100, -100, 32767, -32768, 42})
	wav := WrapPCMAsWAV(pcm, 16000)

	decoded, rate, err := ParseWAV(wav)
	require.NoError(t, err)
	assert.Equal(t, 16000, rate)
	assert.Equal(t, pcm, decoded)
}

func TestWAVHeaderLayout(t *testing.T) {
	wav := WrapPCMAsWAV(make([]byte, 320), 8000)
	assert.Equal(t, "RIFF", string(wav[0:4]))
	assert.Equal(t, "WAVE", string(wav[8:12]))
	assert.Equal(t, "fmt ", string(wav[12:16]))
	assert.Equal(t, "data", string(wav[36:40]))
	assert.Len(t, wav, 44+320)
}

func TestParseWAVRejectsGarbage(t *testing.T) {
	_, _, err := ParseWAV([]byte("definitely not audio"))
	assert.Error(t, err)

	_, _, err = ParseWAV(nil)
	assert.Error(t, err)
}

func TestParseWAVSkipsExtraChunks(t *testing.T) {
	pcm := PCMToBytes([]int16{1, 2, 3, 4})
	wav := WrapPCMAsWAV(pcm, 24000)

	// Splice a LIST chunk between fmt and data
	withList := append([]byte{}, wav[:36]...)
	withList = append(withList, []byte{'L', 'I', 'S', 'T', 4, 0, 0, 0, 'I', 'N', 'F', 'O'}...)
	withList = append(withList, wav[36:]...)

	decoded, rate, err := ParseWAV(withList)
	require.NoError(t, err)
	assert.Equal(t, 24000, rate)
	assert.Equal(t, pcm, decoded)
}
