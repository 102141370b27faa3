package audio

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestChunkEmptyInput(t *testing.T) {
	assert.Nil(t, Chunk(nil, EncodingMulaw, 8000, 20))
	assert.Nil(t, Chunk([]byte{}, EncodingPCM16, 16000, 20))
}

func TestChunkMulaw20ms(t *testing.T) {
	// 8 kHz mu-law: 20 ms is 160 bytes
	data := make([]byte, 480)
	chunks := Chunk(data, EncodingMulaw, 8000, 20)
	assert.Len(t, chunks, 3)
	for _, c := range chunks {
		assert.Len(t, c, 160)
	}
}

func TestChunkPCM16TailShort(t *testing.T) {
	// 16 kHz PCM16: 20 ms is 640 bytes; 1000 bytes splits 640 + 360
	data := make([]byte, 1000)
	chunks := Chunk(data, EncodingPCM16, 16000, 20)
	assert.Len(t, chunks, 2)
	assert.Len(t, chunks[0], 640)
	assert.Len(t, chunks[1], 360)
}

func TestChunkPreservesOrderAndBytes(t *testing.T) {
	data := make([]byte, 500)
	for i := range data {
		data[i] = byte(i % 251)
	}
	chunks := Chunk(data, EncodingMulaw, 8000, 20)

	var joined []byte
	for _, c := range chunks {
		joined = append(joined, c...)
	}
	assert.True(t, bytes.Equal(data, joined))
}
