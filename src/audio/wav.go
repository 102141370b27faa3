package audio

import (
	"encoding/binary"
	"fmt"
)

const wavHeaderSize = 44

// WrapPCMAsWAV wraps raw mono PCM16-LE bytes in a RIFF/WAV container.
// Needed for providers that expect file-shaped uploads (Azure fast STT).
func WrapPCMAsWAV(pcm []byte, sampleRate int) []byte {
	const channels = 1
	const bitsPerSample = 16
	dataSize := len(pcm)
	byteRate := sampleRate * channels * bitsPerSample / 8
	blockAlign := channels * bitsPerSample / 8

	wav := make([]byte, wavHeaderSize+dataSize)

	copy(wav[0:4], "RIFF")
	binary.LittleEndian.PutUint32(wav[4:8], uint32(36+dataSize))
	copy(wav[8:12], "WAVE")

	copy(wav[12:16], "fmt ")
	binary.LittleEndian.PutUint32(wav[16:20], 16) // PCM subchunk size
	binary.LittleEndian.PutUint16(wav[20:22], 1)  // audio format: PCM
	binary.LittleEndian.PutUint16(wav[22:24], channels)
	binary.LittleEndian.PutUint32(wav[24:28], uint32(sampleRate))
	binary.LittleEndian.PutUint32(wav[28:32], uint32(byteRate))
	binary.LittleEndian.PutUint16(wav[32:34], uint16(blockAlign))
	binary.LittleEndian.PutUint16(wav[34:36], bitsPerSample)

	copy(wav[36:40], "data")
	binary.LittleEndian.PutUint32(wav[40:44], uint32(dataSize))
	copy(wav[44:], pcm)

	return wav
}

// ParseWAV extracts PCM16-LE frames and the sample rate from a RIFF/WAV
// container. Only uncompressed 16-bit PCM is supported; chunks other than
// "fmt " and "data" are skipped.
func ParseWAV(wav []byte) ([]byte, int, error) {
	if len(wav) < 12 || string(wav[0:4]) != "RIFF" || string(wav[8:12]) != "WAVE" {
		return nil, 0, fmt.Errorf("not a RIFF/WAVE container")
	}

	var sampleRate int
	var bitsPerSample uint16
	var audioFormat uint16
	var data []byte
	sawFmt := false

	offset := 12
	for offset+8 <= len(wav) {
		chunkID := string(wav[offset : offset+4])
		chunkSize := int(binary.LittleEndian.Uint32(wav[offset+4 : offset+8]))
		body := offset + 8
		if body+chunkSize > len(wav) {
			chunkSize = len(wav) - body
		}

		switch chunkID {
		case "fmt ":
			if chunkSize < 16 {
				return nil, 0, fmt.Errorf("malformed fmt chunk (%d bytes)", chunkSize)
			}
			audioFormat = binary.LittleEndian.Uint16(wav[body : body+2])
			sampleRate = int(binary.LittleEndian.Uint32(wav[body+4 : body+8]))
			bitsPerSample = binary.LittleEndian.Uint16(wav[body+14 : body+16])
			sawFmt = true
		case "data":
			data = wav[body : body+chunkSize]
		}

		// Chunks are word-aligned
		if chunkSize%2 == 1 {
			chunkSize++
		}
		offset = body + chunkSize
	}

	if !sawFmt || data == nil {
		return nil, 0, fmt.Errorf("missing fmt or data chunk")
	}
	if audioFormat != 1 || bitsPerSample != 16 {
		return nil, 0, fmt.Errorf("unsupported WAV format %d/%d-bit", audioFormat, bitsPerSample)
	}

	return data, sampleRate, nil
}
