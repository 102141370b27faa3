package audio

// Chunk splits audio into fixed-duration pieces for paced playback.
// Chunk size is derived from the encoding's sample width, the rate, and
// chunkMS. Empty input yields no chunks; the final chunk may be short.
func Chunk(data []byte, encoding string, sampleRate, chunkMS int) [][]byte {
	if len(data) == 0 {
		return nil
	}

	bytesPerSample := BytesPerSample(encoding)
	frameSize := int(float64(sampleRate) * float64(chunkMS) / 1000.0 * float64(bytesPerSample))
	if frameSize < bytesPerSample {
		frameSize = bytesPerSample
	}

	chunks := make([][]byte, 0, len(data)/frameSize+1)
	for idx := 0; idx < len(data); idx += frameSize {
		end := idx + frameSize
		if end > len(data) {
			end = len(data)
		}
		chunks = append(chunks, data[idx:end])
	}
	return chunks
}
