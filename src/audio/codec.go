package audio

import (
	"encoding/binary"
	"fmt"
)

// Canonical encoding names used across the runtime. All adapters exchange
// audio as EncodingPCM16 at an explicit sample rate; the telephony leg
// carries EncodingMulaw or EncodingAlaw at 8 kHz.
const (
	EncodingPCM16   = "pcm16"
	EncodingMulaw   = "mulaw"
	EncodingAlaw    = "alaw"
	EncodingUnknown = "unknown"
)

// NormalizeEncoding maps codec name variations onto the canonical names
func NormalizeEncoding(encoding string) string {
	switch encoding {
	case "ulaw", "mulaw", "mu-law", "PCMU":
		return EncodingMulaw
	case "alaw", "a-law", "PCMA":
		return EncodingAlaw
	case "pcm", "PCM", "pcm16", "linear16", "slin", "slin16":
		return EncodingPCM16
	default:
		return encoding
	}
}

// IsSilence reports whether PCM16 bytes contain only zero samples
func IsSilence(pcm16 []byte) bool {
	for _, b := range pcm16 {
		if b != 0 {
			return false
		}
	}
	return true
}

// BytesPerSample returns the sample width for an encoding.
// G.711 companded formats are one byte per sample, PCM16 is two.
func BytesPerSample(encoding string) int {
	switch NormalizeEncoding(encoding) {
	case EncodingMulaw, EncodingAlaw:
		return 1
	default:
		return 2
	}
}

// ConvertPCM16 re-encodes PCM16-LE bytes into the target telephony encoding.
// A pcm16 target is a pass-through.
func ConvertPCM16(pcm16 []byte, targetEncoding string) ([]byte, error) {
	switch NormalizeEncoding(targetEncoding) {
	case EncodingPCM16:
		return pcm16, nil
	case EncodingMulaw:
		samples, err := BytesToPCM(pcm16)
		if err != nil {
			return nil, err
		}
		return PCMToMulaw(samples), nil
	case EncodingAlaw:
		samples, err := BytesToPCM(pcm16)
		if err != nil {
			return nil, err
		}
		return PCMToAlaw(samples), nil
	default:
		return nil, fmt.Errorf("unsupported target encoding: %s", targetEncoding)
	}
}

// DecodeToPCM16 decodes telephony-native bytes into PCM16-LE bytes
func DecodeToPCM16(data []byte, sourceEncoding string) ([]byte, error) {
	switch NormalizeEncoding(sourceEncoding) {
	case EncodingPCM16:
		return data, nil
	case EncodingMulaw:
		return PCMToBytes(MulawToPCM(data)), nil
	case EncodingAlaw:
		return PCMToBytes(AlawToPCM(data)), nil
	default:
		return nil, fmt.Errorf("unsupported source encoding: %s", sourceEncoding)
	}
}

// BytesToPCM converts little-endian PCM16 bytes to int16 samples
func BytesToPCM(data []byte) ([]int16, error) {
	if len(data)%2 != 0 {
		return nil, fmt.Errorf("invalid PCM data length: %d", len(data))
	}
	pcm := make([]int16, len(data)/2)
	for i := range pcm {
		pcm[i] = int16(binary.LittleEndian.Uint16(data[i*2:]))
	}
	return pcm, nil
}

// PCMToBytes converts int16 samples to little-endian PCM16 bytes
func PCMToBytes(pcm []int16) []byte {
	data := make([]byte, len(pcm)*2)
	for i, val := range pcm {
		binary.LittleEndian.PutUint16(data[i*2:], uint16(val))
	}
	return data
}

// Resample converts samples between rates using linear interpolation.
// A no-op rate change returns the input unchanged.
func Resample(input []int16, inputRate, outputRate int) []int16 {
	if inputRate == outputRate || len(input) == 0 {
		return input
	}

	ratio := float64(inputRate) / float64(outputRate)
	outputLen := int(float64(len(input)) / ratio)
	output := make([]int16, outputLen)

	for i := 0; i < outputLen; i++ {
		srcPos := float64(i) * ratio
		srcIdx := int(srcPos)
		frac := srcPos - float64(srcIdx)

		if srcIdx+1 < len(input) {
			s1 := float64(input[srcIdx])
			s2 := float64(input[srcIdx+1])
			output[i] = int16(s1 + (s2-s1)*frac)
		} else if srcIdx < len(input) {
			output[i] = input[srcIdx]
		}
	}

	return output
}

// ResampleBytes resamples PCM16-LE bytes between rates
func ResampleBytes(pcm16 []byte, inputRate, outputRate int) ([]byte, error) {
	if inputRate == outputRate {
		return pcm16, nil
	}
	samples, err := BytesToPCM(pcm16)
	if err != nil {
		return nil, err
	}
	return PCMToBytes(Resample(samples, inputRate, outputRate)), nil
}

// MulawToPCM converts mu-law audio to linear PCM int16
func MulawToPCM(mulaw []byte) []int16 {
	pcm := make([]int16, len(mulaw))
	for i, val := range mulaw {
		pcm[i] = mulawDecodeTable[val]
	}
	return pcm
}

// PCMToMulaw converts linear PCM int16 to mu-law
func PCMToMulaw(pcm []int16) []byte {
	mulaw := make([]byte, len(pcm))
	for i, val := range pcm {
		mulaw[i] = mulawEncode(val)
	}
	return mulaw
}

// AlawToPCM converts A-law audio to linear PCM int16
func AlawToPCM(alaw []byte) []int16 {
	pcm := make([]int16, len(alaw))
	for i, val := range alaw {
		pcm[i] = alawDecodeTable[val]
	}
	return pcm
}

// PCMToAlaw converts linear PCM int16 to A-law
func PCMToAlaw(pcm []int16) []byte {
	alaw := make([]byte, len(pcm))
	for i, val := range pcm {
		alaw[i] = alawEncode(val)
	}
	return alaw
}

const (
	mulawBias = 0x84
	mulawClip = 32635
	alawClip  = 32767
)

var mulawDecodeTable = [256]int16{
	-32124, -31100, -30076, -29052, -28028, -27004, -25980, -24956,
	-23932, -22908, -21884, -20860, -19836, -18812, -17788, -16764,
	-15996, -15484, -14972, -14460, -13948, -13436, -12924, -12412,
	-11900, -11388, -10876, -10364, -9852, -9340, -8828, -8316,
	-7932, -7676, -7420, -7164, -6908, -6652, -6396, -6140,
	-5884, -5628, -5372, -5116, -4860, -4604, -4348, -4092,
	-3900, -3772, -3644, -3516, -3388, -3260, -3132, -3004,
	-2876, -2748, -2620, -2492, -2364, -2236, -2108, -1980,
	-1884, -1820, -1756, -1692, -1628, -1564, -1500, -1436,
	-1372, -1308, -1244, -1180, -1116, -1052, -988, -924,
	-876, -844, -812, -780, -748, -716, -684, -652,
	-620, -588, -556, -524, -492, -460, -428, -396,
	-372, -356, -340, -324, -308, -292, -276, -260,
	-244, -228, -212, -196, -180, -164, -148, -132,
	-120, -112, -104, -96, -88, -80, -72, -64,
	-56, -48, -40, -32, -24, -16, -8, 0,
	32124, 31100, 30076, 29052, 28028, 27004, 25980, 24956,
	23932, 22908, 21884, 20860, 19836, 18812, 17788, 16764,
	15996, 15484, 14972, 14460, 13948, 13436, 12924, 12412,
	11900, 11388, 10876, 10364, 9852, 9340, 8828, 8316,
	7932, 7676, 7420, 7164, 6908, 6652, 6396, 6140,
	5884, 5628, 5372, 5116, 4860, 4604, 4348, 4092,
	3900, 3772, 3644, 3516, 3388, 3260, 3132, 3004,
	2876, 2748, 2620, 2492, 2364, 2236, 2108, 1980,
	1884, 1820, 1756, 1692, 1628, 1564, 1500, 1436,
	1372, 1308, 1244, 1180, 1116, 1052, 988, 924,
	876, 844, 812, 780, 748, 716, 684, 652,
	620, 588, 556, 524, 492, 460, 428, 396,
	372, 356, 340, 324, 308, 292, 276, 260,
	244, 228, 212, 196, 180, 164, 148, 132,
	120, 112, 104, 96, 88, 80, 72, 64,
	56, 48, 40, 32, 24, 16, 8, 0,
}

func mulawEncode(pcm int16) byte {
	sign := uint8(0)
	v := int32(pcm)
	if v < 0 {
		sign = 0x80
		v = -v
	}
	if v > mulawClip {
		v = mulawClip
	}
	v += mulawBias

	// Segment search: the biased magnitude's top set bit between 0x100
	// and 0x4000 picks the exponent, the next four bits the mantissa
	exponent := uint8(7)
	for mask := int32(0x4000); v&mask == 0 && exponent > 0; mask >>= 1 {
		exponent--
	}
	mantissa := uint8((v >> (exponent + 3)) & 0x0F)

	return ^(sign | (exponent << 4) | mantissa)
}

var alawDecodeTable = [256]int16{
	-5504, -5248, -6016, -5760, -4480, -4224, -4992, -4736,
	-7552, -7296, -8064, -7808, -6528, -6272, -7040, -6784,
	-2752, -2624, -3008, -2880, -2240, -2112, -2496, -2368,
	-3776, -3648, -4032, -3904, -3264, -3136, -3520, -3392,
	-22016, -20992, -24064, -23040, -17920, -16896, -19968, -18944,
	-30208, -29184, -32256, -31232, -26112, -25088, -28160, -27136,
	-11008, -10496, -12032, -11520, -8960, -8448, -9984, -9472,
	-15104, -14592, -16128, -15616, -13056, -12544, -14080, -13568,
	-344, -328, -376, -360, -280, -264, -312, -296,
	-472, -456, -504, -488, -408, -392, -440, -424,
	-88, -72, -120, -104, -24, -8, -56, -40,
	-216, -200, -248, -232, -152, -136, -184, -168,
	-1376, -1312, -1504, -1440, -1120, -1056, -1248, -1184,
	-1888, -1824, -2016, -1952, -1632, -1568, -1760, -1696,
	-688, -656, -752, -720, -560, -528, -624, -592,
	-944, -912, -1008, -976, -816, -784, -880, -848,
	5504, 5248, 6016, 5760, 4480, 4224, 4992, 4736,
	7552, 7296, 8064, 7808, 6528, 6272, 7040, 6784,
	2752, 2624, 3008, 2880, 2240, 2112, 2496, 2368,
	3776, 3648, 4032, 3904, 3264, 3136, 3520, 3392,
	22016, 20992, 24064, 23040, 17920, 16896, 19968, 18944,
	30208, 29184, 32256, 31232, 26112, 25088, 28160, 27136,
	11008, 10496, 12032, 11520, 8960, 8448, 9984, 9472,
	15104, 14592, 16128, 15616, 13056, 12544, 14080, 13568,
	344, 328, 376, 360, 280, 264, 312, 296,
	472, 456, 504, 488, 408, 392, 440, 424,
	88, 72, 120, 104, 24, 8, 56, 40,
	216, 200, 248, 232, 152, 136, 184, 168,
	1376, 1312, 1504, 1440, 1120, 1056, 1248, 1184,
	1888, 1824, 2016, 1952, 1632, 1568, 1760, 1696,
	688, 656, 752, 720, 560, 528, 624, 592,
	944, 912, 1008, 976, 816, 784, 880, 848,
}

func alawEncode(pcm int16) byte {
	// A-law marks positive samples with the sign bit, matching the
	// decode table's positive half at indices 128-255
	sign := uint8(0x80)
	v := int32(pcm)
	if v < 0 {
		sign = 0
		v = -v
	}
	if v > alawClip {
		v = alawClip
	}

	var compressed uint8
	if v < 0x100 {
		compressed = uint8(v >> 4)
	} else {
		exponent := uint8(7)
		for mask := int32(0x4000); v&mask == 0; mask >>= 1 {
			exponent--
		}
		compressed = (exponent << 4) | uint8((v>>(exponent+3))&0x0F)
	}

	return (sign | compressed) ^ 0x55
}
