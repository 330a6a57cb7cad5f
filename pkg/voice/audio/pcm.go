package audio

// DecodePCM16 converts little-endian 16-bit signed PCM bytes into
// normalized float64 samples in [-1, 1). A trailing odd byte is ignored.
func DecodePCM16(pcm []byte) []float64 {
	samples := make([]float64, 0, len(pcm)/2)
	for i := 0; i+1 < len(pcm); i += 2 {
		s := int16(pcm[i]) | int16(pcm[i+1])<<8
		samples = append(samples, float64(s)/32768.0)
	}
	return samples
}

// EncodePCM16 converts normalized float64 samples into little-endian
// 16-bit signed PCM bytes. Values outside [-1, 1] clamp at the int16
// boundary; this is the expected behavior of the 16-bit conversion,
// not an error.
func EncodePCM16(samples []float64) []byte {
	out := make([]byte, len(samples)*2)
	for i, v := range samples {
		scaled := v * 32768.0
		if scaled > 32767 {
			scaled = 32767
		}
		if scaled < -32768 {
			scaled = -32768
		}
		s := int16(scaled)
		out[i*2] = byte(s)
		out[i*2+1] = byte(s >> 8)
	}
	return out
}

// DurationMsFromBytes reports how many milliseconds of mono s16le audio
// the given byte count represents at the given sample rate.
func DurationMsFromBytes(n int, sampleRateHz int) int64 {
	bytesPerSecond := int64(sampleRateHz) * 2
	if bytesPerSecond <= 0 || n <= 0 {
		return 0
	}
	return (int64(n) * 1000) / bytesPerSecond
}
