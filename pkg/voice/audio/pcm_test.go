package audio

import (
	"math"
	"testing"
)

func TestPCM16RoundTrip(t *testing.T) {
	t.Parallel()

	in := []float64{0, 0.25, -0.25, 0.5, -0.5, 0.99, -0.99}
	out := DecodePCM16(EncodePCM16(in))
	if len(out) != len(in) {
		t.Fatalf("len=%d, want %d", len(out), len(in))
	}
	for i := range in {
		if math.Abs(out[i]-in[i]) > 1.0/32768.0 {
			t.Fatalf("sample %d: got %v, want %v within 1/32768", i, out[i], in[i])
		}
	}
}

func TestEncodePCM16_ClampsOutOfRange(t *testing.T) {
	t.Parallel()

	out := EncodePCM16([]float64{2.0, -2.0})
	if got := int16(out[0]) | int16(out[1])<<8; got != 32767 {
		t.Fatalf("positive clamp=%d, want 32767", got)
	}
	if got := int16(out[2]) | int16(out[3])<<8; got != -32768 {
		t.Fatalf("negative clamp=%d, want -32768", got)
	}
}

func TestDecodePCM16_IgnoresTrailingOddByte(t *testing.T) {
	t.Parallel()

	samples := DecodePCM16([]byte{0x00, 0x40, 0x7f})
	if len(samples) != 1 {
		t.Fatalf("len=%d, want 1", len(samples))
	}
	if math.Abs(samples[0]-0.5) > 1.0/32768.0 {
		t.Fatalf("sample=%v, want 0.5", samples[0])
	}
}

func TestDurationMsFromBytes(t *testing.T) {
	t.Parallel()

	// One second of 16 kHz mono s16le is 32000 bytes.
	if got := DurationMsFromBytes(32000, 16000); got != 1000 {
		t.Fatalf("got %d, want 1000", got)
	}
	if got := DurationMsFromBytes(4800, 24000); got != 100 {
		t.Fatalf("got %d, want 100", got)
	}
	if got := DurationMsFromBytes(0, 16000); got != 0 {
		t.Fatalf("got %d, want 0", got)
	}
}
