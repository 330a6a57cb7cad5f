// Package audio owns microphone capture and queued PCM playback for a voice
// session. Hardware access is abstracted behind CaptureDevice and
// PlaybackSink so hosts can plug in whatever backs the platform (a browser
// bridge, ffplay, a test fake).
package audio

import "errors"

var (
	// ErrPermissionDenied is returned when the platform refuses microphone
	// access.
	ErrPermissionDenied = errors.New("audio: capture permission denied")
	// ErrDeviceUnavailable is returned when no capture device exists.
	ErrDeviceUnavailable = errors.New("audio: capture device unavailable")
	// ErrEngineDestroyed is returned by every method after Destroy.
	ErrEngineDestroyed = errors.New("audio: engine destroyed")
)

// CaptureConfig describes the capture stream the engine requests.
type CaptureConfig struct {
	SampleRateHz     int
	Channels         int
	EchoCancellation bool
	NoiseSuppression bool
	// FrameInterval bounds how much audio one frame callback carries,
	// in milliseconds.
	FrameIntervalMs int
}

// CaptureDevice produces s16le PCM frames. Open returns ErrPermissionDenied
// or ErrDeviceUnavailable (possibly wrapped) when acquisition fails; after a
// successful Open the device invokes onFrame until Close.
type CaptureDevice interface {
	Open(cfg CaptureConfig, onFrame func(pcm []byte)) error
	Close() error
}

// PlaybackSink renders normalized mono float64 samples. Write blocks until
// the sink has accepted the whole buffer, which is what serializes the
// engine's FIFO queue into real time.
type PlaybackSink interface {
	Write(samples []float64) error
	Close() error
}
