package audio

import (
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// Frame is a bounded chunk of mono s16le PCM.
type Frame struct {
	PCM          []byte
	SampleRateHz int
}

// Config tunes an Engine. Zero values fall back to the session defaults.
type Config struct {
	CaptureSampleRateHz  int
	PlaybackSampleRateHz int
	FrameIntervalMs      int
}

func (c Config) withDefaults() Config {
	if c.CaptureSampleRateHz <= 0 {
		c.CaptureSampleRateHz = 16000
	}
	if c.PlaybackSampleRateHz <= 0 {
		c.PlaybackSampleRateHz = 24000
	}
	if c.FrameIntervalMs <= 0 {
		c.FrameIntervalMs = 200
	}
	return c
}

// Engine owns the capture device handle and the playback queue. One Engine
// serves one session; the orchestrator constructs and destroys it.
type Engine struct {
	cfg    Config
	device CaptureDevice
	sink   PlaybackSink
	logger *zap.Logger

	mu        sync.Mutex
	capturing bool
	destroyed bool
	muted     bool
	volume    float64
	queue     [][]float64
	gen       int

	wake chan struct{}
	done chan struct{}
}

// NewEngine wires an Engine to its devices and starts the playback
// scheduler. The caller must Destroy the engine when the session ends.
func NewEngine(cfg Config, device CaptureDevice, sink PlaybackSink, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	e := &Engine{
		cfg:    cfg.withDefaults(),
		device: device,
		sink:   sink,
		logger: logger,
		volume: 1.0,
		wake:   make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
	go e.playLoop()
	return e
}

// StartCapture acquires the microphone and begins invoking onFrame with
// successive capture frames. Calling while already capturing is a no-op
// with a logged warning. Device acquisition failures propagate to the
// caller.
func (e *Engine) StartCapture(onFrame func(Frame)) error {
	if onFrame == nil {
		return fmt.Errorf("audio: onFrame must not be nil")
	}
	e.mu.Lock()
	if e.destroyed {
		e.mu.Unlock()
		return ErrEngineDestroyed
	}
	if e.capturing {
		e.mu.Unlock()
		e.logger.Warn("capture already active, ignoring StartCapture")
		return nil
	}
	e.capturing = true
	rate := e.cfg.CaptureSampleRateHz
	e.mu.Unlock()

	err := e.device.Open(CaptureConfig{
		SampleRateHz:     rate,
		Channels:         1,
		EchoCancellation: true,
		NoiseSuppression: true,
		FrameIntervalMs:  e.cfg.FrameIntervalMs,
	}, func(pcm []byte) {
		e.mu.Lock()
		active := e.capturing && !e.destroyed
		e.mu.Unlock()
		if !active || len(pcm) == 0 {
			return
		}
		onFrame(Frame{PCM: pcm, SampleRateHz: rate})
	})
	if err != nil {
		e.mu.Lock()
		e.capturing = false
		e.mu.Unlock()
		return fmt.Errorf("audio: start capture: %w", err)
	}
	return nil
}

// StopCapture halts frame production and releases the capture device.
// Safe to call when not capturing.
func (e *Engine) StopCapture() {
	e.mu.Lock()
	if e.destroyed || !e.capturing {
		e.mu.Unlock()
		return
	}
	e.capturing = false
	e.mu.Unlock()
	if err := e.device.Close(); err != nil {
		e.logger.Warn("capture device close failed", zap.Error(err))
	}
}

// Play decodes a playback frame (s16le, 24 kHz, mono) and enqueues it.
// Frames play to completion in strict enqueue order. While muted, frames
// are dropped before decoding (the skip-decode variant: cheaper, at the
// cost of losing audio that arrived while muted if later unmuted).
// Corrupt frames are logged and skipped; they never halt the queue.
func (e *Engine) Play(pcm []byte) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.destroyed {
		return ErrEngineDestroyed
	}
	if e.muted {
		return nil
	}
	if len(pcm) == 0 || len(pcm)%2 != 0 {
		e.logger.Warn("skipping corrupt playback frame", zap.Int("bytes", len(pcm)))
		return nil
	}
	e.queue = append(e.queue, DecodePCM16(pcm))
	e.signalLocked()
	return nil
}

// StopPlayback clears the pending queue and halts the active frame at the
// next sink boundary. Capture is unaffected.
func (e *Engine) StopPlayback() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.destroyed {
		return
	}
	e.queue = nil
	e.gen++
}

// SetVolume adjusts playback gain. Values outside [0, 1] are clamped.
func (e *Engine) SetVolume(v float64) {
	if v < 0 {
		v = 0
	}
	if v > 1 {
		v = 1
	}
	e.mu.Lock()
	e.volume = v
	e.mu.Unlock()
}

// SetMuted toggles mute. See Play for how muted frames are handled.
func (e *Engine) SetMuted(muted bool) {
	e.mu.Lock()
	e.muted = muted
	e.mu.Unlock()
}

// IsCapturing reports whether the capture device is open.
func (e *Engine) IsCapturing() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.capturing
}

// Destroy releases the capture device, the sink, and the scheduler.
// Every other method errors (or no-ops) afterwards.
func (e *Engine) Destroy() {
	e.mu.Lock()
	if e.destroyed {
		e.mu.Unlock()
		return
	}
	wasCapturing := e.capturing
	e.destroyed = true
	e.capturing = false
	e.queue = nil
	e.gen++
	close(e.done)
	e.mu.Unlock()

	if wasCapturing {
		if err := e.device.Close(); err != nil {
			e.logger.Warn("capture device close failed", zap.Error(err))
		}
	}
	if err := e.sink.Close(); err != nil {
		e.logger.Warn("playback sink close failed", zap.Error(err))
	}
}

func (e *Engine) signalLocked() {
	select {
	case e.wake <- struct{}{}:
	default:
	}
}

func (e *Engine) playLoop() {
	for {
		select {
		case <-e.done:
			return
		case <-e.wake:
		}
		for {
			e.mu.Lock()
			if e.destroyed || len(e.queue) == 0 {
				e.mu.Unlock()
				break
			}
			samples := e.queue[0]
			e.queue = e.queue[1:]
			gen := e.gen
			gain := e.volume
			if e.muted {
				// Frames already queued when mute flips render silently so
				// queue state stays consistent.
				gain = 0
			}
			e.mu.Unlock()

			if gain != 1.0 {
				scaled := make([]float64, len(samples))
				for i, s := range samples {
					scaled[i] = s * gain
				}
				samples = scaled
			}

			if err := e.sink.Write(samples); err != nil {
				e.logger.Warn("playback sink write failed, skipping frame", zap.Error(err))
			}

			e.mu.Lock()
			stale := e.gen != gen
			e.mu.Unlock()
			if stale {
				// StopPlayback raced this frame; anything it queued since
				// still plays, anything before it is already gone.
				continue
			}
		}
	}
}
