package audio

import (
	"errors"
	"sync"
	"testing"
	"time"
)

// fakeCapture records Open/Close calls and lets tests push frames.
type fakeCapture struct {
	mu      sync.Mutex
	opened  int
	closed  int
	openErr error
	onFrame func([]byte)
}

func (f *fakeCapture) Open(_ CaptureConfig, onFrame func([]byte)) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.openErr != nil {
		return f.openErr
	}
	f.opened++
	f.onFrame = onFrame
	return nil
}

func (f *fakeCapture) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed++
	f.onFrame = nil
	return nil
}

func (f *fakeCapture) push(pcm []byte) {
	f.mu.Lock()
	onFrame := f.onFrame
	f.mu.Unlock()
	if onFrame != nil {
		onFrame(pcm)
	}
}

// collectSink records every written frame in order.
type collectSink struct {
	mu     sync.Mutex
	frames [][]float64
	closed bool
}

func (s *collectSink) Write(samples []float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.frames = append(s.frames, samples)
	return nil
}

func (s *collectSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *collectSink) snapshot() [][]float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([][]float64, len(s.frames))
	copy(out, s.frames)
	return out
}

func waitForFrames(t *testing.T, sink *collectSink, n int) [][]float64 {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if frames := sink.snapshot(); len(frames) >= n {
			return frames
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %d playback frames (have %d)", n, len(sink.snapshot()))
	return nil
}

func newTestEngine(t *testing.T) (*Engine, *fakeCapture, *collectSink) {
	t.Helper()
	device := &fakeCapture{}
	sink := &collectSink{}
	engine := NewEngine(Config{}, device, sink, nil)
	t.Cleanup(engine.Destroy)
	return engine, device, sink
}

func TestStartCapture_DeliversFrames(t *testing.T) {
	t.Parallel()

	engine, device, _ := newTestEngine(t)

	var mu sync.Mutex
	var got []Frame
	if err := engine.StartCapture(func(f Frame) {
		mu.Lock()
		got = append(got, f)
		mu.Unlock()
	}); err != nil {
		t.Fatalf("StartCapture error: %v", err)
	}

	device.push([]byte{0x01, 0x02})
	device.push([]byte{0x03, 0x04})

	mu.Lock()
	defer mu.Unlock()
	if len(got) != 2 {
		t.Fatalf("frames=%d, want 2", len(got))
	}
	if got[0].SampleRateHz != 16000 {
		t.Fatalf("sampleRate=%d, want 16000", got[0].SampleRateHz)
	}
}

func TestStartCapture_SecondCallIsNoOp(t *testing.T) {
	t.Parallel()

	engine, device, _ := newTestEngine(t)
	if err := engine.StartCapture(func(Frame) {}); err != nil {
		t.Fatalf("StartCapture error: %v", err)
	}
	if err := engine.StartCapture(func(Frame) {}); err != nil {
		t.Fatalf("second StartCapture should be a no-op, got %v", err)
	}
	device.mu.Lock()
	defer device.mu.Unlock()
	if device.opened != 1 {
		t.Fatalf("device opened %d times, want 1", device.opened)
	}
}

func TestStartCapture_DeviceErrorPropagates(t *testing.T) {
	t.Parallel()

	device := &fakeCapture{openErr: ErrPermissionDenied}
	engine := NewEngine(Config{}, device, &collectSink{}, nil)
	t.Cleanup(engine.Destroy)

	err := engine.StartCapture(func(Frame) {})
	if !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("err=%v, want ErrPermissionDenied", err)
	}
	if engine.IsCapturing() {
		t.Fatal("engine reports capturing after failed open")
	}
}

func TestPlay_FIFOOrder(t *testing.T) {
	t.Parallel()

	engine, _, sink := newTestEngine(t)

	first := EncodePCM16([]float64{0.1, 0.1})
	second := EncodePCM16([]float64{0.2, 0.2})
	third := EncodePCM16([]float64{0.3, 0.3})
	for _, frame := range [][]byte{first, second, third} {
		if err := engine.Play(frame); err != nil {
			t.Fatalf("Play error: %v", err)
		}
	}

	frames := waitForFrames(t, sink, 3)
	for i, want := range []float64{0.1, 0.2, 0.3} {
		got := frames[i][0]
		if got < want-0.01 || got > want+0.01 {
			t.Fatalf("frame %d starts with %v, want ~%v", i, got, want)
		}
	}
}

func TestPlay_WhileMutedDropsFrames(t *testing.T) {
	t.Parallel()

	engine, _, sink := newTestEngine(t)
	engine.SetMuted(true)
	if err := engine.Play(EncodePCM16([]float64{0.5})); err != nil {
		t.Fatalf("Play error: %v", err)
	}
	engine.SetMuted(false)
	if err := engine.Play(EncodePCM16([]float64{0.25})); err != nil {
		t.Fatalf("Play error: %v", err)
	}

	frames := waitForFrames(t, sink, 1)
	if len(frames) != 1 {
		t.Fatalf("frames=%d, want 1 (muted frame dropped)", len(frames))
	}
	if got := frames[0][0]; got < 0.24 || got > 0.26 {
		t.Fatalf("surviving frame starts with %v, want ~0.25", got)
	}
}

func TestPlay_CorruptFrameSkipped(t *testing.T) {
	t.Parallel()

	engine, _, sink := newTestEngine(t)
	if err := engine.Play([]byte{0x01}); err != nil {
		t.Fatalf("odd-length frame should be skipped, got %v", err)
	}
	if err := engine.Play(nil); err != nil {
		t.Fatalf("empty frame should be skipped, got %v", err)
	}
	if err := engine.Play(EncodePCM16([]float64{0.1})); err != nil {
		t.Fatalf("Play error: %v", err)
	}
	frames := waitForFrames(t, sink, 1)
	if len(frames) != 1 {
		t.Fatalf("frames=%d, want 1", len(frames))
	}
}

func TestStopPlayback_ClearsQueue(t *testing.T) {
	t.Parallel()

	// A sink that blocks on the first write keeps the queue backed up so
	// StopPlayback has something to clear.
	release := make(chan struct{})
	sink := &blockingSink{release: release}
	engine := NewEngine(Config{}, &fakeCapture{}, sink, nil)
	t.Cleanup(engine.Destroy)

	for i := 0; i < 5; i++ {
		if err := engine.Play(EncodePCM16([]float64{0.1})); err != nil {
			t.Fatalf("Play error: %v", err)
		}
	}
	sink.waitFirstWrite(t)
	engine.StopPlayback()
	close(release)

	time.Sleep(50 * time.Millisecond)
	if got := sink.count(); got != 1 {
		t.Fatalf("writes=%d, want 1 (queue cleared)", got)
	}
}

func TestDestroy_RejectsFurtherUse(t *testing.T) {
	t.Parallel()

	device := &fakeCapture{}
	sink := &collectSink{}
	engine := NewEngine(Config{}, device, sink, nil)
	if err := engine.StartCapture(func(Frame) {}); err != nil {
		t.Fatalf("StartCapture error: %v", err)
	}
	engine.Destroy()

	if err := engine.Play(EncodePCM16([]float64{0.1})); !errors.Is(err, ErrEngineDestroyed) {
		t.Fatalf("Play after destroy: %v, want ErrEngineDestroyed", err)
	}
	if err := engine.StartCapture(func(Frame) {}); !errors.Is(err, ErrEngineDestroyed) {
		t.Fatalf("StartCapture after destroy: %v, want ErrEngineDestroyed", err)
	}
	sink.mu.Lock()
	closed := sink.closed
	sink.mu.Unlock()
	if !closed {
		t.Fatal("sink not closed on destroy")
	}
	engine.Destroy() // idempotent
}

type blockingSink struct {
	mu      sync.Mutex
	writes  int
	release chan struct{}
}

func (s *blockingSink) Write([]float64) error {
	s.mu.Lock()
	s.writes++
	s.mu.Unlock()
	<-s.release
	return nil
}

func (s *blockingSink) Close() error { return nil }

func (s *blockingSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writes
}

func (s *blockingSink) waitFirstWrite(t *testing.T) {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		s.mu.Lock()
		started := s.writes > 0
		s.mu.Unlock()
		if started {
			return
		}
		select {
		case <-deadline:
			t.Fatal("timed out waiting for first sink write")
		case <-time.After(5 * time.Millisecond):
		}
	}
}
