package audio

import (
	"fmt"
	"io"
	"os/exec"
	"runtime"
	"sync"
)

// FFmpegCapture reads microphone PCM from an ffmpeg subprocess. It is the
// capture device used by CLI sessions; browser-hosted sessions supply
// their own CaptureDevice.
type FFmpegCapture struct {
	mu     sync.Mutex
	cmd    *exec.Cmd
	stdout io.ReadCloser
}

func NewFFmpegCapture() *FFmpegCapture { return &FFmpegCapture{} }

func (c *FFmpegCapture) Open(cfg CaptureConfig, onFrame func([]byte)) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cmd != nil {
		return fmt.Errorf("ffmpeg capture already open")
	}
	if _, err := exec.LookPath("ffmpeg"); err != nil {
		return fmt.Errorf("%w: ffmpeg not found in PATH", ErrDeviceUnavailable)
	}

	args, err := micArgs(runtime.GOOS, cfg.SampleRateHz)
	if err != nil {
		return err
	}
	cmd := exec.Command("ffmpeg", args...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("open ffmpeg stdout: %w", err)
	}
	cmd.Stderr = io.Discard
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("%w: start ffmpeg: %v", ErrDeviceUnavailable, err)
	}
	c.cmd = cmd
	c.stdout = stdout

	frameBytes := cfg.SampleRateHz * 2 * cfg.FrameIntervalMs / 1000
	if frameBytes <= 0 {
		frameBytes = cfg.SampleRateHz * 2 / 10
	}
	go func() {
		buf := make([]byte, frameBytes)
		for {
			n, err := io.ReadFull(stdout, buf)
			if n > 0 {
				frame := make([]byte, n)
				copy(frame, buf[:n])
				onFrame(frame)
			}
			if err != nil {
				return
			}
		}
	}()
	return nil
}

func (c *FFmpegCapture) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cmd == nil {
		return nil
	}
	_ = c.stdout.Close()
	_ = c.cmd.Process.Kill()
	_ = c.cmd.Wait()
	c.cmd = nil
	c.stdout = nil
	return nil
}

func micArgs(goos string, sampleRateHz int) ([]string, error) {
	rate := fmt.Sprintf("%d", sampleRateHz)
	switch goos {
	case "darwin":
		return []string{
			"-hide_banner", "-loglevel", "error",
			"-f", "avfoundation", "-i", ":0",
			"-ac", "1", "-ar", rate,
			"-f", "s16le", "-",
		}, nil
	case "linux":
		return []string{
			"-hide_banner", "-loglevel", "error",
			"-f", "pulse", "-i", "default",
			"-ac", "1", "-ar", rate,
			"-f", "s16le", "-",
		}, nil
	default:
		return nil, fmt.Errorf("%w: no mic capture support on %s", ErrDeviceUnavailable, goos)
	}
}

// FFplaySink plays PCM through an ffplay subprocess at the playback rate.
type FFplaySink struct {
	rate  int
	mu    sync.Mutex
	cmd   *exec.Cmd
	stdin io.WriteCloser
}

func NewFFplaySink(sampleRateHz int) *FFplaySink {
	if sampleRateHz <= 0 {
		sampleRateHz = 24000
	}
	return &FFplaySink{rate: sampleRateHz}
}

func (s *FFplaySink) Write(samples []float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cmd == nil {
		if err := s.startLocked(); err != nil {
			return err
		}
	}
	_, err := s.stdin.Write(EncodePCM16(samples))
	if err != nil {
		return fmt.Errorf("write to ffplay: %w", err)
	}
	return nil
}

func (s *FFplaySink) startLocked() error {
	if _, err := exec.LookPath("ffplay"); err != nil {
		return fmt.Errorf("%w: ffplay not found in PATH", ErrDeviceUnavailable)
	}
	cmd := exec.Command("ffplay",
		"-nodisp",
		"-autoexit",
		"-loglevel", "error",
		"-f", "s16le",
		"-ar", fmt.Sprintf("%d", s.rate),
		"-ac", "1",
		"-i", "pipe:0",
	)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("open ffplay stdin: %w", err)
	}
	cmd.Stdout = io.Discard
	cmd.Stderr = io.Discard
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("%w: start ffplay: %v", ErrDeviceUnavailable, err)
	}
	s.cmd = cmd
	s.stdin = stdin
	return nil
}

func (s *FFplaySink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cmd == nil {
		return nil
	}
	_ = s.stdin.Close()
	_ = s.cmd.Wait()
	s.cmd = nil
	s.stdin = nil
	return nil
}
