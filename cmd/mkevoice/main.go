// mkevoice is a terminal voice client for the MKE.dev assistant. It mints
// a session token, streams microphone audio to the live endpoint, plays
// model speech back through ffplay, and renders transcript turns and map
// actions on stdout. Typed lines are sent as text turns; /quit ends the
// session.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/tmoody1973/mkedev-voice/internal/config"
	"github.com/tmoody1973/mkedev-voice/internal/observability"
	"github.com/tmoody1973/mkedev-voice/pkg/mke"
	"github.com/tmoody1973/mkedev-voice/pkg/store"
	"github.com/tmoody1973/mkedev-voice/pkg/voice/audio"
	"github.com/tmoody1973/mkedev-voice/pkg/voice/credentials"
	"github.com/tmoody1973/mkedev-voice/pkg/voice/session"
	"github.com/tmoody1973/mkedev-voice/pkg/voice/wire"
	"github.com/tmoody1973/mkedev-voice/pkg/zoning"
)

const systemInstruction = `You are the MKE.dev assistant, a Milwaukee real
estate and zoning guide. Answer briefly and call the provided functions to
drive the map and look up properties.`

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "mkevoice:", err)
		os.Exit(1)
	}
}

func run() error {
	var configPath string
	var textOnly bool
	flag.StringVar(&configPath, "config", "", "optional YAML config file")
	flag.BoolVar(&textOnly, "text-only", false, "skip microphone capture; type turns instead")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	logger, err := observability.NewLogger(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	querier, closeStore, err := buildStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	expert, err := buildZoningExpert(ctx, cfg, logger)
	if err != nil {
		return err
	}

	registry := mke.NewRegistry(logger, mke.Deps{
		Map:    &consoleMap{out: os.Stdout},
		Data:   querier,
		Zoning: expert,
	})

	var device audio.CaptureDevice = audio.NewFFmpegCapture()
	if textOnly {
		device = nullCapture{}
	}
	engine := audio.NewEngine(audio.Config{}, device, audio.NewFFplaySink(wire.PlaybackSampleRateHz), logger.Named("audio"))
	defer engine.Destroy()

	source := buildCredentialSource(cfg, logger)

	orc, err := session.New(session.Config{
		Endpoint: cfg.LiveEndpoint,
		Setup: wire.SetupConfig{
			Model:             cfg.Model,
			Modalities:        []wire.Modality{wire.ModalityAudio},
			Voice:             cfg.Voice,
			SystemInstruction: systemInstruction,
		},
		Credentials: source,
		Registry:    registry,
		Engine:      engine,
		Metrics:     observability.New(prometheus.NewRegistry()),
		Logger:      logger,
		OnEntry:     printEntry,
	})
	if err != nil {
		return err
	}

	if err := orc.StartSession(ctx); err != nil {
		return err
	}
	defer orc.EndSession()
	fmt.Println("session started — speak, or type a message (/quit to exit)")

	lines := make(chan string)
	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
		close(lines)
	}()

	for {
		select {
		case <-ctx.Done():
			fmt.Println("\nending session")
			return nil
		case line, ok := <-lines:
			if !ok || strings.TrimSpace(line) == "/quit" {
				return nil
			}
			if text := strings.TrimSpace(line); text != "" {
				orc.SendText(text)
			}
		}
	}
}

func buildStore(ctx context.Context, cfg config.Config, logger *zap.Logger) (store.Querier, func(), error) {
	if cfg.DatabaseURL == "" {
		logger.Info("no DATABASE_URL set, using seeded in-memory store")
		return store.NewSeededMemoryStore(), func() {}, nil
	}
	pg, err := store.NewPostgresStore(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("open property store: %w", err)
	}
	return pg, func() { _ = pg.Close() }, nil
}

func buildZoningExpert(ctx context.Context, cfg config.Config, logger *zap.Logger) (mke.ZoningExpert, error) {
	if cfg.GeminiAPIKey == "" {
		logger.Warn("GEMINI_API_KEY not set, zoning expert is disabled")
		return unavailableExpert{}, nil
	}
	return zoning.NewAgent(ctx, cfg.GeminiAPIKey, logger.Named("zoning"))
}

func buildCredentialSource(cfg config.Config, logger *zap.Logger) credentials.Source {
	if cfg.TokenServiceURL != "" {
		return credentials.NewHTTPSource(cfg.TokenServiceURL, logger.Named("credentials"))
	}
	logger.Warn("no token service configured, connecting with the raw API key")
	return credentials.Static{Token: cfg.GeminiAPIKey, Model: cfg.Model}
}

func printEntry(entry session.TranscriptEntry) {
	prefix := "you"
	if entry.Role == session.RoleAssistant {
		prefix = "mke"
	}
	if entry.Text != "" {
		fmt.Printf("[%s] %s\n", prefix, entry.Text)
	}
	for _, call := range entry.Calls {
		fmt.Printf("  · %s (%s)\n", call.Name, call.Status)
	}
	for _, card := range entry.Cards {
		fmt.Printf("  ▸ card: %s\n", card.Kind)
	}
}

// consoleMap renders map commands as terminal output; the browser client
// binds these to a real map.
type consoleMap struct {
	out *os.File
}

func (m *consoleMap) FlyTo(longitude, latitude, zoom float64) error {
	fmt.Fprintf(m.out, "  ▸ map: fly to (%.5f, %.5f) zoom %.0f\n", longitude, latitude, zoom)
	return nil
}

func (m *consoleMap) SetLayerVisibility(id string, visible bool) error {
	fmt.Fprintf(m.out, "  ▸ map: layer %s visible=%t\n", id, visible)
	return nil
}

func (m *consoleMap) SetLayerOpacity(id string, opacity float64) error {
	fmt.Fprintf(m.out, "  ▸ map: layer %s opacity=%.2f\n", id, opacity)
	return nil
}

func (m *consoleMap) ResetView() error {
	fmt.Fprintln(m.out, "  ▸ map: reset view")
	return nil
}

func (m *consoleMap) CaptureScreenshot(context.Context) (string, error) {
	return "", fmt.Errorf("screenshots require the browser client")
}

type unavailableExpert struct{}

func (unavailableExpert) Ask(context.Context, string) (string, error) {
	return "", fmt.Errorf("zoning expert is not configured")
}

// nullCapture satisfies CaptureDevice for text-only sessions.
type nullCapture struct{}

func (nullCapture) Open(audio.CaptureConfig, func([]byte)) error { return nil }
func (nullCapture) Close() error                                 { return nil }
