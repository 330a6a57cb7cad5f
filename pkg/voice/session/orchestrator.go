// Package session coordinates one voice conversation end to end: it mints
// a credential, connects the session client, pipes capture audio up and
// playback audio down, dispatches function calls, and maintains the
// transcript the UI renders.
package session

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/tmoody1973/mkedev-voice/internal/observability"
	"github.com/tmoody1973/mkedev-voice/pkg/voice/audio"
	"github.com/tmoody1973/mkedev-voice/pkg/voice/cards"
	"github.com/tmoody1973/mkedev-voice/pkg/voice/client"
	"github.com/tmoody1973/mkedev-voice/pkg/voice/credentials"
	"github.com/tmoody1973/mkedev-voice/pkg/voice/dispatch"
	"github.com/tmoody1973/mkedev-voice/pkg/voice/wire"
)

// State is the orchestrator lifecycle. Error is terminal for the current
// session: the orchestrator stays in StateError until StartSession is
// called again.
type State string

const (
	StateInactive   State = "inactive"
	StateConnecting State = "connecting"
	StateListening  State = "listening"
	StateProcessing State = "processing"
	StateError      State = "error"
)

// Config wires an Orchestrator's collaborators.
type Config struct {
	Endpoint    string
	Setup       wire.SetupConfig
	Credentials credentials.Source
	Registry    *dispatch.Registry
	Engine      *audio.Engine
	Metrics     *observability.Metrics
	Logger      *zap.Logger

	// Client tuning, forwarded verbatim.
	ReconnectAttempts int

	// OnEntry, when set, is invoked with each transcript entry as it
	// finalizes: user entries on send, assistant entries when the turn
	// completes. Called without internal locks held.
	OnEntry func(TranscriptEntry)
}

// Orchestrator runs voice sessions one at a time. It is safe for
// concurrent use.
type Orchestrator struct {
	cfg     Config
	logger  *zap.Logger
	metrics *observability.Metrics

	mu      sync.Mutex
	state   State
	lastErr error
	cli     *client.Client
	entries []TranscriptEntry
	cardBuf []cards.Card
	calls   map[string]callRef
	curIdx  int // index of the streaming assistant entry, -1 when none
}

type callRef struct {
	entry int
	call  int
}

// New builds an Orchestrator in StateInactive.
func New(cfg Config) (*Orchestrator, error) {
	if cfg.Credentials == nil {
		return nil, fmt.Errorf("session: credentials source is required")
	}
	if cfg.Registry == nil {
		return nil, fmt.Errorf("session: dispatch registry is required")
	}
	if cfg.Engine == nil {
		return nil, fmt.Errorf("session: audio engine is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Orchestrator{
		cfg:     cfg,
		logger:  cfg.Logger,
		metrics: cfg.Metrics,
		state:   StateInactive,
		calls:   make(map[string]callRef),
		curIdx:  -1,
	}, nil
}

// State reports the current lifecycle state.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Err returns the error that moved the orchestrator into StateError.
func (o *Orchestrator) Err() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.lastErr
}

// Transcript returns a snapshot of the conversation log.
func (o *Orchestrator) Transcript() []TranscriptEntry {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]TranscriptEntry, len(o.entries))
	copy(out, o.entries)
	return out
}

// StartSession mints a credential, connects, and begins streaming
// microphone audio. Calling it while a session is active is a logged
// no-op. Calling it from StateError starts a fresh session.
func (o *Orchestrator) StartSession(ctx context.Context) error {
	o.mu.Lock()
	if o.state != StateInactive && o.state != StateError {
		state := o.state
		o.mu.Unlock()
		o.logger.Warn("session already active, ignoring start", zap.String("state", string(state)))
		return nil
	}
	o.state = StateConnecting
	o.lastErr = nil
	o.entries = nil
	o.cardBuf = nil
	o.calls = make(map[string]callRef)
	o.curIdx = -1
	o.mu.Unlock()

	cred, err := o.cfg.Credentials.Credential(ctx)
	if err != nil {
		return o.failStart(fmt.Errorf("mint credential: %w", err))
	}

	setup := o.cfg.Setup
	setup.Functions = o.cfg.Registry.Declarations()

	cli := client.New(client.Config{
		Endpoint:          o.cfg.Endpoint,
		Setup:             setup,
		ReconnectAttempts: o.cfg.ReconnectAttempts,
		Logger:            o.logger.Named("client"),
	}, o.handleFunctionCall)

	if err := cli.Connect(ctx, cred); err != nil {
		return o.failStart(err)
	}

	o.mu.Lock()
	o.cli = cli
	o.state = StateListening
	o.mu.Unlock()

	if err := o.cfg.Engine.StartCapture(func(frame audio.Frame) {
		cli.SendAudio(frame.PCM)
		if o.metrics != nil {
			o.metrics.AudioChunksIn.Inc()
		}
	}); err != nil {
		cli.Disconnect()
		return o.failStart(fmt.Errorf("start capture: %w", err))
	}

	if o.metrics != nil {
		o.metrics.SessionsStarted.Inc()
	}
	go o.eventLoop(cli)
	return nil
}

func (o *Orchestrator) failStart(err error) error {
	o.mu.Lock()
	o.state = StateError
	o.lastErr = err
	o.cli = nil
	o.mu.Unlock()
	if o.metrics != nil {
		o.metrics.SessionErrors.Inc()
	}
	o.logger.Error("session start failed", zap.Error(err))
	return err
}

// EndSession stops capture and playback and closes the connection. Safe to
// call in any state, any number of times.
func (o *Orchestrator) EndSession() {
	o.mu.Lock()
	cli := o.cli
	o.cli = nil
	if o.state != StateError {
		o.state = StateInactive
	}
	o.mu.Unlock()

	o.cfg.Engine.StopCapture()
	o.cfg.Engine.StopPlayback()
	if cli != nil {
		cli.Disconnect()
	}
}

// SendText submits a typed user turn alongside the audio stream. A logged
// no-op when no session is active.
func (o *Orchestrator) SendText(text string) {
	o.mu.Lock()
	cli := o.cli
	active := o.state == StateListening || o.state == StateProcessing
	var entry TranscriptEntry
	if active && cli != nil {
		entry = newEntry(RoleUser, text)
		o.entries = append(o.entries, entry)
		o.curIdx = -1
		o.state = StateProcessing
	}
	o.mu.Unlock()

	if !active || cli == nil {
		o.logger.Warn("no active session, dropping text input")
		return
	}
	if o.cfg.OnEntry != nil {
		o.cfg.OnEntry(entry)
	}
	cli.SendText(text)
}

func (o *Orchestrator) eventLoop(cli *client.Client) {
	for event := range cli.Events() {
		switch e := event.(type) {
		case client.TextEvent:
			o.onText(e.Text)
		case client.AudioEvent:
			o.onAudio(e.PCM)
		case client.TurnCompleteEvent:
			o.onTurnComplete(false)
		case client.InterruptedEvent:
			o.cfg.Engine.StopPlayback()
			o.onTurnComplete(true)
		case client.ErrorEvent:
			o.onSessionError(e.Err)
		}
	}

	o.mu.Lock()
	if o.cli == cli {
		o.cli = nil
		if o.state != StateError {
			o.state = StateInactive
		}
	}
	o.mu.Unlock()
	o.cfg.Engine.StopCapture()
}

// onText appends a streamed text segment to the current assistant entry,
// creating it if needed. Buffered cards attach as soon as the entry
// carries text, in one batch.
func (o *Orchestrator) onText(text string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.state == StateListening {
		o.state = StateProcessing
	}
	idx := o.ensureAssistantEntryLocked()
	o.entries[idx].Text += text
	if len(o.cardBuf) > 0 && o.entries[idx].Text != "" {
		o.entries[idx].Cards = append(o.entries[idx].Cards, o.cardBuf...)
		o.cardBuf = nil
	}
}

func (o *Orchestrator) onAudio(pcm []byte) {
	o.mu.Lock()
	if o.state == StateListening {
		o.state = StateProcessing
	}
	o.mu.Unlock()
	if o.metrics != nil {
		o.metrics.AudioChunksOut.Inc()
	}
	if err := o.cfg.Engine.Play(pcm); err != nil {
		o.logger.Warn("playback rejected a frame", zap.Error(err))
	}
}

func (o *Orchestrator) onTurnComplete(interrupted bool) {
	o.mu.Lock()
	var finished *TranscriptEntry
	if o.curIdx >= 0 {
		if interrupted {
			o.entries[o.curIdx].Interrupted = true
		}
		entry := o.entries[o.curIdx]
		finished = &entry
	}
	o.curIdx = -1
	if o.state == StateProcessing {
		o.state = StateListening
	}
	o.mu.Unlock()

	if finished != nil && o.cfg.OnEntry != nil {
		o.cfg.OnEntry(*finished)
	}
}

func (o *Orchestrator) onSessionError(err error) {
	o.mu.Lock()
	o.state = StateError
	if o.lastErr == nil {
		o.lastErr = err
	}
	o.mu.Unlock()
	if o.metrics != nil {
		o.metrics.SessionErrors.Inc()
	}
	o.logger.Error("session failed", zap.Error(err))
}

func (o *Orchestrator) ensureAssistantEntryLocked() int {
	if o.curIdx >= 0 {
		return o.curIdx
	}
	o.entries = append(o.entries, newEntry(RoleAssistant, ""))
	o.curIdx = len(o.entries) - 1
	return o.curIdx
}

// handleFunctionCall is the client's FunctionHandler: it records the call
// in the transcript, dispatches it, buffers any emitted cards, and updates
// the record's status from the result.
func (o *Orchestrator) handleFunctionCall(ctx context.Context, call wire.FunctionCall) (map[string]any, error) {
	o.mu.Lock()
	idx := o.ensureAssistantEntryLocked()
	o.entries[idx].Calls = append(o.entries[idx].Calls, FunctionCallRecord{
		CallID: call.ID,
		Name:   call.Name,
		Status: CallPending,
	})
	o.calls[call.ID] = callRef{entry: idx, call: len(o.entries[idx].Calls) - 1}
	o.mu.Unlock()

	result := o.cfg.Registry.Dispatch(ctx, call, bufferedSink{o: o})

	status := CallSuccess
	if ok, has := result["success"].(bool); has && !ok {
		status = CallError
	}
	o.mu.Lock()
	if ref, found := o.calls[call.ID]; found {
		o.entries[ref.entry].Calls[ref.call].Status = status
		delete(o.calls, call.ID)
	}
	o.mu.Unlock()

	if o.metrics != nil {
		o.metrics.FunctionCalls.WithLabelValues(call.Name, string(status)).Inc()
	}
	return result, nil
}

// bufferedSink collects cards until the next text-bearing assistant entry
// claims them.
type bufferedSink struct {
	o *Orchestrator
}

func (s bufferedSink) EmitCard(card cards.Card) {
	s.o.mu.Lock()
	s.o.cardBuf = append(s.o.cardBuf, card)
	s.o.mu.Unlock()
	if s.o.metrics != nil {
		s.o.metrics.CardsEmitted.WithLabelValues(string(card.Kind)).Inc()
	}
}
