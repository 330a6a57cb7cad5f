// Package client owns the persistent streaming connection to the realtime
// voice endpoint: setup handshake, outbound audio/text/function-result
// envelopes, typed inbound events, and the bounded reconnect policy.
package client

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/tmoody1973/mkedev-voice/pkg/voice/wire"
)

// State is the connection lifecycle of a Client.
type State string

const (
	StateDisconnected State = "disconnected"
	StateConnecting   State = "connecting"
	StateConnected    State = "connected"
	StateError        State = "error"
)

// Credential is a connection token plus the model it unlocks. Ephemeral
// credentials are single-use: a consumed token cannot redial, so the
// reconnect policy is disabled for them. Credentials live only in memory.
type Credential struct {
	Token     string
	Model     string
	Ephemeral bool
}

// FunctionHandler executes one remote-invoked function call. The client
// awaits it before sending the function response, so implementations must
// keep latency bounded or the remote model's turn stalls.
type FunctionHandler func(ctx context.Context, call wire.FunctionCall) (map[string]any, error)

// Event is one inbound session event.
type Event interface {
	clientEventType() string
}

// TextEvent carries a streamed assistant text segment.
type TextEvent struct{ Text string }

func (TextEvent) clientEventType() string { return "text" }

// AudioEvent carries one chunk of assistant playback PCM.
type AudioEvent struct{ PCM []byte }

func (AudioEvent) clientEventType() string { return "audio" }

// TurnCompleteEvent marks the end of a model response turn.
type TurnCompleteEvent struct{}

func (TurnCompleteEvent) clientEventType() string { return "turn_complete" }

// InterruptedEvent signals the model turn was cut short.
type InterruptedEvent struct{}

func (InterruptedEvent) clientEventType() string { return "interrupted" }

// ErrorEvent reports a terminal transport error; the client is in
// StateError once it is observed.
type ErrorEvent struct{ Err error }

func (ErrorEvent) clientEventType() string { return "error" }

// Config tunes a Client. Zero values fall back to defaults; the reconnect
// bound is policy, not invariant, so it is configurable.
type Config struct {
	Endpoint          string
	Setup             wire.SetupConfig
	ConnectTimeout    time.Duration
	ReconnectAttempts int
	ReconnectDelay    time.Duration
	Logger            *zap.Logger
}

func (c Config) withDefaults() Config {
	if c.ConnectTimeout <= 0 {
		c.ConnectTimeout = 15 * time.Second
	}
	if c.ReconnectAttempts <= 0 {
		c.ReconnectAttempts = 3
	}
	if c.ReconnectDelay <= 0 {
		c.ReconnectDelay = time.Second
	}
	if c.Logger == nil {
		c.Logger = zap.NewNop()
	}
	return c
}

// Client is a single-connection session client. One Client serves one
// logical session; create a new one per session.
type Client struct {
	cfg     Config
	logger  *zap.Logger
	handler FunctionHandler

	mu      sync.Mutex
	state   State
	conn    *websocket.Conn
	cred    Credential
	lastErr error

	writeMu sync.Mutex

	emitMu sync.Mutex
	closed bool

	events  chan Event
	batches chan wire.FunctionCallBatchEvent
	done    chan struct{}

	cancelMu sync.Mutex
	cancels  map[string]context.CancelFunc
}

// New builds a Client. handler may be nil when the session declares no
// functions; a call arriving anyway gets an error result rather than
// stalling the remote model.
func New(cfg Config, handler FunctionHandler) *Client {
	cfg = cfg.withDefaults()
	return &Client{
		cfg:     cfg,
		logger:  cfg.Logger,
		handler: handler,
		state:   StateDisconnected,
		events:  make(chan Event, 256),
		batches: make(chan wire.FunctionCallBatchEvent, 32),
		done:    make(chan struct{}),
		cancels: make(map[string]context.CancelFunc),
	}
}

// State reports the current connection state.
func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Err returns the last terminal error, if any.
func (c *Client) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

// Events yields inbound session events. The channel closes when the
// session ends, normally or otherwise.
func (c *Client) Events() <-chan Event {
	return c.events
}

// Connect dials the endpoint, sends the setup envelope, and resolves once
// the remote acknowledges it. Only one connection attempt may be in flight
// per Client.
func (c *Client) Connect(ctx context.Context, cred Credential) error {
	c.mu.Lock()
	if c.state != StateDisconnected {
		state := c.state
		c.mu.Unlock()
		return fmt.Errorf("connect: client is %s, want disconnected", state)
	}
	c.state = StateConnecting
	c.cred = cred
	c.mu.Unlock()

	conn, err := c.dialAndSetup(ctx, cred)
	if err != nil {
		c.fail(fmt.Errorf("connect: %w", err))
		return err
	}

	c.mu.Lock()
	c.conn = conn
	c.state = StateConnected
	c.mu.Unlock()

	go c.readLoop(conn)
	go c.dispatchLoop()
	return nil
}

func (c *Client) dialAndSetup(ctx context.Context, cred Credential) (*websocket.Conn, error) {
	dialCtx := ctx
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		dialCtx, cancel = context.WithTimeout(ctx, c.cfg.ConnectTimeout)
		defer cancel()
	}

	endpoint := c.cfg.Endpoint
	headers := make(map[string][]string)
	if cred.Token != "" {
		headers["Authorization"] = []string{"Bearer " + cred.Token}
	}
	conn, resp, err := websocket.DefaultDialer.DialContext(dialCtx, endpoint, headers)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("dial %s (status %d): %w", endpoint, resp.StatusCode, err)
		}
		return nil, fmt.Errorf("dial %s: %w", endpoint, err)
	}

	setup := c.cfg.Setup
	if cred.Model != "" {
		setup.Model = cred.Model
	}
	frame, err := wire.EncodeSetup(setup)
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("encode setup: %w", err)
	}
	if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("send setup: %w", err)
	}

	_ = conn.SetReadDeadline(time.Now().Add(c.cfg.ConnectTimeout))
	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			_ = conn.Close()
			return nil, fmt.Errorf("read setup ack: %w", err)
		}
		acked := false
		for _, event := range wire.Decode(payload) {
			switch e := event.(type) {
			case wire.SetupAckEvent:
				acked = true
			case wire.DecodeErrorEvent:
				c.logger.Warn("dropping undecodable frame before setup ack", zap.String("reason", e.Err.Message))
			default:
				c.logger.Warn("ignoring pre-ack frame", zap.Any("event", event))
			}
		}
		if acked {
			_ = conn.SetReadDeadline(time.Time{})
			return conn, nil
		}
	}
}

// Disconnect closes the connection with a normal-closure code. Idempotent.
func (c *Client) Disconnect() {
	c.mu.Lock()
	conn := c.conn
	c.conn = nil
	if c.state != StateError {
		c.state = StateDisconnected
	}
	c.mu.Unlock()

	if conn != nil {
		c.writeMu.Lock()
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(2*time.Second))
		c.writeMu.Unlock()
		_ = conn.Close()
	}
	c.finish()
}

// SendAudio sends one capture frame. A no-op with a logged warning when
// not connected.
func (c *Client) SendAudio(pcm []byte) {
	frame, err := wire.EncodeAudioChunk(pcm)
	if err != nil {
		c.logger.Warn("encode audio chunk failed", zap.Error(err))
		return
	}
	c.send("audio", frame)
}

// SendText sends a complete user text turn. A no-op with a logged warning
// when not connected.
func (c *Client) SendText(text string) {
	frame, err := wire.EncodeTextTurn(text, true)
	if err != nil {
		c.logger.Warn("encode text turn failed", zap.Error(err))
		return
	}
	c.send("text", frame)
}

// SendFunctionResult sends a function response keyed by call id. A no-op
// with a logged warning when not connected.
func (c *Client) SendFunctionResult(callID, name string, result map[string]any) {
	frame, err := wire.EncodeFunctionResult(callID, name, result)
	if err != nil {
		c.logger.Warn("encode function result failed", zap.Error(err))
		return
	}
	c.send("function_result", frame)
}

func (c *Client) send(kind string, frame []byte) {
	c.mu.Lock()
	conn := c.conn
	connected := c.state == StateConnected
	c.mu.Unlock()
	if !connected || conn == nil {
		c.logger.Warn("not connected, dropping outbound frame", zap.String("kind", kind))
		return
	}
	c.writeMu.Lock()
	err := conn.WriteMessage(websocket.TextMessage, frame)
	c.writeMu.Unlock()
	if err != nil {
		c.logger.Warn("send failed", zap.String("kind", kind), zap.Error(err))
	}
}

func (c *Client) readLoop(conn *websocket.Conn) {
	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			c.onReadError(conn, err)
			return
		}
		for _, event := range wire.Decode(payload) {
			c.handleEvent(event)
		}
	}
}

func (c *Client) handleEvent(event wire.Event) {
	switch e := event.(type) {
	case wire.SetupAckEvent:
		// Duplicate ack after reconnect; nothing to do.
	case wire.TextDeltaEvent:
		c.emit(TextEvent{Text: e.Text})
	case wire.AudioDeltaEvent:
		c.emit(AudioEvent{PCM: e.PCM})
	case wire.TurnCompleteEvent:
		c.emit(TurnCompleteEvent{})
	case wire.InterruptedEvent:
		c.emit(InterruptedEvent{})
	case wire.FunctionCallBatchEvent:
		select {
		case c.batches <- e:
		case <-c.done:
		}
	case wire.FunctionCancelEvent:
		c.cancelCalls(e.IDs)
	case wire.DecodeErrorEvent:
		c.logger.Warn("dropping undecodable frame", zap.String("reason", e.Err.Message))
	}
}

// dispatchLoop serializes function-call batches: every call in a batch is
// answered (exactly one result each, success or error) before the next
// batch is taken.
func (c *Client) dispatchLoop() {
	for {
		select {
		case <-c.done:
			return
		case batch := <-c.batches:
			for _, call := range batch.Calls {
				c.runCall(call)
			}
		}
	}
}

func (c *Client) runCall(call wire.FunctionCall) {
	ctx, cancel := context.WithCancel(context.Background())
	c.cancelMu.Lock()
	if call.ID != "" {
		c.cancels[call.ID] = cancel
	}
	c.cancelMu.Unlock()
	defer func() {
		cancel()
		c.cancelMu.Lock()
		delete(c.cancels, call.ID)
		c.cancelMu.Unlock()
	}()

	result, err := c.invokeHandler(ctx, call)
	if ctx.Err() != nil {
		// Remote cancelled the call; it is no longer waiting on a result.
		c.logger.Info("discarding result of cancelled function call",
			zap.String("call_id", call.ID), zap.String("name", call.Name))
		return
	}
	if err != nil {
		result = map[string]any{"success": false, "error": err.Error()}
	}
	c.SendFunctionResult(call.ID, call.Name, result)
}

// invokeHandler converts handler panics into error results so the remote
// model always receives a response and does not stall waiting for one.
func (c *Client) invokeHandler(ctx context.Context, call wire.FunctionCall) (result map[string]any, err error) {
	if c.handler == nil {
		return nil, fmt.Errorf("no function handler registered")
	}
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("function handler panicked",
				zap.String("name", call.Name), zap.Any("panic", r))
			result = nil
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()
	return c.handler(ctx, call)
}

func (c *Client) cancelCalls(ids []string) {
	c.cancelMu.Lock()
	defer c.cancelMu.Unlock()
	for _, id := range ids {
		if cancel, ok := c.cancels[id]; ok {
			cancel()
		}
	}
}

func (c *Client) onReadError(conn *websocket.Conn, err error) {
	c.mu.Lock()
	expected := c.conn == nil || c.state == StateDisconnected || c.state == StateError
	cred := c.cred
	c.mu.Unlock()

	if expected || websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
		c.mu.Lock()
		if c.state == StateConnected {
			c.state = StateDisconnected
			c.conn = nil
		}
		c.mu.Unlock()
		_ = conn.Close()
		c.finish()
		return
	}

	_ = conn.Close()

	if cred.Ephemeral {
		// A consumed single-use token is guaranteed to be rejected on
		// redial, so an unexpected close is terminal.
		c.fail(fmt.Errorf("connection closed: %w", err))
		c.finish()
		return
	}
	c.reconnect(err)
}

// reconnect redials with the held long-lived credential up to the
// configured bound, with a fixed delay between attempts.
func (c *Client) reconnect(cause error) {
	c.mu.Lock()
	cred := c.cred
	c.mu.Unlock()

	lastErr := cause
	for attempt := 1; attempt <= c.cfg.ReconnectAttempts; attempt++ {
		c.logger.Warn("connection lost, reconnecting",
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", c.cfg.ReconnectAttempts),
			zap.Error(lastErr))

		select {
		case <-c.done:
			return
		case <-time.After(c.cfg.ReconnectDelay):
		}

		conn, err := c.dialAndSetup(context.Background(), cred)
		if err != nil {
			lastErr = err
			continue
		}
		c.mu.Lock()
		c.conn = conn
		c.state = StateConnected
		c.mu.Unlock()
		go c.readLoop(conn)
		return
	}

	c.fail(fmt.Errorf("reconnect failed after %d attempts: %w", c.cfg.ReconnectAttempts, lastErr))
	c.finish()
}

func (c *Client) fail(err error) {
	c.mu.Lock()
	c.state = StateError
	if c.lastErr == nil {
		c.lastErr = err
	}
	c.mu.Unlock()
	c.emit(ErrorEvent{Err: err})
}

func (c *Client) emit(event Event) {
	c.emitMu.Lock()
	defer c.emitMu.Unlock()
	if c.closed {
		return
	}
	select {
	case c.events <- event:
	default:
		// Never block the read loop on a stalled consumer.
		c.logger.Warn("event channel full, dropping event")
	}
}

func (c *Client) finish() {
	c.emitMu.Lock()
	defer c.emitMu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.done)
	close(c.events)
}
