// Package wire defines the JSON envelopes exchanged with the realtime voice
// endpoint and the codec that maps them to and from typed events.
//
// Outbound envelopes: setup, realtimeInput (audio), clientContent (text
// turns), toolResponse (function results). Inbound envelopes: setupComplete,
// serverContent (text parts, inline audio, turnComplete), toolCall and
// toolCallCancellation.
package wire

import (
	"encoding/json"
	"fmt"
	"strings"
)

const (
	// CaptureSampleRateHz is the sample rate of outbound microphone PCM.
	CaptureSampleRateHz = 16000
	// PlaybackSampleRateHz is the sample rate of inbound assistant PCM.
	PlaybackSampleRateHz = 24000

	captureMimeType  = "audio/pcm;rate=16000"
	playbackMimeType = "audio/pcm"
)

// Modality selects the response channels requested at setup.
type Modality string

const (
	ModalityText  Modality = "TEXT"
	ModalityAudio Modality = "AUDIO"
)

// SetupConfig carries everything the initial handshake envelope needs.
type SetupConfig struct {
	Model             string
	Modalities        []Modality
	Voice             string
	SystemInstruction string
	Functions         []FunctionDeclaration
}

// FunctionDeclaration describes one remotely invocable function.
type FunctionDeclaration struct {
	Name        string  `json:"name"`
	Description string  `json:"description,omitempty"`
	Parameters  *Schema `json:"parameters,omitempty"`
}

// Schema is the JSON-schema subset the endpoint accepts for function
// parameters. Types use the endpoint's uppercase spelling.
type Schema struct {
	Type        string             `json:"type"`
	Description string             `json:"description,omitempty"`
	Enum        []string           `json:"enum,omitempty"`
	Items       *Schema            `json:"items,omitempty"`
	Properties  map[string]*Schema `json:"properties,omitempty"`
	Required    []string           `json:"required,omitempty"`
}

type setupEnvelope struct {
	Setup setupBody `json:"setup"`
}

type setupBody struct {
	Model             string            `json:"model"`
	GenerationConfig  *generationConfig `json:"generationConfig,omitempty"`
	SystemInstruction *content          `json:"systemInstruction,omitempty"`
	Tools             []toolBlock       `json:"tools,omitempty"`
}

type generationConfig struct {
	ResponseModalities []Modality    `json:"responseModalities,omitempty"`
	SpeechConfig       *speechConfig `json:"speechConfig,omitempty"`
}

type speechConfig struct {
	VoiceConfig voiceConfig `json:"voiceConfig"`
}

type voiceConfig struct {
	PrebuiltVoiceConfig prebuiltVoiceConfig `json:"prebuiltVoiceConfig"`
}

type prebuiltVoiceConfig struct {
	VoiceName string `json:"voiceName"`
}

type toolBlock struct {
	FunctionDeclarations []FunctionDeclaration `json:"functionDeclarations"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inlineData,omitempty"`
}

type inlineData struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

type realtimeInputEnvelope struct {
	RealtimeInput realtimeInput `json:"realtimeInput"`
}

type realtimeInput struct {
	MediaChunks []inlineData `json:"mediaChunks"`
}

type clientContentEnvelope struct {
	ClientContent clientContent `json:"clientContent"`
}

type clientContent struct {
	Turns        []content `json:"turns"`
	TurnComplete bool      `json:"turnComplete"`
}

type toolResponseEnvelope struct {
	ToolResponse toolResponse `json:"toolResponse"`
}

type toolResponse struct {
	FunctionResponses []functionResponse `json:"functionResponses"`
}

type functionResponse struct {
	ID       string         `json:"id,omitempty"`
	Name     string         `json:"name"`
	Response map[string]any `json:"response"`
}

type serverEnvelope struct {
	SetupComplete        *json.RawMessage      `json:"setupComplete,omitempty"`
	ServerContent        *serverContent        `json:"serverContent,omitempty"`
	ToolCall             *toolCall             `json:"toolCall,omitempty"`
	ToolCallCancellation *toolCallCancellation `json:"toolCallCancellation,omitempty"`
}

type serverContent struct {
	ModelTurn    *content `json:"modelTurn,omitempty"`
	TurnComplete bool     `json:"turnComplete,omitempty"`
	Interrupted  bool     `json:"interrupted,omitempty"`
}

type toolCall struct {
	FunctionCalls []serverFunctionCall `json:"functionCalls"`
}

type serverFunctionCall struct {
	ID   string         `json:"id,omitempty"`
	Name string         `json:"name"`
	Args map[string]any `json:"args,omitempty"`
}

type toolCallCancellation struct {
	IDs []string `json:"ids"`
}

// DecodeError describes an inbound frame the codec could not interpret.
// Callers log it and drop the single frame; it never terminates a session.
type DecodeError struct {
	Message string
	Raw     []byte
}

func (e *DecodeError) Error() string {
	if e == nil {
		return ""
	}
	return e.Message
}

func decodeErr(format string, args ...any) *DecodeError {
	return &DecodeError{Message: fmt.Sprintf(format, args...)}
}

func normalizedVoice(voice string) string {
	return strings.TrimSpace(voice)
}
