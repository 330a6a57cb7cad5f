package wire

import (
	"encoding/base64"
	"encoding/json"
	"strings"
)

// Event is one decoded inbound frame.
type Event interface {
	eventType() string
}

// SetupAckEvent acknowledges the setup envelope; the session is live.
type SetupAckEvent struct{}

func (SetupAckEvent) eventType() string { return "setup_ack" }

// TextDeltaEvent carries a streamed assistant text segment.
type TextDeltaEvent struct {
	Text string
}

func (TextDeltaEvent) eventType() string { return "text_delta" }

// AudioDeltaEvent carries one decoded chunk of assistant PCM
// (16-bit signed little-endian, 24 kHz, mono).
type AudioDeltaEvent struct {
	PCM []byte
}

func (AudioDeltaEvent) eventType() string { return "audio_delta" }

// FunctionCall is a single remote-invoked call within a batch.
type FunctionCall struct {
	ID   string
	Name string
	Args map[string]any
}

// FunctionCallBatchEvent carries one or more function calls that each
// require exactly one response.
type FunctionCallBatchEvent struct {
	Calls []FunctionCall
}

func (FunctionCallBatchEvent) eventType() string { return "function_call_batch" }

// FunctionCancelEvent asks the client to abandon in-flight calls by id.
type FunctionCancelEvent struct {
	IDs []string
}

func (FunctionCancelEvent) eventType() string { return "function_cancel" }

// TurnCompleteEvent marks the end of a model response turn.
type TurnCompleteEvent struct{}

func (TurnCompleteEvent) eventType() string { return "turn_complete" }

// InterruptedEvent signals the model turn was cut short; queued playback
// for the turn should be flushed.
type InterruptedEvent struct{}

func (InterruptedEvent) eventType() string { return "interrupted" }

// DecodeErrorEvent wraps an unparseable frame so the caller can log and
// drop it without special-casing errors.
type DecodeErrorEvent struct {
	Err *DecodeError
}

func (DecodeErrorEvent) eventType() string { return "decode_error" }

// EncodeSetup produces the initial handshake envelope.
func EncodeSetup(cfg SetupConfig) ([]byte, error) {
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		return nil, decodeErr("setup model must not be empty")
	}

	body := setupBody{Model: model}

	gen := &generationConfig{ResponseModalities: cfg.Modalities}
	if voice := normalizedVoice(cfg.Voice); voice != "" {
		gen.SpeechConfig = &speechConfig{
			VoiceConfig: voiceConfig{
				PrebuiltVoiceConfig: prebuiltVoiceConfig{VoiceName: voice},
			},
		}
	}
	if len(gen.ResponseModalities) > 0 || gen.SpeechConfig != nil {
		body.GenerationConfig = gen
	}

	if instruction := strings.TrimSpace(cfg.SystemInstruction); instruction != "" {
		body.SystemInstruction = &content{Parts: []part{{Text: instruction}}}
	}
	if len(cfg.Functions) > 0 {
		body.Tools = []toolBlock{{FunctionDeclarations: cfg.Functions}}
	}

	return json.Marshal(setupEnvelope{Setup: body})
}

// EncodeAudioChunk wraps capture PCM (s16le, 16 kHz, mono) in a
// realtimeInput envelope with base64 payload.
func EncodeAudioChunk(pcm []byte) ([]byte, error) {
	return json.Marshal(realtimeInputEnvelope{
		RealtimeInput: realtimeInput{
			MediaChunks: []inlineData{{
				MimeType: captureMimeType,
				Data:     base64.StdEncoding.EncodeToString(pcm),
			}},
		},
	})
}

// EncodeTextTurn wraps a user text turn in a clientContent envelope.
func EncodeTextTurn(text string, turnComplete bool) ([]byte, error) {
	return json.Marshal(clientContentEnvelope{
		ClientContent: clientContent{
			Turns: []content{{
				Role:  "user",
				Parts: []part{{Text: text}},
			}},
			TurnComplete: turnComplete,
		},
	})
}

// EncodeFunctionResult wraps a completed function call in a toolResponse
// envelope keyed by the call id.
func EncodeFunctionResult(callID, name string, result map[string]any) ([]byte, error) {
	if result == nil {
		result = map[string]any{}
	}
	return json.Marshal(toolResponseEnvelope{
		ToolResponse: toolResponse{
			FunctionResponses: []functionResponse{{
				ID:       callID,
				Name:     name,
				Response: result,
			}},
		},
	})
}

// Decode parses one inbound frame into zero or more typed events, in the
// order the envelope carries them. Unparseable frames yield a single
// DecodeErrorEvent; Decode never panics on remote input.
func Decode(raw []byte) []Event {
	var envelope serverEnvelope
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return []Event{DecodeErrorEvent{Err: &DecodeError{Message: "invalid json frame: " + err.Error(), Raw: raw}}}
	}

	var events []Event

	if envelope.SetupComplete != nil {
		events = append(events, SetupAckEvent{})
	}

	if sc := envelope.ServerContent; sc != nil {
		if sc.ModelTurn != nil {
			for _, p := range sc.ModelTurn.Parts {
				if p.Text != "" {
					events = append(events, TextDeltaEvent{Text: p.Text})
				}
				if p.InlineData != nil {
					pcm, err := base64.StdEncoding.DecodeString(p.InlineData.Data)
					if err != nil {
						events = append(events, DecodeErrorEvent{Err: &DecodeError{
							Message: "invalid base64 audio payload: " + err.Error(),
							Raw:     raw,
						}})
						continue
					}
					events = append(events, AudioDeltaEvent{PCM: pcm})
				}
			}
		}
		if sc.Interrupted {
			events = append(events, InterruptedEvent{})
		}
		if sc.TurnComplete {
			events = append(events, TurnCompleteEvent{})
		}
	}

	if tc := envelope.ToolCall; tc != nil {
		batch := FunctionCallBatchEvent{Calls: make([]FunctionCall, 0, len(tc.FunctionCalls))}
		for _, call := range tc.FunctionCalls {
			name := strings.TrimSpace(call.Name)
			if name == "" {
				events = append(events, DecodeErrorEvent{Err: &DecodeError{
					Message: "toolCall entry missing function name",
					Raw:     raw,
				}})
				continue
			}
			batch.Calls = append(batch.Calls, FunctionCall{
				ID:   strings.TrimSpace(call.ID),
				Name: name,
				Args: call.Args,
			})
		}
		if len(batch.Calls) > 0 {
			events = append(events, batch)
		}
	}

	if cancel := envelope.ToolCallCancellation; cancel != nil && len(cancel.IDs) > 0 {
		events = append(events, FunctionCancelEvent{IDs: append([]string(nil), cancel.IDs...)})
	}

	if len(events) == 0 {
		events = append(events, DecodeErrorEvent{Err: &DecodeError{
			Message: "unknown frame: no recognized envelope field",
			Raw:     raw,
		}})
	}
	return events
}
