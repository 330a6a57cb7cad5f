package session

import (
	"time"

	"github.com/google/uuid"

	"github.com/tmoody1973/mkedev-voice/pkg/voice/cards"
)

// Role identifies who produced a transcript entry.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// CallStatus tracks a function call's lifecycle in the transcript.
type CallStatus string

const (
	CallPending CallStatus = "pending"
	CallSuccess CallStatus = "success"
	CallError   CallStatus = "error"
)

// FunctionCallRecord is the transcript's view of one remote-invoked
// function call.
type FunctionCallRecord struct {
	CallID string
	Name   string
	Status CallStatus
}

// TranscriptEntry is one turn in the conversation log. Assistant entries
// accumulate streamed text until the turn completes; cards emitted by
// function handlers attach to the next assistant entry that carries text.
type TranscriptEntry struct {
	ID          string
	Role        Role
	Text        string
	Cards       []cards.Card
	Calls       []FunctionCallRecord
	Interrupted bool
	At          time.Time
}

func newEntry(role Role, text string) TranscriptEntry {
	return TranscriptEntry{
		ID:   uuid.NewString(),
		Role: role,
		Text: text,
		At:   time.Now(),
	}
}
