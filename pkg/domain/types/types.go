package types

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// EventID represents a security incident event identifier
type EventID string

// String returns the string representation
func (id EventID) String() string {
	return string(id)
}

// NewEventID creates a new EventID with a timestamp and random suffix.
// Uniqueness is best effort; the incident store keeps EventID authoritative.
func NewEventID() EventID {
	var b [2]byte
	if _, err := rand.Read(b[:]); err != nil {
		return EventID(fmt.Sprintf("EVT-%d-0000", time.Now().Unix()))
	}
	suffix := binary.BigEndian.Uint16(b[:]) % 10000
	return EventID(fmt.Sprintf("EVT-%d-%04d", time.Now().Unix(), suffix))
}

// ConversationID represents a chat conversation identifier
type ConversationID string

// String returns the string representation
func (id ConversationID) String() string {
	return string(id)
}

// NewConversationID creates a new ConversationID
func NewConversationID() ConversationID {
	return ConversationID(uuid.New().String())
}

// MessageID represents a chat message identifier
type MessageID string

// String returns the string representation
func (id MessageID) String() string {
	return string(id)
}

// NewMessageID creates a new MessageID
func NewMessageID() MessageID {
	return MessageID(fmt.Sprintf("msg-%s", uuid.New().String()))
}

// ReportID represents a generated report identifier
type ReportID string

// String returns the string representation
func (id ReportID) String() string {
	return string(id)
}

// NewReportID creates a new ReportID using UUID v7 (time-ordered)
func NewReportID() (ReportID, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", err
	}
	return ReportID(id.String()), nil
}

// TaskID represents a scheduled task identifier, owned by the remote scheduler
type TaskID string

// String returns the string representation
func (id TaskID) String() string {
	return string(id)
}

// SessionID represents a session identifier
type SessionID string

// String returns the string representation
func (id SessionID) String() string {
	return string(id)
}

// NewSessionID creates a new SessionID using UUID v7
func NewSessionID() (SessionID, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", err
	}
	return SessionID(id.String()), nil
}

// SessionSecret represents a session secret token
type SessionSecret string

// String returns the string representation
func (s SessionSecret) String() string {
	return string(s)
}

// UserID represents a user identifier (the auth provider's subject claim)
type UserID string

// String returns the string representation
func (id UserID) String() string {
	return string(id)
}
