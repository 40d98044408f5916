package types

// IncidentStatus represents the handling status of an incident
type IncidentStatus string

const (
	IncidentStatusInvestigating IncidentStatus = "Investigating"
	IncidentStatusMitigated     IncidentStatus = "Mitigated"
	IncidentStatusResolved      IncidentStatus = "Resolved"
	IncidentStatusEscalated     IncidentStatus = "Escalated"
)

// String returns the string representation of the status
func (s IncidentStatus) String() string {
	return string(s)
}

// IsValid checks if the status is one of the known values
func (s IncidentStatus) IsValid() bool {
	switch s {
	case IncidentStatusInvestigating, IncidentStatusMitigated, IncidentStatusResolved, IncidentStatusEscalated:
		return true
	default:
		return false
	}
}

// Engine represents the chat backend a message is routed to
type Engine string

const (
	// EngineSOAR routes messages to the workflow automation service
	EngineSOAR Engine = "soar"
	// EngineAI routes messages directly to the LLM
	EngineAI Engine = "ai"
)

// String returns the string representation of the engine
func (e Engine) String() string {
	return string(e)
}

// IsValid checks if the engine is one of the known values
func (e Engine) IsValid() bool {
	return e == EngineSOAR || e == EngineAI
}

// DisplayName returns the user-facing engine name used to tag replies
func (e Engine) DisplayName() string {
	switch e {
	case EngineSOAR:
		return "SOAR Engine"
	case EngineAI:
		return "AI Engine"
	default:
		return string(e)
	}
}

// Sender represents the author side of a chat message
type Sender string

const (
	SenderUser      Sender = "user"
	SenderAssistant Sender = "assistant"
)

// String returns the string representation of the sender
func (s Sender) String() string {
	return string(s)
}

// IsValid checks if the sender is one of the known values
func (s Sender) IsValid() bool {
	return s == SenderUser || s == SenderAssistant
}

// Role represents an authorization role attached to a session
type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)

// String returns the string representation of the role
func (r Role) String() string {
	return string(r)
}

// IsAdmin reports whether the role grants administrative access
func (r Role) IsAdmin() bool {
	return r == RoleAdmin
}
