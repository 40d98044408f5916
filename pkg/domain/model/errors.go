package model

import "github.com/m-mizutani/goerr/v2"

// Sentinel errors for domain operations
var (
	ErrIncidentNotFound     = goerr.New("incident not found")
	ErrConversationNotFound = goerr.New("conversation not found")
	ErrReportNotFound       = goerr.New("report not found")
	ErrSessionNotFound      = goerr.New("session not found")
	ErrUnknownAction        = goerr.New("unknown action type")

	// ErrMalformedLLMResponse marks an LLM reply that survived transport but
	// failed JSON extraction or schema validation
	ErrMalformedLLMResponse = goerr.New("malformed LLM response")
)
