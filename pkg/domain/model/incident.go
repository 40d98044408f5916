package model

import (
	"strings"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/soc-lab/kestrel/pkg/domain/types"
)

// Incident represents a security incident row in the incident store
type Incident struct {
	EventID       types.EventID        `json:"eventid"`
	Timestamp     time.Time            `json:"timestamp"`
	Severity      string               `json:"severity"`
	SourceIP      string               `json:"sourceip"`
	DestinationIP string               `json:"destinationip"`
	AttackType    string               `json:"attacktype"`
	Status        types.IncidentStatus `json:"status"`
	ActionTaken   string               `json:"actiontaken"`
}

// NewIncident creates a new Incident instance
func NewIncident(eventID types.EventID, severity, sourceIP, destinationIP, attackType string) (*Incident, error) {
	if eventID == "" {
		return nil, goerr.New("event ID is required")
	}
	if sourceIP == "" {
		return nil, goerr.New("source IP is required", goerr.V("eventID", eventID))
	}
	if destinationIP == "" {
		return nil, goerr.New("destination IP is required", goerr.V("eventID", eventID))
	}

	return &Incident{
		EventID:       eventID,
		Timestamp:     time.Now(),
		Severity:      severity,
		SourceIP:      sourceIP,
		DestinationIP: destinationIP,
		AttackType:    attackType,
		Status:        types.IncidentStatusInvestigating,
	}, nil
}

// Validate verifies the incident carries the fields aggregation relies on
func (i *Incident) Validate() error {
	if i.EventID == "" {
		return goerr.New("event ID is required")
	}
	return nil
}

// IsSynthetic reports whether the incident matches the seeded-demo-row
// heuristics: an INC- prefixed event ID longer than 10 characters, or a
// source/destination IP recorded as the literal string "unknown".
// Such rows are hidden from the alerts view.
func (i *Incident) IsSynthetic() bool {
	id := i.EventID.String()
	if strings.HasPrefix(id, "INC-") && len(id) > 10 {
		return true
	}
	if strings.EqualFold(i.SourceIP, "unknown") || strings.EqualFold(i.DestinationIP, "unknown") {
		return true
	}
	return false
}
