package model

import "github.com/soc-lab/kestrel/pkg/domain/types"

// IncidentInput carries caller-supplied fields for incident creation. The
// severity, attack type and action taken are defaults: enrichment may refine
// them, but a failed enrichment never blocks the write.
type IncidentInput struct {
	EventID       types.EventID `json:"eventid,omitempty"`
	SourceIP      string        `json:"sourceip" validate:"required,ip"`
	DestinationIP string        `json:"destinationip" validate:"required"`
	AttackType    string        `json:"attacktype" validate:"required"`
	Severity      string        `json:"severity" validate:"omitempty,oneof=Low Medium High Critical"`
	ActionTaken   string        `json:"actiontaken,omitempty"`
}
