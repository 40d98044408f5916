package model

import "time"

// IDSLog represents one log line from the remote intrusion detection system
type IDSLog struct {
	Timestamp     time.Time `json:"timestamp"`
	SourceIP      string    `json:"source_ip"`
	DestinationIP string    `json:"destination_ip"`
	Protocol      string    `json:"protocol"`
	Message       string    `json:"message"`
}

// IDSStatus represents the run state of the remote IDS
type IDSStatus struct {
	Running   bool       `json:"running"`
	Interface string     `json:"interface,omitempty"`
	Since     *time.Time `json:"since,omitempty"`
}

// IDSAlert represents an alert raised by the remote IDS
type IDSAlert struct {
	Timestamp time.Time `json:"timestamp"`
	Signature string    `json:"signature"`
	SourceIP  string    `json:"source_ip"`
	Severity  string    `json:"severity"`
}
