package dto

import (
	"media-registry/constant"
	"media-registry/entities"
	"time"
)

// RecordingEvent is published after a Create or Delete has committed.
type RecordingEvent struct {
	Type        constant.EventType `json:"type"`
	RecordingId int64              `json:"recordingId"`
	Filename    string             `json:"filename"`
	Size        int64              `json:"size,omitempty"`
	OccurredAt  time.Time          `json:"occurredAt"`
}

// AuditRequestMessage asks the worker to run a consistency audit.
type AuditRequestMessage struct {
	RequestedBy string `json:"requestedBy"`
}

// AuditReport lists metadata rows whose blob is missing.
type AuditReport struct {
	Checked  int                   `json:"checked"`
	Dangling []*entities.Recording `json:"dangling"`
}

type DeleteResponse struct {
	Ok      bool   `json:"ok"`
	Warning string `json:"warning,omitempty"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}
