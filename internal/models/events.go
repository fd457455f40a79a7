package models

import "time"

const (
	EventApplicationSubmitted = "application_submitted"
	EventApplicationAccepted  = "application_accepted"
)

// LifecycleEvent is published to the workflow engine after a status change commits.
type LifecycleEvent struct {
	Name          string            `json:"event"`
	ApplicationID string            `json:"applicationId"`
	UserID        string            `json:"userId"`
	Status        ApplicationStatus `json:"status"`
	OccurredAt    time.Time         `json:"occurredAt"`
}
