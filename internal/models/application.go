package models

import "time"

type ApplicationStatus string

const (
	StatusInProgress  ApplicationStatus = "in_progress"
	StatusUnderReview ApplicationStatus = "under_review"
	StatusAccepted    ApplicationStatus = "accepted"
	// StatusDeclined is reserved; no portal operation transitions into it.
	StatusDeclined ApplicationStatus = "declined"
)

type Application struct {
	ID                   string            `db:"id" json:"id"`
	UserID               string            `db:"user_id" json:"user_id"`
	CamperFirstName      *string           `db:"camper_first_name" json:"camper_first_name"`
	CamperLastName       *string           `db:"camper_last_name" json:"camper_last_name"`
	Status               ApplicationStatus `db:"status" json:"status"`
	CompletionPercentage int               `db:"completion_percentage" json:"completion_percentage"`
	CreatedAt            time.Time         `db:"created_at" json:"created_at"`
	UpdatedAt            time.Time         `db:"updated_at" json:"updated_at"`
	CompletedAt          *time.Time        `db:"completed_at" json:"completed_at"`
	AcceptedAt           *time.Time        `db:"accepted_at" json:"accepted_at"`
	DeclinedAt           *time.Time        `db:"declined_at" json:"declined_at"`

	Responses []Response `db:"-" json:"responses,omitempty"`
}

// Response is the single answer an application holds for a question. At most
// one of ResponseValue and FileID is set.
type Response struct {
	ID            string    `db:"id" json:"id"`
	ApplicationID string    `db:"application_id" json:"application_id"`
	QuestionID    string    `db:"question_id" json:"question_id"`
	ResponseValue *string   `db:"response_value" json:"response_value"`
	FileID        *string   `db:"file_id" json:"file_id"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time `db:"updated_at" json:"updated_at"`
}

type ApplicationCreate struct {
	CamperFirstName *string `json:"camper_first_name"`
	CamperLastName  *string `json:"camper_last_name"`
}

type ResponseInput struct {
	QuestionID    string  `json:"question_id"`
	ResponseValue *string `json:"response_value"`
	FileID        *string `json:"file_id"`
}

// ApplicationUpdate is the PATCH body shared by applicants and admins.
type ApplicationUpdate struct {
	CamperFirstName *string         `json:"camper_first_name"`
	CamperLastName  *string         `json:"camper_last_name"`
	Responses       []ResponseInput `json:"responses"`
}

// ApplicationFilter narrows the admin listing.
type ApplicationFilter struct {
	Status ApplicationStatus
	Search string
	From   int
	Size   int
}

type ApplicationPage struct {
	Applications []Application `json:"applications"`
	Total        int64         `json:"total"`
}
