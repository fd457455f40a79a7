package models

import "time"

// LedgerEntry is one admin's current vote joined with the admin's profile.
type LedgerEntry struct {
	AdminID   string    `db:"admin_id"`
	Approved  bool      `db:"approved"`
	FirstName *string   `db:"first_name"`
	LastName  *string   `db:"last_name"`
	Team      *string   `db:"team"`
	VotedAt   time.Time `db:"created_at"`
}

type Voter struct {
	AdminID string  `json:"admin_id"`
	Name    string  `json:"name"`
	Team    *string `json:"team"`
}

type ApprovalStatus struct {
	ApplicationID   string            `json:"application_id"`
	ApprovalCount   int               `json:"approval_count"`
	DeclineCount    int               `json:"decline_count"`
	CurrentUserVote *string           `json:"current_user_vote"`
	ApprovedBy      []Voter           `json:"approved_by"`
	DeclinedBy      []Voter           `json:"declined_by"`
	Status          ApplicationStatus `json:"status"`
}

type VoteResult struct {
	Message       string            `json:"message"`
	ApplicationID string            `json:"application_id"`
	Status        ApplicationStatus `json:"status"`
	ApprovalCount int               `json:"approval_count"`
	DeclineCount  int               `json:"decline_count"`
	CanAccept     bool              `json:"can_accept"`
}

type AdminInfo struct {
	ID        string  `json:"id"`
	FirstName *string `json:"first_name"`
	LastName  *string `json:"last_name"`
	Email     string  `json:"email"`
	Team      *string `json:"team"`
}

type AdminNote struct {
	ID            string     `db:"id" json:"id"`
	ApplicationID string     `db:"application_id" json:"application_id"`
	AdminID       string     `db:"admin_id" json:"admin_id"`
	Note          string     `db:"note" json:"note"`
	CreatedAt     time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time  `db:"updated_at" json:"updated_at"`
	Admin         *AdminInfo `db:"-" json:"admin,omitempty"`
}
