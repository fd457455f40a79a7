package review

import (
	"context"
	"strings"

	apperrors "camp-portal/internal/common/errors"
	"camp-portal/internal/models"
)

func (l *Ledger) AddNote(ctx context.Context, applicationID, adminID, text string) (*models.AdminNote, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, apperrors.NewValidationError("note must not be empty")
	}
	if _, err := l.store.GetApplication(ctx, applicationID); err != nil {
		return nil, translate(err, "get application", applicationID)
	}
	note, err := l.store.CreateNote(ctx, applicationID, adminID, text)
	if err != nil {
		return nil, apperrors.NewDatabaseWriteFailedError("create note", err)
	}
	return note, nil
}

// Notes lists the application's notes, newest first.
func (l *Ledger) Notes(ctx context.Context, applicationID string) ([]models.AdminNote, error) {
	if _, err := l.store.GetApplication(ctx, applicationID); err != nil {
		return nil, translate(err, "get application", applicationID)
	}
	notes, err := l.store.ListNotes(ctx, applicationID)
	if err != nil {
		return nil, translate(err, "list notes", applicationID)
	}
	return notes, nil
}
