package store

import (
	"context"
	"errors"
	"fmt"

	"camp-portal/internal/models"

	"github.com/google/uuid"
)

func (q *Queries) ListResponses(ctx context.Context, applicationID string) ([]models.Response, error) {
	var responses []models.Response
	err := q.selectAll(ctx, &responses, `
		SELECT id, application_id, question_id, response_value, file_id, created_at, updated_at
		FROM application_responses
		WHERE application_id = $1
		ORDER BY created_at, id`, applicationID)
	if err != nil {
		return nil, fmt.Errorf("list responses: %w", err)
	}
	return responses, nil
}

// UpsertResponse writes the single answer for (application, question). A file
// reference wins over text and clears it; a text write clears the file.
func (q *Queries) UpsertResponse(ctx context.Context, applicationID string, in models.ResponseInput) error {
	value, fileID := in.ResponseValue, in.FileID
	if fileID != nil && *fileID != "" {
		value = nil
	} else {
		fileID = nil
	}

	_, err := q.exec(ctx, `
		INSERT INTO application_responses (application_id, question_id, response_value, file_id)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (application_id, question_id) DO UPDATE SET
			response_value = EXCLUDED.response_value,
			file_id = EXCLUDED.file_id,
			updated_at = NOW()`,
		applicationID, in.QuestionID, value, fileID,
	)
	if errors.Is(err, ErrNotFound) {
		// The application row is already locked, so the malformed id is the
		// file or the question.
		if fileID != nil {
			if _, perr := uuid.Parse(*fileID); perr != nil {
				return fmt.Errorf("%w: %s", ErrFileNotFound, *fileID)
			}
		}
		return fmt.Errorf("%w: %s", ErrQuestionNotFound, in.QuestionID)
	}
	if err != nil {
		return fmt.Errorf("upsert response for question %s: %w", in.QuestionID, err)
	}
	return nil
}
