package applications

import (
	"context"
	"errors"
	"fmt"

	apperrors "camp-portal/internal/common/errors"
	"camp-portal/internal/common/metrics"
	"camp-portal/internal/common/observability"
	"camp-portal/internal/models"
	"camp-portal/internal/progress"
	"camp-portal/internal/store"

	"go.opentelemetry.io/otel/attribute"
)

// Update applies the owner's PATCH.
func (s *Service) Update(ctx context.Context, applicationID string, caller *models.User, in models.ApplicationUpdate) (*models.Application, error) {
	return s.update(ctx, applicationID, caller, in, true)
}

// AdminUpdate applies an admin's PATCH to any application. The cached
// percentage and the automatic transition behave as for the owner.
func (s *Service) AdminUpdate(ctx context.Context, applicationID string, admin *models.User, in models.ApplicationUpdate) (*models.Application, error) {
	return s.update(ctx, applicationID, admin, in, false)
}

// update runs the whole write in one transaction: names, response upserts,
// the simple recompute and, at 100% from in_progress, the move to
// under_review. Any failure leaves nothing behind.
func (s *Service) update(ctx context.Context, applicationID string, caller *models.User, in models.ApplicationUpdate, ownerOnly bool) (*models.Application, error) {
	ctx, span := observability.StartSpan(ctx, "applications.Update",
		attribute.String("application.id", applicationID),
		attribute.Int("responses", len(in.Responses)))
	defer span.End()

	if err := validateUpdate(in); err != nil {
		return nil, err
	}

	var (
		updated   *models.Application
		submitted bool
	)
	err := s.store.InTx(ctx, func(q *store.Queries) error {
		app, err := q.LockApplication(ctx, applicationID)
		if err != nil {
			return translate(err, "lock application", applicationID)
		}
		if ownerOnly && app.UserID != caller.ID {
			return apperrors.NewForbiddenError("application belongs to another user")
		}

		if in.CamperFirstName != nil || in.CamperLastName != nil {
			if err := q.UpdateApplicantNames(ctx, applicationID, in.CamperFirstName, in.CamperLastName); err != nil {
				return apperrors.NewDatabaseWriteFailedError("update applicant names", err)
			}
		}

		for _, r := range in.Responses {
			if err := q.UpsertResponse(ctx, applicationID, r); err != nil {
				return responseError(err, r)
			}
		}

		pct, err := progress.LoadSimple(ctx, q, applicationID)
		if err != nil {
			return apperrors.NewQueryExecutionFailedError("recompute completion", err)
		}

		if pct == 100 && app.Status == models.StatusInProgress {
			updated, err = q.MarkUnderReview(ctx, applicationID, pct)
			submitted = true
		} else {
			updated, err = q.SetCompletion(ctx, applicationID, pct)
		}
		if err != nil {
			return apperrors.NewDatabaseWriteFailedError("persist completion", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	event := ""
	if submitted {
		event = models.EventApplicationSubmitted
		metrics.StatusTransitions.WithLabelValues(string(models.StatusInProgress), string(models.StatusUnderReview)).Inc()
		s.logger.Info("application submitted for review", map[string]interface{}{
			"applicationId": applicationID,
			"userId":        updated.UserID,
		})
	}
	s.hooks.Committed(ctx, updated, event)

	s.logger.Debug("application updated", map[string]interface{}{
		"applicationId":        applicationID,
		"actorId":              caller.ID,
		"responses":            len(in.Responses),
		"completionPercentage": updated.CompletionPercentage,
	})
	return updated, nil
}

func validateUpdate(in models.ApplicationUpdate) error {
	for i, r := range in.Responses {
		if r.QuestionID == "" {
			return apperrors.NewValidationError(fmt.Sprintf("responses[%d].question_id is required", i))
		}
	}
	return nil
}

func responseError(err error, r models.ResponseInput) error {
	switch {
	case errors.Is(err, store.ErrQuestionNotFound):
		return apperrors.NewNotFoundError("Question", r.QuestionID)
	case errors.Is(err, store.ErrFileNotFound):
		fileID := ""
		if r.FileID != nil {
			fileID = *r.FileID
		}
		return apperrors.NewNotFoundError("File", fileID)
	default:
		return apperrors.NewDatabaseWriteFailedError("upsert response", err)
	}
}
