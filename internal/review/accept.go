package review

import (
	"context"
	"errors"

	apperrors "camp-portal/internal/common/errors"
	"camp-portal/internal/common/metrics"
	"camp-portal/internal/common/observability"
	"camp-portal/internal/models"
	"camp-portal/internal/progress"
	"camp-portal/internal/store"

	"go.opentelemetry.io/otel/attribute"
)

// Accept moves an under_review application to accepted once the ledger holds
// QuorumSize approvals from at least MinDistinctTeams teams.
//
// The application row stays locked from the precondition checks through the
// guarded update, so concurrent acceptors serialize: exactly one succeeds and
// the rest see InvalidState naming the accepted status.
func (l *Ledger) Accept(ctx context.Context, applicationID, actingAdminID string) (*models.Application, error) {
	ctx, span := observability.StartSpan(ctx, "review.Accept",
		attribute.String("application.id", applicationID))
	defer span.End()

	var accepted *models.Application
	err := l.store.InTx(ctx, func(q *store.Queries) error {
		app, err := q.LockApplication(ctx, applicationID)
		if err != nil {
			return translate(err, "lock application", applicationID)
		}
		if app.Status != models.StatusUnderReview {
			return apperrors.NewInvalidStateError(string(app.Status), string(models.StatusUnderReview))
		}

		entries, err := q.Ledger(ctx, applicationID)
		if err != nil {
			return translate(err, "load ledger", applicationID)
		}
		t := count(entries)
		if !t.quorumMet() {
			return apperrors.NewQuorumNotMetError(t.approvals, QuorumSize)
		}
		if !t.diversityMet() {
			return apperrors.NewTeamDiversityNotMetError(t.teams, MinDistinctTeams)
		}

		// Acceptance can reveal status-gated sections, so the cached
		// percentage is recomputed against the new status.
		result, err := progress.Load(ctx, q, applicationID, models.StatusAccepted)
		if err != nil {
			return translate(err, "load progress inputs", applicationID)
		}

		accepted, err = q.MarkAccepted(ctx, applicationID, result.OverallPercentage)
		if errors.Is(err, store.ErrStatusChanged) {
			return apperrors.NewInvalidStateError(string(models.StatusAccepted), string(models.StatusUnderReview))
		}
		if err != nil {
			return apperrors.NewDatabaseWriteFailedError("mark accepted", err)
		}
		return nil
	})
	if err != nil {
		if stdErr, ok := apperrors.AsStandard(err); ok {
			metrics.AcceptRejections.WithLabelValues(string(stdErr.Code)).Inc()
			l.obs.RecordAccept(ctx, string(stdErr.Code))
		}
		l.logger.Warn("accept refused", map[string]interface{}{
			"applicationId": applicationID,
			"adminId":       actingAdminID,
			"error":         err,
		})
		return nil, err
	}

	metrics.StatusTransitions.WithLabelValues(string(models.StatusUnderReview), string(models.StatusAccepted)).Inc()
	l.obs.RecordAccept(ctx, "accepted")
	l.logger.Info("application accepted", map[string]interface{}{
		"applicationId":        applicationID,
		"adminId":              actingAdminID,
		"completionPercentage": accepted.CompletionPercentage,
	})

	l.hooks.Committed(ctx, accepted, models.EventApplicationAccepted)
	return accepted, nil
}
