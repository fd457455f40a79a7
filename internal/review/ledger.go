// Package review implements the admin approval ledger, the quorum-gated
// accept action and admin notes.
package review

import (
	"context"
	"errors"

	apperrors "camp-portal/internal/common/errors"
	"camp-portal/internal/common/logger"
	"camp-portal/internal/common/metrics"
	"camp-portal/internal/common/observability"
	"camp-portal/internal/lifecycle"
	"camp-portal/internal/models"
	"camp-portal/internal/store"
)

// Acceptance policy.
const (
	QuorumSize       = 3
	MinDistinctTeams = 3
)

const (
	voteApproved = "approved"
	voteDeclined = "declined"
)

type Ledger struct {
	store  *store.Store
	hooks  *lifecycle.Hooks
	obs    *observability.Observability
	logger logger.Logger
}

func NewLedger(st *store.Store, hooks *lifecycle.Hooks, obs *observability.Observability, log logger.Logger) *Ledger {
	return &Ledger{
		store:  st,
		hooks:  hooks,
		obs:    obs,
		logger: log.WithFields(map[string]interface{}{"component": "review"}),
	}
}

// tally summarizes the ledger. Teams counts distinct non-empty teams among
// approving admins only; an approver without a team still counts toward the
// quorum.
type tally struct {
	approvals int
	declines  int
	teams     int
}

func count(entries []models.LedgerEntry) tally {
	var t tally
	teams := make(map[string]struct{})
	for _, e := range entries {
		if !e.Approved {
			t.declines++
			continue
		}
		t.approvals++
		if e.Team != nil && *e.Team != "" {
			teams[*e.Team] = struct{}{}
		}
	}
	t.teams = len(teams)
	return t
}

func (t tally) quorumMet() bool    { return t.approvals >= QuorumSize }
func (t tally) diversityMet() bool { return t.teams >= MinDistinctTeams }

func canAccept(status models.ApplicationStatus, t tally) bool {
	return status == models.StatusUnderReview && t.quorumMet() && t.diversityMet()
}

// Vote records adminID's approval or decline, replacing any earlier vote by
// the same admin. It never changes the application's status.
func (l *Ledger) Vote(ctx context.Context, applicationID, adminID string, approved bool) (*models.VoteResult, error) {
	ctx, span := observability.StartSpan(ctx, "review.Vote")
	defer span.End()

	var result *models.VoteResult
	err := l.store.InTx(ctx, func(q *store.Queries) error {
		app, err := q.GetApplication(ctx, applicationID)
		if err != nil {
			return translate(err, "get application", applicationID)
		}
		if err := q.UpsertVote(ctx, applicationID, adminID, approved); err != nil {
			return translate(err, "upsert vote", applicationID)
		}
		entries, err := q.Ledger(ctx, applicationID)
		if err != nil {
			return translate(err, "load ledger", applicationID)
		}

		t := count(entries)
		result = &models.VoteResult{
			Message:       "Application declined",
			ApplicationID: app.ID,
			Status:        app.Status,
			ApprovalCount: t.approvals,
			DeclineCount:  t.declines,
			CanAccept:     canAccept(app.Status, t),
		}
		if approved {
			result.Message = "Application approved successfully"
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	decision := voteDeclined
	if approved {
		decision = voteApproved
	}
	metrics.VotesRecorded.WithLabelValues(decision).Inc()
	l.logger.Info("vote recorded", map[string]interface{}{
		"applicationId": applicationID,
		"adminId":       adminID,
		"decision":      decision,
		"approvals":     result.ApprovalCount,
		"declines":      result.DeclineCount,
	})
	return result, nil
}

// ApprovalStatus summarizes the ledger as seen by currentAdminID.
func (l *Ledger) ApprovalStatus(ctx context.Context, applicationID, currentAdminID string) (*models.ApprovalStatus, error) {
	app, err := l.store.GetApplication(ctx, applicationID)
	if err != nil {
		return nil, translate(err, "get application", applicationID)
	}
	entries, err := l.store.Ledger(ctx, applicationID)
	if err != nil {
		return nil, translate(err, "load ledger", applicationID)
	}

	t := count(entries)
	status := &models.ApprovalStatus{
		ApplicationID: app.ID,
		ApprovalCount: t.approvals,
		DeclineCount:  t.declines,
		ApprovedBy:    []models.Voter{},
		DeclinedBy:    []models.Voter{},
		Status:        app.Status,
	}
	for _, e := range entries {
		voter := models.Voter{
			AdminID: e.AdminID,
			Name:    models.DisplayName(e.FirstName, e.LastName),
			Team:    e.Team,
		}
		vote := voteDeclined
		if e.Approved {
			vote = voteApproved
			status.ApprovedBy = append(status.ApprovedBy, voter)
		} else {
			status.DeclinedBy = append(status.DeclinedBy, voter)
		}
		if e.AdminID == currentAdminID {
			v := vote
			status.CurrentUserVote = &v
		}
	}
	return status, nil
}

// translate maps store sentinels onto the portal error taxonomy.
func translate(err error, op, applicationID string) error {
	if _, ok := apperrors.AsStandard(err); ok {
		return err
	}
	if errors.Is(err, store.ErrNotFound) {
		return apperrors.NewNotFoundError("Application", applicationID)
	}
	return apperrors.NewQueryExecutionFailedError(op, err)
}
