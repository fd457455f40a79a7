package store

import (
	"context"
	"fmt"

	"camp-portal/internal/models"
)

// UpsertVote records the admin's current decision, overwriting any earlier
// vote and its timestamp.
func (q *Queries) UpsertVote(ctx context.Context, applicationID, adminID string, approved bool) error {
	_, err := q.exec(ctx, `
		INSERT INTO application_approvals (application_id, admin_id, approved, created_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (application_id, admin_id) DO UPDATE SET
			approved = EXCLUDED.approved,
			created_at = EXCLUDED.created_at`,
		applicationID, adminID, approved,
	)
	if err != nil {
		return fmt.Errorf("upsert vote: %w", err)
	}
	return nil
}

// Ledger returns one entry per voting admin, oldest vote first.
func (q *Queries) Ledger(ctx context.Context, applicationID string) ([]models.LedgerEntry, error) {
	var entries []models.LedgerEntry
	err := q.selectAll(ctx, &entries, `
		SELECT v.admin_id, v.approved, u.first_name, u.last_name, u.team, v.created_at
		FROM application_approvals v
		LEFT JOIN users u ON u.id = v.admin_id
		WHERE v.application_id = $1
		ORDER BY v.created_at, v.admin_id`, applicationID)
	if err != nil {
		return nil, fmt.Errorf("load ledger: %w", err)
	}
	return entries, nil
}
