package store

import (
	"context"
	"fmt"

	"camp-portal/internal/models"
)

type noteRow struct {
	models.AdminNote
	AdminFirstName *string `db:"admin_first_name"`
	AdminLastName  *string `db:"admin_last_name"`
	AdminEmail     string  `db:"admin_email"`
	AdminTeam      *string `db:"admin_team"`
}

func (r noteRow) toModel() models.AdminNote {
	n := r.AdminNote
	n.Admin = &models.AdminInfo{
		ID:        r.AdminID,
		FirstName: r.AdminFirstName,
		LastName:  r.AdminLastName,
		Email:     r.AdminEmail,
		Team:      r.AdminTeam,
	}
	return n
}

const noteSelect = `
	SELECT n.id, n.application_id, n.admin_id, n.note, n.created_at, n.updated_at,
		u.first_name AS admin_first_name, u.last_name AS admin_last_name,
		COALESCE(u.email, '') AS admin_email, u.team AS admin_team
	FROM admin_notes n
	LEFT JOIN users u ON u.id = n.admin_id`

func (q *Queries) CreateNote(ctx context.Context, applicationID, adminID, note string) (*models.AdminNote, error) {
	var id string
	err := q.get(ctx, &id, `
		INSERT INTO admin_notes (application_id, admin_id, note)
		VALUES ($1, $2, $3)
		RETURNING id`, applicationID, adminID, note)
	if err != nil {
		return nil, fmt.Errorf("create note: %w", err)
	}

	var row noteRow
	if err := q.get(ctx, &row, noteSelect+` WHERE n.id = $1`, id); err != nil {
		return nil, fmt.Errorf("reload note %s: %w", id, err)
	}
	n := row.toModel()
	return &n, nil
}

// ListNotes returns the application's notes, newest first.
func (q *Queries) ListNotes(ctx context.Context, applicationID string) ([]models.AdminNote, error) {
	var rows []noteRow
	if err := q.selectAll(ctx, &rows, noteSelect+` WHERE n.application_id = $1 ORDER BY n.created_at DESC`, applicationID); err != nil {
		return nil, fmt.Errorf("list notes: %w", err)
	}
	notes := make([]models.AdminNote, 0, len(rows))
	for _, r := range rows {
		notes = append(notes, r.toModel())
	}
	return notes, nil
}
