package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"camp-portal/internal/models"

	"github.com/lib/pq"
)

const applicationColumns = `id, user_id, camper_first_name, camper_last_name, status, completion_percentage,
	created_at, updated_at, completed_at, accepted_at, declined_at`

// CreateApplication inserts the user's single application. A second insert for
// the same user fails with ErrUniqueViolation.
func (q *Queries) CreateApplication(ctx context.Context, userID string, in models.ApplicationCreate) (*models.Application, error) {
	var app models.Application
	err := q.get(ctx, &app, `
		INSERT INTO applications (user_id, camper_first_name, camper_last_name)
		VALUES ($1, $2, $3)
		RETURNING `+applicationColumns,
		userID, in.CamperFirstName, in.CamperLastName,
	)
	if err != nil {
		return nil, fmt.Errorf("create application: %w", err)
	}
	return &app, nil
}

func (q *Queries) GetApplication(ctx context.Context, id string) (*models.Application, error) {
	var app models.Application
	if err := q.get(ctx, &app, `SELECT `+applicationColumns+` FROM applications WHERE id = $1`, id); err != nil {
		return nil, fmt.Errorf("get application %s: %w", id, err)
	}
	return &app, nil
}

// LockApplication reads the application with a row lock held until the
// surrounding transaction ends.
func (q *Queries) LockApplication(ctx context.Context, id string) (*models.Application, error) {
	var app models.Application
	if err := q.get(ctx, &app, `SELECT `+applicationColumns+` FROM applications WHERE id = $1 FOR UPDATE`, id); err != nil {
		return nil, fmt.Errorf("lock application %s: %w", id, err)
	}
	return &app, nil
}

func (q *Queries) ListApplicationsByUser(ctx context.Context, userID string) ([]models.Application, error) {
	var apps []models.Application
	err := q.selectAll(ctx, &apps, `SELECT `+applicationColumns+` FROM applications WHERE user_id = $1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list applications for user: %w", err)
	}
	return apps, nil
}

// GetApplicationsByIDs returns the rows for ids in the order given, skipping
// ids that no longer exist.
func (q *Queries) GetApplicationsByIDs(ctx context.Context, ids []string) ([]models.Application, error) {
	if len(ids) == 0 {
		return []models.Application{}, nil
	}
	var apps []models.Application
	err := q.selectAll(ctx, &apps, `SELECT `+applicationColumns+` FROM applications WHERE id = ANY($1)`, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("get applications by ids: %w", err)
	}

	byID := make(map[string]models.Application, len(apps))
	for _, a := range apps {
		byID[a.ID] = a
	}
	ordered := make([]models.Application, 0, len(apps))
	for _, id := range ids {
		if a, ok := byID[id]; ok {
			ordered = append(ordered, a)
		}
	}
	return ordered, nil
}

// likeEscaper makes user text match literally under ILIKE's default
// backslash escape.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

type applicationPageRow struct {
	models.Application
	Total int64 `db:"total"`
}

// ListApplications is the database-backed admin listing used when the
// search index is disabled.
func (q *Queries) ListApplications(ctx context.Context, f models.ApplicationFilter) (*models.ApplicationPage, error) {
	pattern := ""
	if f.Search != "" {
		pattern = "%" + likeEscaper.Replace(f.Search) + "%"
	}

	var rows []applicationPageRow
	err := q.selectAll(ctx, &rows, `
		SELECT a.id, a.user_id, a.camper_first_name, a.camper_last_name, a.status, a.completion_percentage,
			a.created_at, a.updated_at, a.completed_at, a.accepted_at, a.declined_at,
			COUNT(*) OVER() AS total
		FROM applications a
		JOIN users u ON u.id = a.user_id
		WHERE ($1 = '' OR a.status = $1)
		  AND ($2 = '' OR a.camper_first_name ILIKE $2 OR a.camper_last_name ILIKE $2 OR u.email ILIKE $2)
		ORDER BY a.created_at DESC
		LIMIT $3 OFFSET $4`,
		string(f.Status), pattern, f.Size, f.From,
	)
	if err != nil {
		return nil, fmt.Errorf("list applications: %w", err)
	}

	page := &models.ApplicationPage{Applications: make([]models.Application, 0, len(rows))}
	for _, r := range rows {
		page.Applications = append(page.Applications, r.Application)
		page.Total = r.Total
	}
	return page, nil
}

func (q *Queries) UpdateApplicantNames(ctx context.Context, id string, first, last *string) error {
	_, err := q.exec(ctx, `
		UPDATE applications
		SET camper_first_name = COALESCE($2, camper_first_name),
			camper_last_name = COALESCE($3, camper_last_name),
			updated_at = NOW()
		WHERE id = $1`, id, first, last)
	if err != nil {
		return fmt.Errorf("update applicant names: %w", err)
	}
	return nil
}

// SetCompletion stores the cached percentage without touching status.
func (q *Queries) SetCompletion(ctx context.Context, id string, pct int) (*models.Application, error) {
	var app models.Application
	err := q.get(ctx, &app, `
		UPDATE applications SET completion_percentage = $2, updated_at = NOW()
		WHERE id = $1
		RETURNING `+applicationColumns, id, pct)
	if err != nil {
		return nil, fmt.Errorf("set completion: %w", err)
	}
	return &app, nil
}

// MarkUnderReview moves an in_progress application to under_review and stamps
// completed_at. ErrStatusChanged means the row was no longer in_progress.
func (q *Queries) MarkUnderReview(ctx context.Context, id string, pct int) (*models.Application, error) {
	return q.transition(ctx, "mark under review", `
		UPDATE applications
		SET status = 'under_review', completion_percentage = $2, completed_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND status = 'in_progress'
		RETURNING `+applicationColumns, id, pct)
}

// MarkAccepted moves an under_review application to accepted and stamps
// accepted_at. ErrStatusChanged means another acceptor won.
func (q *Queries) MarkAccepted(ctx context.Context, id string, pct int) (*models.Application, error) {
	return q.transition(ctx, "mark accepted", `
		UPDATE applications
		SET status = 'accepted', completion_percentage = $2, accepted_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND status = 'under_review'
		RETURNING `+applicationColumns, id, pct)
}

func (q *Queries) transition(ctx context.Context, op, query string, id string, pct int) (*models.Application, error) {
	var app models.Application
	err := q.get(ctx, &app, query, id, pct)
	if errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("%s %s: %w", op, id, ErrStatusChanged)
	}
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", op, id, err)
	}
	return &app, nil
}

// ApplicantContact is what the notification and index workers need about an
// application's owner.
type ApplicantContact struct {
	ApplicationID   string  `db:"application_id"`
	UserID          string  `db:"user_id"`
	Email           string  `db:"email"`
	Phone           *string `db:"phone"`
	CamperFirstName *string `db:"camper_first_name"`
	CamperLastName  *string `db:"camper_last_name"`
}

func (q *Queries) GetApplicantContact(ctx context.Context, applicationID string) (*ApplicantContact, error) {
	var c ApplicantContact
	err := q.get(ctx, &c, `
		SELECT a.id AS application_id, a.user_id, u.email, u.phone, a.camper_first_name, a.camper_last_name
		FROM applications a
		JOIN users u ON u.id = a.user_id
		WHERE a.id = $1`, applicationID)
	if err != nil {
		return nil, fmt.Errorf("get applicant contact %s: %w", applicationID, err)
	}
	return &c, nil
}
