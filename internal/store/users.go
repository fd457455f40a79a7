package store

import (
	"context"
	"fmt"

	"camp-portal/internal/models"
)

const userColumns = `id, email, first_name, last_name, phone, role, team, external_subject`

// GetUserBySubject maps an identity-provider subject to a portal user.
func (q *Queries) GetUserBySubject(ctx context.Context, subject string) (*models.User, error) {
	var u models.User
	if err := q.get(ctx, &u, `SELECT `+userColumns+` FROM users WHERE external_subject = $1`, subject); err != nil {
		return nil, fmt.Errorf("get user by subject: %w", err)
	}
	return &u, nil
}

func (q *Queries) GetUser(ctx context.Context, id string) (*models.User, error) {
	var u models.User
	if err := q.get(ctx, &u, `SELECT `+userColumns+` FROM users WHERE id = $1`, id); err != nil {
		return nil, fmt.Errorf("get user %s: %w", id, err)
	}
	return &u, nil
}
