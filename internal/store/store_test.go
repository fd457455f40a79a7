package store

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"camp-portal/internal/common/database"
	apperrors "camp-portal/internal/common/errors"
	"camp-portal/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx/types"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return New(database.NewPostgresFromDB(db)), mock
}

var appCols = []string{
	"id", "user_id", "camper_first_name", "camper_last_name", "status", "completion_percentage",
	"created_at", "updated_at", "completed_at", "accepted_at", "declined_at",
}

func appRow(id, status string, pct int) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows(appCols).
		AddRow(id, "user-1", "Ada", "Lovelace", status, pct, now, now, nil, nil, nil)
}

func strPtr(s string) *string { return &s }

// ==========================
// Error mapping
// ==========================

func TestMapError(t *testing.T) {
	tests := []struct {
		name string
		in   error
		want error
	}{
		{"no rows", sql.ErrNoRows, ErrNotFound},
		{"unique", &pq.Error{Code: "23505", Constraint: "applications_user_id_key"}, ErrUniqueViolation},
		{"question fk", &pq.Error{Code: "23503", Constraint: "application_responses_question_fk"}, ErrQuestionNotFound},
		{"file fk", &pq.Error{Code: "23503", Constraint: "application_responses_file_fk"}, ErrFileNotFound},
		{"other fk", &pq.Error{Code: "23503", Constraint: "application_approvals_admin_id_fkey"}, ErrNotFound},
		{"malformed uuid", &pq.Error{Code: "22P02", Message: `invalid input syntax for type uuid: "nope"`}, ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, mapError(tt.in), tt.want)
		})
	}

	assert.NoError(t, mapError(nil))
	other := errors.New("connection reset")
	assert.Equal(t, other, mapError(other))
}

// ==========================
// Applications
// ==========================

func TestCreateApplication_DuplicateUser(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO applications")).
		WithArgs("user-1", "Ada", nil).
		WillReturnError(&pq.Error{Code: "23505", Constraint: "applications_user_id_key"})

	_, err := s.CreateApplication(context.Background(), "user-1", models.ApplicationCreate{CamperFirstName: strPtr("Ada")})

	assert.ErrorIs(t, err, ErrUniqueViolation)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetApplication_NotFound(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(regexp.QuoteMeta("FROM applications WHERE id = $1")).
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows(appCols))

	_, err := s.GetApplication(context.Background(), "missing")

	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMarkAccepted_GuardedByStatus(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE id = $1 AND status = 'under_review'")).
		WithArgs("app-1", 100).
		WillReturnRows(appRow("app-1", "accepted", 100))

	app, err := s.MarkAccepted(context.Background(), "app-1", 100)

	require.NoError(t, err)
	assert.Equal(t, models.StatusAccepted, app.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMarkAccepted_LostRaceReturnsStatusChanged(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE id = $1 AND status = 'under_review'")).
		WithArgs("app-1", 80).
		WillReturnRows(sqlmock.NewRows(appCols))

	_, err := s.MarkAccepted(context.Background(), "app-1", 80)

	assert.ErrorIs(t, err, ErrStatusChanged)
	assert.NotErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMarkUnderReview_StampsCompletion(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(regexp.QuoteMeta("completed_at = NOW()")).
		WithArgs("app-1", 100).
		WillReturnRows(appRow("app-1", "under_review", 100))

	app, err := s.MarkUnderReview(context.Background(), "app-1", 100)

	require.NoError(t, err)
	assert.Equal(t, models.StatusUnderReview, app.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetApplicationsByIDs_PreservesOrder(t *testing.T) {
	s, mock := newMockStore(t)

	now := time.Now()
	rows := sqlmock.NewRows(appCols).
		AddRow("b", "u2", nil, nil, "in_progress", 10, now, now, nil, nil, nil).
		AddRow("a", "u1", nil, nil, "under_review", 100, now, now, now, nil, nil)
	mock.ExpectQuery(regexp.QuoteMeta("WHERE id = ANY($1)")).
		WithArgs(sqlmock.AnyArg()).
		WillReturnRows(rows)

	apps, err := s.GetApplicationsByIDs(context.Background(), []string{"a", "gone", "b"})

	require.NoError(t, err)
	require.Len(t, apps, 2)
	assert.Equal(t, "a", apps[0].ID)
	assert.Equal(t, "b", apps[1].ID)
}

func TestListApplications_ReadsWindowTotal(t *testing.T) {
	s, mock := newMockStore(t)

	now := time.Now()
	cols := append(append([]string{}, appCols...), "total")
	rows := sqlmock.NewRows(cols).
		AddRow("a", "u1", "Ada", nil, "under_review", 100, now, now, now, nil, nil, 7)
	mock.ExpectQuery(regexp.QuoteMeta("COUNT(*) OVER() AS total")).
		WithArgs("under_review", "%ada%", 20, 0).
		WillReturnRows(rows)

	page, err := s.ListApplications(context.Background(), models.ApplicationFilter{
		Status: models.StatusUnderReview,
		Search: "ada",
		Size:   20,
	})

	require.NoError(t, err)
	assert.Equal(t, int64(7), page.Total)
	require.Len(t, page.Applications, 1)
	assert.Equal(t, "a", page.Applications[0].ID)
}

// ==========================
// Responses
// ==========================

func TestListApplications_SearchTextIsLiteral(t *testing.T) {
	s, mock := newMockStore(t)

	cols := append(append([]string{}, appCols...), "total")
	mock.ExpectQuery(regexp.QuoteMeta("COUNT(*) OVER() AS total")).
		WithArgs("", `%100\% o\_k \\ ada%`, 20, 0).
		WillReturnRows(sqlmock.NewRows(cols))

	page, err := s.ListApplications(context.Background(), models.ApplicationFilter{
		Search: `100% o_k \ ada`,
		Size:   20,
	})

	require.NoError(t, err)
	assert.Empty(t, page.Applications)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertResponse_FileClearsValue(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec(regexp.QuoteMeta("ON CONFLICT (application_id, question_id) DO UPDATE")).
		WithArgs("app-1", "q-1", nil, "file-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := s.UpsertResponse(context.Background(), "app-1", models.ResponseInput{
		QuestionID:    "q-1",
		ResponseValue: strPtr("ignored"),
		FileID:        strPtr("file-1"),
	})

	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertResponse_UnknownQuestion(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec("INSERT INTO application_responses").
		WithArgs("app-1", "nope", "yes", nil).
		WillReturnError(&pq.Error{Code: "23503", Constraint: "application_responses_question_fk"})

	err := s.UpsertResponse(context.Background(), "app-1", models.ResponseInput{
		QuestionID:    "nope",
		ResponseValue: strPtr("yes"),
	})

	assert.ErrorIs(t, err, ErrQuestionNotFound)
}

// ==========================
// Votes and transactions
// ==========================

func TestUpsertResponse_MalformedIDs(t *testing.T) {
	s, mock := newMockStore(t)
	badUUID := &pq.Error{Code: "22P02", Message: "invalid input syntax for type uuid"}
	validFile := "0b8f5a44-9d0e-4c39-8c55-7a1f2d3e4b5c"

	mock.ExpectExec("INSERT INTO application_responses").WillReturnError(badUUID)
	err := s.UpsertResponse(context.Background(), "app-1", models.ResponseInput{QuestionID: "nope", ResponseValue: strPtr("x")})
	assert.ErrorIs(t, err, ErrQuestionNotFound)

	mock.ExpectExec("INSERT INTO application_responses").WillReturnError(badUUID)
	err = s.UpsertResponse(context.Background(), "app-1", models.ResponseInput{QuestionID: "q2", FileID: strPtr("nope")})
	assert.ErrorIs(t, err, ErrFileNotFound)

	mock.ExpectExec("INSERT INTO application_responses").WillReturnError(badUUID)
	err = s.UpsertResponse(context.Background(), "app-1", models.ResponseInput{QuestionID: "nope", FileID: &validFile})
	assert.ErrorIs(t, err, ErrQuestionNotFound)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertVote_Overwrites(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec(regexp.QuoteMeta("ON CONFLICT (application_id, admin_id) DO UPDATE")).
		WithArgs("app-1", "admin-1", false).
		WillReturnResult(sqlmock.NewResult(0, 1))

	assert.NoError(t, s.UpsertVote(context.Background(), "app-1", "admin-1", false))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLedger_LeftJoinsAdminProfile(t *testing.T) {
	s, mock := newMockStore(t)

	now := time.Now()
	rows := sqlmock.NewRows([]string{"admin_id", "approved", "first_name", "last_name", "team", "created_at"}).
		AddRow("admin-1", true, "Grace", "Hopper", "A", now).
		AddRow("admin-2", false, nil, nil, nil, now)
	mock.ExpectQuery("FROM application_approvals v").WithArgs("app-1").WillReturnRows(rows)

	entries, err := s.Ledger(context.Background(), "app-1")

	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.True(t, entries[0].Approved)
	assert.Equal(t, "A", *entries[0].Team)
	assert.Nil(t, entries[1].Team)
}

func TestInTx_RollsBackOnQueryError(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FOR UPDATE")).
		WithArgs("app-1").
		WillReturnRows(sqlmock.NewRows(appCols))
	mock.ExpectRollback()

	err := s.InTx(context.Background(), func(q *Queries) error {
		_, err := q.LockApplication(context.Background(), "app-1")
		return err
	})

	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInTx_BeginFailureIsConnectionError(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin().WillReturnError(errors.New("dial tcp 10.0.0.5:5432: connection refused"))

	called := false
	err := s.InTx(context.Background(), func(q *Queries) error {
		called = true
		return nil
	})

	require.Error(t, err)
	assert.False(t, called)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeDatabaseConnectionFailed))
	assert.Equal(t, 500, apperrors.HTTPStatus(err))
}

func TestListNotes_AttachesAdmin(t *testing.T) {
	s, mock := newMockStore(t)

	now := time.Now()
	rows := sqlmock.NewRows([]string{
		"id", "application_id", "admin_id", "note", "created_at", "updated_at",
		"admin_first_name", "admin_last_name", "admin_email", "admin_team",
	}).AddRow("n-1", "app-1", "admin-1", "Strong references", now, now, "Grace", "Hopper", "grace@camp.org", "A")
	mock.ExpectQuery("FROM admin_notes n").WithArgs("app-1").WillReturnRows(rows)

	notes, err := s.ListNotes(context.Background(), "app-1")

	require.NoError(t, err)
	require.Len(t, notes, 1)
	require.NotNil(t, notes[0].Admin)
	assert.Equal(t, "admin-1", notes[0].Admin.ID)
	assert.Equal(t, "grace@camp.org", notes[0].Admin.Email)
}

// ==========================
// Form schema
// ==========================

func TestUpsertQuestion_OptionsAsJSONText(t *testing.T) {
	s, mock := newMockStore(t)
	opts := types.JSONText(`["Yes","No"]`)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO application_questions")).
		WithArgs("q-diet", "health", "Dietary restrictions?", "select", `["Yes","No"]`, true,
			true, 2, nil, nil, nil, nil, nil).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := s.UpsertQuestion(context.Background(), models.Question{
		ID:           "q-diet",
		SectionID:    "health",
		QuestionText: "Dietary restrictions?",
		QuestionType: "select",
		Options:      &opts,
		IsRequired:   true,
		IsActive:     true,
		OrderIndex:   2,
	})

	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertSection_WrapsError(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO application_sections")).
		WillReturnError(sql.ErrConnDone)

	err := s.UpsertSection(context.Background(), models.Section{ID: "camper", Title: "Camper", IsActive: true})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "upsert section camper")
}

func TestListSections_DocumentOrder(t *testing.T) {
	s, mock := newMockStore(t)

	rows := sqlmock.NewRows([]string{"id", "title", "description", "order_index", "is_active", "show_when_status"}).
		AddRow("camper", "Camper", nil, 1, true, nil).
		AddRow("enrollment", "Enrollment", nil, 2, true, "accepted")
	mock.ExpectQuery(regexp.QuoteMeta("FROM application_sections ORDER BY order_index, id")).WillReturnRows(rows)

	sections, err := s.ListSections(context.Background())

	require.NoError(t, err)
	require.Len(t, sections, 2)
	assert.Nil(t, sections[0].ShowWhenStatus)
	require.NotNil(t, sections[1].ShowWhenStatus)
	assert.Equal(t, "accepted", *sections[1].ShowWhenStatus)
}
