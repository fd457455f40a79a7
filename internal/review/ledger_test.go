package review

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"camp-portal/internal/common/database"
	apperrors "camp-portal/internal/common/errors"
	"camp-portal/internal/common/logger"
	"camp-portal/internal/common/observability"
	"camp-portal/internal/lifecycle"
	"camp-portal/internal/models"
	"camp-portal/internal/store"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// ==========================
// Test Helper Functions
// ==========================

var appCols = []string{
	"id", "user_id", "camper_first_name", "camper_last_name", "status", "completion_percentage",
	"created_at", "updated_at", "completed_at", "accepted_at", "declined_at",
}

var ledgerCols = []string{"admin_id", "approved", "first_name", "last_name", "team", "created_at"}

type vote struct {
	admin    string
	approved bool
	team     interface{}
}

func appRows(status models.ApplicationStatus, pct int) *sqlmock.Rows {
	now := time.Now()
	var acceptedAt interface{}
	if status == models.StatusAccepted {
		acceptedAt = now
	}
	return sqlmock.NewRows(appCols).
		AddRow("app-1", "user-1", "Ada", "Lovelace", string(status), pct, now, now, now, acceptedAt, nil)
}

func ledgerRows(votes ...vote) *sqlmock.Rows {
	rows := sqlmock.NewRows(ledgerCols)
	for _, v := range votes {
		rows.AddRow(v.admin, v.approved, "First-"+v.admin, nil, v.team, time.Now())
	}
	return rows
}

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) Publish(ctx context.Context, event models.LifecycleEvent) error {
	return m.Called(ctx, event).Error(0)
}

func newTestLedger(t *testing.T, pub lifecycle.Publisher) (*Ledger, sqlmock.Sqlmock) {
	t.Helper()
	db, sqlMock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	log := logger.NewTestLogger(t)
	st := store.New(database.NewPostgresFromDB(db))
	hooks := lifecycle.NewHooks(nil, nil, pub, log)
	return NewLedger(st, hooks, observability.NewNoop(), log), sqlMock
}

func expectAcceptPreconditions(m sqlmock.Sqlmock, status models.ApplicationStatus, votes ...vote) {
	m.ExpectBegin()
	m.ExpectQuery(regexp.QuoteMeta("FOR UPDATE")).WithArgs("app-1").WillReturnRows(appRows(status, 100))
	if status != models.StatusUnderReview {
		m.ExpectRollback()
		return
	}
	m.ExpectQuery("FROM application_approvals v").WithArgs("app-1").WillReturnRows(ledgerRows(votes...))
}

func expectProgressInputs(m sqlmock.Sqlmock) {
	m.ExpectQuery("FROM application_sections").WillReturnRows(
		sqlmock.NewRows([]string{"id", "title", "description", "order_index", "is_active", "show_when_status"}).
			AddRow("s1", "Camper", nil, 1, true, nil).
			AddRow("s2", "Camp prep", nil, 2, true, "accepted"),
	)
	m.ExpectQuery("FROM application_questions").WillReturnRows(
		sqlmock.NewRows([]string{
			"id", "section_id", "question_text", "question_type", "options", "is_required", "is_active",
			"order_index", "help_text", "placeholder", "show_when_status", "show_if_question_id", "show_if_answer",
		}).
			AddRow("q1", "s1", "Name", "text", nil, true, true, 1, nil, nil, nil, nil, nil).
			AddRow("q2", "s2", "Packing list", "file_upload", nil, true, true, 1, nil, nil, nil, nil, nil),
	)
	m.ExpectQuery("FROM application_responses").WithArgs("app-1").WillReturnRows(
		sqlmock.NewRows([]string{"id", "application_id", "question_id", "response_value", "file_id", "created_at", "updated_at"}).
			AddRow("r1", "app-1", "q1", "Ada", nil, time.Now(), time.Now()),
	)
}

func assertCode(t *testing.T, err error, code apperrors.ErrorCode) {
	t.Helper()
	require.Error(t, err)
	stdErr, ok := apperrors.AsStandard(err)
	require.True(t, ok, "expected a StandardError, got %v", err)
	assert.Equal(t, code, stdErr.Code)
}

// ==========================
// Tally
// ==========================

func TestCount_TeamDiversityIgnoresNullTeamsAndDecliners(t *testing.T) {
	team := func(s string) *string { return &s }
	entries := []models.LedgerEntry{
		{AdminID: "a1", Approved: true, Team: team("A")},
		{AdminID: "a2", Approved: true, Team: nil},
		{AdminID: "a3", Approved: true, Team: team("")},
		{AdminID: "a4", Approved: false, Team: team("B")},
		{AdminID: "a5", Approved: true, Team: team("A")},
	}

	got := count(entries)

	assert.Equal(t, 4, got.approvals)
	assert.Equal(t, 1, got.declines)
	assert.Equal(t, 1, got.teams)
	assert.True(t, got.quorumMet())
	assert.False(t, got.diversityMet())
}

// ==========================
// Accept
// ==========================

func TestAccept_TeamDiversityNotMet(t *testing.T) {
	l, m := newTestLedger(t, nil)

	expectAcceptPreconditions(m, models.StatusUnderReview,
		vote{"a1", true, "A"}, vote{"a2", true, "B"}, vote{"a3", true, "A"})
	m.ExpectRollback()

	_, err := l.Accept(context.Background(), "app-1", "a1")

	assertCode(t, err, apperrors.ErrCodeTeamDiversityNotMet)
	assert.Contains(t, err.Error(), "2 distinct team")
	assert.NoError(t, m.ExpectationsWereMet())
}

func TestAccept_QuorumNotMet(t *testing.T) {
	l, m := newTestLedger(t, nil)

	expectAcceptPreconditions(m, models.StatusUnderReview,
		vote{"a1", true, "A"}, vote{"a2", true, "B"}, vote{"a3", false, "C"})
	m.ExpectRollback()

	_, err := l.Accept(context.Background(), "app-1", "a1")

	assertCode(t, err, apperrors.ErrCodeQuorumNotMet)
	assert.Contains(t, err.Error(), "2 approval")
	assert.NoError(t, m.ExpectationsWereMet())
}

func TestAccept_NullTeamsCountTowardQuorumOnly(t *testing.T) {
	l, m := newTestLedger(t, nil)

	expectAcceptPreconditions(m, models.StatusUnderReview,
		vote{"a1", true, "A"}, vote{"a2", true, "B"}, vote{"a3", true, nil}, vote{"a4", true, nil})
	m.ExpectRollback()

	_, err := l.Accept(context.Background(), "app-1", "a1")

	assertCode(t, err, apperrors.ErrCodeTeamDiversityNotMet)
}

func TestAccept_InvalidStateOutsideUnderReview(t *testing.T) {
	for _, status := range []models.ApplicationStatus{models.StatusInProgress, models.StatusAccepted, models.StatusDeclined} {
		t.Run(string(status), func(t *testing.T) {
			l, m := newTestLedger(t, nil)
			expectAcceptPreconditions(m, status)

			_, err := l.Accept(context.Background(), "app-1", "a1")

			assertCode(t, err, apperrors.ErrCodeInvalidState)
			assert.Contains(t, err.Error(), string(status))
			assert.NoError(t, m.ExpectationsWereMet())
		})
	}
}

func TestAccept_NotFound(t *testing.T) {
	l, m := newTestLedger(t, nil)

	m.ExpectBegin()
	m.ExpectQuery(regexp.QuoteMeta("FOR UPDATE")).WithArgs("app-1").WillReturnRows(sqlmock.NewRows(appCols))
	m.ExpectRollback()

	_, err := l.Accept(context.Background(), "app-1", "a1")

	assertCode(t, err, apperrors.ErrCodeNotFound)
	assert.Equal(t, 404, apperrors.HTTPStatus(err))
}

func TestAccept_MalformedIDIsNotFound(t *testing.T) {
	l, m := newTestLedger(t, nil)

	m.ExpectBegin()
	m.ExpectQuery(regexp.QuoteMeta("FOR UPDATE")).WithArgs("nope").
		WillReturnError(&pq.Error{Code: "22P02", Message: `invalid input syntax for type uuid: "nope"`})
	m.ExpectRollback()

	_, err := l.Accept(context.Background(), "nope", "a1")

	assertCode(t, err, apperrors.ErrCodeNotFound)
	assert.Equal(t, 404, apperrors.HTTPStatus(err))
}

func TestAccept_SucceedsThenRejectsRepeat(t *testing.T) {
	pub := &mockPublisher{}
	pub.On("Publish", mock.Anything, mock.MatchedBy(func(ev models.LifecycleEvent) bool {
		return ev.Name == models.EventApplicationAccepted && ev.ApplicationID == "app-1" && ev.Status == models.StatusAccepted
	})).Return(nil).Once()
	l, m := newTestLedger(t, pub)

	expectAcceptPreconditions(m, models.StatusUnderReview,
		vote{"a1", true, "A"}, vote{"a2", true, "B"}, vote{"a3", true, "C"})
	expectProgressInputs(m)
	// q2 is revealed by acceptance and unanswered: 1 of 2 sections complete.
	m.ExpectQuery(regexp.QuoteMeta("WHERE id = $1 AND status = 'under_review'")).
		WithArgs("app-1", 50).
		WillReturnRows(appRows(models.StatusAccepted, 50))
	m.ExpectCommit()

	app, err := l.Accept(context.Background(), "app-1", "a1")

	require.NoError(t, err)
	assert.Equal(t, models.StatusAccepted, app.Status)
	assert.NotNil(t, app.AcceptedAt)
	assert.Equal(t, 50, app.CompletionPercentage)

	expectAcceptPreconditions(m, models.StatusAccepted)

	_, err = l.Accept(context.Background(), "app-1", "a2")

	assertCode(t, err, apperrors.ErrCodeInvalidState)
	assert.NoError(t, m.ExpectationsWereMet())
	pub.AssertExpectations(t)
}

func TestAccept_LostRaceIsInvalidState(t *testing.T) {
	l, m := newTestLedger(t, nil)

	expectAcceptPreconditions(m, models.StatusUnderReview,
		vote{"a1", true, "A"}, vote{"a2", true, "B"}, vote{"a3", true, "C"})
	expectProgressInputs(m)
	m.ExpectQuery(regexp.QuoteMeta("WHERE id = $1 AND status = 'under_review'")).
		WithArgs("app-1", 50).
		WillReturnRows(sqlmock.NewRows(appCols))
	m.ExpectRollback()

	_, err := l.Accept(context.Background(), "app-1", "a1")

	assertCode(t, err, apperrors.ErrCodeInvalidState)
	assert.Contains(t, err.Error(), "'accepted'")
	assert.NoError(t, m.ExpectationsWereMet())
}

func TestAccept_PublishFailureDoesNotFailAccept(t *testing.T) {
	pub := &mockPublisher{}
	pub.On("Publish", mock.Anything, mock.Anything).Return(errors.New("broker unavailable"))
	l, m := newTestLedger(t, pub)

	expectAcceptPreconditions(m, models.StatusUnderReview,
		vote{"a1", true, "A"}, vote{"a2", true, "B"}, vote{"a3", true, "C"})
	expectProgressInputs(m)
	m.ExpectQuery(regexp.QuoteMeta("WHERE id = $1 AND status = 'under_review'")).
		WithArgs("app-1", 50).
		WillReturnRows(appRows(models.StatusAccepted, 50))
	m.ExpectCommit()

	app, err := l.Accept(context.Background(), "app-1", "a1")

	require.NoError(t, err)
	assert.Equal(t, models.StatusAccepted, app.Status)
}

// ==========================
// Vote and ApprovalStatus
// ==========================

func TestVote_ApproveThenDeclineOverwrites(t *testing.T) {
	l, m := newTestLedger(t, nil)

	m.ExpectBegin()
	m.ExpectQuery(regexp.QuoteMeta("FROM applications WHERE id = $1")).WithArgs("app-1").
		WillReturnRows(appRows(models.StatusUnderReview, 100))
	m.ExpectExec("INSERT INTO application_approvals").WithArgs("app-1", "a1", true).
		WillReturnResult(sqlmock.NewResult(0, 1))
	m.ExpectQuery("FROM application_approvals v").WithArgs("app-1").
		WillReturnRows(ledgerRows(vote{"a1", true, "A"}, vote{"a2", true, "B"}))
	m.ExpectCommit()

	first, err := l.Vote(context.Background(), "app-1", "a1", true)
	require.NoError(t, err)
	assert.Equal(t, 2, first.ApprovalCount)
	assert.Equal(t, "Application approved successfully", first.Message)

	m.ExpectBegin()
	m.ExpectQuery(regexp.QuoteMeta("FROM applications WHERE id = $1")).WithArgs("app-1").
		WillReturnRows(appRows(models.StatusUnderReview, 100))
	m.ExpectExec("INSERT INTO application_approvals").WithArgs("app-1", "a1", false).
		WillReturnResult(sqlmock.NewResult(0, 1))
	m.ExpectQuery("FROM application_approvals v").WithArgs("app-1").
		WillReturnRows(ledgerRows(vote{"a1", false, "A"}, vote{"a2", true, "B"}))
	m.ExpectCommit()

	second, err := l.Vote(context.Background(), "app-1", "a1", false)
	require.NoError(t, err)
	assert.Equal(t, 1, second.ApprovalCount)
	assert.Equal(t, 1, second.DeclineCount)
	assert.Equal(t, models.StatusUnderReview, second.Status)
	assert.False(t, second.CanAccept)
	assert.NoError(t, m.ExpectationsWereMet())
}

func TestVote_ThirdApprovalUnlocksButDoesNotAccept(t *testing.T) {
	l, m := newTestLedger(t, nil)

	m.ExpectBegin()
	m.ExpectQuery(regexp.QuoteMeta("FROM applications WHERE id = $1")).WithArgs("app-1").
		WillReturnRows(appRows(models.StatusUnderReview, 100))
	m.ExpectExec("INSERT INTO application_approvals").WillReturnResult(sqlmock.NewResult(0, 1))
	m.ExpectQuery("FROM application_approvals v").WithArgs("app-1").
		WillReturnRows(ledgerRows(vote{"a1", true, "A"}, vote{"a2", true, "B"}, vote{"a3", true, "C"}))
	m.ExpectCommit()

	res, err := l.Vote(context.Background(), "app-1", "a3", true)

	require.NoError(t, err)
	assert.True(t, res.CanAccept)
	assert.Equal(t, models.StatusUnderReview, res.Status)
	assert.NoError(t, m.ExpectationsWereMet())
}

func TestVote_ApplicationMissing(t *testing.T) {
	l, m := newTestLedger(t, nil)

	m.ExpectBegin()
	m.ExpectQuery(regexp.QuoteMeta("FROM applications WHERE id = $1")).WithArgs("app-1").
		WillReturnRows(sqlmock.NewRows(appCols))
	m.ExpectRollback()

	_, err := l.Vote(context.Background(), "app-1", "a1", true)

	assertCode(t, err, apperrors.ErrCodeNotFound)
}

func TestApprovalStatus_ListsVotersAndCurrentVote(t *testing.T) {
	l, m := newTestLedger(t, nil)

	m.ExpectQuery(regexp.QuoteMeta("FROM applications WHERE id = $1")).WithArgs("app-1").
		WillReturnRows(appRows(models.StatusUnderReview, 100))
	rows := sqlmock.NewRows(ledgerCols).
		AddRow("a1", true, "Grace", "Hopper", "A", time.Now()).
		AddRow("a2", false, nil, nil, nil, time.Now())
	m.ExpectQuery("FROM application_approvals v").WithArgs("app-1").WillReturnRows(rows)

	st, err := l.ApprovalStatus(context.Background(), "app-1", "a2")

	require.NoError(t, err)
	assert.Equal(t, 1, st.ApprovalCount)
	assert.Equal(t, 1, st.DeclineCount)
	require.NotNil(t, st.CurrentUserVote)
	assert.Equal(t, "declined", *st.CurrentUserVote)
	require.Len(t, st.ApprovedBy, 1)
	assert.Equal(t, "Grace Hopper", st.ApprovedBy[0].Name)
	require.Len(t, st.DeclinedBy, 1)
	assert.Equal(t, "Unknown", st.DeclinedBy[0].Name)
	assert.Nil(t, st.DeclinedBy[0].Team)
}

func TestApprovalStatus_NoVoteFromCaller(t *testing.T) {
	l, m := newTestLedger(t, nil)

	m.ExpectQuery(regexp.QuoteMeta("FROM applications WHERE id = $1")).WithArgs("app-1").
		WillReturnRows(appRows(models.StatusUnderReview, 100))
	m.ExpectQuery("FROM application_approvals v").WithArgs("app-1").WillReturnRows(ledgerRows())

	st, err := l.ApprovalStatus(context.Background(), "app-1", "a9")

	require.NoError(t, err)
	assert.Nil(t, st.CurrentUserVote)
	assert.Empty(t, st.ApprovedBy)
}

// ==========================
// Notes
// ==========================

func TestAddNote_RejectsBlank(t *testing.T) {
	l, m := newTestLedger(t, nil)

	_, err := l.AddNote(context.Background(), "app-1", "a1", "   ")

	assertCode(t, err, apperrors.ErrCodeValidationFailed)
	assert.NoError(t, m.ExpectationsWereMet())
}

func TestNotes_ApplicationMissing(t *testing.T) {
	l, m := newTestLedger(t, nil)

	m.ExpectQuery(regexp.QuoteMeta("FROM applications WHERE id = $1")).WithArgs("app-1").
		WillReturnRows(sqlmock.NewRows(appCols))

	_, err := l.Notes(context.Background(), "app-1")

	assertCode(t, err, apperrors.ErrCodeNotFound)
}
