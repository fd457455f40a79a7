// Package applications implements the applicant and admin operations on
// applications, including the response-write transaction that drives the
// automatic in_progress to under_review transition.
package applications

import (
	"context"
	"errors"
	"sort"

	apperrors "camp-portal/internal/common/errors"
	"camp-portal/internal/common/logger"
	"camp-portal/internal/lifecycle"
	"camp-portal/internal/models"
	"camp-portal/internal/store"
)

// Searcher resolves an admin listing filter to application ids.
type Searcher interface {
	Search(ctx context.Context, filter models.ApplicationFilter) ([]string, int64, error)
}

type Options struct {
	DefaultPageSize int
	MaxPageSize     int
}

type Service struct {
	store    *store.Store
	hooks    *lifecycle.Hooks
	searcher Searcher
	opts     Options
	logger   logger.Logger
}

// NewService builds the service. A nil searcher makes the admin listing
// query Postgres directly.
func NewService(st *store.Store, hooks *lifecycle.Hooks, searcher Searcher, opts Options, log logger.Logger) *Service {
	if opts.DefaultPageSize <= 0 {
		opts.DefaultPageSize = 20
	}
	if opts.MaxPageSize <= 0 {
		opts.MaxPageSize = 100
	}
	return &Service{
		store:    st,
		hooks:    hooks,
		searcher: searcher,
		opts:     opts,
		logger:   log.WithFields(map[string]interface{}{"component": "applications"}),
	}
}

// Create opens the user's single application.
func (s *Service) Create(ctx context.Context, userID string, in models.ApplicationCreate) (*models.Application, error) {
	app, err := s.store.CreateApplication(ctx, userID, in)
	if err != nil {
		if errors.Is(err, store.ErrUniqueViolation) {
			return nil, apperrors.NewDuplicateApplicationError(userID)
		}
		return nil, apperrors.NewDatabaseWriteFailedError("create application", err)
	}

	s.logger.Info("application created", map[string]interface{}{
		"applicationId": app.ID,
		"userId":        userID,
	})
	s.hooks.Committed(ctx, app, "")
	return app, nil
}

func (s *Service) ListMine(ctx context.Context, userID string) ([]models.Application, error) {
	apps, err := s.store.ListApplicationsByUser(ctx, userID)
	if err != nil {
		return nil, apperrors.NewQueryExecutionFailedError("list applications", err)
	}
	if apps == nil {
		apps = []models.Application{}
	}
	return apps, nil
}

// Get returns the caller's own application with its responses.
func (s *Service) Get(ctx context.Context, applicationID string, caller *models.User) (*models.Application, error) {
	app, err := s.withResponses(ctx, applicationID)
	if err != nil {
		return nil, err
	}
	if app.UserID != caller.ID {
		return nil, apperrors.NewForbiddenError("application belongs to another user")
	}
	return app, nil
}

// Owns reports whether caller owns the application, for routes that delegate
// the read to another component.
func (s *Service) Owns(ctx context.Context, applicationID string, caller *models.User) error {
	app, err := s.store.GetApplication(ctx, applicationID)
	if err != nil {
		return translate(err, "get application", applicationID)
	}
	if app.UserID != caller.ID {
		return apperrors.NewForbiddenError("application belongs to another user")
	}
	return nil
}

// Sections returns the active form: active sections, each with its active
// questions, both in order.
func (s *Service) Sections(ctx context.Context) ([]models.SectionWithQuestions, error) {
	sections, err := s.store.ListSections(ctx)
	if err != nil {
		return nil, apperrors.NewQueryExecutionFailedError("list sections", err)
	}
	questions, err := s.store.ListQuestions(ctx)
	if err != nil {
		return nil, apperrors.NewQueryExecutionFailedError("list questions", err)
	}

	bySection := make(map[string][]models.Question)
	for _, q := range questions {
		if q.IsActive {
			bySection[q.SectionID] = append(bySection[q.SectionID], q)
		}
	}

	out := make([]models.SectionWithQuestions, 0, len(sections))
	for _, sec := range sections {
		if !sec.IsActive {
			continue
		}
		qs := bySection[sec.ID]
		if qs == nil {
			qs = []models.Question{}
		}
		sort.SliceStable(qs, func(i, j int) bool { return qs[i].OrderIndex < qs[j].OrderIndex })
		out = append(out, models.SectionWithQuestions{Section: sec, Questions: qs})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].OrderIndex < out[j].OrderIndex })
	return out, nil
}

func (s *Service) AdminGet(ctx context.Context, applicationID string) (*models.Application, error) {
	return s.withResponses(ctx, applicationID)
}

// AdminList pages through applications. With a searcher the index supplies
// the matching ids and Postgres supplies the rows.
func (s *Service) AdminList(ctx context.Context, filter models.ApplicationFilter) (*models.ApplicationPage, error) {
	filter = s.normalize(filter)

	if s.searcher == nil {
		page, err := s.store.ListApplications(ctx, filter)
		if err != nil {
			return nil, apperrors.NewQueryExecutionFailedError("list applications", err)
		}
		return page, nil
	}

	ids, total, err := s.searcher.Search(ctx, filter)
	if err != nil {
		return nil, err
	}
	apps, err := s.store.GetApplicationsByIDs(ctx, ids)
	if err != nil {
		return nil, apperrors.NewQueryExecutionFailedError("get applications by ids", err)
	}
	return &models.ApplicationPage{Applications: apps, Total: total}, nil
}

func (s *Service) normalize(f models.ApplicationFilter) models.ApplicationFilter {
	if f.Size <= 0 {
		f.Size = s.opts.DefaultPageSize
	}
	if f.Size > s.opts.MaxPageSize {
		f.Size = s.opts.MaxPageSize
	}
	if f.From < 0 {
		f.From = 0
	}
	return f
}

func (s *Service) withResponses(ctx context.Context, applicationID string) (*models.Application, error) {
	app, err := s.store.GetApplication(ctx, applicationID)
	if err != nil {
		return nil, translate(err, "get application", applicationID)
	}
	responses, err := s.store.ListResponses(ctx, applicationID)
	if err != nil {
		return nil, apperrors.NewQueryExecutionFailedError("list responses", err)
	}
	if responses == nil {
		responses = []models.Response{}
	}
	app.Responses = responses
	return app, nil
}

func translate(err error, op, applicationID string) error {
	if _, ok := apperrors.AsStandard(err); ok {
		return err
	}
	if errors.Is(err, store.ErrNotFound) {
		return apperrors.NewNotFoundError("Application", applicationID)
	}
	return apperrors.NewQueryExecutionFailedError(op, err)
}
