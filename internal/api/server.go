// Package api exposes the portal over HTTP.
package api

import (
	"context"
	"net/http"
	"time"

	"camp-portal/internal/common/auth"
	"camp-portal/internal/common/logger"
	"camp-portal/internal/common/validation"
	"camp-portal/internal/models"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Applications interface {
	Create(ctx context.Context, userID string, in models.ApplicationCreate) (*models.Application, error)
	ListMine(ctx context.Context, userID string) ([]models.Application, error)
	Get(ctx context.Context, applicationID string, caller *models.User) (*models.Application, error)
	Owns(ctx context.Context, applicationID string, caller *models.User) error
	Sections(ctx context.Context) ([]models.SectionWithQuestions, error)
	Update(ctx context.Context, applicationID string, caller *models.User, in models.ApplicationUpdate) (*models.Application, error)
	AdminGet(ctx context.Context, applicationID string) (*models.Application, error)
	AdminList(ctx context.Context, filter models.ApplicationFilter) (*models.ApplicationPage, error)
	AdminUpdate(ctx context.Context, applicationID string, admin *models.User, in models.ApplicationUpdate) (*models.Application, error)
}

type Review interface {
	Vote(ctx context.Context, applicationID, adminID string, approved bool) (*models.VoteResult, error)
	Accept(ctx context.Context, applicationID, actingAdminID string) (*models.Application, error)
	ApprovalStatus(ctx context.Context, applicationID, currentAdminID string) (*models.ApprovalStatus, error)
	AddNote(ctx context.Context, applicationID, adminID, text string) (*models.AdminNote, error)
	Notes(ctx context.Context, applicationID string) ([]models.AdminNote, error)
}

type Progress interface {
	ForApplication(ctx context.Context, applicationID string) (*models.ApplicationProgress, error)
}

// Check is a named readiness probe.
type Check func(ctx context.Context) error

type Deps struct {
	Applications Applications
	Review       Review
	Progress     Progress
	Verifier     auth.TokenVerifier
	Users        UserLookup
	Validator    *validation.Validator
	Checks       map[string]Check
}

type Server struct {
	apps      Applications
	review    Review
	progress  Progress
	verifier  auth.TokenVerifier
	users     UserLookup
	validator *validation.Validator
	checks    map[string]Check
	logger    logger.Logger
}

func NewServer(deps Deps, log logger.Logger) *Server {
	return &Server{
		apps:      deps.Applications,
		review:    deps.Review,
		progress:  deps.Progress,
		verifier:  deps.Verifier,
		users:     deps.Users,
		validator: deps.Validator,
		checks:    deps.Checks,
		logger:    log.WithFields(map[string]interface{}{"component": "http"}),
	}
}

// Router builds the full route table.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.Use(observe(s.logger))

	r.HandleFunc("/health", s.health).Methods(http.MethodGet)
	r.HandleFunc("/ready", s.ready).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	applicant := r.PathPrefix("/applications").Subrouter()
	applicant.Use(s.authenticate)
	// sections must win over {id}
	applicant.HandleFunc("/sections", s.sections).Methods(http.MethodGet)
	applicant.HandleFunc("", s.createApplication).Methods(http.MethodPost)
	applicant.HandleFunc("", s.listMine).Methods(http.MethodGet)
	applicant.HandleFunc("/{id}", s.getApplication).Methods(http.MethodGet)
	applicant.HandleFunc("/{id}", s.updateApplication).Methods(http.MethodPatch)
	applicant.HandleFunc("/{id}/progress", s.applicationProgress).Methods(http.MethodGet)

	admin := r.PathPrefix("/admin/applications").Subrouter()
	admin.Use(s.authenticate, s.requireAdmin)
	admin.HandleFunc("", s.adminList).Methods(http.MethodGet)
	admin.HandleFunc("/{id}", s.adminGet).Methods(http.MethodGet)
	admin.HandleFunc("/{id}", s.adminUpdate).Methods(http.MethodPatch)
	admin.HandleFunc("/{id}/progress", s.adminProgress).Methods(http.MethodGet)
	admin.HandleFunc("/{id}/approve", s.vote(true)).Methods(http.MethodPost)
	admin.HandleFunc("/{id}/decline", s.vote(false)).Methods(http.MethodPost)
	admin.HandleFunc("/{id}/accept", s.accept).Methods(http.MethodPost)
	admin.HandleFunc("/{id}/approval-status", s.approvalStatus).Methods(http.MethodGet)
	admin.HandleFunc("/{id}/notes", s.addNote).Methods(http.MethodPost)
	admin.HandleFunc("/{id}/notes", s.notes).Methods(http.MethodGet)

	return r
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (s *Server) ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	status := http.StatusOK
	results := make(map[string]string, len(s.checks))
	for name, check := range s.checks {
		if err := check(ctx); err != nil {
			status = http.StatusServiceUnavailable
			results[name] = err.Error()
			continue
		}
		results[name] = "ok"
	}

	state := "ready"
	if status != http.StatusOK {
		state = "not ready"
	}
	WriteJSON(w, status, map[string]interface{}{"status": state, "checks": results})
}
