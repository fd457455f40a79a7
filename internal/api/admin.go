package api

import (
	"net/http"
	"strconv"
	"strings"

	apperrors "camp-portal/internal/common/errors"
	"camp-portal/internal/common/validation"
	"camp-portal/internal/models"

	"github.com/gorilla/mux"
)

type noteRequest struct {
	Note string `json:"note"`
}

func parseFilter(r *http.Request) (models.ApplicationFilter, error) {
	q := r.URL.Query()
	f := models.ApplicationFilter{
		Status: models.ApplicationStatus(q.Get("status")),
		Search: strings.TrimSpace(q.Get("search")),
	}

	for name, dst := range map[string]*int{"from": &f.From, "size": &f.Size} {
		raw := q.Get(name)
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return f, apperrors.NewValidationError(name + " must be a non-negative integer")
		}
		*dst = n
	}
	return f, nil
}

func (s *Server) adminList(w http.ResponseWriter, r *http.Request) {
	filter, err := parseFilter(r)
	if err != nil {
		WriteError(w, s.logger, r, err)
		return
	}

	page, err := s.apps.AdminList(r.Context(), filter)
	if err != nil {
		WriteError(w, s.logger, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, page)
}

func (s *Server) adminGet(w http.ResponseWriter, r *http.Request) {
	app, err := s.apps.AdminGet(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		WriteError(w, s.logger, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, app)
}

func (s *Server) adminUpdate(w http.ResponseWriter, r *http.Request) {
	admin, _ := UserFromContext(r.Context())

	var in models.ApplicationUpdate
	if err := s.readBody(r, validation.SchemaUpdateApplication, &in); err != nil {
		WriteError(w, s.logger, r, err)
		return
	}

	app, err := s.apps.AdminUpdate(r.Context(), mux.Vars(r)["id"], admin, in)
	if err != nil {
		WriteError(w, s.logger, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, app)
}

func (s *Server) adminProgress(w http.ResponseWriter, r *http.Request) {
	s.writeProgress(w, r, mux.Vars(r)["id"])
}

func (s *Server) vote(approved bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		admin, _ := UserFromContext(r.Context())

		result, err := s.review.Vote(r.Context(), mux.Vars(r)["id"], admin.ID, approved)
		if err != nil {
			WriteError(w, s.logger, r, err)
			return
		}
		WriteJSON(w, http.StatusOK, result)
	}
}

func (s *Server) accept(w http.ResponseWriter, r *http.Request) {
	admin, _ := UserFromContext(r.Context())

	app, err := s.review.Accept(r.Context(), mux.Vars(r)["id"], admin.ID)
	if err != nil {
		WriteError(w, s.logger, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"message":     "Application accepted",
		"application": app,
	})
}

func (s *Server) approvalStatus(w http.ResponseWriter, r *http.Request) {
	admin, _ := UserFromContext(r.Context())

	status, err := s.review.ApprovalStatus(r.Context(), mux.Vars(r)["id"], admin.ID)
	if err != nil {
		WriteError(w, s.logger, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, status)
}

func (s *Server) addNote(w http.ResponseWriter, r *http.Request) {
	admin, _ := UserFromContext(r.Context())

	var in noteRequest
	if err := s.readBody(r, validation.SchemaCreateNote, &in); err != nil {
		WriteError(w, s.logger, r, err)
		return
	}

	note, err := s.review.AddNote(r.Context(), mux.Vars(r)["id"], admin.ID, in.Note)
	if err != nil {
		WriteError(w, s.logger, r, err)
		return
	}
	WriteJSON(w, http.StatusCreated, note)
}

func (s *Server) notes(w http.ResponseWriter, r *http.Request) {
	notes, err := s.review.Notes(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		WriteError(w, s.logger, r, err)
		return
	}
	if notes == nil {
		notes = []models.AdminNote{}
	}
	WriteJSON(w, http.StatusOK, notes)
}
