package api

import (
	"net/http"

	"camp-portal/internal/common/validation"
	"camp-portal/internal/models"

	"github.com/gorilla/mux"
)

func (s *Server) sections(w http.ResponseWriter, r *http.Request) {
	sections, err := s.apps.Sections(r.Context())
	if err != nil {
		WriteError(w, s.logger, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, sections)
}

func (s *Server) createApplication(w http.ResponseWriter, r *http.Request) {
	user, _ := UserFromContext(r.Context())

	var in models.ApplicationCreate
	if err := s.readBody(r, validation.SchemaCreateApplication, &in); err != nil {
		WriteError(w, s.logger, r, err)
		return
	}

	app, err := s.apps.Create(r.Context(), user.ID, in)
	if err != nil {
		WriteError(w, s.logger, r, err)
		return
	}
	WriteJSON(w, http.StatusCreated, app)
}

func (s *Server) listMine(w http.ResponseWriter, r *http.Request) {
	user, _ := UserFromContext(r.Context())

	apps, err := s.apps.ListMine(r.Context(), user.ID)
	if err != nil {
		WriteError(w, s.logger, r, err)
		return
	}
	if apps == nil {
		apps = []models.Application{}
	}
	WriteJSON(w, http.StatusOK, apps)
}

func (s *Server) getApplication(w http.ResponseWriter, r *http.Request) {
	user, _ := UserFromContext(r.Context())

	app, err := s.apps.Get(r.Context(), mux.Vars(r)["id"], user)
	if err != nil {
		WriteError(w, s.logger, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, app)
}

func (s *Server) updateApplication(w http.ResponseWriter, r *http.Request) {
	user, _ := UserFromContext(r.Context())

	var in models.ApplicationUpdate
	if err := s.readBody(r, validation.SchemaUpdateApplication, &in); err != nil {
		WriteError(w, s.logger, r, err)
		return
	}

	app, err := s.apps.Update(r.Context(), mux.Vars(r)["id"], user, in)
	if err != nil {
		WriteError(w, s.logger, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, app)
}

func (s *Server) applicationProgress(w http.ResponseWriter, r *http.Request) {
	user, _ := UserFromContext(r.Context())
	id := mux.Vars(r)["id"]

	if err := s.apps.Owns(r.Context(), id, user); err != nil {
		WriteError(w, s.logger, r, err)
		return
	}
	s.writeProgress(w, r, id)
}

func (s *Server) writeProgress(w http.ResponseWriter, r *http.Request, id string) {
	result, err := s.progress.ForApplication(r.Context(), id)
	if err != nil {
		WriteError(w, s.logger, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, result)
}
