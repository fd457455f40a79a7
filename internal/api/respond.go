package api

import (
	"encoding/json"
	"io"
	"net/http"

	apperrors "camp-portal/internal/common/errors"
	"camp-portal/internal/common/logger"
)

const maxBodyBytes = 1 << 20

// errorBody is the wire shape of every error response.
type errorBody struct {
	Detail string `json:"detail"`
	Code   string `json:"code"`
}

// WriteJSON writes v with the given status.
func WriteJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError maps err to its status and writes {"detail","code"}. Server
// errors are logged with their details; the body only carries the message.
func WriteError(w http.ResponseWriter, log logger.Logger, r *http.Request, err error) {
	stdErr := apperrors.Normalize(err)
	status := apperrors.HTTPStatus(stdErr)

	if status >= http.StatusInternalServerError {
		log.Error("request failed", map[string]interface{}{
			"method":  r.Method,
			"path":    r.URL.Path,
			"code":    string(stdErr.Code),
			"details": stdErr.Details,
		})
	}

	detail := stdErr.Message
	if status < http.StatusInternalServerError && stdErr.Details != "" &&
		stdErr.Code == apperrors.ErrCodeValidationFailed {
		detail = stdErr.Message + ": " + stdErr.Details
	}
	WriteJSON(w, status, errorBody{Detail: detail, Code: string(stdErr.Code)})
}

// readBody reads the request body, validates it against schema and decodes
// it into dst.
func (s *Server) readBody(r *http.Request, schema string, dst interface{}) error {
	raw, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		return apperrors.NewValidationError("unreadable request body")
	}
	if len(raw) == 0 {
		raw = []byte("{}")
	}
	if err := s.validator.Validate(schema, raw); err != nil {
		return err
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return apperrors.NewValidationError(err.Error())
	}
	return nil
}
