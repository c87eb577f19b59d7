package server

import (
	"encoding/json"
	"errors"
	"net/http"

	pgerrors "github.com/matzehuels/pencilgraph/pkg/errors"
	"github.com/matzehuels/pencilgraph/pkg/maintain"
	"github.com/matzehuels/pencilgraph/pkg/merge"
	"github.com/matzehuels/pencilgraph/pkg/session"
)

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Warn("encode response", "error", err)
	}
}

func (s *Server) respondBytes(w http.ResponseWriter, contentType string, data []byte) {
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		s.logger.Warn("write response", "error", err)
	}
}

// respondError maps err to a status code. Internal details stay in the log.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusOf(err)
	msg := pgerrors.UserMessage(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		msg = http.StatusText(status)
	} else {
		s.logger.Debug("request rejected", "method", r.Method, "path", r.URL.Path, "error", err)
	}
	s.respondJSON(w, status, ErrorResponse{
		Error:   http.StatusText(status),
		Code:    string(pgerrors.GetCode(err)),
		Message: msg,
	})
}

func statusOf(err error) int {
	switch {
	case errors.Is(err, session.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, session.ErrGraphExists):
		return http.StatusConflict
	case errors.Is(err, maintain.ErrOutOfRange), errors.Is(err, merge.ErrSameGraph):
		return http.StatusBadRequest
	}
	switch pgerrors.GetCode(err) {
	case pgerrors.ErrCodeNotFound, pgerrors.ErrCodeNodeNotFound, pgerrors.ErrCodeSocketNotFound,
		pgerrors.ErrCodeGraphNotFound, pgerrors.ErrCodeFileNotFound:
		return http.StatusNotFound
	case pgerrors.ErrCodeInvalidInput, pgerrors.ErrCodeInvalidName, pgerrors.ErrCodeInvalidPattern,
		pgerrors.ErrCodeInvalidDocument, pgerrors.ErrCodeInvalidFormat, pgerrors.ErrCodeInvalidPath,
		pgerrors.ErrCodeIncompatibleLink, pgerrors.ErrCodeSchemaMismatch:
		return http.StatusBadRequest
	case pgerrors.ErrCodeDuplicateName:
		return http.StatusConflict
	case pgerrors.ErrCodeEngineUnavailable, pgerrors.ErrCodeUnsupported:
		return http.StatusServiceUnavailable
	case pgerrors.ErrCodeTimeout:
		return http.StatusGatewayTimeout
	case pgerrors.ErrCodeEngineFailed:
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

// decodeJSON reads the request body into v.
func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return pgerrors.Wrap(pgerrors.ErrCodeInvalidInput, err, "invalid request body")
	}
	return nil
}
