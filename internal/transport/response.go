package transport

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/rpggio/liveshop/internal/domain/activity"
	"github.com/rpggio/liveshop/internal/domain/session"
)

// Problem is the error envelope returned by every endpoint.
type Problem struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type errorEnvelope struct {
	Error Problem `json:"error"`
}

// errBadParam reports a malformed query parameter.
func errBadParam(name string) error {
	return fmt.Errorf("%w: invalid %s parameter", session.ErrInvalidInput, name)
}

// StatusFor maps a service error onto an HTTP status.
func StatusFor(kind session.ErrorKind) int {
	switch kind {
	case session.KindNotFound:
		return http.StatusNotFound
	case session.KindConflict, session.KindInvalidState:
		return http.StatusConflict
	case session.KindInvalidTransition, session.KindInvalidAmount:
		return http.StatusUnprocessableEntity
	case session.KindForbidden:
		return http.StatusForbidden
	case session.KindInvalidInput:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	kind := session.Kind(err)
	if errors.Is(err, activity.ErrInvalidInput) {
		kind = session.KindInvalidInput
	}
	status := StatusFor(kind)

	message := err.Error()
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		message = "internal error"
	}
	writeProblem(w, status, string(kind), message)
}

func writeProblem(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorEnvelope{Error: Problem{Code: code, Message: message}})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// decodeBody reads a JSON request body. An empty body decodes to the zero value.
func decodeBody(w http.ResponseWriter, r *http.Request, out any) bool {
	if r.Body == nil || r.ContentLength == 0 {
		return true
	}
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(out); err != nil {
		writeProblem(w, http.StatusBadRequest, string(session.KindInvalidInput), "invalid request body: "+err.Error())
		return false
	}
	return true
}
