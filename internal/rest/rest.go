package rest

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/orcaust/orcaust/internal/apperror"
	log "github.com/sirupsen/logrus"
)

type ErrorResponse struct {
	Error string        `json:"error"`
	Kind  apperror.Kind `json:"kind,omitempty"`
}

var statusByKind = map[apperror.Kind]int{
	apperror.Validation:        http.StatusBadRequest,
	apperror.NotFound:          http.StatusNotFound,
	apperror.InvalidHierarchy:  http.StatusUnprocessableEntity,
	apperror.ImmutableResource: http.StatusConflict,
	apperror.AlreadyApproved:   http.StatusConflict,
	apperror.MinimumItems:      http.StatusUnprocessableEntity,
	apperror.EmptyOrZeroHours:  http.StatusUnprocessableEntity,
	apperror.InvalidContract:   http.StatusUnprocessableEntity,
	apperror.InvalidProject:    http.StatusUnprocessableEntity,
	apperror.Conflict:          http.StatusConflict,
	apperror.ResourceInUse:     http.StatusConflict,
	apperror.PermissionDenied:  http.StatusForbidden,
	apperror.Unauthenticated:   http.StatusUnauthorized,
}

// StatusFor maps an error to the HTTP status it is reported with.
func StatusFor(err error) int {
	if status, ok := statusByKind[apperror.KindOf(err)]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// WriteError writes err as an ErrorResponse. Errors without a kind are logged and hidden.
func WriteError(w http.ResponseWriter, err error) {
	status := StatusFor(err)
	response := ErrorResponse{Error: err.Error(), Kind: apperror.KindOf(err)}
	if status == http.StatusInternalServerError {
		log.Errorf("request failed: %v", err)
		response.Error = "internal server error"
	}
	WriteJSON(w, status, response)
}

func WriteJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Errorf("failed to encode response: %v", err)
	}
}

// DecodeJSON decodes the request body into v, rejecting unknown fields.
func DecodeJSON(r *http.Request, v any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return apperror.Validationf("request body is empty")
		}
		return apperror.Validationf(fmt.Sprintf("invalid request body: %v", err))
	}
	return nil
}

// PathInt reads a positive integer path variable.
func PathInt(r *http.Request, name string) (int, error) {
	value, err := strconv.Atoi(mux.Vars(r)[name])
	if err != nil || value <= 0 {
		return 0, apperror.Validationf(fmt.Sprintf("invalid %s", name))
	}
	return value, nil
}

// QueryInt reads an integer query parameter, returning def when it is absent.
func QueryInt(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, apperror.Validationf(fmt.Sprintf("invalid %s", name))
	}
	return value, nil
}
