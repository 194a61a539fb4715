package api

import (
	"errors"
	"fmt"
	"net/http"

	service "github.com/okian/duel/internal/app"
	"github.com/okian/duel/internal/domain/match"
)

// Sentinel kinds for API errors.
var (
	ErrBadRequest       = errors.New("bad request")
	ErrMethodNotAllowed = errors.New("method not allowed")
)

// KindError attaches an operation and a sentinel kind to an error so the
// status mapping can use errors.Is while the message keeps the cause.
type KindError struct {
	Op   string
	Kind error
	Err  error
}

func (e *KindError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %v", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %v: %v", e.Op, e.Kind, e.Err)
}

// Unwrap exposes both the kind and the cause.
func (e *KindError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// NewKind returns a KindError without a cause.
func NewKind(op string, kind error) error {
	return &KindError{Op: op, Kind: kind}
}

// WrapKind returns a KindError around err.
func WrapKind(op string, kind, err error) error {
	return &KindError{Op: op, Kind: kind, Err: err}
}

// Wrap prefixes err with op, keeping it matchable.
func Wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", op, err)
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  string `json:"status,omitempty"`
}

// classify maps an error to its HTTP status and response body.
func classify(err error) (int, errorResponse) {
	resp := errorResponse{Message: err.Error()}

	var se *match.StateError
	switch {
	case errors.Is(err, ErrBadRequest), errors.Is(err, match.ErrInvalidInput):
		resp.Code = "invalid_input"
		return http.StatusBadRequest, resp
	case errors.Is(err, ErrMethodNotAllowed):
		resp.Code = "method_not_allowed"
		return http.StatusMethodNotAllowed, resp
	case errors.Is(err, match.ErrNotFound):
		resp.Code = "not_found"
		return http.StatusNotFound, resp
	case errors.Is(err, match.ErrSessionFull):
		resp.Code = "session_full"
		return http.StatusConflict, resp
	case errors.As(err, &se):
		resp.Code = "invalid_state"
		resp.Status = string(se.Status)
		return http.StatusConflict, resp
	case errors.Is(err, match.ErrInvalidState):
		resp.Code = "invalid_state"
		return http.StatusConflict, resp
	case errors.Is(err, service.ErrRunInFlight):
		resp.Code = "run_in_flight"
		return http.StatusTooManyRequests, resp
	case errors.Is(err, service.ErrBackpressure):
		resp.Code = "backpressure"
		return http.StatusTooManyRequests, resp
	case errors.Is(err, service.ErrNotStarted):
		resp.Code = "unavailable"
		return http.StatusServiceUnavailable, resp
	}
	resp.Code = "internal_error"
	resp.Message = http.StatusText(http.StatusInternalServerError)
	return http.StatusInternalServerError, resp
}
