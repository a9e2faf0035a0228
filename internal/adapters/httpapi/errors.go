package httpapi

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/oapi-codegen/nullable"

	"github.com/Overland-East-Bay/plan-sharing-api/internal/app/apperr"
)

// errorResponse is the callable error envelope.
type errorResponse struct {
	Error errorBody `json:"error"`
}

type errorBody struct {
	Status    string                             `json:"status"`
	Message   string                             `json:"message"`
	Details   nullable.Nullable[map[string]any] `json:"details,omitempty"`
	RequestID nullable.Nullable[string]          `json:"requestId,omitempty"`
}

func httpStatusFor(code apperr.Code) int {
	switch code {
	case apperr.CodeInvalidArgument:
		return http.StatusBadRequest
	case apperr.CodeUnauthenticated:
		return http.StatusUnauthorized
	case apperr.CodePermissionDenied:
		return http.StatusForbidden
	case apperr.CodeNotFound:
		return http.StatusNotFound
	case apperr.CodeAlreadyExists:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func callableError(ctx context.Context, code apperr.Code, message string, details map[string]any) errorResponse {
	var er errorResponse
	er.Error.Status = string(code)
	er.Error.Message = message
	if details != nil {
		er.Error.Details = nullable.NewNullableWithValue(details)
	}
	if rid := middleware.GetReqID(ctx); rid != "" {
		er.Error.RequestID = nullable.NewNullableWithValue(rid)
	}
	return er
}

// writeError renders err as a callable error. Errors that are not *apperr.Error are logged
// and reported as a generic INTERNAL error.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	ae, ok := apperr.As(err)
	if !ok {
		slog.ErrorContext(r.Context(), "unhandled callable error", "path", r.URL.Path, "error", err)
		ae = apperr.New(apperr.CodeInternal, apperr.InternalMessage)
	}
	writeJSON(w, httpStatusFor(ae.Code), callableError(r.Context(), ae.Code, ae.Message, ae.Details))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
