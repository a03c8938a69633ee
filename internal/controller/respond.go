package controller

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/prolinq/messaging-backend/internal/apperrors"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError maps engine errors onto HTTP statuses. Unknown errors are 500s
// with the message passed through; this is an internal admin API.
func writeError(w http.ResponseWriter, err error) {
	var (
		invalidTarget *apperrors.ErrInvalidTarget
		notFound      *apperrors.ErrNotFound
		conflict      *apperrors.ErrCancelConflict
	)
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, apperrors.ErrEmptyContent),
		errors.Is(err, apperrors.ErrEmptyCampaignName),
		errors.As(err, &invalidTarget):
		status = http.StatusBadRequest
	case errors.As(err, &notFound):
		status = http.StatusNotFound
	case errors.As(err, &conflict):
		status = http.StatusConflict
	case errors.Is(err, apperrors.ErrSenderDisabled):
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
