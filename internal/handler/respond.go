package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/greyfiles/loyalty/internal/store"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func parseIDParam(r *http.Request, name string) (int64, error) {
	return strconv.ParseInt(r.PathValue(name), 10, 64)
}

// writeStoreError maps the store error taxonomy onto HTTP statuses.
func writeStoreError(w http.ResponseWriter, err error) {
	var vErr *store.ValidationError
	switch {
	case errors.As(err, &vErr):
		writeError(w, http.StatusBadRequest, vErr.Error())
	case errors.Is(err, store.ErrDuplicateUsername):
		writeError(w, http.StatusConflict, "username already taken")
	case errors.Is(err, store.ErrProgramExists):
		writeError(w, http.StatusConflict, "brand already owns a loyalty program")
	case errors.Is(err, store.ErrUnknownRule):
		writeError(w, http.StatusNotFound, "no matching rule")
	case errors.Is(err, store.ErrRuleInUse):
		writeError(w, http.StatusConflict, "rule already referenced by recorded instances")
	case errors.Is(err, store.ErrInsufficientPoints):
		writeError(w, http.StatusConflict, "insufficient points")
	case errors.Is(err, store.ErrNotEnrolled):
		writeError(w, http.StatusNotFound, "wallet not enrolled in program")
	case errors.Is(err, store.ErrTimeout):
		writeError(w, http.StatusGatewayTimeout, "store operation timed out")
	case errors.Is(err, store.ErrStoreUnavailable):
		writeError(w, http.StatusServiceUnavailable, "store unavailable")
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
