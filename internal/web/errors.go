package web

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/charmbracelet/log"

	"github.com/justestif/spotify-ratings/internal/auth"
	"github.com/justestif/spotify-ratings/internal/db"
	"github.com/justestif/spotify-ratings/internal/ratings"
	"github.com/justestif/spotify-ratings/internal/spotify"
)

const (
	detailNotConfigured   = "Spotify is not configured correctly."
	detailAccountNotFound = "Spotify account not found"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}

// writeError maps service errors onto HTTP responses.
func writeError(w http.ResponseWriter, logger *log.Logger, err error) {
	var (
		validationErr *ratings.ValidationError
		authErr       *auth.AuthError
		apiErr        *spotify.APIError
	)

	switch {
	case errors.As(err, &validationErr):
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"detail":            validationErr.Error(),
			validationErr.Field: []string{validationErr.Message},
		})

	case errors.Is(err, auth.ErrMissingCredentials):
		logger.Error("spotify credentials missing", "err", err)
		writeDetail(w, http.StatusInternalServerError, detailNotConfigured)

	case errors.As(err, &authErr):
		logger.Warn("token refresh failed", "status", authErr.Status, "err", err)
		writeJSON(w, http.StatusBadGateway, map[string]any{
			"detail":   "Failed to refresh Spotify token.",
			"upstream": authErr.Body,
		})

	case errors.As(err, &apiErr):
		status := apiErr.Status
		if status < 400 || status > 599 {
			status = http.StatusBadGateway
		}
		logger.Warn("spotify request failed", "path", apiErr.Path, "status", apiErr.Status)
		writeJSON(w, status, map[string]any{
			"detail":   "Spotify API request failed.",
			"upstream": apiErr.Detail,
		})

	case errors.Is(err, db.ErrNotFound):
		writeDetail(w, http.StatusBadRequest, detailAccountNotFound)

	default:
		logger.Error("request failed", "err", err)
		writeDetail(w, http.StatusInternalServerError, "Internal server error.")
	}
}
