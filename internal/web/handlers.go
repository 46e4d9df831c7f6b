package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/gorilla/sessions"
	"golang.org/x/oauth2"

	"github.com/justestif/spotify-ratings/internal/auth"
	"github.com/justestif/spotify-ratings/internal/db"
	"github.com/justestif/spotify-ratings/internal/ratings"
	"github.com/justestif/spotify-ratings/internal/spotify"
)

const (
	// defaultTokenLifetime applies when the exchange response carries no expiry.
	defaultTokenLifetime = time.Hour
	maxRequestBody       = 1 << 16
)

// OAuthFlow runs the authorization-code login against Spotify.
type OAuthFlow interface {
	AuthURL(state string) string
	Exchange(ctx context.Context, code string) (*oauth2.Token, error)
}

// SpotifyAPI is the subset of the Spotify client the handlers call.
type SpotifyAPI interface {
	CurrentUser(ctx context.Context, token *oauth2.Token) (*spotify.Profile, error)
	NowPlaying(ctx context.Context, account *db.Account) (spotify.NowPlaying, error)
	RecentlyPlayed(ctx context.Context, account *db.Account) ([]spotify.RecentTrack, error)
	Search(ctx context.Context, account *db.Account, query, types string) (spotify.SearchResults, error)
}

// UserStore persists local users.
type UserStore interface {
	Get(ctx context.Context, id uuid.UUID) (*db.User, error)
	Upsert(ctx context.Context, user *db.User) error
}

// AccountStore persists linked Spotify accounts.
type AccountStore interface {
	GetByUser(ctx context.Context, userID uuid.UUID) (*db.Account, error)
	Upsert(ctx context.Context, account *db.Account) error
}

// Pinger reports storage health.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handlers contains HTTP handlers for the API.
type Handlers struct {
	oauth       OAuthFlow
	spotify     SpotifyAPI
	sessions    *auth.Sessions
	users       UserStore
	accounts    AccountStore
	ratings     *ratings.Service
	db          Pinger
	cookies     sessions.Store
	frontendURL string
	logger      *log.Logger
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(deps Deps, cookies sessions.Store, frontendURL string) *Handlers {
	return &Handlers{
		oauth:       deps.OAuth,
		spotify:     deps.Spotify,
		sessions:    deps.Sessions,
		users:       deps.Users,
		accounts:    deps.Accounts,
		ratings:     deps.Ratings,
		db:          deps.DB,
		cookies:     cookies,
		frontendURL: frontendURL,
		logger:      deps.Logger,
	}
}

// Health reports whether storage is reachable (GET /healthz).
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	if h.db != nil {
		if err := h.db.Ping(r.Context()); err != nil {
			h.logger.Error("health check failed", "err", err)
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Login initiates the Spotify OAuth flow (GET /auth/spotify/login/).
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	if h.oauth == nil {
		writeDetail(w, http.StatusInternalServerError, detailNotConfigured)
		return
	}

	// Generate state for CSRF protection
	state, err := auth.GenerateState()
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if err := saveOAuthState(h.cookies, w, r, state); err != nil {
		writeError(w, h.logger, fmt.Errorf("saving oauth state: %w", err))
		return
	}

	http.Redirect(w, r, h.oauth.AuthURL(state), http.StatusFound)
}

// Callback completes the OAuth flow (GET /auth/spotify/callback/). It links
// the Spotify account to a local user and hands a session token to the
// frontend.
func (h *Handlers) Callback(w http.ResponseWriter, r *http.Request) {
	if h.oauth == nil {
		writeDetail(w, http.StatusInternalServerError, detailNotConfigured)
		return
	}

	q := r.URL.Query()
	if err := consumeOAuthState(h.cookies, w, r, q.Get("state")); err != nil {
		writeDetail(w, http.StatusBadRequest, "Invalid OAuth state.")
		return
	}

	// Check for error from Spotify
	if errMsg := q.Get("error"); errMsg != "" {
		writeDetail(w, http.StatusBadRequest, "Spotify authorization failed: "+errMsg)
		return
	}
	code := q.Get("code")
	if code == "" {
		writeDetail(w, http.StatusBadRequest, "Missing authorization code.")
		return
	}

	ctx := r.Context()
	token, err := h.oauth.Exchange(ctx, code)
	if err != nil {
		h.logger.Warn("code exchange failed", "err", err)
		writeDetail(w, http.StatusBadGateway, "Failed to exchange authorization code.")
		return
	}

	profile, err := h.spotify.CurrentUser(ctx, token)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	user := &db.User{Username: profile.ID, Email: profile.Email}
	if err := h.users.Upsert(ctx, user); err != nil {
		writeError(w, h.logger, err)
		return
	}

	expiresAt := token.Expiry
	if expiresAt.IsZero() {
		expiresAt = time.Now().Add(defaultTokenLifetime)
	}
	account := &db.Account{
		UserID:         user.ID,
		ProviderID:     profile.ID,
		DisplayName:    profile.DisplayName,
		Email:          profile.Email,
		AccessToken:    token.AccessToken,
		RefreshToken:   token.RefreshToken,
		TokenExpiresAt: expiresAt,
	}
	if err := h.accounts.Upsert(ctx, account); err != nil {
		writeError(w, h.logger, err)
		return
	}

	access, err := h.sessions.Issue(user.ID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	h.logger.Info("user logged in", "user_id", user.ID, "spotify_id", profile.ID)
	http.Redirect(w, r, h.frontendRedirect(access), http.StatusFound)
}

func (h *Handlers) frontendRedirect(access string) string {
	u, err := url.Parse(h.frontendURL)
	if err != nil || h.frontendURL == "" {
		return "/?access=" + url.QueryEscape(access)
	}
	q := u.Query()
	q.Set("access", access)
	u.RawQuery = q.Encode()
	return u.String()
}

type userResponse struct {
	ID          uuid.UUID `json:"id"`
	Username    string    `json:"username"`
	Email       string    `json:"email"`
	DisplayName string    `json:"display_name"`
	SpotifyID   string    `json:"spotify_id"`
}

// CurrentUser returns the logged-in user (GET /auth/user/).
func (h *Handlers) CurrentUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user, err := h.users.Get(ctx, userIDFrom(ctx))
	if errors.Is(err, db.ErrNotFound) {
		writeDetail(w, http.StatusUnauthorized, "User not found.")
		return
	}
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	resp := userResponse{
		ID:          user.ID,
		Username:    user.Username,
		Email:       user.Email,
		DisplayName: user.Username,
	}
	account, err := h.accounts.GetByUser(ctx, user.ID)
	switch {
	case err == nil:
		resp.SpotifyID = account.ProviderID
		if account.DisplayName != "" {
			resp.DisplayName = account.DisplayName
		}
	case !errors.Is(err, db.ErrNotFound):
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// account loads the caller's linked Spotify account, writing the error
// response itself when there is none.
func (h *Handlers) account(w http.ResponseWriter, r *http.Request) (*db.Account, bool) {
	account, err := h.accounts.GetByUser(r.Context(), userIDFrom(r.Context()))
	if err != nil {
		writeError(w, h.logger, err)
		return nil, false
	}
	return account, true
}

// NowPlaying returns the caller's player state (GET /user/now-playing/).
func (h *Handlers) NowPlaying(w http.ResponseWriter, r *http.Request) {
	account, ok := h.account(w, r)
	if !ok {
		return
	}

	np, err := h.spotify.NowPlaying(r.Context(), account)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, np)
}

// RecentlyPlayed returns the caller's latest distinct tracks
// (GET /user/recently-played/).
func (h *Handlers) RecentlyPlayed(w http.ResponseWriter, r *http.Request) {
	account, ok := h.account(w, r)
	if !ok {
		return
	}

	items, err := h.spotify.RecentlyPlayed(r.Context(), account)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

// Search searches the Spotify catalog (GET /discover/search/music/).
func (h *Handlers) Search(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		writeDetail(w, http.StatusBadRequest, "Query parameter 'q' is required.")
		return
	}
	types := r.URL.Query().Get("type")
	for _, t := range strings.Split(types, ",") {
		if t = strings.TrimSpace(t); t != "" && !ratings.ValidItemType(t) {
			writeDetail(w, http.StatusBadRequest, fmt.Sprintf("Invalid search type %q.", t))
			return
		}
	}

	account, ok := h.account(w, r)
	if !ok {
		return
	}

	results, err := h.spotify.Search(r.Context(), account, query, types)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, results)
}

type ratingResponse struct {
	ID        uuid.UUID     `json:"id"`
	SpotifyID string        `json:"spotify_id"`
	ItemType  string        `json:"item_type"`
	ItemName  string        `json:"item_name"`
	Rating    ratings.Value `json:"rating"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

func newRatingResponse(r *db.Rating) ratingResponse {
	return ratingResponse{
		ID:        r.ID,
		SpotifyID: r.ItemID,
		ItemType:  r.ItemType,
		ItemName:  r.ItemName,
		Rating:    ratings.Value(r.Score),
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

// ListRatings returns the caller's ratings (GET /ratings/).
func (h *Handlers) ListRatings(w http.ResponseWriter, r *http.Request) {
	list, err := h.ratings.List(r.Context(), userIDFrom(r.Context()))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	out := make([]ratingResponse, 0, len(list))
	for i := range list {
		out = append(out, newRatingResponse(&list[i]))
	}
	writeJSON(w, http.StatusOK, out)
}

type ratingRequest struct {
	SpotifyID string         `json:"spotify_id"`
	ItemID    string         `json:"item_id"`
	ItemType  string         `json:"item_type"`
	ItemName  string         `json:"item_name"`
	Rating    *ratings.Value `json:"rating"`
}

// CreateRating creates or replaces the caller's rating of an item
// (POST /ratings/).
func (h *Handlers) CreateRating(w http.ResponseWriter, r *http.Request) {
	var req ratingRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeDetail(w, http.StatusRequestEntityTooLarge, "Request body too large.")
			return
		}
		writeDetail(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if req.Rating == nil {
		writeError(w, h.logger, &ratings.ValidationError{Field: "rating", Message: "This field is required."})
		return
	}

	itemID := req.SpotifyID
	if itemID == "" {
		itemID = req.ItemID
	}

	rating, err := h.ratings.Upsert(r.Context(), userIDFrom(r.Context()), itemID, req.ItemType, *req.Rating, req.ItemName)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, newRatingResponse(rating))
}

// RatingForItem reports the caller's rating of one item
// (GET /ratings/item/).
func (h *Handlers) RatingForItem(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	rating, ok, err := h.ratings.Lookup(r.Context(), userIDFrom(r.Context()), q.Get("spotify_id"), q.Get("item_type"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	resp := struct {
		Exists bool            `json:"exists"`
		Rating *ratingResponse `json:"rating"`
	}{Exists: ok}
	if ok {
		rr := newRatingResponse(rating)
		resp.Rating = &rr
	}
	writeJSON(w, http.StatusOK, resp)
}
