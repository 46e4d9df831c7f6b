package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/justestif/spotify-ratings/internal/db"
)

type fakeTokenStore struct {
	mu      sync.Mutex
	calls   int
	token   string
	expires time.Time
	err     error
}

func (f *fakeTokenStore) UpdateAccessToken(_ context.Context, _ uuid.UUID, token string, expiresAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.token = token
	f.expires = expiresAt
	return f.err
}

var fixedNow = time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

func newTestManager(t *testing.T, tokenURL string, store TokenStore) *Manager {
	t.Helper()
	m, err := NewManager("client-id", "client-secret", store,
		WithTokenURL(tokenURL),
		WithClock(func() time.Time { return fixedNow }),
	)
	if err != nil {
		t.Fatalf("NewManager() error = %v", err)
	}
	return m
}

func testAccount(expiresAt time.Time) *db.Account {
	return &db.Account{
		ID:             uuid.New(),
		ProviderID:     "user-1",
		AccessToken:    "old-access",
		RefreshToken:   "the-refresh",
		TokenExpiresAt: expiresAt,
	}
}

func TestEnsureValidTokenReusesUnexpiredToken(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}))
	defer server.Close()

	store := &fakeTokenStore{}
	m := newTestManager(t, server.URL, store)
	acct := testAccount(fixedNow.Add(time.Minute))

	token, err := m.EnsureValidToken(context.Background(), acct)
	if err != nil {
		t.Fatalf("EnsureValidToken() error = %v", err)
	}
	if token != "old-access" {
		t.Errorf("token = %q, want old-access", token)
	}
	if hits.Load() != 0 {
		t.Errorf("token endpoint called %d times, want 0", hits.Load())
	}
	if store.calls != 0 {
		t.Errorf("store written %d times, want 0", store.calls)
	}
}

func TestEnsureValidTokenRefreshesExpiredToken(t *testing.T) {
	tests := []struct {
		name        string
		expiresAt   time.Time
		response    string
		wantExpires time.Time
	}{
		{
			name:        "expired with expires_in",
			expiresAt:   fixedNow.Add(-time.Minute),
			response:    `{"access_token":"new-access","token_type":"Bearer","expires_in":1800}`,
			wantExpires: fixedNow.Add(1800 * time.Second),
		},
		{
			name:        "expiring exactly now",
			expiresAt:   fixedNow,
			response:    `{"access_token":"new-access","expires_in":60}`,
			wantExpires: fixedNow.Add(time.Minute),
		},
		{
			name:        "missing expires_in defaults to an hour",
			expiresAt:   fixedNow.Add(-time.Hour),
			response:    `{"access_token":"new-access"}`,
			wantExpires: fixedNow.Add(time.Hour),
		},
		{
			name:        "rotated refresh token is ignored",
			expiresAt:   fixedNow.Add(-time.Hour),
			response:    `{"access_token":"new-access","expires_in":3600,"refresh_token":"rotated"}`,
			wantExpires: fixedNow.Add(time.Hour),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var hits atomic.Int32
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				hits.Add(1)
				if r.Method != http.MethodPost {
					t.Errorf("method = %s, want POST", r.Method)
				}
				user, pass, ok := r.BasicAuth()
				if !ok || user != "client-id" || pass != "client-secret" {
					t.Errorf("basic auth = %q/%q/%v", user, pass, ok)
				}
				if err := r.ParseForm(); err != nil {
					t.Error(err)
					return
				}
				if got := r.PostForm.Get("grant_type"); got != "refresh_token" {
					t.Errorf("grant_type = %q", got)
				}
				if got := r.PostForm.Get("refresh_token"); got != "the-refresh" {
					t.Errorf("refresh_token = %q", got)
				}
				w.Header().Set("Content-Type", "application/json")
				fmt.Fprint(w, tt.response)
			}))
			defer server.Close()

			store := &fakeTokenStore{}
			m := newTestManager(t, server.URL, store)
			acct := testAccount(tt.expiresAt)

			token, err := m.EnsureValidToken(context.Background(), acct)
			if err != nil {
				t.Fatalf("EnsureValidToken() error = %v", err)
			}
			if token != "new-access" {
				t.Errorf("token = %q, want new-access", token)
			}
			if hits.Load() != 1 {
				t.Errorf("token endpoint called %d times, want 1", hits.Load())
			}
			if acct.AccessToken != "new-access" || !acct.TokenExpiresAt.Equal(tt.wantExpires) {
				t.Errorf("account = %q/%v, want new-access/%v", acct.AccessToken, acct.TokenExpiresAt, tt.wantExpires)
			}
			if acct.RefreshToken != "the-refresh" {
				t.Errorf("RefreshToken = %q, want unchanged", acct.RefreshToken)
			}
			if store.calls != 1 || store.token != "new-access" || !store.expires.Equal(tt.wantExpires) {
				t.Errorf("store = %d/%q/%v", store.calls, store.token, store.expires)
			}
		})
	}
}

func TestRefreshRejected(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"error":"invalid_grant"}`)
	}))
	defer server.Close()

	store := &fakeTokenStore{}
	m := newTestManager(t, server.URL, store)
	acct := testAccount(fixedNow.Add(-time.Minute))

	_, err := m.EnsureValidToken(context.Background(), acct)

	var authErr *AuthError
	if !errors.As(err, &authErr) {
		t.Fatalf("error = %v, want *AuthError", err)
	}
	if authErr.Status != http.StatusBadRequest {
		t.Errorf("Status = %d, want 400", authErr.Status)
	}
	if authErr.Body != `{"error":"invalid_grant"}` {
		t.Errorf("Body = %q", authErr.Body)
	}
	if acct.AccessToken != "old-access" {
		t.Errorf("account mutated on failure: %q", acct.AccessToken)
	}
	if store.calls != 0 {
		t.Errorf("store written %d times on failure", store.calls)
	}
}

func TestRefreshUnreachable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	m := newTestManager(t, url, &fakeTokenStore{})
	_, err := m.Refresh(context.Background(), testAccount(fixedNow))

	var authErr *AuthError
	if !errors.As(err, &authErr) {
		t.Fatalf("error = %v, want *AuthError", err)
	}
	if authErr.Status != 0 {
		t.Errorf("Status = %d, want 0", authErr.Status)
	}
}

func TestRefreshStoreFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"access_token":"new-access","expires_in":3600}`)
	}))
	defer server.Close()

	storeErr := errors.New("db down")
	m := newTestManager(t, server.URL, &fakeTokenStore{err: storeErr})
	_, err := m.Refresh(context.Background(), testAccount(fixedNow))
	if !errors.Is(err, storeErr) {
		t.Errorf("error = %v, want wrapped store error", err)
	}
}

func TestRefreshCoalescesConcurrentCallers(t *testing.T) {
	var hits atomic.Int32
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		<-release
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"access_token":"new-access","expires_in":3600}`)
	}))
	defer server.Close()

	m := newTestManager(t, server.URL, &fakeTokenStore{})
	id := uuid.New()

	const callers = 5
	var wg sync.WaitGroup
	tokens := make([]string, callers)
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			acct := testAccount(fixedNow.Add(-time.Minute))
			acct.ID = id
			tokens[i], errs[i] = m.EnsureValidToken(context.Background(), acct)
		}(i)
	}

	// Let the callers pile up on the in-flight exchange.
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	for i := 0; i < callers; i++ {
		if errs[i] != nil {
			t.Errorf("caller %d error = %v", i, errs[i])
		}
		if tokens[i] != "new-access" {
			t.Errorf("caller %d token = %q", i, tokens[i])
		}
	}
	if n := hits.Load(); n != 1 {
		t.Errorf("token endpoint called %d times, want 1", n)
	}
}

func TestRefreshSurvivesLeaderCancellation(t *testing.T) {
	var hits atomic.Int32
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		<-release
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"access_token":"new-access","expires_in":3600}`)
	}))
	defer server.Close()

	store := &fakeTokenStore{}
	m := newTestManager(t, server.URL, store)
	id := uuid.New()

	leaderCtx, cancelLeader := context.WithCancel(context.Background())
	leaderErr := make(chan error, 1)
	go func() {
		acct := testAccount(fixedNow.Add(-time.Minute))
		acct.ID = id
		_, err := m.Refresh(leaderCtx, acct)
		leaderErr <- err
	}()

	// Wait until the leader's exchange reaches the token endpoint.
	deadline := time.Now().Add(2 * time.Second)
	for hits.Load() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("token endpoint never called")
		}
		time.Sleep(5 * time.Millisecond)
	}

	follower := testAccount(fixedNow.Add(-time.Minute))
	follower.ID = id
	followerDone := make(chan error, 1)
	var followerToken string
	go func() {
		var err error
		followerToken, err = m.Refresh(context.Background(), follower)
		followerDone <- err
	}()
	time.Sleep(20 * time.Millisecond)

	cancelLeader()
	if err := <-leaderErr; !errors.Is(err, context.Canceled) {
		t.Errorf("leader error = %v, want context.Canceled", err)
	}

	close(release)
	if err := <-followerDone; err != nil {
		t.Fatalf("follower error = %v", err)
	}
	if followerToken != "new-access" || follower.AccessToken != "new-access" {
		t.Errorf("follower token = %q / %q", followerToken, follower.AccessToken)
	}
	if n := hits.Load(); n != 1 {
		t.Errorf("token endpoint called %d times, want 1", n)
	}
	if store.calls != 1 {
		t.Errorf("store written %d times, want 1", store.calls)
	}
}

func TestNewManagerMissingCredentials(t *testing.T) {
	if _, err := NewManager("", "secret", &fakeTokenStore{}); !errors.Is(err, ErrMissingCredentials) {
		t.Errorf("NewManager() error = %v, want ErrMissingCredentials", err)
	}
}
