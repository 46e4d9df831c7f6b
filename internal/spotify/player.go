package spotify

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/zmb3/spotify/v2"
	"golang.org/x/oauth2"

	"github.com/justestif/spotify-ratings/internal/db"
)

const (
	searchLimit        = 10
	defaultSearchTypes = "track,album,artist"
)

// NowPlaying returns the account's normalized player state.
func (c *Client) NowPlaying(ctx context.Context, account *db.Account) (NowPlaying, error) {
	resp, err := c.GetForAccount(ctx, "/me/player/currently-playing", account, nil)
	if err != nil {
		return NowPlaying{}, err
	}
	if resp.NoContent() {
		return NormalizeNowPlaying(nil), nil
	}

	var cp CurrentlyPlaying
	if err := resp.Decode(&cp); err != nil {
		return NowPlaying{}, fmt.Errorf("parsing currently playing: %w", err)
	}
	return NormalizeNowPlaying(&cp), nil
}

// RecentlyPlayed returns up to RecentlyPlayedLimit distinct recent tracks.
func (c *Client) RecentlyPlayed(ctx context.Context, account *db.Account) ([]RecentTrack, error) {
	params := url.Values{"limit": {strconv.Itoa(RecentlyPlayedWindow)}}
	resp, err := c.GetForAccount(ctx, "/me/player/recently-played", account, params)
	if err != nil {
		return nil, err
	}
	if resp.NoContent() {
		return NormalizeRecentlyPlayed(nil), nil
	}

	var rp recentlyPlayedResponse
	if err := resp.Decode(&rp); err != nil {
		return nil, fmt.Errorf("parsing recently played: %w", err)
	}
	return NormalizeRecentlyPlayed(rp.Items), nil
}

// Search runs a catalog search. types is a comma-separated list of
// track, album, artist; empty means all three.
func (c *Client) Search(ctx context.Context, account *db.Account, query, types string) (SearchResults, error) {
	types = strings.TrimSpace(types)
	if types == "" {
		types = defaultSearchTypes
	}
	params := url.Values{
		"q":     {query},
		"type":  {types},
		"limit": {strconv.Itoa(searchLimit)},
	}

	resp, err := c.GetForAccount(ctx, "/search", account, params)
	if err != nil {
		return SearchResults{}, err
	}
	if resp.NoContent() {
		return NormalizeSearch(SearchResponse{}), nil
	}

	var sr SearchResponse
	if err := resp.Decode(&sr); err != nil {
		return SearchResults{}, fmt.Errorf("parsing search results: %w", err)
	}
	return NormalizeSearch(sr), nil
}

// CurrentUser fetches the profile for a freshly exchanged token.
func (c *Client) CurrentUser(ctx context.Context, token *oauth2.Token) (*Profile, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)
	httpClient := oauth2.NewClient(ctx, oauth2.StaticTokenSource(token))
	api := spotify.New(httpClient, spotify.WithBaseURL(c.baseURL+"/"))

	user, err := api.CurrentUser(ctx)
	if err != nil {
		return nil, &APIError{Path: "/me", Status: http.StatusBadGateway, Detail: err.Error()}
	}
	return &Profile{
		ID:          user.ID,
		DisplayName: user.DisplayName,
		Email:       user.Email,
	}, nil
}
