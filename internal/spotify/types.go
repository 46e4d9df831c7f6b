package spotify

// Provider payloads. Only the fields the normalizers read are declared;
// pointers distinguish an absent field from its zero value.

// Image is an album or artist artwork entry.
type Image struct {
	URL    string `json:"url"`
	Height int    `json:"height"`
	Width  int    `json:"width"`
}

// ArtistRef is the artist stub embedded in tracks and albums.
type ArtistRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Album is an album object as returned inside tracks and album searches.
type Album struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	Artists     []ArtistRef `json:"artists"`
	Images      []Image     `json:"images"`
	ReleaseDate string      `json:"release_date"`
}

// Track is a track object.
type Track struct {
	ID         string      `json:"id"`
	Name       string      `json:"name"`
	DurationMs *int        `json:"duration_ms"`
	Artists    []ArtistRef `json:"artists"`
	Album      *Album      `json:"album"`
}

// Followers holds an artist's follower count.
type Followers struct {
	Total int `json:"total"`
}

// Artist is a full artist object from search.
type Artist struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Images    []Image    `json:"images"`
	Genres    []string   `json:"genres"`
	Followers *Followers `json:"followers"`
}

// CurrentlyPlaying is the /me/player/currently-playing payload.
type CurrentlyPlaying struct {
	IsPlaying  bool   `json:"is_playing"`
	ProgressMs *int   `json:"progress_ms"`
	Item       *Track `json:"item"`
}

// PlayHistory is one recently-played event.
type PlayHistory struct {
	PlayedAt string `json:"played_at"`
	Track    *Track `json:"track"`
}

type recentlyPlayedResponse struct {
	Items []PlayHistory `json:"items"`
}

// Page is one section of a paged provider response.
type Page[T any] struct {
	Items []T `json:"items"`
}

// SearchResponse is the /search payload. Any section may be absent.
type SearchResponse struct {
	Tracks  *Page[Track]  `json:"tracks"`
	Albums  *Page[Album]  `json:"albums"`
	Artists *Page[Artist] `json:"artists"`
}

// Normalized shapes returned to API clients.

// Now-playing states.
const (
	StatusPlaying  = "playing"
	StatusPaused   = "paused"
	StatusInactive = "inactive"
)

// NowPlaying is the normalized player state.
type NowPlaying struct {
	Status     string   `json:"status"`
	IsPlaying  bool     `json:"is_playing"`
	ProgressMs *int     `json:"progress_ms"`
	DurationMs *int     `json:"duration_ms"`
	TrackName  *string  `json:"track_name"`
	Artists    []string `json:"artists"`
	Album      *string  `json:"album"`
	AlbumImage *string  `json:"album_image"`
}

// RecentTrack is one normalized recently-played entry.
type RecentTrack struct {
	PlayedAt   string   `json:"played_at"`
	TrackName  string   `json:"track_name"`
	Artists    []string `json:"artists"`
	Album      *string  `json:"album"`
	AlbumImage *string  `json:"album_image"`
	DurationMs *int     `json:"duration_ms"`
}

// TrackResult is a normalized track search hit.
type TrackResult struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	Artists    []string `json:"artists"`
	Album      *string  `json:"album"`
	AlbumImage *string  `json:"album_image"`
	DurationMs *int     `json:"duration_ms"`
}

// AlbumResult is a normalized album search hit.
type AlbumResult struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Artists     []string `json:"artists"`
	Image       *string  `json:"image"`
	ReleaseDate *string  `json:"release_date"`
}

// ArtistResult is a normalized artist search hit.
type ArtistResult struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	Image     *string  `json:"image"`
	Followers *int     `json:"followers"`
	Genres    []string `json:"genres"`
}

// SearchResults is the normalized search shape. Lists are never nil.
type SearchResults struct {
	Tracks  []TrackResult  `json:"tracks"`
	Albums  []AlbumResult  `json:"albums"`
	Artists []ArtistResult `json:"artists"`
}

// Profile is the current user's Spotify profile.
type Profile struct {
	ID          string
	DisplayName string
	Email       string
}
