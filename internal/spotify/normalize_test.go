package spotify

import (
	"encoding/json"
	"fmt"
	"testing"
)

func intPtr(i int) *int { return &i }

func track(id, name string) *Track {
	return &Track{
		ID:         id,
		Name:       name,
		DurationMs: intPtr(180000),
		Artists:    []ArtistRef{{Name: "Artist " + name}},
		Album:      &Album{Name: "Album " + name, Images: []Image{{URL: "https://img/" + name}}},
	}
}

func TestNormalizeNowPlaying(t *testing.T) {
	tests := []struct {
		name       string
		payload    *CurrentlyPlaying
		wantStatus string
		wantTrack  string
		wantImage  string
	}{
		{
			name:       "no content",
			payload:    nil,
			wantStatus: StatusInactive,
		},
		{
			name:       "payload without item",
			payload:    &CurrentlyPlaying{IsPlaying: true, ProgressMs: intPtr(10)},
			wantStatus: StatusInactive,
		},
		{
			name:       "playing",
			payload:    &CurrentlyPlaying{IsPlaying: true, ProgressMs: intPtr(1000), Item: track("t1", "Song")},
			wantStatus: StatusPlaying,
			wantTrack:  "Song",
			wantImage:  "https://img/Song",
		},
		{
			name:       "paused",
			payload:    &CurrentlyPlaying{IsPlaying: false, ProgressMs: intPtr(1000), Item: track("t1", "Song")},
			wantStatus: StatusPaused,
			wantTrack:  "Song",
			wantImage:  "https://img/Song",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NormalizeNowPlaying(tt.payload)

			if got.Status != tt.wantStatus {
				t.Errorf("Status = %q, want %q", got.Status, tt.wantStatus)
			}
			if got.IsPlaying != (tt.wantStatus == StatusPlaying) {
				t.Errorf("IsPlaying = %v for status %q", got.IsPlaying, tt.wantStatus)
			}
			if got.Artists == nil {
				t.Error("Artists = nil, want non-nil slice")
			}

			if tt.wantStatus == StatusInactive {
				if got.TrackName != nil || got.Album != nil || got.AlbumImage != nil || got.ProgressMs != nil || got.DurationMs != nil {
					t.Errorf("inactive result has media fields: %+v", got)
				}
				if len(got.Artists) != 0 {
					t.Errorf("Artists = %v, want empty", got.Artists)
				}
				return
			}

			if got.TrackName == nil || *got.TrackName != tt.wantTrack {
				t.Errorf("TrackName = %v, want %q", got.TrackName, tt.wantTrack)
			}
			if got.AlbumImage == nil || *got.AlbumImage != tt.wantImage {
				t.Errorf("AlbumImage = %v, want %q", got.AlbumImage, tt.wantImage)
			}
			if got.ProgressMs == nil || *got.ProgressMs != 1000 {
				t.Errorf("ProgressMs = %v, want 1000", got.ProgressMs)
			}
		})
	}
}

func TestNormalizeNowPlayingInactiveJSON(t *testing.T) {
	b, err := json.Marshal(NormalizeNowPlaying(nil))
	if err != nil {
		t.Fatal(err)
	}
	want := `{"status":"inactive","is_playing":false,"progress_ms":null,"duration_ms":null,"track_name":null,"artists":[],"album":null,"album_image":null}`
	if string(b) != want {
		t.Errorf("JSON = %s\nwant   %s", b, want)
	}
}

func TestNormalizeNowPlayingAlbumWithoutImages(t *testing.T) {
	item := track("t1", "Song")
	item.Album.Images = nil
	got := NormalizeNowPlaying(&CurrentlyPlaying{IsPlaying: true, Item: item})
	if got.AlbumImage != nil {
		t.Errorf("AlbumImage = %v, want nil", *got.AlbumImage)
	}
	if got.Album == nil || *got.Album != "Album Song" {
		t.Errorf("Album = %v", got.Album)
	}
}

func names(tracks []RecentTrack) []string {
	out := make([]string, len(tracks))
	for i, t := range tracks {
		out[i] = t.TrackName
	}
	return out
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestNormalizeRecentlyPlayed(t *testing.T) {
	events := func(ids ...string) []PlayHistory {
		out := make([]PlayHistory, len(ids))
		for i, id := range ids {
			out[i] = PlayHistory{PlayedAt: fmt.Sprintf("2025-01-01T00:%02d:00Z", i), Track: track(id, id)}
		}
		return out
	}

	twenty := make([]string, 20)
	for i := range twenty {
		twenty[i] = fmt.Sprintf("T%02d", i)
	}

	tests := []struct {
		name   string
		events []PlayHistory
		want   []string
	}{
		{
			name:   "global dedupe keeps first occurrence",
			events: events("A", "B", "A", "C", "B", "D", "E"),
			want:   []string{"A", "B", "C", "D", "E"},
		},
		{
			name:   "caps at five",
			events: events(twenty...),
			want:   []string{"T00", "T01", "T02", "T03", "T04"},
		},
		{
			name: "nameless tracks are skipped and not counted",
			events: []PlayHistory{
				{Track: &Track{ID: "X"}},
				{Track: track("A", "A")},
				{Track: nil},
				{Track: track("X", "X")},
				{Track: track("B", "B")},
			},
			want: []string{"A", "X", "B"},
		},
		{
			name: "missing id falls back to name",
			events: []PlayHistory{
				{Track: track("", "Same")},
				{Track: track("", "Same")},
				{Track: track("", "Other")},
			},
			want: []string{"Same", "Other"},
		},
		{
			name:   "empty window",
			events: nil,
			want:   []string{},
		},
		{
			name:   "all duplicates",
			events: events("A", "A", "A", "A", "A", "A"),
			want:   []string{"A"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NormalizeRecentlyPlayed(tt.events)
			if got == nil {
				t.Fatal("NormalizeRecentlyPlayed() = nil, want non-nil slice")
			}
			if !equalStrings(names(got), tt.want) {
				t.Errorf("NormalizeRecentlyPlayed() = %v, want %v", names(got), tt.want)
			}
		})
	}
}

func TestNormalizeRecentlyPlayedFields(t *testing.T) {
	got := NormalizeRecentlyPlayed([]PlayHistory{
		{PlayedAt: "2025-01-01T00:00:00Z", Track: track("A", "A")},
	})
	if len(got) != 1 {
		t.Fatalf("len = %d, want 1", len(got))
	}
	rt := got[0]
	if rt.PlayedAt != "2025-01-01T00:00:00Z" {
		t.Errorf("PlayedAt = %q", rt.PlayedAt)
	}
	if !equalStrings(rt.Artists, []string{"Artist A"}) {
		t.Errorf("Artists = %v", rt.Artists)
	}
	if rt.Album == nil || *rt.Album != "Album A" {
		t.Errorf("Album = %v", rt.Album)
	}
	if rt.AlbumImage == nil || *rt.AlbumImage != "https://img/A" {
		t.Errorf("AlbumImage = %v", rt.AlbumImage)
	}
	if rt.DurationMs == nil || *rt.DurationMs != 180000 {
		t.Errorf("DurationMs = %v", rt.DurationMs)
	}
}

func TestNormalizeSearch(t *testing.T) {
	raw := `{
		"tracks": {"items": [
			{"id": "t1", "name": "Song", "duration_ms": 2000,
			 "artists": [{"name": "A1"}, {"name": "A2"}],
			 "album": {"name": "Record", "images": [{"url": "https://img/t1"}, {"url": "https://img/small"}]}}
		]},
		"artists": {"items": [
			{"id": "ar1", "name": "Band", "followers": {"total": 42}, "genres": ["rock"], "images": []},
			{"id": "ar2", "name": "Nobody"}
		]}
	}`

	var resp SearchResponse
	if err := json.Unmarshal([]byte(raw), &resp); err != nil {
		t.Fatal(err)
	}
	got := NormalizeSearch(resp)

	if got.Albums == nil || len(got.Albums) != 0 {
		t.Errorf("Albums = %v, want empty non-nil", got.Albums)
	}

	if len(got.Tracks) != 1 {
		t.Fatalf("Tracks len = %d, want 1", len(got.Tracks))
	}
	tr := got.Tracks[0]
	if tr.ID != "t1" || tr.Name != "Song" || !equalStrings(tr.Artists, []string{"A1", "A2"}) {
		t.Errorf("track = %+v", tr)
	}
	if tr.Album == nil || *tr.Album != "Record" || tr.AlbumImage == nil || *tr.AlbumImage != "https://img/t1" {
		t.Errorf("track album = %v / %v", tr.Album, tr.AlbumImage)
	}
	if tr.DurationMs == nil || *tr.DurationMs != 2000 {
		t.Errorf("track duration = %v", tr.DurationMs)
	}

	if len(got.Artists) != 2 {
		t.Fatalf("Artists len = %d, want 2", len(got.Artists))
	}
	band := got.Artists[0]
	if band.Followers == nil || *band.Followers != 42 || band.Image != nil || !equalStrings(band.Genres, []string{"rock"}) {
		t.Errorf("artist = %+v", band)
	}
	nobody := got.Artists[1]
	if nobody.Followers != nil || nobody.Image != nil || nobody.Genres == nil {
		t.Errorf("sparse artist = %+v", nobody)
	}
}

func TestNormalizeSearchMissingSectionsJSON(t *testing.T) {
	var resp SearchResponse
	if err := json.Unmarshal([]byte(`{"albums": {"items": [{"id": "al1", "name": "LP", "release_date": "1999"}]}}`), &resp); err != nil {
		t.Fatal(err)
	}
	b, err := json.Marshal(NormalizeSearch(resp))
	if err != nil {
		t.Fatal(err)
	}
	want := `{"tracks":[],"albums":[{"id":"al1","name":"LP","artists":[],"image":null,"release_date":"1999"}],"artists":[]}`
	if string(b) != want {
		t.Errorf("JSON = %s\nwant   %s", b, want)
	}
}
