package spotify

const (
	// RecentlyPlayedLimit is the number of distinct tracks returned.
	RecentlyPlayedLimit = 5

	// RecentlyPlayedWindow is how many events are fetched to dedupe from.
	// Duplicates consume the window, so it is larger than the limit.
	RecentlyPlayedWindow = 20
)

// NormalizeNowPlaying reshapes a currently-playing payload. A nil payload
// (HTTP 204) or one without an item means nothing is active.
func NormalizeNowPlaying(cp *CurrentlyPlaying) NowPlaying {
	if cp == nil || cp.Item == nil {
		return NowPlaying{
			Status:  StatusInactive,
			Artists: []string{},
		}
	}

	status := StatusPaused
	if cp.IsPlaying {
		status = StatusPlaying
	}

	item := cp.Item
	np := NowPlaying{
		Status:     status,
		IsPlaying:  cp.IsPlaying,
		ProgressMs: cp.ProgressMs,
		DurationMs: item.DurationMs,
		TrackName:  optional(item.Name),
		Artists:    artistNames(item.Artists),
	}
	if item.Album != nil {
		np.Album = optional(item.Album.Name)
		np.AlbumImage = firstImage(item.Album.Images)
	}
	return np
}

// NormalizeRecentlyPlayed walks events in order, drops ones without a track
// name, and keeps the first occurrence of each track across the whole
// window. Tracks without an id are keyed by name. At most
// RecentlyPlayedLimit entries are returned.
func NormalizeRecentlyPlayed(events []PlayHistory) []RecentTrack {
	out := make([]RecentTrack, 0, RecentlyPlayedLimit)
	seen := make(map[string]struct{})

	for _, ev := range events {
		if len(out) >= RecentlyPlayedLimit {
			break
		}
		track := ev.Track
		if track == nil || track.Name == "" {
			continue
		}

		key := track.ID
		if key == "" {
			key = track.Name
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}

		rt := RecentTrack{
			PlayedAt:   ev.PlayedAt,
			TrackName:  track.Name,
			Artists:    artistNames(track.Artists),
			DurationMs: track.DurationMs,
		}
		if track.Album != nil {
			rt.Album = optional(track.Album.Name)
			rt.AlbumImage = firstImage(track.Album.Images)
		}
		out = append(out, rt)
	}
	return out
}

// NormalizeSearch reshapes a multi-section search response. Absent
// sections become empty lists.
func NormalizeSearch(resp SearchResponse) SearchResults {
	results := SearchResults{
		Tracks:  []TrackResult{},
		Albums:  []AlbumResult{},
		Artists: []ArtistResult{},
	}

	if resp.Tracks != nil {
		for _, t := range resp.Tracks.Items {
			tr := TrackResult{
				ID:         t.ID,
				Name:       t.Name,
				Artists:    artistNames(t.Artists),
				DurationMs: t.DurationMs,
			}
			if t.Album != nil {
				tr.Album = optional(t.Album.Name)
				tr.AlbumImage = firstImage(t.Album.Images)
			}
			results.Tracks = append(results.Tracks, tr)
		}
	}

	if resp.Albums != nil {
		for _, a := range resp.Albums.Items {
			results.Albums = append(results.Albums, AlbumResult{
				ID:          a.ID,
				Name:        a.Name,
				Artists:     artistNames(a.Artists),
				Image:       firstImage(a.Images),
				ReleaseDate: optional(a.ReleaseDate),
			})
		}
	}

	if resp.Artists != nil {
		for _, a := range resp.Artists.Items {
			ar := ArtistResult{
				ID:     a.ID,
				Name:   a.Name,
				Image:  firstImage(a.Images),
				Genres: a.Genres,
			}
			if ar.Genres == nil {
				ar.Genres = []string{}
			}
			if a.Followers != nil {
				total := a.Followers.Total
				ar.Followers = &total
			}
			results.Artists = append(results.Artists, ar)
		}
	}

	return results
}

func artistNames(artists []ArtistRef) []string {
	names := make([]string, 0, len(artists))
	for _, a := range artists {
		if a.Name != "" {
			names = append(names, a.Name)
		}
	}
	return names
}

func firstImage(images []Image) *string {
	if len(images) == 0 || images[0].URL == "" {
		return nil
	}
	u := images[0].URL
	return &u
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
