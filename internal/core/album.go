package core

// Album owns the ordered track collection. Tracks are always persisted
// sorted by track_number ascending.
type Album struct {
	ID         string   `json:"id"`
	ArtistID   string   `json:"artist_id"`
	ArtistName string   `json:"artist_name"`
	Title      string   `json:"title"`
	Year       string   `json:"year"`
	Type       string   `json:"type"`
	CoverImage string   `json:"cover_image"`
	Tracks     []*Track `json:"tracks"`
}

func (a *Album) CloneAlbum() *Album {
	if a == nil {
		return nil
	}
	c := *a
	if a.Tracks != nil {
		c.Tracks = make([]*Track, 0, len(a.Tracks))
		for _, t := range a.Tracks {
			c.Tracks = append(c.Tracks, t.CloneTrack())
		}
	}
	return &c
}

// FindTrack returns the track with the given id, or nil.
func (a *Album) FindTrack(trackID string) *Track {
	for _, t := range a.Tracks {
		if t != nil && t.ID == trackID {
			return t
		}
	}
	return nil
}

// RemoveTrack deletes the track with the given id from the collection.
// It reports whether the track was present.
func (a *Album) RemoveTrack(trackID string) bool {
	for i, t := range a.Tracks {
		if t != nil && t.ID == trackID {
			a.Tracks = append(a.Tracks[:i], a.Tracks[i+1:]...)
			return true
		}
	}
	return false
}

// NextTrackNumber returns the number a newly appended track gets when
// the caller did not supply one.
func (a *Album) NextTrackNumber() int {
	return len(a.Tracks) + 1
}
