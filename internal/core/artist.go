package core

// AlbumRef is the denormalized album entry kept inside an artist record
// for listing. Authoritative album content lives in the album record.
type AlbumRef struct {
	ID         string `json:"id"`
	Title      string `json:"title"`
	Year       string `json:"year"`
	Type       string `json:"type"`
	CoverImage string `json:"cover_image"`
}

type Artist struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	Genre       string      `json:"genre"`
	Description string      `json:"description"`
	Image       string      `json:"image"`
	Albums      []*AlbumRef `json:"albums"`
}

func (a *Artist) CloneArtist() *Artist {
	if a == nil {
		return nil
	}
	c := *a
	if a.Albums != nil {
		c.Albums = make([]*AlbumRef, 0, len(a.Albums))
		for _, ref := range a.Albums {
			if ref == nil {
				continue
			}
			cr := *ref
			c.Albums = append(c.Albums, &cr)
		}
	}
	return &c
}

// FindAlbumRef returns the denormalized entry for albumID, or nil.
func (a *Artist) FindAlbumRef(albumID string) *AlbumRef {
	for _, ref := range a.Albums {
		if ref != nil && ref.ID == albumID {
			return ref
		}
	}
	return nil
}

// RemoveAlbumRef deletes the entry for albumID and reports whether it
// was present.
func (a *Artist) RemoveAlbumRef(albumID string) bool {
	for i, ref := range a.Albums {
		if ref != nil && ref.ID == albumID {
			a.Albums = append(a.Albums[:i], a.Albums[i+1:]...)
			return true
		}
	}
	return false
}

// ArtistSummary is the per-artist projection stored in the index
// collection. It is rebuilt on every artist write and must never be
// read as authoritative for album or track content.
type ArtistSummary struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Genre       string `json:"genre"`
	Description string `json:"description"`
	Image       string `json:"image"`
	AlbumCount  int    `json:"album_count"`
}

// Index is the listing read-path: one summary per artist.
type Index []*ArtistSummary

// Summarize derives the index entry for an artist record.
func (a *Artist) Summarize() *ArtistSummary {
	return &ArtistSummary{
		ID:          a.ID,
		Name:        a.Name,
		Genre:       a.Genre,
		Description: a.Description,
		Image:       a.Image,
		AlbumCount:  len(a.Albums),
	}
}

// Upsert replaces the summary with the same id or appends it.
func (idx Index) Upsert(s *ArtistSummary) Index {
	if s == nil {
		return idx
	}
	for i, have := range idx {
		if have != nil && have.ID == s.ID {
			idx[i] = s
			return idx
		}
	}
	return append(idx, s)
}

// Remove prunes the summary for artistID.
func (idx Index) Remove(artistID string) Index {
	res := idx[:0]
	for _, s := range idx {
		if s != nil && s.ID != artistID {
			res = append(res, s)
		}
	}
	return res
}

func (idx Index) CloneIndex() Index {
	if idx == nil {
		return nil
	}
	res := make(Index, 0, len(idx))
	for _, s := range idx {
		if s == nil {
			continue
		}
		c := *s
		res = append(res, &c)
	}
	return res
}
