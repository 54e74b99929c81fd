package api

import (
	"strings"

	"github.com/yuki-appdevorg/Music-Server-SpotifySupport/internal/core"
)

// urlBuilder derives the public file and api links added to read
// responses. These links exist only at this boundary and are never
// persisted.
type urlBuilder struct {
	base string
}

func newURLBuilder(base string) urlBuilder {
	return urlBuilder{base: strings.TrimRight(base, "/")}
}

func (u urlBuilder) image(name string) string {
	if name == "" {
		return ""
	}
	return u.base + "/image/" + name
}

func (u urlBuilder) stream(name string) string {
	if name == "" {
		return ""
	}
	return u.base + "/stream/" + name
}

func (u urlBuilder) artist(id string) string {
	return u.base + "/api/artist/" + id
}

func (u urlBuilder) album(id string) string {
	return u.base + "/api/album/" + id
}

type ArtistSummaryResponse struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Genre       string `json:"genre"`
	Description string `json:"description"`
	ImageURL    string `json:"image_url,omitempty"`
	AlbumCount  int    `json:"album_count"`
	APIURL      string `json:"api_url"`
}

type ArtistsResponse struct {
	Artists []*ArtistSummaryResponse `json:"artists"`
}

type AlbumRefResponse struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Year     string `json:"year"`
	Type     string `json:"type"`
	CoverURL string `json:"cover_url,omitempty"`
	APIURL   string `json:"api_url"`
}

type ArtistResponse struct {
	ID          string              `json:"id"`
	Name        string              `json:"name"`
	Genre       string              `json:"genre"`
	Description string              `json:"description"`
	ImageURL    string              `json:"image_url,omitempty"`
	Albums      []*AlbumRefResponse `json:"albums"`
}

type TrackResponse struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	TrackNumber int    `json:"track_number"`
	Status      string `json:"status"`
	SourceType  string `json:"source_type"`
	StreamURL   string `json:"stream_url,omitempty"`
	Error       string `json:"error,omitempty"`
}

type AlbumResponse struct {
	ID         string           `json:"id"`
	ArtistID   string           `json:"artist_id"`
	ArtistName string           `json:"artist_name"`
	Title      string           `json:"title"`
	Year       string           `json:"year"`
	Type       string           `json:"type"`
	CoverURL   string           `json:"cover_url,omitempty"`
	Tracks     []*TrackResponse `json:"tracks"`
}

func NewArtistsResponse(idx core.Index, u urlBuilder) *ArtistsResponse {
	resp := &ArtistsResponse{Artists: make([]*ArtistSummaryResponse, 0, len(idx))}
	for _, s := range idx {
		if s == nil {
			continue
		}
		resp.Artists = append(resp.Artists, &ArtistSummaryResponse{
			ID:          s.ID,
			Name:        s.Name,
			Genre:       s.Genre,
			Description: s.Description,
			ImageURL:    u.image(s.Image),
			AlbumCount:  s.AlbumCount,
			APIURL:      u.artist(s.ID),
		})
	}
	return resp
}

func NewArtistResponse(artist *core.Artist, u urlBuilder) *ArtistResponse {
	if artist == nil {
		return nil
	}
	resp := &ArtistResponse{
		ID:          artist.ID,
		Name:        artist.Name,
		Genre:       artist.Genre,
		Description: artist.Description,
		ImageURL:    u.image(artist.Image),
		Albums:      make([]*AlbumRefResponse, 0, len(artist.Albums)),
	}
	for _, ref := range artist.Albums {
		if ref == nil {
			continue
		}
		resp.Albums = append(resp.Albums, &AlbumRefResponse{
			ID:       ref.ID,
			Title:    ref.Title,
			Year:     ref.Year,
			Type:     ref.Type,
			CoverURL: u.image(ref.CoverImage),
			APIURL:   u.album(ref.ID),
		})
	}
	return resp
}

func NewAlbumResponse(album *core.Album, u urlBuilder) *AlbumResponse {
	if album == nil {
		return nil
	}
	resp := &AlbumResponse{
		ID:         album.ID,
		ArtistID:   album.ArtistID,
		ArtistName: album.ArtistName,
		Title:      album.Title,
		Year:       album.Year,
		Type:       album.Type,
		CoverURL:   u.image(album.CoverImage),
		Tracks:     make([]*TrackResponse, 0, len(album.Tracks)),
	}
	for _, t := range album.Tracks {
		if t == nil {
			continue
		}
		resp.Tracks = append(resp.Tracks, NewTrackResponse(t, u))
	}
	return resp
}

func NewTrackResponse(t *core.Track, u urlBuilder) *TrackResponse {
	if t == nil {
		return nil
	}
	resp := &TrackResponse{
		ID:          t.ID,
		Title:       DisplayTitle(t),
		TrackNumber: t.TrackNumber,
		Status:      string(t.Status),
		SourceType:  string(t.SourceType),
	}
	// only completed tracks have a playable file
	if t.Status == core.TrackStatusCompleted && t.Filename != nil {
		resp.StreamURL = u.stream(*t.Filename)
	}
	if t.ErrorMsg != nil {
		resp.Error = *t.ErrorMsg
	}
	return resp
}

// DisplayTitle prefixes the stored title with a marker for unfinished
// tracks. The persisted title stays clean; this is render-only.
func DisplayTitle(t *core.Track) string {
	switch t.Status {
	case core.TrackStatusPending:
		return "[Pending] " + t.Title
	case core.TrackStatusDownloading:
		return "[Downloading] " + t.Title
	case core.TrackStatusError:
		return "[Error] " + t.Title
	default:
		return t.Title
	}
}
