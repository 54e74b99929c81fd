package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/yuki-appdevorg/Music-Server-SpotifySupport/internal/acquire"
	"github.com/yuki-appdevorg/Music-Server-SpotifySupport/internal/core"
	"github.com/yuki-appdevorg/Music-Server-SpotifySupport/internal/media"
)

type mockCatalog struct {
	catalogService

	GetAlbumF    func(ctx context.Context, id string) (*core.Album, error)
	AddURLTrackF func(ctx context.Context, albumID, url string, source core.SourceType, trackNumber int) (*core.Track, error)
	ListArtistsF func(ctx context.Context) (core.Index, error)
}

func (m *mockCatalog) GetAlbum(ctx context.Context, id string) (*core.Album, error) {
	return m.GetAlbumF(ctx, id)
}

func (m *mockCatalog) AddURLTrack(ctx context.Context, albumID, url string, source core.SourceType, trackNumber int) (*core.Track, error) {
	return m.AddURLTrackF(ctx, albumID, url, source, trackNumber)
}

func (m *mockCatalog) ListArtists(ctx context.Context) (core.Index, error) {
	return m.ListArtistsF(ctx)
}

type mockJobs struct {
	LastSpec acquire.JobSpec
	SubmitF  func(ctx context.Context, spec acquire.JobSpec) error
}

func (m *mockJobs) Submit(ctx context.Context, spec acquire.JobSpec) error {
	m.LastSpec = spec
	return m.SubmitF(ctx, spec)
}

type mockRetry struct {
	RetryTrackF func(ctx context.Context, albumID, trackID string) (bool, error)
	RetryAllF   func(ctx context.Context, albumID string) (int, error)
}

func (m *mockRetry) RetryTrack(ctx context.Context, albumID, trackID string) (bool, error) {
	return m.RetryTrackF(ctx, albumID, trackID)
}

func (m *mockRetry) RetryAll(ctx context.Context, albumID string) (int, error) {
	return m.RetryAllF(ctx, albumID)
}

type mockImporter struct {
	NormalizeF func(ctx context.Context, src string) (string, error)
}

func (m *mockImporter) Normalize(ctx context.Context, src string) (string, error) {
	return m.NormalizeF(ctx, src)
}

func testServer(t *testing.T, cat catalogService, jobs jobSubmitter, retry retryCoordinator) *Server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	lib, err := media.NewLibrary(t.TempDir(), t.TempDir(), t.TempDir())
	require.NoError(t, err)

	srv, err := NewServer(&ServerOptions{
		Catalog:   cat,
		Jobs:      jobs,
		Retry:     retry,
		Importer:  &mockImporter{NormalizeF: func(ctx context.Context, src string) (string, error) { return "n.mp3", nil }},
		Library:   lib,
		BaseURL:   "http://localhost:8080",
		AdminUser: "admin",
		AdminPass: "secret",
	})
	require.NoError(t, err)
	return srv
}

var noRetry = &mockRetry{
	RetryTrackF: func(ctx context.Context, albumID, trackID string) (bool, error) { return false, nil },
	RetryAllF:   func(ctx context.Context, albumID string) (int, error) { return 0, nil },
}

var noJobs = &mockJobs{SubmitF: func(ctx context.Context, spec acquire.JobSpec) error { return nil }}

func TestGetAlbumAPI(t *testing.T) {
	t.Parallel()

	album := &core.Album{
		ID: "alb1", ArtistID: "a1", ArtistName: "Nina", Title: "Pastel Blues",
		Tracks: []*core.Track{
			{ID: "t1", Title: "One", TrackNumber: 1,
				Status: core.TrackStatusCompleted, Filename: core.StringPtr("x.mp3")},
			{ID: "t2", Title: "Two", TrackNumber: 2, Status: core.TrackStatusPending},
		},
	}
	cat := &mockCatalog{
		GetAlbumF: func(ctx context.Context, id string) (*core.Album, error) {
			require.Equal(t, "alb1", id)
			return album, nil
		},
	}
	srv := testServer(t, cat, noJobs, noRetry)

	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/album/alb1", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	resp := AlbumResponse{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Tracks, 2)
	require.Equal(t, "One", resp.Tracks[0].Title)
	require.Equal(t, "http://localhost:8080/stream/x.mp3", resp.Tracks[0].StreamURL)
	require.Equal(t, "[Pending] Two", resp.Tracks[1].Title)
	require.Empty(t, resp.Tracks[1].StreamURL)
}

func TestGetAlbumNotFoundAPI(t *testing.T) {
	t.Parallel()

	cat := &mockCatalog{
		GetAlbumF: func(ctx context.Context, id string) (*core.Album, error) {
			return nil, core.NewNotFoundError(core.KindAlbum, id, "test")
		},
	}
	srv := testServer(t, cat, noJobs, noRetry)

	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/album/ghost", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAddURLTrackAPI(t *testing.T) {
	t.Parallel()

	placeholder := &core.Track{
		ID: "ph1", Title: "Initializing...", TrackNumber: 5,
		Status: core.TrackStatusPending, SourceType: core.SourceURLExtract,
		OriginalURL: core.StringPtr("https://v.example/playlist"),
	}
	cat := &mockCatalog{
		AddURLTrackF: func(ctx context.Context, albumID, url string, source core.SourceType, trackNumber int) (*core.Track, error) {
			require.Equal(t, "alb1", albumID)
			require.Equal(t, core.SourceURLExtract, source)
			return placeholder, nil
		},
	}
	jobs := &mockJobs{SubmitF: func(ctx context.Context, spec acquire.JobSpec) error { return nil }}
	srv := testServer(t, cat, jobs, noRetry)

	body := `{"url":"https://v.example/playlist","source_type":"url-extract"}`
	req := httptest.NewRequest(http.MethodPost, "/api/admin/album/alb1/track/url", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth("admin", "secret")
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	require.Equal(t, http.StatusAccepted, rec.Code)

	require.Equal(t, acquire.JobSpec{
		AlbumID:        "alb1",
		URL:            "https://v.example/playlist",
		Source:         core.SourceURLExtract,
		ReplaceTrackID: "ph1",
		StartNumber:    5,
	}, jobs.LastSpec)

	resp := TrackResponse{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, "ph1", resp.ID)
	require.Equal(t, "pending", resp.Status)
}

func TestAdminRequiresBasicAuth(t *testing.T) {
	t.Parallel()

	srv := testServer(t, &mockCatalog{}, noJobs, noRetry)

	req := httptest.NewRequest(http.MethodPost, "/api/admin/album/alb1/retry_all", nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRetryAllAPI(t *testing.T) {
	t.Parallel()

	retry := &mockRetry{
		RetryAllF: func(ctx context.Context, albumID string) (int, error) {
			require.Equal(t, "alb1", albumID)
			return 2, nil
		},
	}
	srv := testServer(t, &mockCatalog{}, noJobs, retry)

	req := httptest.NewRequest(http.MethodPost, "/api/admin/album/alb1/retry_all", nil)
	req.SetBasicAuth("admin", "secret")
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	require.Equal(t, http.StatusAccepted, rec.Code)
	require.Contains(t, rec.Body.String(), `"launched":2`)
}

func TestRetryTrackNotRetryableAPI(t *testing.T) {
	t.Parallel()

	retry := &mockRetry{
		RetryTrackF: func(ctx context.Context, albumID, trackID string) (bool, error) {
			return false, nil
		},
	}
	srv := testServer(t, &mockCatalog{}, noJobs, retry)

	req := httptest.NewRequest(http.MethodPost, "/api/admin/album/alb1/track/t1/retry", nil)
	req.SetBasicAuth("admin", "secret")
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "not_retryable")
}

func TestStreamRejectsPathTraversal(t *testing.T) {
	t.Parallel()

	srv := testServer(t, &mockCatalog{}, noJobs, noRetry)

	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/stream/%2e%2e%2fsecret.mp3", nil))
	require.NotEqual(t, http.StatusOK, rec.Code)
}

func TestListArtistsAPI(t *testing.T) {
	t.Parallel()

	cat := &mockCatalog{
		ListArtistsF: func(ctx context.Context) (core.Index, error) {
			return core.Index{{ID: "a1", Name: "Nina", AlbumCount: 1}}, nil
		},
	}
	srv := testServer(t, cat, noJobs, noRetry)

	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/artists", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	resp := ArtistsResponse{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Artists, 1)
	require.Equal(t, "http://localhost:8080/api/artist/a1", resp.Artists[0].APIURL)
}
