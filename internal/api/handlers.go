package api

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/yuki-appdevorg/Music-Server-SpotifySupport/internal/acquire"
	"github.com/yuki-appdevorg/Music-Server-SpotifySupport/internal/catalog"
	"github.com/yuki-appdevorg/Music-Server-SpotifySupport/internal/core"
	"github.com/yuki-appdevorg/Music-Server-SpotifySupport/internal/media"
)

type catalogService interface {
	ListArtists(ctx context.Context) (core.Index, error)
	GetArtist(ctx context.Context, id string) (*core.Artist, error)
	CreateArtist(ctx context.Context, p catalog.ArtistParams) (*core.Artist, error)
	UpdateArtist(ctx context.Context, id string, p catalog.ArtistParams) (*core.Artist, error)
	DeleteArtist(ctx context.Context, id string) error

	GetAlbum(ctx context.Context, id string) (*core.Album, error)
	CreateAlbum(ctx context.Context, artistID string, p catalog.AlbumParams) (*core.Album, error)
	UpdateAlbum(ctx context.Context, albumID string, p catalog.AlbumParams) (*core.Album, error)
	DeleteAlbum(ctx context.Context, albumID string) error

	AddUploadTrack(ctx context.Context, albumID, title string, trackNumber int, filename string) (*core.Track, error)
	AddURLTrack(ctx context.Context, albumID, url string, source core.SourceType, trackNumber int) (*core.Track, error)
	UpdateTrack(ctx context.Context, albumID, trackID, title string, trackNumber int) (*core.Track, error)
	DeleteTrack(ctx context.Context, albumID, trackID string) error
	ForceTrackError(ctx context.Context, albumID, trackID, msg string) (*core.Track, error)
}

type jobSubmitter interface {
	Submit(ctx context.Context, spec acquire.JobSpec) error
}

type retryCoordinator interface {
	RetryTrack(ctx context.Context, albumID, trackID string) (bool, error)
	RetryAll(ctx context.Context, albumID string) (int, error)
}

// audioImporter normalizes an uploaded file into the music library;
// satisfied by *media.Transcoder.
type audioImporter interface {
	Normalize(ctx context.Context, src string) (string, error)
}

type handler struct {
	catalog  catalogService
	jobs     jobSubmitter
	retry    retryCoordinator
	importer audioImporter
	lib      *media.Library
	urls     urlBuilder
	logger   *zap.Logger
}

const handlerTimeout = 2 * time.Minute

func newHandler(cat catalogService, jobs jobSubmitter, retry retryCoordinator, importer audioImporter, lib *media.Library, baseURL string, logger *zap.Logger) *handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &handler{
		catalog:  cat,
		jobs:     jobs,
		retry:    retry,
		importer: importer,
		lib:      lib,
		urls:     newURLBuilder(baseURL),
		logger:   logger,
	}
}

func (h *handler) listArtists(c *gin.Context) {
	ctx, canc := context.WithTimeout(c.Request.Context(), handlerTimeout)
	defer canc()

	idx, err := h.catalog.ListArtists(ctx)
	if err != nil {
		h.errorResponse(c, err)
		return
	}
	c.JSON(http.StatusOK, NewArtistsResponse(idx, h.urls))
}

func (h *handler) getArtist(c *gin.Context) {
	ctx, canc := context.WithTimeout(c.Request.Context(), handlerTimeout)
	defer canc()

	artist, err := h.catalog.GetArtist(ctx, c.Param("id"))
	if err != nil {
		h.errorResponse(c, err)
		return
	}
	c.JSON(http.StatusOK, NewArtistResponse(artist, h.urls))
}

func (h *handler) getAlbum(c *gin.Context) {
	id := c.Param("id")
	SetAlbumID(c, id)
	ctx, canc := context.WithTimeout(c.Request.Context(), handlerTimeout)
	defer canc()

	album, err := h.catalog.GetAlbum(ctx, id)
	if err != nil {
		h.errorResponse(c, err)
		return
	}
	c.JSON(http.StatusOK, NewAlbumResponse(album, h.urls))
}

// streamAudio serves a completed track's file by its opaque name.
func (h *handler) streamAudio(c *gin.Context) {
	h.serveFile(c, h.lib.MusicDir(), c.Param("filename"))
}

func (h *handler) serveImage(c *gin.Context) {
	h.serveFile(c, h.lib.ImagesDir(), c.Param("filename"))
}

func (h *handler) serveFile(c *gin.Context, dir, name string) {
	if name == "" || filepath.Base(name) != name {
		h.badRequestResponse(c, core.NewValidationError("invalid file name", nil, "api.serveFile"))
		return
	}
	path := filepath.Join(dir, name)
	if _, err := os.Stat(path); err != nil {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "file not found"})
		return
	}
	c.File(path)
}

// artistForm covers create and update; image arrives as an optional
// multipart file.
type artistForm struct {
	Name        string `form:"name"`
	Genre       string `form:"genre"`
	Description string `form:"description"`
}

func (h *handler) createArtist(c *gin.Context) {
	form := artistForm{}
	if err := c.ShouldBind(&form); err != nil {
		h.badRequestResponse(c, err)
		return
	}
	image, err := h.saveFormImage(c)
	if err != nil {
		h.badRequestResponse(c, err)
		return
	}

	ctx, canc := context.WithTimeout(c.Request.Context(), handlerTimeout)
	defer canc()
	artist, err := h.catalog.CreateArtist(ctx, catalog.ArtistParams{
		Name:        form.Name,
		Genre:       form.Genre,
		Description: form.Description,
		Image:       image,
	})
	if err != nil {
		h.errorResponse(c, err)
		return
	}
	c.JSON(http.StatusCreated, NewArtistResponse(artist, h.urls))
}

func (h *handler) updateArtist(c *gin.Context) {
	form := artistForm{}
	if err := c.ShouldBind(&form); err != nil {
		h.badRequestResponse(c, err)
		return
	}
	image, err := h.saveFormImage(c)
	if err != nil {
		h.badRequestResponse(c, err)
		return
	}

	ctx, canc := context.WithTimeout(c.Request.Context(), handlerTimeout)
	defer canc()
	artist, err := h.catalog.UpdateArtist(ctx, c.Param("id"), catalog.ArtistParams{
		Name:        form.Name,
		Genre:       form.Genre,
		Description: form.Description,
		Image:       image,
	})
	if err != nil {
		h.errorResponse(c, err)
		return
	}
	c.JSON(http.StatusOK, NewArtistResponse(artist, h.urls))
}

func (h *handler) deleteArtist(c *gin.Context) {
	ctx, canc := context.WithTimeout(c.Request.Context(), handlerTimeout)
	defer canc()

	if err := h.catalog.DeleteArtist(ctx, c.Param("id")); err != nil {
		h.errorResponse(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

type albumForm struct {
	Title string `form:"title"`
	Year  string `form:"year"`
	Type  string `form:"type"`
}

func (h *handler) createAlbum(c *gin.Context) {
	form := albumForm{}
	if err := c.ShouldBind(&form); err != nil {
		h.badRequestResponse(c, err)
		return
	}
	cover, err := h.saveFormImage(c)
	if err != nil {
		h.badRequestResponse(c, err)
		return
	}

	ctx, canc := context.WithTimeout(c.Request.Context(), handlerTimeout)
	defer canc()
	album, err := h.catalog.CreateAlbum(ctx, c.Param("id"), catalog.AlbumParams{
		Title: form.Title, Year: form.Year, Type: form.Type, CoverImage: cover,
	})
	if err != nil {
		h.errorResponse(c, err)
		return
	}
	c.JSON(http.StatusCreated, NewAlbumResponse(album, h.urls))
}

func (h *handler) updateAlbum(c *gin.Context) {
	id := c.Param("id")
	SetAlbumID(c, id)
	form := albumForm{}
	if err := c.ShouldBind(&form); err != nil {
		h.badRequestResponse(c, err)
		return
	}
	cover, err := h.saveFormImage(c)
	if err != nil {
		h.badRequestResponse(c, err)
		return
	}

	ctx, canc := context.WithTimeout(c.Request.Context(), handlerTimeout)
	defer canc()
	album, err := h.catalog.UpdateAlbum(ctx, id, catalog.AlbumParams{
		Title: form.Title, Year: form.Year, Type: form.Type, CoverImage: cover,
	})
	if err != nil {
		h.errorResponse(c, err)
		return
	}
	c.JSON(http.StatusOK, NewAlbumResponse(album, h.urls))
}

func (h *handler) deleteAlbum(c *gin.Context) {
	id := c.Param("id")
	SetAlbumID(c, id)
	ctx, canc := context.WithTimeout(c.Request.Context(), handlerTimeout)
	defer canc()

	if err := h.catalog.DeleteAlbum(ctx, id); err != nil {
		h.errorResponse(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

// uploadTrack spools the multipart file, normalizes it into the music
// library and records a completed track.
func (h *handler) uploadTrack(c *gin.Context) {
	albumID := c.Param("id")
	SetAlbumID(c, albumID)

	fh, err := c.FormFile("file")
	if err != nil {
		h.badRequestResponse(c, err)
		return
	}
	src, err := fh.Open()
	if err != nil {
		h.badRequestResponse(c, err)
		return
	}
	defer src.Close()

	tmpPath, err := h.lib.SaveUploadTemp(src, fh.Filename)
	if err != nil {
		h.badRequestResponse(c, err)
		return
	}
	defer os.Remove(tmpPath)

	ctx, canc := context.WithTimeout(c.Request.Context(), handlerTimeout)
	defer canc()

	filename, err := h.importer.Normalize(ctx, tmpPath)
	if err != nil {
		h.errorResponse(c, err)
		return
	}
	title := c.PostForm("title")
	if title == "" {
		title = fh.Filename
	}
	track, err := h.catalog.AddUploadTrack(ctx, albumID, title, formInt(c, "track_number"), filename)
	if err != nil {
		_ = h.lib.RemoveAudio(filename)
		h.errorResponse(c, err)
		return
	}
	c.JSON(http.StatusCreated, NewTrackResponse(track, h.urls))
}

type addURLTrackRequest struct {
	URL         string `json:"url"`
	SourceType  string `json:"source_type"`
	TrackNumber int    `json:"track_number"`
}

// addURLTrack creates the placeholder and fires the acquisition job.
// The 202 response returns the placeholder; progress is observable by
// re-reading the album.
func (h *handler) addURLTrack(c *gin.Context) {
	albumID := c.Param("id")
	SetAlbumID(c, albumID)

	req := addURLTrackRequest{}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequestResponse(c, err)
		return
	}
	source := core.SourceType(req.SourceType)
	if source == "" {
		source = core.SourceURLExtract
	}

	ctx, canc := context.WithTimeout(c.Request.Context(), handlerTimeout)
	defer canc()

	track, err := h.catalog.AddURLTrack(ctx, albumID, req.URL, source, req.TrackNumber)
	if err != nil {
		h.errorResponse(c, err)
		return
	}

	submitCtx, cancSubmit := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancSubmit()
	if err := h.jobs.Submit(submitCtx, acquire.JobSpec{
		AlbumID:        albumID,
		URL:            req.URL,
		Source:         source,
		ReplaceTrackID: track.ID,
		StartNumber:    track.TrackNumber,
	}); err != nil {
		h.logger.Error("job submit failed",
			zap.String("reqid", GetRequestID(c)),
			zap.String("album_id", albumID),
			zap.Error(err),
		)
		h.errorResponse(c, err)
		return
	}
	c.JSON(http.StatusAccepted, NewTrackResponse(track, h.urls))
}

type editTrackRequest struct {
	Title       string `json:"title"`
	TrackNumber int    `json:"track_number"`
}

func (h *handler) updateTrack(c *gin.Context) {
	albumID := c.Param("id")
	SetAlbumID(c, albumID)
	req := editTrackRequest{}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequestResponse(c, err)
		return
	}

	ctx, canc := context.WithTimeout(c.Request.Context(), handlerTimeout)
	defer canc()
	track, err := h.catalog.UpdateTrack(ctx, albumID, c.Param("trackId"), req.Title, req.TrackNumber)
	if err != nil {
		h.errorResponse(c, err)
		return
	}
	c.JSON(http.StatusOK, NewTrackResponse(track, h.urls))
}

func (h *handler) deleteTrack(c *gin.Context) {
	albumID := c.Param("id")
	SetAlbumID(c, albumID)
	ctx, canc := context.WithTimeout(c.Request.Context(), handlerTimeout)
	defer canc()

	if err := h.catalog.DeleteTrack(ctx, albumID, c.Param("trackId")); err != nil {
		h.errorResponse(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

func (h *handler) retryTrack(c *gin.Context) {
	albumID := c.Param("id")
	SetAlbumID(c, albumID)
	ctx, canc := context.WithTimeout(c.Request.Context(), handlerTimeout)
	defer canc()

	launched, err := h.retry.RetryTrack(ctx, albumID, c.Param("trackId"))
	if err != nil {
		h.errorResponse(c, err)
		return
	}
	if !launched {
		c.JSON(http.StatusOK, gin.H{"status": "not_retryable"})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"status": "retrying"})
}

func (h *handler) retryAllTracks(c *gin.Context) {
	albumID := c.Param("id")
	SetAlbumID(c, albumID)
	ctx, canc := context.WithTimeout(c.Request.Context(), handlerTimeout)
	defer canc()

	launched, err := h.retry.RetryAll(ctx, albumID)
	if err != nil {
		h.errorResponse(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"status": "retrying", "launched": launched})
}

type forceErrorRequest struct {
	Message string `json:"message"`
}

// forceTrackError is the operator path for a track stuck in
// downloading after an unreported crash.
func (h *handler) forceTrackError(c *gin.Context) {
	albumID := c.Param("id")
	SetAlbumID(c, albumID)
	req := forceErrorRequest{}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequestResponse(c, err)
		return
	}

	ctx, canc := context.WithTimeout(c.Request.Context(), handlerTimeout)
	defer canc()
	track, err := h.catalog.ForceTrackError(ctx, albumID, c.Param("trackId"), req.Message)
	if err != nil {
		h.errorResponse(c, err)
		return
	}
	c.JSON(http.StatusOK, NewTrackResponse(track, h.urls))
}

// saveFormImage stores an optional "image" multipart file and returns
// the generated name; empty when the form carries no image.
func (h *handler) saveFormImage(c *gin.Context) (string, error) {
	fh, err := c.FormFile("image")
	if err != nil {
		// no image in the form is fine
		return "", nil
	}
	src, err := fh.Open()
	if err != nil {
		return "", err
	}
	defer src.Close()
	return h.lib.SaveImage(src, fh.Filename)
}

func formInt(c *gin.Context, key string) int {
	v, err := strconv.Atoi(c.PostForm(key))
	if err != nil {
		return 0
	}
	return v
}

func (h *handler) badRequestResponse(c *gin.Context, err error) {
	if c != nil && err != nil {
		c.Error(err) //nolint:errcheck
	}
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
		"error":   "bad request",
		"details": err.Error(),
	})
}

func (h *handler) errorResponse(c *gin.Context, err error) {
	if c != nil && err != nil {
		c.Error(err) //nolint:errcheck
	}
	if err == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error": "internal server error",
		})
		return
	}

	if appErr, ok := core.AsAppError(err); ok {
		s := appErr.HTTPStatus()
		p := gin.H{
			"error": appErr.PublicMessage(),
			"code":  appErr.Code,
		}
		if appErr.SafeToShow {
			switch {
			case appErr.Err != nil:
				p["details"] = appErr.Err.Error()
			case appErr.Message != "":
				p["details"] = appErr.Message
			}
		}
		h.logger.Warn("handler error",
			zap.String("reqid", GetRequestID(c)),
			zap.String("album_id", GetAlbumID(c)),
			zap.String("error", err.Error()),
		)
		c.AbortWithStatusJSON(s, p)
		return
	}

	h.logger.Error("handler unknown error",
		zap.String("reqid", GetRequestID(c)),
		zap.String("album_id", GetAlbumID(c)),
		zap.String("error", err.Error()),
	)
	c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
		"error": "internal server error",
	})
}
