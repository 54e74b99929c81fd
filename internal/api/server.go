package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/yuki-appdevorg/Music-Server-SpotifySupport/internal/media"
)

var ErrNoCatalogService = errors.New("catalog service is required")
var ErrNoJobSubmitter = errors.New("job submitter is required")
var ErrNoRetryCoordinator = errors.New("retry coordinator is required")
var ErrNoAudioImporter = errors.New("audio importer is required")
var ErrNoMediaLibrary = errors.New("media library is required")

type Server struct {
	router *gin.Engine

	httpSrv *http.Server
}

type ServerOptions struct {
	Catalog  catalogService
	Jobs     jobSubmitter
	Retry    retryCoordinator
	Importer audioImporter
	Library  *media.Library
	Logger   *zap.Logger

	Addr      string
	BaseURL   string
	AdminUser string
	AdminPass string
}

func NewServer(opts *ServerOptions) (*Server, error) {
	if opts.Catalog == nil {
		return nil, ErrNoCatalogService
	}
	if opts.Jobs == nil {
		return nil, ErrNoJobSubmitter
	}
	if opts.Retry == nil {
		return nil, ErrNoRetryCoordinator
	}
	if opts.Importer == nil {
		return nil, ErrNoAudioImporter
	}
	if opts.Library == nil {
		return nil, ErrNoMediaLibrary
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	router := gin.New()
	router.Use(
		RecoveryMiddleware(opts.Logger),
		RequestIDMiddleware(),
		LoggingMiddleware(opts.Logger),
	)

	h := newHandler(opts.Catalog, opts.Jobs, opts.Retry, opts.Importer,
		opts.Library, opts.BaseURL, opts.Logger)
	setupRouter(router, h, opts.AdminUser, opts.AdminPass)

	return &Server{
		router: router,
		httpSrv: &http.Server{
			Addr:    opts.Addr,
			Handler: router,
		}}, nil
}

func (s *Server) Run() error {
	return s.httpSrv.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpSrv.Shutdown(ctx)
}

func (s *Server) Router() http.Handler {
	return s.router
}

func setupRouter(router *gin.Engine, h *handler, adminUser, adminPass string) {
	router.GET("/api/artists", h.listArtists)
	router.GET("/api/artist/:id", h.getArtist)
	router.GET("/api/album/:id", h.getAlbum)
	router.GET("/stream/:filename", h.streamAudio)
	router.GET("/image/:filename", h.serveImage)

	admin := router.Group("/api/admin", gin.BasicAuth(gin.Accounts{adminUser: adminPass}))
	admin.POST("/artist", h.createArtist)
	admin.PUT("/artist/:id", h.updateArtist)
	admin.DELETE("/artist/:id", h.deleteArtist)
	admin.POST("/artist/:id/album", h.createAlbum)
	admin.PUT("/album/:id", h.updateAlbum)
	admin.DELETE("/album/:id", h.deleteAlbum)
	admin.POST("/album/:id/track/upload", h.uploadTrack)
	admin.POST("/album/:id/track/url", h.addURLTrack)
	admin.POST("/album/:id/retry_all", h.retryAllTracks)
	admin.PUT("/album/:id/track/:trackId", h.updateTrack)
	admin.DELETE("/album/:id/track/:trackId", h.deleteTrack)
	admin.POST("/album/:id/track/:trackId/retry", h.retryTrack)
	admin.POST("/album/:id/track/:trackId/force_error", h.forceTrackError)
}
