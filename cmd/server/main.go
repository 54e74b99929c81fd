package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/yuki-appdevorg/Music-Server-SpotifySupport/internal/acquire"
	"github.com/yuki-appdevorg/Music-Server-SpotifySupport/internal/api"
	"github.com/yuki-appdevorg/Music-Server-SpotifySupport/internal/catalog"
	"github.com/yuki-appdevorg/Music-Server-SpotifySupport/internal/config"
	"github.com/yuki-appdevorg/Music-Server-SpotifySupport/internal/core"
	"github.com/yuki-appdevorg/Music-Server-SpotifySupport/internal/media"
	"github.com/yuki-appdevorg/Music-Server-SpotifySupport/internal/provider"
	"github.com/yuki-appdevorg/Music-Server-SpotifySupport/internal/storage"
)

const (
	configAppName = "app"
	configExt     = "env"
	configDir     = "config"

	shutdownTimeout = 30 * time.Second
	jobDrainTimeout = 2 * time.Minute
)

func newLogger() (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.MessageKey = "msg"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.OutputPaths = []string{"stdout", "app_log.log"}
	cfg.ErrorOutputPaths = []string{"stderr", "app_log.log"}
	return cfg.Build()
}

func main() {
	zapLogger, err := newLogger()
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "can init logger: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = zapLogger.Sync()
	}()

	logger := zapLogger.Named("server")
	logger.Info("running server", zap.Int("pid", os.Getpid()))

	cfg, err := config.LoadAppConfig(configAppName, configExt, configDir)
	if err != nil || cfg == nil {
		logger.Fatal("cant read config, check file", zap.Error(err), zap.String("name", configAppName))
	}
	gin.SetMode(cfg.GinMode)

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		logger.Fatal("cant create data dir", zap.Error(err), zap.String("dir", cfg.DataDir))
	}

	store, err := openStore(cfg)
	if err != nil {
		logger.Fatal("cant open store", zap.Error(err))
	}

	lib, err := media.NewLibrary(cfg.MusicDir, cfg.ImagesDir, cfg.TempDir)
	if err != nil {
		logger.Fatal("cant init media library", zap.Error(err))
	}
	transcoder, err := media.NewTranscoder(&media.TranscoderConfig{
		FFmpegPath: cfg.FFmpegPath,
		Bitrate:    cfg.AudioBitrate,
		OutDir:     lib.MusicDir(),
	})
	if err != nil {
		logger.Fatal("cant init transcoder", zap.Error(err))
	}

	providers, err := buildProviders(cfg, logger.Named("provider"))
	if err != nil {
		logger.Fatal("cant init providers", zap.Error(err))
	}

	runner, err := acquire.NewRunner(&acquire.RunnerOptions{
		Store:      store,
		Providers:  providers,
		Normalizer: transcoder,
		TempDir:    lib.TempDir(),
		Logger:     logger.Named("acquire"),
	})
	if err != nil {
		logger.Fatal("cant init job runner", zap.Error(err))
	}
	coordinator, err := acquire.NewCoordinator(store, runner, cfg.RetryPacing, logger.Named("retry"))
	if err != nil {
		logger.Fatal("cant init retry coordinator", zap.Error(err))
	}

	svc, err := catalog.NewService(store, lib, nil, logger.Named("catalog"))
	if err != nil {
		logger.Fatal("cant init catalog service", zap.Error(err))
	}

	srv, err := api.NewServer(&api.ServerOptions{
		Catalog:  svc,
		Jobs:     runner,
		Retry:    coordinator,
		Importer: transcoder,
		Library:  lib,
		Logger:   logger,

		Addr:      cfg.ServerAddr,
		BaseURL:   cfg.PublicBaseURL,
		AdminUser: cfg.AdminUser,
		AdminPass: cfg.AdminPass,
	})
	if err != nil {
		logger.Fatal("cant create api server", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting server", zap.String("addr", cfg.ServerAddr))
		if err := srv.Run(); err != nil {
			if errors.Is(err, http.ErrServerClosed) {
				return
			}
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-errCh:
		logger.Error("server failed", zap.Error(err))
	}

	offCtx, offCanc := context.WithTimeout(context.Background(), shutdownTimeout)
	defer offCanc()
	if err := srv.Shutdown(offCtx); err != nil {
		logger.Error("cant shutdown server", zap.Error(err))
	}

	// running jobs keep persisting track outcomes until drained
	logger.Info("draining acquisition jobs")
	drainCtx, drainCanc := context.WithTimeout(context.Background(), jobDrainTimeout)
	runner.Shutdown(drainCtx)
	drainCanc()

	if err := store.Close(); err != nil {
		logger.Error("cant close store", zap.Error(err))
	}
	logger.Info("shutdown done")
}

func openStore(cfg *config.AppConfig) (storage.Store, error) {
	switch strings.ToLower(cfg.StorageMode) {
	case "file":
		return storage.NewFileStore(cfg.DataDir)
	case "bbolt":
		return storage.NewBoltStore(filepath.Join(cfg.DataDir, "catalog.db"))
	default:
		return nil, errors.New("unknown storage mode")
	}
}

func buildProviders(cfg *config.AppConfig, logger *zap.Logger) (*provider.Registry, error) {
	extractor, err := provider.NewURLExtractor(&provider.URLExtractorConfig{
		Binary:  cfg.YTDLPPath,
		Timeout: cfg.ProviderTimeout,
		Logger:  logger,
	})
	if err != nil {
		return nil, err
	}
	searcher, err := provider.NewMetaSearcher(&provider.MetaSearcherConfig{
		Binary:  cfg.MetasearchPath,
		Timeout: cfg.ProviderTimeout,
		Logger:  logger,
	})
	if err != nil {
		return nil, err
	}

	reg := provider.NewRegistry()
	reg.Register(core.SourceURLExtract, extractor)
	reg.Register(core.SourceMetaSearch, searcher)
	return reg, nil
}
