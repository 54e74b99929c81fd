package acquire

import (
	"context"
	"errors"
	"os"
	"path/filepath"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/yuki-appdevorg/Music-Server-SpotifySupport/internal/core"
	"github.com/yuki-appdevorg/Music-Server-SpotifySupport/internal/provider"
	"github.com/yuki-appdevorg/Music-Server-SpotifySupport/internal/storage"
)

// Normalizer converts a materialized file to the library's fixed
// encoding and returns the opaque stored filename.
type Normalizer interface {
	Normalize(ctx context.Context, src string) (string, error)
}

// JobSpec binds one acquisition job to one album and one source URL.
type JobSpec struct {
	AlbumID string
	URL     string
	Source  core.SourceType

	// ReplaceTrackID is the init placeholder removed once expansion
	// succeeds; empty for retry jobs.
	ReplaceTrackID string
	// ReuseTrackID makes this a retry job: the first expanded item is
	// bound to this existing track instead of new placeholders.
	ReuseTrackID string
	// StartNumber is the track_number of the first expanded item.
	StartNumber int
}

type RunnerOptions struct {
	Store      storage.Store      `validate:"required"`
	Providers  *provider.Registry `validate:"required"`
	Normalizer Normalizer         `validate:"required"`
	TempDir    string             `validate:"required"`
	Logger     *zap.Logger
}

// Runner launches acquisition jobs. Each job runs on its own
// goroutine; item resolution inside a job is strictly sequential.
type Runner struct {
	store      storage.Store
	providers  *provider.Registry
	normalizer Normalizer
	registry   *Registry
	tempDir    string
	logger     *zap.Logger
}

func NewRunner(opts *RunnerOptions) (*Runner, error) {
	if opts == nil {
		return nil, errors.New("acquire: required runner options")
	}
	if err := validator.New().Struct(opts); err != nil {
		return nil, err
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{
		store:      opts.Store,
		providers:  opts.Providers,
		normalizer: opts.Normalizer,
		registry:   NewRegistry(),
		tempDir:    opts.TempDir,
		logger:     logger,
	}, nil
}

func (r *Runner) Registry() *Registry {
	return r.registry
}

// Shutdown stops accepting jobs and drains running ones; see
// Registry.Shutdown for the cancellation escalation.
func (r *Runner) Shutdown(ctx context.Context) {
	r.registry.Shutdown(ctx)
}

// Submit validates the job spec, registers a handle and launches the job.
// It returns before any provider work happens; from here on progress
// is observable only through the persisted track statuses.
func (r *Runner) Submit(ctx context.Context, spec JobSpec) error {
	if spec.AlbumID == "" || spec.URL == "" {
		return errors.New("acquire: required album id and url")
	}
	p, err := r.providers.Lookup(spec.Source)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	// job lifetime is detached from the triggering request
	jobCtx, cancel := context.WithCancel(context.Background())
	h, err := r.registry.add(spec.AlbumID, cancel)
	if err != nil {
		cancel()
		return err
	}

	go func() {
		defer r.registry.release(h)
		defer cancel()
		defer func() {
			// background jobs must never escape their goroutine
			if rec := recover(); rec != nil {
				r.logger.Error("acquisition job panicked",
					zap.String("album_id", spec.AlbumID),
					zap.Any("panic", rec),
				)
			}
		}()
		r.run(jobCtx, spec, p)
	}()
	return nil
}

type workItem struct {
	trackID string
	item    provider.Item
}

func (r *Runner) run(ctx context.Context, spec JobSpec, p provider.Provider) {
	log := r.logger.With(
		zap.String("album_id", spec.AlbumID),
		zap.String("url", spec.URL),
		zap.String("source", string(spec.Source)),
	)
	log.Info("acquisition started")

	items, err := p.List(ctx, spec.URL)
	if err == nil && len(items) == 0 {
		err = &provider.ExpansionError{URL: spec.URL, Err: errors.New("url expanded to no items")}
	}
	if err != nil {
		r.failInit(ctx, spec, err, log)
		return
	}

	queue, err := r.placeWork(ctx, spec, items)
	if err != nil {
		r.failInit(ctx, spec, err, log)
		return
	}
	if len(queue) == 0 {
		log.Info("acquisition finished, nothing to resolve")
		return
	}

	// Sequential resolution, in expansion order. A failed item is
	// recorded on its own track and never aborts the rest.
	for _, w := range queue {
		if !r.resolveItem(ctx, spec.AlbumID, w, p, log) {
			break
		}
	}
	log.Info("acquisition finished", zap.Int("items", len(queue)))
}

// placeWork turns expanded items into (track id, item) pairs. Normal
// jobs persist all placeholders in one batched write so readers see
// the full expansion at once; retry jobs bind the first item to the
// existing track and write nothing here.
func (r *Runner) placeWork(ctx context.Context, spec JobSpec, items []provider.Item) ([]workItem, error) {
	if spec.ReuseTrackID != "" {
		return []workItem{{trackID: spec.ReuseTrackID, item: items[0]}}, nil
	}

	album, err := r.store.GetAlbum(ctx, spec.AlbumID)
	if err != nil {
		if core.IsNotFound(err) {
			// album deleted while expanding; nothing left to do
			return nil, nil
		}
		return nil, err
	}
	if spec.ReplaceTrackID != "" && !album.RemoveTrack(spec.ReplaceTrackID) {
		return nil, errors.New("placeholder to replace is gone")
	}

	queue := make([]workItem, 0, len(items))
	num := spec.StartNumber
	for _, item := range items {
		locator := item.Locator
		track := &core.Track{
			ID:          uuid.NewString(),
			Title:       item.Title,
			TrackNumber: num,
			Status:      core.TrackStatusPending,
			SourceType:  spec.Source,
			OriginalURL: &locator,
		}
		album.Tracks = append(album.Tracks, track)
		queue = append(queue, workItem{trackID: track.ID, item: item})
		num++
	}
	if err := r.store.PutAlbum(ctx, album); err != nil {
		return nil, err
	}
	return queue, nil
}

// resolveItem runs one reload->downloading->resolve->persist cycle.
// It returns false only when the whole album is gone.
func (r *Runner) resolveItem(ctx context.Context, albumID string, w workItem, p provider.Provider, log *zap.Logger) bool {
	album, err := r.store.GetAlbum(ctx, albumID)
	if err != nil {
		if core.IsNotFound(err) {
			log.Info("album deleted mid-job, stopping")
			return false
		}
		log.Error("cant reload album", zap.Error(err))
		return false
	}

	track := album.FindTrack(w.trackID)
	if track == nil {
		// deleted by a concurrent edit: skip without error
		log.Info("track gone, skipping", zap.String("track_id", w.trackID))
		return true
	}
	if !track.Status.CanTransition(core.TrackStatusDownloading) {
		log.Warn("track not pending, skipping",
			zap.String("track_id", w.trackID),
			zap.String("status", string(track.Status)),
		)
		return true
	}

	track.Status = core.TrackStatusDownloading
	track.ErrorMsg = nil
	if err := r.store.PutAlbum(ctx, album); err != nil {
		log.Error("cant persist downloading status", zap.Error(err))
		return true
	}

	filename, resolveErr := r.resolve(ctx, p, w.item)

	// Reload before recording the outcome: the album may have been
	// edited while the item was downloading.
	album, err = r.store.GetAlbum(ctx, albumID)
	if err != nil {
		if core.IsNotFound(err) {
			log.Info("album deleted mid-job, stopping")
			return false
		}
		log.Error("cant reload album", zap.Error(err))
		return false
	}
	track = album.FindTrack(w.trackID)
	if track == nil {
		log.Info("track gone, dropping outcome", zap.String("track_id", w.trackID))
		return true
	}

	if resolveErr != nil {
		log.Warn("item failed",
			zap.String("track_id", w.trackID),
			zap.String("title", w.item.Title),
			zap.Error(resolveErr),
		)
		track.Status = core.TrackStatusError
		track.ErrorMsg = core.StringPtr(truncateMsg(resolveErr.Error()))
		track.Filename = nil
	} else {
		log.Info("item completed",
			zap.String("track_id", w.trackID),
			zap.String("title", w.item.Title),
		)
		track.Title = w.item.Title
		track.Status = core.TrackStatusCompleted
		track.Filename = core.StringPtr(filename)
		track.ErrorMsg = nil
	}

	if err := r.store.PutAlbum(ctx, album); err != nil {
		log.Error("cant persist item outcome", zap.Error(err))
	}
	return true
}

// resolve materializes one item into a scratch dir and normalizes it
// into the library. The scratch dir is removed either way.
func (r *Runner) resolve(ctx context.Context, p provider.Provider, item provider.Item) (string, error) {
	destDir := filepath.Join(r.tempDir, uuid.NewString())
	defer os.RemoveAll(destDir)

	src, err := p.Materialize(ctx, item, destDir)
	if err != nil {
		return "", err
	}
	return r.normalizer.Normalize(ctx, src)
}

// failInit handles fatal initialization: expansion failed, or the
// placeholder being replaced vanished. Best-effort mark the single
// target track as errored; with no target the job exits silently.
// Nothing may escape this path.
func (r *Runner) failInit(ctx context.Context, spec JobSpec, cause error, log *zap.Logger) {
	log.Error("acquisition init failed", zap.Error(cause))

	targetID := spec.ReplaceTrackID
	if targetID == "" {
		targetID = spec.ReuseTrackID
	}
	if targetID == "" || cause == nil {
		return
	}

	album, err := r.store.GetAlbum(ctx, spec.AlbumID)
	if err != nil {
		return
	}
	track := album.FindTrack(targetID)
	if track == nil {
		return
	}
	track.Title = "Initialization failed"
	track.Status = core.TrackStatusError
	track.ErrorMsg = core.StringPtr(truncateMsg(cause.Error()))
	track.Filename = nil
	if err := r.store.PutAlbum(ctx, album); err != nil {
		log.Error("cant persist init failure", zap.Error(err))
	}
}

func truncateMsg(msg string) string {
	if len(msg) > 256 {
		return msg[:256]
	}
	return msg
}
