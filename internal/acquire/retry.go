package acquire

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/yuki-appdevorg/Music-Server-SpotifySupport/internal/core"
	"github.com/yuki-appdevorg/Music-Server-SpotifySupport/internal/storage"
)

// Submitter launches acquisition jobs; satisfied by *Runner.
type Submitter interface {
	Submit(ctx context.Context, spec JobSpec) error
}

// Coordinator re-submits failed tracks as fresh acquisition jobs. All
// retry is operator-initiated; nothing here runs on a timer.
type Coordinator struct {
	store  storage.Store
	jobs   Submitter
	pacing time.Duration
	logger *zap.Logger
}

// NewCoordinator wires the retry surface. pacing is the delay inserted
// between RetryAll submissions to bound simultaneous provider load; it
// is cooperative only, not a concurrency cap.
func NewCoordinator(store storage.Store, jobs Submitter, pacing time.Duration, logger *zap.Logger) (*Coordinator, error) {
	if store == nil {
		return nil, errors.New("acquire: required store")
	}
	if jobs == nil {
		return nil, errors.New("acquire: required job submitter")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Coordinator{store: store, jobs: jobs, pacing: pacing, logger: logger}, nil
}

// RetryTrack re-submits a single failed track. A track not currently
// in error status is a strict no-op: no job launched, no state change.
// It reports whether a job was launched.
func (c *Coordinator) RetryTrack(ctx context.Context, albumID, trackID string) (bool, error) {
	const op = "acquire.Coordinator.RetryTrack"

	album, err := c.store.GetAlbum(ctx, albumID)
	if err != nil {
		return false, wrapRetryErr(err, op)
	}
	track := album.FindTrack(trackID)
	if track == nil {
		return false, core.NewNotFoundError(core.KindTrack, trackID, op)
	}
	if track.Status != core.TrackStatusError {
		return false, nil
	}
	if track.OriginalURL == nil || *track.OriginalURL == "" {
		return false, core.NewValidationError("track has no source url to retry", nil, op)
	}

	track.Status = core.TrackStatusPending
	track.ErrorMsg = nil
	if err := c.store.PutAlbum(ctx, album); err != nil {
		return false, wrapRetryErr(err, op)
	}

	spec := JobSpec{
		AlbumID:      albumID,
		URL:          *track.OriginalURL,
		Source:       track.SourceType,
		ReuseTrackID: trackID,
		StartNumber:  track.TrackNumber,
	}
	if err := c.jobs.Submit(ctx, spec); err != nil {
		return false, wrapRetryErr(err, op)
	}
	c.logger.Info("retry submitted",
		zap.String("album_id", albumID), zap.String("track_id", trackID))
	return true, nil
}

// RetryAll re-submits every error track of the album as independent
// jobs, pacing submissions by the configured delay. It returns the
// number of jobs launched.
func (c *Coordinator) RetryAll(ctx context.Context, albumID string) (int, error) {
	const op = "acquire.Coordinator.RetryAll"

	album, err := c.store.GetAlbum(ctx, albumID)
	if err != nil {
		return 0, wrapRetryErr(err, op)
	}

	ids := make([]string, 0, len(album.Tracks))
	for _, t := range album.Tracks {
		if t != nil && t.Status == core.TrackStatusError {
			ids = append(ids, t.ID)
		}
	}

	launched := 0
	for i, id := range ids {
		ok, err := c.RetryTrack(ctx, albumID, id)
		if err != nil {
			c.logger.Warn("retry failed",
				zap.String("album_id", albumID),
				zap.String("track_id", id),
				zap.Error(err),
			)
			continue
		}
		if ok {
			launched++
		}
		if i == len(ids)-1 || c.pacing <= 0 {
			continue
		}
		t := time.NewTimer(c.pacing)
		select {
		case <-t.C:
		case <-ctx.Done():
			t.Stop()
			return launched, ctx.Err()
		}
	}
	return launched, nil
}

func wrapRetryErr(err error, op string) error {
	if appErr, ok := core.AsAppError(err); ok {
		return appErr.WithOper(op)
	}
	return core.NewInternalError("retry", err, op)
}
