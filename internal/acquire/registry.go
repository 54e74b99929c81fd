package acquire

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
)

var ErrRegistryClosed = errors.New("acquire: registry closed")

// Registry tracks running acquisition jobs by album id. Each job keeps
// a cancel handle here so shutdown (and future per-album cancellation)
// can reach fire-and-forget work.
type Registry struct {
	mu      sync.Mutex
	handles map[string][]*JobHandle

	closed atomic.Bool
	wg     sync.WaitGroup
}

type JobHandle struct {
	AlbumID string
	cancel  context.CancelFunc
}

func NewRegistry() *Registry {
	return &Registry{handles: make(map[string][]*JobHandle)}
}

// add registers a new job and reserves a WaitGroup slot. The caller
// must release the handle when the job goroutine exits.
func (r *Registry) add(albumID string, cancel context.CancelFunc) (*JobHandle, error) {
	if r.closed.Load() {
		return nil, ErrRegistryClosed
	}
	h := &JobHandle{AlbumID: albumID, cancel: cancel}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed.Load() {
		return nil, ErrRegistryClosed
	}
	r.handles[albumID] = append(r.handles[albumID], h)
	r.wg.Add(1)
	return h, nil
}

func (r *Registry) release(h *JobHandle) {
	r.mu.Lock()
	hs := r.handles[h.AlbumID]
	for i, have := range hs {
		if have == h {
			hs = append(hs[:i], hs[i+1:]...)
			break
		}
	}
	if len(hs) == 0 {
		delete(r.handles, h.AlbumID)
	} else {
		r.handles[h.AlbumID] = hs
	}
	r.mu.Unlock()
	r.wg.Done()
}

// Active returns the number of running jobs for an album.
func (r *Registry) Active(albumID string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.handles[albumID])
}

// CancelAlbum cancels every running job bound to albumID and returns
// how many were signalled. The jobs still drain through their own
// persist paths before exiting.
func (r *Registry) CancelAlbum(albumID string) int {
	r.mu.Lock()
	hs := append([]*JobHandle(nil), r.handles[albumID]...)
	r.mu.Unlock()
	for _, h := range hs {
		h.cancel()
	}
	return len(hs)
}

// Shutdown stops accepting new jobs and waits for running ones. When
// ctx expires first, remaining jobs are cancelled and then awaited.
func (r *Registry) Shutdown(ctx context.Context) {
	r.closed.Store(true)

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return
	case <-ctx.Done():
	}

	r.mu.Lock()
	for _, hs := range r.handles {
		for _, h := range hs {
			h.cancel()
		}
	}
	r.mu.Unlock()
	<-done
}
