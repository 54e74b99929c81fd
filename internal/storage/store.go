package storage

import (
	"context"

	"github.com/yuki-appdevorg/Music-Server-SpotifySupport/internal/core"
)

// Store is whole-record persistence for the catalog: one document per
// artist, one per album, plus the singleton index collection.
//
// Put is atomic create-or-replace of the whole record and MUST never
// expose a partial write to a subsequent Get, even across a process
// crash. There is intentionally no locking between Get and Put:
// read-modify-write callers accept last-writer-wins races.
//
// PutAlbum re-sorts tracks by track_number (stable) before persisting,
// so the on-disk collection always satisfies the ordering invariant.
type Store interface {
	GetArtist(ctx context.Context, id string) (*core.Artist, error)
	PutArtist(ctx context.Context, artist *core.Artist) error
	DeleteArtist(ctx context.Context, id string) error

	GetAlbum(ctx context.Context, id string) (*core.Album, error)
	PutAlbum(ctx context.Context, album *core.Album) error
	DeleteAlbum(ctx context.Context, id string) error

	// GetIndex returns an empty index when none was written yet.
	GetIndex(ctx context.Context) (core.Index, error)
	PutIndex(ctx context.Context, idx core.Index) error

	Close() error
}
