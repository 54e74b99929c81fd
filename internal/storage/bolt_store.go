package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/yuki-appdevorg/Music-Server-SpotifySupport/internal/core"
)

// BoltStore mirrors the file store contract over a single bbolt file.
// Bolt's per-transaction durability gives the same crash atomicity the
// file store gets from rename.
type BoltStore struct {
	db *bolt.DB
}

const (
	boltArtistsBucket = "artists"
	boltAlbumsBucket  = "albums"
	boltIndexBucket   = "index"

	boltIndexKey = "index"
)

func NewBoltStore(path string) (*BoltStore, error) {
	if path == "" {
		return nil, errors.New("storage: required bolt path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("storage: create bolt dir: %w", err)
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("storage: opening bolt: %w", err)
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		for _, name := range []string{boltArtistsBucket, boltAlbumsBucket, boltIndexBucket} {
			if _, berr := tx.CreateBucketIfNotExists([]byte(name)); berr != nil {
				return berr
			}
		}
		return nil
	}); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("storage: cant init buckets: %w", err)
	}
	return &BoltStore{db: db}, nil
}

func (s *BoltStore) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *BoltStore) GetArtist(ctx context.Context, id string) (*core.Artist, error) {
	const op = "storage.BoltStore.GetArtist"
	artist := &core.Artist{}
	ok, err := s.get(ctx, boltArtistsBucket, id, artist)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, core.NewNotFoundError(core.KindArtist, id, op)
	}
	return artist, nil
}

func (s *BoltStore) PutArtist(ctx context.Context, artist *core.Artist) error {
	if artist == nil || artist.ID == "" {
		return errors.New("storage: required artist with id")
	}
	return s.put(ctx, boltArtistsBucket, artist.ID, artist)
}

func (s *BoltStore) DeleteArtist(ctx context.Context, id string) error {
	return s.delete(ctx, boltArtistsBucket, id)
}

func (s *BoltStore) GetAlbum(ctx context.Context, id string) (*core.Album, error) {
	const op = "storage.BoltStore.GetAlbum"
	album := &core.Album{}
	ok, err := s.get(ctx, boltAlbumsBucket, id, album)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, core.NewNotFoundError(core.KindAlbum, id, op)
	}
	return album, nil
}

func (s *BoltStore) PutAlbum(ctx context.Context, album *core.Album) error {
	if album == nil || album.ID == "" {
		return errors.New("storage: required album with id")
	}
	core.ResyncAfterEdit(album.Tracks)
	return s.put(ctx, boltAlbumsBucket, album.ID, album)
}

func (s *BoltStore) DeleteAlbum(ctx context.Context, id string) error {
	return s.delete(ctx, boltAlbumsBucket, id)
}

func (s *BoltStore) GetIndex(ctx context.Context) (core.Index, error) {
	idx := core.Index{}
	ok, err := s.get(ctx, boltIndexBucket, boltIndexKey, &idx)
	if err != nil {
		return nil, err
	}
	if !ok {
		return core.Index{}, nil
	}
	return idx, nil
}

func (s *BoltStore) PutIndex(ctx context.Context, idx core.Index) error {
	if idx == nil {
		idx = core.Index{}
	}
	return s.put(ctx, boltIndexBucket, boltIndexKey, idx)
}

func (s *BoltStore) get(ctx context.Context, bucket, key string, v any) (bool, error) {
	if s.db == nil {
		return false, errors.New("storage: bolt not init")
	} else if err := ctx.Err(); err != nil {
		return false, err
	}

	found := false
	if err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucket))
		if b == nil {
			return errors.New("storage: bucket miss")
		}
		value := b.Get([]byte(key))
		if value == nil {
			return nil
		}
		if err := json.Unmarshal(value, v); err != nil {
			return fmt.Errorf("storage: cant unmarshal %s: %w", bucket, err)
		}
		found = true
		return nil
	}); err != nil {
		return false, err
	}
	return found, nil
}

func (s *BoltStore) put(ctx context.Context, bucket, key string, v any) error {
	if s.db == nil {
		return errors.New("storage: bolt not init")
	} else if err := ctx.Err(); err != nil {
		return err
	}

	p, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("storage: cant marshal %s: %w", bucket, err)
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucket))
		if b == nil {
			return errors.New("storage: bucket miss")
		}
		return b.Put([]byte(key), p)
	})
}

func (s *BoltStore) delete(ctx context.Context, bucket, key string) error {
	if s.db == nil {
		return errors.New("storage: bolt not init")
	} else if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucket))
		if b == nil {
			return errors.New("storage: bucket miss")
		}
		return b.Delete([]byte(key))
	})
}
