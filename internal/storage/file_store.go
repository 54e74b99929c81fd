package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/yuki-appdevorg/Music-Server-SpotifySupport/internal/core"
)

// FileStore keeps one pretty-printed JSON document per record under
// dataDir/artists, dataDir/albums and dataDir/index.json.
type FileStore struct {
	artistsDir string
	albumsDir  string
	indexPath  string
}

func NewFileStore(dataDir string) (*FileStore, error) {
	if dataDir == "" {
		return nil, errors.New("storage: required data dir")
	}
	st := &FileStore{
		artistsDir: filepath.Join(dataDir, "artists"),
		albumsDir:  filepath.Join(dataDir, "albums"),
		indexPath:  filepath.Join(dataDir, "index.json"),
	}
	for _, dir := range []string{st.artistsDir, st.albumsDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("storage: create dir: %w", err)
		}
	}
	return st, nil
}

func (st *FileStore) Close() error {
	return nil
}

func (st *FileStore) GetArtist(ctx context.Context, id string) (*core.Artist, error) {
	const op = "storage.FileStore.GetArtist"
	artist := &core.Artist{}
	if err := readDocument(ctx, st.artistPath(id), artist); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, core.NewNotFoundError(core.KindArtist, id, op)
		}
		return nil, err
	}
	return artist, nil
}

func (st *FileStore) PutArtist(ctx context.Context, artist *core.Artist) error {
	if artist == nil || artist.ID == "" {
		return errors.New("storage: required artist with id")
	}
	return writeDocument(ctx, st.artistPath(artist.ID), artist)
}

func (st *FileStore) DeleteArtist(ctx context.Context, id string) error {
	return deleteDocument(ctx, st.artistPath(id))
}

func (st *FileStore) GetAlbum(ctx context.Context, id string) (*core.Album, error) {
	const op = "storage.FileStore.GetAlbum"
	album := &core.Album{}
	if err := readDocument(ctx, st.albumPath(id), album); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, core.NewNotFoundError(core.KindAlbum, id, op)
		}
		return nil, err
	}
	return album, nil
}

func (st *FileStore) PutAlbum(ctx context.Context, album *core.Album) error {
	if album == nil || album.ID == "" {
		return errors.New("storage: required album with id")
	}
	core.ResyncAfterEdit(album.Tracks)
	return writeDocument(ctx, st.albumPath(album.ID), album)
}

func (st *FileStore) DeleteAlbum(ctx context.Context, id string) error {
	return deleteDocument(ctx, st.albumPath(id))
}

func (st *FileStore) GetIndex(ctx context.Context) (core.Index, error) {
	idx := core.Index{}
	if err := readDocument(ctx, st.indexPath, &idx); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return core.Index{}, nil
		}
		return nil, err
	}
	return idx, nil
}

func (st *FileStore) PutIndex(ctx context.Context, idx core.Index) error {
	if idx == nil {
		idx = core.Index{}
	}
	return writeDocument(ctx, st.indexPath, idx)
}

func (st *FileStore) artistPath(id string) string {
	return filepath.Join(st.artistsDir, id+".json")
}

func (st *FileStore) albumPath(id string) string {
	return filepath.Join(st.albumsDir, id+".json")
}

// writeDocument persists v at path via write-temp-then-rename so a
// crash mid-write never leaves a partial document behind the real name.
func writeDocument(ctx context.Context, path string, v any) error {
	if path == "" {
		return errors.New("storage: required path")
	} else if err := ctx.Err(); err != nil {
		return err
	}

	tmpPath := path + ".tmp"
	f, err := os.OpenFile(tmpPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("storage: open tmp: %w", err)
	}

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		_ = f.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("storage: encode: %w", err)
	} else if err := f.Sync(); err != nil {
		_ = f.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("storage: fsync: %w", err)
	} else if err := f.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("storage: close: %w", err)
	} else if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("storage: rename tmp: %w", err)
	}
	return nil
}

func readDocument(ctx context.Context, path string, v any) error {
	if path == "" {
		return errors.New("storage: required path")
	} else if err := ctx.Err(); err != nil {
		return err
	}

	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return err
		}
		return fmt.Errorf("storage: open: %w", err)
	}
	defer f.Close()

	if err := json.NewDecoder(f).Decode(v); err != nil {
		return fmt.Errorf("storage: decode %s: %w", filepath.Base(path), err)
	}
	return nil
}

func deleteDocument(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("storage: remove: %w", err)
	}
	return nil
}
