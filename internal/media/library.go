package media

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// Library owns the audio and image directories. Records only ever
// reference the generated opaque filenames it hands out, never paths.
type Library struct {
	musicDir  string
	imagesDir string
	tempDir   string
}

var allowedImageExts = map[string]bool{
	".png": true, ".jpg": true, ".jpeg": true, ".gif": true, ".webp": true,
}

var allowedAudioExts = map[string]bool{
	".mp3": true, ".wav": true, ".m4a": true, ".aac": true, ".flac": true,
	".mp4": true, ".mov": true, ".webm": true, ".mkv": true,
}

var ErrUnsupportedImage = errors.New("media: unsupported image type")
var ErrUnsupportedAudio = errors.New("media: unsupported audio type")

func NewLibrary(musicDir, imagesDir, tempDir string) (*Library, error) {
	if musicDir == "" || imagesDir == "" || tempDir == "" {
		return nil, errors.New("media: required music, images and temp dirs")
	}
	for _, dir := range []string{musicDir, imagesDir, tempDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("media: create dir: %w", err)
		}
	}
	return &Library{musicDir: musicDir, imagesDir: imagesDir, tempDir: tempDir}, nil
}

func (l *Library) MusicDir() string  { return l.musicDir }
func (l *Library) ImagesDir() string { return l.imagesDir }
func (l *Library) TempDir() string   { return l.tempDir }

// SaveImage stores the image under a generated name and returns it.
func (l *Library) SaveImage(r io.Reader, originalName string) (string, error) {
	ext := strings.ToLower(filepath.Ext(originalName))
	if !allowedImageExts[ext] {
		return "", ErrUnsupportedImage
	}
	name := uuid.New().String() + ext
	if err := writeFileAtomic(filepath.Join(l.imagesDir, name), r); err != nil {
		return "", err
	}
	return name, nil
}

// SaveUploadTemp spools an uploaded audio file into the temp dir for
// transcoding. The caller removes it when done.
func (l *Library) SaveUploadTemp(r io.Reader, originalName string) (string, error) {
	ext := strings.ToLower(filepath.Ext(originalName))
	if !allowedAudioExts[ext] {
		return "", ErrUnsupportedAudio
	}
	path := filepath.Join(l.tempDir, uuid.New().String()+ext)
	if err := writeFileAtomic(path, r); err != nil {
		return "", err
	}
	return path, nil
}

// RemoveAudio deletes a track's backing audio file by opaque name.
// Missing files are not an error: the record may already be orphaned.
func (l *Library) RemoveAudio(name string) error {
	return removeByName(l.musicDir, name)
}

func (l *Library) RemoveImage(name string) error {
	return removeByName(l.imagesDir, name)
}

func removeByName(dir, name string) error {
	if name == "" {
		return nil
	}
	// opaque names never carry path separators
	if filepath.Base(name) != name {
		return fmt.Errorf("media: invalid file name %q", name)
	}
	if err := os.Remove(filepath.Join(dir, name)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("media: remove: %w", err)
	}
	return nil
}

func writeFileAtomic(path string, r io.Reader) error {
	tmpPath := path + ".tmp"
	f, err := os.OpenFile(tmpPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("media: open tmp: %w", err)
	}
	if _, err := io.Copy(f, r); err != nil {
		_ = f.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("media: copy: %w", err)
	} else if err := f.Sync(); err != nil {
		_ = f.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("media: fsync: %w", err)
	} else if err := f.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("media: close: %w", err)
	} else if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("media: rename tmp: %w", err)
	}
	return nil
}
