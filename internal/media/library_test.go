package media_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/yuki-appdevorg/Music-Server-SpotifySupport/internal/media"
)

func newTestLibrary(t *testing.T) *media.Library {
	t.Helper()
	base := t.TempDir()
	lib, err := media.NewLibrary(
		filepath.Join(base, "music"),
		filepath.Join(base, "images"),
		filepath.Join(base, "temp"),
	)
	require.NoError(t, err)
	return lib
}

func TestLibrarySaveImageOpaqueName(t *testing.T) {
	t.Parallel()
	lib := newTestLibrary(t)

	name, err := lib.SaveImage(strings.NewReader("png-bytes"), "cover art.PNG")
	require.NoError(t, err)
	require.True(t, strings.HasSuffix(name, ".png"))
	require.NotContains(t, name, " ")

	data, err := os.ReadFile(filepath.Join(lib.ImagesDir(), name))
	require.NoError(t, err)
	require.Equal(t, "png-bytes", string(data))
}

func TestLibraryRejectsUnknownExtensions(t *testing.T) {
	t.Parallel()
	lib := newTestLibrary(t)

	_, err := lib.SaveImage(strings.NewReader("x"), "payload.exe")
	require.ErrorIs(t, err, media.ErrUnsupportedImage)

	_, err = lib.SaveUploadTemp(strings.NewReader("x"), "notes.txt")
	require.ErrorIs(t, err, media.ErrUnsupportedAudio)
}

func TestLibraryRemoveAudio(t *testing.T) {
	t.Parallel()
	lib := newTestLibrary(t)

	path := filepath.Join(lib.MusicDir(), "abc.mp3")
	require.NoError(t, os.WriteFile(path, []byte("mp3"), 0o644))

	require.NoError(t, lib.RemoveAudio("abc.mp3"))
	_, err := os.Stat(path)
	require.True(t, os.IsNotExist(err))

	// removing a missing or empty name is a no-op
	require.NoError(t, lib.RemoveAudio("abc.mp3"))
	require.NoError(t, lib.RemoveAudio(""))

	// path traversal is refused
	require.Error(t, lib.RemoveAudio("../abc.mp3"))
}

func TestLibrarySaveUploadTemp(t *testing.T) {
	t.Parallel()
	lib := newTestLibrary(t)

	path, err := lib.SaveUploadTemp(strings.NewReader("wav-bytes"), "demo take.WAV")
	require.NoError(t, err)
	require.Equal(t, lib.TempDir(), filepath.Dir(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "wav-bytes", string(data))
}
