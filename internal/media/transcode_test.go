package media_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/yuki-appdevorg/Music-Server-SpotifySupport/internal/media"
)

// writeStubFFmpeg creates a shell script standing in for ffmpeg. The
// real binary is never invoked in tests.
func writeStubFFmpeg(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ffmpeg-stub")
	script := "#!/bin/sh\n" + body + "\n"
	require.NoError(t, os.WriteFile(path, []byte(script), 0o755))
	return path
}

func TestTranscoderNormalizeSuccess(t *testing.T) {
	t.Parallel()
	outDir := t.TempDir()

	// stub copies the input (arg 3) to the output (last arg)
	stub := writeStubFFmpeg(t, `in="$3"
for out do :; done
cp "$in" "$out"`)

	tr, err := media.NewTranscoder(&media.TranscoderConfig{
		FFmpegPath: stub,
		Bitrate:    "320k",
		OutDir:     outDir,
	})
	require.NoError(t, err)

	src := filepath.Join(t.TempDir(), "input.wav")
	require.NoError(t, os.WriteFile(src, []byte("pcm-ish"), 0o644))

	name, err := tr.Normalize(context.Background(), src)
	require.NoError(t, err)
	require.True(t, strings.HasSuffix(name, ".mp3"))
	require.NotContains(t, name, string(os.PathSeparator))

	data, err := os.ReadFile(filepath.Join(outDir, name))
	require.NoError(t, err)
	require.Equal(t, "pcm-ish", string(data))
}

func TestTranscoderFailureLeavesNoPartialOutput(t *testing.T) {
	t.Parallel()
	outDir := t.TempDir()

	// stub writes garbage to the output, then fails
	stub := writeStubFFmpeg(t, `for out do :; done
echo garbage > "$out"
echo "Invalid data found when processing input" >&2
exit 1`)

	tr, err := media.NewTranscoder(&media.TranscoderConfig{
		FFmpegPath: stub,
		OutDir:     outDir,
	})
	require.NoError(t, err)

	src := filepath.Join(t.TempDir(), "broken.mp4")
	require.NoError(t, os.WriteFile(src, []byte("not a video"), 0o644))

	_, err = tr.Normalize(context.Background(), src)
	require.Error(t, err)

	var tErr *media.TranscodeError
	require.ErrorAs(t, err, &tErr)
	require.Contains(t, tErr.Error(), "Invalid data")

	entries, err := os.ReadDir(outDir)
	require.NoError(t, err)
	require.Empty(t, entries)
}

func TestTranscoderMissingSource(t *testing.T) {
	t.Parallel()

	tr, err := media.NewTranscoder(&media.TranscoderConfig{OutDir: t.TempDir()})
	require.NoError(t, err)

	_, err = tr.Normalize(context.Background(), filepath.Join(t.TempDir(), "nope.wav"))
	var tErr *media.TranscodeError
	require.ErrorAs(t, err, &tErr)
}
