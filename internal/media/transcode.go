package media

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// TranscodeError wraps a failed normalization attempt. The subprocess
// stderr tail is included because ffmpeg puts the actual reason there.
type TranscodeError struct {
	Src    string
	Err    error
	Output string
}

func (e *TranscodeError) Error() string {
	if e.Output != "" {
		return fmt.Sprintf("transcode %s: %v: %s", filepath.Base(e.Src), e.Err, e.Output)
	}
	return fmt.Sprintf("transcode %s: %v", filepath.Base(e.Src), e.Err)
}

func (e *TranscodeError) Unwrap() error { return e.Err }

type TranscoderConfig struct {
	FFmpegPath string
	// Bitrate is the fixed target, e.g. "320k".
	Bitrate string
	// OutDir is where normalized files land under opaque names.
	OutDir string
}

// Transcoder normalizes any supported audio/video input to mp3 at a
// fixed bitrate via the external ffmpeg process.
type Transcoder struct {
	ffmpeg  string
	bitrate string
	outDir  string
}

func NewTranscoder(cfg *TranscoderConfig) (*Transcoder, error) {
	if cfg == nil {
		return nil, errors.New("media: required transcoder config")
	}
	if cfg.OutDir == "" {
		return nil, errors.New("media: required output dir")
	}
	ffmpeg := cfg.FFmpegPath
	if ffmpeg == "" {
		ffmpeg = "ffmpeg"
	}
	bitrate := cfg.Bitrate
	if bitrate == "" {
		bitrate = "320k"
	}
	return &Transcoder{ffmpeg: ffmpeg, bitrate: bitrate, outDir: cfg.OutDir}, nil
}

// Normalize transcodes src and returns the opaque output filename.
// The output is written under a temp name and renamed only on success,
// so a failed run never leaves a partial file under the final name.
func (t *Transcoder) Normalize(ctx context.Context, src string) (string, error) {
	if src == "" {
		return "", &TranscodeError{Src: src, Err: errors.New("empty source path")}
	}
	if _, err := os.Stat(src); err != nil {
		return "", &TranscodeError{Src: src, Err: err}
	}

	name := uuid.New().String() + ".mp3"
	finalPath := filepath.Join(t.outDir, name)
	tmpPath := finalPath + ".part.mp3"

	cmd := exec.CommandContext(ctx, t.ffmpeg,
		"-y",
		"-i", src,
		"-b:a", t.bitrate,
		"-map", "a",
		"-f", "mp3",
		tmpPath,
	)
	out, err := cmd.CombinedOutput()
	if err != nil {
		_ = os.Remove(tmpPath)
		return "", &TranscodeError{Src: src, Err: err, Output: tailLines(out, 3)}
	}
	if err := os.Rename(tmpPath, finalPath); err != nil {
		_ = os.Remove(tmpPath)
		return "", &TranscodeError{Src: src, Err: err}
	}
	return name, nil
}

// tailLines keeps the last n non-empty lines of subprocess output.
func tailLines(out []byte, n int) string {
	lines := strings.Split(strings.TrimSpace(string(out)), "\n")
	kept := make([]string, 0, n)
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		kept = append(kept, strings.TrimSpace(line))
	}
	if len(kept) > n {
		kept = kept[len(kept)-n:]
	}
	return strings.Join(kept, " | ")
}
