package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// URLExtractor wraps the generic media-URL extractor binary (yt-dlp).
// It is an external collaborator: this wrapper only shapes its JSON
// output into the Provider contract.
type URLExtractor struct {
	binary  string
	timeout time.Duration
	logger  *zap.Logger
}

type URLExtractorConfig struct {
	Binary  string
	Timeout time.Duration
	Logger  *zap.Logger
}

func NewURLExtractor(cfg *URLExtractorConfig) (*URLExtractor, error) {
	if cfg == nil {
		return nil, errors.New("provider: required url extractor config")
	}
	binary := cfg.Binary
	if binary == "" {
		binary = "yt-dlp"
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Minute
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &URLExtractor{binary: binary, timeout: timeout, logger: logger}, nil
}

type flatEntry struct {
	Title      string `json:"title"`
	Track      string `json:"track"`
	URL        string `json:"url"`
	WebpageURL string `json:"webpage_url"`
}

type flatPlaylist struct {
	Title      string       `json:"title"`
	Track      string       `json:"track"`
	URL        string       `json:"url"`
	WebpageURL string       `json:"webpage_url"`
	Entries    []*flatEntry `json:"entries"`
}

func (x *URLExtractor) List(ctx context.Context, url string) ([]Item, error) {
	ctx, cancel := context.WithTimeout(ctx, x.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, x.binary,
		"--flat-playlist",
		"--dump-single-json",
		"--ignore-errors",
		"--no-warnings",
		url,
	)
	out, err := cmd.Output()
	if err != nil {
		return nil, &ExpansionError{URL: url, Err: execError(err)}
	}

	items, err := parseFlatPlaylist(out)
	if err != nil {
		return nil, &ExpansionError{URL: url, Err: err}
	}
	return items, nil
}

// parseFlatPlaylist maps extractor JSON to items. With --ignore-errors
// unresolvable playlist entries come back as null and are omitted so a
// partially-failed batch still expands.
func parseFlatPlaylist(out []byte) ([]Item, error) {
	pl := flatPlaylist{}
	if err := json.Unmarshal(out, &pl); err != nil {
		return nil, fmt.Errorf("decode extractor output: %w", err)
	}

	if pl.Entries == nil {
		item, ok := singleItem(pl.Track, pl.Title, pl.URL, pl.WebpageURL)
		if !ok {
			return nil, errors.New("no resolvable media at url")
		}
		return []Item{item}, nil
	}

	items := make([]Item, 0, len(pl.Entries))
	for _, e := range pl.Entries {
		if e == nil {
			continue
		}
		if item, ok := singleItem(e.Track, e.Title, e.URL, e.WebpageURL); ok {
			items = append(items, item)
		}
	}
	return items, nil
}

func singleItem(track, title, url, webpageURL string) (Item, bool) {
	name := track
	if name == "" {
		name = title
	}
	if name == "" {
		name = "Unknown Title"
	}
	locator := url
	if locator == "" {
		locator = webpageURL
	}
	if locator == "" {
		return Item{}, false
	}
	return Item{Title: name, Locator: locator}, true
}

func (x *URLExtractor) Materialize(ctx context.Context, item Item, destDir string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, x.timeout)
	defer cancel()

	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return "", &MaterializationError{Item: item, Err: err}
	}

	base := uuid.New().String()
	cmd := exec.CommandContext(ctx, x.binary,
		"-f", "bestaudio/best",
		"--no-warnings",
		"-o", filepath.Join(destDir, base+".%(ext)s"),
		item.Locator,
	)
	if out, err := cmd.CombinedOutput(); err != nil {
		x.logger.Debug("extractor download failed",
			zap.String("locator", item.Locator),
			zap.ByteString("output", out),
		)
		return "", &MaterializationError{Item: item, Err: execError(err)}
	}

	matches, err := filepath.Glob(filepath.Join(destDir, base+".*"))
	if err != nil || len(matches) == 0 {
		return "", &MaterializationError{Item: item, Err: errors.New("extractor produced no file")}
	}
	return matches[0], nil
}

// execError surfaces stderr from a failed subprocess instead of the
// bare "exit status 1".
func execError(err error) error {
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && len(exitErr.Stderr) > 0 {
		return fmt.Errorf("%w: %s", err, lastLine(exitErr.Stderr))
	}
	return err
}

func lastLine(out []byte) string {
	lines := []byte(nil)
	start := 0
	for i, b := range out {
		if b == '\n' {
			if i > start {
				lines = out[start:i]
			}
			start = i + 1
		}
	}
	if start < len(out) {
		lines = out[start:]
	}
	return string(lines)
}
