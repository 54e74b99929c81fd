package provider

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"go.uber.org/zap"
)

// MetaSearcher wraps the streaming-metadata search CLI (spotdl-style).
// `<binary> search --json <url>` prints one JSON object per matched
// song; `<binary> fetch --output <dir> <locator>` downloads one song
// and prints the resulting file path on its last stdout line.
type MetaSearcher struct {
	binary  string
	timeout time.Duration
	logger  *zap.Logger
}

type MetaSearcherConfig struct {
	Binary  string
	Timeout time.Duration
	Logger  *zap.Logger
}

func NewMetaSearcher(cfg *MetaSearcherConfig) (*MetaSearcher, error) {
	if cfg == nil {
		return nil, errors.New("provider: required meta searcher config")
	}
	if cfg.Binary == "" {
		return nil, errors.New("provider: required meta searcher binary")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Minute
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MetaSearcher{binary: cfg.Binary, timeout: timeout, logger: logger}, nil
}

type searchHit struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

func (m *MetaSearcher) List(ctx context.Context, url string) ([]Item, error) {
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, m.binary, "search", "--json", url)
	out, err := cmd.Output()
	if err != nil {
		return nil, &ExpansionError{URL: url, Err: execError(err)}
	}

	items := make([]Item, 0, 8)
	sc := bufio.NewScanner(bytes.NewReader(out))
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		line := bytes.TrimSpace(sc.Bytes())
		if len(line) == 0 {
			continue
		}
		hit := searchHit{}
		if err := json.Unmarshal(line, &hit); err != nil {
			// tolerate progress noise on stdout
			m.logger.Debug("skipping non-json search line", zap.ByteString("line", line))
			continue
		}
		if hit.URL == "" {
			continue
		}
		name := hit.Name
		if name == "" {
			name = "Unknown Title"
		}
		items = append(items, Item{Title: name, Locator: hit.URL})
	}
	if err := sc.Err(); err != nil {
		return nil, &ExpansionError{URL: url, Err: err}
	}
	return items, nil
}

func (m *MetaSearcher) Materialize(ctx context.Context, item Item, destDir string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return "", &MaterializationError{Item: item, Err: err}
	}

	cmd := exec.CommandContext(ctx, m.binary, "fetch", "--output", destDir, item.Locator)
	out, err := cmd.Output()
	if err != nil {
		return "", &MaterializationError{Item: item, Err: execError(err)}
	}

	path := lastNonEmptyLine(out)
	if path == "" {
		return "", &MaterializationError{Item: item, Err: errors.New("searcher printed no file path")}
	}
	if _, err := os.Stat(path); err != nil {
		return "", &MaterializationError{Item: item, Err: fmt.Errorf("reported file missing: %w", err)}
	}
	return path, nil
}

func lastNonEmptyLine(out []byte) string {
	lines := strings.Split(string(out), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if s := strings.TrimSpace(lines[i]); s != "" {
			return s
		}
	}
	return ""
}
