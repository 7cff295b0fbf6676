// Package models resolves speech model tiers to ggml files and keeps a local
// download cache of them.
package models

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/schollz/progressbar/v3"
)

const DefaultBaseURL = "https://huggingface.co/ggerganov/whisper.cpp/resolve/main"

type Tier string

const (
	Tiny   Tier = "tiny"
	Base   Tier = "base"
	Small  Tier = "small"
	Medium Tier = "medium"
	Large  Tier = "large"
)

// Tiers lists every tier from smallest to largest.
var Tiers = []Tier{Tiny, Base, Small, Medium, Large}

func ParseTier(s string) (Tier, error) {
	t := Tier(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Tiers {
		if t == known {
			return t, nil
		}
	}
	return "", fmt.Errorf("unknown model %q (want one of tiny, base, small, medium, large)", s)
}

// FileName is the ggml artifact for t. The large tier tracks v3.
func (t Tier) FileName() string {
	if t == Large {
		return "ggml-large-v3.bin"
	}
	return "ggml-" + string(t) + ".bin"
}

type Store struct {
	Dir     string
	BaseURL string
	Client  *http.Client
	// Progress receives a download bar when non-nil.
	Progress io.Writer
}

func (s Store) Path(t Tier) string {
	return filepath.Join(s.Dir, t.FileName())
}

// Cached reports whether the model file for t exists and its size.
func (s Store) Cached(t Tier) (bool, int64) {
	st, err := os.Stat(s.Path(t))
	if err != nil || !st.Mode().IsRegular() {
		return false, 0
	}
	return true, st.Size()
}

// Ensure returns the local path of t, downloading it first when missing or
// when force is set.
func (s Store) Ensure(ctx context.Context, t Tier, force bool) (path string, downloaded bool, err error) {
	path = s.Path(t)
	if ok, _ := s.Cached(t); ok && !force {
		return path, false, nil
	}
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return "", false, fmt.Errorf("model dir: %w", err)
	}
	if err := s.download(ctx, t, path); err != nil {
		return "", false, err
	}
	return path, true, nil
}

func (s Store) download(ctx context.Context, t Tier, dst string) error {
	base := strings.TrimRight(s.BaseURL, "/")
	if base == "" {
		base = DefaultBaseURL
	}
	url := base + "/" + t.FileName()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("download model: %w", err)
	}
	client := s.Client
	if client == nil {
		client = &http.Client{Timeout: 2 * time.Hour}
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("download model %s: %w", t, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download model %s: status %d", t, resp.StatusCode)
	}

	part := dst + ".part"
	f, err := os.Create(part)
	if err != nil {
		return fmt.Errorf("download model: %w", err)
	}

	var w io.Writer = f
	if s.Progress != nil {
		bar := progressbar.NewOptions64(resp.ContentLength,
			progressbar.OptionSetWriter(s.Progress),
			progressbar.OptionSetDescription("downloading "+t.FileName()),
			progressbar.OptionShowBytes(true),
			progressbar.OptionThrottle(100*time.Millisecond),
			progressbar.OptionClearOnFinish(),
		)
		defer bar.Close()
		w = io.MultiWriter(f, bar)
	}

	n, copyErr := io.Copy(w, resp.Body)
	closeErr := f.Close()
	if err := errors.Join(copyErr, closeErr); err != nil {
		_ = os.Remove(part)
		return fmt.Errorf("download model %s: %w", t, err)
	}
	if resp.ContentLength > 0 && n != resp.ContentLength {
		_ = os.Remove(part)
		return fmt.Errorf("download model %s: short body (%d of %d bytes)", t, n, resp.ContentLength)
	}
	if err := os.Rename(part, dst); err != nil {
		_ = os.Remove(part)
		return fmt.Errorf("download model: %w", err)
	}
	return nil
}
