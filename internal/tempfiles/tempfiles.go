// Package tempfiles names and tracks the intermediate files of a run.
package tempfiles

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
)

// Tag marks every intermediate file name.
const Tag = "_subcut_tmp"

// Base strips the extension from src, keeping its directory.
func Base(src string) string {
	return strings.TrimSuffix(src, filepath.Ext(src))
}

// Path names an intermediate next to src: <base>_<label>_subcut_tmp<ext>, or
// <base>_subcut_tmp<ext> when label is empty.
func Path(src, label, ext string) string {
	b := Base(src)
	if label != "" {
		b += "_" + label
	}
	return b + Tag + ext
}

// Manifest records the intermediates created by one run so they can be removed
// at the end of it regardless of outcome.
type Manifest struct {
	paths []string
	keep  bool
	log   zerolog.Logger
}

// New returns an empty manifest. With keep set, Cleanup leaves files on disk.
func New(log zerolog.Logger, keep bool) *Manifest {
	return &Manifest{keep: keep, log: log}
}

// Track registers path and returns it.
func (m *Manifest) Track(path string) string {
	for _, p := range m.paths {
		if p == path {
			return path
		}
	}
	m.paths = append(m.paths, path)
	return path
}

// Release removes path now and forgets it.
func (m *Manifest) Release(path string) {
	m.forget(path)
	if m.keep {
		return
	}
	m.remove(path)
}

// Promote forgets path without deleting it; the file becomes a deliverable.
func (m *Manifest) Promote(path string) {
	m.forget(path)
}

// Paths returns the tracked files in creation order.
func (m *Manifest) Paths() []string {
	return append([]string(nil), m.paths...)
}

// Cleanup removes every tracked file, newest first. Failures are logged.
func (m *Manifest) Cleanup() {
	if m.keep {
		if len(m.paths) > 0 {
			m.log.Info().Int("files", len(m.paths)).Msg("keeping intermediate files")
		}
		m.paths = nil
		return
	}
	for i := len(m.paths) - 1; i >= 0; i-- {
		m.remove(m.paths[i])
	}
	m.paths = nil
}

func (m *Manifest) forget(path string) {
	for i, p := range m.paths {
		if p == path {
			m.paths = append(m.paths[:i], m.paths[i+1:]...)
			return
		}
	}
}

func (m *Manifest) remove(path string) {
	err := os.Remove(path)
	switch {
	case err == nil:
		m.log.Debug().Str("path", path).Msg("removed intermediate")
	case errors.Is(err, fs.ErrNotExist):
	default:
		m.log.Warn().Err(err).Str("path", path).Msg("remove intermediate")
	}
}

// Sweep deletes every regular file directly under dir whose name carries Tag,
// for debris left behind by runs that were killed. It returns the removed
// paths.
func Sweep(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var (
		removed []string
		errs    []error
	)
	for _, e := range entries {
		if !e.Type().IsRegular() || !strings.Contains(e.Name(), Tag) {
			continue
		}
		p := filepath.Join(dir, e.Name())
		if err := os.Remove(p); err != nil {
			errs = append(errs, err)
			continue
		}
		removed = append(removed, p)
	}
	return removed, errors.Join(errs...)
}
