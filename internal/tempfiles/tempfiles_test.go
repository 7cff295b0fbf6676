package tempfiles

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func touch(t *testing.T, path string) string {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
	return path
}

func TestPath(t *testing.T) {
	tests := []struct {
		src, label, ext, want string
	}{
		{"/rec/show.ts", "segment_0", ".ts", "/rec/show_segment_0_subcut_tmp.ts"},
		{"/rec/show.mkv", "", ".wav", "/rec/show_subcut_tmp.wav"},
		{"show.mp4", "concat", ".mp4", "show_concat_subcut_tmp.mp4"},
		{"dir.v2/show", "filelist", ".txt", "dir.v2/show_filelist_subcut_tmp.txt"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, Path(tt.src, tt.label, tt.ext))
		})
	}
}

func TestManifest_CleanupRemovesTracked(t *testing.T) {
	dir := t.TempDir()
	m := New(zerolog.Nop(), false)
	a := m.Track(touch(t, filepath.Join(dir, "a"+Tag+".ts")))
	b := m.Track(touch(t, filepath.Join(dir, "b"+Tag+".ts")))
	m.Track(filepath.Join(dir, "never-created"+Tag+".ts"))
	m.Track(a)
	out := touch(t, filepath.Join(dir, "final.ts"))
	m.Track(out)
	m.Promote(out)

	assert.Len(t, m.Paths(), 3)
	m.Cleanup()

	assert.NoFileExists(t, a)
	assert.NoFileExists(t, b)
	assert.FileExists(t, out)
	assert.Empty(t, m.Paths())
}

func TestManifest_Release(t *testing.T) {
	dir := t.TempDir()
	m := New(zerolog.Nop(), false)
	p := m.Track(touch(t, filepath.Join(dir, "demux"+Tag+".mp4")))
	m.Release(p)
	assert.NoFileExists(t, p)
	assert.Empty(t, m.Paths())
}

func TestManifest_Keep(t *testing.T) {
	dir := t.TempDir()
	m := New(zerolog.Nop(), true)
	p := m.Track(touch(t, filepath.Join(dir, "seg"+Tag+".ts")))
	m.Release(p)
	m.Cleanup()
	assert.FileExists(t, p)
}

func TestSweep(t *testing.T) {
	dir := t.TempDir()
	stale := touch(t, filepath.Join(dir, "show_segment_3"+Tag+".ts"))
	keep := touch(t, filepath.Join(dir, "show.ts"))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "nested"+Tag), 0o755))

	removed, err := Sweep(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{stale}, removed)
	assert.FileExists(t, keep)
	assert.DirExists(t, filepath.Join(dir, "nested"+Tag))
}
