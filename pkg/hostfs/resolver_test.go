package hostfs

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	dvdtest "github.com/bgrewell/dvd-kit/internal/testing"
	"github.com/bgrewell/dvd-kit/pkg/filesystem"
	"github.com/go-logr/logr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path string, data []byte) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, data, 0o644))
}

func TestResolveLayouts(t *testing.T) {
	for name, tc := range map[string]struct {
		directory string
		file      string
		want      string
	}{
		"disc root":           {directory: "VIDEO_TS", file: "VIDEO_TS.IFO", want: "VIDEO_TS/VIDEO_TS.IFO"},
		"lowercase copy":      {directory: "video_ts", file: "video_ts.ifo", want: "video_ts/video_ts.ifo"},
		"video directory":     {directory: ".", file: "VIDEO_TS.IFO", want: "VIDEO_TS.IFO"},
		"lowercase directory": {directory: ".", file: "video_ts.ifo", want: "video_ts.ifo"},
	} {
		t.Run(name, func(t *testing.T) {
			root := t.TempDir()
			require.NoError(t, dvdtest.WriteDirectory(root, dvdtest.Volume{
				Directory: tc.directory,
				Files:     []dvdtest.File{{Name: tc.file, Data: dvdtest.Pattern(3, 1)}},
			}))

			r, err := New(root, logr.Discard())
			require.NoError(t, err)
			assert.Equal(t, "directory", r.Name())
			assert.Equal(t, root, r.Root())

			loc, err := r.Resolve("/VIDEO_TS/VIDEO_TS.IFO")
			require.NoError(t, err)
			assert.Equal(t, filepath.Join(root, tc.want), loc.HostPath)
			assert.Equal(t, int64(3*2048), loc.Size)
			assert.Empty(t, loc.Extents)
		})
	}
}

func TestResolvePrecedence(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "VIDEO_TS", "VTS_01_0.IFO"), []byte("disc"))
	writeFile(t, filepath.Join(root, "video_ts", "vts_01_0.ifo"), []byte("lower"))
	writeFile(t, filepath.Join(root, "VTS_01_0.IFO"), []byte("flat"))

	r, err := New(root, logr.Discard())
	require.NoError(t, err)

	loc, err := r.Resolve("/VIDEO_TS/VTS_01_0.IFO")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "VIDEO_TS", "VTS_01_0.IFO"), loc.HostPath)

	require.NoError(t, os.Remove(loc.HostPath))
	loc, err = r.Resolve("/VIDEO_TS/VTS_01_0.IFO")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "video_ts", "vts_01_0.ifo"), loc.HostPath)
}

func TestResolveSkipsDirectories(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "VIDEO_TS", "VTS_01_1.VOB"), 0o755))
	writeFile(t, filepath.Join(root, "vts_01_1.vob"), []byte("vob"))

	r, err := New(root, logr.Discard())
	require.NoError(t, err)

	loc, err := r.Resolve("/VIDEO_TS/VTS_01_1.VOB")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "vts_01_1.vob"), loc.HostPath)
	assert.Equal(t, int64(3), loc.Size)
}

func TestResolveNotFound(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "VIDEO_TS", "VIDEO_TS.IFO"), []byte("ifo"))
	writeFile(t, filepath.Join(root, "AUDIO_TS"), []byte("not a directory"))

	r, err := New(root, logr.Discard())
	require.NoError(t, err)

	for _, p := range []string{"/VIDEO_TS/VTS_01_0.IFO", "/VIDEO_TS", "/", "/AUDIO_TS/AUDIO_TS.IFO"} {
		_, err := r.Resolve(p)
		assert.True(t, errors.Is(err, filesystem.ErrNotFound), "path %s: %v", p, err)
	}
}

func TestNewRequiresDirectory(t *testing.T) {
	root := t.TempDir()
	file := filepath.Join(root, "disc.iso")
	writeFile(t, file, []byte("iso"))

	_, err := New(file, logr.Discard())
	assert.True(t, errors.Is(err, filesystem.ErrIO))

	_, err = New(filepath.Join(root, "missing"), logr.Discard())
	assert.True(t, errors.Is(err, filesystem.ErrIO))
}
