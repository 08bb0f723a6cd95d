package pkg

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/bgrewell/dvd-kit/pkg/filesystem"
	"github.com/bgrewell/dvd-kit/pkg/options"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTitles(t *testing.T) {
	for _, backing := range backings {
		t.Run(backing, func(t *testing.T) {
			r := openVolume(t, backing, sampleVolume())
			titles, err := r.Titles()
			require.NoError(t, err)
			assert.Equal(t, []int{0, 1, 2}, titles)
		})
	}
}

func TestExtract(t *testing.T) {
	vol := sampleVolume()
	for _, backing := range backings {
		t.Run(backing, func(t *testing.T) {
			type progress struct {
				name        string
				done, total int64
				number, all int
			}
			var calls []progress
			r := openVolume(t, backing, vol, options.WithProgress(func(name string, done, total int64, number, all int) {
				calls = append(calls, progress{name, done, total, number, all})
			}))

			out := t.TempDir()
			require.NoError(t, r.Extract(out))

			for _, f := range vol.Files {
				data, err := os.ReadFile(filepath.Join(out, "VIDEO_TS", f.Name))
				require.NoError(t, err, f.Name)
				assert.Equal(t, f.Data, data, f.Name)
			}
			entries, err := os.ReadDir(filepath.Join(out, "VIDEO_TS"))
			require.NoError(t, err)
			assert.Len(t, entries, len(vol.Files))

			require.NotEmpty(t, calls)
			first, last := calls[0], calls[len(calls)-1]
			assert.Equal(t, "VIDEO_TS.IFO", first.name)
			assert.Equal(t, 1, first.number)
			assert.Equal(t, "VTS_02_1.VOB", last.name)
			assert.Equal(t, last.total, last.done)
			assert.Equal(t, len(vol.Files), last.number)
			assert.Equal(t, len(vol.Files), last.all)
		})
	}
}

func TestExtractSelectedTitles(t *testing.T) {
	r := openVolume(t, "udf", sampleVolume())
	out := t.TempDir()
	require.NoError(t, r.Extract(out, 2))

	entries, err := os.ReadDir(filepath.Join(out, "VIDEO_TS"))
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	assert.Equal(t, []string{"VTS_02_0.IFO", "VTS_02_1.VOB"}, names)

	err = r.Extract(t.TempDir(), 7)
	assert.True(t, errors.Is(err, filesystem.ErrNotFound))
}

func TestExtractClosedVolume(t *testing.T) {
	r := openVolume(t, "directory", sampleVolume())
	require.NoError(t, r.Close())
	err := r.Extract(t.TempDir())
	assert.True(t, errors.Is(err, filesystem.ErrPrecondition))
}
