package blocksource

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/bgrewell/dvd-kit/pkg/consts"
	"github.com/bgrewell/dvd-kit/pkg/filesystem"
	"github.com/go-logr/logr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// blockImage returns n blocks where every byte of block i equals byte(i).
func blockImage(n int) []byte {
	data := make([]byte, n*consts.DVD_VIDEO_LB_LEN)
	for i := 0; i < n; i++ {
		for j := 0; j < consts.DVD_VIDEO_LB_LEN; j++ {
			data[i*consts.DVD_VIDEO_LB_LEN+j] = byte(i)
		}
	}
	return data
}

func TestReadBlocks(t *testing.T) {
	data := blockImage(8)
	src := New(bytes.NewReader(data), int64(len(data)))
	assert.Equal(t, uint32(8), src.Blocks())

	got, err := src.ReadBlocks(2, 3)
	require.NoError(t, err)
	assert.Equal(t, data[2*2048:5*2048], got)

	got, err = src.ReadBlocks(7, 0)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestReadBlocksPastEnd(t *testing.T) {
	data := blockImage(4)
	src := New(bytes.NewReader(data), int64(len(data)))

	_, err := src.ReadBlocks(3, 2)
	assert.True(t, errors.Is(err, filesystem.ErrIO))

	_, err = src.ReadBlocks(0xFFFFFFFF, 2)
	assert.True(t, errors.Is(err, filesystem.ErrIO))

	// Rejected without allocating count blocks.
	_, err = src.ReadBlocks(0, 0xFFFFFFFF)
	assert.True(t, errors.Is(err, filesystem.ErrIO))
}

func TestReadBlocksPartialTail(t *testing.T) {
	data := append(blockImage(1), 0xAA, 0xBB)
	src := New(bytes.NewReader(data), int64(len(data)))
	require.Equal(t, uint32(2), src.Blocks())

	got, err := src.ReadBlocks(1, 1)
	require.NoError(t, err)
	assert.Equal(t, []byte{0xAA, 0xBB}, got[:2])
	assert.Equal(t, make([]byte, 2046), got[2:])
}

type failingReader struct{}

func (failingReader) ReadAt(p []byte, off int64) (int, error) {
	return 0, errors.New("medium error")
}

func TestReadBlocksDeviceError(t *testing.T) {
	src := New(failingReader{}, 10*consts.DVD_VIDEO_LB_LEN)
	_, err := src.ReadBlocks(0, 1)
	assert.True(t, errors.Is(err, filesystem.ErrIO))
	assert.ErrorContains(t, err, "medium error")
}

func TestOpenImageFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "disc.iso")
	data := blockImage(3)
	require.NoError(t, os.WriteFile(path, data, 0o644))

	src, err := Open(path, logr.Discard())
	require.NoError(t, err)
	assert.False(t, src.Device())
	assert.Equal(t, int64(len(data)), src.Size())

	got, err := src.ReadBlocks(1, 2)
	require.NoError(t, err)
	assert.Equal(t, data[2048:], got)

	require.NoError(t, src.Close())
	require.NoError(t, src.Close())

	_, err = src.ReadBlocks(0, 1)
	assert.True(t, errors.Is(err, filesystem.ErrPrecondition))
}

func TestOpenMissing(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "missing.iso"), logr.Discard())
	assert.True(t, errors.Is(err, filesystem.ErrIO))
}

func TestExtentReader(t *testing.T) {
	data := blockImage(16)
	src := New(bytes.NewReader(data), int64(len(data)))
	loc := filesystem.FileLocation{
		Size: 3*2048 + 100,
		Extents: []filesystem.Extent{
			{Block: 10, Length: 2 * 2048},
			{Block: 4, Length: 2048 + 100},
		},
	}
	r := NewExtentReader(src, loc)
	assert.Equal(t, loc.Size, r.Size())

	buf := make([]byte, 2048)
	n, err := r.ReadAt(buf, 2048+1024)
	require.NoError(t, err)
	assert.Equal(t, 2048, n)
	assert.Equal(t, bytes.Repeat([]byte{11}, 1024), buf[:1024])
	assert.Equal(t, bytes.Repeat([]byte{4}, 1024), buf[1024:])

	n, err = r.ReadAt(buf, 3*2048)
	assert.Equal(t, io.EOF, err)
	assert.Equal(t, 100, n)
	assert.Equal(t, bytes.Repeat([]byte{5}, 100), buf[:100])

	_, err = r.ReadAt(buf, loc.Size)
	assert.Equal(t, io.EOF, err)
}

func TestExtentReaderShortExtents(t *testing.T) {
	data := blockImage(4)
	src := New(bytes.NewReader(data), int64(len(data)))
	r := NewExtentReader(src, filesystem.FileLocation{
		Size:    4096,
		Extents: []filesystem.Extent{{Block: 0, Length: 2048}},
	})
	_, err := r.ReadAt(make([]byte, 4096), 0)
	assert.True(t, errors.Is(err, filesystem.ErrCorruptVolume))
}
