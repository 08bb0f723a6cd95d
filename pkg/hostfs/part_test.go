package hostfs

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/bgrewell/dvd-kit/pkg/filesystem"
	"github.com/go-logr/logr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPartReadAt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "VTS_01_1.VOB")
	writeFile(t, path, []byte("0123456789"))

	p := NewPart(filesystem.FileLocation{HostPath: path, Size: 10}, logr.Discard())
	assert.Equal(t, int64(10), p.Size())
	assert.Nil(t, p.f)

	buf := make([]byte, 4)
	n, err := p.ReadAt(buf, 6)
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	assert.Equal(t, "6789", string(buf))
	assert.NotNil(t, p.f)

	_, err = p.ReadAt(buf, 8)
	assert.True(t, errors.Is(err, filesystem.ErrIO))

	require.NoError(t, p.Close())
	require.NoError(t, p.Close())

	// Reopens after Close.
	_, err = p.ReadAt(buf, 0)
	require.NoError(t, err)
	assert.Equal(t, "0123", string(buf))
	require.NoError(t, p.Close())
}

func TestPartOpensLazily(t *testing.T) {
	path := filepath.Join(t.TempDir(), "VIDEO_TS.IFO")
	p := NewPart(filesystem.FileLocation{HostPath: path, Size: 4}, logr.Discard())

	_, err := p.ReadAt(make([]byte, 4), 0)
	assert.True(t, errors.Is(err, filesystem.ErrIO))

	writeFile(t, path, []byte("ifo!"))
	_, err = p.ReadAt(make([]byte, 4), 0)
	assert.NoError(t, err)
	require.NoError(t, p.Close())
}

func TestPartShrunk(t *testing.T) {
	path := filepath.Join(t.TempDir(), "VTS_01_0.IFO")
	writeFile(t, path, []byte("0123456789"))
	p := NewPart(filesystem.FileLocation{HostPath: path, Size: 10}, logr.Discard())
	defer p.Close()

	require.NoError(t, os.Truncate(path, 5))
	_, err := p.ReadAt(make([]byte, 4), 4)
	assert.True(t, errors.Is(err, filesystem.ErrIO))
}
