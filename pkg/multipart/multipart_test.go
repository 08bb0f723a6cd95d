package multipart

import (
	"bytes"
	"errors"
	"testing"

	"github.com/bgrewell/dvd-kit/pkg/filesystem"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memPart struct {
	*bytes.Reader
	closed   int
	closeErr error
	failAt   int64
}

func newPart(data []byte) *memPart {
	return &memPart{Reader: bytes.NewReader(data), failAt: -1}
}

func (m *memPart) ReadAt(p []byte, off int64) (int, error) {
	if m.failAt >= 0 && off+int64(len(p)) > m.failAt {
		return 0, errors.New("medium error")
	}
	return m.Reader.ReadAt(p, off)
}

func (m *memPart) Close() error {
	m.closed++
	return m.closeErr
}

func fill(n int, b byte) []byte {
	return bytes.Repeat([]byte{b}, n)
}

func TestLayout(t *testing.T) {
	f := New(16, newPart(fill(32, 'a')), newPart(fill(20, 'b')), newPart(fill(5, 'c')))
	assert.Equal(t, 3, f.Parts())
	assert.Equal(t, int64(57), f.Size())
	assert.Equal(t, int64(32+32+5), f.Len())
	assert.Equal(t, int64(5), f.Blocks())

	empty := New(16)
	assert.Equal(t, int64(0), empty.Len())
	assert.Equal(t, int64(0), empty.Blocks())
}

func TestReadAcrossParts(t *testing.T) {
	f := New(16, newPart(fill(32, 'a')), newPart(fill(20, 'b')), newPart(fill(5, 'c')))

	buf := make([]byte, 80)
	n, err := f.ReadAt(buf, 0)
	require.NoError(t, err)
	assert.Equal(t, 80, n)

	var want []byte
	want = append(want, fill(32, 'a')...)
	want = append(want, fill(20, 'b')...)
	want = append(want, make([]byte, 12)...)
	want = append(want, fill(5, 'c')...)
	want = append(want, make([]byte, 11)...)
	assert.Equal(t, want, buf)

	// A read spanning the end of one part and the start of the next equals the two per-part reads.
	span := make([]byte, 24)
	_, err = f.ReadAt(span, 24)
	require.NoError(t, err)
	assert.Equal(t, want[24:48], span)
}

func TestReadBeyondEnd(t *testing.T) {
	f := New(16, newPart(fill(20, 'a')))
	_, err := f.ReadAt(make([]byte, 16), 24)
	assert.True(t, errors.Is(err, filesystem.ErrIO))

	_, err = f.ReadAt(make([]byte, 1), -1)
	assert.True(t, errors.Is(err, filesystem.ErrIO))

	n, err := f.ReadAt(make([]byte, 12), 20)
	require.NoError(t, err)
	assert.Equal(t, 12, n)
}

func TestReadAllOrNothing(t *testing.T) {
	bad := newPart(fill(16, 'b'))
	bad.failAt = 8
	f := New(16, newPart(fill(16, 'a')), bad)

	buf := fill(32, 'x')
	n, err := f.ReadAt(buf, 0)
	assert.Equal(t, 0, n)
	assert.True(t, errors.Is(err, filesystem.ErrIO))
	assert.Equal(t, make([]byte, 32), buf)

	// Ranges that avoid the failing bytes still read.
	_, err = f.ReadAt(make([]byte, 24), 0)
	assert.NoError(t, err)
}

func TestClose(t *testing.T) {
	a, b, c := newPart(fill(4, 'a')), newPart(fill(4, 'b')), newPart(fill(4, 'c'))
	b.closeErr = errors.New("busy")
	c.closeErr = errors.New("gone")

	f := New(16, a, b, c, plainPart{bytes.NewReader(nil)})
	err := f.Close()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "part 2: busy")
	assert.Contains(t, err.Error(), "part 3: gone")
	assert.Equal(t, 1, a.closed)
	assert.Equal(t, 1, b.closed)
	assert.Equal(t, 1, c.closed)

	assert.NoError(t, New(16, newPart(nil)).Close())
}

type plainPart struct {
	*bytes.Reader
}
