// Package multipart stitches the parts of a title VOB set into one block addressed stream.
package multipart

import (
	"errors"
	"fmt"
	"io"

	"github.com/bgrewell/dvd-kit/pkg/filesystem"
	"github.com/hashicorp/go-multierror"
)

// Part is one constituent file of a multi-part stream.
type Part interface {
	io.ReaderAt
	Size() int64
}

// File presents parts as one stream. Every part starts on an align boundary; the bytes between the end of a
// part and the next boundary read as zeros.
type File struct {
	parts  []Part
	sizes  []int64
	starts []int64
	align  int64
	end    int64
}

// New returns a File over parts, in order. align must be positive.
func New(align int64, parts ...Part) *File {
	f := &File{parts: parts, align: align}
	var offset int64
	for _, p := range parts {
		size := p.Size()
		f.starts = append(f.starts, offset)
		f.sizes = append(f.sizes, size)
		offset += f.alignUp(size)
	}
	f.end = offset
	return f
}

func (f *File) alignUp(n int64) int64 {
	return (n + f.align - 1) / f.align * f.align
}

// Parts returns the number of parts.
func (f *File) Parts() int {
	return len(f.parts)
}

// Size returns the summed size of the parts without padding.
func (f *File) Size() int64 {
	var size int64
	for _, s := range f.sizes {
		size += s
	}
	return size
}

// Len returns the byte length of the stream: the padded parts followed by the last part's data.
func (f *File) Len() int64 {
	if len(f.parts) == 0 {
		return 0
	}
	last := len(f.parts) - 1
	return f.starts[last] + f.sizes[last]
}

// Blocks returns the number of align sized blocks in the stream, the last part's padding included.
func (f *File) Blocks() int64 {
	return f.end / f.align
}

// ReadAt fills p from stream offset off, which together with len(p) must stay within Blocks()*align. The read
// succeeds or fails as a whole: on error p is zeroed and 0 is returned.
func (f *File) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 || off+int64(len(p)) > f.end {
		return 0, fmt.Errorf("%w: read of %d bytes at %d beyond %d", filesystem.ErrIO, len(p), off, f.end)
	}
	hi := off + int64(len(p))
	for i, part := range f.parts {
		start := f.starts[i]
		slotEnd := start + f.alignUp(f.sizes[i])
		from, to := max(off, start), min(hi, slotEnd)
		if from >= to {
			continue
		}
		dst := p[from-off : to-off]
		data := max(min(to, start+f.sizes[i])-from, 0)
		if data > 0 {
			n, err := part.ReadAt(dst[:data], from-start)
			if err != nil && !(errors.Is(err, io.EOF) && int64(n) == data) {
				clear(p)
				return 0, partError(i, err)
			}
		}
		clear(dst[data:])
	}
	return len(p), nil
}

func partError(i int, err error) error {
	if errors.Is(err, filesystem.ErrIO) || errors.Is(err, filesystem.ErrPrecondition) {
		return fmt.Errorf("part %d: %w", i+1, err)
	}
	return fmt.Errorf("%w: part %d: %w", filesystem.ErrIO, i+1, err)
}

// Close closes every part that implements io.Closer.
func (f *File) Close() error {
	var result *multierror.Error
	for i, p := range f.parts {
		c, ok := p.(io.Closer)
		if !ok {
			continue
		}
		if err := c.Close(); err != nil {
			result = multierror.Append(result, fmt.Errorf("part %d: %w", i+1, err))
		}
	}
	return result.ErrorOrNil()
}
