package blocksource

import (
	"fmt"
	"io"

	"github.com/bgrewell/dvd-kit/pkg/consts"
	"github.com/bgrewell/dvd-kit/pkg/filesystem"
)

// ExtentReader exposes the extents of a FileLocation as one contiguous io.ReaderAt.
type ExtentReader struct {
	src     BlockSource
	extents []filesystem.Extent
	size    int64
}

// NewExtentReader returns a reader over the extents of loc on src.
func NewExtentReader(src BlockSource, loc filesystem.FileLocation) *ExtentReader {
	return &ExtentReader{src: src, extents: loc.Extents, size: loc.Size}
}

// Size returns the byte size of the file.
func (r *ExtentReader) Size() int64 {
	return r.size
}

// ReadAt reads len(p) bytes at byte offset off of the file. Reads that run past the end of the file return
// the available bytes and io.EOF.
func (r *ExtentReader) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 {
		return 0, fmt.Errorf("%w: negative offset %d", filesystem.ErrIO, off)
	}
	if off >= r.size {
		return 0, io.EOF
	}
	want := p
	if remaining := r.size - off; int64(len(want)) > remaining {
		want = want[:remaining]
	}

	n := 0
	var base int64
	for _, e := range r.extents {
		if n == len(want) {
			break
		}
		end := base + int64(e.Length)
		pos := off + int64(n)
		if pos >= end {
			base = end
			continue
		}

		within := pos - base
		firstBlock := uint32(within / consts.DVD_VIDEO_LB_LEN)
		skip := within % consts.DVD_VIDEO_LB_LEN
		chunk := int64(len(want) - n)
		if chunk > end-pos {
			chunk = end - pos
		}
		blocks := uint32((skip + chunk + consts.DVD_VIDEO_LB_LEN - 1) / consts.DVD_VIDEO_LB_LEN)

		data, err := r.src.ReadBlocks(e.Block+firstBlock, blocks)
		if err != nil {
			return n, err
		}
		n += copy(want[n:], data[skip:skip+chunk])
		base = end
	}

	if n < len(want) {
		return n, fmt.Errorf("%w: extents cover %d of %d bytes", filesystem.ErrCorruptVolume, off+int64(n), r.size)
	}
	if len(want) < len(p) {
		return n, io.EOF
	}
	return n, nil
}
