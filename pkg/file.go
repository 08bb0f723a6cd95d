package pkg

import (
	"fmt"
	"io"

	"github.com/bgrewell/dvd-kit/pkg/consts"
	"github.com/bgrewell/dvd-kit/pkg/filesystem"
	"github.com/bgrewell/dvd-kit/pkg/multipart"
)

// File is an open DVD-Video file. Title VOBs read as one stream across their parts, each part starting on a
// block boundary. A File is valid until it is closed or its DVDReader is closed.
type File struct {
	reader     *DVDReader
	generation uint64
	title      int
	domain     filesystem.Domain
	name       string
	stat       filesystem.FileStat
	stream     *multipart.File
	offset     int64
	closed     bool
}

func (f *File) check() error {
	if f.closed {
		return fmt.Errorf("%w: file %s is closed", filesystem.ErrPrecondition, f.name)
	}
	if f.reader.closed || f.reader.generation != f.generation {
		return fmt.Errorf("%w: volume of %s was closed", filesystem.ErrPrecondition, f.name)
	}
	return nil
}

// Name returns the volume path of the first part.
func (f *File) Name() string {
	return f.name
}

func (f *File) Title() int {
	return f.title
}

func (f *File) Domain() filesystem.Domain {
	return f.domain
}

// Size returns the summed size of the file's parts.
func (f *File) Size() int64 {
	return f.stat.Size
}

// Blocks returns the number of logical blocks addressable through ReadBlocks.
func (f *File) Blocks() int64 {
	return f.stream.Blocks()
}

func (f *File) Stat() filesystem.FileStat {
	return f.stat
}

// ReadBlocks returns count blocks starting offset blocks into the file. The range must lie within Blocks().
func (f *File) ReadBlocks(offset, count uint32) ([]byte, error) {
	if err := f.check(); err != nil {
		return nil, err
	}
	if int64(offset)+int64(count) > f.stream.Blocks() {
		return nil, fmt.Errorf("%w: blocks %d+%d beyond end of %s (%d blocks)", filesystem.ErrIO, offset, count,
			f.name, f.stream.Blocks())
	}
	buf := make([]byte, int(count)*consts.DVD_VIDEO_LB_LEN)
	if _, err := f.stream.ReadAt(buf, int64(offset)*consts.DVD_VIDEO_LB_LEN); err != nil {
		return nil, err
	}
	return buf, nil
}

// ReadAt reads from byte offset off of the stream without moving the cursor.
func (f *File) ReadAt(p []byte, off int64) (int, error) {
	if err := f.check(); err != nil {
		return 0, err
	}
	if off < 0 {
		return 0, fmt.Errorf("%w: negative offset %d", filesystem.ErrIO, off)
	}
	length := f.stream.Len()
	if off >= length {
		return 0, io.EOF
	}
	n := int64(len(p))
	if n > length-off {
		n = length - off
	}
	if _, err := f.stream.ReadAt(p[:n], off); err != nil {
		return 0, err
	}
	if n < int64(len(p)) {
		return int(n), io.EOF
	}
	return int(n), nil
}

// Read reads from the cursor and advances it.
func (f *File) Read(p []byte) (int, error) {
	n, err := f.ReadAt(p, f.offset)
	f.offset += int64(n)
	if err == io.EOF && n > 0 {
		err = nil
	}
	return n, err
}

// Seek moves the cursor. Positions past the end are allowed and read as io.EOF.
func (f *File) Seek(offset int64, whence int) (int64, error) {
	if err := f.check(); err != nil {
		return 0, err
	}
	var base int64
	switch whence {
	case io.SeekStart:
	case io.SeekCurrent:
		base = f.offset
	case io.SeekEnd:
		base = f.stream.Len()
	default:
		return 0, fmt.Errorf("%w: invalid whence %d", filesystem.ErrIO, whence)
	}
	if base+offset < 0 {
		return 0, fmt.Errorf("%w: negative position %d", filesystem.ErrIO, base+offset)
	}
	f.offset = base + offset
	return f.offset, nil
}

// Close releases the file. Closing an invalidated or already closed file returns an error wrapping
// filesystem.ErrPrecondition.
func (f *File) Close() error {
	if err := f.check(); err != nil {
		return err
	}
	f.closed = true
	f.reader.release(f)
	return f.stream.Close()
}
