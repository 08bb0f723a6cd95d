package blocksource

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/bgrewell/dvd-kit/pkg/consts"
	"github.com/bgrewell/dvd-kit/pkg/filesystem"
	"github.com/bgrewell/dvd-kit/pkg/logging"
	"github.com/go-logr/logr"
)

// BlockSource reads fixed 2048-byte logical blocks from an image file or block device.
type BlockSource interface {
	// ReadBlocks returns exactly count*2048 bytes starting at block start.
	ReadBlocks(start, count uint32) ([]byte, error)
	// Blocks returns the number of addressable blocks.
	Blocks() uint32
	Close() error
}

// Source is the BlockSource used for image files, block devices and in-memory images.
type Source struct {
	name   string
	r      io.ReaderAt
	closer io.Closer
	size   int64
	device bool
	logger logr.Logger
}

// Open opens an image file or block device for block reads.
func Open(location string, logger logr.Logger) (*Source, error) {
	f, err := os.Open(location)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %w", filesystem.ErrIO, location, err)
	}
	fi, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("%w: stat %s: %w", filesystem.ErrIO, location, err)
	}

	s := &Source{name: location, r: f, closer: f, logger: logger}
	if fi.Mode()&os.ModeDevice != 0 {
		s.device = true
		if s.size, err = deviceSize(f); err != nil {
			f.Close()
			return nil, fmt.Errorf("%w: size of device %s: %w", filesystem.ErrIO, location, err)
		}
	} else {
		s.size = fi.Size()
	}

	logger.V(logging.DEBUG).Info("Opened block source", "location", location, "device", s.device, "size", s.size)
	return s, nil
}

// New wraps an arbitrary reader of the given byte size.
func New(r io.ReaderAt, size int64) *Source {
	return &Source{name: "reader", r: r, size: size}
}

// Device reports whether the source is a block device.
func (s *Source) Device() bool {
	return s.device
}

// Size returns the byte size of the source.
func (s *Source) Size() int64 {
	return s.size
}

// Blocks returns the number of addressable blocks. A trailing partial block counts and reads zero padded.
func (s *Source) Blocks() uint32 {
	return uint32((s.size + consts.DVD_VIDEO_LB_LEN - 1) / consts.DVD_VIDEO_LB_LEN)
}

// ReadBlocks reads count blocks starting at block start.
func (s *Source) ReadBlocks(start, count uint32) ([]byte, error) {
	if uint64(start)+uint64(count) > uint64(s.Blocks()) {
		return nil, fmt.Errorf("%w: blocks %d+%d beyond end of %s (%d blocks)", filesystem.ErrIO, start, count, s.name, s.Blocks())
	}
	buf := make([]byte, int(count)*consts.DVD_VIDEO_LB_LEN)
	if err := s.ReadBlocksInto(buf, start); err != nil {
		return nil, err
	}
	return buf, nil
}

// ReadBlocksInto fills buf, whose length must be a multiple of the block size, starting at block start.
func (s *Source) ReadBlocksInto(buf []byte, start uint32) error {
	if s.r == nil {
		return fmt.Errorf("%w: read from closed block source %s", filesystem.ErrPrecondition, s.name)
	}
	if len(buf)%consts.DVD_VIDEO_LB_LEN != 0 {
		return fmt.Errorf("%w: buffer of %d bytes is not block aligned", filesystem.ErrIO, len(buf))
	}
	count := uint64(len(buf) / consts.DVD_VIDEO_LB_LEN)
	if uint64(start)+count > uint64(s.Blocks()) {
		return fmt.Errorf("%w: blocks %d+%d beyond end of %s (%d blocks)", filesystem.ErrIO, start, count, s.name, s.Blocks())
	}
	if count == 0 {
		return nil
	}

	off := int64(start) * consts.DVD_VIDEO_LB_LEN
	n, err := s.r.ReadAt(buf, off)
	if err != nil && !(errors.Is(err, io.EOF) && off+int64(n) >= s.size) {
		s.logger.Error(err, "Block read failed", "source", s.name, "block", start, "count", count)
		return fmt.Errorf("%w: read %d blocks at %d: %w", filesystem.ErrIO, count, start, err)
	}
	clear(buf[n:])
	s.logger.V(logging.TRACE).Info("Read blocks", "block", start, "count", count)
	return nil
}

// Close releases the underlying file. Closing twice is a no-op.
func (s *Source) Close() error {
	if s.r == nil {
		return nil
	}
	s.r = nil
	if s.closer == nil {
		return nil
	}
	if err := s.closer.Close(); err != nil {
		return fmt.Errorf("%w: close %s: %w", filesystem.ErrIO, s.name, err)
	}
	return nil
}
