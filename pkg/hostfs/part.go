package hostfs

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/bgrewell/dvd-kit/pkg/filesystem"
	"github.com/bgrewell/dvd-kit/pkg/logging"
	"github.com/go-logr/logr"
)

// Part is one resolved host file. The file is opened on the first read and stays open until Close.
type Part struct {
	path   string
	size   int64
	f      *os.File
	logger logr.Logger
}

// NewPart returns a Part for a location produced by Resolver.Resolve.
func NewPart(loc filesystem.FileLocation, logger logr.Logger) *Part {
	return &Part{path: loc.HostPath, size: loc.Size, logger: logger}
}

// Size returns the size the file had when it was resolved.
func (p *Part) Size() int64 {
	return p.size
}

// ReadAt fills b from offset off. The whole range must lie within the resolved size; a file that shrank
// since it was resolved reports an error wrapping filesystem.ErrIO.
func (p *Part) ReadAt(b []byte, off int64) (int, error) {
	if off < 0 || off+int64(len(b)) > p.size {
		return 0, fmt.Errorf("%w: read %d bytes at %d beyond %s (%d bytes)", filesystem.ErrIO, len(b), off, p.path, p.size)
	}
	if p.f == nil {
		f, err := os.Open(p.path)
		if err != nil {
			return 0, fmt.Errorf("%w: open %s: %w", filesystem.ErrIO, p.path, err)
		}
		p.f = f
		p.logger.V(logging.TRACE).Info("Opened host file", "path", p.path)
	}

	n, err := p.f.ReadAt(b, off)
	if err != nil && !(errors.Is(err, io.EOF) && n == len(b)) {
		return n, fmt.Errorf("%w: read %s at %d: %w", filesystem.ErrIO, p.path, off, err)
	}
	return n, nil
}

// Close closes the host file if it was opened. Closing twice is a no-op.
func (p *Part) Close() error {
	if p.f == nil {
		return nil
	}
	f := p.f
	p.f = nil
	if err := f.Close(); err != nil {
		return fmt.Errorf("%w: close %s: %w", filesystem.ErrIO, p.path, err)
	}
	return nil
}
