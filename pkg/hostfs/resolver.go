package hostfs

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/bgrewell/dvd-kit/pkg/consts"
	"github.com/bgrewell/dvd-kit/pkg/filesystem"
	"github.com/bgrewell/dvd-kit/pkg/logging"
	"github.com/go-logr/logr"
)

// Resolver maps volume paths onto files below a host directory holding a DVD-Video copy or a mounted disc.
type Resolver struct {
	root   string
	logger logr.Logger
}

// New returns a Resolver rooted at dir, which must be a directory.
func New(dir string, logger logr.Logger) (*Resolver, error) {
	fi, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("%w: stat %s: %w", filesystem.ErrIO, dir, err)
	}
	if !fi.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", filesystem.ErrIO, dir)
	}
	return &Resolver{root: dir, logger: logger.WithName("hostfs")}, nil
}

func (r *Resolver) Name() string {
	return "directory"
}

// Root returns the host directory the resolver was created with.
func (r *Resolver) Root() string {
	return r.root
}

// candidates lists the host paths tried for a volume path, in order. Files of the video directory are looked
// up as VIDEO_TS/NAME, video_ts/name, NAME and name, so both a disc root and the VIDEO_TS directory itself can
// be opened.
func (r *Resolver) candidates(segments []string) []string {
	if len(segments) == 2 && strings.EqualFold(segments[0], consts.DVD_VIDEO_DIRECTORY) {
		upper, lower := strings.ToUpper(segments[1]), strings.ToLower(segments[1])
		return []string{
			filepath.Join(r.root, consts.DVD_VIDEO_DIRECTORY, upper),
			filepath.Join(r.root, strings.ToLower(consts.DVD_VIDEO_DIRECTORY), lower),
			filepath.Join(r.root, upper),
			filepath.Join(r.root, lower),
		}
	}
	joined := filepath.Join(segments...)
	return []string{
		filepath.Join(r.root, joined),
		filepath.Join(r.root, strings.ToUpper(joined)),
		filepath.Join(r.root, strings.ToLower(joined)),
	}
}

// Resolve finds the host file backing name. Directories never match.
func (r *Resolver) Resolve(name string) (filesystem.FileLocation, error) {
	loc := filesystem.FileLocation{Path: name}
	segments := filesystem.SplitPath(name)
	if len(segments) == 0 {
		return loc, fmt.Errorf("%w: %q names the root directory", filesystem.ErrNotFound, name)
	}

	for _, candidate := range r.candidates(segments) {
		fi, err := os.Stat(candidate)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) || errors.Is(err, syscall.ENOTDIR) {
				continue
			}
			return loc, fmt.Errorf("%w: stat %s: %w", filesystem.ErrIO, candidate, err)
		}
		if fi.IsDir() {
			continue
		}
		loc.HostPath = candidate
		loc.Size = fi.Size()
		r.logger.V(logging.DEBUG).Info("Resolved file", "path", name, "host", candidate, "size", loc.Size)
		return loc, nil
	}

	r.logger.V(logging.TRACE).Info("No host file", "path", name, "root", r.root)
	return loc, fmt.Errorf("%w: %q below %s", filesystem.ErrNotFound, name, r.root)
}
