package pkg

import (
	"errors"
	"fmt"
	"os"

	"github.com/bgrewell/dvd-kit/pkg/blocksource"
	"github.com/bgrewell/dvd-kit/pkg/consts"
	"github.com/bgrewell/dvd-kit/pkg/filesystem"
	"github.com/bgrewell/dvd-kit/pkg/hostfs"
	"github.com/bgrewell/dvd-kit/pkg/iso9660"
	"github.com/bgrewell/dvd-kit/pkg/logging"
	"github.com/bgrewell/dvd-kit/pkg/multipart"
	"github.com/bgrewell/dvd-kit/pkg/options"
	"github.com/bgrewell/dvd-kit/pkg/udf"
	"github.com/go-logr/logr"
	"github.com/hashicorp/go-multierror"
)

// VolumeInfo holds the labels recorded in a volume's primary descriptor.
type VolumeInfo struct {
	VolumeIdentifier    string `json:"volume_identifier"`
	VolumeSetIdentifier []byte `json:"volume_set_identifier"`
}

// DVDReader is an opened DVD-Video volume. It is not safe for concurrent use.
type DVDReader struct {
	Options  options.Options
	location string
	kind     filesystem.BackingKind
	src      *blocksource.Source
	udf      *udf.Walker
	udfErr   error
	iso      *iso9660.Walker
	isoErr   error
	host     *hostfs.Resolver
	resolver filesystem.Resolver

	cacheLevel int
	cache      map[string]filesystem.FileLocation

	files      map[*File]struct{}
	generation uint64
	closed     bool
	discID     *DiscID
	logger     logr.Logger
}

// Open probes location and opens it as a block device, an image file or a directory.
func Open(location string, opts options.Options) (*DVDReader, error) {
	r := &DVDReader{
		Options:    opts,
		location:   location,
		cacheLevel: consts.CACHE_LEVEL_ENABLED,
		cache:      map[string]filesystem.FileLocation{},
		files:      map[*File]struct{}{},
		logger:     opts.Logger,
	}
	// A negative level leaves the default in place.
	r.UDFCacheLevel(opts.CacheLevel)

	fi, err := os.Stat(location)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", filesystem.ErrIO, location, err)
	}
	switch mode := fi.Mode(); {
	case mode.IsDir():
		r.kind = filesystem.BackingDirectory
		if r.host, err = hostfs.New(location, r.logger); err != nil {
			return nil, err
		}
		r.resolver = r.host
	case mode.IsRegular():
		r.kind = filesystem.BackingImageFile
	case mode&os.ModeDevice != 0:
		r.kind = filesystem.BackingBlockDevice
	default:
		return nil, fmt.Errorf("%w: %s is neither a directory, an image file nor a block device", filesystem.ErrIO, location)
	}

	if r.kind != filesystem.BackingDirectory {
		if r.src, err = blocksource.Open(location, r.logger); err != nil {
			return nil, err
		}
		if err := r.openFileSystem(); err != nil {
			r.src.Close()
			return nil, err
		}
	}

	r.logger.V(logging.DEBUG).Info("Opened volume", "location", location, "backing", r.kind.String(),
		"resolver", r.resolver.Name(), "cacheLevel", r.cacheLevel)
	return r, nil
}

// openFileSystem selects the walker used to resolve paths on an image or device.
func (r *DVDReader) openFileSystem() error {
	switch r.Options.FileSystem {
	case consts.FILESYSTEM_UDF:
		if r.loadUDF() != nil {
			return r.udfErr
		}
		r.resolver = r.udf
	case consts.FILESYSTEM_ISO9660:
		if r.loadISO() != nil {
			return r.isoErr
		}
		r.resolver = r.iso
	default:
		if r.loadUDF() == nil {
			r.resolver = r.udf
			return nil
		}
		if !errors.Is(r.udfErr, filesystem.ErrNotFound) && !errors.Is(r.udfErr, filesystem.ErrCorruptVolume) {
			return r.udfErr
		}
		r.logger.V(logging.DEBUG).Info("Falling back to ISO9660", "location", r.location, "reason", r.udfErr.Error())
		if r.loadISO() != nil {
			combined := multierror.Append(nil, r.udfErr, r.isoErr)
			return fmt.Errorf("%w: %s carries no readable file system: %w", filesystem.ErrCorruptVolume, r.location, combined)
		}
		r.resolver = r.iso
	}
	return nil
}

// loadUDF parses the UDF descriptors once and remembers the outcome.
func (r *DVDReader) loadUDF() error {
	if r.udf == nil && r.udfErr == nil {
		r.udf, r.udfErr = udf.New(r.src, r.logger)
	}
	return r.udfErr
}

// loadISO parses the ISO9660 descriptors once and remembers the outcome.
func (r *DVDReader) loadISO() error {
	if r.iso == nil && r.isoErr == nil {
		r.iso, r.isoErr = iso9660.New(r.src, r.logger)
	}
	return r.isoErr
}

func (r *DVDReader) checkOpen() error {
	if r.closed {
		return fmt.Errorf("%w: volume %s is closed", filesystem.ErrPrecondition, r.location)
	}
	return nil
}

// Kind returns the kind of medium the volume was opened from.
func (r *DVDReader) Kind() filesystem.BackingKind {
	return r.kind
}

// Location returns the path the volume was opened from.
func (r *DVDReader) Location() string {
	return r.location
}

// UDFCacheLevel queries the cache level when level is negative and sets it otherwise. Zero disables path
// caching and drops cached locations, any positive value enables it. The effective level is returned.
func (r *DVDReader) UDFCacheLevel(level int) int {
	switch {
	case level < 0:
	case level == consts.CACHE_LEVEL_DISABLED:
		r.cacheLevel = consts.CACHE_LEVEL_DISABLED
		clear(r.cache)
	default:
		r.cacheLevel = consts.CACHE_LEVEL_ENABLED
	}
	return r.cacheLevel
}

// resolve looks name up through the active resolver, consulting the cache when it is enabled.
func (r *DVDReader) resolve(name string) (filesystem.FileLocation, error) {
	key := filesystem.CacheKey(name)
	if r.cacheLevel > 0 {
		if loc, ok := r.cache[key]; ok {
			r.logger.V(logging.TRACE).Info("Cache hit", "path", name)
			return loc, nil
		}
	}
	loc, err := r.resolver.Resolve(name)
	if err != nil {
		return loc, err
	}
	if r.cacheLevel > 0 {
		r.cache[key] = loc
	}
	return loc, nil
}

// FindFile resolves an absolute volume path such as "/VIDEO_TS/VTS_01_0.IFO".
func (r *DVDReader) FindFile(name string) (filesystem.FileLocation, error) {
	if err := r.checkOpen(); err != nil {
		return filesystem.FileLocation{}, err
	}
	return r.resolve(name)
}

// parts resolves the files making up (title, domain). Title VOBs are gathered from part 1 up to the first
// missing part.
func (r *DVDReader) parts(title int, domain filesystem.Domain) ([]filesystem.FileLocation, error) {
	if domain != filesystem.DomainTitleVobs {
		name, err := filesystem.FileName(title, domain, 0)
		if err != nil {
			return nil, err
		}
		loc, err := r.resolve(filesystem.VolumePath(name))
		if err != nil {
			return nil, err
		}
		return []filesystem.FileLocation{loc}, nil
	}

	var parts []filesystem.FileLocation
	for part := 1; part <= consts.DVD_MAX_PARTS; part++ {
		name, err := filesystem.FileName(title, domain, part)
		if err != nil {
			return nil, err
		}
		loc, err := r.resolve(filesystem.VolumePath(name))
		if errors.Is(err, filesystem.ErrNotFound) {
			break
		}
		if err != nil {
			return nil, err
		}
		parts = append(parts, loc)
	}
	if len(parts) == 0 {
		return nil, fmt.Errorf("%w: title %d has no title vobs", filesystem.ErrNotFound, title)
	}
	return parts, nil
}

// Stat returns the size and parts of the file selected by title and domain.
func (r *DVDReader) Stat(title int, domain filesystem.Domain) (filesystem.FileStat, error) {
	if err := r.checkOpen(); err != nil {
		return filesystem.FileStat{}, err
	}
	parts, err := r.parts(title, domain)
	if err != nil {
		return filesystem.FileStat{}, err
	}
	return filesystem.NewFileStat(parts), nil
}

// stream builds the stitched reader over parts without touching their content.
func (r *DVDReader) stream(parts []filesystem.FileLocation) *multipart.File {
	readers := make([]multipart.Part, 0, len(parts))
	for _, p := range parts {
		if r.kind == filesystem.BackingDirectory {
			readers = append(readers, hostfs.NewPart(p, r.logger))
		} else {
			readers = append(readers, blocksource.NewExtentReader(r.src, p))
		}
	}
	return multipart.New(consts.DVD_VIDEO_LB_LEN, readers...)
}

// OpenFile resolves the file selected by title and domain and returns a handle positioned at its start.
func (r *DVDReader) OpenFile(title int, domain filesystem.Domain) (*File, error) {
	if err := r.checkOpen(); err != nil {
		return nil, err
	}
	parts, err := r.parts(title, domain)
	if err != nil {
		return nil, err
	}

	f := &File{
		reader:     r,
		generation: r.generation,
		title:      title,
		domain:     domain,
		name:       parts[0].Path,
		stat:       filesystem.NewFileStat(parts),
		stream:     r.stream(parts),
	}
	r.files[f] = struct{}{}
	r.logger.V(logging.DEBUG).Info("Opened file", "title", title, "domain", domain.String(), "parts", len(parts),
		"size", f.stat.Size)
	return f, nil
}

// release forgets a closed handle.
func (r *DVDReader) release(f *File) {
	delete(r.files, f)
}

// UDFVolumeInfo returns the labels of the UDF Primary Volume Descriptor.
func (r *DVDReader) UDFVolumeInfo() (VolumeInfo, error) {
	if err := r.checkOpen(); err != nil {
		return VolumeInfo{}, err
	}
	if r.kind == filesystem.BackingDirectory {
		return VolumeInfo{}, fmt.Errorf("%w: directory %s has no UDF descriptors", filesystem.ErrNotFound, r.location)
	}
	if err := r.loadUDF(); err != nil {
		return VolumeInfo{}, err
	}
	id, err := r.udf.VolumeIdentifier()
	if err != nil {
		return VolumeInfo{}, err
	}
	return VolumeInfo{VolumeIdentifier: id, VolumeSetIdentifier: r.udf.VolumeSetIdentifier()}, nil
}

// ISOVolumeInfo returns the labels of the ISO9660 Primary Volume Descriptor. UDF volumes parse it on first
// use, so bridge discs answer both variants.
func (r *DVDReader) ISOVolumeInfo() (VolumeInfo, error) {
	if err := r.checkOpen(); err != nil {
		return VolumeInfo{}, err
	}
	if r.kind == filesystem.BackingDirectory {
		return VolumeInfo{}, fmt.Errorf("%w: directory %s has no ISO9660 descriptors", filesystem.ErrNotFound, r.location)
	}
	if err := r.loadISO(); err != nil {
		return VolumeInfo{}, err
	}
	return VolumeInfo{VolumeIdentifier: r.iso.VolumeIdentifier(), VolumeSetIdentifier: r.iso.VolumeSetIdentifier()}, nil
}

// Close releases the block source and every file handle. Handles still open are invalidated and reported with
// an error wrapping filesystem.ErrPrecondition after the resources have been released.
func (r *DVDReader) Close() error {
	if err := r.checkOpen(); err != nil {
		return err
	}
	var result *multierror.Error
	open := len(r.files)
	for f := range r.files {
		if err := f.stream.Close(); err != nil {
			result = multierror.Append(result, err)
		}
	}
	if r.src != nil {
		if err := r.src.Close(); err != nil {
			result = multierror.Append(result, err)
		}
	}
	r.files = nil
	r.cache = nil
	r.discID = nil
	r.closed = true
	r.generation++

	if open > 0 {
		r.logger.Error(nil, "Volume closed with open files", "location", r.location, "open", open)
		result = multierror.Append(result, fmt.Errorf("%w: %d file handles still open", filesystem.ErrPrecondition, open))
	}
	r.logger.V(logging.DEBUG).Info("Closed volume", "location", r.location)
	return result.ErrorOrNil()
}
