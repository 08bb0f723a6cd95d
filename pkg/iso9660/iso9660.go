package iso9660

import (
	"fmt"
	"strings"

	"github.com/bgrewell/dvd-kit/pkg/blocksource"
	"github.com/bgrewell/dvd-kit/pkg/consts"
	"github.com/bgrewell/dvd-kit/pkg/descriptor"
	"github.com/bgrewell/dvd-kit/pkg/directory"
	"github.com/bgrewell/dvd-kit/pkg/filesystem"
	"github.com/bgrewell/dvd-kit/pkg/logging"
	"github.com/go-logr/logr"
)

// maxVolumeDescriptors bounds the scan for the volume descriptor set terminator.
const maxVolumeDescriptors = 64

// Walker resolves paths through the ISO9660 directory hierarchy of a volume.
type Walker struct {
	src    blocksource.BlockSource
	logger logr.Logger
	pvd    *descriptor.PrimaryVolumeDescriptor
}

// New scans the volume descriptor set starting at sector 16 for the Primary Volume Descriptor. It returns an
// error wrapping filesystem.ErrNotFound when the source carries no ISO9660 descriptors.
func New(src blocksource.BlockSource, logger logr.Logger) (*Walker, error) {
	w := &Walker{src: src, logger: logger.WithName("iso9660")}

scan:
	for i := uint32(0); i < maxVolumeDescriptors; i++ {
		sector := consts.ISO9660_SYSTEM_AREA_SECTORS + i
		if sector >= src.Blocks() {
			break
		}
		data, err := src.ReadBlocks(sector, 1)
		if err != nil {
			return nil, err
		}

		var header descriptor.VolumeDescriptorHeader
		if err := header.Unmarshal(data); err != nil {
			return nil, fmt.Errorf("%w: volume descriptor at %d: %w", filesystem.ErrCorruptVolume, sector, err)
		}
		if !header.Valid() {
			break scan
		}
		w.logger.V(logging.TRACE).Info("Volume descriptor", "sector", sector, "type", header.Type().String())

		switch header.Type() {
		case descriptor.VolumeDescriptorPrimary:
			pvd := &descriptor.PrimaryVolumeDescriptor{}
			if err := pvd.Unmarshal(data); err != nil {
				return nil, fmt.Errorf("%w: primary volume descriptor: %w", filesystem.ErrCorruptVolume, err)
			}
			if pvd.LogicalBlockSize != consts.ISO9660_SECTOR_SIZE {
				return nil, fmt.Errorf("%w: logical block size %d", filesystem.ErrCorruptVolume, pvd.LogicalBlockSize)
			}
			w.pvd = pvd
			w.logger.V(logging.DEBUG).Info("Found primary volume descriptor", "sector", sector,
				"volume", pvd.VolumeIdentifier, "root", pvd.RootDirectoryRecord.LocationOfExtent)
			return w, nil
		case descriptor.VolumeDescriptorSetTerminator:
			break scan
		}
	}

	return nil, fmt.Errorf("%w: no ISO9660 primary volume descriptor", filesystem.ErrNotFound)
}

// Name identifies the resolver in logs.
func (w *Walker) Name() string {
	return "iso9660"
}

// VolumeIdentifier returns the volume identifier with its space padding removed.
func (w *Walker) VolumeIdentifier() string {
	return w.pvd.VolumeIdentifier
}

// VolumeSetIdentifier returns the 128 byte volume set identifier as recorded.
func (w *Walker) VolumeSetIdentifier() []byte {
	return append([]byte(nil), w.pvd.VolumeSetIdentifier[:]...)
}

// readDirectory returns the entries of the directory described by record.
func (w *Walker) readDirectory(record *directory.DirectoryRecord) ([]*directory.Entry, error) {
	if uint64(record.LocationOfExtent)+uint64(record.Blocks()) > uint64(w.src.Blocks()) {
		return nil, fmt.Errorf("%w: directory at %d of %d bytes runs past the end of the volume",
			filesystem.ErrCorruptVolume, record.LocationOfExtent, record.DataLength)
	}
	data, err := w.src.ReadBlocks(record.LocationOfExtent, record.Blocks())
	if err != nil {
		return nil, err
	}
	records, err := directory.ParseDirectory(data[:record.DataLength])
	if err != nil {
		return nil, fmt.Errorf("%w: directory at %d: %w", filesystem.ErrCorruptVolume, record.LocationOfExtent, err)
	}
	entries, err := directory.GroupEntries(records)
	if err != nil {
		return nil, fmt.Errorf("%w: directory at %d: %w", filesystem.ErrCorruptVolume, record.LocationOfExtent, err)
	}
	return entries, nil
}

// Resolve walks name from the root directory, comparing names without their version suffix and ignoring case.
func (w *Walker) Resolve(name string) (filesystem.FileLocation, error) {
	loc := filesystem.FileLocation{Path: name}
	segments := filesystem.SplitPath(name)
	if len(segments) == 0 {
		return loc, fmt.Errorf("%w: %q names the root directory", filesystem.ErrNotFound, name)
	}

	current := &directory.Entry{Records: []*directory.DirectoryRecord{w.pvd.RootDirectoryRecord}}
	for _, segment := range segments {
		if !current.IsDir() {
			return loc, fmt.Errorf("%w: %q: parent of %s is not a directory", filesystem.ErrNotFound, name, segment)
		}
		entries, err := w.readDirectory(current.Records[0])
		if err != nil {
			return loc, err
		}
		var next *directory.Entry
		for _, e := range entries {
			if strings.EqualFold(e.Name(), segment) {
				next = e
				break
			}
		}
		if next == nil {
			return loc, fmt.Errorf("%w: %q", filesystem.ErrNotFound, name)
		}
		current = next
	}

	if current.IsDir() {
		return loc, fmt.Errorf("%w: %q is a directory", filesystem.ErrNotFound, name)
	}
	for _, r := range current.Records {
		loc.Extents = append(loc.Extents, filesystem.Extent{Block: r.LocationOfExtent, Length: r.DataLength})
	}
	loc.Size = current.Size()
	w.logger.V(logging.DEBUG).Info("Resolved file", "path", name, "block", loc.Block(), "size", loc.Size,
		"extents", len(loc.Extents))
	return loc, nil
}
