package udf

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/bgrewell/dvd-kit/pkg/blocksource"
	"github.com/bgrewell/dvd-kit/pkg/consts"
	"github.com/bgrewell/dvd-kit/pkg/filesystem"
	"github.com/bgrewell/dvd-kit/pkg/logging"
	"github.com/go-logr/logr"
)

// maxSequenceBlocks bounds a volume descriptor sequence walk, including followed Volume Descriptor Pointers.
const maxSequenceBlocks = 256

// Walker resolves paths on a UDF volume.
type Walker struct {
	src        blocksource.BlockSource
	logger     logr.Logger
	pvd        PrimaryVolumeDescriptor
	lvd        LogicalVolumeDescriptor
	partitions map[uint16]PartitionDescriptor
	root       LongAD
}

// New locates the anchor, reads the volume descriptor sequence and the file set descriptor of the volume on
// src. It returns an error wrapping filesystem.ErrNotFound when src carries no UDF anchor.
func New(src blocksource.BlockSource, logger logr.Logger) (*Walker, error) {
	w := &Walker{
		src:        src,
		logger:     logger.WithName("udf"),
		partitions: make(map[uint16]PartitionDescriptor),
	}

	avdp, err := w.findAnchor()
	if err != nil {
		return nil, err
	}

	if err = w.readSequence(avdp.Main); err != nil {
		w.logger.V(logging.DEBUG).Info("Main volume descriptor sequence unusable, trying reserve", "error", err.Error())
		w.partitions = make(map[uint16]PartitionDescriptor)
		if reserveErr := w.readSequence(avdp.Reserve); reserveErr != nil {
			return nil, err
		}
	}

	if err = w.readFileSet(); err != nil {
		return nil, err
	}
	return w, nil
}

// Name identifies the resolver in logs.
func (w *Walker) Name() string {
	return "udf"
}

// VolumeIdentifier returns the decoded volume identifier of the Primary Volume Descriptor.
func (w *Walker) VolumeIdentifier() (string, error) {
	id, err := w.pvd.Identifier()
	if err != nil {
		return "", fmt.Errorf("%w: volume identifier: %w", filesystem.ErrCorruptVolume, err)
	}
	return id, nil
}

// VolumeSetIdentifier returns the raw 128 byte volume set identifier of the Primary Volume Descriptor.
func (w *Walker) VolumeSetIdentifier() []byte {
	return append([]byte(nil), w.pvd.VolumeSetIdentifier[:]...)
}

func (w *Walker) findAnchor() (AnchorVolumeDescriptorPointer, error) {
	var avdp AnchorVolumeDescriptorPointer
	n := int64(w.src.Blocks())
	candidates := []int64{consts.UDF_ANCHOR_BLOCK, n - 1 - consts.UDF_ANCHOR_BLOCK, n - 1}

	for _, block := range candidates {
		if block < consts.UDF_ANCHOR_BLOCK || block >= n {
			continue
		}
		data, err := w.src.ReadBlocks(uint32(block), 1)
		if err != nil {
			return avdp, err
		}
		var tag Tag
		if err := tag.Unmarshal(data); err != nil || tag.Identifier != consts.UDF_TAG_ANCHOR_VOLUME {
			continue
		}
		if err := avdp.Unmarshal(data); err != nil {
			return avdp, fmt.Errorf("%w: anchor at %d: %w", filesystem.ErrCorruptVolume, block, err)
		}
		w.logger.V(logging.DEBUG).Info("Found anchor volume descriptor pointer", "block", block,
			"main", avdp.Main.Location, "reserve", avdp.Reserve.Location)
		return avdp, nil
	}
	return avdp, fmt.Errorf("%w: no UDF anchor volume descriptor pointer", filesystem.ErrNotFound)
}

// readSequence walks a volume descriptor sequence until its terminator.
func (w *Walker) readSequence(extent ExtentAD) error {
	var (
		havePVD, haveLVD bool
		block            = extent.Location
		end              = extent.Location + extent.Length/consts.DVD_VIDEO_LB_LEN
	)

walk:
	for visited := 0; block < end && visited < maxSequenceBlocks; visited++ {
		data, err := w.src.ReadBlocks(block, 1)
		if err != nil {
			return err
		}
		var tag Tag
		if err := tag.Unmarshal(data); err != nil {
			return fmt.Errorf("%w: descriptor at %d: %w", filesystem.ErrCorruptVolume, block, err)
		}
		w.logger.V(logging.TRACE).Info("Volume descriptor", "block", block, "tag", tag.Identifier)

		switch tag.Identifier {
		case consts.UDF_TAG_PRIMARY_VOLUME:
			var pvd PrimaryVolumeDescriptor
			if err := pvd.Unmarshal(data); err != nil {
				return fmt.Errorf("%w: primary volume descriptor: %w", filesystem.ErrCorruptVolume, err)
			}
			if !havePVD || pvd.SequenceNumber >= w.pvd.SequenceNumber {
				w.pvd, havePVD = pvd, true
			}
		case consts.UDF_TAG_PARTITION:
			var pd PartitionDescriptor
			if err := pd.Unmarshal(data); err != nil {
				return fmt.Errorf("%w: partition descriptor: %w", filesystem.ErrCorruptVolume, err)
			}
			if prev, ok := w.partitions[pd.Number]; !ok || pd.SequenceNumber >= prev.SequenceNumber {
				w.partitions[pd.Number] = pd
			}
		case consts.UDF_TAG_LOGICAL_VOLUME:
			var lvd LogicalVolumeDescriptor
			if err := lvd.Unmarshal(data); err != nil {
				return fmt.Errorf("%w: logical volume descriptor: %w", filesystem.ErrCorruptVolume, err)
			}
			if !haveLVD || lvd.SequenceNumber >= w.lvd.SequenceNumber {
				w.lvd, haveLVD = lvd, true
			}
		case consts.UDF_TAG_VOLUME_POINTER:
			var next ExtentAD
			next.Unmarshal(data[20:28])
			w.logger.V(logging.DEBUG).Info("Following volume descriptor pointer", "block", next.Location)
			block, end = next.Location, next.Location+next.Length/consts.DVD_VIDEO_LB_LEN
			continue
		case consts.UDF_TAG_TERMINATING, 0:
			break walk
		}
		block++
	}

	switch {
	case !havePVD:
		return fmt.Errorf("%w: no primary volume descriptor", filesystem.ErrCorruptVolume)
	case !haveLVD:
		return fmt.Errorf("%w: no logical volume descriptor", filesystem.ErrCorruptVolume)
	case len(w.partitions) == 0:
		return fmt.Errorf("%w: no partition descriptor", filesystem.ErrCorruptVolume)
	case w.lvd.LogicalBlockSize != consts.DVD_VIDEO_LB_LEN:
		return fmt.Errorf("%w: logical block size %d", filesystem.ErrCorruptVolume, w.lvd.LogicalBlockSize)
	}
	return nil
}

func (w *Walker) readFileSet() error {
	data, err := w.readLogical(w.lvd.FileSetLocation.Location)
	if err != nil {
		return err
	}
	if err := expectTag(data, consts.UDF_TAG_FILE_SET); err != nil {
		return fmt.Errorf("file set descriptor: %w", err)
	}
	var fsd FileSetDescriptor
	if err := fsd.Unmarshal(data); err != nil {
		return fmt.Errorf("%w: file set descriptor: %w", filesystem.ErrCorruptVolume, err)
	}
	w.root = fsd.RootDirectoryICB
	w.logger.V(logging.DEBUG).Info("Read file set descriptor", "root", w.root.Location.Block,
		"partition", w.root.Location.Partition)
	return nil
}

// absolute converts a partition relative address to a block on the source.
func (w *Walker) absolute(addr LBAddr) (uint32, error) {
	if int(addr.Partition) >= len(w.lvd.PartitionMaps) {
		return 0, fmt.Errorf("%w: partition reference %d not mapped", filesystem.ErrCorruptVolume, addr.Partition)
	}
	number := w.lvd.PartitionMaps[addr.Partition]
	pd, ok := w.partitions[number]
	if number == unmappedPartition || !ok {
		return 0, fmt.Errorf("%w: partition reference %d has no type 1 partition", filesystem.ErrCorruptVolume, addr.Partition)
	}
	return pd.Start + addr.Block, nil
}

func (w *Walker) readLogical(addr LBAddr) ([]byte, error) {
	block, err := w.absolute(addr)
	if err != nil {
		return nil, err
	}
	return w.src.ReadBlocks(block, 1)
}

func expectTag(data []byte, want uint16) error {
	var tag Tag
	if err := tag.Unmarshal(data); err != nil {
		return fmt.Errorf("%w: %w", filesystem.ErrCorruptVolume, err)
	}
	if tag.Identifier != want {
		return fmt.Errorf("%w: expected tag %d, found %d", filesystem.ErrCorruptVolume, want, tag.Identifier)
	}
	return nil
}

// readEntry reads the File Entry or Extended File Entry an ICB points to.
func (w *Walker) readEntry(icb LongAD) (*FileEntry, error) {
	data, err := w.readLogical(icb.Location)
	if err != nil {
		return nil, err
	}
	var tag Tag
	if err := tag.Unmarshal(data); err != nil {
		return nil, fmt.Errorf("%w: file entry at %d: %w", filesystem.ErrCorruptVolume, icb.Location.Block, err)
	}
	fe := &FileEntry{}
	switch tag.Identifier {
	case consts.UDF_TAG_FILE_ENTRY:
		err = fe.Unmarshal(data, false)
	case consts.UDF_TAG_EXTENDED_FILE_ENTRY:
		err = fe.Unmarshal(data, true)
	default:
		return nil, fmt.Errorf("%w: expected file entry at %d, found tag %d", filesystem.ErrCorruptVolume,
			icb.Location.Block, tag.Identifier)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: file entry at %d: %w", filesystem.ErrCorruptVolume, icb.Location.Block, err)
	}
	return fe, nil
}

// extents converts the allocation descriptors of fe into absolute extents. partition is the reference of the
// partition holding the entry, used by short allocation descriptors.
func (w *Walker) extents(fe *FileEntry, partition uint16) ([]filesystem.Extent, error) {
	var adSize int
	switch fe.ADType() {
	case ADShort:
		adSize = shortADSize
	case ADLong:
		adSize = longADSize
	case ADEmbedded:
		return nil, fmt.Errorf("%w: embedded file data has no block extents", filesystem.ErrCorruptVolume)
	default:
		return nil, fmt.Errorf("%w: allocation descriptor type %d", filesystem.ErrCorruptVolume, fe.ADType())
	}

	var out []filesystem.Extent
	ads := fe.AllocationDescriptors
	for hops := 0; hops < maxSequenceBlocks; {
		if len(ads) < adSize {
			return out, nil
		}
		raw := binary.LittleEndian.Uint32(ads[0:4])
		length, kind := raw&extentLengthMask, raw>>30
		addr := LBAddr{Block: binary.LittleEndian.Uint32(ads[4:8]), Partition: partition}
		if adSize == longADSize {
			addr.Partition = binary.LittleEndian.Uint16(ads[8:10])
		}
		ads = ads[adSize:]

		if length == 0 {
			return out, nil
		}
		switch kind {
		case extentRecorded:
			block, err := w.absolute(addr)
			if err != nil {
				return nil, err
			}
			out = append(out, filesystem.Extent{Block: block, Length: length})
		case extentContinuation:
			data, err := w.readLogical(addr)
			if err != nil {
				return nil, err
			}
			if err := expectTag(data, consts.UDF_TAG_ALLOCATION_EXTENT); err != nil {
				return nil, fmt.Errorf("allocation extent: %w", err)
			}
			n := int(binary.LittleEndian.Uint32(data[20:24]))
			if allocationExtentBaseSize+n > len(data) {
				return nil, fmt.Errorf("%w: allocation extent of %d bytes", filesystem.ErrCorruptVolume, n)
			}
			ads = data[allocationExtentBaseSize : allocationExtentBaseSize+n]
			hops++
		default:
			return nil, fmt.Errorf("%w: extent at %d is not recorded", filesystem.ErrCorruptVolume, addr.Block)
		}
	}
	return nil, fmt.Errorf("%w: allocation extent chain too long", filesystem.ErrCorruptVolume)
}

// checkLength rejects an information length that the recorded extents cannot hold.
func checkLength(fe *FileEntry, extents []filesystem.Extent) error {
	var recorded uint64
	for _, e := range extents {
		recorded += uint64(e.Length)
	}
	if fe.InformationLength > recorded || fe.InformationLength > math.MaxInt64 {
		return fmt.Errorf("%w: information length %d exceeds %d recorded bytes", filesystem.ErrCorruptVolume,
			fe.InformationLength, recorded)
	}
	return nil
}

// directory returns the File Identifier Descriptors of a directory entry.
func (w *Walker) directory(fe *FileEntry, partition uint16) ([]FileIdentifier, error) {
	var data []byte
	if fe.ADType() == ADEmbedded {
		data = fe.AllocationDescriptors
		if fe.InformationLength > uint64(len(data)) {
			return nil, fmt.Errorf("%w: directory of %d bytes holds %d embedded bytes", filesystem.ErrCorruptVolume,
				fe.InformationLength, len(data))
		}
		data = data[:fe.InformationLength]
	} else {
		extents, err := w.extents(fe, partition)
		if err != nil {
			return nil, err
		}
		if err := checkLength(fe, extents); err != nil {
			return nil, err
		}
		if fe.InformationLength > uint64(w.src.Blocks())*consts.DVD_VIDEO_LB_LEN {
			return nil, fmt.Errorf("%w: directory of %d bytes is larger than the volume", filesystem.ErrCorruptVolume,
				fe.InformationLength)
		}
		data = make([]byte, fe.InformationLength)
		r := blocksource.NewExtentReader(w.src, filesystem.FileLocation{Extents: extents, Size: int64(fe.InformationLength)})
		if _, err := r.ReadAt(data, 0); err != nil {
			return nil, err
		}
	}

	var entries []FileIdentifier
	for off := 0; off+fileIdentifierBaseSize <= len(data); {
		var fid FileIdentifier
		if err := fid.Unmarshal(data[off:]); err != nil {
			return nil, fmt.Errorf("%w: file identifier at offset %d: %w", filesystem.ErrCorruptVolume, off, err)
		}
		off += fid.Size()
		if fid.Characteristics&(CharDeleted|CharParent) != 0 {
			continue
		}
		entries = append(entries, fid)
	}
	return entries, nil
}

// Resolve walks name from the root directory and returns the extents of the file it names.
func (w *Walker) Resolve(name string) (filesystem.FileLocation, error) {
	loc := filesystem.FileLocation{Path: name}
	segments := filesystem.SplitPath(name)
	if len(segments) == 0 {
		return loc, fmt.Errorf("%w: %q names the root directory", filesystem.ErrNotFound, name)
	}

	icb := w.root
	for _, segment := range segments {
		dir, err := w.readEntry(icb)
		if err != nil {
			return loc, err
		}
		if !dir.IsDirectory() {
			return loc, fmt.Errorf("%w: %q: parent of %s is not a directory", filesystem.ErrNotFound, name, segment)
		}
		entries, err := w.directory(dir, icb.Location.Partition)
		if err != nil {
			return loc, err
		}
		found := false
		for _, e := range entries {
			if strings.EqualFold(e.Name, segment) {
				icb, found = e.ICB, true
				break
			}
		}
		if !found {
			return loc, fmt.Errorf("%w: %q", filesystem.ErrNotFound, name)
		}
	}

	fe, err := w.readEntry(icb)
	if err != nil {
		return loc, err
	}
	if fe.IsDirectory() {
		return loc, fmt.Errorf("%w: %q is a directory", filesystem.ErrNotFound, name)
	}
	extents, err := w.extents(fe, icb.Location.Partition)
	if err != nil {
		return loc, fmt.Errorf("%q: %w", name, err)
	}
	if err := checkLength(fe, extents); err != nil {
		return loc, fmt.Errorf("%q: %w", name, err)
	}
	loc.Extents = extents
	loc.Size = int64(fe.InformationLength)
	w.logger.V(logging.DEBUG).Info("Resolved file", "path", name, "block", loc.Block(), "size", loc.Size,
		"extents", len(extents))
	return loc, nil
}

// IsNotUDF reports whether err means the source holds no UDF file system at all.
func IsNotUDF(err error) bool {
	return errors.Is(err, filesystem.ErrNotFound)
}
