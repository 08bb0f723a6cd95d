package descriptor

import (
	"fmt"

	"github.com/bgrewell/dvd-kit/pkg/consts"
	"github.com/bgrewell/dvd-kit/pkg/directory"
	"github.com/bgrewell/dvd-kit/pkg/encoding"
)

// PrimaryVolumeDescriptor holds the fields of an ISO9660 Primary Volume Descriptor (ECMA-119 8.4) needed to
// walk the directory hierarchy and report the volume labels.
type PrimaryVolumeDescriptor struct {
	VolumeDescriptorHeader
	// System Identifier specifies a system which can recognize and act upon the content of the Logical Sectors within
	// logical Sector Numbers 0 to 15 of the volume.
	//  | (a-characters)
	SystemIdentifier string `json:"system_identifier"`
	// Volume Identifier specifies an identification of the volume, padding removed
	//  | (d-characters)
	VolumeIdentifier string `json:"volume_identifier"`
	// Volume Space Size is the number of logical blocks in the Volume Space
	//  | Encoding: BothByteOrder
	VolumeSpaceSize uint32 `json:"volume_space_size"`
	// Logical Block Size specifies the size in bytes of a logical block
	//  | Encoding: BothByteOrder
	LogicalBlockSize uint16 `json:"logical_block_size"`
	// Root Directory Record contains an occurrence of the Directory Record for the Root Directory.
	RootDirectoryRecord *directory.DirectoryRecord `json:"root_directory_record"`
	// Volume Set Identifier exactly as recorded, including padding
	//  | (d-characters)
	VolumeSetIdentifier [consts.ISO9660_PVD_VOLUME_SET_ID_SIZE]byte `json:"volume_set_identifier"`
}

// Unmarshal decodes a Primary Volume Descriptor from a full 2048 byte sector.
func (pvd *PrimaryVolumeDescriptor) Unmarshal(data []byte) error {
	if len(data) < consts.ISO9660_SECTOR_SIZE {
		return fmt.Errorf("primary volume descriptor needs %d bytes, got %d", consts.ISO9660_SECTOR_SIZE, len(data))
	}
	if err := pvd.VolumeDescriptorHeader.Unmarshal(data); err != nil {
		return err
	}
	if pvd.Type() != VolumeDescriptorPrimary {
		return fmt.Errorf("volume descriptor type %s is not primary", pvd.Type())
	}
	if !pvd.Valid() {
		return fmt.Errorf("invalid standard identifier %q, expected %q", pvd.Identifier(), consts.ISO9660_STD_IDENTIFIER)
	}
	if pvd.Version() != consts.ISO9660_VOLUME_DESC_VERSION {
		return fmt.Errorf("invalid volume descriptor version %d, expected %d", pvd.Version(), consts.ISO9660_VOLUME_DESC_VERSION)
	}

	pvd.SystemIdentifier = encoding.TrimIdentifier(data[8:40])
	pvd.VolumeIdentifier = encoding.TrimIdentifier(
		data[consts.ISO9660_PVD_VOLUME_ID_OFFSET : consts.ISO9660_PVD_VOLUME_ID_OFFSET+consts.ISO9660_PVD_VOLUME_ID_SIZE])

	var err error
	if pvd.VolumeSpaceSize, err = encoding.UnmarshalUint32LSBMSB(data[80:88]); err != nil {
		return fmt.Errorf("volume space size: %w", err)
	}
	blockSize, err := encoding.UnmarshalInt16LSBMSB(data[consts.ISO9660_PVD_BLOCK_SIZE_OFFSET : consts.ISO9660_PVD_BLOCK_SIZE_OFFSET+4])
	if err != nil {
		return fmt.Errorf("logical block size: %w", err)
	}
	pvd.LogicalBlockSize = uint16(blockSize)

	pvd.RootDirectoryRecord = &directory.DirectoryRecord{}
	root := data[consts.ISO9660_PVD_ROOT_RECORD_OFFSET : consts.ISO9660_PVD_ROOT_RECORD_OFFSET+consts.ISO9660_PVD_ROOT_RECORD_SIZE]
	if err := pvd.RootDirectoryRecord.Unmarshal(root); err != nil {
		return fmt.Errorf("root directory record: %w", err)
	}
	if !pvd.RootDirectoryRecord.IsDir() {
		return fmt.Errorf("root directory record is not a directory")
	}

	copy(pvd.VolumeSetIdentifier[:], data[consts.ISO9660_PVD_VOLUME_SET_ID_OFFSET:])
	return nil
}
