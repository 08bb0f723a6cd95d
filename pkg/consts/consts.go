package consts

const (
	// Logical block size shared by every DVD-Video file system.
	DVD_VIDEO_LB_LEN = 2048

	// Number of system area sectors before the first ISO9660 volume descriptor.
	ISO9660_SYSTEM_AREA_SECTORS = 16

	// Standard ISO9660 identifier.
	ISO9660_STD_IDENTIFIER = "CD001"

	// ISO9660 volume descriptor version (always 1).
	ISO9660_VOLUME_DESC_VERSION = 1

	// ISO9660 default sector size.
	ISO9660_SECTOR_SIZE = DVD_VIDEO_LB_LEN

	// Offsets of the fields read from an ISO9660 Primary Volume Descriptor.
	ISO9660_PVD_VOLUME_ID_OFFSET     = 40
	ISO9660_PVD_VOLUME_ID_SIZE       = 32
	ISO9660_PVD_BLOCK_SIZE_OFFSET    = 128
	ISO9660_PVD_ROOT_RECORD_OFFSET   = 156
	ISO9660_PVD_ROOT_RECORD_SIZE     = 34
	ISO9660_PVD_VOLUME_SET_ID_OFFSET = 190
	ISO9660_PVD_VOLUME_SET_ID_SIZE   = 128

	// Separators allowed by ISO9660 0x2E and 0x3B.
	ISO9660_SEPARATOR_1 = "."
	ISO9660_SEPARATOR_2 = ";"

	// Block holding the first Anchor Volume Descriptor Pointer.
	UDF_ANCHOR_BLOCK = 256

	// DVD-Video layout.
	DVD_VIDEO_DIRECTORY = "VIDEO_TS"
	DVD_MAX_TITLE       = 99
	DVD_MAX_PARTS       = 9

	// Cache levels understood by the reader.
	CACHE_LEVEL_QUERY    = -1
	CACHE_LEVEL_DISABLED = 0
	CACHE_LEVEL_ENABLED  = 1
)

// UDF descriptor tag identifiers (ECMA-167 3/7.2.1 and 4/7.2.1).
const (
	UDF_TAG_PRIMARY_VOLUME      uint16 = 1
	UDF_TAG_ANCHOR_VOLUME       uint16 = 2
	UDF_TAG_VOLUME_POINTER      uint16 = 3
	UDF_TAG_IMPLEMENTATION_USE  uint16 = 4
	UDF_TAG_PARTITION           uint16 = 5
	UDF_TAG_LOGICAL_VOLUME      uint16 = 6
	UDF_TAG_UNALLOCATED_SPACE   uint16 = 7
	UDF_TAG_TERMINATING         uint16 = 8
	UDF_TAG_FILE_SET            uint16 = 256
	UDF_TAG_FILE_IDENTIFIER     uint16 = 257
	UDF_TAG_ALLOCATION_EXTENT   uint16 = 258
	UDF_TAG_FILE_ENTRY          uint16 = 261
	UDF_TAG_EXTENDED_FILE_ENTRY uint16 = 266
)

// FileSystem selects which on-disc file system an image or device is read through.
type FileSystem int

const (
	FILESYSTEM_AUTO FileSystem = iota
	FILESYSTEM_UDF
	FILESYSTEM_ISO9660
)

func (f FileSystem) String() string {
	switch f {
	case FILESYSTEM_AUTO:
		return "auto"
	case FILESYSTEM_UDF:
		return "udf"
	case FILESYSTEM_ISO9660:
		return "iso9660"
	default:
		return "unknown"
	}
}
