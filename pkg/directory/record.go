package directory

import (
	"errors"
	"fmt"
	"strings"

	"github.com/bgrewell/dvd-kit/pkg/consts"
	"github.com/bgrewell/dvd-kit/pkg/encoding"
)

// Minimum length of a directory record: the fixed fields plus a one byte identifier.
const MIN_RECORD_LENGTH = 34

// DirectoryRecord represents a single Record in a directory (ECMA-119 9.1).
type DirectoryRecord struct {
	LengthOfDirectoryRecord uint8
	ExtendedAttributeRecord uint8
	LocationOfExtent        uint32
	DataLength              uint32
	RecordingDateAndTime    []byte
	FileFlags               FileFlags
	FileUnitSize            uint8
	InterleaveGapSize       uint8
	VolumeSequenceNumber    uint16
	FileIdentifierLength    uint8
	FileIdentifier          string
}

// Unmarshal decodes a DirectoryRecord from binary form, checking that both byte orders of the extent location
// and data length agree.
func (dr *DirectoryRecord) Unmarshal(data []byte) error {
	if len(data) < MIN_RECORD_LENGTH-1 {
		return errors.New("invalid data length")
	}

	dr.LengthOfDirectoryRecord = data[0]
	if int(dr.LengthOfDirectoryRecord) > len(data) || dr.LengthOfDirectoryRecord < MIN_RECORD_LENGTH-1 {
		return fmt.Errorf("record length %d does not fit %d bytes", dr.LengthOfDirectoryRecord, len(data))
	}
	dr.ExtendedAttributeRecord = data[1]

	var err error
	if dr.LocationOfExtent, err = encoding.UnmarshalUint32LSBMSB(data[2:10]); err != nil {
		return fmt.Errorf("location of extent: %w", err)
	}
	if dr.DataLength, err = encoding.UnmarshalUint32LSBMSB(data[10:18]); err != nil {
		return fmt.Errorf("data length: %w", err)
	}
	dr.RecordingDateAndTime = data[18:25]
	dr.FileFlags = FileFlags(data[25])
	dr.FileUnitSize = data[26]
	dr.InterleaveGapSize = data[27]
	seq, err := encoding.UnmarshalInt16LSBMSB(data[28:32])
	if err != nil {
		return fmt.Errorf("volume sequence number: %w", err)
	}
	dr.VolumeSequenceNumber = uint16(seq)
	dr.FileIdentifierLength = data[32]

	end := 33 + int(dr.FileIdentifierLength)
	if end > int(dr.LengthOfDirectoryRecord) {
		return fmt.Errorf("file identifier of %d bytes overruns record of %d bytes", dr.FileIdentifierLength, dr.LengthOfDirectoryRecord)
	}
	dr.FileIdentifier = string(data[33:end])
	return nil
}

// IsDir returns true if the record describes a directory.
func (dr *DirectoryRecord) IsDir() bool {
	return dr.FileFlags.Directory()
}

// IsSpecial returns true for the self ("\x00") and parent ("\x01") records.
func (dr *DirectoryRecord) IsSpecial() bool {
	return dr.FileIdentifier == "\x00" || dr.FileIdentifier == "\x01"
}

// Name returns the file identifier without its version suffix or a trailing separator.
func (dr *DirectoryRecord) Name() string {
	name := dr.FileIdentifier
	if idx := strings.Index(name, consts.ISO9660_SEPARATOR_2); idx != -1 {
		name = name[:idx]
	}
	return strings.TrimSuffix(name, consts.ISO9660_SEPARATOR_1)
}

// Blocks returns the number of logical blocks of the record's extent.
func (dr *DirectoryRecord) Blocks() uint32 {
	return uint32((uint64(dr.DataLength) + consts.ISO9660_SECTOR_SIZE - 1) / consts.ISO9660_SECTOR_SIZE)
}
