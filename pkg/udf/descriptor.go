package udf

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/bgrewell/dvd-kit/pkg/consts"
	"github.com/bgrewell/dvd-kit/pkg/encoding"
)

// Sizes of the fixed portions of the descriptors read by the walker.
const (
	tagSize                   = 16
	fileEntryBaseSize         = 176
	extendedFileEntryBaseSize = 216
	fileIdentifierBaseSize    = 38
	allocationExtentBaseSize  = 24
	shortADSize               = 8
	longADSize                = 16
)

// ICB file types (ECMA-167 4/14.6.6).
const (
	FileTypeDirectory = 4
	FileTypeRegular   = 5
)

// Allocation descriptor kinds stored in the low bits of the ICB flags (ECMA-167 4/14.6.8).
const (
	ADShort    = 0
	ADLong     = 1
	ADExtended = 2
	ADEmbedded = 3
)

// File characteristics of a File Identifier Descriptor (ECMA-167 4/14.4.3).
const (
	CharHidden    = 0x01
	CharDirectory = 0x02
	CharDeleted   = 0x04
	CharParent    = 0x08
)

// Extent types stored in the two high bits of an allocation descriptor length (ECMA-167 4/14.14.1.1).
const (
	extentRecorded     = 0
	extentNotRecorded  = 1
	extentNotAllocated = 2
	extentContinuation = 3
	extentLengthMask   = 0x3FFFFFFF
)

var errShortDescriptor = errors.New("descriptor truncated")

// Tag is the descriptor tag that starts every UDF descriptor (ECMA-167 3/7.2).
type Tag struct {
	Identifier   uint16
	Version      uint16
	Checksum     uint8
	SerialNumber uint16
	CRC          uint16
	CRCLength    uint16
	Location     uint32
}

// Unmarshal decodes the tag and verifies its checksum.
func (t *Tag) Unmarshal(data []byte) error {
	if len(data) < tagSize {
		return errShortDescriptor
	}
	t.Identifier = binary.LittleEndian.Uint16(data[0:2])
	t.Version = binary.LittleEndian.Uint16(data[2:4])
	t.Checksum = data[4]
	t.SerialNumber = binary.LittleEndian.Uint16(data[6:8])
	t.CRC = binary.LittleEndian.Uint16(data[8:10])
	t.CRCLength = binary.LittleEndian.Uint16(data[10:12])
	t.Location = binary.LittleEndian.Uint32(data[12:16])
	if sum := TagChecksum(data); sum != t.Checksum {
		return fmt.Errorf("tag %d checksum 0x%02x, expected 0x%02x", t.Identifier, t.Checksum, sum)
	}
	return nil
}

// TagChecksum sums the 16 tag bytes modulo 256, skipping the checksum byte itself.
func TagChecksum(data []byte) uint8 {
	var sum uint8
	for i := 0; i < tagSize; i++ {
		if i != 4 {
			sum += data[i]
		}
	}
	return sum
}

// ExtentAD is an extent_ad (ECMA-167 3/7.1).
type ExtentAD struct {
	Length   uint32
	Location uint32
}

func (e *ExtentAD) Unmarshal(data []byte) {
	e.Length = binary.LittleEndian.Uint32(data[0:4])
	e.Location = binary.LittleEndian.Uint32(data[4:8])
}

// LBAddr is a partition relative block address (ECMA-167 4/7.1).
type LBAddr struct {
	Block     uint32
	Partition uint16
}

// LongAD is a long_ad (ECMA-167 4/14.14.2).
type LongAD struct {
	Length   uint32
	Location LBAddr
}

func (l *LongAD) Unmarshal(data []byte) {
	l.Length = binary.LittleEndian.Uint32(data[0:4])
	l.Location.Block = binary.LittleEndian.Uint32(data[4:8])
	l.Location.Partition = binary.LittleEndian.Uint16(data[8:10])
}

// AnchorVolumeDescriptorPointer (ECMA-167 3/10.2).
type AnchorVolumeDescriptorPointer struct {
	Main    ExtentAD
	Reserve ExtentAD
}

func (a *AnchorVolumeDescriptorPointer) Unmarshal(data []byte) error {
	if len(data) < 32 {
		return errShortDescriptor
	}
	a.Main.Unmarshal(data[16:24])
	a.Reserve.Unmarshal(data[24:32])
	return nil
}

// PrimaryVolumeDescriptor keeps the identifier fields of the UDF Primary Volume Descriptor (ECMA-167 3/10.1).
type PrimaryVolumeDescriptor struct {
	SequenceNumber      uint32
	VolumeIdentifier    [32]byte
	VolumeSetIdentifier [128]byte
}

func (p *PrimaryVolumeDescriptor) Unmarshal(data []byte) error {
	if len(data) < 200 {
		return errShortDescriptor
	}
	p.SequenceNumber = binary.LittleEndian.Uint32(data[16:20])
	copy(p.VolumeIdentifier[:], data[24:56])
	copy(p.VolumeSetIdentifier[:], data[72:200])
	return nil
}

// Identifier decodes the volume identifier dstring.
func (p *PrimaryVolumeDescriptor) Identifier() (string, error) {
	return encoding.DecodeDString(p.VolumeIdentifier[:])
}

// PartitionDescriptor (ECMA-167 3/10.5).
type PartitionDescriptor struct {
	SequenceNumber uint32
	Flags          uint16
	Number         uint16
	AccessType     uint32
	Start          uint32
	Length         uint32
}

func (p *PartitionDescriptor) Unmarshal(data []byte) error {
	if len(data) < 196 {
		return errShortDescriptor
	}
	p.SequenceNumber = binary.LittleEndian.Uint32(data[16:20])
	p.Flags = binary.LittleEndian.Uint16(data[20:22])
	p.Number = binary.LittleEndian.Uint16(data[22:24])
	p.AccessType = binary.LittleEndian.Uint32(data[184:188])
	p.Start = binary.LittleEndian.Uint32(data[188:192])
	p.Length = binary.LittleEndian.Uint32(data[192:196])
	return nil
}

// unmappedPartition marks a partition map type the walker cannot address.
const unmappedPartition = 0xFFFF

// LogicalVolumeDescriptor (ECMA-167 3/10.6). PartitionMaps holds, per partition reference number, the
// partition number of a type 1 map.
type LogicalVolumeDescriptor struct {
	SequenceNumber   uint32
	LogicalBlockSize uint32
	FileSetLocation  LongAD
	PartitionMaps    []uint16
}

func (l *LogicalVolumeDescriptor) Unmarshal(data []byte) error {
	if len(data) < 440 {
		return errShortDescriptor
	}
	l.SequenceNumber = binary.LittleEndian.Uint32(data[16:20])
	l.LogicalBlockSize = binary.LittleEndian.Uint32(data[212:216])
	l.FileSetLocation.Unmarshal(data[248:264])
	tableLength := int(binary.LittleEndian.Uint32(data[264:268]))
	count := int(binary.LittleEndian.Uint32(data[268:272]))

	table := data[440:]
	if tableLength > len(table) {
		return fmt.Errorf("partition map table of %d bytes exceeds descriptor", tableLength)
	}
	table = table[:tableLength]
	l.PartitionMaps = l.PartitionMaps[:0]
	for i, off := 0, 0; i < count; i++ {
		if off+2 > len(table) {
			return fmt.Errorf("partition map %d truncated", i)
		}
		mapType, mapLength := table[off], int(table[off+1])
		if mapLength < 2 || off+mapLength > len(table) {
			return fmt.Errorf("partition map %d has invalid length %d", i, mapLength)
		}
		number := uint16(unmappedPartition)
		if mapType == 1 && mapLength >= 6 {
			number = binary.LittleEndian.Uint16(table[off+4 : off+6])
		}
		l.PartitionMaps = append(l.PartitionMaps, number)
		off += mapLength
	}
	return nil
}

// FileSetDescriptor (ECMA-167 4/14.1).
type FileSetDescriptor struct {
	RootDirectoryICB LongAD
}

func (f *FileSetDescriptor) Unmarshal(data []byte) error {
	if len(data) < 416 {
		return errShortDescriptor
	}
	f.RootDirectoryICB.Unmarshal(data[400:416])
	return nil
}

// FileEntry holds the fields shared by File Entries (ECMA-167 4/14.9) and Extended File Entries
// (ECMA-167 4/14.17) that the walker needs.
type FileEntry struct {
	FileType              uint8
	ICBFlags              uint16
	InformationLength     uint64
	AllocationDescriptors []byte
}

func (f *FileEntry) Unmarshal(data []byte, extended bool) error {
	base := fileEntryBaseSize
	lengths := 168
	if extended {
		base = extendedFileEntryBaseSize
		lengths = 208
	}
	if len(data) < base {
		return errShortDescriptor
	}
	f.FileType = data[27]
	f.ICBFlags = binary.LittleEndian.Uint16(data[34:36])
	f.InformationLength = binary.LittleEndian.Uint64(data[56:64])
	eaLength := int(binary.LittleEndian.Uint32(data[lengths : lengths+4]))
	adLength := int(binary.LittleEndian.Uint32(data[lengths+4 : lengths+8]))
	start := base + eaLength
	if eaLength < 0 || adLength < 0 || start+adLength > len(data) {
		return fmt.Errorf("allocation descriptors (%d+%d bytes) exceed the entry", eaLength, adLength)
	}
	f.AllocationDescriptors = data[start : start+adLength]
	return nil
}

// IsDirectory reports whether the entry describes a directory.
func (f *FileEntry) IsDirectory() bool {
	return f.FileType == FileTypeDirectory
}

// ADType returns the allocation descriptor kind of the entry.
func (f *FileEntry) ADType() int {
	return int(f.ICBFlags & 0x7)
}

// FileIdentifier is one File Identifier Descriptor of a directory (ECMA-167 4/14.4).
type FileIdentifier struct {
	Characteristics uint8
	ICB             LongAD
	Name            string
	size            int
}

// Unmarshal decodes the descriptor at the start of data.
func (f *FileIdentifier) Unmarshal(data []byte) error {
	if len(data) < fileIdentifierBaseSize {
		return errShortDescriptor
	}
	var tag Tag
	if err := tag.Unmarshal(data); err != nil {
		return err
	}
	if tag.Identifier != consts.UDF_TAG_FILE_IDENTIFIER {
		return fmt.Errorf("expected file identifier descriptor, found tag %d", tag.Identifier)
	}
	f.Characteristics = data[18]
	nameLength := int(data[19])
	f.ICB.Unmarshal(data[20:36])
	useLength := int(binary.LittleEndian.Uint16(data[36:38]))
	end := fileIdentifierBaseSize + useLength + nameLength
	if end > len(data) {
		return errShortDescriptor
	}
	name, err := encoding.DecodeCS0(data[fileIdentifierBaseSize+useLength : end])
	if err != nil {
		return err
	}
	f.Name = name
	f.size = (end + 3) &^ 3
	return nil
}

// Size returns the padded length of the descriptor.
func (f *FileIdentifier) Size() int {
	return f.size
}
