package testing

import (
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/bgrewell/dvd-kit/pkg/encoding"
)

const blockSize = 2048

// Fixed positions used by the builders.
const (
	udfVDSBlock        = 32
	udfReserveVDSBlock = 48
	udfAnchorBlock     = 256
	udfPartitionStart  = 257
	maxADLength        = 0x3FFFF800
)

// File is a file placed in the DVD-Video directory of a synthetic volume.
type File struct {
	// Name inside the VIDEO_TS directory, e.g. "VTS_01_1.VOB"
	Name string
	// Content stored on the volume
	Data []byte
	// Declared size when larger than Data. The bytes past Data are not stored in images, and the file is
	// placed after every stored file so reads of that range fail.
	Size int64
}

func (f File) size() int64 {
	if f.Size > int64(len(f.Data)) {
		return f.Size
	}
	return int64(len(f.Data))
}

func (f File) sparse() bool {
	return f.Size > int64(len(f.Data))
}

// Volume describes a synthetic DVD-Video volume.
type Volume struct {
	VolumeIdentifier    string
	VolumeSetIdentifier string
	// Name of the video directory, VIDEO_TS when empty
	Directory string
	Files     []File
	// ExtendedEntries writes Extended File Entries instead of File Entries
	ExtendedEntries bool
	// LongADs writes long allocation descriptors instead of short ones
	LongADs bool
	// UCS2Names writes 16-bit file identifiers
	UCS2Names bool
	// ISOExtentLimit splits ISO9660 files larger than the limit into multi-extent records
	ISOExtentLimit uint32
}

func (v Volume) directory() string {
	if v.Directory == "" {
		return "VIDEO_TS"
	}
	return v.Directory
}

// Image is a built volume plus the positions of its structures.
type Image struct {
	Data []byte
	// First absolute data block per file name
	FileBlocks map[string]uint32
	// Absolute block of the UDF file entry per file name
	EntryBlocks map[string]uint32
	// Absolute block of the UDF file entry of the video directory
	DirectoryEntryBlock uint32
}

type placed struct {
	File
	block uint32
}

type builder struct {
	img    *Image
	volume Volume
	files  []placed
}

func newBuilder(v Volume) *builder {
	return &builder{
		img:    &Image{FileBlocks: map[string]uint32{}, EntryBlocks: map[string]uint32{}},
		volume: v,
	}
}

// put writes data at the given block, growing the image as needed.
func (b *builder) put(block uint32, data []byte) {
	end := int(block)*blockSize + len(data)
	if end > len(b.img.Data) {
		grown := make([]byte, (end+blockSize-1)/blockSize*blockSize)
		copy(grown, b.img.Data)
		b.img.Data = grown
	}
	copy(b.img.Data[int(block)*blockSize:], data)
}

// placeFiles lays out stored files from block first, sparse files after them, and returns the next free block.
func (b *builder) placeFiles(first uint32) uint32 {
	next := first
	for _, sparse := range []bool{false, true} {
		for _, f := range b.volume.Files {
			if f.sparse() != sparse {
				continue
			}
			b.files = append(b.files, placed{File: f, block: next})
			b.img.FileBlocks[f.Name] = next
			if !sparse {
				b.put(next, f.Data)
			}
			next += uint32((f.size() + blockSize - 1) / blockSize)
		}
	}
	return next
}

func (b *builder) finish(minBlocks uint32) *Image {
	if len(b.img.Data) < int(minBlocks)*blockSize {
		b.put(minBlocks-1, make([]byte, blockSize))
	}
	return b.img
}

// BuildUDF returns a UDF-only volume.
func BuildUDF(v Volume) *Image {
	b := newBuilder(v)
	b.writeVRS(16)
	b.writeUDF()
	return b.img
}

// BuildISO returns an ISO9660-only volume.
func BuildISO(v Volume) *Image {
	b := newBuilder(v)
	dirBlocks := b.isoDirectoryBlocks()
	dataStart := uint32(19) + dirBlocks
	b.placeFiles(dataStart)
	b.writeISO(18, 19)
	return b.finish(dataStart + 1)
}

// BuildBridge returns a volume carrying both ISO9660 and UDF structures that share the file data.
func BuildBridge(v Volume) *Image {
	b := newBuilder(v)
	b.writeVRS(18)
	b.writeUDF()
	b.writeISO(21, 22)
	return b.img
}

func (b *builder) writeVRS(first uint32) {
	for i, id := range []string{"BEA01", "NSR02", "TEA01"} {
		d := make([]byte, blockSize)
		copy(d[1:6], id)
		d[6] = 1
		b.put(first+uint32(i), d)
	}
}

// UDF structures.

func setTag(d []byte, id uint16, location uint32) {
	binary.LittleEndian.PutUint16(d[0:2], id)
	binary.LittleEndian.PutUint16(d[2:4], 2)
	binary.LittleEndian.PutUint32(d[12:16], location)
	var sum uint8
	for i := 0; i < 16; i++ {
		if i != 4 {
			sum += d[i]
		}
	}
	d[4] = sum
}

func dstring(field []byte, s string) {
	raw := encoding.EncodeLatin1(s)
	if len(raw) > len(field)-2 {
		raw = raw[:len(field)-2]
	}
	if len(raw) == 0 {
		return
	}
	field[0] = encoding.CompressionLatin1
	copy(field[1:], raw)
	field[len(field)-1] = byte(len(raw) + 1)
}

func putLongAD(d []byte, length, lbn uint32, partition uint16) {
	binary.LittleEndian.PutUint32(d[0:4], length)
	binary.LittleEndian.PutUint32(d[4:8], lbn)
	binary.LittleEndian.PutUint16(d[8:10], partition)
}

func (b *builder) identifier(name string) []byte {
	if b.volume.UCS2Names {
		out := []byte{encoding.CompressionUCS2}
		for _, r := range name {
			out = append(out, byte(r>>8), byte(r))
		}
		return out
	}
	return append([]byte{encoding.CompressionLatin1}, encoding.EncodeLatin1(name)...)
}

// fid encodes a File Identifier Descriptor pointing at lbn.
func (b *builder) fid(name string, characteristics byte, lbn uint32, location uint32) []byte {
	var id []byte
	if name != "" {
		id = b.identifier(name)
	}
	size := (38 + len(id) + 3) &^ 3
	d := make([]byte, size)
	binary.LittleEndian.PutUint16(d[16:18], 1)
	d[18] = characteristics
	d[19] = byte(len(id))
	putLongAD(d[20:36], blockSize, lbn, 0)
	copy(d[38:], id)
	setTag(d, 257, location)
	return d
}

// entry encodes a File Entry or Extended File Entry at lbn whose data starts at absolute block dataBlock.
func (b *builder) entry(lbn uint32, fileType byte, size int64, dataBlock uint32) []byte {
	var ads []byte
	remaining := size
	next := dataBlock - udfPartitionStart
	for remaining > 0 || len(ads) == 0 {
		chunk := remaining
		if chunk > maxADLength {
			chunk = maxADLength
		}
		if b.volume.LongADs {
			ad := make([]byte, 16)
			putLongAD(ad, uint32(chunk), next, 0)
			ads = append(ads, ad...)
		} else {
			ad := make([]byte, 8)
			binary.LittleEndian.PutUint32(ad[0:4], uint32(chunk))
			binary.LittleEndian.PutUint32(ad[4:8], next)
			ads = append(ads, ad...)
		}
		next += uint32((chunk + blockSize - 1) / blockSize)
		remaining -= chunk
		if size == 0 {
			break
		}
	}

	d := make([]byte, blockSize)
	tagID, base, lengths := uint16(261), 176, 168
	if b.volume.ExtendedEntries {
		tagID, base, lengths = 266, 216, 208
	}
	binary.LittleEndian.PutUint16(d[20:22], 4) // strategy type
	d[27] = fileType
	flags := uint16(0)
	if b.volume.LongADs {
		flags = 1
	}
	binary.LittleEndian.PutUint16(d[34:36], flags)
	binary.LittleEndian.PutUint64(d[56:64], uint64(size))
	binary.LittleEndian.PutUint32(d[lengths:lengths+4], 0)
	binary.LittleEndian.PutUint32(d[lengths+4:lengths+8], uint32(len(ads)))
	copy(d[base:], ads)
	setTag(d, tagID, lbn)
	return d
}

func (b *builder) writeUDF() {
	const (
		fsdLBN     = 0
		rootFELBN  = 1
		rootDirLBN = 2
		vtsFELBN   = 3
		vtsDirLBN  = 4
	)
	dir := b.volume.directory()

	// Directory contents.
	root := b.fid("", 0x0A, rootFELBN, rootDirLBN)
	root = append(root, b.fid(dir, 0x02, vtsFELBN, rootDirLBN)...)

	vts := b.fid("", 0x0A, rootFELBN, vtsDirLBN)
	vtsBlocks := uint32((len(vts) + len(b.volume.Files)*(38+1+2*12+4) + blockSize - 1) / blockSize)
	firstEntry := vtsDirLBN + vtsBlocks
	entryOf := map[string]uint32{}
	for i, f := range b.volume.Files {
		entryOf[f.Name] = firstEntry + uint32(i)
		vts = append(vts, b.fid(f.Name, 0, entryOf[f.Name], vtsDirLBN)...)
	}

	dataStart := udfPartitionStart + firstEntry + uint32(len(b.volume.Files))
	end := b.placeFiles(dataStart)
	partitionLength := end - udfPartitionStart

	// Volume descriptor sequences.
	for _, start := range []uint32{udfVDSBlock, udfReserveVDSBlock} {
		pvd := make([]byte, blockSize)
		dstring(pvd[24:56], b.volume.VolumeIdentifier)
		dstring(pvd[72:200], b.volume.VolumeSetIdentifier)
		setTag(pvd, 1, start)
		b.put(start, pvd)

		pd := make([]byte, blockSize)
		binary.LittleEndian.PutUint32(pd[16:20], 1)
		binary.LittleEndian.PutUint16(pd[20:22], 1)
		binary.LittleEndian.PutUint32(pd[184:188], 1)
		binary.LittleEndian.PutUint32(pd[188:192], udfPartitionStart)
		binary.LittleEndian.PutUint32(pd[192:196], partitionLength)
		setTag(pd, 5, start+1)
		b.put(start+1, pd)

		lvd := make([]byte, blockSize)
		binary.LittleEndian.PutUint32(lvd[16:20], 2)
		binary.LittleEndian.PutUint32(lvd[212:216], blockSize)
		putLongAD(lvd[248:264], blockSize, fsdLBN, 0)
		binary.LittleEndian.PutUint32(lvd[264:268], 6)
		binary.LittleEndian.PutUint32(lvd[268:272], 1)
		lvd[440], lvd[441] = 1, 6
		binary.LittleEndian.PutUint16(lvd[442:444], 1)
		binary.LittleEndian.PutUint16(lvd[444:446], 0)
		setTag(lvd, 6, start+2)
		b.put(start+2, lvd)

		td := make([]byte, blockSize)
		setTag(td, 8, start+3)
		b.put(start+3, td)
	}

	avdp := make([]byte, blockSize)
	binary.LittleEndian.PutUint32(avdp[16:20], 16*blockSize)
	binary.LittleEndian.PutUint32(avdp[20:24], udfVDSBlock)
	binary.LittleEndian.PutUint32(avdp[24:28], 16*blockSize)
	binary.LittleEndian.PutUint32(avdp[28:32], udfReserveVDSBlock)
	setTag(avdp, 2, udfAnchorBlock)
	b.put(udfAnchorBlock, avdp)

	// File set and entries.
	fsd := make([]byte, blockSize)
	putLongAD(fsd[400:416], blockSize, rootFELBN, 0)
	setTag(fsd, 256, fsdLBN)
	b.put(udfPartitionStart+fsdLBN, fsd)

	b.put(udfPartitionStart+rootFELBN, b.entry(rootFELBN, 4, int64(len(root)), udfPartitionStart+rootDirLBN))
	b.put(udfPartitionStart+rootDirLBN, root)
	b.put(udfPartitionStart+vtsFELBN, b.entry(vtsFELBN, 4, int64(len(vts)), udfPartitionStart+vtsDirLBN))
	b.put(udfPartitionStart+vtsDirLBN, vts)
	b.img.DirectoryEntryBlock = udfPartitionStart + vtsFELBN

	for _, p := range b.files {
		lbn := entryOf[p.Name]
		b.put(udfPartitionStart+lbn, b.entry(lbn, 5, p.size(), p.block))
		b.img.EntryBlocks[p.Name] = udfPartitionStart + lbn
	}
}

// ISO9660 structures.

func isoRecord(name []byte, block uint32, size uint32, flags byte) []byte {
	n := 33 + len(name)
	if len(name)%2 == 0 {
		n++
	}
	r := make([]byte, n)
	r[0] = byte(n)
	encoding.WriteInt32LSBMSB(r[2:10], int32(block))
	encoding.WriteInt32LSBMSB(r[10:18], int32(size))
	r[25] = flags
	encoding.WriteInt16LSBMSB(r[28:32], 1)
	r[32] = byte(len(name))
	copy(r[33:], name)
	return r
}

// appendRecord appends rec to dir without letting it cross a block boundary.
func appendRecord(dir []byte, rec []byte) []byte {
	if used := len(dir) % blockSize; used+len(rec) > blockSize {
		dir = append(dir, make([]byte, blockSize-used)...)
	}
	return append(dir, rec...)
}

func (b *builder) isoFileRecords(p placed) [][]byte {
	name := []byte(p.Name + ";1")
	size := p.size()
	limit := int64(b.volume.ISOExtentLimit)
	if limit <= 0 || size <= limit {
		return [][]byte{isoRecord(name, p.block, uint32(size), 0)}
	}
	var recs [][]byte
	block := p.block
	for remaining := size; remaining > 0; {
		chunk, flags := remaining, byte(0)
		if chunk > limit {
			chunk, flags = limit, 0x80
		}
		recs = append(recs, isoRecord(name, block, uint32(chunk), flags))
		block += uint32((chunk + blockSize - 1) / blockSize)
		remaining -= chunk
	}
	return recs
}

func (b *builder) isoDirectoryBlocks() uint32 {
	size := 34 * 2
	for _, f := range b.volume.Files {
		size += 34 + len(f.Name) + 3
		if b.volume.ISOExtentLimit > 0 {
			size += int(f.size()/int64(b.volume.ISOExtentLimit)) * (34 + len(f.Name) + 3)
		}
	}
	return uint32(size/blockSize + 1)
}

func (b *builder) writeISO(rootBlock, dirBlock uint32) {
	dirLength := b.isoDirectoryBlocks() * blockSize

	root := isoRecord([]byte{0}, rootBlock, blockSize, 0x02)
	root = appendRecord(root, isoRecord([]byte{1}, rootBlock, blockSize, 0x02))
	root = appendRecord(root, isoRecord([]byte(b.volume.directory()), dirBlock, dirLength, 0x02))
	b.put(rootBlock, root)

	dir := isoRecord([]byte{0}, dirBlock, dirLength, 0x02)
	dir = appendRecord(dir, isoRecord([]byte{1}, rootBlock, blockSize, 0x02))
	for _, p := range b.files {
		for _, rec := range b.isoFileRecords(p) {
			dir = appendRecord(dir, rec)
		}
	}
	b.put(dirBlock, dir)

	pvd := make([]byte, blockSize)
	pvd[0] = 1
	copy(pvd[1:6], "CD001")
	pvd[6] = 1
	copy(pvd[8:40], encoding.MarshalString("", 32))
	copy(pvd[40:72], encoding.MarshalString(strings.ToUpper(b.volume.VolumeIdentifier), 32))
	encoding.WriteInt32LSBMSB(pvd[80:88], int32(len(b.img.Data)/blockSize))
	encoding.WriteInt16LSBMSB(pvd[120:124], 1)
	encoding.WriteInt16LSBMSB(pvd[124:128], 1)
	encoding.WriteInt16LSBMSB(pvd[128:132], blockSize)
	copy(pvd[156:190], isoRecord([]byte{0}, rootBlock, blockSize, 0x02))
	copy(pvd[190:318], encoding.MarshalString(b.volume.VolumeSetIdentifier, 128))
	pvd[881] = 1
	b.put(16, pvd)

	term := make([]byte, blockSize)
	term[0] = 0xFF
	copy(term[1:6], "CD001")
	term[6] = 1
	b.put(17, term)
}

// WriteImage writes img below dir and returns its path.
func WriteImage(dir, name string, img *Image) (string, error) {
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, img.Data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write image %s: %w", path, err)
	}
	return path, nil
}

// WriteDirectory writes the files of v below root/<v.Directory>. Declared sizes larger than the content
// produce sparse files.
func WriteDirectory(root string, v Volume) error {
	dir := root
	if v.Directory != "." {
		dir = filepath.Join(root, v.directory())
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create %s: %w", dir, err)
	}
	for _, f := range v.Files {
		path := filepath.Join(dir, f.Name)
		if err := os.WriteFile(path, f.Data, 0o644); err != nil {
			return fmt.Errorf("failed to write %s: %w", path, err)
		}
		if f.sparse() {
			if err := os.Truncate(path, f.Size); err != nil {
				return fmt.Errorf("failed to extend %s: %w", path, err)
			}
		}
	}
	return nil
}

// Pattern returns blocks*2048 bytes where every byte of block i is seed+i.
func Pattern(blocks int, seed byte) []byte {
	data := make([]byte, blocks*blockSize)
	for i := 0; i < blocks; i++ {
		for j := 0; j < blockSize; j++ {
			data[i*blockSize+j] = seed + byte(i)
		}
	}
	return data
}
