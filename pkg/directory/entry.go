package directory

import (
	"fmt"

	"github.com/bgrewell/dvd-kit/pkg/consts"
)

// ParseDirectory decodes every record of a directory extent. Records never cross a sector boundary; a zero
// length byte means the rest of the sector is padding.
func ParseDirectory(data []byte) ([]*DirectoryRecord, error) {
	var records []*DirectoryRecord
	for off := 0; off < len(data); {
		length := int(data[off])
		if length == 0 {
			off = (off/consts.ISO9660_SECTOR_SIZE + 1) * consts.ISO9660_SECTOR_SIZE
			continue
		}
		sectorEnd := (off/consts.ISO9660_SECTOR_SIZE + 1) * consts.ISO9660_SECTOR_SIZE
		if sectorEnd > len(data) {
			sectorEnd = len(data)
		}
		if off+length > sectorEnd {
			return nil, fmt.Errorf("record at offset %d crosses a sector boundary", off)
		}
		dr := &DirectoryRecord{}
		if err := dr.Unmarshal(data[off : off+length]); err != nil {
			return nil, fmt.Errorf("record at offset %d: %w", off, err)
		}
		records = append(records, dr)
		off += length
	}
	return records, nil
}

// Entry is a file made of one or more consecutive directory records. Files larger than a single extent set
// the multi-extent flag on every record except the last.
type Entry struct {
	Records []*DirectoryRecord
}

// Name returns the name shared by the entry's records.
func (e *Entry) Name() string {
	return e.Records[0].Name()
}

func (e *Entry) IsDir() bool {
	return e.Records[0].IsDir()
}

// Size returns the summed data length of the entry's records.
func (e *Entry) Size() int64 {
	var size int64
	for _, r := range e.Records {
		size += int64(r.DataLength)
	}
	return size
}

// GroupEntries joins multi-extent records into entries and drops the self and parent records.
func GroupEntries(records []*DirectoryRecord) ([]*Entry, error) {
	var (
		entries []*Entry
		current *Entry
	)
	for _, r := range records {
		if r.IsSpecial() {
			continue
		}
		if current != nil && current.Name() != r.Name() {
			return nil, fmt.Errorf("multi-extent file %q is followed by %q", current.Name(), r.Name())
		}
		if current == nil {
			current = &Entry{}
		}
		current.Records = append(current.Records, r)
		if !r.FileFlags.MultiExtent() {
			entries = append(entries, current)
			current = nil
		}
	}
	if current != nil {
		return nil, fmt.Errorf("multi-extent file %q has no final record", current.Name())
	}
	return entries, nil
}
