package filesystem

import (
	"github.com/bgrewell/dvd-kit/pkg/consts"
)

// Extent is a run of consecutive logical blocks holding part of a file.
type Extent struct {
	// Absolute logical block number of the first block
	Block uint32 `json:"block"`
	// Number of bytes of the file stored in the run
	Length uint32 `json:"length"`
}

// Blocks returns the number of logical blocks the extent covers.
func (e Extent) Blocks() uint32 {
	return uint32((uint64(e.Length) + consts.DVD_VIDEO_LB_LEN - 1) / consts.DVD_VIDEO_LB_LEN)
}

// FileLocation is the resolved position of one file on a volume. Image and device backed volumes describe the
// file with Extents, directory backed volumes with HostPath. A FileLocation is never modified after it is
// returned by a Resolver.
type FileLocation struct {
	// Path the file was resolved from, e.g. "/VIDEO_TS/VTS_01_1.VOB"
	Path string `json:"path"`
	// Extents in file order
	Extents []Extent `json:"extents,omitempty"`
	// Size of the file in bytes
	Size int64 `json:"size"`
	// Path of the file on the host, only set for directory backed volumes
	HostPath string `json:"host_path,omitempty"`
}

// Block returns the first logical block of the file, or 0 when it has no extents.
func (l FileLocation) Block() uint32 {
	if len(l.Extents) == 0 {
		return 0
	}
	return l.Extents[0].Block
}

// Blocks returns the number of logical blocks the file occupies.
func (l FileLocation) Blocks() int64 {
	return (l.Size + consts.DVD_VIDEO_LB_LEN - 1) / consts.DVD_VIDEO_LB_LEN
}

// FileStat describes the size of a DVD-Video file. Only title VOBs have more than one part.
type FileStat struct {
	Size      int64   `json:"size"`
	NrParts   int     `json:"nr_parts"`
	PartsSize []int64 `json:"parts_size"`
}

// NewFileStat builds a FileStat for the given parts.
func NewFileStat(parts []FileLocation) FileStat {
	stat := FileStat{NrParts: len(parts), PartsSize: make([]int64, 0, len(parts))}
	for _, p := range parts {
		stat.PartsSize = append(stat.PartsSize, p.Size)
		stat.Size += p.Size
	}
	return stat
}
