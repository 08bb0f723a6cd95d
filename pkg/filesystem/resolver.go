package filesystem

import (
	"fmt"
	"path"
	"strings"

	"github.com/bgrewell/dvd-kit/pkg/consts"
)

// Resolver turns an absolute volume path such as "/VIDEO_TS/VIDEO_TS.IFO" into a FileLocation. Lookups are
// case-insensitive. The three implementations are the UDF walker, the ISO9660 walker, and the host directory
// resolver.
type Resolver interface {
	Resolve(name string) (FileLocation, error)
	Name() string
}

// BackingKind is the kind of medium a volume was opened from.
type BackingKind int

const (
	BackingBlockDevice BackingKind = iota
	BackingDirectory
	BackingImageFile
)

func (k BackingKind) String() string {
	switch k {
	case BackingBlockDevice:
		return "block device"
	case BackingDirectory:
		return "directory"
	case BackingImageFile:
		return "image file"
	default:
		return fmt.Sprintf("BackingKind(%d)", int(k))
	}
}

// Domain selects which file of a title set is addressed.
type Domain int

const (
	// DomainInfoFile is VIDEO_TS.IFO or VTS_nn_0.IFO
	DomainInfoFile Domain = iota
	// DomainBackupFile is VIDEO_TS.BUP or VTS_nn_0.BUP
	DomainBackupFile
	// DomainMenuVobs is VIDEO_TS.VOB or VTS_nn_0.VOB
	DomainMenuVobs
	// DomainTitleVobs is VTS_nn_1.VOB through VTS_nn_9.VOB
	DomainTitleVobs
)

func (d Domain) String() string {
	switch d {
	case DomainInfoFile:
		return "info"
	case DomainBackupFile:
		return "backup"
	case DomainMenuVobs:
		return "menu"
	case DomainTitleVobs:
		return "title"
	default:
		return fmt.Sprintf("Domain(%d)", int(d))
	}
}

// FileName returns the canonical upper-case name of a title set file. part is only used for DomainTitleVobs
// and counts from 1.
func FileName(title int, domain Domain, part int) (string, error) {
	if title < 0 || title > consts.DVD_MAX_TITLE {
		return "", fmt.Errorf("%w: title %d out of range", ErrNotFound, title)
	}
	var ext string
	switch domain {
	case DomainInfoFile:
		ext = "IFO"
	case DomainBackupFile:
		ext = "BUP"
	case DomainMenuVobs:
		ext = "VOB"
	case DomainTitleVobs:
		if title == 0 {
			return "", fmt.Errorf("%w: video manager has no title vobs", ErrNotFound)
		}
		if part < 1 || part > consts.DVD_MAX_PARTS {
			return "", fmt.Errorf("%w: part %d out of range", ErrNotFound, part)
		}
		return fmt.Sprintf("VTS_%02d_%d.VOB", title, part), nil
	default:
		return "", fmt.Errorf("%w: unknown domain %d", ErrNotFound, int(domain))
	}
	if title == 0 {
		return "VIDEO_TS." + ext, nil
	}
	return fmt.Sprintf("VTS_%02d_0.%s", title, ext), nil
}

// VolumePath returns the absolute volume path of a file inside the VIDEO_TS directory.
func VolumePath(name string) string {
	return "/" + consts.DVD_VIDEO_DIRECTORY + "/" + name
}

// SplitPath cleans an absolute or relative volume path and returns its non-empty segments.
func SplitPath(name string) []string {
	cleaned := path.Clean("/" + strings.ReplaceAll(name, "\\", "/"))
	var segments []string
	for _, s := range strings.Split(cleaned, "/") {
		if s != "" {
			segments = append(segments, s)
		}
	}
	return segments
}

// CacheKey normalizes a volume path for case-insensitive caching.
func CacheKey(name string) string {
	return strings.ToUpper("/" + strings.Join(SplitPath(name), "/"))
}
