package dvd

import (
	"fmt"

	"github.com/bgrewell/dvd-kit/pkg"
	"github.com/bgrewell/dvd-kit/pkg/consts"
	"github.com/bgrewell/dvd-kit/pkg/filesystem"
	"github.com/bgrewell/dvd-kit/pkg/options"
)

// Domain selects which file of a title set is opened.
type Domain = filesystem.Domain

const (
	DomainInfoFile   = filesystem.DomainInfoFile
	DomainBackupFile = filesystem.DomainBackupFile
	DomainMenuVobs   = filesystem.DomainMenuVobs
	DomainTitleVobs  = filesystem.DomainTitleVobs
)

type (
	BackingKind  = filesystem.BackingKind
	FileStat     = filesystem.FileStat
	FileLocation = filesystem.FileLocation
	VolumeInfo   = pkg.VolumeInfo
	DiscID       = pkg.DiscID
	File         = pkg.File
)

// Error kinds returned by every operation.
var (
	ErrIO            = filesystem.ErrIO
	ErrNotFound      = filesystem.ErrNotFound
	ErrCorruptVolume = filesystem.ErrCorruptVolume
	ErrPrecondition  = filesystem.ErrPrecondition
)

// Open opens a DVD-Video volume from a block device, an image file or a directory
func Open(location string, opts ...options.Option) (Reader, error) {
	// Set default options
	options := options.Defaults()

	// Apply options
	for _, opt := range opts {
		opt(&options)
	}

	// Validate file system selection
	switch options.FileSystem {
	case consts.FILESYSTEM_AUTO, consts.FILESYSTEM_UDF, consts.FILESYSTEM_ISO9660:
	default:
		return nil, fmt.Errorf("%w: unsupported file system: %d", filesystem.ErrPrecondition, options.FileSystem)
	}

	reader, err := pkg.Open(location, options)
	if err != nil {
		return nil, err
	}
	return reader, nil
}

// Reader represents an opened DVD-Video volume
type Reader interface {
	Kind() BackingKind
	Location() string
	Stat(title int, domain Domain) (FileStat, error)
	OpenFile(title int, domain Domain) (*File, error)
	FindFile(path string) (FileLocation, error)
	Titles() ([]int, error)
	DiscID() (DiscID, error)
	UDFVolumeInfo() (VolumeInfo, error)
	ISOVolumeInfo() (VolumeInfo, error)
	UDFCacheLevel(level int) int
	Extract(outputDir string, titles ...int) error
	Close() error
}
