package options

import (
	"github.com/bgrewell/dvd-kit/pkg/consts"
	"github.com/go-logr/logr"
)

// ProgressCallback defines the signature for progress update functions.
type ProgressCallback func(
	currentFilename string,
	bytesTransferred int64,
	totalBytes int64,
	currentFileNumber int,
	totalFileCount int,
)

// Options represents the options for opening a DVD-Video volume
type Options struct {
	FileSystem       consts.FileSystem
	CacheLevel       int
	LegacyDiscID     bool
	Logger           logr.Logger
	ProgressCallback ProgressCallback
}

// Option represents a function that modifies the Options
type Option func(*Options)

// Defaults returns the options used when no Option is supplied.
func Defaults() Options {
	return Options{
		FileSystem: consts.FILESYSTEM_AUTO,
		CacheLevel: consts.CACHE_LEVEL_ENABLED,
		Logger:     logr.Discard(),
	}
}

// WithProgress sets a progress callback function that will be called with progress updates during extraction.
// Parameters:
// - currentFilename: The name of the file currently being copied.
// - bytesTransferred: The number of bytes transferred so far for the current file.
// - totalBytes: The total number of bytes to be transferred for the current file.
// - currentFileNumber: The index of the current file being processed.
// - totalFileCount: The total number of files to be processed.
func WithProgress(callback ProgressCallback) Option {
	return func(o *Options) {
		o.ProgressCallback = callback
	}
}

// WithFileSystem forces images and devices to be read through UDF or ISO9660 instead of probing UDF first.
func WithFileSystem(fs consts.FileSystem) Option {
	return func(o *Options) {
		o.FileSystem = fs
	}
}

// WithCacheLevel sets the initial metadata cache level of the volume (0 disabled, 1 enabled).
func WithCacheLevel(level int) Option {
	return func(o *Options) {
		o.CacheLevel = level
	}
}

// WithLegacyDiscID limits the disc identifier to VIDEO_TS.IFO and VTS_01_0.IFO through VTS_09_0.IFO, which
// reproduces the identifiers computed by older players.
func WithLegacyDiscID(enabled bool) Option {
	return func(o *Options) {
		o.LegacyDiscID = enabled
	}
}

// WithLogger sets the Logger for the volume
func WithLogger(logger logr.Logger) Option {
	return func(o *Options) {
		o.Logger = logger
	}
}
