package pkg

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/bgrewell/dvd-kit/pkg/consts"
	"github.com/bgrewell/dvd-kit/pkg/filesystem"
	"github.com/bgrewell/dvd-kit/pkg/logging"
)

// extractBlocks is the number of blocks copied per read during extraction.
const extractBlocks = 512

// extractItem is one file copied by Extract.
type extractItem struct {
	name string
	loc  filesystem.FileLocation
}

// Titles returns the title sets present on the volume: 0 for the video manager plus every title whose info
// file resolves.
func (r *DVDReader) Titles() ([]int, error) {
	if err := r.checkOpen(); err != nil {
		return nil, err
	}
	var titles []int
	for title := 0; title <= consts.DVD_MAX_TITLE; title++ {
		_, err := r.parts(title, filesystem.DomainInfoFile)
		if errors.Is(err, filesystem.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		titles = append(titles, title)
	}
	return titles, nil
}

// extractItems lists the files of a title set. Domains the title set lacks are skipped.
func (r *DVDReader) extractItems(title int) ([]extractItem, error) {
	var items []extractItem
	for _, domain := range []filesystem.Domain{filesystem.DomainInfoFile, filesystem.DomainBackupFile,
		filesystem.DomainMenuVobs, filesystem.DomainTitleVobs} {
		if title == 0 && domain == filesystem.DomainTitleVobs {
			continue
		}
		parts, err := r.parts(title, domain)
		if errors.Is(err, filesystem.ErrNotFound) {
			r.logger.V(logging.TRACE).Info("Skipping missing domain", "title", title, "domain", domain.String())
			continue
		}
		if err != nil {
			return nil, err
		}
		for i, p := range parts {
			name, err := filesystem.FileName(title, domain, i+1)
			if err != nil {
				return nil, err
			}
			items = append(items, extractItem{name: name, loc: p})
		}
	}
	return items, nil
}

// Extract copies the files of the given title sets, or of every title set when none are given, to
// outputDir/VIDEO_TS using the canonical upper-case names. Progress is reported through
// Options.ProgressCallback.
func (r *DVDReader) Extract(outputDir string, titles ...int) error {
	if err := r.checkOpen(); err != nil {
		return err
	}
	r.logger.V(logging.DEBUG).Info("Extracting title sets", "outputDir", outputDir, "titles", titles)

	if len(titles) == 0 {
		var err error
		if titles, err = r.Titles(); err != nil {
			return err
		}
	}
	var items []extractItem
	for _, title := range titles {
		titleItems, err := r.extractItems(title)
		if err != nil {
			return fmt.Errorf("failed to list title %d: %w", title, err)
		}
		if len(titleItems) == 0 {
			return fmt.Errorf("%w: title %d", filesystem.ErrNotFound, title)
		}
		items = append(items, titleItems...)
	}

	target := filepath.Join(outputDir, consts.DVD_VIDEO_DIRECTORY)
	if err := os.MkdirAll(target, os.ModePerm); err != nil {
		return fmt.Errorf("%w: failed to create directory %s: %w", filesystem.ErrIO, target, err)
	}
	for i, item := range items {
		if err := r.extractFileWithProgress(item, filepath.Join(target, item.name), i+1, len(items)); err != nil {
			return fmt.Errorf("failed to extract file %s: %w", item.name, err)
		}
	}
	return nil
}

// extractFileWithProgress copies one part to fullPath, reporting progress after every chunk.
func (r *DVDReader) extractFileWithProgress(item extractItem, fullPath string, currentFileNumber int, totalFileCount int) error {
	outFile, err := os.Create(fullPath)
	if err != nil {
		return fmt.Errorf("%w: failed to create file %s: %w", filesystem.ErrIO, fullPath, err)
	}
	defer outFile.Close()

	stream := r.stream([]filesystem.FileLocation{item.loc})
	defer stream.Close()

	size := item.loc.Size
	buffer := make([]byte, extractBlocks*consts.DVD_VIDEO_LB_LEN)
	bytesTransferred := int64(0)
	for bytesTransferred < size {
		n := int64(len(buffer))
		if remaining := size - bytesTransferred; remaining < n {
			n = remaining
		}
		if _, err := stream.ReadAt(buffer[:n], bytesTransferred); err != nil {
			return err
		}
		if _, err := outFile.Write(buffer[:n]); err != nil {
			return fmt.Errorf("%w: failed to write to file %s: %w", filesystem.ErrIO, fullPath, err)
		}
		bytesTransferred += n

		if r.Options.ProgressCallback != nil {
			r.Options.ProgressCallback(
				item.name,         // currentFilename
				bytesTransferred,  // bytesTransferred
				size,              // totalBytes
				currentFileNumber, // currentFileNumber
				totalFileCount,    // totalFileCount
			)
		}
	}
	if size == 0 && r.Options.ProgressCallback != nil {
		r.Options.ProgressCallback(item.name, 0, 0, currentFileNumber, totalFileCount)
	}

	if err := outFile.Close(); err != nil {
		return fmt.Errorf("%w: failed to close file %s: %w", filesystem.ErrIO, fullPath, err)
	}
	return nil
}
