package directory

import (
	"fmt"
	"strings"
)

// FileFlags is the file flags byte of a directory record (ECMA-119 9.1.6).
type FileFlags uint8

const (
	FlagExistence      FileFlags = 0x01
	FlagDirectory      FileFlags = 0x02
	FlagAssociatedFile FileFlags = 0x04
	FlagRecord         FileFlags = 0x08
	FlagProtection     FileFlags = 0x10
	FlagMultiExtent    FileFlags = 0x80
)

// Hidden reports the existence bit, which hides the file from the user when set.
func (ff FileFlags) Hidden() bool {
	return ff&FlagExistence != 0
}

func (ff FileFlags) Directory() bool {
	return ff&FlagDirectory != 0
}

func (ff FileFlags) AssociatedFile() bool {
	return ff&FlagAssociatedFile != 0
}

// MultiExtent reports that the file continues in the next directory record.
func (ff FileFlags) MultiExtent() bool {
	return ff&FlagMultiExtent != 0
}

func (ff FileFlags) String() string {
	var set []string
	for _, f := range []struct {
		flag FileFlags
		name string
	}{
		{FlagExistence, "Existence"},
		{FlagDirectory, "Directory"},
		{FlagAssociatedFile, "AssociatedFile"},
		{FlagRecord, "Record"},
		{FlagProtection, "Protection"},
		{FlagMultiExtent, "MultiExtent"},
	} {
		if ff&f.flag != 0 {
			set = append(set, f.name)
		}
	}
	if len(set) == 0 {
		return fmt.Sprintf("0x%02x", uint8(ff))
	}
	return strings.Join(set, "|")
}
