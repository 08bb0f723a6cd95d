//go:build !linux

package blocksource

import (
	"io"
	"os"
)

func deviceSize(f *os.File) (int64, error) {
	return f.Seek(0, io.SeekEnd)
}
