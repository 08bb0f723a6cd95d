package pkg

import (
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/bgrewell/dvd-kit/pkg/consts"
	"github.com/bgrewell/dvd-kit/pkg/filesystem"
	"github.com/bgrewell/dvd-kit/pkg/logging"
)

// legacyDiscIDTitles is the last title set hashed by legacy disc ids.
const legacyDiscIDTitles = 9

// DiscID is the MD5 digest identifying a DVD-Video disc.
type DiscID [md5.Size]byte

// String renders the id as 32 lowercase hex digits, byte 0 first.
func (d DiscID) String() string {
	return hex.EncodeToString(d[:])
}

// DiscID hashes VIDEO_TS.IFO followed by every present VTS_nn_0.IFO in ascending order. The result is computed
// once per volume. A missing VIDEO_TS.IFO is an error.
func (r *DVDReader) DiscID() (DiscID, error) {
	if err := r.checkOpen(); err != nil {
		return DiscID{}, err
	}
	if r.discID != nil {
		return *r.discID, nil
	}

	last := consts.DVD_MAX_TITLE
	if r.Options.LegacyDiscID {
		last = legacyDiscIDTitles
	}

	h := md5.New()
	hashed := 0
	for title := 0; title <= last; title++ {
		parts, err := r.parts(title, filesystem.DomainInfoFile)
		if err != nil {
			if title > 0 && errors.Is(err, filesystem.ErrNotFound) {
				continue
			}
			return DiscID{}, fmt.Errorf("disc id: %w", err)
		}

		stream := r.stream(parts)
		data := make([]byte, stream.Len())
		_, err = stream.ReadAt(data, 0)
		if cerr := stream.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			return DiscID{}, fmt.Errorf("disc id: %s: %w", parts[0].Path, err)
		}
		h.Write(data)
		hashed++
	}

	var id DiscID
	copy(id[:], h.Sum(nil))
	r.discID = &id
	r.logger.V(logging.DEBUG).Info("Computed disc id", "id", id.String(), "files", hashed, "legacy", r.Options.LegacyDiscID)
	return id, nil
}
