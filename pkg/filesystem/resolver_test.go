package filesystem

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileName(t *testing.T) {
	cases := []struct {
		title  int
		domain Domain
		part   int
		want   string
	}{
		{0, DomainInfoFile, 0, "VIDEO_TS.IFO"},
		{0, DomainBackupFile, 0, "VIDEO_TS.BUP"},
		{0, DomainMenuVobs, 0, "VIDEO_TS.VOB"},
		{1, DomainInfoFile, 0, "VTS_01_0.IFO"},
		{12, DomainBackupFile, 0, "VTS_12_0.BUP"},
		{99, DomainMenuVobs, 0, "VTS_99_0.VOB"},
		{1, DomainTitleVobs, 1, "VTS_01_1.VOB"},
		{7, DomainTitleVobs, 9, "VTS_07_9.VOB"},
	}
	for _, tc := range cases {
		got, err := FileName(tc.title, tc.domain, tc.part)
		require.NoError(t, err)
		assert.Equal(t, tc.want, got)
	}
}

func TestFileNameInvalid(t *testing.T) {
	for _, tc := range []struct {
		title  int
		domain Domain
		part   int
	}{
		{-1, DomainInfoFile, 0},
		{100, DomainInfoFile, 0},
		{0, DomainTitleVobs, 1},
		{1, DomainTitleVobs, 0},
		{1, DomainTitleVobs, 10},
		{1, Domain(42), 0},
	} {
		_, err := FileName(tc.title, tc.domain, tc.part)
		assert.True(t, errors.Is(err, ErrNotFound), "title=%d domain=%v part=%d", tc.title, tc.domain, tc.part)
	}
}

func TestSplitPathAndCacheKey(t *testing.T) {
	assert.Equal(t, []string{"VIDEO_TS", "VTS_01_0.IFO"}, SplitPath("/VIDEO_TS/VTS_01_0.IFO"))
	assert.Equal(t, []string{"video_ts", "a.vob"}, SplitPath("video_ts//./a.vob"))
	assert.Equal(t, []string{"VIDEO_TS"}, SplitPath(`\VIDEO_TS\`))
	assert.Nil(t, SplitPath("/"))

	assert.Equal(t, "/VIDEO_TS/VTS_01_0.IFO", CacheKey("video_ts/vts_01_0.ifo"))
	assert.Equal(t, CacheKey("/VIDEO_TS/VIDEO_TS.IFO"), CacheKey("/video_ts/video_ts.ifo"))
}

func TestExtentBlocks(t *testing.T) {
	assert.Equal(t, uint32(0), Extent{Block: 10}.Blocks())
	assert.Equal(t, uint32(1), Extent{Block: 10, Length: 1}.Blocks())
	assert.Equal(t, uint32(1), Extent{Block: 10, Length: 2048}.Blocks())
	assert.Equal(t, uint32(2), Extent{Block: 10, Length: 2049}.Blocks())
	assert.Equal(t, uint32(0x80000), Extent{Length: 0x3FFFF800 + 0x800}.Blocks())
}

func TestNewFileStat(t *testing.T) {
	stat := NewFileStat([]FileLocation{{Size: 1073741824}, {Size: 536870912}})
	assert.Equal(t, int64(1610612736), stat.Size)
	assert.Equal(t, 2, stat.NrParts)
	assert.Equal(t, []int64{1073741824, 536870912}, stat.PartsSize)
}

func TestStrings(t *testing.T) {
	assert.Equal(t, "image file", BackingImageFile.String())
	assert.Equal(t, "title", DomainTitleVobs.String())
	assert.Equal(t, "Domain(9)", Domain(9).String())
}
