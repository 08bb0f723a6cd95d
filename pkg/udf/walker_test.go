package udf

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"

	dvdtest "github.com/bgrewell/dvd-kit/internal/testing"
	"github.com/bgrewell/dvd-kit/pkg/blocksource"
	"github.com/bgrewell/dvd-kit/pkg/filesystem"
	"github.com/go-logr/logr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func source(img *dvdtest.Image) *blocksource.Source {
	return blocksource.New(bytes.NewReader(img.Data), int64(len(img.Data)))
}

func sampleVolume() dvdtest.Volume {
	return dvdtest.Volume{
		VolumeIdentifier:    "SAMPLE_DISC",
		VolumeSetIdentifier: "4A3C2B1D SAMPLE SET",
		Files: []dvdtest.File{
			{Name: "VIDEO_TS.IFO", Data: dvdtest.Pattern(6, 0x10)},
			{Name: "VTS_01_0.IFO", Data: dvdtest.Pattern(4, 0x20)},
			{Name: "VTS_01_1.VOB", Data: dvdtest.Pattern(3, 0x30)},
		},
	}
}

func TestResolve(t *testing.T) {
	img := dvdtest.BuildUDF(sampleVolume())
	w, err := New(source(img), logr.Discard())
	require.NoError(t, err)
	assert.Equal(t, "udf", w.Name())

	loc, err := w.Resolve("/VIDEO_TS/VTS_01_0.IFO")
	require.NoError(t, err)
	assert.Equal(t, int64(4*2048), loc.Size)
	require.Len(t, loc.Extents, 1)
	assert.Equal(t, img.FileBlocks["VTS_01_0.IFO"], loc.Extents[0].Block)
	assert.Equal(t, uint32(4*2048), loc.Extents[0].Length)
	assert.Equal(t, "/VIDEO_TS/VTS_01_0.IFO", loc.Path)
}

func TestResolveCaseInsensitive(t *testing.T) {
	img := dvdtest.BuildUDF(sampleVolume())
	w, err := New(source(img), logr.Discard())
	require.NoError(t, err)

	loc, err := w.Resolve("/video_ts/vts_01_1.vob")
	require.NoError(t, err)
	assert.Equal(t, img.FileBlocks["VTS_01_1.VOB"], loc.Block())
}

func TestResolveVariants(t *testing.T) {
	for name, v := range map[string]func(*dvdtest.Volume){
		"extended entries": func(v *dvdtest.Volume) { v.ExtendedEntries = true },
		"long ads":         func(v *dvdtest.Volume) { v.LongADs = true },
		"ucs2 names":       func(v *dvdtest.Volume) { v.UCS2Names = true },
	} {
		t.Run(name, func(t *testing.T) {
			vol := sampleVolume()
			v(&vol)
			img := dvdtest.BuildUDF(vol)
			w, err := New(source(img), logr.Discard())
			require.NoError(t, err)

			loc, err := w.Resolve("/VIDEO_TS/VIDEO_TS.IFO")
			require.NoError(t, err)
			assert.Equal(t, int64(6*2048), loc.Size)
			assert.Equal(t, img.FileBlocks["VIDEO_TS.IFO"], loc.Block())
		})
	}
}

func TestResolveMultipleExtents(t *testing.T) {
	vol := dvdtest.Volume{Files: []dvdtest.File{
		{Name: "VIDEO_TS.IFO", Data: dvdtest.Pattern(1, 0)},
		{Name: "VTS_01_1.VOB", Size: 1073741824},
	}}
	img := dvdtest.BuildUDF(vol)
	w, err := New(source(img), logr.Discard())
	require.NoError(t, err)

	loc, err := w.Resolve("/VIDEO_TS/VTS_01_1.VOB")
	require.NoError(t, err)
	assert.Equal(t, int64(1073741824), loc.Size)
	require.Len(t, loc.Extents, 2)
	assert.Equal(t, loc.Extents[0].Block+loc.Extents[0].Blocks(), loc.Extents[1].Block)

	var total int64
	for _, e := range loc.Extents {
		total += int64(e.Length)
	}
	assert.Equal(t, loc.Size, total)
}

func TestResolveNotFound(t *testing.T) {
	img := dvdtest.BuildUDF(sampleVolume())
	w, err := New(source(img), logr.Discard())
	require.NoError(t, err)

	for _, p := range []string{"/VIDEO_TS/VTS_02_0.IFO", "/AUDIO_TS/VIDEO_TS.IFO", "/VIDEO_TS", "/",
		"/VIDEO_TS/VIDEO_TS.IFO/X"} {
		_, err := w.Resolve(p)
		assert.True(t, errors.Is(err, filesystem.ErrNotFound), "path %s: %v", p, err)
	}
}

func TestVolumeIdentifiers(t *testing.T) {
	img := dvdtest.BuildUDF(sampleVolume())
	w, err := New(source(img), logr.Discard())
	require.NoError(t, err)

	id, err := w.VolumeIdentifier()
	require.NoError(t, err)
	assert.Equal(t, "SAMPLE_DISC", id)

	set := w.VolumeSetIdentifier()
	require.Len(t, set, 128)
	assert.Equal(t, byte(8), set[0])
	assert.Equal(t, []byte("4A3C2B1D SAMPLE SET"), set[1:20])
}

func TestNotUDF(t *testing.T) {
	img := dvdtest.BuildISO(sampleVolume())
	_, err := New(source(img), logr.Discard())
	assert.True(t, IsNotUDF(err))

	empty := make([]byte, 300*2048)
	_, err = New(blocksource.New(bytes.NewReader(empty), int64(len(empty))), logr.Discard())
	assert.True(t, errors.Is(err, filesystem.ErrNotFound))
}

func TestBridgeVolume(t *testing.T) {
	img := dvdtest.BuildBridge(sampleVolume())
	w, err := New(source(img), logr.Discard())
	require.NoError(t, err)

	loc, err := w.Resolve("/VIDEO_TS/VTS_01_1.VOB")
	require.NoError(t, err)
	assert.Equal(t, img.FileBlocks["VTS_01_1.VOB"], loc.Block())
}

func TestCorruptFileEntry(t *testing.T) {
	img := dvdtest.BuildUDF(sampleVolume())
	img.Data[int(img.EntryBlocks["VTS_01_0.IFO"])*2048+4] ^= 0xFF

	w, err := New(source(img), logr.Discard())
	require.NoError(t, err)

	_, err = w.Resolve("/VIDEO_TS/VTS_01_0.IFO")
	assert.True(t, errors.Is(err, filesystem.ErrCorruptVolume))

	_, err = w.Resolve("/VIDEO_TS/VIDEO_TS.IFO")
	assert.NoError(t, err)
}

func TestCorruptInformationLength(t *testing.T) {
	for name, tc := range map[string]struct {
		entry  func(img *dvdtest.Image) uint32
		length uint64
	}{
		"directory":       {func(img *dvdtest.Image) uint32 { return img.DirectoryEntryBlock }, 1 << 62},
		"directory short": {func(img *dvdtest.Image) uint32 { return img.DirectoryEntryBlock }, 1 << 20},
		"file":            {func(img *dvdtest.Image) uint32 { return img.EntryBlocks["VIDEO_TS.IFO"] }, 1 << 63},
		"file past ads":   {func(img *dvdtest.Image) uint32 { return img.EntryBlocks["VIDEO_TS.IFO"] }, 6*2048 + 1},
	} {
		t.Run(name, func(t *testing.T) {
			img := dvdtest.BuildUDF(sampleVolume())
			off := int(tc.entry(img)) * 2048
			binary.LittleEndian.PutUint64(img.Data[off+56:off+64], tc.length)

			w, err := New(source(img), logr.Discard())
			require.NoError(t, err)

			loc, err := w.Resolve("/VIDEO_TS/VIDEO_TS.IFO")
			assert.True(t, errors.Is(err, filesystem.ErrCorruptVolume), "%v", err)
			assert.Zero(t, loc.Size)
		})
	}
}

func TestCorruptMainSequenceUsesReserve(t *testing.T) {
	img := dvdtest.BuildUDF(sampleVolume())
	// Break the checksum of the main sequence's logical volume descriptor.
	img.Data[34*2048+4] ^= 0xFF

	w, err := New(source(img), logr.Discard())
	require.NoError(t, err)
	_, err = w.Resolve("/VIDEO_TS/VIDEO_TS.IFO")
	assert.NoError(t, err)

	// Without a usable reserve the volume is corrupt.
	img.Data[50*2048+4] ^= 0xFF
	_, err = New(source(img), logr.Discard())
	assert.True(t, errors.Is(err, filesystem.ErrCorruptVolume))
}

func TestTagChecksum(t *testing.T) {
	data := make([]byte, 16)
	data[0] = 2
	data[12] = 0x00
	data[13] = 0x01
	data[4] = TagChecksum(data)

	var tag Tag
	require.NoError(t, tag.Unmarshal(data))
	assert.Equal(t, uint16(2), tag.Identifier)
	assert.Equal(t, uint32(256), tag.Location)

	data[4]++
	assert.Error(t, tag.Unmarshal(data))
}
