package fmp4

import (
	"testing"

	"github.com/ngohuy/hlspacker/pkg/isobmff"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func videoTrack() *isobmff.TrackInfo {
	return &isobmff.TrackInfo{
		TrackID:     1,
		Media:       isobmff.MediaVideo,
		Timescale:   30000,
		Codec:       isobmff.TypeAvc1,
		Width:       1280,
		Height:      720,
		StsdPayload: []byte{0x00, 0x00, 0x00, 0x10, 'a', 'v', 'c', '1', 0, 0, 0, 0, 0, 0, 0, 0},
	}
}

func TestBuildInitSegmentParsesBack(t *testing.T) {
	init := BuildInitSegment([]*isobmff.TrackInfo{videoTrack()}, 30000)
	boxes, err := isobmff.ParseBoxes(init, 0, len(init), 0)
	require.NoError(t, err)
	require.Len(t, boxes, 2)
	assert.Equal(t, isobmff.TypeFtyp, boxes[0].Type)
	assert.Equal(t, isobmff.TypeMoov, boxes[1].Type)

	moov := boxes[1]
	require.NotNil(t, moov.Find(isobmff.TypeMvhd))
	trak := moov.Find(isobmff.TypeTrak)
	require.NotNil(t, trak)
	require.NotNil(t, trak.Find(isobmff.TypeTkhd))
	mvex := moov.Find(isobmff.TypeMvex)
	require.NotNil(t, mvex)
	require.Len(t, mvex.FindAll(isobmff.TypeTrex), 1)
}

func TestBuildMediaSegmentPatchesDataOffset(t *testing.T) {
	source := make([]byte, 100)
	for i := range source {
		source[i] = byte(i)
	}

	track := TrackSamples{
		Track:     videoTrack(),
		Ranges:    []isobmff.SampleRange{{Offset: 10, Length: 5}, {Offset: 20, Length: 5}},
		Durations: []int64{1000, 1000},
		SyncFlags: []bool{true, false},
		BaseDTS:   0,
	}

	seg := BuildMediaSegment(1, []TrackSamples{track}, source)
	boxes, err := isobmff.ParseBoxes(seg, 0, len(seg), 0)
	require.NoError(t, err)
	require.Len(t, boxes, 2)
	assert.Equal(t, isobmff.TypeMoof, boxes[0].Type)
	assert.Equal(t, isobmff.TypeMdat, boxes[1].Type)

	mdatStart := boxes[1].PayloadStart()
	traf := boxes[0].Find(isobmff.TypeTraf)
	require.NotNil(t, traf)
	trun := traf.Find(isobmff.TypeTrun)
	require.NotNil(t, trun)

	dataOffset := int32(trun.Payload[8])<<24 | int32(trun.Payload[9])<<16 | int32(trun.Payload[10])<<8 | int32(trun.Payload[11])
	assert.Equal(t, mdatStart, int64(dataOffset))
}

func readU32BE(b []byte) uint32 {
	return uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])
}

// trunSampleFlags reads back the per-sample sample_flags words from a trun
// payload built with trunFlagSampleFlagsPresent set. Each sample entry is
// duration(4)+size(4)+flags(4), starting right after sample_count(4) and
// data_offset(4) in the FullBox payload (version+flags = 4 more bytes).
func trunSampleFlags(payload []byte, sampleCount int) []uint32 {
	out := make([]uint32, sampleCount)
	base := 4 + 4 + 4 // version+flags, sample_count, data_offset
	for i := 0; i < sampleCount; i++ {
		entry := base + i*12
		out[i] = readU32BE(payload[entry+8 : entry+12])
	}
	return out
}

func TestBuildMediaSegmentWritesPerSampleFlagsWhenSyncFlagsMixed(t *testing.T) {
	source := make([]byte, 100)
	track := TrackSamples{
		Track:     videoTrack(),
		Ranges:    []isobmff.SampleRange{{Offset: 0, Length: 5}, {Offset: 5, Length: 5}, {Offset: 10, Length: 5}},
		Durations: []int64{1000, 1000, 1000},
		SyncFlags: []bool{true, false, false},
		BaseDTS:   0,
	}

	seg := BuildMediaSegment(1, []TrackSamples{track}, source)
	boxes, err := isobmff.ParseBoxes(seg, 0, len(seg), 0)
	require.NoError(t, err)
	traf := boxes[0].Find(isobmff.TypeTraf)
	require.NotNil(t, traf)

	tfhd := traf.Find(isobmff.TypeTfhd)
	require.NotNil(t, tfhd)
	tfhdFlags := readU32BE(tfhd.Payload[0:4]) & 0x00FFFFFF
	assert.Zero(t, tfhdFlags&tfhdFlagDefaultSampleFlagsPresent, "mixed run must not rely on tfhd default_sample_flags")

	trun := traf.Find(isobmff.TypeTrun)
	require.NotNil(t, trun)
	trunFlags := readU32BE(trun.Payload[0:4]) & 0x00FFFFFF
	require.NotZero(t, trunFlags&trunFlagSampleFlagsPresent, "mixed run must carry per-sample sample_flags")

	flags := trunSampleFlags(trun.Payload, len(track.Ranges))
	require.Len(t, flags, 3)
	assert.Equal(t, uint32(sampleFlagsSync), flags[0])
	assert.Equal(t, uint32(sampleFlagsNonSync), flags[1])
	assert.Equal(t, uint32(sampleFlagsNonSync), flags[2])
}

func TestBuildMediaSegmentUsesTfhdDefaultFlagsWhenSyncFlagsUniform(t *testing.T) {
	source := make([]byte, 100)
	track := TrackSamples{
		Track:     videoTrack(),
		Ranges:    []isobmff.SampleRange{{Offset: 0, Length: 5}, {Offset: 5, Length: 5}},
		Durations: []int64{1000, 1000},
		SyncFlags: []bool{true, true},
		BaseDTS:   0,
	}

	seg := BuildMediaSegment(1, []TrackSamples{track}, source)
	boxes, err := isobmff.ParseBoxes(seg, 0, len(seg), 0)
	require.NoError(t, err)
	traf := boxes[0].Find(isobmff.TypeTraf)
	require.NotNil(t, traf)

	tfhd := traf.Find(isobmff.TypeTfhd)
	require.NotNil(t, tfhd)
	tfhdFlags := readU32BE(tfhd.Payload[0:4]) & 0x00FFFFFF
	require.NotZero(t, tfhdFlags&tfhdFlagDefaultSampleFlagsPresent)
	defaultSampleFlags := readU32BE(tfhd.Payload[8:12]) // version+flags(4) + track_ID(4)
	assert.Equal(t, uint32(sampleFlagsSync), defaultSampleFlags)

	trun := traf.Find(isobmff.TypeTrun)
	require.NotNil(t, trun)
	trunFlags := readU32BE(trun.Payload[0:4]) & 0x00FFFFFF
	assert.Zero(t, trunFlags&trunFlagSampleFlagsPresent, "uniform run must omit per-sample sample_flags")
}
