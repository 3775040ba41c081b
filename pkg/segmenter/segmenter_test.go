package segmenter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ngohuy/hlspacker/pkg/isobmff"
)

func uniformTable(count int, duration int64) *isobmff.SampleTable {
	return &isobmff.SampleTable{
		SampleCount:       count,
		TimeToSample:      []isobmff.TimeToSampleRun{{Count: count, Delta: duration}},
		SampleToChunk:     []isobmff.SampleToChunkRun{{FirstChunk: 1, SamplesPerChunk: uint32(count), SampleDescriptionIndex: 1}},
		UniformSampleSize: 1000,
		ChunkOffsets:      []uint64{0},
	}
}

func videoTrack(id uint32, count int, timescale uint32, syncEvery int) *isobmff.TrackInfo {
	table := uniformTable(count, int64(timescale)/30)
	var syncIdx []uint32
	for i := 0; i < count; i += syncEvery {
		syncIdx = append(syncIdx, uint32(i+1))
	}
	table.HasSyncSamples = true
	table.SyncSampleIndices = syncIdx
	return &isobmff.TrackInfo{
		TrackID:     id,
		Media:       isobmff.MediaVideo,
		Timescale:   timescale,
		Codec:       "avc1",
		SampleTable: table,
	}
}

func audioTrack(id uint32, count int, timescale uint32) *isobmff.TrackInfo {
	table := uniformTable(count, 1024)
	return &isobmff.TrackInfo{
		TrackID:     id,
		Media:       isobmff.MediaAudio,
		Timescale:   timescale,
		Codec:       "mp4a",
		SampleTable: table,
	}
}

func TestSelectTracksFiltersCoverArt(t *testing.T) {
	info := &isobmff.FileInfo{
		Tracks: []*isobmff.TrackInfo{
			videoTrack(1, 90, 30, 30),
			{TrackID: 2, Media: isobmff.MediaVideo, Codec: "jpeg", SampleTable: uniformTable(1, 0)},
			audioTrack(3, 100, 44100),
		},
	}
	video, audio := selectTracks(info, Config{IncludeAudio: true})
	require.Len(t, video, 1)
	assert.Equal(t, uint32(1), video[0].TrackID)
	require.Len(t, audio, 1)
	assert.Equal(t, uint32(3), audio[0].TrackID)
}

func TestSelectTracksExcludesAudioWhenDisabled(t *testing.T) {
	info := &isobmff.FileInfo{
		Tracks: []*isobmff.TrackInfo{
			videoTrack(1, 90, 30, 30),
			audioTrack(2, 100, 44100),
		},
	}
	_, audio := selectTracks(info, Config{IncludeAudio: false})
	assert.Empty(t, audio)
}

func TestIsCoverArtSingleSampleTrack(t *testing.T) {
	track := &isobmff.TrackInfo{Codec: "avc1", SampleTable: uniformTable(1, 0)}
	assert.True(t, isCoverArt(track))
}

func TestMapWindowToTrackFindsContiguousRange(t *testing.T) {
	// audio track running at 48000Hz, 1024 samples per frame, ~21.3ms/sample
	table := uniformTable(200, 1024)
	loc, err := isobmff.NewSampleLocator(table, 48000)
	require.NoError(t, err)

	// first six seconds of audio
	first, count := mapWindowToTrack(loc, 48000, 0, 6.0, 200)
	assert.Equal(t, 0, first)
	assert.Greater(t, count, 0)

	lastDTS := loc.DTS(first+count-1)
	assert.Less(t, lastDTS, int64(6.0*48000))
}

func TestMapWindowToTrackReturnsZeroWhenNoSamplesInWindow(t *testing.T) {
	table := uniformTable(10, 1024)
	loc, err := isobmff.NewSampleLocator(table, 48000)
	require.NoError(t, err)

	first, count := mapWindowToTrack(loc, 48000, 1000.0, 1001.0, 10)
	assert.Equal(t, 0, first)
	assert.Equal(t, 0, count)
}

func TestSortEventsByPTSOrdersAscending(t *testing.T) {
	events := []tsEvent{
		{ptsSec: 2.0, pid: 256},
		{ptsSec: 0.5, pid: 257},
		{ptsSec: 1.0, pid: 256},
	}
	sortEventsByPTS(events)
	require.Len(t, events, 3)
	assert.Equal(t, 0.5, events[0].ptsSec)
	assert.Equal(t, 1.0, events[1].ptsSec)
	assert.Equal(t, 2.0, events[2].ptsSec)
}

func TestScaleTo90kHzConvertsTicks(t *testing.T) {
	assert.Equal(t, uint64(90000), scaleTo90kHz(1, 1))
	assert.Equal(t, uint64(45000), scaleTo90kHz(1, 2))
	assert.Equal(t, uint64(0), scaleTo90kHz(5, 0))
}

func TestApplyOutputModeConcatenatesAndSetsByteRanges(t *testing.T) {
	result := &Result{
		Segments: []MediaSegmentOutput{
			{Bytes: []byte("aaaa")},
			{Bytes: []byte("bb")},
		},
	}
	require.NoError(t, applyOutputMode(result, Config{OutputMode: ByteRangeConcat}))

	assert.Equal(t, []byte("aaaabb"), result.ConcatenatedBytes)
	require.NotNil(t, result.Segments[0].ByteRangeOffset)
	assert.Equal(t, uint64(0), *result.Segments[0].ByteRangeOffset)
	assert.Equal(t, uint64(4), *result.Segments[0].ByteRangeLength)
	require.NotNil(t, result.Segments[1].ByteRangeOffset)
	assert.Equal(t, uint64(4), *result.Segments[1].ByteRangeOffset)
	assert.Equal(t, uint64(2), *result.Segments[1].ByteRangeLength)
}

func TestApplyOutputModeLeavesSeparateFilesAlone(t *testing.T) {
	result := &Result{Segments: []MediaSegmentOutput{{Bytes: []byte("aaaa")}}}
	require.NoError(t, applyOutputMode(result, Config{OutputMode: SeparateFiles}))
	assert.Nil(t, result.ConcatenatedBytes)
	assert.Nil(t, result.Segments[0].ByteRangeOffset)
}

func TestRenderPlaylistVODSetsEndlistAndMap(t *testing.T) {
	result := &Result{
		Segments: []MediaSegmentOutput{
			{Filename: "segment_0.m4s", DurationSeconds: 6.0},
			{Filename: "segment_1.m4s", DurationSeconds: 5.5},
		},
	}
	cfg := Config{ContainerFormat: FragmentedMP4, PlaylistType: PlaylistVOD, InitSegmentName: "init.mp4"}
	text := renderPlaylist(result, cfg)

	assert.Contains(t, text, "#EXT-X-PLAYLIST-TYPE:VOD")
	assert.Contains(t, text, "#EXT-X-ENDLIST")
	assert.Contains(t, text, "#EXT-X-MAP:URI=\"init.mp4\"")
	assert.Contains(t, text, "#EXT-X-TARGETDURATION:6")
}

func TestRenderPlaylistEventHasNoEndlist(t *testing.T) {
	result := &Result{
		Segments: []MediaSegmentOutput{{Filename: "segment_0.ts", DurationSeconds: 6.0}},
	}
	cfg := Config{ContainerFormat: MPEGTS, PlaylistType: PlaylistEvent}
	text := renderPlaylist(result, cfg)

	assert.Contains(t, text, "#EXT-X-PLAYLIST-TYPE:EVENT")
	assert.NotContains(t, text, "#EXT-X-ENDLIST")
	assert.NotContains(t, text, "#EXT-X-MAP")
}

func TestRunRejectsEmptySource(t *testing.T) {
	_, err := Run(nil, DefaultConfig())
	require.Error(t, err)
}
