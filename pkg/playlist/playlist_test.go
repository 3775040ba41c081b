package playlist

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteAndParseMediaPlaylistRoundTrip(t *testing.T) {
	m := &MediaPlaylist{
		Version:        7,
		TargetDuration: 6,
		MediaSequence:  0,
		PlaylistType:   "VOD",
		EndList:        true,
		Segments: []Segment{
			{Duration: 5.994, URI: "segment_0.m4s"},
			{Duration: 5.994, URI: "segment_1.m4s", Discontinuity: true},
		},
	}
	text := WriteMediaPlaylist(m)
	assert.Contains(t, text, "#EXTM3U")
	assert.Contains(t, text, "#EXT-X-ENDLIST")

	result, err := Parse(text)
	require.NoError(t, err)
	require.Equal(t, KindMedia, result.Kind)
	assert.Equal(t, 7, result.Media.Version)
	assert.True(t, result.Media.EndList)
	require.Len(t, result.Media.Segments, 2)
	assert.True(t, result.Media.Segments[1].Discontinuity)
}

func TestParseMissingHeaderFails(t *testing.T) {
	_, err := Parse("#EXT-X-VERSION:3\n")
	require.Error(t, err)
}

func TestParseMasterPlaylist(t *testing.T) {
	text := "#EXTM3U\n#EXT-X-VERSION:7\n#EXT-X-STREAM-INF:BANDWIDTH=1000000,CODECS=\"avc1.640028\"\nvariant_0.m3u8\n"
	result, err := Parse(text)
	require.NoError(t, err)
	require.Equal(t, KindMaster, result.Kind)
	require.Len(t, result.Master.Variants, 1)
	assert.Equal(t, uint64(1000000), result.Master.Variants[0].Bandwidth)
	assert.Equal(t, "variant_0.m3u8", result.Master.Variants[0].URI)
}

func TestValidateMediaPlaylistDurationExceedsTarget(t *testing.T) {
	m := &MediaPlaylist{TargetDuration: 4, Segments: []Segment{{Duration: 10, URI: "a.ts"}}}
	issues := ValidateMediaPlaylist(m, AppleHLSStrict)
	require.NotEmpty(t, issues)
}

func TestValidateMasterPlaylistRequiresVariant(t *testing.T) {
	issues := ValidateMasterPlaylist(&MasterPlaylist{})
	require.NotEmpty(t, issues)
}

func TestSortVariantsByBandwidth(t *testing.T) {
	variants := []Variant{{Bandwidth: 3000}, {Bandwidth: 1000}, {Bandwidth: 2000}}
	sorted := SortVariantsByBandwidth(variants)
	assert.Equal(t, []uint64{1000, 2000, 3000}, []uint64{sorted[0].Bandwidth, sorted[1].Bandwidth, sorted[2].Bandwidth})
}

func TestResolveVariables(t *testing.T) {
	out, ok := resolveVariables("https://example.com/{$HOST}/seg.ts", map[string]string{"HOST": "cdn1"}, false)
	require.True(t, ok)
	assert.Equal(t, "https://example.com/cdn1/seg.ts", out)
}

func TestResolveVariablesStrictUndefined(t *testing.T) {
	_, ok := resolveVariables("{$MISSING}", map[string]string{}, true)
	assert.False(t, ok)
}
