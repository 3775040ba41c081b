package live

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddPartialAutoGeneratesURIAndEmitsEvent(t *testing.T) {
	lc := NewLiveCore(DefaultConfig())
	p, err := lc.AddPartial(0.5, "", true, false, nil)
	require.NoError(t, err)
	assert.Equal(t, "segment_0_part_0.m4s", p.URI)

	ev := <-lc.Events()
	assert.Equal(t, EventPartialAdded, ev.Kind)
	assert.Equal(t, 0, ev.PartialIndex)
}

func TestAddPartialExceedingCapFails(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxPartialsPerSegment = 1
	lc := NewLiveCore(cfg)
	_, err := lc.AddPartial(0.5, "p0", true, false, nil)
	require.NoError(t, err)
	_, err = lc.AddPartial(0.5, "p1", true, false, nil)
	require.Error(t, err)
}

func TestCompleteSegmentAdvancesSequenceAndEvicts(t *testing.T) {
	cfg := DefaultConfig()
	cfg.RetentionSegments = 2
	lc := NewLiveCore(cfg)

	for i := 0; i < 3; i++ {
		_, err := lc.CompleteSegment(6.0, "seg.ts", false, "")
		require.NoError(t, err)
	}

	text := lc.RenderPlaylist()
	assert.Contains(t, text, "#EXT-X-MEDIA-SEQUENCE:1\n")
}

func TestCompleteSegmentAfterEndFails(t *testing.T) {
	lc := NewLiveCore(DefaultConfig())
	lc.EndStream()
	_, err := lc.CompleteSegment(6.0, "seg.ts", false, "")
	require.Error(t, err)
}

func TestRenderPlaylistIncludesPartsAndPreloadHint(t *testing.T) {
	lc := NewLiveCore(DefaultConfig())
	_, err := lc.AddPartial(0.5, "", true, false, nil)
	require.NoError(t, err)
	_, err = lc.CompleteSegment(2.0, "segment_0.m4s", false, "")
	require.NoError(t, err)
	_, err = lc.AddPartial(0.5, "", true, false, nil)
	require.NoError(t, err)

	text := lc.RenderPlaylist()
	assert.True(t, strings.Contains(text, "#EXT-X-PART:"))
	assert.True(t, strings.Contains(text, "#EXT-X-PRELOAD-HINT:"))
	assert.True(t, strings.Contains(text, "#EXT-X-PART-INF:PART-TARGET="))
}

func TestRenderPlaylistEmitsEndlistAfterEndStream(t *testing.T) {
	lc := NewLiveCore(DefaultConfig())
	_, err := lc.CompleteSegment(6.0, "segment_0.ts", false, "")
	require.NoError(t, err)
	lc.EndStream()

	text := lc.RenderPlaylist()
	assert.True(t, strings.Contains(text, "#EXT-X-ENDLIST"))
}

func TestRenderDeltaPlaylistEmptyWhenNothingSkippable(t *testing.T) {
	lc := NewLiveCore(DefaultConfig())
	_, err := lc.CompleteSegment(6.0, "segment_0.ts", false, "")
	require.NoError(t, err)
	text := lc.RenderDeltaPlaylist(true)
	assert.Equal(t, "", text)
}

func TestRenderDeltaPlaylistSkipsOldSegments(t *testing.T) {
	cfg := DefaultConfig()
	cfg.RetentionSegments = 20
	cfg.CanSkipUntilSeconds = 12
	lc := NewLiveCore(cfg)
	for i := 0; i < 10; i++ {
		_, err := lc.CompleteSegment(6.0, "segment.ts", false, "")
		require.NoError(t, err)
	}
	text := lc.RenderDeltaPlaylist(true)
	require.NotEqual(t, "", text)
	assert.True(t, strings.Contains(text, "#EXT-X-SKIP:SKIPPED-SEGMENTS="))
}
