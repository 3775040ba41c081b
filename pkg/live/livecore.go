package live

import (
	"fmt"
	"math"
	"strings"

	"github.com/ngohuy/hlspacker/pkg/errors"
	"github.com/ngohuy/hlspacker/pkg/playlist"
)

// LiveSegment is one completed segment retained by the ring buffer,
// together with whichever partials it was completed with.
type LiveSegment struct {
	Index           uint64
	Duration        float64
	URI             string
	Discontinuity   bool
	ProgramDateTime string
	Partials        []playlist.PartialSegment
}

// LiveCore is the single-writer serial actor described in §4.13: a
// partial-segment ring buffer, sequence tracker, and delta-update
// generator. It runs as a dedicated goroutine owning all mutable state;
// every exported method other than Close and Events sends a closure on a
// bounded command channel and blocks on a one-shot reply channel, so callers observe synchronous,
// serialized operations exactly as a single logical task would.
type LiveCore struct {
	cmds   chan func()
	events chan Event

	cfg Config

	mediaSequence         uint64
	discontinuitySequence uint64
	nextSegmentIndex      uint64
	ended                 bool

	currentPartials []playlist.PartialSegment
	retained        []LiveSegment // oldest first, len <= cfg.RetentionSegments

	maxSegmentDuration float64
}

// NewLiveCore starts the actor goroutine and returns a handle to it.
func NewLiveCore(cfg Config) *LiveCore {
	lc := &LiveCore{
		cfg:    cfg,
		cmds:   make(chan func(), 256),
		events: make(chan Event, 1024),
	}
	go lc.run()
	return lc
}

func (lc *LiveCore) run() {
	for cmd := range lc.cmds {
		cmd()
	}
}

// Close stops the actor goroutine. No further calls may be made afterward.
func (lc *LiveCore) Close() {
	close(lc.cmds)
}

// Events returns the event stream. Consumers must drain it promptly;
// sends are non-blocking and a full buffer drops the event.
func (lc *LiveCore) Events() <-chan Event {
	return lc.events
}

func (lc *LiveCore) emit(ev Event) {
	select {
	case lc.events <- ev:
	default:
	}
}

// AddPartial appends a partial to the in-progress segment.
func (lc *LiveCore) AddPartial(duration float64, uri string, independent, isGap bool, byteRange *playlist.ByteRange) (*playlist.PartialSegment, error) {
	type result struct {
		p   *playlist.PartialSegment
		err error
	}
	reply := make(chan result, 1)
	lc.cmds <- func() {
		p, err := lc.addPartial(duration, uri, independent, isGap, byteRange)
		reply <- result{p, err}
	}
	r := <-reply
	return r.p, r.err
}

func (lc *LiveCore) addPartial(duration float64, uri string, independent, isGap bool, byteRange *playlist.ByteRange) (*playlist.PartialSegment, error) {
	if lc.ended {
		return nil, errors.NewStreamAlreadyEnded()
	}
	if len(lc.currentPartials) >= lc.cfg.MaxPartialsPerSegment {
		return nil, errors.NewPartialLimitExceeded(lc.cfg.MaxPartialsPerSegment)
	}

	partialIndex := len(lc.currentPartials)
	if uri == "" {
		uri = lc.renderURI(lc.nextSegmentIndex, partialIndex)
	}

	part := playlist.PartialSegment{
		URI:         uri,
		Duration:    duration,
		Independent: independent,
		Gap:         isGap,
		ByteRange:   byteRange,
	}
	lc.currentPartials = append(lc.currentPartials, part)

	lc.emit(Event{Kind: EventPartialAdded, SegmentIndex: lc.nextSegmentIndex, PartialIndex: partialIndex, URI: uri, Duration: duration})

	return &part, nil
}

// CompleteSegment closes out the in-progress segment, moving its partials
// into the retained ring buffer and advancing the sequence counters.
func (lc *LiveCore) CompleteSegment(duration float64, uri string, discontinuity bool, programDateTime string) (*LiveSegment, error) {
	type result struct {
		seg *LiveSegment
		err error
	}
	reply := make(chan result, 1)
	lc.cmds <- func() {
		seg, err := lc.completeSegment(duration, uri, discontinuity, programDateTime)
		reply <- result{seg, err}
	}
	r := <-reply
	return r.seg, r.err
}

func (lc *LiveCore) completeSegment(duration float64, uri string, discontinuity bool, programDateTime string) (*LiveSegment, error) {
	if lc.ended {
		return nil, errors.NewStreamAlreadyEnded()
	}

	seg := LiveSegment{
		Index:           lc.nextSegmentIndex,
		Duration:        duration,
		URI:             uri,
		Discontinuity:   discontinuity,
		ProgramDateTime: programDateTime,
		Partials:        lc.currentPartials,
	}
	lc.currentPartials = nil
	lc.nextSegmentIndex++

	if duration > lc.maxSegmentDuration {
		lc.maxSegmentDuration = duration
	}

	evicted := 0
	lc.retained = append(lc.retained, seg)
	if lc.cfg.RetentionSegments > 0 {
		for len(lc.retained) > lc.cfg.RetentionSegments {
			lc.retained = lc.retained[1:]
			evicted++
		}
	}

	lc.mediaSequence += uint64(evicted)
	if discontinuity {
		lc.discontinuitySequence++
	}

	lc.emit(Event{Kind: EventSegmentCompleted, SegmentIndex: seg.Index, Duration: duration, Discontinuity: discontinuity, URI: uri})

	return &seg, nil
}

// EndStream marks the stream finished; subsequent AddPartial/CompleteSegment
// calls fail with StreamAlreadyEnded, and RenderPlaylist emits ENDLIST.
func (lc *LiveCore) EndStream() {
	done := make(chan struct{})
	lc.cmds <- func() {
		lc.ended = true
		lc.emit(Event{Kind: EventStreamEnded})
		close(done)
	}
	<-done
}

func (lc *LiveCore) renderURI(segmentIndex uint64, partialIndex int) string {
	r := strings.NewReplacer(
		"{segment}", fmt.Sprintf("%d", segmentIndex),
		"{part}", fmt.Sprintf("%d", partialIndex),
		"{ext}", lc.cfg.SegmentExtension,
	)
	return r.Replace(lc.cfg.URITemplate)
}

// RenderPlaylist renders the current media playlist. Infallible by design.
func (lc *LiveCore) RenderPlaylist() string {
	reply := make(chan string, 1)
	lc.cmds <- func() {
		reply <- playlist.WriteMediaPlaylist(lc.buildPlaylist(0))
	}
	return <-reply
}

// RenderDeltaPlaylist renders a delta update per §4.12/§4.13: the oldest
// segments are collapsed into a single EXT-X-SKIP tag for as long as the
// remaining segments still span CanSkipUntilSeconds. Returns "" when no
// segments are skippable.
func (lc *LiveCore) RenderDeltaPlaylist(skipRequest bool) string {
	reply := make(chan string, 1)
	lc.cmds <- func() {
		if !skipRequest {
			reply <- playlist.WriteMediaPlaylist(lc.buildPlaylist(0))
			return
		}
		skippable := lc.skippableCount()
		if skippable <= 0 {
			reply <- ""
			return
		}
		reply <- playlist.WriteMediaPlaylist(lc.buildPlaylist(skippable))
	}
	return <-reply
}

func (lc *LiveCore) skippableCount() int {
	total := 0.0
	for i := len(lc.retained) - 1; i >= 0; i-- {
		total += lc.retained[i].Duration
	}
	keep := 0
	remaining := total
	for i := 0; i < len(lc.retained); i++ {
		if remaining-lc.retained[i].Duration < lc.cfg.CanSkipUntilSeconds {
			break
		}
		remaining -= lc.retained[i].Duration
		keep++
	}
	return keep
}

func (lc *LiveCore) buildPlaylist(skipCount int) *playlist.MediaPlaylist {
	targetDuration := 1
	if lc.maxSegmentDuration > 0 {
		targetDuration = int(math.Ceil(lc.maxSegmentDuration))
	}

	m := &playlist.MediaPlaylist{
		Version:               7,
		TargetDuration:        targetDuration,
		MediaSequence:         lc.mediaSequence,
		DiscontinuitySequence: lc.discontinuitySequence,
		SkippedSegments:       skipCount,
		PartInf:               &playlist.PartInf{PartTarget: lc.cfg.PartTargetDuration},
		ServerControl: &playlist.ServerControl{
			CanBlockReload:    true,
			CanSkipUntil:      floatPtr(lc.cfg.CanSkipUntilSeconds),
			CanSkipDateRanges: false,
			PartHoldBack:      floatPtr(lc.cfg.PartTargetDuration * 3),
		},
	}

	partialWindowStart := len(lc.retained) - lc.cfg.PartialRetentionCount
	if partialWindowStart < 0 {
		partialWindowStart = 0
	}

	for i, seg := range lc.retained {
		if i < skipCount {
			continue
		}
		out := playlist.Segment{
			Duration:        seg.Duration,
			URI:             seg.URI,
			Discontinuity:   seg.Discontinuity,
			ProgramDateTime: seg.ProgramDateTime,
		}
		if i >= partialWindowStart {
			out.Parts = seg.Partials
		}
		m.Segments = append(m.Segments, out)
	}

	if len(lc.currentPartials) > 0 {
		m.Segments = append(m.Segments, playlist.Segment{
			Parts: lc.currentPartials,
		})
	}

	if !lc.ended {
		nextURI := lc.renderURI(lc.nextSegmentIndex, len(lc.currentPartials))
		m.PreloadHints = append(m.PreloadHints, playlist.PreloadHint{Type: "PART", URI: nextURI})
	}

	m.EndList = lc.ended

	return m
}

func floatPtr(f float64) *float64 { return &f }
