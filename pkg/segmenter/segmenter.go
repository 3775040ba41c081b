package segmenter

import (
	"fmt"
	"math"

	"github.com/ngohuy/hlspacker/pkg/codec"
	"github.com/ngohuy/hlspacker/pkg/errors"
	"github.com/ngohuy/hlspacker/pkg/fmp4"
	"github.com/ngohuy/hlspacker/pkg/isobmff"
	"github.com/ngohuy/hlspacker/pkg/mpegts"
	"github.com/ngohuy/hlspacker/pkg/playlist"
)

// Run executes the full segmentation pipeline over source, which must be
// the complete bytes of an ISOBMFF file.
func Run(source []byte, cfg Config) (*Result, error) {
	if len(source) == 0 {
		return nil, errors.NewInvalidInput("empty source buffer")
	}

	topLevel, err := isobmff.ParseBoxes(source, 0, len(source), 0)
	if err != nil {
		return nil, err
	}

	info, err := isobmff.ExtractFileInfo(topLevel)
	if err != nil {
		return nil, err
	}

	videoTracks, audioTracks := selectTracks(info, cfg)
	if len(videoTracks) == 0 && len(audioTracks) == 0 {
		return nil, errors.NewNoVideoOrAudio()
	}

	var driving *isobmff.TrackInfo
	forceAllSync := false
	if len(videoTracks) > 0 {
		driving = videoTracks[0]
	} else {
		driving = audioTracks[0]
		forceAllSync = true
	}

	locators := map[uint32]*isobmff.SampleLocator{}
	allSelected := append(append([]*isobmff.TrackInfo{}, videoTracks...), audioTracks...)
	for _, t := range allSelected {
		loc, err := isobmff.NewSampleLocator(t.SampleTable, t.Timescale)
		if err != nil {
			return nil, err
		}
		locators[t.TrackID] = loc
	}

	drivingLoc := locators[driving.TrackID]
	plans, err := drivingLoc.PlanSegments(cfg.TargetSegmentDuration, forceAllSync)
	if err != nil {
		return nil, err
	}

	var result Result
	result.FileInfo = info
	result.Config = cfg

	switch cfg.ContainerFormat {
	case FragmentedMP4:
		if err := runFMP4(&result, source, cfg, allSelected, locators, driving, plans); err != nil {
			return nil, err
		}
	case MPEGTS:
		if err := runTS(&result, source, cfg, videoTracks, audioTracks, locators, driving, plans); err != nil {
			return nil, err
		}
	}

	if cfg.GeneratePlaylist {
		result.PlaylistText = renderPlaylist(&result, cfg)
	}

	return &result, nil
}

// selectTracks picks fMP4/TS-eligible video and audio tracks, filtering
// out cover-art video tracks (codec jpeg, or exactly one sample). The
// single-sample check does not compare the track's duration with the
// movie's.
func selectTracks(info *isobmff.FileInfo, cfg Config) (video, audio []*isobmff.TrackInfo) {
	for _, t := range info.Tracks {
		switch t.Media {
		case isobmff.MediaVideo:
			if isCoverArt(t) {
				continue
			}
			video = append(video, t)
		case isobmff.MediaAudio:
			if cfg.IncludeAudio {
				audio = append(audio, t)
			}
		}
	}
	return video, audio
}

func isCoverArt(t *isobmff.TrackInfo) bool {
	if t.Codec == "jpeg" {
		return true
	}
	return t.SampleTable != nil && t.SampleTable.SampleCount == 1
}

func runFMP4(result *Result, source []byte, cfg Config, tracks []*isobmff.TrackInfo, locators map[uint32]*isobmff.SampleLocator, driving *isobmff.TrackInfo, plans []isobmff.SegmentPlan) error {
	result.InitSegmentBytes = fmp4.BuildInitSegment(tracks, driving.Timescale)

	for i, plan := range plans {
		startSec := float64(plan.StartDTSTicks) / float64(driving.Timescale)
		endSec := startSec + plan.DurationSeconds

		var trackSamples []fmp4.TrackSamples
		for _, t := range tracks {
			loc := locators[t.TrackID]
			var first, count int
			if t.TrackID == driving.TrackID {
				first, count = plan.FirstSampleIndex, plan.SampleCount
			} else {
				first, count = mapWindowToTrack(loc, t.Timescale, startSec, endSec, t.SampleTable.SampleCount)
			}
			if count == 0 {
				continue
			}
			ranges := loc.SampleRanges(first, count)
			durations := make([]int64, count)
			syncFlags := make([]bool, count)
			for j := 0; j < count; j++ {
				durations[j] = loc.SampleDuration(first + j)
				syncFlags[j] = loc.IsSync(first + j)
			}
			trackSamples = append(trackSamples, fmp4.TrackSamples{
				Track:     t,
				Ranges:    ranges,
				Durations: durations,
				SyncFlags: syncFlags,
				BaseDTS:   loc.DTS(first),
			})
		}

		segBytes := fmp4.BuildMediaSegment(uint32(i+1), trackSamples, source)
		result.Segments = append(result.Segments, MediaSegmentOutput{
			Index:           i,
			Bytes:           segBytes,
			DurationSeconds: plan.DurationSeconds,
			Filename:        fmt.Sprintf(cfg.SegmentNamePattern+".%s", i, cfg.segmentExtension()),
		})
	}
	return applyOutputMode(result, cfg)
}

// mapWindowToTrack finds the contiguous sample range of a non-driving
// track whose decode timestamps fall within [startSec, endSec).
func mapWindowToTrack(loc *isobmff.SampleLocator, timescale uint32, startSec, endSec float64, sampleCount int) (first, count int) {
	startTicks := int64(startSec * float64(timescale))
	endTicks := int64(endSec * float64(timescale))

	first = -1
	last := -1
	for i := 0; i < sampleCount; i++ {
		dts := loc.DTS(i)
		if dts >= startTicks && dts < endTicks {
			if first == -1 {
				first = i
			}
			last = i
		}
		if dts >= endTicks {
			break
		}
	}
	if first == -1 {
		return 0, 0
	}
	return first, last - first + 1
}

func runTS(result *Result, source []byte, cfg Config, videoTracks, audioTracks []*isobmff.TrackInfo, locators map[uint32]*isobmff.SampleLocator, driving *isobmff.TrackInfo, plans []isobmff.SegmentPlan) error {
	var video, audio *isobmff.TrackInfo
	if len(videoTracks) > 0 {
		video = videoTracks[0]
	}
	if len(audioTracks) > 0 {
		audio = audioTracks[0]
	}

	var avcParams *codec.AVCParameterSets
	if video != nil && video.AVCConfig != nil {
		p, err := codec.ParseAVCDecoderConfig(video.AVCConfig)
		if err != nil {
			return err
		}
		avcParams = p
	}
	var aacCfg *codec.AACConfig
	if audio != nil && audio.AudioConfig != nil {
		c, err := codec.ParseAudioSpecificConfig(audio.AudioConfig)
		if err != nil {
			return err
		}
		aacCfg = c
	}

	for i, plan := range plans {
		startSec := float64(plan.StartDTSTicks) / float64(driving.Timescale)
		endSec := startSec + plan.DurationSeconds

		mux := mpegts.NewMuxer(video != nil, audio != nil)
		var segBytes []byte
		segBytes = append(segBytes, mux.BeginSegment()...)

		var events []tsEvent

		if video != nil {
			vLoc := locators[video.TrackID]
			first, count := plan.FirstSampleIndex, plan.SampleCount
			if video.TrackID != driving.TrackID {
				first, count = mapWindowToTrack(vLoc, video.Timescale, startSec, endSec, video.SampleTable.SampleCount)
			}
			ranges := vLoc.SampleRanges(first, count)
			for j, r := range ranges {
				idx := first + j
				raw := source[r.Offset : r.Offset+uint64(r.Length)]
				converted := codec.LengthPrefixedToAnnexB(raw)
				sync := vLoc.IsSync(idx)
				if sync && avcParams != nil {
					converted = codec.BuildKeyframeAccessUnit(avcParams, converted)
				}
				pts90 := scaleTo90kHz(vLoc.PTS(idx), video.Timescale)
				dts90 := scaleTo90kHz(vLoc.DTS(idx), video.Timescale)
				pes := mpegts.BuildVideoPES(pts90, dts90, true, converted)
				events = append(events, tsEvent{ptsSec: float64(vLoc.PTS(idx)) / float64(video.Timescale), pid: mpegts.PIDVideo, pes: pes, keyframe: sync})
			}
		}

		if audio != nil && aacCfg != nil {
			aLoc := locators[audio.TrackID]
			first, count := plan.FirstSampleIndex, plan.SampleCount
			if audio.TrackID != driving.TrackID {
				first, count = mapWindowToTrack(aLoc, audio.Timescale, startSec, endSec, audio.SampleTable.SampleCount)
			}
			ranges := aLoc.SampleRanges(first, count)
			for j, r := range ranges {
				idx := first + j
				raw := source[r.Offset : r.Offset+uint64(r.Length)]
				framed := codec.WrapADTS(aacCfg, raw)
				pts90 := scaleTo90kHz(aLoc.PTS(idx), audio.Timescale)
				pes := mpegts.BuildAudioPES(pts90, framed)
				events = append(events, tsEvent{ptsSec: float64(aLoc.PTS(idx)) / float64(audio.Timescale), pid: mpegts.PIDAudio, pes: pes})
			}
		}

		sortEventsByPTS(events)

		firstVideoSeen := false
		for _, ev := range events {
			var pcr *uint64
			if ev.pid == mpegts.PIDVideo && !firstVideoSeen {
				pts90 := scaleTo90kHz(int64(ev.ptsSec*float64(video.Timescale)), video.Timescale)
				pcr = &pts90
				firstVideoSeen = true
			}
			segBytes = append(segBytes, mux.PacketizePES(uint16(ev.pid), ev.pes, ev.keyframe, pcr)...)
		}

		result.Segments = append(result.Segments, MediaSegmentOutput{
			Index:           i,
			Bytes:           segBytes,
			DurationSeconds: plan.DurationSeconds,
			Filename:        fmt.Sprintf(cfg.SegmentNamePattern+".%s", i, cfg.segmentExtension()),
		})
	}
	return applyOutputMode(result, cfg)
}

// tsEvent is one PES packet pending emission into a TS segment, ordered by
// presentation time across the video and audio elementary streams.
type tsEvent struct {
	ptsSec   float64
	pid      int
	pes      []byte
	keyframe bool
}

func sortEventsByPTS(events []tsEvent) {
	for i := 1; i < len(events); i++ {
		for j := i; j > 0 && events[j-1].ptsSec > events[j].ptsSec; j-- {
			events[j-1], events[j] = events[j], events[j-1]
		}
	}
}

func scaleTo90kHz(ticks int64, timescale uint32) uint64 {
	if timescale == 0 {
		return 0
	}
	return uint64(math.Round(float64(ticks) * 90000.0 / float64(timescale)))
}

func applyOutputMode(result *Result, cfg Config) error {
	if cfg.OutputMode != ByteRangeConcat {
		return nil
	}
	var concat []byte
	for i := range result.Segments {
		offset := uint64(len(concat))
		length := uint64(len(result.Segments[i].Bytes))
		concat = append(concat, result.Segments[i].Bytes...)
		result.Segments[i].ByteRangeOffset = &offset
		result.Segments[i].ByteRangeLength = &length
	}
	result.ConcatenatedBytes = concat
	return nil
}

func renderPlaylist(result *Result, cfg Config) string {
	maxDuration := 0.0
	var segs []playlist.Segment
	for _, s := range result.Segments {
		if s.DurationSeconds > maxDuration {
			maxDuration = s.DurationSeconds
		}
		seg := playlist.Segment{Duration: s.DurationSeconds, URI: s.Filename}
		if s.ByteRangeOffset != nil {
			seg.ByteRange = &playlist.ByteRange{Length: *s.ByteRangeLength, Offset: s.ByteRangeOffset}
		}
		if cfg.ContainerFormat == FragmentedMP4 && len(segs) == 0 {
			seg.Map = &playlist.Map{URI: cfg.InitSegmentName}
		}
		segs = append(segs, seg)
	}

	m := &playlist.MediaPlaylist{
		Version:        cfg.HLSVersion(),
		TargetDuration: int(math.Ceil(maxDuration)),
		Segments:       segs,
	}
	if cfg.PlaylistType == PlaylistVOD {
		m.PlaylistType = "VOD"
		m.EndList = true
	} else {
		m.PlaylistType = "EVENT"
	}
	return playlist.WriteMediaPlaylist(m)
}
