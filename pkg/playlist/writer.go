package playlist

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// WriteMediaPlaylist renders m in the canonical tag order: header, version,
// independent-segments, targetduration, media-sequence,
// discontinuity-sequence, playlist-type, part-inf/server-control, then
// per-segment attributes and EXTINF/URI pairs, then ENDLIST.
func WriteMediaPlaylist(m *MediaPlaylist) string {
	var b strings.Builder
	b.WriteString("#EXTM3U\n")
	fmt.Fprintf(&b, "#EXT-X-VERSION:%d\n", m.Version)
	if m.IndependentSegments {
		b.WriteString("#EXT-X-INDEPENDENT-SEGMENTS\n")
	}
	fmt.Fprintf(&b, "#EXT-X-TARGETDURATION:%d\n", m.TargetDuration)
	fmt.Fprintf(&b, "#EXT-X-MEDIA-SEQUENCE:%d\n", m.MediaSequence)
	if m.DiscontinuitySequence > 0 {
		fmt.Fprintf(&b, "#EXT-X-DISCONTINUITY-SEQUENCE:%d\n", m.DiscontinuitySequence)
	}
	if m.PlaylistType != "" {
		fmt.Fprintf(&b, "#EXT-X-PLAYLIST-TYPE:%s\n", m.PlaylistType)
	}
	if m.IFramesOnly {
		b.WriteString("#EXT-X-I-FRAMES-ONLY\n")
	}
	if m.PartInf != nil {
		fmt.Fprintf(&b, "#EXT-X-PART-INF:PART-TARGET=%s\n", formatFloat(m.PartInf.PartTarget))
	}
	if m.ServerControl != nil {
		b.WriteString(writeServerControl(m.ServerControl))
	}

	if m.SkippedSegments > 0 {
		fmt.Fprintf(&b, "#EXT-X-SKIP:SKIPPED-SEGMENTS=%d\n", m.SkippedSegments)
	}

	var lastKey *Key
	var lastMap *Map
	for _, seg := range m.Segments {
		if seg.Discontinuity {
			b.WriteString("#EXT-X-DISCONTINUITY\n")
		}
		if seg.Key != nil && !keyEqual(seg.Key, lastKey) {
			b.WriteString(writeKey(seg.Key))
			lastKey = seg.Key
		}
		if seg.Map != nil && !mapEqual(seg.Map, lastMap) {
			b.WriteString(writeMap(seg.Map))
			lastMap = seg.Map
		}
		if seg.ProgramDateTime != "" {
			fmt.Fprintf(&b, "#EXT-X-PROGRAM-DATE-TIME:%s\n", seg.ProgramDateTime)
		}
		if seg.DateRange != nil {
			b.WriteString(writeDateRange(seg.DateRange))
		}
		for _, p := range seg.Parts {
			b.WriteString(writePart(p))
		}
		if seg.Bitrate != nil {
			fmt.Fprintf(&b, "#EXT-X-BITRATE:%d\n", *seg.Bitrate)
		}
		if seg.Gap {
			b.WriteString("#EXT-X-GAP\n")
		}
		if seg.URI != "" {
			fmt.Fprintf(&b, "#EXTINF:%s,%s\n", formatFloat(seg.Duration), seg.Title)
			if seg.ByteRange != nil {
				fmt.Fprintf(&b, "#EXT-X-BYTERANGE:%s\n", writeByteRangeValue(seg.ByteRange))
			}
			b.WriteString(seg.URI)
			b.WriteString("\n")
		}
	}

	for _, h := range m.PreloadHints {
		b.WriteString(writePreloadHint(h))
	}
	for _, r := range m.RenditionReports {
		b.WriteString(writeRenditionReport(r))
	}

	if m.EndList {
		b.WriteString("#EXT-X-ENDLIST\n")
	}
	return b.String()
}

// WriteMasterPlaylist renders m: header, version, independent-segments,
// session tags, renditions, variants (stream-inf + URI), i-frame variants.
func WriteMasterPlaylist(m *MasterPlaylist) string {
	var b strings.Builder
	b.WriteString("#EXTM3U\n")
	fmt.Fprintf(&b, "#EXT-X-VERSION:%d\n", m.Version)
	if m.IndependentSegments {
		b.WriteString("#EXT-X-INDEPENDENT-SEGMENTS\n")
	}

	for _, sd := range m.SessionData {
		fmt.Fprintf(&b, "#EXT-X-SESSION-DATA:DATA-ID=%q", sd.DataID)
		if sd.Value != "" {
			fmt.Fprintf(&b, ",VALUE=%q", sd.Value)
		}
		if sd.URI != "" {
			fmt.Fprintf(&b, ",URI=%q", sd.URI)
		}
		b.WriteString("\n")
	}
	for _, sk := range m.SessionKeys {
		b.WriteString(strings.Replace(writeKey(&sk), "#EXT-X-KEY:", "#EXT-X-SESSION-KEY:", 1))
	}
	if m.ContentSteeringURI != "" {
		fmt.Fprintf(&b, "#EXT-X-CONTENT-STEERING:SERVER-URI=%q\n", m.ContentSteeringURI)
	}

	for _, r := range m.Renditions {
		b.WriteString(writeRendition(r))
	}

	for _, v := range SortVariantsByBandwidth(m.Variants) {
		b.WriteString(writeStreamInf(v))
		b.WriteString(v.URI)
		b.WriteString("\n")
	}

	for _, iv := range m.IFrameVariants {
		fmt.Fprintf(&b, "#EXT-X-I-FRAME-STREAM-INF:BANDWIDTH=%d", iv.Bandwidth)
		if iv.Codecs != "" {
			fmt.Fprintf(&b, ",CODECS=%q", iv.Codecs)
		}
		if iv.Resolution != "" {
			fmt.Fprintf(&b, ",RESOLUTION=%s", iv.Resolution)
		}
		fmt.Fprintf(&b, ",URI=%q\n", iv.URI)
	}

	return b.String()
}

// SortVariantsByBandwidth returns variants ordered by ascending BANDWIDTH,
// the conventional presentation order for ABR master playlists.
func SortVariantsByBandwidth(variants []Variant) []Variant {
	out := make([]Variant, len(variants))
	copy(out, variants)
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j-1].Bandwidth > out[j].Bandwidth; j-- {
			out[j-1], out[j] = out[j], out[j-1]
		}
	}
	return out
}

func writeStreamInf(v Variant) string {
	var b strings.Builder
	fmt.Fprintf(&b, "#EXT-X-STREAM-INF:BANDWIDTH=%d", v.Bandwidth)
	if v.AverageBandwidth != nil {
		fmt.Fprintf(&b, ",AVERAGE-BANDWIDTH=%d", *v.AverageBandwidth)
	}
	if v.Codecs != "" {
		fmt.Fprintf(&b, ",CODECS=%q", v.Codecs)
	}
	if v.Resolution != "" {
		fmt.Fprintf(&b, ",RESOLUTION=%s", v.Resolution)
	}
	if v.FrameRate != nil {
		fmt.Fprintf(&b, ",FRAME-RATE=%s", formatFloat(*v.FrameRate))
	}
	if v.Audio != "" {
		fmt.Fprintf(&b, ",AUDIO=%q", v.Audio)
	}
	if v.Video != "" {
		fmt.Fprintf(&b, ",VIDEO=%q", v.Video)
	}
	if v.Subtitles != "" {
		fmt.Fprintf(&b, ",SUBTITLES=%q", v.Subtitles)
	}
	b.WriteString("\n")
	return b.String()
}

func writeRendition(r Rendition) string {
	var b strings.Builder
	fmt.Fprintf(&b, "#EXT-X-MEDIA:TYPE=%s,GROUP-ID=%q,NAME=%q", r.Type, r.GroupID, r.Name)
	if r.Language != "" {
		fmt.Fprintf(&b, ",LANGUAGE=%q", r.Language)
	}
	fmt.Fprintf(&b, ",DEFAULT=%s,AUTOSELECT=%s", yesNo(r.Default), yesNo(r.AutoSelect))
	if r.Channels != "" {
		fmt.Fprintf(&b, ",CHANNELS=%q", r.Channels)
	}
	if r.URI != "" {
		fmt.Fprintf(&b, ",URI=%q", r.URI)
	}
	b.WriteString("\n")
	return b.String()
}

func writeKey(k *Key) string {
	var b strings.Builder
	fmt.Fprintf(&b, "#EXT-X-KEY:METHOD=%s", k.Method)
	if k.URI != "" {
		fmt.Fprintf(&b, ",URI=%q", k.URI)
	}
	if k.IV != "" {
		fmt.Fprintf(&b, ",IV=%s", k.IV)
	}
	if k.KeyFormat != "" {
		fmt.Fprintf(&b, ",KEYFORMAT=%q", k.KeyFormat)
	}
	if k.KeyFormatVersions != "" {
		fmt.Fprintf(&b, ",KEYFORMATVERSIONS=%q", k.KeyFormatVersions)
	}
	b.WriteString("\n")
	return b.String()
}

func writeMap(m *Map) string {
	var b strings.Builder
	fmt.Fprintf(&b, "#EXT-X-MAP:URI=%q", m.URI)
	if m.ByteRange != nil {
		fmt.Fprintf(&b, ",BYTERANGE=%q", writeByteRangeValue(m.ByteRange))
	}
	b.WriteString("\n")
	return b.String()
}

func writeDateRange(d *DateRange) string {
	var b strings.Builder
	fmt.Fprintf(&b, "#EXT-X-DATERANGE:ID=%q,START-DATE=%q", d.ID, d.StartDate)
	if d.Class != "" {
		fmt.Fprintf(&b, ",CLASS=%q", d.Class)
	}
	if d.EndDate != "" {
		fmt.Fprintf(&b, ",END-DATE=%q", d.EndDate)
	}
	if d.Duration != nil {
		fmt.Fprintf(&b, ",DURATION=%s", formatFloat(*d.Duration))
	}
	if d.EndOnNext {
		b.WriteString(",END-ON-NEXT=YES")
	}
	b.WriteString("\n")
	return b.String()
}

func writePart(p PartialSegment) string {
	var b strings.Builder
	fmt.Fprintf(&b, "#EXT-X-PART:DURATION=%s,URI=%q", formatFloat(p.Duration), p.URI)
	if p.Independent {
		b.WriteString(",INDEPENDENT=YES")
	}
	if p.Gap {
		b.WriteString(",GAP=YES")
	}
	if p.ByteRange != nil {
		fmt.Fprintf(&b, ",BYTERANGE=%q", writeByteRangeValue(p.ByteRange))
	}
	b.WriteString("\n")
	return b.String()
}

func writePreloadHint(h PreloadHint) string {
	var b strings.Builder
	fmt.Fprintf(&b, "#EXT-X-PRELOAD-HINT:TYPE=%s,URI=%q", h.Type, h.URI)
	if h.ByteRangeStart != nil {
		fmt.Fprintf(&b, ",BYTERANGE-START=%d", *h.ByteRangeStart)
	}
	if h.ByteRangeLength != nil {
		fmt.Fprintf(&b, ",BYTERANGE-LENGTH=%d", *h.ByteRangeLength)
	}
	b.WriteString("\n")
	return b.String()
}

func writeRenditionReport(r RenditionReport) string {
	var b strings.Builder
	fmt.Fprintf(&b, "#EXT-X-RENDITION-REPORT:URI=%q,LAST-MSN=%d", r.URI, r.LastMSN)
	if r.LastPart != nil {
		fmt.Fprintf(&b, ",LAST-PART=%d", *r.LastPart)
	}
	b.WriteString("\n")
	return b.String()
}

func writeServerControl(sc *ServerControl) string {
	var b strings.Builder
	b.WriteString("#EXT-X-SERVER-CONTROL:")
	var parts []string
	if sc.CanBlockReload {
		parts = append(parts, "CAN-BLOCK-RELOAD=YES")
	}
	if sc.CanSkipUntil != nil {
		parts = append(parts, fmt.Sprintf("CAN-SKIP-UNTIL=%s", formatFloat(*sc.CanSkipUntil)))
	}
	if sc.CanSkipDateRanges {
		parts = append(parts, "CAN-SKIP-DATERANGES=YES")
	}
	if sc.HoldBack != nil {
		parts = append(parts, fmt.Sprintf("HOLD-BACK=%s", formatFloat(*sc.HoldBack)))
	}
	if sc.PartHoldBack != nil {
		parts = append(parts, fmt.Sprintf("PART-HOLD-BACK=%s", formatFloat(*sc.PartHoldBack)))
	}
	b.WriteString(strings.Join(parts, ","))
	b.WriteString("\n")
	return b.String()
}

func writeByteRangeValue(br *ByteRange) string {
	if br.Offset != nil {
		return fmt.Sprintf("%d@%d", br.Length, *br.Offset)
	}
	return strconv.FormatUint(br.Length, 10)
}

func formatFloat(f float64) string {
	if f == math.Trunc(f) {
		return strconv.FormatFloat(f, 'f', 3, 64)
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func yesNo(b bool) string {
	if b {
		return "YES"
	}
	return "NO"
}

func keyEqual(a, b *Key) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func mapEqual(a, b *Map) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.URI == b.URI
}
