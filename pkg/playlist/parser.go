package playlist

import (
	"strconv"
	"strings"

	"github.com/ngohuy/hlspacker/pkg/errors"
)

// PlaylistKind classifies a parsed playlist.
type PlaylistKind int

const (
	KindUnknown PlaylistKind = iota
	KindMedia
	KindMaster
)

// ParseResult carries whichever of Media/Master was populated, per Kind.
type ParseResult struct {
	Kind   PlaylistKind
	Media  *MediaPlaylist
	Master *MasterPlaylist
}

// Parse runs the two-phase line scan described for PlaylistParser: validate
// the #EXTM3U header, dispatch each #EXT- tag to a handler, attach bare
// lines as URIs to the in-progress segment/variant, then classify the
// result as media or master.
func Parse(text string) (*ParseResult, error) {
	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")

	firstNonEmpty := -1
	for i, l := range lines {
		if strings.TrimSpace(l) != "" {
			firstNonEmpty = i
			break
		}
	}
	if firstNonEmpty == -1 || strings.TrimSpace(lines[firstNonEmpty]) != "#EXTM3U" {
		return nil, errors.NewMissingHeader()
	}

	media := &MediaPlaylist{Version: 3, Defines: map[string]string{}}
	master := &MasterPlaylist{Version: 3, Defines: map[string]string{}}
	sawStreamInf := false
	sawMediaTags := false

	var curSegment *Segment
	var pendingVariant *Variant

	for lineNo := firstNonEmpty + 1; lineNo < len(lines); lineNo++ {
		raw := strings.TrimSpace(lines[lineNo])
		if raw == "" {
			continue
		}

		if !strings.HasPrefix(raw, "#") {
			// bare URI line: attaches to whatever is in progress.
			if pendingVariant != nil {
				pendingVariant.URI = resolveDefine(raw, media.Defines)
				master.Variants = append(master.Variants, *pendingVariant)
				pendingVariant = nil
				continue
			}
			if curSegment != nil {
				curSegment.URI = resolveDefine(raw, media.Defines)
				media.Segments = append(media.Segments, *curSegment)
				curSegment = nil
				sawMediaTags = true
				continue
			}
			continue
		}

		if !strings.HasPrefix(raw, "#EXT") {
			continue // ordinary comment
		}

		tag, rest, _ := strings.Cut(raw, ":")

		switch tag {
		case "#EXT-X-VERSION":
			v, err := strconv.Atoi(rest)
			if err != nil {
				return nil, errors.NewPlaylistParseFailed("invalid EXT-X-VERSION", lineNo+1)
			}
			media.Version, master.Version = v, v
		case "#EXT-X-INDEPENDENT-SEGMENTS":
			media.IndependentSegments, master.IndependentSegments = true, true
		case "#EXT-X-DEFINE":
			attrs := parseAttributeList(rest)
			if name, ok := attrs["NAME"]; ok {
				media.Defines[name] = attrs["VALUE"]
				master.Defines[name] = attrs["VALUE"]
			}
		case "#EXT-X-TARGETDURATION":
			n, err := strconv.Atoi(rest)
			if err != nil {
				return nil, errors.NewPlaylistParseFailed("invalid EXT-X-TARGETDURATION", lineNo+1)
			}
			media.TargetDuration = n
			sawMediaTags = true
		case "#EXT-X-MEDIA-SEQUENCE":
			n, err := strconv.ParseUint(rest, 10, 64)
			if err != nil {
				return nil, errors.NewPlaylistParseFailed("invalid EXT-X-MEDIA-SEQUENCE", lineNo+1)
			}
			media.MediaSequence = n
		case "#EXT-X-DISCONTINUITY-SEQUENCE":
			n, err := strconv.ParseUint(rest, 10, 64)
			if err != nil {
				return nil, errors.NewPlaylistParseFailed("invalid EXT-X-DISCONTINUITY-SEQUENCE", lineNo+1)
			}
			media.DiscontinuitySequence = n
		case "#EXT-X-PLAYLIST-TYPE":
			media.PlaylistType = rest
		case "#EXT-X-I-FRAMES-ONLY":
			media.IFramesOnly = true
		case "#EXT-X-ENDLIST":
			media.EndList = true
		case "#EXT-X-DISCONTINUITY":
			curSegment = ensureSegment(curSegment)
			curSegment.Discontinuity = true
		case "#EXTINF":
			parts := strings.SplitN(rest, ",", 2)
			dur, err := strconv.ParseFloat(parts[0], 64)
			if err != nil {
				return nil, errors.NewInvalidDuration(lineNo + 1)
			}
			curSegment = ensureSegment(curSegment)
			curSegment.Duration = dur
			if len(parts) == 2 {
				curSegment.Title = parts[1]
			}
		case "#EXT-X-BYTERANGE":
			curSegment = ensureSegment(curSegment)
			curSegment.ByteRange = parseByteRangeValue(rest)
		case "#EXT-X-KEY":
			attrs := parseAttributeList(rest)
			key := &Key{
				Method:            attrString(attrs, "METHOD"),
				URI:               attrString(attrs, "URI"),
				IV:                attrString(attrs, "IV"),
				KeyFormat:         attrString(attrs, "KEYFORMAT"),
				KeyFormatVersions: attrString(attrs, "KEYFORMATVERSIONS"),
			}
			curSegment = ensureSegment(curSegment)
			curSegment.Key = key
		case "#EXT-X-MAP":
			attrs := parseAttributeList(rest)
			m := &Map{URI: attrString(attrs, "URI")}
			if br, ok := attrs["BYTERANGE"]; ok {
				m.ByteRange = parseByteRangeValue(br)
			}
			curSegment = ensureSegment(curSegment)
			curSegment.Map = m
		case "#EXT-X-PROGRAM-DATE-TIME":
			curSegment = ensureSegment(curSegment)
			curSegment.ProgramDateTime = rest
		case "#EXT-X-GAP":
			curSegment = ensureSegment(curSegment)
			curSegment.Gap = true
		case "#EXT-X-BITRATE":
			n, err := strconv.ParseUint(rest, 10, 64)
			if err == nil {
				curSegment = ensureSegment(curSegment)
				curSegment.Bitrate = &n
			}
		case "#EXT-X-PART-INF":
			attrs := parseAttributeList(rest)
			if v, ok := attrFloat(attrs, "PART-TARGET"); ok {
				media.PartInf = &PartInf{PartTarget: v}
			}
		case "#EXT-X-SERVER-CONTROL":
			attrs := parseAttributeList(rest)
			sc := &ServerControl{
				CanBlockReload:    attrBoolYes(attrs, "CAN-BLOCK-RELOAD"),
				CanSkipDateRanges: attrBoolYes(attrs, "CAN-SKIP-DATERANGES"),
			}
			if v, ok := attrFloat(attrs, "CAN-SKIP-UNTIL"); ok {
				sc.CanSkipUntil = &v
			}
			if v, ok := attrFloat(attrs, "HOLD-BACK"); ok {
				sc.HoldBack = &v
			}
			if v, ok := attrFloat(attrs, "PART-HOLD-BACK"); ok {
				sc.PartHoldBack = &v
			}
			media.ServerControl = sc
		case "#EXT-X-PART":
			attrs := parseAttributeList(rest)
			dur, _ := attrFloat(attrs, "DURATION")
			p := PartialSegment{
				URI:         attrString(attrs, "URI"),
				Duration:    dur,
				Independent: attrBoolYes(attrs, "INDEPENDENT"),
				Gap:         attrBoolYes(attrs, "GAP"),
			}
			if br, ok := attrs["BYTERANGE"]; ok {
				p.ByteRange = parseByteRangeValue(br)
			}
			curSegment = ensureSegment(curSegment)
			curSegment.Parts = append(curSegment.Parts, p)
		case "#EXT-X-PRELOAD-HINT":
			attrs := parseAttributeList(rest)
			h := PreloadHint{Type: attrString(attrs, "TYPE"), URI: attrString(attrs, "URI")}
			if v, ok := attrUint(attrs, "BYTERANGE-START"); ok {
				h.ByteRangeStart = &v
			}
			if v, ok := attrUint(attrs, "BYTERANGE-LENGTH"); ok {
				h.ByteRangeLength = &v
			}
			media.PreloadHints = append(media.PreloadHints, h)
		case "#EXT-X-RENDITION-REPORT":
			attrs := parseAttributeList(rest)
			r := RenditionReport{URI: attrString(attrs, "URI")}
			if v, ok := attrUint(attrs, "LAST-MSN"); ok {
				r.LastMSN = v
			}
			if v, ok := attrUint(attrs, "LAST-PART"); ok {
				r.LastPart = &v
			}
			media.RenditionReports = append(media.RenditionReports, r)
		case "#EXT-X-SKIP":
			attrs := parseAttributeList(rest)
			if n, ok := attrInt(attrs, "SKIPPED-SEGMENTS"); ok {
				media.SkippedSegments = int(n)
			}
		case "#EXT-X-MEDIA":
			attrs := parseAttributeList(rest)
			master.Renditions = append(master.Renditions, Rendition{
				Type:       attrString(attrs, "TYPE"),
				GroupID:    attrString(attrs, "GROUP-ID"),
				Name:       attrString(attrs, "NAME"),
				Language:   attrString(attrs, "LANGUAGE"),
				Default:    attrBoolYes(attrs, "DEFAULT"),
				AutoSelect: attrBoolYes(attrs, "AUTOSELECT"),
				URI:        attrString(attrs, "URI"),
				Channels:   attrString(attrs, "CHANNELS"),
			})
		case "#EXT-X-STREAM-INF":
			attrs := parseAttributeList(rest)
			bw, _ := attrUint(attrs, "BANDWIDTH")
			v := &Variant{
				Bandwidth:  bw,
				Codecs:     attrString(attrs, "CODECS"),
				Resolution: attrString(attrs, "RESOLUTION"),
				Audio:      attrString(attrs, "AUDIO"),
				Video:      attrString(attrs, "VIDEO"),
				Subtitles:  attrString(attrs, "SUBTITLES"),
			}
			if avg, ok := attrUint(attrs, "AVERAGE-BANDWIDTH"); ok {
				v.AverageBandwidth = &avg
			}
			if fr, ok := attrFloat(attrs, "FRAME-RATE"); ok {
				v.FrameRate = &fr
			}
			pendingVariant = v
			sawStreamInf = true
		case "#EXT-X-I-FRAME-STREAM-INF":
			attrs := parseAttributeList(rest)
			bw, _ := attrUint(attrs, "BANDWIDTH")
			master.IFrameVariants = append(master.IFrameVariants, IFrameVariant{
				URI:        attrString(attrs, "URI"),
				Bandwidth:  bw,
				Codecs:     attrString(attrs, "CODECS"),
				Resolution: attrString(attrs, "RESOLUTION"),
			})
		case "#EXT-X-SESSION-DATA":
			attrs := parseAttributeList(rest)
			master.SessionData = append(master.SessionData, SessionData{
				DataID:   attrString(attrs, "DATA-ID"),
				Value:    attrString(attrs, "VALUE"),
				URI:      attrString(attrs, "URI"),
				Language: attrString(attrs, "LANGUAGE"),
			})
		case "#EXT-X-SESSION-KEY":
			attrs := parseAttributeList(rest)
			master.SessionKeys = append(master.SessionKeys, Key{
				Method: attrString(attrs, "METHOD"),
				URI:    attrString(attrs, "URI"),
			})
		case "#EXT-X-CONTENT-STEERING":
			attrs := parseAttributeList(rest)
			master.ContentSteeringURI = attrString(attrs, "SERVER-URI")
		}
	}

	isMaster := sawStreamInf
	isMedia := sawMediaTags || media.TargetDuration > 0 || len(media.Segments) > 0
	if isMaster && isMedia {
		return nil, errors.NewAmbiguousPlaylistType()
	}
	if isMaster {
		return &ParseResult{Kind: KindMaster, Master: master}, nil
	}
	if isMedia {
		return &ParseResult{Kind: KindMedia, Media: media}, nil
	}
	return nil, errors.NewAmbiguousPlaylistType()
}

func ensureSegment(cur *Segment) *Segment {
	if cur == nil {
		return &Segment{}
	}
	return cur
}

func resolveDefine(uri string, defines map[string]string) string {
	resolved, ok := resolveVariables(uri, defines, false)
	if !ok {
		return uri
	}
	return resolved
}
