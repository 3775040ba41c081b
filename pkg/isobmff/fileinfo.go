package isobmff

import (
	"github.com/ngohuy/hlspacker/pkg/bitio"
	"github.com/ngohuy/hlspacker/pkg/errors"
)

// MediaType classifies a track's handler.
type MediaType int

const (
	MediaUnknown MediaType = iota
	MediaVideo
	MediaAudio
	MediaSubtitle
	MediaText
)

// TrackInfo carries movie/track-level metadata needed to plan and emit
// segments for one trak.
type TrackInfo struct {
	TrackID         uint32
	Media           MediaType
	Timescale       uint32
	Duration        uint64
	Language        string // ISO 639-2/T, empty when "und"
	Codec           string // four-CC from the first stsd entry
	Width, Height   float64
	StsdPayload     []byte // raw stsd payload, preserved for init-segment synthesis
	HasSyncSamples  bool
	SampleTable     *SampleTable
	StblBox         *Box
	AVCConfig       []byte // avcC payload, video only
	AudioConfig     []byte // AudioSpecificConfig, audio only
}

// FileInfo is the movie-level summary produced by parsing one ISOBMFF file.
type FileInfo struct {
	MajorBrand       string
	CompatibleBrands []string
	Timescale        uint32
	Duration         uint64
	Tracks           []*TrackInfo
}

// ExtractFileInfo walks a parsed top-level box list and builds a FileInfo.
func ExtractFileInfo(topLevel []*Box) (*FileInfo, error) {
	info := &FileInfo{}

	if ftyp := FindTopLevel(topLevel, TypeFtyp); ftyp != nil {
		major, compat, err := parseFtyp(ftyp.Payload)
		if err != nil {
			return nil, err
		}
		info.MajorBrand = major
		info.CompatibleBrands = compat
	}

	moov := FindTopLevel(topLevel, TypeMoov)
	if moov == nil {
		return nil, errors.NewMissingBox("moov")
	}

	mvhd := moov.Find(TypeMvhd)
	if mvhd == nil {
		return nil, errors.NewMissingBox("mvhd")
	}
	timescale, duration, err := parseMvhd(mvhd.Payload)
	if err != nil {
		return nil, err
	}
	info.Timescale = timescale
	info.Duration = duration

	for _, trak := range moov.FindAll(TypeTrak) {
		track, err := extractTrackInfo(trak)
		if err != nil {
			return nil, err
		}
		info.Tracks = append(info.Tracks, track)
	}

	return info, nil
}

func parseFtyp(payload []byte) (string, []string, error) {
	r := bitio.NewReader(payload)
	major, err := r.Read4CC()
	if err != nil {
		return "", nil, errors.NewInvalidBoxData("ftyp", "truncated major_brand")
	}
	if err := r.Skip(4); err != nil { // minor_version, not surfaced
		return "", nil, errors.NewInvalidBoxData("ftyp", "truncated minor_version")
	}
	seen := map[string]bool{major: true}
	var compat []string
	for r.Len() >= 4 {
		b, err := r.Read4CC()
		if err != nil {
			break
		}
		if !seen[b] {
			seen[b] = true
			compat = append(compat, b)
		}
	}
	return major, compat, nil
}

func parseMvhd(payload []byte) (timescale uint32, duration uint64, err error) {
	r := bitio.NewReader(payload)
	version, e := r.ReadU8()
	if e != nil {
		return 0, 0, errors.NewInvalidBoxData("mvhd", "truncated version")
	}
	if _, e := r.ReadU24(); e != nil {
		return 0, 0, errors.NewInvalidBoxData("mvhd", "truncated flags")
	}
	if version == 1 {
		if e := r.Skip(16); e != nil { // creation+modification time, 64-bit each
			return 0, 0, errors.NewInvalidBoxData("mvhd", "truncated v1 times")
		}
		ts, e := r.ReadU32()
		if e != nil {
			return 0, 0, errors.NewInvalidBoxData("mvhd", "truncated timescale")
		}
		dur, e := r.ReadU64()
		if e != nil {
			return 0, 0, errors.NewInvalidBoxData("mvhd", "truncated duration")
		}
		return ts, dur, nil
	}
	if e := r.Skip(8); e != nil { // creation+modification time, 32-bit each
		return 0, 0, errors.NewInvalidBoxData("mvhd", "truncated v0 times")
	}
	ts, e := r.ReadU32()
	if e != nil {
		return 0, 0, errors.NewInvalidBoxData("mvhd", "truncated timescale")
	}
	dur, e := r.ReadU32()
	if e != nil {
		return 0, 0, errors.NewInvalidBoxData("mvhd", "truncated duration")
	}
	return ts, uint64(dur), nil
}

func extractTrackInfo(trak *Box) (*TrackInfo, error) {
	tkhd := trak.Find(TypeTkhd)
	if tkhd == nil {
		return nil, errors.NewMissingBox("tkhd")
	}
	trackID, width, height, err := parseTkhd(tkhd.Payload)
	if err != nil {
		return nil, err
	}

	mdia := trak.Find(TypeMdia)
	if mdia == nil {
		return nil, errors.NewMissingBox("mdia")
	}
	mdhd := mdia.Find(TypeMdhd)
	if mdhd == nil {
		return nil, errors.NewMissingBox("mdhd")
	}
	timescale, duration, lang, err := parseMdhd(mdhd.Payload)
	if err != nil {
		return nil, err
	}

	hdlr := mdia.Find(TypeHdlr)
	if hdlr == nil {
		return nil, errors.NewMissingBox("hdlr")
	}
	handlerType, err := parseHdlr(hdlr.Payload)
	if err != nil {
		return nil, err
	}

	minf := mdia.Find(TypeMinf)
	if minf == nil {
		return nil, errors.NewMissingBox("minf")
	}
	stbl := minf.Find(TypeStbl)
	if stbl == nil {
		return nil, errors.NewMissingBox("stbl")
	}
	stsd := stbl.Find(TypeStsd)
	if stsd == nil {
		return nil, errors.NewMissingBox("stsd")
	}
	codec, entryPayload, err := parseStsdFirstEntry(stsd.Payload)
	if err != nil {
		return nil, err
	}

	table, err := ParseSampleTable(stbl)
	if err != nil {
		return nil, err
	}

	track := &TrackInfo{
		TrackID:        trackID,
		Media:          mediaTypeFromHandler(handlerType),
		Timescale:      timescale,
		Duration:       duration,
		Language:       lang,
		Codec:          codec,
		Width:          width,
		Height:         height,
		StsdPayload:    stsd.Payload,
		HasSyncSamples: table.HasSyncSamples,
		SampleTable:    table,
		StblBox:        stbl,
	}

	if codec == TypeAvc1 {
		if avcC := findAvcC(entryPayload); avcC != nil {
			track.AVCConfig = avcC
		}
	}
	if codec == TypeMp4a {
		if cfg, err := ExtractAudioSpecificConfig(entryPayload); err == nil {
			track.AudioConfig = cfg
		}
	}

	return track, nil
}

func parseTkhd(payload []byte) (trackID uint32, width, height float64, err error) {
	r := bitio.NewReader(payload)
	version, e := r.ReadU8()
	if e != nil {
		return 0, 0, 0, errors.NewInvalidBoxData("tkhd", "truncated version")
	}
	if _, e := r.ReadU24(); e != nil {
		return 0, 0, 0, errors.NewInvalidBoxData("tkhd", "truncated flags")
	}
	if version == 1 {
		if e := r.Skip(8 + 8); e != nil { // creation+modification, 64-bit
			return 0, 0, 0, errors.NewInvalidBoxData("tkhd", "truncated v1 times")
		}
		id, e := r.ReadU32()
		if e != nil {
			return 0, 0, 0, errors.NewInvalidBoxData("tkhd", "truncated track_id")
		}
		trackID = id
		if e := r.Skip(4 + 8); e != nil { // reserved + duration(64)
			return 0, 0, 0, errors.NewInvalidBoxData("tkhd", "truncated v1 duration")
		}
	} else {
		if e := r.Skip(4 + 4); e != nil {
			return 0, 0, 0, errors.NewInvalidBoxData("tkhd", "truncated v0 times")
		}
		id, e := r.ReadU32()
		if e != nil {
			return 0, 0, 0, errors.NewInvalidBoxData("tkhd", "truncated track_id")
		}
		trackID = id
		if e := r.Skip(4 + 4); e != nil { // reserved + duration(32)
			return 0, 0, 0, errors.NewInvalidBoxData("tkhd", "truncated v0 duration")
		}
	}
	// reserved(8) + layer(2) + alternate_group(2) + volume(2) + reserved(2) + matrix(36)
	if e := r.Skip(8 + 2 + 2 + 2 + 2 + 36); e != nil {
		return trackID, 0, 0, errors.NewInvalidBoxData("tkhd", "truncated trailer")
	}
	w, e := r.ReadFixed16_16()
	if e != nil {
		return trackID, 0, 0, errors.NewInvalidBoxData("tkhd", "truncated width")
	}
	h, e := r.ReadFixed16_16()
	if e != nil {
		return trackID, 0, 0, errors.NewInvalidBoxData("tkhd", "truncated height")
	}
	return trackID, w, h, nil
}

func parseMdhd(payload []byte) (timescale uint32, duration uint64, lang string, err error) {
	r := bitio.NewReader(payload)
	version, e := r.ReadU8()
	if e != nil {
		return 0, 0, "", errors.NewInvalidBoxData("mdhd", "truncated version")
	}
	if _, e := r.ReadU24(); e != nil {
		return 0, 0, "", errors.NewInvalidBoxData("mdhd", "truncated flags")
	}
	if version == 1 {
		if e := r.Skip(16); e != nil {
			return 0, 0, "", errors.NewInvalidBoxData("mdhd", "truncated v1 times")
		}
		ts, e := r.ReadU32()
		if e != nil {
			return 0, 0, "", errors.NewInvalidBoxData("mdhd", "truncated timescale")
		}
		dur, e := r.ReadU64()
		if e != nil {
			return 0, 0, "", errors.NewInvalidBoxData("mdhd", "truncated duration")
		}
		timescale, duration = ts, dur
	} else {
		if e := r.Skip(8); e != nil {
			return 0, 0, "", errors.NewInvalidBoxData("mdhd", "truncated v0 times")
		}
		ts, e := r.ReadU32()
		if e != nil {
			return 0, 0, "", errors.NewInvalidBoxData("mdhd", "truncated timescale")
		}
		dur, e := r.ReadU32()
		if e != nil {
			return 0, 0, "", errors.NewInvalidBoxData("mdhd", "truncated duration")
		}
		timescale, duration = ts, uint64(dur)
	}
	packed, e := r.ReadU16()
	if e != nil {
		return timescale, duration, "", errors.NewInvalidBoxData("mdhd", "truncated language")
	}
	lang = decodePackedLanguage(packed)
	return timescale, duration, lang, nil
}

func decodePackedLanguage(packed uint16) string {
	c1 := byte((packed>>10)&0x1F) + 0x60
	c2 := byte((packed>>5)&0x1F) + 0x60
	c3 := byte(packed&0x1F) + 0x60
	s := string([]byte{c1, c2, c3})
	if s == "und" {
		return ""
	}
	return s
}

func parseHdlr(payload []byte) (string, error) {
	if len(payload) < 12 {
		return "", errors.NewInvalidBoxData("hdlr", "truncated")
	}
	return string(payload[8:12]), nil
}

func mediaTypeFromHandler(handler string) MediaType {
	switch handler {
	case "vide":
		return MediaVideo
	case "soun":
		return MediaAudio
	case "sbtl":
		return MediaSubtitle
	case "text":
		return MediaText
	default:
		return MediaUnknown
	}
}

// parseStsdFirstEntry returns the codec four-CC of the first sample
// description entry and the entry's full payload (entry-size field
// inclusive of the header) for further codec-specific extraction.
func parseStsdFirstEntry(stsd []byte) (codec string, entryPayload []byte, err error) {
	r := bitio.NewReader(stsd)
	if _, e := r.ReadU8(); e != nil { // version
		return "", nil, errors.NewInvalidBoxData("stsd", "truncated version")
	}
	if _, e := r.ReadU24(); e != nil { // flags
		return "", nil, errors.NewInvalidBoxData("stsd", "truncated flags")
	}
	if _, e := r.ReadU32(); e != nil { // entry_count
		return "", nil, errors.NewInvalidBoxData("stsd", "truncated entry_count")
	}
	remaining := r.Remaining()
	if len(remaining) < 8 {
		return "", nil, errors.NewInvalidBoxData("stsd", "truncated entry")
	}
	er := bitio.NewReader(remaining)
	entrySize, e := er.ReadU32()
	if e != nil {
		return "", nil, errors.NewInvalidBoxData("stsd", "truncated entry size")
	}
	fourCC, e := er.Read4CC()
	if e != nil {
		return "", nil, errors.NewInvalidBoxData("stsd", "truncated entry type")
	}
	if int(entrySize) > len(remaining) {
		return "", nil, errors.NewInvalidBoxData("stsd", "entry size overruns stsd")
	}
	return fourCC, remaining[:entrySize], nil
}
