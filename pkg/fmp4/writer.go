// Package fmp4 synthesizes fragmented MP4 (CMAF-compatible) init and media
// segments from parsed track metadata and sample byte ranges.
package fmp4

import (
	"github.com/ngohuy/hlspacker/pkg/bitio"
	"github.com/ngohuy/hlspacker/pkg/isobmff"
)

const (
	sampleFlagsSync    = 0x02000000
	sampleFlagsNonSync = 0x01010000
)

// TrackSamples is one track's slice of samples destined for a single media
// segment, already resolved to source byte ranges.
type TrackSamples struct {
	Track       *isobmff.TrackInfo
	Ranges      []isobmff.SampleRange
	Durations   []int64 // per-sample decode duration in track timescale ticks
	SyncFlags   []bool  // per-sample: true if sync
	BaseDTS     int64
}

// BuildInitSegment emits ftyp+moov+mvex for the given tracks, which must
// already exclude cover-art and any track not selected for output.
func BuildInitSegment(tracks []*isobmff.TrackInfo, fileTimescale uint32) []byte {
	ftyp := bitio.WriteBox(isobmff.TypeFtyp, buildFtypPayload())

	var trakBoxes [][]byte
	var trexBoxes [][]byte
	maxTrackID := uint32(0)
	for _, t := range tracks {
		trakBoxes = append(trakBoxes, buildTrak(t))
		trexBoxes = append(trexBoxes, buildTrex(t.TrackID))
		if t.TrackID > maxTrackID {
			maxTrackID = t.TrackID
		}
	}

	mvhd := buildMvhd(fileTimescale, maxTrackID+1)
	mvex := bitio.WriteContainerBox(isobmff.TypeMvex, trexBoxes...)

	moovChildren := append([][]byte{mvhd}, trakBoxes...)
	moovChildren = append(moovChildren, mvex)
	moov := bitio.WriteContainerBox(isobmff.TypeMoov, moovChildren...)

	out := make([]byte, 0, len(ftyp)+len(moov))
	out = append(out, ftyp...)
	out = append(out, moov...)
	return out
}

func buildFtypPayload() []byte {
	w := bitio.NewWriter()
	w.Write4CC("isom")
	w.WriteU32(0x200)
	w.Write4CC("isom")
	w.Write4CC("iso6")
	w.Write4CC("mp41")
	return w.Bytes()
}

func buildMvhd(timescale, nextTrackID uint32) []byte {
	w := bitio.NewWriter()
	w.Zeros(8) // creation_time, modification_time
	w.WriteU32(timescale)
	w.WriteU32(0) // duration: 0, movie is fragmented
	w.WriteFixed16_16(1.0)
	w.WriteFixed8_8(1.0)
	w.Zeros(2)  // reserved
	w.Zeros(8)  // reserved[2]
	// unity matrix
	matrix := []int32{0x00010000, 0, 0, 0, 0x00010000, 0, 0, 0, 0x40000000}
	for _, v := range matrix {
		w.WriteI32(v)
	}
	w.Zeros(24) // pre_defined[6]
	w.WriteU32(nextTrackID)
	return bitio.WriteFullBox(isobmff.TypeMvhd, 0, 0, w.Bytes())
}

func buildTrak(t *isobmff.TrackInfo) []byte {
	tkhd := buildTkhd(t)
	mdia := buildMdia(t)
	return bitio.WriteContainerBox(isobmff.TypeTrak, tkhd, mdia)
}

func buildTkhd(t *isobmff.TrackInfo) []byte {
	w := bitio.NewWriter()
	w.Zeros(8) // creation_time, modification_time
	w.WriteU32(t.TrackID)
	w.Zeros(4) // reserved
	w.WriteU32(0) // duration: unknown at init-segment time
	w.Zeros(8) // reserved[2]
	w.WriteU16(0) // layer
	w.WriteU16(0) // alternate_group
	if t.Media == isobmff.MediaAudio {
		w.WriteFixed8_8(1.0)
	} else {
		w.WriteFixed8_8(0)
	}
	w.WriteU16(0) // reserved
	matrix := []int32{0x00010000, 0, 0, 0, 0x00010000, 0, 0, 0, 0x40000000}
	for _, v := range matrix {
		w.WriteI32(v)
	}
	if t.Media == isobmff.MediaVideo {
		w.WriteFixed16_16(t.Width)
		w.WriteFixed16_16(t.Height)
	} else {
		w.WriteFixed16_16(0)
		w.WriteFixed16_16(0)
	}
	const flagsEnabledInMovie = 0x000003
	return bitio.WriteFullBox(isobmff.TypeTkhd, 0, flagsEnabledInMovie, w.Bytes())
}

func buildMdia(t *isobmff.TrackInfo) []byte {
	mdhd := buildMdhd(t)
	hdlr := buildHdlr(t)
	minf := buildMinf(t)
	return bitio.WriteContainerBox(isobmff.TypeMdia, mdhd, hdlr, minf)
}

func buildMdhd(t *isobmff.TrackInfo) []byte {
	w := bitio.NewWriter()
	w.Zeros(8)
	w.WriteU32(t.Timescale)
	w.WriteU32(0) // duration: unknown at init-segment time
	w.WriteU16(packLanguage(t.Language))
	w.WriteU16(0) // pre_defined
	return bitio.WriteFullBox(isobmff.TypeMdhd, 0, 0, w.Bytes())
}

func packLanguage(lang string) uint16 {
	if len(lang) != 3 {
		lang = "und"
	}
	var packed uint16
	packed |= uint16(lang[0]-0x60) << 10
	packed |= uint16(lang[1]-0x60) << 5
	packed |= uint16(lang[2] - 0x60)
	return packed
}

func buildHdlr(t *isobmff.TrackInfo) []byte {
	handlerType, name := "vide", "VideoHandler"
	switch t.Media {
	case isobmff.MediaAudio:
		handlerType, name = "soun", "SoundHandler"
	case isobmff.MediaSubtitle:
		handlerType, name = "sbtl", "SubtitleHandler"
	case isobmff.MediaText:
		handlerType, name = "text", "TextHandler"
	}
	w := bitio.NewWriter()
	w.WriteU32(0) // pre_defined
	w.Write4CC(handlerType)
	w.Zeros(12) // reserved[3]
	w.WriteBytes([]byte(name))
	w.WriteU8(0) // NUL terminator
	return bitio.WriteFullBox(isobmff.TypeHdlr, 0, 0, w.Bytes())
}

func buildMinf(t *isobmff.TrackInfo) []byte {
	var mediaHeader []byte
	if t.Media == isobmff.MediaAudio {
		mediaHeader = bitio.WriteFullBox(isobmff.TypeSmhd, 0, 0, make([]byte, 4))
	} else {
		mediaHeader = bitio.WriteFullBox(isobmff.TypeVmhd, 0, 1, make([]byte, 8))
	}
	dinf := buildDinf()
	stbl := buildEmptyStbl(t.StsdPayload)
	return bitio.WriteContainerBox(isobmff.TypeMinf, mediaHeader, dinf, stbl)
}

func buildDinf() []byte {
	url := bitio.WriteFullBox(isobmff.TypeURL, 0, 1, nil)
	dref := bitio.NewWriter()
	dref.WriteU32(1) // entry_count
	dref.WriteBytes(url)
	drefBox := bitio.WriteFullBox(isobmff.TypeDref, 0, 0, dref.Bytes())
	return bitio.WriteContainerBox(isobmff.TypeDinf, drefBox)
}

func buildEmptyStbl(stsdPayload []byte) []byte {
	stsd := bitio.WriteBox(isobmff.TypeStsd, stsdPayload)
	stts := bitio.WriteFullBox(isobmff.TypeStts, 0, 0, make([]byte, 4))
	stsc := bitio.WriteFullBox(isobmff.TypeStsc, 0, 0, make([]byte, 4))

	stszW := bitio.NewWriter()
	stszW.WriteU32(0) // sample_size
	stszW.WriteU32(0) // sample_count
	stsz := bitio.WriteFullBox(isobmff.TypeStsz, 0, 0, stszW.Bytes())

	stco := bitio.WriteFullBox(isobmff.TypeStco, 0, 0, make([]byte, 4))

	return bitio.WriteContainerBox(isobmff.TypeStbl, stsd, stts, stsc, stsz, stco)
}

func buildTrex(trackID uint32) []byte {
	w := bitio.NewWriter()
	w.WriteU32(trackID)
	w.WriteU32(1) // default_sample_description_index
	w.WriteU32(0) // default_sample_duration
	w.WriteU32(0) // default_sample_size
	w.WriteU32(0) // default_sample_flags
	return bitio.WriteFullBox(isobmff.TypeTrex, 0, 0, w.Bytes())
}
