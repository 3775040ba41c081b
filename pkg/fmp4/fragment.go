package fmp4

import (
	"github.com/ngohuy/hlspacker/pkg/bitio"
	"github.com/ngohuy/hlspacker/pkg/isobmff"
)

const (
	trunFlagDataOffsetPresent     = 0x000001
	trunFlagSampleDurationPresent = 0x000100
	trunFlagSampleSizePresent     = 0x000200
	trunFlagSampleFlagsPresent    = 0x000400

	tfhdFlagDefaultSampleFlagsPresent = 0x000020
	tfhdFlagDefaultBaseIsMoof         = 0x020000
)

// BuildMediaSegment emits one moof+mdat fragment for sequenceNumber,
// containing one traf per entry in tracks. Sample bytes are read from
// source using each track's resolved byte ranges and concatenated into a
// single mdat in track order. Returns the concatenated moof||mdat bytes.
func BuildMediaSegment(sequenceNumber uint32, tracks []TrackSamples, source []byte) []byte {
	mfhd := buildMfhd(sequenceNumber)

	var trafs [][]byte
	var mdatPayload []byte
	for _, ts := range tracks {
		traf, trunOffsetFieldPos := buildTraf(ts)
		trafStart := len(joinAll(trafs)) // offset within moof payload before mfhd, patched below
		_ = trafStart
		_ = trunOffsetFieldPos
		trafs = append(trafs, traf)
		for _, r := range ts.Ranges {
			mdatPayload = append(mdatPayload, source[r.Offset:r.Offset+uint64(r.Length)]...)
		}
	}

	moofChildren := append([][]byte{mfhd}, trafs...)
	moof := bitio.WriteContainerBox(isobmff.TypeMoof, moofChildren...)
	mdat := bitio.WriteBox(isobmff.TypeMdat, mdatPayload)

	patchDataOffsets(moof, tracks)

	out := make([]byte, 0, len(moof)+len(mdat))
	out = append(out, moof...)
	out = append(out, mdat...)
	return out
}

func joinAll(bufs [][]byte) []byte {
	var out []byte
	for _, b := range bufs {
		out = append(out, b...)
	}
	return out
}

func buildMfhd(sequenceNumber uint32) []byte {
	w := bitio.NewWriter()
	w.WriteU32(sequenceNumber)
	return bitio.WriteFullBox(isobmff.TypeMfhd, 0, 0, w.Bytes())
}

// buildTraf returns the serialized traf box. The trun's data_offset field
// is written as a placeholder (0) and must be patched afterward by
// patchDataOffsets once the full moof size is known.
func buildTraf(ts TrackSamples) (traf []byte, _ int) {
	uniform, uniformFlags := uniformSampleFlags(ts.SyncFlags)
	tfhd := buildTfhd(ts.Track.TrackID, uniform, uniformFlags)
	tfdt := buildTfdt(ts.BaseDTS)
	trun := buildTrun(ts, uniform)
	return bitio.WriteContainerBox(isobmff.TypeTraf, tfhd, tfdt, trun), 0
}

// uniformSampleFlags reports whether every sample in syncFlags shares the
// same sync bit, and if so, the sample_flags word describing it. A run is
// never empty in practice (every plan has at least one sample).
func uniformSampleFlags(syncFlags []bool) (uniform bool, flags uint32) {
	if len(syncFlags) == 0 {
		return false, 0
	}
	first := syncFlags[0]
	for _, s := range syncFlags[1:] {
		if s != first {
			return false, 0
		}
	}
	if first {
		return true, sampleFlagsSync
	}
	return true, sampleFlagsNonSync
}

// buildTfhd writes track_ID and, when every sample in the run shares the
// same sync flag, a default_sample_flags field so trun doesn't need to
// repeat it per sample.
func buildTfhd(trackID uint32, uniform bool, defaultSampleFlags uint32) []byte {
	w := bitio.NewWriter()
	w.WriteU32(trackID)
	flags := uint32(tfhdFlagDefaultBaseIsMoof)
	if uniform {
		flags |= tfhdFlagDefaultSampleFlagsPresent
		w.WriteU32(defaultSampleFlags)
	}
	return bitio.WriteFullBox(isobmff.TypeTfhd, 0, flags, w.Bytes())
}

func buildTfdt(baseDTS int64) []byte {
	w := bitio.NewWriter()
	w.WriteU64(uint64(baseDTS))
	return bitio.WriteFullBox(isobmff.TypeTfdt, 1, 0, w.Bytes())
}

// buildTrun writes sample_count/data_offset/duration/size for every
// sample. Per-sample sample_flags are written only when the run is mixed
// sync/non-sync; a uniform run relies entirely on tfhd's
// default_sample_flags instead.
func buildTrun(ts TrackSamples, uniform bool) []byte {
	flags := trunFlagDataOffsetPresent | trunFlagSampleDurationPresent | trunFlagSampleSizePresent
	if !uniform {
		flags |= trunFlagSampleFlagsPresent
	}

	w := bitio.NewWriter()
	w.WriteU32(uint32(len(ts.Ranges)))
	w.WriteI32(0) // data_offset placeholder, patched after moof is serialized

	for i, r := range ts.Ranges {
		w.WriteU32(uint32(ts.Durations[i]))
		w.WriteU32(r.Length)
		if uniform {
			continue // covered by tfhd default_sample_flags
		}
		if ts.SyncFlags[i] {
			w.WriteU32(sampleFlagsSync)
		} else {
			w.WriteU32(sampleFlagsNonSync)
		}
	}

	return bitio.WriteFullBox(isobmff.TypeTrun, 0, uint32(flags), w.Bytes())
}

// patchDataOffsets rewrites each traf's trun.data_offset in place to the
// byte offset from the start of moof to that track's first mdat sample.
// All tracks' tfhd carries default-base-is-moof, so data_offset is
// relative to the moof box start, not the mdat.
func patchDataOffsets(moof []byte, tracks []TrackSamples) {
	boxes, err := isobmff.ParseBoxes(moof, 0, len(moof), 0)
	if err != nil || len(boxes) == 0 {
		return
	}
	moofBox := boxes[0]
	mdatDataStart := len(moof) + 8 // mdat box header is 8 bytes (payload never exceeds u32 here)

	runningOffset := mdatDataStart
	trafBoxes := moofBox.FindAll(isobmff.TypeTraf)
	for i, traf := range trafBoxes {
		trun := traf.Find(isobmff.TypeTrun)
		if trun == nil {
			continue
		}
		// trun payload (as parsed) is version(1)+flags(3)+sample_count(4)+data_offset(4)...
		dataOffsetFieldAbs := trun.PayloadStart() + 8
		patchU32At(moof, int(dataOffsetFieldAbs), uint32(runningOffset))
		if i < len(tracks) {
			for _, r := range tracks[i].Ranges {
				runningOffset += int(r.Length)
			}
		}
	}
}

func patchU32At(buf []byte, pos int, v uint32) {
	if pos < 0 || pos+4 > len(buf) {
		return
	}
	buf[pos] = byte(v >> 24)
	buf[pos+1] = byte(v >> 16)
	buf[pos+2] = byte(v >> 8)
	buf[pos+3] = byte(v)
}
