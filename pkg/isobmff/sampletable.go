package isobmff

import (
	"github.com/ngohuy/hlspacker/pkg/bitio"
	"github.com/ngohuy/hlspacker/pkg/errors"
)

// TimeToSampleRun is one run-length entry of the stts/ctts tables: the next
// Count samples all share Delta (decode delta, or signed composition
// offset for ctts).
type TimeToSampleRun struct {
	Count int
	Delta int64
}

// SampleToChunkRun is one stsc entry: starting at FirstChunk (1-based),
// every chunk holds SamplesPerChunk samples described by
// SampleDescriptionIndex, until the next run's FirstChunk.
type SampleToChunkRun struct {
	FirstChunk             uint32
	SamplesPerChunk        uint32
	SampleDescriptionIndex uint32
}

// SampleTable is one track's decoded stbl, ready for O(n) sample queries.
type SampleTable struct {
	SampleCount int

	TimeToSample []TimeToSampleRun
	HasCtts      bool
	CompositionOffsets []TimeToSampleRun

	SampleToChunk []SampleToChunkRun

	UniformSampleSize int64 // 0 means "use PerSampleSizes"
	PerSampleSizes    []uint32

	ChunkOffsets []uint64 // always widened to 64-bit regardless of stco/co64

	HasSyncSamples   bool
	SyncSampleIndices []uint32 // 1-based, ascending
}

// ParseSampleTable extracts a SampleTable from a parsed stbl box.
func ParseSampleTable(stbl *Box) (*SampleTable, error) {
	if stbl == nil {
		return nil, errors.NewMissingBox("stbl")
	}

	stts := stbl.Find(TypeStts)
	if stts == nil {
		return nil, errors.NewMissingBox("stts")
	}
	stsc := stbl.Find(TypeStsc)
	if stsc == nil {
		return nil, errors.NewMissingBox("stsc")
	}
	stsz := stbl.Find(TypeStsz)
	if stsz == nil {
		// stz2 (compact sample size) is not produced by mainstream encoders
		// for the codecs this engine targets; treat as a missing mandatory box.
		return nil, errors.NewMissingBox("stsz")
	}
	stco := stbl.Find(TypeStco)
	co64 := stbl.Find(TypeCo64)
	if stco == nil && co64 == nil {
		return nil, errors.NewMissingBox("stco/co64")
	}

	table := &SampleTable{}

	ttsRuns, err := parseTimeToSampleRuns(stts.Payload, "stts")
	if err != nil {
		return nil, err
	}
	table.TimeToSample = ttsRuns

	if ctts := stbl.Find(TypeCtts); ctts != nil {
		runs, err := parseCtts(ctts.Payload)
		if err != nil {
			return nil, err
		}
		table.HasCtts = true
		table.CompositionOffsets = runs
	}

	scRuns, err := parseStsc(stsc.Payload)
	if err != nil {
		return nil, err
	}
	table.SampleToChunk = scRuns

	uniform, sizes, count, err := parseStsz(stsz.Payload)
	if err != nil {
		return nil, err
	}
	table.UniformSampleSize = uniform
	table.PerSampleSizes = sizes
	table.SampleCount = count

	var offsets []uint64
	if co64 != nil {
		offsets, err = parseCo64(co64.Payload)
	} else {
		offsets, err = parseStco(stco.Payload)
	}
	if err != nil {
		return nil, err
	}
	table.ChunkOffsets = offsets

	if stss := stbl.Find(TypeStss); stss != nil {
		idx, err := parseStss(stss.Payload)
		if err != nil {
			return nil, err
		}
		table.HasSyncSamples = true
		table.SyncSampleIndices = idx
	}

	return table, nil
}

func parseTimeToSampleRuns(payload []byte, boxType string) ([]TimeToSampleRun, error) {
	r := bitio.NewReader(payload)
	if _, err := r.ReadU8(); err != nil { // version
		return nil, errors.NewInvalidBoxData(boxType, "truncated header")
	}
	if _, err := r.ReadU24(); err != nil { // flags
		return nil, errors.NewInvalidBoxData(boxType, "truncated header")
	}
	entryCount, err := r.ReadU32()
	if err != nil {
		return nil, errors.NewInvalidBoxData(boxType, "truncated entry_count")
	}
	runs := make([]TimeToSampleRun, 0, entryCount)
	for i := uint32(0); i < entryCount; i++ {
		count, err := r.ReadU32()
		if err != nil {
			return nil, errors.NewInvalidBoxData(boxType, "truncated entry")
		}
		delta, err := r.ReadU32()
		if err != nil {
			return nil, errors.NewInvalidBoxData(boxType, "truncated entry")
		}
		runs = append(runs, TimeToSampleRun{Count: int(count), Delta: int64(delta)})
	}
	return runs, nil
}

func parseCtts(payload []byte) ([]TimeToSampleRun, error) {
	r := bitio.NewReader(payload)
	version, err := r.ReadU8()
	if err != nil {
		return nil, errors.NewInvalidBoxData("ctts", "truncated header")
	}
	if _, err := r.ReadU24(); err != nil {
		return nil, errors.NewInvalidBoxData("ctts", "truncated header")
	}
	entryCount, err := r.ReadU32()
	if err != nil {
		return nil, errors.NewInvalidBoxData("ctts", "truncated entry_count")
	}
	runs := make([]TimeToSampleRun, 0, entryCount)
	for i := uint32(0); i < entryCount; i++ {
		count, err := r.ReadU32()
		if err != nil {
			return nil, errors.NewInvalidBoxData("ctts", "truncated entry")
		}
		raw, err := r.ReadU32()
		if err != nil {
			return nil, errors.NewInvalidBoxData("ctts", "truncated entry")
		}
		var delta int64
		if version == 1 {
			delta = int64(int32(raw))
		} else {
			delta = int64(raw)
		}
		runs = append(runs, TimeToSampleRun{Count: int(count), Delta: delta})
	}
	return runs, nil
}

func parseStsc(payload []byte) ([]SampleToChunkRun, error) {
	r := bitio.NewReader(payload)
	if _, err := r.ReadU8(); err != nil {
		return nil, errors.NewInvalidBoxData("stsc", "truncated header")
	}
	if _, err := r.ReadU24(); err != nil {
		return nil, errors.NewInvalidBoxData("stsc", "truncated header")
	}
	entryCount, err := r.ReadU32()
	if err != nil {
		return nil, errors.NewInvalidBoxData("stsc", "truncated entry_count")
	}
	runs := make([]SampleToChunkRun, 0, entryCount)
	for i := uint32(0); i < entryCount; i++ {
		first, err1 := r.ReadU32()
		perChunk, err2 := r.ReadU32()
		sdi, err3 := r.ReadU32()
		if err1 != nil || err2 != nil || err3 != nil {
			return nil, errors.NewInvalidBoxData("stsc", "truncated entry")
		}
		runs = append(runs, SampleToChunkRun{FirstChunk: first, SamplesPerChunk: perChunk, SampleDescriptionIndex: sdi})
	}
	return runs, nil
}

func parseStsz(payload []byte) (uniform int64, sizes []uint32, count int, err error) {
	r := bitio.NewReader(payload)
	if _, e := r.ReadU8(); e != nil {
		return 0, nil, 0, errors.NewInvalidBoxData("stsz", "truncated header")
	}
	if _, e := r.ReadU24(); e != nil {
		return 0, nil, 0, errors.NewInvalidBoxData("stsz", "truncated header")
	}
	sampleSize, e := r.ReadU32()
	if e != nil {
		return 0, nil, 0, errors.NewInvalidBoxData("stsz", "truncated sample_size")
	}
	sampleCount, e := r.ReadU32()
	if e != nil {
		return 0, nil, 0, errors.NewInvalidBoxData("stsz", "truncated sample_count")
	}
	if sampleSize != 0 {
		return int64(sampleSize), nil, int(sampleCount), nil
	}
	out := make([]uint32, 0, sampleCount)
	for i := uint32(0); i < sampleCount; i++ {
		sz, e := r.ReadU32()
		if e != nil {
			return 0, nil, 0, errors.NewInvalidBoxData("stsz", "truncated size entry")
		}
		out = append(out, sz)
	}
	return 0, out, int(sampleCount), nil
}

func parseStco(payload []byte) ([]uint64, error) {
	r := bitio.NewReader(payload)
	if _, err := r.ReadU8(); err != nil {
		return nil, errors.NewInvalidBoxData("stco", "truncated header")
	}
	if _, err := r.ReadU24(); err != nil {
		return nil, errors.NewInvalidBoxData("stco", "truncated header")
	}
	entryCount, err := r.ReadU32()
	if err != nil {
		return nil, errors.NewInvalidBoxData("stco", "truncated entry_count")
	}
	out := make([]uint64, 0, entryCount)
	for i := uint32(0); i < entryCount; i++ {
		v, err := r.ReadU32()
		if err != nil {
			return nil, errors.NewInvalidBoxData("stco", "truncated entry")
		}
		out = append(out, uint64(v))
	}
	return out, nil
}

func parseCo64(payload []byte) ([]uint64, error) {
	r := bitio.NewReader(payload)
	if _, err := r.ReadU8(); err != nil {
		return nil, errors.NewInvalidBoxData("co64", "truncated header")
	}
	if _, err := r.ReadU24(); err != nil {
		return nil, errors.NewInvalidBoxData("co64", "truncated header")
	}
	entryCount, err := r.ReadU32()
	if err != nil {
		return nil, errors.NewInvalidBoxData("co64", "truncated entry_count")
	}
	out := make([]uint64, 0, entryCount)
	for i := uint32(0); i < entryCount; i++ {
		v, err := r.ReadU64()
		if err != nil {
			return nil, errors.NewInvalidBoxData("co64", "truncated entry")
		}
		out = append(out, v)
	}
	return out, nil
}

func parseStss(payload []byte) ([]uint32, error) {
	r := bitio.NewReader(payload)
	if _, err := r.ReadU8(); err != nil {
		return nil, errors.NewInvalidBoxData("stss", "truncated header")
	}
	if _, err := r.ReadU24(); err != nil {
		return nil, errors.NewInvalidBoxData("stss", "truncated header")
	}
	entryCount, err := r.ReadU32()
	if err != nil {
		return nil, errors.NewInvalidBoxData("stss", "truncated entry_count")
	}
	out := make([]uint32, 0, entryCount)
	for i := uint32(0); i < entryCount; i++ {
		v, err := r.ReadU32()
		if err != nil {
			return nil, errors.NewInvalidBoxData("stss", "truncated entry")
		}
		out = append(out, v)
	}
	return out, nil
}
