package isobmff

import "github.com/ngohuy/hlspacker/pkg/errors"

// SampleRange is a source-file byte range holding one sample's payload.
type SampleRange struct {
	Offset uint64
	Length uint32
}

// SegmentPlan describes one dense span of samples destined for a single
// output segment, as produced by PlanSegments.
type SegmentPlan struct {
	FirstSampleIndex  int // 0-based
	SampleCount       int
	DurationSeconds   float64
	StartDTSTicks     int64
	StartPTSTicks     int64
	StartsWithKeyframe bool
}

// SampleLocator answers per-sample timing/size/offset queries against a
// SampleTable, and plans segment boundaries from sync-sample positions.
type SampleLocator struct {
	table     *SampleTable
	timescale uint32

	// precomputed flattened views, built once at construction so DTS, PTS
	// and size queries are O(1) after an O(n) setup pass. SampleOffset walks
	// back through the sample's chunk and IsSync scans the stss list.
	dts          []int64
	compOffsets  []int64
	sampleSizes  []uint32
	chunkOfSample []int // which chunk (0-based) each sample belongs to
	chunkOffsets []uint64
}

// NewSampleLocator builds a locator over table, flattening its run-length
// encodings into per-sample arrays for O(1) timing and size lookups.
func NewSampleLocator(table *SampleTable, timescale uint32) (*SampleLocator, error) {
	if table == nil {
		return nil, errors.NewInvalidInput("nil sample table")
	}
	loc := &SampleLocator{table: table, timescale: timescale}

	loc.dts = make([]int64, table.SampleCount)
	idx := 0
	var running int64
	for _, run := range table.TimeToSample {
		for c := 0; c < run.Count && idx < table.SampleCount; c++ {
			loc.dts[idx] = running
			running += run.Delta
			idx++
		}
	}

	loc.compOffsets = make([]int64, table.SampleCount)
	if table.HasCtts {
		idx = 0
		for _, run := range table.CompositionOffsets {
			for c := 0; c < run.Count && idx < table.SampleCount; c++ {
				loc.compOffsets[idx] = run.Delta
				idx++
			}
		}
	}

	if table.UniformSampleSize > 0 {
		loc.sampleSizes = nil
	} else {
		loc.sampleSizes = table.PerSampleSizes
	}

	chunkOfSample, err := resolveChunkAssignment(table)
	if err != nil {
		return nil, err
	}
	loc.chunkOfSample = chunkOfSample
	loc.chunkOffsets = table.ChunkOffsets

	return loc, nil
}

// resolveChunkAssignment walks the stsc runs once and returns, for every
// sample index, the 0-based chunk index it belongs to.
func resolveChunkAssignment(table *SampleTable) ([]int, error) {
	out := make([]int, 0, table.SampleCount)
	numChunks := len(table.ChunkOffsets)
	runs := table.SampleToChunk
	if len(runs) == 0 {
		return nil, errors.NewInvalidBoxData("stsc", "no runs")
	}

	for ri := 0; ri < len(runs); ri++ {
		firstChunk := int(runs[ri].FirstChunk) // 1-based
		var lastChunk int
		if ri+1 < len(runs) {
			lastChunk = int(runs[ri+1].FirstChunk) - 1
		} else {
			lastChunk = numChunks
		}
		perChunk := int(runs[ri].SamplesPerChunk)
		for chunk := firstChunk; chunk <= lastChunk; chunk++ {
			for s := 0; s < perChunk; s++ {
				out = append(out, chunk-1) // to 0-based
			}
		}
	}
	return out, nil
}

// DTS returns the decode timestamp of sample i, in track timescale ticks.
func (l *SampleLocator) DTS(i int) int64 { return l.dts[i] }

// PTS returns the presentation timestamp of sample i: DTS plus its
// composition offset (0 when the track has no ctts).
func (l *SampleLocator) PTS(i int) int64 { return l.dts[i] + l.compOffsets[i] }

// SampleDuration returns the decode-delta duration of sample i in ticks.
func (l *SampleLocator) SampleDuration(i int) int64 {
	if i+1 < len(l.dts) {
		return l.dts[i+1] - l.dts[i]
	}
	// last sample: its duration is the delta of the stts run it belongs to.
	idx := 0
	for _, run := range l.table.TimeToSample {
		if i < idx+run.Count {
			return run.Delta
		}
		idx += run.Count
	}
	return 0
}

// SampleSize returns the size in bytes of sample i.
func (l *SampleLocator) SampleSize(i int) uint32 {
	if l.sampleSizes == nil {
		return uint32(l.table.UniformSampleSize)
	}
	return l.sampleSizes[i]
}

// SampleOffset returns the absolute source-file byte offset of sample i.
func (l *SampleLocator) SampleOffset(i int) uint64 {
	chunk := l.chunkOfSample[i]
	offset := l.chunkOffsets[chunk]

	// sum sizes of every sample in this chunk before i
	firstInChunk := i
	for firstInChunk > 0 && l.chunkOfSample[firstInChunk-1] == chunk {
		firstInChunk--
	}
	for s := firstInChunk; s < i; s++ {
		offset += uint64(l.SampleSize(s))
	}
	return offset
}

// SampleRanges returns the source byte range for each of count samples
// starting at start.
func (l *SampleLocator) SampleRanges(start, count int) []SampleRange {
	out := make([]SampleRange, 0, count)
	for i := start; i < start+count && i < l.table.SampleCount; i++ {
		out = append(out, SampleRange{Offset: l.SampleOffset(i), Length: l.SampleSize(i)})
	}
	return out
}

// IsSync reports whether sample i (0-based) is a sync sample. Tracks
// without an stss (typical for audio) treat every sample as sync.
func (l *SampleLocator) IsSync(i int) bool {
	if !l.table.HasSyncSamples {
		return true
	}
	target := uint32(i + 1) // stss is 1-based
	for _, idx := range l.table.SyncSampleIndices {
		if idx == target {
			return true
		}
		if idx > target {
			break
		}
	}
	return false
}

// SyncSampleIndices returns 0-based sync sample indices, or every sample
// index when the track has no stss.
func (l *SampleLocator) SyncSampleIndices() []int {
	if !l.table.HasSyncSamples {
		out := make([]int, l.table.SampleCount)
		for i := range out {
			out[i] = i
		}
		return out
	}
	out := make([]int, len(l.table.SyncSampleIndices))
	for i, idx := range l.table.SyncSampleIndices {
		out[i] = int(idx) - 1
	}
	return out
}

// NearestSyncAtOrBefore returns the largest sync sample index <= i, or -1
// if none exists.
func (l *SampleLocator) NearestSyncAtOrBefore(i int) int {
	best := -1
	for _, idx := range l.SyncSampleIndices() {
		if idx <= i {
			best = idx
		} else {
			break
		}
	}
	return best
}

// PlanSegments produces a dense ordered list of SegmentPlan covering every
// sample, splitting at sync-sample boundaries once at least targetDuration
// seconds have elapsed since the current segment's start. When
// forceAllSync is set (typically for audio-only tracks lacking an stss),
// every sample index is treated as a candidate boundary.
func (l *SampleLocator) PlanSegments(targetDuration float64, forceAllSync bool) ([]SegmentPlan, error) {
	if l.table.SampleCount == 0 {
		return nil, errors.NewInvalidInput("track has no samples")
	}

	var syncIndices []int
	if forceAllSync {
		syncIndices = make([]int, l.table.SampleCount)
		for i := range syncIndices {
			syncIndices[i] = i
		}
	} else {
		syncIndices = l.SyncSampleIndices()
	}
	if len(syncIndices) == 0 {
		return nil, errors.NewInvalidInput("no sync samples available for planning")
	}

	targetTicks := int64(targetDuration * float64(l.timescale))

	var plans []SegmentPlan
	start := syncIndices[0]
	accumulatedDTS := l.DTS(start)

	for i := 1; i < len(syncIndices); i++ {
		candidate := syncIndices[i]
		elapsed := l.DTS(candidate) - accumulatedDTS
		if elapsed >= targetTicks {
			plans = append(plans, l.buildPlan(start, candidate, accumulatedDTS))
			start = candidate
			accumulatedDTS = l.DTS(start)
		}
	}

	last := l.table.SampleCount
	plans = append(plans, l.buildPlan(start, last, accumulatedDTS))

	return plans, nil
}

func (l *SampleLocator) buildPlan(start, end int, startDTS int64) SegmentPlan {
	lastSample := end - 1
	endDTS := l.DTS(lastSample) + l.SampleDuration(lastSample)
	duration := float64(endDTS-startDTS) / float64(l.timescale)
	return SegmentPlan{
		FirstSampleIndex:   start,
		SampleCount:        end - start,
		DurationSeconds:    duration,
		StartDTSTicks:      startDTS,
		StartPTSTicks:      l.PTS(start),
		StartsWithKeyframe: l.IsSync(start),
	}
}
