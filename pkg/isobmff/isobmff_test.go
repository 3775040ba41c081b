package isobmff

import (
	"testing"

	"github.com/ngohuy/hlspacker/pkg/bitio"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildFtyp(major string, compat ...string) []byte {
	w := bitio.NewWriter()
	w.Write4CC(major)
	w.WriteU32(0) // minor_version
	for _, c := range compat {
		w.Write4CC(c)
	}
	return bitio.WriteBox(TypeFtyp, w.Bytes())
}

func TestParseBoxesSimple(t *testing.T) {
	ftyp := buildFtyp("isom", "iso6", "isom", "mp41")
	free := bitio.WriteBox(TypeFree, []byte{0, 0, 0, 0})
	buf := append(append([]byte{}, ftyp...), free...)

	boxes, err := ParseBoxes(buf, 0, len(buf), 0)
	require.NoError(t, err)
	require.Len(t, boxes, 2)
	assert.Equal(t, TypeFtyp, boxes[0].Type)
	assert.Equal(t, TypeFree, boxes[1].Type)
	assert.Nil(t, boxes[1].Payload, "opaque boxes keep payload nil even though bytes exist")
}

func TestParseBoxesExtendedSize(t *testing.T) {
	inner := bitio.WriteBox(TypeFree, make([]byte, 16))
	w := bitio.NewWriter()
	w.WriteU32(1)
	w.Write4CC(TypeMoov) // using moov as a stand-in container for the size-1 path
	w.WriteU64(uint64(16 + len(inner)))
	w.WriteBytes(inner)
	buf := w.Bytes()

	boxes, err := ParseBoxes(buf, 0, len(buf), 0)
	require.NoError(t, err)
	require.Len(t, boxes, 1)
	assert.Equal(t, 16, boxes[0].HeaderSize)
	require.Len(t, boxes[0].Children, 1)
	assert.Equal(t, TypeFree, boxes[0].Children[0].Type)
}

func TestParseBoxesTruncatedFails(t *testing.T) {
	buf := []byte{0, 0, 0, 20, 'f', 't', 'y', 'p'} // declares 20 bytes but only has 8
	_, err := ParseBoxes(buf, 0, len(buf), 0)
	require.Error(t, err)
}

func buildStts(runs ...TimeToSampleRun) []byte {
	w := bitio.NewWriter()
	w.WriteU8(0)
	w.WriteU24(0)
	w.WriteU32(uint32(len(runs)))
	for _, r := range runs {
		w.WriteU32(uint32(r.Count))
		w.WriteU32(uint32(r.Delta))
	}
	return w.Bytes()
}

func buildStsc(runs ...SampleToChunkRun) []byte {
	w := bitio.NewWriter()
	w.WriteU8(0)
	w.WriteU24(0)
	w.WriteU32(uint32(len(runs)))
	for _, r := range runs {
		w.WriteU32(r.FirstChunk)
		w.WriteU32(r.SamplesPerChunk)
		w.WriteU32(r.SampleDescriptionIndex)
	}
	return w.Bytes()
}

func buildStszUniform(size uint32, count uint32) []byte {
	w := bitio.NewWriter()
	w.WriteU8(0)
	w.WriteU24(0)
	w.WriteU32(size)
	w.WriteU32(count)
	return w.Bytes()
}

func buildStco(offsets ...uint32) []byte {
	w := bitio.NewWriter()
	w.WriteU8(0)
	w.WriteU24(0)
	w.WriteU32(uint32(len(offsets)))
	for _, o := range offsets {
		w.WriteU32(o)
	}
	return w.Bytes()
}

func buildStss(indices ...uint32) []byte {
	w := bitio.NewWriter()
	w.WriteU8(0)
	w.WriteU24(0)
	w.WriteU32(uint32(len(indices)))
	for _, i := range indices {
		w.WriteU32(i)
	}
	return w.Bytes()
}

func makeStbl(t *testing.T) *Box {
	t.Helper()
	stbl := &Box{Type: TypeStbl}
	stbl.Children = []*Box{
		{Type: TypeStts, Payload: buildStts(TimeToSampleRun{Count: 6, Delta: 1000})},
		{Type: TypeStsc, Payload: buildStsc(SampleToChunkRun{FirstChunk: 1, SamplesPerChunk: 3, SampleDescriptionIndex: 1})},
		{Type: TypeStsz, Payload: buildStszUniform(500, 6)},
		{Type: TypeStco, Payload: buildStco(1000, 3000)},
		{Type: TypeStss, Payload: buildStss(1, 4)},
	}
	return stbl
}

func TestParseSampleTable(t *testing.T) {
	stbl := makeStbl(t)
	table, err := ParseSampleTable(stbl)
	require.NoError(t, err)
	assert.Equal(t, 6, table.SampleCount)
	assert.True(t, table.HasSyncSamples)
	assert.Equal(t, []uint32{1, 4}, table.SyncSampleIndices)
	assert.Equal(t, int64(500), table.UniformSampleSize)
}

func TestParseSampleTableMissingBoxFails(t *testing.T) {
	stbl := &Box{Type: TypeStbl}
	_, err := ParseSampleTable(stbl)
	require.Error(t, err)
}

func TestSampleLocatorQueries(t *testing.T) {
	stbl := makeStbl(t)
	table, err := ParseSampleTable(stbl)
	require.NoError(t, err)

	loc, err := NewSampleLocator(table, 1000)
	require.NoError(t, err)

	assert.Equal(t, int64(0), loc.DTS(0))
	assert.Equal(t, int64(3000), loc.DTS(3))
	assert.Equal(t, uint32(500), loc.SampleSize(2))
	assert.True(t, loc.IsSync(0))
	assert.False(t, loc.IsSync(1))
	assert.True(t, loc.IsSync(3))

	// sample 0,1,2 in chunk 0 at offset 1000; sample 3,4,5 in chunk 1 at 3000
	assert.Equal(t, uint64(1000), loc.SampleOffset(0))
	assert.Equal(t, uint64(1500), loc.SampleOffset(1))
	assert.Equal(t, uint64(3000), loc.SampleOffset(3))
	assert.Equal(t, uint64(3500), loc.SampleOffset(4))

	assert.Equal(t, 0, loc.NearestSyncAtOrBefore(2))
	assert.Equal(t, 3, loc.NearestSyncAtOrBefore(5))
}

func TestPlanSegments(t *testing.T) {
	stbl := makeStbl(t)
	table, err := ParseSampleTable(stbl)
	require.NoError(t, err)
	loc, err := NewSampleLocator(table, 1000)
	require.NoError(t, err)

	plans, err := loc.PlanSegments(2.5, false)
	require.NoError(t, err)
	require.Len(t, plans, 2)
	assert.Equal(t, 0, plans[0].FirstSampleIndex)
	assert.Equal(t, 3, plans[0].SampleCount)
	assert.True(t, plans[0].StartsWithKeyframe)
	assert.Equal(t, 3, plans[1].FirstSampleIndex)
	assert.Equal(t, 3, plans[1].SampleCount)
}

func TestPlanSegmentsForceAllSync(t *testing.T) {
	stbl := &Box{Type: TypeStbl}
	stbl.Children = []*Box{
		{Type: TypeStts, Payload: buildStts(TimeToSampleRun{Count: 4, Delta: 1024})},
		{Type: TypeStsc, Payload: buildStsc(SampleToChunkRun{FirstChunk: 1, SamplesPerChunk: 4, SampleDescriptionIndex: 1})},
		{Type: TypeStsz, Payload: buildStszUniform(200, 4)},
		{Type: TypeStco, Payload: buildStco(500)},
	}
	table, err := ParseSampleTable(stbl)
	require.NoError(t, err)
	loc, err := NewSampleLocator(table, 1024)
	require.NoError(t, err)

	plans, err := loc.PlanSegments(1.0, true)
	require.NoError(t, err)
	require.NotEmpty(t, plans)
	total := 0
	for _, p := range plans {
		total += p.SampleCount
	}
	assert.Equal(t, 4, total)
}

func TestExtractFileInfoMissingMoovFails(t *testing.T) {
	ftyp := buildFtyp("isom")
	boxes, err := ParseBoxes(ftyp, 0, len(ftyp), 0)
	require.NoError(t, err)
	_, err = ExtractFileInfo(boxes)
	require.Error(t, err)
}
