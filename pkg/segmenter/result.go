package segmenter

import "github.com/ngohuy/hlspacker/pkg/isobmff"

// MediaSegmentOutput is one emitted segment.
type MediaSegmentOutput struct {
	Index            int
	Bytes            []byte
	DurationSeconds  float64
	Filename         string
	ByteRangeOffset  *uint64
	ByteRangeLength  *uint64
}

// Result is the SegmentationResult produced by Run.
type Result struct {
	InitSegmentBytes  []byte
	Segments          []MediaSegmentOutput
	PlaylistText      string
	FileInfo          *isobmff.FileInfo
	Config            Config
	ConcatenatedBytes []byte
}
