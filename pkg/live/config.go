// Package live implements the LiveCore partial-segment ring buffer and
// delta-update playlist generator for low-latency HLS ingestion.
package live

// Config controls retention and naming for a LiveCore instance.
type Config struct {
	MaxPartialsPerSegment int
	RetentionSegments     int // ring buffer size; oldest segment evicted beyond this
	PartialRetentionCount int // how many of the most recent retained segments still emit partial lines
	PartTargetDuration    float64
	URITemplate           string // supports {segment}, {part}, {ext}
	SegmentExtension      string
	CanSkipUntilSeconds   float64
}

// DefaultConfig returns Config defaults matching common LL-HLS deployments.
func DefaultConfig() Config {
	return Config{
		MaxPartialsPerSegment: 32,
		RetentionSegments:     12,
		PartialRetentionCount: 3,
		PartTargetDuration:    0.5,
		URITemplate:           "segment_{segment}_part_{part}.{ext}",
		SegmentExtension:      "m4s",
		CanSkipUntilSeconds:   36,
	}
}
