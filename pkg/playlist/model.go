// Package playlist models, parses, writes, and validates HLS M3U8
// playlists, including LL-HLS low-latency extensions.
package playlist

// ByteRange is an EXT-X-BYTERANGE attachment: length and an optional
// offset (absent offset means "contiguous with the previous segment").
type ByteRange struct {
	Length uint64
	Offset *uint64
}

// Key models EXT-X-KEY / EXT-X-SESSION-KEY.
type Key struct {
	Method            string // NONE, AES-128, SAMPLE-AES, ...
	URI               string
	IV                string
	KeyFormat         string
	KeyFormatVersions string
}

// Map models EXT-X-MAP.
type Map struct {
	URI       string
	ByteRange *ByteRange
}

// DateRange models EXT-X-DATERANGE.
type DateRange struct {
	ID               string
	Class            string
	StartDate        string
	EndDate          string
	Duration         *float64
	PlannedDuration  *float64
	SCTE35Cmd        string
	SCTE35Out        string
	SCTE35In         string
	EndOnNext        bool
	ClientAttributes map[string]string
}

// PartialSegment models EXT-X-PART.
type PartialSegment struct {
	URI         string
	Duration    float64
	Independent bool
	Gap         bool
	ByteRange   *ByteRange
}

// PreloadHint models EXT-X-PRELOAD-HINT.
type PreloadHint struct {
	Type      string // PART or MAP
	URI       string
	ByteRangeStart  *uint64
	ByteRangeLength *uint64
}

// RenditionReport models EXT-X-RENDITION-REPORT.
type RenditionReport struct {
	URI                string
	LastMSN            uint64
	LastPart           *uint64
}

// ServerControl models EXT-X-SERVER-CONTROL.
type ServerControl struct {
	CanBlockReload  bool
	CanSkipUntil    *float64
	CanSkipDateRanges bool
	HoldBack        *float64
	PartHoldBack    *float64
}

// PartInf models EXT-X-PART-INF.
type PartInf struct {
	PartTarget float64
}

// Segment is one media-playlist entry.
type Segment struct {
	Duration        float64
	Title           string
	URI             string
	ByteRange       *ByteRange
	Discontinuity   bool
	Key             *Key
	Map             *Map
	ProgramDateTime string
	Gap             bool
	Bitrate         *uint64
	DateRange       *DateRange
	Parts           []PartialSegment
}

// MediaPlaylist is a fully decoded media (variant) playlist.
type MediaPlaylist struct {
	Version                int
	TargetDuration         int
	MediaSequence          uint64
	DiscontinuitySequence  uint64
	PlaylistType           string // VOD, EVENT, or empty
	EndList                bool
	IFramesOnly            bool
	IndependentSegments    bool
	Segments               []Segment
	PartInf                *PartInf
	ServerControl          *ServerControl
	PreloadHints           []PreloadHint
	RenditionReports       []RenditionReport
	SkippedSegments        int
	Defines                map[string]string
}

// Rendition models EXT-X-MEDIA.
type Rendition struct {
	Type            string // AUDIO, VIDEO, SUBTITLES, CLOSED-CAPTIONS
	GroupID         string
	Name            string
	Language        string
	Default         bool
	AutoSelect      bool
	URI             string
	Channels        string
}

// Variant models one EXT-X-STREAM-INF + its URI.
type Variant struct {
	URI              string
	Bandwidth        uint64
	AverageBandwidth *uint64
	Codecs           string
	Resolution       string
	FrameRate        *float64
	Audio            string
	Video            string
	Subtitles        string
}

// IFrameVariant models EXT-X-I-FRAME-STREAM-INF.
type IFrameVariant struct {
	URI       string
	Bandwidth uint64
	Codecs    string
	Resolution string
}

// SessionData models EXT-X-SESSION-DATA.
type SessionData struct {
	DataID   string
	Value    string
	URI      string
	Language string
}

// MasterPlaylist is a fully decoded master playlist.
type MasterPlaylist struct {
	Version             int
	IndependentSegments bool
	Renditions          []Rendition
	Variants            []Variant
	IFrameVariants      []IFrameVariant
	SessionData         []SessionData
	SessionKeys         []Key
	ContentSteeringURI  string
	Defines             map[string]string
}
