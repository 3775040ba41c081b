package playlist

import "fmt"

// StrictnessLevel selects between the RFC 8216 baseline and Apple's
// stricter HLS authoring requirements.
type StrictnessLevel int

const (
	RFC8216Baseline StrictnessLevel = iota
	AppleHLSStrict
)

// ValidationIssue is one rule violation or warning found by Validate.
type ValidationIssue struct {
	Severity string // "error" or "warning"
	Message  string
}

func (v ValidationIssue) String() string {
	return fmt.Sprintf("[%s] %s", v.Severity, v.Message)
}

// ValidateMediaPlaylist checks m against the rules in §4.12.
func ValidateMediaPlaylist(m *MediaPlaylist, level StrictnessLevel) []ValidationIssue {
	var issues []ValidationIssue
	errf := func(format string, a ...any) {
		issues = append(issues, ValidationIssue{Severity: "error", Message: fmt.Sprintf(format, a...)})
	}

	if m.TargetDuration <= 0 {
		errf("EXT-X-TARGETDURATION must be > 0")
	}

	tolerance := 0.0
	if level == RFC8216Baseline {
		tolerance = 0.5
	}

	endlistCount := 0
	if m.EndList {
		endlistCount = 1
	}

	var lastURI string
	for i, seg := range m.Segments {
		if seg.Duration < 0 {
			errf("segment %d: duration must be >= 0", i)
		}
		if seg.Duration > float64(m.TargetDuration)+tolerance {
			errf("segment %d: duration %.3f exceeds targetduration %d", i, seg.Duration, m.TargetDuration)
		}
		if seg.ByteRange != nil && seg.ByteRange.Offset == nil && lastURI == "" {
			errf("segment %d: byte-range segment without offset has no preceding URI to inherit", i)
		}
		if seg.ByteRange != nil && seg.ByteRange.Offset == nil && lastURI != "" && lastURI != seg.URI {
			errf("segment %d: byte-range without offset must reuse the previous segment's URI", i)
		}
		lastURI = seg.URI
	}

	if m.PlaylistType == "VOD" && endlistCount != 1 {
		errf("VOD playlist must have exactly one EXT-X-ENDLIST")
	}

	return issues
}

// ValidateMasterPlaylist checks m against the rules in §4.12.
func ValidateMasterPlaylist(m *MasterPlaylist) []ValidationIssue {
	var issues []ValidationIssue
	errf := func(format string, a ...any) {
		issues = append(issues, ValidationIssue{Severity: "error", Message: fmt.Sprintf(format, a...)})
	}
	warnf := func(format string, a ...any) {
		issues = append(issues, ValidationIssue{Severity: "warning", Message: fmt.Sprintf(format, a...)})
	}

	if len(m.Variants) == 0 {
		errf("master playlist must declare at least one EXT-X-STREAM-INF variant")
	}
	for i, v := range m.Variants {
		if v.Bandwidth == 0 {
			errf("variant %d: BANDWIDTH is required", i)
		}
		if v.Codecs == "" {
			warnf("variant %d: missing CODECS attribute", i)
		}
		if v.Resolution == "" && (v.Video != "" || v.Codecs != "") {
			warnf("variant %d: missing RESOLUTION though video is expected", i)
		}
	}
	return issues
}
