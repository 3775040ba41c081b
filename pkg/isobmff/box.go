// Package isobmff parses and synthesizes ISO Base Media File Format
// (MP4/M4A/MOV) box trees, interprets sample tables, and answers
// per-sample timing/offset queries used to plan HLS segments.
package isobmff

// Container box types: their children are themselves parsed as boxes
// rather than treated as opaque payload.
var containerTypes = map[string]bool{
	"moov": true,
	"trak": true,
	"mdia": true,
	"minf": true,
	"stbl": true,
	"dinf": true,
	"edts": true,
	"mvex": true,
	"moof": true,
	"traf": true,
	"udta": true,
}

// Opaque box types: payload is never materialized; the parser records the
// byte range and skips over it.
var opaqueTypes = map[string]bool{
	"mdat": true,
	"free": true,
	"skip": true,
}

// IsContainerBox reports whether boxType's children should be recursively
// parsed as boxes.
func IsContainerBox(boxType string) bool {
	return containerTypes[boxType]
}

// IsOpaqueBox reports whether boxType's payload must never be materialized.
func IsOpaqueBox(boxType string) bool {
	return opaqueTypes[boxType]
}

// Well-known box type constants used throughout the package.
const (
	TypeFtyp = "ftyp"
	TypeStyp = "styp"
	TypeMoov = "moov"
	TypeMvhd = "mvhd"
	TypeTrak = "trak"
	TypeTkhd = "tkhd"
	TypeMdia = "mdia"
	TypeMdhd = "mdhd"
	TypeHdlr = "hdlr"
	TypeMinf = "minf"
	TypeVmhd = "vmhd"
	TypeSmhd = "smhd"
	TypeDinf = "dinf"
	TypeDref = "dref"
	TypeURL  = "url "
	TypeStbl = "stbl"
	TypeStsd = "stsd"
	TypeStts = "stts"
	TypeCtts = "ctts"
	TypeStsc = "stsc"
	TypeStsz = "stsz"
	TypeStco = "stco"
	TypeCo64 = "co64"
	TypeStss = "stss"
	TypeMvex = "mvex"
	TypeMehd = "mehd"
	TypeTrex = "trex"
	TypeMoof = "moof"
	TypeMfhd = "mfhd"
	TypeTraf = "traf"
	TypeTfhd = "tfhd"
	TypeTfdt = "tfdt"
	TypeTrun = "trun"
	TypeMdat = "mdat"
	TypeFree = "free"
	TypeSkip = "skip"
	TypeAvc1 = "avc1"
	TypeAvcC = "avcC"
	TypeMp4a = "mp4a"
	TypeEsds = "esds"
	TypeWave = "wave"
	TypeFrma = "frma"
)
