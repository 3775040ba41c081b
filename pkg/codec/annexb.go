// Package codec converts between ISOBMFF sample payloads and the
// wire formats MPEG-TS expects: Annex-B H.264 NAL streams and ADTS-framed
// AAC. Full parameter-set extraction is scoped to H.264; HEVC/AV1 NAL
// types are recognized only for classification.
package codec

import (
	"encoding/binary"

	"github.com/ngohuy/hlspacker/pkg/errors"
)

var annexBStartCode = []byte{0x00, 0x00, 0x00, 0x01}

// AVCParameterSets holds the SPS/PPS NAL units extracted from an avcC box,
// each already prefixed with the Annex-B start code.
type AVCParameterSets struct {
	SPS              [][]byte
	PPS              [][]byte
	LengthSizeMinus1 uint8
}

// ParseAVCDecoderConfig decodes an AVCDecoderConfigurationRecord (the
// payload of an avcC box) into its SPS/PPS NAL units.
func ParseAVCDecoderConfig(avcC []byte) (*AVCParameterSets, error) {
	if len(avcC) < 6 {
		return nil, errors.NewInvalidAVCConfig("record too short")
	}
	if avcC[0] != 1 {
		return nil, errors.NewInvalidAVCConfig("unsupported configurationVersion")
	}
	lengthSizeMinus1 := avcC[4] & 0x03

	pos := 5
	numSPS := int(avcC[pos] & 0x1F)
	pos++

	out := &AVCParameterSets{LengthSizeMinus1: lengthSizeMinus1}
	for i := 0; i < numSPS; i++ {
		nal, next, err := readLengthPrefixedNAL(avcC, pos)
		if err != nil {
			return nil, err
		}
		out.SPS = append(out.SPS, prependStartCode(nal))
		pos = next
	}

	if pos >= len(avcC) {
		return nil, errors.NewInvalidAVCConfig("truncated before numPPS")
	}
	numPPS := int(avcC[pos])
	pos++
	for i := 0; i < numPPS; i++ {
		nal, next, err := readLengthPrefixedNAL(avcC, pos)
		if err != nil {
			return nil, err
		}
		out.PPS = append(out.PPS, prependStartCode(nal))
		pos = next
	}

	return out, nil
}

func readLengthPrefixedNAL(buf []byte, pos int) (nal []byte, next int, err error) {
	if pos+2 > len(buf) {
		return nil, 0, errors.NewInvalidAVCConfig("truncated NAL length")
	}
	length := int(binary.BigEndian.Uint16(buf[pos : pos+2]))
	pos += 2
	if pos+length > len(buf) {
		return nil, 0, errors.NewInvalidAVCConfig("NAL length overruns record")
	}
	return buf[pos : pos+length], pos + length, nil
}

func prependStartCode(nal []byte) []byte {
	out := make([]byte, 0, len(annexBStartCode)+len(nal))
	out = append(out, annexBStartCode...)
	out = append(out, nal...)
	return out
}

// LengthPrefixedToAnnexB rewrites a buffer of (u32 length)+(NAL bytes)
// records into Annex-B form, replacing each length prefix with the
// 00 00 00 01 start code. A declared length that overruns the remaining
// buffer truncates the stream at that point rather than failing.
func LengthPrefixedToAnnexB(sample []byte) []byte {
	out := make([]byte, 0, len(sample)+16)
	pos := 0
	for pos+4 <= len(sample) {
		length := int(binary.BigEndian.Uint32(sample[pos : pos+4]))
		pos += 4
		if length < 0 || pos+length > len(sample) {
			break
		}
		out = append(out, annexBStartCode...)
		out = append(out, sample[pos:pos+length]...)
		pos += length
	}
	return out
}

// BuildKeyframeAccessUnit prepends Annex-B SPS and PPS NAL units to a
// length-prefix-converted keyframe sample. Non-keyframe samples should be
// passed through LengthPrefixedToAnnexB alone.
func BuildKeyframeAccessUnit(params *AVCParameterSets, convertedSample []byte) []byte {
	out := make([]byte, 0, len(convertedSample)+256)
	for _, sps := range params.SPS {
		out = append(out, sps...)
	}
	for _, pps := range params.PPS {
		out = append(out, pps...)
	}
	out = append(out, convertedSample...)
	return out
}

// NALUnitType values relevant to access-unit classification across H.264,
// HEVC, and AV1. Only H.264 parameter sets are fully extracted; HEVC/AV1
// values exist so callers can recognize keyframe NAL types without
// attempting parameter-set extraction for those codecs.
type NALUnitType int

const (
	NALUnknown NALUnitType = iota
	NALAVCNonIDR
	NALAVCIDR
	NALAVCSPS
	NALAVCPPS
	NALHEVCIDR
	NALAV1KeyFrame
)

// ClassifyAVCNALType returns the NAL unit type from the first byte of an
// Annex-B H.264 NAL unit (low 5 bits).
func ClassifyAVCNALType(nalHeaderByte byte) NALUnitType {
	switch nalHeaderByte & 0x1F {
	case 5:
		return NALAVCIDR
	case 1:
		return NALAVCNonIDR
	case 7:
		return NALAVCSPS
	case 8:
		return NALAVCPPS
	default:
		return NALUnknown
	}
}
