package isobmff

import (
	"github.com/ngohuy/hlspacker/pkg/bitio"
	"github.com/ngohuy/hlspacker/pkg/errors"
)

// findAvcC locates the avcC child box inside a raw avc1 sample entry
// payload and returns its own payload (the AVCDecoderConfigurationRecord),
// or nil if absent. entry is the full stsd entry including its own
// 8-byte size+type header, as produced by parseStsdFirstEntry.
func findAvcC(entry []byte) []byte {
	if len(entry) < 8 {
		return nil
	}
	// Skip the 8-byte box header and the fixed avc1 VisualSampleEntry body
	// (78 bytes: 6 reserved + 2 data_reference_index + 70 video-specific
	// fields) and
	// scan the remainder for nested boxes the same way a container would.
	const visualEntryHeader = 8 + 78
	if len(entry) <= visualEntryHeader {
		return nil
	}
	boxes, err := ParseBoxes(entry, visualEntryHeader, len(entry), 0)
	if err != nil {
		return nil
	}
	if b := FindTopLevel(boxes, TypeAvcC); b != nil {
		return b.Payload
	}
	return nil
}

// ExtractAudioSpecificConfig locates and decodes the MPEG-4
// AudioSpecificConfig for an mp4a sample entry, descending through an
// esds box found either directly or via a QuickTime wave/frma wrapper.
func ExtractAudioSpecificConfig(entry []byte) ([]byte, error) {
	if len(entry) < 8 {
		return nil, errors.NewInvalidAudioConfig("truncated sample entry")
	}
	// Fixed AudioSampleEntry header: 8 box header + 6 reserved +
	// 2 data_reference_index + 8 reserved + 2 channelcount + 2 samplesize +
	// 2 pre_defined + 2 reserved + 4 samplerate(16.16) = 28 bytes, so
	// nested boxes start at entry offset 8+28=36 for a plain v0 entry.
	const audioEntryHeader = 8 + 28
	if len(entry) <= audioEntryHeader {
		return nil, errors.NewInvalidAudioConfig("sample entry too short for esds")
	}

	// QuickTime sound sample descriptions (v1/v2) insert extra fixed
	// fields between this header and the first nested box. The version
	// number lives in the first two bytes of the 8-byte "reserved" block
	// that follows data_reference_index, at entry offset 8+6+2=16.
	offset := audioEntryHeader
	if len(entry) >= 18 {
		switch version := uint16(entry[16])<<8 | uint16(entry[17]); version {
		case 1:
			offset += 16 // samplesPerPacket, bytesPerPacket, bytesPerFrame, bytesPerSample
		case 2:
			offset += 36 // QuickTime v2 fixed extension block
		}
	}
	if len(entry) <= offset {
		return nil, errors.NewInvalidAudioConfig("sample entry too short for esds")
	}

	boxes, err := ParseBoxes(entry, offset, len(entry), 0)
	if err != nil {
		return nil, errors.NewInvalidAudioConfig("malformed nested boxes")
	}

	esds := FindTopLevel(boxes, TypeEsds)
	if esds == nil {
		if wave := FindTopLevel(boxes, TypeWave); wave != nil {
			// wave is not in the container set, so its children are
			// parsed here from its raw payload.
			if children, err := ParseBoxes(wave.Payload, 0, len(wave.Payload), 0); err == nil {
				esds = FindTopLevel(children, TypeEsds)
			}
		}
	}
	if esds == nil {
		return nil, errors.NewMissingBox("esds")
	}

	return parseESDescriptor(esds.Payload)
}

// parseESDescriptor walks the MPEG-4 descriptor chain inside an esds
// payload (version+flags already stripped by the caller's box parse is
// NOT true here: esds is a FullBox, so payload starts with version+flags)
// to recover the raw AudioSpecificConfig bytes from DecoderSpecificInfo.
func parseESDescriptor(payload []byte) ([]byte, error) {
	r := bitio.NewReader(payload)
	if _, err := r.ReadU8(); err != nil { // version
		return nil, errors.NewInvalidAudioConfig("truncated esds version")
	}
	if _, err := r.ReadU24(); err != nil { // flags
		return nil, errors.NewInvalidAudioConfig("truncated esds flags")
	}

	tag, body, err := readDescriptor(r)
	if err != nil || tag != 0x03 {
		return nil, errors.NewInvalidAudioConfig("missing ES_Descriptor")
	}
	dr := bitio.NewReader(body)
	if err := dr.Skip(2); err != nil { // ES_ID
		return nil, errors.NewInvalidAudioConfig("truncated ES_ID")
	}
	flags, err := dr.ReadU8()
	if err != nil {
		return nil, errors.NewInvalidAudioConfig("truncated ES flags")
	}
	if flags&0x80 != 0 { // streamDependenceFlag
		if err := dr.Skip(2); err != nil {
			return nil, errors.NewInvalidAudioConfig("truncated dependsOn_ES_ID")
		}
	}
	if flags&0x40 != 0 { // URL_Flag
		urlLen, err := dr.ReadU8()
		if err != nil {
			return nil, errors.NewInvalidAudioConfig("truncated URL length")
		}
		if err := dr.Skip(int(urlLen)); err != nil {
			return nil, errors.NewInvalidAudioConfig("truncated URL")
		}
	}
	if flags&0x20 != 0 { // OCRstreamFlag
		if err := dr.Skip(2); err != nil {
			return nil, errors.NewInvalidAudioConfig("truncated OCR_ES_ID")
		}
	}

	tag, body, err = readDescriptor(dr)
	if err != nil || tag != 0x04 {
		return nil, errors.NewInvalidAudioConfig("missing DecoderConfigDescriptor")
	}
	cr := bitio.NewReader(body)
	if err := cr.Skip(13); err != nil {
		return nil, errors.NewInvalidAudioConfig("truncated DecoderConfigDescriptor")
	}

	tag, body, err = readDescriptor(cr)
	if err != nil || tag != 0x05 {
		return nil, errors.NewInvalidAudioConfig("missing DecoderSpecificInfo")
	}
	return body, nil
}

// readDescriptor reads one MPEG-4 descriptor (tag byte, then a
// variable-length size using 0x80-continuation bytes, then that many
// payload bytes) from r.
func readDescriptor(r *bitio.Reader) (tag byte, body []byte, err error) {
	t, err := r.ReadU8()
	if err != nil {
		return 0, nil, err
	}
	size := 0
	for i := 0; i < 4; i++ {
		b, err := r.ReadU8()
		if err != nil {
			return 0, nil, err
		}
		size = (size << 7) | int(b&0x7F)
		if b&0x80 == 0 {
			break
		}
	}
	body, err = r.ReadBytes(size)
	if err != nil {
		return 0, nil, err
	}
	return t, body, nil
}
