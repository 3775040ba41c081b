package mpegts

const (
	// Default elementary stream IDs.
	StreamIDVideo = 0xE0
	StreamIDAudio = 0xC0
)

// encodeTimestamp33 encodes a 33-bit PTS or DTS value (in 90 kHz units)
// into the 5-byte form PES headers use. marker selects 0x30 (PTS when a
// DTS follows it) or 0x20 (PTS-only or the DTS field itself uses 0x10,
// passed explicitly by the caller).
func encodeTimestamp33(ts uint64, marker byte) [5]byte {
	var b [5]byte
	b[0] = marker | byte((ts>>29)&0x0E) | 0x01
	b[1] = byte(ts >> 22)
	b[2] = byte((ts>>14)&0xFE) | 0x01
	b[3] = byte(ts >> 7)
	b[4] = byte((ts<<1)&0xFE) | 0x01
	return b
}

// BuildVideoPES wraps an Annex-B access unit in a PES packet. dtsPresent
// controls whether a DTS field follows the PTS.
func BuildVideoPES(pts, dts uint64, dtsPresent bool, accessUnit []byte) []byte {
	return buildPES(StreamIDVideo, pts, dts, dtsPresent, accessUnit, true)
}

// BuildAudioPES wraps an ADTS-framed AAC frame in a PES packet.
func BuildAudioPES(pts uint64, frame []byte) []byte {
	return buildPES(StreamIDAudio, pts, 0, false, frame, false)
}

func buildPES(streamID byte, pts, dts uint64, dtsPresent bool, payload []byte, isVideo bool) []byte {
	var ptsDtsFlags byte
	var headerDataLength byte
	var tsFields []byte

	if isVideo {
		if dtsPresent {
			ptsDtsFlags = 0xC0
			headerDataLength = 10
			ptsBytes := encodeTimestamp33(pts, 0x30)
			dtsBytes := encodeTimestamp33(dts, 0x10)
			tsFields = append(append([]byte{}, ptsBytes[:]...), dtsBytes[:]...)
		} else {
			ptsDtsFlags = 0x80
			headerDataLength = 5
			ptsBytes := encodeTimestamp33(pts, 0x20)
			tsFields = ptsBytes[:]
		}
	} else {
		ptsDtsFlags = 0x80
		headerDataLength = 5
		ptsBytes := encodeTimestamp33(pts, 0x20)
		tsFields = ptsBytes[:]
	}

	out := make([]byte, 0, 9+len(tsFields)+len(payload)+6)
	out = append(out, 0x00, 0x00, 0x01, streamID)

	dataLen := 3 + int(headerDataLength) + len(payload)
	if isVideo || dataLen > 0xFFFF {
		out = append(out, 0x00, 0x00) // unbounded PES_packet_length for video
	} else {
		out = append(out, byte(dataLen>>8), byte(dataLen))
	}

	out = append(out, 0x80)              // flag byte: '10' marker bits
	out = append(out, ptsDtsFlags)
	out = append(out, headerDataLength)
	out = append(out, tsFields...)
	out = append(out, payload...)
	return out
}
