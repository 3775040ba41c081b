package codec

import "github.com/ngohuy/hlspacker/pkg/errors"

// sampleRateTable is the fixed MPEG-4 sampling_frequency_index lookup
// table used by both ADTS header synthesis and parsing.
var sampleRateTable = [16]int{
	96000, 88200, 64000, 48000, 44100, 32000, 24000, 22050,
	16000, 12000, 11025, 8000, 7350, 0, 0, 0,
}

// AACConfig is the subset of AudioSpecificConfig fields ADTS needs.
type AACConfig struct {
	AudioObjectType        uint8
	SamplingFrequencyIndex uint8
	ChannelConfiguration   uint8
}

// ParseAudioSpecificConfig decodes the first two bytes of an
// AudioSpecificConfig buffer into the fields ADTS framing needs.
func ParseAudioSpecificConfig(asc []byte) (*AACConfig, error) {
	if len(asc) < 2 {
		return nil, errors.NewInvalidAudioConfig("AudioSpecificConfig shorter than 2 bytes")
	}
	audioObjectType := asc[0] >> 3
	samplingFrequencyIndex := ((asc[0] & 0x07) << 1) | (asc[1] >> 7)
	channelConfiguration := (asc[1] >> 3) & 0x0F
	return &AACConfig{
		AudioObjectType:        audioObjectType,
		SamplingFrequencyIndex: samplingFrequencyIndex,
		ChannelConfiguration:   channelConfiguration,
	}, nil
}

// SampleRate returns the Hz value for a sampling_frequency_index, or 0 if
// the index is reserved/unknown.
func SampleRate(samplingFrequencyIndex uint8) int {
	if int(samplingFrequencyIndex) >= len(sampleRateTable) {
		return 0
	}
	return sampleRateTable[samplingFrequencyIndex]
}

// BuildADTSHeader synthesizes the 7-byte ADTS header (protection_absent=1,
// no CRC) for a frame of frameBytes payload bytes.
func BuildADTSHeader(cfg *AACConfig, frameBytes int) [7]byte {
	profile := cfg.AudioObjectType - 1
	frameLength := uint16(frameBytes + 7)

	var h [7]byte
	h[0] = 0xFF
	h[1] = 0xF1 // 1111 0001: sync low bits, ID=0, layer=0, protection_absent=1
	h[2] = (profile << 6) | (cfg.SamplingFrequencyIndex << 2) | ((cfg.ChannelConfiguration >> 2) & 0x01)
	h[3] = ((cfg.ChannelConfiguration & 0x03) << 6) | byte(frameLength>>11)
	h[4] = byte(frameLength >> 3)
	h[5] = byte(frameLength<<5) | 0x1F // low 3 bits of length, then buffer_fullness high bits (all 1s)
	h[6] = 0xFC                        // buffer_fullness low bits all 1s, num_raw_data_blocks=0
	return h
}

// WrapADTS prepends a synthesized ADTS header to frame.
func WrapADTS(cfg *AACConfig, frame []byte) []byte {
	header := BuildADTSHeader(cfg, len(frame))
	out := make([]byte, 0, 7+len(frame))
	out = append(out, header[:]...)
	out = append(out, frame...)
	return out
}

// ADTSFrame is one frame recovered by ParseADTS.
type ADTSFrame struct {
	Profile       uint8
	SampleRate    int
	ChannelConfig uint8
	Payload       []byte
	FrameLength   int
	HeaderSize    int
}

// ParseADTS parses one ADTS frame that starts at buf[0]. It does not search
// forward for a sync word: if buf does not begin with 0xFFF it returns an
// error. It returns the frame and the number of bytes consumed. If the remaining
// data is shorter than the header or the declared frame_length, it returns
// consumed=0 and a nil frame so the caller can stop without erroring.
func ParseADTS(buf []byte) (frame *ADTSFrame, consumed int, err error) {
	if len(buf) < 7 {
		return nil, 0, nil
	}
	if buf[0] != 0xFF || buf[1]&0xF0 != 0xF0 {
		return nil, 0, errors.NewInvalidAudioConfig("missing ADTS sync word")
	}
	protectionAbsent := buf[1] & 0x01
	headerSize := 9
	if protectionAbsent == 1 {
		headerSize = 7
	}
	if len(buf) < headerSize {
		return nil, 0, nil
	}

	profile := (buf[2] >> 6) & 0x03
	freqIdx := (buf[2] >> 2) & 0x0F
	channelConfig := ((buf[2] & 0x01) << 2) | (buf[3] >> 6)
	frameLength := (int(buf[3]&0x03) << 11) | (int(buf[4]) << 3) | (int(buf[5]) >> 5)

	if frameLength < headerSize || len(buf) < frameLength {
		return nil, 0, nil
	}

	return &ADTSFrame{
		Profile:       profile,
		SampleRate:    SampleRate(freqIdx),
		ChannelConfig: channelConfig,
		Payload:       buf[headerSize:frameLength],
		FrameLength:   frameLength,
		HeaderSize:    headerSize,
	}, frameLength, nil
}
