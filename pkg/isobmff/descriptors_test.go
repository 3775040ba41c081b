package isobmff

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ngohuy/hlspacker/pkg/bitio"
)

func writeDescriptor(tag byte, body []byte) []byte {
	out := []byte{tag, byte(len(body))}
	return append(out, body...)
}

func buildEsds(asc []byte) []byte {
	decoderSpecificInfo := writeDescriptor(0x05, asc)
	decoderConfigBody := append(make([]byte, 13), decoderSpecificInfo...)
	decoderConfig := writeDescriptor(0x04, decoderConfigBody)
	esBody := append([]byte{0, 0, 0}, decoderConfig...) // ES_ID(2) + flags(1, no optional fields)
	esDescriptor := writeDescriptor(0x03, esBody)
	return bitio.WriteFullBox(TypeEsds, 0, 0, esDescriptor)
}

// buildAudioSampleEntry writes a raw mp4a stsd entry: the fixed
// AudioSampleEntry header (28 bytes after the box header), version is
// encoded the way QuickTime sound descriptions do (first two bytes of the
// "reserved" block following data_reference_index), an optional
// version-specific trailer, then any nested boxes (typically esds).
func buildAudioSampleEntry(version uint16, trailer []byte, children ...[]byte) []byte {
	w := bitio.NewWriter()
	w.Zeros(6)          // reserved
	w.WriteU16(1)       // data_reference_index
	w.WriteU16(version) // version
	w.Zeros(6)          // revision_level(2) + vendor(4)
	w.WriteU16(2)       // channelcount
	w.WriteU16(16)      // samplesize
	w.WriteU16(0)       // pre_defined
	w.WriteU16(0)       // reserved
	w.WriteFixed16_16(44100)
	w.WriteBytes(trailer)
	for _, c := range children {
		w.WriteBytes(c)
	}
	return bitio.WriteBox(TypeMp4a, w.Bytes())
}

func TestExtractAudioSpecificConfigV0Entry(t *testing.T) {
	asc := []byte{0x12, 0x10} // AAC-LC, 44.1kHz stereo
	esds := buildEsds(asc)
	entry := buildAudioSampleEntry(0, nil, esds)

	got, err := ExtractAudioSpecificConfig(entry)
	require.NoError(t, err)
	assert.Equal(t, asc, got)
}

func TestExtractAudioSpecificConfigV1QuickTimeEntry(t *testing.T) {
	asc := []byte{0x13, 0x90, 0x56, 0xe5, 0x00}
	esds := buildEsds(asc)
	// version 1 QuickTime sound descriptions insert 16 extra bytes
	// (samplesPerPacket, bytesPerPacket, bytesPerFrame, bytesPerSample)
	// before the nested boxes.
	entry := buildAudioSampleEntry(1, make([]byte, 16), esds)

	got, err := ExtractAudioSpecificConfig(entry)
	require.NoError(t, err)
	assert.Equal(t, asc, got)
}

func TestExtractAudioSpecificConfigRejectsTruncatedEntry(t *testing.T) {
	_, err := ExtractAudioSpecificConfig(make([]byte, 10))
	require.Error(t, err)
}

func TestExtractAudioSpecificConfigMissingEsdsFails(t *testing.T) {
	entry := buildAudioSampleEntry(0, nil) // no esds child at all
	_, err := ExtractAudioSpecificConfig(entry)
	require.Error(t, err)
}
