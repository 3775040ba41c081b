package mpegts

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCRC32MPEG2IsDeterministicAndNonZero(t *testing.T) {
	// PAT with no program entries, a well-known smoke value: just assert
	// determinism and non-zero output rather than hardcoding a magic
	// constant borrowed from a different section layout.
	a := crc32MPEG2([]byte{0x00, 0xB0, 0x0D, 0x00, 0x01, 0xC1, 0x00, 0x00})
	b := crc32MPEG2([]byte{0x00, 0xB0, 0x0D, 0x00, 0x01, 0xC1, 0x00, 0x00})
	assert.Equal(t, a, b)
	assert.NotZero(t, a)
}

func TestEncodeTimestamp33SetsMarkerBits(t *testing.T) {
	ts := uint64(123456789) & 0x1FFFFFFFF
	enc := encodeTimestamp33(ts, 0x20)
	assert.Equal(t, byte(1), enc[0]&0x01)
	assert.Equal(t, byte(1), enc[2]&0x01)
	assert.Equal(t, byte(1), enc[4]&0x01)
}

func TestBuildVideoPESHeaderFlags(t *testing.T) {
	pes := BuildVideoPES(1000, 900, true, []byte{0xAA, 0xBB})
	require.True(t, len(pes) > 9)
	assert.Equal(t, byte(0x00), pes[0])
	assert.Equal(t, byte(0x00), pes[1])
	assert.Equal(t, byte(0x01), pes[2])
	assert.Equal(t, byte(StreamIDVideo), pes[3])
	assert.Equal(t, byte(0xC0), pes[7]) // PTS_DTS_flags with DTS present
	assert.Equal(t, byte(10), pes[8])   // header_data_length
}

func TestMuxerBeginSegmentProducesPATAndPMT(t *testing.T) {
	m := NewMuxer(true, true)
	packets := m.BeginSegment()
	require.Equal(t, 2*PacketSize, len(packets))
	assert.Equal(t, byte(0x47), packets[0])
	assert.Equal(t, byte(0x47), packets[PacketSize])
}

func TestPacketizePESProducesCompletePackets(t *testing.T) {
	m := NewMuxer(true, false)
	pes := BuildVideoPES(1000, 0, false, make([]byte, 500))
	pcr := uint64(1000)
	packets := m.PacketizePES(PIDVideo, pes, true, &pcr)
	require.True(t, len(packets)%PacketSize == 0)
	require.True(t, len(packets) > 0)
	for i := 0; i < len(packets); i += PacketSize {
		assert.Equal(t, byte(0x47), packets[i])
	}
}
