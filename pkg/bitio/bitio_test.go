package bitio

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReaderPrimitives(t *testing.T) {
	w := NewWriter()
	w.WriteU8(0xAB)
	w.WriteU16(0x1234)
	w.WriteU24(0x0A0B0C)
	w.WriteU32(0xDEADBEEF)
	w.WriteU64(0x0102030405060708)
	w.Write4CC("trak")
	w.WriteFixed16_16(1.5)
	w.WriteFixed8_8(1.0)

	r := NewReader(w.Bytes())
	u8, err := r.ReadU8()
	require.NoError(t, err)
	assert.Equal(t, uint8(0xAB), u8)

	u16, _ := r.ReadU16()
	assert.Equal(t, uint16(0x1234), u16)

	u24, _ := r.ReadU24()
	assert.Equal(t, uint32(0x0A0B0C), u24)

	u32, _ := r.ReadU32()
	assert.Equal(t, uint32(0xDEADBEEF), u32)

	u64, _ := r.ReadU64()
	assert.Equal(t, uint64(0x0102030405060708), u64)

	fourCC, _ := r.Read4CC()
	assert.Equal(t, "trak", fourCC)

	fx1, _ := r.ReadFixed16_16()
	assert.InDelta(t, 1.5, fx1, 0.0001)

	fx2, _ := r.ReadFixed8_8()
	assert.InDelta(t, 1.0, fx2, 0.0001)

	assert.Equal(t, 0, r.Len())
}

func TestReaderEndOfData(t *testing.T) {
	r := NewReader([]byte{0x01, 0x02})
	_, err := r.ReadU32()
	require.Error(t, err)
}

func TestWriteBoxRoundTrip(t *testing.T) {
	box := WriteBox("free", []byte{1, 2, 3})
	assert.Equal(t, uint32(11), NewReader(box).mustU32())
	assert.Equal(t, byte(0x66), box[4]) // 'f'
}

func (r *Reader) mustU32() uint32 {
	v, _ := r.ReadU32()
	return v
}

func TestWriteFullBox(t *testing.T) {
	box := WriteFullBox("mvhd", 0, 0, []byte{0xAA})
	r := NewReader(box)
	size, _ := r.ReadU32()
	fourCC, _ := r.Read4CC()
	version, _ := r.ReadU8()
	flags, _ := r.ReadU24()
	assert.Equal(t, uint32(13), size)
	assert.Equal(t, "mvhd", fourCC)
	assert.Equal(t, uint8(0), version)
	assert.Equal(t, uint32(0), flags)
}
