package jpegls

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBitReader_ReadBits(t *testing.T) {
	br := NewBitReader([]byte{0b10110010, 0b11000011})

	val, err := br.ReadBits(3)
	require.NoError(t, err)
	assert.Equal(t, uint32(5), val)

	val, err = br.ReadBits(5)
	require.NoError(t, err)
	assert.Equal(t, uint32(18), val)

	val, err = br.ReadBits(4)
	require.NoError(t, err)
	assert.Equal(t, uint32(12), val)

	assert.Equal(t, byte(0b00110000), br.PeekByte())
}

func TestBitWriter_Stuffing(t *testing.T) {
	var buf bytes.Buffer
	bw := NewBitWriter(&buf)
	require.NoError(t, bw.WriteBits(0xFFFF, 16))
	require.NoError(t, bw.Flush())

	// the byte after 0xFF carries seven data bits
	assert.Equal(t, []byte{0xFF, 0x7F, 0x80}, buf.Bytes())
	assert.Equal(t, int64(16), bw.written)

	br := NewBitReader(buf.Bytes())
	val, err := br.ReadBits(16)
	require.NoError(t, err)
	assert.Equal(t, uint32(0xFFFF), val)
	require.NoError(t, br.EndScan())
	assert.Equal(t, 3, br.Position())
}

func TestBitWriter_EndScanAfterFF(t *testing.T) {
	var buf bytes.Buffer
	bw := NewBitWriter(&buf)
	require.NoError(t, bw.WriteBits(0xFF, 8))
	require.NoError(t, bw.EndScan())
	require.NoError(t, bw.EndScan())
	require.NoError(t, bw.Flush())
	assert.Equal(t, []byte{0xFF, 0x00}, buf.Bytes())
}

func TestBitWriter_NeverFormsMarker(t *testing.T) {
	var buf bytes.Buffer
	bw := NewBitWriter(&buf)
	for i := range 2000 {
		require.NoError(t, bw.WriteBits(uint32(i*2654435761), 1+i%32))
	}
	require.NoError(t, bw.Flush())

	data := buf.Bytes()
	for i := 0; i+1 < len(data); i++ {
		if data[i] == 0xFF {
			require.Less(t, data[i+1], byte(0x80), "marker at byte %d", i)
		}
	}

	br := NewBitReader(data)
	for i := range 2000 {
		n := 1 + i%32
		val, err := br.ReadBits(n)
		require.NoError(t, err)
		require.Equal(t, uint32(i*2654435761)&uint32(uint64(1)<<n-1), val, "value %d", i)
	}
	require.NoError(t, br.EndScan())
	assert.Equal(t, len(data), br.Position())
}

func TestBitReader_StopsAtMarker(t *testing.T) {
	br := NewBitReader([]byte{0xAB, 0xFF, 0xD9})
	val, err := br.ReadBits(8)
	require.NoError(t, err)
	assert.Equal(t, uint32(0xAB), val)

	_, err = br.ReadBits(1)
	assert.ErrorIs(t, err, ErrSourceBufferTooSmall)
	assert.Equal(t, 1, br.Position())
	require.NoError(t, br.EndScan())
}

func TestBitReader_EndScan(t *testing.T) {
	br := NewBitReader([]byte{0x80})
	bit, err := br.ReadBit()
	require.NoError(t, err)
	assert.True(t, bit)
	assert.NoError(t, br.EndScan())

	br = NewBitReader([]byte{0x80, 0x12})
	_, err = br.ReadBit()
	require.NoError(t, err)
	assert.ErrorIs(t, br.EndScan(), ErrTooMuchEncodedData)
}
