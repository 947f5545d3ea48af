package bits

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWriteBits(t *testing.T) {
	buf := make([]byte, 6)
	pos := 0
	WriteBits(buf, &pos, uint64(0x2a), 6)
	WriteBits(buf, &pos, uint64(0x0c), 6)
	WriteBits(buf, &pos, uint64(0x1f), 6)
	WriteBits(buf, &pos, uint64(0x5a), 8)
	WriteBits(buf, &pos, uint64(0xaaec4), 20)
	WriteBits(buf, &pos, uint64(0x01), 2)
	require.Equal(t, []byte{0xA8, 0xC7, 0xD6, 0xAA, 0xBB, 0x11}, buf)
}

func TestWriteUint(t *testing.T) {
	buf := make([]byte, 9)
	pos := 0
	WriteFlag(buf, &pos, true)
	WriteFlag(buf, &pos, false)
	WriteBits(buf, &pos, 0, 6)
	WriteUint16(buf, &pos, 0x0102)
	WriteUint32(buf, &pos, 0x03040506)
	WriteBytes(buf, &pos, []byte{0x07, 0x08})
	require.Equal(t, []byte{0x80, 0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08}, buf)
	require.Equal(t, 72, pos)

	pos = 8
	u16, err := ReadUint16(buf, &pos)
	require.NoError(t, err)
	require.Equal(t, uint16(0x0102), u16)
}
