package bits

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestReadBits(t *testing.T) {
	buf := []byte{0xA8, 0xC7, 0xD6, 0xAA, 0xBB, 0x10}
	pos := 0
	v, _ := ReadBits(buf, &pos, 6)
	require.Equal(t, uint64(0x2a), v)
	v, _ = ReadBits(buf, &pos, 6)
	require.Equal(t, uint64(0x0c), v)
	v, _ = ReadBits(buf, &pos, 6)
	require.Equal(t, uint64(0x1f), v)
	v, _ = ReadBits(buf, &pos, 8)
	require.Equal(t, uint64(0x5a), v)
	v, _ = ReadBits(buf, &pos, 20)
	require.Equal(t, uint64(0xaaec4), v)
}

func TestReadBitsError(t *testing.T) {
	buf := []byte{0xA8}
	pos := 0
	_, err := ReadBits(buf, &pos, 6)
	require.NoError(t, err)
	_, err = ReadBits(buf, &pos, 6)
	require.EqualError(t, err, "not enough bits: need 6, have 2")
}

func TestReadUint(t *testing.T) {
	buf := []byte{0x80, 0x01, 0x02, 0x03, 0x04, 0x05, 0x06}
	pos := 0

	f, err := ReadFlag(buf, &pos)
	require.NoError(t, err)
	require.Equal(t, true, f)

	pos = 8
	u16, err := ReadUint16(buf, &pos)
	require.NoError(t, err)
	require.Equal(t, uint16(0x0102), u16)

	u32, err := ReadUint32(buf, &pos)
	require.NoError(t, err)
	require.Equal(t, uint32(0x03040506), u32)

	_, err = ReadUint8(buf, &pos)
	require.Error(t, err)
}

func TestReadBytes(t *testing.T) {
	buf := []byte{0x01, 0x02, 0x03, 0x04}
	pos := 8

	b, err := ReadBytes(buf, &pos, 2)
	require.NoError(t, err)
	require.Equal(t, []byte{0x02, 0x03}, b)
	require.Equal(t, 24, pos)

	_, err = ReadBytes(buf, &pos, 2)
	require.Error(t, err)

	pos = 3
	_, err = ReadBytes(buf, &pos, 1)
	require.EqualError(t, err, "position 3 is not byte-aligned")
}
