package bits

// WriteBits writes N bits.
// The destination bits must be zero.
func WriteBits(buf []byte, pos *int, bits uint64, n int) {
	res := 8 - (*pos & 0x07)
	if n < res {
		buf[*pos>>0x03] |= byte(bits << (res - n))
		*pos += n
		return
	}

	buf[*pos>>3] |= byte(bits >> (n - res))
	*pos += res
	n -= res

	for n >= 8 {
		buf[*pos>>3] = byte(bits >> (n - 8))
		*pos += 8
		n -= 8
	}

	if n > 0 {
		buf[*pos>>3] = byte((bits & (1<<n - 1)) << (8 - n))
		*pos += n
	}
}

// WriteFlag writes a boolean flag.
func WriteFlag(buf []byte, pos *int, v bool) {
	if v {
		WriteBits(buf, pos, 1, 1)
	} else {
		*pos++
	}
}

// WriteUint8 writes a uint8.
func WriteUint8(buf []byte, pos *int, v uint8) {
	WriteBits(buf, pos, uint64(v), 8)
}

// WriteUint16 writes a big-endian uint16.
func WriteUint16(buf []byte, pos *int, v uint16) {
	WriteBits(buf, pos, uint64(v), 16)
}

// WriteUint32 writes a big-endian uint32.
func WriteUint32(buf []byte, pos *int, v uint32) {
	WriteBits(buf, pos, uint64(v), 32)
}

// WriteBytes writes whole bytes. The position must be byte-aligned.
func WriteBytes(buf []byte, pos *int, v []byte) {
	copy(buf[*pos>>3:], v)
	*pos += len(v) * 8
}
