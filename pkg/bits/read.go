// Package bits contains functions to read and write big-endian values
// from and to buffers, at bit granularity.
package bits

import (
	"fmt"
)

func errNotEnoughBits(need int, have int) error {
	return fmt.Errorf("not enough bits: need %d, have %d", need, have)
}

// ReadBits reads N bits.
func ReadBits(buf []byte, pos *int, n int) (uint64, error) {
	if n > ((len(buf) * 8) - *pos) {
		return 0, errNotEnoughBits(n, (len(buf)*8)-*pos)
	}

	v := uint64(0)

	res := 8 - (*pos & 0x07)
	if n < res {
		v := uint64((buf[*pos>>0x03] >> (res - n)) & (1<<n - 1))
		*pos += n
		return v, nil
	}

	v = (v << res) | uint64(buf[*pos>>0x03]&(1<<res-1))
	*pos += res
	n -= res

	for n >= 8 {
		v = (v << 8) | uint64(buf[*pos>>0x03])
		*pos += 8
		n -= 8
	}

	if n > 0 {
		v = (v << n) | uint64(buf[*pos>>0x03]>>(8-n))
		*pos += n
	}

	return v, nil
}

// ReadFlag reads a boolean flag.
func ReadFlag(buf []byte, pos *int) (bool, error) {
	v, err := ReadBits(buf, pos, 1)
	return v == 1, err
}

// ReadUint8 reads a uint8.
func ReadUint8(buf []byte, pos *int) (uint8, error) {
	v, err := ReadBits(buf, pos, 8)
	return uint8(v), err
}

// ReadUint16 reads a big-endian uint16.
func ReadUint16(buf []byte, pos *int) (uint16, error) {
	v, err := ReadBits(buf, pos, 16)
	return uint16(v), err
}

// ReadUint32 reads a big-endian uint32.
func ReadUint32(buf []byte, pos *int) (uint32, error) {
	v, err := ReadBits(buf, pos, 32)
	return uint32(v), err
}

// ReadBytes reads n whole bytes. The position must be byte-aligned.
func ReadBytes(buf []byte, pos *int, n int) ([]byte, error) {
	if (*pos & 0x07) != 0 {
		return nil, fmt.Errorf("position %d is not byte-aligned", *pos)
	}

	if (n * 8) > ((len(buf) * 8) - *pos) {
		return nil, errNotEnoughBits(n*8, (len(buf)*8)-*pos)
	}

	start := *pos >> 3
	*pos += n * 8
	return buf[start : start+n], nil
}
