// Package ntp contains functions to encode and decode timestamps to/from NTP format.
package ntp

import (
	"math"
	"time"
)

// Encode encodes a timestamp in NTP format.
// Specification: RFC3550, section 4
func Encode(t time.Time) uint64 {
	ntp := uint64(t.UnixNano()) + 2208988800*1000000000
	secs := ntp / 1000000000
	fractional := uint64(math.Round(float64((ntp%1000000000)*(1<<32)) / 1000000000))
	return secs<<32 | fractional
}

// Decode decodes a timestamp from NTP format.
// Specification: RFC3550, section 4
func Decode(v uint64) time.Time {
	secs := int64((v >> 32) - 2208988800)
	nanos := int64(math.Round(float64(((v & 0xFFFFFFFF) * 1000000000) / (1 << 32))))
	return time.Unix(secs, nanos)
}

// Compact returns the middle 32 bits of a NTP timestamp,
// used in the LSR field of reception reports.
// Specification: RFC3550, section 6.4.1
func Compact(v uint64) uint32 {
	return uint32(v >> 16)
}

// EncodeDuration encodes a duration in units of 1/65536 seconds,
// used in the DLSR field of reception reports.
func EncodeDuration(d time.Duration) uint32 {
	if d <= 0 {
		return 0
	}
	return uint32(d.Seconds() * 65536)
}

// DecodeDuration decodes a duration expressed in units of 1/65536 seconds.
func DecodeDuration(v uint32) time.Duration {
	return time.Duration(float64(v) / 65536 * float64(time.Second))
}
