package framebuffer

import (
	"time"
)

// DataFrame is a frame released by a Buffer.
type DataFrame struct {
	// payloads of the packets of the frame, in sequence order.
	Payloads [][]byte

	SequenceNumbers []uint16
	Markers         []bool
	Timestamp       uint32

	// absolute time of Timestamp, when HasWallClock is true.
	WallClock    time.Time
	HasWallClock bool

	SSRC        uint32
	CSRC        []uint32
	PayloadType uint8

	// number of packets expected in the frame. Zero or negative for variable-length frames.
	ExpectedPackets int

	// whether all expected packets are present.
	Complete bool
}

func (f *DataFrame) computeComplete() bool {
	if f.ExpectedPackets <= 0 {
		return true
	}

	if len(f.SequenceNumbers) != f.ExpectedPackets {
		return false
	}

	for i := 1; i < len(f.SequenceNumbers); i++ {
		if f.SequenceNumbers[i] != f.SequenceNumbers[i-1]+1 {
			return false
		}
	}

	return true
}

// ConcatenatedPayload returns the payloads of all packets joined together.
func (f *DataFrame) ConcatenatedPayload() []byte {
	n := 0
	for _, p := range f.Payloads {
		n += len(p)
	}

	buf := make([]byte, 0, n)
	for _, p := range f.Payloads {
		buf = append(buf, p...)
	}

	return buf
}
