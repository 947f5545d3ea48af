// Package framebuffer contains a buffer that orders, deduplicates
// and reassembles RTP packets into frames.
package framebuffer

import (
	"time"

	"github.com/gammazero/deque"
	"github.com/pion/rtp"

	"github.com/bluenviron/gortp/pkg/liberrors"
)

const (
	// BehaviorUnbuffered passes packets through in arrival order.
	BehaviorUnbuffered = -1

	// BehaviorFiltered accepts only packets newer than the newest accepted one.
	BehaviorFiltered = 0

	defaultRolloverTolerance = 10
	defaultLateSeqTolerance  = 3
)

// seqNewer compares sequence numbers with serial number arithmetic.
func seqNewer(a uint16, b uint16) bool {
	return int16(a-b) > 0
}

// tsOlder compares timestamps with serial number arithmetic.
func tsOlder(a uint32, b uint32) bool {
	return int32(a-b) < 0
}

type frame struct {
	timestamp uint32
	pkts      []*rtp.Packet // sorted by sequence number
}

func (f *frame) firstSeq() uint16 {
	return f.pkts[0].SequenceNumber
}

func (f *frame) lastSeq() uint16 {
	return f.pkts[len(f.pkts)-1].SequenceNumber
}

// insert adds a packet to the frame. It returns false if the packet is a duplicate.
func (f *frame) insert(pkt *rtp.Packet) bool {
	i := len(f.pkts)
	for i > 0 {
		cur := f.pkts[i-1].SequenceNumber
		if cur == pkt.SequenceNumber {
			return false
		}
		if seqNewer(pkt.SequenceNumber, cur) {
			break
		}
		i--
	}

	f.pkts = append(f.pkts, nil)
	copy(f.pkts[i+1:], f.pkts[i:])
	f.pkts[i] = pkt
	return true
}

// Buffer is a per-participant packet buffer.
// It is not safe for concurrent use.
type Buffer struct {
	// Buffer behavior.
	// BehaviorUnbuffered (or any negative value) passes packets through.
	// BehaviorFiltered drops packets that are not newer than the newest one.
	// A positive value N reorders packets, releasing a frame when its
	// sequence number follows the last released one or when more than N frames are queued.
	Behavior int

	// Whether to group packets with the same timestamp into frames.
	Reconstruct bool

	// Returns the number of packets of a frame with the given payload type.
	// Zero or negative values mean that frames have variable length.
	// It defaults to variable length.
	FrameSize func(payloadType uint8) int

	// Returns the absolute time of a RTP timestamp, if available.
	WallClock func(ts uint32) (time.Time, bool)

	// Tolerance of the filtered behavior around sequence number rollover.
	// It defaults to 10.
	RolloverTolerance int

	// Tolerance of the buffered behavior on packets that arrive just past
	// a sequence number rollover.
	// It defaults to 3.
	LateSeqTolerance int

	frames *deque.Deque[*frame]

	released  bool
	lastSeq   uint16
	lastTS    uint32
	accepted  bool
	newestSeq uint16
	newestTS  uint32
}

// Initialize initializes Buffer.
func (b *Buffer) Initialize() {
	if b.FrameSize == nil {
		b.FrameSize = func(uint8) int {
			return -1
		}
	}
	if b.RolloverTolerance == 0 {
		b.RolloverTolerance = defaultRolloverTolerance
	}
	if b.LateSeqTolerance == 0 {
		b.LateSeqTolerance = defaultLateSeqTolerance
	}

	b.frames = deque.New[*frame]()
}

// Len returns the number of queued frames.
func (b *Buffer) Len() int {
	return b.frames.Len()
}

// Clear discards all queued packets.
func (b *Buffer) Clear() {
	b.frames.Clear()
}

// Push adds a packet to the buffer.
// It returns an error when the packet is dropped.
func (b *Buffer) Push(pkt *rtp.Packet) error {
	switch {
	case b.Behavior < 0:
		return b.pushBack(pkt)

	case b.Behavior == 0:
		if !b.isNewest(pkt) {
			return liberrors.ErrFrameBufferOld
		}
		err := b.pushBack(pkt)
		if err != nil {
			return err
		}
		b.accepted = true
		b.newestSeq = pkt.SequenceNumber
		b.newestTS = pkt.Timestamp
		return nil

	default:
		if !b.onTime(pkt) {
			return liberrors.ErrFrameBufferLate
		}
		return b.insert(pkt)
	}
}

func (b *Buffer) pushBack(pkt *rtp.Packet) error {
	if b.Reconstruct && b.frames.Len() != 0 {
		last := b.frames.Back()
		if last.timestamp == pkt.Timestamp {
			if !last.insert(pkt) {
				return liberrors.ErrFrameBufferDuplicate
			}
			return nil
		}
	}

	b.frames.PushBack(&frame{
		timestamp: pkt.Timestamp,
		pkts:      []*rtp.Packet{pkt},
	})
	return nil
}

func (b *Buffer) isNewest(pkt *rtp.Packet) bool {
	if !b.accepted {
		return true
	}

	if tsOlder(pkt.Timestamp, b.newestTS) {
		return false
	}

	if pkt.SequenceNumber > b.newestSeq {
		return true
	}

	// rollover
	return int(b.newestSeq) >= 0x10000-b.RolloverTolerance &&
		int(pkt.SequenceNumber) < b.RolloverTolerance
}

func (b *Buffer) onTime(pkt *rtp.Packet) bool {
	if !b.released {
		return true
	}

	older := tsOlder(pkt.Timestamp, b.lastTS)

	switch {
	case pkt.SequenceNumber == b.lastSeq:
		return false

	case pkt.SequenceNumber > b.lastSeq:
		// packet sent before a rollover that happened after the last release
		return !(int(b.lastSeq) < b.LateSeqTolerance && older)

	default:
		// packet sent after a rollover
		return int(pkt.SequenceNumber) <= b.LateSeqTolerance && !older
	}
}

// insert places a packet in timestamp order, scanning backwards from the newest frame.
func (b *Buffer) insert(pkt *rtp.Packet) error {
	i := b.frames.Len()

	for i > 0 {
		f := b.frames.At(i - 1)

		if b.Reconstruct && f.timestamp == pkt.Timestamp {
			if !f.insert(pkt) {
				return liberrors.ErrFrameBufferDuplicate
			}
			return nil
		}

		if !b.Reconstruct && f.timestamp == pkt.Timestamp {
			if f.firstSeq() == pkt.SequenceNumber {
				return liberrors.ErrFrameBufferDuplicate
			}
			if seqNewer(pkt.SequenceNumber, f.firstSeq()) {
				break
			}
		} else if tsOlder(f.timestamp, pkt.Timestamp) {
			break
		}

		i--
	}

	b.frames.Insert(i, &frame{
		timestamp: pkt.Timestamp,
		pkts:      []*rtp.Packet{pkt},
	})
	return nil
}

func (b *Buffer) frameDone(f *frame, isLast bool) bool {
	if !b.Reconstruct || !isLast {
		return true
	}

	size := b.FrameSize(f.pkts[0].PayloadType)

	// when reordering, variable-length frames follow the sequence rules only.
	if b.Behavior > 0 {
		return size <= 0 || len(f.pkts) >= size
	}

	if f.pkts[len(f.pkts)-1].Marker {
		return true
	}

	return size > 0 && len(f.pkts) >= size
}

func (b *Buffer) headReady() bool {
	if b.frames.Len() == 0 {
		return false
	}

	head := b.frames.Front()
	done := b.frameDone(head, b.frames.Len() == 1)

	if b.Behavior <= 0 {
		return done
	}

	if b.frames.Len() > b.Behavior {
		return true
	}

	if !done {
		return false
	}

	return !b.released ||
		head.firstSeq() == b.lastSeq+1 ||
		head.firstSeq() == 0
}

// Ready returns whether a frame can be released.
func (b *Buffer) Ready() bool {
	return b.headReady()
}

// Pop releases the oldest frame, if it is ready.
func (b *Buffer) Pop() *DataFrame {
	if !b.headReady() {
		return nil
	}

	f := b.frames.PopFront()

	b.released = true
	b.lastSeq = f.lastSeq()
	b.lastTS = f.timestamp

	return b.dataFrame(f)
}

func (b *Buffer) dataFrame(f *frame) *DataFrame {
	first := f.pkts[0]

	df := &DataFrame{
		Payloads:        make([][]byte, len(f.pkts)),
		SequenceNumbers: make([]uint16, len(f.pkts)),
		Markers:         make([]bool, len(f.pkts)),
		Timestamp:       f.timestamp,
		SSRC:            first.SSRC,
		CSRC:            first.CSRC,
		PayloadType:     first.PayloadType,
	}

	for i, pkt := range f.pkts {
		df.Payloads[i] = pkt.Payload
		df.SequenceNumbers[i] = pkt.SequenceNumber
		df.Markers[i] = pkt.Marker
	}

	if b.WallClock != nil {
		df.WallClock, df.HasWallClock = b.WallClock(f.timestamp)
	}

	df.ExpectedPackets = b.FrameSize(first.PayloadType)
	df.Complete = df.computeComplete()

	return df
}
