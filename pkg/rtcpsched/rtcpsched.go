// Package rtcpsched contains the RTCP transmission scheduler of a RTP session.
package rtcpsched

import (
	"math"
	"sync"
	"time"

	"github.com/gammazero/deque"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/pion/randutil"
	"github.com/pion/rtcp"
)

const (
	defaultMinInterval      = 5 * time.Second
	defaultEarlyThreshold   = 2
	defaultRegularThreshold = 10
	defaultMaxFeedbackDelay = 1 * time.Second
	defaultMaxAppDelay      = 30 * time.Second

	initialInterval = 3 * time.Second
	steadyInterval  = 5500 * time.Millisecond
	intervalJitter  = 500 * time.Millisecond

	// groups larger than this use the bandwidth-based interval.
	scaledGroupSize = 4

	// Specification: RFC3550, appendix A.7
	senderBandwidthFraction   = 0.25
	receiverBandwidthFraction = 1 - senderBandwidthFraction
	compensation              = math.E - 1.5

	// IP + UDP header
	packetOverhead = 28

	suppressionCacheSize = 256
)

// State is the state of the scheduler.
type State int

// states.
const (
	StateInitial State = iota
	StateSteady
	StateScaled
)

// String implements fmt.Stringer.
func (s State) String() string {
	switch s {
	case StateInitial:
		return "initial"
	case StateSteady:
		return "steady"
	case StateScaled:
		return "scaled"
	}
	return "unknown"
}

// FeedbackMode is the way a feedback packet can be transmitted.
type FeedbackMode int

// feedback modes.
const (
	// wait for the next regular RTCP packet.
	FeedbackRegular FeedbackMode = iota

	// send before the next regular RTCP packet, once per interval.
	FeedbackEarly

	// send at once.
	FeedbackImmediate
)

// String implements fmt.Stringer.
func (m FeedbackMode) String() string {
	switch m {
	case FeedbackRegular:
		return "regular"
	case FeedbackEarly:
		return "early"
	case FeedbackImmediate:
		return "immediate"
	}
	return "unknown"
}

type queuedPacket struct {
	pkt  rtcp.Packet
	time time.Time
}

// Scheduler computes RTCP transmission intervals and holds
// feedback and application packets waiting to be sent.
type Scheduler struct {
	// Session bandwidth, in bytes per second.
	// Zero means that it is not set, and a fixed interval is used.
	Bandwidth int

	// RTCP bandwidth, in bytes per second.
	// It defaults to 5% of Bandwidth.
	RTCPBandwidth int

	// Minimum interval of the bandwidth-based computation.
	// It defaults to 5 seconds.
	MinInterval time.Duration

	// Maximum group size allowing immediate feedback.
	// It defaults to 2.
	EarlyThreshold int

	// Group size from which feedback can only be sent with regular packets.
	// It defaults to 10.
	RegularThreshold int

	// Maximum time a feedback packet waits before being discarded.
	// It defaults to 1 second.
	MaxFeedbackDelay time.Duration

	// Maximum time an application packet waits before being discarded.
	// It defaults to 30 seconds.
	MaxAppDelay time.Duration

	// time.Now function.
	TimeNow func() time.Time

	mutex         sync.Mutex
	rand          randutil.MathRandomGenerator
	state         State
	avgPacketSize float64
	earlyUsed     bool
	feedback      map[uint32]*deque.Deque[queuedPacket]
	apps          map[uint32]*deque.Deque[queuedPacket]
	suppressed    *expirable.LRU[string, struct{}]
}

// Initialize initializes Scheduler.
func (s *Scheduler) Initialize() {
	if s.MinInterval == 0 {
		s.MinInterval = defaultMinInterval
	}
	if s.EarlyThreshold == 0 {
		s.EarlyThreshold = defaultEarlyThreshold
	}
	if s.RegularThreshold == 0 {
		s.RegularThreshold = defaultRegularThreshold
	}
	if s.MaxFeedbackDelay == 0 {
		s.MaxFeedbackDelay = defaultMaxFeedbackDelay
	}
	if s.MaxAppDelay == 0 {
		s.MaxAppDelay = defaultMaxAppDelay
	}
	if s.TimeNow == nil {
		s.TimeNow = time.Now
	}

	s.rand = randutil.NewMathRandomGenerator()
	s.state = StateInitial
	s.feedback = make(map[uint32]*deque.Deque[queuedPacket])
	s.apps = make(map[uint32]*deque.Deque[queuedPacket])
	s.suppressed = expirable.NewLRU[string, struct{}](suppressionCacheSize, nil, s.MaxFeedbackDelay)
}

// SetBandwidth sets the session bandwidth, in bytes per second.
func (s *Scheduler) SetBandwidth(v int) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.Bandwidth = v
}

// SetRTCPBandwidth sets the RTCP bandwidth, in bytes per second.
func (s *Scheduler) SetRTCPBandwidth(v int) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.RTCPBandwidth = v
}

// State returns the current state.
func (s *Scheduler) State() State {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.state
}

// Reset moves the scheduler back to the initial state.
func (s *Scheduler) Reset() {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.state = StateInitial
	s.earlyUsed = false
}

// jitterFactor returns a random number in [0.5, 1.5).
func (s *Scheduler) jitterFactor() float64 {
	return 0.5 + float64(s.rand.Uint32())/(1<<32)
}

func (s *Scheduler) fixedInterval(center time.Duration) time.Duration {
	return center - intervalJitter + time.Duration(float64(2*intervalJitter)*float64(s.rand.Uint32())/(1<<32))
}

func (s *Scheduler) rtcpBandwidth() float64 {
	if s.RTCPBandwidth > 0 {
		return float64(s.RTCPBandwidth)
	}
	return float64(s.Bandwidth) * 0.05
}

// scaledInterval computes the interval as a function of group size and bandwidth.
// Specification: RFC3550, appendix A.7
func (s *Scheduler) scaledInterval(members int, senders int, weSent bool) time.Duration {
	bw := s.rtcpBandwidth()
	n := members

	if senders > 0 && float64(senders) <= float64(members)*senderBandwidthFraction {
		if weSent {
			bw *= senderBandwidthFraction
			n = senders
		} else {
			bw *= receiverBandwidthFraction
			n -= senders
		}
	}

	t := time.Duration(s.avgPacketSize * float64(n) / bw * float64(time.Second))
	t = time.Duration(float64(t) * s.jitterFactor() / compensation)

	if t < s.MinInterval {
		t = s.MinInterval
	}

	return t
}

// NextInterval returns the time to wait before the next regular RTCP packet,
// and starts a new interval.
// members is the size of the group including the local participant,
// senders the number of participants that sent data recently.
func (s *Scheduler) NextInterval(members int, senders int, weSent bool) time.Duration {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.earlyUsed = false

	switch {
	case s.state == StateInitial:
		s.state = StateSteady
		return s.fixedInterval(initialInterval)

	case members > scaledGroupSize && s.Bandwidth > 0 && s.avgPacketSize > 0:
		s.state = StateScaled
		return s.scaledInterval(members, senders, weSent)

	default:
		s.state = StateSteady
		return s.fixedInterval(steadyInterval)
	}
}

// UpdateAvgPacketSize updates the average RTCP packet size with the size of
// a sent or received compound packet.
func (s *Scheduler) UpdateAvgPacketSize(size int) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	v := float64(size + packetOverhead)

	if s.avgPacketSize == 0 {
		s.avgPacketSize = v
		return
	}

	s.avgPacketSize = s.avgPacketSize*15/16 + v/16
}

// AvgPacketSize returns the average RTCP packet size.
func (s *Scheduler) AvgPacketSize() float64 {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.avgPacketSize
}

// RequestFeedback returns how feedback can be sent in a group of the given size.
// Early feedback is granted once per interval.
// Specification: RFC4585, section 3.5
func (s *Scheduler) RequestFeedback(groupSize int) FeedbackMode {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if groupSize <= s.EarlyThreshold {
		return FeedbackImmediate
	}

	if groupSize < s.RegularThreshold && !s.earlyUsed {
		s.earlyUsed = true
		return FeedbackEarly
	}

	return FeedbackRegular
}
