// Package gortp is a RTP/RTCP session library for the Go programming language.
// It implements RFC3550 and the AVPF profile (RFC4585) over UDP,
// in unicast or multicast groups.
package gortp

import (
	"errors"
	"net"
	"os"
	"sync"
	"time"

	"github.com/gammazero/workerpool"
	"github.com/google/uuid"
	"github.com/pion/logging"
	"github.com/pion/randutil"
	"github.com/pion/rtp"
	"go.uber.org/atomic"

	"github.com/bluenviron/gortp/pkg/framebuffer"
	"github.com/bluenviron/gortp/pkg/liberrors"
	"github.com/bluenviron/gortp/pkg/participant"
	"github.com/bluenviron/gortp/pkg/registry"
	"github.com/bluenviron/gortp/pkg/rtcpsched"
)

func defaultCNAME() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "localhost"
	}
	return uuid.NewString() + "@" + host
}

func randUint32() (uint32, error) {
	v, err := randutil.CryptoUint64()
	if err != nil {
		return 0, err
	}
	return uint32(v), nil
}

// Stats are session statistics.
type Stats struct {
	// current SSRC of the session.
	SSRC uint32
	// number of sent RTP packets.
	SentPackets uint64
	// number of sent RTP payload octets.
	SentOctets uint64
	// number of SSRC conflicts that have been resolved.
	Conflicts int
	// number of participants.
	Participants int
	// average size of RTCP packets.
	AvgRTCPPacketSize float64
	// state of the RTCP scheduler.
	RTCPState rtcpsched.State
}

// Session is a RTP session.
type Session struct {
	//
	// Transport parameters (all optional)
	//
	// Address of the RTP listener.
	// In multicast mode, it is the address of the multicast group.
	// It defaults to ":5004".
	RTPAddress string
	// Address of the RTCP listener.
	// It defaults to the RTP address with the port incremented by one.
	RTCPAddress string
	// Enables multicast mode.
	Multicast bool
	// Interface used to join multicast groups.
	// It defaults to the one chosen by the operating system.
	MulticastInterface *net.Interface
	// Size of the UDP read buffer.
	// This can be increased to reduce packet losses.
	// It defaults to 512 KiB, capped by the operating system.
	UDPReadBufferSize int
	// Timeout of write operations.
	// It defaults to 10 seconds.
	WriteTimeout time.Duration

	//
	// Media parameters (all optional)
	//
	// Payload type of sent packets.
	PayloadType uint8
	// Clock rate of RTP timestamps.
	// It defaults to 90000.
	ClockRate int
	// Session bandwidth, in bytes per second.
	// It is used to compute the RTCP interval of large groups.
	Bandwidth int
	// RTCP bandwidth, in bytes per second.
	// It defaults to 5% of Bandwidth.
	RTCPBandwidth int
	// Behavior of the buffer of received packets.
	// A negative value disables buffering, zero drops out-of-order packets,
	// a positive value is the number of frames that are kept to reorder packets.
	// It defaults to 3.
	BufferBehavior *int
	// Disables the reconstruction of frames that are split into multiple packets.
	DisableFrameReconstruction bool
	// Sequence number distance under which an older packet is considered a rollover
	// when buffering is disabled.
	// It defaults to 10.
	RolloverTolerance int
	// Sequence number distance under which a late packet is still accepted.
	// It defaults to 3.
	LateSeqTolerance int

	//
	// Source description (all optional)
	//
	// Canonical name of the local participant.
	// It defaults to a random UUID followed by the host name.
	CNAME    string
	Name     string
	Email    string
	Phone    string
	Location string
	Tool     string
	Note     string

	//
	// RTCP parameters (all optional)
	//
	// Minimum interval between RTCP packets of large groups.
	// It defaults to 5 seconds.
	MinRTCPInterval time.Duration
	// Maximum group size in which feedback is sent immediately.
	// It defaults to 2.
	EarlyFeedbackThreshold int
	// Maximum group size in which feedback is sent early.
	// It defaults to 10.
	RegularFeedbackThreshold int
	// Time after which queued feedback is discarded.
	// It defaults to 1 second.
	MaxFeedbackDelay time.Duration
	// Time after which queued application-defined packets are discarded.
	// It defaults to 30 seconds.
	MaxAppDelay time.Duration
	// Number of SSRC conflicts after which the session is terminated.
	// It defaults to 5.
	MaxConflicts int

	//
	// system functions (all optional)
	//
	// Logger factory.
	// It defaults to logging.NewDefaultLoggerFactory().
	LoggerFactory logging.LoggerFactory
	// Prometheus metrics. They must be initialized by the caller.
	Metrics *Metrics
	// function used to get the current time.
	// It defaults to time.Now.
	TimeNow func() time.Time
	// function used to initialize UDP listeners.
	// It defaults to net.ListenPacket.
	ListenPacket func(network, address string) (net.PacketConn, error)

	//
	// private
	//

	log          logging.LeveledLogger
	rtcpLog      logging.LeveledLogger
	registry     *registry.Registry
	scheduler    *rtcpsched.Scheduler
	sequencer    rtp.Sequencer
	rtpListener  *sessionUDPListener
	rtcpListener *sessionUDPListener
	startTime    time.Time
	tsOffset     uint32

	ssrc        *atomic.Uint32
	ended       *atomic.Bool
	conflict    *atomic.Bool
	conflicts   *atomic.Int32
	sentPackets *atomic.Uint64
	sentOctets  *atomic.Uint64
	weSent      *atomic.Bool

	registerMutex sync.Mutex
	handler       Handler

	eventsMutex   sync.RWMutex
	events        *workerpool.WorkerPool
	eventsStopped bool

	// protects buffers of participants.
	bufMutex          sync.Mutex
	bufCond           *sync.Cond
	deliveryTerminate bool

	closeOnce sync.Once
	closeErr  error

	// in
	rtcpWake  chan uint32
	rtcpReset chan struct{}

	// out
	terminate      chan struct{}
	deliveryDone   chan struct{}
	rtcpSenderDone chan struct{}
	done           chan struct{}
}

// Initialize initializes the session and opens its listeners.
func (s *Session) Initialize() error {
	if s.RTPAddress == "" {
		s.RTPAddress = defaultRTPAddress
	}
	if s.RTCPAddress == "" {
		var err error
		s.RTCPAddress, err = rtcpAddressFor(s.RTPAddress)
		if err != nil {
			return liberrors.ErrSessionInvalidAddress{Address: s.RTPAddress, Err: err}
		}
	}
	if s.WriteTimeout == 0 {
		s.WriteTimeout = defaultWriteTimeout
	}
	if s.ClockRate == 0 {
		s.ClockRate = defaultClockRate
	}
	if s.Bandwidth < 0 {
		return liberrors.ErrSessionInvalidBandwidth{Value: s.Bandwidth}
	}
	if s.RTCPBandwidth < 0 {
		return liberrors.ErrSessionInvalidBandwidth{Value: s.RTCPBandwidth}
	}
	if s.BufferBehavior == nil {
		s.BufferBehavior = ptrOf(defaultBufferBehavior)
	}
	if s.RolloverTolerance == 0 {
		s.RolloverTolerance = defaultRolloverTol
	}
	if s.LateSeqTolerance == 0 {
		s.LateSeqTolerance = defaultLateSeqTolerance
	}
	if s.CNAME == "" {
		s.CNAME = defaultCNAME()
	}
	if s.MaxConflicts == 0 {
		s.MaxConflicts = defaultMaxConflicts
	}
	if s.LoggerFactory == nil {
		s.LoggerFactory = logging.NewDefaultLoggerFactory()
	}
	if s.TimeNow == nil {
		s.TimeNow = time.Now
	}
	if s.ListenPacket == nil {
		s.ListenPacket = net.ListenPacket
	}

	s.log = s.LoggerFactory.NewLogger("gortp")
	s.rtcpLog = s.LoggerFactory.NewLogger("gortp-rtcp")

	ssrc, err := randUint32()
	if err != nil {
		return err
	}

	s.tsOffset, err = randUint32()
	if err != nil {
		return err
	}

	s.ssrc = atomic.NewUint32(ssrc)
	s.ended = atomic.NewBool(false)
	s.conflict = atomic.NewBool(false)
	s.conflicts = atomic.NewInt32(0)
	s.sentPackets = atomic.NewUint64(0)
	s.sentOctets = atomic.NewUint64(0)
	s.weSent = atomic.NewBool(false)
	s.sequencer = rtp.NewRandomSequencer()
	s.startTime = s.TimeNow()

	s.registry = &registry.Registry{
		Multicast: s.Multicast,
	}
	s.registry.Initialize()

	s.scheduler = &rtcpsched.Scheduler{
		Bandwidth:        s.Bandwidth,
		RTCPBandwidth:    s.RTCPBandwidth,
		MinInterval:      s.MinRTCPInterval,
		EarlyThreshold:   s.EarlyFeedbackThreshold,
		RegularThreshold: s.RegularFeedbackThreshold,
		MaxFeedbackDelay: s.MaxFeedbackDelay,
		MaxAppDelay:      s.MaxAppDelay,
		TimeNow:          s.TimeNow,
	}
	s.scheduler.Initialize()

	s.rtpListener = &sessionUDPListener{
		s:                  s,
		multicast:          s.Multicast,
		multicastInterface: s.MulticastInterface,
		address:            s.RTPAddress,
		readFunc:           s.handleRTP,
	}
	err = s.rtpListener.initialize()
	if err != nil {
		return err
	}

	s.rtcpListener = &sessionUDPListener{
		s:                  s,
		multicast:          s.Multicast,
		multicastInterface: s.MulticastInterface,
		address:            s.RTCPAddress,
		readFunc:           s.handleRTCP,
	}
	err = s.rtcpListener.initialize()
	if err != nil {
		s.rtpListener.close()
		return err
	}

	s.bufCond = sync.NewCond(&s.bufMutex)
	s.events = workerpool.New(1)
	s.rtcpWake = make(chan uint32, 16)
	s.rtcpReset = make(chan struct{}, 1)
	s.terminate = make(chan struct{})
	s.done = make(chan struct{})

	s.log.Debugf("session initialized, SSRC %d, RTP port %d, RTCP port %d",
		ssrc, s.rtpListener.port(), s.rtcpListener.port())

	return nil
}

// Register sets the handler of the session and starts processing packets.
func (s *Session) Register(h Handler) error {
	s.registerMutex.Lock()
	defer s.registerMutex.Unlock()

	if s.ended.Load() {
		return liberrors.ErrSessionTerminated{}
	}

	if s.handler != nil {
		return liberrors.ErrSessionAlreadyRegistered{}
	}

	s.handler = h

	s.deliveryDone = make(chan struct{})
	s.rtcpSenderDone = make(chan struct{})

	s.rtpListener.start()
	s.rtcpListener.start()
	go s.runDelivery()
	go s.runRTCPSender()

	return nil
}

// Close closes the session.
// A BYE packet is sent to participants and all routines are stopped.
// It can be called multiple times.
func (s *Session) Close() {
	s.close(liberrors.ErrSessionTerminated{})
}

func (s *Session) close(err error) {
	s.closeOnce.Do(func() {
		s.registerMutex.Lock()
		s.ended.Store(true)
		started := s.handler != nil
		s.registerMutex.Unlock()

		s.closeErr = err

		if started {
			s.sendBye(s.ssrc.Load(), byeReason)
		}

		s.rtpListener.close()
		s.rtcpListener.close()

		close(s.terminate)

		s.bufMutex.Lock()
		s.deliveryTerminate = true
		s.bufCond.Broadcast()
		s.bufMutex.Unlock()

		if started {
			<-s.rtcpSenderDone
			<-s.deliveryDone
		}

		s.eventsMutex.Lock()
		s.eventsStopped = true
		s.eventsMutex.Unlock()
		s.events.StopWait()

		s.importantEvent("session ended", err)

		close(s.done)
	})
}

// Wait waits until the session is terminated and returns the reason.
func (s *Session) Wait() error {
	<-s.done
	return s.closeErr
}

// SSRC returns the current SSRC of the local participant.
// It changes after a SSRC conflict.
func (s *Session) SSRC() uint32 {
	return s.ssrc.Load()
}

// RTPPort returns the port of the RTP listener.
func (s *Session) RTPPort() int {
	return s.rtpListener.port()
}

// RTCPPort returns the port of the RTCP listener.
func (s *Session) RTCPPort() int {
	return s.rtcpListener.port()
}

// Stats returns session statistics.
func (s *Session) Stats() *Stats {
	return &Stats{
		SSRC:              s.ssrc.Load(),
		SentPackets:       s.sentPackets.Load(),
		SentOctets:        s.sentOctets.Load(),
		Conflicts:         int(s.conflicts.Load()),
		Participants:      s.registry.Len(),
		AvgRTCPPacketSize: s.scheduler.AvgPacketSize(),
		RTCPState:         s.scheduler.State(),
	}
}

// Participants returns all participants.
func (s *Session) Participants() []*participant.Participant {
	return s.registry.All()
}

// AddParticipant adds a participant declared by the application.
// In unicast mode, packets are sent to all declared participants.
func (s *Session) AddParticipant(p *participant.Participant) error {
	if s.ended.Load() {
		return liberrors.ErrSessionTerminated{}
	}

	s.bufMutex.Lock()
	res, err := s.registry.Add(registry.OriginApplication, p)
	s.bufMutex.Unlock()
	if err != nil {
		return err
	}

	s.Metrics.setParticipants(s.registry.Len())

	if res.Matched {
		s.postEvent(UserEventAddressMatch, p)
	}

	return nil
}

// RemoveParticipant removes a participant and discards its buffered packets.
func (s *Session) RemoveParticipant(p *participant.Participant) error {
	s.bufMutex.Lock()
	err := s.registry.Remove(p)
	s.bufMutex.Unlock()
	if err != nil {
		return err
	}

	s.Metrics.setParticipants(s.registry.Len())

	return nil
}

// SetBandwidth sets the session bandwidth, in bytes per second.
func (s *Session) SetBandwidth(v int) error {
	if v < 1 {
		return liberrors.ErrSessionInvalidBandwidth{Value: v}
	}
	s.scheduler.SetBandwidth(v)
	return nil
}

// SetRTCPBandwidth sets the RTCP bandwidth, in bytes per second.
func (s *Session) SetRTCPBandwidth(v int) error {
	if v < 1 {
		return liberrors.ErrSessionInvalidBandwidth{Value: v}
	}
	s.scheduler.SetRTCPBandwidth(v)
	return nil
}

// localSDES returns the source description of the local participant.
func (s *Session) localSDES() participant.SDES {
	return participant.SDES{
		CNAME:    s.CNAME,
		Name:     s.Name,
		Email:    s.Email,
		Phone:    s.Phone,
		Location: s.Location,
		Tool:     s.Tool,
		Note:     s.Note,
	}
}

// newBuffer allocates the buffer of a participant with the given SSRC.
func (s *Session) newBuffer(ssrc uint32) *framebuffer.Buffer {
	b := &framebuffer.Buffer{
		Behavior:          *s.BufferBehavior,
		Reconstruct:       !s.DisableFrameReconstruction,
		FrameSize:         s.handler.FrameSize,
		RolloverTolerance: s.RolloverTolerance,
		LateSeqTolerance:  s.LateSeqTolerance,
		WallClock: func(ts uint32) (time.Time, bool) {
			// the participant that owns the buffer changes when it is bound to a declared one.
			p, ok := s.registry.BySSRC(ssrc)
			if !ok {
				return time.Time{}, false
			}
			return p.WallClock(ts)
		},
	}
	b.Initialize()
	return b
}

func (s *Session) postEvent(t UserEventType, ps ...*participant.Participant) {
	s.registerMutex.Lock()
	h := s.handler
	s.registerMutex.Unlock()

	if len(ps) == 0 || h == nil {
		return
	}

	s.eventsMutex.RLock()
	defer s.eventsMutex.RUnlock()

	if s.eventsStopped {
		return
	}

	s.events.Submit(func() {
		h.OnUserEvent(t, ps)
	})
}

func (s *Session) importantEvent(description string, err error) {
	var terminated liberrors.ErrSessionTerminated
	switch {
	case errors.As(err, &terminated):
		s.log.Debug(description)
	case err != nil:
		s.log.Warnf("%s: %v", description, err)
	default:
		s.log.Warn(description)
	}

	if h, ok := s.handler.(HandlerOnImportantEvent); ok {
		h.OnImportantEvent(&HandlerOnImportantEventCtx{
			Description: description,
			Error:       err,
		})
	}
}

func (s *Session) tracePacket(direction PacketDirection, isRTCP bool, payload []byte, addr *net.UDPAddr) {
	if h, ok := s.handler.(HandlerOnPacket); ok {
		h.OnPacket(&HandlerOnPacketCtx{
			Direction: direction,
			RTCP:      isRTCP,
			Payload:   payload,
			Address:   addr.String(),
		})
	}
}
