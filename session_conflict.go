package gortp

import (
	"fmt"
	"net"

	"github.com/bluenviron/gortp/pkg/liberrors"
)

// resolveConflict handles a received packet that uses the local SSRC.
// A BYE is sent with the old SSRC, a new SSRC is picked and the source
// description is announced again. When conflicts keep happening, the
// session is terminated.
// Specification: RFC3550, section 8.2
func (s *Session) resolveConflict(from *net.UDPAddr) {
	if s.ended.Load() || !s.conflict.CompareAndSwap(false, true) {
		return
	}
	defer s.conflict.Store(false)

	count := int(s.conflicts.Inc())
	s.Metrics.conflict()

	if count >= s.MaxConflicts {
		err := liberrors.ErrSessionTooManyConflicts{Count: count}
		s.importantEvent("terminating session", err)

		// close() waits for the routine that is calling this function.
		go s.close(err)
		return
	}

	old := s.ssrc.Load()

	s.sendBye(old, "SSRC conflict")

	ssrc, err := s.pickSSRC(old)
	if err != nil {
		s.log.Errorf("unable to generate SSRC: %v", err)
		return
	}

	s.ssrc.Store(ssrc)
	s.scheduler.Reset()

	s.importantEvent(fmt.Sprintf("SSRC %d is used by %v, switched to %d", old, from, ssrc), nil)

	select {
	case s.rtcpReset <- struct{}{}:
	default:
	}
}

// pickSSRC generates a SSRC that is not used by the session nor by participants.
func (s *Session) pickSSRC(old uint32) (uint32, error) {
	for {
		ssrc, err := randUint32()
		if err != nil {
			return 0, err
		}

		if ssrc != old && !s.registry.ContainsSSRC(ssrc) {
			return ssrc, nil
		}
	}
}
