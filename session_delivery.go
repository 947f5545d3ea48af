package gortp

import (
	"github.com/bluenviron/gortp/pkg/framebuffer"
	"github.com/bluenviron/gortp/pkg/participant"
)

type deliveredFrame struct {
	frame *framebuffer.DataFrame
	p     *participant.Participant
}

// readyFrames drains buffers of all participants.
// The caller must hold bufMutex.
func (s *Session) readyFrames() []deliveredFrame {
	var ret []deliveredFrame

	for _, p := range s.registry.All() {
		b := p.Buffer()
		if b == nil {
			continue
		}

		for b.Ready() {
			ret = append(ret, deliveredFrame{
				frame: b.Pop(),
				p:     p,
			})
		}
	}

	return ret
}

// runDelivery hands frames to the handler.
// Frames are collected under bufMutex and delivered outside of it, so that
// the handler can call methods of the session.
func (s *Session) runDelivery() {
	defer close(s.deliveryDone)

	for {
		s.bufMutex.Lock()

		var frames []deliveredFrame

		for {
			if s.deliveryTerminate {
				s.bufMutex.Unlock()
				return
			}

			frames = s.readyFrames()
			if len(frames) != 0 {
				break
			}

			s.bufCond.Wait()
		}

		s.bufMutex.Unlock()

		for _, f := range frames {
			s.Metrics.frame()
			s.handler.OnData(f.frame, f.p)
		}
	}
}
