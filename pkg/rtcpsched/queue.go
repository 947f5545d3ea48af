package rtcpsched

import (
	"time"

	"github.com/gammazero/deque"
	"github.com/pion/rtcp"
)

// suppressionKey identifies a feedback message regardless of its sender.
func suppressionKey(pkt rtcp.Packet) (string, bool) {
	buf, err := pkt.Marshal()
	if err != nil || len(buf) < 12 {
		return "", false
	}

	// sender SSRC
	buf[4], buf[5], buf[6], buf[7] = 0, 0, 0, 0

	return string(buf), true
}

func enqueue(queues map[uint32]*deque.Deque[queuedPacket], target uint32, pkt rtcp.Packet, now time.Time) {
	q, ok := queues[target]
	if !ok {
		q = deque.New[queuedPacket]()
		queues[target] = q
	}
	q.PushBack(queuedPacket{pkt: pkt, time: now})
}

func drain(queues map[uint32]*deque.Deque[queuedPacket], target uint32, minTime time.Time) []rtcp.Packet {
	q, ok := queues[target]
	if !ok {
		return nil
	}

	var ret []rtcp.Packet

	for q.Len() != 0 {
		e := q.PopFront()
		if e.time.Before(minTime) {
			continue
		}
		ret = append(ret, e.pkt)
	}

	delete(queues, target)

	return ret
}

// EnqueueFeedback queues a feedback packet directed to the given SSRC.
// It returns false when an identical feedback message has been seen recently,
// either sent by the local participant or received from another one.
func (s *Scheduler) EnqueueFeedback(target uint32, pkt rtcp.Packet) bool {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if key, ok := suppressionKey(pkt); ok {
		if s.suppressed.Contains(key) {
			return false
		}
		s.suppressed.Add(key, struct{}{})
	}

	enqueue(s.feedback, target, pkt, s.TimeNow())
	return true
}

// ObserveFeedback records a feedback packet received from another participant,
// in order to suppress identical local feedback.
// Specification: RFC4585, section 3.5.2
func (s *Scheduler) ObserveFeedback(pkt rtcp.Packet) {
	if key, ok := suppressionKey(pkt); ok {
		s.suppressed.Add(key, struct{}{})
	}
}

// EnqueueApp queues an application-defined packet directed to the given SSRC.
func (s *Scheduler) EnqueueApp(target uint32, pkt *rtcp.ApplicationDefined) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	enqueue(s.apps, target, pkt, s.TimeNow())
}

// DequeueFeedback returns and removes feedback packets directed to the given SSRC.
// Packets older than MaxFeedbackDelay are discarded.
func (s *Scheduler) DequeueFeedback(target uint32) []rtcp.Packet {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return drain(s.feedback, target, s.TimeNow().Add(-s.MaxFeedbackDelay))
}

// DequeueApps returns and removes application packets directed to the given SSRC.
// Packets older than MaxAppDelay are discarded.
func (s *Scheduler) DequeueApps(target uint32) []rtcp.Packet {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return drain(s.apps, target, s.TimeNow().Add(-s.MaxAppDelay))
}

// DequeueAll returns and removes feedback and application packets directed to any SSRC.
func (s *Scheduler) DequeueAll() []rtcp.Packet {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	var ret []rtcp.Packet

	now := s.TimeNow()
	for target := range s.feedback {
		ret = append(ret, drain(s.feedback, target, now.Add(-s.MaxFeedbackDelay))...)
	}
	for target := range s.apps {
		ret = append(ret, drain(s.apps, target, now.Add(-s.MaxAppDelay))...)
	}

	return ret
}

// HasPending returns whether packets are queued for the given SSRC.
func (s *Scheduler) HasPending(target uint32) bool {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if q, ok := s.feedback[target]; ok && q.Len() != 0 {
		return true
	}
	if q, ok := s.apps[target]; ok && q.Len() != 0 {
		return true
	}
	return false
}

// Clear discards all queued packets.
func (s *Scheduler) Clear() {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.feedback = make(map[uint32]*deque.Deque[queuedPacket])
	s.apps = make(map[uint32]*deque.Deque[queuedPacket])
	s.suppressed.Purge()
}
