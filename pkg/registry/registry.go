// Package registry contains the set of participants of a RTP session.
package registry

import (
	"net"
	"sort"
	"sync"

	"github.com/elliotchance/orderedmap/v2"

	"github.com/bluenviron/gortp/pkg/liberrors"
	"github.com/bluenviron/gortp/pkg/participant"
)

// Origin is the way a participant has been discovered.
type Origin int

// origins.
const (
	OriginApplication Origin = iota
	OriginRTP
	OriginRTCP
)

// String implements fmt.Stringer.
func (o Origin) String() string {
	switch o {
	case OriginApplication:
		return "application"
	case OriginRTP:
		return "RTP"
	case OriginRTCP:
		return "RTCP"
	}
	return "unknown"
}

// AddResult is the result of Add().
type AddResult struct {
	// participant stored in the registry.
	Participant *participant.Participant

	// whether a declared participant has been bound to a participant learned from traffic.
	Matched bool

	// whether the participant was already present.
	Existing bool
}

func addrEqual(a *net.UDPAddr, b *net.UDPAddr) bool {
	return a != nil && b != nil && a.IP.Equal(b.IP) && a.Port == b.Port
}

func ipEqual(a *net.UDPAddr, b *net.UDPAddr) bool {
	return a != nil && b != nil && a.IP.Equal(b.IP)
}

// Registry is the set of participants of a RTP session.
//
// In multicast mode, participants are indexed by SSRC only.
// In unicast mode, participants declared by the application are kept in
// insertion order, since they are the destinations of outgoing packets,
// while participants learned from traffic are indexed by SSRC until
// they are bound to a declared participant with the same address.
type Registry struct {
	Multicast bool

	mutex    sync.RWMutex
	bySSRC   map[uint32]*participant.Participant
	declared *orderedmap.OrderedMap[*participant.Participant, struct{}]
}

// Initialize initializes Registry.
func (r *Registry) Initialize() {
	r.bySSRC = make(map[uint32]*participant.Participant)
	r.declared = orderedmap.NewOrderedMap[*participant.Participant, struct{}]()
}

// Add adds a participant.
func (r *Registry) Add(origin Origin, p *participant.Participant) (AddResult, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if r.Multicast {
		return r.addMulticast(p)
	}

	if origin == OriginApplication {
		return r.addDeclared(p)
	}

	return r.addLearned(origin, p)
}

func (r *Registry) addMulticast(p *participant.Participant) (AddResult, error) {
	ssrc, ok := p.SSRC()
	if !ok {
		return AddResult{}, liberrors.ErrRegistryMissingSSRC{}
	}

	if _, ok := r.bySSRC[ssrc]; ok {
		return AddResult{}, liberrors.ErrRegistryDuplicateSSRC{SSRC: ssrc}
	}

	r.bySSRC[ssrc] = p
	return AddResult{Participant: p}, nil
}

func (r *Registry) addDeclared(p *participant.Participant) (AddResult, error) {
	if p.RTPAddress() == nil {
		return AddResult{}, liberrors.ErrRegistryMissingAddress{}
	}

	for el := r.declared.Front(); el != nil; el = el.Next() {
		if addrEqual(el.Key.RTPAddress(), p.RTPAddress()) {
			return AddResult{}, liberrors.ErrRegistryDuplicateAddress{Address: p.RTPAddress()}
		}
	}

	var match *participant.Participant

	if ssrc, ok := p.SSRC(); ok {
		if existing, ok := r.bySSRC[ssrc]; ok {
			if !existing.Unexpected() {
				return AddResult{}, liberrors.ErrRegistryDuplicateSSRC{SSRC: ssrc}
			}
			match = existing
		}
	} else {
		match = r.findUnexpected(p)
	}

	if match != nil {
		ssrc, _ := match.SSRC()
		p.Merge(match)
		r.bySSRC[ssrc] = p
	} else if ssrc, ok := p.SSRC(); ok {
		r.bySSRC[ssrc] = p
	}

	r.declared.Set(p, struct{}{})

	return AddResult{Participant: p, Matched: match != nil}, nil
}

// findUnexpected finds a participant learned from traffic whose source
// address matches the addresses of a declared participant.
func (r *Registry) findUnexpected(p *participant.Participant) *participant.Participant {
	var candidates []*participant.Participant

	for _, u := range r.bySSRC {
		if u.Unexpected() {
			candidates = append(candidates, u)
		}
	}

	for _, u := range candidates {
		if addrEqual(u.RTPReceivedFrom(), p.RTPAddress()) ||
			addrEqual(u.RTCPReceivedFrom(), p.RTCPAddress()) {
			return u
		}
	}

	var ipMatch *participant.Participant
	n := 0

	for _, u := range candidates {
		if ipEqual(u.RTPReceivedFrom(), p.RTPAddress()) ||
			ipEqual(u.RTCPReceivedFrom(), p.RTCPAddress()) {
			ipMatch = u
			n++
		}
	}

	if n == 1 {
		return ipMatch
	}

	return nil
}

func (r *Registry) addLearned(origin Origin, p *participant.Participant) (AddResult, error) {
	ssrc, ok := p.SSRC()
	if !ok {
		return AddResult{}, liberrors.ErrRegistryMissingSSRC{}
	}

	if existing, ok := r.bySSRC[ssrc]; ok {
		return AddResult{Participant: existing, Existing: true}, nil
	}

	if d := r.findDeclared(origin, p); d != nil {
		d.Merge(p)
		r.bySSRC[ssrc] = d
		return AddResult{Participant: d, Matched: true}, nil
	}

	r.bySSRC[ssrc] = p
	return AddResult{Participant: p}, nil
}

// findDeclared finds a declared participant, not bound to a SSRC yet,
// whose address matches the source address of a learned participant.
// An exact match of IP and port is preferred. Otherwise, a match of the IP
// is accepted when a single declared participant has that IP.
func (r *Registry) findDeclared(origin Origin, p *participant.Participant) *participant.Participant {
	from := p.RTPReceivedFrom()
	declaredAddr := (*participant.Participant).RTPAddress
	if origin == OriginRTCP {
		from = p.RTCPReceivedFrom()
		declaredAddr = (*participant.Participant).RTCPAddress
	}

	var ipMatch *participant.Participant
	n := 0

	for el := r.declared.Front(); el != nil; el = el.Next() {
		d := el.Key
		if _, ok := d.SSRC(); ok {
			continue
		}

		addr := declaredAddr(d)

		if addrEqual(addr, from) {
			return d
		}

		if ipEqual(addr, from) {
			ipMatch = d
			n++
		}
	}

	if n == 1 {
		return ipMatch
	}

	return nil
}

// Remove removes a participant and discards its buffered packets.
// The caller must hold the lock that protects buffers.
func (r *Registry) Remove(p *participant.Participant) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	found := r.declared.Delete(p)

	if ssrc, ok := p.SSRC(); ok {
		if cur, ok := r.bySSRC[ssrc]; ok && cur == p {
			delete(r.bySSRC, ssrc)
			found = true
		}
	}

	if !found {
		return liberrors.ErrRegistryParticipantNotFound{}
	}

	if b := p.Buffer(); b != nil {
		b.Clear()
	}

	return nil
}

// BySSRC returns the participant with the given SSRC.
func (r *Registry) BySSRC(ssrc uint32) (*participant.Participant, bool) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	p, ok := r.bySSRC[ssrc]
	return p, ok
}

// Declared returns participants declared by the application, in insertion order.
func (r *Registry) Declared() []*participant.Participant {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	ret := make([]*participant.Participant, 0, r.declared.Len())
	for el := r.declared.Front(); el != nil; el = el.Next() {
		ret = append(ret, el.Key)
	}
	return ret
}

// Learned returns participants with a known SSRC, sorted by SSRC.
func (r *Registry) Learned() []*participant.Participant {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	return r.learnedUnsafe()
}

func (r *Registry) learnedUnsafe() []*participant.Participant {
	ssrcs := make([]uint32, 0, len(r.bySSRC))
	for ssrc := range r.bySSRC {
		ssrcs = append(ssrcs, ssrc)
	}
	sort.Slice(ssrcs, func(i, j int) bool {
		return ssrcs[i] < ssrcs[j]
	})

	ret := make([]*participant.Participant, len(ssrcs))
	for i, ssrc := range ssrcs {
		ret[i] = r.bySSRC[ssrc]
	}
	return ret
}

// All returns all participants: declared ones first, in insertion order,
// then the ones learned from traffic, sorted by SSRC.
func (r *Registry) All() []*participant.Participant {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	ret := make([]*participant.Participant, 0, r.declared.Len()+len(r.bySSRC))
	for el := r.declared.Front(); el != nil; el = el.Next() {
		ret = append(ret, el.Key)
	}

	for _, p := range r.learnedUnsafe() {
		if _, ok := r.declared.Get(p); !ok {
			ret = append(ret, p)
		}
	}

	return ret
}

// Len returns the number of participants.
func (r *Registry) Len() int {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	n := len(r.bySSRC)
	for el := r.declared.Front(); el != nil; el = el.Next() {
		if _, ok := el.Key.SSRC(); !ok {
			n++
		}
	}
	return n
}

// ContainsSSRC returns whether a participant uses the given SSRC.
func (r *Registry) ContainsSSRC(ssrc uint32) bool {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	_, ok := r.bySSRC[ssrc]
	return ok
}
