package main

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"net"
	"os"
	"time"

	"github.com/pion/logging"
	"go.uber.org/zap"

	"github.com/bluenviron/gortp"
	"github.com/bluenviron/gortp/pkg/description"
	"github.com/bluenviron/gortp/pkg/framebuffer"
	"github.com/bluenviron/gortp/pkg/liberrors"
	"github.com/bluenviron/gortp/pkg/participant"
)

func newSession(conf *Config, lf logging.LoggerFactory, m *gortp.Metrics) (*gortp.Session, error) {
	s := &gortp.Session{
		RTPAddress:        conf.RTPAddress,
		RTCPAddress:       conf.RTCPAddress,
		Multicast:         conf.Multicast,
		UDPReadBufferSize: conf.UDPReadBufferSize,
		PayloadType:       conf.PayloadType,
		ClockRate:         conf.ClockRate,
		Bandwidth:         conf.Bandwidth,
		BufferBehavior:    conf.BufferBehavior,
		CNAME:             conf.CNAME,
		Name:              conf.Name,
		Tool:              conf.Tool,
		LoggerFactory:     lf,
		Metrics:           m,
	}

	if conf.MulticastInterface != "" {
		intf, err := net.InterfaceByName(conf.MulticastInterface)
		if err != nil {
			return nil, err
		}
		s.MulticastInterface = intf
	}

	return s, nil
}

// remoteParticipants returns the participants declared in the configuration.
func remoteParticipants(conf *Config) ([]*participant.Participant, error) {
	var ret []*participant.Participant

	for _, peer := range conf.Peers {
		rtpAddr, err := net.ResolveUDPAddr("udp", peer)
		if err != nil {
			return nil, fmt.Errorf("invalid peer '%s': %w", peer, err)
		}

		rtcpAddr := &net.UDPAddr{IP: rtpAddr.IP, Port: rtpAddr.Port + 1, Zone: rtpAddr.Zone}
		ret = append(ret, participant.New(rtpAddr, rtcpAddr, nil))
	}

	if conf.RemoteSDP != "" {
		buf, err := os.ReadFile(conf.RemoteSDP)
		if err != nil {
			return nil, err
		}

		var desc description.Session
		err = desc.Unmarshal(buf)
		if err != nil {
			return nil, fmt.Errorf("invalid SDP: %w", err)
		}

		for _, m := range desc.Medias {
			p, err := desc.Participant(m)
			if err != nil {
				return nil, err
			}
			ret = append(ret, p)
		}
	}

	return ret, nil
}

// localDescription returns the description of the local peer.
func localDescription(conf *Config, s *gortp.Session) *description.Session {
	address := "127.0.0.1"
	if host, _, err := net.SplitHostPort(conf.RTPAddress); err == nil && host != "" {
		address = host
	}

	ssrc := s.SSRC()

	return &description.Session{
		Title:   conf.Tool,
		Address: address,
		Medias: []*description.Media{{
			Type:             description.MediaTypeApplication,
			Port:             s.RTPPort(),
			RTCPPort:         s.RTCPPort(),
			AVPF:             true,
			PayloadType:      conf.PayloadType,
			EncodingName:     conf.EncodingName,
			ClockRate:        conf.ClockRate,
			FeedbackMessages: []string{"nack", "nack pli"},
			SSRC:             &ssrc,
			CNAME:            s.CNAME,
		}},
	}
}

func writeLocalDescription(conf *Config, s *gortp.Session) error {
	byts, err := localDescription(conf, s).Marshal()
	if err != nil {
		return err
	}

	return os.WriteFile(conf.LocalSDP, byts, 0o644)
}

// generateFrame splits random data into packets.
func generateFrame(conf SendConfig) ([][]byte, error) {
	buf := make([]byte, conf.FrameSize)
	_, err := rand.Read(buf)
	if err != nil {
		return nil, err
	}

	payloads := make([][]byte, conf.PacketsPerFrame)
	size := conf.FrameSize / conf.PacketsPerFrame

	for i := range payloads {
		if i == len(payloads)-1 {
			payloads[i] = buf[i*size:]
		} else {
			payloads[i] = buf[i*size : (i+1)*size]
		}
	}

	return payloads, nil
}

func runSender(ctx context.Context, s *gortp.Session, conf SendConfig, log *zap.SugaredLogger) {
	t := time.NewTicker(conf.FrameInterval)
	defer t.Stop()

	for {
		select {
		case <-t.C:
			payloads, err := generateFrame(conf)
			if err != nil {
				log.Errorf("unable to generate frame: %v", err)
				return
			}

			_, err = s.Send(payloads)
			if err != nil {
				var eterm liberrors.ErrSessionTerminated
				if errors.As(err, &eterm) {
					return
				}
				log.Debugf("frame not sent: %v", err)
			}

		case <-ctx.Done():
			return
		}
	}
}

type peerHandler struct {
	log *zap.SugaredLogger

	// remote peers are expected to split frames like the local one.
	packetsPerFrame int
}

func (h *peerHandler) OnData(f *framebuffer.DataFrame, p *participant.Participant) {
	size := 0
	for _, pl := range f.Payloads {
		size += len(pl)
	}

	h.log.Infow("frame received",
		"ssrc", f.SSRC,
		"cname", p.CNAME(),
		"timestamp", f.Timestamp,
		"packets", len(f.Payloads),
		"size", size,
		"complete", f.Complete)
}

func (h *peerHandler) OnUserEvent(t gortp.UserEventType, ps []*participant.Participant) {
	for _, p := range ps {
		ssrc, _ := p.SSRC()
		h.log.Infow("participant event", "event", t.String(), "ssrc", ssrc, "cname", p.CNAME())
	}
}

func (h *peerHandler) FrameSize(uint8) int {
	if h.packetsPerFrame <= 0 {
		return -1
	}
	return h.packetsPerFrame
}

func (h *peerHandler) OnPictureLossIndication(ctx *gortp.HandlerOnPictureLossIndicationCtx) {
	h.log.Infow("picture loss indication received", "ssrc", ctx.Packet.SenderSSRC)
}

func (h *peerHandler) OnNACK(ctx *gortp.HandlerOnNACKCtx) {
	h.log.Infow("NACK received", "ssrc", ctx.Packet.SenderSSRC, "lost", ctx.Packet.Nacks)
}

func (h *peerHandler) OnImportantEvent(ctx *gortp.HandlerOnImportantEventCtx) {
	if ctx.Error != nil {
		h.log.Warnw(ctx.Description, "error", ctx.Error)
	} else {
		h.log.Infow(ctx.Description)
	}
}
