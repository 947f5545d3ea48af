package description

import (
	"fmt"
	"net"
	"strconv"

	"github.com/pion/rtcp"
	psdp "github.com/pion/sdp/v3"

	"github.com/bluenviron/gortp/pkg/participant"
)

// Session is the description of a RTP session.
type Session struct {
	// Title of the session (optional).
	Title string

	// Connection address of the session.
	Address string

	// Media streams.
	Medias []*Media
}

// Unmarshal decodes the description from SDP.
func (d *Session) Unmarshal(buf []byte) error {
	var sd psdp.SessionDescription
	err := sd.Unmarshal(buf)
	if err != nil {
		return err
	}

	d.Title = string(sd.SessionName)
	if d.Title == " " {
		d.Title = ""
	}

	if sd.ConnectionInformation != nil && sd.ConnectionInformation.Address != nil {
		d.Address = sd.ConnectionInformation.Address.Address
	}

	d.Medias = make([]*Media, len(sd.MediaDescriptions))

	for i, md := range sd.MediaDescriptions {
		var m Media
		err = m.Unmarshal(md)
		if err != nil {
			return fmt.Errorf("media %d is invalid: %w", i+1, err)
		}

		if m.Address == "" && d.Address == "" {
			return fmt.Errorf("media %d has no connection address", i+1)
		}

		d.Medias[i] = &m
	}

	return nil
}

// Marshal encodes the description in SDP.
func (d Session) Marshal() ([]byte, error) {
	var sessionName psdp.SessionName
	if d.Title != "" {
		sessionName = psdp.SessionName(d.Title)
	} else {
		// RFC 4566: If a session has no meaningful name, the
		// value "s= " SHOULD be used (i.e., a single space as the session name).
		sessionName = psdp.SessionName(" ")
	}

	address := d.Address
	if address == "" {
		address = "0.0.0.0"
	}

	sd := &psdp.SessionDescription{
		SessionName: sessionName,
		Origin: psdp.Origin{
			Username:       "-",
			NetworkType:    "IN",
			AddressType:    "IP4",
			UnicastAddress: address,
		},
		ConnectionInformation: &psdp.ConnectionInformation{
			NetworkType: "IN",
			AddressType: "IP4",
			Address:     &psdp.Address{Address: address},
		},
		TimeDescriptions: []psdp.TimeDescription{
			{Timing: psdp.Timing{StartTime: 0, StopTime: 0}},
		},
		MediaDescriptions: make([]*psdp.MediaDescription, len(d.Medias)),
	}

	for i, media := range d.Medias {
		sd.MediaDescriptions[i] = media.Marshal()
	}

	return sd.Marshal()
}

// Participant returns the participant that sends and receives a media stream.
func (d Session) Participant(m *Media) (*participant.Participant, error) {
	address := m.Address
	if address == "" {
		address = d.Address
	}

	ip := net.ParseIP(address)
	if ip == nil {
		ips, err := net.LookupIP(address)
		if err != nil {
			return nil, err
		}
		ip = ips[0]
	}

	rtpAddr, err := net.ResolveUDPAddr("udp", net.JoinHostPort(ip.String(), strconv.Itoa(m.Port)))
	if err != nil {
		return nil, err
	}

	rtcpAddr, err := net.ResolveUDPAddr("udp", net.JoinHostPort(ip.String(), strconv.Itoa(m.RTCPPort)))
	if err != nil {
		return nil, err
	}

	p := participant.New(rtpAddr, rtcpAddr, m.SSRC)

	if m.CNAME != "" {
		p.SetSDES([]rtcp.SourceDescriptionItem{{Type: rtcp.SDESCNAME, Text: m.CNAME}})
	}

	return p, nil
}
