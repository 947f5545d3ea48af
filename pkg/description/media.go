// Package description contains SDP descriptions of RTP sessions.
package description

import (
	"fmt"
	"strconv"
	"strings"

	psdp "github.com/pion/sdp/v3"
)

func getAttribute(attributes []psdp.Attribute, key string) string {
	for _, attr := range attributes {
		if attr.Key == key {
			return attr.Value
		}
	}
	return ""
}

func getFormatAttribute(attributes []psdp.Attribute, payloadType uint8, key string) string {
	for _, attr := range attributes {
		if attr.Key == key {
			v := strings.TrimSpace(attr.Value)
			if parts := strings.SplitN(v, " ", 2); len(parts) == 2 {
				if tmp, err := strconv.ParseUint(parts[0], 10, 8); err == nil && uint8(tmp) == payloadType {
					return parts[1]
				}
			}
		}
	}
	return ""
}

// getFeedbackAttributes returns the values of a=rtcp-fb attributes
// that apply to the given payload type or to all of them.
// Specification: RFC4585, section 4.2
func getFeedbackAttributes(attributes []psdp.Attribute, payloadType uint8) []string {
	var ret []string
	pt := strconv.FormatUint(uint64(payloadType), 10)

	for _, attr := range attributes {
		if attr.Key != "rtcp-fb" {
			continue
		}

		parts := strings.SplitN(strings.TrimSpace(attr.Value), " ", 2)
		if len(parts) == 2 && (parts[0] == "*" || parts[0] == pt) {
			ret = append(ret, parts[1])
		}
	}

	return ret
}

// MediaType is the type of a media stream.
type MediaType string

// media types.
const (
	MediaTypeVideo       MediaType = "video"
	MediaTypeAudio       MediaType = "audio"
	MediaTypeApplication MediaType = "application"
)

// Media is a media stream of a RTP session.
type Media struct {
	// Media type.
	Type MediaType

	// Connection address of the media.
	// When empty, the address of the session is used.
	Address string

	// RTP port.
	Port int

	// RTCP port.
	// It defaults to the RTP port incremented by one.
	// Specification: RFC3605
	RTCPPort int

	// Whether the AVPF profile is in use.
	AVPF bool

	// Payload type.
	PayloadType uint8

	// Encoding name and clock rate, taken from the rtpmap attribute.
	EncodingName string
	ClockRate    int

	// Accepted feedback messages, taken from rtcp-fb attributes (i.e. "nack", "nack pli").
	FeedbackMessages []string

	// SSRC and canonical name of the source (optional).
	// Specification: RFC5576
	SSRC  *uint32
	CNAME string
}

func (m *Media) unmarshalRTPMap(v string) error {
	parts := strings.SplitN(v, "/", 3)
	if len(parts) < 2 {
		return fmt.Errorf("invalid rtpmap: %v", v)
	}

	m.EncodingName = parts[0]

	tmp, err := strconv.ParseUint(parts[1], 10, 31)
	if err != nil {
		return fmt.Errorf("invalid clock rate: %v", parts[1])
	}
	m.ClockRate = int(tmp)

	return nil
}

func (m *Media) unmarshalSSRC(attributes []psdp.Attribute) error {
	for _, attr := range attributes {
		if attr.Key != "ssrc" {
			continue
		}

		parts := strings.SplitN(attr.Value, " ", 2)

		tmp, err := strconv.ParseUint(parts[0], 10, 32)
		if err != nil {
			return fmt.Errorf("invalid ssrc: %v", parts[0])
		}
		ssrc := uint32(tmp)
		m.SSRC = &ssrc

		if len(parts) == 2 {
			if v, ok := strings.CutPrefix(parts[1], "cname:"); ok {
				m.CNAME = v
			}
		}

		return nil
	}

	return nil
}

// Unmarshal decodes the media from the SDP format.
func (m *Media) Unmarshal(md *psdp.MediaDescription) error {
	m.Type = MediaType(md.MediaName.Media)
	m.Port = md.MediaName.Port.Value
	m.AVPF = strings.Join(md.MediaName.Protos, "/") == "RTP/AVPF"

	if md.ConnectionInformation != nil && md.ConnectionInformation.Address != nil {
		m.Address = md.ConnectionInformation.Address.Address
	}

	if len(md.MediaName.Formats) == 0 {
		return fmt.Errorf("no formats found")
	}

	// the first format is the preferred one.
	tmp, err := strconv.ParseUint(md.MediaName.Formats[0], 10, 7)
	if err != nil {
		return fmt.Errorf("invalid payload type: %v", md.MediaName.Formats[0])
	}
	m.PayloadType = uint8(tmp)

	if rtpMap := getFormatAttribute(md.Attributes, m.PayloadType, "rtpmap"); rtpMap != "" {
		err = m.unmarshalRTPMap(rtpMap)
		if err != nil {
			return err
		}
	}

	if v := getAttribute(md.Attributes, "rtcp"); v != "" {
		port, err := strconv.ParseUint(strings.SplitN(v, " ", 2)[0], 10, 16)
		if err != nil {
			return fmt.Errorf("invalid rtcp attribute: %v", v)
		}
		m.RTCPPort = int(port)
	} else {
		m.RTCPPort = m.Port + 1
	}

	m.FeedbackMessages = getFeedbackAttributes(md.Attributes, m.PayloadType)

	return m.unmarshalSSRC(md.Attributes)
}

// Marshal encodes the media in SDP format.
func (m Media) Marshal() *psdp.MediaDescription {
	protos := []string{"RTP", "AVP"}
	if m.AVPF {
		protos = []string{"RTP", "AVPF"}
	}

	typ := strconv.FormatUint(uint64(m.PayloadType), 10)

	md := &psdp.MediaDescription{
		MediaName: psdp.MediaName{
			Media:   string(m.Type),
			Port:    psdp.RangedPort{Value: m.Port},
			Protos:  protos,
			Formats: []string{typ},
		},
	}

	if m.Address != "" {
		md.ConnectionInformation = &psdp.ConnectionInformation{
			NetworkType: "IN",
			AddressType: "IP4",
			Address:     &psdp.Address{Address: m.Address},
		}
	}

	if m.RTCPPort != 0 && m.RTCPPort != m.Port+1 {
		md.Attributes = append(md.Attributes, psdp.Attribute{
			Key:   "rtcp",
			Value: strconv.Itoa(m.RTCPPort),
		})
	}

	if m.EncodingName != "" {
		md.Attributes = append(md.Attributes, psdp.Attribute{
			Key:   "rtpmap",
			Value: typ + " " + m.EncodingName + "/" + strconv.Itoa(m.ClockRate),
		})
	}

	for _, fb := range m.FeedbackMessages {
		md.Attributes = append(md.Attributes, psdp.Attribute{
			Key:   "rtcp-fb",
			Value: typ + " " + fb,
		})
	}

	if m.SSRC != nil {
		v := strconv.FormatUint(uint64(*m.SSRC), 10)
		if m.CNAME != "" {
			v += " cname:" + m.CNAME
		}
		md.Attributes = append(md.Attributes, psdp.Attribute{
			Key:   "ssrc",
			Value: v,
		})
	}

	return md
}
