package gortp

import (
	"github.com/pion/rtcp"

	"github.com/bluenviron/gortp/pkg/framebuffer"
	"github.com/bluenviron/gortp/pkg/participant"
	"github.com/bluenviron/gortp/pkg/rtcpcodec"
)

// UserEventType is the type of a membership event.
type UserEventType int

// membership events.
const (
	// participants left the session.
	UserEventBye UserEventType = iota

	// participants have been discovered through RTP packets.
	UserEventNewViaRTP

	// participants have been discovered through RTCP packets.
	UserEventNewViaRTCP

	// participants updated their source description.
	UserEventSDESUpdate

	// declared participants have been bound to participants discovered through traffic.
	UserEventAddressMatch
)

// String implements fmt.Stringer.
func (t UserEventType) String() string {
	switch t {
	case UserEventBye:
		return "bye"
	case UserEventNewViaRTP:
		return "new via RTP"
	case UserEventNewViaRTCP:
		return "new via RTCP"
	case UserEventSDESUpdate:
		return "SDES update"
	case UserEventAddressMatch:
		return "address match"
	}
	return "unknown"
}

// Handler is the interface implemented by the application that
// receives frames and events from a Session.
// It can also implement any of the HandlerOn* interfaces.
// Callbacks run inside the routines of the session and must not call Session.Close.
type Handler interface {
	// called when a frame is released by the buffer of a participant.
	// It is called synchronously by the delivery routine and must return quickly.
	OnData(*framebuffer.DataFrame, *participant.Participant)

	// called when the membership of the session changes.
	OnUserEvent(UserEventType, []*participant.Participant)

	// returns the number of packets of a frame with the given payload type.
	// -1 means that frames have variable length.
	FrameSize(payloadType uint8) int
}

// HandlerOnSenderReportCtx is the context of OnSenderReport.
type HandlerOnSenderReportCtx struct {
	Participant *participant.Participant
	Packet      *rtcp.SenderReport
}

// HandlerOnSenderReport can be implemented by a Handler.
type HandlerOnSenderReport interface {
	// called when a sender report is received.
	OnSenderReport(*HandlerOnSenderReportCtx)
}

// HandlerOnReceiverReportCtx is the context of OnReceiverReport.
type HandlerOnReceiverReportCtx struct {
	Participant *participant.Participant
	Packet      *rtcp.ReceiverReport
}

// HandlerOnReceiverReport can be implemented by a Handler.
type HandlerOnReceiverReport interface {
	// called when a receiver report is received.
	OnReceiverReport(*HandlerOnReceiverReportCtx)
}

// HandlerOnSourceDescriptionCtx is the context of OnSourceDescription.
type HandlerOnSourceDescriptionCtx struct {
	Participants []*participant.Participant
	Packet       *rtcp.SourceDescription
}

// HandlerOnSourceDescription can be implemented by a Handler.
type HandlerOnSourceDescription interface {
	// called when a source description is received.
	OnSourceDescription(*HandlerOnSourceDescriptionCtx)
}

// HandlerOnByeCtx is the context of OnBye.
type HandlerOnByeCtx struct {
	Participants []*participant.Participant
	Packet       *rtcp.Goodbye
}

// HandlerOnBye can be implemented by a Handler.
type HandlerOnBye interface {
	// called when a BYE packet is received.
	OnBye(*HandlerOnByeCtx)
}

// HandlerOnApplicationDefinedCtx is the context of OnApplicationDefined.
type HandlerOnApplicationDefinedCtx struct {
	Participant *participant.Participant
	Packet      *rtcp.ApplicationDefined
}

// HandlerOnApplicationDefined can be implemented by a Handler.
type HandlerOnApplicationDefined interface {
	// called when an application-defined packet is received.
	OnApplicationDefined(*HandlerOnApplicationDefinedCtx)
}

// HandlerOnPictureLossIndicationCtx is the context of OnPictureLossIndication.
type HandlerOnPictureLossIndicationCtx struct {
	Participant *participant.Participant
	Packet      *rtcp.PictureLossIndication
}

// HandlerOnPictureLossIndication can be implemented by a Handler.
type HandlerOnPictureLossIndication interface {
	// called when a picture loss indication is received.
	OnPictureLossIndication(*HandlerOnPictureLossIndicationCtx)
}

// HandlerOnSliceLossIndicationCtx is the context of OnSliceLossIndication.
type HandlerOnSliceLossIndicationCtx struct {
	Participant *participant.Participant
	Packet      *rtcpcodec.SliceLossIndication
}

// HandlerOnSliceLossIndication can be implemented by a Handler.
type HandlerOnSliceLossIndication interface {
	// called when a slice loss indication is received.
	OnSliceLossIndication(*HandlerOnSliceLossIndicationCtx)
}

// HandlerOnReferencePictureSelectionCtx is the context of OnReferencePictureSelection.
type HandlerOnReferencePictureSelectionCtx struct {
	Participant *participant.Participant
	Packet      *rtcpcodec.ReferencePictureSelection
}

// HandlerOnReferencePictureSelection can be implemented by a Handler.
type HandlerOnReferencePictureSelection interface {
	// called when a reference picture selection indication is received.
	OnReferencePictureSelection(*HandlerOnReferencePictureSelectionCtx)
}

// HandlerOnApplicationLayerFeedbackCtx is the context of OnApplicationLayerFeedback.
type HandlerOnApplicationLayerFeedbackCtx struct {
	Participant *participant.Participant
	Packet      *rtcpcodec.ApplicationLayerFeedback
}

// HandlerOnApplicationLayerFeedback can be implemented by a Handler.
type HandlerOnApplicationLayerFeedback interface {
	// called when application layer feedback is received.
	OnApplicationLayerFeedback(*HandlerOnApplicationLayerFeedbackCtx)
}

// HandlerOnNACKCtx is the context of OnNACK.
type HandlerOnNACKCtx struct {
	Participant *participant.Participant
	Packet      *rtcp.TransportLayerNack
}

// HandlerOnNACK can be implemented by a Handler.
type HandlerOnNACK interface {
	// called when a generic NACK is received.
	OnNACK(*HandlerOnNACKCtx)
}

// HandlerOnFullIntraRequestCtx is the context of OnFullIntraRequest.
type HandlerOnFullIntraRequestCtx struct {
	Participant *participant.Participant
	Packet      *rtcp.FullIntraRequest
}

// HandlerOnFullIntraRequest can be implemented by a Handler.
type HandlerOnFullIntraRequest interface {
	// called when a full intra request is received.
	OnFullIntraRequest(*HandlerOnFullIntraRequestCtx)
}

// PacketDirection is the direction of a traced packet.
type PacketDirection int

// directions.
const (
	PacketDirectionIn PacketDirection = iota
	PacketDirectionOut
)

// HandlerOnPacketCtx is the context of OnPacket.
type HandlerOnPacketCtx struct {
	Direction PacketDirection
	RTCP      bool
	Payload   []byte
	Address   string
}

// HandlerOnPacket can be implemented by a Handler.
type HandlerOnPacket interface {
	// called for every sent or received datagram. Used for debugging.
	OnPacket(*HandlerOnPacketCtx)
}

// HandlerOnImportantEventCtx is the context of OnImportantEvent.
type HandlerOnImportantEventCtx struct {
	Description string
	Error       error
}

// HandlerOnImportantEvent can be implemented by a Handler.
type HandlerOnImportantEvent interface {
	// called on SSRC conflicts and on session termination.
	OnImportantEvent(*HandlerOnImportantEventCtx)
}
