package rtcpsched

import (
	"testing"
	"time"

	"github.com/pion/rtcp"
	"github.com/stretchr/testify/require"
)

func TestIntervalStates(t *testing.T) {
	s := &Scheduler{}
	s.Initialize()
	require.Equal(t, StateInitial, s.State())

	v := s.NextInterval(2, 1, true)
	require.GreaterOrEqual(t, v, 2500*time.Millisecond)
	require.Less(t, v, 3500*time.Millisecond)
	require.Equal(t, StateSteady, s.State())

	for i := 0; i < 100; i++ {
		v = s.NextInterval(2, 1, true)
		require.GreaterOrEqual(t, v, 5*time.Second)
		require.Less(t, v, 6*time.Second)
	}

	// no bandwidth
	v = s.NextInterval(20, 1, true)
	require.Equal(t, StateSteady, s.State())
	require.GreaterOrEqual(t, v, 5*time.Second)

	s.Reset()
	require.Equal(t, StateInitial, s.State())
}

func TestIntervalScaledFloor(t *testing.T) {
	s := &Scheduler{
		Bandwidth:     4000,
		RTCPBandwidth: 213,
	}
	s.Initialize()
	s.UpdateAvgPacketSize(100)
	s.NextInterval(10, 5, false)

	aboveFloor := false

	for i := 0; i < 10000; i++ {
		v := s.NextInterval(10, 5, false)
		require.Equal(t, StateScaled, s.State())
		require.GreaterOrEqual(t, v, s.MinInterval)
		if v > s.MinInterval {
			aboveFloor = true
		}
	}

	require.True(t, aboveFloor)
}

func TestIntervalScaledSenders(t *testing.T) {
	s := &Scheduler{
		Bandwidth:   1000,
		MinInterval: time.Millisecond,
	}
	s.Initialize()
	s.UpdateAvgPacketSize(72)
	s.NextInterval(100, 1, true)

	// senders share 25% of 50 bytes/s: 100 * 1 / 12.5 = 8s before randomization
	base := float64(8 * time.Second)
	for i := 0; i < 1000; i++ {
		v := s.NextInterval(100, 1, true)
		require.GreaterOrEqual(t, v, time.Duration(base*0.5/compensation))
		require.Less(t, v, time.Duration(base*1.5/compensation))
	}
}

func TestAvgPacketSize(t *testing.T) {
	s := &Scheduler{}
	s.Initialize()

	s.UpdateAvgPacketSize(100)
	require.Equal(t, float64(128), s.AvgPacketSize())

	s.UpdateAvgPacketSize(228)
	require.Equal(t, float64(136), s.AvgPacketSize())
}

func TestRequestFeedback(t *testing.T) {
	s := &Scheduler{}
	s.Initialize()

	require.Equal(t, FeedbackImmediate, s.RequestFeedback(2))
	require.Equal(t, FeedbackEarly, s.RequestFeedback(5))
	require.Equal(t, FeedbackRegular, s.RequestFeedback(5))

	s.NextInterval(5, 1, false)
	require.Equal(t, FeedbackEarly, s.RequestFeedback(5))

	s.NextInterval(5, 1, false)
	require.Equal(t, FeedbackRegular, s.RequestFeedback(10))
}

func TestFeedbackQueue(t *testing.T) {
	now := time.Date(2008, 5, 20, 22, 15, 20, 0, time.UTC)

	s := &Scheduler{
		TimeNow: func() time.Time {
			return now
		},
	}
	s.Initialize()

	require.True(t, s.EnqueueFeedback(1, &rtcp.PictureLossIndication{SenderSSRC: 9, MediaSSRC: 1}))
	require.False(t, s.EnqueueFeedback(1, &rtcp.PictureLossIndication{SenderSSRC: 9, MediaSSRC: 1}))
	require.True(t, s.EnqueueFeedback(2, &rtcp.PictureLossIndication{SenderSSRC: 9, MediaSSRC: 2}))
	require.True(t, s.HasPending(1))

	require.Equal(t, []rtcp.Packet{
		&rtcp.PictureLossIndication{SenderSSRC: 9, MediaSSRC: 1},
	}, s.DequeueFeedback(1))
	require.False(t, s.HasPending(1))
	require.Nil(t, s.DequeueFeedback(1))

	now = now.Add(2 * time.Second)
	require.Nil(t, s.DequeueFeedback(2))
}

func TestFeedbackSuppression(t *testing.T) {
	s := &Scheduler{}
	s.Initialize()

	s.ObserveFeedback(&rtcp.PictureLossIndication{SenderSSRC: 5, MediaSSRC: 1})
	require.False(t, s.EnqueueFeedback(1, &rtcp.PictureLossIndication{SenderSSRC: 9, MediaSSRC: 1}))
	require.True(t, s.EnqueueFeedback(1, &rtcp.SliceLossIndication{
		SenderSSRC: 9,
		MediaSSRC:  1,
		SLI:        []rtcp.SLIEntry{{First: 1, Number: 1}},
	}))
}

func TestAppQueue(t *testing.T) {
	now := time.Date(2008, 5, 20, 22, 15, 20, 0, time.UTC)

	s := &Scheduler{
		TimeNow: func() time.Time {
			return now
		},
	}
	s.Initialize()

	app := &rtcp.ApplicationDefined{SubType: 1, SSRC: 9, Name: "TEST", Data: []byte{1, 2, 3, 4}}

	s.EnqueueApp(1, app)
	require.True(t, s.HasPending(1))

	now = now.Add(10 * time.Second)
	require.Equal(t, []rtcp.Packet{app}, s.DequeueApps(1))

	s.EnqueueApp(1, app)
	now = now.Add(31 * time.Second)
	require.Nil(t, s.DequeueApps(1))

	s.EnqueueApp(3, app)
	require.True(t, s.EnqueueFeedback(4, &rtcp.PictureLossIndication{SenderSSRC: 9, MediaSSRC: 4}))
	require.Len(t, s.DequeueAll(), 2)
	require.False(t, s.HasPending(3))
}
