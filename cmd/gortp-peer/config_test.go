package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"
)

func TestNewConfigDefaults(t *testing.T) {
	conf, err := NewConfig("", nil)
	require.NoError(t, err)
	require.Equal(t, DefaultConfig, *conf)
}

func TestNewConfigFile(t *testing.T) {
	conf, err := NewConfig(
		"rtp_address: 239.0.0.1:6000\n"+
			"multicast: true\n"+
			"payload_type: 100\n"+
			"buffer_behavior: 0\n"+
			"peers:\n"+
			"  - 192.168.1.2:5004\n"+
			"send:\n"+
			"  frame_interval: 100ms\n",
		nil)
	require.NoError(t, err)

	require.Equal(t, "239.0.0.1:6000", conf.RTPAddress)
	require.True(t, conf.Multicast)
	require.Equal(t, uint8(100), conf.PayloadType)
	require.NotNil(t, conf.BufferBehavior)
	require.Equal(t, 0, *conf.BufferBehavior)
	require.Equal(t, []string{"192.168.1.2:5004"}, conf.Peers)
	require.Equal(t, 100*time.Millisecond, conf.Send.FrameInterval)
	require.Equal(t, DefaultConfig.Send.FrameSize, conf.Send.FrameSize)
	require.Equal(t, DefaultConfig.ClockRate, conf.ClockRate)
}

func TestNewConfigErrors(t *testing.T) {
	for _, ca := range []struct {
		name string
		conf string
		err  string
	}{
		{
			"unknown field",
			"rtp_port: 5004\n",
			"field rtp_port not found",
		},
		{
			"payload type",
			"payload_type: 128\n",
			"invalid payload type: 128",
		},
		{
			"packets per frame",
			"send:\n  packets_per_frame: 0\n",
			"invalid packets per frame: 0",
		},
		{
			"frame size",
			"send:\n  frame_size: 2\n",
			"frame size must be at least 4 bytes",
		},
	} {
		t.Run(ca.name, func(t *testing.T) {
			_, err := NewConfig(ca.conf, nil)
			require.ErrorContains(t, err, ca.err)
		})
	}
}

func TestNewConfigFlagsOverrideFile(t *testing.T) {
	var conf *Config

	app := &cli.App{
		Flags: configFlags,
		Commands: []*cli.Command{{
			Name:  "send",
			Flags: sendFlags,
			Action: func(c *cli.Context) error {
				var err error
				conf, err = NewConfig("payload_type: 100\nclock_rate: 8000\n", c)
				return err
			},
		}},
	}

	err := app.Run([]string{
		"gortp-peer",
		"--payload-type", "110",
		"--peer", "10.0.0.1:5004",
		"--peer", "10.0.0.2:5004",
		"send",
		"--packets-per-frame", "2",
	})
	require.NoError(t, err)

	require.Equal(t, uint8(110), conf.PayloadType)
	require.Equal(t, 8000, conf.ClockRate)
	require.Equal(t, []string{"10.0.0.1:5004", "10.0.0.2:5004"}, conf.Peers)
	require.Equal(t, 2, conf.Send.PacketsPerFrame)
}
