package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"
)

// SendConfig contains the parameters of generated frames.
type SendConfig struct {
	FrameInterval   time.Duration `yaml:"frame_interval"`
	FrameSize       int           `yaml:"frame_size"`
	PacketsPerFrame int           `yaml:"packets_per_frame"`
}

// Config is the configuration of the peer.
type Config struct {
	LogLevel       string `yaml:"log_level"`
	Development    bool   `yaml:"development"`
	MetricsAddress string `yaml:"metrics_address"`

	RTPAddress         string `yaml:"rtp_address"`
	RTCPAddress        string `yaml:"rtcp_address"`
	Multicast          bool   `yaml:"multicast"`
	MulticastInterface string `yaml:"multicast_interface"`
	UDPReadBufferSize  int    `yaml:"udp_read_buffer_size"`

	PayloadType    uint8  `yaml:"payload_type"`
	EncodingName   string `yaml:"encoding_name"`
	ClockRate      int    `yaml:"clock_rate"`
	Bandwidth      int    `yaml:"bandwidth"`
	BufferBehavior *int   `yaml:"buffer_behavior,omitempty"`

	CNAME string `yaml:"cname"`
	Name  string `yaml:"name"`
	Tool  string `yaml:"tool"`

	// RTP addresses of remote peers. Their RTCP port is the RTP one incremented by one.
	Peers []string `yaml:"peers"`
	// SDP file that declares remote peers.
	RemoteSDP string `yaml:"remote_sdp"`
	// SDP file where the description of the local peer is written.
	LocalSDP string `yaml:"local_sdp"`

	Send SendConfig `yaml:"send"`
}

// DefaultConfig contains the default values of the configuration.
var DefaultConfig = Config{
	LogLevel:     "info",
	RTPAddress:   ":5004",
	PayloadType:  96,
	EncodingName: "X-GORTP",
	ClockRate:    90000,
	Tool:         "gortp-peer",
	Send: SendConfig{
		FrameInterval:   40 * time.Millisecond,
		FrameSize:       4000,
		PacketsPerFrame: 4,
	},
}

var configFlags = []cli.Flag{
	&cli.StringFlag{
		Name:  "config",
		Usage: "path to the YAML configuration file",
	},
	&cli.StringFlag{
		Name:    "config-body",
		Usage:   "configuration in YAML, typically passed in as an environment var in a container",
		EnvVars: []string{"GORTP_CONFIG"},
	},
	&cli.StringFlag{
		Name:  "log-level",
		Usage: "log level (debug, info, warn, error)",
	},
	&cli.BoolFlag{
		Name:  "dev",
		Usage: "use the development logger",
	},
	&cli.StringFlag{
		Name:  "metrics-address",
		Usage: "address of the prometheus endpoint, disabled when empty",
	},
	&cli.StringFlag{
		Name:  "rtp-address",
		Usage: "address of the RTP listener, or multicast group",
	},
	&cli.StringFlag{
		Name:  "rtcp-address",
		Usage: "address of the RTCP listener",
	},
	&cli.BoolFlag{
		Name:  "multicast",
		Usage: "enable multicast mode",
	},
	&cli.StringFlag{
		Name:  "multicast-interface",
		Usage: "name of the interface used to join multicast groups",
	},
	&cli.UintFlag{
		Name:  "payload-type",
		Usage: "payload type of sent packets",
	},
	&cli.IntFlag{
		Name:  "clock-rate",
		Usage: "clock rate of RTP timestamps",
	},
	&cli.IntFlag{
		Name:  "bandwidth",
		Usage: "session bandwidth, in bytes per second",
	},
	&cli.StringFlag{
		Name:  "cname",
		Usage: "canonical name of the local participant",
	},
	&cli.StringSliceFlag{
		Name:  "peer",
		Usage: "RTP address of a remote peer, use flag multiple times to declare multiple peers",
	},
	&cli.StringFlag{
		Name:  "remote-sdp",
		Usage: "path to a SDP file that declares remote peers",
	},
	&cli.StringFlag{
		Name:  "local-sdp",
		Usage: "path where the SDP of the local peer is written",
	},
}

var sendFlags = []cli.Flag{
	&cli.DurationFlag{
		Name:  "frame-interval",
		Usage: "interval between generated frames",
	},
	&cli.IntFlag{
		Name:  "frame-size",
		Usage: "size of generated frames, in bytes",
	},
	&cli.IntFlag{
		Name:  "packets-per-frame",
		Usage: "number of packets of each frame",
	},
}

func getConfigString(configFile string, inConfigBody string) (string, error) {
	if inConfigBody != "" || configFile == "" {
		return inConfigBody, nil
	}

	outConfigBody, err := os.ReadFile(configFile)
	if err != nil {
		return "", err
	}

	return string(outConfigBody), nil
}

// NewConfig decodes the configuration and applies the flags that have been set.
func NewConfig(confString string, c *cli.Context) (*Config, error) {
	conf := DefaultConfig

	if confString != "" {
		decoder := yaml.NewDecoder(strings.NewReader(confString))
		decoder.KnownFields(true)
		err := decoder.Decode(&conf)
		if err != nil {
			return nil, fmt.Errorf("could not parse config: %w", err)
		}
	}

	if c != nil {
		conf.applyFlags(c)
	}

	err := conf.validate()
	if err != nil {
		return nil, err
	}

	return &conf, nil
}

func (conf *Config) applyFlags(c *cli.Context) {
	if c.IsSet("log-level") {
		conf.LogLevel = c.String("log-level")
	}
	if c.IsSet("dev") {
		conf.Development = c.Bool("dev")
	}
	if c.IsSet("metrics-address") {
		conf.MetricsAddress = c.String("metrics-address")
	}
	if c.IsSet("rtp-address") {
		conf.RTPAddress = c.String("rtp-address")
	}
	if c.IsSet("rtcp-address") {
		conf.RTCPAddress = c.String("rtcp-address")
	}
	if c.IsSet("multicast") {
		conf.Multicast = c.Bool("multicast")
	}
	if c.IsSet("multicast-interface") {
		conf.MulticastInterface = c.String("multicast-interface")
	}
	if c.IsSet("payload-type") {
		conf.PayloadType = uint8(c.Uint("payload-type"))
	}
	if c.IsSet("clock-rate") {
		conf.ClockRate = c.Int("clock-rate")
	}
	if c.IsSet("bandwidth") {
		conf.Bandwidth = c.Int("bandwidth")
	}
	if c.IsSet("cname") {
		conf.CNAME = c.String("cname")
	}
	if c.IsSet("peer") {
		conf.Peers = c.StringSlice("peer")
	}
	if c.IsSet("remote-sdp") {
		conf.RemoteSDP = c.String("remote-sdp")
	}
	if c.IsSet("local-sdp") {
		conf.LocalSDP = c.String("local-sdp")
	}
	if c.IsSet("frame-interval") {
		conf.Send.FrameInterval = c.Duration("frame-interval")
	}
	if c.IsSet("frame-size") {
		conf.Send.FrameSize = c.Int("frame-size")
	}
	if c.IsSet("packets-per-frame") {
		conf.Send.PacketsPerFrame = c.Int("packets-per-frame")
	}
}

func (conf *Config) validate() error {
	if conf.PayloadType > 127 {
		return fmt.Errorf("invalid payload type: %d", conf.PayloadType)
	}
	if conf.Send.PacketsPerFrame < 1 {
		return fmt.Errorf("invalid packets per frame: %d", conf.Send.PacketsPerFrame)
	}
	if conf.Send.FrameSize < conf.Send.PacketsPerFrame {
		return fmt.Errorf("frame size must be at least %d bytes", conf.Send.PacketsPerFrame)
	}
	if conf.Send.FrameInterval <= 0 {
		return fmt.Errorf("invalid frame interval: %v", conf.Send.FrameInterval)
	}
	return nil
}
