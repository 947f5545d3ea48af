// Command gortp-peer is a RTP peer that sends generated frames or prints received ones.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/urfave/cli/v2"

	"github.com/bluenviron/gortp"
	"github.com/bluenviron/gortp/pkg/liberrors"
)

func main() {
	app := &cli.App{
		Name:  "gortp-peer",
		Usage: "RTP/RTCP peer",
		Flags: configFlags,
		Commands: []*cli.Command{
			{
				Name:  "send",
				Usage: "send generated frames to the declared peers and print received ones",
				Flags: sendFlags,
				Action: func(c *cli.Context) error {
					return run(c, true)
				},
			},
			{
				Name:  "receive",
				Usage: "print received frames",
				Action: func(c *cli.Context) error {
					return run(c, false)
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func getConfig(c *cli.Context) (*Config, error) {
	confString, err := getConfigString(c.String("config"), c.String("config-body"))
	if err != nil {
		return nil, err
	}

	return NewConfig(confString, c)
}

func startMetrics(address string) (*gortp.Metrics, error) {
	m := &gortp.Metrics{
		Registerer: prometheus.DefaultRegisterer,
	}
	err := m.Initialize()
	if err != nil {
		return nil, err
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	go http.ListenAndServe(address, mux) //nolint:errcheck,gosec

	return m, nil
}

func run(c *cli.Context, send bool) error {
	conf, err := getConfig(c)
	if err != nil {
		return err
	}

	zl, err := newZapLogger(conf.LogLevel, conf.Development)
	if err != nil {
		return err
	}
	defer zl.Sync() //nolint:errcheck

	log := zl.Sugar()

	var m *gortp.Metrics
	if conf.MetricsAddress != "" {
		m, err = startMetrics(conf.MetricsAddress)
		if err != nil {
			return err
		}
	}

	peers, err := remoteParticipants(conf)
	if err != nil {
		return err
	}

	s, err := newSession(conf, &loggerFactory{logger: zl}, m)
	if err != nil {
		return err
	}

	err = s.Initialize()
	if err != nil {
		return err
	}
	defer s.Close()

	for _, p := range peers {
		err = s.AddParticipant(p)
		if err != nil {
			return err
		}
	}

	err = s.Register(&peerHandler{
		log:             log,
		packetsPerFrame: conf.Send.PacketsPerFrame,
	})
	if err != nil {
		return err
	}

	log.Infow("session started",
		"ssrc", s.SSRC(),
		"rtp_port", s.RTPPort(),
		"rtcp_port", s.RTCPPort())

	if conf.LocalSDP != "" {
		err = writeLocalDescription(conf, s)
		if err != nil {
			return err
		}
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if send {
		go runSender(ctx, s, conf.Send, log)
	}

	waitErr := make(chan error, 1)
	go func() {
		waitErr <- s.Wait()
	}()

	select {
	case <-ctx.Done():
		s.Close()
		err = <-waitErr

	case err = <-waitErr:
	}

	var eterm liberrors.ErrSessionTerminated
	if errors.As(err, &eterm) {
		return nil
	}
	return err
}
