package main

import (
	"github.com/spf13/pflag"

	"github.com/sdnproj/p2p-controller/internal/config"
)

// runFlags holds the user-supplied flag values prior to translation into
// config.Config, mirroring the separation between CLI surface and the
// southbound session's own configuration type.
type runFlags struct {
	listenAddr    string
	streamKey     string
	rtmpPort      uint16
	notifyPort    uint16
	peerVideoPort uint16
	logLevel      string
}

// registerRunFlags wires runFlags fields onto flags, taking *pflag.FlagSet
// directly (cobra's Command.Flags() returns one) rather than the stdlib
// flag package the teacher used.
func registerRunFlags(flags *pflag.FlagSet, f *runFlags) {
	flags.StringVar(&f.listenAddr, "listen", ":6653", "TCP listen address for switch sessions")
	flags.StringVar(&f.streamKey, "stream-key", config.DefaultStreamKey, "RTMP stream key the experiment watches for")
	flags.Uint16Var(&f.rtmpPort, "rtmp-port", config.DefaultRTMPPort, "RTMP service TCP port")
	flags.Uint16Var(&f.notifyPort, "notify-port", config.DefaultNotifyPort, "Heartbeat notification TCP port")
	flags.Uint16Var(&f.peerVideoPort, "peer-video-port", config.DefaultPeerVideoPort, "Peer-to-peer video TCP port")
	flags.StringVar(&f.logLevel, "log-level", "info", "Log level: debug|info|warn|error")
}

func (f *runFlags) toConfig() *config.Config {
	return config.New(f.listenAddr, f.streamKey, f.rtmpPort, f.notifyPort, f.peerVideoPort)
}
