// Package config holds the controller's wire constants and runtime
// configuration, mirroring the teacher's server.Config pattern: a plain
// struct plus an applyDefaults method, constructed from CLI flags.
package config

import "time"

// Wire constants. These agree byte-for-byte with the host-visible side
// channel contract the rewriter and peer hosts share.
const (
	// DefaultRTMPPort is the L4 port carrying RTMP publish/play traffic.
	DefaultRTMPPort = 1935
	// DefaultStreamKey is the substring the classifier matches in RTMP
	// command payloads to recognize this experiment's flows.
	DefaultStreamKey = "6829proj"
	// DefaultNotifyPort carries the service's heartbeat side channel.
	DefaultNotifyPort = 42857
	// DefaultPeerVideoPort is the port a directly-connected broadcaster
	// pushes to and a viewer listens on once P2P is enabled.
	DefaultPeerVideoPort = 2000

	// HeartbeatPayloadLength is the fixed length of every heartbeat /
	// rewritten-notification record on the notify port.
	HeartbeatPayloadLength = 15
	// HeartbeatPad is the right-padding character filling unused bytes.
	HeartbeatPad = '|'
	// HeartbeatSubstring is the literal marker identifying a keep-alive
	// (as opposed to a rewritten peer-address notification).
	HeartbeatSubstring = "heartbeat"
)

// Forwarder timeouts, §4.2.
const (
	PlainSamePortDropIdle  = 10 * time.Second
	PlainSamePortDropHard  = 10 * time.Second
	PlainInstallIdle       = 10 * time.Second
	PlainInstallHard       = 30 * time.Second
)

// Config gathers the controller's runtime configuration. Zero-value fields
// are filled in by applyDefaults.
type Config struct {
	// ListenAddr is the southbound session's listen address.
	ListenAddr string
	// RTMPPort is the L4 port the RTMP handler watches.
	RTMPPort uint16
	// StreamKey is the substring chunk.IsPlayRequest /
	// IsPublishRequest match against, configurable per deployment.
	StreamKey string
	// NotifyPort is the L4 port the notification rewriter watches.
	NotifyPort uint16
	// PeerVideoPort documents the host-side peer video contract; the
	// controller never dials it directly but the rewriter's payload must
	// agree with it.
	PeerVideoPort uint16
}

// applyDefaults fills zero-valued fields with the package defaults.
func (c *Config) applyDefaults() {
	if c.ListenAddr == "" {
		c.ListenAddr = ":6653"
	}
	if c.RTMPPort == 0 {
		c.RTMPPort = DefaultRTMPPort
	}
	if c.StreamKey == "" {
		c.StreamKey = DefaultStreamKey
	}
	if c.NotifyPort == 0 {
		c.NotifyPort = DefaultNotifyPort
	}
	if c.PeerVideoPort == 0 {
		c.PeerVideoPort = DefaultPeerVideoPort
	}
}

// New builds a Config from the given overrides, applying defaults for
// anything left zero-valued.
func New(listenAddr, streamKey string, rtmpPort, notifyPort, peerVideoPort uint16) *Config {
	c := &Config{
		ListenAddr:    listenAddr,
		RTMPPort:      rtmpPort,
		StreamKey:     streamKey,
		NotifyPort:    notifyPort,
		PeerVideoPort: peerVideoPort,
	}
	c.applyDefaults()
	return c
}
