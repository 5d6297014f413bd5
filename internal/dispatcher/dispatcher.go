// Package dispatcher classifies each packet-in by L4 port and routes it to
// the RTMP handler, the notification rewriter, or the plain forwarder
// (component G).
package dispatcher

import (
	"net"

	"github.com/sdnproj/p2p-controller/internal/brain"
	"github.com/sdnproj/p2p-controller/internal/config"
)

// PacketClass tags a packet-in with the routing decision the dispatcher
// made, constructed once from the L4 ports and brain terminal state per
// the Design Note favoring a tagged variant over ad hoc dynamic dispatch.
type PacketClass int

const (
	ClassRTMPControl PacketClass = iota
	ClassNotifyHeartbeat
	ClassOther
)

func (c PacketClass) String() string {
	switch c {
	case ClassRTMPControl:
		return "rtmp_control"
	case ClassNotifyHeartbeat:
		return "notify_heartbeat"
	default:
		return "other"
	}
}

// PacketIn is the subset of a southbound packet-in event the dispatcher
// needs to classify and route it.
type PacketIn struct {
	SrcMAC      net.HardwareAddr
	DstMAC      net.HardwareAddr
	EtherType   uint16
	IngressPort uint32
	SrcTCPPort  uint16
	DstTCPPort  uint16
	HasTCP      bool
}

// Classify implements the routing steps of §4.7: route by L4 port and brain
// terminal state. It does not touch the MAC table; the southbound session
// learns the source MAC before calling Classify (and the forwarder learns
// it again for the packets it handles).
func Classify(b *brain.SwitchBrain, cfg *config.Config, p PacketIn) PacketClass {
	if !p.HasTCP {
		return ClassOther
	}
	rtmpActive := !b.BypassActive()
	if rtmpActive && (p.SrcTCPPort == cfg.RTMPPort || p.DstTCPPort == cfg.RTMPPort) {
		return ClassRTMPControl
	}
	if p.SrcTCPPort == cfg.NotifyPort || p.DstTCPPort == cfg.NotifyPort {
		return ClassNotifyHeartbeat
	}
	return ClassOther
}
