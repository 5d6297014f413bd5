// Package rtmphandler implements the RTMP handler (component E): for
// packets on the RTMP port while a switch's brain has not yet reached a
// terminal P2P decision, it parses the payload via internal/rtmp/chunk,
// updates the brain's role/phase state, and always forwards the original
// packet — it never installs a flow-mod, leaving that to the forwarder
// once the brain goes terminal.
package rtmphandler

import (
	"net"

	"github.com/sdnproj/p2p-controller/internal/brain"
	"github.com/sdnproj/p2p-controller/internal/config"
	"github.com/sdnproj/p2p-controller/internal/logger"
	"github.com/sdnproj/p2p-controller/internal/rtmp/chunk"
)

// Frame is the addressing context of the packet-in carrying the RTMP
// payload.
type Frame struct {
	SrcMAC      net.HardwareAddr
	DstMAC      net.HardwareAddr
	SrcIP       net.IP
	DstIP       net.IP
	IngressPort uint32
	SrcTCPPort  uint16
	DstTCPPort  uint16
}

// ForwardDirective says how the original packet should be delivered. The
// RTMP handler only ever asks for a packet-out: to the learned egress port
// if known, flooded otherwise. It never asks for a flow-mod.
type ForwardDirective struct {
	Flood   bool
	OutPort uint32
}

func resolveForward(b *brain.SwitchBrain, fr Frame) ForwardDirective {
	if port, ok := b.PortFor(fr.DstMAC); ok {
		return ForwardDirective{OutPort: port}
	}
	return ForwardDirective{Flood: true}
}

// Handle implements §4.5 steps 1-8. state is the caller's ChunkState
// (FMT2/3 header inheritance survives across packets); the southbound
// session keeps one per switch connection, shared by every RTMP flow on
// that switch.
func Handle(b *brain.SwitchBrain, state *chunk.ChunkState, cfg *config.Config, fr Frame, payload []byte) ForwardDirective {
	fwd := resolveForward(b, fr)

	if len(payload) == 0 {
		return fwd
	}
	if len(payload) == 88 || len(payload) == 89 {
		return fwd // RTMP handshake bytes, not chunked messages.
	}
	if len(payload) == 12 {
		b.SetPrepend(payload)
		return fwd
	}

	full := payload
	if pre := b.TakePrepend(); pre != nil {
		full = append(append([]byte(nil), pre...), payload...)
	}

	msgs, _ := chunk.ParseMessages(full, state)
	for _, m := range msgs {
		if !m.Parsed {
			// Any unparsed message in the batch means the whole packet is
			// forwarded unchanged and no brain state is mutated.
			return fwd
		}
	}

	for _, m := range msgs {
		applyClassifier(b, cfg, fr, m)
	}

	evaluateDecisionRule(b)
	return fwd
}

func evaluateDecisionRule(b *brain.SwitchBrain) {
	enable, setOff := b.EvaluateDecisionRule()
	log := logger.WithComponent(logger.WithSwitch(logger.Logger(), b.DatapathID), "brain")
	if enable {
		log.Info("entering P2P stage")
	}
	if setOff {
		log.Info("P2P is set to off")
	}
}

func applyClassifier(b *brain.SwitchBrain, cfg *config.Config, fr Frame, m chunk.Message) {
	log := logger.WithComponent(logger.WithSwitch(logger.Logger(), b.DatapathID), "rtmphandler")

	switch {
	case chunk.IsPlayRequest(m, cfg.StreamKey):
		handlePlayRequest(b, cfg, fr, log)
	case chunk.IsPublishRequest(m, cfg.StreamKey):
		handlePublishRequest(b, cfg, fr, log)
	case chunk.IsPlayStart(m):
		handlePlayStart(b, cfg, fr, log)
	case chunk.IsPublishStart(m):
		handlePublishStart(b, cfg, fr, log)
	case chunk.IsStreamBegin(m):
		handleStreamBegin(b, log)
	}
}
