// Package rewriter implements the notification channel rewriter
// (component F): it intercepts heartbeat traffic on the notify port and,
// once a switch's brain has P2P enabled, rewrites the payload in flight to
// deliver each endpoint its peer's address.
package rewriter

import (
	"bytes"
	"fmt"
	"net"

	"github.com/sdnproj/p2p-controller/internal/brain"
	"github.com/sdnproj/p2p-controller/internal/config"
)

// Packet is the notify-port context the rewriter needs: addressing plus
// the original TCP payload.
type Packet struct {
	SrcIP      net.IP
	DstIP      net.IP
	SrcTCPPort uint16
	DstTCPPort uint16
	Payload    []byte
}

// Outcome tells the caller what to do with a notify-port packet-in.
type Outcome struct {
	// Rewritten is true when the payload was replaced and a packet-out
	// (with the new payload) plus a drop flow-mod should be emitted.
	Rewritten bool
	// NewPayload is the 15-byte peer-address payload when Rewritten.
	NewPayload []byte
	// InstallDropRule reports that a match-only, no-action flow-mod
	// should be installed so future matching heartbeats are dropped in
	// hardware. The rewriter does not build the match itself.
	InstallDropRule bool
}

// pad15 left-justifies s in a 15-byte field, right-padded with '|'.
func pad15(s string) []byte {
	buf := make([]byte, config.HeartbeatPayloadLength)
	for i := range buf {
		buf[i] = config.HeartbeatPad
	}
	copy(buf, s)
	return buf
}

// Handle implements §4.6. The MAC table update (always performed on a
// notify-port packet-in) is the caller's responsibility via the southbound
// session's learning step; Handle only decides the rewrite.
func Handle(b *brain.SwitchBrain, cfg *config.Config, pkt Packet) Outcome {
	if !b.Phase().P2PEnabled || pkt.SrcTCPPort != cfg.NotifyPort {
		return Outcome{}
	}

	viewerIP := b.ViewerIP()
	broadcasterIP := b.BroadcasterIP()

	switch {
	case viewerIP != nil && pkt.DstIP.Equal(viewerIP):
		return Outcome{Rewritten: true, NewPayload: pad15(broadcasterIP.String()), InstallDropRule: true}
	case broadcasterIP != nil && pkt.DstIP.Equal(broadcasterIP):
		return Outcome{Rewritten: true, NewPayload: pad15(viewerIP.String()), InstallDropRule: true}
	default:
		return Outcome{}
	}
}

// IsHeartbeat reports whether payload is a genuine keep-alive (carries the
// reserved substring) as opposed to an already-rewritten peer-address
// notification. Exposed for host-side test doubles and for symmetry with
// the chunk package's classifier predicates.
func IsHeartbeat(payload []byte) bool {
	return bytes.Contains(payload, []byte(config.HeartbeatSubstring))
}

// ValidateRewritten is a test/debugging helper asserting the two
// properties §8 requires of a rewritten payload: exact length, and the
// absence of the heartbeat marker.
func ValidateRewritten(payload []byte) error {
	if len(payload) != config.HeartbeatPayloadLength {
		return fmt.Errorf("rewritten payload length = %d, want %d", len(payload), config.HeartbeatPayloadLength)
	}
	if IsHeartbeat(payload) {
		return fmt.Errorf("rewritten payload must not contain the heartbeat marker")
	}
	return nil
}
