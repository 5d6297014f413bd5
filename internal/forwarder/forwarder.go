// Package forwarder implements the MAC-learning L2 forwarder (components B
// and C): flood/drop/install decisions built on a SwitchBrain's MAC table.
// Two flavors share the same decision shape — Plain, the conventional
// bridge behavior with link-local filtering and timed rules, and Bypass,
// used once a flow has been steered onto a persistent path and must not
// expire or be subject to bridge suppression.
package forwarder

import (
	"fmt"
	"net"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/sdnproj/p2p-controller/internal/brain"
	"github.com/sdnproj/p2p-controller/internal/config"
)

const lldpEtherType = 0x88CC

// Action is the forwarding directive a Decision carries.
type Action int

const (
	ActionDrop Action = iota
	ActionFlood
	ActionInstall
)

// Decision is what the forwarder wants the southbound session to do:
// install a rule (or not), and whether/how to deliver the triggering
// packet.
type Decision struct {
	Action Action
	// OutPort is the single egress port for ActionInstall; unused otherwise.
	OutPort uint32
	// IdleTimeout/HardTimeout are zero for rules that must not expire.
	IdleTimeout time.Duration
	HardTimeout time.Duration
	// EmitPacketOut reports whether the triggering packet should still be
	// delivered (it is not, for a silent link-local drop).
	EmitPacketOut bool
	// BufferPacketOut reports whether the packet delivery should be
	// bundled into the flow-mod's buffer id rather than sent as a
	// separate packet-out.
	BufferPacketOut bool
	// AlreadyInstalled reports that an equivalent rule was installed
	// within its timeout window; the caller should still deliver the
	// packet but skip re-emitting the flow-mod.
	AlreadyInstalled bool
}

// Frame is the L2 addressing context a packet-in carries, the minimum the
// forwarder needs to make a decision.
type Frame struct {
	SrcMAC      net.HardwareAddr
	DstMAC      net.HardwareAddr
	EtherType   uint16
	IngressPort uint32
}

// isLinkLocal reports LLDP traffic or destinations in the 802.1D
// bridge-filtered group address range (01:80:C2:00:00:00-0F).
func (f Frame) isLinkLocal() bool {
	if f.EtherType == lldpEtherType {
		return true
	}
	d := f.DstMAC
	if len(d) != 6 {
		return false
	}
	return d[0] == 0x01 && d[1] == 0x80 && d[2] == 0xC2 && d[3] == 0x00 && d[4] == 0x00 && d[5] <= 0x0F
}

// isMulticast reports whether the destination address has the I/G bit set.
func (f Frame) isMulticast() bool {
	if len(f.DstMAC) != 6 {
		return false
	}
	return f.DstMAC[0]&0x01 == 1
}

// Forwarder holds the flow-install bookkeeping shared by both flavors: a
// TTL cache answering "is an equivalent rule already installed" so the
// caller never re-emits a duplicate flow-mod inside its own timeout
// window.
type Forwarder struct {
	installed *cache.Cache
}

// New returns a Forwarder with an empty install cache.
func New() *Forwarder {
	return &Forwarder{installed: cache.New(config.PlainInstallHard, 2*config.PlainInstallHard)}
}

func flowKey(datapathID uint64, ingressPort uint32, dst net.HardwareAddr) string {
	return fmt.Sprintf("%016x:%d:%s", datapathID, ingressPort, dst.String())
}

// Plain implements §4.2's main decision tree: link-local and bridge-filtered
// frames are dropped, multicast and unknown destinations flood, a
// same-port egress is dropped with a short timeout, and everything else
// gets an exact-match install with idle/hard timeouts plus the triggering
// packet buffered into the flow-mod.
func (f *Forwarder) Plain(b *brain.SwitchBrain, fr Frame) Decision {
	b.LearnMAC(fr.SrcMAC, fr.IngressPort)

	if fr.isLinkLocal() {
		return Decision{Action: ActionDrop}
	}
	if fr.isMulticast() {
		return Decision{Action: ActionFlood, EmitPacketOut: true}
	}
	port, known := b.PortFor(fr.DstMAC)
	if !known {
		return Decision{Action: ActionFlood, EmitPacketOut: true}
	}
	if port == fr.IngressPort {
		return Decision{
			Action:      ActionDrop,
			IdleTimeout: config.PlainSamePortDropIdle,
			HardTimeout: config.PlainSamePortDropHard,
		}
	}

	key := flowKey(b.DatapathID, fr.IngressPort, fr.DstMAC)
	if _, found := f.installed.Get(key); found {
		return Decision{Action: ActionInstall, OutPort: port, EmitPacketOut: true, AlreadyInstalled: true}
	}
	f.installed.Set(key, struct{}{}, config.PlainInstallHard)
	return Decision{
		Action:          ActionInstall,
		OutPort:         port,
		IdleTimeout:     config.PlainInstallIdle,
		HardTimeout:     config.PlainInstallHard,
		EmitPacketOut:   true,
		BufferPacketOut: true,
	}
}

// Bypass implements the core's persistent-path variant: no link-local or
// multicast suppression (those checks belong to the bridge role, not a
// steered flow), no rule timeouts since the experiment's streams must
// persist, and the triggering packet is always emitted as its own
// packet-out rather than buffered into the flow-mod.
func (f *Forwarder) Bypass(b *brain.SwitchBrain, fr Frame) Decision {
	b.LearnMAC(fr.SrcMAC, fr.IngressPort)

	port, known := b.PortFor(fr.DstMAC)
	if !known {
		return Decision{Action: ActionFlood, EmitPacketOut: true}
	}
	if port == fr.IngressPort {
		return Decision{Action: ActionDrop}
	}

	key := flowKey(b.DatapathID, fr.IngressPort, fr.DstMAC)
	if _, found := f.installed.Get(key); found {
		return Decision{Action: ActionInstall, OutPort: port, EmitPacketOut: true, AlreadyInstalled: true}
	}
	f.installed.Set(key, struct{}{}, cache.NoExpiration)
	return Decision{
		Action:        ActionInstall,
		OutPort:       port,
		EmitPacketOut: true,
	}
}
