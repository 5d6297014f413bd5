// Package stats provides small in-process counters surfaced by the
// southbound server, mirroring the per-reason packet-in counts the
// original controller logged for its plotting script. There is no external
// exporter: nothing here is served over HTTP or written to disk.
package stats

import "sync/atomic"

// PacketClass mirrors dispatcher.PacketClass without importing it, to keep
// this leaf package dependency-free.
type PacketClass int

const (
	ClassRTMPControl PacketClass = iota
	ClassNotifyHeartbeat
	ClassOther
)

// Counters is a small set of atomic counters safe for concurrent use across
// a switch's southbound session and any other goroutine reading a snapshot.
type Counters struct {
	packetIn        [3]uint64
	forwarderFlood  uint64
	forwarderDrop   uint64
	forwarderInstall uint64
	brainTransition uint64
}

// New returns a zeroed counter set.
func New() *Counters { return &Counters{} }

// IncPacketIn records one packet-in of the given class.
func (c *Counters) IncPacketIn(class PacketClass) {
	if int(class) < 0 || int(class) >= len(c.packetIn) {
		return
	}
	atomic.AddUint64(&c.packetIn[class], 1)
}

// IncForwarderFlood records one flood decision by the forwarder.
func (c *Counters) IncForwarderFlood() { atomic.AddUint64(&c.forwarderFlood, 1) }

// IncForwarderDrop records one drop decision (link-local filter or
// same-port drop rule) by the forwarder.
func (c *Counters) IncForwarderDrop() { atomic.AddUint64(&c.forwarderDrop, 1) }

// IncForwarderInstall records one install decision by the forwarder,
// including one whose rule is already installed and is not re-emitted.
func (c *Counters) IncForwarderInstall() { atomic.AddUint64(&c.forwarderInstall, 1) }

// IncBrainTransition records one phase-flag transition in a SwitchBrain.
func (c *Counters) IncBrainTransition() { atomic.AddUint64(&c.brainTransition, 1) }

// Snapshot is a point-in-time copy of all counters.
type Snapshot struct {
	PacketInRTMPControl    uint64
	PacketInNotifyHeartbeat uint64
	PacketInOther          uint64
	ForwarderFlood         uint64
	ForwarderDrop          uint64
	ForwarderInstall       uint64
	BrainTransitions       uint64
}

// Snapshot returns the current values of every counter.
func (c *Counters) Snapshot() Snapshot {
	return Snapshot{
		PacketInRTMPControl:     atomic.LoadUint64(&c.packetIn[ClassRTMPControl]),
		PacketInNotifyHeartbeat: atomic.LoadUint64(&c.packetIn[ClassNotifyHeartbeat]),
		PacketInOther:           atomic.LoadUint64(&c.packetIn[ClassOther]),
		ForwarderFlood:          atomic.LoadUint64(&c.forwarderFlood),
		ForwarderDrop:           atomic.LoadUint64(&c.forwarderDrop),
		ForwarderInstall:        atomic.LoadUint64(&c.forwarderInstall),
		BrainTransitions:        atomic.LoadUint64(&c.brainTransition),
	}
}
