// Package brain implements the per-switch role and phase tracker described
// in the controller's data model: the SwitchBrain. One instance owns all
// mutable state for a single connected switch — the MAC-to-port table, the
// viewer/broadcaster/service role record, the phase flags driving P2P
// eligibility, and the single-slot prepend buffer the RTMP handler relies on
// for a twelve-byte wire quirk.
package brain

import (
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"

	ctlerrors "github.com/sdnproj/p2p-controller/internal/errors"
)

// Role is a populated slot in the RoleRecord: the switch port, link-layer
// and network addresses, and (for viewer/broadcaster) the ephemeral TCP
// port used toward the service. The service slot's TCP port is always the
// configured RTMP port.
type Role struct {
	Port    uint32
	MAC     net.HardwareAddr
	IP      net.IP
	TCPPort uint16
}

func (r Role) equal(o Role) bool {
	return r.Port == o.Port && r.MAC.String() == o.MAC.String() && r.IP.Equal(o.IP) && r.TCPPort == o.TCPPort
}

// RoleRecord is the triple of optional slots described in the data model.
type RoleRecord struct {
	Viewer      *Role
	Broadcaster *Role
	Service     *Role
}

// PhaseFlags are the monotonic booleans driving the decision rule in the
// role tracker. Every field starts false and, once true, is never cleared.
type PhaseFlags struct {
	ViewerPlaySent            bool
	ViewerPlayStarted         bool
	BroadcasterPublishSent    bool
	BroadcasterPublishStarted bool
	StreamBeginSeen           bool
	P2PEnabled                bool
	P2PSetOff                 bool
}

// SwitchBrain is the per-switch state machine. All mutation goes through
// its exported methods, which hold mu for the duration; the southbound
// session's single-threaded cooperative dispatch means a brain is never
// observed torn, but the mutex still protects against the registry's own
// concurrent lookups from other switch sessions.
type SwitchBrain struct {
	DatapathID uint64

	mu      sync.Mutex
	macTbl  *cache.Cache
	roles   RoleRecord
	phase   PhaseFlags
	prepend []byte

	// fatal is set once a role-consistency assertion fails; once true the
	// RTMP handler and decision rule stop mutating further state for this
	// switch, per the error taxonomy's "fatal for that switch session".
	fatal bool
}

// New creates an empty SwitchBrain for datapathID. The MAC table never
// expires entries on its own — "last write wins" is the only invariant —
// so it is backed by go-cache with no default expiration.
func New(datapathID uint64) *SwitchBrain {
	return &SwitchBrain{
		DatapathID: datapathID,
		macTbl:     cache.New(cache.NoExpiration, time.Hour),
	}
}

// LearnMAC records that mac was last observed arriving on port. Called on
// every packet-in before any dispatch decision, per the dispatcher's step 1.
func (b *SwitchBrain) LearnMAC(mac net.HardwareAddr, port uint32) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.macTbl.Set(mac.String(), port, cache.NoExpiration)
}

// PortFor returns the last learned ingress port for mac.
func (b *SwitchBrain) PortFor(mac net.HardwareAddr) (uint32, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	v, ok := b.macTbl.Get(mac.String())
	if !ok {
		return 0, false
	}
	return v.(uint32), true
}

// Fatal reports whether a role-consistency violation has stopped this
// brain from mutating further state. Forwarding continues regardless.
func (b *SwitchBrain) Fatal() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.fatal
}

// Phase returns a snapshot of the current phase flags.
func (b *SwitchBrain) Phase() PhaseFlags {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.phase
}

// Roles returns a snapshot of the current role record.
func (b *SwitchBrain) Roles() RoleRecord {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.roles
}

// SetPrepend stores the single outstanding 12-byte prepend fragment,
// overwriting any previous value — the brain holds at most one.
func (b *SwitchBrain) SetPrepend(data []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.prepend = append([]byte(nil), data...)
}

// TakePrepend returns and clears the outstanding prepend fragment, if any.
func (b *SwitchBrain) TakePrepend() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.prepend == nil {
		return nil
	}
	out := b.prepend
	b.prepend = nil
	return out
}

// assignRole assigns slot unless it already holds a different value, in
// which case it reports a role-consistency error and marks the brain
// fatal. Re-observing the identical value is permitted and a no-op.
func (b *SwitchBrain) assignRole(slot **Role, candidate Role, op string) error {
	if *slot == nil {
		r := candidate
		*slot = &r
		return nil
	}
	if (*slot).equal(candidate) {
		return nil
	}
	b.fatal = true
	return ctlerrors.NewRoleConsistencyError(op, fmt.Errorf("slot already bound to %+v, observed %+v", **slot, candidate))
}

// ObserveViewerPlay records the viewer's identity on a play request and
// advances ViewerPlaySent. candidate's port must be the viewer's switch
// port (the request's ingress port).
func (b *SwitchBrain) ObserveViewerPlay(candidate Role) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.fatal {
		return nil
	}
	if err := b.assignRole(&b.roles.Viewer, candidate, "brain.viewer_play"); err != nil {
		return err
	}
	b.phase.ViewerPlaySent = true
	return nil
}

// ObserveViewerPlayStarted records the service's identity on a play-start
// reply and advances ViewerPlayStarted.
func (b *SwitchBrain) ObserveViewerPlayStarted(service Role) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.fatal {
		return nil
	}
	if err := b.assignRole(&b.roles.Service, service, "brain.viewer_play_started"); err != nil {
		return err
	}
	b.phase.ViewerPlayStarted = true
	return nil
}

// ObserveBroadcasterPublish records the broadcaster's identity on a
// publish request and advances BroadcasterPublishSent.
func (b *SwitchBrain) ObserveBroadcasterPublish(candidate Role) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.fatal {
		return nil
	}
	if err := b.assignRole(&b.roles.Broadcaster, candidate, "brain.broadcaster_publish"); err != nil {
		return err
	}
	b.phase.BroadcasterPublishSent = true
	return nil
}

// ObserveBroadcasterPublishStarted records the service's identity on a
// publish-start reply and advances BroadcasterPublishStarted.
func (b *SwitchBrain) ObserveBroadcasterPublishStarted(service Role) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.fatal {
		return nil
	}
	if err := b.assignRole(&b.roles.Service, service, "brain.broadcaster_publish_started"); err != nil {
		return err
	}
	b.phase.BroadcasterPublishStarted = true
	return nil
}

// ObserveStreamBegin advances StreamBeginSeen.
func (b *SwitchBrain) ObserveStreamBegin() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.fatal {
		return
	}
	b.phase.StreamBeginSeen = true
}

// EvaluateDecisionRule applies §4.3's terminal-state rule after an RTMP
// handler call may have changed phase flags. It is idempotent: once a
// terminal flag is set it is never revisited. didEnable/didSetOff report
// whether this call was the one that newly set the respective flag.
func (b *SwitchBrain) EvaluateDecisionRule() (didEnable, didSetOff bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.fatal {
		return false, false
	}
	if !b.phase.P2PEnabled && b.phase.ViewerPlayStarted && b.phase.BroadcasterPublishStarted {
		b.phase.P2PEnabled = true
		return true, false
	}
	if !b.phase.P2PSetOff && b.phase.StreamBeginSeen && !b.phase.BroadcasterPublishStarted {
		b.phase.P2PSetOff = true
		return false, true
	}
	return false, false
}

// BypassActive reports whether RTMP-port packets should skip the RTMP
// handler entirely and fall through to the plain forwarder, per §4.3:
// once either terminal flag is set, the controller leaves the data path.
func (b *SwitchBrain) BypassActive() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.phase.P2PEnabled || b.phase.P2PSetOff
}

// ViewerIP and BroadcasterIP return the learned network addresses used by
// the notification rewriter, or nil if the corresponding slot is unset.
func (b *SwitchBrain) ViewerIP() net.IP {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.roles.Viewer == nil {
		return nil
	}
	return b.roles.Viewer.IP
}

func (b *SwitchBrain) BroadcasterIP() net.IP {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.roles.Broadcaster == nil {
		return nil
	}
	return b.roles.Broadcaster.IP
}

// EgressPortFor returns the learned egress port for a destination MAC, or
// 0, false if unknown (the forwarder should flood in that case).
func (b *SwitchBrain) EgressPortFor(dst net.HardwareAddr) (uint32, bool) {
	return b.PortFor(dst)
}

// Registry tracks one SwitchBrain per connected switch, keyed by datapath
// id. Mirrors the teacher's stream registry: double-checked locking around
// a plain map, since brains are long-lived for the connection's duration.
type Registry struct {
	mu     sync.RWMutex
	brains map[uint64]*SwitchBrain
}

// NewRegistry creates an empty brain registry.
func NewRegistry() *Registry {
	return &Registry{brains: make(map[uint64]*SwitchBrain)}
}

// GetOrCreate returns the brain for datapathID, creating one on the
// switch's connection-up event if it doesn't already exist.
func (r *Registry) GetOrCreate(datapathID uint64) *SwitchBrain {
	r.mu.RLock()
	if b, ok := r.brains[datapathID]; ok {
		r.mu.RUnlock()
		return b
	}
	r.mu.RUnlock()

	r.mu.Lock()
	defer r.mu.Unlock()
	if b, ok := r.brains[datapathID]; ok {
		return b
	}
	b := New(datapathID)
	r.brains[datapathID] = b
	return b
}

// Remove deletes the brain for datapathID on the switch's connection-down
// event. No brain state is persisted.
func (r *Registry) Remove(datapathID uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.brains, datapathID)
}
