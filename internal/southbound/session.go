package southbound

import (
	"encoding/binary"
	"net"

	"github.com/google/uuid"
	"github.com/netrack/openflow/ofp"
	"github.com/sirupsen/logrus"

	"github.com/sdnproj/p2p-controller/internal/brain"
	"github.com/sdnproj/p2p-controller/internal/bufpool"
	"github.com/sdnproj/p2p-controller/internal/config"
	"github.com/sdnproj/p2p-controller/internal/dispatcher"
	"github.com/sdnproj/p2p-controller/internal/forwarder"
	"github.com/sdnproj/p2p-controller/internal/logger"
	"github.com/sdnproj/p2p-controller/internal/rewriter"
	"github.com/sdnproj/p2p-controller/internal/rtmp/chunk"
	"github.com/sdnproj/p2p-controller/internal/rtmphandler"
	"github.com/sdnproj/p2p-controller/internal/stats"
)

// session owns one switch's TCP connection. Packet-in events on a session
// are processed one at a time, in arrival order, on a single goroutine —
// there is no concurrency within a switch, only across switches.
type session struct {
	id         uuid.UUID
	datapathID uint64
	conn       net.Conn
	cfg        *config.Config
	brain      *brain.SwitchBrain
	fwd        *forwarder.Forwarder
	counters   *stats.Counters
	chunkState *chunk.ChunkState
}

func newSession(conn net.Conn, cfg *config.Config, registry *brain.Registry, fwd *forwarder.Forwarder, counters *stats.Counters) *session {
	id := uuid.New()
	datapathID := binary.BigEndian.Uint64(id[:8])
	return &session{
		id:         id,
		datapathID: datapathID,
		conn:       conn,
		cfg:        cfg,
		brain:      registry.GetOrCreate(datapathID),
		fwd:        fwd,
		counters:   counters,
		chunkState: chunk.NewChunkState(),
	}
}

// run processes packet-in frames until the connection closes or ctx-style
// cancellation arrives via conn being closed by the caller. It always
// returns nil on a clean close so the supervising errgroup is not brought
// down by one switch disconnecting.
func (s *session) run() error {
	log := logger.WithComponent(logger.WithSwitch(logger.Logger(), s.datapathID), "southbound")
	log.WithField("session_id", s.id).Info("switch session started")
	defer log.Info("switch session ended")

	for {
		typ, ingressPort, body, err := readFrame(s.conn)
		if err != nil {
			return nil // EOF or reset: normal disconnect.
		}
		if typ != frameTypePacketIn {
			bufpool.Put(body)
			continue // this prototype only ever receives packet-in from a switch.
		}
		pin, err := decodePacketIn(body)
		bufpool.Put(body) // ofp.PacketIn.ReadFrom copies Data out of body.
		if err != nil {
			log.WithError(err).Warn("malformed packet-in, dropping")
			continue
		}
		s.handlePacketIn(uint32(ingressPort), pin, log)
	}
}

func (s *session) handlePacketIn(ingressPort uint32, pin *ofp.PacketIn, log *logrus.Entry) {
	fi := parseFrame(pin.Data)
	if fi.srcMAC != nil {
		s.brain.LearnMAC(fi.srcMAC, ingressPort)
	}

	pktIn := dispatcher.PacketIn{
		SrcMAC:      fi.srcMAC,
		DstMAC:      fi.dstMAC,
		EtherType:   fi.etherType,
		IngressPort: ingressPort,
		SrcTCPPort:  fi.srcPort,
		DstTCPPort:  fi.dstPort,
		HasTCP:      fi.hasTCP,
	}
	class := dispatcher.Classify(s.brain, s.cfg, pktIn)
	s.counters.IncPacketIn(stats.PacketClass(class))

	switch class {
	case dispatcher.ClassRTMPControl:
		fr := rtmphandler.Frame{
			SrcMAC: fi.srcMAC, DstMAC: fi.dstMAC,
			SrcIP: fi.srcIP, DstIP: fi.dstIP,
			IngressPort: ingressPort,
			SrcTCPPort:  fi.srcPort, DstTCPPort: fi.dstPort,
		}
		directive := rtmphandler.Handle(s.brain, s.chunkState, s.cfg, fr, payloadOf(pin.Data))
		s.emitPacketOut(pin, directive.Flood, directive.OutPort, log)

	case dispatcher.ClassNotifyHeartbeat:
		pkt := rewriter.Packet{
			SrcIP: fi.srcIP, DstIP: fi.dstIP,
			SrcTCPPort: fi.srcPort, DstTCPPort: fi.dstPort,
			Payload: payloadOf(pin.Data),
		}
		outcome := rewriter.Handle(s.brain, s.cfg, pkt)
		if outcome.Rewritten {
			s.emitRewrittenHeartbeat(pin, fi, outcome, log)
			return
		}
		fr := forwarder.Frame{SrcMAC: fi.srcMAC, DstMAC: fi.dstMAC, EtherType: fi.etherType, IngressPort: ingressPort}
		decision := s.fwd.Plain(s.brain, fr)
		s.applyDecision(pin, decision, log)

	default:
		fr := forwarder.Frame{SrcMAC: fi.srcMAC, DstMAC: fi.dstMAC, EtherType: fi.etherType, IngressPort: ingressPort}
		var decision forwarder.Decision
		if s.brain.BypassActive() {
			decision = s.fwd.Bypass(s.brain, fr)
		} else {
			decision = s.fwd.Plain(s.brain, fr)
		}
		s.applyDecision(pin, decision, log)
	}
}

func (s *session) applyDecision(pin *ofp.PacketIn, d forwarder.Decision, log *logrus.Entry) {
	switch d.Action {
	case forwarder.ActionDrop:
		s.counters.IncForwarderDrop()
		if d.IdleTimeout > 0 || d.HardTimeout > 0 {
			s.emitDropFlowMod(pin, d, log)
		}
	case forwarder.ActionFlood:
		s.counters.IncForwarderFlood()
		s.emitPacketOut(pin, true, 0, log)
	case forwarder.ActionInstall:
		s.counters.IncForwarderInstall()
		if !d.AlreadyInstalled {
			s.emitFlowMod(pin, d, log)
		}
		if d.EmitPacketOut {
			s.emitPacketOut(pin, false, d.OutPort, log)
		}
	}
}

func (s *session) emitPacketOut(pin *ofp.PacketIn, flood bool, outPort uint32, log *logrus.Entry) {
	port := ofp.PortNo(outPort)
	if flood {
		port = ofp.PortFlood
	}
	payload, err := encodePacketOut(pin.Buffer, port, nil)
	if err != nil {
		log.WithError(err).Error("encode packet-out")
		return
	}
	if err := writeFrame(s.conn, frameTypePacketOut, outPort, payload); err != nil {
		log.WithError(err).Warn("write packet-out")
	}
}

func (s *session) emitFlowMod(pin *ofp.PacketIn, d forwarder.Decision, log *logrus.Entry) {
	payload, err := encodeFlowMod(s.datapathID, pin.Match, ofp.PortNo(d.OutPort), false, d.IdleTimeout, d.HardTimeout)
	if err != nil {
		log.WithError(err).Error("encode flow-mod")
		return
	}
	if err := writeFrame(s.conn, frameTypeFlowMod, d.OutPort, payload); err != nil {
		log.WithError(err).Warn("write flow-mod")
	}
}

// emitDropFlowMod installs the timed, match-only drop rule for the
// forwarder's same-port egress case (§4.2 item 4): the only timed drop rule
// in the decision tree (Plain installs carry their own timeouts via
// emitFlowMod).
func (s *session) emitDropFlowMod(pin *ofp.PacketIn, d forwarder.Decision, log *logrus.Entry) {
	payload, err := encodeFlowMod(s.datapathID, pin.Match, 0, true, d.IdleTimeout, d.HardTimeout)
	if err != nil {
		log.WithError(err).Error("encode drop flow-mod")
		return
	}
	if err := writeFrame(s.conn, frameTypeFlowMod, 0, payload); err != nil {
		log.WithError(err).Warn("write drop flow-mod")
	}
}

// emitRewrittenHeartbeat carries outcome's rewritten payload all the way to
// the wire: it splices NewPayload into the original frame (recomputing the
// IP/TCP checksums), delivers the result to the destination's learned
// egress port (flooding only if that port isn't known yet), and, if
// requested, installs a permanent no-action flow-mod. The flow-mod's match
// is the packet-in's own match fields as received; no match is built from
// the frame's IP addresses or TCP ports.
func (s *session) emitRewrittenHeartbeat(pin *ofp.PacketIn, fi frameInfo, outcome rewriter.Outcome, log *logrus.Entry) {
	rewritten, err := rewriteTCPPayload(pin.Data, outcome.NewPayload)
	if err != nil {
		log.WithError(err).Error("rewrite heartbeat payload")
		return
	}

	outPort := ofp.PortFlood
	var egress uint32
	if fi.dstMAC != nil {
		if p, known := s.brain.PortFor(fi.dstMAC); known {
			outPort = ofp.PortNo(p)
			egress = p
		}
	}

	payload, err := encodePacketOut(ofp.NoBuffer, outPort, rewritten)
	if err != nil {
		log.WithError(err).Error("encode rewritten packet-out")
		return
	}
	if err := writeFrame(s.conn, frameTypePacketOut, egress, payload); err != nil {
		log.WithError(err).Warn("write rewritten packet-out")
		return
	}

	if outcome.InstallDropRule {
		dropPayload, err := encodeFlowMod(s.datapathID, pin.Match, 0, true, 0, 0)
		if err != nil {
			log.WithError(err).Error("encode heartbeat drop flow-mod")
			return
		}
		if err := writeFrame(s.conn, frameTypeFlowMod, egress, dropPayload); err != nil {
			log.WithError(err).Warn("write heartbeat drop flow-mod")
		}
	}
}

// payloadOf returns the TCP payload of a raw Ethernet/IPv4/TCP frame, or
// nil if the frame is too short or not IPv4/TCP. Mirrors parseFrame's
// bounds checks.
func payloadOf(data []byte) []byte {
	if len(data) < 34 || binary.BigEndian.Uint16(data[12:14]) != etherTypeIPv4 {
		return nil
	}
	ip := data[14:]
	ihl := int(ip[0]&0x0F) * 4
	if ihl < 20 || len(ip) < ihl+20 || ip[9] != ipProtoTCP {
		return nil
	}
	tcp := ip[ihl:]
	dataOffset := int(tcp[12]>>4) * 4
	if dataOffset < 20 || len(tcp) < dataOffset {
		return nil
	}
	return tcp[dataOffset:]
}
