package southbound

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"time"

	"github.com/netrack/openflow/ofp"

	"github.com/sdnproj/p2p-controller/internal/bufpool"
)

// frameType tags the small envelope this prototype wraps around the real
// ofp wire types. A full OpenFlow session negotiates HELLO/FEATURES and
// carries in_port inside the packet-in's OXM match list; decoding that
// match-field list is out of scope here (see DESIGN.md), so the envelope
// carries the ingress port directly instead.
type frameType uint8

const (
	frameTypePacketIn frameType = iota
	frameTypePacketOut
	frameTypeFlowMod
)

// frameHeaderLen is 1 byte type + 4 byte ingress/egress port + 4 byte
// payload length.
const frameHeaderLen = 9

func readFrame(r io.Reader) (frameType, uint32, []byte, error) {
	var hdr [frameHeaderLen]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return 0, 0, nil, err
	}
	typ := frameType(hdr[0])
	port := binary.BigEndian.Uint32(hdr[1:5])
	length := binary.BigEndian.Uint32(hdr[5:9])
	body := bufpool.Get(int(length))
	if length > 0 {
		if _, err := io.ReadFull(r, body); err != nil {
			bufpool.Put(body)
			return 0, 0, nil, err
		}
	}
	return typ, port, body, nil
}

func writeFrame(w io.Writer, typ frameType, port uint32, payload []byte) error {
	var hdr [frameHeaderLen]byte
	hdr[0] = byte(typ)
	binary.BigEndian.PutUint32(hdr[1:5], port)
	binary.BigEndian.PutUint32(hdr[5:9], uint32(len(payload)))
	if _, err := w.Write(hdr[:]); err != nil {
		return err
	}
	if len(payload) == 0 {
		return nil
	}
	_, err := w.Write(payload)
	return err
}

// decodePacketIn unmarshals the wire body of a packet-in frame using the
// real ofp.PacketIn codec.
func decodePacketIn(body []byte) (*ofp.PacketIn, error) {
	pin := new(ofp.PacketIn)
	if _, err := pin.ReadFrom(bytes.NewReader(body)); err != nil {
		return nil, fmt.Errorf("decode packet-in: %w", err)
	}
	return pin, nil
}

// encodePacketOut marshals a unicast or flooded packet-out using
// ofp.PacketOut/Actions/ActionOutput, the confirmed wire types for this
// message. ofp.PacketOut.WriteTo only serializes Buffer/InPort/Actions —
// per its own doc comment the frame data "follows" the fixed fields, with
// the length inferred from the outer OFP header — so data, when non-nil,
// is appended after the encoded struct; this envelope's own length prefix
// covers it.
func encodePacketOut(buffer uint32, outPort ofp.PortNo, data []byte) ([]byte, error) {
	out := &ofp.PacketOut{
		Buffer:  buffer,
		InPort:  ofp.PortController,
		Actions: ofp.Actions{&ofp.ActionOutput{Port: outPort}},
	}
	var buf bytes.Buffer
	if _, err := out.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("encode packet-out: %w", err)
	}
	if len(data) > 0 {
		buf.Write(data)
	}
	return buf.Bytes(), nil
}

// encodeFlowMod marshals a flow-mod with a single output action (install)
// or no action (match-only drop), using ofp.NewFlowMod/Instructions, the
// confirmed wire types for this message. idle/hard are truncated to whole
// seconds, the wire unit for IdleTimeout/HardTimeout; zero means the rule
// never expires.
func encodeFlowMod(cookie uint64, match ofp.Match, outPort ofp.PortNo, dropOnly bool, idle, hard time.Duration) ([]byte, error) {
	fm := ofp.NewFlowMod(ofp.FlowAdd)
	fm.Cookie = cookie
	fm.Match = match
	fm.IdleTimeout = uint16(idle / time.Second)
	fm.HardTimeout = uint16(hard / time.Second)
	if !dropOnly {
		fm.Instructions = ofp.Instructions{
			ofp.InstructionApplyActions{
				Actions: ofp.Actions{&ofp.ActionOutput{Port: outPort}},
			},
		}
	}
	var buf bytes.Buffer
	if _, err := fm.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("encode flow-mod: %w", err)
	}
	return buf.Bytes(), nil
}
