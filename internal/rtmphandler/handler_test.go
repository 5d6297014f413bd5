package rtmphandler

import (
	"encoding/binary"
	"net"
	"testing"

	"github.com/sdnproj/p2p-controller/internal/brain"
	"github.com/sdnproj/p2p-controller/internal/config"
	"github.com/sdnproj/p2p-controller/internal/rtmp/chunk"
)

func fmt0Message(csid, msgLen uint32, typeID uint8, msid uint32, payload []byte) []byte {
	b := make([]byte, 0, 12+len(payload))
	b = append(b, byte(csid&0x3F))
	b = append(b, 0, 0, 0) // timestamp
	b = append(b, byte(msgLen>>16), byte(msgLen>>8), byte(msgLen))
	b = append(b, typeID)
	msidBytes := make([]byte, 4)
	binary.LittleEndian.PutUint32(msidBytes, msid)
	b = append(b, msidBytes...)
	b = append(b, payload...)
	return b
}

func testFrame(cfg *config.Config, toService bool) Frame {
	mac, _ := net.ParseMAC("aa:bb:cc:dd:ee:01")
	other, _ := net.ParseMAC("aa:bb:cc:dd:ee:02")
	fr := Frame{SrcMAC: mac, DstMAC: other, SrcIP: net.ParseIP("10.0.0.2"), DstIP: net.ParseIP("10.0.0.1"), IngressPort: 3}
	if toService {
		fr.DstTCPPort = cfg.RTMPPort
		fr.SrcTCPPort = 4000
	} else {
		fr.SrcTCPPort = cfg.RTMPPort
		fr.DstTCPPort = 4000
	}
	return fr
}

func TestHandlePureHandshakeLeavesStateUnchanged(t *testing.T) {
	b := brain.New(1)
	cfg := config.New("", "", 0, 0, 0)
	state := chunk.NewChunkState()
	payload := make([]byte, 88)

	Handle(b, state, cfg, testFrame(cfg, true), payload)

	if b.Phase() != (brain.PhaseFlags{}) {
		t.Fatalf("expected no phase change on a pure handshake packet, got %+v", b.Phase())
	}
}

func TestHandlePrependBufferQuirk(t *testing.T) {
	b := brain.New(1)
	cfg := config.New("", "", 0, 0, 0)
	state := chunk.NewChunkState()

	payload := []byte("play " + cfg.StreamKey)
	full := fmt0Message(3, uint32(len(payload)), 20, 1, payload)

	// Simulate a transport fragment boundary landing exactly after the
	// first 12 bytes: the leading fragment is buffered, and the rest is
	// reassembled with it on the next packet-in.
	first, rest := full[:12], full[12:]

	Handle(b, state, cfg, testFrame(cfg, true), first)
	Handle(b, state, cfg, testFrame(cfg, true), rest)

	if !b.Phase().ViewerPlaySent {
		t.Fatalf("expected play request observed after prepend + message, got %+v", b.Phase())
	}
}

func TestHandlePlayRequestScenario(t *testing.T) {
	b := brain.New(1)
	cfg := config.New("", "", 0, 0, 0)
	state := chunk.NewChunkState()

	payload := []byte("play " + cfg.StreamKey)
	msg := fmt0Message(3, uint32(len(payload)), 20, 1, payload)

	Handle(b, state, cfg, testFrame(cfg, true), msg)

	if !b.Phase().ViewerPlaySent {
		t.Fatalf("expected ViewerPlaySent, got %+v", b.Phase())
	}
	if b.Roles().Viewer == nil {
		t.Fatalf("expected viewer role recorded")
	}
}

func TestHandlePublishThenStartEnablesP2P(t *testing.T) {
	b := brain.New(1)
	cfg := config.New("", "", 0, 0, 0)
	state := chunk.NewChunkState()

	playPayload := []byte("play " + cfg.StreamKey)
	Handle(b, state, cfg, testFrame(cfg, true), fmt0Message(3, uint32(len(playPayload)), 20, 1, playPayload))

	playStartPayload := []byte("onStatus NetStream.Play.Start")
	Handle(b, state, cfg, testFrame(cfg, false), fmt0Message(3, uint32(len(playStartPayload)), 20, 1, playStartPayload))

	publishPayload := []byte("publish " + cfg.StreamKey)
	Handle(b, state, cfg, testFrame(cfg, true), fmt0Message(3, uint32(len(publishPayload)), 20, 2, publishPayload))

	publishStartPayload := []byte("onStatus NetStream.Publish.Start")
	Handle(b, state, cfg, testFrame(cfg, false), fmt0Message(3, uint32(len(publishStartPayload)), 20, 2, publishStartPayload))

	streamBeginPayload := []byte{0x00, 0x00, 0x00, 0x00, 0x00, 0x00}
	Handle(b, state, cfg, testFrame(cfg, false), fmt0Message(3, 6, 4, 2, streamBeginPayload))

	if !b.BypassActive() {
		t.Fatalf("expected bypass active after the full publish/play/begin sequence, got phase %+v", b.Phase())
	}
}

func TestHandleStreamBeginWithoutBroadcasterDoesNotEnableP2P(t *testing.T) {
	b := brain.New(1)
	cfg := config.New("", "", 0, 0, 0)
	state := chunk.NewChunkState()

	streamBeginPayload := []byte{0x00, 0x00, 0x00, 0x00, 0x00, 0x00}
	Handle(b, state, cfg, testFrame(cfg, false), fmt0Message(3, 6, 4, 9, streamBeginPayload))

	if b.Phase().P2PEnabled {
		t.Fatalf("stream begin alone must not enable p2p")
	}
}

func TestHandleUnparsedMessageForwardsWithoutStateChange(t *testing.T) {
	b := brain.New(1)
	cfg := config.New("", "", 0, 0, 0)
	state := chunk.NewChunkState()

	truncated := []byte{0x00, 0x00, 0x00, 0x00, 0x00} // too short to complete an FMT0 header
	Handle(b, state, cfg, testFrame(cfg, true), truncated)

	if b.Phase() != (brain.PhaseFlags{}) {
		t.Fatalf("expected no state change when a message is unparsed, got %+v", b.Phase())
	}
}

func TestHandleWrongDirectionIsIgnoredNotFatal(t *testing.T) {
	b := brain.New(1)
	cfg := config.New("", "", 0, 0, 0)
	state := chunk.NewChunkState()

	payload := []byte("play " + cfg.StreamKey)
	msg := fmt0Message(3, uint32(len(payload)), 20, 1, payload)

	// Sent as if coming FROM the RTMP port, which is the wrong direction for
	// a play request.
	Handle(b, state, cfg, testFrame(cfg, false), msg)

	if b.Fatal() {
		t.Fatalf("a misdirected observation must not be fatal")
	}
	if b.Phase().ViewerPlaySent {
		t.Fatalf("a misdirected play request must not be recorded")
	}
}

func TestHandleFloodsWhenEgressUnknown(t *testing.T) {
	b := brain.New(1)
	cfg := config.New("", "", 0, 0, 0)
	state := chunk.NewChunkState()

	got := Handle(b, state, cfg, testFrame(cfg, true), make([]byte, 88))
	if !got.Flood {
		t.Fatalf("expected flood when destination MAC is unlearned, got %+v", got)
	}
}

func TestHandleUsesLearnedEgressPort(t *testing.T) {
	b := brain.New(1)
	cfg := config.New("", "", 0, 0, 0)
	state := chunk.NewChunkState()
	fr := testFrame(cfg, true)
	b.LearnMAC(fr.DstMAC, 7)

	got := Handle(b, state, cfg, fr, make([]byte, 88))
	if got.Flood || got.OutPort != 7 {
		t.Fatalf("expected directed forward to learned port 7, got %+v", got)
	}
}
