package rewriter

import (
	"net"
	"testing"

	"github.com/sdnproj/p2p-controller/internal/brain"
	"github.com/sdnproj/p2p-controller/internal/config"
)

func readyBrain(t *testing.T) *brain.SwitchBrain {
	t.Helper()
	b := brain.New(1)
	viewer := brain.Role{Port: 3, IP: net.ParseIP("10.0.0.2")}
	broadcaster := brain.Role{Port: 2, IP: net.ParseIP("10.0.0.1")}
	service := brain.Role{Port: 1}
	if err := b.ObserveViewerPlay(viewer); err != nil {
		t.Fatalf("setup: %v", err)
	}
	if err := b.ObserveViewerPlayStarted(service); err != nil {
		t.Fatalf("setup: %v", err)
	}
	if err := b.ObserveBroadcasterPublish(broadcaster); err != nil {
		t.Fatalf("setup: %v", err)
	}
	if err := b.ObserveBroadcasterPublishStarted(service); err != nil {
		t.Fatalf("setup: %v", err)
	}
	enable, _ := b.EvaluateDecisionRule()
	if !enable {
		t.Fatalf("expected p2p enabled in test setup")
	}
	return b
}

func TestHandleNotificationRewriteScenario(t *testing.T) {
	b := readyBrain(t)
	cfg := config.New("", "", 0, 0, 0)

	pkt := Packet{
		SrcIP:      net.ParseIP("10.0.0.3"),
		DstIP:      net.ParseIP("10.0.0.2"),
		SrcTCPPort: cfg.NotifyPort,
		Payload:    []byte("xxxheartbeatxxx"),
	}
	out := Handle(b, cfg, pkt)
	if !out.Rewritten || !out.InstallDropRule {
		t.Fatalf("expected rewrite + drop rule, got %+v", out)
	}
	if string(out.NewPayload) != "10.0.0.1|||||||" {
		t.Fatalf("unexpected payload: %q", out.NewPayload)
	}
	if err := ValidateRewritten(out.NewPayload); err != nil {
		t.Fatalf("invalid rewritten payload: %v", err)
	}
}

func TestHandleRewritesForBroadcaster(t *testing.T) {
	b := readyBrain(t)
	cfg := config.New("", "", 0, 0, 0)

	pkt := Packet{
		SrcIP:      net.ParseIP("10.0.0.3"),
		DstIP:      net.ParseIP("10.0.0.1"),
		SrcTCPPort: cfg.NotifyPort,
		Payload:    []byte("xxxheartbeatxxx"),
	}
	out := Handle(b, cfg, pkt)
	if !out.Rewritten {
		t.Fatalf("expected rewrite for broadcaster destination")
	}
	if string(out.NewPayload) != "10.0.0.2|||||||" {
		t.Fatalf("unexpected payload: %q", out.NewPayload)
	}
}

func TestHandleIgnoresBeforeP2PEnabled(t *testing.T) {
	b := brain.New(1)
	cfg := config.New("", "", 0, 0, 0)
	pkt := Packet{SrcIP: net.ParseIP("10.0.0.3"), DstIP: net.ParseIP("10.0.0.2"), SrcTCPPort: cfg.NotifyPort, Payload: []byte("xxxheartbeatxxx")}
	out := Handle(b, cfg, pkt)
	if out.Rewritten {
		t.Fatalf("must not rewrite before p2p is enabled")
	}
}

func TestHandleIgnoresWrongSourcePort(t *testing.T) {
	b := readyBrain(t)
	cfg := config.New("", "", 0, 0, 0)
	pkt := Packet{SrcIP: net.ParseIP("10.0.0.3"), DstIP: net.ParseIP("10.0.0.2"), SrcTCPPort: 9999, Payload: []byte("xxxheartbeatxxx")}
	out := Handle(b, cfg, pkt)
	if out.Rewritten {
		t.Fatalf("must not rewrite when source port is not the notify port")
	}
}

func TestHandleIgnoresUnrelatedDestination(t *testing.T) {
	b := readyBrain(t)
	cfg := config.New("", "", 0, 0, 0)
	pkt := Packet{SrcIP: net.ParseIP("10.0.0.3"), DstIP: net.ParseIP("10.0.0.99"), SrcTCPPort: cfg.NotifyPort, Payload: []byte("xxxheartbeatxxx")}
	out := Handle(b, cfg, pkt)
	if out.Rewritten {
		t.Fatalf("must not rewrite for an unrelated destination")
	}
}

func TestIsHeartbeat(t *testing.T) {
	if !IsHeartbeat([]byte("xxxheartbeatxxx")) {
		t.Fatalf("expected heartbeat marker detected")
	}
	if IsHeartbeat([]byte("10.0.0.1|||||||")) {
		t.Fatalf("rewritten payload must not be classified as heartbeat")
	}
}
