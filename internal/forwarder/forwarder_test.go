package forwarder

import (
	"net"
	"testing"

	"github.com/sdnproj/p2p-controller/internal/brain"
)

func mustMAC(s string) net.HardwareAddr {
	m, err := net.ParseMAC(s)
	if err != nil {
		panic(err)
	}
	return m
}

func TestPlainDropsLinkLocal(t *testing.T) {
	f := New()
	b := brain.New(1)
	fr := Frame{SrcMAC: mustMAC("aa:aa:aa:aa:aa:01"), DstMAC: mustMAC("01:80:c2:00:00:00"), IngressPort: 1}
	d := f.Plain(b, fr)
	if d.Action != ActionDrop || d.EmitPacketOut {
		t.Fatalf("expected silent drop, got %+v", d)
	}
}

func TestPlainDropsLLDPEtherType(t *testing.T) {
	f := New()
	b := brain.New(1)
	fr := Frame{SrcMAC: mustMAC("aa:aa:aa:aa:aa:01"), DstMAC: mustMAC("aa:aa:aa:aa:aa:ff"), EtherType: lldpEtherType, IngressPort: 1}
	d := f.Plain(b, fr)
	if d.Action != ActionDrop {
		t.Fatalf("expected drop for LLDP ethertype, got %+v", d)
	}
}

func TestPlainFloodsMulticast(t *testing.T) {
	f := New()
	b := brain.New(1)
	fr := Frame{SrcMAC: mustMAC("aa:aa:aa:aa:aa:01"), DstMAC: mustMAC("01:00:5e:00:00:01"), IngressPort: 1}
	d := f.Plain(b, fr)
	if d.Action != ActionFlood || !d.EmitPacketOut {
		t.Fatalf("expected flood for multicast, got %+v", d)
	}
}

func TestPlainFloodsUnknownDestination(t *testing.T) {
	f := New()
	b := brain.New(1)
	fr := Frame{SrcMAC: mustMAC("aa:aa:aa:aa:aa:01"), DstMAC: mustMAC("bb:bb:bb:bb:bb:01"), IngressPort: 1}
	d := f.Plain(b, fr)
	if d.Action != ActionFlood {
		t.Fatalf("expected flood for unknown destination, got %+v", d)
	}
}

func TestPlainDropsSamePortEgress(t *testing.T) {
	f := New()
	b := brain.New(1)
	dst := mustMAC("bb:bb:bb:bb:bb:01")
	b.LearnMAC(dst, 1)
	fr := Frame{SrcMAC: mustMAC("aa:aa:aa:aa:aa:01"), DstMAC: dst, IngressPort: 1}
	d := f.Plain(b, fr)
	if d.Action != ActionDrop || d.IdleTimeout == 0 || d.HardTimeout == 0 {
		t.Fatalf("expected timed drop for same-port egress, got %+v", d)
	}
}

func TestPlainInstallsExactMatchWithTimeouts(t *testing.T) {
	f := New()
	b := brain.New(1)
	dst := mustMAC("bb:bb:bb:bb:bb:01")
	b.LearnMAC(dst, 2)
	fr := Frame{SrcMAC: mustMAC("aa:aa:aa:aa:aa:01"), DstMAC: dst, IngressPort: 1}
	d := f.Plain(b, fr)
	if d.Action != ActionInstall || d.OutPort != 2 || d.IdleTimeout == 0 || d.HardTimeout == 0 {
		t.Fatalf("expected timed install, got %+v", d)
	}
	if !d.EmitPacketOut || !d.BufferPacketOut {
		t.Fatalf("expected buffered packet delivery, got %+v", d)
	}
}

func TestPlainSkipsDuplicateInstallWithinWindow(t *testing.T) {
	f := New()
	b := brain.New(1)
	dst := mustMAC("bb:bb:bb:bb:bb:01")
	b.LearnMAC(dst, 2)
	fr := Frame{SrcMAC: mustMAC("aa:aa:aa:aa:aa:01"), DstMAC: dst, IngressPort: 1}
	first := f.Plain(b, fr)
	if first.AlreadyInstalled {
		t.Fatalf("first install should not be marked already installed")
	}
	second := f.Plain(b, fr)
	if !second.AlreadyInstalled || !second.EmitPacketOut {
		t.Fatalf("expected second decision to skip re-install, got %+v", second)
	}
}

func TestBypassSkipsLinkLocalAndMulticastSuppression(t *testing.T) {
	f := New()
	b := brain.New(1)
	fr := Frame{SrcMAC: mustMAC("aa:aa:aa:aa:aa:01"), DstMAC: mustMAC("01:80:c2:00:00:00"), IngressPort: 1}
	d := f.Bypass(b, fr)
	if d.Action != ActionFlood {
		t.Fatalf("bypass must not suppress link-local frames, got %+v", d)
	}
}

func TestBypassInstallsWithoutTimeouts(t *testing.T) {
	f := New()
	b := brain.New(1)
	dst := mustMAC("bb:bb:bb:bb:bb:01")
	b.LearnMAC(dst, 2)
	fr := Frame{SrcMAC: mustMAC("aa:aa:aa:aa:aa:01"), DstMAC: dst, IngressPort: 1}
	d := f.Bypass(b, fr)
	if d.Action != ActionInstall || d.OutPort != 2 {
		t.Fatalf("expected install, got %+v", d)
	}
	if d.IdleTimeout != 0 || d.HardTimeout != 0 {
		t.Fatalf("expected no timeouts for bypass install, got %+v", d)
	}
	if d.BufferPacketOut {
		t.Fatalf("bypass must emit packet-out alongside, not buffered")
	}
}

func TestBypassDropsSamePortEgressWithoutTimeout(t *testing.T) {
	f := New()
	b := brain.New(1)
	dst := mustMAC("bb:bb:bb:bb:bb:01")
	b.LearnMAC(dst, 1)
	fr := Frame{SrcMAC: mustMAC("aa:aa:aa:aa:aa:01"), DstMAC: dst, IngressPort: 1}
	d := f.Bypass(b, fr)
	if d.Action != ActionDrop || d.IdleTimeout != 0 || d.HardTimeout != 0 {
		t.Fatalf("expected untimed drop, got %+v", d)
	}
}
