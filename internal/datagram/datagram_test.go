package datagram

import (
	"errors"
	"testing"

	"github.com/google/gopacket/layers"
)

func TestEncodeProducesValidHeader(t *testing.T) {
	raw, err := Encode(Spec{SrcIP: "192.168.1.10", DstIP: "192.168.2.10", TTL: 64, ID: 7})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if len(raw) != HeaderLen+8 {
		t.Fatalf("len(raw) = %d, want %d", len(raw), HeaderLen+8)
	}
	if !ChecksumValid(raw) {
		t.Fatalf("checksum invalid on fresh datagram")
	}

	ip, err := Decode(raw)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if ip.Version != 4 || ip.IHL != 5 || ip.TTL != 64 || ip.Id != 7 {
		t.Fatalf("unexpected header: version=%d ihl=%d ttl=%d id=%d", ip.Version, ip.IHL, ip.TTL, ip.Id)
	}
	if ip.Protocol != layers.IPProtocolICMPv4 || ip.Flags != layers.IPv4DontFragment {
		t.Fatalf("unexpected protocol/flags: %v %v", ip.Protocol, ip.Flags)
	}
	if ip.Length != uint16(len(raw)) {
		t.Fatalf("total length = %d, want %d", ip.Length, len(raw))
	}
	if ip.SrcIP.String() != "192.168.1.10" || ip.DstIP.String() != "192.168.2.10" {
		t.Fatalf("addresses = %s -> %s", ip.SrcIP, ip.DstIP)
	}
}

func TestSetTTLRecomputesChecksum(t *testing.T) {
	raw, err := Encode(Spec{SrcIP: "192.168.1.10", DstIP: "192.168.2.10", TTL: 64, ID: 1})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	before, _ := Decode(raw)
	oldChecksum := before.Checksum

	next, err := SetTTL(raw, 63)
	if err != nil {
		t.Fatalf("SetTTL: %v", err)
	}
	if !ChecksumValid(next) {
		t.Fatalf("checksum invalid after TTL rewrite")
	}
	after, _ := Decode(next)
	if after.TTL != 63 {
		t.Fatalf("TTL = %d, want 63", after.TTL)
	}
	if after.Checksum == oldChecksum {
		t.Fatalf("checksum unchanged after TTL rewrite")
	}
	if len(after.Payload) != 8 {
		t.Fatalf("payload lost on rewrite: %d bytes", len(after.Payload))
	}

	// The input buffer is untouched.
	if orig, _ := Decode(raw); orig.TTL != 64 {
		t.Fatalf("SetTTL mutated its input")
	}
}

func TestEncodeRejectsNonIPv4(t *testing.T) {
	if _, err := Encode(Spec{SrcIP: "2001:db8::1", DstIP: "192.168.1.1"}); !errors.Is(err, ErrNotIPv4) {
		t.Fatalf("err = %v, want ErrNotIPv4", err)
	}
}

func TestDecodeMalformed(t *testing.T) {
	if _, err := Decode([]byte{0x45, 0x00}); !errors.Is(err, ErrMalformed) {
		t.Fatalf("err = %v, want ErrMalformed", err)
	}
	if ChecksumValid([]byte{0x45}) {
		t.Fatalf("short buffer reported valid")
	}
}
