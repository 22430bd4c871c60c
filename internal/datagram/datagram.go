// Package datagram builds and rewrites the IPv4 datagram carried by a
// simulated packet. Gateways rewrite TTL and recompute the header checksum
// the same way a real router would.
package datagram

import (
	"encoding/binary"
	"errors"
	"fmt"
	"net"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
)

var (
	// ErrNotIPv4 indicates an address that is not a valid IPv4 address.
	ErrNotIPv4 = errors.New("not an IPv4 address")
	// ErrMalformed indicates bytes that do not decode as an IPv4 datagram.
	ErrMalformed = errors.New("malformed IPv4 datagram")
)

// HeaderLen is the length of an option-less IPv4 header.
const HeaderLen = 20

var serializeOpts = gopacket.SerializeOptions{
	FixLengths:       true,
	ComputeChecksums: true,
}

// Spec describes the datagram to build.
type Spec struct {
	SrcIP string
	DstIP string
	TTL   uint8
	ID    uint16
}

// Encode serialises an IPv4 header carrying an ICMP echo request. The
// header has no options, DF set, and valid length and checksum fields.
func Encode(spec Spec) ([]byte, error) {
	src := net.ParseIP(spec.SrcIP).To4()
	if src == nil {
		return nil, fmt.Errorf("%w: source %q", ErrNotIPv4, spec.SrcIP)
	}
	dst := net.ParseIP(spec.DstIP).To4()
	if dst == nil {
		return nil, fmt.Errorf("%w: destination %q", ErrNotIPv4, spec.DstIP)
	}

	ip := &layers.IPv4{
		Version:  4,
		IHL:      5,
		TOS:      0,
		Id:       spec.ID,
		Flags:    layers.IPv4DontFragment,
		TTL:      spec.TTL,
		Protocol: layers.IPProtocolICMPv4,
		SrcIP:    src,
		DstIP:    dst,
	}
	icmp := &layers.ICMPv4{
		TypeCode: layers.CreateICMPv4TypeCode(layers.ICMPv4TypeEchoRequest, 0),
		Id:       spec.ID,
		Seq:      1,
	}

	buf := gopacket.NewSerializeBuffer()
	if err := gopacket.SerializeLayers(buf, serializeOpts, ip, icmp); err != nil {
		return nil, fmt.Errorf("serialize datagram: %w", err)
	}
	return append([]byte(nil), buf.Bytes()...), nil
}

// Decode parses raw as an IPv4 datagram.
func Decode(raw []byte) (*layers.IPv4, error) {
	ip := &layers.IPv4{}
	if err := ip.DecodeFromBytes(raw, gopacket.NilDecodeFeedback); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return ip, nil
}

// SetTTL returns a copy of raw with the TTL replaced and the header checksum
// recomputed. raw itself is left untouched.
func SetTTL(raw []byte, ttl uint8) ([]byte, error) {
	ip, err := Decode(raw)
	if err != nil {
		return nil, err
	}
	ip.TTL = ttl

	buf := gopacket.NewSerializeBuffer()
	if err := gopacket.SerializeLayers(buf, serializeOpts, ip, gopacket.Payload(ip.Payload)); err != nil {
		return nil, fmt.Errorf("serialize datagram: %w", err)
	}
	return append([]byte(nil), buf.Bytes()...), nil
}

// ChecksumValid reports whether the IPv4 header checksum of raw is correct.
func ChecksumValid(raw []byte) bool {
	if len(raw) < HeaderLen {
		return false
	}
	ihl := int(raw[0]&0x0f) * 4
	if ihl < HeaderLen || len(raw) < ihl {
		return false
	}
	var sum uint32
	for i := 0; i < ihl; i += 2 {
		sum += uint32(binary.BigEndian.Uint16(raw[i : i+2]))
	}
	for sum>>16 != 0 {
		sum = (sum & 0xffff) + (sum >> 16)
	}
	return uint16(sum) == 0xffff
}
