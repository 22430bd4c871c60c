package ipheader

import (
	"fmt"
	"strings"

	"github.com/google/gopacket/layers"

	"github.com/dimalipin/netviz/internal/datagram"
)

// Value is the live content of one header field.
type Value struct {
	Key   string `json:"key"`
	Title string `json:"title"`
	Value string `json:"value"`
	// Label names the value when it matches a well-known one, e.g. "ICMP".
	Label string `json:"label,omitempty"`
}

// Describe decodes raw and returns the value of every catalog field in
// header order.
func Describe(raw []byte) ([]Value, error) {
	ip, err := datagram.Decode(raw)
	if err != nil {
		return nil, err
	}

	checksum := "mismatch"
	if datagram.ChecksumValid(raw) {
		checksum = "valid"
	}
	options := "None (IHL=5)"
	if n := int(ip.IHL)*4 - datagram.HeaderLen; n > 0 {
		options = fmt.Sprintf("%d bytes", n)
	}

	values := map[string][2]string{
		"version":         {fmt.Sprintf("%d", ip.Version), versionLabel(ip.Version)},
		"ihl":             {fmt.Sprintf("%d", ip.IHL), fmt.Sprintf("%d bytes", int(ip.IHL)*4)},
		"tos":             {fmt.Sprintf("0x%02X", ip.TOS), exampleLabel("tos", fmt.Sprintf("0x%02X", ip.TOS))},
		"total-length":    {fmt.Sprintf("%d", ip.Length), ""},
		"identification":  {fmt.Sprintf("0x%04X", ip.Id), ""},
		"flags":           {fmt.Sprintf("0x%X", uint8(ip.Flags)), flagsLabel(ip.Flags)},
		"fragment-offset": {fmt.Sprintf("%d", ip.FragOffset), fmt.Sprintf("%d bytes offset", int(ip.FragOffset)*8)},
		"ttl":             {fmt.Sprintf("%d", ip.TTL), ""},
		"protocol":        {fmt.Sprintf("%d", uint8(ip.Protocol)), protocolLabel(ip.Protocol)},
		"checksum":        {fmt.Sprintf("0x%04X", ip.Checksum), checksum},
		"source-ip":       {ip.SrcIP.String(), ""},
		"dest-ip":         {ip.DstIP.String(), ""},
		"options":         {options, ""},
	}

	out := make([]Value, 0, len(catalog))
	for _, f := range catalog {
		v := values[f.Key]
		out = append(out, Value{Key: f.Key, Title: f.Title, Value: v[0], Label: v[1]})
	}
	return out, nil
}

func versionLabel(v uint8) string {
	if v == 4 {
		return "IPv4"
	}
	return ""
}

func flagsLabel(flags layers.IPv4Flag) string {
	var parts []string
	if flags&layers.IPv4EvilBit != 0 {
		parts = append(parts, "Reserved")
	}
	if flags&layers.IPv4DontFragment != 0 {
		parts = append(parts, "DF")
	}
	if flags&layers.IPv4MoreFragments != 0 {
		parts = append(parts, "MF")
	}
	if len(parts) == 0 {
		return "Allow fragment"
	}
	return strings.Join(parts, "|")
}

func protocolLabel(p layers.IPProtocol) string {
	if label := exampleLabel("protocol", fmt.Sprintf("%d", uint8(p))); label != "" {
		return label
	}
	return p.String()
}

// exampleLabel returns the label of the example row whose value matches.
func exampleLabel(key, value string) string {
	f, ok := Lookup(key)
	if !ok {
		return ""
	}
	for _, ex := range f.Examples {
		if ex.Value == value {
			return ex.Label
		}
	}
	return ""
}
