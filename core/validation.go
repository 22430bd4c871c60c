package core

import (
	"errors"
	"fmt"
	"net/netip"

	"github.com/hashicorp/go-multierror"

	"github.com/dimalipin/netviz/model"
)

// ErrInvalidTopology wraps every structural problem found by ValidateScenario.
var ErrInvalidTopology = errors.New("invalid topology")

// ValidateScenario checks the structural invariants the path planner relies
// on and reports all violations at once:
//   - every subnet network is a valid, unique prefix;
//   - every host address is unique and lies inside its subnet;
//   - a host's gateway, when set, is its subnet gateway's LAN address;
//   - every gateway serves a known subnet and its LAN address is inside it;
//   - the WAN link joins two distinct, known gateways.
func ValidateScenario(s Scenario) error {
	var result *multierror.Error
	fail := func(format string, args ...any) {
		result = multierror.Append(result, fmt.Errorf("%w: "+format, append([]any{ErrInvalidTopology}, args...)...))
	}

	prefixes := make(map[string]netip.Prefix, len(s.Subnets))
	for _, subnet := range s.Subnets {
		p, err := netip.ParsePrefix(subnet.Network)
		if err != nil {
			fail("subnet %q: %v", subnet.Name, err)
			continue
		}
		if _, dup := prefixes[subnet.Network]; dup {
			fail("duplicate subnet %q", subnet.Network)
			continue
		}
		prefixes[subnet.Network] = p.Masked()
	}

	gatewayLAN := make(map[string]string, len(s.Gateways))
	gatewayNames := make(map[string]struct{}, len(s.Gateways))
	for _, gw := range s.Gateways {
		if _, dup := gatewayNames[gw.Name]; dup {
			fail("duplicate gateway %q", gw.Name)
			continue
		}
		gatewayNames[gw.Name] = struct{}{}

		p, ok := prefixes[gw.Subnet]
		if !ok {
			fail("gateway %q serves unknown subnet %q", gw.Name, gw.Subnet)
			continue
		}
		if other, taken := gatewayLAN[gw.Subnet]; taken {
			fail("subnet %q has more than one gateway (%s, %s)", gw.Subnet, other, gw.LANIP)
			continue
		}
		gatewayLAN[gw.Subnet] = gw.LANIP
		if addr, err := netip.ParseAddr(gw.LANIP); err != nil || !p.Contains(addr) {
			fail("gateway %q LAN address %q is not inside %s", gw.Name, gw.LANIP, gw.Subnet)
		}
	}

	seen := make(map[string]struct{}, len(s.Hosts))
	for _, h := range s.Hosts {
		if _, dup := seen[h.IP]; dup {
			fail("duplicate host %q", h.IP)
			continue
		}
		seen[h.IP] = struct{}{}

		p, ok := prefixes[h.Subnet]
		if !ok {
			fail("host %q belongs to unknown subnet %q", h.IP, h.Subnet)
			continue
		}
		addr, err := netip.ParseAddr(h.IP)
		if err != nil {
			fail("host %q: %v", h.IP, err)
			continue
		}
		if !p.Contains(addr) {
			fail("host %q is outside its subnet %s", h.IP, h.Subnet)
		}
		if lan, ok := gatewayLAN[h.Subnet]; ok && h.Gateway != "" && h.Gateway != lan {
			fail("host %q gateway %q does not match subnet gateway %q", h.IP, h.Gateway, lan)
		}
	}

	if s.WAN != nil {
		if s.WAN.GatewayA == s.WAN.GatewayB {
			fail("WAN link must join two distinct gateways, got %q twice", s.WAN.GatewayA)
		}
		for _, name := range []string{s.WAN.GatewayA, s.WAN.GatewayB} {
			if _, ok := gatewayNames[name]; !ok {
				fail("WAN link references unknown gateway %q", name)
			}
		}
	}

	return result.ErrorOrNil()
}

// maskString renders the dotted-quad netmask for an IPv4 prefix length.
func maskString(bits int) string {
	var m [4]byte
	for i := 0; i < bits && i < 32; i++ {
		m[i/8] |= 1 << (7 - uint(i%8))
	}
	return netip.AddrFrom4(m).String()
}

// subnetMask returns s.Mask, or derives it from the network prefix.
func subnetMask(s model.Subnet) string {
	if s.Mask != "" {
		return s.Mask
	}
	p, err := netip.ParsePrefix(s.Network)
	if err != nil || !p.Addr().Is4() {
		return ""
	}
	return maskString(p.Bits())
}
