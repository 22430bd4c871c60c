package core

import (
	"fmt"
	"net/netip"

	"github.com/dimalipin/netviz/kb"
	"github.com/dimalipin/netviz/model"
)

// Display layout of the default two-subnet topology, in canvas pixels.
const (
	CanvasWidth  = 800
	CanvasHeight = 600

	HostColumnOffset    = 140
	HostTopPadding      = 100
	HostVerticalSpacing = 70
	HostsPerSubnet      = 4
)

// Scenario is the plain-data description of a topology before it is loaded
// into a KnowledgeBase.
type Scenario struct {
	Subnets  []model.Subnet
	Hosts    []model.Host
	Gateways []model.Gateway
	WAN      *model.WANLink
}

// ScenarioSummary is a small summary of what was loaded. It’s mainly useful
// for logging from main().
type ScenarioSummary struct {
	Subnets  []string
	HostIPs  []string
	Gateways []string
	HasWAN   bool
}

// DefaultScenario returns the two-subnet topology: Subnet A 192.168.1.0/24
// behind Gateway A, Subnet B 192.168.2.0/24 behind Gateway B, and a /30 WAN
// link between the gateways.
func DefaultScenario() Scenario {
	subnetA := model.Subnet{
		Name:    "Subnet A",
		Network: "192.168.1.0/24",
		Mask:    "255.255.255.0",
		Accent:  "#89b4fa",
		Bounds:  model.Bounds{X: 30, Y: 80, Width: 280, Height: 420},
	}
	subnetB := model.Subnet{
		Name:    "Subnet B",
		Network: "192.168.2.0/24",
		Mask:    "255.255.255.0",
		Accent:  "#a6e3a1",
		Bounds:  model.Bounds{X: 490, Y: 80, Width: 280, Height: 420},
	}

	gatewayA := model.Gateway{
		Name:        "Gateway A",
		LANIP:       "192.168.1.1",
		WANIP:       "10.0.0.1",
		Subnet:      subnetA.Network,
		Position:    model.Position{X: 310, Y: 270},
		WANPosition: model.Position{X: 340, Y: 550},
		RoutingTable: []model.RouteEntry{
			{Destination: "192.168.1.0/24", NextHop: "directly connected", Interface: "192.168.1.1"},
			{Destination: "192.168.2.0/24", NextHop: "10.0.0.2", Interface: "10.0.0.1"},
		},
	}
	gatewayB := model.Gateway{
		Name:        "Gateway B",
		LANIP:       "192.168.2.1",
		WANIP:       "10.0.0.2",
		Subnet:      subnetB.Network,
		Position:    model.Position{X: 490, Y: 270},
		WANPosition: model.Position{X: 460, Y: 550},
		RoutingTable: []model.RouteEntry{
			{Destination: "192.168.2.0/24", NextHop: "directly connected", Interface: "192.168.2.1"},
			{Destination: "192.168.1.0/24", NextHop: "10.0.0.1", Interface: "10.0.0.2"},
		},
	}

	hosts := make([]model.Host, 0, 2*HostsPerSubnet)
	hosts = append(hosts, layoutHosts(subnetA, "A", gatewayA.LANIP, subnetA.Bounds.X+HostColumnOffset)...)
	hosts = append(hosts, layoutHosts(subnetB, "B", gatewayB.LANIP, subnetB.Bounds.X+subnetB.Bounds.Width-HostColumnOffset)...)

	return Scenario{
		Subnets:  []model.Subnet{subnetA, subnetB},
		Hosts:    hosts,
		Gateways: []model.Gateway{gatewayA, gatewayB},
		WAN: &model.WANLink{
			GatewayA:  gatewayA.Name,
			GatewayB:  gatewayB.Name,
			Start:     gatewayA.WANPosition,
			End:       gatewayB.WANPosition,
			Label:     "WAN: 10.0.0.0/30",
			Endpoints: "10.0.0.1 ↔ 10.0.0.2",
		},
	}
}

// layoutHosts places HostsPerSubnet hosts (.10 to .13) in one column.
func layoutHosts(subnet model.Subnet, shortName, gateway string, x float64) []model.Host {
	prefix := netip.MustParsePrefix(subnet.Network)
	base := prefix.Addr().As4()

	hosts := make([]model.Host, 0, HostsPerSubnet)
	for i := range HostsPerSubnet {
		addr := base
		addr[3] = byte(10 + i)
		hosts = append(hosts, model.Host{
			IP:         netip.AddrFrom4(addr).String(),
			Subnet:     subnet.Network,
			SubnetName: shortName,
			Mask:       subnet.Mask,
			Gateway:    gateway,
			Position:   hostSlot(subnet.Bounds, x, i),
			Highlight:  model.HighlightDefault,
		})
	}
	return hosts
}

func hostSlot(bounds model.Bounds, x float64, index int) model.Position {
	return model.Position{
		X: x,
		Y: bounds.Y + HostTopPadding + float64(index)*HostVerticalSpacing,
	}
}

// LoadScenario validates s and populates kb with it. Loading stops at the
// first KB error; validation problems are reported together.
func LoadScenario(store *kb.KnowledgeBase, s Scenario) (*ScenarioSummary, error) {
	if store == nil {
		return nil, fmt.Errorf("LoadScenario: kb is nil")
	}
	if err := ValidateScenario(s); err != nil {
		return nil, err
	}

	summary := &ScenarioSummary{}
	for _, subnet := range s.Subnets {
		if err := store.AddSubnet(subnet); err != nil {
			return nil, fmt.Errorf("LoadScenario: %w", err)
		}
		summary.Subnets = append(summary.Subnets, subnet.Network)
	}
	for _, gw := range s.Gateways {
		if err := store.AddGateway(gw); err != nil {
			return nil, fmt.Errorf("LoadScenario: %w", err)
		}
		summary.Gateways = append(summary.Gateways, gw.Name)
	}
	for _, h := range s.Hosts {
		if err := store.AddHost(h); err != nil {
			return nil, fmt.Errorf("LoadScenario: %w", err)
		}
		summary.HostIPs = append(summary.HostIPs, h.IP)
	}
	if s.WAN != nil {
		if err := store.SetWANLink(*s.WAN); err != nil {
			return nil, fmt.Errorf("LoadScenario: %w", err)
		}
		summary.HasWAN = true
	}
	return summary, nil
}

// NewDefaultKnowledgeBase returns a KB populated with DefaultScenario.
func NewDefaultKnowledgeBase() *kb.KnowledgeBase {
	store := kb.NewKnowledgeBase()
	if _, err := LoadScenario(store, DefaultScenario()); err != nil {
		panic(fmt.Errorf("default scenario is invalid: %w", err))
	}
	return store
}
