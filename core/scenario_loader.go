// core/scenario_loader.go
package core

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/dimalipin/netviz/kb"
	"github.com/dimalipin/netviz/model"
)

// internal JSON shapes – keep them unexported so we’re free to evolve them.
type topologyJSON struct {
	Subnets []subnetJSON `json:"subnets"`
	WANLink *wanLinkJSON `json:"wan_link"`
}

type subnetJSON struct {
	Name      string       `json:"name"`
	ShortName string       `json:"short_name"`
	Network   string       `json:"network"`
	Mask      string       `json:"mask"`   // optional; derived from the prefix
	Accent    string       `json:"accent"` // optional display colour
	Bounds    boundsJSON   `json:"bounds"`
	Gateway   *gatewayJSON `json:"gateway"`
	Hosts     []hostJSON   `json:"hosts"`
}

type boundsJSON struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

type positionJSON struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type gatewayJSON struct {
	Name        string       `json:"name"`
	LANIP       string       `json:"lan_ip"`
	WANIP       string       `json:"wan_ip"`
	Position    positionJSON `json:"position"`
	WANPosition positionJSON `json:"wan_position"`
	Routes      []routeJSON  `json:"routes"`
}

type routeJSON struct {
	Dest    string `json:"dest"`
	NextHop string `json:"next_hop"`
	Iface   string `json:"iface"`
}

type hostJSON struct {
	IP       string        `json:"ip"`
	Position *positionJSON `json:"position"` // optional; laid out in a column when absent
}

type wanLinkJSON struct {
	GatewayA  string `json:"gateway_a"`
	GatewayB  string `json:"gateway_b"`
	Label     string `json:"label"`
	Endpoints string `json:"endpoints"`
}

// DecodeScenario reads a JSON topology from r.
//
// Hosts inherit mask and gateway from their subnet. Hosts without an explicit
// position are stacked in a column HostColumnOffset pixels in from the left
// edge of the subnet box. WAN link endpoints are taken from the two
// gateways' WAN-side positions.
func DecodeScenario(r io.Reader) (Scenario, error) {
	var payload topologyJSON
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&payload); err != nil {
		return Scenario{}, fmt.Errorf("DecodeScenario: decode failed: %w", err)
	}

	var s Scenario
	wanPositions := make(map[string]model.Position)

	for _, js := range payload.Subnets {
		if js.Network == "" {
			return Scenario{}, fmt.Errorf("DecodeScenario: subnet %q with empty network", js.Name)
		}
		subnet := model.Subnet{
			Name:    js.Name,
			Network: js.Network,
			Mask:    js.Mask,
			Accent:  js.Accent,
			Bounds: model.Bounds{
				X:      js.Bounds.X,
				Y:      js.Bounds.Y,
				Width:  js.Bounds.Width,
				Height: js.Bounds.Height,
			},
		}
		subnet.Mask = subnetMask(subnet)
		s.Subnets = append(s.Subnets, subnet)

		gatewayIP := ""
		if js.Gateway != nil {
			gw := model.Gateway{
				Name:        js.Gateway.Name,
				LANIP:       js.Gateway.LANIP,
				WANIP:       js.Gateway.WANIP,
				Subnet:      js.Network,
				Position:    model.Position(js.Gateway.Position),
				WANPosition: model.Position(js.Gateway.WANPosition),
			}
			for _, r := range js.Gateway.Routes {
				gw.RoutingTable = append(gw.RoutingTable, model.RouteEntry{
					Destination: r.Dest,
					NextHop:     r.NextHop,
					Interface:   r.Iface,
				})
			}
			s.Gateways = append(s.Gateways, gw)
			wanPositions[gw.Name] = gw.WANPosition
			gatewayIP = gw.LANIP
		}

		for i, jh := range js.Hosts {
			if jh.IP == "" {
				return Scenario{}, fmt.Errorf("DecodeScenario: host with empty ip in %q", js.Network)
			}
			pos := hostSlot(subnet.Bounds, subnet.Bounds.X+HostColumnOffset, i)
			if jh.Position != nil {
				pos = model.Position(*jh.Position)
			}
			s.Hosts = append(s.Hosts, model.Host{
				IP:         jh.IP,
				Subnet:     js.Network,
				SubnetName: js.ShortName,
				Mask:       subnet.Mask,
				Gateway:    gatewayIP,
				Position:   pos,
				Highlight:  model.HighlightDefault,
			})
		}
	}

	if payload.WANLink != nil {
		s.WAN = &model.WANLink{
			GatewayA:  payload.WANLink.GatewayA,
			GatewayB:  payload.WANLink.GatewayB,
			Start:     wanPositions[payload.WANLink.GatewayA],
			End:       wanPositions[payload.WANLink.GatewayB],
			Label:     payload.WANLink.Label,
			Endpoints: payload.WANLink.Endpoints,
		}
	}

	return s, nil
}

// LoadTopologyScenario decodes a JSON topology from r and loads it into kb.
func LoadTopologyScenario(store *kb.KnowledgeBase, r io.Reader) (*ScenarioSummary, error) {
	s, err := DecodeScenario(r)
	if err != nil {
		return nil, err
	}
	return LoadScenario(store, s)
}

// LoadTopologyFile builds a KB from the JSON file at path, or from
// DefaultScenario when path is empty.
func LoadTopologyFile(path string) (*kb.KnowledgeBase, *ScenarioSummary, error) {
	store := kb.NewKnowledgeBase()
	if path == "" {
		summary, err := LoadScenario(store, DefaultScenario())
		return store, summary, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open topology %q: %w", path, err)
	}
	defer f.Close()

	summary, err := LoadTopologyScenario(store, f)
	if err != nil {
		return nil, nil, fmt.Errorf("load topology %q: %w", path, err)
	}
	return store, summary, nil
}
