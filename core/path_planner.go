package core

import (
	"errors"
	"fmt"

	"github.com/dimalipin/netviz/kb"
	"github.com/dimalipin/netviz/model"
)

var (
	// ErrSameHost indicates source and destination are the same host.
	ErrSameHost = errors.New("source and destination are the same host")
	// ErrNoRoute indicates the topology has no gateway path between two subnets.
	ErrNoRoute = errors.New("no route between subnets")
)

// PathPlanner computes the waypoints a simulated packet visits.
type PathPlanner struct {
	kb *kb.KnowledgeBase
}

// NewPathPlanner binds a planner to a topology.
func NewPathPlanner(store *kb.KnowledgeBase) *PathPlanner {
	return &PathPlanner{kb: store}
}

// PlanPath returns the ordered waypoints from src to dst.
//
// Hosts on the same subnet talk directly: the path is just [src, dst].
// Otherwise the packet goes through its own gateway's LAN side (a routing
// decision), out that gateway's WAN side, across the WAN link to the far
// gateway's WAN side, through the far gateway's LAN side (a second routing
// decision) and on to dst. Which gateway comes first is decided purely by
// each host's subnet, so A->B and B->A are mirror images.
func (p *PathPlanner) PlanPath(src, dst model.Host) ([]model.Waypoint, error) {
	if src.IP == dst.IP {
		return nil, fmt.Errorf("%w: %s", ErrSameHost, src.IP)
	}

	waypoints := []model.Waypoint{hostWaypoint(src)}

	if src.Subnet == dst.Subnet {
		return append(waypoints, hostWaypoint(dst)), nil
	}

	srcGW, err := p.kb.GatewayForSubnet(src.Subnet)
	if err != nil {
		return nil, fmt.Errorf("%w: %s -> %s: %v", ErrNoRoute, src.IP, dst.IP, err)
	}
	dstGW, err := p.kb.GatewayForSubnet(dst.Subnet)
	if err != nil {
		return nil, fmt.Errorf("%w: %s -> %s: %v", ErrNoRoute, src.IP, dst.IP, err)
	}
	wan, ok := p.kb.WANLink()
	if !ok || !wan.Connects(srcGW.Name, dstGW.Name) {
		return nil, fmt.Errorf("%w: no WAN link between %s and %s", ErrNoRoute, srcGW.Name, dstGW.Name)
	}

	waypoints = append(waypoints,
		model.Waypoint{
			Position: srcGW.Position,
			Label:    srcGW.Name + " LAN",
			Action:   model.RouteActionRoute,
			Gateway:  srcGW.Name,
		},
		model.Waypoint{Position: srcGW.WANPosition, Label: srcGW.Name + " WAN"},
		model.Waypoint{Position: dstGW.WANPosition, Label: dstGW.Name + " WAN"},
		model.Waypoint{
			Position: dstGW.Position,
			Label:    dstGW.Name + " LAN",
			Action:   model.RouteActionRoute,
			Gateway:  dstGW.Name,
		},
		hostWaypoint(dst),
	)
	return waypoints, nil
}

// PlanPathByIP looks both hosts up in the topology and plans between them.
func (p *PathPlanner) PlanPathByIP(srcIP, dstIP string) ([]model.Waypoint, error) {
	src, err := p.kb.Host(srcIP)
	if err != nil {
		return nil, err
	}
	dst, err := p.kb.Host(dstIP)
	if err != nil {
		return nil, err
	}
	return p.PlanPath(src, dst)
}

func hostWaypoint(h model.Host) model.Waypoint {
	return model.Waypoint{Position: h.Position, Label: h.IP}
}
