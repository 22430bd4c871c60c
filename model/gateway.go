package model

// RouteEntry is one row of a gateway routing table.
type RouteEntry struct {
	Destination string `json:"dest"`
	NextHop     string `json:"next_hop"`
	Interface   string `json:"iface"`
}

// Gateway joins one subnet to the WAN link.
// Routing tables are static display data; they are never consulted for
// forwarding decisions.
type Gateway struct {
	Name         string       `json:"name"`
	LANIP        string       `json:"lan_ip"`
	WANIP        string       `json:"wan_ip"`
	Subnet       string       `json:"subnet"` // network CIDR served on the LAN side
	Position     Position     `json:"position"`
	WANPosition  Position     `json:"wan_position"`
	RoutingTable []RouteEntry `json:"routing_table"`
}

// WANLink connects the WAN sides of exactly two gateways.
type WANLink struct {
	GatewayA  string   `json:"gateway_a"`
	GatewayB  string   `json:"gateway_b"`
	Start     Position `json:"start"`
	End       Position `json:"end"`
	Label     string   `json:"label"`
	Endpoints string   `json:"endpoints"`
}

// Connects reports whether the link joins the two named gateways, in either
// direction.
func (l WANLink) Connects(a, b string) bool {
	return (l.GatewayA == a && l.GatewayB == b) || (l.GatewayA == b && l.GatewayB == a)
}
