package model

// RouteAction marks what happens when a packet reaches a waypoint.
type RouteAction string

const (
	// RouteActionNone is a plain pass-through waypoint.
	RouteActionNone RouteAction = ""
	// RouteActionRoute is a gateway routing decision: TTL decrement and pause.
	RouteActionRoute RouteAction = "route"
)

// Waypoint is one planned stop along a packet's path.
type Waypoint struct {
	Position Position    `json:"position"`
	Label    string      `json:"label"`
	Action   RouteAction `json:"action,omitempty"`
	// Gateway names the gateway making the decision when Action is
	// RouteActionRoute.
	Gateway string `json:"gateway,omitempty"`
}

// IsRoutingPoint reports whether the waypoint carries a routing-action marker.
func (w Waypoint) IsRoutingPoint() bool {
	return w.Action == RouteActionRoute && w.Gateway != ""
}
