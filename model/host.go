package model

// HighlightState marks how a host is drawn for the current run.
type HighlightState string

const (
	HighlightDefault     HighlightState = "default"
	HighlightSource      HighlightState = "source"
	HighlightDestination HighlightState = "destination"
)

// Subnet is one LAN segment of the topology.
type Subnet struct {
	Name    string `json:"name"`    // "Subnet A"
	Network string `json:"network"` // CIDR, e.g. "192.168.1.0/24"
	Mask    string `json:"mask"`
	Accent  string `json:"accent"` // display colour, e.g. "#89b4fa"
	Bounds  Bounds `json:"bounds"`
}

// Host is an end system attached to exactly one subnet.
//
// Hosts are created once when the topology is loaded; the only field that
// changes afterwards is Highlight.
type Host struct {
	IP         string         `json:"ip"`
	Subnet     string         `json:"subnet"`      // network CIDR the host belongs to
	SubnetName string         `json:"subnet_name"` // short name, e.g. "A"
	Mask       string         `json:"mask"`
	Gateway    string         `json:"gateway"` // LAN IP of the default gateway
	Position   Position       `json:"position"`
	Highlight  HighlightState `json:"highlight"`
}
