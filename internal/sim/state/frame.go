// internal/sim/state/frame.go
package state

import (
	"fmt"

	"github.com/dimalipin/netviz/model"
)

// PacketView is the drawable projection of the in-flight packet.
type PacketView struct {
	SrcIP    string         `json:"src_ip"`
	DstIP    string         `json:"dst_ip"`
	TTL      int            `json:"ttl"`
	Hops     int            `json:"hops"`
	Position model.Position `json:"position"`
	Label    string         `json:"label"`
	TTLLabel string         `json:"ttl_label"`
}

// Frame is a read-only snapshot of everything a renderer needs for one
// tick. Slices are copies owned by the caller.
type Frame struct {
	RunID string         `json:"run_id,omitempty"`
	Seq   uint64         `json:"seq"`
	State AnimationState `json:"state"`

	Subnets  []model.Subnet  `json:"subnets"`
	Hosts    []model.Host    `json:"hosts"`
	Gateways []model.Gateway `json:"gateways"`
	WANLink  *model.WANLink  `json:"wan_link,omitempty"`

	Packet *PacketView      `json:"packet,omitempty"`
	Path   []model.Waypoint `json:"path,omitempty"`

	SegmentIndex  int     `json:"segment_index"`
	Progress      float64 `json:"progress"`
	PauseTicks    int     `json:"pause_ticks"`
	ActiveGateway string  `json:"active_gateway,omitempty"`
	Annotation    string  `json:"annotation"`
}

func newPacketView(p model.Packet) *PacketView {
	return &PacketView{
		SrcIP:    p.SrcIP,
		DstIP:    p.DstIP,
		TTL:      p.TTL,
		Hops:     p.Hops,
		Position: p.Position,
		Label:    fmt.Sprintf("%s → %s", p.SrcIP, p.DstIP),
		TTLLabel: fmt.Sprintf("TTL: %d", p.TTL),
	}
}
