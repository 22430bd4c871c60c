// internal/sim/state/run.go
package state

import (
	"fmt"

	"github.com/dimalipin/netviz/core"
	"github.com/dimalipin/netviz/internal/datagram"
	"github.com/dimalipin/netviz/model"
)

// AnimationState is the lifecycle phase of the packet currently on screen.
type AnimationState string

const (
	StateIdle      AnimationState = "idle"
	StateMoving    AnimationState = "moving"
	StateGateway   AnimationState = "gateway"
	StateCompleted AnimationState = "completed"
)

const (
	// DefaultSpeed is the fraction of a segment covered per tick.
	DefaultSpeed = 0.01
	// DefaultGatewayPauseTicks is how long a packet rests at a gateway.
	DefaultGatewayPauseTicks = 150
)

// Params tunes the animation. Segment progress is a fixed increment per
// tick, so every segment takes the same number of ticks regardless of its
// on-screen length.
type Params struct {
	Speed             float64
	GatewayPauseTicks int
}

// DefaultParams returns the stock animation timing.
func DefaultParams() Params {
	return Params{Speed: DefaultSpeed, GatewayPauseTicks: DefaultGatewayPauseTicks}
}

func (p Params) normalized() Params {
	if p.Speed <= 0 {
		p.Speed = DefaultSpeed
	}
	if p.GatewayPauseTicks < 0 {
		p.GatewayPauseTicks = 0
	}
	return p
}

// Run is the per-send state of the animation. A new send replaces the whole
// value; Path and Packet.Header are never modified in place, so copies may
// share them.
type Run struct {
	ID    string         `json:"id"`
	Seq   uint64         `json:"seq"`
	State AnimationState `json:"state"`

	Path       []model.Waypoint `json:"path"`
	Index      int              `json:"index"`    // waypoint the packet last left
	Progress   float64          `json:"progress"` // 0..1 along Path[Index] -> Path[Index+1]
	PauseTicks int              `json:"pause_ticks"`

	Packet model.Packet `json:"packet"`

	// ActiveGateway is set only while the packet rests at a gateway.
	ActiveGateway string `json:"active_gateway,omitempty"`
	// LastGateway names the most recent routing decision of this run.
	LastGateway string `json:"last_gateway,omitempty"`

	Ticks int `json:"ticks"`
}

// Active reports whether the run still advances on Tick.
func (r Run) Active() bool {
	return r.State.active()
}

// EventType identifies what a tick or send produced.
type EventType int

const (
	EventSent EventType = iota
	EventGatewayDecision
	EventDelivered
)

func (t EventType) String() string {
	switch t {
	case EventSent:
		return "sent"
	case EventGatewayDecision:
		return "gateway_decision"
	case EventDelivered:
		return "delivered"
	default:
		return fmt.Sprintf("EventType(%d)", int(t))
	}
}

// Event describes a notable transition of a run.
type Event struct {
	Type       EventType
	RunID      string
	SrcIP      string
	DstIP      string
	Gateway    string
	TTL        int
	Hops       int
	Ticks      int
	Annotation string
}

// Step advances run by one tick. It is a pure function: the input is not
// modified and the returned events describe what happened during the tick.
func Step(run Run, params Params) (Run, []Event) {
	params = params.normalized()

	switch run.State {
	case StateMoving:
		return stepMoving(run, params)
	case StateGateway:
		run.Ticks++
		run.PauseTicks--
		if run.PauseTicks <= 0 {
			run.PauseTicks = 0
			run.State = StateMoving
			run.Progress = 0
			run.ActiveGateway = ""
		}
		return run, nil
	default:
		return run, nil
	}
}

func stepMoving(run Run, params Params) (Run, []Event) {
	if run.Index+1 >= len(run.Path) {
		run.State = StateCompleted
		return run, nil
	}
	run.Ticks++

	start, end := run.Path[run.Index], run.Path[run.Index+1]
	run.Progress += params.Speed
	run.Packet.Position = core.LerpPosition(start.Position, end.Position, run.Progress)
	if run.Progress < 1 {
		return run, nil
	}

	run.Index++
	run.Progress = 0
	run.Packet.Hops++
	run.Packet.Position = end.Position

	if run.Index >= len(run.Path)-1 {
		run.State = StateCompleted
		return run, []Event{{
			Type:       EventDelivered,
			RunID:      run.ID,
			SrcIP:      run.Packet.SrcIP,
			DstIP:      run.Packet.DstIP,
			TTL:        run.Packet.TTL,
			Hops:       run.Packet.Hops,
			Ticks:      run.Ticks,
			Annotation: DeliveredAnnotation(run.Packet.TTL, run.Packet.Hops),
		}}
	}

	if !end.IsRoutingPoint() {
		return run, nil
	}

	run.State = StateGateway
	run.PauseTicks = params.GatewayPauseTicks
	run.Packet.TTL = max(0, run.Packet.TTL-1)
	run.ActiveGateway = end.Gateway
	run.LastGateway = end.Gateway
	if run.Packet.Header != nil {
		// Headers are built by Encode, so a rewrite failure means the bytes
		// were replaced with something else; stop carrying them.
		hdr, err := datagram.SetTTL(run.Packet.Header, uint8(run.Packet.TTL))
		if err != nil {
			hdr = nil
		}
		run.Packet.Header = hdr
	}
	return run, []Event{{
		Type:       EventGatewayDecision,
		RunID:      run.ID,
		SrcIP:      run.Packet.SrcIP,
		DstIP:      run.Packet.DstIP,
		Gateway:    end.Gateway,
		TTL:        run.Packet.TTL,
		Hops:       run.Packet.Hops,
		Ticks:      run.Ticks,
		Annotation: GatewayAnnotation(end.Gateway, run.Packet.TTL),
	}}
}

// IdleAnnotation is shown before the first packet is sent.
const IdleAnnotation = "Click 'Send Random Packet' to begin"

// SentAnnotation describes a freshly sent packet.
func SentAnnotation(src, dst model.Host) string {
	if src.Subnet == dst.Subnet {
		return fmt.Sprintf("Same subnet (%s) - Direct delivery from %s → %s", src.Subnet, src.IP, dst.IP)
	}
	return fmt.Sprintf("Different subnets - %s (%s) → %s (%s)", src.IP, src.Subnet, dst.IP, dst.Subnet)
}

// GatewayAnnotation describes a routing decision at gateway.
func GatewayAnnotation(gateway string, ttl int) string {
	return fmt.Sprintf("%s routing decision - TTL decremented to %d (see tables below)", gateway, ttl)
}

// DeliveredAnnotation describes a finished run.
func DeliveredAnnotation(ttl, hops int) string {
	return fmt.Sprintf("Packet delivered! Final TTL: %d, Hops: %d", ttl, hops)
}
