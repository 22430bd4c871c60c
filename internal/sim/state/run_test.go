package state

import (
	"bytes"
	"testing"

	"github.com/dimalipin/netviz/core"
	"github.com/dimalipin/netviz/internal/datagram"
	"github.com/dimalipin/netviz/model"
)

func gatewayPath() []model.Waypoint {
	return []model.Waypoint{
		{Position: model.Position{X: 0, Y: 0}, Label: "src"},
		{Position: model.Position{X: 100, Y: 0}, Label: "GW LAN", Action: model.RouteActionRoute, Gateway: "GW"},
		{Position: model.Position{X: 100, Y: 100}, Label: "dst"},
	}
}

func movingRun(path []model.Waypoint) Run {
	return Run{
		ID:    "run-1",
		State: StateMoving,
		Path:  path,
		Packet: model.Packet{
			SrcIP:    "10.0.0.1",
			DstIP:    "10.0.0.2",
			TTL:      model.DefaultTTL,
			Position: path[0].Position,
		},
	}
}

func TestStepInterpolatesAlongSegment(t *testing.T) {
	run := movingRun(gatewayPath())
	params := Params{Speed: 0.5, GatewayPauseTicks: 3}

	next, events := Step(run, params)
	if len(events) != 0 {
		t.Fatalf("unexpected events: %+v", events)
	}
	if next.Packet.Position != (model.Position{X: 50, Y: 0}) {
		t.Fatalf("position = %+v, want (50,0)", next.Packet.Position)
	}
	if next.State != StateMoving || next.Index != 0 || next.Progress != 0.5 {
		t.Fatalf("unexpected run after one tick: %+v", next)
	}
}

func TestStepIsPure(t *testing.T) {
	hdr, err := datagram.Encode(datagram.Spec{SrcIP: "10.0.0.1", DstIP: "10.0.0.2", TTL: 64, ID: 1})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	orig := append([]byte(nil), hdr...)

	run := movingRun(gatewayPath())
	run.Packet.Header = hdr
	run.Progress = 0.5

	next, _ := Step(run, Params{Speed: 0.5, GatewayPauseTicks: 3})
	if next.State != StateGateway {
		t.Fatalf("state = %s, want gateway", next.State)
	}
	if run.State != StateMoving || run.Packet.TTL != model.DefaultTTL || run.Progress != 0.5 {
		t.Fatalf("input run was modified: %+v", run)
	}
	if !bytes.Equal(run.Packet.Header, orig) {
		t.Fatalf("input header was modified")
	}
}

func TestStepGatewayDecision(t *testing.T) {
	hdr, err := datagram.Encode(datagram.Spec{SrcIP: "10.0.0.1", DstIP: "10.0.0.2", TTL: 64, ID: 1})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	run := movingRun(gatewayPath())
	run.Packet.Header = hdr
	params := Params{Speed: 0.5, GatewayPauseTicks: 3}

	run, _ = Step(run, params)
	run, events := Step(run, params)

	if run.State != StateGateway {
		t.Fatalf("state = %s, want gateway", run.State)
	}
	if run.Packet.TTL != 63 || run.Packet.Hops != 1 {
		t.Fatalf("ttl=%d hops=%d, want 63/1", run.Packet.TTL, run.Packet.Hops)
	}
	if run.PauseTicks != 3 || run.ActiveGateway != "GW" {
		t.Fatalf("pause=%d active=%q, want 3/GW", run.PauseTicks, run.ActiveGateway)
	}
	if run.Packet.Position != (model.Position{X: 100, Y: 0}) {
		t.Fatalf("position = %+v, want snapped to gateway", run.Packet.Position)
	}
	if len(events) != 1 || events[0].Type != EventGatewayDecision {
		t.Fatalf("events = %+v, want one gateway decision", events)
	}
	if want := "GW routing decision - TTL decremented to 63 (see tables below)"; events[0].Annotation != want {
		t.Fatalf("annotation = %q, want %q", events[0].Annotation, want)
	}

	ip, err := datagram.Decode(run.Packet.Header)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if ip.TTL != 63 {
		t.Fatalf("header TTL = %d, want 63", ip.TTL)
	}
	if !datagram.ChecksumValid(run.Packet.Header) {
		t.Fatalf("header checksum invalid after TTL rewrite")
	}
}

func TestGatewayPauseLastsConfiguredTicks(t *testing.T) {
	for _, pause := range []int{1, 3, 150} {
		run := movingRun(gatewayPath())
		params := Params{Speed: 0.5, GatewayPauseTicks: pause}

		run, _ = Step(run, params)
		run, _ = Step(run, params)
		if run.State != StateGateway {
			t.Fatalf("pause %d: state = %s, want gateway", pause, run.State)
		}

		ticks := 0
		for run.State == StateGateway {
			pos := run.Packet.Position
			run, _ = Step(run, params)
			ticks++
			if run.Packet.Position != pos {
				t.Fatalf("pause %d: packet moved while paused", pause)
			}
			if ticks > pause+1 {
				t.Fatalf("pause %d: still paused after %d ticks", pause, ticks)
			}
		}
		if ticks != pause {
			t.Fatalf("pause %d: resumed after %d ticks", pause, ticks)
		}
		if run.State != StateMoving || run.Progress != 0 || run.ActiveGateway != "" {
			t.Fatalf("pause %d: unexpected run after resume: %+v", pause, run)
		}
		if run.LastGateway != "GW" {
			t.Fatalf("pause %d: LastGateway = %q, want GW", pause, run.LastGateway)
		}
	}
}

func TestStepTTLFloorsAtZero(t *testing.T) {
	run := movingRun(gatewayPath())
	run.Packet.TTL = 0
	run.Progress = 0.5

	next, events := Step(run, Params{Speed: 0.5, GatewayPauseTicks: 1})
	if next.Packet.TTL != 0 {
		t.Fatalf("TTL = %d, want 0", next.Packet.TTL)
	}
	if len(events) != 1 || events[0].TTL != 0 {
		t.Fatalf("events = %+v", events)
	}
}

func TestStepDelivery(t *testing.T) {
	path := []model.Waypoint{
		{Position: model.Position{X: 0, Y: 0}},
		{Position: model.Position{X: 0, Y: 40}},
	}
	run := movingRun(path)
	params := Params{Speed: 0.25, GatewayPauseTicks: 3}

	var events []Event
	for range 4 {
		run, events = Step(run, params)
	}
	if run.State != StateCompleted {
		t.Fatalf("state = %s, want completed", run.State)
	}
	if run.Packet.Position != path[1].Position {
		t.Fatalf("position = %+v, want %+v", run.Packet.Position, path[1].Position)
	}
	if len(events) != 1 || events[0].Type != EventDelivered {
		t.Fatalf("events = %+v, want delivered", events)
	}
	if want := "Packet delivered! Final TTL: 64, Hops: 1"; events[0].Annotation != want {
		t.Fatalf("annotation = %q, want %q", events[0].Annotation, want)
	}
	if events[0].Ticks != 4 {
		t.Fatalf("ticks = %d, want 4", events[0].Ticks)
	}
}

func TestStepNoopStates(t *testing.T) {
	for _, st := range []AnimationState{StateIdle, StateCompleted} {
		run := movingRun(gatewayPath())
		run.State = st
		run.Packet.Position = model.Position{X: 7, Y: 7}

		next, events := Step(run, DefaultParams())
		if len(events) != 0 || next.State != st || next.Packet.Position != run.Packet.Position || next.Ticks != 0 {
			t.Fatalf("Step(%s) changed run: %+v events=%+v", st, next, events)
		}
	}
}

func TestStepZeroSpeedUsesDefault(t *testing.T) {
	run := movingRun(gatewayPath())
	next, _ := Step(run, Params{})
	if next.Progress != DefaultSpeed {
		t.Fatalf("progress = %v, want %v", next.Progress, DefaultSpeed)
	}
}

func TestStepKeepsPacketOnCurrentSegment(t *testing.T) {
	run := movingRun(gatewayPath())
	params := Params{Speed: 0.1, GatewayPauseTicks: 2}

	for i := 0; run.State != StateCompleted; i++ {
		if i > 1000 {
			t.Fatalf("run did not complete")
		}
		next, _ := Step(run, params)
		switch next.State {
		case StateMoving:
			a, b := next.Path[next.Index].Position, next.Path[next.Index+1].Position
			if !core.OnSegment(next.Packet.Position, a, b, 1e-9) {
				t.Fatalf("tick %d: %+v not on segment %+v-%+v", i, next.Packet.Position, a, b)
			}
		case StateGateway, StateCompleted:
			if next.Packet.Position != next.Path[next.Index].Position {
				t.Fatalf("tick %d: %+v not at waypoint %d", i, next.Packet.Position, next.Index)
			}
		}
		run = next
	}
}

func TestSentAnnotation(t *testing.T) {
	a1 := model.Host{IP: "192.168.1.10", Subnet: "192.168.1.0/24"}
	a2 := model.Host{IP: "192.168.1.11", Subnet: "192.168.1.0/24"}
	b1 := model.Host{IP: "192.168.2.10", Subnet: "192.168.2.0/24"}

	tests := []struct {
		name     string
		src, dst model.Host
		want     string
	}{
		{"same subnet", a1, a2, "Same subnet (192.168.1.0/24) - Direct delivery from 192.168.1.10 → 192.168.1.11"},
		{"cross subnet", a1, b1, "Different subnets - 192.168.1.10 (192.168.1.0/24) → 192.168.2.10 (192.168.2.0/24)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SentAnnotation(tt.src, tt.dst); got != tt.want {
				t.Fatalf("SentAnnotation = %q, want %q", got, tt.want)
			}
		})
	}
}
