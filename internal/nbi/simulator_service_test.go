package nbi

import (
	"context"
	"net"
	"testing"

	"github.com/dimalipin/netviz/core"
	"github.com/dimalipin/netviz/internal/ipheader"
	"github.com/dimalipin/netviz/internal/logging"
	"github.com/dimalipin/netviz/internal/observability"
	"github.com/dimalipin/netviz/internal/sim/state"
	"github.com/dimalipin/netviz/kb"
	"github.com/dimalipin/netviz/model"
	"github.com/prometheus/client_golang/prometheus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

func newTestService(t *testing.T) (*SimulatorService, *state.Simulation) {
	t.Helper()
	sim := state.NewSimulation(core.NewDefaultKnowledgeBase(),
		state.WithParams(state.Params{Speed: 0.5, GatewayPauseTicks: 1}),
		state.WithSeed(7),
	)
	return NewSimulatorService(sim, ipheader.NewInspector(), logging.Noop()), sim
}

func dialService(t *testing.T, svc SimulatorServiceServer) *SimulatorServiceClient {
	t.Helper()

	collector, err := observability.NewAPICollector(prometheus.NewRegistry())
	if err != nil {
		t.Fatalf("NewAPICollector: %v", err)
	}
	lis := bufconn.Listen(1 << 20)
	srv := NewServer(svc, logging.Noop(), collector)
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return NewSimulatorServiceClient(conn)
}

func TestSendRandomPacketStartsRun(t *testing.T) {
	svc, sim := newTestService(t)

	resp, err := svc.SendRandomPacket(context.Background(), &emptypb.Empty{})
	if err != nil {
		t.Fatalf("SendRandomPacket: %v", err)
	}
	if !resp.GetFields()["sent"].GetBoolValue() {
		t.Fatalf("sent = false, want true")
	}
	if got := resp.GetFields()["state"].GetStringValue(); got != string(state.StateMoving) {
		t.Fatalf("state = %q, want moving", got)
	}
	if sim.State() != state.StateMoving {
		t.Fatalf("simulation state = %s, want moving", sim.State())
	}
}

func TestSendRandomPacketWithTooFewHosts(t *testing.T) {
	svc := NewSimulatorService(state.NewSimulation(kb.NewKnowledgeBase()), nil, nil)

	resp, err := svc.SendRandomPacket(context.Background(), &emptypb.Empty{})
	if err != nil {
		t.Fatalf("SendRandomPacket: %v", err)
	}
	if resp.GetFields()["sent"].GetBoolValue() {
		t.Fatalf("sent = true, want false with an empty topology")
	}
	if got := resp.GetFields()["state"].GetStringValue(); got != string(state.StateIdle) {
		t.Fatalf("state = %q, want idle", got)
	}
}

func TestSendPacketErrors(t *testing.T) {
	svc, _ := newTestService(t)

	tests := []struct {
		name     string
		src, dst string
		code     codes.Code
	}{
		{"missing dst", "192.168.1.10", "", codes.InvalidArgument},
		{"same host", "192.168.1.10", "192.168.1.10", codes.InvalidArgument},
		{"unknown host", "192.168.1.10", "172.16.0.1", codes.NotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := mustStruct(t, map[string]any{"src_ip": tt.src, "dst_ip": tt.dst})
			_, err := svc.SendPacket(context.Background(), req)
			if code := status.Code(err); code != tt.code {
				t.Fatalf("SendPacket code = %v, want %v (err=%v)", code, tt.code, err)
			}
		})
	}
}

func TestGetFrameReflectsRun(t *testing.T) {
	svc, sim := newTestService(t)

	idle, err := svc.GetFrame(context.Background(), &emptypb.Empty{})
	if err != nil {
		t.Fatalf("GetFrame: %v", err)
	}
	if _, ok := idle.GetFields()["packet"]; ok {
		t.Fatalf("idle frame carries a packet")
	}
	if got := idle.GetFields()["annotation"].GetStringValue(); got != state.IdleAnnotation {
		t.Fatalf("annotation = %q, want %q", got, state.IdleAnnotation)
	}

	if err := sim.Send(context.Background(), "192.168.1.10", "192.168.2.11"); err != nil {
		t.Fatalf("Send: %v", err)
	}
	sim.Tick()

	frame, err := svc.GetFrame(context.Background(), &emptypb.Empty{})
	if err != nil {
		t.Fatalf("GetFrame: %v", err)
	}
	pkt := frame.GetFields()["packet"].GetStructValue()
	if pkt == nil {
		t.Fatalf("frame has no packet")
	}
	if got := pkt.GetFields()["label"].GetStringValue(); got != "192.168.1.10 → 192.168.2.11" {
		t.Fatalf("label = %q", got)
	}
	if got := len(frame.GetFields()["path"].GetListValue().GetValues()); got != 6 {
		t.Fatalf("path length = %d, want 6", got)
	}
}

func TestGetRoutingTables(t *testing.T) {
	svc, _ := newTestService(t)

	resp, err := svc.GetRoutingTables(context.Background(), &emptypb.Empty{})
	if err != nil {
		t.Fatalf("GetRoutingTables: %v", err)
	}
	gws := resp.GetFields()["gateways"].GetListValue().GetValues()
	if len(gws) != 2 {
		t.Fatalf("gateways = %d, want 2", len(gws))
	}
	first := gws[0].GetStructValue()
	if got := first.GetFields()["name"].GetStringValue(); got != "Gateway A" {
		t.Fatalf("first gateway = %q, want Gateway A", got)
	}
	routes := first.GetFields()["routes"].GetListValue().GetValues()
	if len(routes) != 2 {
		t.Fatalf("routes = %d, want 2", len(routes))
	}
	if got := routes[1].GetStructValue().GetFields()["next_hop"].GetStringValue(); got != "10.0.0.2" {
		t.Fatalf("next hop = %q, want 10.0.0.2", got)
	}
}

func TestDescribeField(t *testing.T) {
	svc, sim := newTestService(t)

	resp, err := svc.DescribeField(context.Background(), wrapperspb.String("ttl"))
	if err != nil {
		t.Fatalf("DescribeField: %v", err)
	}
	if _, ok := resp.GetFields()["live"]; ok {
		t.Fatalf("live value present before any packet was sent")
	}
	if got := resp.GetFields()["field"].GetStructValue().GetFields()["title"].GetStringValue(); got == "" {
		t.Fatalf("field title is empty")
	}

	if err := sim.Send(context.Background(), "192.168.1.10", "192.168.1.11"); err != nil {
		t.Fatalf("Send: %v", err)
	}
	resp, err = svc.DescribeField(context.Background(), wrapperspb.String("ttl"))
	if err != nil {
		t.Fatalf("DescribeField: %v", err)
	}
	live := resp.GetFields()["live"].GetStructValue()
	if got := live.GetFields()["value"].GetStringValue(); got != "64" {
		t.Fatalf("live ttl = %q, want 64", got)
	}

	_, err = svc.DescribeField(context.Background(), wrapperspb.String("bogus"))
	if code := status.Code(err); code != codes.NotFound {
		t.Fatalf("unknown field code = %v, want NotFound", code)
	}
}

func TestDescribeFieldLeavesSelectionAlone(t *testing.T) {
	svc, _ := newTestService(t)

	for _, key := range []string{"ttl", "src-ip", "checksum"} {
		if _, err := svc.DescribeField(context.Background(), wrapperspb.String(key)); err != nil {
			t.Fatalf("DescribeField(%s): %v", key, err)
		}
	}
	if got := svc.inspector.Selected().Key; got != ipheader.DefaultField {
		t.Fatalf("selected = %q after reads, want %q", got, ipheader.DefaultField)
	}

	resp, err := svc.DescribeField(context.Background(), wrapperspb.String(""))
	if err != nil {
		t.Fatalf("DescribeField(\"\"): %v", err)
	}
	if got := resp.GetFields()["field"].GetStructValue().GetFields()["key"].GetStringValue(); got != ipheader.DefaultField {
		t.Fatalf("empty key described %q, want the selection %q", got, ipheader.DefaultField)
	}
}

func TestSelectField(t *testing.T) {
	svc, _ := newTestService(t)

	if _, err := svc.SelectField(context.Background(), wrapperspb.String("ttl")); err != nil {
		t.Fatalf("SelectField: %v", err)
	}
	if got := svc.inspector.Selected().Key; got != "ttl" {
		t.Fatalf("selected = %q, want ttl", got)
	}

	resp, err := svc.DescribeField(context.Background(), wrapperspb.String(""))
	if err != nil {
		t.Fatalf("DescribeField: %v", err)
	}
	if got := resp.GetFields()["field"].GetStructValue().GetFields()["key"].GetStringValue(); got != "ttl" {
		t.Fatalf("empty key described %q, want ttl", got)
	}

	_, err = svc.SelectField(context.Background(), wrapperspb.String("bogus"))
	if code := status.Code(err); code != codes.NotFound {
		t.Fatalf("unknown field code = %v, want NotFound", code)
	}
	if got := svc.inspector.Selected().Key; got != "ttl" {
		t.Fatalf("selection changed to %q after a failed select", got)
	}
}

func TestResetAndListRuns(t *testing.T) {
	svc, sim := newTestService(t)
	ctx := context.Background()

	if _, err := svc.SendPacket(ctx, mustStruct(t, map[string]any{"src_ip": "192.168.1.10", "dst_ip": "192.168.2.11"})); err != nil {
		t.Fatalf("SendPacket: %v", err)
	}
	runs, err := svc.ListRuns(ctx, &emptypb.Empty{})
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	list := runs.GetFields()["runs"].GetListValue().GetValues()
	if len(list) != 1 {
		t.Fatalf("runs = %d, want 1", len(list))
	}
	if got := list[0].GetStructValue().GetFields()["dst_ip"].GetStringValue(); got != "192.168.2.11" {
		t.Fatalf("run dst = %q, want 192.168.2.11", got)
	}

	frame, err := svc.ResetSimulation(ctx, &emptypb.Empty{})
	if err != nil {
		t.Fatalf("ResetSimulation: %v", err)
	}
	if got := frame.GetFields()["state"].GetStringValue(); got != string(state.StateIdle) {
		t.Fatalf("state after reset = %q, want idle", got)
	}
	if sim.State() != state.StateIdle {
		t.Fatalf("simulation state = %s, want idle", sim.State())
	}
	for _, h := range sim.Topology().Hosts() {
		if h.Highlight != model.HighlightDefault {
			t.Fatalf("host %s still highlighted after reset", h.IP)
		}
	}
}

func TestServiceNotReady(t *testing.T) {
	svc := NewSimulatorService(nil, nil, nil)
	_, err := svc.GetFrame(context.Background(), &emptypb.Empty{})
	if code := status.Code(err); code != codes.FailedPrecondition {
		t.Fatalf("code = %v, want FailedPrecondition", code)
	}
}

func TestServerRoundTrip(t *testing.T) {
	svc, _ := newTestService(t)
	client := dialService(t, svc)

	ctx := metadata.AppendToOutgoingContext(context.Background(), requestIDMetadataKey, "req-42")
	var header metadata.MD
	resp, err := client.SendPacket(ctx, "192.168.1.12", "192.168.2.13", grpc.Header(&header))
	if err != nil {
		t.Fatalf("SendPacket: %v", err)
	}
	if !resp.GetFields()["sent"].GetBoolValue() {
		t.Fatalf("sent = false")
	}
	if got := firstHeader(header, requestIDMetadataKey); got != "req-42" {
		t.Fatalf("x-request-id header = %q, want req-42", got)
	}

	scene, err := client.GetScene(context.Background())
	if err != nil {
		t.Fatalf("GetScene: %v", err)
	}
	if got := scene.GetFields()["width"].GetNumberValue(); got != core.CanvasWidth {
		t.Fatalf("scene width = %v, want %v", got, core.CanvasWidth)
	}

	_, err = client.DescribeField(context.Background(), "nope")
	if code := status.Code(err); code != codes.NotFound {
		t.Fatalf("DescribeField code = %v, want NotFound", code)
	}
	if _, err := client.SelectField(context.Background(), "ttl"); err != nil {
		t.Fatalf("SelectField: %v", err)
	}
	if got := svc.inspector.Selected().Key; got != "ttl" {
		t.Fatalf("selected = %q, want ttl", got)
	}
	runs, err := client.ListRuns(context.Background())
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	if got := len(runs.GetFields()["runs"].GetListValue().GetValues()); got != 1 {
		t.Fatalf("runs = %d, want 1", got)
	}
	if _, err := client.ResetSimulation(context.Background()); err != nil {
		t.Fatalf("ResetSimulation: %v", err)
	}

	_, err = client.SendPacket(context.Background(), "192.168.1.12", "192.168.1.12")
	if code := status.Code(err); code != codes.InvalidArgument {
		t.Fatalf("SendPacket same host code = %v, want InvalidArgument", code)
	}
}

func TestServerHealth(t *testing.T) {
	svc, _ := newTestService(t)
	lis := bufconn.Listen(1 << 20)
	srv := NewServer(svc, nil, nil)
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	defer conn.Close()

	resp, err := healthpb.NewHealthClient(conn).Check(context.Background(), &healthpb.HealthCheckRequest{Service: SimulatorServiceName})
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if resp.GetStatus() != healthpb.HealthCheckResponse_SERVING {
		t.Fatalf("status = %v, want SERVING", resp.GetStatus())
	}
}
