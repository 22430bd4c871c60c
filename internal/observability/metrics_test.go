package observability

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
	"go.opentelemetry.io/otel"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/dimalipin/netviz/internal/sim/state"
)

func TestUnaryInterceptorRecordsMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	collector, err := NewAPICollector(reg)
	if err != nil {
		t.Fatalf("NewAPICollector: %v", err)
	}

	interceptor := collector.UnaryServerInterceptor()
	info := &grpc.UnaryServerInfo{FullMethod: "/netviz.nbi.v1.SimulatorService/SendRandomPacket"}

	_, err = interceptor(context.Background(), struct{}{}, info, func(ctx context.Context, req interface{}) (interface{}, error) {
		time.Sleep(5 * time.Millisecond)
		return "ok", nil
	})
	if err != nil {
		t.Fatalf("interceptor handler returned error: %v", err)
	}

	if got := testutil.ToFloat64(collector.RPCRequests.WithLabelValues("SimulatorService", "SendRandomPacket", "OK")); got != 1 {
		t.Fatalf("netviz_rpc_requests_total = %v, want 1", got)
	}

	if count := histogramSampleCount(t, reg, "netviz_rpc_request_duration_seconds", map[string]string{
		"service": "SimulatorService",
		"method":  "SendRandomPacket",
	}); count != 1 {
		t.Fatalf("netviz_rpc_request_duration_seconds sample_count = %d, want 1", count)
	}
}

func TestUnaryInterceptorRecordsErrorCode(t *testing.T) {
	reg := prometheus.NewRegistry()
	collector, err := NewAPICollector(reg)
	if err != nil {
		t.Fatalf("NewAPICollector: %v", err)
	}

	interceptor := collector.UnaryServerInterceptor()
	info := &grpc.UnaryServerInfo{FullMethod: "/netviz.nbi.v1.SimulatorService/DescribeField"}

	_, _ = interceptor(context.Background(), struct{}{}, info, func(ctx context.Context, req interface{}) (interface{}, error) {
		return nil, status.Error(codes.NotFound, "no such field")
	})

	if got := testutil.ToFloat64(collector.RPCRequests.WithLabelValues("SimulatorService", "DescribeField", "NotFound")); got != 1 {
		t.Fatalf("netviz_rpc_requests_total error label = %v, want 1", got)
	}
}

func TestCollectorToleratesReRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	first, err := NewAPICollector(reg)
	if err != nil {
		t.Fatalf("first NewAPICollector: %v", err)
	}
	second, err := NewAPICollector(reg)
	if err != nil {
		t.Fatalf("second NewAPICollector: %v", err)
	}
	first.RPCRequests.WithLabelValues("svc", "m", "OK").Inc()
	if got := testutil.ToFloat64(second.RPCRequests.WithLabelValues("svc", "m", "OK")); got != 1 {
		t.Fatalf("collectors do not share counters: got %v", got)
	}

	if _, err := NewSimCollector(reg); err != nil {
		t.Fatalf("NewSimCollector: %v", err)
	}
	if _, err := NewSimCollector(reg); err != nil {
		t.Fatalf("second NewSimCollector: %v", err)
	}
}

func TestInstrumentHTTP(t *testing.T) {
	reg := prometheus.NewRegistry()
	collector, err := NewAPICollector(reg)
	if err != nil {
		t.Fatalf("NewAPICollector: %v", err)
	}

	h := collector.InstrumentHTTP("frame", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/simulation/frame", nil))

	if got := testutil.ToFloat64(collector.HTTPRequests.WithLabelValues("frame", "418", "get")); got != 1 {
		t.Fatalf("netviz_http_requests_total = %v, want 1", got)
	}
	if count := histogramSampleCount(t, reg, "netviz_http_request_duration_seconds", map[string]string{
		"handler": "frame",
	}); count != 1 {
		t.Fatalf("netviz_http_request_duration_seconds sample_count = %d, want 1", count)
	}
}

func TestSimCollectorRecordsRun(t *testing.T) {
	reg := prometheus.NewRegistry()
	c, err := NewSimCollector(reg)
	if err != nil {
		t.Fatalf("NewSimCollector: %v", err)
	}

	c.PacketSent(true)
	c.PacketSent(false)
	c.Tick(state.StateMoving)
	if got := testutil.ToFloat64(c.PacketInFlight); got != 1 {
		t.Fatalf("packet_in_flight = %v, want 1", got)
	}
	c.GatewayDecision("Gateway A")
	c.GatewayDecision("Gateway B")
	c.PacketDelivered(62, 5, 1051)
	c.Tick(state.StateCompleted)

	if got := testutil.ToFloat64(c.PacketsSent.WithLabelValues("routed")); got != 1 {
		t.Fatalf("packets_sent{routed} = %v, want 1", got)
	}
	if got := testutil.ToFloat64(c.PacketsSent.WithLabelValues("local")); got != 1 {
		t.Fatalf("packets_sent{local} = %v, want 1", got)
	}
	if got := testutil.ToFloat64(c.GatewayDecisions.WithLabelValues("Gateway A")); got != 1 {
		t.Fatalf("gateway_decisions{Gateway A} = %v, want 1", got)
	}
	if got := testutil.ToFloat64(c.PacketsDelivered); got != 1 {
		t.Fatalf("packets_delivered = %v, want 1", got)
	}
	if got := testutil.ToFloat64(c.Ticks); got != 2 {
		t.Fatalf("sim_ticks = %v, want 2", got)
	}
	if got := testutil.ToFloat64(c.PacketInFlight); got != 0 {
		t.Fatalf("packet_in_flight = %v, want 0", got)
	}
	if count := histogramSampleCount(t, reg, "netviz_delivered_hops", nil); count != 1 {
		t.Fatalf("netviz_delivered_hops sample_count = %d, want 1", count)
	}
}

func TestNilSimCollectorIsSafe(t *testing.T) {
	var c *SimCollector
	c.PacketSent(true)
	c.GatewayDecision("x")
	c.PacketDelivered(1, 1, 1)
	c.Tick(state.StateIdle)
	if c.Gatherer() != nil {
		t.Fatalf("nil collector returned a gatherer")
	}
}

func TestMetricsHandlerExposesTopologyGauges(t *testing.T) {
	reg := prometheus.NewRegistry()
	collector, err := NewAPICollector(reg)
	if err != nil {
		t.Fatalf("NewAPICollector: %v", err)
	}
	collector.SetTopologyCounts(2, 8, 2)
	collector.RPCRequests.WithLabelValues("svc", "method", "OK").Inc()
	collector.RPCDurations.WithLabelValues("svc", "method").Observe(0.01)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rr := httptest.NewRecorder()
	collector.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("/metrics status = %d, want 200", rr.Code)
	}
	body := rr.Body.String()
	for _, metric := range []string{
		"netviz_rpc_requests_total",
		"netviz_rpc_request_duration_seconds",
		"netviz_topology_subnets 2",
		"netviz_topology_hosts 8",
		"netviz_topology_gateways 2",
	} {
		if !strings.Contains(body, metric) {
			t.Fatalf("expected %q in /metrics output", metric)
		}
	}
}

func TestSplitMethod(t *testing.T) {
	tests := []struct {
		in            string
		service, meth string
	}{
		{"/netviz.nbi.v1.SimulatorService/GetFrame", "SimulatorService", "GetFrame"},
		{"SimulatorService/GetFrame", "SimulatorService", "GetFrame"},
		{"", "unknown", "unknown"},
		{"/only", "unknown", "unknown"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			s, m := SplitMethod(tt.in)
			if s != tt.service || m != tt.meth {
				t.Fatalf("SplitMethod(%q) = %q/%q, want %q/%q", tt.in, s, m, tt.service, tt.meth)
			}
		})
	}
}

func TestInitTracingStdout(t *testing.T) {
	var buf bytes.Buffer
	shutdown, err := InitTracing(context.Background(), TracingConfig{
		Enabled:     true,
		ServiceName: "netviz-test",
		Exporter:    "stdout",
		SampleRatio: 1,
		Writer:      &buf,
	}, nil)
	if err != nil {
		t.Fatalf("InitTracing: %v", err)
	}
	_, span := otel.Tracer("test").Start(context.Background(), "send")
	span.End()
	ShutdownWithTimeout(context.Background(), shutdown, nil)

	if !strings.Contains(buf.String(), `"Name": "send"`) {
		t.Fatalf("span not exported: %s", buf.String())
	}
}

func TestInitTracingRejectsUnknownExporter(t *testing.T) {
	if _, err := InitTracing(context.Background(), TracingConfig{Enabled: true, Exporter: "zipkin"}, nil); err == nil {
		t.Fatalf("expected error for unsupported exporter")
	}
}

func histogramSampleCount(t *testing.T, gatherer prometheus.Gatherer, name string, labels map[string]string) uint64 {
	t.Helper()

	metrics, err := gatherer.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	for _, mf := range metrics {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.Metric {
			if matchLabels(m.GetLabel(), labels) && m.GetHistogram() != nil {
				return m.GetHistogram().GetSampleCount()
			}
		}
	}
	return 0
}

func matchLabels(got []*dto.LabelPair, want map[string]string) bool {
	if len(got) < len(want) {
		return false
	}
	matched := 0
	for _, lp := range got {
		if val, ok := want[lp.GetName()]; ok && val == lp.GetValue() {
			matched++
		}
	}
	return matched == len(want)
}
