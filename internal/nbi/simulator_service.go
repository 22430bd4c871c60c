package nbi

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/dimalipin/netviz/internal/ipheader"
	"github.com/dimalipin/netviz/internal/logging"
	"github.com/dimalipin/netviz/internal/render"
	"github.com/dimalipin/netviz/internal/sim/state"
	"github.com/dimalipin/netviz/model"
	"go.opentelemetry.io/otel/attribute"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// SimulatorService exposes the running simulation over gRPC. Responses are
// google.protobuf.Struct values carrying the same JSON documents the HTTP
// API serves.
type SimulatorService struct {
	sim       *state.Simulation
	inspector *ipheader.Inspector
	log       logging.Logger
}

// NewSimulatorService wires the service to a simulation and a header
// inspector. A nil inspector gets a fresh one.
func NewSimulatorService(sim *state.Simulation, inspector *ipheader.Inspector, log logging.Logger) *SimulatorService {
	if inspector == nil {
		inspector = ipheader.NewInspector()
	}
	if log == nil {
		log = logging.Noop()
	}
	return &SimulatorService{sim: sim, inspector: inspector, log: log}
}

var _ SimulatorServiceServer = (*SimulatorService)(nil)

// SendRandomPacket sends a packet between two random hosts.
func (s *SimulatorService) SendRandomPacket(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	if err := s.ensureReady(); err != nil {
		return nil, ToStatusError(err)
	}
	ctx, span := StartChildSpan(ctx, "SimulatorService.SendRandomPacket", "", "")
	defer span.End()

	sent, err := s.sim.SendRandom(ctx)
	if err != nil {
		span.RecordError(err)
		return nil, ToStatusError(err)
	}
	return s.sendResult(sent)
}

// SendPacket sends a packet between the hosts named by the src_ip and
// dst_ip fields of req.
func (s *SimulatorService) SendPacket(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if err := s.ensureReady(); err != nil {
		return nil, ToStatusError(err)
	}
	src := req.GetFields()["src_ip"].GetStringValue()
	dst := req.GetFields()["dst_ip"].GetStringValue()
	if src == "" || dst == "" {
		return nil, ToStatusError(fmt.Errorf("%w: src_ip and dst_ip are required", ErrInvalidArgument))
	}

	ctx, span := StartChildSpan(ctx, "SimulatorService.SendPacket", "host", src, attribute.String("packet.dst", dst))
	defer span.End()

	if err := s.sim.Send(ctx, src, dst); err != nil {
		span.RecordError(err)
		s.logger(ctx).Debug(ctx, "send rejected", logging.Err(err))
		return nil, ToStatusError(err)
	}
	return s.sendResult(true)
}

// GetFrame returns the current frame snapshot.
func (s *SimulatorService) GetFrame(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	if err := s.ensureReady(); err != nil {
		return nil, ToStatusError(err)
	}
	return toStruct(s.sim.Frame())
}

// GetScene returns the draw list for the current frame.
func (s *SimulatorService) GetScene(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	if err := s.ensureReady(); err != nil {
		return nil, ToStatusError(err)
	}
	return toStruct(render.BuildScene(s.sim.Frame()))
}

// GetRoutingTables returns the routing table of every gateway.
func (s *SimulatorService) GetRoutingTables(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	if err := s.ensureReady(); err != nil {
		return nil, ToStatusError(err)
	}
	return toStruct(RoutingTables(s.sim.Topology().Gateways()))
}

// DescribeField returns the catalog entry of a header field along with its
// value in the in-flight packet, if any. An empty key describes the field
// currently selected. The selection itself is left alone.
func (s *SimulatorService) DescribeField(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error) {
	if err := s.ensureReady(); err != nil {
		return nil, ToStatusError(err)
	}
	key := req.GetValue()
	if key == "" {
		key = s.inspector.Selected().Key
	}
	resp, err := DescribeHeaderField(s.sim.Header(), key)
	if err != nil {
		return nil, ToStatusError(err)
	}
	return toStruct(resp)
}

// SelectField makes a header field the shared selection and describes it.
func (s *SimulatorService) SelectField(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error) {
	if err := s.ensureReady(); err != nil {
		return nil, ToStatusError(err)
	}
	resp, err := SelectField(s.inspector, s.sim.Header(), req.GetValue())
	if err != nil {
		return nil, ToStatusError(err)
	}
	s.logger(ctx).Debug(ctx, "header field selected", logging.String("field", resp.Field.Key))
	return toStruct(resp)
}

// ResetSimulation drops the run in flight and clears host highlights.
func (s *SimulatorService) ResetSimulation(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	if err := s.ensureReady(); err != nil {
		return nil, ToStatusError(err)
	}
	s.sim.Reset()
	return toStruct(s.sim.Frame())
}

// ListRuns returns the bookkeeping of the most recent runs, oldest first.
func (s *SimulatorService) ListRuns(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	if err := s.ensureReady(); err != nil {
		return nil, ToStatusError(err)
	}
	return toStruct(RunsResponse{Runs: s.sim.Timeline().Summaries()})
}

// SelectField selects key (DefaultField when empty) on the inspector and
// describes it against header.
func SelectField(inspector *ipheader.Inspector, header []byte, key string) (FieldDescription, error) {
	if key == "" {
		key = ipheader.DefaultField
	}
	if _, err := inspector.Select(key); err != nil {
		return FieldDescription{}, err
	}
	return DescribeHeaderField(header, key)
}

// DescribeHeaderField pairs the catalog entry of key with its value in
// header, when header is set.
func DescribeHeaderField(header []byte, key string) (FieldDescription, error) {
	if key == "" {
		key = ipheader.DefaultField
	}
	field, ok := ipheader.Lookup(key)
	if !ok {
		return FieldDescription{}, fmt.Errorf("%w: %q", ipheader.ErrUnknownField, key)
	}

	resp := FieldDescription{Field: field}
	if len(header) == 0 {
		return resp, nil
	}
	values, err := ipheader.Describe(header)
	if err != nil {
		return FieldDescription{}, err
	}
	for i := range values {
		if values[i].Key == key {
			resp.Live = &values[i]
			break
		}
	}
	return resp, nil
}

func (s *SimulatorService) ensureReady() error {
	if s == nil || s.sim == nil {
		return ErrNotReady
	}
	return nil
}

func (s *SimulatorService) logger(ctx context.Context) logging.Logger {
	if l := logging.LoggerFromContext(ctx); l != nil {
		return l
	}
	return s.log
}

func (s *SimulatorService) sendResult(sent bool) (*structpb.Struct, error) {
	return toStruct(NewSendResult(sent, s.sim.Frame()))
}

// SendResult is the body of a send response: whether a packet went out and
// the frame right after the send.
type SendResult struct {
	Sent       bool                 `json:"sent"`
	State      state.AnimationState `json:"state"`
	Annotation string               `json:"annotation"`
	Frame      state.Frame          `json:"frame"`
}

// NewSendResult builds a SendResult from the frame taken after a send.
func NewSendResult(sent bool, f state.Frame) SendResult {
	return SendResult{Sent: sent, State: f.State, Annotation: f.Annotation, Frame: f}
}

// GatewayTable is the routing table display of one gateway.
type GatewayTable struct {
	Name   string             `json:"name"`
	LANIP  string             `json:"lan_ip"`
	WANIP  string             `json:"wan_ip"`
	Routes []model.RouteEntry `json:"routes"`
}

// RoutingTablesResponse lists the routing tables of all gateways.
type RoutingTablesResponse struct {
	Gateways []GatewayTable `json:"gateways"`
}

// RoutingTables projects gateways onto their routing table display.
func RoutingTables(gateways []model.Gateway) RoutingTablesResponse {
	out := RoutingTablesResponse{Gateways: make([]GatewayTable, 0, len(gateways))}
	for _, gw := range gateways {
		out.Gateways = append(out.Gateways, GatewayTable{
			Name:   gw.Name,
			LANIP:  gw.LANIP,
			WANIP:  gw.WANIP,
			Routes: append([]model.RouteEntry(nil), gw.RoutingTable...),
		})
	}
	return out
}

// FieldDescription is a catalog entry plus its live value.
type FieldDescription struct {
	Field ipheader.Field  `json:"field"`
	Live  *ipheader.Value `json:"live,omitempty"`
}

// RunsResponse lists recent run summaries.
type RunsResponse struct {
	Runs []state.RunSummary `json:"runs"`
}

// toStruct converts v to a Struct through its JSON form so the gRPC and HTTP
// surfaces share one document shape.
func toStruct(v any) (*structpb.Struct, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, ToStatusError(fmt.Errorf("marshal response: %w", err))
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, ToStatusError(fmt.Errorf("unmarshal response: %w", err))
	}
	out, err := structpb.NewStruct(m)
	if err != nil {
		return nil, ToStatusError(fmt.Errorf("build struct: %w", err))
	}
	return out, nil
}
