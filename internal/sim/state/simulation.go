// internal/sim/state/simulation.go
package state

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/dimalipin/netviz/core"
	"github.com/dimalipin/netviz/internal/datagram"
	"github.com/dimalipin/netviz/internal/logging"
	"github.com/dimalipin/netviz/kb"
	"github.com/dimalipin/netviz/model"
)

const tracerName = "github.com/dimalipin/netviz/internal/sim/state"

// MetricsRecorder receives simulation activity for export.
type MetricsRecorder interface {
	PacketSent(crossSubnet bool)
	GatewayDecision(gateway string)
	PacketDelivered(ttl, hops, ticks int)
	Tick(state AnimationState)
}

// Simulation owns the one packet run of a visualization: the topology it
// moves through, the planner, the random source and the current Run.
//
// Tick, Send and Frame are serialised by a single mutex so each tick is one
// atomic transition. Lock ordering is Simulation -> KnowledgeBase; KB
// subscribers must not call back into the Simulation.
type Simulation struct {
	mu sync.Mutex

	kb      *kb.KnowledgeBase
	planner *core.PathPlanner
	params  Params
	ttl     int
	rng     *rand.Rand

	run        Run
	seq        uint64
	annotation string

	timeline *Timeline

	subs   map[int]func(Event)
	nextID int

	log     logging.Logger
	metrics MetricsRecorder
}

// Option customises Simulation construction.
type Option func(*Simulation)

// WithParams overrides the animation timing.
func WithParams(p Params) Option {
	return func(s *Simulation) {
		s.params = p.normalized()
	}
}

// WithInitialTTL overrides the TTL new packets start with.
func WithInitialTTL(ttl int) Option {
	return func(s *Simulation) {
		if ttl > 0 && ttl <= 255 {
			s.ttl = ttl
		}
	}
}

// WithSeed makes random host selection reproducible.
func WithSeed(seed int64) Option {
	return func(s *Simulation) {
		s.rng = rand.New(rand.NewSource(seed))
	}
}

// WithLogger attaches a structured logger.
func WithLogger(l logging.Logger) Option {
	return func(s *Simulation) {
		if l != nil {
			s.log = l
		}
	}
}

// WithMetricsRecorder attaches an optional metrics recorder.
func WithMetricsRecorder(m MetricsRecorder) Option {
	return func(s *Simulation) {
		s.metrics = m
	}
}

// WithTimeline replaces the default per-run sample store.
func WithTimeline(t *Timeline) Option {
	return func(s *Simulation) {
		if t != nil {
			s.timeline = t
		}
	}
}

// NewSimulation creates an idle simulation over the given topology.
func NewSimulation(store *kb.KnowledgeBase, opts ...Option) *Simulation {
	s := &Simulation{
		kb:         store,
		planner:    core.NewPathPlanner(store),
		params:     DefaultParams(),
		ttl:        model.DefaultTTL,
		rng:        rand.New(rand.NewSource(time.Now().UnixNano())),
		run:        Run{State: StateIdle},
		annotation: IdleAnnotation,
		timeline:   NewTimeline(DefaultTimelineRuns),
		subs:       make(map[int]func(Event)),
		log:        logging.Noop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Subscribe registers a callback for run events. Callbacks run after the
// simulation lock is released.
func (s *Simulation) Subscribe(fn func(Event)) (unsubscribe func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID
	s.nextID++
	s.subs[id] = fn

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subs, id)
	}
}

// SendRandom picks two distinct hosts uniformly at random and sends a packet
// between them. With fewer than two hosts it does nothing and reports false.
func (s *Simulation) SendRandom(ctx context.Context) (bool, error) {
	hosts := s.kb.Hosts()
	if len(hosts) < 2 {
		return false, nil
	}

	s.mu.Lock()
	i := s.rng.Intn(len(hosts))
	j := s.rng.Intn(len(hosts) - 1)
	if j >= i {
		j++
	}
	s.mu.Unlock()

	if err := s.Send(ctx, hosts[i].IP, hosts[j].IP); err != nil {
		return false, err
	}
	return true, nil
}

// Send starts a new run from srcIP to dstIP, replacing any run in flight.
func (s *Simulation) Send(ctx context.Context, srcIP, dstIP string) (err error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "Simulation.Send")
	span.SetAttributes(attribute.String("packet.src", srcIP), attribute.String("packet.dst", dstIP))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	src, err := s.kb.Host(srcIP)
	if err != nil {
		return err
	}
	dst, err := s.kb.Host(dstIP)
	if err != nil {
		return err
	}
	path, err := s.planner.PlanPath(src, dst)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.seq++
	seq := s.seq
	header, err := datagram.Encode(datagram.Spec{
		SrcIP: src.IP,
		DstIP: dst.IP,
		TTL:   uint8(s.ttl),
		ID:    uint16(seq),
	})
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("encode datagram: %w", err)
	}
	if err := s.kb.HighlightPair(src.IP, dst.IP); err != nil {
		s.mu.Unlock()
		return err
	}

	s.run = Run{
		ID:    logging.NewID(),
		Seq:   seq,
		State: StateMoving,
		Path:  path,
		Packet: model.Packet{
			SrcIP:    src.IP,
			DstIP:    dst.IP,
			TTL:      s.ttl,
			Position: path[0].Position,
			Header:   header,
		},
	}
	s.annotation = SentAnnotation(src, dst)
	annotation := s.annotation
	run := s.run
	s.timeline.Start(RunSummary{
		RunID:     run.ID,
		Seq:       seq,
		SrcIP:     src.IP,
		DstIP:     dst.IP,
		Waypoints: len(path),
	}, Sample{TTL: run.Packet.TTL, State: run.State})
	subs := s.listenersLocked()
	s.mu.Unlock()

	cross := src.Subnet != dst.Subnet
	span.SetAttributes(
		attribute.String("run.id", run.ID),
		attribute.Int("run.waypoints", len(path)),
		attribute.Bool("run.cross_subnet", cross),
	)
	if s.metrics != nil {
		s.metrics.PacketSent(cross)
	}
	s.log.Info(ctx, "packet sent",
		logging.String("run_id", run.ID),
		logging.String("src", src.IP),
		logging.String("dst", dst.IP),
		logging.Int("waypoints", len(path)),
		logging.Bool("cross_subnet", cross),
	)

	notify(subs, []Event{{
		Type:       EventSent,
		RunID:      run.ID,
		SrcIP:      src.IP,
		DstIP:      dst.IP,
		TTL:        run.Packet.TTL,
		Annotation: annotation,
	}})
	return nil
}

// Tick advances the current run by one frame and returns what happened.
func (s *Simulation) Tick() []Event {
	s.mu.Lock()
	prev := s.run.State
	next, events := Step(s.run, s.params)
	s.run = next
	for _, e := range events {
		s.annotation = e.Annotation
	}
	if prev.active() {
		s.timeline.Record(next.ID, Sample{
			Tick:  next.Ticks,
			TTL:   next.Packet.TTL,
			Hops:  next.Packet.Hops,
			State: next.State,
		})
	}
	for _, e := range events {
		if e.Type == EventDelivered {
			s.timeline.Finish(e.RunID, e.TTL, e.Hops, e.Ticks)
		}
	}
	subs := s.listenersLocked()
	s.mu.Unlock()

	if s.metrics != nil {
		s.metrics.Tick(next.State)
		for _, e := range events {
			switch e.Type {
			case EventGatewayDecision:
				s.metrics.GatewayDecision(e.Gateway)
			case EventDelivered:
				s.metrics.PacketDelivered(e.TTL, e.Hops, e.Ticks)
			}
		}
	}
	for _, e := range events {
		s.log.Debug(context.Background(), e.Annotation,
			logging.String("run_id", e.RunID),
			logging.String("event", e.Type.String()),
			logging.Int("ttl", e.TTL),
			logging.Int("hops", e.Hops),
		)
	}

	notify(subs, events)
	return events
}

// Reset drops the current run and clears host highlights.
func (s *Simulation) Reset() {
	s.mu.Lock()
	s.run = Run{State: StateIdle}
	s.annotation = IdleAnnotation
	s.kb.ResetHighlights()
	s.mu.Unlock()
}

// State returns the current animation state.
func (s *Simulation) State() AnimationState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.run.State
}

// Run returns a copy of the current run. Path and Packet.Header are shared
// and must be treated as read-only.
func (s *Simulation) Run() Run {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.run
}

// Annotation returns the current status line.
func (s *Simulation) Annotation() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.annotation
}

// Params returns the animation timing in use.
func (s *Simulation) Params() Params {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.params
}

// Timeline returns the per-run sample store.
func (s *Simulation) Timeline() *Timeline {
	return s.timeline
}

// Topology returns the knowledge base the simulation runs over.
func (s *Simulation) Topology() *kb.KnowledgeBase {
	return s.kb
}

// Frame returns a consistent snapshot for rendering.
func (s *Simulation) Frame() Frame {
	s.mu.Lock()
	defer s.mu.Unlock()

	f := Frame{
		RunID:         s.run.ID,
		Seq:           s.run.Seq,
		State:         s.run.State,
		Subnets:       s.kb.Subnets(),
		Hosts:         s.kb.Hosts(),
		Gateways:      s.kb.Gateways(),
		SegmentIndex:  s.run.Index,
		Progress:      s.run.Progress,
		PauseTicks:    s.run.PauseTicks,
		ActiveGateway: s.run.ActiveGateway,
		Annotation:    s.annotation,
	}
	if wan, ok := s.kb.WANLink(); ok {
		f.WANLink = &wan
	}
	if s.run.State != StateIdle {
		f.Packet = newPacketView(s.run.Packet)
		f.Path = append([]model.Waypoint(nil), s.run.Path...)
	}
	return f
}

// Header returns a copy of the in-flight packet's encoded datagram, or nil
// when nothing has been sent.
func (s *Simulation) Header() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]byte(nil), s.run.Packet.Header...)
}

func (st AnimationState) active() bool {
	return st == StateMoving || st == StateGateway
}

func (s *Simulation) listenersLocked() []func(Event) {
	subs := make([]func(Event), 0, len(s.subs))
	for _, fn := range s.subs {
		subs = append(subs, fn)
	}
	return subs
}

// Notify listeners outside the lock to avoid deadlocks.
func notify(subs []func(Event), events []Event) {
	for _, e := range events {
		for _, sub := range subs {
			sub(e)
		}
	}
}
