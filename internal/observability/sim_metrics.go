package observability

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/dimalipin/netviz/internal/sim/state"
)

// SimCollector exposes packet simulation metrics. It satisfies
// state.MetricsRecorder.
type SimCollector struct {
	gatherer prometheus.Gatherer

	PacketsSent      *prometheus.CounterVec
	GatewayDecisions *prometheus.CounterVec
	PacketsDelivered prometheus.Counter
	Ticks            prometheus.Counter
	PacketInFlight   prometheus.Gauge

	DeliveredTTL  prometheus.Histogram
	DeliveredHops prometheus.Histogram
	DeliveryTicks prometheus.Histogram
}

var _ state.MetricsRecorder = (*SimCollector)(nil)

// NewSimCollector registers simulation metrics against the provided registerer.
func NewSimCollector(reg prometheus.Registerer) (*SimCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	sent := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "netviz_packets_sent_total",
		Help: "Packets sent, labeled by whether they stay on one subnet (local) or cross the WAN (routed).",
	}, []string{"scope"})
	sent, err := registerCounterVec(reg, sent, "netviz_packets_sent_total")
	if err != nil {
		return nil, err
	}

	decisions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "netviz_gateway_decisions_total",
		Help: "Routing decisions taken, labeled by gateway.",
	}, []string{"gateway"})
	decisions, err = registerCounterVec(reg, decisions, "netviz_gateway_decisions_total")
	if err != nil {
		return nil, err
	}

	delivered, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "netviz_packets_delivered_total",
		Help: "Packets that reached their destination.",
	}), "netviz_packets_delivered_total")
	if err != nil {
		return nil, err
	}

	ticks, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "netviz_sim_ticks_total",
		Help: "Animation ticks processed.",
	}), "netviz_sim_ticks_total")
	if err != nil {
		return nil, err
	}

	inFlight, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "netviz_packet_in_flight",
		Help: "1 while a packet is moving or paused at a gateway, 0 otherwise.",
	}), "netviz_packet_in_flight")
	if err != nil {
		return nil, err
	}

	ttl, err := registerHistogram(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "netviz_delivered_ttl",
		Help:    "TTL of packets on delivery.",
		Buckets: []float64{0, 1, 8, 16, 32, 60, 61, 62, 63, 64, 128, 255},
	}), "netviz_delivered_ttl")
	if err != nil {
		return nil, err
	}

	hops, err := registerHistogram(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "netviz_delivered_hops",
		Help:    "Waypoint transitions taken by delivered packets.",
		Buckets: prometheus.LinearBuckets(1, 1, 8),
	}), "netviz_delivered_hops")
	if err != nil {
		return nil, err
	}

	deliveryTicks, err := registerHistogram(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "netviz_delivery_ticks",
		Help:    "Ticks from send to delivery.",
		Buckets: prometheus.ExponentialBuckets(50, 2, 8),
	}), "netviz_delivery_ticks")
	if err != nil {
		return nil, err
	}

	return &SimCollector{
		gatherer:         gatherer,
		PacketsSent:      sent,
		GatewayDecisions: decisions,
		PacketsDelivered: delivered,
		Ticks:            ticks,
		PacketInFlight:   inFlight,
		DeliveredTTL:     ttl,
		DeliveredHops:    hops,
		DeliveryTicks:    deliveryTicks,
	}, nil
}

// Gatherer returns the Prometheus gatherer associated with the collector.
func (c *SimCollector) Gatherer() prometheus.Gatherer {
	if c == nil {
		return nil
	}
	return c.gatherer
}

// PacketSent counts a new run.
func (c *SimCollector) PacketSent(crossSubnet bool) {
	if c == nil || c.PacketsSent == nil {
		return
	}
	scope := "local"
	if crossSubnet {
		scope = "routed"
	}
	c.PacketsSent.WithLabelValues(scope).Inc()
	if c.PacketInFlight != nil {
		c.PacketInFlight.Set(1)
	}
}

// GatewayDecision counts a routing decision at gateway.
func (c *SimCollector) GatewayDecision(gateway string) {
	if c == nil || c.GatewayDecisions == nil {
		return
	}
	c.GatewayDecisions.WithLabelValues(gateway).Inc()
}

// PacketDelivered records the final state of a delivered packet.
func (c *SimCollector) PacketDelivered(ttl, hops, ticks int) {
	if c == nil {
		return
	}
	if c.PacketsDelivered != nil {
		c.PacketsDelivered.Inc()
	}
	if c.DeliveredTTL != nil {
		c.DeliveredTTL.Observe(float64(ttl))
	}
	if c.DeliveredHops != nil {
		c.DeliveredHops.Observe(float64(hops))
	}
	if c.DeliveryTicks != nil {
		c.DeliveryTicks.Observe(float64(ticks))
	}
}

// Tick counts one animation tick and tracks whether a packet is in flight.
func (c *SimCollector) Tick(st state.AnimationState) {
	if c == nil {
		return
	}
	if c.Ticks != nil {
		c.Ticks.Inc()
	}
	if c.PacketInFlight != nil {
		inFlight := 0.0
		if st == state.StateMoving || st == state.StateGateway {
			inFlight = 1
		}
		c.PacketInFlight.Set(inFlight)
	}
}

func registerHistogram(reg prometheus.Registerer, hist prometheus.Histogram, name string) (prometheus.Histogram, error) {
	if err := reg.Register(hist); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Histogram); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return hist, nil
}

func registerCounter(reg prometheus.Registerer, counter prometheus.Counter, name string) (prometheus.Counter, error) {
	if err := reg.Register(counter); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Counter); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return counter, nil
}
