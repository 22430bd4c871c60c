package kb

import (
	"errors"
	"fmt"
	"sync"

	"github.com/dimalipin/netviz/model"
)

var (
	// ErrSubnetExists indicates a subnet with the same network already exists.
	ErrSubnetExists = errors.New("subnet already exists")
	// ErrSubnetNotFound indicates a referenced subnet is not known.
	ErrSubnetNotFound = errors.New("subnet not found")
	// ErrHostExists indicates a host with the same IP already exists.
	ErrHostExists = errors.New("host already exists")
	// ErrHostNotFound indicates a requested host is not known.
	ErrHostNotFound = errors.New("host not found")
	// ErrGatewayExists indicates a gateway with the same name already exists.
	ErrGatewayExists = errors.New("gateway already exists")
	// ErrGatewayNotFound indicates a requested gateway is not known.
	ErrGatewayNotFound = errors.New("gateway not found")
)

// EventType indicates what kind of change happened in the KB.
type EventType int

const (
	EventHighlightChanged EventType = iota
)

// Event is emitted to subscribers when something interesting happens.
type Event struct {
	Type  EventType
	Hosts []model.Host
}

// KnowledgeBase is an in-memory, thread-safe store for the simulated
// topology: subnets, hosts, gateways and the WAN link between them.
//
// Everything except host highlight state is immutable once loaded. Getters
// return copies so callers cannot mutate the topology behind the lock.
type KnowledgeBase struct {
	mu sync.RWMutex

	subnets     map[string]*model.Subnet
	subnetOrder []string

	hosts     map[string]*model.Host
	hostOrder []string

	gateways        map[string]*model.Gateway
	gatewayOrder    []string
	gatewayBySubnet map[string]string

	wan *model.WANLink

	subs   map[int]func(Event)
	nextID int
}

// NewKnowledgeBase constructs an empty KB.
func NewKnowledgeBase() *KnowledgeBase {
	return &KnowledgeBase{
		subnets:         make(map[string]*model.Subnet),
		hosts:           make(map[string]*model.Host),
		gateways:        make(map[string]*model.Gateway),
		gatewayBySubnet: make(map[string]string),
		subs:            make(map[int]func(Event)),
	}
}

// AddSubnet registers a subnet keyed by its network CIDR.
func (kb *KnowledgeBase) AddSubnet(s model.Subnet) error {
	kb.mu.Lock()
	defer kb.mu.Unlock()

	if _, exists := kb.subnets[s.Network]; exists {
		return fmt.Errorf("%w: %q", ErrSubnetExists, s.Network)
	}
	kb.subnets[s.Network] = &s
	kb.subnetOrder = append(kb.subnetOrder, s.Network)
	return nil
}

// AddGateway registers a gateway. The subnet it serves must already exist
// and may only have one gateway.
func (kb *KnowledgeBase) AddGateway(g model.Gateway) error {
	kb.mu.Lock()
	defer kb.mu.Unlock()

	if _, exists := kb.gateways[g.Name]; exists {
		return fmt.Errorf("%w: %q", ErrGatewayExists, g.Name)
	}
	if _, ok := kb.subnets[g.Subnet]; !ok {
		return fmt.Errorf("%w: %q for gateway %q", ErrSubnetNotFound, g.Subnet, g.Name)
	}
	if other, taken := kb.gatewayBySubnet[g.Subnet]; taken {
		return fmt.Errorf("%w: subnet %q is already served by %q", ErrGatewayExists, g.Subnet, other)
	}
	g.RoutingTable = append([]model.RouteEntry(nil), g.RoutingTable...)
	kb.gateways[g.Name] = &g
	kb.gatewayOrder = append(kb.gatewayOrder, g.Name)
	kb.gatewayBySubnet[g.Subnet] = g.Name
	return nil
}

// AddHost registers a host. The host's subnet must already exist.
func (kb *KnowledgeBase) AddHost(h model.Host) error {
	kb.mu.Lock()
	defer kb.mu.Unlock()

	if _, exists := kb.hosts[h.IP]; exists {
		return fmt.Errorf("%w: %q", ErrHostExists, h.IP)
	}
	if _, ok := kb.subnets[h.Subnet]; !ok {
		return fmt.Errorf("%w: %q for host %q", ErrSubnetNotFound, h.Subnet, h.IP)
	}
	if h.Highlight == "" {
		h.Highlight = model.HighlightDefault
	}
	kb.hosts[h.IP] = &h
	kb.hostOrder = append(kb.hostOrder, h.IP)
	return nil
}

// SetWANLink installs the WAN link. Both gateways must already exist.
func (kb *KnowledgeBase) SetWANLink(l model.WANLink) error {
	kb.mu.Lock()
	defer kb.mu.Unlock()

	for _, name := range []string{l.GatewayA, l.GatewayB} {
		if _, ok := kb.gateways[name]; !ok {
			return fmt.Errorf("%w: %q on WAN link", ErrGatewayNotFound, name)
		}
	}
	kb.wan = &l
	return nil
}

// Subnets returns all subnets in insertion order.
func (kb *KnowledgeBase) Subnets() []model.Subnet {
	kb.mu.RLock()
	defer kb.mu.RUnlock()

	res := make([]model.Subnet, 0, len(kb.subnetOrder))
	for _, id := range kb.subnetOrder {
		res = append(res, *kb.subnets[id])
	}
	return res
}

// Hosts returns a snapshot of all hosts in insertion order.
func (kb *KnowledgeBase) Hosts() []model.Host {
	kb.mu.RLock()
	defer kb.mu.RUnlock()
	return kb.hostsLocked()
}

func (kb *KnowledgeBase) hostsLocked() []model.Host {
	res := make([]model.Host, 0, len(kb.hostOrder))
	for _, ip := range kb.hostOrder {
		res = append(res, *kb.hosts[ip])
	}
	return res
}

// HostCount returns the number of known hosts.
func (kb *KnowledgeBase) HostCount() int {
	kb.mu.RLock()
	defer kb.mu.RUnlock()
	return len(kb.hostOrder)
}

// Host returns the host with the given IP.
func (kb *KnowledgeBase) Host(ip string) (model.Host, error) {
	kb.mu.RLock()
	defer kb.mu.RUnlock()

	h, ok := kb.hosts[ip]
	if !ok {
		return model.Host{}, fmt.Errorf("%w: %q", ErrHostNotFound, ip)
	}
	return *h, nil
}

// Gateways returns all gateways in insertion order.
func (kb *KnowledgeBase) Gateways() []model.Gateway {
	kb.mu.RLock()
	defer kb.mu.RUnlock()

	res := make([]model.Gateway, 0, len(kb.gatewayOrder))
	for _, name := range kb.gatewayOrder {
		res = append(res, copyGateway(kb.gateways[name]))
	}
	return res
}

// Gateway returns the gateway with the given name.
func (kb *KnowledgeBase) Gateway(name string) (model.Gateway, error) {
	kb.mu.RLock()
	defer kb.mu.RUnlock()

	g, ok := kb.gateways[name]
	if !ok {
		return model.Gateway{}, fmt.Errorf("%w: %q", ErrGatewayNotFound, name)
	}
	return copyGateway(g), nil
}

// GatewayForSubnet returns the gateway serving the given network CIDR.
func (kb *KnowledgeBase) GatewayForSubnet(network string) (model.Gateway, error) {
	kb.mu.RLock()
	defer kb.mu.RUnlock()

	if _, ok := kb.subnets[network]; !ok {
		return model.Gateway{}, fmt.Errorf("%w: %q", ErrSubnetNotFound, network)
	}
	name, ok := kb.gatewayBySubnet[network]
	if !ok {
		return model.Gateway{}, fmt.Errorf("%w: no gateway serves %q", ErrGatewayNotFound, network)
	}
	return copyGateway(kb.gateways[name]), nil
}

// WANLink returns the WAN link, if one has been installed.
func (kb *KnowledgeBase) WANLink() (model.WANLink, bool) {
	kb.mu.RLock()
	defer kb.mu.RUnlock()

	if kb.wan == nil {
		return model.WANLink{}, false
	}
	return *kb.wan, true
}

// HighlightPair resets every host to the default highlight and then marks
// src as source and dst as destination, as one atomic change.
func (kb *KnowledgeBase) HighlightPair(src, dst string) error {
	kb.mu.Lock()
	s, ok := kb.hosts[src]
	if !ok {
		kb.mu.Unlock()
		return fmt.Errorf("%w: %q", ErrHostNotFound, src)
	}
	d, ok := kb.hosts[dst]
	if !ok {
		kb.mu.Unlock()
		return fmt.Errorf("%w: %q", ErrHostNotFound, dst)
	}
	for _, h := range kb.hosts {
		h.Highlight = model.HighlightDefault
	}
	s.Highlight = model.HighlightSource
	d.Highlight = model.HighlightDestination
	event, subs := kb.highlightEventLocked()
	kb.mu.Unlock()

	notify(subs, event)
	return nil
}

// ResetHighlights returns every host to the default highlight.
func (kb *KnowledgeBase) ResetHighlights() {
	kb.mu.Lock()
	for _, h := range kb.hosts {
		h.Highlight = model.HighlightDefault
	}
	event, subs := kb.highlightEventLocked()
	kb.mu.Unlock()

	notify(subs, event)
}

func (kb *KnowledgeBase) highlightEventLocked() (Event, []func(Event)) {
	subs := make([]func(Event), 0, len(kb.subs))
	for _, fn := range kb.subs {
		subs = append(subs, fn)
	}
	return Event{Type: EventHighlightChanged, Hosts: kb.hostsLocked()}, subs
}

// Notify subscribers outside the lock to avoid deadlocks.
func notify(subs []func(Event), event Event) {
	for _, sub := range subs {
		sub(event)
	}
}

// Subscribe registers a callback for KB events. It returns an unsubscribe function.
func (kb *KnowledgeBase) Subscribe(fn func(Event)) (unsubscribe func()) {
	kb.mu.Lock()
	defer kb.mu.Unlock()
	id := kb.nextID
	kb.nextID++
	kb.subs[id] = fn

	return func() {
		kb.mu.Lock()
		defer kb.mu.Unlock()
		delete(kb.subs, id)
	}
}

func copyGateway(g *model.Gateway) model.Gateway {
	out := *g
	out.RoutingTable = append([]model.RouteEntry(nil), g.RoutingTable...)
	return out
}
