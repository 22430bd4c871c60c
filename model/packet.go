package model

// DefaultTTL is the TTL every simulated packet starts with.
const DefaultTTL = 64

// Packet is the single simulated datagram in flight.
type Packet struct {
	SrcIP    string   `json:"src_ip"`
	DstIP    string   `json:"dst_ip"`
	TTL      int      `json:"ttl"`
	Hops     int      `json:"hops"`
	Position Position `json:"position"`

	// Header holds the encoded IPv4 header (plus stub payload) that travels
	// with the packet. It is rewritten at every gateway.
	Header []byte `json:"-"`
}
