// Package render turns a simulation frame into an ordered display list that
// a canvas front end can paint without knowing about the simulation.
package render

import (
	"fmt"

	"github.com/dimalipin/netviz/core"
	"github.com/dimalipin/netviz/internal/sim/state"
	"github.com/dimalipin/netviz/model"
)

// Kind is the primitive a Command draws.
type Kind string

const (
	KindBackground Kind = "background"
	KindRect       Kind = "rect"
	KindLine       Kind = "line"
	KindCircle     Kind = "circle"
	KindText       Kind = "text"
)

// Align positions text relative to its anchor point.
type Align string

const (
	AlignLeft   Align = "left"
	AlignCenter Align = "center"
	AlignTop    Align = "top"
	AlignBottom Align = "bottom"
)

// Layer groups commands by what they depict.
type Layer string

const (
	LayerBackground Layer = "background"
	LayerSubnets    Layer = "subnets"
	LayerWAN        Layer = "wan"
	LayerGateways   Layer = "gateways"
	LayerHosts      Layer = "hosts"
	LayerPacket     Layer = "packet"
)

// Command is one draw call. Unused geometry fields are zero.
type Command struct {
	Kind  Kind   `json:"kind"`
	Layer Layer  `json:"layer"`
	Ref   string `json:"ref,omitempty"` // host IP, gateway or subnet name

	X  float64 `json:"x"`
	Y  float64 `json:"y"`
	W  float64 `json:"w,omitempty"`
	H  float64 `json:"h,omitempty"`
	X2 float64 `json:"x2,omitempty"`
	Y2 float64 `json:"y2,omitempty"`

	CornerRadius float64 `json:"corner_radius,omitempty"`
	Diameter     float64 `json:"diameter,omitempty"`

	Fill         string  `json:"fill,omitempty"`
	FillAlpha    uint8   `json:"fill_alpha,omitempty"` // 0 means opaque
	Stroke       string  `json:"stroke,omitempty"`
	StrokeWeight float64 `json:"stroke_weight,omitempty"`

	Text     string  `json:"text,omitempty"`
	TextSize float64 `json:"text_size,omitempty"`
	HAlign   Align   `json:"h_align,omitempty"`
	VAlign   Align   `json:"v_align,omitempty"`
}

// Scene is a complete display list for one frame.
type Scene struct {
	Width      float64   `json:"width"`
	Height     float64   `json:"height"`
	State      string    `json:"state"`
	Annotation string    `json:"annotation"`
	Commands   []Command `json:"commands"`
}

// BuildScene draws background, subnets, WAN link, gateways, hosts and the
// packet, in that order.
func BuildScene(f state.Frame) Scene {
	s := Scene{
		Width:      core.CanvasWidth,
		Height:     core.CanvasHeight,
		State:      string(f.State),
		Annotation: f.Annotation,
	}
	s.Commands = append(s.Commands, Command{
		Kind: KindBackground, Layer: LayerBackground,
		W: core.CanvasWidth, H: core.CanvasHeight, Fill: ColorBase,
	})
	for _, sub := range f.Subnets {
		s.Commands = append(s.Commands, subnetCommands(sub)...)
	}
	if f.WANLink != nil {
		s.Commands = append(s.Commands, wanCommands(*f.WANLink)...)
	}
	for _, gw := range f.Gateways {
		s.Commands = append(s.Commands, gatewayCommands(gw, gw.Name == f.ActiveGateway)...)
	}
	for _, h := range f.Hosts {
		s.Commands = append(s.Commands, hostCommands(h)...)
	}
	if f.Packet != nil {
		s.Commands = append(s.Commands, packetCommands(*f.Packet)...)
	}
	return s
}

// HostAccent returns the monitor colour for a highlight state.
func HostAccent(h model.HighlightState) string {
	switch h {
	case model.HighlightSource:
		return ColorGreen
	case model.HighlightDestination:
		return ColorBlue
	default:
		return ColorSurface2
	}
}

func subnetCommands(sub model.Subnet) []Command {
	b := sub.Bounds
	return []Command{
		{
			Kind: KindRect, Layer: LayerSubnets, Ref: sub.Name,
			X: b.X, Y: b.Y, W: b.Width, H: b.Height, CornerRadius: 10,
			Fill: ColorSurface1, FillAlpha: subnetFillAlpha,
			Stroke: sub.Accent, StrokeWeight: 2,
		},
		text(LayerSubnets, sub.Name, sub.Name, b.X+16, b.Y+16, 16, ColorText, AlignLeft, AlignTop),
		text(LayerSubnets, sub.Name, sub.Network, b.X+16, b.Y+40, 13, ColorSubtext0, AlignLeft, AlignTop),
		text(LayerSubnets, sub.Name, sub.Mask, b.X+16, b.Y+60, 13, ColorSubtext0, AlignLeft, AlignTop),
	}
}

func wanCommands(l model.WANLink) []Command {
	midX := (l.Start.X + l.End.X) / 2
	return []Command{
		{
			Kind: KindLine, Layer: LayerWAN,
			X: l.Start.X, Y: l.Start.Y, X2: l.End.X, Y2: l.End.Y,
			Stroke: ColorMauve, StrokeWeight: 4,
		},
		text(LayerWAN, "", l.Label, midX, l.Start.Y-14, 11, ColorMauve, AlignCenter, AlignBottom),
		text(LayerWAN, "", l.Endpoints, midX, l.Start.Y-2, 9, ColorSubtext0, AlignCenter, AlignBottom),
	}
}

func gatewayCommands(gw model.Gateway, active bool) []Command {
	fill := ColorSurface2
	if active {
		fill = ColorSurface0
	}
	p := gw.Position
	return []Command{
		{
			Kind: KindRect, Layer: LayerGateways, Ref: gw.Name,
			X: p.X - GatewayWidth/2, Y: p.Y - GatewayHeight/2, W: GatewayWidth, H: GatewayHeight,
			CornerRadius: 8, Fill: fill, Stroke: ColorPeach, StrokeWeight: 2,
		},
		text(LayerGateways, gw.Name, gw.Name, p.X, p.Y-10, 13, ColorText, AlignCenter, AlignCenter),
		text(LayerGateways, gw.Name, "LAN: "+gw.LANIP, p.X, p.Y+8, 11, ColorText, AlignCenter, AlignCenter),
		text(LayerGateways, gw.Name, "WAN: "+gw.WANIP, p.X, p.Y+26, 11, ColorText, AlignCenter, AlignCenter),
	}
}

func hostCommands(h model.Host) []Command {
	const halfW, halfH = hostScreenWidth / 2, hostScreenHeight / 2
	x, y := h.Position.X, h.Position.Y
	return []Command{
		{
			Kind: KindRect, Layer: LayerHosts, Ref: h.IP,
			X: x - halfW, Y: y - halfH, W: hostScreenWidth, H: hostScreenHeight, CornerRadius: 8,
			Fill: HostAccent(h.Highlight), Stroke: ColorText, StrokeWeight: 2,
		},
		{
			Kind: KindRect, Layer: LayerHosts, Ref: h.IP,
			X: x - halfW + hostInnerPadding, Y: y - halfH + hostInnerPadding,
			W: hostScreenWidth - hostInnerPadding*2, H: hostScreenHeight - hostInnerPadding*2,
			CornerRadius: 6, Fill: ColorBase,
		},
		{
			Kind: KindRect, Layer: LayerHosts, Ref: h.IP,
			X: x - 8, Y: y + halfH - 4, W: 16, H: hostStandHeight, CornerRadius: 3, Fill: ColorSurface2,
		},
		{
			Kind: KindRect, Layer: LayerHosts, Ref: h.IP,
			X: x - 18, Y: y + halfH + hostStandHeight - 2, W: 36, H: hostBaseHeight, CornerRadius: 3, Fill: ColorSurface2,
		},
		text(LayerHosts, h.IP, h.IP, x, y+halfH+hostStandHeight+hostBaseHeight+4, 10, ColorText, AlignCenter, AlignTop),
	}
}

func packetCommands(p state.PacketView) []Command {
	x, y := p.Position.X, p.Position.Y
	return []Command{
		{
			Kind: KindCircle, Layer: LayerPacket,
			X: x, Y: y, Diameter: PacketDiameter,
			Fill: ColorRed, Stroke: ColorPeach, StrokeWeight: 2,
		},
		text(LayerPacket, "", p.Label, x, y-14, 10, ColorText, AlignCenter, AlignBottom),
		text(LayerPacket, "", fmt.Sprintf("TTL: %d", p.TTL), x, y+14, 10, ColorYellow, AlignCenter, AlignTop),
	}
}

func text(layer Layer, ref, s string, x, y, size float64, color string, h, v Align) Command {
	return Command{
		Kind: KindText, Layer: layer, Ref: ref,
		X: x, Y: y, Text: s, TextSize: size, Fill: color, HAlign: h, VAlign: v,
	}
}
