package render

// Catppuccin Mocha colours used by the network diagram.
const (
	ColorBase     = "#1e1e2e"
	ColorSurface0 = "#313244"
	ColorSurface1 = "#45475a"
	ColorSurface2 = "#585b70"
	ColorText     = "#cdd6f4"
	ColorSubtext0 = "#a6adc8"
	ColorSubtext1 = "#bac2de"
	ColorBlue     = "#89b4fa"
	ColorGreen    = "#a6e3a1"
	ColorRed      = "#f38ba8"
	ColorYellow   = "#f9e2af"
	ColorPeach    = "#fab387"
	ColorMauve    = "#cba6f7"
)

// Shape sizes in canvas pixels.
const (
	GatewayWidth  = 140
	GatewayHeight = 70

	hostScreenWidth  = 52
	hostScreenHeight = 34
	hostInnerPadding = 6
	hostStandHeight  = 6
	hostBaseHeight   = 6

	PacketDiameter = 20

	subnetFillAlpha = 140
)
