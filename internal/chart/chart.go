// Package chart plots the TTL and hop count of a run against animation ticks.
package chart

import (
	"errors"
	"fmt"
	"image/color"
	"io"
	"os"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/dimalipin/netviz/internal/sim/state"
)

// ErrNoSamples is returned when there is nothing to plot.
var ErrNoSamples = errors.New("run has no samples")

// Default image size.
const (
	DefaultWidth  = 8 * vg.Inch
	DefaultHeight = 4 * vg.Inch
)

var (
	ttlColor  = color.RGBA{R: 0xf9, G: 0xe2, B: 0xaf, A: 0xff} // yellow
	hopsColor = color.RGBA{R: 0x89, G: 0xb4, B: 0xfa, A: 0xff} // blue
)

// NewRunPlot builds a plot of TTL and hops per tick for one run.
func NewRunPlot(summary state.RunSummary, samples []state.Sample) (*plot.Plot, error) {
	if len(samples) == 0 {
		return nil, ErrNoSamples
	}

	ttl := make(plotter.XYs, len(samples))
	hops := make(plotter.XYs, len(samples))
	for i, s := range samples {
		ttl[i].X, ttl[i].Y = float64(s.Tick), float64(s.TTL)
		hops[i].X, hops[i].Y = float64(s.Tick), float64(s.Hops)
	}

	p := plot.New()
	p.Title.Text = fmt.Sprintf("%s → %s", summary.SrcIP, summary.DstIP)
	p.X.Label.Text = "Tick"
	p.Y.Label.Text = "Value"
	p.Y.Min = 0
	p.Add(plotter.NewGrid())

	ttlLine, err := plotter.NewLine(ttl)
	if err != nil {
		return nil, fmt.Errorf("ttl line: %w", err)
	}
	ttlLine.LineStyle.Color = ttlColor
	ttlLine.LineStyle.Width = vg.Points(2)

	hopsLine, err := plotter.NewLine(hops)
	if err != nil {
		return nil, fmt.Errorf("hops line: %w", err)
	}
	hopsLine.LineStyle.Color = hopsColor
	hopsLine.LineStyle.Width = vg.Points(2)

	p.Add(ttlLine, hopsLine)
	p.Legend.Add("TTL", ttlLine)
	p.Legend.Add("Hops", hopsLine)
	p.Legend.Top = true
	return p, nil
}

// WriteRunPNG renders the run plot as PNG to w.
func WriteRunPNG(w io.Writer, summary state.RunSummary, samples []state.Sample) error {
	p, err := NewRunPlot(summary, samples)
	if err != nil {
		return err
	}
	wt, err := p.WriterTo(DefaultWidth, DefaultHeight, "png")
	if err != nil {
		return fmt.Errorf("png writer: %w", err)
	}
	if _, err := wt.WriteTo(w); err != nil {
		return fmt.Errorf("write png: %w", err)
	}
	return nil
}

// SaveRunPNG renders the run plot to a PNG file at path.
func SaveRunPNG(path string, summary state.RunSummary, samples []state.Sample) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	return WriteRunPNG(f, summary, samples)
}
