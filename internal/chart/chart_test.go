package chart

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/dimalipin/netviz/core"
	"github.com/dimalipin/netviz/internal/sim/state"
)

var pngMagic = []byte("\x89PNG\r\n\x1a\n")

func completedRun(t *testing.T) (state.RunSummary, []state.Sample) {
	t.Helper()
	sim := state.NewSimulation(core.NewDefaultKnowledgeBase(),
		state.WithParams(state.Params{Speed: 0.25, GatewayPauseTicks: 2}))
	if err := sim.Send(context.Background(), "192.168.1.10", "192.168.2.10"); err != nil {
		t.Fatalf("Send: %v", err)
	}
	for sim.State() != state.StateCompleted {
		sim.Tick()
	}
	id := sim.Run().ID
	summary, ok := sim.Timeline().Summary(id)
	if !ok {
		t.Fatalf("no summary for run %s", id)
	}
	return summary, sim.Timeline().Samples(id)
}

func TestNewRunPlot(t *testing.T) {
	summary, samples := completedRun(t)
	p, err := NewRunPlot(summary, samples)
	if err != nil {
		t.Fatalf("NewRunPlot: %v", err)
	}
	if p.Title.Text != "192.168.1.10 → 192.168.2.10" {
		t.Fatalf("title = %q", p.Title.Text)
	}
}

func TestWriteRunPNG(t *testing.T) {
	summary, samples := completedRun(t)
	var buf bytes.Buffer
	if err := WriteRunPNG(&buf, summary, samples); err != nil {
		t.Fatalf("WriteRunPNG: %v", err)
	}
	if !bytes.HasPrefix(buf.Bytes(), pngMagic) {
		t.Fatalf("output is not a PNG")
	}
}

func TestSaveRunPNG(t *testing.T) {
	summary, samples := completedRun(t)
	path := filepath.Join(t.TempDir(), "run.png")
	if err := SaveRunPNG(path, summary, samples); err != nil {
		t.Fatalf("SaveRunPNG: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read png: %v", err)
	}
	if !bytes.HasPrefix(data, pngMagic) {
		t.Fatalf("file is not a PNG")
	}
}

func TestNoSamples(t *testing.T) {
	if _, err := NewRunPlot(state.RunSummary{}, nil); !errors.Is(err, ErrNoSamples) {
		t.Fatalf("err = %v, want ErrNoSamples", err)
	}
}
