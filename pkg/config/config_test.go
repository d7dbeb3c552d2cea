package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/raymyers/ralph-hls/pkg/cdfg"
	"github.com/raymyers/ralph-hls/pkg/schedule"
)

func TestDefault(t *testing.T) {
	c := Default()
	if c.Scheduler != schedule.DefaultOptions() {
		t.Errorf("scheduler = %+v, want %+v", c.Scheduler, schedule.DefaultOptions())
	}
	got, err := c.ResourceTable()
	if err != nil {
		t.Fatal(err)
	}
	if got != cdfg.DefaultResources() {
		t.Errorf("got %v, want default table", got)
	}
}

func TestParse(t *testing.T) {
	data := []byte(`
resources:
  MUL: {units: 2, latency: 3}
  div: {latency: 4}
  "5": {units: 3}
scheduler:
  order_terminators: false
  memory_order: true
`)
	c, err := Parse(data)
	if err != nil {
		t.Fatal(err)
	}
	want := schedule.Options{OrderTerminators: false, MemoryOrder: true}
	if c.Scheduler != want {
		t.Errorf("scheduler = %+v, want %+v", c.Scheduler, want)
	}

	res, err := c.ResourceTable()
	if err != nil {
		t.Fatal(err)
	}
	tests := []struct {
		kind    cdfg.OpKind
		units   int
		latency int
	}{
		{cdfg.OpMul, 2, 3},
		{cdfg.OpDiv, 1, 4},
		{cdfg.OpLoad, 3, 2},
		{cdfg.OpAdd, 1, 1},
		{cdfg.OpStore, 1, 2},
	}
	for _, tt := range tests {
		if got := res[tt.kind]; got.Units != tt.units || got.Latency != tt.latency {
			t.Errorf("%v = %+v, want units %d latency %d", tt.kind, got, tt.units, tt.latency)
		}
	}
}

func TestParseKeepsDefaults(t *testing.T) {
	c, err := Parse([]byte("resources:\n  ADD: {units: 2}\n"))
	if err != nil {
		t.Fatal(err)
	}
	if c.Scheduler != schedule.DefaultOptions() {
		t.Errorf("scheduler = %+v, want defaults", c.Scheduler)
	}
}

func TestParseInvalid(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"zero units", "resources:\n  MUL: {units: 0}\n"},
		{"zero latency", "resources:\n  ADD: {latency: 0}\n"},
		{"negative units", "resources:\n  ADD: {units: -1}\n"},
		{"unknown kind", "resources:\n  FMA: {units: 1}\n"},
		{"kind out of range", "resources:\n  \"15\": {units: 1}\n"},
		{"same kind twice", "resources:\n  MUL: {units: 2}\n  \"3\": {units: 3}\n"},
		{"bad yaml", "resources: [1, 2\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.data))
			if !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("got %v, want ErrInvalidConfig", err)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hls.yaml")
	if err := os.WriteFile(path, []byte("resources:\n  ADD: {units: 4}\n"), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	c, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	res, _ := c.ResourceTable()
	if res[cdfg.OpAdd].Units != 4 {
		t.Errorf("ADD units = %d, want 4", res[cdfg.OpAdd].Units)
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestSet(t *testing.T) {
	c := Default()
	c.Set(cdfg.OpMul, 3, 2)
	res, err := c.ResourceTable()
	if err != nil {
		t.Fatal(err)
	}
	if res[cdfg.OpMul] != (cdfg.Resource{Units: 3, Latency: 2}) {
		t.Errorf("MUL = %+v", res[cdfg.OpMul])
	}
}
