package cdfg

import "tlog.app/go/errors"

// Resource describes the functional units of one operation kind.
type Resource struct {
	Units   int // unit instances available per cycle
	Latency int // cycles an operation occupies its unit
}

// ResourceTable holds one Resource per OpKind, indexed by kind.
type ResourceTable [NumKinds]Resource

// DefaultResources returns one unit of every kind with the default latencies.
func DefaultResources() ResourceTable {
	var t ResourceTable
	for i := range t {
		t[i] = Resource{Units: 1, Latency: 1}
	}
	t[OpMul].Latency = 5
	t[OpDiv].Latency = 10
	t[OpLoad].Latency = 2
	t[OpStore].Latency = 2
	return t
}

// UniformResources returns a table with the same units and latency for every kind.
func UniformResources(units, latency int) ResourceTable {
	var t ResourceTable
	for i := range t {
		t[i] = Resource{Units: units, Latency: latency}
	}
	return t
}

// Units returns the unit count of kind k.
func (t *ResourceTable) Units(k OpKind) int { return t[k].Units }

// Latency returns the latency of kind k.
func (t *ResourceTable) Latency(k OpKind) int { return t[k].Latency }

// Validate rejects tables that could stall the scheduler forever.
func (t *ResourceTable) Validate() error {
	for i, r := range t {
		if r.Units <= 0 {
			return errors.New("%v: units must be positive, got %d", OpKind(i), r.Units)
		}
		if r.Latency <= 0 {
			return errors.New("%v: latency must be positive, got %d", OpKind(i), r.Latency)
		}
	}
	return nil
}
