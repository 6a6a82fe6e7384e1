// Package graph implements the in-memory knowledge graph: a hierarchy
// (parent/child with depth levels and a single root) overlaid with a
// network of typed, weighted edges.
//
// Every graph is constructed with a deployment mode fixing hard
// ceilings on node count, edge count, and hierarchy depth. Ceilings
// are checked at mutation time; there is no eviction or soft degrade.
// Derived analytics (clusters, centrality, gaps) are supplied from
// outside; the graph stores and serves them but never computes them.
package graph

import (
	"github.com/aletheia-dev/noema/internal/fault"
)

// Mode names a fixed resource-ceiling profile. Chosen once at
// construction and immutable for the graph's lifetime.
type Mode string

const (
	ModeMinimal     Mode = "minimal"
	ModeDevelopment Mode = "development"
	ModeProduction  Mode = "production"
	ModeResearch    Mode = "research"
)

// DefaultMode is used when no mode is configured.
const DefaultMode = ModeDevelopment

// Limits holds the hard ceilings of a deployment mode. TargetMemoryMB
// is advisory only: reported, never enforced.
type Limits struct {
	Nodes          int `json:"nodes"`
	Edges          int `json:"edges"`
	Depth          int `json:"depth"`
	TargetMemoryMB int `json:"target_memory_mb"`
}

var modeLimits = map[Mode]Limits{
	ModeMinimal:     {Nodes: 100, Edges: 300, Depth: 5, TargetMemoryMB: 16},
	ModeDevelopment: {Nodes: 500, Edges: 1500, Depth: 8, TargetMemoryMB: 64},
	ModeProduction:  {Nodes: 2000, Edges: 6000, Depth: 12, TargetMemoryMB: 256},
	ModeResearch:    {Nodes: 10000, Edges: 30000, Depth: 20, TargetMemoryMB: 1024},
}

// ParseMode validates a mode name.
func ParseMode(s string) (Mode, error) {
	m := Mode(s)
	if _, ok := modeLimits[m]; !ok {
		return "", fault.Validationf("unknown deployment mode %q (valid: minimal, development, production, research)", s)
	}
	return m, nil
}

// LimitsFor returns the ceiling profile of a mode.
func LimitsFor(m Mode) Limits {
	return modeLimits[m]
}
