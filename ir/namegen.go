package ir

import (
	"fmt"

	mapset "github.com/deckarep/golang-set/v2"
)

// NameGen hands out variable and label names that cannot collide with any
// name it has been told about. It replaces ad-hoc process-wide counters: one
// generator is threaded through a whole transformation, so synthesized names
// stay unique even across stages.
type NameGen struct {
	taken  mapset.Set[string]
	counts map[string]int
}

func NewNameGen() *NameGen {
	return &NameGen{
		taken:  mapset.NewThreadUnsafeSet[string](),
		counts: make(map[string]int),
	}
}

// Reserve marks names as unavailable.
func (g *NameGen) Reserve(names ...string) {
	for _, n := range names {
		if n != "" {
			g.taken.Add(n)
		}
	}
}

// Taken reports whether a name has been reserved or generated.
func (g *NameGen) Taken(name string) bool {
	return g.taken.Contains(name)
}

// SeedFunction reserves every name appearing in the function: parameters,
// destinations, arguments, labels, and jump targets.
func (g *NameGen) SeedFunction(fn *Function) {
	for _, p := range fn.Params {
		g.Reserve(p.Name)
	}
	for _, ins := range fn.Instrs {
		switch ins := ins.(type) {
		case *Label:
			g.Reserve(ins.Name)
		case *Operation:
			g.SeedOperation(ins)
		}
	}
}

// SeedOperation reserves the destination, arguments, and label targets of a
// single operation.
func (g *NameGen) SeedOperation(op *Operation) {
	g.Reserve(op.Dest)
	g.Reserve(op.Args...)
	g.Reserve(op.Labels...)
}

// Fresh returns an unused name of the form _<prefix>_<n> and reserves it.
func (g *NameGen) Fresh(prefix string) string {
	for {
		name := fmt.Sprintf("_%s_%d", prefix, g.counts[prefix])
		g.counts[prefix]++
		if !g.taken.Contains(name) {
			g.taken.Add(name)
			return name
		}
	}
}
