package opt

import (
	"slices"

	mapset "github.com/deckarep/golang-set/v2"

	"github.com/tobiwg/bril/ir"
)

// block is one node of a labeled control flow graph. The first instruction
// is always the block's *ir.Label; synthetic marks labels invented during
// splitting so flatten can drop them again when nothing jumps there.
type block struct {
	label     string
	synthetic bool
	instrs    []ir.Instruction
	preds     mapset.Set[int]
	succs     mapset.Set[int]
}

// terminator returns the block's final control transfer, or nil when the
// block falls through.
func (b *block) terminator() *ir.Operation {
	if len(b.instrs) == 0 {
		return nil
	}
	op, ok := b.instrs[len(b.instrs)-1].(*ir.Operation)
	if ok && endsBlock(op.Op) {
		return op
	}
	return nil
}

func endsBlock(op ir.Opcode) bool {
	return op == ir.Br || op == ir.Jmp || op == ir.Ret
}

// graph is a function body as labeled blocks with explicit edges. Block 0 is
// the entry.
type graph struct {
	blocks []*block
	index  map[string]int
}

// buildGraph splits an instruction list into labeled blocks: a block starts
// at every label and after every control transfer. Unlabeled leaders get a
// fresh synthetic label.
func buildGraph(instrs []ir.Instruction, names *ir.NameGen) *graph {
	g := &graph{}
	var cur *block
	start := func(label string, synthetic bool) {
		cur = &block{label: label, synthetic: synthetic}
		cur.instrs = append(cur.instrs, &ir.Label{Name: label})
		g.blocks = append(g.blocks, cur)
	}
	for _, ins := range instrs {
		switch ins := ins.(type) {
		case *ir.Label:
			start(ins.Name, false)
		case *ir.Operation:
			if cur == nil {
				start(names.Fresh("block"), true)
			}
			cur.instrs = append(cur.instrs, ins)
			if endsBlock(ins.Op) {
				cur = nil
			}
		}
	}
	g.connect()
	return g
}

// connect recomputes the label index and every edge from scratch. br and jmp
// follow their labels, ret ends the path, and everything else falls through
// to the next block in layout order.
func (g *graph) connect() {
	g.index = make(map[string]int, len(g.blocks))
	for i, b := range g.blocks {
		g.index[b.label] = i
		b.preds = mapset.NewThreadUnsafeSet[int]()
		b.succs = mapset.NewThreadUnsafeSet[int]()
	}
	link := func(from, to int) {
		g.blocks[from].succs.Add(to)
		g.blocks[to].preds.Add(from)
	}
	for i, b := range g.blocks {
		term := b.terminator()
		switch {
		case term == nil:
			if i+1 < len(g.blocks) {
				link(i, i+1)
			}
		case term.Op == ir.Ret:
		default:
			for _, lab := range term.Labels {
				if j, ok := g.index[lab]; ok {
					link(i, j)
				}
			}
		}
	}
}

func (g *graph) op(ref instrRef) *ir.Operation {
	return g.blocks[ref.block].instrs[ref.idx].(*ir.Operation)
}

// dominators computes the full dominator sets by forward iteration to a
// fixpoint, with block 0 as the entry.
func (g *graph) dominators() []mapset.Set[int] {
	n := len(g.blocks)
	all := mapset.NewThreadUnsafeSet[int]()
	for i := 0; i < n; i++ {
		all.Add(i)
	}
	dom := make([]mapset.Set[int], n)
	dom[0] = mapset.NewThreadUnsafeSet(0)
	for i := 1; i < n; i++ {
		dom[i] = all.Clone()
	}
	for changed := true; changed; {
		changed = false
		for b := 1; b < n; b++ {
			next := all.Clone()
			if g.blocks[b].preds.Cardinality() > 0 {
				g.blocks[b].preds.Each(func(p int) bool {
					next = next.Intersect(dom[p])
					return false
				})
			}
			next.Add(b)
			if !next.Equal(dom[b]) {
				dom[b] = next
				changed = true
			}
		}
	}
	return dom
}

type backedge struct {
	tail, head int
}

// backedges returns every edge tail->head where head dominates tail, in
// layout order.
func (g *graph) backedges(dom []mapset.Set[int]) []backedge {
	var edges []backedge
	for u, b := range g.blocks {
		succs := b.succs.ToSlice()
		slices.Sort(succs)
		for _, v := range succs {
			if dom[u].Contains(v) {
				edges = append(edges, backedge{tail: u, head: v})
			}
		}
	}
	return edges
}

// naturalLoop collects the natural loop of a backedge: the head plus every
// block that reaches the tail without passing through the head.
func (g *graph) naturalLoop(tail, head int) mapset.Set[int] {
	loop := mapset.NewThreadUnsafeSet(head)
	work := []int{tail}
	for len(work) > 0 {
		x := work[len(work)-1]
		work = work[:len(work)-1]
		if loop.Contains(x) {
			continue
		}
		loop.Add(x)
		g.blocks[x].preds.Each(func(p int) bool {
			if !loop.Contains(p) {
				work = append(work, p)
			}
			return false
		})
	}
	return loop
}

func (g *graph) labelsOf(set mapset.Set[int]) []string {
	var labels []string
	set.Each(func(i int) bool {
		labels = append(labels, g.blocks[i].label)
		return false
	})
	return labels
}

func (g *graph) indicesOf(labels []string) mapset.Set[int] {
	set := mapset.NewThreadUnsafeSet[int]()
	for _, lab := range labels {
		if i, ok := g.index[lab]; ok {
			set.Add(i)
		}
	}
	return set
}

// flatten rebuilds the instruction list. Synthetic labels that nothing ever
// jumps to are dropped again, so a function that needed no restructuring
// round-trips unchanged.
func (g *graph) flatten() []ir.Instruction {
	referenced := mapset.NewThreadUnsafeSet[string]()
	for _, b := range g.blocks {
		for _, ins := range b.instrs {
			if op, ok := ins.(*ir.Operation); ok {
				for _, lab := range op.Labels {
					referenced.Add(lab)
				}
			}
		}
	}
	var out []ir.Instruction
	for _, b := range g.blocks {
		for i, ins := range b.instrs {
			if i == 0 && b.synthetic && !referenced.Contains(b.label) {
				continue
			}
			out = append(out, ins)
		}
	}
	return out
}
