package opt

import (
	"slices"

	mapset "github.com/deckarep/golang-set/v2"

	"github.com/tobiwg/bril/ir"
)

// instrRef addresses one instruction inside a graph.
type instrRef struct {
	block, idx int
}

// LICM hoists loop-invariant pure computations out of natural loops into a
// preheader, creating one when the loop header lacks a unique out-of-loop
// predecessor. Reports whether anything was hoisted.
//
// The analysis expects mostly single-assignment input: a name defined more
// than once is never treated as invariant, so ordinary loop counters simply
// stay put. div is not hoisted because moving it can introduce a division
// fault on iterations that never executed it. Functions containing
// speculative control flow are left alone, since guard edges are not part of
// the modeled graph.
func LICM(fn *ir.Function) bool {
	if len(fn.Instrs) == 0 {
		return false
	}
	for _, ins := range fn.Instrs {
		if op, ok := ins.(*ir.Operation); ok {
			switch op.Op {
			case ir.Guard, ir.Speculate, ir.Commit:
				return false
			}
		}
	}

	names := ir.NewNameGen()
	names.SeedFunction(fn)
	g := buildGraph(fn.Instrs, names)

	changed := false
	for again := true; again; {
		again = false
		dom := g.dominators()
		for _, be := range g.backedges(dom) {
			loop := g.naturalLoop(be.tail, be.head)
			if len(g.invariants(loop)) == 0 {
				continue
			}
			// Inserting a preheader shifts block indices, so the loop is
			// carried across by label and the invariants recomputed.
			loopLabels := g.labelsOf(loop)
			pre := g.ensurePreheader(be.head, loop, names)
			loop = g.indicesOf(loopLabels)
			g.hoist(g.invariants(loop), pre)
			changed = true
			again = true
			break
		}
	}
	fn.Instrs = g.flatten()
	return changed
}

// hoistable ops are pure and cannot fault, so running them on loop entry is
// safe even when the loop body would have skipped them.
func hoistable(op *ir.Operation) bool {
	if op.Dest == "" {
		return false
	}
	switch op.Op {
	case ir.Const, ir.Id,
		ir.Add, ir.Sub, ir.Mul,
		ir.Eq, ir.Lt, ir.Gt, ir.Le, ir.Ge,
		ir.Not, ir.And, ir.Or:
		return true
	}
	return false
}

// invariants marks hoistable instructions whose arguments are all defined
// outside the loop or by instructions already marked invariant, iterating to
// a fixpoint so chains of invariant definitions are found.
func (g *graph) invariants(loop mapset.Set[int]) map[instrRef]bool {
	defs := make(map[string]instrRef)
	count := make(map[string]int)
	for bi, b := range g.blocks {
		for ii, ins := range b.instrs {
			if op, ok := ins.(*ir.Operation); ok && op.Dest != "" {
				defs[op.Dest] = instrRef{block: bi, idx: ii}
				count[op.Dest]++
			}
		}
	}

	loopBlocks := loop.ToSlice()
	slices.Sort(loopBlocks)

	inv := make(map[instrRef]bool)
	for changed := true; changed; {
		changed = false
		for _, bi := range loopBlocks {
			for ii, ins := range g.blocks[bi].instrs {
				op, ok := ins.(*ir.Operation)
				if !ok || !hoistable(op) {
					continue
				}
				ref := instrRef{block: bi, idx: ii}
				if inv[ref] || count[op.Dest] != 1 {
					continue
				}
				movable := true
				for _, arg := range op.Args {
					d, defined := defs[arg]
					if !defined {
						// Parameter: defined before the loop.
						continue
					}
					if count[arg] != 1 {
						movable = false
						break
					}
					if loop.Contains(d.block) && !inv[d] {
						movable = false
						break
					}
				}
				if movable {
					inv[ref] = true
					changed = true
				}
			}
		}
	}
	return inv
}

// ensurePreheader returns a block that is the loop header's unique
// out-of-loop predecessor, reusing one when it already exists and otherwise
// inserting a fresh block in front of the header. Explicit jumps into the
// header from outside the loop are retargeted at the new block; backedges
// keep pointing at the header.
func (g *graph) ensurePreheader(head int, loop mapset.Set[int], names *ir.NameGen) int {
	header := g.blocks[head]
	var outside []int
	header.preds.Each(func(p int) bool {
		if !loop.Contains(p) {
			outside = append(outside, p)
		}
		return false
	})
	if len(outside) == 1 {
		p := outside[0]
		if g.blocks[p].succs.Cardinality() == 1 && g.blocks[p].succs.Contains(head) {
			return p
		}
	}

	label := header.label + "_preheader"
	if names.Taken(label) {
		label = names.Fresh(label)
	} else {
		names.Reserve(label)
	}
	pre := &block{
		label:     label,
		synthetic: true,
		instrs: []ir.Instruction{
			&ir.Label{Name: label},
			&ir.Operation{Op: ir.Jmp, Labels: []string{header.label}},
		},
	}
	for i, b := range g.blocks {
		if loop.Contains(i) {
			continue
		}
		term := b.terminator()
		if term == nil || term.Op == ir.Ret {
			continue
		}
		for k, lab := range term.Labels {
			if lab == header.label {
				term.Labels[k] = label
			}
		}
	}

	g.blocks = slices.Insert(g.blocks, head, pre)
	g.connect()
	return g.index[label]
}

// hoist clones the invariant instructions into the preheader in dependency
// order and deletes the originals.
func (g *graph) hoist(inv map[instrRef]bool, pre int) {
	order := g.topoInvariants(inv)
	pb := g.blocks[pre]
	at := len(pb.instrs)
	if pb.terminator() != nil {
		at--
	}
	for _, ref := range order {
		pb.instrs = slices.Insert(pb.instrs, at, g.op(ref).Copy())
		at++
	}

	byBlock := make(map[int][]int)
	for ref := range inv {
		byBlock[ref.block] = append(byBlock[ref.block], ref.idx)
	}
	for bi, idxs := range byBlock {
		slices.Sort(idxs)
		for k := len(idxs) - 1; k >= 0; k-- {
			b := g.blocks[bi]
			b.instrs = slices.Delete(b.instrs, idxs[k], idxs[k]+1)
		}
	}
}

// topoInvariants orders the invariant set so every definition precedes its
// uses within the set.
func (g *graph) topoInvariants(inv map[instrRef]bool) []instrRef {
	refs := make([]instrRef, 0, len(inv))
	for ref := range inv {
		refs = append(refs, ref)
	}
	slices.SortFunc(refs, func(a, b instrRef) int {
		if a.block != b.block {
			return a.block - b.block
		}
		return a.idx - b.idx
	})

	producer := make(map[string]int, len(refs))
	for k, ref := range refs {
		producer[g.op(ref).Dest] = k
	}
	adj := make([][]int, len(refs))
	indeg := make([]int, len(refs))
	for k, ref := range refs {
		for _, arg := range g.op(ref).Args {
			if p, ok := producer[arg]; ok {
				adj[p] = append(adj[p], k)
				indeg[k]++
			}
		}
	}

	var queue []int
	for k := range refs {
		if indeg[k] == 0 {
			queue = append(queue, k)
		}
	}
	var order []instrRef
	for len(queue) > 0 {
		x := queue[0]
		queue = queue[1:]
		order = append(order, refs[x])
		for _, y := range adj[x] {
			if indeg[y]--; indeg[y] == 0 {
				queue = append(queue, y)
			}
		}
	}
	if len(order) != len(refs) {
		return refs
	}
	return order
}
