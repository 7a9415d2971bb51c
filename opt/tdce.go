package opt

import (
	mapset "github.com/deckarep/golang-set/v2"

	"github.com/tobiwg/bril/ir"
)

// TrivialDCE deletes pure assignments whose results are never used. It
// iterates to a fixpoint: removing one dead definition can expose another.
// Reports whether anything was removed.
func TrivialDCE(fn *ir.Function) bool {
	removed := false
	for {
		blocks := SplitBlocks(fn.Instrs)
		globals := globalUses(blocks)
		changed := false
		for i, block := range blocks {
			swept, n := sweepBlock(block, globals)
			if n > 0 {
				changed = true
				blocks[i] = swept
			}
		}
		if !changed {
			return removed
		}
		removed = true
		fn.Instrs = JoinBlocks(blocks)
	}
}

// globalUses computes the variables that block-local reasoning must not
// touch: names used outside their defining block, live-ins, arguments of
// effectful operations, and names defined in more than one block.
func globalUses(blocks [][]ir.Instruction) mapset.Set[string] {
	defs := make(map[string]mapset.Set[int])
	uses := make(map[string]mapset.Set[int])
	add := func(m map[string]mapset.Set[int], name string, block int) {
		s, ok := m[name]
		if !ok {
			s = mapset.NewThreadUnsafeSet[int]()
			m[name] = s
		}
		s.Add(block)
	}

	global := mapset.NewThreadUnsafeSet[string]()
	for bi, block := range blocks {
		for _, ins := range block {
			op, ok := ins.(*ir.Operation)
			if !ok {
				continue
			}
			for _, arg := range op.Args {
				add(uses, arg, bi)
			}
			if op.Dest != "" {
				add(defs, op.Dest, bi)
			}
			if op.Op.HasEffect() {
				for _, arg := range op.Args {
					global.Add(arg)
				}
			}
		}
	}
	for name, useIn := range uses {
		defIn, defined := defs[name]
		if !defined || !useIn.IsSubset(defIn) {
			global.Add(name)
		}
	}
	for name, defIn := range defs {
		if defIn.Cardinality() > 1 {
			global.Add(name)
		}
	}
	return global
}

// sweepBlock walks a block backwards, deleting pure definitions that are
// dead locally: unused before the block ends, or overwritten before any
// use. Effectful operations and labels always survive.
func sweepBlock(block []ir.Instruction, globals mapset.Set[string]) ([]ir.Instruction, int) {
	live := mapset.NewThreadUnsafeSet[string]()
	seenDefs := mapset.NewThreadUnsafeSet[string]()
	kept := make([]ir.Instruction, 0, len(block))
	dropped := 0

	for i := len(block) - 1; i >= 0; i-- {
		op, ok := block[i].(*ir.Operation)
		if !ok {
			kept = append(kept, block[i])
			continue
		}
		if op.Dest != "" && !op.Op.HasEffect() {
			if !live.Contains(op.Dest) && !globals.Contains(op.Dest) {
				dropped++
				continue
			}
			if !live.Contains(op.Dest) && seenDefs.Contains(op.Dest) {
				dropped++
				continue
			}
			seenDefs.Add(op.Dest)
			live.Remove(op.Dest)
		}
		kept = append(kept, block[i])
		for _, arg := range op.Args {
			live.Add(arg)
		}
	}

	for l, r := 0, len(kept)-1; l < r; l, r = l+1, r-1 {
		kept[l], kept[r] = kept[r], kept[l]
	}
	return kept, dropped
}
