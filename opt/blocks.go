// Package opt holds intra-function passes that run over fully formed
// control flow: basic block splitting, trivial dead code elimination, local
// value numbering, and loop-invariant code motion. The speculation pipeline
// does not invoke these; they are exposed as standalone program-to-program
// transformations.
package opt

import (
	"slices"

	mapset "github.com/deckarep/golang-set/v2"

	"github.com/tobiwg/bril/ir"
)

// SplitBlocks cuts an instruction sequence into basic blocks. A block
// starts at the first instruction, at every label, at every jump target,
// and right after every terminator.
func SplitBlocks(instrs []ir.Instruction) [][]ir.Instruction {
	if len(instrs) == 0 {
		return nil
	}
	labelAt := make(map[string]int)
	for i, ins := range instrs {
		if l, ok := ins.(*ir.Label); ok {
			labelAt[l.Name] = i
		}
	}

	leaders := mapset.NewThreadUnsafeSet[int](0)
	for i, ins := range instrs {
		switch ins := ins.(type) {
		case *ir.Label:
			leaders.Add(i)
		case *ir.Operation:
			if ins.Op.IsTerminator() {
				for _, target := range ins.Labels {
					if at, ok := labelAt[target]; ok {
						leaders.Add(at)
					}
				}
				if i+1 < len(instrs) {
					leaders.Add(i + 1)
				}
			}
		}
	}

	starts := leaders.ToSlice()
	slices.Sort(starts)

	blocks := make([][]ir.Instruction, 0, len(starts))
	for i, start := range starts {
		end := len(instrs)
		if i+1 < len(starts) {
			end = starts[i+1]
		}
		blocks = append(blocks, instrs[start:end])
	}
	return blocks
}

// JoinBlocks concatenates blocks back into one instruction sequence.
func JoinBlocks(blocks [][]ir.Instruction) []ir.Instruction {
	var out []ir.Instruction
	for _, b := range blocks {
		out = append(out, b...)
	}
	return out
}
