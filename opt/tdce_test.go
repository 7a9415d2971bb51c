package opt

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tobiwg/bril/ir"
)

func ops(instrs []ir.Instruction) []ir.Opcode {
	var out []ir.Opcode
	for _, ins := range instrs {
		if op, ok := ins.(*ir.Operation); ok {
			out = append(out, op.Op)
		}
	}
	return out
}

func dests(instrs []ir.Instruction) []string {
	var out []string
	for _, ins := range instrs {
		if op, ok := ins.(*ir.Operation); ok && op.Dest != "" {
			out = append(out, op.Dest)
		}
	}
	return out
}

func TestTrivialDCERemovesUnusedAssignments(t *testing.T) {
	fn := &ir.Function{
		Name: "main",
		Instrs: []ir.Instruction{
			ir.NewConst("a", ir.TypeInt, ir.Number(4)),
			ir.NewConst("b", ir.TypeInt, ir.Number(2)),
			ir.NewConst("c", ir.TypeInt, ir.Number(1)),
			ir.NewBinary(ir.Add, "d", ir.TypeInt, "a", "b"),
			&ir.Operation{Op: ir.Print, Args: []string{"d"}},
		},
	}
	require.True(t, TrivialDCE(fn))
	require.Equal(t, []string{"a", "b", "d"}, dests(fn.Instrs))
}

func TestTrivialDCECascades(t *testing.T) {
	// b feeds only the dead c, so removing c must also remove b.
	fn := &ir.Function{
		Name: "main",
		Instrs: []ir.Instruction{
			ir.NewConst("a", ir.TypeInt, ir.Number(1)),
			ir.NewConst("b", ir.TypeInt, ir.Number(2)),
			ir.NewBinary(ir.Add, "c", ir.TypeInt, "b", "b"),
			&ir.Operation{Op: ir.Print, Args: []string{"a"}},
		},
	}
	require.True(t, TrivialDCE(fn))
	require.Equal(t, []string{"a"}, dests(fn.Instrs))
}

func TestTrivialDCEKeepsEffectfulOps(t *testing.T) {
	fn := &ir.Function{
		Name: "main",
		Instrs: []ir.Instruction{
			&ir.Operation{Op: ir.Call, Dest: "ignored", Type: ir.TypeInt, Funcs: []string{"f"}},
			&ir.Operation{Op: ir.Ret},
		},
	}
	require.False(t, TrivialDCE(fn))
	require.Equal(t, []ir.Opcode{ir.Call, ir.Ret}, ops(fn.Instrs))
}

func TestTrivialDCERemovesOverwrittenDefinition(t *testing.T) {
	fn := &ir.Function{
		Name: "main",
		Instrs: []ir.Instruction{
			ir.NewConst("a", ir.TypeInt, ir.Number(1)),
			ir.NewConst("a", ir.TypeInt, ir.Number(2)),
			&ir.Operation{Op: ir.Print, Args: []string{"a"}},
		},
	}
	require.True(t, TrivialDCE(fn))
	require.Len(t, fn.Instrs, 2)
	first := fn.Instrs[0].(*ir.Operation)
	require.Equal(t, ir.Number(2), *first.Value)
}

func TestTrivialDCEKeepsCrossBlockUses(t *testing.T) {
	fn := &ir.Function{
		Name: "main",
		Instrs: []ir.Instruction{
			ir.NewConst("x", ir.TypeInt, ir.Number(7)),
			&ir.Operation{Op: ir.Jmp, Labels: []string{"out"}},
			&ir.Label{Name: "out"},
			&ir.Operation{Op: ir.Print, Args: []string{"x"}},
		},
	}
	require.False(t, TrivialDCE(fn))
	require.Len(t, fn.Instrs, 4)
}
