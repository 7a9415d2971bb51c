package opt

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tobiwg/bril/ir"
)

func TestLVNFoldsConstants(t *testing.T) {
	fn := &ir.Function{
		Name: "main",
		Instrs: []ir.Instruction{
			ir.NewConst("a", ir.TypeInt, ir.Number(4)),
			ir.NewConst("b", ir.TypeInt, ir.Number(2)),
			ir.NewBinary(ir.Add, "c", ir.TypeInt, "a", "b"),
			&ir.Operation{Op: ir.Print, Args: []string{"c"}},
		},
	}
	LVN(fn)

	require.Len(t, fn.Instrs, 2)
	c := fn.Instrs[0].(*ir.Operation)
	require.Equal(t, ir.Const, c.Op)
	require.Equal(t, "c", c.Dest)
	require.Equal(t, ir.Number(6), *c.Value)
}

func TestLVNFoldsComparisonsAndLogic(t *testing.T) {
	fn := &ir.Function{
		Name: "main",
		Instrs: []ir.Instruction{
			ir.NewConst("x", ir.TypeInt, ir.Number(3)),
			ir.NewConst("y", ir.TypeInt, ir.Number(5)),
			ir.NewBinary(ir.Lt, "lt", ir.TypeBool, "x", "y"),
			&ir.Operation{Op: ir.Not, Dest: "ge", Type: ir.TypeBool, Args: []string{"lt"}},
			&ir.Operation{Op: ir.Print, Args: []string{"lt", "ge"}},
		},
	}
	LVN(fn)

	require.Len(t, fn.Instrs, 3)
	lt := fn.Instrs[0].(*ir.Operation)
	require.Equal(t, ir.Boolean(true), *lt.Value)
	ge := fn.Instrs[1].(*ir.Operation)
	require.Equal(t, ir.Const, ge.Op)
	require.Equal(t, ir.Boolean(false), *ge.Value)
}

func TestLVNDivisionByZeroFoldsToZero(t *testing.T) {
	fn := &ir.Function{
		Name: "main",
		Instrs: []ir.Instruction{
			ir.NewConst("x", ir.TypeInt, ir.Number(9)),
			ir.NewConst("zero", ir.TypeInt, ir.Number(0)),
			ir.NewBinary(ir.Div, "q", ir.TypeInt, "x", "zero"),
			&ir.Operation{Op: ir.Print, Args: []string{"q"}},
		},
	}
	LVN(fn)
	q := fn.Instrs[0].(*ir.Operation)
	require.Equal(t, ir.Const, q.Op)
	require.Equal(t, ir.Number(0), *q.Value)
}

func TestLVNEliminatesCommonSubexpressions(t *testing.T) {
	fn := &ir.Function{
		Name: "main",
		Params: []ir.Param{
			{Name: "a", Type: ir.TypeInt},
			{Name: "b", Type: ir.TypeInt},
		},
		Instrs: []ir.Instruction{
			ir.NewBinary(ir.Add, "x", ir.TypeInt, "a", "b"),
			ir.NewBinary(ir.Add, "y", ir.TypeInt, "b", "a"),
			&ir.Operation{Op: ir.Print, Args: []string{"x", "y"}},
		},
	}
	LVN(fn)

	// add is commutative, so y is the same value; the print reads x twice.
	require.Len(t, fn.Instrs, 2)
	p := fn.Instrs[1].(*ir.Operation)
	require.Equal(t, []string{"x", "x"}, p.Args)
}

func TestLVNDeduplicatesConstants(t *testing.T) {
	fn := &ir.Function{
		Name: "main",
		Instrs: []ir.Instruction{
			ir.NewConst("a", ir.TypeInt, ir.Number(1)),
			ir.NewConst("b", ir.TypeInt, ir.Number(1)),
			&ir.Operation{Op: ir.Print, Args: []string{"a", "b"}},
		},
	}
	LVN(fn)

	require.Len(t, fn.Instrs, 2)
	p := fn.Instrs[1].(*ir.Operation)
	require.Equal(t, []string{"a", "a"}, p.Args)
}

func TestLVNChasesCopies(t *testing.T) {
	fn := &ir.Function{
		Name:   "main",
		Params: []ir.Param{{Name: "v", Type: ir.TypeInt}},
		Instrs: []ir.Instruction{
			ir.NewId("w", ir.TypeInt, "v"),
			ir.NewId("u", ir.TypeInt, "w"),
			&ir.Operation{Op: ir.Print, Args: []string{"u"}},
		},
	}
	LVN(fn)

	// Both copies collapse; the print reads the original.
	require.Len(t, fn.Instrs, 1)
	p := fn.Instrs[0].(*ir.Operation)
	require.Equal(t, ir.Print, p.Op)
	require.Equal(t, []string{"v"}, p.Args)
}

func TestLVNRedefinitionInvalidatesTable(t *testing.T) {
	fn := &ir.Function{
		Name: "main",
		Params: []ir.Param{
			{Name: "p", Type: ir.TypeInt},
			{Name: "q", Type: ir.TypeInt},
		},
		Instrs: []ir.Instruction{
			ir.NewBinary(ir.Add, "a", ir.TypeInt, "p", "q"),
			&ir.Operation{Op: ir.Print, Args: []string{"a"}},
			ir.NewConst("a", ir.TypeInt, ir.Number(0)),
			ir.NewBinary(ir.Add, "b", ir.TypeInt, "p", "q"),
			&ir.Operation{Op: ir.Print, Args: []string{"a", "b"}},
		},
	}
	LVN(fn)

	// After a is overwritten, p+q must be recomputed, not read from a.
	var last *ir.Operation
	for _, ins := range fn.Instrs {
		if op, ok := ins.(*ir.Operation); ok && op.Dest == "b" {
			last = op
		}
	}
	require.NotNil(t, last)
	require.Equal(t, ir.Add, last.Op)
}

func TestLVNIsBlockLocal(t *testing.T) {
	// The same expression in different blocks is not shared.
	fn := &ir.Function{
		Name: "main",
		Params: []ir.Param{
			{Name: "p", Type: ir.TypeInt},
			{Name: "q", Type: ir.TypeInt},
		},
		Instrs: []ir.Instruction{
			ir.NewBinary(ir.Add, "x", ir.TypeInt, "p", "q"),
			&ir.Operation{Op: ir.Print, Args: []string{"x"}},
			&ir.Operation{Op: ir.Jmp, Labels: []string{"next"}},
			&ir.Label{Name: "next"},
			ir.NewBinary(ir.Add, "y", ir.TypeInt, "p", "q"),
			&ir.Operation{Op: ir.Print, Args: []string{"y"}},
		},
	}
	LVN(fn)

	adds := 0
	for _, ins := range fn.Instrs {
		if op, ok := ins.(*ir.Operation); ok && op.Op == ir.Add {
			adds++
		}
	}
	require.Equal(t, 2, adds)
}
