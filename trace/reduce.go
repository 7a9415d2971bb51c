package trace

import (
	mapset "github.com/deckarep/golang-set/v2"

	"github.com/tobiwg/bril/ir"
)

// Constant is a known literal together with its declared type.
type Constant struct {
	Type  ir.Type
	Value ir.Value
}

// ConstEnv maps a variable name to the constant it holds along the trace.
// The environment grows monotonically left to right: a trace is effectively
// single-assignment for every name the reducer learns, so entries are never
// overwritten after being read.
type ConstEnv map[string]Constant

// Lookup returns the constant bound to name, if any.
func (e ConstEnv) Lookup(name string) (Constant, bool) {
	c, ok := e[name]
	return c, ok
}

// Reduce runs the linear reduction over a trace: constant folding, then a
// use scan, then dead assignment elimination. The trace has no merges or
// back edges, so one pass of each suffices. The returned environment holds
// every constant learned during folding; guard lowering consults it for
// print values.
func Reduce(t Trace) (Trace, ConstEnv) {
	env := make(ConstEnv)

	// Fold pass. const binds its destination; add/sub/mul over two known
	// numbers collapses to an equivalent const. Everything else passes
	// through and leaves its destination unknown.
	folded := make(Trace, 0, len(t))
	for _, op := range t {
		switch {
		case op.Op == ir.Const && op.Dest != "" && op.Value != nil:
			env[op.Dest] = Constant{Type: op.Type, Value: *op.Value}
			folded = append(folded, op)
		case op.Op.Foldable() && op.Dest != "" && len(op.Args) == 2:
			x, okx := env.Lookup(op.Args[0])
			y, oky := env.Lookup(op.Args[1])
			if okx && oky &&
				x.Value.Kind() == ir.NumberKind && y.Value.Kind() == ir.NumberKind {
				v := ir.Number(fold(op.Op, x.Value.Num(), y.Value.Num()))
				env[op.Dest] = Constant{Type: op.Type, Value: v}
				folded = append(folded, ir.NewConst(op.Dest, op.Type, v))
				continue
			}
			folded = append(folded, op)
		default:
			folded = append(folded, op)
		}
	}

	// Use scan over the folded output.
	used := mapset.NewThreadUnsafeSet[string]()
	for _, op := range folded {
		for _, arg := range op.Args {
			used.Add(arg)
		}
	}

	// Dead assignment filter. Only pure value producers may be dropped;
	// control transfers, calls, returns, prints, and the speculation markers
	// survive regardless of destination use because a value does not capture
	// their effect.
	reduced := make(Trace, 0, len(folded))
	for _, op := range folded {
		dead := op.Dest != "" && !used.Contains(op.Dest) &&
			(op.Op == ir.Const || op.Op.Foldable())
		if !dead {
			reduced = append(reduced, op)
		}
	}
	return reduced, env
}

// fold applies the operator under double-precision arithmetic, whatever the
// declared operand type.
func fold(op ir.Opcode, x, y float64) float64 {
	switch op {
	case ir.Add:
		return x + y
	case ir.Sub:
		return x - y
	default:
		return x * y
	}
}
