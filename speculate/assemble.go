package speculate

import (
	"github.com/tobiwg/bril/ir"
)

// assemble replaces the function body with the speculative fast path
// followed by the fallback copy of the original body:
//
//	speculate; <guarded>; [gating guard]; commit; <deferred prints>; ret;
//	.bail: <original body>; [ret]
//
// The fallback is a deep copy, so later mutation of the new body cannot
// reach it, and semantics are preserved whenever any guard fires.
func assemble(fn *ir.Function, guarded, deferred []*ir.Operation, bail string, names *ir.NameGen) error {
	if len(fn.Instrs) == 0 {
		return ErrEmptyFunction
	}
	fallback := make([]ir.Instruction, 0, len(fn.Instrs)+1)
	for _, ins := range fn.Instrs {
		fallback = append(fallback, ins.Copy())
	}
	if !endsInRet(fallback) {
		fallback = append(fallback, ir.NewRet())
	}

	body := make([]ir.Instruction, 0, len(guarded)+len(deferred)+len(fallback)+6)
	body = append(body, ir.NewMarker(ir.Speculate))
	for _, op := range guarded {
		body = append(body, op)
	}
	if !containsGuard(guarded) {
		for _, op := range gatingGuard(guarded, bail, names) {
			body = append(body, op)
		}
	}
	body = append(body, ir.NewMarker(ir.Commit))
	for _, op := range deferred {
		body = append(body, op)
	}
	body = append(body, ir.NewRet())
	body = append(body, &ir.Label{Name: bail})
	body = append(body, fallback...)

	fn.Instrs = body
	return nil
}

// gatingGuard keeps every speculative region bounded by at least one check.
// It guards the most recently defined boolean in the sequence, or a
// synthesized true constant when the trace produced no boolean at all, so
// the emitted shape is uniform for the consuming runtime.
func gatingGuard(guarded []*ir.Operation, bail string, names *ir.NameGen) []*ir.Operation {
	for i := len(guarded) - 1; i >= 0; i-- {
		if op := guarded[i]; op.Dest != "" && op.Type == ir.TypeBool {
			return []*ir.Operation{ir.NewGuard(op.Dest, bail)}
		}
	}
	cond := names.Fresh("spec_true")
	return []*ir.Operation{
		ir.NewConst(cond, ir.TypeBool, ir.Boolean(true)),
		ir.NewGuard(cond, bail),
	}
}

func containsGuard(ops []*ir.Operation) bool {
	for _, op := range ops {
		if op.Op == ir.Guard {
			return true
		}
	}
	return false
}

func endsInRet(instrs []ir.Instruction) bool {
	if len(instrs) == 0 {
		return false
	}
	op, ok := instrs[len(instrs)-1].(*ir.Operation)
	return ok && op.Op == ir.Ret
}
