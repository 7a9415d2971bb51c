package speculate

import (
	"fmt"

	"github.com/tobiwg/bril/ir"
	"github.com/tobiwg/bril/trace"
)

// lowerTrace rewrites the reduced trace into a guarded sequence plus the
// queue of prints to replay after commit.
//
// Control transfers become runtime checks: a branch turns into a guard on
// its recorded condition, a jump vanishes because the trace already encodes
// the taken path positionally. Calls and returns cannot execute inside a
// speculative region, so the first one becomes an unconditional bail and the
// rest of the trace is discarded as unreachable. Prints never run inside the
// region; each one either contributes value guards and joins the deferred
// queue, or, when a printed value is unknown, collapses into an
// unconditional bail.
func lowerTrace(t trace.Trace, env trace.ConstEnv, bail string, names *ir.NameGen) (guarded, deferred []*ir.Operation, err error) {
	for i, op := range t {
		switch op.Op {
		case ir.Jmp:
			// Redundant: the next trace instruction is the jump target.

		case ir.Br:
			if len(op.Args) == 0 {
				return nil, nil, fmt.Errorf("%w at trace position %d", ErrBareBranch, i)
			}
			guarded = append(guarded, ir.NewGuard(op.Args[0], bail))

		case ir.Call, ir.Ret:
			guarded = append(guarded, bailAlways(bail, names)...)
			return guarded, deferred, nil

		case ir.Print:
			checks, ok := printChecks(op, env, bail, names)
			guarded = append(guarded, checks...)
			if ok {
				deferred = append(deferred, op)
			}

		default:
			guarded = append(guarded, op)
		}
	}
	return guarded, deferred, nil
}

// printChecks builds the guards that validate a print before it is deferred.
// The second result reports whether the print may be replayed at all: a
// print with any unknown argument always bails and is never queued.
func printChecks(op *ir.Operation, env trace.ConstEnv, bail string, names *ir.NameGen) ([]*ir.Operation, bool) {
	for _, arg := range op.Args {
		if _, ok := env.Lookup(arg); !ok {
			return bailAlways(bail, names), false
		}
	}
	var checks []*ir.Operation
	for _, arg := range op.Args {
		c, _ := env.Lookup(arg)
		expect := names.Fresh("expect")
		match := names.Fresh("match")
		cmp := ir.Eq
		if c.Value.Kind() == ir.CharKind {
			cmp = ir.CharEq
		}
		checks = append(checks,
			ir.NewConst(expect, c.Type, c.Value),
			ir.NewBinary(cmp, match, ir.TypeBool, arg, expect),
			ir.NewGuard(match, bail),
		)
	}
	return checks, true
}

// bailAlways synthesizes a guard that can never pass.
func bailAlways(bail string, names *ir.NameGen) []*ir.Operation {
	cond := names.Fresh("spec_false")
	return []*ir.Operation{
		ir.NewConst(cond, ir.TypeBool, ir.Boolean(false)),
		ir.NewGuard(cond, bail),
	}
}
