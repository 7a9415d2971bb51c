// Package speculate turns a reduced execution trace into a guarded
// speculative fast path spliced in front of the original function body.
//
// The transformation rewrites main only: the guarded sequence runs between
// speculate and commit, observable side effects are deferred until after
// commit, and every guard transfers to a bail label that reenters an
// untouched copy of the original body.
package speculate

import (
	"errors"

	"github.com/tobiwg/bril/ir"
	"github.com/tobiwg/bril/trace"
)

const entryFunction = "main"

var (
	// ErrNoMain is returned when the program lacks an entry function.
	ErrNoMain = errors.New("speculate: program has no main function")
	// ErrBareBranch is returned for a recorded branch without a condition
	// argument, which means the trace itself is malformed.
	ErrBareBranch = errors.New("speculate: branch without condition")
	// ErrEmptyFunction is returned when the rewrite target has no body to
	// fall back to.
	ErrEmptyFunction = errors.New("speculate: function has no body")
)

// Options tune the transformation.
type Options struct {
	// BailLabel is the base name for the fallback label. It is made fresh
	// against names already present in the function. Empty means "bail".
	BailLabel string
}

// Transform rewrites the program's main function in place: the trace is
// reduced, lowered into guards, and assembled into a speculate/commit
// bracket with the original body as the bail path. The rest of the program
// is left untouched.
func Transform(prog *ir.Program, t trace.Trace, opts Options) error {
	fn := prog.Function(entryFunction)
	if fn == nil {
		return ErrNoMain
	}

	names := ir.NewNameGen()
	names.SeedFunction(fn)
	for _, op := range t {
		names.SeedOperation(op)
	}

	bail := opts.BailLabel
	if bail == "" {
		bail = "bail"
	}
	if names.Taken(bail) {
		bail = names.Fresh(bail)
	} else {
		names.Reserve(bail)
	}

	reduced, env := trace.Reduce(t)
	guarded, deferred, err := lowerTrace(reduced, env, bail, names)
	if err != nil {
		return err
	}
	return assemble(fn, guarded, deferred, bail, names)
}
