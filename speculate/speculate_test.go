package speculate

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tobiwg/bril/briltxt"
	"github.com/tobiwg/bril/ir"
	"github.com/tobiwg/bril/trace"
)

func sumProgram() (*ir.Program, trace.Trace) {
	body := []ir.Instruction{
		ir.NewConst("a", ir.TypeInt, ir.Number(3)),
		ir.NewConst("b", ir.TypeInt, ir.Number(4)),
		ir.NewBinary(ir.Add, "c", ir.TypeInt, "a", "b"),
		&ir.Operation{Op: ir.Print, Args: []string{"c"}},
	}
	prog := &ir.Program{Functions: []*ir.Function{{Name: "main", Instrs: body}}}
	tr := trace.Trace{
		ir.NewConst("a", ir.TypeInt, ir.Number(3)),
		ir.NewConst("b", ir.TypeInt, ir.Number(4)),
		ir.NewBinary(ir.Add, "c", ir.TypeInt, "a", "b"),
		&ir.Operation{Op: ir.Print, Args: []string{"c"}},
	}
	return prog, tr
}

func TestTransformMissingMain(t *testing.T) {
	prog := &ir.Program{Functions: []*ir.Function{{Name: "helper"}}}
	err := Transform(prog, nil, Options{})
	require.ErrorIs(t, err, ErrNoMain)
}

func TestTransformEndToEnd(t *testing.T) {
	prog, tr := sumProgram()
	require.NoError(t, Transform(prog, tr, Options{}))

	text, err := briltxt.Render(prog)
	require.NoError(t, err)

	want := strings.Join([]string{
		"@main {",
		"  speculate;",
		"  c: int = const 7;",
		"  _expect_0: int = const 7;",
		"  _match_0: bool = eq c _expect_0;",
		"  guard _match_0 .bail;",
		"  commit;",
		"  print c;",
		"  ret;",
		".bail:",
		"  nop;",
		"  a: int = const 3;",
		"  b: int = const 4;",
		"  c: int = add a b;",
		"  print c;",
		"  ret;",
		"}",
		"",
	}, "\n")
	require.Equal(t, want, text)
}

func TestTransformAlwaysGuardsBetweenMarkers(t *testing.T) {
	// A trace with no branch and no print still gets a gating guard, so the
	// emitted shape is uniform for the runtime.
	body := []ir.Instruction{
		ir.NewConst("x", ir.TypeInt, ir.Number(1)),
		&ir.Operation{Op: ir.Print, Args: []string{"x"}},
	}
	prog := &ir.Program{Functions: []*ir.Function{{Name: "main", Instrs: body}}}
	tr := trace.Trace{
		ir.NewConst("x", ir.TypeInt, ir.Number(1)),
		{Op: ir.Nop},
	}
	require.NoError(t, Transform(prog, tr, Options{}))
	require.GreaterOrEqual(t, guardsBetweenMarkers(t, prog.Function("main").Instrs), 1)
}

func TestTransformLeavesOtherFunctionsAlone(t *testing.T) {
	prog, tr := sumProgram()
	other := &ir.Function{
		Name:   "helper",
		Instrs: []ir.Instruction{ir.NewRet()},
	}
	prog.Functions = append(prog.Functions, other)
	require.NoError(t, Transform(prog, tr, Options{}))
	require.Len(t, other.Instrs, 1)
}

func TestTransformPicksFreshBailLabel(t *testing.T) {
	prog, tr := sumProgram()
	main := prog.Function("main")
	main.Instrs = append([]ir.Instruction{&ir.Label{Name: "bail"}}, main.Instrs...)

	require.NoError(t, Transform(prog, tr, Options{}))

	// The existing label is taken, so the fallback gets a generated one.
	var labels []string
	for _, ins := range main.Instrs {
		if l, ok := ins.(*ir.Label); ok {
			labels = append(labels, l.Name)
		}
	}
	require.Contains(t, labels, "_bail_0")
}

func TestTransformHonorsBailOption(t *testing.T) {
	prog, tr := sumProgram()
	require.NoError(t, Transform(prog, tr, Options{BailLabel: "fallback"}))

	var found bool
	for _, ins := range prog.Function("main").Instrs {
		if l, ok := ins.(*ir.Label); ok && l.Name == "fallback" {
			found = true
		}
	}
	require.True(t, found)
}

func TestTransformPropagatesBareBranch(t *testing.T) {
	prog, _ := sumProgram()
	tr := trace.Trace{{Op: ir.Br, Labels: []string{"a", "b"}}}
	err := Transform(prog, tr, Options{})
	require.ErrorIs(t, err, ErrBareBranch)
}
