package ir

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNameGenSkipsReservedNames(t *testing.T) {
	g := NewNameGen()
	g.Reserve("_tmp_0", "_tmp_2")

	require.Equal(t, "_tmp_1", g.Fresh("tmp"))
	require.Equal(t, "_tmp_3", g.Fresh("tmp"))
	require.Equal(t, "_other_0", g.Fresh("other"))
}

func TestNameGenNeverRepeats(t *testing.T) {
	g := NewNameGen()
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		n := g.Fresh("v")
		require.False(t, seen[n], n)
		seen[n] = true
		require.True(t, g.Taken(n))
	}
}

func TestSeedFunctionReservesEverything(t *testing.T) {
	fn := &Function{
		Name:   "main",
		Params: []Param{{Name: "p", Type: TypeInt}},
		Instrs: []Instruction{
			&Label{Name: "top"},
			NewConst("c", TypeInt, Number(1)),
			NewBinary(Add, "sum", TypeInt, "c", "p"),
			NewGuard("cond", "out"),
		},
	}
	g := NewNameGen()
	g.SeedFunction(fn)

	for _, name := range []string{"p", "top", "c", "sum", "cond", "out"} {
		require.True(t, g.Taken(name), name)
	}
	require.False(t, g.Taken("unrelated"))
}
