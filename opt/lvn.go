package opt

import (
	"fmt"
	"math"
	"slices"
	"strings"

	"github.com/tobiwg/bril/ir"
)

// LVN runs local value numbering over every basic block: copy chasing
// through id, duplicate constant elimination, constant folding, and common
// subexpression elimination, followed by a trivial DCE sweep to collect the
// assignments the renumbering made dead.
func LVN(fn *ir.Function) {
	blocks := SplitBlocks(fn.Instrs)
	for i, block := range blocks {
		blocks[i] = numberBlock(block)
	}
	fn.Instrs = JoinBlocks(blocks)
	TrivialDCE(fn)
}

type tableEntry struct {
	num   int
	canon string
}

// valueTable is the per-block numbering state.
type valueTable struct {
	next     int
	exprs    map[string]tableEntry // signature -> canonical holder
	varNum   map[string]int
	numConst map[int]ir.Value // value numbers with a known literal
	subst    map[string]string
}

func newValueTable() *valueTable {
	return &valueTable{
		exprs:    make(map[string]tableEntry),
		varNum:   make(map[string]int),
		numConst: make(map[int]ir.Value),
		subst:    make(map[string]string),
	}
}

// chase resolves a name through recorded copies to its canonical source.
func (t *valueTable) chase(name string) string {
	for {
		next, ok := t.subst[name]
		if !ok {
			return name
		}
		name = next
	}
}

// number returns the value number for a name, minting one if needed.
func (t *valueTable) number(name string) int {
	if n, ok := t.varNum[name]; ok {
		return n
	}
	n := t.next
	t.next++
	t.varNum[name] = n
	return n
}

// invalidate drops table entries that used dest as their canonical holder,
// since the old value is no longer reachable through it.
func (t *valueTable) invalidate(dest string) {
	for sig, e := range t.exprs {
		if e.canon == dest {
			delete(t.exprs, sig)
		}
	}
	delete(t.subst, dest)
}

// define invalidates dest and gives it a fresh value number.
func (t *valueTable) define(dest string) int {
	t.invalidate(dest)
	n := t.next
	t.next++
	t.varNum[dest] = n
	return n
}

func constSig(v ir.Value) string {
	return fmt.Sprintf("const|%d|%s", v.Kind(), v.String())
}

func (t *valueTable) opSig(op *ir.Operation) string {
	nums := make([]int, len(op.Args))
	for i, a := range op.Args {
		nums[i] = t.number(a)
	}
	if op.Op.Commutative() {
		slices.Sort(nums)
	}
	var sb strings.Builder
	sb.WriteString(string(op.Op))
	for _, n := range nums {
		fmt.Fprintf(&sb, "|%d", n)
	}
	return sb.String()
}

// record binds dest to a signature, either reusing the canonical holder
// (returning false: the instruction is redundant) or installing dest as the
// new holder.
func (t *valueTable) record(sig, dest string) bool {
	if e, ok := t.exprs[sig]; ok {
		if e.canon == dest {
			// dest already holds this very value.
			return false
		}
		t.invalidate(dest)
		t.subst[dest] = e.canon
		t.varNum[dest] = e.num
		return false
	}
	num := t.define(dest)
	t.exprs[sig] = tableEntry{num: num, canon: dest}
	return true
}

func numberBlock(block []ir.Instruction) []ir.Instruction {
	t := newValueTable()
	out := make([]ir.Instruction, 0, len(block))

	for _, ins := range block {
		op, ok := ins.(*ir.Operation)
		if !ok {
			out = append(out, ins)
			continue
		}
		for i, a := range op.Args {
			op.Args[i] = t.chase(a)
		}

		switch {
		case op.Op == ir.Id && op.Dest != "" && len(op.Args) == 1:
			src := op.Args[0]
			num := t.number(src)
			t.define(op.Dest)
			t.varNum[op.Dest] = num
			t.subst[op.Dest] = src
			out = append(out, op)

		case op.Op == ir.Const && op.Dest != "" && op.Value != nil:
			if t.record(constSig(*op.Value), op.Dest) {
				t.numConst[t.varNum[op.Dest]] = *op.Value
				out = append(out, op)
			}

		case op.Dest != "" && !op.Op.HasEffect() && len(op.Args) > 0:
			if v, folded := t.fold(op); folded {
				if t.record(constSig(v), op.Dest) {
					t.numConst[t.varNum[op.Dest]] = v
					out = append(out, ir.NewConst(op.Dest, op.Type, v))
				}
				continue
			}
			if t.record(t.opSig(op), op.Dest) {
				out = append(out, op)
			}

		default:
			if op.Dest != "" {
				t.define(op.Dest)
			}
			out = append(out, op)
		}
	}
	return out
}

// fold evaluates the operation when every argument carries a known literal.
func (t *valueTable) fold(op *ir.Operation) (ir.Value, bool) {
	vals := make([]ir.Value, len(op.Args))
	for i, a := range op.Args {
		n, ok := t.varNum[a]
		if !ok {
			return ir.Value{}, false
		}
		v, ok := t.numConst[n]
		if !ok {
			return ir.Value{}, false
		}
		vals[i] = v
	}
	return foldOp(op.Op, vals)
}

func foldOp(op ir.Opcode, vals []ir.Value) (ir.Value, bool) {
	numbers := func() bool {
		for _, v := range vals {
			if v.Kind() != ir.NumberKind {
				return false
			}
		}
		return true
	}
	bools := func() bool {
		for _, v := range vals {
			if v.Kind() != ir.BoolKind {
				return false
			}
		}
		return true
	}

	switch op {
	case ir.Not:
		if len(vals) == 1 && bools() {
			return ir.Boolean(!vals[0].Bool()), true
		}
	case ir.And:
		if len(vals) == 2 && bools() {
			return ir.Boolean(vals[0].Bool() && vals[1].Bool()), true
		}
	case ir.Or:
		if len(vals) == 2 && bools() {
			return ir.Boolean(vals[0].Bool() || vals[1].Bool()), true
		}
	case ir.Add, ir.Sub, ir.Mul, ir.Div:
		if len(vals) != 2 || !numbers() {
			return ir.Value{}, false
		}
		x, y := vals[0].Num(), vals[1].Num()
		switch op {
		case ir.Add:
			return ir.Number(x + y), true
		case ir.Sub:
			return ir.Number(x - y), true
		case ir.Mul:
			return ir.Number(x * y), true
		default:
			// Integer division by zero folds to zero rather than aborting
			// the pass.
			if y == 0 {
				return ir.Number(0), true
			}
			return ir.Number(math.Floor(x / y)), true
		}
	case ir.Eq, ir.Lt, ir.Gt, ir.Le, ir.Ge:
		if len(vals) != 2 || !numbers() {
			return ir.Value{}, false
		}
		x, y := vals[0].Num(), vals[1].Num()
		switch op {
		case ir.Eq:
			return ir.Boolean(x == y), true
		case ir.Lt:
			return ir.Boolean(x < y), true
		case ir.Gt:
			return ir.Boolean(x > y), true
		case ir.Le:
			return ir.Boolean(x <= y), true
		default:
			return ir.Boolean(x >= y), true
		}
	}
	return ir.Value{}, false
}
