// Package briltxt serializes a program into the external Bril text form.
package briltxt

import (
	"errors"
	"fmt"
	"strings"

	"github.com/tobiwg/bril/ir"
)

// ErrMalformedProgram is wrapped by every structural rendering failure:
// unnamed functions, missing instruction lists, and instructions that are
// neither labels nor operations. Rendering is all or nothing; no partial
// text escapes on error.
var ErrMalformedProgram = errors.New("briltxt: malformed program")

// Render produces the textual program, one function per block, one
// instruction per line, each line terminated by a semicolon.
func Render(p *ir.Program) (string, error) {
	var sb strings.Builder
	for i, fn := range p.Functions {
		if i > 0 {
			sb.WriteByte('\n')
		}
		if err := renderFunction(&sb, fn); err != nil {
			return "", err
		}
	}
	return sb.String(), nil
}

func renderFunction(sb *strings.Builder, fn *ir.Function) error {
	if fn == nil || fn.Name == "" {
		return fmt.Errorf("%w: function without a name", ErrMalformedProgram)
	}
	if fn.Instrs == nil {
		return fmt.Errorf("%w: function %s has no instruction list", ErrMalformedProgram, fn.Name)
	}

	sb.WriteByte('@')
	sb.WriteString(fn.Name)
	if len(fn.Params) > 0 {
		sb.WriteByte('(')
		for i, p := range fn.Params {
			if i > 0 {
				sb.WriteString(", ")
			}
			fmt.Fprintf(sb, "%s: %s", p.Name, p.Type)
		}
		sb.WriteByte(')')
	}
	if fn.Type != "" {
		fmt.Fprintf(sb, ": %s", fn.Type)
	}
	sb.WriteString(" {\n")

	for _, ins := range fn.Instrs {
		switch ins := ins.(type) {
		case *ir.Label:
			// A nop directly after each label keeps every label a valid
			// jump target even when nothing else follows it.
			fmt.Fprintf(sb, ".%s:\n  nop;\n", ins.Name)
		case *ir.Operation:
			if err := renderOperation(sb, fn.Name, ins); err != nil {
				return err
			}
		default:
			return fmt.Errorf("%w: function %s holds an instruction that is neither label nor operation", ErrMalformedProgram, fn.Name)
		}
	}

	sb.WriteString("}\n")
	return nil
}

func renderOperation(sb *strings.Builder, fnName string, op *ir.Operation) error {
	if op.Op == "" {
		return fmt.Errorf("%w: function %s holds an operation without an opcode", ErrMalformedProgram, fnName)
	}
	sb.WriteString("  ")
	if op.Dest != "" {
		if op.Type != "" {
			fmt.Fprintf(sb, "%s: %s = ", op.Dest, op.Type)
		} else {
			fmt.Fprintf(sb, "%s = ", op.Dest)
		}
	}
	sb.WriteString(string(op.Op))
	for _, f := range op.Funcs {
		sb.WriteString(" @")
		sb.WriteString(f)
	}
	for _, a := range op.Args {
		sb.WriteByte(' ')
		sb.WriteString(a)
	}
	if op.Value != nil {
		sb.WriteByte(' ')
		sb.WriteString(op.Value.String())
	}
	for _, l := range op.Labels {
		sb.WriteString(" .")
		sb.WriteString(l)
	}
	sb.WriteString(";\n")
	return nil
}
