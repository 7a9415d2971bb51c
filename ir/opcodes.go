package ir

// Opcode identifies a Bril operation. Opcodes travel as plain strings in the
// JSON wire form, so the enumeration is string backed; unrecognized opcodes
// still round-trip and render, they are just never folded or eliminated.
type Opcode string

const (
	Const Opcode = "const"
	Add   Opcode = "add"
	Sub   Opcode = "sub"
	Mul   Opcode = "mul"
	Div   Opcode = "div"
	Id    Opcode = "id"

	Eq     Opcode = "eq"
	Lt     Opcode = "lt"
	Gt     Opcode = "gt"
	Le     Opcode = "le"
	Ge     Opcode = "ge"
	CharEq Opcode = "ceq"

	And Opcode = "and"
	Or  Opcode = "or"
	Not Opcode = "not"

	Br   Opcode = "br"
	Jmp  Opcode = "jmp"
	Call Opcode = "call"
	Ret  Opcode = "ret"

	Print Opcode = "print"
	Nop   Opcode = "nop"

	Guard     Opcode = "guard"
	Speculate Opcode = "speculate"
	Commit    Opcode = "commit"

	Alloc Opcode = "alloc"
	Store Opcode = "store"
	Free  Opcode = "free"
)

// Foldable reports whether the trace reducer may replace the operation with
// a const when both operands carry known constants.
func (op Opcode) Foldable() bool {
	return op == Add || op == Sub || op == Mul
}

// HasEffect reports whether the operation does something beyond producing a
// value: output, control transfer, calls, memory, or the speculation
// protocol. Operations with an effect are never deleted, whatever their
// destination.
// alloc counts as an effect as well: deleting one changes which pointer
// identities the program can observe.
func (op Opcode) HasEffect() bool {
	switch op {
	case Print, Br, Jmp, Call, Ret, Guard, Speculate, Commit,
		Store, Free, Alloc:
		return true
	}
	return false
}

// IsTerminator reports whether the operation unconditionally ends a basic
// block. Conditional guards fall through on success, so they do not
// terminate a block.
func (op Opcode) IsTerminator() bool {
	return op == Br || op == Jmp
}

// Commutative reports whether operand order is irrelevant, which lets value
// numbering canonicalize the argument list.
func (op Opcode) Commutative() bool {
	switch op {
	case Add, Mul, Eq, And, Or:
		return true
	}
	return false
}
