package ir

// Constructors for the operation shapes the transformation synthesizes.
// Required fields are enforced by signature, so a malformed synthetic
// instruction cannot be built.

// NewConst builds `dest: typ = const v`.
func NewConst(dest string, typ Type, v Value) *Operation {
	return &Operation{Op: Const, Dest: dest, Type: typ, Value: &v}
}

// NewBinary builds `dest: typ = op x y`.
func NewBinary(op Opcode, dest string, typ Type, x, y string) *Operation {
	return &Operation{Op: op, Dest: dest, Type: typ, Args: []string{x, y}}
}

// NewId builds `dest: typ = id src`.
func NewId(dest string, typ Type, src string) *Operation {
	return &Operation{Op: Id, Dest: dest, Type: typ, Args: []string{src}}
}

// NewGuard builds `guard cond .target`: continue on a true condition,
// transfer to target on a false one.
func NewGuard(cond, target string) *Operation {
	return &Operation{Op: Guard, Args: []string{cond}, Labels: []string{target}}
}

// NewMarker builds a bare operation with no operands, such as speculate,
// commit, or nop.
func NewMarker(op Opcode) *Operation {
	return &Operation{Op: op}
}

// NewRet builds a return without a value.
func NewRet() *Operation {
	return &Operation{Op: Ret}
}
