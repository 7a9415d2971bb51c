// Package ir defines the Bril program model: programs, functions, and the
// closed instruction sum of labels and operations, together with the JSON
// wire codec and a collision-free name generator.
package ir

// Type is a Bril type tag. Parameterized types are not modeled; the core
// opcodes only touch the primitive tags below.
type Type string

const (
	TypeInt   Type = "int"
	TypeBool  Type = "bool"
	TypeFloat Type = "float"
	TypeChar  Type = "char"
)

// Instruction is one element of a function body: either a *Label or an
// *Operation. The sum is closed; anything else is a structural error and the
// renderer rejects it.
type Instruction interface {
	// Copy returns a deep copy that shares no mutable state with the
	// receiver.
	Copy() Instruction

	isInstruction()
}

// Label marks a jump target inside a function body.
type Label struct {
	Name string
}

func (l *Label) Copy() Instruction {
	cp := *l
	return &cp
}

func (*Label) isInstruction() {}

// Operation is a single executable Bril instruction. Which of the optional
// fields are populated depends on the opcode; the constructors in build.go
// enforce the per-opcode shape for everything this package synthesizes.
type Operation struct {
	Op     Opcode
	Dest   string
	Type   Type
	Args   []string
	Funcs  []string
	Labels []string
	Value  *Value
}

func (o *Operation) Copy() Instruction {
	cp := *o
	cp.Args = append([]string(nil), o.Args...)
	cp.Funcs = append([]string(nil), o.Funcs...)
	cp.Labels = append([]string(nil), o.Labels...)
	if o.Value != nil {
		v := *o.Value
		cp.Value = &v
	}
	return &cp
}

func (*Operation) isInstruction() {}

// Param is one formal parameter of a function.
type Param struct {
	Name string `json:"name"`
	Type Type   `json:"type"`
}

// Function is a named, ordered instruction sequence with typed parameters
// and an optional return type.
type Function struct {
	Name   string        `json:"name"`
	Params []Param       `json:"args,omitempty"`
	Type   Type          `json:"type,omitempty"`
	Instrs []Instruction `json:"instrs"`
}

// Program is an ordered collection of functions. A runnable program contains
// a function named "main".
type Program struct {
	Functions []*Function `json:"functions"`
}

// Function returns the function with the given name, or nil.
func (p *Program) Function(name string) *Function {
	for _, fn := range p.Functions {
		if fn.Name == name {
			return fn
		}
	}
	return nil
}
