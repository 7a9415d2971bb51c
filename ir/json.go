package ir

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrNotOperation is returned when a record that must be an executable
// operation turns out to be a label or carries no opcode.
var ErrNotOperation = errors.New("ir: record is not an operation")

// operationJSON mirrors Operation with wire tags. Operation itself keeps
// plain fields so the rest of the module is not tied to the codec.
type operationJSON struct {
	Op     Opcode   `json:"op"`
	Dest   string   `json:"dest,omitempty"`
	Type   Type     `json:"type,omitempty"`
	Args   []string `json:"args,omitempty"`
	Funcs  []string `json:"funcs,omitempty"`
	Labels []string `json:"labels,omitempty"`
	Value  *Value   `json:"value,omitempty"`
}

type labelJSON struct {
	Label string `json:"label"`
}

func (o *Operation) MarshalJSON() ([]byte, error) {
	return json.Marshal(operationJSON{
		Op:     o.Op,
		Dest:   o.Dest,
		Type:   o.Type,
		Args:   o.Args,
		Funcs:  o.Funcs,
		Labels: o.Labels,
		Value:  o.Value,
	})
}

func (l *Label) MarshalJSON() ([]byte, error) {
	return json.Marshal(labelJSON{Label: l.Name})
}

// DecodeInstruction decodes a single JSON record into a *Label or an
// *Operation, discriminating on which of the "label"/"op" keys is present.
func DecodeInstruction(data []byte) (Instruction, error) {
	var probe struct {
		Label *string `json:"label"`
		Op    *Opcode `json:"op"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, err
	}
	switch {
	case probe.Label != nil:
		return &Label{Name: *probe.Label}, nil
	case probe.Op != nil:
		var raw operationJSON
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, err
		}
		return &Operation{
			Op:     raw.Op,
			Dest:   raw.Dest,
			Type:   raw.Type,
			Args:   raw.Args,
			Funcs:  raw.Funcs,
			Labels: raw.Labels,
			Value:  raw.Value,
		}, nil
	default:
		return nil, fmt.Errorf("instruction %s has neither label nor op", data)
	}
}

// DecodeOperation decodes a record that must be an executable operation.
// Labels are rejected; recorded traces contain operations only.
func DecodeOperation(data []byte) (*Operation, error) {
	ins, err := DecodeInstruction(data)
	if err != nil {
		return nil, err
	}
	op, ok := ins.(*Operation)
	if !ok {
		return nil, ErrNotOperation
	}
	return op, nil
}

func (f *Function) UnmarshalJSON(data []byte) error {
	var raw struct {
		Name   string            `json:"name"`
		Params []Param           `json:"args"`
		Type   Type              `json:"type"`
		Instrs []json.RawMessage `json:"instrs"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	f.Name = raw.Name
	f.Params = raw.Params
	f.Type = raw.Type
	// A present-but-empty instruction list is a valid empty body; only an
	// absent one decodes to nil.
	f.Instrs = nil
	if raw.Instrs != nil {
		f.Instrs = []Instruction{}
	}
	for i, msg := range raw.Instrs {
		ins, err := DecodeInstruction(msg)
		if err != nil {
			return fmt.Errorf("function %s, instruction %d: %w", raw.Name, i, err)
		}
		f.Instrs = append(f.Instrs, ins)
	}
	return nil
}

// ReadProgram decodes a whole program document.
func ReadProgram(data []byte) (*Program, error) {
	var p Program
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, err
	}
	return &p, nil
}
