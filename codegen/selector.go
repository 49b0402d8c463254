package codegen

import (
	"github.com/wippyai/flowgen/ast"
	"github.com/wippyai/flowgen/binding"
	"github.com/wippyai/flowgen/errors"
	"github.com/wippyai/flowgen/insn"
)

// Selector chooses the instructions implementing expressions. The statement
// generator never looks inside an expression.
type Selector interface {
	// Value pushes the value of e.
	Value(s *Scope, e ast.Expr) (*insn.List, error)
	// Effect evaluates e for its side effects and leaves the stack unchanged.
	Effect(s *Scope, e ast.Expr) (*insn.List, error)
}

// Load pushes the value of b.
func Load(b binding.Binding) *insn.List {
	out := insn.NewList()
	if b.IsLocal() {
		return out.AddInstruction(b.ReadInstruction())
	}
	return out.AddImm(insn.OpGetLex, insn.NameImm{Name: b.Name().String()})
}

// Store pops the top of the stack into b.
func Store(b binding.Binding) *insn.List {
	out := insn.NewList()
	if b.IsLocal() {
		return out.AddInstruction(b.WriteInstruction())
	}
	name := insn.NameImm{Name: b.Name().String()}
	out.AddImm(insn.OpFindProperty, name)
	out.Add(insn.OpSwap)
	return out.AddImm(insn.OpSetProperty, name)
}

var binaryOps = map[string][]insn.Opcode{
	"+":   {insn.OpAdd},
	"-":   {insn.OpSubtract},
	"*":   {insn.OpMultiply},
	"==":  {insn.OpEquals},
	"!=":  {insn.OpEquals, insn.OpNot},
	"===": {insn.OpStrictEquals},
	"!==": {insn.OpStrictEquals, insn.OpNot},
	"<":   {insn.OpLessThan},
	"<=":  {insn.OpLessEquals},
	">":   {insn.OpGreaterThan},
	">=":  {insn.OpGreaterEquals},
}

// BasicSelector covers names, literals, assignment, increments, binary
// operators and calls. Unknown names are looked up on the scope stack.
type BasicSelector struct {
	// IntegerIncrements selects inclocal_i and declocal_i for statement
	// increments of locals.
	IntegerIncrements bool
}

// Value implements Selector.
func (b BasicSelector) Value(s *Scope, e ast.Expr) (*insn.List, error) {
	out := insn.NewList()
	switch e := e.(type) {
	case *ast.Ident:
		if e.Name == "this" {
			return out.Add(insn.OpGetLocal0), nil
		}
		if v, ok := s.Lookup(e.Name); ok {
			return Load(v), nil
		}
		return out.AddImm(insn.OpGetLex, insn.NameImm{Name: e.Name}), nil

	case *ast.IntLit:
		return out.PushConstant(e.Value), nil

	case *ast.StringLit:
		return out.AddImm(insn.OpPushString, insn.StringImm{Value: e.Value}), nil

	case *ast.BoolLit:
		if e.Value {
			return out.Add(insn.OpPushTrue), nil
		}
		return out.Add(insn.OpPushFalse), nil

	case *ast.NullLit:
		return out.Add(insn.OpPushNull), nil

	case *ast.Assign:
		val, err := b.Value(s, e.Value)
		if err != nil {
			return nil, err
		}
		out.AddAll(val)
		out.Add(insn.OpDup)
		return out.AddAll(Store(b.target(s, e.Name))), nil

	case *ast.Binary:
		ops, ok := binaryOps[e.Op]
		if !ok {
			return nil, errors.New(errors.PhaseGenerate, errors.KindInvalidInput).
				Pos(e.Position()).
				Detail("unknown operator %q", e.Op).
				Build()
		}
		l, err := b.Value(s, e.L)
		if err != nil {
			return nil, err
		}
		r, err := b.Value(s, e.R)
		if err != nil {
			return nil, err
		}
		out.AddAll(l).AddAll(r)
		for _, op := range ops {
			out.Add(op)
		}
		return out, nil

	case *ast.Incr:
		return b.incr(s, e), nil

	case *ast.Call:
		out.AddImm(insn.OpFindPropStrict, insn.NameImm{Name: e.Name})
		if err := b.args(s, out, e.Args); err != nil {
			return nil, err
		}
		return out.AddImm(insn.OpCallProperty, insn.CallImm{Name: e.Name, Args: uint32(len(e.Args))}), nil
	}
	return nil, errors.New(errors.PhaseGenerate, errors.KindInvalidInput).
		Pos(e.Position()).
		Detail("unsupported expression %T", e).
		Build()
}

// Effect implements Selector.
func (b BasicSelector) Effect(s *Scope, e ast.Expr) (*insn.List, error) {
	switch e := e.(type) {
	case *ast.Assign:
		val, err := b.Value(s, e.Value)
		if err != nil {
			return nil, err
		}
		return val.AddAll(Store(b.target(s, e.Name))), nil

	case *ast.Incr:
		v := b.target(s, e.Name)
		if !v.IsLocal() {
			break
		}
		out := insn.NewList()
		switch {
		case e.Delta > 0 && b.IntegerIncrements:
			return out.AddInstruction(v.IncrementIntegerInstruction()), nil
		case e.Delta > 0:
			return out.AddInstruction(v.IncrementInstruction()), nil
		case b.IntegerIncrements:
			return out.AddInstruction(v.DecrementIntegerInstruction()), nil
		default:
			return out.AddInstruction(v.DecrementInstruction()), nil
		}

	case *ast.Call:
		out := insn.NewList()
		out.AddImm(insn.OpFindPropStrict, insn.NameImm{Name: e.Name})
		if err := b.args(s, out, e.Args); err != nil {
			return nil, err
		}
		return out.AddImm(insn.OpCallPropVoid, insn.CallImm{Name: e.Name, Args: uint32(len(e.Args))}), nil
	}

	out, err := b.Value(s, e)
	if err != nil {
		return nil, err
	}
	return out.Add(insn.OpPop), nil
}

func (b BasicSelector) args(s *Scope, out *insn.List, args []ast.Expr) error {
	for _, a := range args {
		v, err := b.Value(s, a)
		if err != nil {
			return err
		}
		out.AddAll(v)
	}
	return nil
}

// target resolves an assigned name. Undeclared names become scope-stack
// properties.
func (b BasicSelector) target(s *Scope, name string) binding.Binding {
	if v, ok := s.Lookup(name); ok {
		return v
	}
	return s.Table().New(binding.Name{Local: name}, nil)
}

// incr yields the old value for postfix forms and the new one for prefix.
func (b BasicSelector) incr(s *Scope, e *ast.Incr) *insn.List {
	v := b.target(s, e.Name)
	out := insn.NewList()
	if v.IsLocal() {
		step := v.IncrementInstruction()
		if e.Delta < 0 {
			step = v.DecrementInstruction()
		}
		if e.Prefix {
			return out.AddInstruction(step).AddInstruction(v.ReadInstruction())
		}
		return out.AddInstruction(v.ReadInstruction()).AddInstruction(step)
	}

	out.AddAll(Load(v))
	if !e.Prefix {
		out.Add(insn.OpDup)
	}
	if e.Delta < 0 {
		out.Add(insn.OpDecrement)
	} else {
		out.Add(insn.OpIncrement)
	}
	if e.Prefix {
		out.Add(insn.OpDup)
	}
	return out.AddAll(Store(v))
}
