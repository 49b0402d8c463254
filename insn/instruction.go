package insn

import (
	"fmt"
	"strings"
)

// Label marks a position in an instruction list. Labels are compared by identity.
type Label struct {
	name string
}

// NewLabel creates a label. The name is informational only.
func NewLabel(name string) *Label {
	return &Label{name: name}
}

// Name returns the informational name given at creation.
func (l *Label) Name() string {
	return l.name
}

// Instruction is a single stack machine instruction.
type Instruction struct {
	Imm    any
	Opcode Opcode
}

// RegisterRef resolves the register of a deferred instruction each time it
// is asked. The register may become known after the instruction was emitted.
type RegisterRef interface {
	Register() (uint32, bool)
}

// LocalImm holds the register for getlocal, setlocal, inclocal and friends.
type LocalImm struct {
	Reg uint32
}

// DeferredImm holds a register reference resolved at lowering time.
type DeferredImm struct {
	Ref RegisterRef
}

// BranchImm holds the target of a jump or conditional branch.
type BranchImm struct {
	Target *Label
}

// SwitchImm holds the targets of lookupswitch. An index outside Cases
// transfers to Default.
type SwitchImm struct {
	Default *Label
	Cases   []*Label
}

// ByteImm holds the constant for pushbyte.
type ByteImm struct {
	Value int8
}

// IntImm holds the constant for pushshort and pushint.
type IntImm struct {
	Value int32
}

// IndexImm holds a handler or slot index.
type IndexImm struct {
	Index uint32
}

// NameImm holds a property name.
type NameImm struct {
	Name string
}

// CallImm holds the property name and argument count of a call.
type CallImm struct {
	Name string
	Args uint32
}

// StringImm holds a string constant.
type StringImm struct {
	Value string
}

// New creates an instruction with an optional immediate.
func New(op Opcode, imm any) *Instruction {
	return &Instruction{Opcode: op, Imm: imm}
}

// NewDeferred creates a register instruction whose register is read from ref.
func NewDeferred(op Opcode, ref RegisterRef) *Instruction {
	return &Instruction{Opcode: op, Imm: DeferredImm{Ref: ref}}
}

// IsDeferred reports whether the register operand is resolved late.
func (i *Instruction) IsDeferred() bool {
	_, ok := i.Imm.(DeferredImm)
	return ok
}

// Register returns the register operand, if the instruction has a known one.
func (i *Instruction) Register() (uint32, bool) {
	switch imm := i.Imm.(type) {
	case LocalImm:
		return imm.Reg, true
	case DeferredImm:
		if imm.Ref == nil {
			return 0, false
		}
		return imm.Ref.Register()
	}
	return 0, false
}

// Resolved reports whether every operand of the instruction is known.
func (i *Instruction) Resolved() bool {
	if i.Opcode.Layout() == LayoutLocal {
		_, ok := i.Register()
		return ok
	}
	return true
}

// Targets returns the labels the instruction may transfer control to.
func (i *Instruction) Targets() []*Label {
	switch imm := i.Imm.(type) {
	case BranchImm:
		return []*Label{imm.Target}
	case SwitchImm:
		out := make([]*Label, 0, len(imm.Cases)+1)
		out = append(out, imm.Default)
		return append(out, imm.Cases...)
	}
	return nil
}

func (i *Instruction) String() string {
	return i.format(func(l *Label) string {
		if l.name != "" {
			return l.name
		}
		return fmt.Sprintf("%p", l)
	})
}

func (i *Instruction) format(name func(*Label) string) string {
	op := i.Opcode.String()
	switch imm := i.Imm.(type) {
	case nil:
		if i.Opcode.Layout() == LayoutLocal {
			return op + " ?"
		}
		return op
	case LocalImm:
		return fmt.Sprintf("%s %d", op, imm.Reg)
	case DeferredImm:
		if reg, ok := i.Register(); ok {
			return fmt.Sprintf("%s %d", op, reg)
		}
		return op + " ?"
	case BranchImm:
		return op + " " + name(imm.Target)
	case SwitchImm:
		cases := make([]string, len(imm.Cases))
		for j, c := range imm.Cases {
			cases[j] = name(c)
		}
		return fmt.Sprintf("%s %s [%s]", op, name(imm.Default), strings.Join(cases, " "))
	case ByteImm:
		return fmt.Sprintf("%s %d", op, imm.Value)
	case IntImm:
		return fmt.Sprintf("%s %d", op, imm.Value)
	case IndexImm:
		return fmt.Sprintf("%s %d", op, imm.Index)
	case NameImm:
		return op + " " + imm.Name
	case CallImm:
		return fmt.Sprintf("%s %s %d", op, imm.Name, imm.Args)
	case StringImm:
		return fmt.Sprintf("%s %q", op, imm.Value)
	default:
		return fmt.Sprintf("%s %v", op, imm)
	}
}
