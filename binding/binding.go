package binding

import (
	"fmt"

	"github.com/wippyai/flowgen/ast"
	"github.com/wippyai/flowgen/errors"
	"github.com/wippyai/flowgen/insn"
)

// RuntimeSlot is the slot id meaning the runtime picks the slot.
const RuntimeSlot = 0

// Name is a possibly qualified name.
type Name struct {
	Namespace string
	Local     string
}

func (n Name) String() string {
	if n.Namespace == "" {
		return n.Local
	}
	return n.Namespace + "::" + n.Local
}

// access enumerates the shared deferred instructions of a slot.
type access int

const (
	accessRead access = iota
	accessWrite
	accessIncrement
	accessIncrementInt
	accessDecrement
	accessDecrementInt
	accessKill
	numAccess
)

var accessOps = [numAccess]insn.Opcode{
	accessRead:         insn.OpGetLocal,
	accessWrite:        insn.OpSetLocal,
	accessIncrement:    insn.OpIncLocal,
	accessIncrementInt: insn.OpIncLocalI,
	accessDecrement:    insn.OpDecLocal,
	accessDecrementInt: insn.OpDecLocalI,
	accessKill:         insn.OpKill,
}

// Binding is a handle to a slot record in a Table. Aliases of one slot are
// distinct Bindings that share every attribute except the source node.
//
// The zero Binding is not valid.
type Binding struct {
	tab  *Table
	node ast.Node
	id   int
}

// IsValid reports whether b refers to a slot.
func (b Binding) IsValid() bool {
	return b.tab != nil
}

// ID returns the slot id within the table.
func (b Binding) ID() int {
	return b.id
}

// Node returns the source node b was created for, or nil.
func (b Binding) Node() ast.Node {
	return b.node
}

// Name returns the slot name.
func (b Binding) Name() Name {
	return b.slot().name
}

// Same reports whether b and other refer to the same slot.
func (b Binding) Same(other Binding) bool {
	return b.tab == other.tab && b.id == other.id
}

// IsLocal reports whether the slot lives in a register.
func (b Binding) IsLocal() bool {
	return b.slot().local
}

// SetIsLocal marks the slot as register or property storage.
func (b Binding) SetIsLocal(local bool) {
	s := b.slot()
	if s.regSet && !local {
		panic(errors.Protocol("binding %s already has register %d", s.name, s.reg))
	}
	s.local = local
}

// RegisterIsSet reports whether a register has been assigned.
func (b Binding) RegisterIsSet() bool {
	return b.slot().regSet
}

// Register returns the assigned register and whether one is set.
func (b Binding) Register() (uint32, bool) {
	s := b.slot()
	return s.reg, s.regSet
}

// AssignRegister assigns the register of a local slot. It panics with a
// protocol error if the slot is not local or already has a register.
// Every deferred instruction of the slot, created before or after, reads n.
func (b Binding) AssignRegister(n uint32) {
	s := b.slot()
	if !s.local {
		panic(errors.Protocol("assign register %d to non-local binding %s", n, s.name))
	}
	if s.regSet {
		panic(errors.Protocol("binding %s already has register %d, cannot assign %d", s.name, s.reg, n))
	}
	s.reg = n
	s.regSet = true
}

// ReadInstruction returns the shared getlocal of the slot.
func (b Binding) ReadInstruction() *insn.Instruction {
	return b.instruction(accessRead)
}

// WriteInstruction returns the shared setlocal of the slot.
func (b Binding) WriteInstruction() *insn.Instruction {
	return b.instruction(accessWrite)
}

// IncrementInstruction returns the shared inclocal of the slot.
func (b Binding) IncrementInstruction() *insn.Instruction {
	return b.instruction(accessIncrement)
}

// IncrementIntegerInstruction returns the shared inclocal_i of the slot.
func (b Binding) IncrementIntegerInstruction() *insn.Instruction {
	return b.instruction(accessIncrementInt)
}

// DecrementInstruction returns the shared declocal of the slot.
func (b Binding) DecrementInstruction() *insn.Instruction {
	return b.instruction(accessDecrement)
}

// DecrementIntegerInstruction returns the shared declocal_i of the slot.
func (b Binding) DecrementIntegerInstruction() *insn.Instruction {
	return b.instruction(accessDecrementInt)
}

// KillInstruction returns the shared kill of the slot.
func (b Binding) KillInstruction() *insn.Instruction {
	return b.instruction(accessKill)
}

func (b Binding) instruction(a access) *insn.Instruction {
	s := b.slot()
	if !s.local {
		panic(errors.Protocol("%s of non-local binding %s", accessOps[a], s.name))
	}
	if s.insns[a] == nil {
		s.insns[a] = insn.NewDeferred(accessOps[a], slotRef{tab: b.tab, id: b.id})
	}
	return s.insns[a]
}

// SlotID returns the statically assigned slot, or RuntimeSlot.
func (b Binding) SlotID() int {
	return b.slot().slotID
}

// SlotIDIsSet reports whether a static slot has been assigned.
func (b Binding) SlotIDIsSet() bool {
	return b.slot().slotID != RuntimeSlot
}

// AssignSlot assigns a static slot. n must not be RuntimeSlot.
func (b Binding) AssignSlot(n int) {
	if n == RuntimeSlot {
		panic(errors.Protocol("slot id %d is reserved for runtime assignment", n))
	}
	b.slot().slotID = n
}

// IsSuperQualified reports whether references go through super.
func (b Binding) IsSuperQualified() bool {
	return b.slot().super
}

// SetSuperQualified marks references as going through super.
func (b Binding) SetSuperQualified(v bool) {
	b.slot().super = v
}

func (b Binding) String() string {
	if !b.IsValid() {
		return "<invalid binding>"
	}
	s := b.slot()
	switch {
	case s.regSet:
		return fmt.Sprintf("%s@r%d", s.name, s.reg)
	case s.local:
		return fmt.Sprintf("%s@r?", s.name)
	case s.slotID != RuntimeSlot:
		return fmt.Sprintf("%s@slot%d", s.name, s.slotID)
	}
	return s.name.String()
}

func (b Binding) slot() *slot {
	if b.tab == nil {
		panic(errors.Protocol("use of zero binding"))
	}
	return &b.tab.slots[b.id]
}

// slotRef resolves a deferred instruction against the table when it is read.
type slotRef struct {
	tab *Table
	id  int
}

func (r slotRef) Register() (uint32, bool) {
	s := &r.tab.slots[r.id]
	return s.reg, s.regSet
}

func (r slotRef) String() string {
	return r.tab.slots[r.id].name.String()
}
