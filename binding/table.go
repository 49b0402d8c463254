package binding

import (
	"github.com/wippyai/flowgen/ast"
	"github.com/wippyai/flowgen/errors"
	"github.com/wippyai/flowgen/insn"
)

// slot is the record shared by every alias of a binding.
type slot struct {
	insns  [numAccess]*insn.Instruction
	name   Name
	slotID int
	reg    uint32
	regSet bool
	local  bool
	super  bool
}

// Table is the arena of slot records for one function body.
// It is owned by a single generation and is not safe for concurrent use.
type Table struct {
	slots []slot
}

// NewTable creates an empty table.
func NewTable() *Table {
	return &Table{}
}

// New creates a slot and returns its first binding. node may be nil.
func (t *Table) New(name Name, node ast.Node) Binding {
	t.slots = append(t.slots, slot{name: name})
	return Binding{tab: t, id: len(t.slots) - 1, node: node}
}

// NewLocal creates a register slot.
func (t *Table) NewLocal(name string, node ast.Node) Binding {
	b := t.New(Name{Local: name}, node)
	b.SetIsLocal(true)
	return b
}

// Alias returns a new binding for the slot of b seen from another site.
func (t *Table) Alias(b Binding, node ast.Node) Binding {
	if b.tab != t {
		panic(errors.Protocol("alias of %s across tables", b))
	}
	return Binding{tab: t, id: b.id, node: node}
}

// Len returns the number of slots.
func (t *Table) Len() int {
	return len(t.slots)
}

// At returns a binding for slot id without a source node.
func (t *Table) At(id int) Binding {
	return Binding{tab: t, id: id}
}

// Unassigned returns one binding per local slot without a register.
func (t *Table) Unassigned() []Binding {
	var out []Binding
	for i := range t.slots {
		if t.slots[i].local && !t.slots[i].regSet {
			out = append(out, t.At(i))
		}
	}
	return out
}
