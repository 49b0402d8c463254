package insn

import "math"

// List is an ordered instruction sequence with labels attached to positions
// and a set of pending labels that attach to the next instruction added.
type List struct {
	labels  map[int][]*Label
	insns   []*Instruction
	pending []*Label
}

// NewList creates an empty list.
func NewList() *List {
	return &List{}
}

// Len returns the number of instructions.
func (l *List) Len() int {
	return len(l.insns)
}

// IsEmpty reports whether the list holds no instructions.
func (l *List) IsEmpty() bool {
	return len(l.insns) == 0
}

// At returns the instruction at position i.
func (l *List) At(i int) *Instruction {
	return l.insns[i]
}

// Instructions returns the instructions in order. The slice must not be modified.
func (l *List) Instructions() []*Instruction {
	return l.insns
}

// LabelsAt returns the labels attached to position i.
func (l *List) LabelsAt(i int) []*Label {
	return l.labels[i]
}

// Add appends an instruction without an immediate.
func (l *List) Add(op Opcode) *List {
	return l.AddInstruction(New(op, nil))
}

// AddImm appends an instruction with an immediate.
func (l *List) AddImm(op Opcode, imm any) *List {
	return l.AddInstruction(New(op, imm))
}

// Jump appends a branch to target.
func (l *List) Jump(op Opcode, target *Label) *List {
	return l.AddInstruction(New(op, BranchImm{Target: target}))
}

// Switch appends a lookupswitch.
func (l *List) Switch(def *Label, cases []*Label) *List {
	return l.AddInstruction(New(OpLookupSwitch, SwitchImm{Default: def, Cases: cases}))
}

// AddInstruction appends ins. The same instruction may appear more than once.
func (l *List) AddInstruction(ins *Instruction) *List {
	if len(l.pending) > 0 {
		l.attach(len(l.insns), l.pending...)
		l.pending = nil
	}
	l.insns = append(l.insns, ins)
	return l
}

// PushConstant appends the shortest push of n.
func (l *List) PushConstant(n int) *List {
	switch {
	case n >= math.MinInt8 && n <= math.MaxInt8:
		return l.AddImm(OpPushByte, ByteImm{Value: int8(n)})
	case n >= math.MinInt16 && n <= math.MaxInt16:
		return l.AddImm(OpPushShort, IntImm{Value: int32(n)})
	default:
		return l.AddImm(OpPushInt, IntImm{Value: int32(n)})
	}
}

// AddAll appends every instruction of other, carrying its labels.
// Pending labels of l attach to the first instruction of other; pending
// labels of other stay pending on l.
func (l *List) AddAll(other *List) *List {
	if other == nil {
		return l
	}
	if other.IsEmpty() {
		l.pending = append(l.pending, other.pending...)
		return l
	}

	base := len(l.insns)
	if len(l.pending) > 0 {
		l.attach(base, l.pending...)
		l.pending = nil
	}
	for pos, lbls := range other.labels {
		l.attach(base+pos, lbls...)
	}
	l.insns = append(l.insns, other.insns...)
	l.pending = append(l.pending, other.pending...)
	return l
}

// LabelNext attaches lbl to the next instruction added.
func (l *List) LabelNext(lbl *Label) {
	l.pending = append(l.pending, lbl)
}

// LabelFirst attaches lbl to the first instruction, or to the next one if
// the list is empty.
func (l *List) LabelFirst(lbl *Label) {
	if l.IsEmpty() {
		l.LabelNext(lbl)
		return
	}
	l.attach(0, lbl)
}

// LabelCurrent attaches lbl to the last instruction, or to the next one if
// the list is empty.
func (l *List) LabelCurrent(lbl *Label) {
	if l.IsEmpty() {
		l.LabelNext(lbl)
		return
	}
	l.attach(len(l.insns)-1, lbl)
}

// Label returns a label for the first instruction, creating one if needed.
func (l *List) Label() *Label {
	if l.IsEmpty() {
		if len(l.pending) > 0 {
			return l.pending[0]
		}
		lbl := NewLabel("")
		l.LabelNext(lbl)
		return lbl
	}
	if lbls := l.labels[0]; len(lbls) > 0 {
		return lbls[0]
	}
	lbl := NewLabel("")
	l.attach(0, lbl)
	return lbl
}

// LastLabel returns a label for the last instruction, creating one if needed.
func (l *List) LastLabel() *Label {
	if l.IsEmpty() {
		return l.Label()
	}
	last := len(l.insns) - 1
	if lbls := l.labels[last]; len(lbls) > 0 {
		return lbls[0]
	}
	lbl := NewLabel("")
	l.attach(last, lbl)
	return lbl
}

// HasPendingLabels reports whether labels are waiting for an instruction.
func (l *List) HasPendingLabels() bool {
	return len(l.pending) > 0
}

// PendingLabels returns the labels waiting for an instruction.
func (l *List) PendingLabels() []*Label {
	return l.pending
}

// StripPendingLabels removes and returns the pending labels.
func (l *List) StripPendingLabels() []*Label {
	out := l.pending
	l.pending = nil
	return out
}

// AddPendingLabels makes lbls pending on l.
func (l *List) AddPendingLabels(lbls []*Label) {
	l.pending = append(l.pending, lbls...)
}

// CanFallThrough reports whether control can reach the end of the list.
func (l *List) CanFallThrough() bool {
	if l.IsEmpty() {
		return true
	}
	return !l.insns[len(l.insns)-1].Opcode.Terminates()
}

// Positions returns the position of every placed label.
func (l *List) Positions() map[*Label]int {
	out := make(map[*Label]int)
	for pos, lbls := range l.labels {
		for _, lbl := range lbls {
			out[lbl] = pos
		}
	}
	return out
}

func (l *List) attach(pos int, lbls ...*Label) {
	if l.labels == nil {
		l.labels = make(map[int][]*Label)
	}
	l.labels[pos] = append(l.labels[pos], lbls...)
}
