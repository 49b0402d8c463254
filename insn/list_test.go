package insn

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestList_PendingLabelAttachesToNext(t *testing.T) {
	l := NewList()
	lbl := NewLabel("next")
	l.LabelNext(lbl)

	if !l.HasPendingLabels() {
		t.Fatal("label should be pending on an empty list")
	}

	l.Add(OpNop)
	if l.HasPendingLabels() {
		t.Fatal("label should have attached to the nop")
	}
	if got := l.LabelsAt(0); len(got) != 1 || got[0] != lbl {
		t.Fatalf("labels at 0 = %v, want [next]", got)
	}
}

func TestList_AddAllCarriesLabels(t *testing.T) {
	head := NewList()
	head.Add(OpNop)
	carried := NewLabel("carried")
	head.LabelNext(carried)

	tail := NewList()
	inner := NewLabel("inner")
	tail.Add(OpPushTrue)
	tail.Add(OpPop)
	tail.LabelCurrent(inner)
	trailing := NewLabel("trailing")
	tail.LabelNext(trailing)

	head.AddAll(tail)

	if head.Len() != 3 {
		t.Fatalf("len = %d, want 3", head.Len())
	}
	pos := head.Positions()
	if pos[carried] != 1 {
		t.Errorf("carried label at %d, want 1", pos[carried])
	}
	if pos[inner] != 2 {
		t.Errorf("inner label at %d, want 2", pos[inner])
	}
	if _, placed := pos[trailing]; placed {
		t.Error("trailing label should still be pending")
	}
	if got := head.PendingLabels(); len(got) != 1 || got[0] != trailing {
		t.Errorf("pending = %v, want [trailing]", got)
	}
}

func TestList_AddAllEmptyKeepsPending(t *testing.T) {
	l := NewList()
	empty := NewList()
	lbl := NewLabel("")
	empty.LabelNext(lbl)

	l.AddAll(empty)
	l.Add(OpNop)

	if got := l.LabelsAt(0); len(got) != 1 || got[0] != lbl {
		t.Fatalf("labels at 0 = %v", got)
	}
}

func TestList_LabelFirstAndCurrent(t *testing.T) {
	l := NewList()
	first := NewLabel("first")
	l.LabelFirst(first)
	l.Add(OpNop).Add(OpDup)

	current := NewLabel("current")
	l.LabelCurrent(current)

	pos := l.Positions()
	if pos[first] != 0 || pos[current] != 1 {
		t.Fatalf("positions = %v", pos)
	}
	if l.Label() != first {
		t.Error("Label should reuse the label at position 0")
	}
	if l.LastLabel() != current {
		t.Error("LastLabel should reuse the label at the last position")
	}
}

func TestList_StripPendingLabels(t *testing.T) {
	l := NewList()
	l.Add(OpNop)
	a, b := NewLabel("a"), NewLabel("b")
	l.LabelNext(a)
	l.LabelNext(b)

	got := l.StripPendingLabels()
	if len(got) != 2 || l.HasPendingLabels() {
		t.Fatalf("strip returned %v, pending %v", got, l.PendingLabels())
	}

	other := NewList()
	other.AddPendingLabels(got)
	other.Add(OpReturnVoid)
	if len(other.LabelsAt(0)) != 2 {
		t.Errorf("re-added labels not attached: %v", other.LabelsAt(0))
	}
}

func TestList_CanFallThrough(t *testing.T) {
	tests := []struct {
		name string
		ops  []Opcode
		want bool
	}{
		{"empty", nil, true},
		{"nop", []Opcode{OpNop}, true},
		{"return", []Opcode{OpPushNull, OpReturnValue}, false},
		{"throw", []Opcode{OpPushNull, OpThrow}, false},
		{"conditional", []Opcode{OpPushTrue}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := NewList()
			for _, op := range tt.ops {
				l.Add(op)
			}
			if got := l.CanFallThrough(); got != tt.want {
				t.Errorf("CanFallThrough = %v, want %v", got, tt.want)
			}
		})
	}

	l := NewList()
	l.Jump(OpJump, NewLabel(""))
	if l.CanFallThrough() {
		t.Error("jump should not fall through")
	}
}

func TestList_PushConstant(t *testing.T) {
	tests := []struct {
		n    int
		want Opcode
	}{
		{0, OpPushByte},
		{-128, OpPushByte},
		{127, OpPushByte},
		{128, OpPushShort},
		{-32768, OpPushShort},
		{40000, OpPushInt},
	}
	for _, tt := range tests {
		l := NewList().PushConstant(tt.n)
		if got := l.At(0).Opcode; got != tt.want {
			t.Errorf("PushConstant(%d) = %v, want %v", tt.n, got, tt.want)
		}
	}
}

func TestList_Format(t *testing.T) {
	l := NewList()
	loop := NewLabel("loop")
	exit := NewLabel("exit")

	l.LabelNext(loop)
	l.Add(OpLabel)
	l.AddImm(OpGetLocal, LocalImm{Reg: 2})
	l.Jump(OpIfFalse, exit)
	l.AddInstruction(NewDeferred(OpIncLocalI, &fakeRef{}))
	l.Jump(OpJump, loop)
	l.LabelNext(exit)

	want := []string{
		"L0:",
		"    label",
		"    getlocal 2",
		"    iffalse L1",
		"    inclocal_i ?",
		"    jump L0",
		"L1:",
	}
	if diff := cmp.Diff(want, l.Lines()); diff != "" {
		t.Errorf("listing mismatch (-want +got):\n%s", diff)
	}
}

type fakeRef struct {
	reg uint32
	set bool
}

func (r *fakeRef) Register() (uint32, bool) { return r.reg, r.set }

func TestInstruction_Deferred(t *testing.T) {
	ref := &fakeRef{}
	ins := NewDeferred(OpGetLocal, ref)
	if !ins.IsDeferred() || ins.Resolved() {
		t.Fatal("new deferred instruction should be unresolved")
	}
	if _, ok := ins.Register(); ok {
		t.Fatal("unresolved instruction reported a register")
	}
	if got := ins.String(); got != "getlocal ?" {
		t.Errorf("String = %q", got)
	}

	ref.reg, ref.set = 5, true
	if !ins.Resolved() {
		t.Fatal("instruction should resolve once the reference is known")
	}
	if reg, _ := ins.Register(); reg != 5 {
		t.Errorf("register = %d, want 5", reg)
	}
	if got := ins.String(); got != "getlocal 5" {
		t.Errorf("String = %q", got)
	}
}

func TestInstruction_Targets(t *testing.T) {
	a, b, c := NewLabel("a"), NewLabel("b"), NewLabel("c")
	sw := New(OpLookupSwitch, SwitchImm{Default: c, Cases: []*Label{a, b}})

	got := sw.Targets()
	if len(got) != 3 || got[0] != c || got[1] != a || got[2] != b {
		t.Errorf("targets = %v", got)
	}
	if New(OpNop, nil).Targets() != nil {
		t.Error("nop has no targets")
	}
}

func TestOpcode_String(t *testing.T) {
	if OpLookupSwitch.String() != "lookupswitch" {
		t.Errorf("got %q", OpLookupSwitch.String())
	}
	if Opcode(0xff).Known() {
		t.Error("0xff should be unknown")
	}
	if Opcode(0xff).String() != "op(0xff)" {
		t.Errorf("got %q", Opcode(0xff).String())
	}
}
