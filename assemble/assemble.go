package assemble

import (
	"bytes"
	"fmt"

	"github.com/wippyai/flowgen/codegen"
	"github.com/wippyai/flowgen/errors"
	"github.com/wippyai/flowgen/insn"
)

// Exception is a lowered exception table entry. Type and Var are name pool
// indices; 0 means any type or no variable.
type Exception struct {
	From   uint32
	To     uint32
	Target uint32
	Type   uint32
	Var    uint32
}

// Method is the lowered form of a generated function.
type Method struct {
	Name       string
	Code       []byte
	Exceptions []Exception
	MaxLocals  uint32
}

// fixup is an s24 field patched once label offsets are known.
type fixup struct {
	label *insn.Label
	at    int // position of the field
	base  int // offset the branch is relative to
}

type assembler struct {
	pools  *Pools
	buf    bytes.Buffer
	fixups []fixup
	errs   errors.List
}

// Function lowers a generated function. Constants are interned into pools,
// which may be shared across functions.
func Function(fn *codegen.Function, pools *Pools) (*Method, error) {
	code, offsets, err := Code(fn.Code, pools)
	if err != nil {
		return nil, err
	}

	var errs errors.List
	lookup := func(l *insn.Label) uint32 {
		off, ok := offsets[l]
		if !ok {
			errs.Add(errors.NotFound(errors.PhaseAssemble, "handler label", l.Name()))
		}
		return off
	}

	m := &Method{
		Name:      fn.Name,
		Code:      code,
		MaxLocals: fn.Registers(),
	}
	for _, h := range fn.Handlers {
		e := Exception{
			From:   lookup(h.From),
			To:     lookup(h.To),
			Target: lookup(h.Target),
		}
		if h.Type != "" {
			e.Type = pools.Names.Intern(h.Type)
		}
		if h.Var != "" {
			e.Var = pools.Names.Intern(h.Var)
		}
		m.Exceptions = append(m.Exceptions, e)
	}
	if err := errs.Err(); err != nil {
		return nil, err
	}
	return m, nil
}

// Code lowers list to bytes and returns the offset of every label. Labels
// still pending at the end of the list resolve to the end of the code.
//
// The first pass encodes every instruction with zeroed branch offsets; the
// second patches them. Branch sizes never depend on their targets, so a
// single patch pass is enough.
func Code(list *insn.List, pools *Pools) ([]byte, map[*insn.Label]uint32, error) {
	a := &assembler{pools: pools}

	starts := make([]int, list.Len()+1)
	for i, ins := range list.Instructions() {
		starts[i] = a.buf.Len()
		a.encode(ins)
	}
	starts[list.Len()] = a.buf.Len()

	offsets := make(map[*insn.Label]uint32)
	for lbl, pos := range list.Positions() {
		offsets[lbl] = uint32(starts[pos])
	}
	for _, lbl := range list.PendingLabels() {
		offsets[lbl] = uint32(starts[list.Len()])
	}

	code := a.buf.Bytes()
	for _, f := range a.fixups {
		target, ok := offsets[f.label]
		if !ok {
			a.errs.Add(errors.NotFound(errors.PhaseAssemble, "label", f.label.Name()))
			continue
		}
		rel := int(target) - f.base
		if !fitsS24(rel) {
			a.errs.Add(errors.New(errors.PhaseAssemble, errors.KindInvalidInput).
				Value(rel).
				Detail("branch offset out of range").
				Build())
			continue
		}
		PutS24(code[f.at:], int32(rel))
	}

	if err := a.errs.Err(); err != nil {
		return nil, nil, err
	}
	return code, offsets, nil
}

func (a *assembler) encode(ins *insn.Instruction) {
	start := a.buf.Len()
	op := ins.Opcode
	if !op.Known() {
		a.errs.Add(errors.InvalidInput(errors.PhaseAssemble, fmt.Sprintf("unknown opcode 0x%02x", byte(op))))
		return
	}
	a.buf.WriteByte(byte(op))

	switch op.Layout() {
	case insn.LayoutNone:

	case insn.LayoutLocal:
		reg, ok := ins.Register()
		if !ok {
			a.errs.Add(errors.UnresolvedOperand(ins.String()))
		}
		a.u30(reg)

	case insn.LayoutBranch:
		imm, ok := ins.Imm.(insn.BranchImm)
		if !ok || imm.Target == nil {
			a.bad(ins)
			WriteS24(&a.buf, 0)
			return
		}
		a.branch(imm.Target, start+4)

	case insn.LayoutSwitch:
		imm, ok := ins.Imm.(insn.SwitchImm)
		if !ok || imm.Default == nil || len(imm.Cases) == 0 {
			a.bad(ins)
			return
		}
		a.branch(imm.Default, start)
		a.u30(uint32(len(imm.Cases) - 1))
		for _, c := range imm.Cases {
			a.branch(c, start)
		}

	case insn.LayoutByte:
		imm, ok := ins.Imm.(insn.ByteImm)
		if !ok {
			a.bad(ins)
		}
		a.buf.WriteByte(byte(imm.Value))

	case insn.LayoutInt:
		imm, ok := ins.Imm.(insn.IntImm)
		if !ok {
			a.bad(ins)
		}
		if op == insn.OpPushInt {
			a.u30(a.pools.Ints.Intern(imm.Value))
		} else {
			// pushshort sign-extends its 30 bit operand.
			a.u30(uint32(imm.Value) & maxU30)
		}

	case insn.LayoutIndex:
		imm, ok := ins.Imm.(insn.IndexImm)
		if !ok {
			a.bad(ins)
		}
		a.u30(imm.Index)

	case insn.LayoutName:
		imm, ok := ins.Imm.(insn.NameImm)
		if !ok {
			a.bad(ins)
		}
		a.u30(a.pools.Names.Intern(imm.Name))

	case insn.LayoutCall:
		imm, ok := ins.Imm.(insn.CallImm)
		if !ok {
			a.bad(ins)
		}
		a.u30(a.pools.Names.Intern(imm.Name))
		a.u30(imm.Args)

	case insn.LayoutString:
		imm, ok := ins.Imm.(insn.StringImm)
		if !ok {
			a.bad(ins)
		}
		a.u30(a.pools.Strings.Intern(imm.Value))
	}
}

func (a *assembler) u30(v uint32) {
	if v > maxU30 {
		a.errs.Add(errors.New(errors.PhaseAssemble, errors.KindInvalidInput).
			Value(v).
			Detail("u30 operand out of range").
			Build())
	}
	WriteU30(&a.buf, v)
}

func (a *assembler) branch(target *insn.Label, base int) {
	a.fixups = append(a.fixups, fixup{label: target, at: a.buf.Len(), base: base})
	WriteS24(&a.buf, 0)
}

func (a *assembler) bad(ins *insn.Instruction) {
	a.errs.Add(errors.InvalidInput(errors.PhaseAssemble,
		fmt.Sprintf("%s: immediate %T does not match layout", ins.Opcode, ins.Imm)))
}
