// Package insn provides the instruction model shared by the generator, the
// control-flow manager and the assembler.
//
// The target is a stack machine with a separate scope stack and a register file
// of locals. Instructions are pointers: a deferred instruction (getlocal,
// setlocal, kill, ...) is created once per binding and may appear many times in
// one or more lists. Its operand is a RegisterRef read when the instruction is
// printed or lowered, so a register assigned later is seen by every occurrence.
//
// # Lists and pending labels
//
// A List is an ordered sequence of instructions with labels attached to
// positions. A label requested before the instruction it marks exists is kept
// pending and attaches to the next instruction added:
//
//	l := insn.NewList()
//	l.Jump(insn.OpJump, cond)
//	l.LabelNext(body)      // pending
//	l.Add(insn.OpLabel)    // body now marks this instruction
//
// Appending one list to another carries both the placed and the pending labels
// across, so callers never need to know in advance whether a label will be
// needed.
//
// # Listings
//
// String and Format render a list one instruction per line with labels numbered
// in order of first appearance:
//
//	L0:
//	    label
//	    getlocal 2
//	    iftrue L0
package insn
