package insn

import "fmt"

// Opcode is a stack machine operation code.
type Opcode byte

// Opcodes. Values follow the AVM2 encoding so listings and dumps line up with
// existing disassemblers.
const (
	OpKill           Opcode = 0x08 // kill register
	OpNop            Opcode = 0x02
	OpThrow          Opcode = 0x03
	OpLabel          Opcode = 0x09 // backward branch target marker
	OpJump           Opcode = 0x10
	OpIfTrue         Opcode = 0x11
	OpIfFalse        Opcode = 0x12
	OpIfStrictEq     Opcode = 0x19
	OpIfStrictNe     Opcode = 0x1a
	OpLookupSwitch   Opcode = 0x1b
	OpPushWith       Opcode = 0x1c
	OpPopScope       Opcode = 0x1d
	OpNextName       Opcode = 0x1e
	OpHasNext        Opcode = 0x1f
	OpPushNull       Opcode = 0x20
	OpPushUndefined  Opcode = 0x21
	OpPushByte       Opcode = 0x24
	OpPushShort      Opcode = 0x25
	OpPushTrue       Opcode = 0x26
	OpPushFalse      Opcode = 0x27
	OpPop            Opcode = 0x29
	OpDup            Opcode = 0x2a
	OpSwap           Opcode = 0x2b
	OpPushString     Opcode = 0x2c
	OpPushInt        Opcode = 0x2d
	OpPushScope      Opcode = 0x30
	OpCallProperty   Opcode = 0x46
	OpReturnVoid     Opcode = 0x47
	OpReturnValue    Opcode = 0x48
	OpCallPropVoid   Opcode = 0x4f
	OpNewActivation  Opcode = 0x57
	OpNewCatch       Opcode = 0x5a
	OpFindPropStrict Opcode = 0x5d
	OpFindProperty   Opcode = 0x5e
	OpGetLex         Opcode = 0x60
	OpSetProperty    Opcode = 0x61
	OpGetLocal       Opcode = 0x62
	OpSetLocal       Opcode = 0x63
	OpGetProperty    Opcode = 0x66
	OpSetSlot        Opcode = 0x6d
	OpConvertI       Opcode = 0x73
	OpIncrement      Opcode = 0x91
	OpIncLocal       Opcode = 0x92
	OpDecrement      Opcode = 0x93
	OpDecLocal       Opcode = 0x94
	OpNot            Opcode = 0x96
	OpAdd            Opcode = 0xa0
	OpSubtract       Opcode = 0xa1
	OpMultiply       Opcode = 0xa2
	OpEquals         Opcode = 0xab
	OpStrictEquals   Opcode = 0xac
	OpLessThan       Opcode = 0xad
	OpLessEquals     Opcode = 0xae
	OpGreaterThan    Opcode = 0xaf
	OpGreaterEquals  Opcode = 0xb0
	OpIncLocalI      Opcode = 0xc2
	OpDecLocalI      Opcode = 0xc3
	OpGetLocal0      Opcode = 0xd0
)

// Operand layouts used by the listing and the assembler.
type Layout int

const (
	LayoutNone   Layout = iota // no immediate
	LayoutLocal                // LocalImm
	LayoutBranch               // BranchImm
	LayoutSwitch               // SwitchImm
	LayoutByte                 // ByteImm
	LayoutInt                  // IntImm
	LayoutIndex                // IndexImm
	LayoutName                 // NameImm
	LayoutCall                 // CallImm
	LayoutString               // StringImm
)

type opInfo struct {
	name   string
	layout Layout
}

var opTable = map[Opcode]opInfo{
	OpKill:           {"kill", LayoutLocal},
	OpNop:            {"nop", LayoutNone},
	OpThrow:          {"throw", LayoutNone},
	OpLabel:          {"label", LayoutNone},
	OpJump:           {"jump", LayoutBranch},
	OpIfTrue:         {"iftrue", LayoutBranch},
	OpIfFalse:        {"iffalse", LayoutBranch},
	OpIfStrictEq:     {"ifstricteq", LayoutBranch},
	OpIfStrictNe:     {"ifstrictne", LayoutBranch},
	OpLookupSwitch:   {"lookupswitch", LayoutSwitch},
	OpPushWith:       {"pushwith", LayoutNone},
	OpPopScope:       {"popscope", LayoutNone},
	OpNextName:       {"nextname", LayoutNone},
	OpHasNext:        {"hasnext", LayoutNone},
	OpPushNull:       {"pushnull", LayoutNone},
	OpPushUndefined:  {"pushundefined", LayoutNone},
	OpPushByte:       {"pushbyte", LayoutByte},
	OpPushShort:      {"pushshort", LayoutInt},
	OpPushTrue:       {"pushtrue", LayoutNone},
	OpPushFalse:      {"pushfalse", LayoutNone},
	OpPop:            {"pop", LayoutNone},
	OpDup:            {"dup", LayoutNone},
	OpSwap:           {"swap", LayoutNone},
	OpPushString:     {"pushstring", LayoutString},
	OpPushInt:        {"pushint", LayoutInt},
	OpPushScope:      {"pushscope", LayoutNone},
	OpCallProperty:   {"callproperty", LayoutCall},
	OpReturnVoid:     {"returnvoid", LayoutNone},
	OpReturnValue:    {"returnvalue", LayoutNone},
	OpCallPropVoid:   {"callpropvoid", LayoutCall},
	OpNewActivation:  {"newactivation", LayoutNone},
	OpNewCatch:       {"newcatch", LayoutIndex},
	OpFindPropStrict: {"findpropstrict", LayoutName},
	OpFindProperty:   {"findproperty", LayoutName},
	OpGetLex:         {"getlex", LayoutName},
	OpSetProperty:    {"setproperty", LayoutName},
	OpGetLocal:       {"getlocal", LayoutLocal},
	OpSetLocal:       {"setlocal", LayoutLocal},
	OpGetProperty:    {"getproperty", LayoutName},
	OpSetSlot:        {"setslot", LayoutIndex},
	OpConvertI:       {"convert_i", LayoutNone},
	OpIncrement:      {"increment", LayoutNone},
	OpIncLocal:       {"inclocal", LayoutLocal},
	OpDecrement:      {"decrement", LayoutNone},
	OpDecLocal:       {"declocal", LayoutLocal},
	OpNot:            {"not", LayoutNone},
	OpAdd:            {"add", LayoutNone},
	OpSubtract:       {"subtract", LayoutNone},
	OpMultiply:       {"multiply", LayoutNone},
	OpEquals:         {"equals", LayoutNone},
	OpStrictEquals:   {"strictequals", LayoutNone},
	OpLessThan:       {"lessthan", LayoutNone},
	OpLessEquals:     {"lessequals", LayoutNone},
	OpGreaterThan:    {"greaterthan", LayoutNone},
	OpGreaterEquals:  {"greaterequals", LayoutNone},
	OpIncLocalI:      {"inclocal_i", LayoutLocal},
	OpDecLocalI:      {"declocal_i", LayoutLocal},
	OpGetLocal0:      {"getlocal0", LayoutNone},
}

func (op Opcode) String() string {
	if info, ok := opTable[op]; ok {
		return info.name
	}
	return fmt.Sprintf("op(%#02x)", byte(op))
}

// Layout returns the immediate layout of the opcode.
func (op Opcode) Layout() Layout {
	return opTable[op].layout
}

// Known reports whether the opcode is part of the instruction set.
func (op Opcode) Known() bool {
	_, ok := opTable[op]
	return ok
}

// IsBranch reports whether the opcode transfers control to a label.
func (op Opcode) IsBranch() bool {
	switch op.Layout() {
	case LayoutBranch, LayoutSwitch:
		return true
	}
	return false
}

// Terminates reports whether control never falls through the opcode.
func (op Opcode) Terminates() bool {
	switch op {
	case OpJump, OpLookupSwitch, OpThrow, OpReturnVoid, OpReturnValue:
		return true
	}
	return false
}
