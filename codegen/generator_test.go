package codegen

import (
	"slices"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/wippyai/flowgen/ast"
	"github.com/wippyai/flowgen/errors"
	"github.com/wippyai/flowgen/insn"
)

func generate(t *testing.T, src string, cfg Config) *Function {
	t.Helper()
	file, err := ast.DecodeYAML([]byte(src))
	if err != nil {
		t.Fatalf("DecodeYAML: %v", err)
	}
	if len(file.Functions) != 1 {
		t.Fatalf("functions = %d, want 1", len(file.Functions))
	}
	return Generate(file.Functions[0], cfg)
}

func diffListing(t *testing.T, fn *Function, want []string) {
	t.Helper()
	if diff := cmp.Diff(want, fn.Code.Lines()); diff != "" {
		t.Errorf("listing mismatch (-want +got):\n%s", diff)
	}
}

func noProblems(t *testing.T, fn *Function) {
	t.Helper()
	if err := fn.Err(); err != nil {
		t.Fatalf("unexpected problems: %v", err)
	}
}

func TestGenerate_While(t *testing.T) {
	fn := generate(t, `
functions:
  - name: f
    params: [n]
    body:
      - while:
          cond: n
          body:
            - expr: {decr: n}
`, Config{})
	noProblems(t, fn)
	diffListing(t, fn, []string{
		"    jump L0",
		"L1:",
		"    label",
		"    declocal 1",
		"L0:",
		"    getlocal 1",
		"    iftrue L1",
		"    returnvoid",
	})
}

func TestGenerate_ForContinue(t *testing.T) {
	fn := generate(t, `
functions:
  - name: f
    body:
      - for:
          init: {var: {name: i, init: 0}}
          cond: {binary: {op: "<", left: i, right: 10}}
          update: {incr: i}
          body:
            - if: {cond: {binary: {op: "==", left: i, right: 5}}, then: [continue]}
`, Config{})
	noProblems(t, fn)
	diffListing(t, fn, []string{
		"    pushbyte 0",
		"    setlocal 1",
		"    jump L0",
		"L1:",
		"    label",
		"    getlocal 1",
		"    pushbyte 5",
		"    equals",
		"    iffalse L2",
		"    jump L3",
		"L2:",
		"L3:",
		"    inclocal 1",
		"L0:",
		"    getlocal 1",
		"    pushbyte 10",
		"    lessthan",
		"    iftrue L1",
		"    returnvoid",
	})
}

func TestGenerate_Switch(t *testing.T) {
	fn := generate(t, `
functions:
  - name: f
    params: [k]
    body:
      - switch:
          on: k
          cases:
            - case: 1
              body: [{expr: {call: {name: one}}}, break]
            - default:
              body: [{expr: {call: {name: other}}}]
`, Config{})
	noProblems(t, fn)
	diffListing(t, fn, []string{
		"    getlocal 1",
		"    setlocal 2",
		"    jump L0",
		"L1:",
		"    label",
		"    findpropstrict one",
		"    callpropvoid one 0",
		"    jump L2",
		"L3:",
		"    label",
		"    findpropstrict other",
		"    callpropvoid other 0",
		"    jump L4",
		"L0:",
		"    pushbyte 1",
		"    getlocal 2",
		"    ifstricteq L1",
		"    jump L3",
		"L4:",
		"L2:",
		"    returnvoid",
	})
	if free := len(fn.Scope.free); free != 1 {
		t.Errorf("free temps = %d, want the discriminant temp back", free)
	}
}

func TestGenerate_With(t *testing.T) {
	fn := generate(t, `
functions:
  - name: f
    params: [o]
    body:
      - with:
          object: o
          body:
            - return: x
`, Config{})
	noProblems(t, fn)
	diffListing(t, fn, []string{
		"    getlocal 1",
		"    dup",
		"    setlocal 3",
		"    pushwith",
		"    getlex x",
		"    setlocal 2",
		"    popscope",
		"    kill 3",
		"    getlocal 2",
		"    returnvalue",
		"    popscope",
		"    returnvoid",
	})
}

func TestGenerate_TryFinallyReturn(t *testing.T) {
	fn := generate(t, `
functions:
  - name: f
    body:
      - try:
          body:
            - return: 1
          finally:
            - expr: {call: {name: cleanup}}
`, Config{})
	noProblems(t, fn)
	diffListing(t, fn, []string{
		"    pushbyte 0",
		"    setlocal 2",
		"L0:",
		"    pushbyte 1",
		"    setlocal 1",
		"    pushbyte 1",
		"    setlocal 2",
		"    jump L1",
		"L2:",
		"    nop",
		"L3:",
		"    setlocal 3",
		"    pushbyte 2",
		"    setlocal 2",
		"L1:",
		"    findpropstrict cleanup",
		"    callpropvoid cleanup 0",
		"    getlocal 2",
		"    convert_i",
		"    lookupswitch L6 [L4 L5 L6]",
		"L6:",
		"    getlocal 3",
		"    throw",
		"L5:",
		"    getlocal 1",
		"    returnvalue",
		"    nop",
		"L4:",
		"    returnvoid",
	})

	if len(fn.Handlers) != 1 {
		t.Fatalf("handlers = %d, want 1", len(fn.Handlers))
	}
	pos := fn.Code.Positions()
	h := fn.Handlers[0]
	if pos[h.From] != 2 || pos[h.To] != 7 || pos[h.Target] != 8 {
		t.Errorf("handler = [%d, %d) -> %d, want [2, 7) -> 8", pos[h.From], pos[h.To], pos[h.Target])
	}
	if h.Type != "" {
		t.Errorf("finally handler type = %q, want catch-all", h.Type)
	}
}

func TestGenerate_CatchBreak(t *testing.T) {
	fn := generate(t, `
functions:
  - name: f
    body:
      - while:
          cond: true
          body:
            - try:
                body:
                  - expr: {call: {name: risky}}
                catch:
                  - param: e
                    type: Error
                    body:
                      - break
`, Config{})
	noProblems(t, fn)
	diffListing(t, fn, []string{
		"    jump L0",
		"L1:",
		"    label",
		"L2:",
		"    findpropstrict risky",
		"    callpropvoid risky 0",
		"L3:",
		"    jump L4",
		"L5:",
		"    newcatch 0",
		"    dup",
		"    setlocal 1",
		"    dup",
		"    pushscope",
		"    swap",
		"    setslot 1",
		"    popscope",
		"    kill 1",
		"    jump L6",
		"L4:",
		"L0:",
		"    pushtrue",
		"    iftrue L1",
		"L6:",
		"    returnvoid",
	})

	want := Handler{Type: "Error", Var: "e"}
	h := fn.Handlers[0]
	if h.Type != want.Type || h.Var != want.Var {
		t.Errorf("handler type/var = %q/%q, want %q/%q", h.Type, h.Var, want.Type, want.Var)
	}
	pos := fn.Code.Positions()
	if pos[h.From] != 2 || pos[h.To] != 4 || pos[h.Target] != 5 {
		t.Errorf("handler = [%d, %d) -> %d, want [2, 4) -> 5", pos[h.From], pos[h.To], pos[h.Target])
	}
}

// pairAt returns the index of the first line starting with first that is
// directly followed by a line starting with second.
func pairAt(t *testing.T, lines []string, first, second string) int {
	t.Helper()
	for i := 0; i+1 < len(lines); i++ {
		if strings.HasPrefix(lines[i], first) && strings.HasPrefix(lines[i+1], second) {
			return i
		}
	}
	t.Fatalf("no %q followed by %q in\n%s", first, second, strings.Join(lines, "\n"))
	return -1
}

func operand(line string) string {
	return line[strings.LastIndex(line, " ")+1:]
}

// Temps released by a switch inside a construct must not be handed to the
// construct's own storage, which is allocated after the body is generated.
func TestGenerate_ContextTempsOutliveBodyTemps(t *testing.T) {
	tests := []struct {
		name  string
		src   string
		check func(t *testing.T, lines []string)
	}{
		{
			name: "with scope at catch entry",
			src: `
functions:
  - name: f
    params: [o, x]
    body:
      - with:
          object: o
          body:
            - switch:
                on: x
                cases:
                  - case: 1
                    body: [{expr: {call: {name: one}}}]
            - try:
                body:
                  - expr: {call: {name: risky}}
                catch:
                  - type: Error
                    body:
                      - expr: {call: {name: log}}
`,
			check: func(t *testing.T, lines []string) {
				with := operand(lines[pairAt(t, lines, "    dup", "    setlocal ")+1])
				disc := operand(lines[pairAt(t, lines, "    getlocal 2", "    setlocal ")+1])
				entry := operand(lines[pairAt(t, lines, "    getlocal ", "    pushwith")])
				if with == disc {
					t.Errorf("with value and switch discriminant share register %s", with)
				}
				if entry != with {
					t.Errorf("catch entry pushes register %s, want with value in %s", entry, with)
				}
			},
		},
		{
			name: "exception rethrown after finally",
			src: `
functions:
  - name: f
    params: [x]
    body:
      - try:
          body:
            - expr: {call: {name: risky}}
          finally:
            - switch:
                on: x
                cases:
                  - case: 1
                    body: [{expr: {call: {name: one}}}]
`,
			check: func(t *testing.T, lines []string) {
				disc := operand(lines[pairAt(t, lines, "    getlocal 1", "    setlocal ")+1])
				exc := operand(lines[pairAt(t, lines, "    getlocal ", "    throw")])
				ret := operand(lines[pairAt(t, lines, "    getlocal ", "    convert_i")])
				if exc == disc {
					t.Errorf("rethrown exception and switch discriminant share register %s", exc)
				}
				if ret == disc {
					t.Errorf("finally dispatch and switch discriminant share register %s", ret)
				}
			},
		},
		{
			name: "catch scope at nested catch entry",
			src: `
functions:
  - name: f
    params: [x]
    body:
      - try:
          body:
            - expr: {call: {name: risky}}
          catch:
            - param: e
              type: Error
              body:
                - switch:
                    on: x
                    cases:
                      - case: 1
                        body: [{expr: {call: {name: one}}}]
                - try:
                    body:
                      - expr: {call: {name: risky}}
                    catch:
                      - param: f
                        type: Error
                        body:
                          - expr: {call: {name: log}}
`,
			check: func(t *testing.T, lines []string) {
				i := pairAt(t, lines, "    newcatch 1", "    dup")
				if !strings.HasPrefix(lines[i+2], "    setlocal ") {
					t.Fatalf("outer catch does not store its scope: %q", lines[i+2])
				}
				exc := operand(lines[i+2])
				disc := operand(lines[pairAt(t, lines, "    getlocal 1", "    setlocal ")+1])
				entry := operand(lines[pairAt(t, lines, "    getlocal ", "    pushscope")])
				if exc == disc {
					t.Errorf("catch scope and switch discriminant share register %s", exc)
				}
				if entry != exc {
					t.Errorf("nested catch entry pushes register %s, want catch scope in %s", entry, exc)
				}
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fn := generate(t, tt.src, Config{})
			noProblems(t, fn)
			tt.check(t, fn.Code.Lines())
		})
	}
}

func TestGenerate_CatchParamShadowing(t *testing.T) {
	fn := generate(t, `
functions:
  - name: f
    params: [e]
    body:
      - try:
          body: [{expr: {call: {name: risky}}}]
          catch: {param: e, body: [{expr: {call: {name: log, args: [e]}}}]}
      - expr: {call: {name: log, args: [e]}}
`, Config{})
	noProblems(t, fn)

	lines := fn.Code.Lines()
	if !slices.Contains(lines, "    getlex e") {
		t.Error("catch body should read the caught value from the scope stack")
	}
	if !slices.Contains(lines, "    getlocal 1") {
		t.Error("statement after the try should read the parameter register")
	}
}

func TestGenerate_Activation(t *testing.T) {
	fn := generate(t, `
functions:
  - name: f
    activation: true
    params: [p]
    body:
      - var: {name: v, init: p}
`, Config{})
	noProblems(t, fn)
	diffListing(t, fn, []string{
		"    newactivation",
		"    dup",
		"    setlocal 2",
		"    pushscope",
		"    findpropstrict p",
		"    getlocal 1",
		"    setproperty p",
		"    getlex p",
		"    findproperty v",
		"    swap",
		"    setproperty v",
		"    returnvoid",
	})
	if got := fn.Registers(); got != 3 {
		t.Errorf("registers = %d, want 3", got)
	}
}

func TestGenerate_ForIn(t *testing.T) {
	fn := generate(t, `
functions:
  - name: f
    params: [o]
    body:
      - forin:
          var: k
          in: o
          body:
            - if: {cond: k, then: [continue]}
            - expr: {call: {name: use, args: [k]}}
`, Config{})
	noProblems(t, fn)

	ops := fn.Code.Opcodes()
	for _, op := range []insn.Opcode{insn.OpHasNext, insn.OpNextName, insn.OpLabel} {
		if !slices.Contains(ops, op) {
			t.Errorf("missing %s in\n%s", op, fn.Code)
		}
	}
	if got := len(fn.Scope.Temps()); got != 2 {
		t.Errorf("temps = %d, want 2", got)
	}
	if got := len(fn.Scope.free); got != 2 {
		t.Errorf("free temps = %d, want 2", got)
	}
	// o is 1, k is 2, then the two temps.
	if got := fn.Registers(); got != 5 {
		t.Errorf("registers = %d, want 5", got)
	}
}

func TestGenerate_Diagnostics(t *testing.T) {
	fn := generate(t, `
functions:
  - name: f
    body:
      - break
      - {continue: nowhere}
      - {goto: missing}
      - label:
          name: a
          body:
            - label: {name: a, body: [{break: a}]}
      - expr: {binary: {op: "%%", left: 1, right: 2}}
`, Config{})

	var kinds []errors.Kind
	for _, p := range fn.Problems.Items() {
		kinds = append(kinds, p.Kind)
		if !p.Pos.IsValid() {
			t.Errorf("problem without position: %v", p)
		}
	}
	want := []errors.Kind{
		errors.KindUnknownTarget,
		errors.KindUnknownTarget,
		errors.KindUnknownTarget,
		errors.KindDuplicateLabel,
		errors.KindInvalidInput,
	}
	if diff := cmp.Diff(want, kinds); diff != "" {
		t.Errorf("problem kinds (-want +got):\n%s", diff)
	}

	items := fn.Problems.Items()
	if items[0].Criterion != "break" || items[1].Criterion != "continue" || items[2].Criterion != "goto" {
		t.Errorf("criteria = %q %q %q", items[0].Criterion, items[1].Criterion, items[2].Criterion)
	}
	if items[1].Label != "nowhere" || items[2].Label != "missing" {
		t.Errorf("labels = %q %q", items[1].Label, items[2].Label)
	}

	// Generation carries on: the labeled break still jumps out.
	ops := fn.Code.Opcodes()
	if ops[0] != insn.OpJump || ops[len(ops)-1] != insn.OpReturnVoid {
		t.Errorf("unexpected code:\n%s", fn.Code)
	}
	if slices.Contains(ops, insn.OpLabel) {
		t.Error("duplicate labels must not receive goto entries")
	}
}

const gotoTwice = `
functions:
  - name: f
    params: [c]
    body:
      - {goto: x}
      - label: {name: x, body: [{expr: {call: {name: a}}}]}
      - if: {cond: c, then: [{label: {name: x, body: [{expr: {call: {name: b}}}]}}]}
`

func TestGenerate_AmbiguousGoto(t *testing.T) {
	fn := generate(t, gotoTwice, Config{})

	if fn.Problems.Len() != 1 {
		t.Fatalf("problems = %v", fn.Err())
	}
	p := fn.Problems.Items()[0]
	if p.Kind != errors.KindAmbiguousGoto || p.Label != "x" {
		t.Errorf("problem = %v", p)
	}
	if n, _ := p.Value.(int); n != 2 {
		t.Errorf("candidates = %v, want 2", p.Value)
	}
	if p.Pos.Line != 6 {
		t.Errorf("problem line = %d, want the goto at 6", p.Pos.Line)
	}
	if slices.Contains(fn.Code.Opcodes(), insn.OpLabel) {
		t.Error("ambiguous labels must not receive goto entries")
	}
}

func TestGenerate_DuplicateGotoAllowed(t *testing.T) {
	fn := generate(t, gotoTwice, Config{AllowDuplicateLabels: true})
	noProblems(t, fn)

	code := fn.Code
	var target *insn.Label
	labels := 0
	for i, ins := range code.Instructions() {
		if i == 0 {
			target = ins.Targets()[0]
		}
		if ins.Opcode == insn.OpLabel {
			labels++
		}
	}
	if labels != 1 {
		t.Fatalf("label instructions = %d, want 1", labels)
	}
	at := code.Positions()[target]
	if code.At(at).Opcode != insn.OpLabel {
		t.Fatalf("goto lands on %s", code.At(at))
	}
	next := code.At(at + 1)
	if imm, ok := next.Imm.(insn.NameImm); !ok || imm.Name != "a" {
		t.Errorf("goto should reach the first label, lands before %s", next)
	}
}

func TestGenerate_IntegerIncrements(t *testing.T) {
	src := `
functions:
  - name: f
    params: [i]
    body:
      - expr: {incr: i}
      - expr: {decr: i}
`
	tests := []struct {
		name string
		want []insn.Opcode
		cfg  Config
	}{
		{"numeric", []insn.Opcode{insn.OpIncLocal, insn.OpDecLocal, insn.OpReturnVoid}, Config{}},
		{"integer", []insn.Opcode{insn.OpIncLocalI, insn.OpDecLocalI, insn.OpReturnVoid}, Config{IntegerIncrements: true}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fn := generate(t, src, tt.cfg)
			if diff := cmp.Diff(tt.want, fn.Code.Opcodes()); diff != "" {
				t.Errorf("opcodes (-want +got):\n%s", diff)
			}
		})
	}
}

func TestGenerate_NeedsThis(t *testing.T) {
	fn := generate(t, `
functions:
  - name: f
    body:
      - try:
          body: [{throw: 1}]
          finally: []
`, Config{NeedsThis: true})
	noProblems(t, fn)

	ops := fn.Code.Opcodes()
	if ops[0] != insn.OpGetLocal0 || ops[1] != insn.OpPushScope {
		t.Errorf("function prologue = %v", ops[:2])
	}
	pos := fn.Code.Positions()
	target := pos[fn.Handlers[0].Target]
	if ops[target] != insn.OpGetLocal0 || ops[target+1] != insn.OpPushScope {
		t.Errorf("handler entry = %v, want the receiver pushed", ops[target:target+2])
	}
}
