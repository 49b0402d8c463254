package driver

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/wippyai/flowgen/assemble"
	"github.com/wippyai/flowgen/ast"
	"github.com/wippyai/flowgen/codegen"
	"github.com/wippyai/flowgen/errors"
	"github.com/wippyai/flowgen/insn"
)

func fixtures(t *testing.T, n int) []*ast.Function {
	t.Helper()
	var b strings.Builder
	b.WriteString("functions:\n")
	for i := 0; i < n; i++ {
		fmt.Fprintf(&b, `  - name: f%d
    params: [n]
    body:
      - while:
          cond: n
          body:
            - if: {cond: {binary: {op: "==", left: n, right: %d}}, then: [break]}
            - expr: {decr: n}
      - return: n
`, i, i)
	}
	file, err := ast.DecodeYAML([]byte(b.String()))
	if err != nil {
		t.Fatalf("DecodeYAML: %v", err)
	}
	return file.Functions
}

type recorder struct {
	names   []string
	results []*Result
}

func (r *recorder) FinishFunction(res *Result) error {
	name := "<nil>"
	if res.Function != nil {
		name = res.Function.Name
	}
	r.names = append(r.names, name)
	r.results = append(r.results, res)
	return nil
}

func TestGenerateAll_Order(t *testing.T) {
	fns := fixtures(t, 16)
	want := make([]string, len(fns))
	for i, fn := range fns {
		want[i] = fn.Name
	}

	for _, workers := range []int{1, 4, 0} {
		t.Run(fmt.Sprintf("workers=%d", workers), func(t *testing.T) {
			var rec recorder
			if err := GenerateAll(context.Background(), fns, Options{Workers: workers}, &rec); err != nil {
				t.Fatalf("GenerateAll: %v", err)
			}
			if diff := cmp.Diff(want, rec.names); diff != "" {
				t.Errorf("emit order mismatch (-want +got):\n%s", diff)
			}
			for i, res := range rec.results {
				if res.Index != i {
					t.Errorf("result %d has index %d", i, res.Index)
				}
			}
		})
	}
}

func TestGenerateAll_Deterministic(t *testing.T) {
	fns := fixtures(t, 8)
	listings := func(workers int) [][]string {
		var out [][]string
		emit := EmitterFunc(func(r *Result) error {
			out = append(out, r.Function.Code.Lines())
			return nil
		})
		if err := GenerateAll(context.Background(), fns, Options{Workers: workers}, emit); err != nil {
			t.Fatalf("GenerateAll: %v", err)
		}
		return out
	}
	if diff := cmp.Diff(listings(1), listings(8)); diff != "" {
		t.Errorf("listings depend on scheduling (-serial +parallel):\n%s", diff)
	}
}

func TestGenerateAll_Assemble(t *testing.T) {
	fns := fixtures(t, 3)
	pools := &assemble.Pools{}
	var rec recorder
	if err := GenerateAll(context.Background(), fns, Options{Pools: pools, Workers: 2}, &rec); err != nil {
		t.Fatalf("GenerateAll: %v", err)
	}
	for _, res := range rec.results {
		if res.Method == nil || len(res.Method.Code) == 0 {
			t.Fatalf("%s was not assembled", res.Function.Name)
		}
		if res.Method.MaxLocals != res.Function.Registers() {
			t.Errorf("%s: max locals %d, want %d", res.Method.Name, res.Method.MaxLocals, res.Function.Registers())
		}
	}
}

func TestGenerateAll_Cancelled(t *testing.T) {
	fns := fixtures(t, 4)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var rec recorder
	err := GenerateAll(ctx, fns, Options{}, &rec)
	if !stderrors.Is(err, context.Canceled) {
		t.Fatalf("error = %v, want context.Canceled", err)
	}
	if len(rec.results) != len(fns) {
		t.Fatalf("emitted %d results, want %d", len(rec.results), len(fns))
	}
	for _, res := range rec.results {
		if !stderrors.Is(res.Err, context.Canceled) {
			t.Errorf("result %d error = %v", res.Index, res.Err)
		}
	}
}

// panicky violates the scope protocol for calls to "bad".
type panicky struct {
	codegen.BasicSelector
}

func (p panicky) Effect(s *codegen.Scope, e ast.Expr) (*insn.List, error) {
	if c, ok := e.(*ast.Call); ok && c.Name == "bad" {
		panic(errors.Protocol("release of a temp that was never allocated"))
	}
	return p.BasicSelector.Effect(s, e)
}

func TestGenerateAll_ProtocolViolation(t *testing.T) {
	file, err := ast.DecodeYAML([]byte(`
functions:
  - name: good
    body: [{expr: {call: {name: ok}}}]
  - name: broken
    body: [{expr: {call: {name: bad}}}]
  - name: after
    body: [{expr: {call: {name: ok}}}]
`))
	if err != nil {
		t.Fatalf("DecodeYAML: %v", err)
	}

	var rec recorder
	opts := Options{Codegen: codegen.Config{Selector: panicky{}}}
	err = GenerateAll(context.Background(), file.Functions, opts, &rec)
	if err == nil {
		t.Fatal("expected an error")
	}
	protocol := &errors.Error{Phase: errors.PhaseGenerate, Kind: errors.KindProtocol}
	if !stderrors.Is(err, protocol) {
		t.Errorf("error = %v, want a protocol violation", err)
	}

	if diff := cmp.Diff([]string{"good", "<nil>", "after"}, rec.names); diff != "" {
		t.Errorf("emitted mismatch (-want +got):\n%s", diff)
	}
	if rec.results[0].Err != nil || rec.results[2].Err != nil {
		t.Error("a protocol violation must only fail its own function")
	}
	if !stderrors.Is(rec.results[1].Err, protocol) {
		t.Errorf("broken error = %v", rec.results[1].Err)
	}
}

func TestGenerateAll_EmitterError(t *testing.T) {
	fns := fixtures(t, 3)
	stop := stderrors.New("disk full")
	calls := 0
	emit := EmitterFunc(func(*Result) error {
		calls++
		return stop
	})
	if err := GenerateAll(context.Background(), fns, Options{}, emit); !stderrors.Is(err, stop) {
		t.Fatalf("error = %v, want emitter error", err)
	}
	if calls != 1 {
		t.Errorf("emitter called %d times, want 1", calls)
	}
}
