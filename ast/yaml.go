package ast

import (
	"fmt"
	"strconv"

	"go.yaml.in/yaml/v3"

	"github.com/wippyai/flowgen/errors"
)

// DecodeYAML decodes a fixture file.
//
// Statements are single-key mappings naming the statement kind:
//
//	functions:
//	  - name: count
//	    params: [n]
//	    body:
//	      - var: {name: i, init: 0}
//	      - while:
//	          cond: {binary: {op: "<", left: i, right: n}}
//	          body:
//	            - if: {cond: {binary: {op: "==", left: i, right: 3}}, then: [break]}
//	            - expr: {incr: i}
//	      - return: i
//
// Expression scalars decode by tag: integers to IntLit, booleans to BoolLit,
// null to NullLit and any other string to Ident. String constants are written
// {str: "text"}.
func DecodeYAML(data []byte) (*File, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, errors.Load("invalid yaml", err)
	}
	root := &doc
	if root.Kind == yaml.DocumentNode {
		if len(root.Content) == 0 {
			return &File{}, nil
		}
		root = root.Content[0]
	}

	var d decoder
	file := d.file(root)
	if d.err != nil {
		return nil, d.err
	}
	return file, nil
}

// decoder records the first error and turns later calls into no-ops.
type decoder struct {
	err *errors.Error
}

func posOf(n *yaml.Node) Pos {
	return Pos{Line: n.Line, Column: n.Column}
}

func (d *decoder) fail(n *yaml.Node, format string, args ...any) {
	if d.err != nil {
		return
	}
	d.err = errors.New(errors.PhaseLoad, errors.KindInvalidInput).
		Pos(posOf(n)).
		Detail(format, args...).
		Build()
}

// fields returns the key/value pairs of a mapping node.
func (d *decoder) fields(n *yaml.Node) map[string]*yaml.Node {
	if n.Kind != yaml.MappingNode {
		d.fail(n, "expected a mapping")
		return nil
	}
	out := make(map[string]*yaml.Node, len(n.Content)/2)
	for i := 0; i+1 < len(n.Content); i += 2 {
		out[n.Content[i].Value] = n.Content[i+1]
	}
	return out
}

// single splits a one-key mapping into its key and value.
func (d *decoder) single(n *yaml.Node) (string, *yaml.Node) {
	if n.Kind != yaml.MappingNode || len(n.Content) != 2 {
		d.fail(n, "expected a single-key mapping")
		return "", nil
	}
	return n.Content[0].Value, n.Content[1]
}

func (d *decoder) str(n *yaml.Node) string {
	if n == nil || isNull(n) {
		return ""
	}
	if n.Kind != yaml.ScalarNode {
		d.fail(n, "expected a scalar")
		return ""
	}
	return n.Value
}

func (d *decoder) flag(n *yaml.Node) bool {
	if n == nil {
		return false
	}
	v, err := strconv.ParseBool(n.Value)
	if err != nil {
		d.fail(n, "expected a boolean, got %q", n.Value)
	}
	return v
}

func (d *decoder) names(n *yaml.Node) []string {
	if n == nil {
		return nil
	}
	if n.Kind != yaml.SequenceNode {
		d.fail(n, "expected a sequence")
		return nil
	}
	out := make([]string, 0, len(n.Content))
	for _, c := range n.Content {
		out = append(out, d.str(c))
	}
	return out
}

func isNull(n *yaml.Node) bool {
	return n.Kind == yaml.ScalarNode && n.Tag == "!!null"
}

func (d *decoder) file(n *yaml.Node) *File {
	f := d.fields(n)
	fns := f["functions"]
	if fns == nil {
		return &File{}
	}
	if fns.Kind != yaml.SequenceNode {
		d.fail(fns, "functions must be a sequence")
		return nil
	}
	file := &File{}
	for _, c := range fns.Content {
		file.Functions = append(file.Functions, d.function(c))
	}
	return file
}

func (d *decoder) function(n *yaml.Node) *Function {
	f := d.fields(n)
	fn := &Function{
		Name:            d.str(f["name"]),
		Params:          d.names(f["params"]),
		NeedsActivation: d.flag(f["activation"]),
		At:              At{posOf(n)},
	}
	if fn.Name == "" && d.err == nil {
		d.fail(n, "function needs a name")
	}
	fn.Body = d.block(f["body"], n)
	return fn
}

// block decodes a statement sequence. A missing body yields an empty block
// positioned at owner.
func (d *decoder) block(n, owner *yaml.Node) *Block {
	if n == nil || isNull(n) {
		return &Block{At: At{posOf(owner)}}
	}
	b := &Block{At: At{posOf(n)}}
	if n.Kind != yaml.SequenceNode {
		b.Stmts = []Stmt{d.stmt(n)}
		return b
	}
	for _, c := range n.Content {
		b.Stmts = append(b.Stmts, d.stmt(c))
	}
	return b
}

// body decodes a statement position that accepts either one statement or a list.
func (d *decoder) body(n, owner *yaml.Node) Stmt {
	if n != nil && n.Kind != yaml.SequenceNode && !isNull(n) {
		return d.stmt(n)
	}
	return d.block(n, owner)
}

func (d *decoder) optBody(n, owner *yaml.Node) Stmt {
	if n == nil {
		return nil
	}
	return d.body(n, owner)
}

func (d *decoder) stmt(n *yaml.Node) Stmt {
	if d.err != nil {
		return nil
	}
	at := At{posOf(n)}

	if n.Kind == yaml.ScalarNode {
		switch n.Value {
		case "break":
			return &Break{At: at}
		case "continue":
			return &Continue{At: at}
		case "return":
			return &Return{At: at}
		}
		d.fail(n, "unknown statement %q", n.Value)
		return nil
	}
	if n.Kind == yaml.SequenceNode {
		return d.block(n, n)
	}

	kind, v := d.single(n)
	if v == nil {
		return nil
	}
	switch kind {
	case "block":
		return d.block(v, n)
	case "expr":
		return &ExprStmt{X: d.expr(v), At: at}
	case "var":
		f := d.fields(v)
		return &VarDecl{Name: d.str(f["name"]), Init: d.optExpr(f["init"]), At: at}
	case "if":
		f := d.fields(v)
		return &If{
			Cond: d.expr(f["cond"]),
			Then: d.body(f["then"], n),
			Else: d.optBody(f["else"], n),
			At:   at,
		}
	case "while":
		f := d.fields(v)
		return &While{Cond: d.expr(f["cond"]), Body: d.body(f["body"], n), At: at}
	case "do":
		f := d.fields(v)
		return &DoWhile{Body: d.body(f["body"], n), Cond: d.expr(f["cond"]), At: at}
	case "for":
		f := d.fields(v)
		return &For{
			Init:   d.optStmt(f["init"]),
			Cond:   d.optExpr(f["cond"]),
			Update: d.optExpr(f["update"]),
			Body:   d.body(f["body"], n),
			At:     at,
		}
	case "forin":
		f := d.fields(v)
		return &ForIn{
			Var:  d.str(f["var"]),
			Obj:  d.expr(f["in"]),
			Body: d.body(f["body"], n),
			At:   at,
		}
	case "switch":
		return d.switchStmt(v, at)
	case "label":
		f := d.fields(v)
		return &Labeled{Label: d.str(f["name"]), Body: d.body(f["body"], n), At: at}
	case "break":
		return &Break{Label: d.str(v), At: at}
	case "continue":
		return &Continue{Label: d.str(v), At: at}
	case "goto":
		return &Goto{Label: d.str(v), At: at}
	case "return":
		return &Return{Value: d.optExpr(v), At: at}
	case "throw":
		return &Throw{Value: d.expr(v), At: at}
	case "try":
		return d.tryStmt(v, n, at)
	case "with":
		f := d.fields(v)
		return &With{Obj: d.expr(f["object"]), Body: d.body(f["body"], n), At: at}
	}
	d.fail(n, "unknown statement %q", kind)
	return nil
}

func (d *decoder) optStmt(n *yaml.Node) Stmt {
	if n == nil || isNull(n) {
		return nil
	}
	return d.stmt(n)
}

func (d *decoder) switchStmt(v *yaml.Node, at At) Stmt {
	f := d.fields(v)
	s := &Switch{Disc: d.expr(f["on"]), At: at}
	cases := f["cases"]
	if cases == nil {
		return s
	}
	if cases.Kind != yaml.SequenceNode {
		d.fail(cases, "cases must be a sequence")
		return nil
	}
	for _, c := range cases.Content {
		cf := d.fields(c)
		cs := &Case{At: At{posOf(c)}}
		if t, ok := cf["case"]; ok {
			cs.Test = d.expr(t)
		} else if _, ok := cf["default"]; !ok {
			d.fail(c, "case needs a case or default key")
		}
		if b := cf["body"]; b != nil && !isNull(b) {
			cs.Body = d.block(b, c).Stmts
		}
		s.Cases = append(s.Cases, cs)
	}
	return s
}

func (d *decoder) tryStmt(v, owner *yaml.Node, at At) Stmt {
	f := d.fields(v)
	t := &Try{Body: d.block(f["body"], owner), At: at}
	if fin, ok := f["finally"]; ok {
		t.Finally = d.block(fin, owner)
	}
	if cs := f["catch"]; cs != nil {
		if cs.Kind != yaml.SequenceNode {
			cs = &yaml.Node{Kind: yaml.SequenceNode, Content: []*yaml.Node{cs}}
		}
		for _, c := range cs.Content {
			cf := d.fields(c)
			t.Catches = append(t.Catches, &Catch{
				Param: d.str(cf["param"]),
				Type:  d.str(cf["type"]),
				Body:  d.block(cf["body"], c),
				At:    At{posOf(c)},
			})
		}
	}
	if len(t.Catches) == 0 && t.Finally == nil && d.err == nil {
		d.fail(owner, "try needs a catch or a finally")
	}
	return t
}

func (d *decoder) optExpr(n *yaml.Node) Expr {
	if n == nil {
		return nil
	}
	return d.expr(n)
}

func (d *decoder) expr(n *yaml.Node) Expr {
	if d.err != nil {
		return nil
	}
	if n == nil {
		d.err = errors.InvalidInput(errors.PhaseLoad, "missing expression")
		return nil
	}
	at := At{posOf(n)}

	if n.Kind == yaml.ScalarNode {
		switch n.Tag {
		case "!!int":
			v, err := strconv.Atoi(n.Value)
			if err != nil {
				d.fail(n, "integer out of range: %s", n.Value)
			}
			return &IntLit{Value: v, At: at}
		case "!!bool":
			return &BoolLit{Value: d.flag(n), At: at}
		case "!!null":
			return &NullLit{At: at}
		}
		return &Ident{Name: n.Value, At: at}
	}

	kind, v := d.single(n)
	if v == nil {
		return nil
	}
	switch kind {
	case "str":
		return &StringLit{Value: d.str(v), At: at}
	case "assign":
		f := d.fields(v)
		return &Assign{Name: d.str(f["name"]), Value: d.expr(f["value"]), At: at}
	case "binary":
		f := d.fields(v)
		return &Binary{Op: d.str(f["op"]), L: d.expr(f["left"]), R: d.expr(f["right"]), At: at}
	case "incr", "decr", "preincr", "predecr":
		delta := 1
		if kind == "decr" || kind == "predecr" {
			delta = -1
		}
		return &Incr{Name: d.str(v), Delta: delta, Prefix: kind[0] == 'p', At: at}
	case "call":
		f := d.fields(v)
		c := &Call{Name: d.str(f["name"]), At: at}
		if args := f["args"]; args != nil {
			if args.Kind != yaml.SequenceNode {
				d.fail(args, "args must be a sequence")
				return nil
			}
			for _, a := range args.Content {
				c.Args = append(c.Args, d.expr(a))
			}
		}
		return c
	}
	d.fail(n, "unknown expression %q", kind)
	return nil
}

// String renders a short description of a node for logs and listings.
func String(n Node) string {
	switch n := n.(type) {
	case *Function:
		return "function " + n.Name
	case *Labeled:
		return n.Label + ":"
	case *Ident:
		return n.Name
	case *IntLit:
		return strconv.Itoa(n.Value)
	case nil:
		return "<nil>"
	}
	return fmt.Sprintf("%T@%s", n, n.Position())
}
