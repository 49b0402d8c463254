package flow

import (
	"github.com/wippyai/flowgen/ast"
	"github.com/wippyai/flowgen/insn"
)

// LabelScope bounds the labeled statements visible to goto. One is pushed for
// the function body and for each loop, with, try, catch and finally body.
type LabelScope struct {
	node   ast.Node
	labels map[string][]*ast.Labeled
	jumps  map[string]*insn.Label
}

func newLabelScope(region ast.Node) *LabelScope {
	s := &LabelScope{
		node:   region,
		labels: make(map[string][]*ast.Labeled),
		jumps:  make(map[string]*insn.Label),
	}
	s.scan(regionBody(region))
	return s
}

// regionBody returns the statement a region scan starts from.
func regionBody(n ast.Node) ast.Node {
	switch n := n.(type) {
	case *ast.Function:
		if n.Body == nil {
			return nil
		}
		return n.Body
	case *ast.Catch:
		return n.Body
	case *ast.While:
		return n.Body
	case *ast.DoWhile:
		return n.Body
	case *ast.For:
		return n.Body
	case *ast.ForIn:
		return n.Body
	case *ast.With:
		return n.Body
	}
	return n
}

func (s *LabelScope) Kind() Kind     { return KindLabelScope }
func (s *LabelScope) Node() ast.Node { return s.node }

func (s *LabelScope) addExitPath(exit *insn.List) *insn.List { return exit }
func (s *LabelScope) addHandlerEntry(*insn.List)             {}

// Visible returns the labeled statements named text in this region.
func (s *LabelScope) Visible(text string) []*ast.Labeled {
	return s.labels[text]
}

// Contains reports whether l was found by the region scan.
func (s *LabelScope) Contains(l *ast.Labeled) bool {
	for _, v := range s.labels[l.Label] {
		if v == l {
			return true
		}
	}
	return false
}

// JumpLabel returns the synthesized goto target for text.
func (s *LabelScope) JumpLabel(text string) *insn.Label {
	lbl, ok := s.jumps[text]
	if !ok {
		lbl = insn.NewLabel("goto " + text)
		s.jumps[text] = lbl
	}
	return lbl
}

// scan records labeled statements reachable without entering another
// goto region. It recurses into blocks, if branches, switch case bodies and
// labeled statements; every other statement ends the walk.
func (s *LabelScope) scan(n ast.Node) {
	switch n := n.(type) {
	case *ast.Block:
		if n == nil {
			return
		}
		for _, st := range n.Stmts {
			s.scan(st)
		}
	case *ast.If:
		s.scan(n.Then)
		if n.Else != nil {
			s.scan(n.Else)
		}
	case *ast.Switch:
		for _, c := range n.Cases {
			for _, st := range c.Body {
				s.scan(st)
			}
		}
	case *ast.Labeled:
		s.labels[n.Label] = append(s.labels[n.Label], n)
		s.scan(n.Body)
	}
}
