package flow

import (
	"github.com/wippyai/flowgen/errors"
	"github.com/wippyai/flowgen/insn"
)

// Criterion selects a context on the manager's stack.
//
// Match is tried on each context in the search direction and the first match
// wins. Label returns the jump target of the matched context.
type Criterion struct {
	Match func(Context) bool
	Label func(Context) *insn.Label
	// check rejects a match, used by goto for ambiguous labels.
	check        func(Context) *errors.Error
	Name         string
	Text         string
	InnerToOuter bool
}

func (c Criterion) String() string {
	if c.Text == "" {
		return c.Name
	}
	return c.Name + " " + c.Text
}

type breaker interface {
	BreakLabel() *insn.Label
}

func breakLabelOf(ctx Context) *insn.Label {
	return ctx.(breaker).BreakLabel()
}

func continueLabelOf(ctx Context) *insn.Label {
	return ctx.(*Loop).ContinueLabel()
}

// AllContexts matches the outermost context. It is used by return, whose exit
// path crosses every active context.
var AllContexts = Criterion{
	Name:  "return",
	Match: func(Context) bool { return true },
}

// Break matches the innermost loop or switch.
var Break = Criterion{
	Name:         "break",
	InnerToOuter: true,
	Match: func(ctx Context) bool {
		switch ctx.(type) {
		case *Loop, *Switch:
			return true
		}
		return false
	},
	Label: breakLabelOf,
}

// Continue matches the innermost loop. Switches never match.
var Continue = Criterion{
	Name:         "continue",
	InnerToOuter: true,
	Match: func(ctx Context) bool {
		_, ok := ctx.(*Loop)
		return ok
	},
	Label: continueLabelOf,
}

// LabeledBreak matches the outermost labeled statement, loop or switch
// named text. The outward search keeps an inner unlabeled loop from
// shadowing the label. A label written directly on a loop or switch is
// answered by that construct.
func LabeledBreak(text string) Criterion {
	return Criterion{
		Name: "break",
		Text: text,
		Match: func(ctx Context) bool {
			switch ctx := ctx.(type) {
			case *LabeledStatement:
				return ctx.Label() == text && !ctx.wrapsBreakable()
			case *Loop:
				return ctx.HasLabel(text)
			case *Switch:
				return ctx.HasLabel(text)
			}
			return false
		},
		Label: breakLabelOf,
	}
}

// labelDeclared matches any labeled statement named text.
func labelDeclared(text string) Criterion {
	return Criterion{
		Name: "label",
		Text: text,
		Match: func(ctx Context) bool {
			ls, ok := ctx.(*LabeledStatement)
			return ok && ls.Label() == text
		},
	}
}

// LabeledContinue matches the outermost loop whose label chain holds text.
func LabeledContinue(text string) Criterion {
	return Criterion{
		Name: "continue",
		Text: text,
		Match: func(ctx Context) bool {
			loop, ok := ctx.(*Loop)
			return ok && loop.HasLabel(text)
		},
		Label: continueLabelOf,
	}
}

// Goto matches the innermost label scope that sees a statement labeled text.
// Unless allowDuplicates is set, a scope seeing more than one such statement
// fails the search with an ambiguous goto.
//
// The search stops at the innermost scope that sees text even when that scope
// holds duplicates; outer scopes are not consulted.
func Goto(text string, allowDuplicates bool) Criterion {
	c := Criterion{
		Name:         "goto",
		Text:         text,
		InnerToOuter: true,
		Match: func(ctx Context) bool {
			s, ok := ctx.(*LabelScope)
			return ok && len(s.Visible(text)) > 0
		},
		Label: func(ctx Context) *insn.Label {
			return ctx.(*LabelScope).JumpLabel(text)
		},
	}
	if !allowDuplicates {
		c.check = func(ctx Context) *errors.Error {
			if n := len(ctx.(*LabelScope).Visible(text)); n > 1 {
				return errors.AmbiguousGoto(text, n)
			}
			return nil
		}
	}
	return c
}
