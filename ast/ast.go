package ast

import "github.com/wippyai/flowgen/errors"

// Pos is the fixture position of a node.
type Pos = errors.Pos

// Node is any statement or expression.
type Node interface {
	Position() Pos
}

// Stmt is a statement node.
type Stmt interface {
	Node
	stmtNode()
}

// Expr is an expression node.
type Expr interface {
	Node
	exprNode()
}

// At records a source position. It is embedded in every node.
type At struct {
	Pos Pos
}

// Position returns the recorded position.
func (a At) Position() Pos { return a.Pos }

// File is a decoded fixture.
type File struct {
	Functions []*Function
}

// Function is one function body to generate.
type Function struct {
	Name   string
	Params []string
	Body   *Block
	// NeedsActivation places locals in an activation object whose scope must
	// be restored on catch entry.
	NeedsActivation bool
	At
}

// Statements

type (
	// Block is a braced statement list.
	Block struct {
		Stmts []Stmt
		At
	}

	// ExprStmt evaluates X and discards the value.
	ExprStmt struct {
		X Expr
		At
	}

	// VarDecl declares a local with an optional initializer.
	VarDecl struct {
		Init Expr
		Name string
		At
	}

	// If is a conditional with an optional else branch.
	If struct {
		Cond Expr
		Then Stmt
		Else Stmt
		At
	}

	// Switch dispatches on Disc. A Case with a nil Test is the default.
	Switch struct {
		Disc  Expr
		Cases []*Case
		At
	}

	// Case is one arm of a switch.
	Case struct {
		Test Expr
		Body []Stmt
		At
	}

	// While is a pre-tested loop.
	While struct {
		Cond Expr
		Body Stmt
		At
	}

	// DoWhile is a post-tested loop.
	DoWhile struct {
		Body Stmt
		Cond Expr
		At
	}

	// For is a C-style loop. Every clause is optional.
	For struct {
		Init   Stmt
		Cond   Expr
		Update Expr
		Body   Stmt
		At
	}

	// ForIn iterates the property names of Obj into the local Var.
	ForIn struct {
		Obj  Expr
		Body Stmt
		Var  string
		At
	}

	// Labeled attaches Label to Body.
	Labeled struct {
		Body  Stmt
		Label string
		At
	}

	// Break leaves the innermost loop or switch, or the statement named Label.
	Break struct {
		Label string
		At
	}

	// Continue restarts the innermost loop, or the loop named Label.
	Continue struct {
		Label string
		At
	}

	// Goto transfers to the labeled statement named Label.
	Goto struct {
		Label string
		At
	}

	// Return leaves the function. Value is nil for a void return.
	Return struct {
		Value Expr
		At
	}

	// Throw raises Value.
	Throw struct {
		Value Expr
		At
	}

	// Try is try/catch/finally. Finally is nil when absent.
	Try struct {
		Body    *Block
		Finally *Block
		Catches []*Catch
		At
	}

	// Catch is one catch clause. An empty Type catches everything.
	Catch struct {
		Body  *Block
		Param string
		Type  string
		At
	}

	// With pushes Obj onto the scope stack for the duration of Body.
	With struct {
		Obj  Expr
		Body Stmt
		At
	}
)

func (*Block) stmtNode()    {}
func (*ExprStmt) stmtNode() {}
func (*VarDecl) stmtNode()  {}
func (*If) stmtNode()       {}
func (*Switch) stmtNode()   {}
func (*While) stmtNode()    {}
func (*DoWhile) stmtNode()  {}
func (*For) stmtNode()      {}
func (*ForIn) stmtNode()    {}
func (*Labeled) stmtNode()  {}
func (*Break) stmtNode()    {}
func (*Continue) stmtNode() {}
func (*Goto) stmtNode()     {}
func (*Return) stmtNode()   {}
func (*Throw) stmtNode()    {}
func (*Try) stmtNode()      {}
func (*With) stmtNode()     {}

// Expressions

type (
	// Ident reads a name.
	Ident struct {
		Name string
		At
	}

	// IntLit is an integer constant.
	IntLit struct {
		Value int
		At
	}

	// StringLit is a string constant.
	StringLit struct {
		Value string
		At
	}

	// BoolLit is true or false.
	BoolLit struct {
		Value bool
		At
	}

	// NullLit is null.
	NullLit struct {
		At
	}

	// Assign stores Value into Name and yields it.
	Assign struct {
		Value Expr
		Name  string
		At
	}

	// Binary applies Op to L and R.
	Binary struct {
		L  Expr
		R  Expr
		Op string
		At
	}

	// Incr adds Delta to Name. A postfix form yields the old value.
	Incr struct {
		Name   string
		Delta  int
		Prefix bool
		At
	}

	// Call invokes the named property with Args.
	Call struct {
		Name string
		Args []Expr
		At
	}
)

func (*Ident) exprNode()     {}
func (*IntLit) exprNode()    {}
func (*StringLit) exprNode() {}
func (*BoolLit) exprNode()   {}
func (*NullLit) exprNode()   {}
func (*Assign) exprNode()    {}
func (*Binary) exprNode()    {}
func (*Incr) exprNode()      {}
func (*Call) exprNode()      {}

// IsLoop reports whether s is a loop statement.
func IsLoop(s Node) bool {
	switch s.(type) {
	case *While, *DoWhile, *For, *ForIn:
		return true
	}
	return false
}

// Unlabel strips any labels wrapping s.
func Unlabel(s Stmt) Stmt {
	for {
		l, ok := s.(*Labeled)
		if !ok {
			return s
		}
		s = l.Body
	}
}
