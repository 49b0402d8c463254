// Package codegen generates stack-machine code for function bodies.
//
// Generate walks the statements of an ast.Function and drives a
// flow.Manager for every construct that transfers control: loops,
// switches, labeled statements, with and try statements, and the break,
// continue, goto and return statements that leave them. Expressions are
// delegated to a Selector.
//
// Each function gets its own Scope. Declared variables and temps are
// bindings in the scope's table; their instructions are emitted before
// registers are known and pick up a register when AssignRegisters runs at
// the end of the body:
//
//	fn := codegen.Generate(astFn, codegen.Config{})
//	if err := fn.Err(); err != nil {
//	    // unknown break targets, duplicate labels, ...
//	}
//	fmt.Print(fn.Code)
//
// A try statement with a finally block is laid out with a dispatch switch
// at the end of the finally. Every break, continue, goto or return that
// leaves the try or one of its catches stores its index in a temp and
// jumps to the finally; the switch then resumes the exit.
package codegen
