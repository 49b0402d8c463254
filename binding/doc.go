// Package binding models named storage cells of a function body.
//
// A Binding is a handle into a Table of slot records. Several bindings may
// refer to the same slot, for example when inlining copies a reference to a
// new source site; attributes written through one alias are seen through all
// of them.
//
// A local slot hands out seven shared deferred instructions (getlocal,
// setlocal, inclocal, inclocal_i, declocal, declocal_i, kill). Each is created
// on first use and reused afterwards. Their register operand is resolved
// against the table when the instruction is printed or lowered, so emitting
// them before the register allocator has run is safe:
//
//	tab := binding.NewTable()
//	x := tab.NewLocal("x", nil)
//	read := x.ReadInstruction()  // getlocal ?
//	x.AssignRegister(3)          // read is now getlocal 3
//
// AssignRegister may be called once per slot. Calling it twice, or on a slot
// that is not local, is a generator bug and panics with a protocol error.
package binding
