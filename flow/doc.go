// Package flow resolves structured control transfers of a function body.
//
// A Manager keeps a stack of active contexts, one per construct the
// generator is inside of: the root label scope, loops, switches, labeled
// statements, try statements and with statements. Loops, with bodies and the
// bodies of try, catch and finally get their own LabelScope, which bounds the
// labeled statements a goto can see.
//
// # Resolution
//
// A Criterion searches the stack in one direction and stops at the first
// match. Unlabeled break and continue search innermost first; labeled break
// and continue search outermost first so an inner unlabeled loop never
// shadows a label; goto searches innermost first among label scopes. A
// continue never matches a switch.
//
// # Exit paths
//
// Leaving several contexts at once needs cleanup for each one crossed. Jump
// and ExitPath fold every context from the target to the innermost over the
// continuation, each wrapping the result, so the innermost cleanup runs first:
//
//	with (o) { try { ... } finally { ... } }   // leaving the try: finally dispatch, then popscope
//	try { with (o) { return } } finally { }   // popscope, then finally dispatch
//
// A try with a finally redirects each exit through the finally block. The
// exit is registered as a FinallyReturn, its index stored in a temp, and the
// finally ends with a lookupswitch over the fall-through, each registered
// exit in order and a rethrow.
//
// # Protocol
//
// Start and finish calls must pair up. A mismatched pop or an illegal try
// state transition is a bug in the caller and panics with an
// errors.KindProtocol error.
package flow
