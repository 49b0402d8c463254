// Package flowgen resolves structured control flow for a scope-stack
// bytecode machine and allocates the local storage that resolution needs.
//
// Given a function body as a statement tree, flowgen decides where every
// break, continue, goto and return transfers to, which cleanup runs on the
// way out (scope pops, finally blocks), and which register each named or
// temporary value occupies. Expressions are left to a pluggable selector.
//
// # Architecture Overview
//
// The library is organized into several packages with distinct responsibilities:
//
//	flowgen/
//	├── errors/          Structured error types and diagnostic lists
//	├── insn/            Opcodes, labels and instruction lists
//	├── binding/         Named storage slots with deferred register operands
//	├── ast/             Statement tree and YAML fixture decoding
//	├── flow/            Control-flow context stack and target resolution
//	├── codegen/         Function scope, temp pool and statement generator
//	├── assemble/        Lowering of instruction lists to bytes
//	├── driver/          Concurrent generation of many functions
//	└── cmd/flowgen/     Listing printer and interactive browser
//
// # Quick Start
//
// Generate and assemble one function:
//
//	file, err := ast.DecodeYAML(data)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	fn := codegen.Generate(file.Functions[0], codegen.Config{})
//	if err := fn.Err(); err != nil {
//	    log.Fatal(err) // unknown targets, duplicate labels, ...
//	}
//	fmt.Print(fn.Code)
//
//	m, err := assemble.Function(fn, &assemble.Pools{})
//
// # Deferred Registers
//
// Instructions that read or write a local are emitted before registers are
// assigned. They hold a reference to the binding's slot and print or encode
// the register once the scope assigns it. Every alias of a slot observes the
// same register.
//
// # Thread Safety
//
// Generation of one function is single-threaded: its scope, binding table
// and flow manager must not be shared. Independent functions may be
// generated concurrently; see the driver package.
package flowgen
