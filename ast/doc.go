// Package ast defines the statement and expression tree walked by the
// generator.
//
// The tree is deliberately small: it carries exactly the constructs whose
// control flow the generator must resolve (loops, switches, labels, goto,
// try/catch/finally, with) plus enough expressions to drive them. Nodes record
// the fixture position they were decoded from so diagnostics can point back
// at the input.
//
// Fixtures are written in YAML and decoded with DecodeYAML.
package ast
