// Package assemble lowers generated instruction lists to bytecode.
//
// Register operands are read from their bindings at this point, so every
// deferred instruction must have been assigned a register by the scope.
// Branch offsets are s24 values relative to the end of the branch, except
// lookupswitch, whose offsets are relative to the start of the switch.
package assemble
