package codegen

import (
	"fmt"
	"slices"

	"go.uber.org/zap"

	"github.com/wippyai/flowgen/ast"
	"github.com/wippyai/flowgen/binding"
	"github.com/wippyai/flowgen/errors"
)

// Scope is the local storage of one function body: parameters, declared
// locals, and temps drawn from a free pool. Registers are handed out once,
// after the whole body was generated.
//
// Register 0 holds the receiver and parameters occupy 1..n. Locals follow
// in declaration order, then temps in allocation order.
type Scope struct {
	tab        *binding.Table
	names      map[string]binding.Binding
	shadows    map[string][]binding.Binding
	params     []string
	locals     []binding.Binding
	temps      []binding.Binding
	free       []binding.Binding
	activation binding.Binding
	registers  uint32
	assigned   bool
	onActivate bool
}

// NewScope creates the scope of a function with the given parameters.
// When activation is set, parameters and declared variables live in an
// activation object instead of registers.
func NewScope(params []string, activation bool) *Scope {
	s := &Scope{
		tab:        binding.NewTable(),
		names:      make(map[string]binding.Binding),
		shadows:    make(map[string][]binding.Binding),
		params:     params,
		onActivate: activation,
	}
	for _, p := range params {
		if _, ok := s.names[p]; ok {
			continue
		}
		s.names[p] = s.newVariable(p, nil)
	}
	if activation {
		s.activation = s.AllocateFreshTemp()
	}
	return s
}

// Table returns the binding table of the scope.
func (s *Scope) Table() *binding.Table {
	return s.tab
}

// Params returns the parameter names in declaration order.
func (s *Scope) Params() []string {
	return s.params
}

// NeedsActivation reports whether variables live in an activation object.
func (s *Scope) NeedsActivation() bool {
	return s.onActivate
}

// ActivationStorage returns the temp holding the activation object.
func (s *Scope) ActivationStorage() binding.Binding {
	if !s.onActivate {
		panic(errors.Protocol("function has no activation object"))
	}
	return s.activation
}

func (s *Scope) newVariable(name string, node ast.Node) binding.Binding {
	if s.onActivate {
		return s.tab.New(binding.Name{Local: name}, node)
	}
	return s.tab.NewLocal(name, node)
}

// Declare returns the binding of a declared variable, creating it on the
// first declaration. Redeclaration yields an alias of the same slot.
func (s *Scope) Declare(name string, node ast.Node) binding.Binding {
	if b, ok := s.names[name]; ok {
		return s.tab.Alias(b, node)
	}
	b := s.newVariable(name, node)
	s.names[name] = b
	if b.IsLocal() {
		s.locals = append(s.locals, b)
	}
	return b
}

// Lookup resolves name to its innermost binding.
func (s *Scope) Lookup(name string) (binding.Binding, bool) {
	if stack := s.shadows[name]; len(stack) > 0 {
		return stack[len(stack)-1], true
	}
	b, ok := s.names[name]
	return b, ok
}

// Shadow binds name to a scope-stack property for the duration of a catch
// body. The returned function restores the previous binding.
func (s *Scope) Shadow(name string, node ast.Node) func() {
	b := s.tab.New(binding.Name{Local: name}, node)
	s.shadows[name] = append(s.shadows[name], b)
	return func() {
		stack := s.shadows[name]
		s.shadows[name] = stack[:len(stack)-1]
	}
}

// AllocateTemp returns a free temp, reusing a released one when possible.
func (s *Scope) AllocateTemp() binding.Binding {
	if len(s.free) == 0 {
		return s.AllocateFreshTemp()
	}
	b := s.free[0]
	s.free = s.free[1:]
	debugf("reuse temp %s", b)
	return b
}

// AllocateFreshTemp returns a temp that was never used before.
func (s *Scope) AllocateFreshTemp() binding.Binding {
	if s.assigned {
		panic(errors.Protocol("allocate temp after register assignment"))
	}
	b := s.tab.NewLocal(fmt.Sprintf("temp#%d", len(s.temps)), nil)
	s.temps = append(s.temps, b)
	debugf("allocate temp %s", b)
	return b
}

// ReleaseTemp returns t to the free pool.
func (s *Scope) ReleaseTemp(t binding.Binding) {
	if slices.ContainsFunc(s.free, t.Same) {
		panic(errors.Protocol("temp %s is already free", t))
	}
	s.free = append(s.free, t)
}

// Temps returns every temp allocated so far.
func (s *Scope) Temps() []binding.Binding {
	return s.temps
}

// Registers returns the number of registers used, valid after
// AssignRegisters.
func (s *Scope) Registers() uint32 {
	return s.registers
}

// AssignRegisters gives every local slot its register and returns the
// register count. Repeated parameter names resolve to the last position.
func (s *Scope) AssignRegisters() uint32 {
	if s.assigned {
		panic(errors.Protocol("registers already assigned"))
	}
	s.assigned = true

	next := uint32(len(s.params) + 1)
	if !s.onActivate {
		for i := len(s.params) - 1; i >= 0; i-- {
			b := s.names[s.params[i]]
			if !b.RegisterIsSet() {
				b.AssignRegister(uint32(i + 1))
			}
		}
		for _, b := range s.locals {
			b.AssignRegister(next)
			next++
		}
	}
	for _, t := range s.temps {
		t.AssignRegister(next)
		next++
	}

	if left := s.tab.Unassigned(); len(left) > 0 {
		panic(errors.Protocol("%d local slots without a register, first %s", len(left), left[0]))
	}
	s.registers = next
	Logger().Debug("registers assigned",
		zap.Int("params", len(s.params)),
		zap.Int("locals", len(s.locals)),
		zap.Int("temps", len(s.temps)),
		zap.Uint32("count", next))
	return next
}
