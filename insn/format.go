package insn

import (
	"fmt"
	"io"
	"strings"
)

// Namer assigns stable listing names to labels in order of first appearance.
type Namer struct {
	names map[*Label]string
	next  int
}

// NewNamer creates an empty namer.
func NewNamer() *Namer {
	return &Namer{names: make(map[*Label]string)}
}

// Name returns the listing name of lbl.
func (n *Namer) Name(lbl *Label) string {
	if lbl == nil {
		return "<nil>"
	}
	if s, ok := n.names[lbl]; ok {
		return s
	}
	s := fmt.Sprintf("L%d", n.next)
	n.next++
	n.names[lbl] = s
	return s
}

// Format writes a listing of l to w.
func (l *List) Format(w io.Writer) error {
	return l.FormatWith(w, NewNamer())
}

// FormatWith writes a listing of l using names from n.
func (l *List) FormatWith(w io.Writer, n *Namer) error {
	for i, ins := range l.insns {
		for _, lbl := range l.labels[i] {
			if _, err := fmt.Fprintf(w, "%s:\n", n.Name(lbl)); err != nil {
				return err
			}
		}
		if _, err := fmt.Fprintf(w, "    %s\n", ins.format(n.Name)); err != nil {
			return err
		}
	}
	for _, lbl := range l.pending {
		if _, err := fmt.Fprintf(w, "%s:\n", n.Name(lbl)); err != nil {
			return err
		}
	}
	return nil
}

// Lines returns the listing of l as one string per line.
func (l *List) Lines() []string {
	var b strings.Builder
	_ = l.Format(&b)
	return strings.Split(strings.TrimSuffix(b.String(), "\n"), "\n")
}

func (l *List) String() string {
	var b strings.Builder
	_ = l.Format(&b)
	return b.String()
}

// Opcodes returns the opcode of every instruction in order.
func (l *List) Opcodes() []Opcode {
	out := make([]Opcode, len(l.insns))
	for i, ins := range l.insns {
		out[i] = ins.Opcode
	}
	return out
}
