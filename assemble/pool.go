package assemble

// Pool interns constants. Index 0 is reserved, so the first entry is 1.
type Pool[T comparable] struct {
	index map[T]uint32
	items []T
}

// Intern returns the index of v, adding it when first seen.
func (p *Pool[T]) Intern(v T) uint32 {
	if idx, ok := p.index[v]; ok {
		return idx
	}
	if p.index == nil {
		p.index = make(map[T]uint32)
	}
	p.items = append(p.items, v)
	idx := uint32(len(p.items))
	p.index[v] = idx
	return idx
}

// Get returns the entry at idx.
func (p *Pool[T]) Get(idx uint32) (T, bool) {
	var zero T
	if idx == 0 || int(idx) > len(p.items) {
		return zero, false
	}
	return p.items[idx-1], true
}

// Len returns the number of entries.
func (p *Pool[T]) Len() int { return len(p.items) }

// Items returns the entries in index order, starting at index 1.
func (p *Pool[T]) Items() []T { return p.items }

// Pools holds the constants shared by every method of one output unit.
type Pools struct {
	Names   Pool[string]
	Strings Pool[string]
	Ints    Pool[int32]
}
