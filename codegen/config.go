package codegen

// Config configures statement generation.
type Config struct {
	// Selector implements expressions. Nil selects a BasicSelector.
	Selector Selector `toml:"-"`
	// NeedsThis pushes the receiver on the scope stack at function entry
	// and again at every handler entry.
	NeedsThis bool `toml:"needs_this"`
	// AllowDuplicateLabels lets goto pick the first of several visible
	// labels instead of reporting an ambiguous target.
	AllowDuplicateLabels bool `toml:"allow_duplicate_labels"`
	// IntegerIncrements is passed to the default selector.
	IntegerIncrements bool `toml:"integer_increments"`
}

func (c Config) selector() Selector {
	if c.Selector != nil {
		return c.Selector
	}
	return BasicSelector{IntegerIncrements: c.IntegerIncrements}
}
