package domain

// SignalTable holds the per-bar entry/exit signal columns computed by a
// strategy in one batch pass over a candle series. The table is read-only
// after construction: signal functions see an immutable view keyed by bar
// index, so indicator columns cannot be mutated between bars.
type SignalTable struct {
	entries []OrderSide
	exits   []bool
}

// NewSignalTable builds a table from parallel signal columns. An empty
// string in entries means no entry signal at that bar. Both slices are
// copied; the table does not alias caller memory.
func NewSignalTable(entries []OrderSide, exits []bool) *SignalTable {
	t := &SignalTable{
		entries: make([]OrderSide, len(entries)),
		exits:   make([]bool, len(exits)),
	}
	copy(t.entries, entries)
	copy(t.exits, exits)
	return t
}

// Len returns the number of bars covered by the table.
func (t *SignalTable) Len() int {
	return len(t.entries)
}

// EntrySignal returns the entry side at bar i, if any. At most one of
// BUY/SELL per bar. Out-of-range indexes yield no signal.
func (t *SignalTable) EntrySignal(i int) (OrderSide, bool) {
	if i < 0 || i >= len(t.entries) || t.entries[i] == "" {
		return "", false
	}
	return t.entries[i], true
}

// ExitSignal reports whether the exit condition holds at bar i.
// Out-of-range indexes yield false.
func (t *SignalTable) ExitSignal(i int) bool {
	if i < 0 || i >= len(t.exits) {
		return false
	}
	return t.exits[i]
}
