package sweep

// Ledger is the set of identity keys already accepted. Keys are only ever
// added.
type Ledger struct {
	seen map[string]struct{}
}

// NewLedger creates an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{seen: make(map[string]struct{})}
}

// Has reports whether key was recorded.
func (l *Ledger) Has(key string) bool {
	_, ok := l.seen[key]
	return ok
}

// Record adds key. Recording a key twice is a no-op.
func (l *Ledger) Record(key string) {
	l.seen[key] = struct{}{}
}

// Len is the number of recorded keys.
func (l *Ledger) Len() int {
	return len(l.seen)
}
