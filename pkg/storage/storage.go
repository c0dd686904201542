package storage

// Storage defines the root interface for the entire data layer.
// It composes all available storage operations. Components should depend on
// the more granular interfaces where a narrower boundary suffices.
type Storage interface {
	AccountStore
	TransactionStore
	RetryStore
	EscrowStore
	LedgerReader
}
