package expense

import (
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// UsageEntry records one billable provider invocation. Entries are
// append-only and never mutated.
type UsageEntry struct {
	Operation string          `json:"operation"`
	Provider  string          `json:"provider"`
	Tokens    int             `json:"tokens"`
	Cost      decimal.Decimal `json:"cost"`
	UserID    string          `json:"user_id"`
	Timestamp time.Time       `json:"timestamp"`
}

// UsageLedger is an append-only per-user log of provider invocations.
// Queries for unknown users return zero values, never errors.
type UsageLedger interface {
	// Record appends an entry to the ledger
	Record(entry UsageEntry) error

	// TotalFor returns the cumulative cost for a user
	TotalFor(userID string) (decimal.Decimal, error)

	// CountFor returns the number of entries for a user
	CountFor(userID string) (int, error)

	// Recent returns up to n entries for a user, most recent first
	Recent(userID string, n int) ([]UsageEntry, error)
}

// MemoryLedger implements UsageLedger in process memory.
type MemoryLedger struct {
	mu      sync.Mutex
	entries map[string][]UsageEntry
}

// NewMemoryLedger creates an empty MemoryLedger.
func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{
		entries: make(map[string][]UsageEntry),
	}
}

// Record appends an entry to the ledger.
func (m *MemoryLedger) Record(entry UsageEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[entry.UserID] = append(m.entries[entry.UserID], entry)
	return nil
}

// TotalFor returns the cumulative cost for a user.
func (m *MemoryLedger) TotalFor(userID string) (decimal.Decimal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	total := decimal.Zero
	for _, entry := range m.entries[userID] {
		total = total.Add(entry.Cost)
	}
	return total, nil
}

// CountFor returns the number of entries for a user.
func (m *MemoryLedger) CountFor(userID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries[userID]), nil
}

// Recent returns up to n entries for a user, most recent first. A limit
// of zero or less returns no entries.
func (m *MemoryLedger) Recent(userID string, n int) ([]UsageEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if n < 0 {
		n = 0
	}
	stored := m.entries[userID]
	if n > len(stored) {
		n = len(stored)
	}
	entries := make([]UsageEntry, 0, n)
	for i := len(stored) - 1; i >= len(stored)-n; i-- {
		entries = append(entries, stored[i])
	}
	return entries, nil
}
