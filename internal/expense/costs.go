package expense

import (
	"time"

	"github.com/shopspring/decimal"
)

// Operation names recorded in the usage ledger.
const (
	OpExtraction     = "extraction"
	OpInterpretation = "interpretation"
)

// CostModel derives usage entries from provider calls. Token counts are
// rough character-based estimates; exact counts would require provider
// support the boundary does not assume.
type CostModel struct {
	ExtractionProvider     string
	InterpretationProvider string
	Rates                  map[string]decimal.Decimal // cost per token by provider
}

// DefaultCostModel returns per-token rates for the stock Gemini pairing:
// the vision model reads receipts, the cheaper text model categorizes.
func DefaultCostModel() CostModel {
	return CostModel{
		ExtractionProvider:     "gemini-2.5-pro",
		InterpretationProvider: "gemini-2.5-flash",
		Rates: map[string]decimal.Decimal{
			"gemini-2.5-pro":   decimal.RequireFromString("0.00000125"),
			"gemini-2.5-flash": decimal.RequireFromString("0.0000003"),
		},
	}
}

// ExtractionEntry builds the usage entry for one extraction call.
// Vision output runs ~3 characters per token.
func (m CostModel) ExtractionEntry(userID, rawText string, timestamp time.Time) UsageEntry {
	tokens := len(rawText) / 3
	return UsageEntry{
		Operation: OpExtraction,
		Provider:  m.ExtractionProvider,
		Tokens:    tokens,
		Cost:      m.cost(m.ExtractionProvider, tokens),
		UserID:    userID,
		Timestamp: timestamp,
	}
}

// InterpretationEntry builds the usage entry for one interpretation call.
// Plain text runs ~4 characters per token.
func (m CostModel) InterpretationEntry(userID, rawText string, timestamp time.Time) UsageEntry {
	tokens := len(rawText) / 4
	return UsageEntry{
		Operation: OpInterpretation,
		Provider:  m.InterpretationProvider,
		Tokens:    tokens,
		Cost:      m.cost(m.InterpretationProvider, tokens),
		UserID:    userID,
		Timestamp: timestamp,
	}
}

func (m CostModel) cost(provider string, tokens int) decimal.Decimal {
	rate, ok := m.Rates[provider]
	if !ok {
		return decimal.Zero
	}
	return rate.Mul(decimal.NewFromInt(int64(tokens)))
}
