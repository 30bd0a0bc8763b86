package expense

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Unknown is the sentinel used for string fields the interpretation
// provider could not determine. Amounts use a zero decimal instead.
const Unknown = "unknown"

// Expense categories returned by the interpretation provider.
const (
	CategoryFood           = "food"
	CategoryTravel         = "travel"
	CategoryOfficeSupplies = "office_supplies"
	CategoryUtilities      = "utilities"
	CategoryOther          = "other"
)

// Expense types.
const (
	TypeBusiness = "business"
	TypePersonal = "personal"
)

// Record is a fully structured expense extracted from a receipt.
// Records are produced only by the interpretation provider and are
// never mutated after creation.
type Record struct {
	Vendor      string          `json:"vendor"`
	Amount      decimal.Decimal `json:"amount"`
	Date        string          `json:"date"` // YYYY-MM-DD, or "unknown"
	Category    string          `json:"category"`
	ExpenseType string          `json:"expense_type"`
}

// Summary formats the record for an outbound user notification.
func (r Record) Summary() string {
	return fmt.Sprintf(
		"Got it! Receipt saved:\n\nVendor: %s\nAmount: $%s\nDate: %s\nCategory: %s\nType: %s",
		r.Vendor, r.Amount.StringFixed(2), r.Date, r.Category, r.ExpenseType,
	)
}
