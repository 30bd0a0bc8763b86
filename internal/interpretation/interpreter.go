package interpretation

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
)

// Status tags the three possible interpretation outcomes.
type Status int

const (
	// StatusComplete means all record fields were determined
	StatusComplete Status = iota
	// StatusNeedsClarification means one question must be answered first
	StatusNeedsClarification
	// StatusError means the provider response could not be used
	StatusError
)

// Record carries the structured fields extracted from receipt text.
// String fields use "unknown" and Amount uses zero when a value could
// not be determined.
type Record struct {
	Vendor      string          `json:"vendor"`
	Amount      decimal.Decimal `json:"amount"`
	Date        string          `json:"date"`
	Category    string          `json:"category"`
	ExpenseType string          `json:"expense_type"`
}

// Result is the typed outcome of one interpretation call. Exactly one of
// Record, Question, or Detail is meaningful, selected by Status.
type Result struct {
	Status   Status
	Record   Record
	Question string
	Detail   string
}

// Interpreter maps extracted receipt text to a structured expense record,
// or to a single clarifying question when a field cannot be determined.
type Interpreter interface {
	// Interpret analyzes raw receipt text. priorAnswer carries the user's
	// reply to a previous clarifying question, or "" on the first attempt.
	Interpret(ctx context.Context, rawText, priorAnswer string) (Result, error)

	// Close closes the interpreter and releases resources
	Close() error
}

// buildPrompt assembles the interpretation prompt. The two variants differ
// in whether a clarification answer is folded in: the follow-up prompt must
// always produce a record, the first-round prompt may ask one question.
func buildPrompt(rawText, priorAnswer string) string {
	if priorAnswer != "" {
		return fmt.Sprintf(`You are processing a receipt. Here is the text extracted from the receipt:

%s

The user was asked for clarification and responded: "%s"

Now extract the following fields and return ONLY a valid JSON object with no additional text:
{
  "vendor": "business name",
  "amount": 0.00,
  "date": "YYYY-MM-DD",
  "category": "one of: food, travel, office_supplies, utilities, other",
  "expense_type": "business or personal"
}

Use the user's response to fill in any missing information.
If you still cannot determine a required field, use "unknown" for strings or 0.00 for amounts.
Return ONLY the JSON object, no other text.`, rawText, priorAnswer)
	}

	return fmt.Sprintf(`You are processing a receipt. Here is the text extracted from the receipt:

%s

Extract the following expense information:
- vendor: The business name
- amount: The total amount (as a number)
- date: The transaction date (in YYYY-MM-DD format)
- category: One of: food, travel, office_supplies, utilities, other
- expense_type: Either "business" or "personal"

If you can extract ALL required fields with confidence, return ONLY a valid JSON object:
{
  "vendor": "business name",
  "amount": 0.00,
  "date": "YYYY-MM-DD",
  "category": "food",
  "expense_type": "business"
}

If ANY required field is unclear or missing, return ONLY:
QUESTION: <ask ONE specific clarifying question>

For example:
QUESTION: I can see the amount is $45.67, but what type of expense is this - business or personal?

Return ONLY the JSON object OR the question line. No other text.`, rawText)
}
