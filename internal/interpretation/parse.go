package interpretation

import (
	"encoding/json"
	"strings"
	"time"
)

const questionPrefix = "QUESTION:"

// parseResult converts a raw model response into a typed Result. A leading
// QUESTION: line becomes NeedsClarification; otherwise the response must
// contain a JSON object with all five record fields.
func parseResult(text string) Result {
	text = stripCodeFences(text)

	if strings.HasPrefix(text, questionPrefix) {
		question := strings.TrimSpace(strings.TrimPrefix(text, questionPrefix))
		if question == "" {
			return Result{Status: StatusError, Detail: "empty clarification question"}
		}
		return Result{Status: StatusNeedsClarification, Question: question}
	}

	// Find the JSON object boundaries - look for first { and last }
	startIdx := strings.Index(text, "{")
	if startIdx == -1 {
		return Result{Status: StatusError, Detail: "no JSON object found in response"}
	}
	endIdx := strings.LastIndex(text, "}")
	if endIdx == -1 || endIdx < startIdx {
		return Result{Status: StatusError, Detail: "invalid JSON object in response"}
	}
	text = text[startIdx : endIdx+1]

	var record Record
	if err := json.Unmarshal([]byte(text), &record); err != nil {
		return Result{Status: StatusError, Detail: "unmarshaling record: " + err.Error()}
	}

	if record.Amount.IsNegative() {
		return Result{Status: StatusError, Detail: "negative amount in record"}
	}

	normalizeRecord(&record)
	return Result{Status: StatusComplete, Record: record}
}

// stripCodeFences removes markdown code blocks wrapping a response.
func stripCodeFences(text string) string {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	return strings.TrimSpace(text)
}

// normalizeRecord fills sentinel values and canonicalizes enum fields so
// every field of a complete record is populated.
func normalizeRecord(record *Record) {
	record.Vendor = strings.TrimSpace(record.Vendor)
	if record.Vendor == "" {
		record.Vendor = "unknown"
	}

	record.Date = normalizeDate(record.Date)

	switch strings.ToLower(strings.TrimSpace(record.Category)) {
	case "food":
		record.Category = "food"
	case "travel":
		record.Category = "travel"
	case "office_supplies", "office supplies":
		record.Category = "office_supplies"
	case "utilities":
		record.Category = "utilities"
	default:
		record.Category = "other"
	}

	switch strings.ToLower(strings.TrimSpace(record.ExpenseType)) {
	case "business":
		record.ExpenseType = "business"
	case "personal":
		record.ExpenseType = "personal"
	default:
		record.ExpenseType = "unknown"
	}
}

// normalizeDate canonicalizes a date to YYYY-MM-DD, trying the common
// formats receipts carry. Unparseable dates become the unknown sentinel.
func normalizeDate(date string) string {
	date = strings.TrimSpace(date)
	if date == "" {
		return "unknown"
	}
	if parsed, err := time.Parse("2006-01-02", date); err == nil {
		return parsed.Format("2006-01-02")
	}
	formats := []string{
		"2006/01/02",
		"01/02/2006",
		"02-01-2006",
	}
	for _, format := range formats {
		if parsed, err := time.Parse(format, date); err == nil {
			return parsed.Format("2006-01-02")
		}
	}
	return "unknown"
}
