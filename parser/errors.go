package parser

import (
	"fmt"

	"github.com/aluiziolira/redeem-code-bot/models"
)

// TableCountError indicates the page did not contain exactly one marker table.
// Markup holds the raw page for the caller to log.
type TableCountError struct {
	Class  string
	Count  int
	Markup string
}

func (e TableCountError) Error() string {
	return fmt.Sprintf("expected exactly one table.%s, found %d", e.Class, e.Count)
}

// RowCountError indicates the table rows did not form 1 header + groups of three.
// Table holds the offending table markup for the caller to log.
type RowCountError struct {
	Rows  int
	Table string
}

func (e RowCountError) Error() string {
	return fmt.Sprintf("expected 1 header row plus groups of %d, got %d rows", rowsPerEntry, e.Rows)
}

// MissingCodeError indicates a row group without a Code row.
// Group holds the offending rows' markup for the caller to log.
type MissingCodeError struct {
	Group string
}

func (e MissingCodeError) Error() string {
	return fmt.Sprintf("row group has no %q field", models.FieldCode)
}

// Excerpt truncates a diagnostic payload for logging.
func Excerpt(s string, max int) string {
	if max <= 0 || len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
