// Package models defines data structures for the redeem-code bot.
package models

import "time"

// FieldCode is the row label that carries the redeem code itself. The other
// labels on the wiki ("Rewards", "Dates") are free text and not interpreted.
const FieldCode = "Code"

// CodeRecord is one scraped table entry: row label to row value.
type CodeRecord struct {
	Fields map[string]string
}

// Code returns the redeem code for this record.
func (r CodeRecord) Code() string {
	return r.Fields[FieldCode]
}

// CycleResult summarizes one fetch-parse-diff-notify cycle.
type CycleResult struct {
	StartTime time.Time
	EndTime   time.Time
	Skipped   bool // page unchanged since a recent cycle, nothing parsed
	Added     []string
	MemoSize  int
	Notified  bool
}
