package core

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// NormalizeCategoryName trims, collapses inner whitespace and title-cases a
// category name so "food", " FOOD " and "Food" share one row.
func NormalizeCategoryName(name string) string {
	fields := strings.Fields(name)
	if len(fields) == 0 {
		return ""
	}
	// Casers carry state, so each call gets its own.
	return cases.Title(language.Und).String(strings.Join(fields, " "))
}

// SummaryLine renders one transaction for a model prompt, e.g.
// "Income: 500.00 in Salary".
func SummaryLine(t Transaction) string {
	return fmt.Sprintf("%s: %s in %s", t.Kind.Label(), t.Amount, t.Category)
}

// Summarize renders one line per transaction.
func Summarize(txns []Transaction) string {
	lines := make([]string, len(txns))
	for i, t := range txns {
		lines[i] = SummaryLine(t)
	}
	return strings.Join(lines, "\n")
}
