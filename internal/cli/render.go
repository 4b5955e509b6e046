package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/fatih/color"

	"finman/internal/budget"
	"finman/internal/core"
	"finman/internal/services"
)

var (
	alertColor = color.New(color.FgRed, color.Bold)
	okColor    = color.New(color.FgGreen)
)

const timestampLayout = "2006-01-02 15:04"

func (a *App) printHeadroom(h budget.Headroom) {
	if h.Exceeded() {
		alertColor.Fprintln(a.Out, h.Message())
		return
	}
	okColor.Fprintln(a.Out, h.Message())
}

func (a *App) printTransactions(txns []core.Transaction) error {
	w := tabwriter.NewWriter(a.Out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "ID\tDATE\tTYPE\tCATEGORY\tAMOUNT (%s)\tDESCRIPTION\n", a.Currency)
	for _, t := range txns {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\n",
			t.ID,
			t.Timestamp.Local().Format(timestampLayout),
			t.Kind.Label(),
			t.Category,
			t.Amount,
			t.Description)
	}
	return w.Flush()
}

func (a *App) printBudgets(statuses []services.BudgetStatus) error {
	w := tabwriter.NewWriter(a.Out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "CATEGORY\tBUDGET (%s)\tSPENT\tREMAINING\n", a.Currency)
	for _, s := range statuses {
		h := s.Headroom
		remaining := h.Remaining.String()
		if h.Exceeded() {
			// last column, so escape codes cannot shift the alignment
			remaining = alertColor.Sprint(remaining)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", h.Category, h.Ceiling, h.Spent, remaining)
	}
	return w.Flush()
}
