// Package budget compares a user's spending in a category with the ceiling
// they set for it.
package budget

import (
	"context"
	"errors"
	"fmt"

	"finman/internal/core"
)

// Ledger reads budgets and expense totals.
type Ledger interface {
	FindBudget(ctx context.Context, userID, categoryID int64) (core.Budget, error)
	SumExpenses(ctx context.Context, userID, categoryID int64) (core.Money, error)
}

// Headroom is what is left of a ceiling. Remaining is negative once spending
// passes the ceiling.
type Headroom struct {
	Category  string
	Ceiling   core.Money
	Spent     core.Money
	Remaining core.Money
}

// Compute derives the headroom of a ceiling after spent.
func Compute(category string, ceiling, spent core.Money) Headroom {
	return Headroom{
		Category:  category,
		Ceiling:   ceiling,
		Spent:     spent,
		Remaining: ceiling.Sub(spent),
	}
}

func (h Headroom) Exceeded() bool {
	return h.Remaining.IsNegative()
}

// Overage is how far spending is past the ceiling, zero when within budget.
func (h Headroom) Overage() core.Money {
	if !h.Exceeded() {
		return core.Money{}
	}
	return h.Remaining.Abs()
}

// Message renders the user-facing branch: remaining or exceeded.
func (h Headroom) Message() string {
	if h.Exceeded() {
		return fmt.Sprintf("Alert: you have exceeded your budget for %s by %s.", h.Category, h.Overage())
	}
	return fmt.Sprintf("Remaining budget for %s: %s.", h.Category, h.Remaining)
}

// Evaluate recomputes the headroom for (userID, categoryID) from the full
// expense history, including rows written earlier in the same transaction.
// It reports false when no budget is set.
func Evaluate(ctx context.Context, ledger Ledger, userID, categoryID int64) (Headroom, bool, error) {
	b, err := ledger.FindBudget(ctx, userID, categoryID)
	if errors.Is(err, core.ErrBudgetNotFound) {
		return Headroom{}, false, nil
	}
	if err != nil {
		return Headroom{}, false, fmt.Errorf("find budget: %w", err)
	}

	spent, err := ledger.SumExpenses(ctx, userID, categoryID)
	if err != nil {
		return Headroom{}, false, fmt.Errorf("sum expenses: %w", err)
	}

	return Compute(b.Category, b.Ceiling, spent), true, nil
}
