package budget

import (
	"context"
	"errors"
	"testing"

	"finman/internal/core"
)

type fakeLedger struct {
	budget   *core.Budget
	expenses []int64
	err      error
}

func (f *fakeLedger) FindBudget(context.Context, int64, int64) (core.Budget, error) {
	if f.err != nil {
		return core.Budget{}, f.err
	}
	if f.budget == nil {
		return core.Budget{}, core.ErrBudgetNotFound
	}
	return *f.budget, nil
}

func (f *fakeLedger) SumExpenses(context.Context, int64, int64) (core.Money, error) {
	var total int64
	for _, e := range f.expenses {
		total += e
	}
	return core.Money{Cents: total}, nil
}

func TestEvaluate_NoBudget(t *testing.T) {
	_, found, err := Evaluate(context.Background(), &fakeLedger{expenses: []int64{100}}, 1, 1)
	if err != nil || found {
		t.Fatalf("Evaluate() found=%v err=%v, want no budget", found, err)
	}
}

func TestEvaluate_HeadroomMatchesSum(t *testing.T) {
	sequences := [][]int64{
		{},
		{100},
		{2500, 2500},
		{4000, 3000, 3001},
		{10000},
		{1, 2, 3, 4, 5, 6, 7, 8, 9, 10000},
	}
	const ceiling = 10000

	for _, seq := range sequences {
		ledger := &fakeLedger{budget: &core.Budget{Category: "Food", Ceiling: core.Money{Cents: ceiling}}}
		var sum int64
		for _, amount := range seq {
			ledger.expenses = append(ledger.expenses, amount)
			sum += amount

			h, found, err := Evaluate(context.Background(), ledger, 1, 1)
			if err != nil || !found {
				t.Fatalf("Evaluate() found=%v err=%v", found, err)
			}
			if h.Remaining.Cents != ceiling-sum {
				t.Fatalf("seq %v: remaining = %d, want %d", seq, h.Remaining.Cents, ceiling-sum)
			}
			if h.Exceeded() != (ceiling-sum < 0) {
				t.Fatalf("seq %v: Exceeded() = %v with remaining %d", seq, h.Exceeded(), h.Remaining.Cents)
			}
		}
	}
}

func TestEvaluate_PropagatesErrors(t *testing.T) {
	boom := errors.New("boom")
	_, _, err := Evaluate(context.Background(), &fakeLedger{err: boom}, 1, 1)
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
}

func TestHeadroomMessage(t *testing.T) {
	tests := []struct {
		name  string
		spent int64
		want  string
	}{
		{"within", 4000, "Remaining budget for Food: 60.00."},
		{"exact", 10000, "Remaining budget for Food: 0.00."},
		{"exceeded", 12550, "Alert: you have exceeded your budget for Food by 25.50."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := Compute("Food", core.Money{Cents: 10000}, core.Money{Cents: tt.spent})
			if got := h.Message(); got != tt.want {
				t.Fatalf("Message() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestOverage(t *testing.T) {
	if o := Compute("Food", core.Money{Cents: 100}, core.Money{Cents: 50}).Overage(); o.Cents != 0 {
		t.Fatalf("Overage() within budget = %d, want 0", o.Cents)
	}
	if o := Compute("Food", core.Money{Cents: 100}, core.Money{Cents: 175}).Overage(); o.Cents != 75 {
		t.Fatalf("Overage() = %d, want 75", o.Cents)
	}
}
