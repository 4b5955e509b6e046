package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"finman/internal/core"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(Options{Path: filepath.Join(t.TempDir(), "finman.db")})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func mustUser(t *testing.T, s *Store, name, email string) core.User {
	t.Helper()
	var u core.User
	err := s.Transact(context.Background(), func(r *Repository) error {
		var err error
		u, err = r.CreateUser(context.Background(), core.User{Name: name, Email: email, PasswordHash: "hash"})
		return err
	})
	if err != nil {
		t.Fatalf("CreateUser(%s) error = %v", email, err)
	}
	return u
}

func mustCategory(t *testing.T, s *Store, name string) core.Category {
	t.Helper()
	var c core.Category
	err := s.Transact(context.Background(), func(r *Repository) error {
		var err error
		c, err = r.GetOrCreateCategory(context.Background(), name)
		return err
	})
	if err != nil {
		t.Fatalf("GetOrCreateCategory(%s) error = %v", name, err)
	}
	return c
}

func mustTxn(t *testing.T, s *Store, userID, categoryID int64, cents int64, kind core.Kind) core.Transaction {
	t.Helper()
	var txn core.Transaction
	err := s.Transact(context.Background(), func(r *Repository) error {
		var err error
		txn, err = r.CreateTransaction(context.Background(), core.Transaction{
			UserID:      userID,
			CategoryID:  categoryID,
			Description: "test",
			Amount:      core.Money{Cents: cents},
			Kind:        kind,
		})
		return err
	})
	if err != nil {
		t.Fatalf("CreateTransaction() error = %v", err)
	}
	return txn
}

func TestCreateUser_DuplicateEmail(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	mustUser(t, s, "Ann", "ann@example.com")

	err := s.Transact(ctx, func(r *Repository) error {
		_, err := r.CreateUser(ctx, core.User{Name: "Impostor", Email: "ann@example.com", PasswordHash: "x"})
		return err
	})
	if !errors.Is(err, core.ErrDuplicateEmail) {
		t.Fatalf("expected ErrDuplicateEmail, got %v", err)
	}

	var count int64
	if err := s.db.Model(&User{}).Where("email = ?", "ann@example.com").Count(&count).Error; err != nil {
		t.Fatalf("count users: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected exactly one row, got %d", count)
	}

	err = s.Transact(ctx, func(r *Repository) error {
		u, err := r.FindUserByEmail(ctx, "ann@example.com")
		if err != nil {
			return err
		}
		if u.Name != "Ann" {
			t.Errorf("name changed to %q", u.Name)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("FindUserByEmail() error = %v", err)
	}
}

func TestFindUserByEmail_NotFound(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	err := s.Transact(ctx, func(r *Repository) error {
		_, err := r.FindUserByEmail(ctx, "ghost@example.com")
		return err
	})
	if !errors.Is(err, core.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestTransact_RollsBackOnError(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	boom := errors.New("boom")

	err := s.Transact(ctx, func(r *Repository) error {
		if _, err := r.CreateUser(ctx, core.User{Name: "Ann", Email: "ann@example.com", PasswordHash: "x"}); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}

	var count int64
	s.db.Model(&User{}).Count(&count)
	if count != 0 {
		t.Fatalf("expected rollback, found %d users", count)
	}
}

func TestGetOrCreateCategory(t *testing.T) {
	s := newTestStore(t)

	first := mustCategory(t, s, "food")
	second := mustCategory(t, s, "  FOOD ")
	if first.ID != second.ID {
		t.Fatalf("expected same category, got ids %d and %d", first.ID, second.ID)
	}
	if first.Name != "Food" {
		t.Fatalf("expected normalized name Food, got %q", first.Name)
	}

	mustCategory(t, s, "utilities")

	var categories []core.Category
	err := s.Transact(context.Background(), func(r *Repository) error {
		var err error
		categories, err = r.ListCategories(context.Background())
		return err
	})
	if err != nil {
		t.Fatalf("ListCategories() error = %v", err)
	}
	if len(categories) != 2 || categories[0].Name != "Food" || categories[1].Name != "Utilities" {
		t.Fatalf("unexpected categories %+v", categories)
	}
}

func TestGetOrCreateCategory_Empty(t *testing.T) {
	s := newTestStore(t)
	err := s.Transact(context.Background(), func(r *Repository) error {
		_, err := r.GetOrCreateCategory(context.Background(), "   ")
		return err
	})
	if !errors.Is(err, core.ErrEmptyCategory) {
		t.Fatalf("expected ErrEmptyCategory, got %v", err)
	}
}

func TestTransactionRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	u := mustUser(t, s, "Ann", "ann@example.com")
	food := mustCategory(t, s, "Food")

	created := mustTxn(t, s, u.ID, food.ID, 10000, core.Expense)

	var txns []core.Transaction
	err := s.Transact(ctx, func(r *Repository) error {
		var err error
		txns, err = r.ListTransactions(ctx, u.ID)
		return err
	})
	if err != nil {
		t.Fatalf("ListTransactions() error = %v", err)
	}
	if len(txns) != 1 {
		t.Fatalf("expected one transaction, got %d", len(txns))
	}

	got := txns[0]
	if got.ID != created.ID || got.ID == 0 {
		t.Errorf("id = %d, want %d", got.ID, created.ID)
	}
	if got.Kind != core.Expense || got.Amount.Cents != 10000 || got.Category != "Food" {
		t.Errorf("unexpected transaction %+v", got)
	}
	if got.Timestamp.IsZero() {
		t.Error("timestamp not assigned")
	}
}

func TestGetTransaction_Ownership(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	ann := mustUser(t, s, "Ann", "ann@example.com")
	bob := mustUser(t, s, "Bob", "bob@example.com")
	food := mustCategory(t, s, "Food")
	txn := mustTxn(t, s, ann.ID, food.ID, 500, core.Expense)

	err := s.Transact(ctx, func(r *Repository) error {
		_, err := r.GetTransaction(ctx, bob.ID, txn.ID)
		return err
	})
	if !errors.Is(err, core.ErrTransactionNotFound) {
		t.Fatalf("expected ErrTransactionNotFound, got %v", err)
	}

	err = s.Transact(ctx, func(r *Repository) error {
		return r.UpdateTransaction(ctx, core.Transaction{ID: txn.ID, UserID: bob.ID, CategoryID: food.ID, Amount: core.Money{Cents: 1}, Kind: core.Income})
	})
	if !errors.Is(err, core.ErrTransactionNotFound) {
		t.Fatalf("expected ErrTransactionNotFound on foreign update, got %v", err)
	}
}

func TestUpdateTransaction_KeepsTimestamp(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	u := mustUser(t, s, "Ann", "ann@example.com")
	food := mustCategory(t, s, "Food")
	rent := mustCategory(t, s, "Rent")
	txn := mustTxn(t, s, u.ID, food.ID, 500, core.Expense)

	var before, after core.Transaction
	err := s.Transact(ctx, func(r *Repository) error {
		var err error
		if before, err = r.GetTransaction(ctx, u.ID, txn.ID); err != nil {
			return err
		}
		updated := before
		updated.Amount = core.Money{Cents: 750}
		updated.CategoryID = rent.ID
		if err := r.UpdateTransaction(ctx, updated); err != nil {
			return err
		}
		after, err = r.GetTransaction(ctx, u.ID, txn.ID)
		return err
	})
	if err != nil {
		t.Fatalf("update flow error = %v", err)
	}
	if after.Amount.Cents != 750 || after.Category != "Rent" {
		t.Errorf("update not applied: %+v", after)
	}
	if !after.Timestamp.Equal(before.Timestamp) {
		t.Errorf("timestamp changed from %v to %v", before.Timestamp, after.Timestamp)
	}
}

func TestSumExpenses(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	ann := mustUser(t, s, "Ann", "ann@example.com")
	bob := mustUser(t, s, "Bob", "bob@example.com")
	food := mustCategory(t, s, "Food")
	rent := mustCategory(t, s, "Rent")

	mustTxn(t, s, ann.ID, food.ID, 1000, core.Expense)
	mustTxn(t, s, ann.ID, food.ID, 250, core.Expense)
	mustTxn(t, s, ann.ID, food.ID, 9999, core.Income)  // income is not spending
	mustTxn(t, s, ann.ID, rent.ID, 5000, core.Expense) // other category
	mustTxn(t, s, bob.ID, food.ID, 7000, core.Expense) // other user

	var sum core.Money
	err := s.Transact(ctx, func(r *Repository) error {
		var err error
		sum, err = r.SumExpenses(ctx, ann.ID, food.ID)
		return err
	})
	if err != nil {
		t.Fatalf("SumExpenses() error = %v", err)
	}
	if sum.Cents != 1250 {
		t.Fatalf("SumExpenses() = %d, want 1250", sum.Cents)
	}
}

func TestUpsertBudget_SingleRow(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	u := mustUser(t, s, "Ann", "ann@example.com")
	food := mustCategory(t, s, "Food")

	for _, cents := range []int64{10000, 25000} {
		err := s.Transact(ctx, func(r *Repository) error {
			_, err := r.UpsertBudget(ctx, u.ID, food.ID, core.Money{Cents: cents})
			return err
		})
		if err != nil {
			t.Fatalf("UpsertBudget(%d) error = %v", cents, err)
		}
	}

	var count int64
	s.db.Model(&Budget{}).Where("user_id = ? AND category_id = ?", u.ID, food.ID).Count(&count)
	if count != 1 {
		t.Fatalf("expected one budget row, got %d", count)
	}

	var budgets []core.Budget
	err := s.Transact(ctx, func(r *Repository) error {
		var err error
		budgets, err = r.ListBudgets(ctx, u.ID)
		return err
	})
	if err != nil {
		t.Fatalf("ListBudgets() error = %v", err)
	}
	if len(budgets) != 1 || budgets[0].Ceiling.Cents != 25000 || budgets[0].Category != "Food" {
		t.Fatalf("unexpected budgets %+v", budgets)
	}
}

func TestFindBudget_NotFound(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	u := mustUser(t, s, "Ann", "ann@example.com")
	food := mustCategory(t, s, "Food")

	err := s.Transact(ctx, func(r *Repository) error {
		_, err := r.FindBudget(ctx, u.ID, food.ID)
		return err
	})
	if !errors.Is(err, core.ErrBudgetNotFound) {
		t.Fatalf("expected ErrBudgetNotFound, got %v", err)
	}
}

func TestDeleteTransactions_OnlyOwner(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	ann := mustUser(t, s, "Ann", "ann@example.com")
	bob := mustUser(t, s, "Bob", "bob@example.com")
	food := mustCategory(t, s, "Food")

	mustTxn(t, s, ann.ID, food.ID, 100, core.Expense)
	mustTxn(t, s, ann.ID, food.ID, 200, core.Income)
	mustTxn(t, s, bob.ID, food.ID, 300, core.Expense)
	err := s.Transact(ctx, func(r *Repository) error {
		_, err := r.UpsertBudget(ctx, ann.ID, food.ID, core.Money{Cents: 1000})
		return err
	})
	if err != nil {
		t.Fatalf("UpsertBudget() error = %v", err)
	}

	var deleted int64
	err = s.Transact(ctx, func(r *Repository) error {
		var err error
		deleted, err = r.DeleteTransactions(ctx, ann.ID)
		return err
	})
	if err != nil {
		t.Fatalf("DeleteTransactions() error = %v", err)
	}
	if deleted != 2 {
		t.Fatalf("deleted = %d, want 2", deleted)
	}

	var bobs, budgets, categories int64
	s.db.Model(&Transaction{}).Where("user_id = ?", bob.ID).Count(&bobs)
	s.db.Model(&Budget{}).Count(&budgets)
	s.db.Model(&Category{}).Count(&categories)
	if bobs != 1 || budgets != 1 || categories != 1 {
		t.Fatalf("unrelated rows touched: bob txns=%d budgets=%d categories=%d", bobs, budgets, categories)
	}
}

func TestForeignKeysEnforced(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	err := s.Transact(ctx, func(r *Repository) error {
		_, err := r.CreateTransaction(ctx, core.Transaction{
			UserID:      999,
			CategoryID:  999,
			Description: "orphan",
			Amount:      core.Money{Cents: 100},
			Kind:        core.Expense,
		})
		return err
	})
	if err == nil {
		t.Fatal("expected foreign key violation")
	}
}
