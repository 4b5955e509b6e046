package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"finman/internal/core"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// Repository is bound to one open transaction; obtain it from Store.Transact.
type Repository struct {
	db *gorm.DB
}

// CreateUser inserts a user. A taken email yields core.ErrDuplicateEmail.
func (r *Repository) CreateUser(ctx context.Context, u core.User) (core.User, error) {
	var existing int64
	if err := r.db.WithContext(ctx).Model(&User{}).Where("email = ?", u.Email).Count(&existing).Error; err != nil {
		return core.User{}, fmt.Errorf("check email: %w", err)
	}
	if existing > 0 {
		return core.User{}, core.ErrDuplicateEmail
	}

	row := User{Name: u.Name, Email: u.Email, PasswordHash: u.PasswordHash}
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		if isUniqueViolation(err) {
			return core.User{}, core.ErrDuplicateEmail
		}
		return core.User{}, fmt.Errorf("create user: %w", err)
	}

	slog.InfoContext(ctx, "User created", "user_id", row.ID)
	return row.toCore(), nil
}

func (r *Repository) FindUserByEmail(ctx context.Context, email string) (core.User, error) {
	var row User
	err := r.db.WithContext(ctx).Where("email = ?", email).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return core.User{}, core.ErrUserNotFound
	}
	if err != nil {
		return core.User{}, fmt.Errorf("find user by email: %w", err)
	}
	return row.toCore(), nil
}

// GetOrCreateCategory returns the category with the normalized name,
// inserting it first when missing. Concurrent callers converge on one row.
func (r *Repository) GetOrCreateCategory(ctx context.Context, name string) (core.Category, error) {
	name = core.NormalizeCategoryName(name)
	if name == "" {
		return core.Category{}, core.ErrEmptyCategory
	}

	db := r.db.WithContext(ctx)
	if err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoNothing: true,
	}).Create(&Category{Name: name}).Error; err != nil {
		return core.Category{}, fmt.Errorf("insert category %s: %w", name, err)
	}

	var row Category
	if err := db.Where("name = ?", name).First(&row).Error; err != nil {
		return core.Category{}, fmt.Errorf("load category %s: %w", name, err)
	}
	return row.toCore(), nil
}

func (r *Repository) ListCategories(ctx context.Context) ([]core.Category, error) {
	var rows []Category
	if err := r.db.WithContext(ctx).Order("name").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}

	categories := make([]core.Category, len(rows))
	for i, c := range rows {
		categories[i] = c.toCore()
	}
	return categories, nil
}

func (r *Repository) CreateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	now := time.Now().UTC()
	if t.Timestamp.IsZero() {
		t.Timestamp = now
	}

	row := Transaction{
		UserID:      t.UserID,
		CategoryID:  t.CategoryID,
		Description: t.Description,
		AmountCents: t.Amount.Cents,
		Kind:        string(t.Kind),
		Timestamp:   t.Timestamp.UTC(),
		UpdatedAt:   now,
	}
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Create(&row).Error; err != nil {
		return core.Transaction{}, fmt.Errorf("create transaction: %w", err)
	}

	slog.InfoContext(ctx, "Transaction saved",
		"id", row.ID,
		"user_id", row.UserID,
		"category_id", row.CategoryID,
		"kind", row.Kind,
		"amount_cents", row.AmountCents)

	t.ID = row.ID
	t.Timestamp = row.Timestamp
	return t, nil
}

// GetTransaction loads a transaction owned by userID. Rows of other users
// are reported as not found.
func (r *Repository) GetTransaction(ctx context.Context, userID, id int64) (core.Transaction, error) {
	var row Transaction
	err := r.db.WithContext(ctx).
		Preload("Category").
		Where("id = ? AND user_id = ?", id, userID).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return core.Transaction{}, core.ErrTransactionNotFound
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("get transaction %d: %w", id, err)
	}
	return row.toCore(), nil
}

// UpdateTransaction rewrites amount, kind and category. The timestamp is kept.
func (r *Repository) UpdateTransaction(ctx context.Context, t core.Transaction) error {
	res := r.db.WithContext(ctx).Model(&Transaction{}).
		Where("id = ? AND user_id = ?", t.ID, t.UserID).
		Updates(map[string]any{
			"amount_cents": t.Amount.Cents,
			"kind":         string(t.Kind),
			"category_id":  t.CategoryID,
			"updated_at":   time.Now().UTC(),
		})
	if res.Error != nil {
		return fmt.Errorf("update transaction %d: %w", t.ID, res.Error)
	}
	if res.RowsAffected == 0 {
		return core.ErrTransactionNotFound
	}
	return nil
}

// ListTransactions returns the user's transactions, oldest first.
func (r *Repository) ListTransactions(ctx context.Context, userID int64) ([]core.Transaction, error) {
	var rows []Transaction
	if err := r.db.WithContext(ctx).
		Preload("Category").
		Where("user_id = ?", userID).
		Order("timestamp, id").
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}

	txns := make([]core.Transaction, len(rows))
	for i, t := range rows {
		txns[i] = t.toCore()
	}
	return txns, nil
}

// DeleteTransactions removes every transaction of userID and reports how many.
func (r *Repository) DeleteTransactions(ctx context.Context, userID int64) (int64, error) {
	res := r.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&Transaction{})
	if res.Error != nil {
		return 0, fmt.Errorf("delete transactions: %w", res.Error)
	}

	slog.InfoContext(ctx, "Transactions deleted", "user_id", userID, "count", res.RowsAffected)
	return res.RowsAffected, nil
}

// SumExpenses totals every expense of userID in categoryID.
func (r *Repository) SumExpenses(ctx context.Context, userID, categoryID int64) (core.Money, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&Transaction{}).
		Select("COALESCE(SUM(amount_cents), 0)").
		Where("user_id = ? AND category_id = ? AND kind = ?", userID, categoryID, string(core.Expense)).
		Scan(&total).Error; err != nil {
		return core.Money{}, fmt.Errorf("sum expenses: %w", err)
	}
	return core.Money{Cents: total}, nil
}

// UpsertBudget sets the ceiling for (userID, categoryID), overwriting any
// previous value instead of adding a second row.
func (r *Repository) UpsertBudget(ctx context.Context, userID, categoryID int64, ceiling core.Money) (core.Budget, error) {
	now := time.Now().UTC()
	row := Budget{
		UserID:      userID,
		CategoryID:  categoryID,
		AmountCents: ceiling.Cents,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := r.db.WithContext(ctx).Omit(clause.Associations).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "category_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"amount_cents", "updated_at"}),
	}).Create(&row).Error; err != nil {
		return core.Budget{}, fmt.Errorf("upsert budget: %w", err)
	}

	return r.FindBudget(ctx, userID, categoryID)
}

func (r *Repository) FindBudget(ctx context.Context, userID, categoryID int64) (core.Budget, error) {
	var row Budget
	err := r.db.WithContext(ctx).
		Preload("Category").
		Where("user_id = ? AND category_id = ?", userID, categoryID).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return core.Budget{}, core.ErrBudgetNotFound
	}
	if err != nil {
		return core.Budget{}, fmt.Errorf("find budget: %w", err)
	}
	return row.toCore(), nil
}

func (r *Repository) ListBudgets(ctx context.Context, userID int64) ([]core.Budget, error) {
	var rows []Budget
	if err := r.db.WithContext(ctx).
		Preload("Category").
		Joins("JOIN categories ON categories.id = budgets.category_id").
		Where("budgets.user_id = ?", userID).
		Order("categories.name").
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list budgets: %w", err)
	}

	budgets := make([]core.Budget, len(rows))
	for i, b := range rows {
		budgets[i] = b.toCore()
	}
	return budgets, nil
}

func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var se *sqlite.Error
	if errors.As(err, &se) {
		switch se.Code() {
		case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
			return true
		}
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
