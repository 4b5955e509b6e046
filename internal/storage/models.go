package storage

import (
	"time"

	"finman/internal/core"
)

// Row types mirror the migrated schema; GORM never creates or alters tables.

type User struct {
	ID           int64  `gorm:"primaryKey"`
	Name         string `gorm:"size:100;not null"`
	Email        string `gorm:"size:100;uniqueIndex;not null"`
	PasswordHash string `gorm:"size:255;not null"`
	CreatedAt    time.Time
}

func (User) TableName() string { return "users" }

type Category struct {
	ID        int64  `gorm:"primaryKey"`
	Name      string `gorm:"size:50;uniqueIndex;not null"`
	CreatedAt time.Time
}

func (Category) TableName() string { return "categories" }

type Transaction struct {
	ID          int64    `gorm:"primaryKey"`
	UserID      int64    `gorm:"not null;index"`
	CategoryID  int64    `gorm:"not null"`
	Category    Category `gorm:"foreignKey:CategoryID"`
	Description string   `gorm:"not null"`
	AmountCents int64    `gorm:"not null"`
	Kind        string   `gorm:"size:10;not null"`
	Timestamp   time.Time
	UpdatedAt   time.Time
}

func (Transaction) TableName() string { return "transactions" }

type Budget struct {
	ID          int64    `gorm:"primaryKey"`
	UserID      int64    `gorm:"not null"`
	CategoryID  int64    `gorm:"not null"`
	Category    Category `gorm:"foreignKey:CategoryID"`
	AmountCents int64    `gorm:"not null"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (Budget) TableName() string { return "budgets" }

func (u User) toCore() core.User {
	return core.User{
		ID:           u.ID,
		Name:         u.Name,
		Email:        u.Email,
		PasswordHash: u.PasswordHash,
		CreatedAt:    u.CreatedAt,
	}
}

func (c Category) toCore() core.Category {
	return core.Category{ID: c.ID, Name: c.Name}
}

func (t Transaction) toCore() core.Transaction {
	return core.Transaction{
		ID:          t.ID,
		UserID:      t.UserID,
		CategoryID:  t.CategoryID,
		Category:    t.Category.Name,
		Description: t.Description,
		Amount:      core.Money{Cents: t.AmountCents},
		Kind:        core.Kind(t.Kind),
		Timestamp:   t.Timestamp,
	}
}

func (b Budget) toCore() core.Budget {
	return core.Budget{
		ID:         b.ID,
		UserID:     b.UserID,
		CategoryID: b.CategoryID,
		Category:   b.Category.Name,
		Ceiling:    core.Money{Cents: b.AmountCents},
		UpdatedAt:  b.UpdatedAt,
	}
}
