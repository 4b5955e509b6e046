package core

import (
	"errors"
	"net/mail"
	"strings"
	"time"
)

const (
	Income  Kind = "income"
	Expense Kind = "expense"
)

// UncategorizedLabel is the category used when no label can be derived.
const UncategorizedLabel = "Uncategorized"

type (
	// Kind tells whether a transaction moves money in or out.
	Kind string

	User struct {
		ID           int64
		Name         string
		Email        string
		PasswordHash string
		CreatedAt    time.Time
	}

	Category struct {
		ID   int64
		Name string
	}

	Transaction struct {
		ID          int64
		UserID      int64
		CategoryID  int64
		Category    string // Category name, filled on reads
		Description string
		Amount      Money
		Kind        Kind
		Timestamp   time.Time
	}

	Budget struct {
		ID         int64
		UserID     int64
		CategoryID int64
		Category   string
		Ceiling    Money
		UpdatedAt  time.Time
	}

	// TransactionUpdate carries the optional fields of an edit. Nil means unchanged.
	TransactionUpdate struct {
		Amount   *Money
		Kind     *Kind
		Category *string
	}
)

var (
	ErrDuplicateEmail      = errors.New("email already registered")
	ErrInvalidCredentials  = errors.New("invalid email or password")
	ErrNotLoggedIn         = errors.New("not logged in")
	ErrUserNotFound        = errors.New("user not found")
	ErrTransactionNotFound = errors.New("transaction not found")
	ErrBudgetNotFound      = errors.New("budget not found")
	ErrInvalidAmount       = errors.New("invalid amount")
	ErrInvalidKind         = errors.New("invalid transaction kind")
	ErrEmptyDescription    = errors.New("empty description")
	ErrEmptyName           = errors.New("empty name")
	ErrInvalidEmail        = errors.New("invalid email")
	ErrWeakPassword        = errors.New("password must be at least 8 characters")
	ErrEmptyCategory       = errors.New("empty category")
	ErrNothingToUpdate     = errors.New("nothing to update")
	ErrEmptyScenario       = errors.New("empty scenario")
)

// MinPasswordLength is the shortest password accepted at signup.
const MinPasswordLength = 8

// ParseKind accepts "income" or "expense" in any case.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(strings.ToLower(strings.TrimSpace(s))); k {
	case Income, Expense:
		return k, nil
	default:
		return "", ErrInvalidKind
	}
}

func (k Kind) Validate() error {
	if k != Income && k != Expense {
		return ErrInvalidKind
	}
	return nil
}

// Label returns the capitalized kind, e.g. "Income".
func (k Kind) Label() string {
	if k == "" {
		return ""
	}
	return strings.ToUpper(string(k[:1])) + string(k[1:])
}

// NormalizeEmail trims and lower-cases an address so lookups are case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidateSignup checks the fields a new account needs.
func ValidateSignup(name, email, password string) error {
	if strings.TrimSpace(name) == "" {
		return ErrEmptyName
	}
	if len(name) > 100 {
		return errors.New("name too long (max 100 characters)")
	}
	if err := ValidateEmail(email); err != nil {
		return err
	}
	if len(password) < MinPasswordLength {
		return ErrWeakPassword
	}
	return nil
}

func ValidateEmail(email string) error {
	email = strings.TrimSpace(email)
	if email == "" || len(email) > 100 {
		return ErrInvalidEmail
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return ErrInvalidEmail
	}
	return nil
}

func (t Transaction) Validate() error {
	if len(strings.TrimSpace(t.Description)) == 0 {
		return ErrEmptyDescription
	}
	if len(t.Description) > 200 {
		return errors.New("description too long (max 200 characters)")
	}
	if err := t.Amount.Validate(); err != nil {
		return err
	}
	return t.Kind.Validate()
}

// Empty reports whether the update changes nothing.
func (u TransactionUpdate) Empty() bool {
	return u.Amount == nil && u.Kind == nil && u.Category == nil
}

func (u TransactionUpdate) Validate() error {
	if u.Empty() {
		return ErrNothingToUpdate
	}
	if u.Amount != nil {
		if err := u.Amount.Validate(); err != nil {
			return err
		}
	}
	if u.Kind != nil {
		if err := u.Kind.Validate(); err != nil {
			return err
		}
	}
	if u.Category != nil && NormalizeCategoryName(*u.Category) == "" {
		return ErrEmptyCategory
	}
	return nil
}
