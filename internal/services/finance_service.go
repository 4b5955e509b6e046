package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"finman/internal/ai"
	"finman/internal/amqp"
	"finman/internal/auth"
	"finman/internal/budget"
	"finman/internal/core"
	"finman/internal/log"
	"finman/internal/session"
	"finman/internal/storage"
)

// Categorizer labels a transaction description. It never fails.
type Categorizer interface {
	Categorize(ctx context.Context, description string) string
}

// Advisor produces advice and scenario analysis over a transaction history.
type Advisor interface {
	Advise(ctx context.Context, txns []core.Transaction) ai.Advice
	Simulate(ctx context.Context, txns []core.Transaction, scenario string) (ai.Simulation, error)
}

// AlertPublisher forwards exceeded budgets to the notifier.
type AlertPublisher interface {
	PublishBudgetAlert(ctx context.Context, msg *amqp.BudgetAlertMessage) error
}

// AddResult is a recorded transaction and, for expenses with a budget, the
// headroom left after it.
type AddResult struct {
	Transaction core.Transaction
	Headroom    *budget.Headroom
}

// BudgetStatus pairs a budget with its current spending.
type BudgetStatus struct {
	Budget   core.Budget
	Headroom budget.Headroom
}

// FinanceService orchestrates the ledger operations of the logged-in user
// across storage, the AI adapters and the alert queue.
type FinanceService struct {
	store       *storage.Store
	sessions    session.Holder
	creds       *auth.Credentials
	categorizer Categorizer
	advisor     Advisor
	alerts      AlertPublisher
	logger      *log.Logger
}

// NewFinanceService wires the service. alerts may be nil, in which case
// budget alerts are only reported to the caller.
func NewFinanceService(
	store *storage.Store,
	sessions session.Holder,
	creds *auth.Credentials,
	categorizer Categorizer,
	advisor Advisor,
	alerts AlertPublisher,
	logger *log.Logger,
) *FinanceService {
	return &FinanceService{
		store:       store,
		sessions:    sessions,
		creds:       creds,
		categorizer: categorizer,
		advisor:     advisor,
		alerts:      alerts,
		logger:      logger.WithComponent(log.ComponentFinance),
	}
}

// Signup registers a user and logs them in.
func (s *FinanceService) Signup(ctx context.Context, name, email, password string) (core.User, error) {
	var u core.User
	err := s.store.Transact(ctx, func(r *storage.Repository) error {
		var err error
		u, err = s.creds.Register(ctx, r, name, email, password)
		return err
	})
	if err != nil {
		return core.User{}, fmt.Errorf("signup: %w", err)
	}

	if err := s.sessions.Set(u.Email); err != nil {
		return core.User{}, fmt.Errorf("start session: %w", err)
	}

	s.logger.InfoContext(ctx, "User signed up",
		log.NewFields().WithOperation(log.OpSignup).WithUser(u.ID, u.Email).ToSlice()...)
	return u, nil
}

func (s *FinanceService) Login(ctx context.Context, email, password string) (core.User, error) {
	var u core.User
	err := s.store.Transact(ctx, func(r *storage.Repository) error {
		var err error
		u, err = s.creds.Authenticate(ctx, r, email, password)
		return err
	})
	if err != nil {
		if errors.Is(err, core.ErrInvalidCredentials) {
			s.logger.WarnContext(ctx, "Login rejected",
				log.NewFields().WithOperation(log.OpLogin).WithError(err, log.ErrorTypeAuth).ToSlice()...)
		}
		return core.User{}, fmt.Errorf("login: %w", err)
	}

	if err := s.sessions.Set(u.Email); err != nil {
		return core.User{}, fmt.Errorf("start session: %w", err)
	}
	return u, nil
}

// Logout ends the session and returns the email that was logged in.
func (s *FinanceService) Logout(ctx context.Context) (string, error) {
	email, err := s.currentEmail()
	if err != nil {
		return "", err
	}
	if err := s.sessions.Clear(); err != nil {
		return "", fmt.Errorf("clear session: %w", err)
	}

	s.logger.InfoContext(ctx, "User logged out",
		log.FieldOperation, log.OpLogout,
		log.FieldEmail, email)
	return email, nil
}

func (s *FinanceService) Whoami(ctx context.Context) (core.User, error) {
	var u core.User
	err := s.store.Transact(ctx, func(r *storage.Repository) error {
		var err error
		u, err = s.currentUser(ctx, r)
		return err
	})
	return u, err
}

// AddTransaction categorizes the description, stores the transaction and,
// for expenses, reevaluates the category budget in the same unit of work.
func (s *FinanceService) AddTransaction(ctx context.Context, description string, amount core.Money, kind core.Kind) (AddResult, error) {
	txn := core.Transaction{Description: description, Amount: amount, Kind: kind}
	if err := txn.Validate(); err != nil {
		return AddResult{}, err
	}

	// Resolve the user before spending a model call on the description.
	if _, err := s.Whoami(ctx); err != nil {
		return AddResult{}, err
	}

	label := s.categorizer.Categorize(ctx, description)

	var (
		result AddResult
		user   core.User
	)
	err := s.store.Transact(ctx, func(r *storage.Repository) error {
		var err error
		if user, err = s.currentUser(ctx, r); err != nil {
			return err
		}
		cat, err := r.GetOrCreateCategory(ctx, label)
		if err != nil {
			return err
		}

		txn.UserID = user.ID
		txn.CategoryID = cat.ID
		if txn, err = r.CreateTransaction(ctx, txn); err != nil {
			return err
		}
		txn.Category = cat.Name
		result.Transaction = txn

		if txn.Kind == core.Expense {
			h, found, err := budget.Evaluate(ctx, r, user.ID, cat.ID)
			if err != nil {
				return err
			}
			if found {
				result.Headroom = &h
			}
		}
		return nil
	})
	if err != nil {
		return AddResult{}, fmt.Errorf("add transaction: %w", err)
	}

	s.logger.InfoContext(ctx, "Transaction recorded",
		log.NewFields().
			WithOperation(log.OpAddTxn).
			WithUser(user.ID, user.Email).
			WithTransaction(txn.ID, txn.Category, string(txn.Kind), txn.Amount.Cents).
			ToSlice()...)

	s.publishIfExceeded(ctx, user, txn, result.Headroom)
	return result, nil
}

// SetBudget creates or replaces the ceiling for a category.
func (s *FinanceService) SetBudget(ctx context.Context, category string, ceiling core.Money) (core.Budget, error) {
	if core.NormalizeCategoryName(category) == "" {
		return core.Budget{}, core.ErrEmptyCategory
	}
	if err := ceiling.Validate(); err != nil {
		return core.Budget{}, err
	}

	var b core.Budget
	err := s.store.Transact(ctx, func(r *storage.Repository) error {
		user, err := s.currentUser(ctx, r)
		if err != nil {
			return err
		}
		cat, err := r.GetOrCreateCategory(ctx, category)
		if err != nil {
			return err
		}
		b, err = r.UpsertBudget(ctx, user.ID, cat.ID, ceiling)
		return err
	})
	if err != nil {
		return core.Budget{}, fmt.Errorf("set budget: %w", err)
	}

	s.logger.InfoContext(ctx, "Budget set",
		log.FieldOperation, log.OpSetBudget,
		log.FieldUserID, b.UserID,
		log.FieldCategory, b.Category,
		log.FieldCeiling, b.Ceiling.Cents)
	return b, nil
}

func (s *FinanceService) ListTransactions(ctx context.Context) ([]core.Transaction, error) {
	var txns []core.Transaction
	err := s.store.Transact(ctx, func(r *storage.Repository) error {
		user, err := s.currentUser(ctx, r)
		if err != nil {
			return err
		}
		txns, err = r.ListTransactions(ctx, user.ID)
		return err
	})
	return txns, err
}

// ListBudgets returns every budget of the user with spent and remaining amounts.
func (s *FinanceService) ListBudgets(ctx context.Context) ([]BudgetStatus, error) {
	var statuses []BudgetStatus
	err := s.store.Transact(ctx, func(r *storage.Repository) error {
		user, err := s.currentUser(ctx, r)
		if err != nil {
			return err
		}
		budgets, err := r.ListBudgets(ctx, user.ID)
		if err != nil {
			return err
		}

		statuses = make([]BudgetStatus, 0, len(budgets))
		for _, b := range budgets {
			spent, err := r.SumExpenses(ctx, user.ID, b.CategoryID)
			if err != nil {
				return err
			}
			statuses = append(statuses, BudgetStatus{
				Budget:   b,
				Headroom: budget.Compute(b.Category, b.Ceiling, spent),
			})
		}
		return nil
	})
	return statuses, err
}

// ListCategories returns the shared category registry; no login needed.
func (s *FinanceService) ListCategories(ctx context.Context) ([]core.Category, error) {
	var cats []core.Category
	err := s.store.Transact(ctx, func(r *storage.Repository) error {
		var err error
		cats, err = r.ListCategories(ctx)
		return err
	})
	return cats, err
}

// DeleteTransactions removes all of the current user's transactions.
// Categories and budgets stay.
func (s *FinanceService) DeleteTransactions(ctx context.Context) (int64, error) {
	var (
		n    int64
		user core.User
	)
	err := s.store.Transact(ctx, func(r *storage.Repository) error {
		var err error
		if user, err = s.currentUser(ctx, r); err != nil {
			return err
		}
		n, err = r.DeleteTransactions(ctx, user.ID)
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("delete transactions: %w", err)
	}

	s.logger.InfoContext(ctx, "Transactions deleted",
		log.FieldOperation, log.OpDeleteTxns,
		log.FieldUserID, user.ID,
		log.FieldCount, n)
	return n, nil
}

// UpdateTransaction edits amount, kind or category of one of the user's
// transactions. The timestamp is kept.
func (s *FinanceService) UpdateTransaction(ctx context.Context, id int64, upd core.TransactionUpdate) (AddResult, error) {
	if err := upd.Validate(); err != nil {
		return AddResult{}, err
	}

	var (
		result AddResult
		user   core.User
	)
	err := s.store.Transact(ctx, func(r *storage.Repository) error {
		var err error
		if user, err = s.currentUser(ctx, r); err != nil {
			return err
		}
		txn, err := r.GetTransaction(ctx, user.ID, id)
		if err != nil {
			return err
		}

		if upd.Amount != nil {
			txn.Amount = *upd.Amount
		}
		if upd.Kind != nil {
			txn.Kind = *upd.Kind
		}
		if upd.Category != nil {
			cat, err := r.GetOrCreateCategory(ctx, *upd.Category)
			if err != nil {
				return err
			}
			txn.CategoryID = cat.ID
			txn.Category = cat.Name
		}

		if err := r.UpdateTransaction(ctx, txn); err != nil {
			return err
		}
		result.Transaction = txn

		if txn.Kind == core.Expense {
			h, found, err := budget.Evaluate(ctx, r, user.ID, txn.CategoryID)
			if err != nil {
				return err
			}
			if found {
				result.Headroom = &h
			}
		}
		return nil
	})
	if err != nil {
		return AddResult{}, fmt.Errorf("update transaction: %w", err)
	}

	txn := result.Transaction
	s.logger.InfoContext(ctx, "Transaction updated",
		log.NewFields().
			WithOperation(log.OpUpdateTxn).
			WithUser(user.ID, user.Email).
			WithTransaction(txn.ID, txn.Category, string(txn.Kind), txn.Amount.Cents).
			ToSlice()...)

	s.publishIfExceeded(ctx, user, txn, result.Headroom)
	return result, nil
}

// Advice asks the advisor about the user's full history.
func (s *FinanceService) Advice(ctx context.Context) (ai.Advice, error) {
	txns, err := s.ListTransactions(ctx)
	if err != nil {
		return ai.Advice{}, err
	}
	return s.advisor.Advise(ctx, txns), nil
}

// Simulate analyzes a what-if scenario against the user's history.
func (s *FinanceService) Simulate(ctx context.Context, scenario string) (ai.Simulation, error) {
	if strings.TrimSpace(scenario) == "" {
		return ai.Simulation{}, core.ErrEmptyScenario
	}
	txns, err := s.ListTransactions(ctx)
	if err != nil {
		return ai.Simulation{}, err
	}
	return s.advisor.Simulate(ctx, txns, scenario)
}

// Close releases the store and the alert publisher when it holds a connection.
func (s *FinanceService) Close() error {
	var errs []error
	if c, ok := s.alerts.(io.Closer); ok {
		if err := c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("amqp: %w", err))
		}
	}
	if err := s.store.Close(); err != nil {
		errs = append(errs, fmt.Errorf("storage: %w", err))
	}
	return errors.Join(errs...)
}

func (s *FinanceService) currentEmail() (string, error) {
	email, err := s.sessions.Current()
	if errors.Is(err, session.ErrNoSession) {
		return "", core.ErrNotLoggedIn
	}
	if err != nil {
		return "", fmt.Errorf("read session: %w", err)
	}
	return email, nil
}

func (s *FinanceService) currentUser(ctx context.Context, r *storage.Repository) (core.User, error) {
	email, err := s.currentEmail()
	if err != nil {
		return core.User{}, err
	}
	return r.FindUserByEmail(ctx, email)
}

// publishIfExceeded runs after commit. Failures are logged, never returned.
func (s *FinanceService) publishIfExceeded(ctx context.Context, user core.User, txn core.Transaction, h *budget.Headroom) {
	if s.alerts == nil || h == nil || !h.Exceeded() {
		return
	}

	msg := amqp.NewBudgetAlertMessage(user.ID, user.Email, h.Category, txn.ID, h.Ceiling.Cents, h.Spent.Cents)
	if err := s.alerts.PublishBudgetAlert(ctx, msg); err != nil {
		s.logger.ErrorContext(ctx, "Failed to publish budget alert",
			log.NewFields().
				WithOperation(log.OpPublish).
				WithUser(user.ID, user.Email).
				WithError(err, log.ErrorTypeNetwork).
				ToSlice()...)
	}
}
