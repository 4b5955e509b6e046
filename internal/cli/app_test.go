package cli

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/fatih/color"

	"finman/internal/ai"
	"finman/internal/budget"
	"finman/internal/core"
	"finman/internal/log"
	"finman/internal/services"
)

func init() {
	color.NoColor = true
}

type fakeFinance struct {
	user      core.User
	loggedIn  bool
	err       error
	added     []core.Transaction
	headroom  *budget.Headroom
	update    core.TransactionUpdate
	updateID  int64
	deleted   bool
	scenario  string
	advice    ai.Advice
	simulated ai.Simulation
	closed    bool
}

func (f *fakeFinance) Signup(_ context.Context, name, email, _ string) (core.User, error) {
	if f.err != nil {
		return core.User{}, f.err
	}
	f.user, f.loggedIn = core.User{ID: 1, Name: name, Email: email}, true
	return f.user, nil
}

func (f *fakeFinance) Login(_ context.Context, email, password string) (core.User, error) {
	if email != f.user.Email || password != "password123" {
		return core.User{}, core.ErrInvalidCredentials
	}
	f.loggedIn = true
	return f.user, nil
}

func (f *fakeFinance) Logout(context.Context) (string, error) {
	if !f.loggedIn {
		return "", core.ErrNotLoggedIn
	}
	f.loggedIn = false
	return f.user.Email, nil
}

func (f *fakeFinance) Whoami(context.Context) (core.User, error) {
	if !f.loggedIn {
		return core.User{}, core.ErrNotLoggedIn
	}
	return f.user, nil
}

func (f *fakeFinance) AddTransaction(_ context.Context, description string, amount core.Money, kind core.Kind) (services.AddResult, error) {
	if !f.loggedIn {
		return services.AddResult{}, core.ErrNotLoggedIn
	}
	t := core.Transaction{ID: int64(len(f.added) + 1), Description: description, Amount: amount, Kind: kind, Category: "Food"}
	f.added = append(f.added, t)
	return services.AddResult{Transaction: t, Headroom: f.headroom}, nil
}

func (f *fakeFinance) SetBudget(_ context.Context, category string, ceiling core.Money) (core.Budget, error) {
	return core.Budget{Category: core.NormalizeCategoryName(category), Ceiling: ceiling}, nil
}

func (f *fakeFinance) ListTransactions(context.Context) ([]core.Transaction, error) {
	return f.added, nil
}

func (f *fakeFinance) ListBudgets(context.Context) ([]services.BudgetStatus, error) {
	h := budget.Compute("Food", core.Money{Cents: 10000}, core.Money{Cents: 12550})
	return []services.BudgetStatus{{Headroom: h}}, nil
}

func (f *fakeFinance) ListCategories(context.Context) ([]core.Category, error) {
	return []core.Category{{ID: 1, Name: "Food"}, {ID: 2, Name: "Salary"}}, nil
}

func (f *fakeFinance) DeleteTransactions(context.Context) (int64, error) {
	f.deleted = true
	return int64(len(f.added)), nil
}

func (f *fakeFinance) UpdateTransaction(_ context.Context, id int64, upd core.TransactionUpdate) (services.AddResult, error) {
	if err := upd.Validate(); err != nil {
		return services.AddResult{}, err
	}
	f.updateID, f.update = id, upd
	t := core.Transaction{ID: id, Amount: core.Money{Cents: 100}, Kind: core.Expense, Category: "Food"}
	if upd.Amount != nil {
		t.Amount = *upd.Amount
	}
	return services.AddResult{Transaction: t}, nil
}

func (f *fakeFinance) Advice(context.Context) (ai.Advice, error) {
	return f.advice, nil
}

func (f *fakeFinance) Simulate(_ context.Context, scenario string) (ai.Simulation, error) {
	f.scenario = scenario
	return f.simulated, nil
}

func (f *fakeFinance) Close() error {
	f.closed = true
	return nil
}

type fakeMigrator struct {
	version uint
	downs   int
}

func (m *fakeMigrator) Up() error { m.version = 2; return nil }
func (m *fakeMigrator) Down(steps int) error {
	m.downs += steps
	m.version -= uint(steps)
	return nil
}
func (m *fakeMigrator) Version() (uint, bool, error) { return m.version, false, nil }
func (m *fakeMigrator) Close() error                 { return nil }

type run struct {
	code   int
	stdout string
	stderr string
}

func runApp(t *testing.T, f *fakeFinance, stdin string, args ...string) run {
	t.Helper()
	var out, errOut bytes.Buffer
	app := NewApp(strings.NewReader(stdin), &out, &errOut, log.Discard())
	app.OpenFinance = func(context.Context) (Finance, error) { return f, nil }
	app.OpenMigrator = func() (Migrator, error) { return &fakeMigrator{version: 2}, nil }
	code := app.Run(context.Background(), args)
	return run{code: code, stdout: out.String(), stderr: errOut.String()}
}

func TestSignup_PromptsForMissingValues(t *testing.T) {
	f := &fakeFinance{}
	r := runApp(t, f, "Ada\nada@example.com\npassword123\npassword123\n", "signup")

	if r.code != 0 {
		t.Fatalf("exit code = %d, stderr %q", r.code, r.stderr)
	}
	for _, prompt := range []string{"Your name: ", "Your email: ", "Your password: ", "Repeat for confirmation: "} {
		if !strings.Contains(r.stdout, prompt) {
			t.Errorf("missing prompt %q in %q", prompt, r.stdout)
		}
	}
	if !strings.Contains(r.stdout, "User registered and logged in successfully as Ada!") {
		t.Errorf("stdout = %q", r.stdout)
	}
	if !f.closed {
		t.Error("finance was not closed")
	}
}

func TestSignup_ConfirmationMismatch(t *testing.T) {
	r := runApp(t, &fakeFinance{}, "password123\ndifferent1\n", "signup", "-name", "Ada", "-email", "ada@example.com")
	if r.code != 1 || !strings.Contains(r.stderr, "do not match") {
		t.Fatalf("run = %+v", r)
	}
}

func TestFriendlyErrors(t *testing.T) {
	tests := []struct {
		name string
		f    *fakeFinance
		args []string
		want string
	}{
		{
			name: "duplicate email",
			f:    &fakeFinance{err: core.ErrDuplicateEmail},
			args: []string{"signup", "-name", "Ada", "-email", "ada@example.com", "-password", "password123"},
			want: "Email already exists. Please try a different email.",
		},
		{
			name: "bad login",
			f:    &fakeFinance{user: core.User{Email: "ada@example.com"}},
			args: []string{"login", "-email", "ada@example.com", "-password", "nope"},
			want: "Invalid email or password.",
		},
		{
			name: "add without session",
			f:    &fakeFinance{},
			args: []string{"add-transaction", "-description", "Lunch", "-amount", "10", "-type", "expense"},
			want: "You must be logged in to add a transaction.",
		},
		{
			name: "logout without session",
			f:    &fakeFinance{},
			args: []string{"logout"},
			want: "You are not logged in.",
		},
		{
			name: "bad amount",
			f:    &fakeFinance{loggedIn: true},
			args: []string{"add-transaction", "-description", "Lunch", "-amount", "-5", "-type", "expense"},
			want: "Invalid amount.",
		},
		{
			name: "bad type",
			f:    &fakeFinance{loggedIn: true},
			args: []string{"add-transaction", "-description", "Lunch", "-amount", "5", "-type", "gift"},
			want: "Transaction type must be income or expense.",
		},
		{
			name: "empty update",
			f:    &fakeFinance{loggedIn: true},
			args: []string{"update-transaction", "-id", "3"},
			want: "Nothing to update.",
		},
		{
			name: "unexpected",
			f:    &fakeFinance{err: errors.New("disk full")},
			args: []string{"signup", "-name", "Ada", "-email", "ada@example.com", "-password", "password123"},
			want: "An error occurred: disk full",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := runApp(t, tt.f, "", tt.args...)
			if r.code != 1 {
				t.Fatalf("exit code = %d, want 1", r.code)
			}
			if !strings.Contains(r.stderr, tt.want) {
				t.Fatalf("stderr = %q, want %q", r.stderr, tt.want)
			}
		})
	}
}

func TestAddTransaction_ShowsBudgetAlert(t *testing.T) {
	h := budget.Compute("Food", core.Money{Cents: 10000}, core.Money{Cents: 12550})
	f := &fakeFinance{loggedIn: true, headroom: &h}

	r := runApp(t, f, "", "add-transaction", "-description", "Lunch", "-amount", "125,50", "-type", "Expense")
	if r.code != 0 {
		t.Fatalf("exit code = %d, stderr %q", r.code, r.stderr)
	}
	if !strings.Contains(r.stdout, "Transaction added under category: Food") {
		t.Errorf("stdout = %q", r.stdout)
	}
	if !strings.Contains(r.stdout, "Alert: you have exceeded your budget for Food by 25.50.") {
		t.Errorf("stdout = %q", r.stdout)
	}
	if got := f.added[0]; got.Amount.Cents != 12550 || got.Kind != core.Expense {
		t.Errorf("added = %+v", got)
	}
}

func TestListings(t *testing.T) {
	f := &fakeFinance{loggedIn: true, added: []core.Transaction{{
		ID: 7, Category: "Food", Amount: core.Money{Cents: 10000}, Kind: core.Expense,
		Description: "Lunch", Timestamp: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
	}}}

	r := runApp(t, f, "", "list-transactions")
	if r.code != 0 || !strings.Contains(r.stdout, "AMOUNT (Ksh)") || !strings.Contains(r.stdout, "100.00") {
		t.Fatalf("list-transactions = %+v", r)
	}

	r = runApp(t, f, "", "list-budgets")
	if r.code != 0 || !strings.Contains(r.stdout, "-25.50") {
		t.Fatalf("list-budgets = %+v", r)
	}

	r = runApp(t, f, "", "list-categories")
	if r.stdout != "Food\nSalary\n" {
		t.Fatalf("list-categories = %q", r.stdout)
	}

	r = runApp(t, &fakeFinance{loggedIn: true}, "", "list-transactions")
	if !strings.Contains(r.stdout, "No transactions found.") {
		t.Fatalf("empty list = %q", r.stdout)
	}
}

func TestDeleteTransactions_Confirmation(t *testing.T) {
	f := &fakeFinance{loggedIn: true}
	r := runApp(t, f, "n\n", "delete-transactions")
	if f.deleted || !strings.Contains(r.stdout, "Aborted.") {
		t.Fatalf("declined delete ran: %+v", r)
	}

	r = runApp(t, f, "", "delete-transactions", "-yes")
	if !f.deleted || !strings.Contains(r.stdout, "Deleted 0 transaction(s).") {
		t.Fatalf("delete -yes = %+v", r)
	}
}

func TestUpdateTransaction_OnlySetFlags(t *testing.T) {
	f := &fakeFinance{loggedIn: true}
	r := runApp(t, f, "", "update-transaction", "-id", "4", "-amount", "12.5", "-category", "transport")
	if r.code != 0 {
		t.Fatalf("exit code = %d, stderr %q", r.code, r.stderr)
	}
	if f.updateID != 4 || f.update.Amount == nil || f.update.Amount.Cents != 1250 {
		t.Fatalf("update = %d %+v", f.updateID, f.update)
	}
	if f.update.Kind != nil {
		t.Fatal("kind set although -type was not passed")
	}
	if f.update.Category == nil || *f.update.Category != "transport" {
		t.Fatalf("category = %v", f.update.Category)
	}
}

func TestAdviceAndSimulate(t *testing.T) {
	f := &fakeFinance{loggedIn: true, advice: ai.Advice{Status: ai.StatusReady, Analysis: "Fine.", Tips: []string{"Save", "Cook"}}}
	r := runApp(t, f, "", "advice")
	want := "Financial Analysis:\nFine.\nAdvice:\n- Save\n- Cook\n"
	if r.stdout != want {
		t.Fatalf("advice stdout = %q, want %q", r.stdout, want)
	}

	f.advice = ai.Advice{Status: ai.StatusUnavailable}
	if r := runApp(t, f, "", "advice"); r.stdout != ai.NoAdviceMessage+"\n" {
		t.Fatalf("unavailable advice = %q", r.stdout)
	}

	f.simulated = ai.Simulation{Status: ai.StatusReady, Analysis: "Now.", Impact: "Less savings."}
	r = runApp(t, f, "", "simulate", "rent", "doubles")
	if f.scenario != "rent doubles" || !strings.Contains(r.stdout, "Impact:\nLess savings.") {
		t.Fatalf("simulate = %+v, scenario %q", r, f.scenario)
	}
}

func TestMigrate(t *testing.T) {
	r := runApp(t, &fakeFinance{}, "", "migrate", "down")
	if r.code != 0 || r.stdout != "Schema version: 1\n" {
		t.Fatalf("migrate down = %+v", r)
	}
	r = runApp(t, &fakeFinance{}, "", "migrate", "sideways")
	if r.code != 1 || !strings.Contains(r.stderr, "Unknown migrate action") {
		t.Fatalf("migrate sideways = %+v", r)
	}
}

func TestUsage(t *testing.T) {
	if r := runApp(t, &fakeFinance{}, "", "help"); r.code != 0 || !strings.Contains(r.stdout, "add-transaction") {
		t.Fatalf("help = %+v", r)
	}
	if r := runApp(t, &fakeFinance{}, "", "bogus"); r.code != 2 {
		t.Fatalf("unknown command exit = %d", r.code)
	}
	if r := runApp(t, &fakeFinance{}, "", "list-budgets", "-nope"); r.code != 2 {
		t.Fatalf("bad flag exit = %d", r.code)
	}
}
