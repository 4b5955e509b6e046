package cli

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"sort"
	"strings"

	"finman/internal/ai"
	"finman/internal/core"
	"finman/internal/log"
	"finman/internal/services"
)

// Finance is the service surface the commands drive.
type Finance interface {
	Signup(ctx context.Context, name, email, password string) (core.User, error)
	Login(ctx context.Context, email, password string) (core.User, error)
	Logout(ctx context.Context) (string, error)
	Whoami(ctx context.Context) (core.User, error)
	AddTransaction(ctx context.Context, description string, amount core.Money, kind core.Kind) (services.AddResult, error)
	SetBudget(ctx context.Context, category string, ceiling core.Money) (core.Budget, error)
	ListTransactions(ctx context.Context) ([]core.Transaction, error)
	ListBudgets(ctx context.Context) ([]services.BudgetStatus, error)
	ListCategories(ctx context.Context) ([]core.Category, error)
	DeleteTransactions(ctx context.Context) (int64, error)
	UpdateTransaction(ctx context.Context, id int64, upd core.TransactionUpdate) (services.AddResult, error)
	Advice(ctx context.Context) (ai.Advice, error)
	Simulate(ctx context.Context, scenario string) (ai.Simulation, error)
	Close() error
}

// Migrator drives schema versions for the migrate command.
type Migrator interface {
	Up() error
	Down(steps int) error
	Version() (uint, bool, error)
	Close() error
}

// App runs one finman command per invocation.
type App struct {
	// OpenFinance and OpenMigrator are called lazily so migrate never opens
	// (and upgrades) the store through the service.
	OpenFinance  func(ctx context.Context) (Finance, error)
	OpenMigrator func() (Migrator, error)

	// ReadPassword reads a secret without echo. Nil reads a plain line from In.
	ReadPassword func(prompt string) (string, error)

	Currency string
	Out      io.Writer
	Err      io.Writer

	in     *bufio.Reader
	logger *log.Logger
}

func NewApp(in io.Reader, out, errOut io.Writer, logger *log.Logger) *App {
	return &App{
		Currency: "Ksh",
		Out:      out,
		Err:      errOut,
		in:       bufio.NewReader(in),
		logger:   logger.WithComponent(log.ComponentCLI),
	}
}

type command struct {
	usage string
	// needs is the phrase used when the command runs without a session,
	// e.g. "You must be logged in to add a transaction."
	needs string
	run   func(ctx context.Context, a *App, f Finance, args []string) error
}

var commands = map[string]command{
	"signup":              {usage: "Register a new user and log in", run: runSignup},
	"login":               {usage: "Log in as an existing user", run: runLogin},
	"logout":              {usage: "Log out the current user", run: runLogout},
	"whoami":              {usage: "Show the logged-in user", needs: "see your account", run: runWhoami},
	"add-transaction":     {usage: "Record an income or expense", needs: "add a transaction", run: runAddTransaction},
	"update-transaction":  {usage: "Change amount, type or category of a transaction", needs: "update a transaction", run: runUpdateTransaction},
	"list-transactions":   {usage: "List your transactions", needs: "list transactions", run: runListTransactions},
	"delete-transactions": {usage: "Delete all your transactions", needs: "delete transactions", run: runDeleteTransactions},
	"set-budget":          {usage: "Set the spending ceiling for a category", needs: "set a budget", run: runSetBudget},
	"list-budgets":        {usage: "List your budgets with spending so far", needs: "list budgets", run: runListBudgets},
	"list-categories":     {usage: "List known categories", run: runListCategories},
	"advice":              {usage: "Get financial advice on your transactions", needs: "get financial advice", run: runAdvice},
	"simulate":            {usage: "Analyze a what-if scenario", needs: "simulate a scenario", run: runSimulate},
}

// Run executes args[0] and returns the process exit code.
func (a *App) Run(ctx context.Context, args []string) int {
	if len(args) == 0 {
		a.usage(a.Err)
		return 2
	}

	name, rest := args[0], args[1:]
	switch name {
	case "help", "-h", "-help", "--help":
		a.usage(a.Out)
		return 0
	case "migrate":
		return a.finish(name, "", runMigrate(a, rest))
	}

	cmd, ok := commands[name]
	if !ok {
		fmt.Fprintf(a.Err, "Unknown command %q.\n\n", name)
		a.usage(a.Err)
		return 2
	}

	f, err := a.OpenFinance(ctx)
	if err != nil {
		return a.finish(name, cmd.needs, err)
	}
	defer func() {
		if err := f.Close(); err != nil {
			a.logger.Warn("Failed to close resources", log.FieldError, err)
		}
	}()

	return a.finish(name, cmd.needs, cmd.run(ctx, a, f, rest))
}

func (a *App) finish(name, needs string, err error) int {
	if err == nil || errors.Is(err, flag.ErrHelp) {
		return 0
	}
	if errors.Is(err, errBadFlags) {
		return 2
	}

	a.logger.Debug("Command failed", log.FieldOperation, name, log.FieldError, err)
	fmt.Fprintln(a.Err, friendlyMessage(needs, err))
	return 1
}

func (a *App) usage(w io.Writer) {
	fmt.Fprintln(w, "Usage: finman <command> [flags]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")

	names := make([]string, 0, len(commands)+1)
	for name := range commands {
		names = append(names, name)
	}
	names = append(names, "migrate")
	sort.Strings(names)

	for _, name := range names {
		usage := "Apply, roll back or show schema migrations (up|down|version)"
		if cmd, ok := commands[name]; ok {
			usage = cmd.usage
		}
		fmt.Fprintf(w, "  %-20s %s\n", name, usage)
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Run 'finman <command> -h' for the flags of a command.")
}

// usageError is shown to the user verbatim.
type usageError string

func (e usageError) Error() string { return string(e) }

func friendlyMessage(needs string, err error) string {
	var uerr usageError
	switch {
	case errors.As(err, &uerr):
		return uerr.Error()
	case errors.Is(err, core.ErrNotLoggedIn):
		if needs == "" {
			return "You are not logged in."
		}
		return fmt.Sprintf("You must be logged in to %s.", needs)
	case errors.Is(err, core.ErrDuplicateEmail):
		return "Email already exists. Please try a different email."
	case errors.Is(err, core.ErrInvalidCredentials):
		return "Invalid email or password."
	case errors.Is(err, core.ErrUserNotFound):
		return "User not found. Please register first."
	case errors.Is(err, core.ErrTransactionNotFound):
		return "Transaction not found."
	case errors.Is(err, core.ErrInvalidAmount):
		return "Invalid amount. Enter a positive number such as 12.50."
	case errors.Is(err, core.ErrInvalidKind):
		return "Transaction type must be income or expense."
	case errors.Is(err, core.ErrEmptyDescription):
		return "Description cannot be empty."
	case errors.Is(err, core.ErrEmptyName):
		return "Name cannot be empty."
	case errors.Is(err, core.ErrInvalidEmail):
		return "Invalid email address."
	case errors.Is(err, core.ErrWeakPassword):
		return fmt.Sprintf("Password must be at least %d characters.", core.MinPasswordLength)
	case errors.Is(err, core.ErrEmptyCategory):
		return "Category cannot be empty."
	case errors.Is(err, core.ErrNothingToUpdate):
		return "Nothing to update. Pass --amount, --type or --category."
	case errors.Is(err, core.ErrEmptyScenario):
		return "Scenario cannot be empty."
	}
	return fmt.Sprintf("An error occurred: %v", err)
}

// ask prints the prompt and reads one trimmed line.
func (a *App) ask(prompt string) (string, error) {
	line, err := a.readLine(prompt)
	return strings.TrimSpace(line), err
}

// askSecret reads a secret, without echo when ReadPassword is set.
func (a *App) askSecret(prompt string) (string, error) {
	if a.ReadPassword != nil {
		return a.ReadPassword(prompt)
	}
	line, err := a.readLine(prompt)
	return strings.TrimRight(line, "\r\n"), err
}

func (a *App) readLine(prompt string) (string, error) {
	fmt.Fprintf(a.Out, "%s: ", prompt)
	line, err := a.in.ReadString('\n')
	if errors.Is(err, io.EOF) && line != "" {
		return line, nil
	}
	if errors.Is(err, io.EOF) {
		return "", usageError(fmt.Sprintf("No input for %q.", prompt))
	}
	if err != nil {
		return "", fmt.Errorf("read input: %w", err)
	}
	return line, nil
}

// valueOrAsk returns v when set on the command line and prompts otherwise.
func (a *App) valueOrAsk(v, prompt string) (string, error) {
	if v != "" {
		return v, nil
	}
	return a.ask(prompt)
}

// errBadFlags means the flag package already reported the problem.
var errBadFlags = errors.New("invalid flags")

func parseFlags(fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return err
		}
		return errBadFlags
	}
	return nil
}

func (a *App) newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(a.Err)
	return fs
}
