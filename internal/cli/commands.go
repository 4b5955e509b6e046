package cli

import (
	"context"
	"flag"
	"fmt"
	"strconv"
	"strings"

	"finman/internal/ai"
	"finman/internal/core"
)

func runSignup(ctx context.Context, a *App, f Finance, args []string) error {
	fs := a.newFlagSet("signup")
	name := fs.String("name", "", "Name of the user")
	email := fs.String("email", "", "Email of the user")
	password := fs.String("password", "", "Password of the user (prompted without echo when omitted)")
	if err := parseFlags(fs, args); err != nil {
		return err
	}

	var err error
	if *name, err = a.valueOrAsk(*name, "Your name"); err != nil {
		return err
	}
	if *email, err = a.valueOrAsk(*email, "Your email"); err != nil {
		return err
	}
	if *password == "" {
		if *password, err = a.askSecret("Your password"); err != nil {
			return err
		}
		confirm, err := a.askSecret("Repeat for confirmation")
		if err != nil {
			return err
		}
		if confirm != *password {
			return usageError("Error: the two entered values do not match.")
		}
	}

	u, err := f.Signup(ctx, *name, *email, *password)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.Out, "User registered and logged in successfully as %s!\n", u.Name)
	return nil
}

func runLogin(ctx context.Context, a *App, f Finance, args []string) error {
	fs := a.newFlagSet("login")
	email := fs.String("email", "", "Email of the user")
	password := fs.String("password", "", "Password of the user (prompted without echo when omitted)")
	if err := parseFlags(fs, args); err != nil {
		return err
	}

	var err error
	if *email, err = a.valueOrAsk(*email, "Your email"); err != nil {
		return err
	}
	if *password == "" {
		if *password, err = a.askSecret("Your password"); err != nil {
			return err
		}
	}

	u, err := f.Login(ctx, *email, *password)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.Out, "Welcome back, %s!\n", u.Name)
	return nil
}

func runLogout(ctx context.Context, a *App, f Finance, args []string) error {
	if err := parseFlags(a.newFlagSet("logout"), args); err != nil {
		return err
	}
	email, err := f.Logout(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.Out, "You have been logged out, %s.\n", email)
	return nil
}

func runWhoami(ctx context.Context, a *App, f Finance, args []string) error {
	if err := parseFlags(a.newFlagSet("whoami"), args); err != nil {
		return err
	}
	u, err := f.Whoami(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.Out, "Logged in as %s <%s>.\n", u.Name, u.Email)
	return nil
}

func runAddTransaction(ctx context.Context, a *App, f Finance, args []string) error {
	fs := a.newFlagSet("add-transaction")
	description := fs.String("description", "", "Description of the transaction")
	amount := fs.String("amount", "", "Amount of the transaction, e.g. 12.50")
	kind := fs.String("type", "", "Transaction type: income or expense")
	if err := parseFlags(fs, args); err != nil {
		return err
	}

	var err error
	if *description, err = a.valueOrAsk(*description, "Transaction description"); err != nil {
		return err
	}
	if *amount, err = a.valueOrAsk(*amount, "Transaction amount"); err != nil {
		return err
	}
	if *kind, err = a.valueOrAsk(*kind, "Transaction type (income/expense)"); err != nil {
		return err
	}

	money, err := core.ParseMoney(*amount)
	if err != nil {
		return err
	}
	k, err := core.ParseKind(*kind)
	if err != nil {
		return err
	}

	res, err := f.AddTransaction(ctx, *description, money, k)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.Out, "Transaction added under category: %s\n", res.Transaction.Category)
	if res.Headroom != nil {
		a.printHeadroom(*res.Headroom)
	}
	return nil
}

func runUpdateTransaction(ctx context.Context, a *App, f Finance, args []string) error {
	fs := a.newFlagSet("update-transaction")
	id := fs.Int64("id", 0, "ID of the transaction to change (see list-transactions)")
	amount := fs.String("amount", "", "New amount")
	kind := fs.String("type", "", "New type: income or expense")
	category := fs.String("category", "", "New category")
	if err := parseFlags(fs, args); err != nil {
		return err
	}

	if *id == 0 {
		raw, err := a.ask("Transaction ID")
		if err != nil {
			return err
		}
		if *id, err = strconv.ParseInt(raw, 10, 64); err != nil || *id <= 0 {
			return usageError(fmt.Sprintf("Invalid transaction ID %q.", raw))
		}
	}

	var upd core.TransactionUpdate
	var parseErr error
	fs.Visit(func(fl *flag.Flag) {
		if parseErr != nil {
			return
		}
		switch fl.Name {
		case "amount":
			m, err := core.ParseMoney(*amount)
			upd.Amount, parseErr = &m, err
		case "type":
			k, err := core.ParseKind(*kind)
			upd.Kind, parseErr = &k, err
		case "category":
			upd.Category = category
		}
	})
	if parseErr != nil {
		return parseErr
	}

	res, err := f.UpdateTransaction(ctx, *id, upd)
	if err != nil {
		return err
	}
	t := res.Transaction
	fmt.Fprintf(a.Out, "Transaction %d updated: %s %s %s in %s.\n", t.ID, t.Kind.Label(), t.Amount, a.Currency, t.Category)
	if res.Headroom != nil {
		a.printHeadroom(*res.Headroom)
	}
	return nil
}

func runListTransactions(ctx context.Context, a *App, f Finance, args []string) error {
	if err := parseFlags(a.newFlagSet("list-transactions"), args); err != nil {
		return err
	}
	txns, err := f.ListTransactions(ctx)
	if err != nil {
		return err
	}
	if len(txns) == 0 {
		fmt.Fprintln(a.Out, ai.NoTransactionsMessage)
		return nil
	}
	return a.printTransactions(txns)
}

func runDeleteTransactions(ctx context.Context, a *App, f Finance, args []string) error {
	fs := a.newFlagSet("delete-transactions")
	yes := fs.Bool("yes", false, "Do not ask for confirmation")
	if err := parseFlags(fs, args); err != nil {
		return err
	}

	if !*yes {
		answer, err := a.ask("Delete all your transactions? [y/N]")
		if err != nil {
			return err
		}
		if ans := strings.ToLower(answer); ans != "y" && ans != "yes" {
			fmt.Fprintln(a.Out, "Aborted.")
			return nil
		}
	}

	n, err := f.DeleteTransactions(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.Out, "Deleted %d transaction(s).\n", n)
	return nil
}

func runSetBudget(ctx context.Context, a *App, f Finance, args []string) error {
	fs := a.newFlagSet("set-budget")
	category := fs.String("category", "", "Category the budget applies to")
	amount := fs.String("amount", "", "Spending ceiling, e.g. 5000")
	if err := parseFlags(fs, args); err != nil {
		return err
	}

	var err error
	if *category, err = a.valueOrAsk(*category, "Category"); err != nil {
		return err
	}
	if *amount, err = a.valueOrAsk(*amount, "Budget amount"); err != nil {
		return err
	}
	ceiling, err := core.ParseMoney(*amount)
	if err != nil {
		return err
	}

	b, err := f.SetBudget(ctx, *category, ceiling)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.Out, "Budget for %s set to %s %s.\n", b.Category, b.Ceiling, a.Currency)
	return nil
}

func runListBudgets(ctx context.Context, a *App, f Finance, args []string) error {
	if err := parseFlags(a.newFlagSet("list-budgets"), args); err != nil {
		return err
	}
	statuses, err := f.ListBudgets(ctx)
	if err != nil {
		return err
	}
	if len(statuses) == 0 {
		fmt.Fprintln(a.Out, "No budgets set.")
		return nil
	}
	return a.printBudgets(statuses)
}

func runListCategories(ctx context.Context, a *App, f Finance, args []string) error {
	if err := parseFlags(a.newFlagSet("list-categories"), args); err != nil {
		return err
	}
	cats, err := f.ListCategories(ctx)
	if err != nil {
		return err
	}
	if len(cats) == 0 {
		fmt.Fprintln(a.Out, "No categories yet.")
		return nil
	}
	for _, c := range cats {
		fmt.Fprintln(a.Out, c.Name)
	}
	return nil
}

func runAdvice(ctx context.Context, a *App, f Finance, args []string) error {
	if err := parseFlags(a.newFlagSet("advice"), args); err != nil {
		return err
	}
	advice, err := f.Advice(ctx)
	if err != nil {
		return err
	}

	switch advice.Status {
	case ai.StatusNoTransactions:
		fmt.Fprintln(a.Out, ai.NoTransactionsMessage)
	case ai.StatusUnavailable:
		fmt.Fprintln(a.Out, ai.NoAdviceMessage)
	default:
		fmt.Fprintln(a.Out, "Financial Analysis:")
		fmt.Fprintln(a.Out, advice.Analysis)
		fmt.Fprintln(a.Out, "Advice:")
		for _, tip := range advice.Tips {
			fmt.Fprintf(a.Out, "- %s\n", tip)
		}
	}
	return nil
}

func runSimulate(ctx context.Context, a *App, f Finance, args []string) error {
	fs := a.newFlagSet("simulate")
	scenario := fs.String("scenario", "", "What-if scenario, e.g. \"my rent doubles\"")
	if err := parseFlags(fs, args); err != nil {
		return err
	}

	if *scenario == "" && fs.NArg() > 0 {
		*scenario = strings.Join(fs.Args(), " ")
	}
	var err error
	if *scenario, err = a.valueOrAsk(*scenario, "Describe the scenario"); err != nil {
		return err
	}

	sim, err := f.Simulate(ctx, *scenario)
	if err != nil {
		return err
	}

	switch sim.Status {
	case ai.StatusNoTransactions:
		fmt.Fprintln(a.Out, ai.NoTransactionsMessage)
	case ai.StatusUnavailable:
		fmt.Fprintln(a.Out, ai.NoSimulationMessage)
	default:
		fmt.Fprintln(a.Out, "Scenario Analysis:")
		fmt.Fprintln(a.Out, sim.Analysis)
		fmt.Fprintln(a.Out, "Impact:")
		fmt.Fprintln(a.Out, sim.Impact)
	}
	return nil
}

func runMigrate(a *App, args []string) error {
	if len(args) == 0 {
		return usageError("Usage: finman migrate up|down [-steps N]|version")
	}

	m, err := a.OpenMigrator()
	if err != nil {
		return err
	}
	defer m.Close()

	switch args[0] {
	case "up":
		if err := m.Up(); err != nil {
			return err
		}
	case "down":
		fs := a.newFlagSet("migrate down")
		steps := fs.Int("steps", 1, "Number of migrations to roll back")
		if err := parseFlags(fs, args[1:]); err != nil {
			return err
		}
		if *steps < 1 {
			return usageError("-steps must be at least 1.")
		}
		if err := m.Down(*steps); err != nil {
			return err
		}
	case "version":
	default:
		return usageError(fmt.Sprintf("Unknown migrate action %q. Use up, down or version.", args[0]))
	}

	version, dirty, err := m.Version()
	if err != nil {
		return err
	}
	suffix := ""
	if dirty {
		suffix = " (dirty)"
	}
	fmt.Fprintf(a.Out, "Schema version: %d%s\n", version, suffix)
	return nil
}
