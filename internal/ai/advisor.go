package ai

import (
	"context"
	"fmt"
	"strings"

	"finman/internal/core"
	"finman/internal/log"
)

// Status tells callers which branch an advisory result took.
type Status string

const (
	StatusReady          Status = "ready"
	StatusNoTransactions Status = "no_transactions"
	StatusUnavailable    Status = "unavailable"
)

const (
	NoAdviceMessage       = "No advice available at the moment."
	NoSimulationMessage   = "No simulation available at the moment."
	NoTransactionsMessage = "No transactions found."
)

type Advice struct {
	Status   Status
	Analysis string
	Tips     []string
}

type Simulation struct {
	Status   Status
	Analysis string
	Impact   string
}

// Advisor asks the model for savings advice and what-if analysis over a
// user's transaction history.
type Advisor struct {
	gen      Generator
	currency string
	logger   *log.Logger
}

func NewAdvisor(gen Generator, currency string, logger *log.Logger) *Advisor {
	return &Advisor{
		gen:      gen,
		currency: currency,
		logger:   logger.WithComponent(log.ComponentAI),
	}
}

func (a *Advisor) adviceInstruction() string {
	return fmt.Sprintf(`Analyze the financial transactions you are given (all amounts are in %s) and provide actionable advice to improve savings and manage expenses.
Respond only with a JSON object of the form {"analysis": "<short overview>", "advice": ["<tip>", "<tip>"]}.`, a.currency)
}

func (a *Advisor) simulationInstruction() string {
	return fmt.Sprintf(`Given a list of financial transactions (all amounts are in %s) and a hypothetical scenario, analyze the financial impact of the scenario.
Give a detailed and clear description of the impact.
Respond only with a JSON object of the form {"analysis": "<current situation>", "impact": "<impact of the scenario>"}.`, a.currency)
}

// Advise returns StatusNoTransactions without calling the model when txns is
// empty and StatusUnavailable when the model fails.
func (a *Advisor) Advise(ctx context.Context, txns []core.Transaction) Advice {
	if len(txns) == 0 {
		return Advice{Status: StatusNoTransactions}
	}

	text, err := a.gen.Generate(ctx, a.adviceInstruction(), core.Summarize(txns))
	if err == nil {
		var analysis string
		var tips []string
		if analysis, tips, err = ParseAdvice(text); err == nil {
			return Advice{Status: StatusReady, Analysis: analysis, Tips: tips}
		}
	}

	a.warn(ctx, log.OpAdvise, err, len(txns))
	return Advice{Status: StatusUnavailable, Analysis: NoAdviceMessage}
}

// Simulate analyzes a what-if scenario against txns. It fails the same way
// Advise does.
func (a *Advisor) Simulate(ctx context.Context, txns []core.Transaction, scenario string) (Simulation, error) {
	scenario = strings.TrimSpace(scenario)
	if scenario == "" {
		return Simulation{}, core.ErrEmptyScenario
	}
	if len(txns) == 0 {
		return Simulation{Status: StatusNoTransactions}, nil
	}

	prompt := fmt.Sprintf("Transactions:\n%s\n\nScenario:\n%s", core.Summarize(txns), scenario)
	text, err := a.gen.Generate(ctx, a.simulationInstruction(), prompt)
	if err == nil {
		var analysis, impact string
		if analysis, impact, err = ParseSimulation(text); err == nil {
			return Simulation{Status: StatusReady, Analysis: analysis, Impact: impact}, nil
		}
	}

	a.warn(ctx, log.OpSimulate, err, len(txns))
	return Simulation{Status: StatusUnavailable, Analysis: NoSimulationMessage}, nil
}

func (a *Advisor) warn(ctx context.Context, op string, err error, count int) {
	fields := log.NewFields().
		WithOperation(op).
		WithError(err, errorType(err))
	fields[log.FieldCount] = count
	a.logger.WarnContext(ctx, "Advisory generation failed", fields.ToSlice()...)
}
