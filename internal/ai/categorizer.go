package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"finman/internal/cache"
	"finman/internal/core"
	"finman/internal/log"
)

const categorizeInstruction = `Categorize the transaction description you are given into a standard financial category (for example Food, Utilities, Entertainment, Transport, Housing, Salary).
Respond only with a JSON object of the form {"category": "<category name>"}.`

// Categorizer labels transaction descriptions. Labels are memoized by
// normalized description when a cache is supplied.
type Categorizer struct {
	gen    Generator
	labels cache.Cache[string]
	logger *log.Logger
}

// NewCategorizer builds a Categorizer. labels may be nil.
func NewCategorizer(gen Generator, labels cache.Cache[string], logger *log.Logger) *Categorizer {
	return &Categorizer{
		gen:    gen,
		labels: labels,
		logger: logger.WithComponent(log.ComponentAI),
	}
}

// Categorize never fails: every problem degrades to the Uncategorized label.
func (c *Categorizer) Categorize(ctx context.Context, description string) string {
	label, err := c.CategorizeStrict(ctx, description)
	if err == nil {
		return label
	}

	if !errors.Is(err, core.ErrEmptyDescription) {
		fields := log.NewFields().
			WithOperation(log.OpCategorize).
			WithError(err, errorType(err))
		c.logger.WarnContext(ctx, "Categorization failed, using fallback", fields.ToSlice()...)
	}
	return core.UncategorizedLabel
}

// CategorizeStrict returns ErrModelUnavailable or ErrMalformedResponse
// instead of falling back.
func (c *Categorizer) CategorizeStrict(ctx context.Context, description string) (string, error) {
	desc := strings.Join(strings.Fields(description), " ")
	if desc == "" {
		return "", core.ErrEmptyDescription
	}

	key := strings.ToLower(desc)
	if c.labels != nil {
		if label, ok := c.labels.Get(key); ok {
			return label, nil
		}
	}

	text, err := c.gen.Generate(ctx, categorizeInstruction, desc)
	if err != nil {
		if !errors.Is(err, ErrModelUnavailable) {
			err = fmt.Errorf("%w: %v", ErrModelUnavailable, err)
		}
		return "", err
	}

	label, err := ParseCategory(text)
	if err != nil {
		return "", err
	}
	label = core.NormalizeCategoryName(label)

	if c.labels != nil {
		c.labels.Set(key, label)
	}
	return label, nil
}

func errorType(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return log.ErrorTypeTimeout
	}
	if errors.Is(err, ErrMalformedResponse) {
		return log.ErrorTypeValidation
	}
	return log.ErrorTypeModel
}
