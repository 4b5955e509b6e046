package main

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
	"time"

	"finman/internal/amqp"
	"finman/internal/cache"
	"finman/internal/log"
)

func TestNotifier_DedupsPerUserAndCategory(t *testing.T) {
	var buf bytes.Buffer
	logger := log.New(log.Config{Handler: slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo})})
	n := newNotifier(logger, cache.NewLRUCache[bool](16, time.Hour))
	ctx := context.Background()

	alerts := []*amqp.BudgetAlertMessage{
		amqp.NewBudgetAlertMessage(1, "ada@example.com", "Food", 10, 10000, 12000),
		amqp.NewBudgetAlertMessage(1, "ada@example.com", "Food", 11, 10000, 13000),
		amqp.NewBudgetAlertMessage(1, "ada@example.com", "Transport", 12, 500, 900),
		amqp.NewBudgetAlertMessage(2, "bob@example.com", "Food", 13, 100, 200),
	}
	for _, a := range alerts {
		if err := n.Handle(ctx, a); err != nil {
			t.Fatalf("Handle() error = %v", err)
		}
	}

	if got := strings.Count(buf.String(), "Budget exceeded"); got != 3 {
		t.Fatalf("reported %d alerts, want 3:\n%s", got, buf.String())
	}
	if !strings.Contains(buf.String(), "overage=20.00") {
		t.Fatalf("first alert overage missing:\n%s", buf.String())
	}
}
