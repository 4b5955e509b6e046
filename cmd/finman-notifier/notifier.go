package main

import (
	"context"

	"finman/internal/amqp"
	"finman/internal/cache"
	"finman/internal/core"
	"finman/internal/log"
)

// notifier reports budget alerts once per user and category within the
// dedup window.
type notifier struct {
	logger *log.Logger
	seen   *cache.LRUCache[bool]
}

func newNotifier(logger *log.Logger, seen *cache.LRUCache[bool]) *notifier {
	return &notifier{logger: logger, seen: seen}
}

func (n *notifier) Handle(ctx context.Context, msg *amqp.BudgetAlertMessage) error {
	if !n.seen.SetIfAbsent(msg.DedupKey(), true) {
		n.logger.DebugContext(ctx, "Duplicate budget alert suppressed",
			log.FieldUserID, msg.UserID,
			log.FieldCategory, msg.Category)
		return nil
	}

	overage := core.Money{Cents: -msg.RemainingCents}
	n.logger.WarnContext(ctx, "Budget exceeded",
		log.FieldOperation, log.OpConsume,
		log.FieldUserID, msg.UserID,
		log.FieldEmail, msg.Email,
		log.FieldCategory, msg.Category,
		log.FieldTxnID, msg.TransactionID,
		log.FieldCeiling, msg.CeilingCents,
		log.FieldRemaining, msg.RemainingCents,
		"overage", overage.String())
	return nil
}
