package amqp

import (
	"encoding/json"
	"fmt"
	"time"
)

// BudgetAlertMessage reports that an expense pushed a category past its ceiling
type BudgetAlertMessage struct {
	UserID         int64     `json:"user_id"`
	Email          string    `json:"email"`
	Category       string    `json:"category"`
	TransactionID  int64     `json:"transaction_id"`
	CeilingCents   int64     `json:"ceiling_cents"`
	SpentCents     int64     `json:"spent_cents"`
	RemainingCents int64     `json:"remaining_cents"`
	Timestamp      time.Time `json:"timestamp"`
}

// NewBudgetAlertMessage stamps the alert with the current time
func NewBudgetAlertMessage(userID int64, email, category string, txnID, ceiling, spent int64) *BudgetAlertMessage {
	return &BudgetAlertMessage{
		UserID:         userID,
		Email:          email,
		Category:       category,
		TransactionID:  txnID,
		CeilingCents:   ceiling,
		SpentCents:     spent,
		RemainingCents: ceiling - spent,
		Timestamp:      time.Now().UTC(),
	}
}

// DedupKey identifies repeated alerts for the same user and category
func (m *BudgetAlertMessage) DedupKey() string {
	return fmt.Sprintf("%d:%s", m.UserID, m.Category)
}

// ToJSON converts the message to JSON bytes
func (m *BudgetAlertMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// BudgetAlertMessageFromJSON creates a message from JSON bytes
func BudgetAlertMessageFromJSON(data []byte) (*BudgetAlertMessage, error) {
	var msg BudgetAlertMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.UserID == 0 || msg.Category == "" {
		return nil, fmt.Errorf("budget alert missing user or category")
	}
	return &msg, nil
}
