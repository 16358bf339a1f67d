package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"goaltrack/internal/core"
)

// RoutingKeyLedgerUpdated routes ledger change notifications.
const RoutingKeyLedgerUpdated = "ledger.updated"

// LedgerUpdatedMessage announces that a transaction was applied and the
// ledger saved. Consumers reload the ledger from the primary store, the
// message itself is informational.
type LedgerUpdatedMessage struct {
	ID        string    `json:"id"`
	Month     string    `json:"month"`
	Category  string    `json:"category"`
	Amount    string    `json:"amount"`
	Timestamp time.Time `json:"timestamp"`
}

func NewLedgerUpdatedMessage(tx core.Transaction) *LedgerUpdatedMessage {
	return &LedgerUpdatedMessage{
		ID:        uuid.NewString(),
		Month:     tx.Month.String(),
		Category:  string(tx.Category),
		Amount:    tx.Amount.String(),
		Timestamp: time.Now().UTC(),
	}
}

func (m *LedgerUpdatedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func LedgerUpdatedMessageFromJSON(data []byte) (*LedgerUpdatedMessage, error) {
	var msg LedgerUpdatedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.ID == "" {
		return nil, fmt.Errorf("message without id")
	}
	return &msg, nil
}
