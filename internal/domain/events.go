package domain

import (
	"time"

	"github.com/google/uuid"
)

// Routing keys published to the ledger event exchange.
const (
	RoutingKeyAccountCreated       = "account.created"
	RoutingKeyTransactionCompleted = "transaction.completed"
)

// AccountCreatedEvent is published after a successful signup.
type AccountCreatedEvent struct {
	UserID     string    `json:"user_id"`
	IsTreasury bool      `json:"is_treasury"`
	Timestamp  time.Time `json:"timestamp"`
}

// TransactionCompletedEvent is published after a transfer commits. Amounts are
// carried as fixed-precision decimal strings, like everywhere else on the wire.
type TransactionCompletedEvent struct {
	TransactionID uuid.UUID `json:"transaction_id"`
	FromUserID    string    `json:"from_user_id"`
	ToUserID      string    `json:"to_user_id"`
	Amount        Coin      `json:"amount"`
	Timestamp     time.Time `json:"timestamp"`
}
