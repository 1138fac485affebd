package domain

import (
	"time"

	"github.com/google/uuid"
)

// Transaction is the immutable audit record of one completed transfer. This
// struct maps directly to the `transactions` table; rows are appended once and
// never updated or deleted.
type Transaction struct {
	ID         uuid.UUID `json:"id"`
	FromUserID string    `json:"from_user_id"`
	ToUserID   string    `json:"to_user_id"`
	Amount     Coin      `json:"amount"`
	CreatedAt  time.Time `json:"created_at"`
}
