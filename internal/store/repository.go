/**
 * @description
 * This file defines the `Repository` interface, which specifies the contract for
 * all data access operations required by the ledger service. By defining an
 * interface, we decouple the application's business logic from the specific
 * database implementation, making the code more modular and easier to test.
 *
 * @dependencies
 * - context: Standard Go library.
 * - internal/domain: For the service's domain models.
 */

package store

import (
	"context"

	"github.com/aircoin/ledger-service/internal/domain"
)

// DefaultTransactionLimit is the transaction page size used when a caller does
// not specify one.
const DefaultTransactionLimit = 50

// Repository defines the set of methods for interacting with the ledger store.
type Repository interface {
	// Account methods
	FindAccount(ctx context.Context, userID string) (*domain.Account, error)
	CreateAccount(ctx context.Context, account *domain.Account) error
	// UpdateBalance overwrites an account's stored balance. The store is
	// deliberately permissive: it does not reject negative values, so callers
	// must guard the non-treasury `balance >= 0` invariant themselves. Balance
	// movement for transfers goes through TransferFunds, never through here.
	UpdateBalance(ctx context.Context, userID string, balance domain.Coin) error
	ListAccounts(ctx context.Context) ([]domain.Account, error)

	// Transaction log methods
	AppendTransaction(ctx context.Context, tx *domain.Transaction) error
	ListTransactionsFor(ctx context.Context, userID string, limit int) ([]domain.Transaction, error)

	// TransferFunds applies a transfer's debit, credit and log append as one
	// atomic unit. The sender row is locked and its balance re-checked inside
	// the transaction, so two concurrent transfers cannot both spend the same
	// funds. When senderTreasury is true the debit is elided entirely.
	TransferFunds(ctx context.Context, fromUserID, toUserID string, amount domain.Coin, senderTreasury bool) (*domain.Transaction, error)

	// Integrity audit methods
	SumBalances(ctx context.Context) (domain.Coin, error)
	CountNegativeBalances(ctx context.Context) (int64, error)
}
