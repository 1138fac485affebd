/**
 * @description
 * This file provides the PostgreSQL implementation of the `Repository` interface.
 * It contains all the necessary SQL queries to interact with the database tables
 * for accounts and the append-only transaction log.
 *
 * @dependencies
 * - context, errors, time: Standard Go libraries.
 * - github.com/jackc/pgx/v5: The PostgreSQL driver for database operations.
 * - internal/domain: Contains the domain models used for data transfer.
 */

package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aircoin/ledger-service/internal/domain"
)

var (
	ErrAccountNotFound    = errors.New("account not found")
	ErrDuplicateUser      = errors.New("userid already taken")
	ErrInsufficientFunds  = errors.New("insufficient funds")
	ErrStorageUnavailable = errors.New("storage unavailable")
)

// PostgresRepository is a concrete implementation of the Repository interface for PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository creates a new instance of PostgresRepository.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// mapStorageErr surfaces connection-class failures as ErrStorageUnavailable so
// callers can distinguish a retryable outage from a stable error.
func mapStorageErr(err error) error {
	if err == nil {
		return nil
	}
	if pgconn.SafeToRetry(err) || pgconn.Timeout(err) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	return err
}

// FindAccount retrieves an account by its userid.
func (r *PostgresRepository) FindAccount(ctx context.Context, userID string) (*domain.Account, error) {
	var account domain.Account
	query := `
		SELECT user_id, display_name, password_hash, balance, is_treasury, created_at, updated_at
		FROM accounts
		WHERE user_id = $1
	`
	err := r.db.QueryRow(ctx, query, userID).Scan(
		&account.UserID,
		&account.DisplayName,
		&account.PasswordHash,
		&account.Balance,
		&account.IsTreasury,
		&account.CreatedAt,
		&account.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAccountNotFound
		}
		return nil, mapStorageErr(err)
	}
	return &account, nil
}

// CreateAccount inserts a new account record.
func (r *PostgresRepository) CreateAccount(ctx context.Context, account *domain.Account) error {
	query := `
		INSERT INTO accounts (user_id, display_name, password_hash, balance, is_treasury)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at, updated_at
	`
	err := r.db.QueryRow(ctx, query,
		account.UserID,
		account.DisplayName,
		account.PasswordHash,
		account.Balance,
		account.IsTreasury,
	).Scan(&account.CreatedAt, &account.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrDuplicateUser
		}
		return mapStorageErr(err)
	}
	return nil
}

// UpdateBalance overwrites an account's stored balance. Negative values are
// not rejected here; the transfer engine owns the non-negativity invariant.
func (r *PostgresRepository) UpdateBalance(ctx context.Context, userID string, balance domain.Coin) error {
	query := `UPDATE accounts SET balance = $1, updated_at = NOW() WHERE user_id = $2`
	result, err := r.db.Exec(ctx, query, balance, userID)
	if err != nil {
		return mapStorageErr(err)
	}
	if result.RowsAffected() == 0 {
		return ErrAccountNotFound
	}
	return nil
}

// ListAccounts returns every account; password hashes are never scanned out.
func (r *PostgresRepository) ListAccounts(ctx context.Context) ([]domain.Account, error) {
	query := `
		SELECT user_id, display_name, balance, is_treasury, created_at, updated_at
		FROM accounts
		ORDER BY created_at ASC
	`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, mapStorageErr(err)
	}
	defer rows.Close()

	var accounts []domain.Account
	for rows.Next() {
		var account domain.Account
		if err := rows.Scan(
			&account.UserID,
			&account.DisplayName,
			&account.Balance,
			&account.IsTreasury,
			&account.CreatedAt,
			&account.UpdatedAt,
		); err != nil {
			return nil, err
		}
		accounts = append(accounts, account)
	}
	return accounts, rows.Err()
}

// AppendTransaction inserts a transaction record. The store performs no
// participant existence check; the transfer engine validates before calling.
func (r *PostgresRepository) AppendTransaction(ctx context.Context, tx *domain.Transaction) error {
	if tx.ID == uuid.Nil {
		tx.ID = uuid.New()
	}
	if tx.CreatedAt.IsZero() {
		tx.CreatedAt = time.Now().UTC()
	}
	query := `
		INSERT INTO transactions (id, from_user_id, to_user_id, amount, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := r.db.Exec(ctx, query, tx.ID, tx.FromUserID, tx.ToUserID, tx.Amount, tx.CreatedAt)
	return mapStorageErr(err)
}

// ListTransactionsFor retrieves the most recent transactions involving a user
// (as sender or receiver), newest first.
func (r *PostgresRepository) ListTransactionsFor(ctx context.Context, userID string, limit int) ([]domain.Transaction, error) {
	if limit <= 0 {
		limit = DefaultTransactionLimit
	}
	query := `
		SELECT id, from_user_id, to_user_id, amount, created_at
		FROM transactions
		WHERE from_user_id = $1 OR to_user_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`
	rows, err := r.db.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, mapStorageErr(err)
	}
	defer rows.Close()

	var transactions []domain.Transaction
	for rows.Next() {
		var tx domain.Transaction
		if err := rows.Scan(&tx.ID, &tx.FromUserID, &tx.ToUserID, &tx.Amount, &tx.CreatedAt); err != nil {
			return nil, err
		}
		transactions = append(transactions, tx)
	}
	return transactions, rows.Err()
}

// TransferFunds applies debit, credit and log append in a single database
// transaction. The sender row is locked with FOR UPDATE and its balance
// re-checked under the lock, so two concurrent transfers from the same account
// cannot both pass the funds check on a stale read.
func (r *PostgresRepository) TransferFunds(ctx context.Context, fromUserID, toUserID string, amount domain.Coin, senderTreasury bool) (*domain.Transaction, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, mapStorageErr(err)
	}
	defer tx.Rollback(ctx)

	if !senderTreasury {
		var balance domain.Coin
		err = tx.QueryRow(ctx, "SELECT balance FROM accounts WHERE user_id = $1 FOR UPDATE", fromUserID).Scan(&balance)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, ErrAccountNotFound
			}
			return nil, mapStorageErr(err)
		}
		if balance < amount {
			return nil, ErrInsufficientFunds
		}
		if _, err = tx.Exec(ctx, "UPDATE accounts SET balance = balance - $1, updated_at = NOW() WHERE user_id = $2", amount, fromUserID); err != nil {
			return nil, mapStorageErr(err)
		}
	}

	// Credit the receiver unconditionally: treasury accounts still accumulate
	// incoming funds, only their outgoing debit is elided.
	tag, err := tx.Exec(ctx, "UPDATE accounts SET balance = balance + $1, updated_at = NOW() WHERE user_id = $2", amount, toUserID)
	if err != nil {
		return nil, mapStorageErr(err)
	}
	if tag.RowsAffected() == 0 {
		return nil, ErrAccountNotFound
	}

	record := &domain.Transaction{
		ID:         uuid.New(),
		FromUserID: fromUserID,
		ToUserID:   toUserID,
		Amount:     amount,
		CreatedAt:  time.Now().UTC(),
	}
	if _, err = tx.Exec(ctx,
		"INSERT INTO transactions (id, from_user_id, to_user_id, amount, created_at) VALUES ($1, $2, $3, $4, $5)",
		record.ID, record.FromUserID, record.ToUserID, record.Amount, record.CreatedAt,
	); err != nil {
		return nil, mapStorageErr(err)
	}

	if err = tx.Commit(ctx); err != nil {
		return nil, mapStorageErr(err)
	}
	return record, nil
}

// SumBalances returns the total stored balance across all accounts.
func (r *PostgresRepository) SumBalances(ctx context.Context) (domain.Coin, error) {
	var total domain.Coin
	err := r.db.QueryRow(ctx, "SELECT COALESCE(SUM(balance), 0) FROM accounts").Scan(&total)
	if err != nil {
		return 0, mapStorageErr(err)
	}
	return total, nil
}

// CountNegativeBalances returns the number of non-treasury accounts whose
// balance has gone below zero. A non-zero result means the ledger invariant
// was violated outside the transfer engine.
func (r *PostgresRepository) CountNegativeBalances(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.QueryRow(ctx, "SELECT COUNT(*) FROM accounts WHERE balance < 0 AND NOT is_treasury").Scan(&count)
	if err != nil {
		return 0, mapStorageErr(err)
	}
	return count, nil
}
