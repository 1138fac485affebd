/**
 * @description
 * This file contains the core business logic for the ledger service. The
 * `Service` struct orchestrates account creation, credential verification and
 * the transfer engine, coordinating between the database repository, the token
 * manager and the message broker.
 *
 * Key features:
 * - Implements the main use cases: signup, login, transfers and account views.
 * - Keeps validation side-effect free: no balance moves and no transaction is
 *   logged unless every check has passed.
 * - Delegates the debit-credit-log sequence to the store, which applies it as
 *   a single atomic unit.
 * - Publishes events to RabbitMQ for asynchronous processing by other services.
 *
 * @dependencies
 * - context, errors, log, strings, time: Standard Go libraries.
 * - golang.org/x/crypto/bcrypt: Password hashing.
 * - internal/domain, internal/store: For domain models and data access.
 * - pkg/rabbitmq: For event publishing.
 */

package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/aircoin/ledger-service/internal/domain"
	"github.com/aircoin/ledger-service/internal/store"
	"github.com/aircoin/ledger-service/pkg/rabbitmq"
)

const bcryptCost = 10

var (
	ErrMissingFields      = errors.New("missing fields")
	ErrInvalidTransfer    = errors.New("invalid receiver or amount")
	ErrReceiverNotFound   = errors.New("receiver not found")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrRateLimited        = errors.New("transfer rate limit exceeded")
)

// RateLimiter is the contract for the optional distributed transfer limiter.
type RateLimiter interface {
	ConsumeRateLimit(ctx context.Context, scope, subject string, limit int, window time.Duration) (count int, retryAfterSeconds int, err error)
}

// Service provides the core business logic for the ledger.
type Service struct {
	repo           store.Repository
	eventProducer  rabbitmq.Publisher
	tokens         *TokenManager
	initialBalance domain.Coin
	treasuryCode   string
	eventExchange  string

	limiter         RateLimiter
	sendLimitPerMin int
}

// NewService creates a new ledger service instance.
func NewService(repo store.Repository, producer rabbitmq.Publisher, tokens *TokenManager, initialBalance domain.Coin, treasuryCode, eventExchange string) *Service {
	return &Service{
		repo:           repo,
		eventProducer:  producer,
		tokens:         tokens,
		initialBalance: initialBalance,
		treasuryCode:   treasuryCode,
		eventExchange:  eventExchange,
	}
}

// SetTransferRateLimiter enables per-sender rate limiting on transfers.
func (s *Service) SetTransferRateLimiter(limiter RateLimiter, limitPerMinute int) {
	s.limiter = limiter
	s.sendLimitPerMin = limitPerMinute
}

// Signup creates a new account and returns it together with a signed token.
// The treasury flag is granted only when the provisioning code is configured
// and matches; the stored balance for treasury accounts starts at zero because
// their debit side is unlimited anyway.
func (s *Service) Signup(ctx context.Context, req domain.SignupRequest) (*domain.Account, string, error) {
	name := strings.TrimSpace(req.Name)
	userID := strings.TrimSpace(req.UserID)
	if name == "" || userID == "" || req.Password == "" {
		return nil, "", ErrMissingFields
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcryptCost)
	if err != nil {
		return nil, "", fmt.Errorf("failed to hash password: %w", err)
	}

	isTreasury := s.treasuryCode != "" && req.TreasuryCode == s.treasuryCode
	balance := s.initialBalance
	if isTreasury {
		balance = 0
	}

	account := &domain.Account{
		UserID:       userID,
		DisplayName:  name,
		PasswordHash: string(hash),
		Balance:      balance,
		IsTreasury:   isTreasury,
	}
	if err := s.repo.CreateAccount(ctx, account); err != nil {
		return nil, "", err
	}

	s.publish(ctx, domain.RoutingKeyAccountCreated, domain.AccountCreatedEvent{
		UserID:     account.UserID,
		IsTreasury: account.IsTreasury,
		Timestamp:  time.Now().UTC(),
	})

	token, err := s.tokens.Issue(account.UserID)
	if err != nil {
		return nil, "", fmt.Errorf("failed to issue token: %w", err)
	}
	return account, token, nil
}

// Login verifies credentials and returns the account with a fresh token. The
// error is uniform for unknown userid and wrong password.
func (s *Service) Login(ctx context.Context, req domain.LoginRequest) (*domain.Account, string, error) {
	userID := strings.TrimSpace(req.UserID)
	if userID == "" || req.Password == "" {
		return nil, "", ErrMissingFields
	}

	account, err := s.repo.FindAccount(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrAccountNotFound) {
			return nil, "", ErrInvalidCredentials
		}
		return nil, "", err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(req.Password)); err != nil {
		return nil, "", ErrInvalidCredentials
	}

	token, err := s.tokens.Issue(account.UserID)
	if err != nil {
		return nil, "", fmt.Errorf("failed to issue token: %w", err)
	}
	return account, token, nil
}

// Transfer moves value from the sender to the receiver and returns the created
// transaction record. Validation happens before any mutation; the store then
// applies debit, credit and log append atomically. Treasury senders are never
// debited; receivers are always credited, treasury or not.
func (s *Service) Transfer(ctx context.Context, senderID, receiverID string, amount domain.Coin) (*domain.Transaction, error) {
	receiverID = strings.TrimSpace(receiverID)
	if receiverID == "" || amount <= 0 {
		return nil, ErrInvalidTransfer
	}

	sender, err := s.repo.FindAccount(ctx, senderID)
	if err != nil {
		return nil, fmt.Errorf("failed to find sender: %w", err)
	}
	if _, err := s.repo.FindAccount(ctx, receiverID); err != nil {
		if errors.Is(err, store.ErrAccountNotFound) {
			return nil, ErrReceiverNotFound
		}
		return nil, fmt.Errorf("failed to find receiver: %w", err)
	}

	if s.limiter != nil && s.sendLimitPerMin > 0 {
		count, _, err := s.limiter.ConsumeRateLimit(ctx, "send", sender.UserID, s.sendLimitPerMin, time.Minute)
		if err != nil {
			// A limiter outage must not block money movement.
			log.Printf("level=warn component=ledger msg=\"rate limiter unavailable; allowing transfer\" sender=%s err=%v", sender.UserID, err)
		} else if count > s.sendLimitPerMin {
			return nil, ErrRateLimited
		}
	}

	record, err := s.repo.TransferFunds(ctx, sender.UserID, receiverID, amount, sender.IsTreasury)
	if err != nil {
		if errors.Is(err, store.ErrAccountNotFound) {
			// The receiver existed a moment ago; accounts are never deleted,
			// but the atomic path re-checks anyway.
			return nil, ErrReceiverNotFound
		}
		return nil, err
	}

	s.publish(ctx, domain.RoutingKeyTransactionCompleted, domain.TransactionCompletedEvent{
		TransactionID: record.ID,
		FromUserID:    record.FromUserID,
		ToUserID:      record.ToUserID,
		Amount:        record.Amount,
		Timestamp:     record.CreatedAt,
	})
	return record, nil
}

// GetAccountView returns the authenticated self view: account details plus the
// most recent transactions involving the account.
func (s *Service) GetAccountView(ctx context.Context, userID string) (*domain.AccountView, error) {
	account, err := s.repo.FindAccount(ctx, userID)
	if err != nil {
		return nil, err
	}
	txs, err := s.repo.ListTransactionsFor(ctx, userID, store.DefaultTransactionLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	if txs == nil {
		txs = []domain.Transaction{}
	}
	return &domain.AccountView{
		UserID:       account.UserID,
		DisplayName:  account.DisplayName,
		IsTreasury:   account.IsTreasury,
		Balance:      account.DisplayBalance(),
		Transactions: txs,
	}, nil
}

// ListAccountsPublic returns all accounts with credential material omitted.
func (s *Service) ListAccountsPublic(ctx context.Context) ([]domain.PublicAccount, error) {
	accounts, err := s.repo.ListAccounts(ctx)
	if err != nil {
		return nil, err
	}
	public := make([]domain.PublicAccount, 0, len(accounts))
	for i := range accounts {
		a := &accounts[i]
		public = append(public, domain.PublicAccount{
			UserID:      a.UserID,
			DisplayName: a.DisplayName,
			IsTreasury:  a.IsTreasury,
			Balance:     a.DisplayBalance(),
		})
	}
	return public, nil
}

// publish sends an event to the ledger exchange, best effort. A broker outage
// never fails the operation that produced the event.
func (s *Service) publish(ctx context.Context, routingKey string, body interface{}) {
	if s.eventProducer == nil {
		return
	}
	if err := s.eventProducer.Publish(ctx, s.eventExchange, routingKey, body); err != nil {
		log.Printf("level=warn component=ledger msg=\"event publish failed\" routing_key=%s err=%v", routingKey, err)
	}
}
