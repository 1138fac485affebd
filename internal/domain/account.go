/**
 * @description
 * This file defines the core domain models for the ledger service. These structs
 * represent the main entities and data transfer objects (DTOs) used throughout
 * the service's business logic, database interactions, and API layers.
 *
 * @notes
 * - Balances are stored as `Coin` (int64 subunits, 1 AirCoin = 1e8 subunits),
 *   which avoids floating-point inaccuracies with financial data.
 * - Credential material never serializes: password hashes are excluded from
 *   every JSON view.
 */

package domain

import "time"

// UnlimitedBalance is the sentinel rendered instead of a number for treasury
// account balances.
const UnlimitedBalance = "unlimited"

// Account represents a ledger account. This struct maps directly to the
// `accounts` table in the database.
type Account struct {
	UserID       string    `json:"user_id"`
	DisplayName  string    `json:"display_name"`
	PasswordHash string    `json:"-"`
	Balance      Coin      `json:"-"`
	IsTreasury   bool      `json:"is_treasury"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// DisplayBalance returns the balance as presented to clients: a fixed
// 8-fractional-digit decimal string, or the unlimited sentinel for treasury
// accounts whose stored balance is not meaningful on the debit side.
func (a *Account) DisplayBalance() string {
	if a.IsTreasury {
		return UnlimitedBalance
	}
	return a.Balance.String()
}

// PublicAccount is the credential-free projection of an Account used by the
// user listing endpoint.
type PublicAccount struct {
	UserID      string `json:"user_id"`
	DisplayName string `json:"display_name"`
	IsTreasury  bool   `json:"is_treasury"`
	Balance     string `json:"balance"`
}

// AccountView is the authenticated self view: account details plus the most
// recent transactions involving the account.
type AccountView struct {
	UserID       string        `json:"user_id"`
	DisplayName  string        `json:"display_name"`
	IsTreasury   bool          `json:"is_treasury"`
	Balance      string        `json:"balance"`
	Transactions []Transaction `json:"txs"`
}

// SignupRequest is the DTO for account creation. TreasuryCode is compared
// against the configured provisioning code; the ledger core only ever sees the
// resulting boolean flag.
type SignupRequest struct {
	Name         string `json:"name"`
	UserID       string `json:"userid"`
	Password     string `json:"password"`
	TreasuryCode string `json:"treasury_code,omitempty"`
}

// LoginRequest is the DTO for credential verification.
type LoginRequest struct {
	UserID   string `json:"userid"`
	Password string `json:"password"`
}

// AuthResponse is returned by both signup and login.
type AuthResponse struct {
	OK         bool   `json:"ok"`
	Token      string `json:"token"`
	UserID     string `json:"userid"`
	IsTreasury bool   `json:"is_treasury"`
}

// SendRequest is the DTO for incoming transfer API requests.
type SendRequest struct {
	ToUserID string `json:"to_user_id"`
	Amount   Coin   `json:"amount"`
}
