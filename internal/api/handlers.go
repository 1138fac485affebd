/**
 * @description
 * This file contains the HTTP handlers for the ledger-service's API endpoints.
 * Handlers are responsible for parsing incoming requests, calling the appropriate
 * methods on the application service, and writing the HTTP response. They act as the
 * bridge between the web layer and the business logic layer.
 *
 * @dependencies
 * - encoding/json, log, net/http: Standard Go libraries.
 * - internal/app, internal/domain, internal/store: For service logic, models, and custom errors.
 */

package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/aircoin/ledger-service/internal/app"
	"github.com/aircoin/ledger-service/internal/domain"
	"github.com/aircoin/ledger-service/internal/store"
)

// LedgerHandlers holds the application service that handlers will use.
type LedgerHandlers struct {
	service *app.Service
}

// NewLedgerHandlers creates a new instance of LedgerHandlers.
func NewLedgerHandlers(service *app.Service) *LedgerHandlers {
	return &LedgerHandlers{service: service}
}

type sendResponse struct {
	OK          bool                `json:"ok"`
	Transaction *domain.Transaction `json:"tx"`
}

type accountListResponse struct {
	Users []domain.PublicAccount `json:"users"`
}

// SignupHandler registers a new account and returns a bearer token for it.
func (h *LedgerHandlers) SignupHandler(w http.ResponseWriter, r *http.Request) {
	var req domain.SignupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Printf("level=warn component=api endpoint=signup outcome=reject reason=invalid_json err=%v", err)
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	account, token, err := h.service.Signup(r.Context(), req)
	if err != nil {
		h.writeSignupError(w, req.UserID, err)
		return
	}

	log.Printf("level=info component=api endpoint=signup outcome=created user_id=%s is_treasury=%t", account.UserID, account.IsTreasury)
	writeJSON(w, http.StatusCreated, domain.AuthResponse{
		OK:         true,
		Token:      token,
		UserID:     account.UserID,
		IsTreasury: account.IsTreasury,
	})
}

func (h *LedgerHandlers) writeSignupError(w http.ResponseWriter, userID string, err error) {
	switch {
	case errors.Is(err, app.ErrMissingFields):
		writeError(w, http.StatusBadRequest, "Name, userid and password are required")
	case errors.Is(err, store.ErrDuplicateUser):
		log.Printf("level=warn component=api endpoint=signup outcome=reject reason=duplicate_user user_id=%s", userID)
		writeError(w, http.StatusBadRequest, "UserID already taken")
	case errors.Is(err, store.ErrStorageUnavailable):
		writeError(w, http.StatusServiceUnavailable, "Service temporarily unavailable")
	default:
		log.Printf("level=error component=api endpoint=signup outcome=failed user_id=%s err=%v", userID, err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
	}
}

// LoginHandler authenticates an existing account and returns a fresh token.
func (h *LedgerHandlers) LoginHandler(w http.ResponseWriter, r *http.Request) {
	var req domain.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Printf("level=warn component=api endpoint=login outcome=reject reason=invalid_json err=%v", err)
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	account, token, err := h.service.Login(r.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, app.ErrInvalidCredentials):
			// Uniform message whether the account is missing or the password is wrong.
			writeError(w, http.StatusBadRequest, "Invalid credentials")
		case errors.Is(err, store.ErrStorageUnavailable):
			writeError(w, http.StatusServiceUnavailable, "Service temporarily unavailable")
		default:
			log.Printf("level=error component=api endpoint=login outcome=failed err=%v", err)
			writeError(w, http.StatusInternalServerError, "Internal server error")
		}
		return
	}

	log.Printf("level=info component=api endpoint=login outcome=ok user_id=%s", account.UserID)
	writeJSON(w, http.StatusOK, domain.AuthResponse{
		OK:         true,
		Token:      token,
		UserID:     account.UserID,
		IsTreasury: account.IsTreasury,
	})
}

// MeHandler returns the authenticated account's profile, display balance and
// recent transaction history.
func (h *LedgerHandlers) MeHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetAuthUserID(r.Context())
	if !ok {
		writeError(w, http.StatusInternalServerError, "Could not get user ID from context")
		return
	}

	view, err := h.service.GetAccountView(r.Context(), userID)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrAccountNotFound):
			writeError(w, http.StatusNotFound, "Account not found")
		case errors.Is(err, store.ErrStorageUnavailable):
			writeError(w, http.StatusServiceUnavailable, "Service temporarily unavailable")
		default:
			log.Printf("level=error component=api endpoint=me outcome=failed user_id=%s err=%v", userID, err)
			writeError(w, http.StatusInternalServerError, "Internal server error")
		}
		return
	}

	writeJSON(w, http.StatusOK, view)
}

// SendHandler moves funds from the authenticated account to another account.
func (h *LedgerHandlers) SendHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetAuthUserID(r.Context())
	if !ok {
		writeError(w, http.StatusInternalServerError, "Could not get user ID from context")
		return
	}

	var req domain.SendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Printf("level=warn component=api endpoint=send outcome=reject reason=invalid_json sender_id=%s err=%v", userID, err)
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	tx, err := h.service.Transfer(r.Context(), userID, req.ToUserID, req.Amount)
	if err != nil {
		log.Printf("level=warn component=api endpoint=send outcome=failed sender_id=%s receiver_id=%s err=%v", userID, req.ToUserID, err)
		switch {
		case errors.Is(err, app.ErrInvalidTransfer):
			writeError(w, http.StatusBadRequest, "A positive amount and a receiver are required")
		case errors.Is(err, store.ErrInsufficientFunds):
			writeError(w, http.StatusPaymentRequired, "Insufficient funds")
		case errors.Is(err, app.ErrReceiverNotFound):
			writeError(w, http.StatusNotFound, "Receiver not found")
		case errors.Is(err, store.ErrAccountNotFound):
			writeError(w, http.StatusNotFound, "Account not found")
		case errors.Is(err, app.ErrRateLimited):
			writeError(w, http.StatusTooManyRequests, "Too many transfers. Please wait a moment and try again.")
		case errors.Is(err, store.ErrStorageUnavailable):
			writeError(w, http.StatusServiceUnavailable, "Service temporarily unavailable")
		default:
			log.Printf("level=error component=api endpoint=send outcome=failed sender_id=%s err=%v", userID, err)
			writeError(w, http.StatusInternalServerError, "Internal server error")
		}
		return
	}

	log.Printf("level=info component=api endpoint=send outcome=completed tx_id=%s sender_id=%s receiver_id=%s amount=%s", tx.ID, tx.FromUserID, tx.ToUserID, tx.Amount)
	writeJSON(w, http.StatusCreated, sendResponse{OK: true, Transaction: tx})
}

// ListUsersHandler returns the public directory of accounts.
func (h *LedgerHandlers) ListUsersHandler(w http.ResponseWriter, r *http.Request) {
	users, err := h.service.ListAccountsPublic(r.Context())
	if err != nil {
		if errors.Is(err, store.ErrStorageUnavailable) {
			writeError(w, http.StatusServiceUnavailable, "Service temporarily unavailable")
			return
		}
		log.Printf("level=error component=api endpoint=users outcome=failed err=%v", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	writeJSON(w, http.StatusOK, accountListResponse{Users: users})
}

// writeJSON is a helper for writing JSON responses.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// writeError is a helper for writing JSON error responses.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
