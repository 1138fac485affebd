package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/aircoin/ledger-service/internal/app"
	"github.com/aircoin/ledger-service/internal/domain"
	"github.com/aircoin/ledger-service/internal/store"
)

// apiRepoStub is an in-memory Repository backing the handler tests.
type apiRepoStub struct {
	store.Repository

	mu       sync.Mutex
	accounts map[string]*domain.Account
	txs      []domain.Transaction
}

func newAPIRepoStub() *apiRepoStub {
	return &apiRepoStub{accounts: make(map[string]*domain.Account)}
}

func (s *apiRepoStub) addAccount(userID, password string, balance domain.Coin, treasury bool) {
	hash, _ := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accounts[userID] = &domain.Account{
		UserID:       userID,
		DisplayName:  userID,
		PasswordHash: string(hash),
		Balance:      balance,
		IsTreasury:   treasury,
	}
}

func (s *apiRepoStub) FindAccount(ctx context.Context, userID string) (*domain.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	account, ok := s.accounts[userID]
	if !ok {
		return nil, store.ErrAccountNotFound
	}
	copied := *account
	return &copied, nil
}

func (s *apiRepoStub) CreateAccount(ctx context.Context, account *domain.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.accounts[account.UserID]; exists {
		return store.ErrDuplicateUser
	}
	copied := *account
	s.accounts[account.UserID] = &copied
	return nil
}

func (s *apiRepoStub) ListAccounts(ctx context.Context) ([]domain.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Account, 0, len(s.accounts))
	for _, account := range s.accounts {
		out = append(out, *account)
	}
	return out, nil
}

func (s *apiRepoStub) ListTransactionsFor(ctx context.Context, userID string, limit int) ([]domain.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Transaction
	for i := len(s.txs) - 1; i >= 0 && len(out) < limit; i-- {
		tx := s.txs[i]
		if tx.FromUserID == userID || tx.ToUserID == userID {
			out = append(out, tx)
		}
	}
	return out, nil
}

func (s *apiRepoStub) TransferFunds(ctx context.Context, fromUserID, toUserID string, amount domain.Coin, senderTreasury bool) (*domain.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sender, ok := s.accounts[fromUserID]
	if !ok {
		return nil, store.ErrAccountNotFound
	}
	receiver, ok := s.accounts[toUserID]
	if !ok {
		return nil, store.ErrAccountNotFound
	}
	if !senderTreasury {
		if sender.Balance < amount {
			return nil, store.ErrInsufficientFunds
		}
		sender.Balance -= amount
	}
	receiver.Balance += amount

	tx := domain.Transaction{
		FromUserID: fromUserID,
		ToUserID:   toUserID,
		Amount:     amount,
		CreatedAt:  time.Now().UTC(),
	}
	s.txs = append(s.txs, tx)
	return &tx, nil
}

func newTestServer(repo store.Repository) (http.Handler, *app.TokenManager) {
	tokens := app.NewTokenManager("test-secret", time.Hour)
	svc := app.NewService(repo, nil, tokens, 100*domain.OneCoin, "provision-code", "aircoin.events")
	handlers := NewLedgerHandlers(svc)
	return LedgerRoutes(handlers, tokens), tokens
}

func doJSON(t *testing.T, router http.Handler, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("failed to encode request body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func TestSignupHandler(t *testing.T) {
	repo := newAPIRepoStub()
	router, tokens := newTestServer(repo)

	rr := doJSON(t, router, http.MethodPost, "/api/signup", "", domain.SignupRequest{
		Name: "Alice", UserID: "alice", Password: "hunter2",
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d body=%s", rr.Code, rr.Body.String())
	}

	var resp domain.AuthResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if !resp.OK || resp.UserID != "alice" || resp.IsTreasury {
		t.Fatalf("unexpected auth response: %+v", resp)
	}
	if subject, err := tokens.Verify(resp.Token); err != nil || subject != "alice" {
		t.Fatalf("expected usable token, subject=%q err=%v", subject, err)
	}
}

func TestSignupHandler_DuplicateUserID(t *testing.T) {
	repo := newAPIRepoStub()
	repo.addAccount("alice", "pw", 0, false)
	router, _ := newTestServer(repo)

	rr := doJSON(t, router, http.MethodPost, "/api/signup", "", domain.SignupRequest{
		Name: "Alice", UserID: "alice", Password: "hunter2",
	})
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
	if body := rr.Body.String(); !bytes.Contains([]byte(body), []byte("UserID already taken")) {
		t.Fatalf("expected duplicate userid message, got %s", body)
	}
}

func TestSignupHandler_MissingFields(t *testing.T) {
	repo := newAPIRepoStub()
	router, _ := newTestServer(repo)

	rr := doJSON(t, router, http.MethodPost, "/api/signup", "", domain.SignupRequest{
		Name: "Alice", UserID: "alice",
	})
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
}

func TestLoginHandler_UniformInvalidCredentials(t *testing.T) {
	repo := newAPIRepoStub()
	repo.addAccount("alice", "hunter2", 100*domain.OneCoin, false)
	router, _ := newTestServer(repo)

	ok := doJSON(t, router, http.MethodPost, "/api/login", "", domain.LoginRequest{UserID: "alice", Password: "hunter2"})
	if ok.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", ok.Code, ok.Body.String())
	}

	wrongPassword := doJSON(t, router, http.MethodPost, "/api/login", "", domain.LoginRequest{UserID: "alice", Password: "nope"})
	unknownUser := doJSON(t, router, http.MethodPost, "/api/login", "", domain.LoginRequest{UserID: "ghost", Password: "hunter2"})
	for _, rr := range []*httptest.ResponseRecorder{wrongPassword, unknownUser} {
		if rr.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rr.Code)
		}
		if body := rr.Body.String(); !bytes.Contains([]byte(body), []byte("Invalid credentials")) {
			t.Fatalf("expected uniform credentials message, got %s", body)
		}
	}
	if wrongPassword.Body.String() != unknownUser.Body.String() {
		t.Fatal("expected identical error bodies for wrong password and unknown user")
	}
}

func TestProtectedEndpointsRequireToken(t *testing.T) {
	repo := newAPIRepoStub()
	router, _ := newTestServer(repo)

	paths := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/api/me"},
		{http.MethodPost, "/api/send"},
		{http.MethodGet, "/api/users"},
	}
	for _, p := range paths {
		rr := doJSON(t, router, p.method, p.path, "", nil)
		if rr.Code != http.StatusUnauthorized {
			t.Fatalf("%s %s: expected 401 without token, got %d", p.method, p.path, rr.Code)
		}
	}

	rr := doJSON(t, router, http.MethodGet, "/api/me", "not-a-token", nil)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for malformed token, got %d", rr.Code)
	}
}

func TestMeHandler(t *testing.T) {
	repo := newAPIRepoStub()
	repo.addAccount("alice", "pw", 100*domain.OneCoin, false)
	repo.addAccount("mint", "pw", 0, true)
	router, tokens := newTestServer(repo)

	aliceToken, _ := tokens.Issue("alice")
	rr := doJSON(t, router, http.MethodGet, "/api/me", aliceToken, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", rr.Code, rr.Body.String())
	}
	var view domain.AccountView
	if err := json.Unmarshal(rr.Body.Bytes(), &view); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if view.UserID != "alice" || view.Balance != "100.00000000" {
		t.Fatalf("unexpected account view: %+v", view)
	}
	if view.Transactions == nil {
		t.Fatal("expected txs to decode as an empty array, not null")
	}

	mintToken, _ := tokens.Issue("mint")
	rr = doJSON(t, router, http.MethodGet, "/api/me", mintToken, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &view); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if view.Balance != domain.UnlimitedBalance {
		t.Fatalf("expected unlimited treasury balance, got %q", view.Balance)
	}
}

func TestSendHandler(t *testing.T) {
	repo := newAPIRepoStub()
	repo.addAccount("alice", "pw", 100*domain.OneCoin, false)
	repo.addAccount("bob", "pw", 0, false)
	router, tokens := newTestServer(repo)
	aliceToken, _ := tokens.Issue("alice")

	rr := doJSON(t, router, http.MethodPost, "/api/send", aliceToken, domain.SendRequest{
		ToUserID: "bob", Amount: 30 * domain.OneCoin,
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d body=%s", rr.Code, rr.Body.String())
	}
	var resp struct {
		OK bool `json:"ok"`
		Tx struct {
			FromUserID string `json:"from_user_id"`
			ToUserID   string `json:"to_user_id"`
			Amount     string `json:"amount"`
		} `json:"tx"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if !resp.OK || resp.Tx.FromUserID != "alice" || resp.Tx.ToUserID != "bob" || resp.Tx.Amount != "30.00000000" {
		t.Fatalf("unexpected send response: %+v", resp)
	}
}

func TestSendHandler_ErrorStatuses(t *testing.T) {
	repo := newAPIRepoStub()
	repo.addAccount("alice", "pw", 10*domain.OneCoin, false)
	repo.addAccount("bob", "pw", 0, false)
	router, tokens := newTestServer(repo)
	aliceToken, _ := tokens.Issue("alice")

	tests := []struct {
		name       string
		req        domain.SendRequest
		wantStatus int
	}{
		{name: "insufficient funds", req: domain.SendRequest{ToUserID: "bob", Amount: 11 * domain.OneCoin}, wantStatus: http.StatusPaymentRequired},
		{name: "unknown receiver", req: domain.SendRequest{ToUserID: "ghost", Amount: domain.OneCoin}, wantStatus: http.StatusNotFound},
		{name: "zero amount", req: domain.SendRequest{ToUserID: "bob", Amount: 0}, wantStatus: http.StatusBadRequest},
		{name: "missing receiver", req: domain.SendRequest{Amount: domain.OneCoin}, wantStatus: http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := doJSON(t, router, http.MethodPost, "/api/send", aliceToken, tt.req)
			if rr.Code != tt.wantStatus {
				t.Fatalf("expected %d, got %d body=%s", tt.wantStatus, rr.Code, rr.Body.String())
			}
		})
	}

	// None of the failures may move money.
	rr := doJSON(t, router, http.MethodGet, "/api/me", aliceToken, nil)
	var view domain.AccountView
	if err := json.Unmarshal(rr.Body.Bytes(), &view); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if view.Balance != "10.00000000" {
		t.Fatalf("expected balance unchanged after failed sends, got %q", view.Balance)
	}
}

func TestListUsersHandler(t *testing.T) {
	repo := newAPIRepoStub()
	repo.addAccount("alice", "pw", 100*domain.OneCoin, false)
	repo.addAccount("mint", "pw", 0, true)
	router, tokens := newTestServer(repo)
	token, _ := tokens.Issue("alice")

	rr := doJSON(t, router, http.MethodGet, "/api/users", token, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	var resp struct {
		Users []domain.PublicAccount `json:"users"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(resp.Users) != 2 {
		t.Fatalf("expected 2 users, got %d", len(resp.Users))
	}
	for _, u := range resp.Users {
		if u.UserID == "mint" && u.Balance != domain.UnlimitedBalance {
			t.Fatalf("expected unlimited treasury balance in listing, got %q", u.Balance)
		}
	}
	if body := rr.Body.String(); bytes.Contains([]byte(body), []byte("password")) {
		t.Fatalf("user listing leaked credential material: %s", body)
	}
}

func TestHealthEndpoint(t *testing.T) {
	repo := newAPIRepoStub()
	router, _ := newTestServer(repo)

	rr := doJSON(t, router, http.MethodGet, "/health", "", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
}
