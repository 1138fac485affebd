package app

import (
	"context"
	"errors"
	"testing"

	"github.com/aircoin/ledger-service/internal/domain"
	"github.com/aircoin/ledger-service/internal/store"
)

type auditRepoStub struct {
	store.Repository

	total       domain.Coin
	negatives   int64
	sumErr      error
	negativeErr error

	sumCalled      bool
	negativeCalled bool
}

func (s *auditRepoStub) SumBalances(ctx context.Context) (domain.Coin, error) {
	s.sumCalled = true
	return s.total, s.sumErr
}

func (s *auditRepoStub) CountNegativeBalances(ctx context.Context) (int64, error) {
	s.negativeCalled = true
	return s.negatives, s.negativeErr
}

func TestAuditor_RunAuditQueriesBothChecks(t *testing.T) {
	repo := &auditRepoStub{total: 500 * domain.OneCoin, negatives: 0}
	auditor := NewAuditor(repo, "@hourly")

	auditor.RunAudit()

	if !repo.sumCalled || !repo.negativeCalled {
		t.Fatalf("expected both integrity queries to run, sum=%t negatives=%t", repo.sumCalled, repo.negativeCalled)
	}
}

func TestAuditor_RunAuditSurvivesStoreErrors(t *testing.T) {
	repo := &auditRepoStub{sumErr: errors.New("connection reset"), negativeErr: errors.New("connection reset")}
	auditor := NewAuditor(repo, "@hourly")

	// Must only log, never panic.
	auditor.RunAudit()
}
