/**
 * @description
 * Cron-scheduled ledger integrity audit.
 */
package app

import (
	"context"
	"log"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/aircoin/ledger-service/internal/store"
)

// Auditor periodically snapshots the ledger and flags invariant violations:
// a non-treasury account below zero means a balance was mutated outside the
// transfer engine's guarded path.
type Auditor struct {
	repo     store.Repository
	cron     *cron.Cron
	schedule string
}

// NewAuditor creates an auditor that runs on the given cron schedule.
func NewAuditor(repo store.Repository, schedule string) *Auditor {
	cronLogger := cron.PrintfLogger(log.Default())
	c := cron.New(cron.WithChain(cron.Recover(cronLogger)))
	return &Auditor{
		repo:     repo,
		cron:     c,
		schedule: schedule,
	}
}

// Start registers the audit job and starts the scheduler.
func (a *Auditor) Start() {
	if _, err := a.cron.AddFunc(a.schedule, a.RunAudit); err != nil {
		log.Printf("level=error component=auditor msg=\"failed to schedule integrity audit\" schedule=%s err=%v", a.schedule, err)
		return
	}
	log.Printf("level=info component=auditor msg=\"scheduled integrity audit\" schedule=%s", a.schedule)
	a.cron.Start()
}

// Stop gracefully stops the scheduler.
func (a *Auditor) Stop() context.Context {
	return a.cron.Stop()
}

// RunAudit takes one integrity snapshot. Exposed so operators can trigger it
// outside the schedule.
func (a *Auditor) RunAudit() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	total, err := a.repo.SumBalances(ctx)
	if err != nil {
		log.Printf("level=error component=auditor msg=\"supply snapshot failed\" err=%v", err)
		return
	}
	negatives, err := a.repo.CountNegativeBalances(ctx)
	if err != nil {
		log.Printf("level=error component=auditor msg=\"negative balance scan failed\" err=%v", err)
		return
	}

	if negatives > 0 {
		log.Printf("level=error component=auditor msg=\"ledger invariant violated: negative non-treasury balances\" count=%d total_supply=%s", negatives, total)
		return
	}
	log.Printf("level=info component=auditor msg=\"ledger integrity ok\" total_supply=%s negative_accounts=0", total)
}
