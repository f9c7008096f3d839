package services

import (
	"context"
	"testing"
	"time"

	"kitchen-challenge-system/models"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
)

func TestSettlementSchedulerSweepsOnStart(t *testing.T) {
	db := newTestDB(t)
	clock := clockwork.NewRealClock()
	log := zap.NewNop()
	ledger := NewLedgerService(db, clock, log)
	notifier := NewNotificationService(db, clock)
	badges := NewBadgeService(db, clock, notifier, log)
	challenges := NewChallengeService(db, ledger, badges, notifier, nil, clock, log, ZeroProgressRefund)

	creator := &models.Account{ID: "11111111-1111-1111-1111-111111111111", DisplayName: "chef", Email: "chef@example.com"}
	player := &models.Account{ID: "22222222-2222-2222-2222-222222222222", DisplayName: "ana", Email: "ana@example.com", CreditBalance: 5}
	if err := db.Create([]*models.Account{creator, player}).Error; err != nil {
		t.Fatalf("accounts: %v", err)
	}

	ctx := context.Background()
	c, err := challenges.CreateChallenge(ctx, CreateChallengeInput{CreatorID: creator.ID, Name: "Quick Bake", CreditsRequired: 5, DurationSeconds: 1})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := challenges.JoinChallenge(ctx, player.ID, c.ID); err != nil {
		t.Fatalf("join: %v", err)
	}
	if _, err := challenges.IncrementProgress(ctx, player.ID, c.ID, 1); err != nil {
		t.Fatalf("progress: %v", err)
	}

	time.Sleep(1100 * time.Millisecond)

	sched, err := challenges.StartSettlementScheduler(ctx, time.Hour)
	if err != nil {
		t.Fatalf("start scheduler: %v", err)
	}
	t.Cleanup(func() { _ = sched.Shutdown() })

	deadline := time.Now().Add(5 * time.Second)
	for {
		var stored models.Challenge
		if err := db.First(&stored, "id = ?", c.ID).Error; err != nil {
			t.Fatalf("reload: %v", err)
		}
		if stored.SettledAt != nil {
			if stored.Outcome != models.OutcomePaid {
				t.Errorf("outcome = %q, want paid", stored.Outcome)
			}
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("scheduler did not settle the ended challenge")
		}
		time.Sleep(50 * time.Millisecond)
	}
}
