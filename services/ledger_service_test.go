package services

import (
	"errors"
	"testing"
	"time"

	"kitchen-challenge-system/models"
)

func TestLedgerDeduct(t *testing.T) {
	f := newFixture(t)
	a := f.account(t, "ana", 50)

	t.Run("more than balance fails and leaves balance", func(t *testing.T) {
		_, err := f.ledger.Deduct(f.ctx, a.ID, 60, LedgerEntryInput{Kind: models.LedgerKindWager})
		if !errors.Is(err, ErrInsufficientCredits) {
			t.Fatalf("expected ErrInsufficientCredits, got %v", err)
		}
		if got := f.balance(t, a.ID); got != 50 {
			t.Errorf("balance = %d, want 50", got)
		}
	})

	t.Run("exact balance drains to zero", func(t *testing.T) {
		balance, err := f.ledger.Deduct(f.ctx, a.ID, 50, LedgerEntryInput{Kind: models.LedgerKindWager})
		if err != nil {
			t.Fatalf("deduct: %v", err)
		}
		if balance != 0 {
			t.Errorf("returned balance = %d, want 0", balance)
		}
		if got := f.balance(t, a.ID); got != 0 {
			t.Errorf("balance = %d, want 0", got)
		}
	})

	t.Run("unknown account", func(t *testing.T) {
		_, err := f.ledger.Deduct(f.ctx, "00000000-0000-0000-0000-000000000000", 1, LedgerEntryInput{Kind: models.LedgerKindWager})
		if !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("negative amount", func(t *testing.T) {
		_, err := f.ledger.Deduct(f.ctx, a.ID, -5, LedgerEntryInput{Kind: models.LedgerKindWager})
		if !errors.Is(err, ErrInvalidInput) {
			t.Fatalf("expected ErrInvalidInput, got %v", err)
		}
	})
}

func TestLedgerCreditAndHistory(t *testing.T) {
	f := newFixture(t)
	a := f.account(t, "ben", 10)

	if _, err := f.ledger.Credit(f.ctx, a.ID, 90, LedgerEntryInput{Kind: models.LedgerKindAdminGrant, Note: "welcome"}); err != nil {
		t.Fatalf("credit: %v", err)
	}
	f.clock.Advance(time.Second)
	if _, err := f.ledger.Deduct(f.ctx, a.ID, 30, LedgerEntryInput{Kind: models.LedgerKindWager}); err != nil {
		t.Fatalf("deduct: %v", err)
	}

	if got := f.balance(t, a.ID); got != 70 {
		t.Fatalf("balance = %d, want 70", got)
	}

	entries, err := f.ledger.History(f.ctx, a.ID, 10)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(entries))
	}
	if entries[0].Kind != models.LedgerKindWager || entries[0].Amount != -30 || entries[0].BalanceAfter != 70 {
		t.Errorf("newest entry = %+v", entries[0])
	}
	if entries[1].Kind != models.LedgerKindAdminGrant || entries[1].Amount != 90 || entries[1].BalanceAfter != 100 {
		t.Errorf("oldest entry = %+v", entries[1])
	}

	if _, err := f.ledger.Credit(f.ctx, "00000000-0000-0000-0000-000000000000", 5, LedgerEntryInput{Kind: models.LedgerKindAdminGrant}); !errors.Is(err, ErrNotFound) {
		t.Errorf("credit unknown account: expected ErrNotFound, got %v", err)
	}
}
