package services

import (
	"errors"
	"testing"
	"time"

	"kitchen-challenge-system/models"
)

func TestSettlementScenario(t *testing.T) {
	f := newFixture(t)
	creator := f.account(t, "creator", 0)
	b := f.account(t, "bea", 100)
	c := f.account(t, "cam", 100)

	x := f.challenge(t, creator.ID, 50, 3600)
	f.join(t, b.ID, x.ID)
	f.clock.Advance(time.Second)
	f.join(t, c.ID, x.ID)

	if got := f.balance(t, b.ID); got != 50 {
		t.Fatalf("bea balance after join = %d, want 50", got)
	}
	if got := f.balance(t, c.ID); got != 50 {
		t.Fatalf("cam balance after join = %d, want 50", got)
	}

	f.progress(t, b.ID, x.ID, 3)
	f.progress(t, c.ID, x.ID, 1)

	if _, err := f.challenges.Settle(f.ctx, x.ID); !errors.Is(err, ErrInvalidStateTransition) {
		t.Fatalf("settle before end: expected ErrInvalidStateTransition, got %v", err)
	}

	f.clock.Advance(3601 * time.Second)

	result, err := f.challenges.Settle(f.ctx, x.ID)
	if err != nil {
		t.Fatalf("settle: %v", err)
	}
	if result.Outcome != models.OutcomePaid || result.WinnerAccountID != b.ID || result.Pool != 100 || result.AlreadySettled {
		t.Fatalf("result = %+v", result)
	}

	check := func(label string) {
		t.Helper()
		if got := f.balance(t, b.ID); got != 150 {
			t.Errorf("%s: bea balance = %d, want 150", label, got)
		}
		if got := f.balance(t, c.ID); got != 50 {
			t.Errorf("%s: cam balance = %d, want 50", label, got)
		}
		var achievements []models.Achievement
		if err := f.db.Where("challenge_id = ?", x.ID).Find(&achievements).Error; err != nil {
			t.Fatalf("achievements: %v", err)
		}
		if len(achievements) != 1 {
			t.Fatalf("%s: %d achievements, want 1", label, len(achievements))
		}
		a := achievements[0]
		if a.AccountID != b.ID || a.CreditsWon != 100 || a.ChallengeName != x.Name {
			t.Errorf("%s: achievement = %+v", label, a)
		}
		if !a.CompletedAt.Equal(x.EndsAt()) {
			t.Errorf("%s: completed_at = %v, want %v", label, a.CompletedAt, x.EndsAt())
		}
	}
	check("first settle")

	again, err := f.challenges.Settle(f.ctx, x.ID)
	if err != nil {
		t.Fatalf("second settle: %v", err)
	}
	if !again.AlreadySettled || again.WinnerAccountID != b.ID {
		t.Errorf("second result = %+v", again)
	}
	check("second settle")

	winner, err := f.challenges.GetParticipation(f.ctx, b.ID, x.ID)
	if err != nil {
		t.Fatalf("get winner: %v", err)
	}
	if !winner.Credited {
		t.Error("winner participation not marked credited")
	}

	var account models.Account
	f.db.First(&account, "id = ?", b.ID)
	if account.ChallengesWon != 1 {
		t.Errorf("challenges_won = %d, want 1", account.ChallengesWon)
	}
	badges, err := f.badges.ListForAccount(f.ctx, b.ID)
	if err != nil {
		t.Fatalf("badges: %v", err)
	}
	if len(badges) != 1 || badges[0].BadgeTypeID != "CHALLENGE_CHAMPION" {
		t.Errorf("badges = %+v", badges)
	}
}

func TestSettleTieGoesToEarliestJoiner(t *testing.T) {
	f := newFixture(t)
	creator := f.account(t, "creator", 0)
	early := f.account(t, "early", 20)
	late := f.account(t, "late", 20)
	x := f.challenge(t, creator.ID, 20, 60)

	f.join(t, early.ID, x.ID)
	f.clock.Advance(time.Second)
	f.join(t, late.ID, x.ID)
	f.progress(t, late.ID, x.ID, 5)
	f.progress(t, early.ID, x.ID, 5)

	f.clock.Advance(time.Minute)
	result, err := f.challenges.Settle(f.ctx, x.ID)
	if err != nil {
		t.Fatalf("settle: %v", err)
	}
	if result.WinnerAccountID != early.ID {
		t.Errorf("winner = %s, want earliest joiner %s", result.WinnerAccountID, early.ID)
	}
	if got := f.balance(t, early.ID); got != 40 {
		t.Errorf("winner balance = %d, want 40", got)
	}
}

func TestSettleZeroProgressPolicy(t *testing.T) {
	setup := func(t *testing.T, policy ZeroProgressPolicy) (*fixture, string, string, string) {
		f := newFixture(t)
		f.challenges.ZeroProgressPolicy = policy
		creator := f.account(t, "creator", 0)
		a := f.account(t, "ana", 30)
		b := f.account(t, "ben", 30)
		x := f.challenge(t, creator.ID, 30, 60)
		f.join(t, a.ID, x.ID)
		f.clock.Advance(time.Second)
		f.join(t, b.ID, x.ID)
		f.clock.Advance(time.Minute)
		return f, x.ID, a.ID, b.ID
	}

	t.Run("refund", func(t *testing.T) {
		f, x, a, b := setup(t, ZeroProgressRefund)
		result, err := f.challenges.Settle(f.ctx, x)
		if err != nil {
			t.Fatalf("settle: %v", err)
		}
		if result.Outcome != models.OutcomeVoid || result.Refunded != 2 || result.WinnerAccountID != "" {
			t.Fatalf("result = %+v", result)
		}
		for _, id := range []string{a, b} {
			if got := f.balance(t, id); got != 30 {
				t.Errorf("balance of %s = %d, want 30", id, got)
			}
		}
		var count int64
		f.db.Model(&models.Achievement{}).Where("challenge_id = ?", x).Count(&count)
		if count != 0 {
			t.Errorf("achievements = %d, want 0", count)
		}

		if _, err := f.challenges.Settle(f.ctx, x); err != nil {
			t.Fatalf("second settle: %v", err)
		}
		if got := f.balance(t, a); got != 30 {
			t.Errorf("refund repeated: balance = %d", got)
		}
	})

	t.Run("payout", func(t *testing.T) {
		f, x, a, b := setup(t, ZeroProgressPayout)
		result, err := f.challenges.Settle(f.ctx, x)
		if err != nil {
			t.Fatalf("settle: %v", err)
		}
		if result.Outcome != models.OutcomePaid || result.WinnerAccountID != a {
			t.Fatalf("result = %+v", result)
		}
		if got := f.balance(t, a); got != 60 {
			t.Errorf("winner balance = %d, want 60", got)
		}
		if got := f.balance(t, b); got != 0 {
			t.Errorf("loser balance = %d, want 0", got)
		}
	})
}

func TestSettleEmptyChallenge(t *testing.T) {
	f := newFixture(t)
	creator := f.account(t, "creator", 0)
	x := f.challenge(t, creator.ID, 10, 0)

	result, err := f.challenges.Settle(f.ctx, x.ID)
	if err != nil {
		t.Fatalf("settle: %v", err)
	}
	if result.Outcome != models.OutcomeEmpty || result.Pool != 0 {
		t.Errorf("result = %+v", result)
	}
}

func TestGetChallengeSettlesLazily(t *testing.T) {
	f := newFixture(t)
	creator := f.account(t, "creator", 0)
	a := f.account(t, "ana", 10)
	x := f.challenge(t, creator.ID, 10, 60)
	f.join(t, a.ID, x.ID)
	f.progress(t, a.ID, x.ID, 1)

	f.clock.Advance(2 * time.Minute)

	got, err := f.challenges.GetChallenge(f.ctx, x.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !got.Ended || got.SettledAt == nil || got.Outcome != models.OutcomePaid {
		t.Fatalf("challenge = %+v", got)
	}
	if got.State != models.ChallengeStateEnded || got.ParticipantsCount != 1 {
		t.Errorf("state = %q participants = %d", got.State, got.ParticipantsCount)
	}
	if got.WinnerAccountID == nil || *got.WinnerAccountID != a.ID {
		t.Errorf("winner = %v", got.WinnerAccountID)
	}
	if bal := f.balance(t, a.ID); bal != 10 {
		t.Errorf("balance = %d, want 10", bal)
	}
}

func TestSettleEnded(t *testing.T) {
	f := newFixture(t)
	creator := f.account(t, "creator", 0)
	a := f.account(t, "ana", 10)
	ended := f.challenge(t, creator.ID, 10, 60)
	running := f.challenge(t, creator.ID, 0, 3600)
	f.join(t, a.ID, ended.ID)
	f.progress(t, a.ID, ended.ID, 2)

	f.clock.Advance(2 * time.Minute)

	n, err := f.challenges.SettleEnded(f.ctx)
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if n != 1 {
		t.Errorf("settled %d, want 1", n)
	}
	n, err = f.challenges.SettleEnded(f.ctx)
	if err != nil {
		t.Fatalf("second sweep: %v", err)
	}
	if n != 0 {
		t.Errorf("second sweep settled %d, want 0", n)
	}

	var stored models.Challenge
	f.db.First(&stored, "id = ?", running.ID)
	if stored.Ended || stored.SettledAt != nil {
		t.Errorf("running challenge touched: %+v", stored)
	}
}

func TestParseZeroProgressPolicy(t *testing.T) {
	cases := map[string]ZeroProgressPolicy{
		"":        ZeroProgressRefund,
		"refund":  ZeroProgressRefund,
		"PAYOUT ": ZeroProgressPayout,
	}
	for in, want := range cases {
		got, err := ParseZeroProgressPolicy(in)
		if err != nil || got != want {
			t.Errorf("ParseZeroProgressPolicy(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := ParseZeroProgressPolicy("split"); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
}
