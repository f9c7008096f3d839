package services

import (
	"errors"
	"strings"
	"testing"

	"kitchen-challenge-system/models"
)

func TestTopUpApproval(t *testing.T) {
	f := newFixture(t)
	admin := f.account(t, "admin", 0)
	u := f.account(t, "ana", 0)

	req, err := f.requests.SubmitTopUp(f.ctx, u.ID, 200, "https://cdn.example.com/proofs/a.png")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if req.Status != models.RequestStatusPending {
		t.Fatalf("status = %q", req.Status)
	}
	if got := f.balance(t, u.ID); got != 0 {
		t.Fatalf("balance changed on submit: %d", got)
	}

	pending, err := f.notifier.ListForAdmins(f.ctx)
	if err != nil {
		t.Fatalf("admin notifications: %v", err)
	}
	if len(pending) != 1 || pending[0].ReferenceID != req.ID {
		t.Fatalf("admin notifications = %+v", pending)
	}

	approved, err := f.requests.ApproveTopUp(f.ctx, admin.ID, req.ID)
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	if approved.Status != models.RequestStatusApproved || approved.ReviewedBy == nil || *approved.ReviewedBy != admin.ID {
		t.Errorf("approved = %+v", approved)
	}
	if got := f.balance(t, u.ID); got != 200 {
		t.Fatalf("balance = %d, want 200", got)
	}

	_, err = f.requests.ApproveTopUp(f.ctx, admin.ID, req.ID)
	if !errors.Is(err, ErrInvalidStateTransition) {
		t.Fatalf("second approve: expected ErrInvalidStateTransition, got %v", err)
	}
	if !strings.Contains(err.Error(), "already approved") {
		t.Errorf("second approve error = %q, want it to name the approved status", err)
	}
	if _, err := f.requests.RejectTopUp(f.ctx, admin.ID, req.ID); !errors.Is(err, ErrInvalidStateTransition) {
		t.Fatalf("reject after approve: expected ErrInvalidStateTransition, got %v", err)
	}
	if got := f.balance(t, u.ID); got != 200 {
		t.Errorf("balance after repeat = %d, want 200", got)
	}

	pending, _ = f.notifier.ListForAdmins(f.ctx)
	if len(pending) != 0 {
		t.Errorf("admin notification not marked reviewed: %+v", pending)
	}
	counts, err := f.notifier.Counts(f.ctx, u.ID)
	if err != nil {
		t.Fatalf("counts: %v", err)
	}
	if counts.Total != 1 || counts.Unviewed != 1 {
		t.Errorf("counts = %+v", counts)
	}

	if _, err := f.requests.ApproveTopUp(f.ctx, admin.ID, "00000000-0000-0000-0000-000000000000"); !errors.Is(err, ErrNotFound) {
		t.Errorf("unknown request: expected ErrNotFound, got %v", err)
	}
}

func TestTopUpRejectAndValidation(t *testing.T) {
	f := newFixture(t)
	admin := f.account(t, "admin", 0)
	u := f.account(t, "ana", 5)

	if _, err := f.requests.SubmitTopUp(f.ctx, u.ID, 0, "proof.png"); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("zero credits: expected ErrInvalidInput, got %v", err)
	}
	if _, err := f.requests.SubmitTopUp(f.ctx, u.ID, 10, ""); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("missing proof: expected ErrInvalidInput, got %v", err)
	}

	req, err := f.requests.SubmitTopUp(f.ctx, u.ID, 10, "proof.png")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	rejected, err := f.requests.RejectTopUp(f.ctx, admin.ID, req.ID)
	if err != nil {
		t.Fatalf("reject: %v", err)
	}
	if rejected.Status != models.RequestStatusRejected {
		t.Errorf("status = %q", rejected.Status)
	}
	if _, err := f.requests.ApproveTopUp(f.ctx, admin.ID, req.ID); !errors.Is(err, ErrInvalidStateTransition) {
		t.Fatalf("approve after reject: expected ErrInvalidStateTransition, got %v", err)
	}
	if got := f.balance(t, u.ID); got != 5 {
		t.Errorf("balance = %d, want 5", got)
	}

	mine, err := f.requests.ListTopUps(f.ctx, u.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(mine) != 1 {
		t.Errorf("requests = %d, want 1", len(mine))
	}
}

func TestWithdrawalOverBalanceIsRefused(t *testing.T) {
	f := newFixture(t)
	u := f.account(t, "ana", 200)

	_, err := f.requests.SubmitWithdrawal(f.ctx, u.ID, WithdrawalInput{Credits: 300, PaymentMode: "Bank Transfer", PhoneNumber: "1234567890"})
	if !errors.Is(err, ErrInsufficientCredits) {
		t.Fatalf("expected ErrInsufficientCredits, got %v", err)
	}
	if got := f.balance(t, u.ID); got != 200 {
		t.Errorf("balance = %d, want 200", got)
	}
	var count int64
	f.db.Model(&models.CreditWithdrawRequest{}).Where("account_id = ?", u.ID).Count(&count)
	if count != 0 {
		t.Errorf("withdraw requests = %d, want 0", count)
	}
}

func TestWithdrawalApproval(t *testing.T) {
	f := newFixture(t)
	admin := f.account(t, "admin", 0)
	creator := f.account(t, "chef", 0)
	u := f.account(t, "ana", 200)

	req, err := f.requests.SubmitWithdrawal(f.ctx, u.ID, WithdrawalInput{Credits: 150, PaymentMode: "PayPal", PhoneNumber: "9876543210"})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	// Balance drops below the request before an admin gets to it.
	c := f.challenge(t, creator.ID, 100, 3600)
	f.join(t, u.ID, c.ID)

	if _, err := f.requests.ApproveWithdrawal(f.ctx, admin.ID, req.ID); !errors.Is(err, ErrInsufficientCredits) {
		t.Fatalf("expected ErrInsufficientCredits, got %v", err)
	}
	var stored models.CreditWithdrawRequest
	f.db.First(&stored, "id = ?", req.ID)
	if stored.Status != models.RequestStatusPending {
		t.Fatalf("status = %q, want pending", stored.Status)
	}
	if got := f.balance(t, u.ID); got != 100 {
		t.Fatalf("balance = %d, want 100", got)
	}

	if _, err := f.requests.GrantCredits(f.ctx, admin.ID, u.ID, 50, "goodwill"); err != nil {
		t.Fatalf("grant: %v", err)
	}
	approved, err := f.requests.ApproveWithdrawal(f.ctx, admin.ID, req.ID)
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	if approved.Status != models.RequestStatusApproved || approved.ApprovedAt == nil {
		t.Errorf("approved = %+v", approved)
	}
	if got := f.balance(t, u.ID); got != 0 {
		t.Errorf("balance = %d, want 0", got)
	}
	if _, err := f.requests.RejectWithdrawal(f.ctx, admin.ID, req.ID); !errors.Is(err, ErrInvalidStateTransition) {
		t.Errorf("reject after approve: expected ErrInvalidStateTransition, got %v", err)
	}
}

func TestWithdrawalValidation(t *testing.T) {
	f := newFixture(t)
	u := f.account(t, "ana", 100)

	cases := []struct {
		name string
		in   WithdrawalInput
	}{
		{"zero credits", WithdrawalInput{Credits: 0, PaymentMode: "PayPal", PhoneNumber: "1"}},
		{"no payment mode", WithdrawalInput{Credits: 10, PhoneNumber: "1"}},
		{"no phone", WithdrawalInput{Credits: 10, PaymentMode: "PayPal"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := f.requests.SubmitWithdrawal(f.ctx, u.ID, tc.in); !errors.Is(err, ErrInvalidInput) {
				t.Fatalf("expected ErrInvalidInput, got %v", err)
			}
		})
	}
}

func TestGrantCredits(t *testing.T) {
	f := newFixture(t)
	admin := f.account(t, "admin", 0)
	u := f.account(t, "ana", 0)

	balance, err := f.requests.GrantCredits(f.ctx, admin.ID, u.ID, 1500, "")
	if err != nil {
		t.Fatalf("grant: %v", err)
	}
	if balance != 1500 {
		t.Errorf("balance = %d, want 1500", balance)
	}
	notes, err := f.notifier.ListForAccount(f.ctx, u.ID, true, 0)
	if err != nil {
		t.Fatalf("notifications: %v", err)
	}
	if len(notes) != 1 || notes[0].Message != "An admin added 1,500 credits to your account." {
		t.Errorf("notifications = %+v", notes)
	}
	if _, err := f.requests.GrantCredits(f.ctx, admin.ID, u.ID, 0, ""); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("zero grant: expected ErrInvalidInput, got %v", err)
	}
}
