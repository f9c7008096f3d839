package models

import (
	"time"
)

type LedgerKind string

const (
	LedgerKindTopUpRequested      LedgerKind = "topup_requested"
	LedgerKindTopUpApproved       LedgerKind = "topup_approved"
	LedgerKindTopUpRejected       LedgerKind = "topup_rejected"
	LedgerKindWithdrawalRequested LedgerKind = "withdrawal_requested"
	LedgerKindWithdrawalApproved  LedgerKind = "withdrawal_approved"
	LedgerKindWithdrawalRejected  LedgerKind = "withdrawal_rejected"
	LedgerKindWager               LedgerKind = "wager"
	LedgerKindPayout              LedgerKind = "payout"
	LedgerKindRefund              LedgerKind = "refund"
	LedgerKindAdminGrant          LedgerKind = "admin_grant"
)

// LedgerEntry is an append-only record of a credit-affecting event.
// Amount is signed; request and rejection events carry zero.
type LedgerEntry struct {
	ID            string     `gorm:"primaryKey;type:uuid" json:"id"`
	AccountID     string     `gorm:"type:uuid;not null;index" json:"account_id"`
	Kind          LedgerKind `gorm:"type:varchar(32);not null;index" json:"kind"`
	Amount        int64      `gorm:"not null" json:"amount"`
	BalanceAfter  int64      `gorm:"not null" json:"balance_after"`
	ReferenceType string     `gorm:"type:varchar(32)" json:"reference_type,omitempty"`
	ReferenceID   string     `gorm:"index" json:"reference_id,omitempty"`
	Note          string     `gorm:"type:text" json:"note,omitempty"`
	CreatedAt     time.Time  `gorm:"not null;index" json:"created_at"`
}
