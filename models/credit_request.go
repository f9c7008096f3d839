package models

import (
	"time"
)

type RequestStatus string

const (
	RequestStatusPending  RequestStatus = "pending"
	RequestStatusApproved RequestStatus = "approved"
	RequestStatusRejected RequestStatus = "rejected"
)

// IsTerminal reports whether the status can no longer change.
func (s RequestStatus) IsTerminal() bool {
	return s == RequestStatusApproved || s == RequestStatusRejected
}

// CreditRequest is a top-up request backed by an uploaded payment proof.
type CreditRequest struct {
	ID               string        `gorm:"primaryKey;type:uuid" json:"id"`
	AccountID        string        `gorm:"type:uuid;not null;index" json:"account_id"`
	Status           RequestStatus `gorm:"type:varchar(16);not null;default:'pending';index" json:"status"`
	ProofURL         string        `gorm:"type:text" json:"proof_url"`
	CreditsRequested int64         `gorm:"not null;check:credits_requested > 0" json:"credits_requested"`
	SubmittedAt      time.Time     `gorm:"not null" json:"submitted_at"`
	ReviewedBy       *string       `gorm:"type:uuid" json:"reviewed_by,omitempty"`
	ReviewedAt       *time.Time    `json:"reviewed_at,omitempty"`

	Account *Account `json:"account,omitempty" gorm:"foreignKey:AccountID"`

	Timestamps
}

// CreditWithdrawRequest asks for credits to be paid out through an external channel.
type CreditWithdrawRequest struct {
	ID               string        `gorm:"primaryKey;type:uuid" json:"id"`
	AccountID        string        `gorm:"type:uuid;not null;index" json:"account_id"`
	Status           RequestStatus `gorm:"type:varchar(16);not null;default:'pending';index" json:"status"`
	CreditsRequested int64         `gorm:"not null;check:credits_requested > 0" json:"credits_requested"`
	PaymentMode      string        `gorm:"type:varchar(32);not null" json:"payment_mode"`
	PhoneNumber      string        `gorm:"type:varchar(32);not null" json:"phone_number"`
	SubmittedAt      time.Time     `gorm:"not null" json:"submitted_at"`
	ApprovedAt       *time.Time    `json:"approved_at,omitempty"`
	ReviewedBy       *string       `gorm:"type:uuid" json:"reviewed_by,omitempty"`
	ReviewedAt       *time.Time    `json:"reviewed_at,omitempty"`

	Account *Account `json:"account,omitempty" gorm:"foreignKey:AccountID"`

	Timestamps
}
