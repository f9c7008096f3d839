// services/credit_request_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"kitchen-challenge-system/models"
	"kitchen-challenge-system/utils"
	"strings"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// CreditRequestService is the admin-mediated top-up and withdrawal queue.
// A request leaves Pending exactly once; only approval moves credits.
type CreditRequestService struct {
	DB       *gorm.DB
	Ledger   *LedgerService
	Notifier *NotificationService
	Clock    clockwork.Clock
	Log      *zap.Logger
}

func NewCreditRequestService(db *gorm.DB, ledger *LedgerService, notifier *NotificationService, clock clockwork.Clock, logger *zap.Logger) *CreditRequestService {
	return &CreditRequestService{DB: db, Ledger: ledger, Notifier: notifier, Clock: clock, Log: logger}
}

type WithdrawalInput struct {
	Credits     int64
	PaymentMode string
	PhoneNumber string
}

// SubmitTopUp queues a top-up backed by an uploaded proof of payment.
func (s *CreditRequestService) SubmitTopUp(ctx context.Context, accountID string, credits int64, proofURL string) (*models.CreditRequest, error) {
	if credits < 1 {
		return nil, fmt.Errorf("credits must be at least 1: %w", ErrInvalidInput)
	}
	if strings.TrimSpace(proofURL) == "" {
		return nil, fmt.Errorf("proof of payment is required: %w", ErrInvalidInput)
	}

	request := &models.CreditRequest{
		ID:               uuid.NewString(),
		AccountID:        accountID,
		Status:           models.RequestStatusPending,
		ProofURL:         proofURL,
		CreditsRequested: credits,
		SubmittedAt:      s.Clock.Now().UTC(),
	}

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.Ledger.recordTx(tx, accountID, LedgerEntryInput{
			Kind:          models.LedgerKindTopUpRequested,
			ReferenceType: "credit_request",
			ReferenceID:   request.ID,
			Note:          utils.FormatCredits(credits),
		}); err != nil {
			return err
		}
		if err := tx.Create(request).Error; err != nil {
			return err
		}
		return s.Notifier.notifyAdminsTx(tx, models.NotificationTopUpSubmitted,
			fmt.Sprintf("New credit request for %s", utils.FormatCredits(credits)), request.ID)
	})
	if err != nil {
		return nil, err
	}

	s.Log.Info("top-up submitted", zap.String("request_id", request.ID), zap.String("account_id", accountID), zap.Int64("credits", credits))
	return request, nil
}

// SubmitWithdrawal queues a payout. Requests larger than the current balance
// are refused outright; approval checks the balance again.
func (s *CreditRequestService) SubmitWithdrawal(ctx context.Context, accountID string, in WithdrawalInput) (*models.CreditWithdrawRequest, error) {
	if in.Credits < 1 {
		return nil, fmt.Errorf("credits must be at least 1: %w", ErrInvalidInput)
	}
	mode := strings.TrimSpace(in.PaymentMode)
	phone := strings.TrimSpace(in.PhoneNumber)
	if mode == "" || len(mode) > 32 {
		return nil, fmt.Errorf("payment mode is required: %w", ErrInvalidInput)
	}
	if phone == "" || len(phone) > 32 {
		return nil, fmt.Errorf("phone number is required: %w", ErrInvalidInput)
	}

	request := &models.CreditWithdrawRequest{
		ID:               uuid.NewString(),
		AccountID:        accountID,
		Status:           models.RequestStatusPending,
		CreditsRequested: in.Credits,
		PaymentMode:      mode,
		PhoneNumber:      phone,
		SubmittedAt:      s.Clock.Now().UTC(),
	}

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		balance, err := s.Ledger.balanceTx(tx, accountID)
		if err != nil {
			return err
		}
		if balance < in.Credits {
			return fmt.Errorf("withdraw %d with balance %d: %w", in.Credits, balance, ErrInsufficientCredits)
		}
		if err := s.Ledger.recordTx(tx, accountID, LedgerEntryInput{
			Kind:          models.LedgerKindWithdrawalRequested,
			ReferenceType: "withdraw_request",
			ReferenceID:   request.ID,
			Note:          mode,
		}); err != nil {
			return err
		}
		if err := tx.Create(request).Error; err != nil {
			return err
		}
		return s.Notifier.notifyAdminsTx(tx, models.NotificationWithdrawalSubmitted,
			fmt.Sprintf("New withdrawal request for %s via %s", utils.FormatCredits(in.Credits), mode), request.ID)
	})
	if err != nil {
		return nil, err
	}

	s.Log.Info("withdrawal submitted", zap.String("request_id", request.ID), zap.String("account_id", accountID), zap.Int64("credits", in.Credits))
	return request, nil
}

// decide moves a pending request to status. Zero rows means the request is
// missing or was already decided.
func decide(tx *gorm.DB, model interface{}, id, adminID string, status models.RequestStatus, extra map[string]interface{}) error {
	updates := map[string]interface{}{
		"status":      status,
		"reviewed_by": adminID,
	}
	for k, v := range extra {
		updates[k] = v
	}

	result := tx.Model(model).
		Where("id = ? AND status = ?", id, models.RequestStatusPending).
		Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 1 {
		return nil
	}

	var current []models.RequestStatus
	if err := tx.Model(model).Where("id = ?", id).Pluck("status", &current).Error; err != nil {
		return err
	}
	if len(current) == 0 {
		return fmt.Errorf("request %s: %w", id, ErrNotFound)
	}
	if current[0].IsTerminal() {
		return fmt.Errorf("request %s already %s: %w", id, current[0], ErrInvalidStateTransition)
	}
	return fmt.Errorf("request %s is %s, not pending: %w", id, current[0], ErrInvalidStateTransition)
}

// ApproveTopUp credits the requested amount. A second approval fails with
// ErrInvalidStateTransition and credits nothing.
func (s *CreditRequestService) ApproveTopUp(ctx context.Context, adminID, requestID string) (*models.CreditRequest, error) {
	now := s.Clock.Now().UTC()
	var request models.CreditRequest

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := decide(tx, &models.CreditRequest{}, requestID, adminID, models.RequestStatusApproved,
			map[string]interface{}{"reviewed_at": now}); err != nil {
			return err
		}
		if err := tx.First(&request, "id = ?", requestID).Error; err != nil {
			return err
		}
		if _, err := s.Ledger.creditTx(tx, request.AccountID, request.CreditsRequested, LedgerEntryInput{
			Kind:          models.LedgerKindTopUpApproved,
			ReferenceType: "credit_request",
			ReferenceID:   request.ID,
		}); err != nil {
			return err
		}
		if err := s.Notifier.markReviewedTx(tx, request.ID); err != nil {
			return err
		}
		return s.Notifier.notifyUserTx(tx, request.AccountID, models.NotificationTopUpApproved,
			fmt.Sprintf("Your request for %s was approved.", utils.FormatCredits(request.CreditsRequested)), request.ID)
	})
	if err != nil {
		return nil, err
	}

	s.Log.Info("top-up approved", zap.String("request_id", requestID), zap.String("admin_id", adminID))
	return &request, nil
}

func (s *CreditRequestService) RejectTopUp(ctx context.Context, adminID, requestID string) (*models.CreditRequest, error) {
	now := s.Clock.Now().UTC()
	var request models.CreditRequest

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := decide(tx, &models.CreditRequest{}, requestID, adminID, models.RequestStatusRejected,
			map[string]interface{}{"reviewed_at": now}); err != nil {
			return err
		}
		if err := tx.First(&request, "id = ?", requestID).Error; err != nil {
			return err
		}
		if err := s.Ledger.recordTx(tx, request.AccountID, LedgerEntryInput{
			Kind:          models.LedgerKindTopUpRejected,
			ReferenceType: "credit_request",
			ReferenceID:   request.ID,
		}); err != nil {
			return err
		}
		if err := s.Notifier.markReviewedTx(tx, request.ID); err != nil {
			return err
		}
		return s.Notifier.notifyUserTx(tx, request.AccountID, models.NotificationTopUpRejected,
			fmt.Sprintf("Your request for %s was rejected.", utils.FormatCredits(request.CreditsRequested)), request.ID)
	})
	if err != nil {
		return nil, err
	}

	s.Log.Info("top-up rejected", zap.String("request_id", requestID), zap.String("admin_id", adminID))
	return &request, nil
}

// ApproveWithdrawal deducts the requested amount. If the balance no longer
// covers it the whole transaction rolls back and the request stays Pending.
func (s *CreditRequestService) ApproveWithdrawal(ctx context.Context, adminID, requestID string) (*models.CreditWithdrawRequest, error) {
	now := s.Clock.Now().UTC()
	var request models.CreditWithdrawRequest

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := decide(tx, &models.CreditWithdrawRequest{}, requestID, adminID, models.RequestStatusApproved,
			map[string]interface{}{"reviewed_at": now, "approved_at": now}); err != nil {
			return err
		}
		if err := tx.First(&request, "id = ?", requestID).Error; err != nil {
			return err
		}
		if _, err := s.Ledger.deductTx(tx, request.AccountID, request.CreditsRequested, LedgerEntryInput{
			Kind:          models.LedgerKindWithdrawalApproved,
			ReferenceType: "withdraw_request",
			ReferenceID:   request.ID,
			Note:          request.PaymentMode,
		}); err != nil {
			return err
		}
		if err := s.Notifier.markReviewedTx(tx, request.ID); err != nil {
			return err
		}
		return s.Notifier.notifyUserTx(tx, request.AccountID, models.NotificationWithdrawalApproved,
			fmt.Sprintf("Your withdrawal of %s via %s was approved.", utils.FormatCredits(request.CreditsRequested), request.PaymentMode), request.ID)
	})
	if err != nil {
		if errors.Is(err, ErrInsufficientCredits) {
			s.Log.Warn("withdrawal approval refused, balance too low", zap.String("request_id", requestID))
		}
		return nil, err
	}

	s.Log.Info("withdrawal approved", zap.String("request_id", requestID), zap.String("admin_id", adminID))
	return &request, nil
}

func (s *CreditRequestService) RejectWithdrawal(ctx context.Context, adminID, requestID string) (*models.CreditWithdrawRequest, error) {
	now := s.Clock.Now().UTC()
	var request models.CreditWithdrawRequest

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := decide(tx, &models.CreditWithdrawRequest{}, requestID, adminID, models.RequestStatusRejected,
			map[string]interface{}{"reviewed_at": now}); err != nil {
			return err
		}
		if err := tx.First(&request, "id = ?", requestID).Error; err != nil {
			return err
		}
		if err := s.Ledger.recordTx(tx, request.AccountID, LedgerEntryInput{
			Kind:          models.LedgerKindWithdrawalRejected,
			ReferenceType: "withdraw_request",
			ReferenceID:   request.ID,
		}); err != nil {
			return err
		}
		if err := s.Notifier.markReviewedTx(tx, request.ID); err != nil {
			return err
		}
		return s.Notifier.notifyUserTx(tx, request.AccountID, models.NotificationWithdrawalRejected,
			fmt.Sprintf("Your withdrawal of %s was rejected.", utils.FormatCredits(request.CreditsRequested)), request.ID)
	})
	if err != nil {
		return nil, err
	}

	s.Log.Info("withdrawal rejected", zap.String("request_id", requestID), zap.String("admin_id", adminID))
	return &request, nil
}

// GrantCredits lets an admin add credits directly, outside the request queue.
func (s *CreditRequestService) GrantCredits(ctx context.Context, adminID, accountID string, amount int64, note string) (int64, error) {
	if amount < 1 {
		return 0, fmt.Errorf("grant %d: %w", amount, ErrInvalidInput)
	}

	var balance int64
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		balance, err = s.Ledger.creditTx(tx, accountID, amount, LedgerEntryInput{
			Kind:          models.LedgerKindAdminGrant,
			ReferenceType: "admin",
			ReferenceID:   adminID,
			Note:          note,
		})
		if err != nil {
			return err
		}
		return s.Notifier.notifyUserTx(tx, accountID, models.NotificationCreditsGranted,
			fmt.Sprintf("An admin added %s to your account.", utils.FormatCredits(amount)), adminID)
	})
	if err != nil {
		return 0, err
	}

	s.Log.Info("credits granted", zap.String("account_id", accountID), zap.String("admin_id", adminID), zap.Int64("amount", amount))
	return balance, nil
}

func (s *CreditRequestService) ListPendingTopUps(ctx context.Context) ([]models.CreditRequest, error) {
	var requests []models.CreditRequest
	err := s.DB.WithContext(ctx).
		Preload("Account").
		Where("status = ?", models.RequestStatusPending).
		Order("submitted_at ASC").
		Find(&requests).Error
	return requests, err
}

func (s *CreditRequestService) ListPendingWithdrawals(ctx context.Context) ([]models.CreditWithdrawRequest, error) {
	var requests []models.CreditWithdrawRequest
	err := s.DB.WithContext(ctx).
		Preload("Account").
		Where("status = ?", models.RequestStatusPending).
		Order("submitted_at ASC").
		Find(&requests).Error
	return requests, err
}

func (s *CreditRequestService) ListTopUps(ctx context.Context, accountID string) ([]models.CreditRequest, error) {
	var requests []models.CreditRequest
	err := s.DB.WithContext(ctx).
		Where("account_id = ?", accountID).
		Order("submitted_at DESC").
		Find(&requests).Error
	return requests, err
}

func (s *CreditRequestService) ListWithdrawals(ctx context.Context, accountID string) ([]models.CreditWithdrawRequest, error) {
	var requests []models.CreditWithdrawRequest
	err := s.DB.WithContext(ctx).
		Where("account_id = ?", accountID).
		Order("submitted_at DESC").
		Find(&requests).Error
	return requests, err
}
