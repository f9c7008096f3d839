// services/settlement.go
package services

import (
	"context"
	"errors"
	"fmt"
	"kitchen-challenge-system/models"
	"kitchen-challenge-system/utils"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ZeroProgressPolicy decides what happens when nobody made any progress.
type ZeroProgressPolicy string

const (
	// ZeroProgressRefund voids the challenge and returns every wager.
	ZeroProgressRefund ZeroProgressPolicy = "refund"
	// ZeroProgressPayout pays the pool to the earliest joiner.
	ZeroProgressPayout ZeroProgressPolicy = "payout"
)

func ParseZeroProgressPolicy(v string) (ZeroProgressPolicy, error) {
	switch p := ZeroProgressPolicy(strings.ToLower(strings.TrimSpace(v))); p {
	case "":
		return ZeroProgressRefund, nil
	case ZeroProgressRefund, ZeroProgressPayout:
		return p, nil
	}
	return "", fmt.Errorf("zero progress policy %q: %w", v, ErrInvalidInput)
}

type SettlementResult struct {
	ChallengeID     string                   `json:"challenge_id"`
	Outcome         models.SettlementOutcome `json:"outcome"`
	WinnerAccountID string                   `json:"winner_account_id,omitempty"`
	Pool            int64                    `json:"pool"`
	Refunded        int                      `json:"refunded,omitempty"`
	AlreadySettled  bool                     `json:"already_settled"`
}

// Settle closes out an ended challenge: the top-ranked participant is
// credited the whole pool and gets an Achievement. Repeated or concurrent
// calls pay at most once; later calls report AlreadySettled.
func (s *ChallengeService) Settle(ctx context.Context, challengeID string) (*SettlementResult, error) {
	now := s.now()
	result := &SettlementResult{ChallengeID: challengeID}

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		challenge, err := lockChallengeTx(tx, challengeID)
		if err != nil {
			return err
		}
		if !challenge.HasEnded(now) {
			return fmt.Errorf("settle %s before it ends: %w", challengeID, ErrInvalidStateTransition)
		}
		if !challenge.Ended {
			if err := markEndedTx(tx, challengeID); err != nil {
				return err
			}
		}

		if challenge.IsSettled() {
			result.Outcome = challenge.Outcome
			result.Pool = challenge.Pool
			if challenge.WinnerAccountID != nil {
				result.WinnerAccountID = *challenge.WinnerAccountID
			}
			result.AlreadySettled = true
			return nil
		}

		var participations []models.Participation
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("challenge_id = ?", challengeID).
			Scopes(rankOrder).
			Find(&participations).Error; err != nil {
			return err
		}
		for _, p := range participations {
			result.Pool += p.WageredCredits
		}

		switch {
		case len(participations) == 0:
			result.Outcome = models.OutcomeEmpty
		case participations[0].Credited:
			result.Outcome = models.OutcomePaid
			result.WinnerAccountID = participations[0].AccountID
			result.AlreadySettled = true
		case participations[0].Progress == 0 && s.ZeroProgressPolicy == ZeroProgressRefund:
			n, err := s.refundTx(tx, challenge, participations)
			if err != nil {
				return err
			}
			result.Outcome = models.OutcomeVoid
			result.Refunded = n
		default:
			paid, err := s.payoutTx(tx, challenge, &participations[0], result.Pool)
			if err != nil {
				return err
			}
			result.Outcome = models.OutcomePaid
			result.WinnerAccountID = participations[0].AccountID
			result.AlreadySettled = !paid
		}

		updates := map[string]interface{}{
			"ended":      true,
			"settled_at": now,
			"outcome":    result.Outcome,
			"pool":       result.Pool,
		}
		if result.WinnerAccountID != "" {
			updates["winner_account_id"] = result.WinnerAccountID
		}
		return tx.Model(&models.Challenge{}).
			Where("id = ? AND settled_at IS NULL", challengeID).
			Updates(updates).Error
	})
	if err != nil {
		return nil, err
	}

	s.invalidateLeaderboard(ctx, challengeID)
	if !result.AlreadySettled {
		s.Log.Info("challenge settled",
			zap.String("challenge_id", challengeID),
			zap.String("outcome", string(result.Outcome)),
			zap.String("winner_account_id", result.WinnerAccountID),
			zap.Int64("pool", result.Pool))
	}
	return result, nil
}

// payoutTx credits the pool to the winner. The conditional flip of Credited
// is the guard against paying twice; it reports false if another settler won.
func (s *ChallengeService) payoutTx(tx *gorm.DB, challenge *models.Challenge, winner *models.Participation, pool int64) (bool, error) {
	now := s.now()
	flip := tx.Model(&models.Participation{}).
		Where("id = ? AND credited = ?", winner.ID, false).
		Updates(map[string]interface{}{"credited": true, "credited_at": now})
	if flip.Error != nil {
		return false, flip.Error
	}
	if flip.RowsAffected == 0 {
		return false, nil
	}

	if _, err := s.Ledger.creditTx(tx, winner.AccountID, pool, LedgerEntryInput{
		Kind:          models.LedgerKindPayout,
		ReferenceType: "challenge",
		ReferenceID:   challenge.ID,
		Note:          challenge.Name,
	}); err != nil {
		return false, err
	}

	achievement := models.Achievement{
		ID:            uuid.NewString(),
		AccountID:     winner.AccountID,
		ChallengeID:   challenge.ID,
		ChallengeName: challenge.Name,
		CreditsWon:    pool,
		CompletedAt:   challenge.EndsAt(),
	}
	if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&achievement).Error; err != nil {
		return false, err
	}

	if err := incrementCounterTx(tx, winner.AccountID, models.CounterChallengesWon, 1); err != nil {
		return false, err
	}
	if err := s.Notifier.notifyUserTx(tx, winner.AccountID, models.NotificationChallengeWon,
		fmt.Sprintf("You won %q and earned %s!", challenge.Name, utils.FormatCredits(pool)), challenge.ID); err != nil {
		return false, err
	}
	if _, err := s.Badges.autoAwardTx(tx, winner.AccountID); err != nil {
		return false, err
	}
	return true, nil
}

func (s *ChallengeService) refundTx(tx *gorm.DB, challenge *models.Challenge, participations []models.Participation) (int, error) {
	refunded := 0
	for _, p := range participations {
		flip := tx.Model(&models.Participation{}).
			Where("id = ? AND refunded = ?", p.ID, false).
			Update("refunded", true)
		if flip.Error != nil {
			return 0, flip.Error
		}
		if flip.RowsAffected == 0 || p.WageredCredits == 0 {
			continue
		}
		if _, err := s.Ledger.creditTx(tx, p.AccountID, p.WageredCredits, LedgerEntryInput{
			Kind:          models.LedgerKindRefund,
			ReferenceType: "challenge",
			ReferenceID:   challenge.ID,
			Note:          "no progress recorded: " + challenge.Name,
		}); err != nil {
			return 0, err
		}
		if err := s.Notifier.notifyUserTx(tx, p.AccountID, models.NotificationChallengeRefunded,
			fmt.Sprintf("Nobody made progress in %q, your %s were refunded.", challenge.Name, utils.FormatCredits(p.WageredCredits)), challenge.ID); err != nil {
			return 0, err
		}
		refunded++
	}
	return refunded, nil
}

// SettleEnded settles every challenge whose window has closed. Used by the
// scheduler and by list reads. Returns how many were settled by this call.
func (s *ChallengeService) SettleEnded(ctx context.Context) (int, error) {
	var pending []models.Challenge
	if err := s.DB.WithContext(ctx).
		Select("id", "started_at", "duration", "ended").
		Where("settled_at IS NULL").
		Find(&pending).Error; err != nil {
		return 0, err
	}

	now := s.now()
	settled := 0
	var errs []error
	for _, c := range pending {
		if !c.HasEnded(now) {
			continue
		}
		result, err := s.Settle(ctx, c.ID)
		if err != nil {
			if !errors.Is(err, ErrNotFound) {
				errs = append(errs, fmt.Errorf("settle %s: %w", c.ID, err))
			}
			continue
		}
		if !result.AlreadySettled {
			settled++
		}
	}
	return settled, errors.Join(errs...)
}

// ListAchievements returns the account's challenge wins, newest first.
func (s *ChallengeService) ListAchievements(ctx context.Context, accountID string) ([]models.Achievement, error) {
	var achievements []models.Achievement
	err := s.DB.WithContext(ctx).
		Where("account_id = ?", accountID).
		Order("completed_at DESC").
		Find(&achievements).Error
	return achievements, err
}
