// services/participation.go
package services

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"kitchen-challenge-system/cache"
	"kitchen-challenge-system/models"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Standing is one row of a challenge leaderboard.
type Standing struct {
	Rank           int       `json:"rank"`
	AccountID      string    `json:"account_id"`
	DisplayName    string    `json:"display_name"`
	Progress       float64   `json:"progress"`
	WageredCredits int64     `json:"wagered_credits"`
	JoinedAt       time.Time `json:"joined_at"`
	Credited       bool      `json:"credited"`
}

// ChallengeStandings pairs an active challenge with its current top standings.
type ChallengeStandings struct {
	Challenge models.Challenge `json:"challenge"`
	Standings []Standing       `json:"standings"`
}

// rankOrder is the total order used for ranking and winner selection.
func rankOrder(db *gorm.DB) *gorm.DB {
	return db.Order("progress DESC").Order("joined_at ASC").Order("id ASC")
}

// JoinChallenge wagers CreditsRequired and records the participation in one
// transaction. Checks run in order: already joined, ended, balance.
func (s *ChallengeService) JoinChallenge(ctx context.Context, accountID, challengeID string) (*models.Participation, error) {
	now := s.now()
	var participation models.Participation

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		challenge, err := lockChallengeTx(tx, challengeID)
		if err != nil {
			return err
		}

		var existing int64
		if err := tx.Model(&models.Participation{}).
			Where("account_id = ? AND challenge_id = ?", accountID, challengeID).
			Count(&existing).Error; err != nil {
			return err
		}
		if existing > 0 {
			return fmt.Errorf("join %s: %w", challengeID, ErrAlreadyJoined)
		}
		if challenge.HasEnded(now) {
			return fmt.Errorf("join %s: %w", challengeID, ErrChallengeEnded)
		}

		if _, err := s.Ledger.deductTx(tx, accountID, challenge.CreditsRequired, LedgerEntryInput{
			Kind:          models.LedgerKindWager,
			ReferenceType: "challenge",
			ReferenceID:   challengeID,
			Note:          challenge.Name,
		}); err != nil {
			return err
		}

		participation = models.Participation{
			ID:             uuid.NewString(),
			AccountID:      accountID,
			ChallengeID:    challengeID,
			WageredCredits: challenge.CreditsRequired,
			JoinedAt:       now,
		}
		if err := tx.Create(&participation).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return fmt.Errorf("join %s: %w", challengeID, ErrAlreadyJoined)
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.invalidateLeaderboard(ctx, challengeID)
	s.Log.Info("challenge joined",
		zap.String("challenge_id", challengeID),
		zap.String("account_id", accountID),
		zap.Int64("wager", participation.WageredCredits))
	return &participation, nil
}

// GetParticipation returns the account's participation in the challenge.
func (s *ChallengeService) GetParticipation(ctx context.Context, accountID, challengeID string) (*models.Participation, error) {
	return findParticipationTx(s.DB.WithContext(ctx), accountID, challengeID, false)
}

func findParticipationTx(tx *gorm.DB, accountID, challengeID string, lock bool) (*models.Participation, error) {
	if lock {
		tx = tx.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var participation models.Participation
	if err := tx.Where("account_id = ? AND challenge_id = ?", accountID, challengeID).
		First(&participation).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("challenge %s: %w", challengeID, ErrNotParticipant)
		}
		return nil, err
	}
	return &participation, nil
}

// IncrementProgress adds delta to the account's progress in an active challenge.
func (s *ChallengeService) IncrementProgress(ctx context.Context, accountID, challengeID string, delta float64) (*models.Participation, error) {
	var participation *models.Participation
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		participation, err = s.IncrementProgressTx(tx, accountID, challengeID, delta)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.invalidateLeaderboard(ctx, challengeID)
	return participation, nil
}

// IncrementProgressTx runs inside the caller's transaction so a failed
// increment rolls back the caller's own writes.
func (s *ChallengeService) IncrementProgressTx(tx *gorm.DB, accountID, challengeID string, delta float64) (*models.Participation, error) {
	if delta <= 0 {
		return nil, fmt.Errorf("progress delta %v: %w", delta, ErrInvalidInput)
	}

	challenge, err := lockChallengeTx(tx, challengeID)
	if err != nil {
		return nil, err
	}
	if !challenge.IsActive(s.now()) {
		return nil, fmt.Errorf("progress on %s: %w", challengeID, ErrChallengeEnded)
	}

	participation, err := findParticipationTx(tx, accountID, challengeID, true)
	if err != nil {
		return nil, err
	}
	if participation.Credited {
		return nil, fmt.Errorf("participation %s already credited: %w", participation.ID, ErrInvalidStateTransition)
	}

	if err := tx.Model(&models.Participation{}).
		Where("id = ?", participation.ID).
		Update("progress", gorm.Expr("progress + ?", delta)).Error; err != nil {
		return nil, err
	}
	participation.Progress += delta
	return participation, nil
}

// DecrementProgress lowers progress, floored at zero. Once the challenge has
// ended the standings are final and this is a no-op.
func (s *ChallengeService) DecrementProgress(ctx context.Context, accountID, challengeID string, delta float64) (*models.Participation, error) {
	var participation *models.Participation
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		participation, err = s.DecrementProgressTx(tx, accountID, challengeID, delta)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.invalidateLeaderboard(ctx, challengeID)
	return participation, nil
}

func (s *ChallengeService) DecrementProgressTx(tx *gorm.DB, accountID, challengeID string, delta float64) (*models.Participation, error) {
	if delta <= 0 {
		return nil, fmt.Errorf("progress delta %v: %w", delta, ErrInvalidInput)
	}

	challenge, err := lockChallengeTx(tx, challengeID)
	if err != nil {
		return nil, err
	}
	participation, err := findParticipationTx(tx, accountID, challengeID, true)
	if err != nil {
		return nil, err
	}
	if challenge.HasEnded(s.now()) {
		return participation, nil
	}

	progress := participation.Progress - delta
	if progress < 0 {
		progress = 0
	}
	if err := tx.Model(&models.Participation{}).
		Where("id = ?", participation.ID).
		Update("progress", progress).Error; err != nil {
		return nil, err
	}
	participation.Progress = progress
	return participation, nil
}

// Rank yields the challenge's participations in rank order without loading
// them all at once. The sequence stops at the first error.
func (s *ChallengeService) Rank(ctx context.Context, challengeID string) iter.Seq2[models.Participation, error] {
	return func(yield func(models.Participation, error) bool) {
		db := s.DB.WithContext(ctx)
		rows, err := db.Model(&models.Participation{}).
			Where("challenge_id = ?", challengeID).
			Scopes(rankOrder).
			Rows()
		if err != nil {
			yield(models.Participation{}, err)
			return
		}
		defer rows.Close()

		for rows.Next() {
			var p models.Participation
			if err := db.ScanRows(rows, &p); err != nil {
				yield(models.Participation{}, err)
				return
			}
			if !yield(p, nil) {
				return
			}
		}
		if err := rows.Err(); err != nil {
			yield(models.Participation{}, err)
		}
	}
}

func leaderboardKey(challengeID string) string {
	return "leaderboard:" + challengeID
}

func (s *ChallengeService) invalidateLeaderboard(ctx context.Context, challengeID string) {
	if err := s.Cache.Delete(ctx, leaderboardKey(challengeID)); err != nil {
		s.Log.Warn("leaderboard cache invalidation failed", zap.String("challenge_id", challengeID), zap.Error(err))
	}
}

// Leaderboard returns the top standings, served from cache when possible.
func (s *ChallengeService) Leaderboard(ctx context.Context, challengeID string, limit int) ([]Standing, error) {
	if limit <= 0 || limit > 100 {
		limit = 10
	}

	var cached []Standing
	err := s.Cache.Get(ctx, leaderboardKey(challengeID), &cached)
	switch {
	case err == nil:
		if len(cached) > limit {
			cached = cached[:limit]
		}
		return cached, nil
	case !errors.Is(err, cache.ErrKeyNotFound):
		s.Log.Warn("leaderboard cache read failed", zap.String("challenge_id", challengeID), zap.Error(err))
	}

	if _, err := s.findChallenge(ctx, challengeID); err != nil {
		return nil, err
	}

	var participations []models.Participation
	if err := s.DB.WithContext(ctx).
		Preload("Account").
		Where("challenge_id = ?", challengeID).
		Scopes(rankOrder).
		Limit(100).
		Find(&participations).Error; err != nil {
		return nil, err
	}

	standings := make([]Standing, len(participations))
	for i, p := range participations {
		standings[i] = Standing{
			Rank:           i + 1,
			AccountID:      p.AccountID,
			Progress:       p.Progress,
			WageredCredits: p.WageredCredits,
			JoinedAt:       p.JoinedAt,
			Credited:       p.Credited,
		}
		if p.Account != nil {
			standings[i].DisplayName = p.Account.DisplayName
		}
	}

	if err := s.Cache.Set(ctx, leaderboardKey(challengeID), standings, s.LeaderboardTTL); err != nil {
		s.Log.Warn("leaderboard cache write failed", zap.String("challenge_id", challengeID), zap.Error(err))
	}

	if len(standings) > limit {
		standings = standings[:limit]
	}
	return standings, nil
}

// ActiveLeaderboards lists every active challenge with its top standings.
func (s *ChallengeService) ActiveLeaderboards(ctx context.Context, top int) ([]ChallengeStandings, error) {
	challenges, err := s.ListChallenges(ctx, ChallengeFilter{ActiveOnly: true, Limit: 100})
	if err != nil {
		return nil, err
	}

	boards := make([]ChallengeStandings, 0, len(challenges))
	for _, c := range challenges {
		standings, err := s.Leaderboard(ctx, c.ID, top)
		if err != nil {
			return nil, err
		}
		boards = append(boards, ChallengeStandings{Challenge: c, Standings: standings})
	}
	return boards, nil
}
