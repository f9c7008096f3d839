// services/challenge_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"kitchen-challenge-system/cache"
	"kitchen-challenge-system/models"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"github.com/gosimple/unidecode"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ChallengeService runs the challenge lifecycle, participation, ranking and
// settlement. Its methods are spread over challenge_service.go,
// participation.go and settlement.go.
type ChallengeService struct {
	DB                 *gorm.DB
	Ledger             *LedgerService
	Badges             *BadgeService
	Notifier           *NotificationService
	Cache              cache.Cache
	Clock              clockwork.Clock
	Log                *zap.Logger
	ZeroProgressPolicy ZeroProgressPolicy
	LeaderboardTTL     time.Duration
}

func NewChallengeService(
	db *gorm.DB,
	ledger *LedgerService,
	badges *BadgeService,
	notifier *NotificationService,
	c cache.Cache,
	clock clockwork.Clock,
	logger *zap.Logger,
	policy ZeroProgressPolicy,
) *ChallengeService {
	if c == nil {
		c = cache.Noop{}
	}
	if policy == "" {
		policy = ZeroProgressRefund
	}
	return &ChallengeService{
		DB:                 db,
		Ledger:             ledger,
		Badges:             badges,
		Notifier:           notifier,
		Cache:              c,
		Clock:              clock,
		Log:                logger,
		ZeroProgressPolicy: policy,
		LeaderboardTTL:     30 * time.Second,
	}
}

type CreateChallengeInput struct {
	CreatorID       string
	Name            string
	IconURL         string
	CreditsRequired int64
	DurationSeconds int64
}

// DurationFromParts sums a days/hours/minutes/seconds form into seconds.
func DurationFromParts(days, hours, minutes, seconds int64) (int64, error) {
	if days < 0 || hours < 0 || minutes < 0 || seconds < 0 {
		return 0, fmt.Errorf("negative duration component: %w", ErrInvalidInput)
	}
	if seconds > models.MaxDurationSeconds {
		return 0, fmt.Errorf("duration too long: %w", ErrInvalidInput)
	}
	total := seconds
	for _, part := range []struct{ n, unit int64 }{{days, 86400}, {hours, 3600}, {minutes, 60}} {
		if part.n > (models.MaxDurationSeconds-total)/part.unit {
			return 0, fmt.Errorf("duration too long: %w", ErrInvalidInput)
		}
		total += part.n * part.unit
	}
	return total, nil
}

// ChallengeFilter narrows ListChallenges.
type ChallengeFilter struct {
	ActiveOnly bool
	CreatorID  string
	Query      string
	Limit      int
}

func (s *ChallengeService) now() time.Time {
	return s.Clock.Now().UTC()
}

// CreateChallenge validates and stores a challenge that starts immediately.
// The creator's balance is not touched.
func (s *ChallengeService) CreateChallenge(ctx context.Context, in CreateChallengeInput) (*models.Challenge, error) {
	if err := ValidateChallengeInput(in); err != nil {
		return nil, err
	}
	name := strings.TrimSpace(in.Name)

	var creator models.Account
	if err := s.DB.WithContext(ctx).Select("id").First(&creator, "id = ?", in.CreatorID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("creator %s: %w", in.CreatorID, ErrNotFound)
		}
		return nil, err
	}

	challenge := &models.Challenge{
		ID:              uuid.NewString(),
		Name:            name,
		Slug:            slug.Make(name),
		SearchKey:       searchKey(name),
		IconURL:         in.IconURL,
		CreatorID:       in.CreatorID,
		CreditsRequired: in.CreditsRequired,
		Duration:        in.DurationSeconds,
		StartedAt:       s.now(),
	}
	if err := s.DB.WithContext(ctx).Create(challenge).Error; err != nil {
		return nil, err
	}
	challenge.State = challenge.StateAt(s.now())

	s.Log.Info("challenge created",
		zap.String("challenge_id", challenge.ID),
		zap.String("creator_id", challenge.CreatorID),
		zap.Int64("credits_required", challenge.CreditsRequired),
		zap.Int64("duration", challenge.Duration))
	return challenge, nil
}

// ValidateChallengeInput checks the fields CreateChallenge stores. The
// creator is checked separately against the database.
func ValidateChallengeInput(in CreateChallengeInput) error {
	if n := utf8.RuneCountInString(strings.TrimSpace(in.Name)); n < 2 || n > 100 {
		return fmt.Errorf("name must be 2-100 characters: %w", ErrInvalidInput)
	}
	if in.CreditsRequired < 0 {
		return fmt.Errorf("credits_required must be >= 0: %w", ErrInvalidInput)
	}
	if in.DurationSeconds < 0 {
		return fmt.Errorf("duration must be >= 0: %w", ErrInvalidInput)
	}
	if in.DurationSeconds > models.MaxDurationSeconds {
		return fmt.Errorf("duration must be at most %d seconds: %w", models.MaxDurationSeconds, ErrInvalidInput)
	}
	return nil
}

func searchKey(name string) string {
	return strings.ToLower(unidecode.Unidecode(name))
}

// GetChallenge loads a challenge, settling it first if its window has closed.
func (s *ChallengeService) GetChallenge(ctx context.Context, id string) (*models.Challenge, error) {
	challenge, err := s.RefreshEndedStatus(ctx, id)
	if err != nil {
		return nil, err
	}

	if challenge.Ended && !challenge.IsSettled() {
		if _, err := s.Settle(ctx, id); err != nil {
			s.Log.Warn("lazy settlement failed", zap.String("challenge_id", id), zap.Error(err))
		}
		if challenge, err = s.findChallenge(ctx, id); err != nil {
			return nil, err
		}
	}

	if err := s.DB.WithContext(ctx).Model(&models.Participation{}).
		Where("challenge_id = ?", id).
		Count(&challenge.ParticipantsCount).Error; err != nil {
		return nil, err
	}
	challenge.State = challenge.StateAt(s.now())
	return challenge, nil
}

func (s *ChallengeService) findChallenge(ctx context.Context, id string) (*models.Challenge, error) {
	var challenge models.Challenge
	if err := s.DB.WithContext(ctx).First(&challenge, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("challenge %s: %w", id, ErrNotFound)
		}
		return nil, err
	}
	return &challenge, nil
}

// lockChallengeTx takes a row lock on the challenge for the rest of tx.
func lockChallengeTx(tx *gorm.DB, id string) (*models.Challenge, error) {
	var challenge models.Challenge
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&challenge, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("challenge %s: %w", id, ErrNotFound)
		}
		return nil, err
	}
	return &challenge, nil
}

// ListChallenges settles anything that has ended, then lists newest first.
func (s *ChallengeService) ListChallenges(ctx context.Context, filter ChallengeFilter) ([]models.Challenge, error) {
	if _, err := s.SettleEnded(ctx); err != nil {
		s.Log.Warn("settlement sweep during list failed", zap.Error(err))
	}

	limit := filter.Limit
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	query := s.DB.WithContext(ctx).Model(&models.Challenge{})
	if filter.ActiveOnly {
		query = query.Where("ended = ?", false)
	}
	if filter.CreatorID != "" {
		query = query.Where("creator_id = ?", filter.CreatorID)
	}
	if q := strings.TrimSpace(filter.Query); q != "" {
		query = query.Where("search_key LIKE ?", "%"+searchKey(q)+"%")
	}

	var challenges []models.Challenge
	if err := query.Order("started_at DESC").Order("id ASC").Limit(limit).Find(&challenges).Error; err != nil {
		return nil, err
	}

	now := s.now()
	out := challenges[:0]
	for _, c := range challenges {
		if filter.ActiveOnly && !c.IsActive(now) {
			continue
		}
		c.State = c.StateAt(now)
		out = append(out, c)
	}
	if err := s.attachParticipantCounts(ctx, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *ChallengeService) attachParticipantCounts(ctx context.Context, challenges []models.Challenge) error {
	if len(challenges) == 0 {
		return nil
	}
	ids := make([]string, len(challenges))
	for i, c := range challenges {
		ids[i] = c.ID
	}

	var rows []struct {
		ChallengeID string
		Count       int64
	}
	if err := s.DB.WithContext(ctx).Model(&models.Participation{}).
		Select("challenge_id, COUNT(*) AS count").
		Where("challenge_id IN ?", ids).
		Group("challenge_id").
		Scan(&rows).Error; err != nil {
		return err
	}
	counts := make(map[string]int64, len(rows))
	for _, r := range rows {
		counts[r.ChallengeID] = r.Count
	}
	for i := range challenges {
		challenges[i].ParticipantsCount = counts[challenges[i].ID]
	}
	return nil
}

// RefreshEndedStatus materializes Ended once the window has elapsed. It is
// idempotent and never flips Ended back.
func (s *ChallengeService) RefreshEndedStatus(ctx context.Context, id string) (*models.Challenge, error) {
	challenge, err := s.findChallenge(ctx, id)
	if err != nil {
		return nil, err
	}
	if challenge.Ended || !challenge.HasEnded(s.now()) {
		return challenge, nil
	}

	if err := markEndedTx(s.DB.WithContext(ctx), id); err != nil {
		return nil, err
	}
	challenge.Ended = true
	return challenge, nil
}

func markEndedTx(tx *gorm.DB, id string) error {
	return tx.Model(&models.Challenge{}).
		Where("id = ? AND ended = ?", id, false).
		Update("ended", true).Error
}

// DeleteChallenge removes a challenge and its participations. Only the
// creator may delete. An ended challenge is settled first so its winner is
// paid; an active challenge with participants cannot be deleted.
func (s *ChallengeService) DeleteChallenge(ctx context.Context, requesterID, id string) error {
	challenge, err := s.findChallenge(ctx, id)
	if err != nil {
		return err
	}
	if challenge.CreatorID != requesterID {
		return fmt.Errorf("delete challenge %s: %w", id, ErrForbidden)
	}
	if challenge.HasEnded(s.now()) && !challenge.IsSettled() {
		if _, err := s.Settle(ctx, id); err != nil {
			return err
		}
	}

	now := s.now()
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		challenge, err := lockChallengeTx(tx, id)
		if err != nil {
			return err
		}
		if challenge.CreatorID != requesterID {
			return fmt.Errorf("delete challenge %s: %w", id, ErrForbidden)
		}

		if !challenge.IsSettled() {
			if challenge.HasEnded(now) {
				return fmt.Errorf("challenge %s ended but is not settled: %w", id, ErrInvalidStateTransition)
			}
			var participants int64
			if err := tx.Model(&models.Participation{}).
				Where("challenge_id = ?", id).
				Count(&participants).Error; err != nil {
				return err
			}
			if participants > 0 {
				return fmt.Errorf("challenge %s is active with %d participants: %w", id, participants, ErrInvalidStateTransition)
			}
		}

		if err := tx.Model(&models.Post{}).Where("challenge_id = ?", id).
			Update("challenge_id", nil).Error; err != nil {
			return err
		}
		if err := tx.Where("challenge_id = ?", id).Delete(&models.Participation{}).Error; err != nil {
			return err
		}
		result := tx.Delete(&models.Challenge{}, "id = ?", id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return fmt.Errorf("challenge %s: %w", id, ErrNotFound)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.invalidateLeaderboard(ctx, id)
	s.Log.Info("challenge deleted", zap.String("challenge_id", id), zap.String("creator_id", requesterID))
	return nil
}
