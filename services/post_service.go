// services/post_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"kitchen-challenge-system/models"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// progressPerPost is the progress a challenge-tagged post is worth.
const progressPerPost = 1.0

// PostService shares image posts. A post tagged to a challenge is the
// qualifying action that advances progress.
type PostService struct {
	DB         *gorm.DB
	Challenges *ChallengeService
	Badges     *BadgeService
	Log        *zap.Logger
}

func NewPostService(db *gorm.DB, challenges *ChallengeService, badges *BadgeService, logger *zap.Logger) *PostService {
	return &PostService{DB: db, Challenges: challenges, Badges: badges, Log: logger}
}

type SharePostInput struct {
	ImageURL    string
	Message     string
	ChallengeID string
}

// SharePost creates the post and, when tagged, increments the author's
// progress. If the author is not a participant nothing is written.
func (s *PostService) SharePost(ctx context.Context, accountID string, in SharePostInput) (*models.Post, error) {
	if strings.TrimSpace(in.ImageURL) == "" {
		return nil, fmt.Errorf("image is required: %w", ErrInvalidInput)
	}

	post := &models.Post{
		ID:        uuid.NewString(),
		AccountID: accountID,
		ImageURL:  in.ImageURL,
		Message:   strings.TrimSpace(in.Message),
	}
	if in.ChallengeID != "" {
		challengeID := in.ChallengeID
		post.ChallengeID = &challengeID
	}

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(post).Error; err != nil {
			return err
		}
		if post.ChallengeID != nil {
			if _, err := s.Challenges.IncrementProgressTx(tx, accountID, *post.ChallengeID, progressPerPost); err != nil {
				return err
			}
		}
		if err := incrementCounterTx(tx, accountID, models.CounterRecipesShared, 1); err != nil {
			return err
		}
		_, err := s.Badges.autoAwardTx(tx, accountID)
		return err
	})
	if err != nil {
		return nil, err
	}

	if post.ChallengeID != nil {
		s.Challenges.invalidateLeaderboard(ctx, *post.ChallengeID)
	}
	s.Log.Info("post shared", zap.String("post_id", post.ID), zap.String("account_id", accountID))
	return post, nil
}

// DeletePost removes the author's post and takes back the progress it earned
// while the challenge is still running.
func (s *PostService) DeletePost(ctx context.Context, accountID, postID string) error {
	var challengeID string
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var post models.Post
		if err := tx.First(&post, "id = ?", postID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("post %s: %w", postID, ErrNotFound)
			}
			return err
		}
		if post.AccountID != accountID {
			return fmt.Errorf("delete post %s: %w", postID, ErrForbidden)
		}
		if err := tx.Delete(&models.Post{}, "id = ?", postID).Error; err != nil {
			return err
		}
		if post.ChallengeID == nil {
			return nil
		}

		challengeID = *post.ChallengeID
		_, err := s.Challenges.DecrementProgressTx(tx, accountID, challengeID, progressPerPost)
		if errors.Is(err, ErrNotFound) || errors.Is(err, ErrNotParticipant) {
			return nil
		}
		return err
	})
	if err != nil {
		return err
	}

	if challengeID != "" {
		s.Challenges.invalidateLeaderboard(ctx, challengeID)
	}
	return nil
}

func (s *PostService) ListPosts(ctx context.Context, challengeID string, limit int) ([]models.Post, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	query := s.DB.WithContext(ctx).Order("created_at DESC").Limit(limit)
	if challengeID != "" {
		query = query.Where("challenge_id = ?", challengeID)
	}
	var posts []models.Post
	err := query.Find(&posts).Error
	return posts, err
}
