package services

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"kitchen-challenge-system/cache"
	"kitchen-challenge-system/models"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var epoch = time.Date(2025, time.March, 1, 12, 0, 0, 0, time.UTC)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("db handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := models.AutoMigrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

// memoryCache is an in-process cache.Cache for tests.
type memoryCache struct {
	mu      sync.Mutex
	items   map[string][]byte
	deletes int
}

func newMemoryCache() *memoryCache {
	return &memoryCache{items: map[string][]byte{}}
}

func (c *memoryCache) Get(_ context.Context, key string, value interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	data, ok := c.items[key]
	if !ok {
		return cache.ErrKeyNotFound
	}
	return json.Unmarshal(data, value)
}

func (c *memoryCache) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[key] = data
	return nil
}

func (c *memoryCache) Delete(_ context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range keys {
		delete(c.items, k)
		c.deletes++
	}
	return nil
}

type fixture struct {
	ctx        context.Context
	db         *gorm.DB
	clock      *clockwork.FakeClock
	cache      *memoryCache
	ledger     *LedgerService
	notifier   *NotificationService
	badges     *BadgeService
	accounts   *AccountService
	challenges *ChallengeService
	requests   *CreditRequestService
	posts      *PostService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := newTestDB(t)
	clock := clockwork.NewFakeClockAt(epoch)
	log := zap.NewNop()
	mc := newMemoryCache()

	ledger := NewLedgerService(db, clock, log)
	notifier := NewNotificationService(db, clock)
	badges := NewBadgeService(db, clock, notifier, log)
	challenges := NewChallengeService(db, ledger, badges, notifier, mc, clock, log, ZeroProgressRefund)

	return &fixture{
		ctx:        context.Background(),
		db:         db,
		clock:      clock,
		cache:      mc,
		ledger:     ledger,
		notifier:   notifier,
		badges:     badges,
		accounts:   NewAccountService(db, badges),
		challenges: challenges,
		requests:   NewCreditRequestService(db, ledger, notifier, clock, log),
		posts:      NewPostService(db, challenges, badges, log),
	}
}

func (f *fixture) account(t *testing.T, name string, balance int64) *models.Account {
	t.Helper()
	account := &models.Account{
		ID:            uuid.NewString(),
		DisplayName:   name,
		Email:         name + "@example.com",
		Role:          models.AccountRoleUser,
		CreditBalance: balance,
	}
	if err := f.db.Create(account).Error; err != nil {
		t.Fatalf("create account %s: %v", name, err)
	}
	return account
}

func (f *fixture) balance(t *testing.T, accountID string) int64 {
	t.Helper()
	balance, err := f.ledger.Balance(f.ctx, accountID)
	if err != nil {
		t.Fatalf("balance %s: %v", accountID, err)
	}
	return balance
}

func (f *fixture) challenge(t *testing.T, creatorID string, credits, seconds int64) *models.Challenge {
	t.Helper()
	c, err := f.challenges.CreateChallenge(f.ctx, CreateChallengeInput{
		CreatorID:       creatorID,
		Name:            "Sourdough Sprint",
		CreditsRequired: credits,
		DurationSeconds: seconds,
	})
	if err != nil {
		t.Fatalf("create challenge: %v", err)
	}
	return c
}

func (f *fixture) join(t *testing.T, accountID, challengeID string) *models.Participation {
	t.Helper()
	p, err := f.challenges.JoinChallenge(f.ctx, accountID, challengeID)
	if err != nil {
		t.Fatalf("join %s: %v", accountID, err)
	}
	return p
}

func (f *fixture) progress(t *testing.T, accountID, challengeID string, delta float64) {
	t.Helper()
	if _, err := f.challenges.IncrementProgress(f.ctx, accountID, challengeID, delta); err != nil {
		t.Fatalf("progress %s: %v", accountID, err)
	}
}
