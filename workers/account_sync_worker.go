// workers/account_sync_worker.go
package workers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"kitchen-challenge-system/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// RemoteAccount matches the JSON the account service returns.
type RemoteAccount struct {
	ID          string    `json:"id"`
	DisplayName string    `json:"display_name"`
	Email       string    `json:"email"`
	Role        string    `json:"role"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// GetAccountChangesResponse is the top-level structure of the sync response.
type GetAccountChangesResponse struct {
	Accounts []RemoteAccount `json:"accounts"`
}

// AccountSyncWorker mirrors profile fields from the account service into
// the local accounts table. Balances and counters are never written here.
type AccountSyncWorker struct {
	db           *gorm.DB
	log          *zap.Logger
	interval     time.Duration
	baseURL      string
	endpointPath string
	serviceToken string
	httpClient   *http.Client

	// newest remote updated_at applied so far
	since time.Time
}

func NewAccountSyncWorker(db *gorm.DB, logger *zap.Logger, httpClient *http.Client, baseURL, endpointPath, serviceToken string, interval time.Duration) *AccountSyncWorker {
	if interval <= 0 {
		interval = time.Minute
	}
	return &AccountSyncWorker{
		db:           db,
		log:          logger,
		interval:     interval,
		baseURL:      baseURL,
		endpointPath: endpointPath,
		serviceToken: serviceToken,
		httpClient:   httpClient,
	}
}

func (w *AccountSyncWorker) Start(ctx context.Context) {
	w.log.Info("starting account sync worker", zap.String("base_url", w.baseURL), zap.Duration("interval", w.interval))
	go w.run(ctx)
}

func (w *AccountSyncWorker) run(ctx context.Context) {
	if _, err := w.SyncOnce(ctx); err != nil {
		w.log.Warn("initial account sync failed", zap.Error(err))
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if _, err := w.SyncOnce(ctx); err != nil {
				w.log.Error("account sync batch failed", zap.Error(err))
			}
		case <-ctx.Done():
			w.log.Info("account sync worker stopped")
			return
		}
	}
}

// SyncOnce fetches accounts changed since the last applied update and
// upserts them. It returns how many were upserted.
func (w *AccountSyncWorker) SyncOnce(ctx context.Context) (int, error) {
	base, err := url.Parse(w.baseURL)
	if err != nil {
		return 0, fmt.Errorf("invalid sync service URL %q: %w", w.baseURL, err)
	}
	endpointURL := base.JoinPath(w.endpointPath)
	q := endpointURL.Query()
	q.Set("since", w.since.UTC().Format(time.RFC3339))
	endpointURL.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpointURL.String(), nil)
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("X-Service-Token", w.serviceToken)

	resp, err := w.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("account sync request failed: %w", err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return 0, fmt.Errorf("account sync returned %d: %s", resp.StatusCode, body)
	}

	var response GetAccountChangesResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return 0, fmt.Errorf("failed to decode account sync response: %w", err)
	}

	upserted := 0
	latest := w.since
	for _, remote := range response.Accounts {
		if remote.ID == "" || remote.Email == "" {
			w.log.Warn("skipping remote account without id or email", zap.String("id", remote.ID))
			continue
		}
		role := models.AccountRole(remote.Role)
		if role != models.AccountRoleAdmin {
			role = models.AccountRoleUser
		}

		local := models.Account{
			ID:          remote.ID,
			DisplayName: remote.DisplayName,
			Email:       remote.Email,
			Role:        role,
		}
		if err := w.db.WithContext(ctx).Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"display_name", "email", "role", "updated_at"}),
		}).Create(&local).Error; err != nil {
			w.log.Warn("failed to upsert account", zap.String("id", remote.ID), zap.Error(err))
			continue
		}
		upserted++
		if remote.UpdatedAt.After(latest) {
			latest = remote.UpdatedAt
		}
	}
	w.since = latest

	if len(response.Accounts) > 0 {
		w.log.Info("accounts synced",
			zap.Int("received", len(response.Accounts)),
			zap.Int("upserted", upserted),
			zap.Time("since", w.since))
	}
	return upserted, nil
}
