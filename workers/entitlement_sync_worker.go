// workers/entitlement_sync_worker.go
package workers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"time"

	"vread-backend/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Entitlement is the purchase provider's view of one user's premium state.
type Entitlement struct {
	UserID       string     `json:"user_id"`
	IsPremium    bool       `json:"is_premium"`
	PremiumSince *time.Time `json:"premium_since,omitempty"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// EntitlementSyncClient polls the purchase/entitlement provider and mirrors
// the is_premium flag onto reader profiles. Nothing in the reading core
// gates on this flag — the mirror exists for profile display and billing
// support queries.
type EntitlementSyncClient struct {
	BaseURL    string
	Token      string
	HTTPClient *http.Client
	DB         *gorm.DB
}

func NewEntitlementSyncClient(db *gorm.DB) *EntitlementSyncClient {
	baseURL := os.Getenv("ENTITLEMENT_SERVICE_URL")
	if baseURL == "" {
		log.Fatal("ENTITLEMENT_SERVICE_URL environment variable is required")
	}
	token := os.Getenv("VREAD_SERVICE_TOKEN")
	if token == "" {
		log.Fatal("VREAD_SERVICE_TOKEN environment variable is required for entitlement sync")
	}

	return &EntitlementSyncClient{
		BaseURL: baseURL,
		Token:   token,
		DB:      db,
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

func (c *EntitlementSyncClient) GetChangedEntitlements(ctx context.Context, since time.Time) ([]Entitlement, error) {
	since = since.UTC()

	u, err := url.Parse(fmt.Sprintf("%s/api/v1/public/entitlements", c.BaseURL))
	if err != nil {
		return nil, fmt.Errorf("failed to parse base URL: %w", err)
	}

	q := u.Query()
	q.Set("since", since.Format(time.RFC3339))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, "GET", u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("X-Service-Token", c.Token)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call entitlement service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("entitlement service returned status %d: %s", resp.StatusCode, string(body))
	}

	var response struct {
		Entitlements []Entitlement `json:"entitlements"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, fmt.Errorf("failed to decode entitlement service response: %w", err)
	}

	return response.Entitlements, nil
}

// PollEntitlements mirrors premium flags into reader_profiles on a fixed tick.
func PollEntitlements(ctx context.Context, client *EntitlementSyncClient, pollInterval time.Duration) {
	log.Println("Starting entitlement polling (DB-backed)...")
	lastSyncTime := time.Now().UTC().Add(-24 * time.Hour)

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Entitlement polling stopped.")
			return
		case <-ticker.C:
			logTime := time.Now().UTC()

			entitlements, err := client.GetChangedEntitlements(ctx, lastSyncTime)
			if err != nil {
				log.Printf("❌ Error polling entitlements: %v", err)
				continue
			}

			if len(entitlements) == 0 {
				continue
			}

			rows := make([]models.ReaderProfile, 0, len(entitlements))
			for _, e := range entitlements {
				rows = append(rows, models.ReaderProfile{
					ID:             uuid.NewString(),
					ExternalUserID: e.UserID,
					IsPremium:      e.IsPremium,
					PremiumSince:   e.PremiumSince,
				})
			}

			if err := client.DB.Clauses(
				clause.OnConflict{
					Columns: []clause.Column{{Name: "external_user_id"}},
					DoUpdates: clause.AssignmentColumns([]string{
						"is_premium",
						"premium_since",
						"updated_at",
					}),
				},
			).Create(&rows).Error; err != nil {
				log.Printf("❌ Failed to upsert %d entitlement(s) into reader_profiles: %v", len(rows), err)
				// Do NOT advance lastSyncTime on failure — retry same window next tick
				continue
			}

			lastSyncTime = logTime
			log.Printf("✅ Mirrored %d entitlement change(s) into reader_profiles.", len(rows))
		}
	}
}
