// services/nudge.go
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"vread-backend/models"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

const (
	NudgeStreakAtRisk = "streak_at_risk" // validated yesterday, nothing today yet
	NudgeStreakKept   = "streak_kept"    // validated today on a milestone day
)

// NotificationDispatcher is the outbound boundary to the notification/email
// service. The core only decides WHO gets WHAT kind of nudge.
type NotificationDispatcher interface {
	Dispatch(ctx context.Context, userID, kind, message string) error
}

// HTTPDispatcher posts nudges to the notification service.
type HTTPDispatcher struct {
	BaseURL      string
	ServiceToken string
	HTTPClient   *http.Client
}

func NewHTTPDispatcher(baseURL, serviceToken string) *HTTPDispatcher {
	return &HTTPDispatcher{
		BaseURL:      baseURL,
		ServiceToken: serviceToken,
		HTTPClient:   &http.Client{Timeout: 30 * time.Second},
	}
}

func (d *HTTPDispatcher) Dispatch(ctx context.Context, userID, kind, message string) error {
	payload, _ := json.Marshal(map[string]string{
		"user_id": userID,
		"kind":    kind,
		"message": message,
	})

	req, err := http.NewRequestWithContext(ctx, "POST", d.BaseURL+"/api/v1/notifications", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create notification request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Service-Token", d.ServiceToken)

	resp, err := d.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to call notification service: %w", err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusAccepted {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("notification service returned status %d: %s", resp.StatusCode, string(body))
	}
	return nil
}

// StreakNudgeService runs the daily streak messaging pass. Redis SETNX keys
// guarantee at most one nudge per user per day even across restarts or
// overlapping runs.
type StreakNudgeService struct {
	DB         *gorm.DB
	Redis      *redis.Client
	Dispatcher NotificationDispatcher
	Loc        *time.Location
	GraceDays  int

	now func() time.Time
}

func NewStreakNudgeService(db *gorm.DB, rdb *redis.Client, dispatcher NotificationDispatcher, loc *time.Location) *StreakNudgeService {
	if loc == nil {
		loc = time.UTC
	}
	return &StreakNudgeService{
		DB:         db,
		Redis:      rdb,
		Dispatcher: dispatcher,
		Loc:        loc,
		GraceDays:  StreakGraceDays(),
		now:        time.Now,
	}
}

// Run scans every user's latest validation day and dispatches at-risk or
// kept messages. A user whose streak ended before yesterday is left alone —
// there is nothing left to save.
func (s *StreakNudgeService) Run(ctx context.Context) error {
	// The max is taken in Go: an aggregate column comes back untyped through
	// the scanner, plain model columns keep their time type on every driver.
	var rows []models.ReadingValidation
	if err := s.DB.Model(&models.ReadingValidation{}).
		Select("user_id", "validated_at").
		Find(&rows).Error; err != nil {
		return fmt.Errorf("failed to scan validations: %w", err)
	}

	last := make(map[string]time.Time, len(rows))
	for _, v := range rows {
		if v.ValidatedAt.After(last[v.UserID]) {
			last[v.UserID] = v.ValidatedAt
		}
	}

	today := dayNumber(s.now(), s.Loc)
	var sent, skipped int

	for userID, lastAt := range last {
		lastDay := dayNumber(lastAt, s.Loc)

		var kind, message string
		switch {
		case lastDay == today-1:
			kind = NudgeStreakAtRisk
			message = "Tu n'as pas validé aujourd'hui — garde ta série !"
		case lastDay == today:
			streak, err := s.userStreak(userID)
			if err != nil {
				log.Printf("⚠️ [NUDGE] streak compute failed for %s: %v", userID, err)
				continue
			}
			if !isMilestone(streak.Current) {
				continue
			}
			kind = NudgeStreakKept
			message = fmt.Sprintf("Série de %d jours — continue comme ça !", streak.Current)
		default:
			continue
		}

		ok, err := s.claimNudge(ctx, userID, today)
		if err != nil {
			log.Printf("⚠️ [NUDGE] dedupe check failed for %s: %v", userID, err)
			continue
		}
		if !ok {
			skipped++
			continue
		}

		if err := s.Dispatcher.Dispatch(ctx, userID, kind, message); err != nil {
			log.Printf("❌ [NUDGE] dispatch failed (user=%s kind=%s): %v", userID, kind, err)
			continue
		}
		sent++
	}

	log.Printf("📣 [NUDGE] run complete: %d sent, %d deduped, %d users scanned", sent, skipped, len(last))
	return nil
}

// claimNudge reserves today's nudge slot for the user. Returns false when
// another run already claimed it.
func (s *StreakNudgeService) claimNudge(ctx context.Context, userID string, day int64) (bool, error) {
	key := fmt.Sprintf("vread:nudge:%s:%d", userID, day)
	return s.Redis.SetNX(ctx, key, "1", 48*time.Hour).Result()
}

func (s *StreakNudgeService) userStreak(userID string) (Streak, error) {
	var times []time.Time
	if err := s.DB.Model(&models.ReadingValidation{}).
		Where("user_id = ?", userID).
		Pluck("validated_at", &times).Error; err != nil {
		return Streak{}, err
	}
	return ComputeStreak(times, s.now(), s.Loc, s.GraceDays), nil
}

func isMilestone(days int) bool {
	for _, m := range StreakMilestoneDays {
		if days == m {
			return true
		}
	}
	return false
}
