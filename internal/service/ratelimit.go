package service

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/skymirror/skymirror/internal/domain"
	"github.com/skymirror/skymirror/internal/infra/database/models"
)

// RateLimiter counts points per (key, namespace) bucket in the shared
// store so every node sees the same counters. Each consume is one
// short transaction; a rejected request rolls back so the bucket never
// carries a partial increment.
type RateLimiter struct {
	db *gorm.DB
}

func NewRateLimiter(db *gorm.DB) *RateLimiter {
	return &RateLimiter{db: db}
}

// Consume spends one point from the bucket. Returns RateLimitError
// with the time until the window resets when the bucket is exhausted.
func (r *RateLimiter) Consume(ctx context.Context, key, namespace string, limit int, window time.Duration) error {
	now := time.Now().UTC()
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var bucket models.RateLimit
		err := tx.Where("key = ? AND namespace = ?", key, namespace).First(&bucket).Error
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		resetAt, parseErr := time.Parse(time.RFC3339Nano, bucket.ResetAt)
		if err != nil || parseErr != nil || !now.Before(resetAt) {
			// New or expired window.
			bucket = models.RateLimit{
				Key:       key,
				Namespace: namespace,
				Points:    1,
				ResetAt:   now.Add(window).Format(time.RFC3339Nano),
			}
			return tx.Save(&bucket).Error
		}

		if bucket.Points >= limit {
			return domain.RateLimitError{RetryAfter: resetAt.Sub(now)}
		}

		bucket.Points++
		return tx.Save(&bucket).Error
	})
}

// Reset drops the bucket, releasing the window early.
func (r *RateLimiter) Reset(ctx context.Context, key, namespace string) error {
	return r.db.WithContext(ctx).
		Where("key = ? AND namespace = ?", key, namespace).
		Delete(&models.RateLimit{}).Error
}
