package postgres

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/pgil256/juntas-seguras-sub008/internal/domain"
	"github.com/pgil256/juntas-seguras-sub008/internal/ports"
)

type idempotencyRepository struct {
	db *gorm.DB
}

func (r *idempotencyRepository) Get(ctx context.Context, key string, now time.Time) (*ports.IdempotencyRecord, error) {
	var rec idempotencyModel
	if err := r.db.WithContext(ctx).Where("idem_key = ?", key).Take(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	if now.After(rec.ExpiresAt) {
		// Expired reservations are abandoned rather than replayed.
		return nil, nil
	}
	return &ports.IdempotencyRecord{
		Key:          rec.IdemKey,
		RequestHash:  rec.RequestHash,
		ResponseCode: rec.ResponseCode,
		ResponseBody: rec.ResponseBody,
		ExpiresAt:    rec.ExpiresAt,
	}, nil
}

func (r *idempotencyRepository) Reserve(ctx context.Context, key, requestHash string, now, expiresAt time.Time) error {
	rec := idempotencyModel{
		IdemKey:     key,
		RequestHash: requestHash,
		CreatedAt:   now,
		ExpiresAt:   expiresAt,
	}
	if err := r.db.WithContext(ctx).Create(&rec).Error; err != nil {
		if !isUniqueViolation(err) {
			return err
		}
		// An expired reservation does not block the key; take it over.
		res := r.db.WithContext(ctx).
			Model(&idempotencyModel{}).
			Where("idem_key = ? AND expires_at <= ?", key, now).
			Updates(map[string]any{
				"request_hash":  requestHash,
				"response_code": 0,
				"response_body": nil,
				"created_at":    now,
				"expires_at":    expiresAt,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return domain.ErrConflict
		}
	}
	return nil
}

func (r *idempotencyRepository) Complete(ctx context.Context, key string, responseCode int, responseBody []byte, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&idempotencyModel{}).
		Where("idem_key = ?", key).
		Updates(map[string]any{
			"response_code": responseCode,
			"response_body": responseBody,
		}).Error
}
