package repositories

import (
	"context"
	"errors"

	"github.com/yuiyeong/bzero-api-sub001/internal/adapters/persistence/models"
	"github.com/yuiyeong/bzero-api-sub001/internal/core/domain"

	"gorm.io/gorm"
)

type pointTransactionRepository struct {
	db *gorm.DB
}

// NewPointTransactionRepository creates a new ledger repository
func NewPointTransactionRepository(db *gorm.DB) TransactionLedger {
	return &pointTransactionRepository{db: db}
}

// Create appends a ledger row. A repeated idempotency key maps to ErrDuplicatedReward.
func (r *pointTransactionRepository) Create(ctx context.Context, tx *models.PointTransaction) error {
	err := conn(ctx, r.db).Create(tx).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return domain.ErrDuplicatedReward
	}
	return err
}

// UpdateStatus finalizes a row. Nothing else about a ledger row ever changes.
func (r *pointTransactionRepository) UpdateStatus(ctx context.Context, tx *models.PointTransaction) error {
	return conn(ctx, r.db).Model(tx).Update("status", tx.Status).Error
}

func (r *pointTransactionRepository) ExistsByKey(ctx context.Context, key string) (bool, error) {
	var count int64
	err := conn(ctx, r.db).Model(&models.PointTransaction{}).
		Where("idempotency_key = ?", key).
		Count(&count).Error
	return count > 0, err
}

func (r *pointTransactionRepository) ExistsByReference(ctx context.Context, refType domain.ReferenceType, refID string, reason domain.TransactionReason) (bool, error) {
	var count int64
	err := conn(ctx, r.db).Model(&models.PointTransaction{}).
		Where("reference_type = ? AND reference_id = ? AND reason = ?", refType, refID, reason).
		Where("status <> ?", domain.TransactionFailed).
		Count(&count).Error
	return count > 0, err
}

// SumCompleted returns sum(EARN) - sum(SPEND) over completed rows
func (r *pointTransactionRepository) SumCompleted(ctx context.Context, userID string) (int64, error) {
	var sum int64
	err := conn(ctx, r.db).Model(&models.PointTransaction{}).
		Select("COALESCE(SUM(CASE WHEN type = ? THEN amount ELSE -amount END), 0)", domain.TransactionEarn).
		Where("user_id = ? AND status = ?", userID, domain.TransactionCompleted).
		Scan(&sum).Error
	return sum, err
}

// ListByUser lists a user's ledger, newest first
func (r *pointTransactionRepository) ListByUser(ctx context.Context, userID string, filter TransactionFilter, offset, limit int) ([]models.PointTransaction, int64, error) {
	var txs []models.PointTransaction
	var total int64

	q := conn(ctx, r.db).Model(&models.PointTransaction{}).Where("user_id = ?", userID)
	if filter.Type != nil {
		q = q.Where("type = ?", *filter.Type)
	}
	if filter.Reason != nil {
		q = q.Where("reason = ?", *filter.Reason)
	}
	q = q.Session(&gorm.Session{})

	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if err := q.Order("created_at DESC, id DESC").Offset(offset).Limit(limit).Find(&txs).Error; err != nil {
		return nil, 0, err
	}

	return txs, total, nil
}
