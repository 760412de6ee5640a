package models

import (
	"fmt"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/yuiyeong/bzero-api-sub001/internal/core/domain"
)

// ============================================================
// Point ledger & task failures
// ============================================================

// PointTransaction represents point_transactions table.
// Rows are append-only; corrections are new rows.
type PointTransaction struct {
	ID             string                   `gorm:"type:char(36);primaryKey" json:"id"`
	UserID         string                   `gorm:"type:char(36);not null;index:idx_point_tx_user_status,priority:1" json:"user_id"`
	Type           domain.TransactionType   `gorm:"size:10;not null" json:"transaction_type"`
	Amount         int64                    `gorm:"not null" json:"amount"`
	Reason         domain.TransactionReason `gorm:"size:20;not null" json:"reason"`
	Status         domain.TransactionStatus `gorm:"size:15;not null;index:idx_point_tx_user_status,priority:2" json:"status"`
	BalanceBefore  int64                    `gorm:"not null" json:"balance_before"`
	BalanceAfter   int64                    `gorm:"not null" json:"balance_after"`
	ReferenceType  *domain.ReferenceType    `gorm:"size:20;index:idx_point_tx_reference,priority:1" json:"reference_type,omitempty"`
	ReferenceID    *string                  `gorm:"type:char(36);index:idx_point_tx_reference,priority:2" json:"reference_id,omitempty"`
	IdempotencyKey *string                  `gorm:"size:120;uniqueIndex" json:"-"`
	Description    string                   `gorm:"size:255" json:"description"`
	Audited
}

func (PointTransaction) TableName() string {
	return "point_transactions"
}

func (p *PointTransaction) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = NewID()
	}
	return nil
}

// SignedAmount returns +amount for EARN and -amount for SPEND
func (p *PointTransaction) SignedAmount() int64 {
	if p.Type == domain.TransactionSpend {
		return -p.Amount
	}
	return p.Amount
}

// IsConsistent checks balance_after = balance_before +/- amount
func (p *PointTransaction) IsConsistent() bool {
	return p.BalanceAfter == p.BalanceBefore+p.SignedAmount()
}

// MarkCompleted finalizes a pending transaction
func (p *PointTransaction) MarkCompleted() error {
	if p.Status != domain.TransactionPending {
		return domain.ErrInvalidPointTransactionState
	}
	p.Status = domain.TransactionCompleted
	return nil
}

// MarkFailed finalizes a pending transaction as failed
func (p *PointTransaction) MarkFailed() error {
	if p.Status != domain.TransactionPending {
		return domain.ErrInvalidPointTransactionState
	}
	p.Status = domain.TransactionFailed
	return nil
}

// ReferenceKey builds the default idempotency key reason:type:id
func ReferenceKey(reason domain.TransactionReason, refType domain.ReferenceType, refID string) string {
	return fmt.Sprintf("%s:%s:%s", reason, refType, refID)
}

// TaskFailureLog represents task_failure_logs table
type TaskFailureLog struct {
	ID           string         `gorm:"type:char(36);primaryKey" json:"id"`
	TaskID       string         `gorm:"size:64;not null;index" json:"task_id"`
	TaskName     string         `gorm:"size:100;not null;index" json:"task_name"`
	Args         datatypes.JSON `json:"args"`
	Kwargs       datatypes.JSON `json:"kwargs"`
	ErrorMessage string         `gorm:"type:text" json:"error_message"`
	Traceback    string         `gorm:"type:text" json:"traceback"`
	Audited
}

func (TaskFailureLog) TableName() string {
	return "task_failure_logs"
}

func (l *TaskFailureLog) BeforeCreate(tx *gorm.DB) error {
	if l.ID == "" {
		l.ID = NewID()
	}
	return nil
}
