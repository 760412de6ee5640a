package services

import (
	"context"
	"fmt"
	"log"

	"github.com/yuiyeong/bzero-api-sub001/internal/adapters/persistence/models"
	"github.com/yuiyeong/bzero-api-sub001/internal/adapters/persistence/repositories"
	"github.com/yuiyeong/bzero-api-sub001/internal/core/domain"
)

// LedgerEntry describes one balance movement
type LedgerEntry struct {
	UserID        string
	Amount        int64
	Reason        domain.TransactionReason
	ReferenceType domain.ReferenceType
	ReferenceID   string
	Description   string
	// IdempotencyKey defaults to reason:reference_type:reference_id when a
	// reference is set. Entries without a key are never deduplicated.
	IdempotencyKey string
}

func (e LedgerEntry) key() string {
	if e.IdempotencyKey != "" {
		return e.IdempotencyKey
	}
	if e.ReferenceType != "" && e.ReferenceID != "" {
		return models.ReferenceKey(e.Reason, e.ReferenceType, e.ReferenceID)
	}
	return ""
}

// Reconciliation compares the cached balance with the ledger
type Reconciliation struct {
	UserID     string `json:"user_id"`
	Cached     int64  `json:"cached"`
	Ledger     int64  `json:"ledger"`
	Consistent bool   `json:"consistent"`
}

// PointLedgerService is the only writer of point balances
type PointLedgerService struct {
	uow    *repositories.UnitOfWork
	users  repositories.UserStore
	ledger repositories.TransactionLedger
}

// NewPointLedgerService creates a new ledger service
func NewPointLedgerService(uow *repositories.UnitOfWork, users repositories.UserStore, ledger repositories.TransactionLedger) *PointLedgerService {
	return &PointLedgerService{
		uow:    uow,
		users:  users,
		ledger: ledger,
	}
}

// Earn credits points. It joins the caller's transaction when ctx carries one.
func (s *PointLedgerService) Earn(ctx context.Context, entry LedgerEntry) (*models.PointTransaction, error) {
	return s.post(ctx, domain.TransactionEarn, entry)
}

// Spend debits points, failing with ErrInsufficientBalance rather than going negative
func (s *PointLedgerService) Spend(ctx context.Context, entry LedgerEntry) (*models.PointTransaction, error) {
	return s.post(ctx, domain.TransactionSpend, entry)
}

func (s *PointLedgerService) post(ctx context.Context, typ domain.TransactionType, entry LedgerEntry) (*models.PointTransaction, error) {
	if entry.Amount <= 0 {
		return nil, domain.ErrInvalidAmount
	}

	var result *models.PointTransaction
	err := s.uow.Do(ctx, func(ctx context.Context) error {
		// 1. Dedup
		key := entry.key()
		if key != "" {
			exists, err := s.ledger.ExistsByKey(ctx, key)
			if err != nil {
				return err
			}
			if exists {
				return domain.ErrDuplicatedReward
			}
		}

		// 2. Lock the user row so balance reads are serialized
		user, err := s.users.GetByIDForUpdate(ctx, entry.UserID)
		if err != nil {
			return err
		}
		if user == nil {
			return domain.ErrNotFoundUser
		}

		// 3. The ledger is the source of truth for balance_before
		sum, err := s.ledger.SumCompleted(ctx, user.ID)
		if err != nil {
			return err
		}
		before, err := domain.NewBalance(sum)
		if err != nil {
			return fmt.Errorf("ledger of user %s sums to %d: %w", user.ID, sum, err)
		}

		var after domain.Balance
		if typ == domain.TransactionEarn {
			after, err = before.Add(entry.Amount)
		} else {
			after, err = before.Deduct(entry.Amount)
		}
		if err != nil {
			return err
		}

		// 4. Append PENDING, then finalize
		tx := &models.PointTransaction{
			ID:            models.NewID(),
			UserID:        user.ID,
			Type:          typ,
			Amount:        entry.Amount,
			Reason:        entry.Reason,
			Status:        domain.TransactionPending,
			BalanceBefore: before.Int64(),
			BalanceAfter:  after.Int64(),
			Description:   entry.Description,
		}
		if entry.ReferenceType != "" {
			refType := entry.ReferenceType
			refID := entry.ReferenceID
			tx.ReferenceType = &refType
			tx.ReferenceID = &refID
		}
		if key != "" {
			tx.IdempotencyKey = &key
		}

		if err := s.ledger.Create(ctx, tx); err != nil {
			return err
		}
		if err := tx.MarkCompleted(); err != nil {
			return err
		}
		if err := s.ledger.UpdateStatus(ctx, tx); err != nil {
			return err
		}

		// 5. Refresh the cached projection
		if err := s.users.UpdatePoints(ctx, user.ID, after.Int64()); err != nil {
			return err
		}

		result = tx
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Printf("💰 %s %d points for user %s (%s, %d -> %d)",
		typ, entry.Amount, entry.UserID, entry.Reason, result.BalanceBefore, result.BalanceAfter)
	return result, nil
}

// ExistsByReference reports whether a non-failed transaction already exists
func (s *PointLedgerService) ExistsByReference(ctx context.Context, refType domain.ReferenceType, refID string, reason domain.TransactionReason) (bool, error) {
	return s.ledger.ExistsByReference(ctx, refType, refID, reason)
}

// Balance returns the cached balance
func (s *PointLedgerService) Balance(ctx context.Context, userID string) (int64, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return 0, err
	}
	if user == nil {
		return 0, domain.ErrNotFoundUser
	}
	return user.CurrentPoints, nil
}

// History lists a user's ledger rows, newest first
func (s *PointLedgerService) History(ctx context.Context, userID string, filter repositories.TransactionFilter, offset, limit int) ([]models.PointTransaction, int64, error) {
	return s.ledger.ListByUser(ctx, userID, filter, offset, limit)
}

// Reconcile checks users.current_points against the ledger sum
func (s *PointLedgerService) Reconcile(ctx context.Context, userID string) (*Reconciliation, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, domain.ErrNotFoundUser
	}

	sum, err := s.ledger.SumCompleted(ctx, userID)
	if err != nil {
		return nil, err
	}

	r := &Reconciliation{
		UserID:     userID,
		Cached:     user.CurrentPoints,
		Ledger:     sum,
		Consistent: user.CurrentPoints == sum,
	}
	if !r.Consistent {
		log.Printf("🚨 Balance mismatch for user %s: cached=%d ledger=%d", userID, r.Cached, r.Ledger)
	}
	return r, nil
}
