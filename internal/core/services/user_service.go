package services

import (
	"context"
	"errors"
	"log"
	"strings"

	"github.com/yuiyeong/bzero-api-sub001/internal/adapters/persistence/models"
	"github.com/yuiyeong/bzero-api-sub001/internal/adapters/persistence/repositories"
	"github.com/yuiyeong/bzero-api-sub001/internal/core/domain"

	"gorm.io/gorm"
)

const (
	minNicknameLength = 2
	maxNicknameLength = 50
)

// UserService handles traveller registration and profile lookup
type UserService struct {
	uow    *repositories.UnitOfWork
	users  repositories.UserStore
	ledger *PointLedgerService
	rules  BookingRules
}

// NewUserService creates a new user service
func NewUserService(
	uow *repositories.UnitOfWork,
	users repositories.UserStore,
	ledger *PointLedgerService,
	rules BookingRules,
) *UserService {
	return &UserService{
		uow:    uow,
		users:  users,
		ledger: ledger,
		rules:  rules,
	}
}

// RegisterInput represents register request
type RegisterInput struct {
	Nickname string `json:"nickname"`
}

// UpdateUserInput represents profile update request
type UpdateUserInput struct {
	Nickname string `json:"nickname"`
}

// Register creates the user behind an authenticated subject and grants the
// sign-up bonus. Calling it for an existing user returns that user.
func (s *UserService) Register(ctx context.Context, userID, nickname string) (*models.User, error) {
	nickname = strings.TrimSpace(nickname)
	if userID == "" || nickname == "" || len([]rune(nickname)) > maxNicknameLength {
		return nil, domain.ErrInvalidInput
	}

	existing, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	created := false
	err = s.uow.Do(ctx, func(ctx context.Context) error {
		user := &models.User{ID: userID, Nickname: nickname}
		if err := s.users.Create(ctx, user); err != nil {
			return err
		}

		if s.rules.SignupPoints > 0 {
			if _, err := s.ledger.Earn(ctx, LedgerEntry{
				UserID:        user.ID,
				Amount:        s.rules.SignupPoints,
				Reason:        domain.ReasonSignedUp,
				ReferenceType: domain.RefUsers,
				ReferenceID:   user.ID,
				Description:   "welcome bonus",
			}); err != nil {
				return err
			}
		}
		created = true
		return nil
	})
	if err != nil {
		// A concurrent registration may have won the insert
		if again, getErr := s.users.GetByID(ctx, userID); getErr == nil && again != nil {
			return again, nil
		}
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, domain.Wrap(domain.ErrInvalidInput, "user %s already exists", userID)
		}
		return nil, err
	}

	if created {
		log.Printf("✅ User registered: %s (%s)", userID, nickname)
	}
	return s.Me(ctx, userID)
}

// Me returns the user's profile with the cached balance
func (s *UserService) Me(ctx context.Context, userID string) (*models.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, domain.ErrNotFoundUser
	}
	return user, nil
}

// UpdateNickname renames the user and returns the updated profile
func (s *UserService) UpdateNickname(ctx context.Context, userID string, input *UpdateUserInput) (*models.User, error) {
	if input == nil {
		return nil, domain.ErrInvalidInput
	}
	nickname := strings.TrimSpace(input.Nickname)
	if n := len([]rune(nickname)); n < minNicknameLength || n > maxNicknameLength {
		return nil, domain.Wrap(domain.ErrInvalidInput, "nickname must be %d-%d characters", minNicknameLength, maxNicknameLength)
	}

	err := s.uow.Do(ctx, func(ctx context.Context) error {
		user, err := s.users.GetByIDForUpdate(ctx, userID)
		if err != nil {
			return err
		}
		if user == nil {
			return domain.ErrNotFoundUser
		}
		return s.users.UpdateNickname(ctx, user.ID, nickname)
	})
	if err != nil {
		return nil, err
	}

	log.Printf("✅ Nickname updated: %s -> %s", userID, nickname)
	return s.Me(ctx, userID)
}
