package services

import (
	"context"
	"log"
	"strings"

	"github.com/yuiyeong/bzero-api-sub001/internal/adapters/persistence/models"
	"github.com/yuiyeong/bzero-api-sub001/internal/adapters/persistence/repositories"
	"github.com/yuiyeong/bzero-api-sub001/internal/core/domain"
)

// RewardService writes diaries and grants the points they earn
type RewardService struct {
	uow     *repositories.UnitOfWork
	diaries repositories.DiaryStore
	stays   repositories.RoomStayStore
	ledger  *PointLedgerService
	rules   BookingRules
}

// NewRewardService creates a new reward service
func NewRewardService(
	uow *repositories.UnitOfWork,
	diaries repositories.DiaryStore,
	stays repositories.RoomStayStore,
	ledger *PointLedgerService,
	rules BookingRules,
) *RewardService {
	return &RewardService{
		uow:     uow,
		diaries: diaries,
		stays:   stays,
		ledger:  ledger,
		rules:   rules,
	}
}

// DiaryInput represents diary write request
type DiaryInput struct {
	RoomStayID string `json:"room_stay_id"`
	Title      string `json:"title"`
	Content    string `json:"content"`
	Mood       string `json:"mood"`
}

func (in *DiaryInput) validate() error {
	if in == nil {
		return domain.ErrInvalidInput
	}
	in.Title = strings.TrimSpace(in.Title)
	in.Content = strings.TrimSpace(in.Content)
	if in.RoomStayID == "" || in.Title == "" || in.Content == "" {
		return domain.ErrInvalidInput
	}
	if len([]rune(in.Title)) > 100 || len([]rune(in.Mood)) > 20 {
		return domain.Wrap(domain.ErrInvalidInput, "title or mood too long")
	}
	return nil
}

// WriteDiary stores the one diary a stay may have and grants the diary reward
func (s *RewardService) WriteDiary(ctx context.Context, userID string, input *DiaryInput) (*models.Diary, error) {
	if err := input.validate(); err != nil {
		return nil, err
	}

	var diary *models.Diary
	err := s.uow.Do(ctx, func(ctx context.Context) error {
		stay, err := s.stays.GetByID(ctx, input.RoomStayID)
		if err != nil {
			return err
		}
		if stay == nil {
			return domain.ErrNotFoundRoomStay
		}
		if !stay.IsOwnedBy(userID) {
			return domain.ErrForbiddenRoomStay
		}

		existing, err := s.diaries.GetByRoomStay(ctx, stay.ID)
		if err != nil {
			return err
		}
		if existing != nil {
			return domain.ErrDuplicatedDiary
		}

		diary = &models.Diary{
			ID:         models.NewID(),
			UserID:     userID,
			RoomStayID: stay.ID,
			CityID:     stay.CityID,
			Title:      input.Title,
			Content:    input.Content,
			Mood:       input.Mood,
		}
		if err := s.diaries.Create(ctx, diary); err != nil {
			return err
		}

		_, err = s.GrantDiaryReward(ctx, diary)
		return err
	})
	if err != nil {
		return nil, err
	}

	log.Printf("📔 Diary written: %s (stay %s)", diary.ID, diary.RoomStayID)
	return diary, nil
}

// GrantDiaryReward earns the diary points once per diary
func (s *RewardService) GrantDiaryReward(ctx context.Context, diary *models.Diary) (*models.PointTransaction, error) {
	return s.ledger.Earn(ctx, LedgerEntry{
		UserID:        diary.UserID,
		Amount:        s.rules.DiaryRewardPoints,
		Reason:        domain.ReasonDiary,
		ReferenceType: domain.RefDiaries,
		ReferenceID:   diary.ID,
		Description:   "diary reward",
	})
}

// ListDiaries lists the user's diaries, newest first
func (s *RewardService) ListDiaries(ctx context.Context, userID string, offset, limit int) ([]models.Diary, int64, error) {
	return s.diaries.ListByUser(ctx, userID, offset, limit)
}
