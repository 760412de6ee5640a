package repositories

import (
	"context"
	"errors"

	"github.com/yuiyeong/bzero-api-sub001/internal/adapters/persistence/models"
	"github.com/yuiyeong/bzero-api-sub001/internal/core/domain"

	"gorm.io/gorm"
)

type diaryRepository struct {
	db *gorm.DB
}

// NewDiaryRepository creates a new diary repository
func NewDiaryRepository(db *gorm.DB) DiaryStore {
	return &diaryRepository{db: db}
}

func (r *diaryRepository) Create(ctx context.Context, diary *models.Diary) error {
	err := conn(ctx, r.db).Create(diary).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return domain.ErrDuplicatedDiary
	}
	return err
}

func (r *diaryRepository) GetByRoomStay(ctx context.Context, roomStayID string) (*models.Diary, error) {
	var diary models.Diary
	if err := conn(ctx, r.db).Where("room_stay_id = ?", roomStayID).First(&diary).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &diary, nil
}

func (r *diaryRepository) ListByUser(ctx context.Context, userID string, offset, limit int) ([]models.Diary, int64, error) {
	var diaries []models.Diary
	var total int64

	q := conn(ctx, r.db).Model(&models.Diary{}).Where("user_id = ?", userID).Session(&gorm.Session{})
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if err := q.Order("created_at DESC, id DESC").Offset(offset).Limit(limit).Find(&diaries).Error; err != nil {
		return nil, 0, err
	}
	return diaries, total, nil
}

type taskFailureLogRepository struct {
	db *gorm.DB
}

// NewTaskFailureLogRepository creates a new task failure log repository
func NewTaskFailureLogRepository(db *gorm.DB) TaskFailureLogStore {
	return &taskFailureLogRepository{db: db}
}

func (r *taskFailureLogRepository) Create(ctx context.Context, entry *models.TaskFailureLog) error {
	return conn(ctx, r.db).Create(entry).Error
}

func (r *taskFailureLogRepository) ListRecent(ctx context.Context, limit int) ([]models.TaskFailureLog, error) {
	var entries []models.TaskFailureLog
	err := conn(ctx, r.db).Order("created_at DESC, id DESC").Limit(limit).Find(&entries).Error
	return entries, err
}
