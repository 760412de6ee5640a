package repositories

import (
	"context"
	"errors"

	"github.com/yuiyeong/bzero-api-sub001/internal/adapters/persistence/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// userRepository implements UserStore interface
type userRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *gorm.DB) UserStore {
	return &userRepository{db: db}
}

// Create creates a new user
func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	return conn(ctx, r.db).Create(user).Error
}

// GetByID gets a user by ID
func (r *userRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	return r.first(conn(ctx, r.db), id)
}

// GetByIDForUpdate gets a user by ID and locks the row until the transaction ends
func (r *userRepository) GetByIDForUpdate(ctx context.Context, id string) (*models.User, error) {
	return r.first(conn(ctx, r.db).Clauses(clause.Locking{Strength: "UPDATE"}), id)
}

func (r *userRepository) first(q *gorm.DB, id string) (*models.User, error) {
	var user models.User
	err := q.Where("id = ?", id).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}

// UpdatePoints overwrites the cached balance
func (r *userRepository) UpdatePoints(ctx context.Context, id string, points int64) error {
	return conn(ctx, r.db).Model(&models.User{}).
		Where("id = ?", id).
		Update("current_points", points).Error
}

// UpdateNickname changes the display name
func (r *userRepository) UpdateNickname(ctx context.Context, id, nickname string) error {
	return conn(ctx, r.db).Model(&models.User{}).
		Where("id = ?", id).
		Update("nickname", nickname).Error
}
