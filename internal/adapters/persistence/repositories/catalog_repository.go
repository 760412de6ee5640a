package repositories

import (
	"context"
	"errors"

	"github.com/yuiyeong/bzero-api-sub001/internal/adapters/persistence/models"

	"gorm.io/gorm"
)

// ============================================================
// Master data: cities, vehicles, guest houses
// ============================================================

type catalogRepository struct {
	db *gorm.DB
}

// NewCatalogRepository creates a new catalog repository
func NewCatalogRepository(db *gorm.DB) CatalogStore {
	return &catalogRepository{db: db}
}

func (r *catalogRepository) GetCity(ctx context.Context, id string) (*models.City, error) {
	var city models.City
	if err := conn(ctx, r.db).Where("id = ?", id).First(&city).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &city, nil
}

func (r *catalogRepository) GetVehicle(ctx context.Context, id string) (*models.Vehicle, error) {
	var vehicle models.Vehicle
	if err := conn(ctx, r.db).Where("id = ?", id).First(&vehicle).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &vehicle, nil
}

func (r *catalogRepository) ListActiveCities(ctx context.Context) ([]models.City, error) {
	var cities []models.City
	err := conn(ctx, r.db).
		Where("is_active = ?", true).
		Order("display_order ASC, name ASC").
		Find(&cities).Error
	return cities, err
}

func (r *catalogRepository) ListActiveVehicles(ctx context.Context) ([]models.Vehicle, error) {
	var vehicles []models.Vehicle
	err := conn(ctx, r.db).
		Where("is_active = ?", true).
		Order("display_order ASC, name ASC").
		Find(&vehicles).Error
	return vehicles, err
}

type guestHouseRepository struct {
	db *gorm.DB
}

// NewGuestHouseRepository creates a new guest house repository
func NewGuestHouseRepository(db *gorm.DB) GuestHouseStore {
	return &guestHouseRepository{db: db}
}

func (r *guestHouseRepository) Create(ctx context.Context, gh *models.GuestHouse) error {
	return conn(ctx, r.db).Create(gh).Error
}

func (r *guestHouseRepository) GetByID(ctx context.Context, id string) (*models.GuestHouse, error) {
	var gh models.GuestHouse
	if err := conn(ctx, r.db).Where("id = ?", id).First(&gh).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &gh, nil
}

// GetActiveByCity returns the oldest active guest house of a city
func (r *guestHouseRepository) GetActiveByCity(ctx context.Context, cityID string) (*models.GuestHouse, error) {
	var gh models.GuestHouse
	err := conn(ctx, r.db).
		Where("city_id = ? AND is_active = ?", cityID, true).
		Order("created_at ASC, id ASC").
		First(&gh).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &gh, nil
}
