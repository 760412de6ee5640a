package config

import (
	"errors"
	"log"

	"github.com/yuiyeong/bzero-api-sub001/internal/adapters/persistence/models"

	"gorm.io/gorm"
)

// Seeder handles database seeding
type Seeder struct {
	db *gorm.DB
}

// NewSeeder creates a new seeder instance
func NewSeeder(db *gorm.DB) *Seeder {
	return &Seeder{db: db}
}

// Run seeds the catalog: cities, vehicles and one guest house per active city.
// Existing rows (matched by name) are left untouched.
func (s *Seeder) Run() error {
	log.Println("🌱 Running database seeders...")

	if err := s.seedCities(); err != nil {
		return err
	}
	if err := s.seedVehicles(); err != nil {
		return err
	}
	if err := s.seedGuestHouses(); err != nil {
		return err
	}

	log.Println("✅ Database seeding completed")
	return nil
}

func (s *Seeder) seedCities() error {
	cities := []models.City{
		{Name: "세렌시아", Theme: "관계의 도시", BaseCostPoints: 300, BaseDurationHours: 24, DisplayOrder: 1, IsActive: true},
		{Name: "로렌시아", Theme: "회복의 도시", BaseCostPoints: 300, BaseDurationHours: 24, DisplayOrder: 2, IsActive: true},
		{Name: "에테리아", Theme: "성장의 도시", BaseCostPoints: 300, BaseDurationHours: 24, DisplayOrder: 3, IsActive: false},
		{Name: "드리모스", Theme: "꿈의 도시", BaseCostPoints: 300, BaseDurationHours: 24, DisplayOrder: 4, IsActive: false},
		{Name: "셀레니아", Theme: "평온의 도시", BaseCostPoints: 300, BaseDurationHours: 24, DisplayOrder: 5, IsActive: false},
		{Name: "아벤투라", Theme: "모험의 도시", BaseCostPoints: 300, BaseDurationHours: 24, DisplayOrder: 6, IsActive: false},
	}

	for _, c := range cities {
		var existing models.City
		err := s.db.Where("name = ?", c.Name).First(&existing).Error
		if err == nil {
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		if err := s.db.Create(&c).Error; err != nil {
			return err
		}
		log.Printf("   Created city: %s", c.Name)
	}
	return nil
}

func (s *Seeder) seedVehicles() error {
	vehicles := []models.Vehicle{
		{Name: "일반 비행선", Description: "느긋하게 여행을 즐기며 도시로 이동합니다.", CostFactor: 1, DurationFactor: 3, DisplayOrder: 1, IsActive: true},
		{Name: "고속 비행선", Description: "신속하게 도시로 이동합니다.", CostFactor: 3, DurationFactor: 1, DisplayOrder: 2, IsActive: true},
	}

	for _, v := range vehicles {
		var existing models.Vehicle
		err := s.db.Where("name = ?", v.Name).First(&existing).Error
		if err == nil {
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		if err := s.db.Create(&v).Error; err != nil {
			return err
		}
		log.Printf("   Created vehicle: %s", v.Name)
	}
	return nil
}

func (s *Seeder) seedGuestHouses() error {
	var cities []models.City
	if err := s.db.Where("is_active = ?", true).Find(&cities).Error; err != nil {
		return err
	}

	for _, c := range cities {
		var count int64
		if err := s.db.Model(&models.GuestHouse{}).Where("city_id = ?", c.ID).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			continue
		}

		gh := models.GuestHouse{
			CityID:      c.ID,
			Name:        "편안함이 가득한 곳",
			Description: "멋진 사람들과 함께 소중한 시간을 보내세요.",
			IsActive:    true,
		}
		if err := s.db.Create(&gh).Error; err != nil {
			return err
		}
		log.Printf("   Created guest house for %s", c.Name)
	}
	return nil
}
