package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/yuiyeong/bzero-api-sub001/internal/adapters/persistence/repositories"
	"github.com/yuiyeong/bzero-api-sub001/internal/core/domain"
	"github.com/yuiyeong/bzero-api-sub001/internal/pkg/response"
)

// CatalogHandler serves the read-only city and vehicle catalog
type CatalogHandler struct {
	catalog repositories.CatalogStore
}

// NewCatalogHandler creates a new catalog handler
func NewCatalogHandler(catalog repositories.CatalogStore) *CatalogHandler {
	return &CatalogHandler{catalog: catalog}
}

// ListCities lists active cities
// @Summary List cities
// @Tags Catalog
// @Produce json
// @Success 200 {object} response.Response
// @Router /cities [get]
func (h *CatalogHandler) ListCities(c *fiber.Ctx) error {
	cities, err := h.catalog.ListActiveCities(c.Context())
	if err != nil {
		return response.InternalServerError(c, "Failed to list cities")
	}

	return response.Success(c, "Cities retrieved successfully", fiber.Map{
		"cities": cities,
	})
}

// GetCity returns one city by id
// @Summary Get city
// @Tags Catalog
// @Produce json
// @Param id path string true "City ID"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /cities/{id} [get]
func (h *CatalogHandler) GetCity(c *fiber.Ctx) error {
	city, err := h.catalog.GetCity(c.Context(), c.Params("id"))
	if err != nil {
		return response.InternalServerError(c, "Failed to get city")
	}
	if city == nil {
		return response.FromError(c, domain.ErrNotFoundCity)
	}

	return response.Success(c, "City retrieved successfully", fiber.Map{
		"city": city,
	})
}

// ListVehicles lists active vehicles
// @Summary List vehicles
// @Tags Catalog
// @Produce json
// @Success 200 {object} response.Response
// @Router /vehicles [get]
func (h *CatalogHandler) ListVehicles(c *fiber.Ctx) error {
	vehicles, err := h.catalog.ListActiveVehicles(c.Context())
	if err != nil {
		return response.InternalServerError(c, "Failed to list vehicles")
	}

	return response.Success(c, "Vehicles retrieved successfully", fiber.Map{
		"vehicles": vehicles,
	})
}
