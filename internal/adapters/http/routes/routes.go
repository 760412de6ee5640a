package routes

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/yuiyeong/bzero-api-sub001/internal/adapters/http/handlers"
	"github.com/yuiyeong/bzero-api-sub001/internal/adapters/http/middleware"
	"github.com/yuiyeong/bzero-api-sub001/internal/adapters/persistence/repositories"
	"github.com/yuiyeong/bzero-api-sub001/internal/config"
	"github.com/yuiyeong/bzero-api-sub001/internal/core/services"
)

const catalogMaxAge = 5 * time.Minute

// Deps carries the services the HTTP layer is built on
type Deps struct {
	Catalog   repositories.CatalogStore
	Users     *services.UserService
	Ledger    *services.PointLedgerService
	Tickets   *services.TicketService
	RoomStays *services.RoomStayService
	Rewards   *services.RewardService
	Dashboard *services.DashboardService
}

// Setup configures all routes for the application
func Setup(app *fiber.App, cfg *config.Config, deps Deps) {
	// Initialize handlers
	healthHandler := handlers.NewHealthHandler(cfg)
	catalogHandler := handlers.NewCatalogHandler(deps.Catalog)
	userHandler := handlers.NewUserHandler(deps.Users, deps.Ledger)
	ticketHandler := handlers.NewTicketHandler(deps.Tickets)
	roomStayHandler := handlers.NewRoomStayHandler(deps.RoomStays)
	diaryHandler := handlers.NewDiaryHandler(deps.Rewards)
	dashboardHandler := handlers.NewDashboardHandler(deps.Dashboard)

	// Health check & root routes
	app.Get("/", healthHandler.Root)
	app.Get("/health", healthHandler.HealthCheck)

	// API v1 group
	apiV1 := app.Group("/api/v1")
	apiV1.Get("/", healthHandler.APIInfo)

	// Catalog (public, cacheable)
	cache := middleware.CatalogCache(catalogMaxAge)
	apiV1.Get("/cities", cache, catalogHandler.ListCities)
	apiV1.Get("/cities/:id", cache, catalogHandler.GetCity)
	apiV1.Get("/vehicles", cache, catalogHandler.ListVehicles)

	// Everything below is per user
	auth := middleware.AuthMiddleware(cfg)
	noStore := middleware.NoStore()
	writes := middleware.WriteRateLimiter()

	setupUserRoutes(apiV1.Group("/users", auth, noStore), userHandler, writes)
	setupPointRoutes(apiV1.Group("/points", auth, noStore), userHandler)
	setupTicketRoutes(apiV1.Group("/tickets", auth, noStore), ticketHandler, writes)
	setupRoomStayRoutes(apiV1.Group("/room-stays", auth, noStore), roomStayHandler, writes)
	apiV1.Get("/rooms/:id/members", auth, noStore, roomStayHandler.RoomMembers)
	setupDiaryRoutes(apiV1.Group("/diaries", auth, noStore), diaryHandler, writes)

	// Admin
	setupAdminRoutes(apiV1.Group("/admin", auth, middleware.AdminOnly(), noStore), dashboardHandler)
}

func setupUserRoutes(router fiber.Router, handler *handlers.UserHandler, writes fiber.Handler) {
	router.Post("/", writes, handler.Register)
	router.Get("/me", handler.Me)
	router.Patch("/me", writes, handler.UpdateMe)
}

func setupPointRoutes(router fiber.Router, handler *handlers.UserHandler) {
	router.Get("/transactions", handler.Transactions)
}

// setupTicketRoutes registers /boarding ahead of /:id so it is not captured as an id
func setupTicketRoutes(router fiber.Router, handler *handlers.TicketHandler, writes fiber.Handler) {
	router.Post("/", writes, handler.Purchase)
	router.Get("/", handler.List)
	router.Get("/boarding", handler.Boarding)
	router.Get("/:id", handler.Get)
	router.Post("/:id/cancel", writes, handler.Cancel)
}

func setupRoomStayRoutes(router fiber.Router, handler *handlers.RoomStayHandler, writes fiber.Handler) {
	router.Get("/current", handler.Current)
	router.Post("/:id/extend", writes, handler.Extend)
	router.Post("/:id/check-out", writes, handler.CheckOut)
}

func setupDiaryRoutes(router fiber.Router, handler *handlers.DiaryHandler, writes fiber.Handler) {
	router.Post("/", writes, handler.Write)
	router.Get("/", handler.List)
}

// setupAdminRoutes configures operator routes (Admin only)
func setupAdminRoutes(router fiber.Router, handler *handlers.DashboardHandler) {
	router.Get("/dashboard", handler.GetAdminDashboard)
	router.Get("/task-failures", handler.ListTaskFailures)
	router.Get("/users/:id/reconcile", handler.ReconcileUser)
}
