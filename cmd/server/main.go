package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/spf13/pflag"

	"github.com/yuiyeong/bzero-api-sub001/internal/adapters/http/middleware"
	"github.com/yuiyeong/bzero-api-sub001/internal/adapters/http/routes"
	"github.com/yuiyeong/bzero-api-sub001/internal/adapters/persistence/models"
	"github.com/yuiyeong/bzero-api-sub001/internal/adapters/persistence/repositories"
	"github.com/yuiyeong/bzero-api-sub001/internal/config"
	"github.com/yuiyeong/bzero-api-sub001/internal/core/services"
	"github.com/yuiyeong/bzero-api-sub001/internal/pkg/clock"
	"github.com/yuiyeong/bzero-api-sub001/internal/worker"
)

// @title B0 API
// @version 1.0
// @description Travel booking for a healing journey: tickets, guest house rooms, stays and points.

// @BasePath /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

func main() {
	fs := pflag.NewFlagSet("server", pflag.ExitOnError)
	config.RegisterFlags(fs)
	_ = fs.Parse(os.Args[1:])

	// Load configuration
	cfg, err := config.Load(fs)
	if err != nil {
		log.Fatalf("❌ Failed to load configuration: %v", err)
	}

	clk := clock.Real()

	// Connect to database
	db, err := config.ConnectDatabase(cfg, clk.Now)
	if err != nil {
		log.Fatalf("❌ Failed to connect to database: %v", err)
	}
	defer config.CloseDatabase()

	if err := models.AutoMigrate(db); err != nil {
		log.Fatalf("❌ Failed to auto migrate: %v", err)
	}
	log.Println("✅ Database migration completed")

	if err := config.NewSeeder(db).Run(); err != nil {
		log.Printf("⚠️ Warning: Failed to seed catalog: %v", err)
	}

	if migrateOnly, _ := fs.GetBool("migrate-only"); migrateOnly {
		log.Println("✅ Migrate-only run finished")
		return
	}

	// Locking: in-process always, plus MySQL named locks across instances
	var locker repositories.Locker = repositories.NewKeyedMutex()
	if cfg.Database.Driver == "mysql" {
		locker = repositories.ChainLocker{locker, repositories.NewMySQLLocker(db)}
	}
	uow := repositories.NewUnitOfWork(db, locker, cfg.LockTimeout)

	// Initialize repositories
	userRepo := repositories.NewUserRepository(db)
	catalogRepo := repositories.NewCatalogRepository(db)
	guestHouseRepo := repositories.NewGuestHouseRepository(db)
	roomRepo := repositories.NewRoomRepository(db)
	ticketRepo := repositories.NewTicketRepository(db)
	stayRepo := repositories.NewRoomStayRepository(db)
	ledgerRepo := repositories.NewPointTransactionRepository(db)
	diaryRepo := repositories.NewDiaryRepository(db)
	failureRepo := repositories.NewTaskFailureLogRepository(db)

	// Initialize services
	rules := services.BookingRules{
		RoomMaxCapacity:   cfg.Booking.RoomMaxCapacity,
		StayDuration:      cfg.Booking.StayDuration,
		ExtensionCost:     cfg.Booking.ExtensionCost,
		SignupPoints:      cfg.Booking.SignupPoints,
		DiaryRewardPoints: cfg.Booking.DiaryRewardPoints,
		RetireEmptyRooms:  cfg.Booking.RetireEmptyRooms,
	}
	ledgerService := services.NewPointLedgerService(uow, userRepo, ledgerRepo)
	userService := services.NewUserService(uow, userRepo, ledgerService, rules)
	ticketService := services.NewTicketService(uow, ticketRepo, userRepo, catalogRepo, stayRepo, ledgerService, clk)
	stayService := services.NewRoomStayService(uow, stayRepo, roomRepo, ticketRepo, guestHouseRepo, userRepo, ledgerService, clk, rules)
	rewardService := services.NewRewardService(uow, diaryRepo, stayRepo, ledgerService, rules)
	dashboardService := services.NewDashboardService(db, failureRepo, ledgerService, clk)

	// Background worker: delayed tasks plus the periodic sweep
	var (
		store   *worker.TaskStore
		queue   *worker.Queue
		sweeper *worker.Sweeper
	)
	if cfg.Worker.Enabled {
		store, err = worker.OpenTaskStore(cfg.Worker.StorePath)
		if err != nil {
			log.Fatalf("❌ Failed to open task store: %v", err)
		}

		queue = worker.NewQueue(store, clk, worker.NewDBFailureSink(failureRepo), worker.Options{
			MaxRetries: cfg.Worker.MaxRetries,
			Backoff:    cfg.Worker.Backoff,
			Workers:    cfg.Worker.Workers,
		})
		tasks := worker.NewTasks(queue, ticketService, stayService)
		ticketService.SetScheduler(tasks.Scheduler())

		queue.Start()
		if _, err := queue.Restore(context.Background()); err != nil {
			log.Printf("⚠️ Failed to restore pending tasks: %v", err)
		}

		sweeper = worker.NewSweeper(cfg.Worker.SweepSchedule, cfg.Worker.RecoveryGrace, stayService, ticketService, tasks.Scheduler(), clk)
		if err := sweeper.Start(); err != nil {
			log.Fatalf("❌ Failed to start sweeper: %v", err)
		}
	} else {
		log.Println("⚠️ Worker disabled: tickets will not complete and stays will not expire on this instance")
	}

	// Create Fiber app
	app := fiber.New(fiber.Config{
		AppName:      "B0 API v1.0",
		ErrorHandler: middleware.CustomErrorHandler,
	})

	// Setup middlewares
	middleware.Setup(app, cfg)

	// Setup routes
	routes.Setup(app, cfg, routes.Deps{
		Catalog:   catalogRepo,
		Users:     userService,
		Ledger:    ledgerService,
		Tickets:   ticketService,
		RoomStays: stayService,
		Rewards:   rewardService,
		Dashboard: dashboardService,
	})

	// Graceful shutdown
	go gracefulShutdown(app)

	// Start server
	log.Printf("🚀 Server starting on port %s [MODE: %s]", cfg.Port, cfg.AppMode)
	if err := app.Listen(":" + cfg.Port); err != nil {
		log.Printf("❌ Failed to start server: %v", err)
	}

	// Listen returns once the app has shut down
	if sweeper != nil {
		sweeper.Stop()
	}
	if queue != nil {
		queue.Stop()
	}
	if store != nil {
		if err := store.Close(); err != nil {
			log.Printf("❌ Error closing task store: %v", err)
		}
	}
	log.Println("✅ Server stopped gracefully")
}

// gracefulShutdown handles graceful shutdown
func gracefulShutdown(app *fiber.App) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("🛑 Shutting down server...")
	if err := app.Shutdown(); err != nil {
		log.Printf("❌ Error during shutdown: %v", err)
	}
}
