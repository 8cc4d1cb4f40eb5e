package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"vread-backend/handlers"
	"vread-backend/middleware"
	"vread-backend/models"
	"vread-backend/services"
	"vread-backend/utils"
	"vread-backend/workers"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  No .env file found, reading environment variables directly")
	}

	app := fiber.New(fiber.Config{
		BodyLimit: 10 * 1024 * 1024, // 10MB — covers are the largest upload
	})

	// 🔐 GLOBAL: Only Gateway requests allowed — no exceptions
	app.Use(middleware.GatewayAuthMiddleware())

	allowedOriginsEnv := os.Getenv("ALLOWED_ORIGINS")
	if allowedOriginsEnv == "" {
		log.Println("⚠️  ALLOWED_ORIGINS environment variable not set, using default: http://localhost:3000")
		allowedOriginsEnv = "http://localhost:3000"
	}
	allowedOriginsList := strings.Split(allowedOriginsEnv, ",")
	for i, origin := range allowedOriginsList {
		allowedOriginsList[i] = strings.TrimSpace(origin)
	}
	allowedOriginsString := strings.Join(allowedOriginsList, ",")

	app.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOriginsString,
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS,PATCH,HEAD",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Requested-With, X-Request-ID, User-Agent, Cache-Control, X-User-ID, X-Service-Token",
		ExposeHeaders:    "Content-Length, Content-Type, Authorization, X-Request-ID",
		AllowCredentials: true,
		MaxAge:           86400, // 24 hours
	}))

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		log.Fatal("DATABASE_URL environment variable not set")
	}

	if err := utils.InitR2(); err != nil {
		log.Fatal("failed to initialize R2 client:", err)
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatal("failed to connect to database:", err)
	}

	if err := db.AutoMigrate(
		&models.Book{},
		&models.ReadingQuestion{},
		&models.ReadingProgress{},
		&models.ReadingValidation{},
		&models.UserProgression{},
		&models.BadgeType{},
		&models.UserBadge{},
		&models.Quest{},
		&models.UserQuest{},
		&models.CompanionState{},
		&models.ReaderProfile{},
	); err != nil {
		log.Fatal("failed to migrate database:", err)
	}

	if err := services.SeedCatalogs(db); err != nil {
		log.Fatal("failed to seed catalogs:", err)
	}

	redisAddr := os.Getenv("REDIS_ADDR")
	if redisAddr == "" {
		log.Fatal("REDIS_ADDR environment variable not set")
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     redisAddr,
		Password: os.Getenv("REDIS_PASSWORD"),
	})

	// --- Core services ---
	bookService := services.NewBookService(db)
	reconciler := services.NewReconciler(db)
	fetcher := services.NewProgressFetcher(db, reconciler)

	// Two caches on purpose: the reading-list view tolerates 10 minutes of
	// staleness, validation-adjacent reads only 30 seconds.
	listStore := services.NewProgressStore(10*time.Minute, fetcher)
	bookStore := services.NewProgressStore(30*time.Second, fetcher)

	refreshManager := services.NewRefreshManager(services.RefreshConfig{}, func(userID string) services.RefreshFunc {
		return func(ctx context.Context) error {
			_, err := listStore.Get(ctx, userID, true)
			return err
		}
	})

	progressionService := services.NewProgressionService(db)
	questService := services.NewQuestService(db)
	companionService := services.NewCompanionService(db, services.StreakLocation())
	badgeService := services.NewBadgeService(db)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	validationService := services.NewValidationService(db, progressionService, questService, companionService,
		func(userID string) {
			listStore.Clear(userID)
			bookStore.Clear(userID)
			refreshManager.RequestRefresh(ctx, userID)
		})

	// --- Streak nudge job (notification dispatcher boundary) ---
	notifyURL := os.Getenv("NOTIFY_SERVICE_URL")
	if notifyURL == "" {
		log.Fatal("NOTIFY_SERVICE_URL environment variable not set")
	}
	serviceToken := os.Getenv("VREAD_SERVICE_TOKEN")
	dispatcher := services.NewHTTPDispatcher(notifyURL, serviceToken)
	nudgeService := services.NewStreakNudgeService(db, rdb, dispatcher, services.StreakLocation())

	nudgeHour := 19
	if v := os.Getenv("NUDGE_HOUR"); v != "" {
		if h, err := strconv.Atoi(v); err == nil && h >= 0 && h < 24 {
			nudgeHour = h
		}
	}
	nudgeService.StartDailyJob(ctx, nudgeHour)

	// --- Profile + entitlement mirrors ---
	profileServiceURL := os.Getenv("PROFILE_SERVICE_URL")
	if profileServiceURL == "" {
		log.Fatal("PROFILE_SERVICE_URL environment variable not set")
	}
	readerSync := workers.NewReaderSyncWorker(db, profileServiceURL, "/api/v1/public/profiles", serviceToken)

	entitlementClient := workers.NewEntitlementSyncClient(db)
	go workers.PollEntitlements(ctx, entitlementClient, 30*time.Second)

	go func() {
		log.Println("Starting Reader Profile Sync Worker...")
		readerSync.Start(ctx)
	}()

	bookService.StartPublishScheduler()

	// ✅ Setup routes — enforced Gateway auth + user context on /user
	handlers.SetupBookRoutes(app, bookService)
	handlers.SetupProgressRoutes(app, handlers.ProgressDeps{
		DB:          db,
		Validations: validationService,
		ListStore:   listStore,
		BookStore:   bookStore,
		Refresh:     refreshManager,
		Progression: progressionService,
		Badges:      badgeService,
		Quests:      questService,
		Companion:   companionService,
	})

	go func() {
		if err := app.Listen(":5300"); err != nil {
			log.Printf("Server error: %v", err)
		}
	}()

	log.Println("✅ Server running on http://localhost:5300")
	log.Println("✅ Reader Profile Sync Worker running")
	log.Println("✅ Entitlement polling running (every 30s)")
	log.Println("✅ Book publish scheduler running")
	log.Printf("✅ Streak nudge scheduled daily at %02d:00 (%s)", nudgeHour, services.StreakLocation())
	log.Printf("✅ CORS configured for origins: %s", allowedOriginsString)

	<-ctx.Done()
	log.Println("Shutting down server...")
	refreshManager.Shutdown()
}
