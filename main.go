package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"daily-challenge-system/handlers"
	"daily-challenge-system/middleware"
	"daily-challenge-system/models"
	"daily-challenge-system/services"
	"daily-challenge-system/utils"
	"daily-challenge-system/workers"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  No .env file found, reading environment variables directly")
	}

	app := fiber.New(fiber.Config{
		BodyLimit: 10 * 1024 * 1024, // question-bank uploads are JSON, 10MB is plenty
	})

	// 🔐 GLOBAL: Only Gateway requests allowed — no exceptions
	app.Use(middleware.GatewayAuthMiddleware())

	// Load allowed origins from environment variable
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
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Requested-With, X-Request-ID, User-Agent, Cache-Control, X-User-Email, X-User-Roles, X-Service-Token",
		ExposeHeaders:    "Content-Length, Content-Type, Authorization, X-Request-ID",
		AllowCredentials: true,
		MaxAge:           86400, // 24 hours
	}))

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		log.Fatal("DATABASE_URL environment variable not set")
	}

	if err := utils.InitR2(); err != nil {
		log.Printf("⚠️  R2 unavailable (%v) — question banks will load from the local directory", err)
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatal("failed to connect to database:", err)
	}

	if err := db.AutoMigrate(
		&models.ChallengeProfile{},
		&models.QuizAttempt{},
		&models.ReferralGrant{},
		&models.CoinPurchase{},
	); err != nil {
		log.Fatal("failed to migrate database:", err)
	}

	economyConfig := services.LoadEconomyConfig()

	bankDir := os.Getenv("QUESTION_BANK_DIR")
	if bankDir == "" {
		bankDir = "./banks"
	}
	bankStore := services.NewQuestionBankStore(bankDir)

	loadCtx, cancelLoad := context.WithTimeout(context.Background(), 2*time.Minute)
	bankStore.Load(loadCtx)
	cancelLoad()

	economyService := services.NewEconomyService(db, economyConfig)
	profileService := services.NewProfileService(db, economyService)
	progressionService := services.NewProgressionService(db, economyConfig)
	quizService := services.NewQuizService(db, bankStore, economyConfig)
	leaderboardService := services.NewLeaderboardService(db, economyConfig)

	authServiceURL := os.Getenv("AUTH_SERVICE_URL")
	if authServiceURL == "" {
		log.Fatal("AUTH_SERVICE_URL environment variable not set")
	}
	authClient := services.NewAuthServiceClient(authServiceURL, os.Getenv("CHALLENGE_SERVICE_TOKEN"))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Payment polling is the webhook backstop — optional in development
	if os.Getenv("PAYMENT_SERVICE_URL") != "" {
		paymentSyncClient := workers.NewPaymentSyncClient(economyService)
		go workers.PollPayments(ctx, paymentSyncClient, 30*time.Second)
	} else {
		log.Println("⚠️  PAYMENT_SERVICE_URL not set — relying on /payment/confirm webhook only")
	}

	quizService.StartChallengeScheduler()

	// ✅ Setup routes — enforced Gateway auth + user context on /s/ paths
	handlers.SetupProfileRoutes(app, profileService, progressionService)
	handlers.SetupChallengeRoutes(app, quizService, progressionService, authClient)
	handlers.SetupEconomyRoutes(app, economyService)
	handlers.SetupLeaderboardRoutes(app, leaderboardService)

	go func() {
		if err := app.Listen(":5300"); err != nil {
			log.Printf("Server error: %v", err)
		}
	}()

	log.Println("✅ Server running on http://localhost:5300")
	log.Println("✅ Challenge scheduler running (stale sweep + bank refresh)")
	log.Println("✅ GatewayAuthMiddleware enforced globally — all requests must come from Gateway")
	log.Printf("✅ CORS configured for origins: %s", allowedOriginsString)

	<-ctx.Done()
	log.Println("Shutting down server...")
}
