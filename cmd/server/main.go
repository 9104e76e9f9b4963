package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/fadilmartias/exam-grader/internal/config"
	"github.com/fadilmartias/exam-grader/internal/domain/fiber/handler"
	"github.com/fadilmartias/exam-grader/internal/dto"
	"github.com/fadilmartias/exam-grader/internal/middleware"
	"github.com/fadilmartias/exam-grader/internal/observability"
	"github.com/fadilmartias/exam-grader/internal/repository"
	"github.com/fadilmartias/exam-grader/internal/service"
	"github.com/fadilmartias/exam-grader/internal/usecase"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/healthcheck"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/pprof"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	ctx := context.Background()
	if err := godotenv.Load(); err != nil {
		log.Println("Could not load .env file")
	}

	appConfig := config.LoadAppConfig()
	geminiConfig := config.LoadGeminiConfig()
	supabaseConfig := config.LoadSupabaseConfig()
	dbConfig := config.LoadDBConfig()

	level := zerolog.InfoLevel
	if !appConfig.IsProduction() {
		level = zerolog.DebugLevel
	}
	appLogger := zerolog.New(os.Stdout).Level(level).With().Timestamp().Str("app", appConfig.Name).Logger()

	if supabaseConfig.URL == "" || supabaseConfig.Key == "" {
		log.Fatal("SUPABASE_URL and a Supabase key must be set")
	}

	app := fiber.New(fiber.Config{
		AppName:   appConfig.Name,
		BodyLimit: 25 * 1024 * 1024,
		ErrorHandler: func(ctx *fiber.Ctx, err error) error {
			// Status code defaults to 500
			code := fiber.StatusInternalServerError

			var e *fiber.Error
			if errors.As(err, &e) {
				code = e.Code
			}

			message := err.Error()
			if message == "" {
				message = "Internal Server Error"
			}

			return ctx.Status(code).JSON(fiber.Map{"detail": message})
		},
	})
	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
	}))
	app.Use(recover.New(recover.Config{
		EnableStackTrace: !appConfig.IsProduction(),
	}))

	app.Use(compress.New(compress.Config{
		Level: compress.LevelBestSpeed,
	}))
	app.Use(pprof.New(pprof.Config{
		Next: func(c *fiber.Ctx) bool {
			return appConfig.IsProduction()
		},
	}))
	app.Use(healthcheck.New())

	app.Use(helmet.New(helmet.Config{
		CrossOriginResourcePolicy: "cross-origin",
	}))

	app.Use(middleware.RateLimiter(50, 1*time.Minute))

	app.Get("/metrics", observability.MetricsHandler())

	store := buildStore(dbConfig, supabaseConfig, appConfig, appLogger)
	storage := service.NewStorageService(supabaseConfig, appLogger)
	gemini, err := service.NewGeminiService(ctx, geminiConfig, appLogger)
	if err != nil {
		log.Fatal(err)
	}
	transcriber := service.NewTranscriber(gemini, geminiConfig, appLogger)
	grader := service.NewGrader(gemini, geminiConfig.GradeModel, appLogger)

	results := usecase.NewResultUsecase(store, usecase.NewIDGenerator(), appLogger)
	grading := usecase.NewGradingUsecase(store, storage, transcriber, grader, results, appConfig.ScratchDir, appLogger)

	gradingHandler := handler.NewGradingHandler(grading, results, dto.NewValidator(), handler.HandlerConfig{
		OutputDir: appConfig.OutputDir,
		UploadDir: appConfig.ScratchDir,
		Debug:     !appConfig.IsProduction(),
	}, appLogger)
	gradingHandler.RegisterRoutes(app)

	go func() {
		ticker := time.NewTicker(1 * time.Minute)
		defer ticker.Stop()

		for range ticker.C {
			appLogger.Debug().Int("goroutines", runtime.NumGoroutine()).Msg("runtime stats")
		}
	}()

	go func() {
		appLogger.Info().Str("port", appConfig.Port).Str("store", dbConfig.Driver).Msg("server running")
		if err := app.Listen(appConfig.Port); err != nil {
			log.Fatal(err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info().Msg("shutting down server")
	if err := app.ShutdownWithTimeout(30 * time.Second); err != nil {
		appLogger.Error().Err(err).Msg("graceful shutdown failed")
	}
}

func buildStore(dbConfig *config.DBConfig, supabaseConfig *config.SupabaseConfig, appConfig *config.AppConfig, appLogger zerolog.Logger) repository.GradingStore {
	switch dbConfig.Driver {
	case config.StoreDriverPostgres:
		return repository.NewGormStore(ConnectDB(dbConfig, appConfig))
	case config.StoreDriverREST:
		return repository.NewRestStore(supabaseConfig)
	default:
		appLogger.Warn().Str("driver", dbConfig.Driver).Msg("unknown STORE_DRIVER, using rest")
		return repository.NewRestStore(supabaseConfig)
	}
}

func ConnectDB(dbConfig *config.DBConfig, appConfig *config.AppConfig) *gorm.DB {
	dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=UTC",
		dbConfig.Host,
		dbConfig.User,
		dbConfig.Password,
		dbConfig.Name,
		dbConfig.Port,
		dbConfig.SSLMode,
	)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatalf("Could not connect to database: %v", err)
	}
	pgDB, err := db.DB()
	if err != nil {
		log.Fatalf("Could not get database instance: %v", err)
	}
	if !appConfig.IsProduction() {
		pgDB.SetMaxIdleConns(2)
		pgDB.SetMaxOpenConns(5)
		pgDB.SetConnMaxLifetime(30 * time.Minute)
	} else {
		pgDB.SetMaxIdleConns(5)
		pgDB.SetMaxOpenConns(20)
		pgDB.SetConnMaxLifetime(time.Hour)
	}

	if err := repository.Migrate(db); err != nil {
		log.Fatal("migration failed: ", err)
	}
	return db
}
