package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/carrental/car-rental-api/config"
	"github.com/carrental/car-rental-api/jobs"
	applogger "github.com/carrental/car-rental-api/logger"
	"github.com/carrental/car-rental-api/models"
	"github.com/carrental/car-rental-api/scheduler"
	"github.com/carrental/car-rental-api/services"
	"github.com/carrental/car-rental-api/utils"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

const shutdownTimeout = 15 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger := applogger.New(cfg.LogLevel, cfg.GoEnv)
	defer func() { _ = logger.Sync() }()

	logger.Info("starting Car Rental API server", zap.String("env", cfg.GoEnv))

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := config.ConnectDatabase(cfg.DatabaseURL); err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}

	db := config.GetDB()
	if err := models.AutoMigrate(db); err != nil {
		logger.Fatal("failed to migrate database", zap.Error(err))
	}
	logger.Info("database migration completed successfully")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := initServices(ctx, cfg, db, logger)
	if err != nil {
		logger.Fatal("failed to initialize services", zap.Error(err))
	}
	defer func() {
		if err := app.publisher.Close(); err != nil {
			logger.Warn("failed to close event publisher", zap.Error(err))
		}
	}()

	jobRunner := jobs.NewJobRunner(app.orders, app.mailer, cfg.UnpaidBookingTTL, logger)
	sched, err := scheduler.New(jobRunner, scheduler.Schedule{
		OverdueReminders: cfg.OverdueReminderCron,
		ExpireUnpaid:     cfg.ExpireUnpaidCron,
	}, logger)
	if err != nil {
		logger.Fatal("failed to create scheduler", zap.Error(err))
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           setupRouter(cfg),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("server is running", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	g.Go(func() error {
		return sched.Run(gctx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("server stopped with error", zap.Error(err))
		os.Exit(1)
	}
	logger.Info("server stopped")
}

// application holds the collaborators main needs after wiring
type application struct {
	orders    *services.OrderService
	mailer    services.Mailer
	publisher services.EventPublisher
}

// initServices builds every service from configuration and installs them as
// the process-wide instances used by the controllers
func initServices(ctx context.Context, cfg *config.Config, db *gorm.DB, logger *zap.Logger) (*application, error) {
	var payments services.PaymentGateway
	if cfg.StripeSecretKey != "" {
		payments = services.NewStripeGateway(cfg.StripeSecretKey, cfg.StripeWebhookSecret)
	} else {
		logger.Warn("STRIPE_SECRET_KEY not set, using mock payment gateway")
		payments = services.NewMockPaymentGateway()
	}
	services.SetPaymentGateway(payments)

	var mailer services.Mailer
	if cfg.SendGridAPIKey != "" {
		mailer = services.NewSendGridMailer(cfg.SendGridAPIKey, cfg.EmailFrom, cfg.EmailFromName, logger)
	} else {
		logger.Warn("SENDGRID_API_KEY not set, emails will only be logged")
		mailer = services.NewLogMailer(logger)
	}

	var publisher services.EventPublisher
	if cfg.KafkaEnabled() {
		publisher = services.NewKafkaEventPublisher(cfg.KafkaBrokers, cfg.KafkaBookingTopic)
		logger.Info("publishing booking events to kafka", zap.Strings("brokers", cfg.KafkaBrokers), zap.String("topic", cfg.KafkaBookingTopic))
	} else {
		publisher = services.NewLogEventPublisher(logger)
	}

	discounts := services.NewDiscountService(db, payments, logger)
	services.SetDiscountService(discounts)

	orders := services.NewOrderService(db, payments, discounts, services.CheckoutSettings{
		Currency:   cfg.PaymentCurrency,
		SuccessURL: cfg.CheckoutSuccessURL,
		CancelURL:  cfg.CheckoutCancelURL,
	}, logger, services.WithHooks(services.NewNotificationHook(mailer, publisher, logger)))
	services.SetOrderService(orders)

	tokens := services.NewTokenService(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTAudience, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)
	services.SetAuthService(services.NewAuthService(db, tokens, mailer, cfg.PasswordResetURL, logger))

	services.SetAvailabilityService(services.NewAvailabilityService(db, time.Now))

	var images services.ImageService
	if cfg.S3Enabled() {
		s3, err := services.NewS3Service(ctx, cfg.AWSRegion, cfg.AWSS3Bucket, cfg.AWSAccessKeyID, cfg.AWSSecretAccessKey)
		if err != nil {
			_ = publisher.Close()
			return nil, err
		}
		images = services.NewS3ImageService(s3)
		logger.Info("storing car images in s3", zap.String("bucket", cfg.AWSS3Bucket))
	} else {
		utils.UploadDir = cfg.UploadDir
		images = services.NewLocalImageService(cfg.UploadDir)
		logger.Info("storing car images on local disk", zap.String("dir", cfg.UploadDir))
	}
	services.SetImageService(images)

	services.SetCatalogService(services.NewCatalogService(db, images, logger))

	return &application{orders: orders, mailer: mailer, publisher: publisher}, nil
}

// healthCheck handles the health check endpoint
func healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Car Rental API is running",
	})
}

// databaseStatus checks database connectivity and returns table information
func databaseStatus(c *gin.Context) {
	db := config.GetDB()
	if db == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": "Database not initialized",
			},
		})
		return
	}

	// Get the underlying SQL database to check connection
	sqlDB, err := db.DB()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": "Failed to get database instance",
			},
		})
		return
	}

	if err := sqlDB.PingContext(c.Request.Context()); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_CONNECTION_ERROR",
				"message": "Database connection failed",
			},
		})
		return
	}

	tables, err := db.Migrator().GetTables()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_QUERY_ERROR",
				"message": "Failed to query tables",
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Database connected",
		"tables":  tables,
	})
}
