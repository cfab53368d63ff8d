package bootstrap

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go-doctor-scheduling/config"
	deliveryHttp "go-doctor-scheduling/internal/delivery/http"
	"go-doctor-scheduling/internal/delivery/http/handler"
	"go-doctor-scheduling/internal/delivery/http/middleware"
	"go-doctor-scheduling/internal/infrastructure/cache"
	"go-doctor-scheduling/internal/infrastructure/database"
	"go-doctor-scheduling/internal/infrastructure/messaging"
	"go-doctor-scheduling/internal/repository"
	"go-doctor-scheduling/internal/service"
	"go-doctor-scheduling/internal/usecase"
	"go-doctor-scheduling/pkg/jwt"
	"go-doctor-scheduling/pkg/validator"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// App holds all dependencies for the application
type App struct {
	Config      *config.Config
	DB          *gorm.DB
	RedisClient *redis.Client
	AMQPConn    *amqp.Connection
	Publisher   *messaging.NotificationPublisher
	Dispatcher  *service.NotificationDispatcher
	Server      *http.Server
}

// New creates a new App instance with all dependencies initialized
func New() (*App, error) {
	app := &App{}

	// Setup logger
	setupLogger()

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	app.Config = cfg
	logrus.Info("Configuration loaded successfully")

	if cfg.DB.AutoMigrate {
		if err := database.MigrateUp(cfg.DB); err != nil {
			return nil, fmt.Errorf("failed to migrate database: %w", err)
		}
	}

	// Initialize database
	db, err := database.NewPostgresConnection(cfg.DB, cfg.App.Timezone)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	app.DB = db

	// Initialize Redis
	redisClient, err := cache.NewRedisClient(cfg.Redis)
	if err != nil {
		app.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	app.RedisClient = redisClient

	// Initialize RabbitMQ
	conn, err := messaging.NewRabbitMQConnection(cfg.RabbitMQ.URL)
	if err != nil {
		app.Close()
		return nil, err
	}
	app.AMQPConn = conn

	publisher, err := messaging.NewNotificationPublisher(conn, cfg.RabbitMQ.Exchange)
	if err != nil {
		app.Close()
		return nil, fmt.Errorf("failed to create notification publisher: %w", err)
	}
	app.Publisher = publisher

	// Initialize all layers
	app.Dispatcher = service.NewNotificationDispatcher(service.DispatcherConfig{
		BufferSize:   cfg.Notification.BufferSize,
		Workers:      cfg.Notification.Workers,
		MaxAttempts:  cfg.Notification.MaxAttempts,
		RetryBackoff: cfg.Notification.RetryBackoff,
		DedupeTTL:    cfg.Notification.DedupeTTL,
	}, publisher, service.NewRedisIdempotencyStore(redisClient), logrus.StandardLogger())
	app.Server = initializeServer(cfg, db, redisClient, app.Dispatcher)

	return app, nil
}

// setupLogger configures the logrus logger
func setupLogger() {
	logrus.SetFormatter(&logrus.JSONFormatter{})
	logrus.SetOutput(os.Stdout)
	logrus.SetLevel(logrus.InfoLevel)
}

func newDoctorLocker(cfg config.LockConfig, redisClient *redis.Client, log *logrus.Logger) service.DoctorLocker {
	if cfg.Backend == config.LockBackendRedis {
		return service.NewRedisDoctorLocker(redisClient, cfg.TTL, cfg.WaitTimeout, cfg.RetryInterval, log)
	}
	return service.NewLocalDoctorLocker(cfg.WaitTimeout, log)
}

// initializeServer creates and configures the HTTP server
func initializeServer(cfg *config.Config, db *gorm.DB, redisClient *redis.Client, notifier service.Notifier) *http.Server {
	// Initialize logger
	log := logrus.StandardLogger()

	// Initialize JWT service
	jwtService := jwt.NewJWTService(cfg.JWT)

	// Initialize validator
	customValidator := validator.NewValidator()

	// Initialize repositories
	doctorProfileRepo := repository.NewDoctorProfileRepository()
	patientProfileRepo := repository.NewPatientProfileRepository()
	doctorScheduleRepo := repository.NewDoctorScheduleRepository()
	appointmentRepo := repository.NewAppointmentRepository()
	auditLogRepo := repository.NewAuditLogRepository()

	// Initialize services
	transactor := database.NewTransactor(db)
	locker := newDoctorLocker(cfg.Lock, redisClient, log)
	auditService := service.NewAuditService(log, auditLogRepo)
	location := cfg.App.Location()

	// Initialize usecases
	appointmentUsecase := usecase.NewAppointmentUsecase(log, customValidator, transactor, locker, notifier, auditService,
		appointmentRepo, doctorScheduleRepo, doctorProfileRepo, patientProfileRepo, location)
	doctorScheduleUsecase := usecase.NewDoctorScheduleUsecase(log, customValidator, transactor, locker, auditService,
		doctorScheduleRepo, appointmentRepo, doctorProfileRepo, location)
	auditLogUsecase := usecase.NewAuditLogUsecase(log, transactor, auditLogRepo)

	// Initialize handlers
	appointmentHandler := handler.NewAppointmentHandler(appointmentUsecase, customValidator)
	doctorScheduleHandler := handler.NewDoctorScheduleHandler(doctorScheduleUsecase, customValidator)
	auditLogHandler := handler.NewAuditLogHandler(auditLogUsecase)

	// Initialize middleware
	authMiddleware := middleware.NewAuthMiddleware(jwtService, redisClient, log)
	corsMiddleware := middleware.NewCORSMiddleware()

	// Initialize router
	router := deliveryHttp.NewRouter(appointmentHandler, doctorScheduleHandler, auditLogHandler, authMiddleware, corsMiddleware)
	httpRouter := router.Setup()

	// Create server
	serverAddr := fmt.Sprintf(":%s", cfg.App.Port)
	return &http.Server{
		Addr:              serverAddr,
		Handler:           httpRouter,
		ReadHeaderTimeout: 10 * time.Second,
	}
}

// Run starts the notification workers and the HTTP server, then handles graceful shutdown
func (app *App) Run() {
	app.Dispatcher.Start()

	// Start server in goroutine
	go func() {
		logrus.Infof("Server starting on port %s", app.Config.App.Port)
		logrus.Infof("Environment: %s, lock backend: %s", app.Config.App.Env, app.Config.Lock.Backend)
		if err := app.Server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal
	app.waitForShutdown()
}

// waitForShutdown blocks until an interrupt signal is received
func (app *App) waitForShutdown() {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logrus.Info("Shutting down server...")

	// Create shutdown context with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Shutdown HTTP server gracefully
	if err := app.Server.Shutdown(ctx); err != nil {
		logrus.Errorf("Server forced to shutdown: %v", err)
	}

	// Drain queued notifications before the broker connection goes away
	app.Dispatcher.Stop()

	// Close connections
	app.Close()

	logrus.Info("Server shutdown complete")
}

// Close closes all connections (database, redis, rabbitmq)
func (app *App) Close() {
	if app.Publisher != nil {
		if err := app.Publisher.Close(); err != nil {
			logrus.Warnf("Failed to close notification publisher: %v", err)
		}
	}

	if app.AMQPConn != nil {
		app.AMQPConn.Close()
	}

	// Close database connection
	if app.DB != nil {
		sqlDB, err := app.DB.DB()
		if err == nil {
			sqlDB.Close()
		}
	}

	// Close Redis connection
	if app.RedisClient != nil {
		app.RedisClient.Close()
	}
}
