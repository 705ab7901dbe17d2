package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/redis/go-redis/v9"

	"github.com/chefserve/chef-vendor/internal/http/handlers"
	"github.com/chefserve/chef-vendor/internal/platform/mailer"
	"github.com/chefserve/chef-vendor/internal/repo/postgres"
	"github.com/chefserve/chef-vendor/internal/repo/redisrepo"
	"github.com/chefserve/chef-vendor/internal/service"
	"github.com/chefserve/chef-vendor/pkg/config"
	"github.com/chefserve/chef-vendor/pkg/database"
	"github.com/chefserve/chef-vendor/pkg/events"
	"github.com/chefserve/chef-vendor/pkg/logger"
	mw "github.com/chefserve/chef-vendor/pkg/middleware"
)

func main() {
	cfg := config.Load()

	// Connect to database
	ctx := context.Background()
	pool, err := database.Connect(ctx, cfg.Database.URL)
	if err != nil {
		logger.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	// Connect to Redis
	redisOpts, err := redis.ParseURL(cfg.Redis.URL)
	if err != nil {
		logger.Error("Invalid redis URL", "error", err)
		os.Exit(1)
	}
	redisClient := redis.NewClient(redisOpts)
	defer redisClient.Close()

	// Connect to event bus
	eventBus, err := events.NewNATSEventBus(cfg.NATS.URL)
	if err != nil {
		logger.Error("Failed to connect to NATS", "error", err)
		os.Exit(1)
	}
	defer eventBus.Close()

	// Initialize repositories
	userRepo := postgres.NewUserRepository(pool)
	otpRepo := postgres.NewOtpRepository(pool)
	limiter := redisrepo.NewRateLimiter(redisClient)

	// Initialize services
	authService := service.NewAuthService(userRepo, otpRepo, selectMailer(cfg), eventBus, cfg)

	// Initialize handlers
	h := handlers.New(authService, limiter, cfg)

	// Setup router
	r := chi.NewRouter()

	// Middleware
	r.Use(mw.RequestID)
	r.Use(mw.ServiceName("auth"))
	r.Use(mw.Logging)
	r.Use(mw.Health)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// Routes
	h.Routes(r)

	// Sweep expired codes in the background
	go sweepExpiredCodes(ctx, otpRepo)

	// Start server
	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		logger.Info("Shutting down auth service...")

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Auth service shutdown error", "error", err)
		}
	}()

	logger.Info("Starting auth service", "port", cfg.Server.Port)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Auth service error", "error", err)
		os.Exit(1)
	}
}

func selectMailer(cfg *config.Config) mailer.Service {
	if cfg.Email.DevMode {
		logger.Info("Using dev mailer (emails print to logs)")
		return mailer.NewDevMailer()
	}
	if cfg.Email.MailerSendKey != "" {
		logger.Info("Using MailerSend mailer")
		return mailer.NewMailerSend(cfg.Email.MailerSendKey, cfg.Email.SMTPFromName, cfg.Email.SMTPFrom)
	}
	logger.Info("Using SMTP mailer", "host", cfg.Email.SMTPHost)
	return mailer.NewSMTPMailer(
		cfg.Email.SMTPHost, cfg.Email.SMTPPort,
		cfg.Email.SMTPFrom, cfg.Email.SMTPUser, cfg.Email.SMTPPass,
		cfg.Email.SMTPPort == 465,
	)
}

func sweepExpiredCodes(ctx context.Context, otpRepo postgres.OtpRepository) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			deleted, err := otpRepo.DeleteExpired(ctx)
			if err != nil {
				logger.Error("Failed to sweep expired codes", "error", err)
				continue
			}
			if deleted > 0 {
				logger.Info("Swept expired codes", "deleted", deleted)
			}
		}
	}
}
