package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"mechanical_shop/internal/auth"
	"mechanical_shop/internal/cartsession"
	"mechanical_shop/internal/config"
	"mechanical_shop/internal/database"
	"mechanical_shop/internal/events"
	"mechanical_shop/internal/handlers"
	"mechanical_shop/internal/migrations"
	"mechanical_shop/internal/ratelimit"
	"mechanical_shop/internal/redis"
	"mechanical_shop/internal/repository"
	"mechanical_shop/internal/services"
	"mechanical_shop/pkg/mailer"
	"mechanical_shop/pkg/sepay"

	gfshutdown "github.com/gelmium/graceful-shutdown"
	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
	"golang.org/x/crypto/bcrypt"
)

func main() {
	app := &cli.App{
		Name:  "mechanical-shop",
		Usage: "mechanical tools shop backend",
		Before: func(c *cli.Context) error {
			log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
			return nil
		},
		Action: serve,
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "start the HTTP API",
				Action: serve,
			},
			{
				Name:  "migrate",
				Usage: "create or update the database schema",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "reset", Usage: "drop every table before migrating"},
				},
				Action: migrate,
			},
			{
				Name:   "seed",
				Usage:  "insert the admin account and sample catalog",
				Action: seed,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("invalid LOG_LEVEL: %w", err)
	}
	log.SetLevel(level)
	if level < log.DebugLevel {
		gin.SetMode(gin.ReleaseMode)
	}

	return cfg, nil
}

func migrate(c *cli.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	db, err := database.Initialize(cfg.DatabaseURL, log.IsLevelEnabled(log.DebugLevel))
	if err != nil {
		return err
	}
	defer database.Close(db)

	if c.Bool("reset") {
		log.Warn("Dropping all tables")
		return migrations.Reset(db)
	}
	return migrations.RunMigrations(db)
}

func seed(c *cli.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	db, err := database.Initialize(cfg.DatabaseURL, false)
	if err != nil {
		return err
	}
	defer database.Close(db)

	if err := migrations.RunMigrations(db); err != nil {
		return err
	}
	return migrations.Seed(db)
}

func serve(c *cli.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	db, err := database.Initialize(cfg.DatabaseURL, log.IsLevelEnabled(log.DebugLevel))
	if err != nil {
		return err
	}
	if err := migrations.RunMigrations(db); err != nil {
		return err
	}

	redisClient, err := redis.Initialize(cfg.RedisURL)
	if err != nil {
		return fmt.Errorf("failed to connect to Redis: %w", err)
	}

	var limiter ratelimit.Checker
	limitClient, err := ratelimit.Connect(c.Context, cfg.RedisURL)
	if err != nil {
		log.WithError(err).Warn("Rate limiting disabled")
	} else {
		limiter = ratelimit.NewLimiter(limitClient, "ratelimit")
	}

	var publisher events.Publisher = events.NoopPublisher{}
	if cfg.RabbitMQURL != "" {
		amqpPublisher, err := events.NewAMQPPublisher(cfg.RabbitMQURL, cfg.EventsExchange)
		if err != nil {
			return fmt.Errorf("failed to connect to RabbitMQ: %w", err)
		}
		publisher = amqpPublisher
	}

	mail := mailer.New(mailer.Config{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUser,
		Password: cfg.SMTPPass,
		FromName: cfg.SMTPFromName,
	})
	if !mail.Enabled() {
		log.Warn("SMTP credentials missing, order emails disabled")
	}

	assistant, err := services.NewAssistant(cfg.AIProvider, cfg.OpenAIAPIKey, cfg.OpenAIModel, cfg.GeminiAPIKey, cfg.GeminiModel)
	if err != nil {
		return err
	}

	tokens := auth.NewJWTManager(auth.JWTConfig{
		AccessSecret:         cfg.JWTSecret,
		RefreshSecret:        cfg.JWTRefreshSecret,
		AccessTokenDuration:  cfg.AccessTokenTTL,
		RefreshTokenDuration: cfg.RefreshTokenTTL,
		Issuer:               cfg.JWTIssuer,
	})
	google := auth.NewGoogleVerifier(auth.GoogleConfig{
		ClientID:     cfg.GoogleClientID,
		ClientSecret: cfg.GoogleClientSecret,
		CallbackURL:  cfg.GoogleCallbackURL,
	})
	gateway := sepay.NewClient(cfg.SepayAPIURL, cfg.SepayMerchantID, cfg.SepayAPIKey,
		cfg.SepayWebhookSecret, cfg.FrontendURL, cfg.PaymentTimeout)

	store := repository.NewStore(db)
	notifier := services.NewNotificationService(mail, publisher, cfg.EmailTimeout)
	catalog := services.NewCatalogService(store, redisClient, cfg.CacheTTL)

	orderService, err := services.NewOrderService(store, catalog, notifier)
	if err != nil {
		return err
	}
	authService, err := services.NewAuthService(store, tokens, auth.NewPasswordHasher(bcrypt.DefaultCost),
		google, redisClient, cfg.AppDeepLink)
	if err != nil {
		return err
	}

	cartPolicy := cartsession.Swap
	if cfg.CartMergeOnLogin {
		cartPolicy = cartsession.Merge
	}
	sessionCarts := cartsession.NewService(cartsession.NewRedisStore(redisClient, cfg.CartSessionTTL), store.Products(), cartPolicy)

	router := &handlers.Router{
		Tokens:      tokens,
		FrontendURL: cfg.FrontendURL,
		RateLimit: handlers.RateLimit{
			Checker:  limiter,
			Requests: cfg.RateLimitRequests,
			Window:   cfg.RateLimitWindow,
		},
		Health: handlers.NewHealthHandler(map[string]handlers.Pinger{
			"database": database.Checker{DB: db},
			"redis":    redisClient,
		}),
		Auth:        handlers.NewAuthHandler(authService),
		Products:    handlers.NewProductHandler(catalog),
		Cart:        handlers.NewCartHandler(services.NewCartService(store)),
		SessionCart: handlers.NewSessionCartHandler(sessionCarts),
		Orders:      handlers.NewOrderHandler(orderService),
		Addresses:   handlers.NewAddressHandler(services.NewAddressService(store)),
		Payments:    handlers.NewPaymentHandler(services.NewPaymentService(store, gateway, notifier, cfg.PaymentTimeout)),
		Chat:        handlers.NewChatHandler(services.NewChatService(store, assistant, catalog, cfg.AITimeout)),
	}

	server := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           router.Engine(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.WithField("port", cfg.ServerPort).Info("Server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("Server failed")
		}
	}()

	// one ordered operation: stop intake, drain notifications, then close backends
	wait := gfshutdown.GracefulShutdown(context.Background(), cfg.ShutdownTimeout, map[string]gfshutdown.Operation{
		"app": func(ctx context.Context) error {
			var errs []error
			errs = append(errs, server.Shutdown(ctx))
			errs = append(errs, notifier.Wait(ctx))
			publisher.Close()
			if limitClient != nil {
				errs = append(errs, limitClient.Close())
			}
			errs = append(errs, redisClient.Close())
			errs = append(errs, database.Close(db))
			return errors.Join(errs...)
		},
	})

	exitCode := <-wait
	log.WithField("code", exitCode).Info("Server stopped")
	if exitCode != 0 {
		return cli.Exit("shutdown finished with errors", exitCode)
	}
	return nil
}
