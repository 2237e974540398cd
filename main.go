package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/George-Dev-Web/cakes2/auth"
	"github.com/George-Dev-Web/cakes2/authz"
	"github.com/George-Dev-Web/cakes2/cache"
	"github.com/George-Dev-Web/cakes2/config"
	"github.com/George-Dev-Web/cakes2/controllers"
	ordercontroller "github.com/George-Dev-Web/cakes2/controllers/order"
	"github.com/George-Dev-Web/cakes2/database"
	"github.com/George-Dev-Web/cakes2/logger"
	"github.com/George-Dev-Web/cakes2/media"
	"github.com/George-Dev-Web/cakes2/models"
	"github.com/George-Dev-Web/cakes2/notify"
	"github.com/George-Dev-Web/cakes2/routes"
	"github.com/George-Dev-Web/cakes2/services/cart"
	"github.com/George-Dev-Web/cakes2/services/order"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		// The logger depends on the config, so report on stderr.
		os.Stderr.WriteString("invalid configuration: " + err.Error() + "\n")
		os.Exit(1)
	}

	log := logger.Must(cfg.IsProduction())
	defer func() { _ = log.Sync() }()

	if err := run(cfg, log); err != nil {
		log.Fatal("server stopped", zap.Error(err))
	}
}

func run(cfg *config.Config, log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	debug := !cfg.IsProduction()
	if !debug {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.Open(cfg.Database, log, debug)
	if err != nil {
		return err
	}
	if err := database.Migrate(db); err != nil {
		return err
	}
	if err := database.Seed(db); err != nil {
		return err
	}
	log.Info("database ready")

	var store cache.Store = cache.Noop{}
	if cfg.RedisURL != "" {
		client, err := cache.Connect(ctx, cfg.RedisURL)
		if err != nil {
			log.Warn("redis unavailable, catalog cache disabled", zap.Error(err))
		} else {
			defer client.Close()
			store = cache.NewRedisStore(client, cfg.CacheTTL)
			log.Info("catalog cache enabled")
		}
	}

	enforcer, err := authz.NewEnforcer()
	if err != nil {
		return err
	}

	hub := ordercontroller.NewHub(log.Named("ws"))
	defer hub.Close()

	worker := notify.NewWorker(db, log)
	var sender notify.EmailSender = notify.NewLogSender(log)
	if cfg.PostmarkToken != "" {
		sender = notify.NewPostmarkSender(cfg.PostmarkToken, cfg.EmailSender)
	}
	worker.Register(models.ChannelEmail, notify.NewEmailHandler(db, sender, cfg.FrontendURL))

	events := len(cfg.KafkaBrokers) > 0
	if events {
		writer := notify.NewKafkaWriter(cfg.KafkaTopic, cfg.KafkaBrokers...)
		defer writer.Close()
		worker.Register(models.ChannelEvent, notify.NewKafkaPublisher(writer))
		log.Info("order events enabled", zap.String("topic", cfg.KafkaTopic))
	}

	outbox := notify.NewOutbox(log,
		notify.WithEvents(events),
		notify.WithWaker(worker),
		notify.WithBroadcaster(hub),
	)

	carts := cart.NewEngine(db, log)
	orders := order.NewEngine(db, log,
		order.WithNotifier(outbox),
		order.WithTrackingToken(cfg.TrackingRequiresToken),
	)

	var (
		uploader   media.Uploader
		uploadsDir string
	)
	if cfg.Cloudinary.Enabled() {
		uploader, err = media.NewCloudinaryUploader(cfg.Cloudinary.CloudName, cfg.Cloudinary.APIKey, cfg.Cloudinary.APISecret)
		if err != nil {
			return err
		}
		log.Info("uploads stored on cloudinary")
	} else {
		uploadsDir = cfg.UploadsDir
		uploader = media.NewLocalUploader(uploadsDir, "/uploads")
		backup := media.NewBackup(uploadsDir, cfg.BackupDir, cfg.BackupRetentionDays, cfg.BackupHour, log)
		go backup.Run(ctx)
		log.Info("uploads stored on local disk", zap.String("dir", uploadsDir))
	}

	authDeps := &auth.Deps{
		DB:           db,
		Tokens:       auth.NewTokenIssuer(cfg.JWTSecret, cfg.JWTTTL),
		Carts:        carts,
		SecureCookie: cfg.IsProduction(),
		Log:          log,
	}
	if cfg.FirebaseCredentialsJSON != "" {
		verifier, err := auth.NewFirebaseVerifier(ctx, cfg.FirebaseCredentialsJSON, cfg.FirebaseProjectID)
		if err != nil {
			return err
		}
		authDeps.Google = verifier
	}

	router := routes.NewRouter(&routes.App{
		Deps: &controllers.Deps{
			DB:             db,
			Log:            log,
			Cache:          cache.NewCatalog(store, log),
			Uploader:       uploader,
			MaxUploadBytes: cfg.MaxUploadBytes,
			Carts:          carts,
			Orders:         orders,
		},
		Auth:         authDeps,
		Enforcer:     enforcer,
		Hub:          hub,
		Log:          log,
		CORSOrigins:  cfg.CORSOrigins,
		SecureCookie: cfg.IsProduction(),
		Debug:        debug,
		UploadsDir:   uploadsDir,
	})

	go worker.Run(ctx)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		log.Info("server listening", zap.String("port", cfg.Port), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
