package main // Entry point package

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4" // Echo web framework
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/theme-section-installer/internal/backup"
	"github.com/iliyamo/theme-section-installer/internal/config" // Internal config loader
	"github.com/iliyamo/theme-section-installer/internal/database"
	"github.com/iliyamo/theme-section-installer/internal/handler"
	"github.com/iliyamo/theme-section-installer/internal/lifecycle"
	"github.com/iliyamo/theme-section-installer/internal/logging"
	"github.com/iliyamo/theme-section-installer/internal/queue"
	"github.com/iliyamo/theme-section-installer/internal/repository"
	"github.com/iliyamo/theme-section-installer/internal/router" // Internal router setup
	"github.com/iliyamo/theme-section-installer/internal/service"
	"github.com/iliyamo/theme-section-installer/internal/shopify"
	"github.com/iliyamo/theme-section-installer/internal/utils"
)

func main() {
	config.LoadDotEnv()
	cfg := config.Load() // Load environment config
	shopCfg := config.LoadShopifyConfig()
	log := logging.New(cfg.Env, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.WithError(err).Fatal("open database")
	}
	defer db.Close()
	if err := database.Migrate(ctx, db); err != nil {
		log.WithError(err).Fatal("migrate database")
	}

	sealer, err := utils.NewSealer(cfg.TokenKey)
	if err != nil {
		log.WithError(err).Fatal("token sealer")
	}
	shops := service.NewShopConnector(repository.NewShopRepo(db), sealer, shopify.OptionsFromConfig(shopCfg, log))

	opts := []lifecycle.Option{
		lifecycle.WithLogger(log),
		lifecycle.WithAppBlockPrefix(shopCfg.AppBlockPrefix),
	}
	if b := newBackups(config.LoadBackupConfig(), log); b != nil {
		opts = append(opts, lifecycle.WithBackups(b))
	}
	if cfg.EventsEnabled {
		pub := service.NewPublisher(cfg.AMQPURL, log)
		defer pub.Close()
		opts = append(opts, lifecycle.WithEvents(pub))
		go func() {
			if err := queue.StartAuditConsumer(ctx, cfg.AMQPURL, cfg.AuditLogDir, log); err != nil && !errors.Is(err, context.Canceled) {
				log.WithError(err).Error("audit consumer stopped")
			}
		}()
	}
	mgr := lifecycle.NewManager(repository.NewSectionRepo(db), repository.NewInstallationRepo(db), opts...)

	rdb := config.NewRedisClient(config.LoadRedisConfig())
	if rdb == nil {
		log.Warn("redis unreachable; rate limiting and catalog cache disabled")
	} else {
		defer rdb.Close()
	}

	e := echo.New() // Create Echo instance
	e.HideBanner = true
	router.RegisterRoutes(e, db) // Register application routes
	router.RegisterSections(e, handler.NewSectionHandler(mgr, cfg.BatchConcurrency, log), router.SectionDeps{
		Shopify:   shopCfg,
		RateLimit: config.LoadRateLimitConfig(),
		Cache:     config.LoadCacheConfig(),
		Redis:     rdb,
		Shops:     shops,
	})

	addr := ":" + cfg.Port // Address string with port
	log.WithFields(logrus.Fields{"addr": addr, "env": cfg.Env}).Info("listening")

	serveErr := make(chan error, 1)
	go func() { serveErr <- e.Start(addr) }()

	select {
	case <-ctx.Done():
	case err := <-serveErr:
		if !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("server failed")
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("shutdown")
	}
}

// newBackups returns nil when backups are disabled.  Without a bucket the
// bodies stay in memory.
func newBackups(cfg config.BackupConfig, log logrus.FieldLogger) *backup.Store {
	if !cfg.Enabled {
		return nil
	}
	if cfg.Bucket == "" {
		log.Warn("BACKUP_S3_BUCKET unset; keeping asset backups in memory")
		return backup.NewStore(backup.NewMemoryObjectStore(), cfg.Prefix)
	}
	return backup.NewStore(backup.NewS3ObjectStore(backup.NewS3Client(cfg), cfg.Bucket), cfg.Prefix)
}
