package main

import (
	"context"
	"database/sql"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tether-data/internal/common"
	"tether-data/internal/config"
	httpapi "tether-data/internal/http"
	"tether-data/internal/repository"
	"tether-data/internal/service"
	"tether-data/internal/store"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

func main() {
	cfg := config.Load()

	logger, err := common.NewLogger(cfg.Log.Level, cfg.Log.Format, "tether-data")
	if err != nil {
		logger, _ = zap.NewProduction()
	}
	defer logger.Sync()

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	kv := store.NewRedisKV(redisClient)

	// Repository 装配：DB 可用走 Postgres，否则回退内存实现（本地联调不依赖 DB）
	var (
		db           *sql.DB
		tethersRepo  repository.TethersRepository
		templateRepo repository.TemplatesRepository
		logsRepo     repository.LogsRepository
		refRepo      repository.ReferenceRepository
		contactsRepo repository.ContactsRepository
	)
	if cfg.DBEnabled {
		if d, derr := repository.NewPostgresDB(&cfg.Database); derr == nil {
			if serr := repository.EnsureSchema(d); serr != nil {
				logger.Warn("schema bootstrap failed, falling back to memory repos", zap.Error(serr))
				_ = d.Close()
			} else {
				db = d
				logger.Info("DB enabled for tether-data")
			}
		} else {
			logger.Warn("DB enabled but connection failed, falling back to memory repos", zap.Error(derr))
		}
	}
	if db != nil {
		tethersRepo = repository.NewPostgresTethersRepository(db)
		templateRepo = repository.NewPostgresTemplatesRepository(db)
		logsRepo = repository.NewPostgresLogsRepository(db)
		refRepo = repository.NewPostgresReferenceRepository(db)
		contactsRepo = repository.NewPostgresContactsRepository(db)
	} else {
		tethersRepo = repository.NewMemoryTethersRepo()
		templateRepo = repository.NewMemoryTemplatesRepo()
		logsRepo = repository.NewMemoryLogsRepo()
		refRepo = repository.NewMemoryReferenceRepo()
		contactsRepo = repository.NewMemoryContactsRepo()
	}

	// Service 装配
	var geocoder service.Geocoder
	if cfg.Geocoder.URL != "" {
		geocoder = service.NewGeocodeClient(
			cfg.Geocoder.URL,
			time.Duration(cfg.Geocoder.TimeoutMs)*time.Millisecond,
			kv,
			time.Duration(cfg.Geocoder.CacheTTLs)*time.Second,
			logger,
		)
	}

	resolver := service.NewScopeResolver()
	forms := service.NewFormService(kv, logger)
	ids := store.NewPushIDGenerator()
	templateSvc := service.NewTemplateService(templateRepo, logger)
	lifecycleSvc := service.NewLifecycleService(tethersRepo, templateRepo, logsRepo, refRepo, logger)
	entrySvc := service.NewEntryService(tethersRepo, templateRepo, logsRepo, resolver, forms, geocoder, ids, logger)
	contentSvc := service.NewContentService(refRepo, contactsRepo, logger)
	adminSvc := service.NewAdminService(tethersRepo, templateRepo, logsRepo, refRepo, contactsRepo, logger)

	// 账号库与会话
	users := httpapi.NewUserStore()
	if cfg.SeedAdmin {
		// Dev bootstrap: 管理员账号，生产环境用 SEED_ADMIN=false 关闭
		users.Upsert("admin", "Administrator", "ChangeMe123!", true)
	}
	auth := httpapi.NewAuthHandler(users, kv, logger)

	// 路由
	router := httpapi.NewRouter(logger)
	router.RegisterHealthRoute()
	router.RegisterAuthRoutes(auth)
	router.RegisterTetherRoutes(httpapi.NewTetherHandler(lifecycleSvc, entrySvc, forms, contentSvc, auth, logger))
	router.RegisterTemplateRoutes(httpapi.NewTemplateHandler(templateSvc, auth, logger))
	router.RegisterAuraRoutes(httpapi.NewAuraHandler(entrySvc, auth, logger))
	router.RegisterAdminRoutes(httpapi.NewAdminHandler(adminSvc, auth, logger))

	srv := service.NewServer(cfg.HTTP.Addr, router, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sigCh:
		cancel()
	case <-errCh:
		cancel()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(ctx, 5*time.Second)
	defer shutdownCancel()
	_ = srv.Stop(shutdownCtx)
	_ = redisClient.Close()
	if db != nil {
		_ = db.Close()
	}
}
