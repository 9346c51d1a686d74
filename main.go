package main

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/robfig/cron/v3"
	"go.uber.org/multierr"
	"golang.org/x/time/rate"

	"budgetly-be/internal/cache"
	"budgetly-be/internal/config"
	"budgetly-be/internal/controllers"
	"budgetly-be/internal/database"
	"budgetly-be/internal/jwt"
	"budgetly-be/internal/logger"
	"budgetly-be/internal/middleware"
	"budgetly-be/internal/repository"
	"budgetly-be/internal/service"
)

// stores bundles the repositories of the selected backend with the
// function that releases its connections
type stores struct {
	budgets repository.BudgetRepository
	users   repository.UserRepository
	close   func(ctx context.Context) error
}

func main() {
	bootLog := logger.New(logger.Config{})
	cfg := config.Load(bootLog)

	log := logger.New(logger.Config{
		Level: logger.ParseLevel(cfg.LogLevel),
		JSON:  cfg.IsProduction(),
	})
	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", logger.FieldError, err)
		os.Exit(1)
	}
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx := context.Background()

	st, err := openStores(ctx, cfg, log)
	if err != nil {
		log.Error("failed to open storage", logger.FieldError, err, "backend", cfg.DataBackend)
		os.Exit(1)
	}

	// Analytics report cache (optional - continue without it if Redis is unavailable)
	var reportCache cache.Cache
	var memoryCache *cache.MemoryCache
	if cfg.AnalyticsCacheEnabled() {
		cacheLog := log.WithComponent(logger.ComponentCache)
		if cfg.RedisURL != "" {
			reportCache, err = cache.NewRedisCache(ctx, cfg.RedisURL)
			if err != nil {
				cacheLog.Warn("failed to connect to Redis, continuing without cache", logger.FieldError, err)
				reportCache = nil
			} else {
				cacheLog.Info("connected to Redis cache")
			}
		} else {
			memoryCache = cache.NewMemoryCache(cfg.AnalyticsCacheSize, cfg.AnalyticsCacheTTL)
			reportCache = memoryCache
			cacheLog.Info("using in-process analytics cache", "max_users", cfg.AnalyticsCacheSize)
		}
	}

	jwtService := jwt.NewJWTService(cfg.JWTSecret, time.Duration(cfg.JWTTTL)*time.Hour)

	authService := service.NewAuthService(st.users, jwtService, log)
	userService := service.NewUserService(st.users)
	budgetService := service.NewBudgetService(st.budgets, st.users,
		service.WithReportCache(reportCache, cfg.AnalyticsCacheTTL),
		service.WithLogger(log))

	generalRateLimiter := middleware.NewRateLimiter(rate.Limit(cfg.RateLimitRPS), cfg.RateLimitBurst)
	authRateLimiter := middleware.NewRateLimiter(rate.Limit(cfg.RateLimitAuthRPS), cfg.RateLimitAuthBurst)

	var accessLog io.Writer
	var accessLogFile *os.File
	if cfg.AccessLogPath != "" {
		accessLogFile, err = os.OpenFile(cfg.AccessLogPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			log.Warn("failed to open access log, logging requests to stdout only", logger.FieldError, err)
		} else {
			accessLog = accessLogFile
		}
	}

	router := controllers.NewRouter(controllers.RouterConfig{
		Auth:           controllers.NewAuthController(authService),
		Users:          controllers.NewUserController(userService),
		Budgets:        controllers.NewBudgetController(budgetService),
		JWT:            jwtService,
		GeneralLimiter: generalRateLimiter,
		AuthLimiter:    authRateLimiter,
		Logger:         log,
		AccessLog:      accessLog,
	})

	scheduler, err := startMaintenance(log, memoryCache, generalRateLimiter, authRateLimiter)
	if err != nil {
		log.Error("failed to schedule maintenance", logger.FieldError, err)
		os.Exit(1)
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 16,
	}

	go func() {
		log.Info("server starting", "addr", srv.Addr, "backend", cfg.DataBackend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", logger.FieldError, err)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	sig := <-stop
	log.Info("shutdown signal received", "signal", sig.String())

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	<-scheduler.Stop().Done()

	var shutdownErr error
	shutdownErr = multierr.Append(shutdownErr, srv.Shutdown(shutdownCtx))
	if reportCache != nil {
		shutdownErr = multierr.Append(shutdownErr, reportCache.Close())
	}
	shutdownErr = multierr.Append(shutdownErr, st.close(shutdownCtx))
	if accessLogFile != nil {
		shutdownErr = multierr.Append(shutdownErr, accessLogFile.Close())
	}

	if shutdownErr != nil {
		for _, err := range multierr.Errors(shutdownErr) {
			log.Error("shutdown error", logger.FieldError, err)
		}
		os.Exit(1)
	}
	log.Info("server stopped gracefully")
}

func openStores(ctx context.Context, cfg *config.Config, log *logger.Logger) (*stores, error) {
	storageLog := log.WithComponent(logger.ComponentStorage)

	switch cfg.DataBackend {
	case config.BackendPostgres:
		db, err := database.NewConnection(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		if err := database.RunMigrations(ctx, db); err != nil {
			_ = db.Close()
			return nil, err
		}
		storageLog.Info("connected to PostgreSQL, migrations applied")
		return &stores{
			budgets: repository.NewPostgresBudgetRepository(db),
			users:   repository.NewPostgresUserRepository(db),
			close:   func(context.Context) error { return db.Close() },
		}, nil

	case config.BackendMemory:
		storageLog.Warn("using in-memory storage, data is lost on restart")
		return &stores{
			budgets: repository.NewMemoryBudgetRepository(),
			users:   repository.NewMemoryUserRepository(),
			close:   func(context.Context) error { return nil },
		}, nil

	default:
		m, err := database.NewMongo(ctx, cfg.MongoURI, cfg.MongoDB)
		if err != nil {
			return nil, err
		}
		storageLog.Info("connected to MongoDB", "database", cfg.MongoDB)
		return &stores{
			budgets: repository.NewMongoBudgetRepository(m.DB.Collection(database.BudgetsCollection)),
			users:   repository.NewMongoUserRepository(m.DB.Collection(database.UsersCollection)),
			close:   m.Close,
		}, nil
	}
}

// startMaintenance schedules the periodic cleanup jobs. memoryCache may be nil.
func startMaintenance(log *logger.Logger, memoryCache *cache.MemoryCache, limiters ...*middleware.RateLimiter) (*cron.Cron, error) {
	log = log.WithComponent(logger.ComponentScheduler)
	c := cron.New()

	_, err := c.AddFunc("@every 5m", func() {
		removed := 0
		for _, rl := range limiters {
			removed += rl.Cleanup()
		}
		log.Debug("rate limiter cleanup", "removed", removed)
	})
	if err != nil {
		return nil, err
	}

	if memoryCache != nil {
		_, err = c.AddFunc("@every 1m", func() {
			if n := memoryCache.CleanExpired(); n > 0 {
				log.Debug("analytics cache cleanup", "removed", n)
			}
		})
		if err != nil {
			return nil, err
		}
	}

	c.Start()
	return c, nil
}
