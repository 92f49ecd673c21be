package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/your-org/todostack/internal/clock"
	"github.com/your-org/todostack/internal/config"
	"github.com/your-org/todostack/internal/handlers"
	"github.com/your-org/todostack/internal/metrics"
	"github.com/your-org/todostack/internal/middleware"
	"github.com/your-org/todostack/internal/ratelimit"
	"github.com/your-org/todostack/internal/repositories"
	"github.com/your-org/todostack/internal/session"
	"github.com/your-org/todostack/internal/usecases"
	"github.com/your-org/todostack/pkg/logger"
)

const (
	// Каталог с данными может быть смонтирован позже старта процесса,
	// поэтому проверяем его несколько раз.
	storageCheckRetries    = 5
	storageCheckRetryDelay = 2 * time.Second

	// Время на аккуратное завершение (доделать текущие запросы).
	shutdownTimeout = 30 * time.Second

	healthLogInterval = 30 * time.Second
	sessionCookieName = "todostack_session"
)

// App держит вместе все зависимости сервера и управляет их жизненным циклом.
type App struct {
	configPath string

	config   *config.Config
	logger   *zap.Logger
	clock    clock.Clock
	dataDir  *repositories.DataDir
	sessions *session.Store
	metrics  *metrics.Metrics
	server   *http.Server

	// Защита от повторного вызова Initialize().
	initOnce sync.Once
	initErr  error

	// Фоновые задачи отменяются разом через ctx.
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	shutdownOnce sync.Once
}

// NewApp создает заготовку приложения. Настройка происходит в Initialize().
func NewApp(configPath string) *App {
	ctx, cancel := context.WithCancel(context.Background())
	return &App{
		configPath: configPath,
		clock:      clock.Real{},
		ctx:        ctx,
		cancel:     cancel,
	}
}

// Initialize настраивает все компоненты по принципу "все или ничего".
func (a *App) Initialize() error {
	a.initOnce.Do(func() {
		a.initErr = a.doInitialize()
	})
	return a.initErr
}

// doInitialize: сначала логгер и конфиг, потом хранилище,
// бизнес-логика и HTTP.
func (a *App) doInitialize() error {
	// 1. Временный логгер, чтобы видеть ошибки загрузки конфига.
	if err := logger.Init("info", true); err != nil {
		return fmt.Errorf("не удалось инициализировать логгер: %w", err)
	}
	a.logger = logger.Get()

	// 2. Конфиг. Если файла нет, работаем на defaults + ENV.
	if err := config.Load(a.configPath); err != nil {
		a.logger.Warn("не удалось загрузить конфиг-файл, используем значения по умолчанию и ENV",
			zap.String("path", a.configPath),
			zap.Error(err),
		)
		if err := config.Load(""); err != nil {
			return fmt.Errorf("критическая ошибка конфигурации: %w", err)
		}
	}
	a.config = config.Get()

	// Пересобираем логгер с уровнем из конфига.
	if err := logger.Init(a.config.Log.Level, a.config.Log.Development); err != nil {
		return fmt.Errorf("не удалось инициализировать логгер: %w", err)
	}
	a.logger = logger.Get()
	a.logger.Info("конфигурация загружена",
		zap.String("addr", a.config.Server.Addr()),
		zap.String("data_dir", a.config.Storage.DataDir),
	)

	// 3. Каталог данных.
	if err := a.initializeStorage(); err != nil {
		return fmt.Errorf("ошибка инициализации хранилища: %w", err)
	}

	// 4. Репозитории и бизнес-логика.
	listRepo := repositories.NewFileListRepository(a.config.Storage.ListPath(), a.logger)
	userRepo := repositories.NewFileUserRepository(a.config.Storage.UsersPath(), a.logger, a.clock.Now)
	attemptRepo := repositories.NewFileAttemptRepository(a.config.Storage.RateLimitPath(), a.logger)

	lists := usecases.NewListUsecase(listRepo, a.clock, a.logger)
	users := usecases.NewUserUsecase(userRepo, a.clock, usecases.UserConfig{
		MinPasswordLength: a.config.Auth.MinPasswordLength,
		BcryptCost:        a.config.Auth.BcryptCost,
	}, a.logger)

	if err := a.seedSuperAdmin(users); err != nil {
		return fmt.Errorf("не удалось создать супер-админа: %w", err)
	}

	limiter := ratelimit.New(attemptRepo, a.clock, ratelimit.Config{
		MaxAttempts: a.config.Auth.MaxLoginAttempts,
		Window:      a.config.Auth.LockoutDuration,
	}, a.logger)

	// 5. Сессии. Уборщик чистит просроченные записи в фоне.
	a.sessions = session.NewStore(
		a.config.Session.Shards,
		a.config.Auth.SessionLifetime,
		a.config.Session.CleanupInterval,
		a.clock,
	)
	a.sessions.StartCleanupWorker()
	manager := session.NewManager(a.sessions, users, limiter, a.clock, a.config.Auth.SessionLifetime, a.logger)

	// 6. HTTP.
	if err := a.initializeServer(lists, users, manager); err != nil {
		return fmt.Errorf("ошибка настройки сервера: %w", err)
	}

	a.logger.Info("приложение готово к работе")
	return nil
}

// initializeStorage создает каталог данных и проверяет, что в него можно писать.
func (a *App) initializeStorage() error {
	a.dataDir = repositories.NewDataDir(a.config.Storage.DataDir, a.logger)

	var err error
	for attempt := 0; attempt < storageCheckRetries; attempt++ {
		if attempt > 0 {
			a.logger.Info("повторная проверка каталога данных",
				zap.Int("попытка", attempt+1),
				zap.Duration("пауза", storageCheckRetryDelay),
			)
			time.Sleep(storageCheckRetryDelay)
		}

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err = a.dataDir.EnsureCollections(ctx)
		if err == nil {
			err = a.dataDir.CheckConnection(ctx)
		}
		cancel()
		if err != nil {
			a.logger.Warn("каталог данных недоступен",
				zap.Int("попытка", attempt+1),
				zap.Error(err),
			)
			continue
		}

		a.logger.Info("хранилище готово",
			zap.String("path", a.dataDir.Path()),
			zap.Int("попыток_затрачено", attempt+1),
		)
		return nil
	}

	return fmt.Errorf("каталог данных недоступен после %d попыток: %w", storageCheckRetries, err)
}

// seedSuperAdmin создает супер-админа из конфига, если он задан.
// Без него первый пользователь создается через /api/auth/setup.
func (a *App) seedSuperAdmin(users *usecases.UserUsecase) error {
	auth := a.config.Auth
	if auth.SuperAdminEmail == "" {
		a.logger.Info("супер-админ не задан в конфиге, доступна первичная настройка")
		return nil
	}
	ctx, cancel := context.WithTimeout(a.ctx, 10*time.Second)
	defer cancel()
	return users.EnsureSuperAdmin(ctx, auth.SuperAdminEmail, auth.SuperAdminName, auth.SuperAdminPasswordHash)
}

// initializeServer собирает обработчики, middleware и сам http.Server.
func (a *App) initializeServer(lists *usecases.ListUsecase, users *usecases.UserUsecase, manager *session.Manager) error {
	if a.config.Metrics.Enabled {
		a.metrics = metrics.New()
		a.metrics.RegisterSessionGauge(a.sessions.Len)
	}

	sessions := middleware.NewSessions(manager, sessionCookieName, a.config.Server.SecureCookies, a.logger)

	// Общий лимит запросов к API на клиента (не путать с блокировкой логина).
	var rateLimiter *middleware.RateLimiter
	if a.config.HTTP.MaxRequests > 0 {
		rateLimiter = middleware.NewRateLimiter(a.config.HTTP.MaxRequests, a.config.HTTP.RateWindow, a.clock)
	}

	router := handlers.NewRouter(handlers.RouterConfig{
		List:           handlers.NewListHandler(lists, a.logger),
		Auth:           handlers.NewAuthHandler(manager, sessions, users, a.metrics, a.logger),
		Users:          handlers.NewUserHandler(users, a.logger),
		Health:         handlers.NewHealthHandler(a.dataDir, a.clock, a.logger),
		Session:        sessions,
		Metrics:        a.metrics,
		MetricsPath:    a.config.Metrics.Path,
		RateLimiter:    rateLimiter,
		RequestTimeout: a.config.HTTP.RequestTimeout,
		Logger:         a.logger,
	})

	a.server = &http.Server{
		Addr:         a.config.Server.Addr(),
		Handler:      router,
		ReadTimeout:  a.config.Server.ReadTimeout,
		WriteTimeout: a.config.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}
	return nil
}

// StartBackgroundJobs запускает фоновые процессы.
func (a *App) StartBackgroundJobs() {
	a.wg.Add(1)
	go a.periodicHealthCheck()
}

// periodicHealthCheck раз в 30 секунд пишет в лог состояние хранилища.
func (a *App) periodicHealthCheck() {
	defer a.wg.Done()

	ticker := time.NewTicker(healthLogInterval)
	defer ticker.Stop()

	for {
		select {
		case <-a.ctx.Done():
			a.logger.Info("фоновая проверка здоровья остановлена")
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(a.ctx, 5*time.Second)
			if err := a.dataDir.CheckConnection(ctx); err != nil {
				a.logger.Warn("фоновая проверка: проблема с хранилищем", zap.Error(err))
			} else {
				a.logger.Debug("фоновая проверка: полёт нормальный",
					zap.Int("sessions", a.sessions.Len()),
				)
			}
			cancel()
		}
	}
}

// Start запускает сервер в отдельной горутине, чтобы main мог слушать сигналы ОС.
// Ошибка ListenAndServe попадает в errCh.
func (a *App) Start(errCh chan<- error) error {
	if err := a.Initialize(); err != nil {
		return err
	}

	a.StartBackgroundJobs()

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		a.logger.Info("запуск HTTP сервера", zap.String("адрес", a.server.Addr))
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("сервер упал с ошибкой", zap.Error(err))
			errCh <- err
		}
	}()

	return nil
}

// Shutdown аккуратно останавливает приложение, дожидаясь текущих запросов.
func (a *App) Shutdown() error {
	var shutdownErr error

	a.shutdownOnce.Do(func() {
		if a.logger == nil {
			a.cancel()
			return
		}
		a.logger.Info("начинаем остановку приложения...")

		// 1. Сигнал фоновым задачам.
		a.cancel()

		// 2. Перестаем принимать запросы.
		if a.server != nil {
			ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			if err := a.server.Shutdown(ctx); err != nil {
				a.logger.Error("ошибка при остановке сервера", zap.Error(err))
				shutdownErr = err
			}
			cancel()
		}

		// 3. Уборщик сессий.
		if a.sessions != nil {
			a.sessions.StopCleanupWorker()
		}

		// 4. Ждем горутины.
		done := make(chan struct{})
		go func() {
			a.wg.Wait()
			close(done)
		}()

		select {
		case <-done:
			a.logger.Info("все фоновые процессы завершены")
		case <-time.After(shutdownTimeout):
			a.logger.Warn("таймаут ожидания завершения процессов (принудительный выход)")
		}

		a.logger.Info("приложение остановлено успешно")
		_ = logger.Sync()
	})

	return shutdownErr
}
