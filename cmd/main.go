package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	bookingActionHandler "github.com/m04kA/SMC-AppointmentService/internal/api/handlers/booking_action"
	createBookingHandler "github.com/m04kA/SMC-AppointmentService/internal/api/handlers/create_booking"
	getAvailableSlotsHandler "github.com/m04kA/SMC-AppointmentService/internal/api/handlers/get_available_slots"
	getBookingHandler "github.com/m04kA/SMC-AppointmentService/internal/api/handlers/get_booking"
	getPolicyHandler "github.com/m04kA/SMC-AppointmentService/internal/api/handlers/get_policy"
	listBookingsHandler "github.com/m04kA/SMC-AppointmentService/internal/api/handlers/list_bookings"
	paymentSetupHandler "github.com/m04kA/SMC-AppointmentService/internal/api/handlers/payment_setup"
	updatePolicyHandler "github.com/m04kA/SMC-AppointmentService/internal/api/handlers/update_policy"
	"github.com/m04kA/SMC-AppointmentService/internal/api/middleware"
	"github.com/m04kA/SMC-AppointmentService/internal/config"
	"github.com/m04kA/SMC-AppointmentService/internal/infra/locker"
	bookingRepo "github.com/m04kA/SMC-AppointmentService/internal/infra/storage/booking"
	giftCardRepo "github.com/m04kA/SMC-AppointmentService/internal/infra/storage/giftcard"
	idempotencyRepo "github.com/m04kA/SMC-AppointmentService/internal/infra/storage/idempotency"
	paymentRepo "github.com/m04kA/SMC-AppointmentService/internal/infra/storage/payment"
	policyRepo "github.com/m04kA/SMC-AppointmentService/internal/infra/storage/policy"
	scheduleRepo "github.com/m04kA/SMC-AppointmentService/internal/infra/storage/schedule"
	"github.com/m04kA/SMC-AppointmentService/internal/integrations/catalogservice"
	"github.com/m04kA/SMC-AppointmentService/internal/integrations/notifications"
	"github.com/m04kA/SMC-AppointmentService/internal/integrations/paymentgateway"
	"github.com/m04kA/SMC-AppointmentService/internal/jobs"
	bookingsService "github.com/m04kA/SMC-AppointmentService/internal/service/bookings"
	policyService "github.com/m04kA/SMC-AppointmentService/internal/service/policy"
	bookingActionUC "github.com/m04kA/SMC-AppointmentService/internal/usecase/booking_action"
	createBookingUC "github.com/m04kA/SMC-AppointmentService/internal/usecase/create_booking"
	getAvailableSlotsUC "github.com/m04kA/SMC-AppointmentService/internal/usecase/get_available_slots"
	retryPaymentSetupUC "github.com/m04kA/SMC-AppointmentService/internal/usecase/retry_payment_setup"
	"github.com/m04kA/SMC-AppointmentService/pkg/dbmetrics"
	"github.com/m04kA/SMC-AppointmentService/pkg/logger"
	"github.com/m04kA/SMC-AppointmentService/pkg/metrics"
	"github.com/m04kA/SMC-AppointmentService/pkg/txmanager"
)

// eventEmitter брокерный или логирующий эмиттер уведомлений
type eventEmitter interface {
	Emit(ctx context.Context, event notifications.Event)
	Wait()
}

// idempotencyLocker redis или noop защита от параллельных запросов с одним ключом
type idempotencyLocker interface {
	Acquire(ctx context.Context, key string) (func(), error)
}

func main() {
	configPath := flag.String("config", "config.toml", "path to config file")
	flag.Parse()

	// Загружаем конфигурацию
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Инициализируем логгер
	log, err := logger.New(cfg.Logs.File, cfg.Logs.Level)
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Close()

	log.Info("Starting SMC-AppointmentService...")
	log.Info("Configuration loaded from %s", *configPath)

	// Инициализируем метрики (если включены)
	// При выключенных метриках коллектор nil: все методы *metrics.Metrics безопасны для nil
	var metricsCollector *metrics.Metrics
	stopMetricsCh := make(chan struct{})

	if cfg.Metrics.Enabled {
		metricsCollector = metrics.New(cfg.Metrics.ServiceName)
		log.Info("Metrics enabled at %s", cfg.Metrics.Path)
	}

	// Подключаемся к базе данных
	db, err := sql.Open("postgres", cfg.Database.DSN())
	if err != nil {
		log.Fatal("Failed to connect to database: %v", err)
	}
	defer db.Close()

	// Настраиваем connection pool
	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	db.SetConnMaxLifetime(time.Duration(cfg.Database.ConnMaxLifetime) * time.Second)

	// Проверяем соединение
	if err := db.Ping(); err != nil {
		log.Fatal("Failed to ping database: %v", err)
	}
	log.Info("Successfully connected to database (host=%s, port=%d, db=%s)",
		cfg.Database.Host, cfg.Database.Port, cfg.Database.DBName)

	var wrappedDB *dbmetrics.DB
	if cfg.Metrics.Enabled {
		wrappedDB = dbmetrics.WrapWithDefault(db, metricsCollector, stopMetricsCh)
		log.Info("Database metrics collection started")
	} else {
		wrappedDB = dbmetrics.Wrap(db, nil)
	}
	txMgr := txmanager.NewTransactionManager(wrappedDB)

	// Инициализируем репозитории
	bookingRepository := bookingRepo.NewRepository(wrappedDB)
	paymentRepository := paymentRepo.NewRepository(wrappedDB)
	idempotencyRepository := idempotencyRepo.NewRepository(wrappedDB)
	giftCardRepository := giftCardRepo.NewRepository(wrappedDB)
	policyRepository := policyRepo.NewRepository(wrappedDB)
	scheduleRepository := scheduleRepo.NewRepository(wrappedDB)

	// Инициализируем интеграционных клиентов
	catalogClient := catalogservice.NewClient(
		cfg.CatalogService.URL,
		time.Duration(cfg.CatalogService.Timeout)*time.Second,
		log,
	)
	gateway := paymentgateway.NewGateway(paymentgateway.Config{
		SecretKey:          cfg.Payments.SecretKey,
		PlatformFeePercent: cfg.Payments.PlatformFeePercent,
		Timeout:            time.Duration(cfg.Payments.Timeout) * time.Second,
		MaxRetries:         cfg.Payments.MaxRetries,
		MaxElapsedTime:     time.Duration(cfg.Payments.MaxElapsedTime) * time.Second,
	}, log, metricsCollector)
	log.Info("Integration clients initialized (CatalogService=%s timeout=%ds, platform fee=%.2f%%)",
		cfg.CatalogService.URL, cfg.CatalogService.Timeout, cfg.Payments.PlatformFeePercent)

	// Защита от параллельных запросов с одним ключом идемпотентности
	var inflight idempotencyLocker = locker.NoopLocker{}
	if cfg.Redis.Enabled {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()

		pingCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		if err := redisClient.Ping(pingCtx).Err(); err != nil {
			// корректность обеспечивает БД, redis только отсекает дубли раньше
			log.Warn("Redis is unavailable, in-flight guard works in fail-open mode: %v", err)
		}
		cancel()

		inflight = locker.NewRedisLocker(redisClient, time.Duration(cfg.Redis.LockTTL)*time.Second, log)
		log.Info("Redis in-flight guard enabled (addr=%s)", cfg.Redis.Addr)
	}

	// Уведомления
	var emitter eventEmitter = notifications.NewLogEmitter(log)
	if cfg.RabbitMQ.Enabled {
		publisher, err := notifications.NewPublisher(cfg.RabbitMQ.URL, cfg.RabbitMQ.Exchange)
		if err != nil {
			log.Fatal("Failed to connect to RabbitMQ: %v", err)
		}
		defer publisher.Close()

		emitter = notifications.NewEmitter(publisher, log)
		log.Info("RabbitMQ notifications enabled (exchange=%s)", cfg.RabbitMQ.Exchange)
	}

	// Инициализируем сервисы
	policySvc := policyService.NewService(policyRepository, policyService.Defaults{
		LeadTimeMinutes: cfg.Booking.DefaultLeadTimeMinutes,
		AdvanceDays:     cfg.Booking.DefaultAdvanceDays,
	}, log)
	bookingSvc := bookingsService.NewService(bookingRepository, paymentRepository, log)

	// Инициализируем use cases
	getAvailableSlotsUseCase := getAvailableSlotsUC.NewUseCase(
		bookingRepository,
		scheduleRepository,
		policySvc,
		catalogClient,
		log,
	)

	createBookingUseCase := createBookingUC.NewUseCase(
		bookingRepository,
		paymentRepository,
		giftCardRepository,
		policySvc,
		getAvailableSlotsUseCase,
		catalogClient,
		gateway,
		emitter,
		metricsCollector,
		txMgr,
		cfg.Payments.Currency,
		log,
	)

	bookingActionUseCase := bookingActionUC.NewUseCase(
		bookingRepository,
		paymentRepository,
		idempotencyRepository,
		giftCardRepository,
		policySvc,
		catalogClient,
		gateway,
		inflight,
		emitter,
		metricsCollector,
		txMgr,
		cfg.Jobs.IdempotencyRetentionDuration(),
		log,
	)

	retryPaymentSetupUseCase := retryPaymentSetupUC.NewUseCase(
		bookingRepository,
		paymentRepository,
		gateway,
		emitter,
		txMgr,
		log,
	)

	// Инициализируем handlers
	getAvailableSlots := getAvailableSlotsHandler.NewHandler(getAvailableSlotsUseCase, log)
	createBooking := createBookingHandler.NewHandler(createBookingUseCase, log)
	paymentSetup := paymentSetupHandler.NewHandler(retryPaymentSetupUseCase, log)
	bookingAction := bookingActionHandler.NewHandler(bookingActionUseCase, log)
	getBooking := getBookingHandler.NewHandler(bookingSvc, log)
	listBookings := listBookingsHandler.NewHandler(bookingSvc, log)
	getPolicy := getPolicyHandler.NewHandler(policySvc, log)
	updatePolicy := updatePolicyHandler.NewHandler(policySvc, log)

	// Настраиваем роутер
	r := mux.NewRouter()
	r.Use(middleware.RequestLogger(log))

	// Добавляем metrics middleware (если метрики включены)
	if cfg.Metrics.Enabled {
		r.Use(middleware.MetricsMiddleware(metricsCollector))
		log.Info("HTTP metrics middleware enabled")

		r.Handle(cfg.Metrics.Path, promhttp.Handler()).Methods(http.MethodGet)
		log.Info("Prometheus metrics endpoint exposed at %s", cfg.Metrics.Path)
	}

	// API prefix
	api := r.PathPrefix("/api/v1").Subrouter()

	// ============================================================
	// PUBLIC ROUTES (клиенты, без авторизации)
	// ============================================================

	// Доступные слоты услуги на дату
	api.HandleFunc("/businesses/{businessId}/services/{serviceId}/slots",
		getAvailableSlots.Handle).Methods(http.MethodGet)

	// Создание бронирования
	api.HandleFunc("/bookings", createBooking.Handle).Methods(http.MethodPost)

	// Повтор сохранения карты
	api.HandleFunc("/bookings/{bookingId}/payment-setup", paymentSetup.Handle).Methods(http.MethodPost)

	// ============================================================
	// OWNER ROUTES (требуют X-Business-ID header)
	// ============================================================

	owner := api.PathPrefix("").Subrouter()
	owner.Use(middleware.Owner)

	// --- Бронирования ---
	owner.HandleFunc("/bookings/{bookingId}", getBooking.Handle).Methods(http.MethodGet)

	// Денежные действия, заголовок Idempotency-Key обязателен
	owner.HandleFunc("/bookings/{bookingId}/{action:complete|no-show|cancel|refund}",
		bookingAction.Handle).Methods(http.MethodPost)

	owner.HandleFunc("/businesses/{businessId}/bookings", listBookings.Handle).Methods(http.MethodGet)

	// --- Политика бизнеса ---
	owner.HandleFunc("/businesses/{businessId}/policy", getPolicy.Handle).Methods(http.MethodGet)
	owner.HandleFunc("/businesses/{businessId}/policy", updatePolicy.Handle).Methods(http.MethodPut)

	// Фоновые джобы
	holdReaper := jobs.NewHoldReaper(
		bookingRepository,
		metricsCollector,
		cfg.Jobs.ReaperEvery(),
		cfg.Jobs.HoldTTLDuration(),
		cfg.Jobs.ReaperBatchSize,
		log,
	)
	janitor := jobs.NewIdempotencyJanitor(
		idempotencyRepository,
		cfg.Jobs.JanitorEvery(),
		cfg.Jobs.ReaperBatchSize,
		log,
	)
	holdReaper.Start()
	janitor.Start()

	// Создаем HTTP сервер
	addr := fmt.Sprintf(":%d", cfg.Server.HTTPPort)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}

	// Graceful shutdown
	go func() {
		log.Info("Starting server on %s", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Server failed to start: %v", err)
		}
	}()

	// Ожидаем сигнал завершения
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(
		context.Background(),
		time.Duration(cfg.Server.ShutdownTimeout)*time.Second,
	)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown: %v", err)
	}

	// Джобы останавливаем после сервера, уведомления дожидаемся до закрытия брокера
	holdReaper.Stop()
	janitor.Stop()
	emitter.Wait()

	// Останавливаем сбор метрик connection pool
	if cfg.Metrics.Enabled {
		close(stopMetricsCh)
		log.Info("Metrics collection stopped")
	}

	log.Info("Server stopped gracefully")
}
