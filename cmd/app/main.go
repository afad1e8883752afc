package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/egorvla/task-tracker-api/internal/auth"
	"github.com/egorvla/task-tracker-api/internal/config"
	"github.com/egorvla/task-tracker-api/internal/handler"
	"github.com/egorvla/task-tracker-api/internal/notify"
	"github.com/egorvla/task-tracker-api/internal/ratelimit"
	"github.com/egorvla/task-tracker-api/internal/repo"
	"github.com/egorvla/task-tracker-api/internal/service"
)

func main() {
	// Подключаем логгер
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	// Загрузка конфигурации
	cfg := config.Load()

	// Подключаем БД
	pool, err := pgxpool.New(context.Background(), cfg.DatabaseURL)
	if err != nil {
		log.Fatal("Failed to connect to Database.") // Fatal потому что дальнейшая работа теряет смысл
	}
	defer pool.Close()

	if err := pool.Ping(context.Background()); err != nil {
		log.Fatal("Failed to ping the Database.")
	}
	logger.Info("Successfully connected to the Database!")

	// Лимитер: Redis для нескольких инстансов, иначе in-memory бакет
	var limiter ratelimit.Limiter
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		limiter = ratelimit.NewRedisLimiter(rdb, cfg.RateLimitCapacity, cfg.RateLimitWindow)
		logger.Info("Using Redis rate limiter", zap.String("addr", cfg.RedisAddr))
	} else {
		limiter = ratelimit.NewBucket(cfg.RateLimitCapacity, cfg.RateLimitWindow)
	}

	// Фоновая доставка уведомлений
	sender := notify.NewSender(cfg.ProviderURL, cfg.ProviderAPIKey, cfg.FromEmail, logger)
	dispatcher := notify.NewDispatcher(sender, logger, cfg.NotifyWorkers, 0)
	dispatcher.Start(context.Background())

	taskRepo := repo.NewTaskRepo(pool)
	taskService := service.NewTaskService(taskRepo, limiter, dispatcher, logger)
	taskHandler := handler.NewTaskHandler(taskService, logger)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, `{"status":"ok"}`)
	})

	r.Route("/api/tasks", func(r chi.Router) {
		r.Use(auth.Middleware([]byte(cfg.JWTSecret)))
		taskHandler.Routes(r)
	})

	srv := http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() { // Запуск сервера и обработка ошибок
		logger.Info("Server started at ", zap.String("port", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed: ", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGTERM, syscall.SIGINT)
	<-quit

	logger.Info("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("Shutdown error: ", zap.Error(err))
	}

	// Дожидаемся очереди уведомлений после остановки сервера
	dispatcher.Stop()
	logger.Info("Server stopped succsessfully!")
}
