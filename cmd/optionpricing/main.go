package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	"github.com/wyfcoding/optionpricing/internal/pricing/application"
	"github.com/wyfcoding/optionpricing/internal/pricing/domain"
	"github.com/wyfcoding/optionpricing/internal/pricing/infrastructure/messaging"
	httphandler "github.com/wyfcoding/optionpricing/internal/pricing/interfaces/http"
	"github.com/wyfcoding/optionpricing/pkg/config"
	"github.com/wyfcoding/optionpricing/pkg/logger"
	"github.com/wyfcoding/optionpricing/pkg/metrics"
	"github.com/wyfcoding/optionpricing/pkg/middleware"
	"github.com/wyfcoding/optionpricing/pkg/mq"
	"github.com/wyfcoding/optionpricing/pkg/ratelimit"
)

func main() {
	configPath := flag.String("config", "configs/optionpricing/config.toml", "config file path")
	flag.Parse()

	// 1. Config
	cfg, err := config.LoadWithDefaults(*configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	// 2. Logger
	if err := logger.Init(logger.Config{
		Level:      cfg.Logger.Level,
		Format:     cfg.Logger.Format,
		Output:     cfg.Logger.Output,
		FilePath:   cfg.Logger.FilePath,
		MaxSize:    cfg.Logger.MaxSize,
		MaxBackups: cfg.Logger.MaxBackups,
		MaxAge:     cfg.Logger.MaxAge,
		Compress:   cfg.Logger.Compress,
		WithCaller: cfg.Logger.WithCaller,
	}); err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info(ctx, "starting service",
		"service", cfg.ServiceName,
		"version", cfg.Version,
		"environment", cfg.Environment,
	)

	// 3. Metrics
	m := metrics.New(cfg.ServiceName)
	if err := m.Register(); err != nil {
		logger.Fatal(ctx, "failed to register metrics", "error", err)
	}

	// 4. Event publisher
	var publisher domain.EventPublisher
	var producer *mq.KafkaProducer
	if cfg.Kafka.Enabled {
		producer, err = mq.NewProducer(mq.KafkaConfig{
			Brokers:      cfg.Kafka.Brokers,
			Topic:        cfg.Kafka.Topic,
			MaxRetries:   cfg.Kafka.MaxRetries,
			RetryBackoff: time.Duration(cfg.Kafka.RetryBackoff) * time.Millisecond,
			WriteTimeout: time.Duration(cfg.Kafka.WriteTimeout) * time.Millisecond,
		})
		if err != nil {
			logger.Fatal(ctx, "failed to create kafka producer", "error", err)
		}
		publisher = messaging.NewKafkaEventPublisher(producer)
	} else {
		logger.Info(ctx, "kafka disabled, pricing events will not be published")
	}

	// 5. Layers
	svc := application.NewPricingService(cfg.Pricing, m, publisher)

	// 6. HTTP
	if cfg.Environment == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(
		middleware.GinRequestID(),
		middleware.GinRecovery(),
		middleware.GinLogging(),
		middleware.GinCORS(),
	)
	if cfg.Metrics.Enabled {
		engine.Use(middleware.GinMetrics(m))
		engine.GET(cfg.Metrics.Path, gin.WrapH(m.Handler()))
	}
	engine.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "healthy",
			"service":   cfg.ServiceName,
			"version":   cfg.Version,
			"timestamp": time.Now().Unix(),
		})
	})

	api := engine.Group("")
	api.Use(middleware.RateLimitMiddleware(ratelimit.NewMemoryRateLimiter(10*time.Minute), cfg.HTTP.RateLimit))
	httphandler.NewPricingHandler(svc).RegisterRoutes(api)

	server := &http.Server{
		Addr:         cfg.HTTP.Addr(),
		Handler:      engine,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeout) * time.Second,
	}

	// 7. Server & graceful shutdown
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info(gctx, "server started", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info(context.Background(), "shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownTimeout)*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	exitCode := 0
	if err := g.Wait(); err != nil {
		logger.Error(context.Background(), "server exited with error", "error", err)
		exitCode = 1
	}
	if producer != nil {
		if err := producer.Close(); err != nil {
			logger.Error(context.Background(), "failed to close kafka producer", "error", err)
		}
	}
	logger.Info(context.Background(), "server stopped")
	stop()
	os.Exit(exitCode)
}
