package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fideitec/tokenization/internal/tokenization/application"
	"github.com/fideitec/tokenization/internal/tokenization/domain"
	"github.com/fideitec/tokenization/internal/tokenization/infrastructure/chain"
	"github.com/fideitec/tokenization/internal/tokenization/infrastructure/messaging"
	"github.com/fideitec/tokenization/internal/tokenization/infrastructure/persistence/mysql"
	tokenhttp "github.com/fideitec/tokenization/internal/tokenization/interfaces/http"
	"github.com/fideitec/tokenization/pkg/config"
	"github.com/fideitec/tokenization/pkg/db"
	"github.com/fideitec/tokenization/pkg/logger"
	"github.com/fideitec/tokenization/pkg/middleware"
	"github.com/fideitec/tokenization/pkg/mq"
	"github.com/gin-gonic/gin"
)

func main() {
	configPath := flag.String("config", "configs/tokenization/config.toml", "config file path")
	flag.Parse()

	// 1. 加载配置
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 2. 初始化日志
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
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()
	logger.Info(ctx, "Starting tokenization service",
		"service", cfg.ServiceName,
		"version", cfg.Version,
		"environment", cfg.Environment,
	)

	// 3. 初始化数据库
	database, err := db.Init(db.Config{
		Driver:             cfg.Database.Driver,
		DSN:                cfg.Database.DSN,
		MaxOpenConns:       cfg.Database.MaxOpenConns,
		MaxIdleConns:       cfg.Database.MaxIdleConns,
		ConnMaxLifetime:    cfg.Database.ConnMaxLifetime,
		LogEnabled:         cfg.Database.LogEnabled,
		SlowQueryThreshold: cfg.Database.SlowQueryThreshold,
	})
	if err != nil {
		logger.Fatal(ctx, "Failed to init database", "error", err)
	}
	defer database.Close()

	if err := database.AutoMigrate(
		&domain.TokenizedAsset{},
		&domain.TokenHolder{},
		&domain.TokenTransaction{},
		&domain.Order{},
		&domain.Certificate{},
		&domain.ApprovalRequest{},
		&domain.ApprovalAudit{},
		&domain.RateLimitRecord{},
		&messaging.OutboxMessage{},
	); err != nil {
		logger.Fatal(ctx, "Failed to migrate schema", "error", err)
	}

	// 4. 事件发布：启用 Kafka 时走事务 outbox + 中继，否则丢弃
	var (
		publisher domain.EventPublisher = messaging.NewNoopPublisher()
		relay     *messaging.OutboxRelay
		producer  *mq.KafkaProducer
	)
	if cfg.Kafka.Enabled {
		producer, err = mq.NewProducer(mq.KafkaConfig{
			Brokers:      cfg.Kafka.Brokers,
			MaxRetries:   cfg.Kafka.MaxRetries,
			RetryBackoff: cfg.Kafka.RetryBackoff,
		})
		if err != nil {
			logger.Fatal(ctx, "Failed to create kafka producer", "error", err)
		}
		defer producer.Close()

		publisher = messaging.NewOutboxPublisher(database.DB)
		relay = messaging.NewOutboxRelay(database.DB, producer, cfg.Kafka.Topic, time.Duration(cfg.Kafka.RelayInterval)*time.Second)
		relay.Start()
		defer relay.Stop()
	}

	// 5. 区块链锚定客户端（可选）
	var chainClient domain.ChainClient
	if cfg.Chain.Enabled {
		ethClient, err := chain.NewEthereumClient(ctx, chain.Config{
			RPCURL:        cfg.Chain.RPCURL,
			SignerKey:     cfg.Chain.SignerKey,
			AnchorAddress: cfg.Chain.AnchorAddress,
			ExplorerURL:   cfg.Chain.ExplorerURL,
		})
		if err != nil {
			logger.Fatal(ctx, "Failed to init chain client", "error", err)
		}
		defer ethClient.Close()
		chainClient = ethClient
	}

	// 6. 装配仓储与应用服务
	txManager := mysql.NewGormTxManager(database.DB)
	assetRepo := mysql.NewAssetRepository(database.DB)
	holderRepo := mysql.NewHolderRepository(database.DB)
	txnRepo := mysql.NewTransactionRepository(database.DB)
	orderRepo := mysql.NewOrderRepository(database.DB)
	certRepo := mysql.NewCertificateRepository(database.DB)
	approvalRepo := mysql.NewApprovalRepository(database.DB)
	rateLimitRepo := mysql.NewRateLimitRepository(database.DB)

	ids := application.NewIDGenerator(1)
	ledgerService := application.NewLedgerService(txManager, assetRepo, holderRepo, txnRepo, publisher, ids)
	certService := application.NewCertificateService(certRepo, nil, publisher, ids)
	orderService := application.NewOrderService(txManager, orderRepo, assetRepo, ledgerService, certService, publisher, ids)
	approvalService := application.NewApprovalService(txManager, approvalRepo, assetRepo, ledgerService, ids)
	anchorService := application.NewAnchorService(certRepo, chainClient, publisher,
		time.Duration(cfg.Chain.SubmitTimeout)*time.Second,
		time.Duration(cfg.Chain.ConfirmTimeout)*time.Second)
	rateLimitService := application.NewRateLimitService(rateLimitRepo,
		cfg.RateLimit.Enabled,
		cfg.RateLimit.MaxOperations,
		time.Duration(cfg.RateLimit.WindowMinutes)*time.Minute,
		time.Duration(cfg.RateLimit.RetentionMinutes)*time.Minute,
		time.Duration(cfg.RateLimit.SweepIntervalMinutes)*time.Minute)
	rateLimitService.StartSweeper()
	defer rateLimitService.StopSweeper()

	// 7. HTTP 服务
	if cfg.Environment == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(middleware.GinRecoveryMiddleware())
	engine.Use(middleware.GinLoggingMiddleware())
	engine.Use(middleware.GinCORSMiddleware())

	engine.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": cfg.ServiceName})
	})

	handler := tokenhttp.NewHandler(ledgerService, orderService, certService, approvalService, anchorService, rateLimitService, cfg.Chain.AutoAnchor)
	handler.RegisterRoutes(engine)

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port),
		Handler:      engine,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeout) * time.Second,
	}

	go func() {
		logger.Info(ctx, "HTTP server listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal(ctx, "HTTP server failed", "error", err)
		}
	}()

	// 8. 优雅关停
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info(ctx, "Shutting down")

	shutdownCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error(ctx, "Server shutdown failed", "error", err)
	}
	logger.Info(ctx, "Server exited")
}
