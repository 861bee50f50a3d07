package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"marketplace/internal/config"
	"marketplace/internal/gateway"
	"marketplace/internal/handler"
	"marketplace/internal/infra/db"
	"marketplace/internal/infra/lock"
	infraRepo "marketplace/internal/infra/repository"
	"marketplace/internal/notify"
	"marketplace/internal/observability"
	"marketplace/internal/server"
	"marketplace/internal/usecase"
	"marketplace/internal/validator"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
)

type uuidGenerator struct{}

func (g *uuidGenerator) NewID() string {
	return uuid.NewString()
}

type realClock struct{}

func (c *realClock) Now() time.Time {
	return time.Now()
}

func main() {
	//.envは無くてもよい
	if err := godotenv.Load("../.env"); err != nil && !errors.Is(err, os.ErrNotExist) {
		panic(err)
	}

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := observability.NewLogger(os.Stdout, cfg.LogLevel)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	otlpCfg := observability.OTLPConfig{
		OTLPEndpoint: cfg.OTLPEndpoint,
		Insecure:     cfg.OTLPInsecure,
		ServiceName:  "marketplace-api",
		Environment:  cfg.GoEnv,
		SampleRate:   cfg.TraceSampleRate,
	}
	shutdownTracing, err := observability.SetupTracing(ctx, otlpCfg, logger)
	if err != nil {
		logger.Error("tracing setup failed", "error", err)
		os.Exit(1)
	}
	defer shutdownTracing(context.Background())

	shutdownMetrics, err := observability.SetupMetrics(ctx, otlpCfg, logger)
	if err != nil {
		logger.Error("metrics setup failed", "error", err)
		os.Exit(1)
	}
	defer shutdownMetrics(context.Background())

	//DB接続
	gormDB, err := db.Connect(cfg.PostgresDSN())
	if err != nil {
		logger.Error("db connect failed", "error", err)
		os.Exit(1)
	}
	if err := db.Migrate(gormDB); err != nil {
		logger.Error("db migrate failed", "error", err)
		os.Exit(1)
	}

	//Repository（GORM実装）生成
	txm := infraRepo.NewTxManagerGorm(gormDB)
	userRepo := infraRepo.NewUserGormRepository(gormDB)
	orderRepo := infraRepo.NewOrderGormRepository(gormDB)
	cartRepo := infraRepo.NewCartGormRepository(gormDB)

	//usecaseに渡す部品
	idGen := &uuidGenerator{}
	clock := &realClock{}
	signer := gateway.NewSigner(cfg.EsewaSecretKey, cfg.EsewaProductCode)

	var mailer notify.Mailer = notify.NewLogMailer(logger)
	if cfg.SMTPHost != "" {
		mailer = notify.NewSMTPMailer(notify.SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword,
			From:     cfg.MailFrom,
		})
	}
	notifier := notify.NewReceiptNotifier(mailer)

	var callbackLock usecase.CallbackLock
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Warn("redis unavailable, callback lock disabled", "error", err)
		} else {
			callbackLock = lock.NewRedisLock(rdb, 30*time.Second, 5*time.Second)
		}
	}

	//Usecase生成
	checkoutUC := usecase.NewCheckoutUsecase(txm, cartRepo, orderRepo, validator.NewOrderValidator(), signer, idGen, clock,
		usecase.CheckoutConfig{
			TaxRatePercent: cfg.TaxRatePercent,
			PublicBaseURL:  cfg.PublicBaseURL,
			FormURL:        cfg.EsewaFormURL,
		}, logger)
	fulfillmentUC := usecase.NewFulfillmentUsecase(txm, orderRepo, userRepo, signer, notifier, callbackLock, clock,
		usecase.FulfillmentConfig{}, logger)
	receiptUC := usecase.NewReceiptUsecase(txm, cfg.LegacyReceiptLookup, clock, logger)

	//Handler生成
	handlers := server.Handlers{
		Orders:   handler.NewOrderHandler(checkoutUC, cfg.StoreURL),
		Payments: handler.NewPaymentHandler(fulfillmentUC, cfg.HomeURL),
		Receipts: handler.NewReceiptHandler(receiptUC, cfg.HomeURL),
	}

	//Server起動
	addr := cfg.Port
	if addr[0] != ':' {
		addr = ":" + addr
	}

	e := server.New(cfg, userRepo, handlers, logger)
	if err := server.Run(ctx, e, addr, logger); err != nil {
		logger.Error("server stopped", "error", err)
		os.Exit(1)
	}
}
