package main

import (
	"context"

	"github.com/bidhaus/auction-engine/internal/auction/application"
	"github.com/bidhaus/auction-engine/internal/auction/infra/cache"
	"github.com/bidhaus/auction-engine/internal/auction/infra/httpapi"
	"github.com/bidhaus/auction-engine/internal/auction/infra/notify"
	"github.com/bidhaus/auction-engine/internal/auction/infra/orders"
	"github.com/bidhaus/auction-engine/internal/auction/infra/payment"
	"github.com/bidhaus/auction-engine/internal/auction/infra/repository/postgres"
	auctionws "github.com/bidhaus/auction-engine/internal/auction/infra/websocket"
	"github.com/bidhaus/auction-engine/internal/auction/scheduler"
	"github.com/bidhaus/auction-engine/internal/shared/clock"
	"github.com/bidhaus/auction-engine/internal/shared/config"
	"github.com/bidhaus/auction-engine/internal/shared/db"
	"github.com/bidhaus/auction-engine/internal/shared/db/migrations"
	"github.com/bidhaus/auction-engine/internal/shared/httpserver"
	"github.com/bidhaus/auction-engine/internal/shared/logger"
	"github.com/bidhaus/auction-engine/internal/shared/redisx"
	sharedws "github.com/bidhaus/auction-engine/internal/shared/websocket"
	"go.uber.org/zap"
)

func main() {
	log := logger.GetLogger()
	defer log.Sync()

	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	log.Info("starting auction engine", zap.String("service", cfg.ServiceName))

	if err := migrations.RunMigrations(); err != nil {
		log.Fatal("database migration failed", zap.Error(err))
	}

	pool, err := db.GetPostgresDBPool(ctx)
	if err != nil {
		log.Fatal("database connection failed", zap.Error(err))
	}
	defer pool.Close()

	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	auctionRepo := postgres.NewAuctionRepository(pool)
	bidRepo := postgres.NewBidRepository(pool)
	winRepo := postgres.NewWinRepository(pool)
	settlementQueue := postgres.NewSettlementQueue(pool)

	notifier := notify.NewKafkaNotifier(cfg.KafkaBrokers, rdb, cfg.ServiceName)
	defer notifier.Close()

	gateway := payment.NewHTTPGateway(cfg.PaymentGatewayURL)
	orderSvc := orders.NewHTTPOrderService(cfg.OrderServiceURL)

	clk := clock.System()

	resolveWinnerUC := application.NewResolveWinnerUseCase(
		auctionRepo, bidRepo, winRepo, gateway, orderSvc, notifier, clk, cfg.CaptureRetries,
	)
	service := application.NewAuctionService(
		application.NewCreateAuctionUseCase(auctionRepo),
		application.NewPlaceBidUseCase(auctionRepo, bidRepo, notifier, clk, cfg.MinIncrement),
		application.NewGetAuctionStateUseCase(auctionRepo, bidRepo, winRepo, cfg.MinIncrement),
		application.NewCancelAuctionUseCase(auctionRepo),
		application.NewStatusSweepUseCase(auctionRepo, clk),
		resolveWinnerUC,
		application.NewGetStatusStatsUseCase(auctionRepo, cache.NewRedisStatsCache(rdb)),
	)

	sched := scheduler.New(service, settlementQueue, cfg.SweepInterval, cfg.SettleInterval)
	go sched.Run(ctx)

	hub := sharedws.NewHub()
	go hub.Run(ctx)
	wsHandler := auctionws.NewAuctionWSHandler(service, hub)
	go wsHandler.ListenForMessages(ctx)

	server := httpserver.NewServer(httpapi.NewAuctionHandler(service), hub, wsHandler)
	if err := server.Start(cfg.HTTPAddr); err != nil {
		log.Fatal("HTTP server failed", zap.Error(err))
	}

	// Let in-flight payment captures finish before exiting.
	resolveWinnerUC.WaitForPayments()
}
