package main

import (
	"context"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	mcache "github.com/radieske/prediction-market-poc/internal/market-service/cache"
	"github.com/radieske/prediction-market-poc/internal/market-service/feed"
	mhttp "github.com/radieske/prediction-market-poc/internal/market-service/http"
	"github.com/radieske/prediction-market-poc/internal/market-service/producer"
	"github.com/radieske/prediction-market-poc/internal/market-service/repo"
	"github.com/radieske/prediction-market-poc/internal/market-service/ws"
	"github.com/radieske/prediction-market-poc/internal/settlement"
	"github.com/radieske/prediction-market-poc/internal/settlement/refstore"
	sharedcache "github.com/radieske/prediction-market-poc/internal/shared/cache"
	"github.com/radieske/prediction-market-poc/internal/shared/config"
	"github.com/radieske/prediction-market-poc/internal/shared/db"
	"github.com/radieske/prediction-market-poc/internal/shared/kafka"
	"github.com/radieske/prediction-market-poc/internal/shared/logger"
	"github.com/radieske/prediction-market-poc/internal/shared/metrics"
	"github.com/radieske/prediction-market-poc/internal/ton/custodial"
	"github.com/radieske/prediction-market-poc/internal/ton/toncenter"
)

func main() {
	cfg := config.Load()
	log, err := logger.New(cfg.ServiceName, cfg.Env)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	ctx := context.Background()

	// Postgres
	pg, err := db.ConnectPostgres(cfg.PostgresDSN)
	if err != nil {
		log.Fatal("postgres connect", zap.Error(err))
	}
	defer pg.Close()

	repository := repo.NewPostgres(pg)
	if err := repository.EnsureSchema(ctx); err != nil {
		log.Fatal("ensure schema", zap.Error(err))
	}

	// Redis
	rdb, err := sharedcache.ConnectRedis(cfg.RedisAddr)
	if err != nil {
		log.Fatal("redis connect", zap.Error(err))
	}
	defer rdb.Close()

	// Kafka writers
	createdWriter := kafka.NewWriter(cfg.KafkaBrokers, cfg.TopicPredictionCreated)
	defer createdWriter.Close()
	betsWriter := kafka.NewWriter(cfg.KafkaBrokers, cfg.TopicBetPlaced)
	defer betsWriter.Close()
	orphanedWriter := kafka.NewWriter(cfg.KafkaBrokers, cfg.TopicPaymentOrphaned)
	defer orphanedWriter.Close()

	publ := producer.NewKafkaPublisher(createdWriter, betsWriter, orphanedWriter)
	broadcaster := feed.NewRedisBroadcaster(rdb, cfg.RedisPubSubChannel)

	// Cliente toncenter: saldo e resolução de transações
	tc := toncenter.New(cfg.TonAPIEndpoint, cfg.TonAPIKey, cfg.TonWalletAddress)

	// Carteira do serviço: destino das taxas no modo custodial e destino
	// exigido das transações verificadas no modo client-paid. Sem ela o
	// engine aceitaria pagamento pra qualquer endereço.
	if cfg.TonWalletAddress == "" {
		log.Fatal("TON_WALLET_ADDRESS is required")
	}

	// Estratégia de liquidação, escolhida uma vez no boot
	var engine settlement.Strategy
	switch cfg.SettlementMode {
	case config.ModeCustodial:
		cw, err := custodial.Connect(ctx, cfg.TonConfigURL, cfg.TonMnemonic)
		if err != nil {
			log.Fatal("custodial wallet", zap.Error(err))
		}
		log.Info("settlement mode custodial", zap.String("wallet", cw.Address()))
		engine = settlement.NewCustodial(log, cw)
	case config.ModeClientPaid:
		log.Info("settlement mode client-paid", zap.String("fee_wallet", cfg.TonWalletAddress))
		engine = settlement.NewVerify(log, tc, refstore.NewRedis(rdb), cfg.TonWalletAddress)
	default:
		log.Fatal("unknown settlement mode", zap.String("mode", cfg.SettlementMode))
	}

	// Métricas
	accepted := prometheus.NewCounter(prometheus.CounterOpts{Name: "market_settlements_accepted_total", Help: "liquidações aceitas"})
	rejected := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "market_settlements_rejected_total", Help: "liquidações rejeitadas por motivo"}, []string{"reason"})
	orphaned := prometheus.NewCounter(prometheus.CounterOpts{Name: "market_payments_orphaned_total", Help: "pagamentos liquidados sem registro persistido"})
	wsClients := prometheus.NewGauge(prometheus.GaugeOpts{Name: "market_ws_clients", Help: "clientes conectados no feed"})
	prometheus.MustRegister(accepted, rejected, orphaned, wsClients)

	// Hub WebSocket do feed de previsões
	hub := ws.NewHub(func(r *http.Request) bool { return true })
	hub.OnClientsChange = func(n int) { wsClients.Set(float64(n)) }
	ws.StartRedisSubscriber(ctx, log, rdb, cfg.RedisPubSubChannel, hub)

	api := &mhttp.Server{
		Log:          log,
		Repo:         repository,
		Engine:       engine,
		ClientPaid:   cfg.SettlementMode == config.ModeClientPaid,
		FeeWallet:    cfg.TonWalletAddress,
		Balances:     tc,
		BalanceCache: mcache.New(rdb),
		Publisher:    publ,
		Feed:         broadcaster,
		WSHandler:    hub.HandleWS,
		Metrics: mhttp.Metrics{
			SettlementsAccepted: accepted,
			SettlementsRejected: rejected,
			PaymentsOrphaned:    orphaned,
		},
	}

	apiSrv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.HTTPPort),
		Handler: api.Router(),
	}

	// metrics/health
	metrics.StartMetricsServer(cfg.MetricsPort, func(hctx context.Context) error {
		if err := pg.PingContext(hctx); err != nil {
			return fmt.Errorf("pg: %w", err)
		}
		if err := rdb.Ping(hctx).Err(); err != nil {
			return fmt.Errorf("redis: %w", err)
		}
		return nil
	})
	log.Info("metrics/health", zap.String("addr", ":"+cfg.MetricsPort))

	log.Info("market-service listening", zap.String("addr", apiSrv.Addr))
	if err := apiSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal("api", zap.Error(err))
	}
}
