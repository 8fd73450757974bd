package main

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/radieske/prediction-market-poc/internal/reconciliation"
	"github.com/radieske/prediction-market-poc/internal/reconciliation/repo"
	"github.com/radieske/prediction-market-poc/internal/shared/config"
	"github.com/radieske/prediction-market-poc/internal/shared/db"
	"github.com/radieske/prediction-market-poc/internal/shared/kafka"
	"github.com/radieske/prediction-market-poc/internal/shared/logger"
	"github.com/radieske/prediction-market-poc/internal/shared/metrics"
)

func main() {
	cfg := config.Load()
	log, err := logger.New(cfg.ServiceName, cfg.Env)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	pg, err := db.ConnectPostgres(cfg.PostgresDSN)
	if err != nil {
		log.Fatal("pg connect", zap.Error(err))
	}
	defer pg.Close()

	repository := repo.NewPostgres(pg)
	if err := repository.EnsureSchema(context.Background()); err != nil {
		log.Fatal("ensure schema", zap.Error(err))
	}

	// Consome pagamentos órfãos emitidos pelo market-service
	reader := kafka.NewReader(cfg.KafkaBrokers, cfg.TopicPaymentOrphaned, "reconciliation")
	defer reader.Close()

	dlqWriter := kafka.NewWriter(cfg.KafkaBrokers, cfg.TopicPaymentOrphanedDLQ)
	defer dlqWriter.Close()

	// Métricas
	recorded := prometheus.NewCounter(prometheus.CounterOpts{Name: "reconciliation_orphans_recorded_total", Help: "pagamentos órfãos registrados"})
	failures := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "reconciliation_errors_total", Help: "erros por estágio"}, []string{"stage"})
	prometheus.MustRegister(recorded, failures)

	// Servidor HTTP para métricas e healthcheck
	metrics.StartMetricsServer(cfg.MetricsPort, pg.PingContext)
	log.Info("metrics/health", zap.String("addr", ":"+cfg.MetricsPort))

	log.Info("reconciliation-worker started", zap.String("consume", cfg.TopicPaymentOrphaned))

	consumer := &reconciliation.Consumer{
		Log:      log,
		Source:   reader,
		DLQ:      dlqWriter,
		Recorder: repository,
		Recorded: recorded,
		Failures: failures,
	}
	consumer.Run(context.Background())
}
