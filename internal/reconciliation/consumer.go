package reconciliation

import (
	"context"
	"encoding/json"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/radieske/prediction-market-poc/pkg/contracts/events"
)

// Source entrega mensagens sem commitar o offset; o commit só acontece depois
// que o pagamento órfão foi gravado (ou mandado pra DLQ). Um crash no meio do
// processamento reentrega a mensagem em vez de perder o único registro do
// valor desviado. Implementado por *kafka.Reader.
type Source interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
}

// DeadLetter recebe mensagens que não puderam ser processadas
type DeadLetter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// Recorder persiste o pagamento órfão e devolve o id do registro
type Recorder interface {
	Insert(ctx context.Context, e events.PaymentOrphaned) (string, error)
}

const defaultBackoff = 300 * time.Millisecond

// Consumer consome payment_orphaned e grava cada divergência pra reparo
// manual, com retry limitado e dead-letter em último caso.
type Consumer struct {
	Log      *zap.Logger
	Source   Source
	DLQ      DeadLetter
	Recorder Recorder

	// Backoff entre tentativas de insert; cresce linear por tentativa
	Backoff time.Duration

	Recorded prometheus.Counter
	Failures *prometheus.CounterVec // label: stage
}

func (c *Consumer) recorded() {
	if c.Recorded != nil {
		c.Recorded.Inc()
	}
}

func (c *Consumer) failed(stage string) {
	if c.Failures != nil {
		c.Failures.WithLabelValues(stage).Inc()
	}
}

// Run consome até o contexto encerrar
func (c *Consumer) Run(ctx context.Context) {
	for {
		m, err := c.Source.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			c.Log.Warn("kafka fetch", zap.Error(err))
			time.Sleep(time.Second)
			continue
		}
		c.processOne(ctx, m)
	}
}

// processOne grava a divergência (ou manda pra DLQ) e só então commita o
// offset da mensagem
func (c *Consumer) processOne(ctx context.Context, m kafka.Message) {
	var orphan events.PaymentOrphaned
	if err := json.Unmarshal(m.Value, &orphan); err != nil {
		c.Log.Error("unmarshal payment_orphaned", zap.Error(err))
		c.failed("unmarshal")
		c.deadLetter(ctx, m)
		c.commit(ctx, m)
		return
	}

	id, err := c.insertWithRetry(ctx, orphan)
	if err != nil {
		c.Log.Error("record orphan", zap.String("proof", orphan.Proof), zap.Error(err))
		c.failed("persist")
		c.deadLetter(ctx, m)
		c.commit(ctx, m)
		return
	}
	c.recorded()

	c.Log.Warn("orphaned payment recorded",
		zap.String("id", id),
		zap.String("kind", orphan.Kind),
		zap.String("wallet_address", orphan.WalletAddress),
		zap.String("proof", orphan.Proof),
		zap.Int64("amount_nano", orphan.AmountNano),
	)
	c.commit(ctx, m)
}

// insertWithRetry tenta algumas vezes antes de desistir e mandar pra DLQ
func (c *Consumer) insertWithRetry(ctx context.Context, orphan events.PaymentOrphaned) (string, error) {
	const retries = 3
	backoff := c.Backoff
	if backoff == 0 {
		backoff = defaultBackoff
	}

	var id string
	var err error
	for i := 0; i < retries; i++ {
		if id, err = c.Recorder.Insert(ctx, orphan); err == nil {
			return id, nil
		}
		time.Sleep(backoff * time.Duration(i+1))
	}
	return "", err
}

func (c *Consumer) deadLetter(ctx context.Context, m kafka.Message) {
	// o tópico fica no writer; a mensagem leva só chave e payload
	out := kafka.Message{Key: m.Key, Value: m.Value, Time: time.Now()}
	if err := c.DLQ.WriteMessages(ctx, out); err != nil {
		c.Log.Error("dead letter write", zap.Error(err))
	}
}

func (c *Consumer) commit(ctx context.Context, m kafka.Message) {
	if err := c.Source.CommitMessages(ctx, m); err != nil {
		c.Log.Warn("commit offset", zap.Error(err))
	}
}
