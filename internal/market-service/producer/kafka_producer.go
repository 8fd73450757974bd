package producer

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/radieske/prediction-market-poc/pkg/contracts/events"
)

// KafkaPublisher publica os eventos do mercado: criações, apostas e
// pagamentos órfãos (consumidos pelo reconciliation-worker).
type KafkaPublisher struct {
	Created  *kafka.Writer
	Bets     *kafka.Writer
	Orphaned *kafka.Writer
}

func NewKafkaPublisher(created, bets, orphaned *kafka.Writer) *KafkaPublisher {
	return &KafkaPublisher{Created: created, Bets: bets, Orphaned: orphaned}
}

func (p *KafkaPublisher) PublishPredictionCreated(ctx context.Context, e events.PredictionCreated) error {
	e.TsUnixMs = time.Now().UnixMilli()
	b, _ := json.Marshal(e)
	return p.Created.WriteMessages(ctx, kafka.Message{
		Key:   []byte(strconv.FormatInt(e.PredictionID, 10)),
		Value: b,
	})
}

func (p *KafkaPublisher) PublishBetPlaced(ctx context.Context, e events.BetPlaced) error {
	e.TsUnixMs = time.Now().UnixMilli()
	b, _ := json.Marshal(e)
	return p.Bets.WriteMessages(ctx, kafka.Message{
		Key:   []byte(strconv.FormatInt(e.PredictionID, 10)),
		Value: b,
	})
}

func (p *KafkaPublisher) PublishPaymentOrphaned(ctx context.Context, e events.PaymentOrphaned) error {
	e.TsUnixMs = time.Now().UnixMilli()
	b, _ := json.Marshal(e)
	return p.Orphaned.WriteMessages(ctx, kafka.Message{
		Key:   []byte(e.Proof),
		Value: b,
	})
}
