package settlement

import (
	"context"
	"strconv"
	"sync"

	"go.uber.org/zap"
)

// Sender envia uma transferência assinada pela carteira custodial e devolve o
// seqno usado. Implementado por internal/ton/custodial sobre a rede TON.
type Sender interface {
	SendFee(ctx context.Context, dest string, amountNano int64) (seqno uint32, err error)
}

// Custodial é a estratégia em que o próprio serviço assina e envia a taxa
// (somente a taxa; o stake da aposta nunca é movido por aqui). A prova de
// liquidação é o seqno da carteira custodial.
//
// O seqno é um contador mutável único da conta: dois envios concorrentes sem
// serialização reutilizariam o mesmo seqno e o ledger rejeitaria um deles.
// O mutex serializa o ciclo fetch-seqno/build/submit inteiro.
type Custodial struct {
	log    *zap.Logger
	sender Sender

	mu sync.Mutex
}

func NewCustodial(log *zap.Logger, sender Sender) *Custodial {
	return &Custodial{log: log, sender: sender}
}

func (s *Custodial) Settle(ctx context.Context, c Claim) (Result, error) {
	if c.Destination == "" || c.AmountNano <= 0 {
		return Result{Reason: ReasonTransferFailed}, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	seqno, err := s.sender.SendFee(ctx, c.Destination, c.AmountNano)
	if err != nil {
		// Sem retry nesta camada: ledger inacessível, saldo custodial
		// insuficiente e seqno defasado aparecem todos como rejeição.
		s.log.Warn("custodial fee transfer failed",
			zap.String("destination", c.Destination),
			zap.Int64("amount_nano", c.AmountNano),
			zap.Error(err),
		)
		return Result{Reason: ReasonTransferFailed}, nil
	}

	return Result{
		Accepted: true,
		Proof:    strconv.FormatUint(uint64(seqno), 10),
	}, nil
}
