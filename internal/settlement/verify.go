package settlement

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// Verify é a estratégia client-paid: o caller pagou a taxa direto na
// blockchain e submete o txHash; o serviço apenas verifica. Aceita somente se
// a transação existe, está finalizada, tem como destino a carteira do serviço
// e cobre o mínimo exigido pela operação (limite exato aceito, um nano abaixo
// rejeitado).
//
// Referências já usadas são rejeitadas: um txHash válido liquida no máximo
// uma operação (marcador em ReferenceStore).
type Verify struct {
	log           *zap.Logger
	resolver      TxResolver
	refs          ReferenceStore
	custodialAddr string // destino esperado das taxas
}

func NewVerify(log *zap.Logger, resolver TxResolver, refs ReferenceStore, custodialAddr string) *Verify {
	return &Verify{log: log, resolver: resolver, refs: refs, custodialAddr: custodialAddr}
}

func (s *Verify) Settle(ctx context.Context, c Claim) (Result, error) {
	if c.TxHash == "" {
		return Result{Reason: ReasonInvalidFeePayment}, nil
	}

	tx, err := s.resolver.ResolveTransaction(ctx, c.TxHash)
	if err != nil {
		return Result{}, fmt.Errorf("%w: resolve %s: %v", ErrLedgerUnavailable, c.TxHash, err)
	}

	if reason := s.check(tx, c); reason != "" {
		s.log.Info("fee payment rejected",
			zap.String("tx_hash", c.TxHash),
			zap.Int64("min_amount_nano", c.MinAmountNano),
			zap.String("reason", reason),
		)
		return Result{Reason: ReasonInvalidFeePayment}, nil
	}

	// Marca a referência só depois de validada, pra não queimar txHash de
	// transações que nunca poderiam liquidar nada.
	ok, err := s.refs.Consume(ctx, c.TxHash)
	if err != nil {
		return Result{}, fmt.Errorf("%w: consume reference: %v", ErrLedgerUnavailable, err)
	}
	if !ok {
		s.log.Warn("fee payment replay blocked", zap.String("tx_hash", c.TxHash))
		return Result{Reason: ReasonFeeAlreadyUsed}, nil
	}

	return Result{Accepted: true, Proof: c.TxHash}, nil
}

// check devolve o motivo interno da rejeição (vazio = válida). O caller vê
// sempre o motivo genérico; o detalhe fica no log.
func (s *Verify) check(tx *LedgerTx, c Claim) string {
	switch {
	case tx == nil:
		return "transaction not found"
	case !tx.Finalized:
		return "transaction pending"
	case tx.Destination != s.custodialAddr:
		return "wrong destination"
	case tx.AmountNano < c.MinAmountNano:
		return "amount below required minimum"
	}
	return ""
}
