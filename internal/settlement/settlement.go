package settlement

import (
	"context"
	"errors"
	"math"
)

// Taxas do mercado em nanoTON. Valores fixos do produto: 0.30 TON para criar
// uma previsão, 0.15 TON para apostar.
const (
	NanosPerTON = int64(1_000_000_000)

	CreatePredictionFeeNano = int64(300_000_000)
	PlaceBetFeeNano         = int64(150_000_000)
)

// Motivos de rejeição visíveis ao caller. O texto volta verbatim na resposta.
const (
	ReasonInvalidFeePayment = "Invalid fee payment"
	ReasonFeeAlreadyUsed    = "Fee payment already used"
	ReasonTransferFailed    = "Fee transfer failed"
)

// ErrLedgerUnavailable indica falha transitória de I/O falando com a
// blockchain (ou com o marcador de referências). Nenhuma transferência foi
// confirmada; o caller pode repetir a chamada.
var ErrLedgerUnavailable = errors.New("ledger unavailable")

// Claim é a reivindicação de pagamento de taxa de uma operação de escrita.
// Transiente: construída por request, resolvida e descartada, nunca persistida.
// Os campos usados dependem da estratégia configurada no serviço.
type Claim struct {
	// Estratégia custodial: o serviço transfere AmountNano para Destination
	// assinando com a própria carteira.
	Destination string
	AmountNano  int64

	// Estratégia client-paid: o caller informa o TxHash de uma transação já
	// enviada; ela precisa cobrir MinAmountNano.
	TxHash        string
	MinAmountNano int64
}

// CustodialClaim monta a claim da estratégia custodial (somente a taxa é
// movida, nunca o stake).
func CustodialClaim(destination string, amountNano int64) Claim {
	return Claim{Destination: destination, AmountNano: amountNano}
}

// VerificationClaim monta a claim da estratégia client-paid.
func VerificationClaim(txHash string, minAmountNano int64) Claim {
	return Claim{TxHash: txHash, MinAmountNano: minAmountNano}
}

// Result é o desfecho de uma liquidação: aceita com prova (seqno ou txHash) ou
// rejeitada com motivo. Em caso de aceite o caller persiste o registro; em
// rejeição nada é escrito.
type Result struct {
	Accepted bool
	Proof    string
	Reason   string
}

// Strategy é o contrato único das duas estratégias de liquidação. A seleção é
// feita uma vez na configuração do serviço, nunca por request.
//
// O retorno de erro é reservado a falhas de infraestrutura
// (ErrLedgerUnavailable); rejeições definitivas vêm em Result.Reason.
type Strategy interface {
	Settle(ctx context.Context, c Claim) (Result, error)
}

// LedgerTx é o registro de uma transação resolvida na blockchain.
type LedgerTx struct {
	Hash        string
	AmountNano  int64
	Destination string
	Finalized   bool
}

// TxResolver resolve uma referência de transação no ledger. Retorna nil (sem
// erro) quando a transação não existe.
type TxResolver interface {
	ResolveTransaction(ctx context.Context, hash string) (*LedgerTx, error)
}

// ReferenceStore marca referências de transação já consumidas, impedindo que
// um mesmo txHash válido liquide duas operações.
type ReferenceStore interface {
	// Consume marca a referência; retorna false se ela já tinha sido usada.
	Consume(ctx context.Context, ref string) (bool, error)
}

// NanoFromTON converte um valor em TON para nanoTON.
func NanoFromTON(v float64) int64 {
	return int64(math.Round(v * float64(NanosPerTON)))
}

// TONFromNano converte nanoTON para TON (unidade de exibição).
func TONFromNano(n int64) float64 {
	return float64(n) / float64(NanosPerTON)
}
