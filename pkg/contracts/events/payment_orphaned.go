package events

// Evento emitido pelo market-service quando a taxa foi liquidada na blockchain
// mas a escrita no banco falhou. O valor já saiu da carteira do usuário (ou da
// custodial) sem registro correspondente; o reconciliation-worker persiste o
// evento para reparo manual.
type PaymentOrphaned struct {
	Kind          string `json:"kind"` // "prediction" | "bet"
	WalletAddress string `json:"wallet_address"`
	Proof         string `json:"proof"` // seqno ou txHash da liquidação aceita
	AmountNano    int64  `json:"amount_nano"`
	Reason        string `json:"reason"` // erro de persistência
	TsUnixMs      int64  `json:"ts_unix_ms"`
}
