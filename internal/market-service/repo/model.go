package repo

import "time"

// Prediction é o modelo persistido no Postgres. SettlementRef guarda a prova
// da liquidação (seqno ou txHash) pra reconciliação poder cruzar pagamento e
// registro.
type Prediction struct {
	ID            int64     `json:"id"`
	Text          string    `json:"text"`
	CreatedBy     string    `json:"createdBy"`
	SettlementRef string    `json:"settlementRef,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
}

type Bet struct {
	ID            int64     `json:"id"`
	PredictionID  int64     `json:"predictionId"`
	AmountNano    int64     `json:"amountNano"`
	WalletAddress string    `json:"walletAddress"`
	SettlementRef string    `json:"settlementRef,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
}
