package dto

type CreatePredictionRequest struct {
	Text          string  `json:"text"`
	Fee           float64 `json:"fee,omitempty"` // TON; informativo, a taxa real é fixa no servidor
	WalletAddress string  `json:"walletAddress"`
	TxHash        string  `json:"txHash,omitempty"` // obrigatório no modo client-paid
}

type PlaceBetRequest struct {
	PredictionID  int64   `json:"predictionId"`
	Amount        float64 `json:"amount"` // stake em TON
	Fee           float64 `json:"fee,omitempty"`
	WalletAddress string  `json:"walletAddress"`
	TxHash        string  `json:"txHash,omitempty"`
}
