package dto

type CreatePredictionResponse struct {
	Success      bool   `json:"success"`
	PredictionID int64  `json:"predictionId,omitempty"`
	Error        string `json:"error,omitempty"`
}

type PlaceBetResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

type BalanceResponse struct {
	Address     string  `json:"address"`
	BalanceNano int64   `json:"balanceNano"`
	Balance     float64 `json:"balance"` // TON (unidade de exibição)
}
