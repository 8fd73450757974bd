package events

type BetPlaced struct {
	BetID         int64  `json:"bet_id"`
	PredictionID  int64  `json:"prediction_id"`
	AmountNano    int64  `json:"amount_nano"`
	WalletAddress string `json:"wallet_address"`
	Proof         string `json:"proof"`
	TsUnixMs      int64  `json:"ts_unix_ms"`
}
