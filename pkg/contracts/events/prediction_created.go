package events

type PredictionCreated struct {
	PredictionID int64  `json:"prediction_id"`
	Text         string `json:"text"`
	CreatedBy    string `json:"created_by"`
	Proof        string `json:"proof"` // seqno (custodial) ou txHash (client-paid)
	TsUnixMs     int64  `json:"ts_unix_ms"`
}
