package topics

const (
	// Mercado
	PredictionCreated = "prediction_created"
	BetPlaced         = "bet_placed"

	// Pagamentos órfãos (taxa liquidada, registro não persistido)
	PaymentOrphaned    = "payment_orphaned"
	PaymentOrphanedDLQ = "payment_orphaned_dlq"
)
