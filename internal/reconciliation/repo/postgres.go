package repo

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/radieske/prediction-market-poc/pkg/contracts/events"
)

// Postgres guarda pagamentos órfãos pra reparo manual: taxa liquidada na
// chain sem registro correspondente no banco do mercado.
type Postgres struct{ db *sql.DB }

func NewPostgres(db *sql.DB) *Postgres { return &Postgres{db: db} }

func (p *Postgres) EnsureSchema(ctx context.Context) error {
	const q = `
		CREATE TABLE IF NOT EXISTS payment_reconciliation (
			id             TEXT PRIMARY KEY,
			kind           TEXT NOT NULL,
			wallet_address TEXT NOT NULL,
			proof          TEXT NOT NULL,
			amount_nano    BIGINT NOT NULL,
			reason         TEXT NOT NULL,
			resolved       BOOLEAN NOT NULL DEFAULT FALSE,
			recorded_at    TIMESTAMPTZ NOT NULL DEFAULT now()
		);`
	_, err := p.db.ExecContext(ctx, q)
	return err
}

// Insert registra o pagamento órfão e retorna o id do registro
func (p *Postgres) Insert(ctx context.Context, e events.PaymentOrphaned) (string, error) {
	id := uuid.NewString()
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO payment_reconciliation (id, kind, wallet_address, proof, amount_nano, reason)
		VALUES ($1,$2,$3,$4,$5,$6)`,
		id, e.Kind, e.WalletAddress, e.Proof, e.AmountNano, e.Reason,
	)
	if err != nil {
		return "", err
	}
	return id, nil
}
