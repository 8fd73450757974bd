package repo

import (
	"context"
	"database/sql"
)

// Postgres implementa a persistência de previsões e apostas
type Postgres struct{ db *sql.DB }

func NewPostgres(db *sql.DB) *Postgres { return &Postgres{db: db} }

// EnsureSchema cria as tabelas na subida do serviço se não existirem
func (p *Postgres) EnsureSchema(ctx context.Context) error {
	const q = `
		CREATE TABLE IF NOT EXISTS predictions (
			id             BIGSERIAL PRIMARY KEY,
			text           TEXT NOT NULL,
			created_by     TEXT NOT NULL,
			settlement_ref TEXT NOT NULL DEFAULT '',
			created_at     TIMESTAMPTZ NOT NULL DEFAULT now()
		);
		CREATE TABLE IF NOT EXISTS bets (
			id             BIGSERIAL PRIMARY KEY,
			prediction_id  BIGINT NOT NULL REFERENCES predictions(id),
			amount_nano    BIGINT NOT NULL,
			wallet_address TEXT NOT NULL,
			settlement_ref TEXT NOT NULL DEFAULT '',
			created_at     TIMESTAMPTZ NOT NULL DEFAULT now()
		);`
	_, err := p.db.ExecContext(ctx, q)
	return err
}

// InsertPrediction insere uma previsão já liquidada e retorna o id gerado
func (p *Postgres) InsertPrediction(ctx context.Context, text, createdBy, settlementRef string) (int64, error) {
	var id int64
	err := p.db.QueryRowContext(ctx, `
		INSERT INTO predictions (text, created_by, settlement_ref)
		VALUES ($1,$2,$3)
		RETURNING id`,
		text, createdBy, settlementRef,
	).Scan(&id)
	if err != nil {
		return 0, err
	}
	return id, nil
}

// InsertBet insere uma aposta já liquidada e retorna o id gerado
func (p *Postgres) InsertBet(ctx context.Context, predictionID, amountNano int64, walletAddress, settlementRef string) (int64, error) {
	var id int64
	err := p.db.QueryRowContext(ctx, `
		INSERT INTO bets (prediction_id, amount_nano, wallet_address, settlement_ref)
		VALUES ($1,$2,$3,$4)
		RETURNING id`,
		predictionID, amountNano, walletAddress, settlementRef,
	).Scan(&id)
	if err != nil {
		return 0, err
	}
	return id, nil
}

// PredictionExists verifica a existência da previsão antes de liquidar a
// aposta, pra não queimar taxa apontando pra um id inexistente
func (p *Postgres) PredictionExists(ctx context.Context, id int64) (bool, error) {
	var exists bool
	err := p.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM predictions WHERE id=$1)`, id,
	).Scan(&exists)
	return exists, err
}

// ListPredictions retorna a projeção completa ordenada por inserção
func (p *Postgres) ListPredictions(ctx context.Context) ([]Prediction, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT id, text, created_by, settlement_ref, created_at
		FROM predictions
		ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Prediction{}
	for rows.Next() {
		var pr Prediction
		if err := rows.Scan(&pr.ID, &pr.Text, &pr.CreatedBy, &pr.SettlementRef, &pr.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, pr)
	}
	return out, rows.Err()
}
