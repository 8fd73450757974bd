package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/radieske/prediction-market-poc/internal/market-service/dto"
	"github.com/radieske/prediction-market-poc/internal/market-service/repo"
	"github.com/radieske/prediction-market-poc/internal/settlement"
	"github.com/radieske/prediction-market-poc/pkg/contracts/events"
)

// fakeEngine liquida contra um mapa em memória de valores por transação, com
// a mesma regra de aceite da estratégia client-paid real.
type fakeEngine struct {
	txAmounts map[string]int64
	calls     int
	err       error
}

func (f *fakeEngine) Settle(_ context.Context, c settlement.Claim) (settlement.Result, error) {
	f.calls++
	if f.err != nil {
		return settlement.Result{}, f.err
	}
	amount, ok := f.txAmounts[c.TxHash]
	if !ok || amount < c.MinAmountNano {
		return settlement.Result{Reason: settlement.ReasonInvalidFeePayment}, nil
	}
	return settlement.Result{Accepted: true, Proof: c.TxHash}, nil
}

type fakeRepo struct {
	predictions []repo.Prediction
	bets        []repo.Bet
	insertErr   error
}

func (f *fakeRepo) InsertPrediction(_ context.Context, text, createdBy, ref string) (int64, error) {
	if f.insertErr != nil {
		return 0, f.insertErr
	}
	id := int64(len(f.predictions) + 1)
	f.predictions = append(f.predictions, repo.Prediction{ID: id, Text: text, CreatedBy: createdBy, SettlementRef: ref})
	return id, nil
}

func (f *fakeRepo) InsertBet(_ context.Context, predictionID, amountNano int64, walletAddress, ref string) (int64, error) {
	if f.insertErr != nil {
		return 0, f.insertErr
	}
	id := int64(len(f.bets) + 1)
	f.bets = append(f.bets, repo.Bet{ID: id, PredictionID: predictionID, AmountNano: amountNano, WalletAddress: walletAddress, SettlementRef: ref})
	return id, nil
}

func (f *fakeRepo) PredictionExists(_ context.Context, id int64) (bool, error) {
	for _, p := range f.predictions {
		if p.ID == id {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeRepo) ListPredictions(_ context.Context) ([]repo.Prediction, error) {
	return f.predictions, nil
}

type fakePublisher struct {
	created  []events.PredictionCreated
	bets     []events.BetPlaced
	orphaned []events.PaymentOrphaned
}

func (f *fakePublisher) PublishPredictionCreated(_ context.Context, e events.PredictionCreated) error {
	f.created = append(f.created, e)
	return nil
}

func (f *fakePublisher) PublishBetPlaced(_ context.Context, e events.BetPlaced) error {
	f.bets = append(f.bets, e)
	return nil
}

func (f *fakePublisher) PublishPaymentOrphaned(_ context.Context, e events.PaymentOrphaned) error {
	f.orphaned = append(f.orphaned, e)
	return nil
}

func newTestServer(engine settlement.Strategy, r *fakeRepo, p *fakePublisher) *Server {
	return &Server{
		Log:        zap.NewNop(),
		Repo:       r,
		Engine:     engine,
		ClientPaid: true,
		FeeWallet:  "EQService",
		Publisher:  p,
	}
}

func post(t *testing.T, h http.Handler, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestCreatePrediction_ExactFeeAccepted(t *testing.T) {
	engine := &fakeEngine{txAmounts: map[string]int64{"tx1": 300_000_000}} // exatamente 0.30 TON
	r := &fakeRepo{}
	p := &fakePublisher{}
	h := newTestServer(engine, r, p).Router()

	rec := post(t, h, "/create-prediction",
		`{"text":"BTC above 100k by EOY","walletAddress":"EQUser","txHash":"tx1"}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var resp dto.CreatePredictionResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !resp.Success || resp.PredictionID != 1 {
		t.Fatalf("resp = %+v, want success with predictionId 1", resp)
	}

	// a listagem retorna exatamente a previsão aceita
	lrec := httptest.NewRecorder()
	h.ServeHTTP(lrec, httptest.NewRequest(http.MethodGet, "/predictions", nil))
	var list []repo.Prediction
	if err := json.Unmarshal(lrec.Body.Bytes(), &list); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(list) != 1 || list[0].ID != 1 || list[0].Text != "BTC above 100k by EOY" {
		t.Fatalf("list = %+v", list)
	}

	if len(p.created) != 1 {
		t.Errorf("prediction_created events = %d, want 1", len(p.created))
	}
}

func TestCreatePrediction_EmptyTextFailsBeforeLedger(t *testing.T) {
	engine := &fakeEngine{txAmounts: map[string]int64{"tx1": 300_000_000}}
	r := &fakeRepo{}
	h := newTestServer(engine, r, &fakePublisher{}).Router()

	rec := post(t, h, "/create-prediction", `{"text":"  ","walletAddress":"EQUser","txHash":"tx1"}`)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
	if engine.calls != 0 {
		t.Error("ledger was called for an invalid request")
	}
	if len(r.predictions) != 0 {
		t.Error("prediction persisted despite validation failure")
	}
}

func TestCreatePrediction_RejectedSettlementHasNoSideEffect(t *testing.T) {
	engine := &fakeEngine{txAmounts: map[string]int64{}} // tx desconhecida
	r := &fakeRepo{}
	h := newTestServer(engine, r, &fakePublisher{}).Router()

	rec := post(t, h, "/create-prediction", `{"text":"x","walletAddress":"EQUser","txHash":"nope"}`)

	if rec.Code != http.StatusPaymentRequired {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp dto.CreatePredictionResponse
	_ = json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp.Success || resp.Error != settlement.ReasonInvalidFeePayment {
		t.Fatalf("resp = %+v", resp)
	}
	if len(r.predictions) != 0 {
		t.Error("prediction persisted despite rejected settlement")
	}
}

func TestCreatePrediction_LedgerUnavailable(t *testing.T) {
	engine := &fakeEngine{err: settlement.ErrLedgerUnavailable}
	r := &fakeRepo{}
	h := newTestServer(engine, r, &fakePublisher{}).Router()

	rec := post(t, h, "/create-prediction", `{"text":"x","walletAddress":"EQUser","txHash":"tx1"}`)

	if rec.Code != http.StatusBadGateway {
		t.Fatalf("status = %d", rec.Code)
	}
	if len(r.predictions) != 0 {
		t.Error("prediction persisted despite unavailable ledger")
	}
}

func TestCreatePrediction_StoreFailureReportsOrphan(t *testing.T) {
	engine := &fakeEngine{txAmounts: map[string]int64{"tx1": 300_000_000}}
	r := &fakeRepo{insertErr: errors.New("connection reset")}
	p := &fakePublisher{}
	h := newTestServer(engine, r, p).Router()

	rec := post(t, h, "/create-prediction", `{"text":"x","walletAddress":"EQUser","txHash":"tx1"}`)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", rec.Code)
	}
	if len(p.orphaned) != 1 {
		t.Fatalf("payment_orphaned events = %d, want 1", len(p.orphaned))
	}
	o := p.orphaned[0]
	if o.Kind != "prediction" || o.Proof != "tx1" || o.AmountNano != settlement.CreatePredictionFeeNano {
		t.Errorf("orphan = %+v", o)
	}
}

func TestPlaceBet_BelowRequiredMinimum(t *testing.T) {
	// aposta de 10 TON exige 10.15; pagamento de 10.10 fica abaixo
	engine := &fakeEngine{txAmounts: map[string]int64{"tx2": 10_100_000_000}}
	r := &fakeRepo{predictions: []repo.Prediction{{ID: 1, Text: "x"}}}
	h := newTestServer(engine, r, &fakePublisher{}).Router()

	rec := post(t, h, "/place-bet",
		`{"predictionId":1,"amount":10,"walletAddress":"EQUser","txHash":"tx2"}`)

	if rec.Code != http.StatusPaymentRequired {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var resp dto.PlaceBetResponse
	_ = json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp.Error != settlement.ReasonInvalidFeePayment {
		t.Errorf("error = %q, want %q", resp.Error, settlement.ReasonInvalidFeePayment)
	}
	if len(r.bets) != 0 {
		t.Error("bet persisted despite rejected settlement")
	}
}

func TestPlaceBet_ExactMinimumAccepted(t *testing.T) {
	engine := &fakeEngine{txAmounts: map[string]int64{"tx2": 10_150_000_000}}
	r := &fakeRepo{predictions: []repo.Prediction{{ID: 1, Text: "x"}}}
	p := &fakePublisher{}
	h := newTestServer(engine, r, p).Router()

	rec := post(t, h, "/place-bet",
		`{"predictionId":1,"amount":10,"walletAddress":"EQUser","txHash":"tx2"}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	if len(r.bets) != 1 {
		t.Fatalf("bets = %d, want 1", len(r.bets))
	}
	b := r.bets[0]
	if b.PredictionID != 1 || b.AmountNano != 10_000_000_000 || b.SettlementRef != "tx2" {
		t.Errorf("bet = %+v", b)
	}
	if len(p.bets) != 1 {
		t.Errorf("bet_placed events = %d, want 1", len(p.bets))
	}
}

func TestPlaceBet_UnknownPredictionFailsBeforeSettlement(t *testing.T) {
	engine := &fakeEngine{txAmounts: map[string]int64{"tx2": 10_150_000_000}}
	r := &fakeRepo{}
	h := newTestServer(engine, r, &fakePublisher{}).Router()

	rec := post(t, h, "/place-bet",
		`{"predictionId":99,"amount":10,"walletAddress":"EQUser","txHash":"tx2"}`)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d", rec.Code)
	}
	if engine.calls != 0 {
		t.Error("settlement ran for a nonexistent prediction")
	}
}

func TestPlaceBet_InvalidAmount(t *testing.T) {
	engine := &fakeEngine{}
	r := &fakeRepo{predictions: []repo.Prediction{{ID: 1}}}
	h := newTestServer(engine, r, &fakePublisher{}).Router()

	for _, body := range []string{
		`{"predictionId":1,"amount":0,"walletAddress":"EQUser","txHash":"tx2"}`,
		`{"predictionId":1,"amount":-5,"walletAddress":"EQUser","txHash":"tx2"}`,
	} {
		rec := post(t, h, "/place-bet", body)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("body %s: status = %d, want 400", body, rec.Code)
		}
	}
	if engine.calls != 0 {
		t.Error("settlement ran for invalid amounts")
	}
}

type fakeBalances struct {
	nano int64
	err  error
}

func (f *fakeBalances) GetAddressBalance(_ context.Context, _ string) (int64, error) {
	return f.nano, f.err
}

func TestGetBalance(t *testing.T) {
	s := newTestServer(&fakeEngine{}, &fakeRepo{}, &fakePublisher{})
	s.Balances = &fakeBalances{nano: 2_500_000_000}
	h := s.Router()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/balance?address=EQUser", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp dto.BalanceResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.BalanceNano != 2_500_000_000 || resp.Balance != 2.5 {
		t.Errorf("resp = %+v", resp)
	}
}

func TestGetBalance_MissingAddress(t *testing.T) {
	s := newTestServer(&fakeEngine{}, &fakeRepo{}, &fakePublisher{})
	s.Balances = &fakeBalances{}
	h := s.Router()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/balance", nil))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
}
