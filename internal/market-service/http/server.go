package http

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/radieske/prediction-market-poc/internal/market-service/cache"
	"github.com/radieske/prediction-market-poc/internal/market-service/dto"
	"github.com/radieske/prediction-market-poc/internal/market-service/repo"
	"github.com/radieske/prediction-market-poc/internal/settlement"
	"github.com/radieske/prediction-market-poc/pkg/contracts/events"
)

const balanceCacheTTL = 30 * time.Second

// Repo define as operações de persistência usadas pelos handlers
type Repo interface {
	InsertPrediction(ctx context.Context, text, createdBy, settlementRef string) (int64, error)
	InsertBet(ctx context.Context, predictionID, amountNano int64, walletAddress, settlementRef string) (int64, error)
	PredictionExists(ctx context.Context, id int64) (bool, error)
	ListPredictions(ctx context.Context) ([]repo.Prediction, error)
}

// BalanceSource consulta o saldo on-chain de um endereço (toncenter)
type BalanceSource interface {
	GetAddressBalance(ctx context.Context, addr string) (int64, error)
}

// Publisher emite os eventos de domínio no Kafka
type Publisher interface {
	PublishPredictionCreated(ctx context.Context, e events.PredictionCreated) error
	PublishBetPlaced(ctx context.Context, e events.BetPlaced) error
	PublishPaymentOrphaned(ctx context.Context, e events.PaymentOrphaned) error
}

// FeedBroadcaster repassa previsões novas pro feed WebSocket via Redis Pub/Sub
type FeedBroadcaster interface {
	PublishPredictionCreated(ctx context.Context, e events.PredictionCreated) error
}

// Metrics agrupa os contadores Prometheus dos handlers; campos nil são
// ignorados (testes não registram métricas)
type Metrics struct {
	SettlementsAccepted prometheus.Counter
	SettlementsRejected *prometheus.CounterVec // label: reason
	PaymentsOrphaned    prometheus.Counter
}

func (m Metrics) accepted() {
	if m.SettlementsAccepted != nil {
		m.SettlementsAccepted.Inc()
	}
}

func (m Metrics) rejected(reason string) {
	if m.SettlementsRejected != nil {
		m.SettlementsRejected.WithLabelValues(reason).Inc()
	}
}

func (m Metrics) orphaned() {
	if m.PaymentsOrphaned != nil {
		m.PaymentsOrphaned.Inc()
	}
}

// Server expõe a API pública do mercado de previsões. Toda mutação passa pelo
// settlement engine antes de tocar no banco: liquidação estritamente antes da
// persistência, rejeição nunca escreve nada.
type Server struct {
	Log    *zap.Logger
	Repo   Repo
	Engine settlement.Strategy

	// ClientPaid indica a estratégia configurada no boot: true = o caller
	// paga e manda txHash; false = custodial, o serviço envia a taxa.
	ClientPaid bool
	// FeeWallet é a carteira do serviço, destino das taxas custodial
	FeeWallet string

	Balances     BalanceSource
	BalanceCache *cache.BalanceCache

	Publisher Publisher
	Feed      FeedBroadcaster
	WSHandler http.HandlerFunc

	Metrics Metrics
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Post("/create-prediction", s.createPrediction)
	r.Post("/place-bet", s.placeBet)
	r.Get("/predictions", s.listPredictions)
	r.Get("/balance", s.getBalance)
	if s.WSHandler != nil {
		r.Get("/ws", s.WSHandler)
	}
	return r
}

func (s *Server) createPrediction(w http.ResponseWriter, r *http.Request) {
	var req dto.CreatePredictionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, dto.CreatePredictionResponse{Error: "bad json"})
		return
	}

	// validação antes de qualquer I/O
	if strings.TrimSpace(req.Text) == "" {
		writeJSON(w, http.StatusBadRequest, dto.CreatePredictionResponse{Error: "prediction text is required"})
		return
	}
	if req.WalletAddress == "" {
		writeJSON(w, http.StatusBadRequest, dto.CreatePredictionResponse{Error: "walletAddress is required"})
		return
	}

	claim, errMsg := s.buildClaim(req.TxHash, settlement.CreatePredictionFeeNano)
	if errMsg != "" {
		writeJSON(w, http.StatusBadRequest, dto.CreatePredictionResponse{Error: errMsg})
		return
	}

	res, err := s.Engine.Settle(r.Context(), claim)
	if err != nil {
		s.Log.Warn("settlement unavailable", zap.Error(err))
		s.Metrics.rejected("ledger_unavailable")
		writeJSON(w, http.StatusBadGateway, dto.CreatePredictionResponse{Error: "ledger unavailable"})
		return
	}
	if !res.Accepted {
		s.Metrics.rejected("payment_rejected")
		writeJSON(w, http.StatusPaymentRequired, dto.CreatePredictionResponse{Error: res.Reason})
		return
	}
	s.Metrics.accepted()

	id, err := s.Repo.InsertPrediction(r.Context(), req.Text, req.WalletAddress, res.Proof)
	if err != nil {
		s.reportOrphan(r.Context(), "prediction", req.WalletAddress, res.Proof, settlement.CreatePredictionFeeNano, err)
		writeJSON(w, http.StatusInternalServerError, dto.CreatePredictionResponse{Error: "store error"})
		return
	}

	created := events.PredictionCreated{
		PredictionID: id,
		Text:         req.Text,
		CreatedBy:    req.WalletAddress,
		Proof:        res.Proof,
	}
	if s.Publisher != nil {
		if err := s.Publisher.PublishPredictionCreated(r.Context(), created); err != nil {
			s.Log.Warn("publish prediction_created", zap.Error(err))
		}
	}
	if s.Feed != nil {
		if err := s.Feed.PublishPredictionCreated(r.Context(), created); err != nil {
			s.Log.Warn("ws feed publish", zap.Error(err))
		}
	}

	writeJSON(w, http.StatusOK, dto.CreatePredictionResponse{Success: true, PredictionID: id})
}

func (s *Server) placeBet(w http.ResponseWriter, r *http.Request) {
	var req dto.PlaceBetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, dto.PlaceBetResponse{Error: "bad json"})
		return
	}

	if req.PredictionID <= 0 {
		writeJSON(w, http.StatusBadRequest, dto.PlaceBetResponse{Error: "predictionId is required"})
		return
	}
	if req.Amount <= 0 {
		writeJSON(w, http.StatusBadRequest, dto.PlaceBetResponse{Error: "amount must be positive"})
		return
	}
	if req.WalletAddress == "" {
		writeJSON(w, http.StatusBadRequest, dto.PlaceBetResponse{Error: "walletAddress is required"})
		return
	}

	// integridade referencial checada antes da liquidação: taxa não é
	// cobrada apontando pra previsão inexistente
	exists, err := s.Repo.PredictionExists(r.Context(), req.PredictionID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, dto.PlaceBetResponse{Error: "store error"})
		return
	}
	if !exists {
		writeJSON(w, http.StatusNotFound, dto.PlaceBetResponse{Error: "prediction not found"})
		return
	}

	amountNano := settlement.NanoFromTON(req.Amount)

	// custodial: só a taxa é movida; client-paid: o pagamento precisa cobrir
	// stake + taxa
	var claim settlement.Claim
	if s.ClientPaid {
		if req.TxHash == "" {
			writeJSON(w, http.StatusBadRequest, dto.PlaceBetResponse{Error: "txHash is required"})
			return
		}
		claim = settlement.VerificationClaim(req.TxHash, amountNano+settlement.PlaceBetFeeNano)
	} else {
		claim = settlement.CustodialClaim(s.FeeWallet, settlement.PlaceBetFeeNano)
	}

	res, err := s.Engine.Settle(r.Context(), claim)
	if err != nil {
		s.Log.Warn("settlement unavailable", zap.Error(err))
		s.Metrics.rejected("ledger_unavailable")
		writeJSON(w, http.StatusBadGateway, dto.PlaceBetResponse{Error: "ledger unavailable"})
		return
	}
	if !res.Accepted {
		s.Metrics.rejected("payment_rejected")
		writeJSON(w, http.StatusPaymentRequired, dto.PlaceBetResponse{Error: res.Reason})
		return
	}
	s.Metrics.accepted()

	betID, err := s.Repo.InsertBet(r.Context(), req.PredictionID, amountNano, req.WalletAddress, res.Proof)
	if err != nil {
		s.reportOrphan(r.Context(), "bet", req.WalletAddress, res.Proof, amountNano+settlement.PlaceBetFeeNano, err)
		writeJSON(w, http.StatusInternalServerError, dto.PlaceBetResponse{Error: "store error"})
		return
	}

	if s.Publisher != nil {
		if err := s.Publisher.PublishBetPlaced(r.Context(), events.BetPlaced{
			BetID:         betID,
			PredictionID:  req.PredictionID,
			AmountNano:    amountNano,
			WalletAddress: req.WalletAddress,
			Proof:         res.Proof,
		}); err != nil {
			s.Log.Warn("publish bet_placed", zap.Error(err))
		}
	}

	writeJSON(w, http.StatusOK, dto.PlaceBetResponse{Success: true})
}

func (s *Server) listPredictions(w http.ResponseWriter, r *http.Request) {
	preds, err := s.Repo.ListPredictions(r.Context())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, preds)
}

func (s *Server) getBalance(w http.ResponseWriter, r *http.Request) {
	addr := r.URL.Query().Get("address")
	if addr == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "address required"})
		return
	}

	if s.BalanceCache != nil {
		if nano, ok, err := s.BalanceCache.Get(r.Context(), addr); err == nil && ok {
			writeJSON(w, http.StatusOK, dto.BalanceResponse{
				Address:     addr,
				BalanceNano: nano,
				Balance:     settlement.TONFromNano(nano),
			})
			return
		}
	}

	nano, err := s.Balances.GetAddressBalance(r.Context(), addr)
	if err != nil {
		s.Log.Warn("balance lookup", zap.String("address", addr), zap.Error(err))
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": "ledger unavailable"})
		return
	}

	if s.BalanceCache != nil {
		_ = s.BalanceCache.Set(r.Context(), addr, nano, balanceCacheTTL)
	}

	writeJSON(w, http.StatusOK, dto.BalanceResponse{
		Address:     addr,
		BalanceNano: nano,
		Balance:     settlement.TONFromNano(nano),
	})
}

// reportOrphan trata o caso perigoso: taxa liquidada e escrita falhou. O valor
// já se moveu sem registro; loga a divergência e publica o evento pro
// reconciliation-worker guardar.
func (s *Server) reportOrphan(ctx context.Context, kind, walletAddress, proof string, amountNano int64, cause error) {
	s.Metrics.orphaned()
	s.Log.Error("payment settled but record not persisted",
		zap.String("kind", kind),
		zap.String("wallet_address", walletAddress),
		zap.String("proof", proof),
		zap.Int64("amount_nano", amountNano),
		zap.Error(cause),
	)

	if s.Publisher == nil {
		return
	}
	// request pode já ter sido cancelado; usa deadline própria
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
	defer cancel()
	if err := s.Publisher.PublishPaymentOrphaned(pubCtx, events.PaymentOrphaned{
		Kind:          kind,
		WalletAddress: walletAddress,
		Proof:         proof,
		AmountNano:    amountNano,
		Reason:        cause.Error(),
	}); err != nil {
		s.Log.Error("publish payment_orphaned", zap.Error(err))
	}
}

// buildClaim monta a claim de criação conforme a estratégia configurada
func (s *Server) buildClaim(txHash string, feeNano int64) (settlement.Claim, string) {
	if s.ClientPaid {
		if txHash == "" {
			return settlement.Claim{}, "txHash is required"
		}
		return settlement.VerificationClaim(txHash, feeNano), ""
	}
	return settlement.CustodialClaim(s.FeeWallet, feeNano), ""
}

// writeJSON serializa e envia resposta JSON
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
