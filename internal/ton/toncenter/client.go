package toncenter

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/radieske/prediction-market-poc/internal/settlement"
)

// Client fala com uma API HTTP estilo toncenter (/api/v2). Usado pelo
// market-service para consulta de saldo e pela estratégia client-paid para
// resolver transações recebidas na carteira do serviço.
type Client struct {
	BaseURL string
	APIKey  string
	// Wallet é o endereço do serviço; transações são resolvidas no histórico
	// de entrada dessa conta.
	Wallet string
	HTTP   *http.Client
}

func New(baseURL, apiKey, wallet string) *Client {
	return &Client{
		BaseURL: baseURL,
		APIKey:  apiKey,
		Wallet:  wallet,
		HTTP:    &http.Client{Timeout: 5 * time.Second},
	}
}

// envelope padrão das respostas do toncenter
type apiResponse struct {
	OK     bool            `json:"ok"`
	Result json.RawMessage `json:"result"`
	Error  string          `json:"error,omitempty"`
}

type apiTransaction struct {
	TransactionID struct {
		Hash string `json:"hash"`
		LT   string `json:"lt"`
	} `json:"transaction_id"`
	UTime int64 `json:"utime"`
	InMsg struct {
		Value       string `json:"value"` // nanoTON, string decimal
		Destination string `json:"destination"`
		Source      string `json:"source"`
	} `json:"in_msg"`
}

// GetAddressBalance retorna o saldo em nanoTON de um endereço.
func (c *Client) GetAddressBalance(ctx context.Context, addr string) (int64, error) {
	q := url.Values{"address": {addr}}
	var raw json.RawMessage
	if err := c.get(ctx, "getAddressBalance", q, &raw); err != nil {
		return 0, err
	}

	// o result vem como string decimal ("123456789")
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return 0, fmt.Errorf("toncenter balance payload: %w", err)
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("toncenter balance %q: %w", s, err)
	}
	return n, nil
}

// ResolveTransaction procura uma transação de entrada na carteira do serviço
// pelo hash. Retorna nil quando não encontrada; transações devolvidas pela API
// já estão gravadas na chain, portanto finalizadas.
func (c *Client) ResolveTransaction(ctx context.Context, hash string) (*settlement.LedgerTx, error) {
	q := url.Values{
		"address": {c.Wallet},
		"hash":    {hash},
		"limit":   {"1"},
	}
	var raw json.RawMessage
	if err := c.get(ctx, "getTransactions", q, &raw); err != nil {
		return nil, err
	}

	var txs []apiTransaction
	if err := json.Unmarshal(raw, &txs); err != nil {
		return nil, fmt.Errorf("toncenter transactions payload: %w", err)
	}

	for _, tx := range txs {
		if tx.TransactionID.Hash != hash {
			continue
		}
		amount := int64(0)
		if tx.InMsg.Value != "" {
			v, err := strconv.ParseInt(tx.InMsg.Value, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("toncenter tx value %q: %w", tx.InMsg.Value, err)
			}
			amount = v
		}
		return &settlement.LedgerTx{
			Hash:        tx.TransactionID.Hash,
			AmountNano:  amount,
			Destination: tx.InMsg.Destination,
			Finalized:   tx.UTime > 0,
		}, nil
	}
	return nil, nil
}

// get executa uma chamada GET autenticada e desembrulha o envelope {ok,result}
func (c *Client) get(ctx context.Context, method string, q url.Values, result *json.RawMessage) error {
	u := c.BaseURL + "/" + method + "?" + q.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	if c.APIKey != "" {
		req.Header.Set("X-API-Key", c.APIKey)
	}

	res, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("toncenter %s: %w", method, err)
	}
	defer res.Body.Close()

	if res.StatusCode >= 500 {
		return fmt.Errorf("toncenter %s: http %d", method, res.StatusCode)
	}

	var env apiResponse
	if err := json.NewDecoder(res.Body).Decode(&env); err != nil {
		return fmt.Errorf("toncenter %s: decode: %w", method, err)
	}
	if !env.OK {
		return fmt.Errorf("toncenter %s: %s", method, env.Error)
	}

	*result = env.Result
	return nil
}
