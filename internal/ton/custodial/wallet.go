package custodial

import (
	"context"
	"fmt"
	"strings"

	"github.com/xssnick/tonutils-go/address"
	"github.com/xssnick/tonutils-go/liteclient"
	"github.com/xssnick/tonutils-go/tlb"
	"github.com/xssnick/tonutils-go/ton"
	"github.com/xssnick/tonutils-go/ton/wallet"
)

const transferComment = "Fee for prediction market"

// Wallet é a carteira custodial do serviço na rede TON: deriva a chave da
// seed phrase (contrato V4R2) e envia as taxas assinando localmente.
//
// A serialização dos envios (um seqno por vez) é responsabilidade da
// estratégia custodial do settlement engine; aqui o envio é um ciclo único
// fetch-seqno/transfer.
type Wallet struct {
	api ton.APIClientWrapped
	w   *wallet.Wallet
}

// Connect abre o pool de liteservers a partir da global config e deriva a
// carteira custodial da seed phrase.
func Connect(ctx context.Context, configURL, mnemonic string) (*Wallet, error) {
	if mnemonic == "" {
		return nil, fmt.Errorf("custodial wallet: empty mnemonic")
	}

	pool := liteclient.NewConnectionPool()
	if err := pool.AddConnectionsFromConfigUrl(ctx, configURL); err != nil {
		return nil, fmt.Errorf("custodial wallet: liteservers: %w", err)
	}
	api := ton.NewAPIClient(pool).WithRetry()

	w, err := wallet.FromSeed(api, strings.Split(mnemonic, " "), wallet.V4R2)
	if err != nil {
		return nil, fmt.Errorf("custodial wallet: from seed: %w", err)
	}

	return &Wallet{api: api, w: w}, nil
}

// Address retorna o endereço da carteira custodial.
func (cw *Wallet) Address() string {
	return cw.w.WalletAddress().String()
}

// SendFee transfere amountNano para dest e devolve o seqno usado como prova
// anti-replay da conta custodial.
func (cw *Wallet) SendFee(ctx context.Context, dest string, amountNano int64) (uint32, error) {
	to, err := address.ParseAddr(dest)
	if err != nil {
		return 0, fmt.Errorf("parse destination %q: %w", dest, err)
	}

	seqno, err := cw.currentSeqno(ctx)
	if err != nil {
		return 0, err
	}

	if err := cw.w.Transfer(ctx, to, tlb.FromNanoTONU(uint64(amountNano)), transferComment); err != nil {
		return 0, fmt.Errorf("transfer: %w", err)
	}

	return seqno, nil
}

// currentSeqno lê o contador da conta via get-method "seqno"
func (cw *Wallet) currentSeqno(ctx context.Context) (uint32, error) {
	block, err := cw.api.CurrentMasterchainInfo(ctx)
	if err != nil {
		return 0, fmt.Errorf("masterchain info: %w", err)
	}

	res, err := cw.api.RunGetMethod(ctx, block, cw.w.WalletAddress(), "seqno")
	if err != nil {
		return 0, fmt.Errorf("run seqno: %w", err)
	}

	v, err := res.Int(0)
	if err != nil {
		return 0, fmt.Errorf("seqno result: %w", err)
	}
	return uint32(v.Uint64()), nil
}
