package solana

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/gagliardetto/solana-go/rpc"
	log "github.com/sirupsen/logrus"
)

const lamportsPerSOL = 1_000_000_000

// Client submits native transfers against one RPC endpoint. All submissions
// share a rate limiter so settlement bursts stay under the endpoint's quota.
type Client struct {
	rpc     *rpc.Client
	limiter *rate.Limiter
}

// NewClient connects to the given RPC endpoint, allowing at most rps
// submissions per second.
func NewClient(endpoint string, rps int) *Client {
	if rps <= 0 {
		rps = 5
	}
	return &Client{
		rpc:     rpc.New(endpoint),
		limiter: rate.NewLimiter(rate.Limit(rps), rps),
	}
}

// TransferSOL sends amountSOL from the key's account to the recipient and
// returns the transaction signature.
//
// The transaction is submitted exactly once. A submission error can be
// ambiguous: the transaction may already be gossiped even though the RPC
// call failed, and resubmitting with a fresh blockhash would produce a
// second independently valid transfer to the same recipient. Only the
// read-only blockhash fetch is retried.
func (c *Client) TransferSOL(ctx context.Context, key solana.PrivateKey, recipient string, amountSOL float64) (string, error) {
	toPubkey, err := solana.PublicKeyFromBase58(recipient)
	if err != nil {
		return "", fmt.Errorf("invalid recipient address: %w", err)
	}
	lamports := uint64(amountSOL * lamportsPerSOL)
	if lamports == 0 {
		return "", fmt.Errorf("transfer amount rounds to zero lamports")
	}

	fromPubkey := key.PublicKey()

	if err := c.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limiter wait failed: %w", err)
	}

	bh, err := c.latestBlockhash(ctx)
	if err != nil {
		return "", err
	}

	ix := system.NewTransferInstruction(lamports, fromPubkey, toPubkey).Build()
	tx, err := solana.NewTransaction([]solana.Instruction{ix}, bh.Value.Blockhash, solana.TransactionPayer(fromPubkey))
	if err != nil {
		return "", err
	}
	if _, err := tx.Sign(func(pub solana.PublicKey) *solana.PrivateKey {
		if pub.Equals(fromPubkey) {
			return &key
		}
		return nil
	}); err != nil {
		return "", err
	}

	sig, err := c.rpc.SendTransaction(ctx, tx)
	if err != nil {
		return "", fmt.Errorf("transfer submission failed: %w", err)
	}
	return sig.String(), nil
}

// latestBlockhash retries the blockhash fetch with a short backoff. Nothing
// has been submitted at this point, so retrying is safe.
func (c *Client) latestBlockhash(ctx context.Context) (*rpc.GetLatestBlockhashResult, error) {
	maxRetries := 3
	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		bh, err := c.rpc.GetLatestBlockhash(ctx, rpc.CommitmentFinalized)
		if err == nil {
			return bh, nil
		}
		lastErr = err

		if attempt < maxRetries {
			time.Sleep(time.Duration(attempt+1) * 100 * time.Millisecond)
			log.Warnf("Blockhash fetch failed, attempt %d/%d, retrying... Error: %v",
				attempt+1, maxRetries, err)
		}
	}
	return nil, fmt.Errorf("blockhash fetch failed after %d attempts: %w", maxRetries+1, lastErr)
}

// Balance returns the account's native balance in SOL.
func (c *Client) Balance(ctx context.Context, address string) (float64, error) {
	pubkey, err := solana.PublicKeyFromBase58(address)
	if err != nil {
		return 0, fmt.Errorf("invalid address: %w", err)
	}
	res, err := c.rpc.GetBalance(ctx, pubkey, rpc.CommitmentFinalized)
	if err != nil {
		return 0, err
	}
	return float64(res.Value) / lamportsPerSOL, nil
}
