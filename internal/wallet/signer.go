package wallet

import (
	"context"
	"errors"

	"eventcontrol/internal/settlement"
	solanapkg "eventcontrol/pkg/solana"

	"github.com/blocto/solana-go-sdk/types"
	"github.com/gagliardetto/solana-go"
)

var errNotSignable = errors.New("signer has no local key material")

// Keypair is a decrypted treasury credential able to sign transfers.
type Keypair struct {
	account *types.Account
}

func (k *Keypair) Address() string {
	return k.account.PublicKey.ToBase58()
}

func (k *Keypair) privateKey() solana.PrivateKey {
	return solana.PrivateKey(k.account.PrivateKey)
}

// Rail adapts the RPC client to the settlement engine's payment interface.
type Rail struct {
	client *solanapkg.Client
}

func NewRail(client *solanapkg.Client) *Rail {
	return &Rail{client: client}
}

// Send signs and submits one native transfer. A signer that is not a locally
// held keypair cannot authorize anything and fails fast.
func (r *Rail) Send(ctx context.Context, signer settlement.Signer, recipient string, amount float64) settlement.TransferResult {
	kp, ok := signer.(*Keypair)
	if !ok {
		return settlement.TransferResult{Err: errNotSignable}
	}
	sig, err := r.client.TransferSOL(ctx, kp.privateKey(), recipient, amount)
	if err != nil {
		return settlement.TransferResult{Err: err}
	}
	return settlement.TransferResult{Success: true, Signature: sig}
}

func (r *Rail) Balance(ctx context.Context, address string) (float64, error) {
	return r.client.Balance(ctx, address)
}
