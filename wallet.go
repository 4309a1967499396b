package fillergo

import (
	"os"
	"strings"

	"github.com/gagliardetto/solana-go"
	"github.com/go-errors/errors"
)

type Wallet struct {
	PrivateKey solana.PrivateKey
}

func (p *Wallet) GetPublicKey() solana.PublicKey {
	return p.PrivateKey.PublicKey()
}

func (p *Wallet) GetPrivateKey() solana.PrivateKey {
	return p.PrivateKey
}

func (p *Wallet) GetWallet() solana.Wallet {
	return solana.Wallet{PrivateKey: p.PrivateKey}
}

func (p *Wallet) SignTransaction(tx *solana.Transaction) *solana.Transaction {
	_, _ = tx.PartialSign(func(key solana.PublicKey) *solana.PrivateKey {
		if p.PrivateKey.PublicKey().Equals(key) {
			return &p.PrivateKey
		}
		return nil
	})
	return tx
}

// LoadWallet accepts either a base58 encoded private key or a path to a
// json keypair file.
func LoadWallet(keyOrPath string) (*Wallet, error) {
	if strings.HasSuffix(keyOrPath, ".json") {
		privateKey, err := solana.PrivateKeyFromSolanaKeygenFile(keyOrPath)
		if err != nil {
			return nil, errors.Wrap(err, 0)
		}
		return &Wallet{PrivateKey: privateKey}, nil
	}
	privateKey, err := solana.PrivateKeyFromBase58(keyOrPath)
	if err != nil {
		return nil, errors.Wrap(err, 0)
	}
	return &Wallet{PrivateKey: privateKey}, nil
}

// LoadWalletFromEnv reads FILLER_PRIVATE_KEY.
func LoadWalletFromEnv() (*Wallet, error) {
	key := os.Getenv("FILLER_PRIVATE_KEY")
	if key == "" {
		return nil, errors.New("FILLER_PRIVATE_KEY must be set")
	}
	return LoadWallet(key)
}
