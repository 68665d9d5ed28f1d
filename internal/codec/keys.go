package codec

import (
	"crypto/ed25519"
	"crypto/sha256"

	"github.com/gagliardetto/solana-go"
)

// KeyFromLabel derives a deterministic keypair from a label. Only for local
// demos and tests; anyone who knows the label holds the key.
func KeyFromLabel(label string) solana.PrivateKey {
	seed := sha256.Sum256([]byte("lottochain/key/" + label))
	return solana.PrivateKey(ed25519.NewKeyFromSeed(seed[:]))
}
