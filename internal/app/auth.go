package app

import (
	"crypto/ed25519"

	"github.com/gagliardetto/solana-go"

	"lottochain/internal/codec"
	"lottochain/internal/ledger"
)

// verifyTx checks every envelope signature over the raw message and returns
// the transaction with its verified signer set. Only keys proven here may act
// as signers during execution.
func verifyTx(env codec.TxEnvelope, msg codec.Message) (ledger.Transaction, error) {
	signBytes := codec.SignBytes(env.Message)
	signers := make(map[solana.PublicKey]bool, len(env.Signatures))
	for i, s := range env.Signatures {
		if len(s.Signature) != ed25519.SignatureSize {
			return ledger.Transaction{}, ledger.ErrInvalidSignature.Wrapf(
				"signature %d: length %d, want %d", i, len(s.Signature), ed25519.SignatureSize)
		}
		var sig solana.Signature
		copy(sig[:], s.Signature)
		if !sig.Verify(s.PubKey, signBytes) {
			return ledger.Transaction{}, ledger.ErrInvalidSignature.Wrapf("signature %d by %s", i, s.PubKey)
		}
		signers[s.PubKey] = true
	}
	if !signers[msg.FeePayer] {
		return ledger.Transaction{}, ledger.ErrMissingSignature.Wrapf("fee payer %s", msg.FeePayer)
	}
	return ledger.Transaction{
		FeePayer:     msg.FeePayer,
		Nonce:        msg.Nonce,
		Instructions: msg.Instructions,
		Signers:      signers,
	}, nil
}
