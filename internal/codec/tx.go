package codec

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"

	"github.com/gagliardetto/solana-go"

	"lottochain/internal/ledger"
)

const txAuthDomainV0 = "lottochain/tx/v0"

// Message is the signed body of a transaction.
type Message struct {
	// Nonce must increase per fee payer; replays are rejected.
	Nonce        uint64               `json:"nonce"`
	FeePayer     solana.PublicKey     `json:"feePayer"`
	Instructions []ledger.Instruction `json:"instructions"`
}

type TxSignature struct {
	PubKey    solana.PublicKey `json:"pubkey"`
	Signature []byte           `json:"signature"` // base64 (64 bytes)
}

// TxEnvelope is the v0 transaction container. CometBFT transactions are opaque
// bytes; the message is kept raw so signatures cover exactly what was sent.
type TxEnvelope struct {
	Message    json.RawMessage `json:"message"`
	Signatures []TxSignature   `json:"signatures"`
}

// SignBytes is what every signer signs:
//
//	DOMAIN || 0x00 || sha256(message)
func SignBytes(message []byte) []byte {
	sum := sha256.Sum256(message)
	out := make([]byte, 0, len(txAuthDomainV0)+1+sha256.Size)
	out = append(out, []byte(txAuthDomainV0)...)
	out = append(out, 0)
	out = append(out, sum[:]...)
	return out
}

func DecodeTxEnvelope(txBytes []byte) (TxEnvelope, Message, error) {
	var env TxEnvelope
	if err := json.Unmarshal(txBytes, &env); err != nil {
		return TxEnvelope{}, Message{}, fmt.Errorf("invalid tx json: %w", err)
	}
	if len(env.Message) == 0 {
		return TxEnvelope{}, Message{}, fmt.Errorf("missing tx.message")
	}
	if len(env.Signatures) == 0 {
		return TxEnvelope{}, Message{}, fmt.Errorf("missing tx.signatures")
	}
	var msg Message
	if err := json.Unmarshal(env.Message, &msg); err != nil {
		return TxEnvelope{}, Message{}, fmt.Errorf("invalid tx.message: %w", err)
	}
	if msg.FeePayer.IsZero() {
		return TxEnvelope{}, Message{}, fmt.Errorf("missing tx.message.feePayer")
	}
	if len(msg.Instructions) == 0 {
		return TxEnvelope{}, Message{}, fmt.Errorf("tx.message has no instructions")
	}
	return env, msg, nil
}

// EncodeTx marshals msg and signs it with every key. The fee payer's key must
// be among them for the transaction to be accepted.
func EncodeTx(msg Message, keys ...solana.PrivateKey) ([]byte, error) {
	body, err := json.Marshal(msg)
	if err != nil {
		return nil, err
	}
	signBytes := SignBytes(body)
	env := TxEnvelope{Message: body}
	for _, k := range keys {
		sig, err := k.Sign(signBytes)
		if err != nil {
			return nil, fmt.Errorf("sign as %s: %w", k.PublicKey(), err)
		}
		env.Signatures = append(env.Signatures, TxSignature{PubKey: k.PublicKey(), Signature: sig[:]})
	}
	return json.Marshal(env)
}
