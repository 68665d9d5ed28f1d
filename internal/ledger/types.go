package ledger

import (
	"github.com/gagliardetto/solana-go"

	"lottochain/internal/state"
)

// AccountMeta names one account slot of an instruction.
type AccountMeta struct {
	PublicKey  solana.PublicKey `json:"pubkey"`
	IsSigner   bool             `json:"isSigner"`
	IsWritable bool             `json:"isWritable"`
}

func Meta(key solana.PublicKey, signer, writable bool) AccountMeta {
	return AccountMeta{PublicKey: key, IsSigner: signer, IsWritable: writable}
}

type Instruction struct {
	ProgramID solana.PublicKey `json:"programId"`
	Accounts  []AccountMeta    `json:"accounts"`
	Data      []byte           `json:"data"`
}

// Transaction is a decoded, signature-verified transaction. Signers holds the
// keys whose signatures over the message were checked by the caller.
type Transaction struct {
	FeePayer     solana.PublicKey
	Nonce        uint64
	Instructions []Instruction
	Signers      map[solana.PublicKey]bool
}

// Clock is the chain-supplied time context of the executing block.
type Clock struct {
	Height        int64
	UnixTimestamp int64
}

// AccountInfo is the view a program gets of one instruction account slot.
// Slots naming the same key share the same underlying Account.
type AccountInfo struct {
	Key        solana.PublicKey
	IsSigner   bool
	IsWritable bool

	*state.Account
}

type Attribute struct {
	Key   string
	Value string
}

type Event struct {
	Type       string
	Attributes []Attribute
}

// Program is an on-ledger program invoked by instructions addressed to ID().
type Program interface {
	ID() solana.PublicKey
	Process(ctx *InvokeContext, accounts []*AccountInfo, data []byte) error
}
