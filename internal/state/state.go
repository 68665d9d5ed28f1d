package state

import (
	"bytes"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/gagliardetto/solana-go"
)

// Account is a ledger account: a lamport balance plus an opaque data buffer
// owned by exactly one program.
type Account struct {
	Owner      solana.PublicKey `json:"owner"`
	Lamports   uint64           `json:"lamports"`
	Data       []byte           `json:"data,omitempty"`
	Executable bool             `json:"executable,omitempty"`
}

func (a *Account) Clone() *Account {
	if a == nil {
		return nil
	}
	out := *a
	if a.Data != nil {
		out.Data = append([]byte(nil), a.Data...)
	}
	return &out
}

// IsEmpty reports whether the account has never been funded or allocated.
func (a *Account) IsEmpty() bool {
	return a == nil || (a.Lamports == 0 && len(a.Data) == 0 && !a.Executable)
}

type State struct {
	Height int64 `json:"height"`

	Accounts map[solana.PublicKey]*Account `json:"accounts"`
	// fee payer -> last accepted message nonce, for replay protection
	NonceMax map[solana.PublicKey]uint64 `json:"nonceMax,omitempty"`
}

func NewState() *State {
	return &State{
		Height:   0,
		Accounts: map[solana.PublicKey]*Account{},
		NonceMax: map[solana.PublicKey]uint64{},
	}
}

// Clone returns a deep copy of state suitable for staged tx execution.
func (s *State) Clone() (*State, error) {
	if s == nil {
		return nil, fmt.Errorf("state is nil")
	}
	out := &State{
		Height:   s.Height,
		Accounts: make(map[solana.PublicKey]*Account, len(s.Accounts)),
		NonceMax: make(map[solana.PublicKey]uint64, len(s.NonceMax)),
	}
	for k, v := range s.Accounts {
		if v == nil {
			continue
		}
		out.Accounts[k] = v.Clone()
	}
	for k, v := range s.NonceMax {
		out.NonceMax[k] = v
	}
	return out, nil
}

// Account returns a copy of the account stored at key. Unknown keys read as
// an empty account owned by the system program.
func (s *State) Account(key solana.PublicKey) *Account {
	if a, ok := s.Accounts[key]; ok && a != nil {
		return a.Clone()
	}
	return &Account{Owner: solana.SystemProgramID}
}

// SetAccount stores a copy of a. Empty system-owned accounts are pruned so the
// app hash does not depend on which zero accounts were touched.
func (s *State) SetAccount(key solana.PublicKey, a *Account) {
	if a == nil || (a.IsEmpty() && a.Owner.Equals(solana.SystemProgramID)) {
		delete(s.Accounts, key)
		return
	}
	s.Accounts[key] = a.Clone()
}

func (s *State) Balance(key solana.PublicKey) uint64 {
	if a, ok := s.Accounts[key]; ok && a != nil {
		return a.Lamports
	}
	return 0
}

func (s *State) Credit(key solana.PublicKey, amount uint64) error {
	a := s.Account(key)
	if a.Lamports > ^uint64(0)-amount {
		return fmt.Errorf("balance overflow: have=%d add=%d", a.Lamports, amount)
	}
	a.Lamports += amount
	s.SetAccount(key, a)
	return nil
}

func (s *State) AppHash() []byte {
	// encoding/json orders map keys itself, but the key text form is base58,
	// so normalize into a slice sorted by raw key bytes.
	type accountKV struct {
		Key     string   `json:"key"`
		Account *Account `json:"account"`
	}
	type nonceKV struct {
		Payer string `json:"payer"`
		Nonce uint64 `json:"nonce"`
	}

	keys := make([]solana.PublicKey, 0, len(s.Accounts))
	for k := range s.Accounts {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return bytes.Compare(keys[i][:], keys[j][:]) < 0 })
	accounts := make([]accountKV, 0, len(keys))
	for _, k := range keys {
		accounts = append(accounts, accountKV{Key: k.String(), Account: s.Accounts[k]})
	}

	payers := make([]solana.PublicKey, 0, len(s.NonceMax))
	for k := range s.NonceMax {
		payers = append(payers, k)
	}
	sort.Slice(payers, func(i, j int) bool { return bytes.Compare(payers[i][:], payers[j][:]) < 0 })
	nonces := make([]nonceKV, 0, len(payers))
	for _, k := range payers {
		nonces = append(nonces, nonceKV{Payer: k.String(), Nonce: s.NonceMax[k]})
	}

	normalized := struct {
		Height   int64       `json:"height"`
		Accounts []accountKV `json:"accounts"`
		NonceMax []nonceKV   `json:"nonceMax,omitempty"`
	}{
		Height:   s.Height,
		Accounts: accounts,
		NonceMax: nonces,
	}

	b, _ := json.Marshal(normalized)
	sum := sha256.Sum256(b)
	return sum[:]
}
