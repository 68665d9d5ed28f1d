package app

import (
	"encoding/json"
	"fmt"

	"github.com/gagliardetto/solana-go"
)

type GenesisAccount struct {
	PubKey   solana.PublicKey `json:"pubkey"`
	Lamports uint64           `json:"lamports"`
}

// GenesisState is the app_state section of the CometBFT genesis file.
type GenesisState struct {
	Accounts []GenesisAccount `json:"accounts"`
}

func parseGenesis(raw []byte) (GenesisState, error) {
	var gen GenesisState
	if len(raw) == 0 {
		return gen, nil
	}
	if err := json.Unmarshal(raw, &gen); err != nil {
		return GenesisState{}, fmt.Errorf("invalid app_state: %w", err)
	}
	seen := make(map[solana.PublicKey]bool, len(gen.Accounts))
	for i, acct := range gen.Accounts {
		if acct.PubKey.IsZero() {
			return GenesisState{}, fmt.Errorf("app_state.accounts[%d]: missing pubkey", i)
		}
		if seen[acct.PubKey] {
			return GenesisState{}, fmt.Errorf("app_state.accounts[%d]: duplicate pubkey %s", i, acct.PubKey)
		}
		seen[acct.PubKey] = true
	}
	return gen, nil
}

// MarshalGenesis renders gen as the app_state bytes InitChain expects.
func MarshalGenesis(gen GenesisState) ([]byte, error) {
	return json.Marshal(gen)
}
