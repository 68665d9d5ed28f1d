package app

import (
	"context"
	"encoding/json"
	"strings"

	abci "github.com/cometbft/cometbft/abci/types"
	"github.com/gagliardetto/solana-go"

	"lottochain/internal/draw"
	"lottochain/internal/lottery"
	"lottochain/internal/state"
)

type AccountView struct {
	PubKey solana.PublicKey `json:"pubkey"`
	*state.Account
}

type DrawView struct {
	Game  solana.PublicKey `json:"game"`
	Balls [draw.Size]uint8 `json:"balls"`
}

func (a *LottoApp) Query(_ context.Context, req *abci.QueryRequest) (*abci.QueryResponse, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	// Paths:
	// - /account/<pubkey>
	// - /game/<pubkey>
	// - /ticket/<pubkey>
	// - /draw/<game pubkey>
	// - /registry/<owner pubkey>
	path := strings.TrimSpace(req.Path)
	fail := func(msg string) (*abci.QueryResponse, error) {
		return &abci.QueryResponse{Code: 1, Log: msg, Height: a.st.Height}, nil
	}
	ok := func(v any) (*abci.QueryResponse, error) {
		b, err := json.Marshal(v)
		if err != nil {
			return fail(err.Error())
		}
		return &abci.QueryResponse{Code: 0, Value: b, Height: a.st.Height}, nil
	}

	kind, raw, found := strings.Cut(strings.TrimPrefix(path, "/"), "/")
	if !found {
		return fail("unknown query path")
	}
	key, err := solana.PublicKeyFromBase58(raw)
	if err != nil {
		return fail("invalid pubkey")
	}

	switch kind {
	case "account":
		return ok(AccountView{PubKey: key, Account: a.st.Account(key)})

	case "game", "draw":
		acct := a.st.Account(key)
		if !acct.Owner.Equals(a.program.ID()) {
			return fail("game not found")
		}
		g, err := lottery.DecodeGame(acct.Data)
		if err != nil {
			return fail("game not found")
		}
		if kind == "game" {
			return ok(g)
		}
		balls, err := a.program.Balls(g)
		if err != nil {
			return fail(err.Error())
		}
		return ok(DrawView{Game: key, Balls: balls})

	case "ticket":
		acct := a.st.Account(key)
		if !acct.Owner.Equals(a.program.ID()) {
			return fail("ticket not found")
		}
		t, err := lottery.DecodeTicket(acct.Data)
		if err != nil {
			return fail("ticket not found")
		}
		return ok(t)

	case "registry":
		addr, _, err := lottery.RegistryAddress(a.program.ID(), key)
		if err != nil {
			return fail(err.Error())
		}
		acct := a.st.Account(addr)
		if !acct.Owner.Equals(a.program.ID()) {
			return fail("registry not found")
		}
		r, err := lottery.DecodeRegistry(acct.Data)
		if err != nil {
			return fail("registry not found")
		}
		return ok(r)

	default:
		return fail("unknown query path")
	}
}
