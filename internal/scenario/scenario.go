// Package scenario drives an in-process chain through one honest lottery
// round followed by replays of known attacks, each of which must be
// rejected with a specific error.
package scenario

import (
	"context"
	"fmt"
	"time"

	errorsmod "cosmossdk.io/errors"
	abci "github.com/cometbft/cometbft/abci/types"
	"github.com/gagliardetto/solana-go"

	"lottochain/internal/app"
	"lottochain/internal/codec"
	"lottochain/internal/draw"
	"lottochain/internal/ledger"
	"lottochain/internal/lottery"
)

const (
	CreationTime = uint64(0x17d9ef580d9)
	TicketPrice  = uint64(0x00a24b02)
	Round        = uint32(0xfe)
	Funding      = uint64(10_000_000_000)
)

// Entropy is the randomness vector the administrator posts.
var Entropy = [draw.Size]uint64{0x4e6df66e, 0x24616e62, 0x2891d584, 0x0022a319, 0x5a8221e3, 0x29a178e5}

// WinnerCounts declares a single six-number winner.
var WinnerCounts = [lottery.Tiers]uint8{0, 0, 0, 1}

// Step is one transaction and the result it must produce. An empty
// WantCodespace means the transaction must succeed.
type Step struct {
	Name          string
	Tx            []byte
	WantCodespace string
	WantCode      uint32
}

type StepResult struct {
	Name      string
	Height    int64
	Codespace string
	Code      uint32
	Log       string
	Passed    bool
}

type Report struct {
	Steps []StepResult
	// Prize is the amount the winning ticket received.
	Prize uint64
}

func (r *Report) Passed() bool {
	for _, s := range r.Steps {
		if !s.Passed {
			return false
		}
	}
	return len(r.Steps) > 0
}

func key(label string) solana.PrivateKey { return codec.KeyFromLabel("scenario/" + label) }

func pub(label string) solana.PublicKey { return key(label).PublicKey() }

// Genesis funds the scenario's administrator and player.
func Genesis() app.GenesisState {
	return app.GenesisState{Accounts: []app.GenesisAccount{
		{PubKey: pub("owner"), Lamports: Funding},
		{PubKey: pub("user"), Lamports: Funding},
	}}
}

// WinningNumbers are the balls drawn from Entropy, so the scenario ticket
// wins the top tier.
func WinningNumbers(maxNumber uint8) ([draw.Size]uint8, error) {
	return draw.Derive(CreationTime, Entropy).Balls(maxNumber)
}

type builder struct {
	nonces map[solana.PublicKey]uint64
}

func (b *builder) tx(signers []string, ixs ...ledger.Instruction) ([]byte, error) {
	keys := make([]solana.PrivateKey, 0, len(signers))
	for _, s := range signers {
		keys = append(keys, key(s))
	}
	payer := keys[0].PublicKey()
	b.nonces[payer]++
	return codec.EncodeTx(codec.Message{
		Nonce:        b.nonces[payer],
		FeePayer:     payer,
		Instructions: ixs,
	}, keys...)
}

// Steps builds the scenario transactions for a chain running programID.
func Steps(programID solana.PublicKey, rent ledger.Rent, params lottery.Params) ([]Step, error) {
	numbers, err := WinningNumbers(params.MaxNumber)
	if err != nil {
		return nil, err
	}
	b := &builder{nonces: map[solana.PublicKey]uint64{}}
	createArgs := lottery.CreateGame{CreationTime: CreationTime, TicketPrice: TicketPrice, Round: Round}
	nextRound := createArgs
	nextRound.Round++
	nextRound.CreationTime++

	type plan struct {
		name    string
		signers []string
		ixs     []ledger.Instruction
		want    *errorsmod.Error
	}
	var (
		owner, user        = pub("owner"), pub("user")
		game, game2, game3 = pub("game"), pub("game2"), pub("game3")
		ticket, ticket2    = pub("ticket"), pub("ticket2")
	)
	createFirst, err := codec.CreateGame(programID, game, owner, createArgs)
	if err != nil {
		return nil, err
	}
	createSecond, err := codec.CreateGame(programID, game2, owner, nextRound)
	if err != nil {
		return nil, err
	}
	// The user names the owner without the owner's signature.
	createUnsigned, err := codec.CreateGame(programID, game3, owner, createArgs)
	if err != nil {
		return nil, err
	}
	createUnsigned.Accounts[1].IsSigner = false

	plans := []plan{
		{
			name:    "create game",
			signers: []string{"owner", "game"},
			ixs: []ledger.Instruction{
				codec.Allocate(rent, programID, owner, game, lottery.GameSize),
				createFirst,
			},
		},
		{
			name:    "buy ticket",
			signers: []string{"user", "ticket"},
			ixs: []ledger.Instruction{
				codec.Allocate(rent, programID, user, ticket, lottery.TicketSize),
				codec.BuyTicket(programID, user, ticket, game, owner, numbers),
			},
		},
		{
			name:    "post randomness",
			signers: []string{"owner"},
			ixs:     []ledger.Instruction{codec.PostRandomness(programID, game, owner, Entropy)},
		},
		{
			name:    "set winner counts",
			signers: []string{"owner"},
			ixs:     []ledger.Instruction{codec.SetWinnerCounts(programID, game, owner, WinnerCounts)},
		},
		{
			name:    "pay winner",
			signers: []string{"owner"},
			ixs:     []ledger.Instruction{codec.PayWinner(programID, game, owner, user, ticket)},
		},
		{
			name:    "create second game",
			signers: []string{"owner", "game2"},
			ixs: []ledger.Instruction{
				codec.Allocate(rent, programID, owner, game2, lottery.GameSize),
				createSecond,
			},
		},
		{
			name:    "ticket proceeds diverted to buyer",
			signers: []string{"user", "ticket2"},
			ixs: []ledger.Instruction{
				codec.Allocate(rent, programID, user, ticket2, lottery.TicketSize),
				codec.BuyTicket(programID, user, ticket2, game2, user, numbers),
			},
			want: lottery.ErrWrongOwner,
		},
		{
			name:    "bound ticket resubmitted as new",
			signers: []string{"user", "ticket"},
			ixs:     []ledger.Instruction{codec.BuyTicket(programID, user, ticket, game2, owner, numbers)},
			want:    lottery.ErrAlreadyInitialized,
		},
		{
			name:    "winner counts set by non-owner",
			signers: []string{"user"},
			ixs: []ledger.Instruction{
				codec.SetWinnerCounts(programID, game2, user, [lottery.Tiers]uint8{0xff, 0xff, 0xff, 0xff}),
			},
			want: lottery.ErrWrongOwner,
		},
		{
			name:    "game created for an owner who did not sign",
			signers: []string{"user", "game3"},
			ixs: []ledger.Instruction{
				codec.Allocate(rent, programID, user, game3, lottery.GameSize),
				createUnsigned,
			},
			want: lottery.ErrNotSigner,
		},
		{
			name:    "close game",
			signers: []string{"owner"},
			ixs:     []ledger.Instruction{codec.CloseGame(programID, game, owner)},
		},
	}

	steps := make([]Step, 0, len(plans))
	for _, p := range plans {
		tx, err := b.tx(p.signers, p.ixs...)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", p.name, err)
		}
		step := Step{Name: p.name, Tx: tx}
		if p.want != nil {
			step.WantCodespace, step.WantCode = p.want.Codespace(), p.want.ABCICode()
		}
		steps = append(steps, step)
	}
	return steps, nil
}

// Run applies genesis and then delivers every step in its own block.
func Run(ctx context.Context, a *app.LottoApp, params lottery.Params, start time.Time) (*Report, error) {
	genesis, err := app.MarshalGenesis(Genesis())
	if err != nil {
		return nil, err
	}
	if _, err := a.InitChain(ctx, &abci.InitChainRequest{ChainId: "lottochain-scenario", AppStateBytes: genesis}); err != nil {
		return nil, fmt.Errorf("init chain: %w", err)
	}
	steps, err := Steps(a.ProgramID(), a.Rent(), params)
	if err != nil {
		return nil, err
	}

	info, err := a.Info(ctx, &abci.InfoRequest{})
	if err != nil {
		return nil, err
	}
	height := info.LastBlockHeight
	report := &Report{}
	for i, s := range steps {
		height++
		fin, err := a.FinalizeBlock(ctx, &abci.FinalizeBlockRequest{
			Height: height,
			Time:   start.Add(time.Duration(i) * time.Second),
			Txs:    [][]byte{s.Tx},
		})
		if err != nil {
			return nil, fmt.Errorf("finalize %q: %w", s.Name, err)
		}
		if _, err := a.Commit(ctx, &abci.CommitRequest{}); err != nil {
			return nil, fmt.Errorf("commit %q: %w", s.Name, err)
		}
		res := fin.TxResults[0]
		report.Steps = append(report.Steps, StepResult{
			Name:      s.Name,
			Height:    height,
			Codespace: res.Codespace,
			Code:      res.Code,
			Log:       res.Log,
			Passed:    res.Codespace == s.WantCodespace && res.Code == s.WantCode,
		})
		for _, ev := range res.Events {
			if ev.Type != lottery.EventWinnerPaid {
				continue
			}
			for _, at := range ev.Attributes {
				if at.Key == "amount" {
					if _, err := fmt.Sscan(at.Value, &report.Prize); err != nil {
						return nil, fmt.Errorf("parse prize %q: %w", at.Value, err)
					}
				}
			}
		}
	}
	return report, nil
}
