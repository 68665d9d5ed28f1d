package lottery

import (
	"cosmossdk.io/log"
	"github.com/gagliardetto/solana-go"

	"lottochain/internal/draw"
	"lottochain/internal/ledger"
)

// DefaultProgramID is the address the lottery program is deployed at unless
// configured otherwise.
var DefaultProgramID = solana.MustPublicKeyFromBase58("5d15XQp2jYPxeQtkCWoYu84zWbbFiSoHsJK39KwH2jrf")

// Params are the program-wide game rules.
type Params struct {
	// MaxNumber is the largest number a ticket or ball may carry (1..MaxNumber).
	MaxNumber uint8 `mapstructure:"max_number" json:"maxNumber"`
	// MinMatches is the fewest matching numbers that win a prize.
	MinMatches uint8 `mapstructure:"min_matches" json:"minMatches"`
	// TierShareBps is each tier's share of the pot, indexed by matches-3.
	TierShareBps [Tiers]uint16 `mapstructure:"tier_share_bps" json:"tierShareBps"`
}

func DefaultParams() Params {
	return Params{
		MaxNumber:    45,
		MinMatches:   3,
		TierShareBps: [Tiers]uint16{1000, 1500, 2000, 5000},
	}
}

func (p Params) Validate() error {
	if p.MaxNumber < draw.MinMaxNumber {
		return ErrInvalidParams.Wrapf("max number %d below %d", p.MaxNumber, draw.MinMaxNumber)
	}
	if p.MinMatches < draw.Size-Tiers+1 || p.MinMatches > draw.Size {
		return ErrInvalidParams.Wrapf("min matches %d outside [%d, %d]", p.MinMatches, draw.Size-Tiers+1, draw.Size)
	}
	var total uint32
	for _, bps := range p.TierShareBps {
		total += uint32(bps)
	}
	if total > BpsDenominator {
		return ErrInvalidParams.Wrapf("tier shares sum to %d bps, over %d", total, BpsDenominator)
	}
	return nil
}

// Tier maps a match count to a prize tier index. ok is false for a losing
// ticket.
func (p Params) Tier(matches int) (tier int, ok bool) {
	if matches < int(p.MinMatches) || matches > draw.Size {
		return 0, false
	}
	return matches - (draw.Size - Tiers + 1), true
}

// Program is the lottery program. It owns every Game and Ticket account and is
// the only code that writes them.
type Program struct {
	id     solana.PublicKey
	params Params
	logger log.Logger
}

var _ ledger.Program = (*Program)(nil)

func New(id solana.PublicKey, params Params, logger log.Logger) (*Program, error) {
	if id.IsZero() {
		return nil, ErrInvalidParams.Wrap("program id is zero")
	}
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = log.NewNopLogger()
	}
	return &Program{id: id, params: params, logger: logger.With("module", "lottery")}, nil
}

func (p *Program) ID() solana.PublicKey { return p.id }
func (p *Program) Params() Params       { return p.params }

// Process decodes one instruction, checks its accounts against the role
// table and runs the handler. Nothing is written to an account until every
// check for the instruction has passed.
func (p *Program) Process(ctx *ledger.InvokeContext, accounts []*ledger.AccountInfo, data []byte) error {
	ix, err := DecodeInstruction(data)
	if err != nil {
		return err
	}
	if err := checkAccounts(p.id, ix.Opcode(), accounts); err != nil {
		return err
	}

	switch ix := ix.(type) {
	case CreateGame:
		return p.createGame(ctx, accounts, ix)
	case BuyTicket:
		return p.buyTicket(ctx, accounts, ix)
	case PostRandomness:
		return p.postRandomness(ctx, accounts, ix)
	case SetWinnerCounts:
		return p.setWinnerCounts(ctx, accounts, ix)
	case PayWinner:
		return p.payWinner(ctx, accounts)
	case CloseGame:
		return p.closeGame(ctx, accounts)
	case UpdatePrice:
		return p.updatePrice(ctx, accounts, ix)
	default:
		return ErrUnknownInstruction.Wrapf("opcode 0x%02x", uint8(ix.Opcode()))
	}
}

// Balls returns the winning numbers of a game whose randomness was posted.
func (p *Program) Balls(g *Game) ([draw.Size]uint8, error) {
	if g.Status < StatusRandomnessPosted {
		return [draw.Size]uint8{}, ErrInvalidGameState.Wrapf("game is %s", g.Status)
	}
	balls, err := draw.Derive(g.CreationTime, g.Entropy).Balls(p.params.MaxNumber)
	if err != nil {
		return [draw.Size]uint8{}, ErrInvalidParams.Wrap(err.Error())
	}
	return balls, nil
}
