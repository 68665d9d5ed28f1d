package lottery

import (
	"fmt"
	"strconv"

	"lottochain/internal/draw"
	"lottochain/internal/ledger"
)

// Event types emitted by the program.
const (
	EventGameCreated      = "GameCreated"
	EventTicketPurchased  = "TicketPurchased"
	EventRandomnessPosted = "RandomnessPosted"
	EventWinnersSet       = "WinnerCountsSet"
	EventWinnerPaid       = "WinnerPaid"
	EventGameClosed       = "GameClosed"
	EventPriceUpdated     = "TicketPriceUpdated"
)

func loadGame(a *ledger.AccountInfo) (*Game, error) {
	g, err := DecodeGame(a.Data)
	if err != nil {
		return nil, err
	}
	return g, nil
}

func storeGame(a *ledger.AccountInfo, g *Game) error {
	bz, err := g.MarshalBinary()
	if err != nil {
		return err
	}
	copy(a.Data, bz)
	return nil
}

func storeTicket(a *ledger.AccountInfo, t *Ticket) error {
	bz, err := t.MarshalBinary()
	if err != nil {
		return err
	}
	copy(a.Data, bz)
	return nil
}

func u64(v uint64) string { return strconv.FormatUint(v, 10) }

// blockTimeMillis is the block time in the unit games record creation time in.
func blockTimeMillis(c ledger.Clock) uint64 {
	if c.UnixTimestamp <= 0 {
		return 0
	}
	return uint64(c.UnixTimestamp) * 1000
}

// openRegistry returns the owner's registry, allocating it on the owner's
// first game.
func (p *Program) openRegistry(ctx *ledger.InvokeContext, owner, acct *ledger.AccountInfo) (*Registry, error) {
	bump, err := requireRegistryAddress(p.id, owner, acct)
	if err != nil {
		return nil, err
	}
	if acct.Owner.Equals(p.id) {
		reg, err := DecodeRegistry(acct.Data)
		if err != nil {
			return nil, err
		}
		if !reg.Owner.Equals(owner.Key) {
			return nil, ErrWrongOwner.Wrapf("registry %s belongs to %s", acct.Key, reg.Owner)
		}
		return reg, nil
	}
	seeds := [][]byte{registrySeed, owner.Key[:], {bump}}
	if err := ctx.CreateDerivedAccount(owner, acct, RegistrySize, seeds); err != nil {
		return nil, err
	}
	return &Registry{Owner: owner.Key}, nil
}

func storeRegistry(a *ledger.AccountInfo, r *Registry) error {
	bz, err := r.MarshalBinary()
	if err != nil {
		return err
	}
	copy(a.Data, bz)
	return nil
}

func (p *Program) createGame(ctx *ledger.InvokeContext, accounts []*ledger.AccountInfo, ix CreateGame) error {
	gameAcct, owner, registryAcct := accounts[0], accounts[1], accounts[2]
	if err := requireFresh(gameAcct, GameSize, "game"); err != nil {
		return err
	}
	if ix.TicketPrice == 0 {
		return ErrMalformedInstruction.Wrap("ticket price must be positive")
	}
	if ix.Round == 0 {
		return ErrMalformedInstruction.Wrap("round must be positive")
	}
	if ix.CreationTime == 0 {
		return ErrMalformedInstruction.Wrap("creation time must be positive")
	}
	if now := blockTimeMillis(ctx.Clock()); ix.CreationTime > now {
		return ErrMalformedInstruction.Wrapf("creation time %d is after block time %d", ix.CreationTime, now)
	}

	reg, err := p.openRegistry(ctx, owner, registryAcct)
	if err != nil {
		return err
	}
	if ix.Round <= reg.LastRound {
		return ErrInvalidGameState.Wrapf("round %d already used, owner's last round is %d", ix.Round, reg.LastRound)
	}
	if ix.CreationTime <= reg.LastCreationTime {
		return ErrInvalidGameState.Wrapf("creation time %d not after owner's last game at %d", ix.CreationTime, reg.LastCreationTime)
	}
	reg.LastRound = ix.Round
	reg.LastCreationTime = ix.CreationTime
	if err := storeRegistry(registryAcct, reg); err != nil {
		return err
	}

	g := &Game{
		CreationTime: ix.CreationTime,
		TicketPrice:  ix.TicketPrice,
		Round:        ix.Round,
		Status:       StatusCreated,
		Owner:        owner.Key,
	}
	if err := storeGame(gameAcct, g); err != nil {
		return err
	}

	p.logger.Debug("game created", "game", gameAcct.Key.String(), "owner", owner.Key.String(), "round", ix.Round)
	ctx.Emit(EventGameCreated,
		ledger.Attr("game", gameAcct.Key.String()),
		ledger.Attr("owner", owner.Key.String()),
		ledger.Attr("round", strconv.FormatUint(uint64(ix.Round), 10)),
		ledger.Attr("ticketPrice", u64(ix.TicketPrice)),
	)
	return nil
}

func (p *Program) buyTicket(ctx *ledger.InvokeContext, accounts []*ledger.AccountInfo, ix BuyTicket) error {
	buyer, ticketAcct, gameAcct, payee := accounts[0], accounts[1], accounts[2], accounts[3]

	if err := requireFresh(ticketAcct, TicketSize, "ticket"); err != nil {
		return err
	}
	g, err := loadGame(gameAcct)
	if err != nil {
		return err
	}
	if g.Status != StatusCreated {
		return ErrInvalidGameState.Wrapf("tickets are not sold once the game is %s", g.Status)
	}
	if err := requirePayee(g, payee); err != nil {
		return err
	}
	if !draw.ValidNumbers(ix.Numbers, p.params.MaxNumber) {
		return ErrMalformedInstruction.Wrapf("numbers %v must be distinct and within 1..%d", ix.Numbers, p.params.MaxNumber)
	}

	sold, err := addUint32Checked(g.TicketsSold, 1, "tickets sold")
	if err != nil {
		return err
	}
	if _, err := mulUint64Checked(g.TicketPrice, uint64(sold), "pot"); err != nil {
		return err
	}
	if buyer.Lamports < g.TicketPrice {
		return ErrInsufficientFunds.Wrapf("buyer has %d, ticket costs %d", buyer.Lamports, g.TicketPrice)
	}
	if err := ctx.Transfer(buyer, payee, g.TicketPrice); err != nil {
		return err
	}

	g.TicketsSold = sold
	if err := storeGame(gameAcct, g); err != nil {
		return err
	}
	t := &Ticket{Buyer: buyer.Key, Game: gameAcct.Key, Numbers: ix.Numbers}
	if err := storeTicket(ticketAcct, t); err != nil {
		return err
	}

	ctx.Emit(EventTicketPurchased,
		ledger.Attr("game", gameAcct.Key.String()),
		ledger.Attr("ticket", ticketAcct.Key.String()),
		ledger.Attr("buyer", buyer.Key.String()),
		ledger.Attr("numbers", fmt.Sprint(ix.Numbers)),
		ledger.Attr("price", u64(g.TicketPrice)),
	)
	return nil
}

func (p *Program) postRandomness(ctx *ledger.InvokeContext, accounts []*ledger.AccountInfo, ix PostRandomness) error {
	gameAcct, admin := accounts[0], accounts[1]
	g, err := loadGame(gameAcct)
	if err != nil {
		return err
	}
	if err := requireAdmin(g, admin); err != nil {
		return err
	}
	if g.Status == StatusClosed {
		return ErrInvalidGameState.Wrap("game is closed")
	}
	if g.Status.Drawn() {
		return ErrAlreadyDrawn.Wrapf("game is %s", g.Status)
	}

	g.Entropy = ix.Entropy
	g.Status = StatusRandomnessPosted
	balls, err := p.Balls(g)
	if err != nil {
		return err
	}
	if err := storeGame(gameAcct, g); err != nil {
		return err
	}

	ctx.Emit(EventRandomnessPosted,
		ledger.Attr("game", gameAcct.Key.String()),
		ledger.Attr("balls", fmt.Sprint(balls)),
	)
	return nil
}

func (p *Program) setWinnerCounts(ctx *ledger.InvokeContext, accounts []*ledger.AccountInfo, ix SetWinnerCounts) error {
	gameAcct, admin := accounts[0], accounts[1]
	g, err := loadGame(gameAcct)
	if err != nil {
		return err
	}
	if err := requireAdmin(g, admin); err != nil {
		return err
	}
	if g.Status != StatusRandomnessPosted {
		return ErrInvalidGameState.Wrapf("winner counts cannot be set once the game is %s", g.Status)
	}

	g.WinnerCounts = ix.Counts
	g.Status = StatusWinnersSet
	if err := storeGame(gameAcct, g); err != nil {
		return err
	}

	ctx.Emit(EventWinnersSet,
		ledger.Attr("game", gameAcct.Key.String()),
		ledger.Attr("winnerCounts", fmt.Sprint(ix.Counts)),
	)
	return nil
}

func (p *Program) payWinner(ctx *ledger.InvokeContext, accounts []*ledger.AccountInfo) error {
	gameAcct, admin, winner, ticketAcct := accounts[0], accounts[1], accounts[2], accounts[3]
	g, err := loadGame(gameAcct)
	if err != nil {
		return err
	}
	if err := requireAdmin(g, admin); err != nil {
		return err
	}
	if g.Status != StatusWinnersSet && g.Status != StatusPayoutsInProgress {
		return ErrInvalidGameState.Wrapf("payouts are not open while the game is %s", g.Status)
	}
	t, err := DecodeTicket(ticketAcct.Data)
	if err != nil {
		return err
	}
	if err := requireClaimable(t, gameAcct, winner); err != nil {
		return err
	}

	balls, err := p.Balls(g)
	if err != nil {
		return err
	}
	matches := draw.Matches(t.Numbers, balls)
	tier, ok := p.params.Tier(matches)
	if !ok {
		return ErrNoPrize.Wrapf("%d matching numbers", matches)
	}
	if g.ClaimedCounts[tier] >= g.WinnerCounts[tier] {
		return ErrInvalidGameState.Wrapf("tier %d has %d of %d prizes claimed", tier, g.ClaimedCounts[tier], g.WinnerCounts[tier])
	}
	pot, err := g.Pot()
	if err != nil {
		return err
	}
	amount, err := PrizeAmount(pot, p.params.TierShareBps[tier], g.WinnerCounts[tier])
	if err != nil {
		return err
	}
	if admin.Lamports < amount {
		return ErrInsufficientFunds.Wrapf("owner has %d, prize is %d", admin.Lamports, amount)
	}
	if err := ctx.Transfer(admin, winner, amount); err != nil {
		return err
	}

	t.Claimed = true
	g.ClaimedCounts[tier]++
	g.Status = StatusPayoutsInProgress
	if err := storeTicket(ticketAcct, t); err != nil {
		return err
	}
	if err := storeGame(gameAcct, g); err != nil {
		return err
	}

	p.logger.Debug("winner paid", "game", gameAcct.Key.String(), "winner", winner.Key.String(), "amount", amount)
	ctx.Emit(EventWinnerPaid,
		ledger.Attr("game", gameAcct.Key.String()),
		ledger.Attr("ticket", ticketAcct.Key.String()),
		ledger.Attr("winner", winner.Key.String()),
		ledger.Attr("matches", strconv.Itoa(matches)),
		ledger.Attr("amount", u64(amount)),
	)
	return nil
}

func (p *Program) closeGame(ctx *ledger.InvokeContext, accounts []*ledger.AccountInfo) error {
	gameAcct, admin := accounts[0], accounts[1]
	g, err := loadGame(gameAcct)
	if err != nil {
		return err
	}
	if err := requireAdmin(g, admin); err != nil {
		return err
	}
	switch {
	case g.Status == StatusWinnersSet, g.Status == StatusPayoutsInProgress:
	case g.Status == StatusCreated && g.TicketsSold == 0:
	default:
		return ErrInvalidGameState.Wrapf("cannot close a %s game with %d tickets sold", g.Status, g.TicketsSold)
	}

	g.Status = StatusClosed
	if err := storeGame(gameAcct, g); err != nil {
		return err
	}
	ctx.Emit(EventGameClosed, ledger.Attr("game", gameAcct.Key.String()))
	return nil
}

func (p *Program) updatePrice(ctx *ledger.InvokeContext, accounts []*ledger.AccountInfo, ix UpdatePrice) error {
	gameAcct, admin := accounts[0], accounts[1]
	g, err := loadGame(gameAcct)
	if err != nil {
		return err
	}
	if err := requireAdmin(g, admin); err != nil {
		return err
	}
	if g.Status != StatusCreated || g.TicketsSold != 0 {
		return ErrInvalidGameState.Wrapf("price is fixed once tickets are sold (status %s, sold %d)", g.Status, g.TicketsSold)
	}
	if ix.TicketPrice == 0 {
		return ErrMalformedInstruction.Wrap("ticket price must be positive")
	}

	g.TicketPrice = ix.TicketPrice
	if err := storeGame(gameAcct, g); err != nil {
		return err
	}
	ctx.Emit(EventPriceUpdated,
		ledger.Attr("game", gameAcct.Key.String()),
		ledger.Attr("ticketPrice", u64(ix.TicketPrice)),
	)
	return nil
}
