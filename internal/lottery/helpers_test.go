package lottery

import (
	"crypto/ed25519"
	"crypto/sha256"
	"testing"

	"cosmossdk.io/log"
	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/require"

	"lottochain/internal/draw"
	"lottochain/internal/ledger"
	"lottochain/internal/state"
)

const (
	testCreationTime = uint64(0x17d9ef580d9)
	testPrice        = uint64(0x00a24b02)
	testRound        = uint32(0xFE)
	testFunding      = uint64(1_000_000_000_000)
	// testNow is the block time (unix seconds) the harness executes at.
	testNow = int64(1_700_000_000)
)

var testEntropy = [draw.Size]uint64{0x4e6df66e, 0x24616e62, 0x2891d584, 0x0022a319, 0x5a8221e3, 0x29a178e5}

func testKey(name string) solana.PublicKey {
	seed := sha256.Sum256([]byte("lottery-test/" + name))
	return solana.PrivateKey(ed25519.NewKeyFromSeed(seed[:])).PublicKey()
}

// testBalls is the draw every test game gets from testEntropy.
func testBalls(t *testing.T) [draw.Size]uint8 {
	t.Helper()
	balls, err := draw.Derive(testCreationTime, testEntropy).Balls(DefaultParams().MaxNumber)
	require.NoError(t, err)
	return balls
}

// losingNumbers returns a valid pick sharing no number with balls.
func losingNumbers(balls [draw.Size]uint8) [draw.Size]uint8 {
	var out [draw.Size]uint8
	n := 0
	for v := uint8(1); n < draw.Size; v++ {
		hit := false
		for _, b := range balls {
			if b == v {
				hit = true
			}
		}
		if !hit {
			out[n] = v
			n++
		}
	}
	return out
}

type harness struct {
	t     *testing.T
	prog  *Program
	rt    *ledger.Runtime
	st    *state.State
	nonce uint64
	now   int64
	// games created per owner, to keep rounds moving forward
	games map[solana.PublicKey]int
}

func newHarness(t *testing.T, wallets ...string) *harness {
	t.Helper()
	prog, err := New(DefaultProgramID, DefaultParams(), log.NewNopLogger())
	require.NoError(t, err)

	st := state.NewState()
	ledger.Deploy(st, DefaultProgramID)
	for _, w := range wallets {
		require.NoError(t, st.Credit(testKey(w), testFunding))
	}
	return &harness{
		t:     t,
		prog:  prog,
		rt:    ledger.NewRuntime(log.NewNopLogger(), ledger.DefaultRent(), prog),
		st:    st,
		now:   testNow,
		games: map[solana.PublicKey]int{},
	}
}

// exec runs the instructions as one transaction signed by signers; the first
// signer pays. State advances only on success.
func (h *harness) exec(signers []solana.PublicKey, ixs ...ledger.Instruction) error {
	h.t.Helper()
	h.nonce++
	set := map[solana.PublicKey]bool{}
	for _, s := range signers {
		set[s] = true
	}
	res, err := h.rt.Execute(h.st, ledger.Transaction{
		FeePayer:     signers[0],
		Nonce:        h.nonce,
		Instructions: ixs,
		Signers:      set,
	}, ledger.Clock{Height: 1, UnixTimestamp: h.now})
	if err != nil {
		return err
	}
	h.st = res.State
	return nil
}

func (h *harness) mustExec(signers []solana.PublicKey, ixs ...ledger.Instruction) {
	h.t.Helper()
	require.NoError(h.t, h.exec(signers, ixs...))
}

func (h *harness) ix(data Instruction, metas ...ledger.AccountMeta) ledger.Instruction {
	return ledger.Instruction{ProgramID: h.prog.ID(), Accounts: metas, Data: data.Encode()}
}

func (h *harness) allocate(funder, acct solana.PublicKey, size uint64) ledger.Instruction {
	return ledger.CreateAccount(funder, acct, ledger.DefaultRent().MinimumBalance(size), size, h.prog.ID())
}

func (h *harness) registry(owner solana.PublicKey) solana.PublicKey {
	h.t.Helper()
	reg, _, err := RegistryAddress(h.prog.ID(), owner)
	require.NoError(h.t, err)
	return reg
}

func (h *harness) createGameMetas(game, owner solana.PublicKey) []ledger.AccountMeta {
	return []ledger.AccountMeta{
		ledger.Meta(game, true, true),
		ledger.Meta(owner, true, true),
		ledger.Meta(h.registry(owner), false, true),
		ledger.Meta(solana.SystemProgramID, false, false),
	}
}

func (h *harness) createGameIxs(game, owner solana.PublicKey, args CreateGame) []ledger.Instruction {
	return []ledger.Instruction{
		h.allocate(owner, game, GameSize),
		h.ix(args, h.createGameMetas(game, owner)...),
	}
}

// createGame creates a game for owner. An owner's first game uses the
// fixture round and creation time; later ones step both forward by one.
func (h *harness) createGame(game, owner solana.PublicKey) {
	h.t.Helper()
	n := h.games[owner]
	h.mustExec([]solana.PublicKey{owner, game}, h.createGameIxs(game, owner, CreateGame{
		CreationTime: testCreationTime + uint64(n),
		TicketPrice:  testPrice,
		Round:        testRound + uint32(n),
	})...)
	h.games[owner]++
}

func (h *harness) registryRecord(owner solana.PublicKey) *Registry {
	h.t.Helper()
	reg, err := DecodeRegistry(h.st.Account(h.registry(owner)).Data)
	require.NoError(h.t, err)
	return reg
}

func (h *harness) buyTicketIxs(buyer, ticket, game, payee solana.PublicKey, numbers [draw.Size]uint8) []ledger.Instruction {
	return []ledger.Instruction{
		h.allocate(buyer, ticket, TicketSize),
		h.ix(BuyTicket{Numbers: numbers},
			ledger.Meta(buyer, true, true),
			ledger.Meta(ticket, true, true),
			ledger.Meta(game, false, true),
			ledger.Meta(payee, false, true),
			ledger.Meta(solana.SystemProgramID, false, false),
		),
	}
}

func (h *harness) buyTicket(buyer, ticket, game, payee solana.PublicKey, numbers [draw.Size]uint8) error {
	h.t.Helper()
	return h.exec([]solana.PublicKey{buyer, ticket}, h.buyTicketIxs(buyer, ticket, game, payee, numbers)...)
}

func (h *harness) admin(data Instruction, game, owner solana.PublicKey) error {
	h.t.Helper()
	return h.exec([]solana.PublicKey{owner}, h.ix(data,
		ledger.Meta(game, false, true),
		ledger.Meta(owner, true, false),
	))
}

func (h *harness) payWinner(game, owner, winner, ticket solana.PublicKey) error {
	h.t.Helper()
	return h.exec([]solana.PublicKey{owner}, h.ix(PayWinner{},
		ledger.Meta(game, false, true),
		ledger.Meta(owner, true, true),
		ledger.Meta(winner, false, true),
		ledger.Meta(ticket, false, true),
		ledger.Meta(solana.SystemProgramID, false, false),
	))
}

func (h *harness) game(key solana.PublicKey) *Game {
	h.t.Helper()
	g, err := DecodeGame(h.st.Account(key).Data)
	require.NoError(h.t, err)
	return g
}

func (h *harness) ticket(key solana.PublicKey) *Ticket {
	h.t.Helper()
	tk, err := DecodeTicket(h.st.Account(key).Data)
	require.NoError(h.t, err)
	return tk
}
