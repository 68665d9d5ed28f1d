package ledger

import (
	"crypto/ed25519"
	"crypto/sha256"
	"testing"

	"cosmossdk.io/log"
	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/require"

	"lottochain/internal/state"
)

func testKey(name string) solana.PublicKey {
	seed := sha256.Sum256([]byte("ledger-test/" + name))
	return solana.PrivateKey(ed25519.NewKeyFromSeed(seed[:])).PublicKey()
}

// scriptProgram runs an arbitrary function over its accounts, so tests can
// try every kind of write the runtime must police.
type scriptProgram struct {
	id solana.PublicKey
	fn func(ctx *InvokeContext, accounts []*AccountInfo) error
}

func (p scriptProgram) ID() solana.PublicKey { return p.id }
func (p scriptProgram) Process(ctx *InvokeContext, accounts []*AccountInfo, _ []byte) error {
	return p.fn(ctx, accounts)
}

func newTestRuntime(t *testing.T, fn func(ctx *InvokeContext, accounts []*AccountInfo) error) (*Runtime, *state.State, solana.PublicKey) {
	t.Helper()
	id := testKey("program")
	st := state.NewState()
	Deploy(st, id)
	require.NoError(t, st.Credit(testKey("alice"), 1_000_000_000))
	require.NoError(t, st.Credit(testKey("bob"), 1_000_000_000))
	rt := NewRuntime(log.NewNopLogger(), DefaultRent(), scriptProgram{id: id, fn: fn})
	return rt, st, id
}

func signedBy(nonce uint64, ixs []Instruction, signers ...solana.PublicKey) Transaction {
	set := map[solana.PublicKey]bool{}
	for _, s := range signers {
		set[s] = true
	}
	return Transaction{FeePayer: signers[0], Nonce: nonce, Instructions: ixs, Signers: set}
}

func TestSystemTransfer(t *testing.T) {
	rt, st, _ := newTestRuntime(t, nil)
	alice, bob := testKey("alice"), testKey("bob")

	res, err := rt.Execute(st, signedBy(1, []Instruction{Transfer(alice, bob, 250)}, alice), Clock{Height: 1})
	require.NoError(t, err)
	require.Equal(t, uint64(1_000_000_000-250), res.State.Balance(alice))
	require.Equal(t, uint64(1_000_000_000+250), res.State.Balance(bob))
	require.Equal(t, uint64(1_000_000_000), st.Balance(alice), "input state must not change")

	_, err = rt.Execute(res.State, signedBy(2, []Instruction{Transfer(alice, bob, 2_000_000_000)}, alice), Clock{})
	require.ErrorIs(t, err, ErrInsufficientFunds)

	// Moving someone else's funds needs their signature.
	_, err = rt.Execute(res.State, signedBy(3, []Instruction{Transfer(bob, alice, 1)}, alice), Clock{})
	require.ErrorIs(t, err, ErrMissingSignature)
}

func TestSystemCreateAccount(t *testing.T) {
	rt, st, id := newTestRuntime(t, nil)
	alice, acct := testKey("alice"), testKey("acct")
	need := DefaultRent().MinimumBalance(72)

	_, err := rt.Execute(st, signedBy(1, []Instruction{CreateAccount(alice, acct, need-1, 72, id)}, alice, acct), Clock{})
	require.ErrorIs(t, err, ErrAccountNotRentExempt)

	res, err := rt.Execute(st, signedBy(2, []Instruction{CreateAccount(alice, acct, need, 72, id)}, alice, acct), Clock{})
	require.NoError(t, err)
	a := res.State.Account(acct)
	require.Equal(t, id, a.Owner)
	require.Equal(t, need, a.Lamports)
	require.Len(t, a.Data, 72)

	_, err = rt.Execute(res.State, signedBy(3, []Instruction{CreateAccount(alice, acct, need, 72, id)}, alice, acct), Clock{})
	require.ErrorIs(t, err, ErrAccountAlreadyInUse)

	_, err = rt.Execute(st, signedBy(4, []Instruction{CreateAccount(alice, acct, need, MaxAccountDataSize+1, id)}, alice, acct), Clock{})
	require.ErrorIs(t, err, ErrAccountDataTooLarge)
}

func TestRentMinimumBalance(t *testing.T) {
	require.Equal(t, uint64((128+117)*3480*2), DefaultRent().MinimumBalance(117))
}

func TestExecuteIsAllOrNothing(t *testing.T) {
	rt, st, _ := newTestRuntime(t, nil)
	alice, bob := testKey("alice"), testKey("bob")
	hash := st.AppHash()

	_, err := rt.Execute(st, signedBy(1, []Instruction{
		Transfer(alice, bob, 10),
		Transfer(alice, bob, 5_000_000_000),
	}, alice), Clock{})
	require.ErrorIs(t, err, ErrInsufficientFunds)
	require.Equal(t, hash, st.AppHash())
	require.Zero(t, st.NonceMax[alice])
}

func TestReplayedNonce(t *testing.T) {
	rt, st, _ := newTestRuntime(t, nil)
	alice, bob := testKey("alice"), testKey("bob")

	res, err := rt.Execute(st, signedBy(5, []Instruction{Transfer(alice, bob, 1)}, alice), Clock{})
	require.NoError(t, err)
	_, err = rt.Execute(res.State, signedBy(5, []Instruction{Transfer(alice, bob, 1)}, alice), Clock{})
	require.ErrorIs(t, err, ErrReplayedNonce)
	_, err = rt.Execute(res.State, signedBy(4, []Instruction{Transfer(alice, bob, 1)}, alice), Clock{})
	require.ErrorIs(t, err, ErrReplayedNonce)
	_, err = rt.Execute(res.State, signedBy(6, []Instruction{Transfer(alice, bob, 1)}, alice), Clock{})
	require.NoError(t, err)
}

func TestExecuteRejectsUnsignedOrUnknown(t *testing.T) {
	rt, st, _ := newTestRuntime(t, nil)
	alice, bob := testKey("alice"), testKey("bob")

	_, err := rt.Execute(st, Transaction{FeePayer: alice, Nonce: 1, Instructions: []Instruction{Transfer(alice, bob, 1)}}, Clock{})
	require.ErrorIs(t, err, ErrMissingSignature)

	_, err = rt.Execute(st, signedBy(1, nil, alice), Clock{})
	require.ErrorIs(t, err, ErrInvalidTx)

	_, err = rt.Execute(st, signedBy(1, []Instruction{{ProgramID: testKey("nowhere")}}, alice), Clock{})
	require.ErrorIs(t, err, ErrUnknownProgram)
}

func TestRuntimeOwnershipRules(t *testing.T) {
	tests := []struct {
		name     string
		writable bool
		fn       func(ctx *InvokeContext, accounts []*AccountInfo) error
		err      error
	}{
		{
			name:     "data of a foreign account",
			writable: true,
			fn: func(_ *InvokeContext, a []*AccountInfo) error {
				a[0].Data = []byte{1}
				return nil
			},
			err: ErrExternalAccountModified,
		},
		{
			name:     "direct debit of a foreign account",
			writable: true,
			fn: func(_ *InvokeContext, a []*AccountInfo) error {
				a[0].Lamports -= 10
				a[1].Lamports += 10
				return nil
			},
			err: ErrExternalAccountModified,
		},
		{
			name:     "minting lamports",
			writable: true,
			fn: func(_ *InvokeContext, a []*AccountInfo) error {
				a[1].Lamports += 10
				return nil
			},
			err: ErrUnbalancedInstruction,
		},
		{
			name:     "read-only account",
			writable: false,
			fn: func(ctx *InvokeContext, a []*AccountInfo) error {
				a[1].Lamports += 10
				return nil
			},
			err: ErrReadonlyModified,
		},
		{
			name:     "owner reassignment",
			writable: true,
			fn: func(ctx *InvokeContext, a []*AccountInfo) error {
				a[0].Owner = ctx.ProgramID()
				return nil
			},
			err: ErrExternalAccountModified,
		},
		{
			name:     "system transfer",
			writable: true,
			fn: func(ctx *InvokeContext, a []*AccountInfo) error {
				return ctx.Transfer(a[0], a[1], 10)
			},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rt, st, id := newTestRuntime(t, tc.fn)
			alice, bob := testKey("alice"), testKey("bob")
			ix := Instruction{ProgramID: id, Accounts: []AccountMeta{
				Meta(alice, true, true),
				Meta(bob, false, tc.writable),
			}}
			res, err := rt.Execute(st, signedBy(1, []Instruction{ix}, alice), Clock{})
			if tc.err != nil {
				require.ErrorIs(t, err, tc.err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, uint64(1_000_000_000-10), res.State.Balance(alice))
			require.Equal(t, uint64(1_000_000_000+10), res.State.Balance(bob))
		})
	}
}

func TestProgramEvents(t *testing.T) {
	rt, st, id := newTestRuntime(t, func(ctx *InvokeContext, a []*AccountInfo) error {
		ctx.Emit("Touched", Attr("key", a[0].Key.String()))
		return nil
	})
	alice := testKey("alice")
	ix := Instruction{ProgramID: id, Accounts: []AccountMeta{Meta(alice, true, false)}}
	res, err := rt.Execute(st, signedBy(1, []Instruction{ix, ix}, alice), Clock{})
	require.NoError(t, err)
	require.Len(t, res.Events, 2)
	require.Equal(t, "Touched", res.Events[0].Type)
	require.Equal(t, alice.String(), res.Events[0].Attributes[0].Value)
}

func TestCreateDerivedAccount(t *testing.T) {
	alice := testKey("alice")
	id := testKey("program")
	seeds := [][]byte{[]byte("vault"), alice[:]}
	vault, bump, err := solana.FindProgramAddress(seeds, id)
	require.NoError(t, err)
	withBump := append(append([][]byte{}, seeds...), []byte{bump})
	need := DefaultRent().MinimumBalance(16)

	rt, st, _ := newTestRuntime(t, func(ctx *InvokeContext, a []*AccountInfo) error {
		if err := ctx.CreateDerivedAccount(a[0], a[1], 16, withBump); err != nil {
			return err
		}
		a[1].Data[0] = 7
		return nil
	})
	ix := Instruction{ProgramID: id, Accounts: []AccountMeta{
		Meta(alice, true, true),
		Meta(vault, false, true),
	}}

	res, err := rt.Execute(st, signedBy(1, []Instruction{ix}, alice), Clock{})
	require.NoError(t, err)
	acct := res.State.Account(vault)
	require.Equal(t, id, acct.Owner)
	require.Len(t, acct.Data, 16)
	require.Equal(t, byte(7), acct.Data[0])
	require.Equal(t, need, acct.Lamports)
	require.Equal(t, uint64(1_000_000_000)-need, res.State.Balance(alice))

	_, err = rt.Execute(res.State, signedBy(2, []Instruction{ix}, alice), Clock{})
	require.ErrorIs(t, err, ErrAccountAlreadyInUse)

	// A pre-funded address is topped up rather than refused.
	funded, err := rt.Execute(st, signedBy(1, []Instruction{Transfer(alice, vault, 5)}, alice), Clock{})
	require.NoError(t, err)
	res, err = rt.Execute(funded.State, signedBy(2, []Instruction{ix}, alice), Clock{})
	require.NoError(t, err)
	require.Equal(t, need, res.State.Account(vault).Lamports)
	require.Equal(t, uint64(1_000_000_000)-need, res.State.Balance(alice))
}

func TestCreateDerivedAccountRejectsForeignAddress(t *testing.T) {
	alice, bob := testKey("alice"), testKey("bob")
	id := testKey("program")
	seeds := [][]byte{[]byte("vault"), alice[:]}
	_, bump, err := solana.FindProgramAddress(seeds, id)
	require.NoError(t, err)

	rt, st, _ := newTestRuntime(t, func(ctx *InvokeContext, a []*AccountInfo) error {
		return ctx.CreateDerivedAccount(a[0], a[1], 16, append(seeds, []byte{bump}))
	})
	ix := Instruction{ProgramID: id, Accounts: []AccountMeta{
		Meta(alice, true, true),
		Meta(bob, false, true),
	}}
	_, err = rt.Execute(st, signedBy(1, []Instruction{ix}, alice), Clock{})
	require.ErrorIs(t, err, ErrInvalidSeeds)
}
