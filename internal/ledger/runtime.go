package ledger

import (
	"bytes"

	errorsmod "cosmossdk.io/errors"
	"cosmossdk.io/log"
	"github.com/gagliardetto/solana-go"

	"lottochain/internal/state"
)

// NativeLoaderID owns the accounts of built-in programs.
var NativeLoaderID = solana.MustPublicKeyFromBase58("NativeLoader1111111111111111111111111111111")

// Deploy marks id as an executable program account in st so instructions may
// address it.
func Deploy(st *state.State, id solana.PublicKey) {
	st.SetAccount(id, &state.Account{Owner: NativeLoaderID, Lamports: 1, Executable: true})
}

// Runtime executes transactions against a State. Each transaction runs on a
// staged clone; the caller only sees the staged state when every instruction
// succeeded.
type Runtime struct {
	programs map[solana.PublicKey]Program
	rent     Rent
	logger   log.Logger
}

func NewRuntime(logger log.Logger, rent Rent, programs ...Program) *Runtime {
	if logger == nil {
		logger = log.NewNopLogger()
	}
	r := &Runtime{
		programs: map[solana.PublicKey]Program{},
		rent:     rent,
		logger:   logger.With("module", "ledger"),
	}
	r.programs[solana.SystemProgramID] = SystemProgram{}
	for _, p := range programs {
		r.programs[p.ID()] = p
	}
	return r
}

func (r *Runtime) Rent() Rent { return r.rent }

// Result is what a successful transaction produced.
type Result struct {
	State  *state.State
	Events []Event
}

// Execute runs tx against a clone of st. On error the returned Result is nil
// and st is untouched.
func (r *Runtime) Execute(st *state.State, tx Transaction, clock Clock) (*Result, error) {
	if len(tx.Instructions) == 0 {
		return nil, ErrInvalidTx.Wrap("no instructions")
	}
	if !tx.Signers[tx.FeePayer] {
		return nil, ErrMissingSignature.Wrapf("fee payer %s", tx.FeePayer)
	}
	if last, ok := st.NonceMax[tx.FeePayer]; ok && tx.Nonce <= last {
		return nil, ErrReplayedNonce.Wrapf("nonce=%d last=%d", tx.Nonce, last)
	}

	staged, err := st.Clone()
	if err != nil {
		return nil, err
	}
	staged.NonceMax[tx.FeePayer] = tx.Nonce

	var events []Event
	for i, ix := range tx.Instructions {
		evs, err := r.executeInstruction(staged, tx, ix, clock)
		if err != nil {
			r.logger.Debug("instruction failed", "index", i, "program", ix.ProgramID.String(), "err", err)
			return nil, errorsmod.Wrapf(err, "instruction %d", i)
		}
		events = append(events, evs...)
	}
	return &Result{State: staged, Events: events}, nil
}

type slot struct {
	pre      *state.Account
	work     *state.Account
	signer   bool
	writable bool
}

func (r *Runtime) executeInstruction(st *state.State, tx Transaction, ix Instruction, clock Clock) ([]Event, error) {
	program, ok := r.programs[ix.ProgramID]
	if !ok {
		return nil, ErrUnknownProgram.Wrapf("%s", ix.ProgramID)
	}
	if !ix.ProgramID.Equals(solana.SystemProgramID) {
		if acct := st.Account(ix.ProgramID); !acct.Executable {
			return nil, ErrUnknownProgram.Wrapf("%s is not deployed", ix.ProgramID)
		}
	}

	slots := map[solana.PublicKey]*slot{}
	order := make([]solana.PublicKey, 0, len(ix.Accounts))
	for _, m := range ix.Accounts {
		if m.IsSigner && !tx.Signers[m.PublicKey] {
			return nil, ErrMissingSignature.Wrapf("%s", m.PublicKey)
		}
		s, ok := slots[m.PublicKey]
		if !ok {
			pre := st.Account(m.PublicKey)
			s = &slot{pre: pre, work: pre.Clone()}
			slots[m.PublicKey] = s
			order = append(order, m.PublicKey)
		}
		s.signer = s.signer || m.IsSigner
		s.writable = s.writable || m.IsWritable
	}

	infos := make([]*AccountInfo, 0, len(ix.Accounts))
	for _, m := range ix.Accounts {
		s := slots[m.PublicKey]
		infos = append(infos, &AccountInfo{
			Key:        m.PublicKey,
			IsSigner:   s.signer,
			IsWritable: s.writable,
			Account:    s.work,
		})
	}

	ctx := newInvokeContext(ix.ProgramID, clock, r.rent, r.logger)
	if err := program.Process(ctx, infos, ix.Data); err != nil {
		return nil, err
	}

	if err := verifyInstruction(ix.ProgramID, slots, order, ctx.systemDebits, ctx.derived); err != nil {
		return nil, err
	}
	for _, k := range order {
		st.SetAccount(k, slots[k].work)
	}
	return ctx.events, nil
}

// verifyInstruction enforces the ownership rules a program cannot bypass:
// only the owner may change data or debit lamports (system transfers
// excepted), read-only accounts stay unchanged and lamports are conserved.
// Accounts the program allocated at its derived addresses count as its own.
func verifyInstruction(programID solana.PublicKey, slots map[solana.PublicKey]*slot, order []solana.PublicKey, systemDebits map[solana.PublicKey]uint64, derived map[solana.PublicKey]bool) error {
	var preTotal, postTotal uint64
	isSystem := programID.Equals(solana.SystemProgramID)
	for _, k := range order {
		s := slots[k]
		pre, post := s.pre, s.work

		changed := pre.Lamports != post.Lamports ||
			!bytes.Equal(pre.Data, post.Data) ||
			!pre.Owner.Equals(post.Owner) ||
			pre.Executable != post.Executable
		if changed && !s.writable {
			return ErrReadonlyModified.Wrapf("%s", k)
		}
		if pre.Executable != post.Executable {
			return ErrExternalAccountModified.Wrapf("%s executable flag changed", k)
		}

		claimed := derived[k] &&
			pre.Owner.Equals(solana.SystemProgramID) &&
			post.Owner.Equals(programID) &&
			len(pre.Data) == 0
		owned := pre.Owner.Equals(programID) || claimed
		if !pre.Owner.Equals(post.Owner) {
			// Only the system program may hand a fresh account to a new owner,
			// unless a program claimed one of its own derived addresses.
			if !claimed && (!isSystem || !owned) {
				return ErrExternalAccountModified.Wrapf("%s owner changed", k)
			}
		}
		if !owned && !bytes.Equal(pre.Data, post.Data) {
			return ErrExternalAccountModified.Wrapf("%s data changed", k)
		}
		if !owned && post.Lamports < pre.Lamports && pre.Lamports-post.Lamports > systemDebits[k] {
			return ErrExternalAccountModified.Wrapf("%s debited without a system transfer", k)
		}

		var err error
		if preTotal, err = addLamports(preTotal, pre.Lamports); err != nil {
			return err
		}
		if postTotal, err = addLamports(postTotal, post.Lamports); err != nil {
			return err
		}
	}
	if preTotal != postTotal {
		return ErrUnbalancedInstruction.Wrapf("before=%d after=%d", preTotal, postTotal)
	}
	return nil
}

func addLamports(a, b uint64) (uint64, error) {
	if a > ^uint64(0)-b {
		return 0, ErrUnbalancedInstruction.Wrap("lamport total overflows uint64")
	}
	return a + b, nil
}
