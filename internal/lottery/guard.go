package lottery

import (
	"github.com/gagliardetto/solana-go"

	"lottochain/internal/ledger"
)

type role uint8

const (
	roleSigner role = 1 << iota
	roleWritable
	roleProgramOwned
	roleSystemProgram
)

type slotRole struct {
	name  string
	roles role
}

// accountRoles lists, per opcode, the exact account slots and what each slot
// must satisfy before the handler runs.
var accountRoles = map[Opcode][]slotRole{
	OpCreateGame: {
		{"game", roleSigner | roleWritable | roleProgramOwned},
		{"owner", roleSigner | roleWritable},
		{"registry", roleWritable},
		{"system_program", roleSystemProgram},
	},
	OpBuyTicket: {
		{"buyer", roleSigner | roleWritable},
		{"ticket", roleSigner | roleWritable | roleProgramOwned},
		{"game", roleWritable | roleProgramOwned},
		{"payee", roleWritable},
		{"system_program", roleSystemProgram},
	},
	OpPostRandomness:  adminRoles,
	OpSetWinnerCounts: adminRoles,
	OpPayWinner: {
		{"game", roleWritable | roleProgramOwned},
		{"owner", roleSigner | roleWritable},
		{"winner", roleWritable},
		{"ticket", roleWritable | roleProgramOwned},
		{"system_program", roleSystemProgram},
	},
	OpCloseGame:   adminRoles,
	OpUpdatePrice: adminRoles,
}

var adminRoles = []slotRole{
	{"game", roleWritable | roleProgramOwned},
	{"owner", roleSigner},
}

// checkAccounts validates the slot count and every slot role for op.
func checkAccounts(programID solana.PublicKey, op Opcode, accounts []*ledger.AccountInfo) error {
	roles, ok := accountRoles[op]
	if !ok {
		return ErrUnknownInstruction.Wrapf("opcode 0x%02x", uint8(op))
	}
	if len(accounts) != len(roles) {
		return ErrWrongAccountCount.Wrapf("%s: got %d accounts, want %d", op, len(accounts), len(roles))
	}
	for i, r := range roles {
		a := accounts[i]
		if r.roles&roleSigner != 0 && !a.IsSigner {
			return ErrNotSigner.Wrapf("%s: %s %s", op, r.name, a.Key)
		}
		if r.roles&roleWritable != 0 && !a.IsWritable {
			return ErrMalformedInstruction.Wrapf("%s: %s %s must be writable", op, r.name, a.Key)
		}
		if r.roles&roleProgramOwned != 0 && !a.Owner.Equals(programID) {
			return ErrWrongOwner.Wrapf("%s: %s %s is owned by %s", op, r.name, a.Key, a.Owner)
		}
		if r.roles&roleSystemProgram != 0 && !a.Key.Equals(solana.SystemProgramID) {
			return ErrWrongOwner.Wrapf("%s: %s is %s", op, r.name, a.Key)
		}
	}
	return nil
}

// requireFresh accepts only an allocated, never-initialized record of the
// exact size.
func requireFresh(a *ledger.AccountInfo, size int, what string) error {
	if len(a.Data) != size {
		return ErrMalformedAccount.Wrapf("%s %s: length %d, want %d", what, a.Key, len(a.Data), size)
	}
	if a.Data[0] != TagUninitialized {
		return ErrAlreadyInitialized.Wrapf("%s %s", what, a.Key)
	}
	for _, b := range a.Data[1:] {
		if b != 0 {
			return ErrMalformedAccount.Wrapf("%s %s: uninitialized record carries data", what, a.Key)
		}
	}
	return nil
}

// requireAdmin binds the signing admin slot to the owner recorded in the game.
func requireAdmin(g *Game, admin *ledger.AccountInfo) error {
	if !admin.IsSigner {
		return ErrNotSigner.Wrapf("owner %s", admin.Key)
	}
	if !admin.Key.Equals(g.Owner) {
		return ErrWrongOwner.Wrapf("signer %s is not the game owner %s", admin.Key, g.Owner)
	}
	return nil
}

func requirePayee(g *Game, payee *ledger.AccountInfo) error {
	if !payee.Key.Equals(g.Owner) {
		return ErrWrongOwner.Wrapf("payee %s is not the game owner %s", payee.Key, g.Owner)
	}
	return nil
}

// requireClaimable binds a ticket to the game slot and the winner slot.
func requireClaimable(t *Ticket, game, winner *ledger.AccountInfo) error {
	if !t.Game.Equals(game.Key) {
		return ErrWrongGame.Wrapf("ticket game %s, instruction game %s", t.Game, game.Key)
	}
	if !t.Buyer.Equals(winner.Key) {
		return ErrWrongOwner.Wrapf("winner %s is not the ticket buyer %s", winner.Key, t.Buyer)
	}
	if t.Claimed {
		return ErrAlreadyClaimed
	}
	return nil
}

// requireRegistryAddress binds the registry slot to the owner's derived
// registry address and returns its bump seed.
func requireRegistryAddress(programID solana.PublicKey, owner, registry *ledger.AccountInfo) (uint8, error) {
	want, bump, err := RegistryAddress(programID, owner.Key)
	if err != nil {
		return 0, ErrInvalidParams.Wrap(err.Error())
	}
	if !registry.Key.Equals(want) {
		return 0, ErrWrongOwner.Wrapf("registry %s is not the registry of owner %s", registry.Key, owner.Key)
	}
	return bump, nil
}
