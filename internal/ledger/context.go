package ledger

import (
	"cosmossdk.io/log"
	"github.com/gagliardetto/solana-go"
)

// InvokeContext carries the services a program may use while processing a
// single instruction.
type InvokeContext struct {
	programID solana.PublicKey
	clock     Clock
	rent      Rent
	logger    log.Logger

	// lamports debited from each account through the system transfer primitive
	systemDebits map[solana.PublicKey]uint64
	// accounts this instruction allocated at the program's derived addresses
	derived map[solana.PublicKey]bool
	events  []Event
}

func newInvokeContext(programID solana.PublicKey, clock Clock, rent Rent, logger log.Logger) *InvokeContext {
	return &InvokeContext{
		programID:    programID,
		clock:        clock,
		rent:         rent,
		logger:       logger,
		systemDebits: map[solana.PublicKey]uint64{},
		derived:      map[solana.PublicKey]bool{},
	}
}

func (c *InvokeContext) ProgramID() solana.PublicKey { return c.programID }
func (c *InvokeContext) Clock() Clock                { return c.clock }
func (c *InvokeContext) Rent() Rent                  { return c.rent }
func (c *InvokeContext) Logger() log.Logger          { return c.logger }

// Transfer moves lamports between two instruction accounts through the system
// program, with the same checks a direct system transfer would get: the
// source must be a signer, system-owned and carry no data.
func (c *InvokeContext) Transfer(from, to *AccountInfo, lamports uint64) error {
	if err := transfer(from, to, lamports); err != nil {
		return err
	}
	if lamports > 0 && from.Key != to.Key {
		c.systemDebits[from.Key] += lamports
	}
	return nil
}

// CreateDerivedAccount allocates space zeroed bytes at the address derived
// from seeds (bump included) and the invoking program, and hands the account
// to that program. Derived addresses have no private key, so this replaces
// the new-account signature a system create_account needs. The funder tops
// the account up to rent exemption.
func (c *InvokeContext) CreateDerivedAccount(funder, acct *AccountInfo, space uint64, seeds [][]byte) error {
	addr, err := solana.CreateProgramAddress(seeds, c.programID)
	if err != nil {
		return ErrInvalidSeeds.Wrap(err.Error())
	}
	if !addr.Equals(acct.Key) {
		return ErrInvalidSeeds.Wrapf("seeds derive %s, account is %s", addr, acct.Key)
	}
	if !acct.IsWritable {
		return ErrReadonlyModified.Wrapf("derived account %s", acct.Key)
	}
	if !acct.Owner.Equals(solana.SystemProgramID) || len(acct.Data) != 0 || acct.Executable {
		return ErrAccountAlreadyInUse.Wrapf("account %s", acct.Key)
	}
	if space > MaxAccountDataSize {
		return ErrAccountDataTooLarge.Wrapf("space=%d", space)
	}
	// A pre-funded address only needs the shortfall.
	if need := c.rent.MinimumBalance(space); acct.Lamports < need {
		if err := c.Transfer(funder, acct, need-acct.Lamports); err != nil {
			return err
		}
	}
	acct.Data = make([]byte, space)
	acct.Owner = c.programID
	c.derived[acct.Key] = true
	return nil
}

func (c *InvokeContext) Emit(typ string, attrs ...Attribute) {
	c.events = append(c.events, Event{Type: typ, Attributes: attrs})
}

func Attr(key, value string) Attribute {
	return Attribute{Key: key, Value: value}
}
