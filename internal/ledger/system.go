package ledger

import (
	"bytes"
	"encoding/binary"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
)

// System instruction discriminants (u32 LE at the head of instruction data).
const (
	SystemCreateAccount uint32 = 0
	SystemTransfer      uint32 = 2
)

// SystemProgram creates accounts and moves lamports between system-owned
// accounts.
type SystemProgram struct{}

func (SystemProgram) ID() solana.PublicKey { return solana.SystemProgramID }

func (p SystemProgram) Process(ctx *InvokeContext, accounts []*AccountInfo, data []byte) error {
	dec := bin.NewBinDecoder(data)
	kind, err := dec.ReadUint32(binary.LittleEndian)
	if err != nil {
		return ErrInvalidInstructionData.Wrap("missing discriminant")
	}
	switch kind {
	case SystemCreateAccount:
		lamports, err := dec.ReadUint64(binary.LittleEndian)
		if err != nil {
			return ErrInvalidInstructionData.Wrap("create_account: lamports")
		}
		space, err := dec.ReadUint64(binary.LittleEndian)
		if err != nil {
			return ErrInvalidInstructionData.Wrap("create_account: space")
		}
		owner, err := dec.ReadNBytes(solana.PublicKeyLength)
		if err != nil {
			return ErrInvalidInstructionData.Wrap("create_account: owner")
		}
		if dec.Remaining() != 0 {
			return ErrInvalidInstructionData.Wrap("create_account: trailing bytes")
		}
		if len(accounts) < 2 {
			return ErrNotEnoughAccountKeys.Wrapf("create_account needs 2 accounts, got %d", len(accounts))
		}
		return createAccount(ctx, accounts[0], accounts[1], lamports, space, solana.PublicKeyFromBytes(owner))

	case SystemTransfer:
		lamports, err := dec.ReadUint64(binary.LittleEndian)
		if err != nil {
			return ErrInvalidInstructionData.Wrap("transfer: lamports")
		}
		if dec.Remaining() != 0 {
			return ErrInvalidInstructionData.Wrap("transfer: trailing bytes")
		}
		if len(accounts) < 2 {
			return ErrNotEnoughAccountKeys.Wrapf("transfer needs 2 accounts, got %d", len(accounts))
		}
		return transfer(accounts[0], accounts[1], lamports)

	default:
		return ErrInvalidInstructionData.Wrapf("unsupported system instruction %d", kind)
	}
}

func createAccount(ctx *InvokeContext, funder, acct *AccountInfo, lamports, space uint64, owner solana.PublicKey) error {
	if !funder.IsSigner {
		return ErrMissingRequiredSignature.Wrapf("funder %s", funder.Key)
	}
	if !acct.IsSigner {
		return ErrMissingRequiredSignature.Wrapf("new account %s", acct.Key)
	}
	if !funder.IsWritable || !acct.IsWritable {
		return ErrReadonlyModified.Wrap("create_account accounts must be writable")
	}
	if funder.Key == acct.Key {
		return ErrAccountAlreadyInUse.Wrap("funder and new account are the same")
	}
	if !acct.IsEmpty() || !acct.Owner.Equals(solana.SystemProgramID) {
		return ErrAccountAlreadyInUse.Wrapf("account %s", acct.Key)
	}
	if space > MaxAccountDataSize {
		return ErrAccountDataTooLarge.Wrapf("space=%d", space)
	}
	if need := ctx.Rent().MinimumBalance(space); lamports < need {
		return ErrAccountNotRentExempt.Wrapf("lamports=%d need=%d", lamports, need)
	}
	if err := transfer(funder, acct, lamports); err != nil {
		return err
	}
	acct.Data = make([]byte, space)
	acct.Owner = owner
	return nil
}

func transfer(from, to *AccountInfo, lamports uint64) error {
	if !from.IsSigner {
		return ErrMissingRequiredSignature.Wrapf("transfer source %s", from.Key)
	}
	if !from.IsWritable || !to.IsWritable {
		return ErrReadonlyModified.Wrap("transfer accounts must be writable")
	}
	if !from.Owner.Equals(solana.SystemProgramID) || len(from.Data) != 0 {
		return ErrInvalidAccountOwner.Wrapf("transfer source %s must be a plain system account", from.Key)
	}
	if from.Lamports < lamports {
		return ErrInsufficientFunds.Wrapf("have=%d need=%d", from.Lamports, lamports)
	}
	if from.Key == to.Key {
		return nil
	}
	if to.Lamports > ^uint64(0)-lamports {
		return ErrInvalidInstructionData.Wrap("transfer overflows destination balance")
	}
	from.Lamports -= lamports
	to.Lamports += lamports
	return nil
}

// CreateAccount builds a system create_account instruction.
func CreateAccount(funder, newAccount solana.PublicKey, lamports, space uint64, owner solana.PublicKey) Instruction {
	buf := new(bytes.Buffer)
	enc := bin.NewBinEncoder(buf)
	_ = enc.WriteUint32(SystemCreateAccount, binary.LittleEndian)
	_ = enc.WriteUint64(lamports, binary.LittleEndian)
	_ = enc.WriteUint64(space, binary.LittleEndian)
	_ = enc.WriteBytes(owner[:], false)
	return Instruction{
		ProgramID: solana.SystemProgramID,
		Accounts: []AccountMeta{
			Meta(funder, true, true),
			Meta(newAccount, true, true),
		},
		Data: buf.Bytes(),
	}
}

// Transfer builds a system transfer instruction.
func Transfer(from, to solana.PublicKey, lamports uint64) Instruction {
	buf := new(bytes.Buffer)
	enc := bin.NewBinEncoder(buf)
	_ = enc.WriteUint32(SystemTransfer, binary.LittleEndian)
	_ = enc.WriteUint64(lamports, binary.LittleEndian)
	return Instruction{
		ProgramID: solana.SystemProgramID,
		Accounts: []AccountMeta{
			Meta(from, true, true),
			Meta(to, false, true),
		},
		Data: buf.Bytes(),
	}
}
