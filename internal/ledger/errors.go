package ledger

import errorsmod "cosmossdk.io/errors"

const Codespace = "ledger"

// Runtime and system program sentinel errors.
var (
	ErrInvalidTx                = errorsmod.Register(Codespace, 1, "invalid transaction")
	ErrMissingSignature         = errorsmod.Register(Codespace, 2, "account marked signer without signature")
	ErrInvalidSignature         = errorsmod.Register(Codespace, 3, "invalid signature")
	ErrReplayedNonce            = errorsmod.Register(Codespace, 4, "replayed nonce")
	ErrUnknownProgram           = errorsmod.Register(Codespace, 5, "unknown program")
	ErrAccountAlreadyInUse      = errorsmod.Register(Codespace, 6, "account already in use")
	ErrInsufficientFunds        = errorsmod.Register(Codespace, 7, "insufficient funds")
	ErrExternalAccountModified  = errorsmod.Register(Codespace, 8, "instruction modified an account it does not own")
	ErrUnbalancedInstruction    = errorsmod.Register(Codespace, 9, "instruction changed total lamports")
	ErrReadonlyModified         = errorsmod.Register(Codespace, 10, "instruction modified a read-only account")
	ErrNotEnoughAccountKeys     = errorsmod.Register(Codespace, 11, "not enough account keys")
	ErrInvalidInstructionData   = errorsmod.Register(Codespace, 12, "invalid instruction data")
	ErrMissingRequiredSignature = errorsmod.Register(Codespace, 13, "missing required signature")
	ErrAccountNotRentExempt     = errorsmod.Register(Codespace, 14, "account not rent exempt")
	ErrInvalidAccountOwner      = errorsmod.Register(Codespace, 15, "invalid account owner")
	ErrAccountDataTooLarge      = errorsmod.Register(Codespace, 16, "account data too large")
	ErrInvalidSeeds             = errorsmod.Register(Codespace, 17, "seeds do not derive the account address")
)
