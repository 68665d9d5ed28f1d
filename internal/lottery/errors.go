package lottery

import errorsmod "cosmossdk.io/errors"

// Codespace is the ABCI codespace reported for lottery program failures.
const Codespace = "lottery"

// Lottery program sentinel errors. Every one of them aborts the enclosing
// transaction; the executor discards all account writes.
var (
	ErrMalformedInstruction = errorsmod.Register(Codespace, 1, "malformed instruction")
	ErrUnknownInstruction   = errorsmod.Register(Codespace, 2, "unknown instruction")
	ErrWrongAccountCount    = errorsmod.Register(Codespace, 3, "wrong account count")
	ErrNotSigner            = errorsmod.Register(Codespace, 4, "required signature missing")
	ErrWrongOwner           = errorsmod.Register(Codespace, 5, "wrong owner")
	ErrAlreadyInitialized   = errorsmod.Register(Codespace, 6, "account already initialized")
	ErrInvalidGameState     = errorsmod.Register(Codespace, 7, "invalid game state")
	ErrAlreadyDrawn         = errorsmod.Register(Codespace, 8, "randomness already posted")
	ErrArithmeticOverflow   = errorsmod.Register(Codespace, 9, "arithmetic overflow")
	ErrInsufficientFunds    = errorsmod.Register(Codespace, 10, "insufficient funds")
	ErrMalformedAccount     = errorsmod.Register(Codespace, 11, "malformed account")
	ErrWrongGame            = errorsmod.Register(Codespace, 12, "ticket belongs to another game")
	ErrAlreadyClaimed       = errorsmod.Register(Codespace, 13, "ticket already claimed")
	ErrNoPrize              = errorsmod.Register(Codespace, 14, "ticket does not win a prize")
	ErrInvalidParams        = errorsmod.Register(Codespace, 15, "invalid program params")
)
