package codec

import (
	"github.com/gagliardetto/solana-go"

	"lottochain/internal/draw"
	"lottochain/internal/ledger"
	"lottochain/internal/lottery"
)

// Allocate creates a rent-exempt, zeroed account of size bytes owned by
// programID. The new account must sign the transaction.
func Allocate(rent ledger.Rent, programID, funder, account solana.PublicKey, size uint64) ledger.Instruction {
	return ledger.CreateAccount(funder, account, rent.MinimumBalance(size), size, programID)
}

// CreateGame also passes the owner's registry, which the program creates on
// the owner's first game at the owner's expense.
func CreateGame(programID, game, owner solana.PublicKey, args lottery.CreateGame) (ledger.Instruction, error) {
	registry, _, err := lottery.RegistryAddress(programID, owner)
	if err != nil {
		return ledger.Instruction{}, err
	}
	return ledger.Instruction{
		ProgramID: programID,
		Accounts: []ledger.AccountMeta{
			ledger.Meta(game, true, true),
			ledger.Meta(owner, true, true),
			ledger.Meta(registry, false, true),
			ledger.Meta(solana.SystemProgramID, false, false),
		},
		Data: args.Encode(),
	}, nil
}

func BuyTicket(programID, buyer, ticket, game, payee solana.PublicKey, numbers [draw.Size]uint8) ledger.Instruction {
	return ledger.Instruction{
		ProgramID: programID,
		Accounts: []ledger.AccountMeta{
			ledger.Meta(buyer, true, true),
			ledger.Meta(ticket, true, true),
			ledger.Meta(game, false, true),
			ledger.Meta(payee, false, true),
			ledger.Meta(solana.SystemProgramID, false, false),
		},
		Data: lottery.BuyTicket{Numbers: numbers}.Encode(),
	}
}

func adminInstruction(programID, game, owner solana.PublicKey, ix lottery.Instruction) ledger.Instruction {
	return ledger.Instruction{
		ProgramID: programID,
		Accounts: []ledger.AccountMeta{
			ledger.Meta(game, false, true),
			ledger.Meta(owner, true, false),
		},
		Data: ix.Encode(),
	}
}

func PostRandomness(programID, game, owner solana.PublicKey, entropy [draw.Size]uint64) ledger.Instruction {
	return adminInstruction(programID, game, owner, lottery.PostRandomness{Entropy: entropy})
}

func SetWinnerCounts(programID, game, owner solana.PublicKey, counts [lottery.Tiers]uint8) ledger.Instruction {
	return adminInstruction(programID, game, owner, lottery.SetWinnerCounts{Counts: counts})
}

func CloseGame(programID, game, owner solana.PublicKey) ledger.Instruction {
	return adminInstruction(programID, game, owner, lottery.CloseGame{})
}

func UpdatePrice(programID, game, owner solana.PublicKey, price uint64) ledger.Instruction {
	return adminInstruction(programID, game, owner, lottery.UpdatePrice{TicketPrice: price})
}

func PayWinner(programID, game, owner, winner, ticket solana.PublicKey) ledger.Instruction {
	return ledger.Instruction{
		ProgramID: programID,
		Accounts: []ledger.AccountMeta{
			ledger.Meta(game, false, true),
			ledger.Meta(owner, true, true),
			ledger.Meta(winner, false, true),
			ledger.Meta(ticket, false, true),
			ledger.Meta(solana.SystemProgramID, false, false),
		},
		Data: lottery.PayWinner{}.Encode(),
	}
}
