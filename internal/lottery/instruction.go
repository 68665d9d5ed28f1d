package lottery

import (
	"bytes"
	"encoding/binary"

	bin "github.com/gagliardetto/binary"

	"lottochain/internal/draw"
)

// Opcode is the first byte of lottery instruction data.
type Opcode uint8

const (
	OpCreateGame Opcode = iota
	OpBuyTicket
	OpPostRandomness
	OpSetWinnerCounts
	OpPayWinner
	OpCloseGame
	OpUpdatePrice
)

func (o Opcode) String() string {
	switch o {
	case OpCreateGame:
		return "create_game"
	case OpBuyTicket:
		return "buy_ticket"
	case OpPostRandomness:
		return "post_randomness"
	case OpSetWinnerCounts:
		return "set_winner_counts"
	case OpPayWinner:
		return "pay_winner"
	case OpCloseGame:
		return "close_game"
	case OpUpdatePrice:
		return "update_price"
	default:
		return "unknown"
	}
}

// Argument lengths, excluding the opcode byte.
const (
	createGameArgsLen       = 8 + 8 + 4
	createGameLegacyArgsLen = 8 + 8 + 1
	buyTicketArgsLen        = draw.Size
	postRandomnessArgsLen   = draw.Size * 8
	setWinnerCountsArgsLen  = Tiers
	updatePriceArgsLen      = 8
)

// Instruction is one decoded lottery instruction.
type Instruction interface {
	Opcode() Opcode
	// Encode returns the instruction data, opcode included.
	Encode() []byte
}

type CreateGame struct {
	CreationTime uint64
	TicketPrice  uint64
	Round        uint32
}

type BuyTicket struct {
	Numbers [draw.Size]uint8
}

type PostRandomness struct {
	Entropy [draw.Size]uint64
}

type SetWinnerCounts struct {
	Counts [Tiers]uint8
}

type PayWinner struct{}

type CloseGame struct{}

type UpdatePrice struct {
	TicketPrice uint64
}

func (CreateGame) Opcode() Opcode      { return OpCreateGame }
func (BuyTicket) Opcode() Opcode       { return OpBuyTicket }
func (PostRandomness) Opcode() Opcode  { return OpPostRandomness }
func (SetWinnerCounts) Opcode() Opcode { return OpSetWinnerCounts }
func (PayWinner) Opcode() Opcode       { return OpPayWinner }
func (CloseGame) Opcode() Opcode       { return OpCloseGame }
func (UpdatePrice) Opcode() Opcode     { return OpUpdatePrice }

func newEncoder(op Opcode, size int) (*bytes.Buffer, *bin.Encoder) {
	buf := new(bytes.Buffer)
	buf.Grow(1 + size)
	buf.WriteByte(byte(op))
	return buf, bin.NewBinEncoder(buf)
}

func (ix CreateGame) Encode() []byte {
	buf, enc := newEncoder(OpCreateGame, createGameArgsLen)
	_ = enc.WriteUint64(ix.CreationTime, binary.LittleEndian)
	_ = enc.WriteUint64(ix.TicketPrice, binary.LittleEndian)
	_ = enc.WriteUint32(ix.Round, binary.LittleEndian)
	return buf.Bytes()
}

func (ix BuyTicket) Encode() []byte {
	buf, enc := newEncoder(OpBuyTicket, buyTicketArgsLen)
	_ = enc.WriteBytes(ix.Numbers[:], false)
	return buf.Bytes()
}

func (ix PostRandomness) Encode() []byte {
	buf, enc := newEncoder(OpPostRandomness, postRandomnessArgsLen)
	for _, e := range ix.Entropy {
		_ = enc.WriteUint64(e, binary.LittleEndian)
	}
	return buf.Bytes()
}

func (ix SetWinnerCounts) Encode() []byte {
	buf, enc := newEncoder(OpSetWinnerCounts, setWinnerCountsArgsLen)
	_ = enc.WriteBytes(ix.Counts[:], false)
	return buf.Bytes()
}

func (PayWinner) Encode() []byte { return []byte{byte(OpPayWinner)} }
func (CloseGame) Encode() []byte { return []byte{byte(OpCloseGame)} }

func (ix UpdatePrice) Encode() []byte {
	buf, enc := newEncoder(OpUpdatePrice, updatePriceArgsLen)
	_ = enc.WriteUint64(ix.TicketPrice, binary.LittleEndian)
	return buf.Bytes()
}

// DecodeInstruction parses instruction data. Argument lengths are exact; any
// trailing or missing byte is ErrMalformedInstruction.
func DecodeInstruction(data []byte) (Instruction, error) {
	if len(data) == 0 {
		return nil, ErrMalformedInstruction.Wrap("empty instruction data")
	}
	op := Opcode(data[0])
	args := data[1:]
	dec := bin.NewBinDecoder(args)

	switch op {
	case OpCreateGame:
		var ix CreateGame
		switch len(args) {
		case createGameArgsLen, createGameLegacyArgsLen:
		default:
			return nil, ErrMalformedInstruction.Wrapf("%s: %d argument bytes", op, len(args))
		}
		ix.CreationTime, _ = dec.ReadUint64(binary.LittleEndian)
		ix.TicketPrice, _ = dec.ReadUint64(binary.LittleEndian)
		if len(args) == createGameLegacyArgsLen {
			// legacy form carries a single-byte round
			r, _ := dec.ReadByte()
			ix.Round = uint32(r)
		} else {
			ix.Round, _ = dec.ReadUint32(binary.LittleEndian)
		}
		return ix, nil

	case OpBuyTicket:
		if len(args) != buyTicketArgsLen {
			return nil, ErrMalformedInstruction.Wrapf("%s: %d argument bytes", op, len(args))
		}
		var ix BuyTicket
		copy(ix.Numbers[:], args)
		return ix, nil

	case OpPostRandomness:
		if len(args) != postRandomnessArgsLen {
			return nil, ErrMalformedInstruction.Wrapf("%s: %d argument bytes", op, len(args))
		}
		var ix PostRandomness
		for i := range ix.Entropy {
			ix.Entropy[i], _ = dec.ReadUint64(binary.LittleEndian)
		}
		return ix, nil

	case OpSetWinnerCounts:
		if len(args) != setWinnerCountsArgsLen {
			return nil, ErrMalformedInstruction.Wrapf("%s: %d argument bytes", op, len(args))
		}
		var ix SetWinnerCounts
		copy(ix.Counts[:], args)
		return ix, nil

	case OpPayWinner, OpCloseGame:
		if len(args) != 0 {
			return nil, ErrMalformedInstruction.Wrapf("%s: %d argument bytes", op, len(args))
		}
		if op == OpPayWinner {
			return PayWinner{}, nil
		}
		return CloseGame{}, nil

	case OpUpdatePrice:
		if len(args) != updatePriceArgsLen {
			return nil, ErrMalformedInstruction.Wrapf("%s: %d argument bytes", op, len(args))
		}
		var ix UpdatePrice
		ix.TicketPrice, _ = dec.ReadUint64(binary.LittleEndian)
		return ix, nil

	default:
		return nil, ErrUnknownInstruction.Wrapf("opcode 0x%02x", data[0])
	}
}
