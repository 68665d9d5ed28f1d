package lottery

import (
	"bytes"
	"encoding/binary"
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"

	"lottochain/internal/draw"
)

// Record sizes are fixed so accounts can be allocated rent exempt up front.
const (
	GameSize     = 117
	TicketSize   = 72
	RegistrySize = 48
	ParamsSize   = 16
)

// Record tags (first byte of account data). Zero means uninitialized.
const (
	TagUninitialized byte = 0x00
	TagGame          byte = 0x01
	TagTicket        byte = 0x02
	TagRegistry      byte = 0x03
	TagParams        byte = 0x04
)

// Tiers is the number of prize tiers: 3, 4, 5 and 6 matching numbers.
const Tiers = 4

const gameReservedSize = GameSize - 114

type GameStatus uint8

const (
	StatusUninitialized GameStatus = iota
	StatusCreated
	StatusRandomnessPosted
	StatusWinnersSet
	StatusPayoutsInProgress
	StatusClosed
)

func (s GameStatus) String() string {
	switch s {
	case StatusUninitialized:
		return "uninitialized"
	case StatusCreated:
		return "created"
	case StatusRandomnessPosted:
		return "randomnessPosted"
	case StatusWinnersSet:
		return "winnersSet"
	case StatusPayoutsInProgress:
		return "payoutsInProgress"
	case StatusClosed:
		return "closed"
	default:
		return fmt.Sprintf("status(%d)", uint8(s))
	}
}

func (s GameStatus) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

func (s *GameStatus) UnmarshalText(b []byte) error {
	for v := StatusUninitialized; v <= StatusClosed; v++ {
		if v.String() == string(b) {
			*s = v
			return nil
		}
	}
	return fmt.Errorf("unknown game status %q", b)
}

// Drawn reports whether randomness has been posted and the game not closed.
func (s GameStatus) Drawn() bool {
	return s >= StatusRandomnessPosted && s < StatusClosed
}

// Game layout (little endian):
//
//	[0]       tag
//	[1:9]     creation_time (ms)
//	[9:17]    ticket_price
//	[17:21]   round
//	[21]      status
//	[22:54]   owner
//	[54:102]  entropy, 6 x u64
//	[102:106] winner_counts, one per tier
//	[106:110] claimed_counts, one per tier
//	[110:114] tickets_sold
//	[114:117] reserved
type Game struct {
	CreationTime  uint64            `json:"creationTime"`
	TicketPrice   uint64            `json:"ticketPrice"`
	Round         uint32            `json:"round"`
	Status        GameStatus        `json:"status"`
	Owner         solana.PublicKey  `json:"owner"`
	Entropy       [draw.Size]uint64 `json:"entropy"`
	WinnerCounts  [Tiers]uint8      `json:"winnerCounts"`
	ClaimedCounts [Tiers]uint8      `json:"claimedCounts"`
	TicketsSold   uint32            `json:"ticketsSold"`
}

// Pot is the ticket revenue collected by the administrator for this game.
func (g *Game) Pot() (uint64, error) {
	return mulUint64Checked(g.TicketPrice, uint64(g.TicketsSold), "pot")
}

func (g *Game) MarshalBinary() ([]byte, error) {
	buf := new(bytes.Buffer)
	buf.Grow(GameSize)
	enc := bin.NewBinEncoder(buf)

	if err := enc.WriteByte(TagGame); err != nil {
		return nil, err
	}
	if err := enc.WriteUint64(g.CreationTime, binary.LittleEndian); err != nil {
		return nil, err
	}
	if err := enc.WriteUint64(g.TicketPrice, binary.LittleEndian); err != nil {
		return nil, err
	}
	if err := enc.WriteUint32(g.Round, binary.LittleEndian); err != nil {
		return nil, err
	}
	if err := enc.WriteByte(byte(g.Status)); err != nil {
		return nil, err
	}
	if err := enc.WriteBytes(g.Owner[:], false); err != nil {
		return nil, err
	}
	for _, e := range g.Entropy {
		if err := enc.WriteUint64(e, binary.LittleEndian); err != nil {
			return nil, err
		}
	}
	if err := enc.WriteBytes(g.WinnerCounts[:], false); err != nil {
		return nil, err
	}
	if err := enc.WriteBytes(g.ClaimedCounts[:], false); err != nil {
		return nil, err
	}
	if err := enc.WriteUint32(g.TicketsSold, binary.LittleEndian); err != nil {
		return nil, err
	}
	if err := enc.WriteBytes(make([]byte, gameReservedSize), false); err != nil {
		return nil, err
	}
	if buf.Len() != GameSize {
		return nil, fmt.Errorf("game encoding produced %d bytes, want %d", buf.Len(), GameSize)
	}
	return buf.Bytes(), nil
}

func DecodeGame(data []byte) (*Game, error) {
	if len(data) != GameSize {
		return nil, ErrMalformedAccount.Wrapf("game: length %d, want %d", len(data), GameSize)
	}
	if data[0] != TagGame {
		return nil, ErrMalformedAccount.Wrapf("game: tag 0x%02x", data[0])
	}
	dec := bin.NewBinDecoder(data[1:])
	var (
		g   Game
		err error
	)
	if g.CreationTime, err = dec.ReadUint64(binary.LittleEndian); err != nil {
		return nil, ErrMalformedAccount.Wrap("game: creation_time")
	}
	if g.TicketPrice, err = dec.ReadUint64(binary.LittleEndian); err != nil {
		return nil, ErrMalformedAccount.Wrap("game: ticket_price")
	}
	if g.Round, err = dec.ReadUint32(binary.LittleEndian); err != nil {
		return nil, ErrMalformedAccount.Wrap("game: round")
	}
	status, err := dec.ReadByte()
	if err != nil {
		return nil, ErrMalformedAccount.Wrap("game: status")
	}
	g.Status = GameStatus(status)
	if g.Status == StatusUninitialized || g.Status > StatusClosed {
		return nil, ErrMalformedAccount.Wrapf("game: status %d", status)
	}
	owner, err := dec.ReadNBytes(solana.PublicKeyLength)
	if err != nil {
		return nil, ErrMalformedAccount.Wrap("game: owner")
	}
	g.Owner = solana.PublicKeyFromBytes(owner)
	for i := range g.Entropy {
		if g.Entropy[i], err = dec.ReadUint64(binary.LittleEndian); err != nil {
			return nil, ErrMalformedAccount.Wrap("game: entropy")
		}
	}
	counts, err := dec.ReadNBytes(Tiers)
	if err != nil {
		return nil, ErrMalformedAccount.Wrap("game: winner_counts")
	}
	copy(g.WinnerCounts[:], counts)
	claimed, err := dec.ReadNBytes(Tiers)
	if err != nil {
		return nil, ErrMalformedAccount.Wrap("game: claimed_counts")
	}
	copy(g.ClaimedCounts[:], claimed)
	if g.TicketsSold, err = dec.ReadUint32(binary.LittleEndian); err != nil {
		return nil, ErrMalformedAccount.Wrap("game: tickets_sold")
	}
	return &g, nil
}

// Ticket layout:
//
//	[0]      tag
//	[1:33]   buyer
//	[33:65]  game
//	[65:71]  numbers
//	[71]     claimed
type Ticket struct {
	Buyer   solana.PublicKey `json:"buyer"`
	Game    solana.PublicKey `json:"game"`
	Numbers [draw.Size]uint8 `json:"numbers"`
	Claimed bool             `json:"claimed"`
}

func (t *Ticket) MarshalBinary() ([]byte, error) {
	buf := new(bytes.Buffer)
	buf.Grow(TicketSize)
	enc := bin.NewBinEncoder(buf)

	if err := enc.WriteByte(TagTicket); err != nil {
		return nil, err
	}
	if err := enc.WriteBytes(t.Buyer[:], false); err != nil {
		return nil, err
	}
	if err := enc.WriteBytes(t.Game[:], false); err != nil {
		return nil, err
	}
	if err := enc.WriteBytes(t.Numbers[:], false); err != nil {
		return nil, err
	}
	if err := enc.WriteBool(t.Claimed); err != nil {
		return nil, err
	}
	if buf.Len() != TicketSize {
		return nil, fmt.Errorf("ticket encoding produced %d bytes, want %d", buf.Len(), TicketSize)
	}
	return buf.Bytes(), nil
}

func DecodeTicket(data []byte) (*Ticket, error) {
	if len(data) != TicketSize {
		return nil, ErrMalformedAccount.Wrapf("ticket: length %d, want %d", len(data), TicketSize)
	}
	if data[0] != TagTicket {
		return nil, ErrMalformedAccount.Wrapf("ticket: tag 0x%02x", data[0])
	}
	var t Ticket
	copy(t.Buyer[:], data[1:33])
	copy(t.Game[:], data[33:65])
	copy(t.Numbers[:], data[65:71])
	switch data[71] {
	case 0:
	case 1:
		t.Claimed = true
	default:
		return nil, ErrMalformedAccount.Wrapf("ticket: claimed byte 0x%02x", data[71])
	}
	return &t, nil
}

// Registry is the per-owner record that keeps rounds and creation times
// moving forward across all of an owner's games. It lives at the address
// RegistryAddress derives, so an owner has exactly one.
//
//	[0]      tag
//	[1:33]   owner
//	[33:37]  last_round
//	[37:45]  last_creation_time (ms)
//	[45:48]  reserved
type Registry struct {
	Owner            solana.PublicKey `json:"owner"`
	LastRound        uint32           `json:"lastRound"`
	LastCreationTime uint64           `json:"lastCreationTime"`
}

const registryReservedSize = RegistrySize - 45

func (r *Registry) MarshalBinary() ([]byte, error) {
	buf := new(bytes.Buffer)
	buf.Grow(RegistrySize)
	enc := bin.NewBinEncoder(buf)

	if err := enc.WriteByte(TagRegistry); err != nil {
		return nil, err
	}
	if err := enc.WriteBytes(r.Owner[:], false); err != nil {
		return nil, err
	}
	if err := enc.WriteUint32(r.LastRound, binary.LittleEndian); err != nil {
		return nil, err
	}
	if err := enc.WriteUint64(r.LastCreationTime, binary.LittleEndian); err != nil {
		return nil, err
	}
	if err := enc.WriteBytes(make([]byte, registryReservedSize), false); err != nil {
		return nil, err
	}
	if buf.Len() != RegistrySize {
		return nil, fmt.Errorf("registry encoding produced %d bytes, want %d", buf.Len(), RegistrySize)
	}
	return buf.Bytes(), nil
}

func DecodeRegistry(data []byte) (*Registry, error) {
	if len(data) != RegistrySize {
		return nil, ErrMalformedAccount.Wrapf("registry: length %d, want %d", len(data), RegistrySize)
	}
	if data[0] != TagRegistry {
		return nil, ErrMalformedAccount.Wrapf("registry: tag 0x%02x", data[0])
	}
	dec := bin.NewBinDecoder(data[1:])
	owner, err := dec.ReadNBytes(solana.PublicKeyLength)
	if err != nil {
		return nil, ErrMalformedAccount.Wrap("registry: owner")
	}
	r := Registry{Owner: solana.PublicKeyFromBytes(owner)}
	if r.LastRound, err = dec.ReadUint32(binary.LittleEndian); err != nil {
		return nil, ErrMalformedAccount.Wrap("registry: last_round")
	}
	if r.LastCreationTime, err = dec.ReadUint64(binary.LittleEndian); err != nil {
		return nil, ErrMalformedAccount.Wrap("registry: last_creation_time")
	}
	return &r, nil
}

// Params record, stored once per program at ParamsAddress:
//
//	[0]      tag
//	[1]      max_number
//	[2]      min_matches
//	[3:11]   tier_share_bps, 4 x u16
//	[11:16]  reserved
func (p Params) MarshalBinary() ([]byte, error) {
	buf := new(bytes.Buffer)
	buf.Grow(ParamsSize)
	enc := bin.NewBinEncoder(buf)

	if err := enc.WriteByte(TagParams); err != nil {
		return nil, err
	}
	if err := enc.WriteByte(p.MaxNumber); err != nil {
		return nil, err
	}
	if err := enc.WriteByte(p.MinMatches); err != nil {
		return nil, err
	}
	for _, bps := range p.TierShareBps {
		if err := enc.WriteUint16(bps, binary.LittleEndian); err != nil {
			return nil, err
		}
	}
	if err := enc.WriteBytes(make([]byte, ParamsSize-11), false); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func DecodeParams(data []byte) (Params, error) {
	if len(data) != ParamsSize {
		return Params{}, ErrMalformedAccount.Wrapf("params: length %d, want %d", len(data), ParamsSize)
	}
	if data[0] != TagParams {
		return Params{}, ErrMalformedAccount.Wrapf("params: tag 0x%02x", data[0])
	}
	p := Params{MaxNumber: data[1], MinMatches: data[2]}
	dec := bin.NewBinDecoder(data[3:])
	for i := range p.TierShareBps {
		bps, err := dec.ReadUint16(binary.LittleEndian)
		if err != nil {
			return Params{}, ErrMalformedAccount.Wrap("params: tier_share_bps")
		}
		p.TierShareBps[i] = bps
	}
	if err := p.Validate(); err != nil {
		return Params{}, ErrMalformedAccount.Wrap(err.Error())
	}
	return p, nil
}

// Seeds of the program's derived addresses.
var (
	registrySeed = []byte("registry")
	paramsSeed   = []byte("params")
)

// RegistryAddress derives the registry account of owner under programID.
func RegistryAddress(programID, owner solana.PublicKey) (solana.PublicKey, uint8, error) {
	return solana.FindProgramAddress([][]byte{registrySeed, owner[:]}, programID)
}

// ParamsAddress derives the account that records the program's params.
func ParamsAddress(programID solana.PublicKey) (solana.PublicKey, uint8, error) {
	return solana.FindProgramAddress([][]byte{paramsSeed}, programID)
}
