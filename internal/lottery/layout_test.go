package lottery

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGameLayoutOffsets(t *testing.T) {
	owner := testKey("owner")
	g := &Game{
		CreationTime:  testCreationTime,
		TicketPrice:   testPrice,
		Round:         testRound,
		Status:        StatusWinnersSet,
		Owner:         owner,
		Entropy:       testEntropy,
		WinnerCounts:  [Tiers]uint8{1, 2, 3, 4},
		ClaimedCounts: [Tiers]uint8{0, 1, 0, 1},
		TicketsSold:   77,
	}
	bz, err := g.MarshalBinary()
	require.NoError(t, err)
	require.Len(t, bz, GameSize)

	require.Equal(t, TagGame, bz[0])
	require.Equal(t, testCreationTime, binary.LittleEndian.Uint64(bz[1:9]))
	require.Equal(t, testPrice, binary.LittleEndian.Uint64(bz[9:17]))
	require.Equal(t, testRound, binary.LittleEndian.Uint32(bz[17:21]))
	require.Equal(t, byte(StatusWinnersSet), bz[21])
	require.Equal(t, owner[:], bz[22:54])
	require.Equal(t, testEntropy[5], binary.LittleEndian.Uint64(bz[94:102]))
	require.Equal(t, []byte{1, 2, 3, 4}, bz[102:106])
	require.Equal(t, []byte{0, 1, 0, 1}, bz[106:110])
	require.Equal(t, uint32(77), binary.LittleEndian.Uint32(bz[110:114]))
	require.Equal(t, []byte{0, 0, 0}, bz[114:])

	got, err := DecodeGame(bz)
	require.NoError(t, err)
	require.Equal(t, g, got)
}

func TestDecodeGameRejects(t *testing.T) {
	g := &Game{Status: StatusCreated, Owner: testKey("owner")}
	valid, err := g.MarshalBinary()
	require.NoError(t, err)

	mutate := func(f func([]byte) []byte) []byte {
		return f(append([]byte(nil), valid...))
	}
	cases := map[string][]byte{
		"short":         valid[:GameSize-1],
		"uninitialized": make([]byte, GameSize),
		"ticket tag":    mutate(func(b []byte) []byte { b[0] = TagTicket; return b }),
		"zero status":   mutate(func(b []byte) []byte { b[21] = 0; return b }),
		"bad status":    mutate(func(b []byte) []byte { b[21] = 9; return b }),
	}
	for name, data := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := DecodeGame(data)
			require.ErrorIs(t, err, ErrMalformedAccount)
		})
	}
}

func TestTicketLayout(t *testing.T) {
	tk := &Ticket{
		Buyer:   testKey("buyer"),
		Game:    testKey("game"),
		Numbers: [6]uint8{0x26, 0x25, 0x0a, 0x0c, 0x24, 0x16},
		Claimed: true,
	}
	bz, err := tk.MarshalBinary()
	require.NoError(t, err)
	require.Len(t, bz, TicketSize)
	require.Equal(t, TagTicket, bz[0])
	require.Equal(t, tk.Buyer[:], bz[1:33])
	require.Equal(t, tk.Game[:], bz[33:65])
	require.Equal(t, tk.Numbers[:], bz[65:71])
	require.Equal(t, byte(1), bz[71])

	got, err := DecodeTicket(bz)
	require.NoError(t, err)
	require.Equal(t, tk, got)

	bz[71] = 2
	_, err = DecodeTicket(bz)
	require.ErrorIs(t, err, ErrMalformedAccount)

	_, err = DecodeTicket(make([]byte, TicketSize))
	require.ErrorIs(t, err, ErrMalformedAccount)
}

func TestGameStatusText(t *testing.T) {
	require.Equal(t, "payoutsInProgress", StatusPayoutsInProgress.String())
	require.True(t, StatusWinnersSet.Drawn())
	require.False(t, StatusCreated.Drawn())
	require.False(t, StatusClosed.Drawn())
}

func TestGameStatusTextRoundTrip(t *testing.T) {
	for s := StatusUninitialized; s <= StatusClosed; s++ {
		b, err := s.MarshalText()
		require.NoError(t, err)
		var got GameStatus
		require.NoError(t, got.UnmarshalText(b))
		require.Equal(t, s, got)
	}
	var bad GameStatus
	require.Error(t, bad.UnmarshalText([]byte("drawing")))
}

func TestRegistryLayout(t *testing.T) {
	owner := testKey("owner")
	r := &Registry{Owner: owner, LastRound: testRound, LastCreationTime: testCreationTime}
	bz, err := r.MarshalBinary()
	require.NoError(t, err)
	require.Len(t, bz, RegistrySize)
	require.Equal(t, TagRegistry, bz[0])
	require.Equal(t, owner[:], bz[1:33])
	require.Equal(t, testRound, binary.LittleEndian.Uint32(bz[33:37]))
	require.Equal(t, testCreationTime, binary.LittleEndian.Uint64(bz[37:45]))

	got, err := DecodeRegistry(bz)
	require.NoError(t, err)
	require.Equal(t, r, got)

	_, err = DecodeRegistry(bz[:RegistrySize-1])
	require.ErrorIs(t, err, ErrMalformedAccount)
	bz[0] = TagGame
	_, err = DecodeRegistry(bz)
	require.ErrorIs(t, err, ErrMalformedAccount)
}

func TestParamsLayout(t *testing.T) {
	p := DefaultParams()
	bz, err := p.MarshalBinary()
	require.NoError(t, err)
	require.Len(t, bz, ParamsSize)
	require.Equal(t, []byte{TagParams, p.MaxNumber, p.MinMatches}, bz[:3])
	require.Equal(t, p.TierShareBps[3], binary.LittleEndian.Uint16(bz[9:11]))

	got, err := DecodeParams(bz)
	require.NoError(t, err)
	require.Equal(t, p, got)

	// Shares summing past the pot are not a valid record.
	binary.LittleEndian.PutUint16(bz[9:11], BpsDenominator)
	_, err = DecodeParams(bz)
	require.ErrorIs(t, err, ErrMalformedAccount)
}

func TestDerivedAddressesAreDistinct(t *testing.T) {
	a, _, err := RegistryAddress(DefaultProgramID, testKey("a"))
	require.NoError(t, err)
	b, _, err := RegistryAddress(DefaultProgramID, testKey("b"))
	require.NoError(t, err)
	p, _, err := ParamsAddress(DefaultProgramID)
	require.NoError(t, err)
	require.NotEqual(t, a, b)
	require.NotEqual(t, a, p)
	require.False(t, a.IsOnCurve())
}
