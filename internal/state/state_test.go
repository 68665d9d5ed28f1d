package state

import (
	"bytes"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/require"
)

func testKey(b byte) solana.PublicKey {
	var k solana.PublicKey
	for i := range k {
		k[i] = b
	}
	return k
}

func TestAppHash_StableAcrossMapOrder(t *testing.T) {
	s1 := NewState()
	s1.Height = 7
	s1.SetAccount(testKey(2), &Account{Owner: solana.SystemProgramID, Lamports: 2})
	s1.SetAccount(testKey(1), &Account{Owner: solana.SystemProgramID, Lamports: 1})

	s2 := NewState()
	s2.Height = 7
	s2.SetAccount(testKey(1), &Account{Owner: solana.SystemProgramID, Lamports: 1})
	s2.SetAccount(testKey(2), &Account{Owner: solana.SystemProgramID, Lamports: 2})

	h1 := s1.AppHash()
	h2 := s2.AppHash()
	if !bytes.Equal(h1, h2) {
		t.Fatalf("expected stable app hash; h1=%x h2=%x", h1, h2)
	}

	// Any semantic change should change the hash.
	require.NoError(t, s2.Credit(testKey(1), 8))
	h3 := s2.AppHash()
	if bytes.Equal(h1, h3) {
		t.Fatalf("expected hash to change after state mutation")
	}
}

func TestClone_IsDeep(t *testing.T) {
	s := NewState()
	s.SetAccount(testKey(1), &Account{Owner: testKey(9), Lamports: 5, Data: []byte{1, 2, 3}})
	s.NonceMax[testKey(1)] = 4

	c, err := s.Clone()
	require.NoError(t, err)

	c.Accounts[testKey(1)].Data[0] = 0xff
	c.Accounts[testKey(1)].Lamports = 0
	c.NonceMax[testKey(1)] = 99

	require.Equal(t, byte(1), s.Accounts[testKey(1)].Data[0])
	require.Equal(t, uint64(5), s.Balance(testKey(1)))
	require.Equal(t, uint64(4), s.NonceMax[testKey(1)])
}

func TestAccount_UnknownReadsAsEmptySystemAccount(t *testing.T) {
	s := NewState()
	a := s.Account(testKey(3))
	require.True(t, a.IsEmpty())
	require.True(t, a.Owner.Equals(solana.SystemProgramID))

	// Mutating the returned copy must not leak into state.
	a.Lamports = 10
	require.Equal(t, uint64(0), s.Balance(testKey(3)))
}

func TestSetAccount_PrunesEmptySystemAccounts(t *testing.T) {
	s := NewState()
	s.SetAccount(testKey(1), &Account{Owner: solana.SystemProgramID, Lamports: 1})
	require.Len(t, s.Accounts, 1)
	s.SetAccount(testKey(1), &Account{Owner: solana.SystemProgramID})
	require.Empty(t, s.Accounts)
}

func TestCredit_Overflow(t *testing.T) {
	s := NewState()
	require.NoError(t, s.Credit(testKey(1), ^uint64(0)))
	require.Error(t, s.Credit(testKey(1), 1))
	require.Equal(t, ^uint64(0), s.Balance(testKey(1)))
}
