package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"cosmossdk.io/log"
	"github.com/stretchr/testify/require"
)

type fakeConn struct {
	subjects []string
	payloads [][]byte
	flushed  int
	closed   bool
	failOn   string
}

func (c *fakeConn) Publish(subject string, data []byte) error {
	if subject == c.failOn {
		return errors.New("boom")
	}
	c.subjects = append(c.subjects, subject)
	c.payloads = append(c.payloads, data)
	return nil
}

func (c *fakeConn) FlushWithContext(context.Context) error {
	c.flushed++
	return nil
}

func (c *fakeConn) Close() { c.closed = true }

func TestNATSSinkPublishes(t *testing.T) {
	fc := &fakeConn{}
	s := newNATSSink(fc, "lotto", log.NewNopLogger())

	recs := []Record{
		{Height: 3, TxHash: "aa", Type: "TicketPurchased", Attributes: map[string]string{"buyer": "x"}},
		{Height: 3, TxHash: "bb", Type: "WinnerPaid", Attributes: map[string]string{"amount": "5"}},
	}
	require.NoError(t, s.Publish(context.Background(), recs))
	require.Equal(t, []string{"lotto.TicketPurchased", "lotto.WinnerPaid"}, fc.subjects)
	require.Equal(t, 1, fc.flushed)

	var got Record
	require.NoError(t, json.Unmarshal(fc.payloads[1], &got))
	require.Equal(t, recs[1], got)

	require.NoError(t, s.Publish(context.Background(), nil))
	require.Equal(t, 1, fc.flushed, "empty blocks are not flushed")

	require.NoError(t, s.Close())
	require.True(t, fc.closed)
}

func TestNATSSinkPublishError(t *testing.T) {
	fc := &fakeConn{failOn: "lottochain.GameClosed"}
	s := newNATSSink(fc, "", nil)
	err := s.Publish(context.Background(), []Record{{Type: "GameClosed"}})
	require.Error(t, err)
	require.Zero(t, fc.flushed)
}

func TestNewNATSSinkUnreachable(t *testing.T) {
	_, err := NewNATSSink("nats://127.0.0.1:1", "", "lotto", log.NewNopLogger())
	require.Error(t, err)
}

func TestMemorySink(t *testing.T) {
	var s MemorySink
	require.NoError(t, s.Publish(context.Background(), []Record{{Type: "a"}}))
	require.NoError(t, s.Publish(context.Background(), []Record{{Type: "b"}}))
	got := s.Records()
	require.Len(t, got, 2)
	require.Equal(t, "b", got[1].Type)
}
