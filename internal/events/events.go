package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"cosmossdk.io/log"
	"github.com/nats-io/nats.go"
)

// Record is one program event from a committed block.
type Record struct {
	Height     int64             `json:"height"`
	TxHash     string            `json:"txHash"`
	Type       string            `json:"type"`
	Attributes map[string]string `json:"attributes"`
}

// Sink receives the events of each committed block, in delivery order.
type Sink interface {
	Publish(ctx context.Context, records []Record) error
	Close() error
}

type NopSink struct{}

func (NopSink) Publish(context.Context, []Record) error { return nil }
func (NopSink) Close() error                            { return nil }

// MemorySink keeps every published record; used by tests and the demo.
type MemorySink struct {
	mu      sync.Mutex
	records []Record
}

func (s *MemorySink) Publish(_ context.Context, records []Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, records...)
	return nil
}

func (s *MemorySink) Close() error { return nil }

func (s *MemorySink) Records() []Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Record(nil), s.records...)
}

// conn is the part of *nats.Conn the publisher uses.
type conn interface {
	Publish(subject string, data []byte) error
	FlushWithContext(ctx context.Context) error
	Close()
}

// NATSSink publishes each record as JSON on "<prefix>.<type>".
type NATSSink struct {
	conn   conn
	prefix string
	logger log.Logger
}

func NewNATSSink(url, token, prefix string, logger log.Logger) (*NATSSink, error) {
	opts := []nats.Option{
		nats.Name("lottod"),
	}
	if token != "" {
		opts = append(opts, nats.Token(token))
	}
	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect nats %s: %w", url, err)
	}
	return newNATSSink(nc, prefix, logger), nil
}

func newNATSSink(c conn, prefix string, logger log.Logger) *NATSSink {
	if logger == nil {
		logger = log.NewNopLogger()
	}
	if prefix == "" {
		prefix = "lottochain"
	}
	return &NATSSink{conn: c, prefix: prefix, logger: logger.With("module", "events")}
}

func (s *NATSSink) Subject(typ string) string {
	return s.prefix + "." + typ
}

func (s *NATSSink) Publish(ctx context.Context, records []Record) error {
	if len(records) == 0 {
		return nil
	}
	for _, r := range records {
		payload, err := json.Marshal(r)
		if err != nil {
			return err
		}
		if err := s.conn.Publish(s.Subject(r.Type), payload); err != nil {
			return fmt.Errorf("publish %s: %w", r.Type, err)
		}
	}
	if err := s.conn.FlushWithContext(ctx); err != nil {
		return fmt.Errorf("flush: %w", err)
	}
	s.logger.Debug("published events", "count", len(records), "height", records[0].Height)
	return nil
}

func (s *NATSSink) Close() error {
	s.conn.Close()
	return nil
}
