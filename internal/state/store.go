package state

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"time"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	bolt "go.etcd.io/bbolt"
)

var (
	bucketAccounts = []byte("accounts_by_key")
	bucketNonces   = []byte("nonce_max_by_payer")
	bucketMeta     = []byte("meta")

	keyHeight = []byte("height")
)

// Store persists committed State snapshots in a bbolt database.
type Store struct {
	path string
	db   *bolt.DB
}

func Open(home string) (*Store, error) {
	if home == "" {
		return nil, fmt.Errorf("home required")
	}
	if err := os.MkdirAll(home, 0o755); err != nil {
		return nil, fmt.Errorf("mkdir home: %w", err)
	}
	path := filepath.Join(home, "state.db")
	bdb, err := bolt.Open(path, 0o600, &bolt.Options{
		Timeout: 1 * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("open bbolt: %w", err)
	}
	if err := bdb.Update(func(tx *bolt.Tx) error {
		for _, b := range [][]byte{bucketAccounts, bucketNonces, bucketMeta} {
			if _, err := tx.CreateBucketIfNotExists(b); err != nil {
				return fmt.Errorf("create bucket %s: %w", string(b), err)
			}
		}
		return nil
	}); err != nil {
		_ = bdb.Close()
		return nil, err
	}
	return &Store{path: path, db: bdb}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) Path() string { return s.path }

// Load reads the last saved snapshot. A fresh database yields NewState().
func (s *Store) Load() (*State, error) {
	st := NewState()
	err := s.db.View(func(tx *bolt.Tx) error {
		if v := tx.Bucket(bucketMeta).Get(keyHeight); v != nil {
			if len(v) != 8 {
				return fmt.Errorf("invalid height encoding")
			}
			st.Height = int64(binary.LittleEndian.Uint64(v))
		}
		if err := tx.Bucket(bucketAccounts).ForEach(func(k, v []byte) error {
			if len(k) != solana.PublicKeyLength {
				return fmt.Errorf("invalid account key length %d", len(k))
			}
			a, err := decodeAccount(v)
			if err != nil {
				return fmt.Errorf("account %s: %w", solana.PublicKeyFromBytes(k), err)
			}
			st.Accounts[solana.PublicKeyFromBytes(k)] = a
			return nil
		}); err != nil {
			return err
		}
		return tx.Bucket(bucketNonces).ForEach(func(k, v []byte) error {
			if len(k) != solana.PublicKeyLength || len(v) != 8 {
				return fmt.Errorf("invalid nonce entry")
			}
			st.NonceMax[solana.PublicKeyFromBytes(k)] = binary.LittleEndian.Uint64(v)
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("load state: %w", err)
	}
	return st, nil
}

// Save replaces the stored snapshot with st in a single bbolt transaction.
func (s *Store) Save(st *State) error {
	if st == nil {
		return fmt.Errorf("state is nil")
	}
	err := s.db.Update(func(tx *bolt.Tx) error {
		for _, name := range [][]byte{bucketAccounts, bucketNonces} {
			if err := tx.DeleteBucket(name); err != nil {
				return fmt.Errorf("reset bucket %s: %w", string(name), err)
			}
			if _, err := tx.CreateBucket(name); err != nil {
				return fmt.Errorf("create bucket %s: %w", string(name), err)
			}
		}
		accounts := tx.Bucket(bucketAccounts)
		for k, a := range st.Accounts {
			if a == nil {
				continue
			}
			v, err := encodeAccount(a)
			if err != nil {
				return fmt.Errorf("account %s: %w", k, err)
			}
			key := k
			if err := accounts.Put(key[:], v); err != nil {
				return err
			}
		}
		nonces := tx.Bucket(bucketNonces)
		for k, n := range st.NonceMax {
			v := make([]byte, 8)
			binary.LittleEndian.PutUint64(v, n)
			key := k
			if err := nonces.Put(key[:], v); err != nil {
				return err
			}
		}
		h := make([]byte, 8)
		binary.LittleEndian.PutUint64(h, uint64(st.Height))
		return tx.Bucket(bucketMeta).Put(keyHeight, h)
	})
	if err != nil {
		return fmt.Errorf("save state: %w", err)
	}
	return nil
}

// account encoding: owner(32) || lamports(u64 LE) || executable(1) || len(u32 LE) || data
func encodeAccount(a *Account) ([]byte, error) {
	buf := new(bytes.Buffer)
	enc := bin.NewBinEncoder(buf)
	if err := enc.WriteBytes(a.Owner[:], false); err != nil {
		return nil, err
	}
	if err := enc.WriteUint64(a.Lamports, binary.LittleEndian); err != nil {
		return nil, err
	}
	if err := enc.WriteBool(a.Executable); err != nil {
		return nil, err
	}
	if err := enc.WriteUint32(uint32(len(a.Data)), binary.LittleEndian); err != nil {
		return nil, err
	}
	if err := enc.WriteBytes(a.Data, false); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decodeAccount(b []byte) (*Account, error) {
	dec := bin.NewBinDecoder(b)
	owner, err := dec.ReadNBytes(solana.PublicKeyLength)
	if err != nil {
		return nil, fmt.Errorf("owner: %w", err)
	}
	lamports, err := dec.ReadUint64(binary.LittleEndian)
	if err != nil {
		return nil, fmt.Errorf("lamports: %w", err)
	}
	executable, err := dec.ReadBool()
	if err != nil {
		return nil, fmt.Errorf("executable: %w", err)
	}
	n, err := dec.ReadUint32(binary.LittleEndian)
	if err != nil {
		return nil, fmt.Errorf("data length: %w", err)
	}
	if int(n) != dec.Remaining() {
		return nil, fmt.Errorf("data length mismatch: header=%d remaining=%d", n, dec.Remaining())
	}
	var data []byte
	if n > 0 {
		data, err = dec.ReadNBytes(int(n))
		if err != nil {
			return nil, fmt.Errorf("data: %w", err)
		}
		data = append([]byte(nil), data...)
	}
	return &Account{
		Owner:      solana.PublicKeyFromBytes(owner),
		Lamports:   lamports,
		Data:       data,
		Executable: executable,
	}, nil
}
