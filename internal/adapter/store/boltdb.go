package store

import (
	"encoding/json"
	"fmt"
	"time"

	"go.etcd.io/bbolt"

	"repolens/internal/port"
)

var (
	bucketCompletions = []byte("completions")
	bucketStats       = []byte("stats")
)

var _ port.CompletionCache = (*BoltStore)(nil)

// BoltStore persists model replies across runs.
type BoltStore struct {
	db  *bbolt.DB
	ttl time.Duration
	now func() time.Time
}

type completion struct {
	Value     string `json:"value"`
	CreatedAt int64  `json:"created_at"`
}

// NewBoltStore opens (or creates) the database at path. Entries older than
// ttl are treated as absent; a zero ttl keeps entries forever.
func NewBoltStore(path string, ttl time.Duration) (*BoltStore, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt db: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, b := range [][]byte{bucketCompletions, bucketStats} {
			if _, err := tx.CreateBucketIfNotExists(b); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", b, err)
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &BoltStore{db: db, ttl: ttl, now: time.Now}, nil
}

func (s *BoltStore) Get(key string) (string, bool) {
	var value string
	var found bool
	_ = s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketCompletions).Get([]byte(key))
		if data == nil {
			return nil
		}
		var c completion
		if err := json.Unmarshal(data, &c); err != nil {
			return nil
		}
		if s.ttl > 0 && s.now().Sub(time.Unix(c.CreatedAt, 0)) > s.ttl {
			return nil
		}
		value, found = c.Value, true
		return nil
	})
	return value, found
}

func (s *BoltStore) Put(key, value string) error {
	data, err := json.Marshal(completion{Value: value, CreatedAt: s.now().Unix()})
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketCompletions).Put([]byte(key), data)
	})
}

// Len returns the number of stored replies, expired ones included.
func (s *BoltStore) Len() int {
	n := 0
	_ = s.db.View(func(tx *bbolt.Tx) error {
		n = tx.Bucket(bucketCompletions).Stats().KeyN
		return nil
	})
	return n
}

// Prune deletes expired replies and returns how many were removed.
func (s *BoltStore) Prune() (int, error) {
	if s.ttl <= 0 {
		return 0, nil
	}
	removed := 0
	err := s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketCompletions)
		var expired [][]byte
		err := b.ForEach(func(k, v []byte) error {
			var c completion
			if err := json.Unmarshal(v, &c); err != nil || s.now().Sub(time.Unix(c.CreatedAt, 0)) > s.ttl {
				expired = append(expired, append([]byte(nil), k...))
			}
			return nil
		})
		if err != nil {
			return err
		}
		for _, k := range expired {
			if err := b.Delete(k); err != nil {
				return err
			}
		}
		removed = len(expired)
		return nil
	})
	return removed, err
}

func (s *BoltStore) Close() error {
	return s.db.Close()
}
