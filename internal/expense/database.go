package expense

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.etcd.io/bbolt"
)

const (
	sessionBucketName = "sessions"
	usageBucketName   = "usage"
)

// BoltDB backs both the SessionStore and the UsageLedger with a bbolt
// database so pending clarifications and usage history survive restarts.
type BoltDB struct {
	db         *bbolt.DB
	sessionTTL time.Duration
	timeSource TimeSource
}

// NewBoltDB creates a new BoltDB instance. A sessionTTL of zero means
// pending sessions never expire.
func NewBoltDB(path string, sessionTTL time.Duration) (*BoltDB, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening boltdb: %w", err)
	}

	// Create buckets if they don't exist
	err = db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists([]byte(sessionBucketName)); err != nil {
			return err
		}
		if _, err := tx.CreateBucketIfNotExists([]byte(usageBucketName)); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating buckets: %w", err)
	}

	return &BoltDB{
		db:         db,
		sessionTTL: sessionTTL,
		timeSource: &defaultTimeSource{},
	}, nil
}

// Put stores a session for a user, replacing any existing one.
func (b *BoltDB) Put(userID string, session Session) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(sessionBucketName))
		data, err := json.Marshal(session)
		if err != nil {
			return fmt.Errorf("marshaling session: %w", err)
		}
		return bucket.Put([]byte(userID), data)
	})
}

// Take removes and returns the session for a user.
func (b *BoltDB) Take(userID string) (Session, bool, error) {
	var session Session
	var found bool
	err := b.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(sessionBucketName))
		data := bucket.Get([]byte(userID))
		if data == nil {
			return nil
		}
		if err := json.Unmarshal(data, &session); err != nil {
			return fmt.Errorf("unmarshaling session: %w", err)
		}
		found = true
		return bucket.Delete([]byte(userID))
	})
	if err != nil {
		return Session{}, false, err
	}
	if found && b.expired(session) {
		return Session{}, false, nil
	}
	return session, found, nil
}

// HasPending reports whether a live session exists for a user.
func (b *BoltDB) HasPending(userID string) (bool, error) {
	var session Session
	var found bool
	err := b.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(sessionBucketName))
		data := bucket.Get([]byte(userID))
		if data == nil {
			return nil
		}
		if err := json.Unmarshal(data, &session); err != nil {
			return fmt.Errorf("unmarshaling session: %w", err)
		}
		found = true
		return nil
	})
	if err != nil {
		return false, err
	}
	if found && b.expired(session) {
		return false, nil
	}
	return found, nil
}

func (b *BoltDB) expired(session Session) bool {
	if b.sessionTTL <= 0 {
		return false
	}
	return b.timeSource.Now().Sub(session.CreatedAt) > b.sessionTTL
}

// Record appends an entry to the user's usage bucket. Entries are keyed
// by a monotonic sequence number so iteration order is append order.
func (b *BoltDB) Record(entry UsageEntry) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		usage := tx.Bucket([]byte(usageBucketName))
		bucket, err := usage.CreateBucketIfNotExists([]byte(entry.UserID))
		if err != nil {
			return fmt.Errorf("creating user bucket: %w", err)
		}
		seq, err := bucket.NextSequence()
		if err != nil {
			return fmt.Errorf("allocating sequence: %w", err)
		}
		key := make([]byte, 8)
		binary.BigEndian.PutUint64(key, seq)
		data, err := json.Marshal(entry)
		if err != nil {
			return fmt.Errorf("marshaling usage entry: %w", err)
		}
		return bucket.Put(key, data)
	})
}

// TotalFor returns the cumulative cost for a user.
func (b *BoltDB) TotalFor(userID string) (decimal.Decimal, error) {
	total := decimal.Zero
	err := b.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(usageBucketName)).Bucket([]byte(userID))
		if bucket == nil {
			return nil
		}
		return bucket.ForEach(func(k, v []byte) error {
			var entry UsageEntry
			if err := json.Unmarshal(v, &entry); err != nil {
				return fmt.Errorf("unmarshaling usage entry: %w", err)
			}
			total = total.Add(entry.Cost)
			return nil
		})
	})
	if err != nil {
		return decimal.Zero, err
	}
	return total, nil
}

// CountFor returns the number of entries for a user.
func (b *BoltDB) CountFor(userID string) (int, error) {
	var count int
	err := b.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(usageBucketName)).Bucket([]byte(userID))
		if bucket == nil {
			return nil
		}
		count = bucket.Stats().KeyN
		return nil
	})
	if err != nil {
		return 0, err
	}
	return count, nil
}

// Recent returns up to n entries for a user, most recent first. A limit
// of zero or less returns no entries.
func (b *BoltDB) Recent(userID string, n int) ([]UsageEntry, error) {
	if n < 0 {
		n = 0
	}
	entries := make([]UsageEntry, 0, n)
	err := b.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(usageBucketName)).Bucket([]byte(userID))
		if bucket == nil {
			return nil
		}
		cursor := bucket.Cursor()
		for k, v := cursor.Last(); k != nil && len(entries) < n; k, v = cursor.Prev() {
			var entry UsageEntry
			if err := json.Unmarshal(v, &entry); err != nil {
				return fmt.Errorf("unmarshaling usage entry: %w", err)
			}
			entries = append(entries, entry)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// Close closes the database connection.
func (b *BoltDB) Close() error {
	return b.db.Close()
}
