package storage

import (
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	bolt "go.etcd.io/bbolt"
)

const (
	boardsBucket     = "boards"
	expiryValueBytes = 8
)

var errBoardsBucketMissing = errors.New("boards bucket missing")

// boltStore keeps one nested bucket per board under a shared root bucket.
// Values are big-endian unix expiry timestamps.
type boltStore struct {
	db              *bolt.DB
	cleanupMu       sync.Mutex
	lastCleanup     atomic.Int64
	articleTTL      time.Duration
	cleanupInterval time.Duration
	now             func() time.Time
}

func openBolt(path string, opts Options) (*boltStore, error) {
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create storage directory: %w", err)
		}
	}

	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bbolt db: %w", err)
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(boardsBucket))
		return err
	}); err != nil {
		db.Close()
		return nil, fmt.Errorf("init bucket: %w", err)
	}

	store := &boltStore{
		db:              db,
		articleTTL:      opts.ArticleTTL,
		cleanupInterval: opts.CleanupInterval,
		now:             time.Now,
	}
	store.lastCleanup.Store(store.now().Unix())
	return store, nil
}

// Close closes the BoltDB store.
func (b *boltStore) Close() error {
	if b == nil || b.db == nil {
		return nil
	}
	return b.db.Close()
}

// SeenArticle reports whether articleID has an unexpired entry for the board.
// An expired entry is removed on lookup.
func (b *boltStore) SeenArticle(boardID, articleID string) (bool, error) {
	if b == nil || b.db == nil {
		return false, nil
	}
	now := b.now()
	if err := b.maybeCleanupExpired(now); err != nil {
		return false, err
	}

	var exists bool
	err := b.db.Update(func(tx *bolt.Tx) error {
		bucket, err := boardBucket(tx, boardID, false)
		if err != nil || bucket == nil {
			return err
		}
		key := []byte(articleID)
		value := bucket.Get(key)
		if value == nil {
			return nil
		}
		if expiry, ok := decodeExpiry(value); ok && expiry.After(now) {
			exists = true
			return nil
		}
		return bucket.Delete(key)
	})
	return exists, err
}

// MarkArticles stores every id with a fresh expiry in a single transaction.
func (b *boltStore) MarkArticles(boardID string, articleIDs []string) error {
	if b == nil || b.db == nil || len(articleIDs) == 0 {
		return nil
	}
	now := b.now()
	if err := b.maybeCleanupExpired(now); err != nil {
		return err
	}

	buf := make([]byte, expiryValueBytes)
	binary.BigEndian.PutUint64(buf, uint64(now.Add(b.articleTTL).Unix()))

	return b.db.Update(func(tx *bolt.Tx) error {
		bucket, err := boardBucket(tx, boardID, true)
		if err != nil {
			return err
		}
		for _, id := range articleIDs {
			if strings.TrimSpace(id) == "" {
				continue
			}
			if err := bucket.Put([]byte(id), buf); err != nil {
				return fmt.Errorf("mark article %s: %w", id, err)
			}
		}
		return nil
	})
}

// KnownArticles returns the unexpired ids for a board in key order.
func (b *boltStore) KnownArticles(boardID string) ([]string, error) {
	if b == nil || b.db == nil {
		return nil, nil
	}
	now := b.now()

	var ids []string
	err := b.db.View(func(tx *bolt.Tx) error {
		bucket, err := boardBucket(tx, boardID, false)
		if err != nil || bucket == nil {
			return err
		}
		return bucket.ForEach(func(k, v []byte) error {
			if expiry, ok := decodeExpiry(v); ok && expiry.After(now) {
				ids = append(ids, string(k))
			}
			return nil
		})
	})
	return ids, err
}

// ForgetArticle drops a single id. Forgetting an unknown id is not an error.
func (b *boltStore) ForgetArticle(boardID, articleID string) error {
	if b == nil || b.db == nil {
		return nil
	}
	return b.db.Update(func(tx *bolt.Tx) error {
		bucket, err := boardBucket(tx, boardID, false)
		if err != nil || bucket == nil {
			return err
		}
		return bucket.Delete([]byte(articleID))
	})
}

// maybeCleanupExpired sweeps every board bucket on a fixed cadence.
func (b *boltStore) maybeCleanupExpired(now time.Time) error {
	last := time.Unix(b.lastCleanup.Load(), 0)
	if now.Sub(last) < b.cleanupInterval {
		return nil
	}

	b.cleanupMu.Lock()
	defer b.cleanupMu.Unlock()

	last = time.Unix(b.lastCleanup.Load(), 0)
	if now.Sub(last) < b.cleanupInterval {
		return nil
	}

	err := b.db.Update(func(tx *bolt.Tx) error {
		root := tx.Bucket([]byte(boardsBucket))
		if root == nil {
			return errBoardsBucketMissing
		}
		return root.ForEachBucket(func(name []byte) error {
			cursor := root.Bucket(name).Cursor()
			for k, v := cursor.First(); k != nil; k, v = cursor.Next() {
				expiry, ok := decodeExpiry(v)
				if !ok || !expiry.After(now) {
					if err := cursor.Delete(); err != nil {
						return err
					}
				}
			}
			return nil
		})
	})
	if err == nil {
		b.lastCleanup.Store(now.Unix())
	}
	return err
}

// boardBucket returns the nested bucket for boardID. Without create a missing
// board yields a nil bucket and no error.
func boardBucket(tx *bolt.Tx, boardID string, create bool) (*bolt.Bucket, error) {
	if strings.TrimSpace(boardID) == "" {
		return nil, fmt.Errorf("board id is required")
	}
	root := tx.Bucket([]byte(boardsBucket))
	if root == nil {
		return nil, errBoardsBucketMissing
	}
	if !create {
		return root.Bucket([]byte(boardID)), nil
	}
	bucket, err := root.CreateBucketIfNotExists([]byte(boardID))
	if err != nil {
		return nil, fmt.Errorf("create board bucket %s: %w", boardID, err)
	}
	return bucket, nil
}

func decodeExpiry(value []byte) (time.Time, bool) {
	if len(value) != expiryValueBytes {
		return time.Time{}, false
	}
	unix := int64(binary.BigEndian.Uint64(value))
	if unix <= 0 {
		return time.Time{}, false
	}
	return time.Unix(unix, 0), true
}
