package storage

import (
	"path/filepath"
	"testing"
	"time"

	bolt "go.etcd.io/bbolt"
)

func openTestBolt(t *testing.T, opts Options) *boltStore {
	t.Helper()
	store, err := openBolt(filepath.Join(t.TempDir(), "nested", "seen.db"), normalizeOptions(opts))
	if err != nil {
		t.Fatalf("openBolt: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestBoltStoreMarksAndExpiresArticles(t *testing.T) {
	store := openTestBolt(t, Options{ArticleTTL: time.Minute, CleanupInterval: time.Hour})
	now := time.Unix(1_700_000_000, 0)
	store.now = func() time.Time { return now }
	store.lastCleanup.Store(now.Unix())

	seen, err := store.SeenArticle("main", "id1")
	if err != nil || seen {
		t.Fatalf("expected unseen article, seen=%v err=%v", seen, err)
	}

	if err := store.MarkArticles("main", []string{"id1", "", "id2"}); err != nil {
		t.Fatalf("MarkArticles: %v", err)
	}

	seen, err = store.SeenArticle("main", "id1")
	if err != nil || !seen {
		t.Fatalf("expected article marked as seen, got seen=%v err=%v", seen, err)
	}

	now = now.Add(2 * time.Minute)
	seen, err = store.SeenArticle("main", "id1")
	if err != nil {
		t.Fatalf("SeenArticle after expiry: %v", err)
	}
	if seen {
		t.Fatalf("expected entry to expire")
	}
	known, err := store.KnownArticles("main")
	if err != nil || len(known) != 0 {
		t.Fatalf("expected no known articles after expiry, got %v err=%v", known, err)
	}
}

func TestBoltStoreKeepsBoardsApart(t *testing.T) {
	store := openTestBolt(t, Options{})

	if err := store.MarkArticles("a", []string{"x", "y"}); err != nil {
		t.Fatalf("MarkArticles a: %v", err)
	}
	if err := store.MarkArticles("b", []string{"z"}); err != nil {
		t.Fatalf("MarkArticles b: %v", err)
	}

	known, err := store.KnownArticles("a")
	if err != nil || len(known) != 2 || known[0] != "x" || known[1] != "y" {
		t.Fatalf("KnownArticles(a) = %v err=%v", known, err)
	}
	if seen, _ := store.SeenArticle("b", "x"); seen {
		t.Fatalf("article from board a leaked into board b")
	}

	if err := store.ForgetArticle("a", "x"); err != nil {
		t.Fatalf("ForgetArticle: %v", err)
	}
	if err := store.ForgetArticle("unknown", "x"); err != nil {
		t.Fatalf("ForgetArticle on unknown board: %v", err)
	}
	known, _ = store.KnownArticles("a")
	if len(known) != 1 || known[0] != "y" {
		t.Fatalf("after forget: %v", known)
	}
}

func TestBoltStoreCleanupSweepsAllBoards(t *testing.T) {
	store := openTestBolt(t, Options{ArticleTTL: time.Minute, CleanupInterval: time.Minute})
	now := time.Unix(1_700_000_000, 0)
	store.now = func() time.Time { return now }
	store.lastCleanup.Store(now.Unix())

	if err := store.MarkArticles("a", []string{"old"}); err != nil {
		t.Fatalf("MarkArticles: %v", err)
	}
	now = now.Add(5 * time.Minute)
	if err := store.MarkArticles("b", []string{"fresh"}); err != nil {
		t.Fatalf("MarkArticles: %v", err)
	}

	var remaining int
	store.db.View(func(tx *bolt.Tx) error {
		remaining = tx.Bucket([]byte(boardsBucket)).Bucket([]byte("a")).Stats().KeyN
		return nil
	})
	if remaining != 0 {
		t.Fatalf("expected cleanup to purge board a, %d keys left", remaining)
	}
}

func TestBoltStoreRejectsEmptyBoard(t *testing.T) {
	store := openTestBolt(t, Options{})
	if err := store.MarkArticles(" ", []string{"x"}); err == nil {
		t.Fatalf("expected error for empty board id")
	}
}

func TestNewStoreSupportsNoop(t *testing.T) {
	store, err := NewStore("none", "", Options{})
	if err != nil {
		t.Fatalf("NewStore none: %v", err)
	}
	if err := store.MarkArticles("b", []string{"x"}); err != nil {
		t.Fatalf("noop store MarkArticles: %v", err)
	}
	if seen, _ := store.SeenArticle("b", "x"); seen {
		t.Fatalf("noop store should never report seen")
	}
}

func TestNewStoreValidatesType(t *testing.T) {
	if _, err := NewStore("bbolt", "", Options{}); err == nil {
		t.Fatalf("expected error for bbolt without path")
	}
	if _, err := NewStore("redis", "x", Options{}); err == nil {
		t.Fatalf("expected error for unsupported type")
	}
}
