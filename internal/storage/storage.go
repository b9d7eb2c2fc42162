// Package storage remembers which articles the watcher has already observed on each board.
package storage

import (
	"fmt"
	"strings"
	"time"
)

// Store tracks article ids per board.
type Store interface {
	Close() error
	SeenArticle(boardID, articleID string) (bool, error)
	// MarkArticles records ids as present and refreshes their expiry.
	MarkArticles(boardID string, articleIDs []string) error
	// KnownArticles lists unexpired ids recorded for a board.
	KnownArticles(boardID string) ([]string, error)
	ForgetArticle(boardID, articleID string) error
}

// Options controls retention characteristics for concrete store implementations.
type Options struct {
	ArticleTTL      time.Duration
	CleanupInterval time.Duration
}

const (
	defaultArticleTTL      = 7 * 24 * time.Hour
	defaultCleanupInterval = 12 * time.Hour
)

// NewStore creates the configured storage backend.
func NewStore(typ, path string, opts Options) (Store, error) {
	typ = strings.TrimSpace(strings.ToLower(typ))
	opts = normalizeOptions(opts)

	switch typ {
	case "", "none", "disabled":
		return noopStore{}, nil
	case "bbolt":
		if strings.TrimSpace(path) == "" {
			return nil, fmt.Errorf("bbolt storage requires a path")
		}
		store, err := openBolt(path, opts)
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unsupported storage type %q", typ)
	}
}

func normalizeOptions(opts Options) Options {
	if opts.ArticleTTL <= 0 {
		opts.ArticleTTL = defaultArticleTTL
	}
	if opts.CleanupInterval <= 0 {
		opts.CleanupInterval = defaultCleanupInterval
	}
	return opts
}

// noopStore never remembers anything, so every listing looks new.
type noopStore struct{}

func (noopStore) Close() error                             { return nil }
func (noopStore) SeenArticle(string, string) (bool, error) { return false, nil }
func (noopStore) MarkArticles(string, []string) error      { return nil }
func (noopStore) KnownArticles(string) ([]string, error)   { return nil, nil }
func (noopStore) ForgetArticle(string, string) error       { return nil }
