package articles

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/samvad-hq/imageboard-client/internal/domain"
)

// Filter selects which articles Visible returns.
type Filter int

const (
	// FilterAll shows every article on the board.
	FilterAll Filter = iota
	// FilterMine shows only articles written by the current user.
	FilterMine
)

func (f Filter) String() string {
	switch f {
	case FilterMine:
		return "mine"
	default:
		return "all"
	}
}

// ParseFilter maps "all" or "mine" to a Filter.
func ParseFilter(s string) (Filter, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "all":
		return FilterAll, nil
	case "mine", "me":
		return FilterMine, nil
	default:
		return FilterAll, fmt.Errorf("unknown filter %q", s)
	}
}

// Lister fetches a fresh article listing.
type Lister interface {
	ListArticles(ctx context.Context) ([]domain.Article, error)
}

// Store is the caller-side home of a board's articles and the signed-in user.
// The client never writes here; callers apply each operation's result.
type Store struct {
	mu       sync.RWMutex
	articles []domain.Article
	user     *domain.User
	filter   Filter
}

// NewStore returns an empty store showing all articles.
func NewStore() *Store {
	return &Store{}
}

// SetCurrentUser records the signed-in user.
func (s *Store) SetCurrentUser(u domain.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.user = &u
}

// CurrentUser returns the signed-in user, if any.
func (s *Store) CurrentUser() (domain.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return domain.User{}, false
	}
	return *s.user, true
}

// SetFilter changes what Visible returns.
func (s *Store) SetFilter(f Filter) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.filter = f
}

// Filter returns the active filter.
func (s *Store) Filter() Filter {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.filter
}

// Refresh replaces the contents with a fresh listing. On error the store is left untouched.
func (s *Store) Refresh(ctx context.Context, lister Lister) error {
	articles, err := lister.ListArticles(ctx)
	if err != nil {
		return fmt.Errorf("refresh articles: %w", err)
	}
	s.Set(articles)
	return nil
}

// Set replaces the contents.
func (s *Store) Set(articles []domain.Article) {
	cp := append([]domain.Article(nil), articles...)
	s.mu.Lock()
	s.articles = cp
	s.mu.Unlock()
}

// Prepend puts a freshly posted article at the top.
func (s *Store) Prepend(a domain.Article) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.articles = append([]domain.Article{a}, s.articles...)
}

// Replace swaps in an updated article by id and returns its index, or -1.
func (s *Store) Replace(a domain.Article) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := s.indexLocked(a.ID)
	if idx >= 0 {
		s.articles[idx] = a
	}
	return idx
}

// Remove drops the article with id and returns the index it held, or -1.
func (s *Store) Remove(id string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := s.indexLocked(id)
	if idx >= 0 {
		s.articles = append(s.articles[:idx], s.articles[idx+1:]...)
	}
	return idx
}

// Index returns the position of id, or -1.
func (s *Store) Index(id string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.indexLocked(id)
}

// All returns a copy of every stored article.
func (s *Store) All() []domain.Article {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.Article(nil), s.articles...)
}

// Visible returns the articles selected by the active filter. With FilterMine
// and no signed-in user nothing is visible.
func (s *Store) Visible() []domain.Article {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.filter != FilterMine {
		return append([]domain.Article(nil), s.articles...)
	}
	if s.user == nil {
		return nil
	}
	out := make([]domain.Article, 0, len(s.articles))
	for _, a := range s.articles {
		if a.WrittenBy(*s.user) {
			out = append(out, a)
		}
	}
	return out
}

func (s *Store) indexLocked(id string) int {
	for i, a := range s.articles {
		if a.ID == id {
			return i
		}
	}
	return -1
}

// Resolver turns a board-relative image path into an absolute URL.
type Resolver interface {
	ResolveURL(ref string) (string, error)
}

// ThumbURL resolves the article's thumbnail, falling back to the full image.
func ThumbURL(r Resolver, a domain.Article) (string, error) {
	ref := a.ThumbImageURL
	if ref == "" {
		ref = a.ImageURL
	}
	if ref == "" {
		return "", fmt.Errorf("article %s has no image", a.ID)
	}
	return r.ResolveURL(ref)
}

// ImageURL resolves the article's full-size image.
func ImageURL(r Resolver, a domain.Article) (string, error) {
	if a.ImageURL == "" {
		return "", fmt.Errorf("article %s has no image", a.ID)
	}
	return r.ResolveURL(a.ImageURL)
}
