package watcher

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/time/rate"

	"github.com/samvad-hq/imageboard-client/internal/domain"
	"github.com/samvad-hq/imageboard-client/internal/logger"
	"github.com/samvad-hq/imageboard-client/internal/metrics"
	"github.com/samvad-hq/imageboard-client/pkg/boards"
	"github.com/samvad-hq/imageboard-client/pkg/publishers"
)

// Options wires a Service.
type Options struct {
	Clients   ClientFactory
	Publisher EventPublisher
	Store     SeenStore
	Metrics   metrics.Recorder
	Logger    logger.Logger
	// MinGap is the minimum spacing between two board polls. Zero disables pacing.
	MinGap time.Duration
}

// Service diffs successive board listings and publishes what changed.
type Service struct {
	clients   ClientFactory
	publisher EventPublisher
	store     SeenStore
	metrics   metrics.Recorder
	log       logger.Logger
	limiter   *rate.Limiter
	policy    *bluemonday.Policy
}

// NewService builds a watcher service. Clients, Publisher and Store are required by Run.
func NewService(opts Options) *Service {
	limit := rate.Inf
	if opts.MinGap > 0 {
		limit = rate.Every(opts.MinGap)
	}
	s := &Service{
		clients:   opts.Clients,
		publisher: opts.Publisher,
		store:     opts.Store,
		metrics:   opts.Metrics,
		log:       opts.Logger,
		limiter:   rate.NewLimiter(limit, 1),
		policy:    bluemonday.StrictPolicy(),
	}
	if s.metrics == nil {
		s.metrics = metrics.Nop{}
	}
	if s.log == nil {
		s.log = logger.NopLogger{}
	}
	return s
}

// Run executes one watch pass over boards. Per-board failures are logged and
// joined; a cancelled context ends the pass without error.
func (s *Service) Run(ctx context.Context, bs []boards.Board) error {
	if s == nil || s.clients == nil || s.publisher == nil || s.store == nil {
		return fmt.Errorf("watcher service is not initialized")
	}
	if len(bs) == 0 {
		return fmt.Errorf("no boards configured for watching")
	}

	return errors.Join(s.runAll(ctx, bs)...)
}

func (s *Service) runAll(ctx context.Context, bs []boards.Board) []error {
	errs := make([]error, 0, len(bs))

	for _, b := range bs {
		if ctx.Err() != nil {
			break
		}
		if err := s.limiter.Wait(ctx); err != nil {
			break
		}
		if err := s.runBoard(ctx, b); err != nil {
			if ctx.Err() != nil {
				break
			}
			errs = append(errs, err)
			s.log.ErrorObj("board watch failed", "board_error", map[string]any{
				"board_id": b.ID,
				"error":    err.Error(),
			})
		}
	}

	return errs
}

func (s *Service) runBoard(ctx context.Context, b boards.Board) error {
	client, err := s.clients(b)
	if err != nil {
		return fmt.Errorf("client for board %s: %w", b.ID, err)
	}

	start := time.Now()
	listing, err := client.ListArticles(ctx)
	if err != nil {
		s.metrics.RecordPoll(b.ID, metrics.OutcomeError, time.Since(start))
		return fmt.Errorf("list board %s: %w", b.ID, err)
	}
	s.metrics.RecordPoll(b.ID, metrics.OutcomeOK, time.Since(start))
	s.metrics.RecordListed(b.ID, len(listing))

	var errs []error
	fresh := s.filterNewArticles(b, listing)
	present := make([]string, 0, len(listing))
	failed := make(map[string]bool)

	for _, a := range fresh {
		delivered, err := s.publish(ctx, b, publishers.KindArticleCreated, s.sanitize(a))
		if err != nil {
			errs = append(errs, err)
		}
		if !delivered {
			failed[a.ID] = true
		}
	}
	for _, a := range listing {
		if !failed[a.ID] {
			present = append(present, a.ID)
		}
	}

	removed, err := s.removedArticles(b, listing)
	if err != nil {
		errs = append(errs, err)
	}
	for _, id := range removed {
		delivered, err := s.publish(ctx, b, publishers.KindArticleRemoved, domain.Article{ID: id})
		if err != nil {
			errs = append(errs, err)
		}
		if !delivered {
			continue
		}
		if err := s.store.ForgetArticle(b.ID, id); err != nil {
			errs = append(errs, fmt.Errorf("forget article %s: %w", id, err))
		}
	}

	if err := s.store.MarkArticles(b.ID, present); err != nil {
		errs = append(errs, fmt.Errorf("mark articles for board %s: %w", b.ID, err))
	}

	s.log.InfoObj("board watch completed", "board_result", map[string]any{
		"board_id": b.ID,
		"listed":   len(listing),
		"created":  len(fresh) - len(failed),
		"removed":  len(removed),
		"failures": len(errs),
	})
	return errors.Join(errs...)
}

// filterNewArticles keeps articles the store has not seen. A lookup failure
// counts as unseen so the article is still announced.
func (s *Service) filterNewArticles(b boards.Board, listing []domain.Article) []domain.Article {
	out := make([]domain.Article, 0, len(listing))
	for _, a := range listing {
		seen, err := s.store.SeenArticle(b.ID, a.ID)
		if err != nil {
			s.log.WarnObj("seen lookup failed", "storage_error", map[string]any{
				"board_id":   b.ID,
				"article_id": a.ID,
				"error":      err.Error(),
			})
		}
		if !seen {
			out = append(out, a)
		}
	}
	return out
}

func (s *Service) removedArticles(b boards.Board, listing []domain.Article) ([]string, error) {
	known, err := s.store.KnownArticles(b.ID)
	if err != nil {
		return nil, fmt.Errorf("known articles for board %s: %w", b.ID, err)
	}
	current := make(map[string]struct{}, len(listing))
	for _, a := range listing {
		current[a.ID] = struct{}{}
	}
	var removed []string
	for _, id := range known {
		if _, ok := current[id]; !ok {
			removed = append(removed, id)
		}
	}
	return removed, nil
}

// publish reports whether the event reached at least one publisher, or there
// were none to reach. An article that was delivered somewhere is not retried.
func (s *Service) publish(ctx context.Context, b boards.Board, kind string, a domain.Article) (bool, error) {
	evt := publishers.NewEvent(kind, b.ID, b.Name, a)
	n, err := s.publisher.Publish(ctx, evt)
	if n > 0 {
		s.metrics.RecordPublished(b.ID, kind, 1)
	}
	if err != nil {
		s.metrics.RecordPublishFailure(b.ID, kind)
		return n > 0, fmt.Errorf("publish %s %s: %w", kind, a.ID, err)
	}
	return true, nil
}

// sanitize strips markup from the user-supplied text fields.
func (s *Service) sanitize(a domain.Article) domain.Article {
	a.Title = s.plainText(a.Title)
	a.Description = s.plainText(a.Description)
	a.AuthorNickname = s.plainText(a.AuthorNickname)
	return a
}

func (s *Service) plainText(v string) string {
	if v == "" {
		return v
	}
	return strings.TrimSpace(html.UnescapeString(s.policy.Sanitize(v)))
}
