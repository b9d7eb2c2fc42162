package watcher

import (
	"context"

	"github.com/samvad-hq/imageboard-client/internal/domain"
	"github.com/samvad-hq/imageboard-client/pkg/boards"
	"github.com/samvad-hq/imageboard-client/pkg/publishers"
)

// ArticleLister fetches a board's current listing.
type ArticleLister interface {
	ListArticles(ctx context.Context) ([]domain.Article, error)
}

// ClientFactory returns the lister used for a board.
type ClientFactory func(b boards.Board) (ArticleLister, error)

// EventPublisher publishes article events downstream.
type EventPublisher interface {
	Publish(ctx context.Context, evt publishers.Event) (int, error)
}

// SeenStore remembers which article ids were present on each board.
type SeenStore interface {
	SeenArticle(boardID, articleID string) (bool, error)
	MarkArticles(boardID string, articleIDs []string) error
	KnownArticles(boardID string) ([]string, error)
	ForgetArticle(boardID, articleID string) error
}
