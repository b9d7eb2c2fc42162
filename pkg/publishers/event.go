package publishers

import (
	"time"

	"github.com/samvad-hq/imageboard-client/internal/domain"
)

// Event kinds emitted by the board watcher.
const (
	KindArticleCreated = "article.created"
	KindArticleRemoved = "article.removed"
)

// Event represents the payload published downstream.
type Event struct {
	Kind       string         `json:"kind"`
	BoardID    string         `json:"board_id"`
	BoardName  string         `json:"board_name"`
	Article    domain.Article `json:"article"`
	ObservedAt time.Time      `json:"observed_at"`
}

// NewEvent constructs an Event for the given board + article.
func NewEvent(kind, boardID, boardName string, article domain.Article) Event {
	return Event{
		Kind:       kind,
		BoardID:    boardID,
		BoardName:  boardName,
		Article:    article,
		ObservedAt: time.Now().UTC(),
	}
}

// attributes are the routing attributes attached to queue and topic messages.
func (e Event) attributes() map[string]string {
	return map[string]string{
		"board_id":   e.BoardID,
		"event_kind": e.Kind,
	}
}
