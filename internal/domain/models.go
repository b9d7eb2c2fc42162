// Package domain holds the records exchanged with an image board.
package domain

import "time"

// Credentials identify an account when signing in.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"-"`
}

// User is a board account. Password is only ever sent, never decoded from a response.
type User struct {
	ID       string `json:"id,omitempty"`
	Nickname string `json:"nickname"`
	Credentials
}

// Article is an image post on a board.
type Article struct {
	ID             string    `json:"id"`
	Title          string    `json:"title"`
	Description    string    `json:"description"`
	AuthorID       string    `json:"author_id"`
	AuthorNickname string    `json:"author_nickname,omitempty"`
	ImageURL       string    `json:"image_url,omitempty"`
	ThumbImageURL  string    `json:"thumb_image_url,omitempty"`
	CreatedAt      time.Time `json:"created_at,omitzero"`

	// ImageData is the raw image payload sent on post/update.
	ImageData []byte `json:"-"`
}

// WrittenBy reports whether the article belongs to the given user.
func (a Article) WrittenBy(u User) bool {
	return u.ID != "" && a.AuthorID == u.ID
}
