package boardapi

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/samvad-hq/imageboard-client/internal/domain"
)

// Response keys.
const (
	keyID             = "_id"
	keyUserEmail      = "email"
	keyUserNickname   = "nickname"
	keyImageTitle     = "image_title"
	keyImageDesc      = "image_desc"
	keyImageURL       = "image_url"
	keyThumbImageURL  = "thumb_image_url"
	keyAuthor         = "author"
	keyAuthorNickname = "author_nickname"
	keyCreatedAt      = "created_at"
)

// millisThreshold separates unix seconds from unix milliseconds in created_at.
const millisThreshold = 1e11

type jsonObject map[string]json.RawMessage

// decodeObject requires body to be a single top-level JSON object.
func decodeObject(body []byte) (jsonObject, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, fmt.Errorf("%w: expected json object", ErrResponseDeserialization)
	}
	var obj jsonObject
	if err := json.Unmarshal(trimmed, &obj); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrResponseDeserialization, err)
	}
	return obj, nil
}

// decodeArray requires body to be a single top-level JSON array.
func decodeArray(body []byte) ([]json.RawMessage, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, fmt.Errorf("%w: expected json array", ErrResponseDeserialization)
	}
	var items []json.RawMessage
	if err := json.Unmarshal(trimmed, &items); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrResponseDeserialization, err)
	}
	return items, nil
}

func parseUser(body []byte) (domain.User, error) {
	obj, err := decodeObject(body)
	if err != nil {
		return domain.User{}, err
	}
	return userFromObject(obj)
}

func userFromObject(obj jsonObject) (domain.User, error) {
	var (
		f fieldReader
		u domain.User
	)
	u.Email = f.requiredID(obj, keyUserEmail)
	u.Nickname = f.required(obj, keyUserNickname)
	u.ID = f.optional(obj, keyID)
	if f.err != nil {
		return domain.User{}, f.err
	}
	return u, nil
}

func parseArticle(body []byte) (domain.Article, error) {
	obj, err := decodeObject(body)
	if err != nil {
		return domain.Article{}, err
	}
	return articleFromObject(obj)
}

// parseArticleList keeps every entry that builds and fails only when none do.
// The second return value counts skipped entries.
func parseArticleList(body []byte) ([]domain.Article, int, error) {
	items, err := decodeArray(body)
	if err != nil {
		return nil, 0, err
	}

	articles := make([]domain.Article, 0, len(items))
	skipped := 0
	for _, raw := range items {
		a, err := parseArticle(raw)
		if err != nil {
			skipped++
			continue
		}
		articles = append(articles, a)
	}

	if len(articles) == 0 {
		return nil, skipped, fmt.Errorf("%w: no valid articles in %d entries", ErrResponseDeserialization, len(items))
	}
	return articles, skipped, nil
}

// parseDeletedArticle reads the first element of the array the server returns on delete.
func parseDeletedArticle(body []byte) (domain.Article, error) {
	items, err := decodeArray(body)
	if err != nil {
		return domain.Article{}, err
	}
	if len(items) == 0 {
		return domain.Article{}, fmt.Errorf("%w: empty delete response", ErrResponseDeserialization)
	}
	obj, err := decodeObject(items[0])
	if err != nil {
		return domain.Article{}, err
	}
	return articleFromObject(obj)
}

func articleFromObject(obj jsonObject) (domain.Article, error) {
	var (
		f fieldReader
		a domain.Article
	)
	a.ID = f.requiredID(obj, keyID)
	a.Title = f.required(obj, keyImageTitle)
	a.Description = f.required(obj, keyImageDesc)
	a.AuthorID = f.requiredID(obj, keyAuthor)
	a.AuthorNickname = f.optional(obj, keyAuthorNickname)
	a.ImageURL = f.optional(obj, keyImageURL)
	a.ThumbImageURL = f.optional(obj, keyThumbImageURL)
	a.CreatedAt = f.optionalTime(obj, keyCreatedAt)
	if f.err != nil {
		return domain.Article{}, f.err
	}
	return a, nil
}

// fieldReader extracts typed values and remembers the first failure so a
// record is either fully built or discarded.
type fieldReader struct {
	err error
}

func (f *fieldReader) fail(key, reason string) {
	if f.err == nil {
		f.err = fmt.Errorf("%w: %s %s", ErrRecordInitialization, key, reason)
	}
}

func (f *fieldReader) required(obj jsonObject, key string) string {
	raw, ok := obj[key]
	if !ok || isNull(raw) {
		f.fail(key, "is missing")
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		f.fail(key, "is not a string")
		return ""
	}
	return s
}

// requiredID is required plus a non-blank check.
func (f *fieldReader) requiredID(obj jsonObject, key string) string {
	s := f.required(obj, key)
	if f.err == nil && strings.TrimSpace(s) == "" {
		f.fail(key, "is empty")
	}
	return s
}

func (f *fieldReader) optional(obj jsonObject, key string) string {
	raw, ok := obj[key]
	if !ok || isNull(raw) {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		f.fail(key, "is not a string")
		return ""
	}
	return s
}

// optionalTime accepts unix seconds, unix milliseconds or an RFC 3339 string.
func (f *fieldReader) optionalTime(obj jsonObject, key string) time.Time {
	raw, ok := obj[key]
	if !ok || isNull(raw) {
		return time.Time{}
	}

	var num float64
	if err := json.Unmarshal(raw, &num); err == nil {
		if num >= millisThreshold {
			return time.UnixMilli(int64(num)).UTC()
		}
		return time.Unix(int64(num), 0).UTC()
	}

	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		f.fail(key, "is neither a number nor a string")
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, strings.TrimSpace(s))
	if err != nil {
		f.fail(key, "is not an RFC 3339 timestamp")
		return time.Time{}
	}
	return t.UTC()
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

// isRecordError reports whether err is a per-record failure as opposed to a shape failure.
func isRecordError(err error) bool {
	return errors.Is(err, ErrRecordInitialization)
}
