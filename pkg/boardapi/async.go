package boardapi

import (
	"context"
	"fmt"

	"github.com/samvad-hq/imageboard-client/internal/domain"
)

// Result is the outcome of one operation: either Value or Err is meaningful.
type Result[T any] struct {
	Value T
	Err   error
}

// OK reports whether the operation succeeded.
func (r Result[T]) OK() bool { return r.Err == nil }

// Callback receives a Result exactly once, on a goroutine owned by the client.
// Callers that touch shared state must synchronize themselves.
type Callback[T any] func(Result[T])

// goAsync runs op on its own goroutine and hands the outcome to cb once.
// A panic inside op is reported as an error rather than lost.
func goAsync[T any](ctx context.Context, op func(context.Context) (T, error), cb Callback[T]) {
	go func() {
		var res Result[T]
		func() {
			defer func() {
				if r := recover(); r != nil {
					res = Result[T]{Err: fmt.Errorf("board operation panicked: %v", r)}
				}
			}()
			v, err := op(ctx)
			res = Result[T]{Value: v, Err: err}
		}()
		if cb != nil {
			cb(res)
		}
	}()
}

// SignInAsync is SignIn delivering its outcome to cb.
func (c *Client) SignInAsync(ctx context.Context, creds domain.Credentials, cb Callback[domain.User]) {
	goAsync(ctx, func(ctx context.Context) (domain.User, error) { return c.SignIn(ctx, creds) }, cb)
}

// SignUpAsync is SignUp delivering its outcome to cb.
func (c *Client) SignUpAsync(ctx context.Context, u domain.User, cb Callback[domain.User]) {
	goAsync(ctx, func(ctx context.Context) (domain.User, error) { return c.SignUp(ctx, u) }, cb)
}

// ListArticlesAsync is ListArticles delivering its outcome to cb.
func (c *Client) ListArticlesAsync(ctx context.Context, cb Callback[[]domain.Article]) {
	goAsync(ctx, c.ListArticles, cb)
}

// PostArticleAsync is PostArticle delivering its outcome to cb.
func (c *Client) PostArticleAsync(ctx context.Context, a domain.Article, cb Callback[domain.Article]) {
	goAsync(ctx, func(ctx context.Context) (domain.Article, error) { return c.PostArticle(ctx, a) }, cb)
}

// UpdateArticleAsync is UpdateArticle delivering its outcome to cb.
func (c *Client) UpdateArticleAsync(ctx context.Context, a domain.Article, cb Callback[domain.Article]) {
	goAsync(ctx, func(ctx context.Context) (domain.Article, error) { return c.UpdateArticle(ctx, a) }, cb)
}

// DeleteArticleAsync is DeleteArticle delivering its outcome to cb.
func (c *Client) DeleteArticleAsync(ctx context.Context, id string, cb Callback[domain.Article]) {
	goAsync(ctx, func(ctx context.Context) (domain.Article, error) { return c.DeleteArticle(ctx, id) }, cb)
}
