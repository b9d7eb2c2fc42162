package boardapi

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/samvad-hq/imageboard-client/internal/domain"
	"github.com/samvad-hq/imageboard-client/pkg/boardapi/boardapitest"
)

func waitResult[T any](t *testing.T, ch <-chan Result[T]) Result[T] {
	t.Helper()
	select {
	case res := <-ch:
		return res
	case <-time.After(3 * time.Second):
		t.Fatalf("callback was not invoked")
	}
	return Result[T]{}
}

func TestGoAsyncDeliversExactlyOnce(t *testing.T) {
	var calls atomic.Int32
	done := make(chan Result[int], 2)

	goAsync(context.Background(), func(context.Context) (int, error) { return 7, nil }, func(r Result[int]) {
		calls.Add(1)
		done <- r
	})

	res := waitResult(t, done)
	if !res.OK() || res.Value != 7 {
		t.Fatalf("unexpected result %+v", res)
	}
	time.Sleep(20 * time.Millisecond)
	if n := calls.Load(); n != 1 {
		t.Fatalf("callback invoked %d times", n)
	}
}

func TestGoAsyncReportsPanicAsError(t *testing.T) {
	done := make(chan Result[string], 1)
	goAsync(context.Background(), func(context.Context) (string, error) { panic("boom") }, func(r Result[string]) {
		done <- r
	})
	if res := waitResult(t, done); res.OK() {
		t.Fatalf("expected error result")
	}
}

func TestGoAsyncToleratesNilCallback(t *testing.T) {
	ran := make(chan struct{})
	goAsync[int](context.Background(), func(context.Context) (int, error) {
		close(ran)
		return 0, nil
	}, nil)
	select {
	case <-ran:
	case <-time.After(3 * time.Second):
		t.Fatalf("operation did not run")
	}
}

func TestAsyncOperationsAgainstBoard(t *testing.T) {
	srv := boardapitest.NewServer()
	defer srv.Close()
	srv.SeedUser("ju@example.com", "pw", "ju")
	srv.SeedArticle("seeded", "d", "someone")

	c, err := New(Options{BaseURL: srv.URL})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ctx := context.Background()

	users := make(chan Result[domain.User], 1)
	c.SignInAsync(ctx, domain.Credentials{Email: "ju@example.com", Password: "pw"}, func(r Result[domain.User]) { users <- r })
	if res := waitResult(t, users); !res.OK() || res.Value.Nickname != "ju" {
		t.Fatalf("SignInAsync = %+v", res)
	}

	lists := make(chan Result[[]domain.Article], 1)
	c.ListArticlesAsync(ctx, func(r Result[[]domain.Article]) { lists <- r })
	if res := waitResult(t, lists); !res.OK() || len(res.Value) != 1 {
		t.Fatalf("ListArticlesAsync = %+v", res)
	}

	articles := make(chan Result[domain.Article], 1)
	c.PostArticleAsync(ctx, domain.Article{Title: "t", ImageData: []byte("x")}, func(r Result[domain.Article]) { articles <- r })
	posted := waitResult(t, articles)
	if !posted.OK() {
		t.Fatalf("PostArticleAsync: %v", posted.Err)
	}

	posted.Value.Description = "changed"
	c.UpdateArticleAsync(ctx, posted.Value, func(r Result[domain.Article]) { articles <- r })
	if res := waitResult(t, articles); !res.OK() || res.Value.Description != "changed" {
		t.Fatalf("UpdateArticleAsync = %+v", res)
	}

	c.DeleteArticleAsync(ctx, posted.Value.ID, func(r Result[domain.Article]) { articles <- r })
	if res := waitResult(t, articles); !res.OK() || res.Value.ID != posted.Value.ID {
		t.Fatalf("DeleteArticleAsync = %+v", res)
	}

	c.SignUpAsync(ctx, domain.User{Credentials: domain.Credentials{Email: "ju@example.com"}}, func(r Result[domain.User]) { users <- r })
	if res := waitResult(t, users); !errors.Is(res.Err, ErrEmailConflict) {
		t.Fatalf("SignUpAsync err = %v", res.Err)
	}
}
