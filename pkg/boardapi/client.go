package boardapi

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/samvad-hq/imageboard-client/internal/domain"
	"github.com/samvad-hq/imageboard-client/pkg/httpclient"
)

// DefaultTimeout matches the request timeout of a stock mobile URL session.
const DefaultTimeout = 60 * time.Second

// Options configures a Client.
type Options struct {
	// BaseURL is the board root, e.g. https://ios-api.boostcamp.connect.or.kr.
	BaseURL string
	// Headers are sent on every request (User-Agent, Accept-Language, ...).
	Headers map[string]string
	// HTTP overrides the transport. When nil a resty client with Timeout is used.
	HTTP    httpclient.Client
	Timeout time.Duration
	Logger  Logger
}

// Client talks to one image board. It holds no per-call state and is safe
// for concurrent use; each operation issues exactly one HTTP request.
type Client struct {
	http    httpclient.Client
	builder requestBuilder
	log     Logger
}

// New builds a Client for the board at opts.BaseURL.
func New(opts Options) (*Client, error) {
	builder, err := newRequestBuilder(opts.BaseURL, opts.Headers)
	if err != nil {
		return nil, err
	}

	transport := opts.HTTP
	if transport == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}
		transport = httpclient.NewRestyClient(timeout)
	}

	return &Client{
		http:    transport,
		builder: builder,
		log:     ensureLogger(opts.Logger),
	}, nil
}

// BaseURL returns the board root this client talks to.
func (c *Client) BaseURL() string {
	return c.builder.base.String()
}

// ResolveURL turns a server-relative image path into an absolute URL.
func (c *Client) ResolveURL(ref string) (string, error) {
	return c.builder.resolve(ref)
}

// SignIn authenticates with email and password and returns the server's user record.
// A successful sign-in leaves the session cookie in the transport.
func (c *Client) SignIn(ctx context.Context, creds domain.Credentials) (domain.User, error) {
	const op = "sign in"

	req, err := c.builder.signIn(creds)
	if err != nil {
		return domain.User{}, fmt.Errorf("%s: %w", op, err)
	}
	resp, err := c.send(ctx, op, req)
	if err != nil {
		return domain.User{}, err
	}

	u, err := parseUser(resp.Body())
	if err != nil {
		return domain.User{}, c.decodeFailure(op, resp, err)
	}
	return u, nil
}

// SignUp registers u. A 406 answer is reported as ErrEmailConflict whatever the body says.
func (c *Client) SignUp(ctx context.Context, u domain.User) (domain.User, error) {
	const op = "sign up"

	req, err := c.builder.signUp(u)
	if err != nil {
		return domain.User{}, fmt.Errorf("%s: %w", op, err)
	}
	resp, err := c.send(ctx, op, req)
	if err != nil {
		return domain.User{}, err
	}

	if resp.StatusCode() == http.StatusNotAcceptable {
		return domain.User{}, fmt.Errorf("%s %s: %w", op, u.Email, ErrEmailConflict)
	}

	created, err := parseUser(resp.Body())
	if err != nil {
		return domain.User{}, c.decodeFailure(op, resp, err)
	}
	return created, nil
}

// ListArticles fetches every article on the board. Malformed entries are
// skipped; the call fails only when no entry could be built.
func (c *Client) ListArticles(ctx context.Context) ([]domain.Article, error) {
	const op = "list articles"

	req, err := c.builder.listArticles()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	resp, err := c.send(ctx, op, req)
	if err != nil {
		return nil, err
	}

	articles, skipped, err := parseArticleList(resp.Body())
	if err != nil {
		return nil, c.decodeFailure(op, resp, err)
	}
	if skipped > 0 {
		c.log.WarnObj("skipped malformed articles", "board_list", map[string]any{
			"board":   c.BaseURL(),
			"parsed":  len(articles),
			"skipped": skipped,
		})
	}
	return articles, nil
}

// PostArticle uploads a new article. a.ImageData is required.
func (c *Client) PostArticle(ctx context.Context, a domain.Article) (domain.Article, error) {
	const op = "post article"

	req, err := c.builder.postArticle(a)
	if err != nil {
		return domain.Article{}, fmt.Errorf("%s: %w", op, err)
	}
	return c.articleCall(ctx, op, req, parseArticle)
}

// UpdateArticle replaces the title and description of article a.ID, and its
// image when a.ImageData is set.
func (c *Client) UpdateArticle(ctx context.Context, a domain.Article) (domain.Article, error) {
	const op = "update article"

	req, err := c.builder.updateArticle(a)
	if err != nil {
		return domain.Article{}, fmt.Errorf("%s: %w", op, err)
	}
	return c.articleCall(ctx, op, req, parseArticle)
}

// DeleteArticle removes the article with the given id and returns the deleted record.
func (c *Client) DeleteArticle(ctx context.Context, id string) (domain.Article, error) {
	const op = "delete article"

	req, err := c.builder.deleteArticle(id)
	if err != nil {
		return domain.Article{}, fmt.Errorf("%s: %w", op, err)
	}
	return c.articleCall(ctx, op, req, parseDeletedArticle)
}

// FetchImage downloads the image at ref, which may be relative to the board.
func (c *Client) FetchImage(ctx context.Context, ref string) ([]byte, error) {
	const op = "fetch image"

	target, err := c.builder.resolve(ref)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %w", op, ErrRequestSerialization, err)
	}
	req, err := c.builder.request(http.MethodGet, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	req.URL = target

	resp, err := c.send(ctx, op, req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("%s: status %d: %s", op, resp.StatusCode(),
			bodySnippet(resp.Header().Get(headerContentType), resp.Body()))
	}
	return resp.Body(), nil
}

func (c *Client) articleCall(ctx context.Context, op string, req httpclient.Request, parse func([]byte) (domain.Article, error)) (domain.Article, error) {
	resp, err := c.send(ctx, op, req)
	if err != nil {
		return domain.Article{}, err
	}
	a, err := parse(resp.Body())
	if err != nil {
		return domain.Article{}, c.decodeFailure(op, resp, err)
	}
	return a, nil
}

// send issues the request once; bodiless GETs go through Client.Get.
// Transport failures are reported as ErrResponseDeserialization wrapping the cause.
func (c *Client) send(ctx context.Context, op string, req httpclient.Request) (httpclient.Response, error) {
	start := time.Now()
	var (
		resp httpclient.Response
		err  error
	)
	if req.Method == http.MethodGet && req.Body == nil {
		resp, err = c.http.Get(ctx, req.URL, req.Headers)
	} else {
		resp, err = c.http.Do(ctx, req)
	}
	if err != nil {
		c.log.WarnObj("board request failed", "board_request_error", map[string]any{
			"op":     op,
			"method": req.Method,
			"url":    req.URL,
			"error":  err.Error(),
		})
		return nil, fmt.Errorf("%s: %w: %w", op, ErrResponseDeserialization, err)
	}

	c.log.DebugObj("board response", "board_response", map[string]any{
		"op":         op,
		"method":     req.Method,
		"url":        req.URL,
		"status":     resp.StatusCode(),
		"elapsed_ms": time.Since(start).Milliseconds(),
	})
	return resp, nil
}

func (c *Client) decodeFailure(op string, resp httpclient.Response, err error) error {
	status := resp.StatusCode()
	kind := "response"
	if isRecordError(err) {
		kind = "record"
	}
	c.log.WarnObj("board "+kind+" rejected", "board_decode_error", map[string]any{
		"op":     op,
		"status": status,
		"error":  err.Error(),
	})

	if status < 200 || status > 299 {
		snippet := bodySnippet(resp.Header().Get(headerContentType), resp.Body())
		return fmt.Errorf("%s: status %d (%s): %w", op, status, snippet, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}
