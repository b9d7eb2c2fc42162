package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/pflag"

	"github.com/samvad-hq/imageboard-client/internal/articles"
	"github.com/samvad-hq/imageboard-client/internal/config"
	"github.com/samvad-hq/imageboard-client/internal/domain"
	"github.com/samvad-hq/imageboard-client/internal/logger"
	"github.com/samvad-hq/imageboard-client/pkg/boardapi"
)

// ErrUsage marks an invalid command line.
var ErrUsage = errors.New("usage")

const consoleUsage = `usage: boardctl [global flags] <command> [flags]

commands:
  signin                                  sign in with the configured credentials
  signup --nickname NAME                  register the configured credentials
  list [--mine]                           list articles
  post --title T --desc D --image FILE    post an article
  update ID [--title T] [--desc D] [--image FILE]
  delete ID                               delete an article
  image ID [--thumb] [--out FILE]         download an article image`

// Console runs one boardctl command against a board.
type Console struct {
	client *boardapi.Client
	store  *articles.Store
	creds  domain.Credentials
	out    io.Writer
	log    logger.Logger
}

// NewConsole builds a console for the board in cfg, writing results to out.
func NewConsole(cfg *config.Config, out io.Writer, log logger.Logger) (*Console, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}
	if log == nil {
		log = logger.NopLogger{}
	}
	if out == nil {
		out = os.Stdout
	}

	headers := map[string]string{}
	if cfg.UserAgent != "" {
		headers["User-Agent"] = cfg.UserAgent
	}
	client, err := boardapi.New(boardapi.Options{
		BaseURL: cfg.BoardURL,
		Headers: headers,
		Timeout: cfg.HTTPTimeout,
		Logger:  log,
	})
	if err != nil {
		return nil, fmt.Errorf("board client: %w", err)
	}

	return &Console{
		client: client,
		store:  articles.NewStore(),
		creds:  domain.Credentials{Email: cfg.BoardEmail, Password: cfg.BoardPassword},
		out:    out,
		log:    log,
	}, nil
}

// Usage prints the command summary.
func (c *Console) Usage() {
	fmt.Fprintln(c.out, consoleUsage)
}

// Run dispatches args[0] as a command.
func (c *Console) Run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("%w: no command given", ErrUsage)
	}

	cmd, rest := args[0], args[1:]
	switch cmd {
	case "signin":
		return c.signIn(ctx, rest)
	case "signup":
		return c.signUp(ctx, rest)
	case "list":
		return c.list(ctx, rest)
	case "post":
		return c.post(ctx, rest)
	case "update":
		return c.update(ctx, rest)
	case "delete":
		return c.remove(ctx, rest)
	case "image":
		return c.image(ctx, rest)
	case "help":
		c.Usage()
		return nil
	default:
		return fmt.Errorf("%w: unknown command %q", ErrUsage, cmd)
	}
}

func newFlagSet(name string) *pflag.FlagSet {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.SetOutput(io.Discard)
	return fs
}

func parseFlags(fs *pflag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrUsage, fs.Name(), err)
	}
	return nil
}

// requireID reads exactly one positional article id.
func requireID(fs *pflag.FlagSet) (string, error) {
	if fs.NArg() != 1 || strings.TrimSpace(fs.Arg(0)) == "" {
		return "", fmt.Errorf("%w: %s needs exactly one article id", ErrUsage, fs.Name())
	}
	return strings.TrimSpace(fs.Arg(0)), nil
}

// ensureSignedIn signs in once per console so mutating calls carry the session cookie.
func (c *Console) ensureSignedIn(ctx context.Context) (domain.User, error) {
	if u, ok := c.store.CurrentUser(); ok {
		return u, nil
	}
	if c.creds.Email == "" || c.creds.Password == "" {
		return domain.User{}, fmt.Errorf("%w: board email and password are required (BOARD_EMAIL/BOARD_PASSWORD or --email/--password)", ErrUsage)
	}
	u, err := c.client.SignIn(ctx, c.creds)
	if err != nil {
		return domain.User{}, err
	}
	c.store.SetCurrentUser(u)
	c.log.DebugObj("signed in", "board_user", map[string]any{"id": u.ID, "nickname": u.Nickname})
	return u, nil
}

func (c *Console) signIn(ctx context.Context, args []string) error {
	fs := newFlagSet("signin")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	u, err := c.ensureSignedIn(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "signed in as %s <%s> (id %s)\n", u.Nickname, u.Email, u.ID)
	return nil
}

func (c *Console) signUp(ctx context.Context, args []string) error {
	fs := newFlagSet("signup")
	nickname := fs.String("nickname", "", "display name for the new account")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if strings.TrimSpace(*nickname) == "" {
		return fmt.Errorf("%w: signup needs --nickname", ErrUsage)
	}
	if c.creds.Email == "" || c.creds.Password == "" {
		return fmt.Errorf("%w: board email and password are required", ErrUsage)
	}

	u, err := c.client.SignUp(ctx, domain.User{Nickname: strings.TrimSpace(*nickname), Credentials: c.creds})
	if errors.Is(err, boardapi.ErrEmailConflict) {
		return fmt.Errorf("email %s is already registered: %w", c.creds.Email, err)
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "registered %s <%s> (id %s)\n", u.Nickname, u.Email, u.ID)
	return nil
}

func (c *Console) list(ctx context.Context, args []string) error {
	fs := newFlagSet("list")
	mine := fs.Bool("mine", false, "only show articles written by the signed-in user")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if *mine {
		if _, err := c.ensureSignedIn(ctx); err != nil {
			return err
		}
		c.store.SetFilter(articles.FilterMine)
	}

	if err := c.store.Refresh(ctx, c.client); err != nil {
		return err
	}
	return c.printArticles(c.store.Visible())
}

func (c *Console) printArticles(list []domain.Article) error {
	tw := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTITLE\tAUTHOR\tCREATED\tTHUMB")
	for _, a := range list {
		created := "-"
		if !a.CreatedAt.IsZero() {
			created = a.CreatedAt.UTC().Format(time.RFC3339)
		}
		author := a.AuthorNickname
		if author == "" {
			author = a.AuthorID
		}
		thumb, err := articles.ThumbURL(c.client, a)
		if err != nil {
			thumb = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", a.ID, a.Title, author, created, thumb)
	}
	return tw.Flush()
}

func (c *Console) post(ctx context.Context, args []string) error {
	fs := newFlagSet("post")
	title := fs.String("title", "", "article title")
	desc := fs.String("desc", "", "article description")
	imagePath := fs.String("image", "", "path of the image to upload")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if *imagePath == "" {
		return fmt.Errorf("%w: post needs --image", ErrUsage)
	}
	img, err := os.ReadFile(*imagePath)
	if err != nil {
		return fmt.Errorf("read image: %w", err)
	}
	if _, err := c.ensureSignedIn(ctx); err != nil {
		return err
	}

	a, err := c.client.PostArticle(ctx, domain.Article{Title: *title, Description: *desc, ImageData: img})
	if err != nil {
		return err
	}
	c.store.Prepend(a)
	fmt.Fprintf(c.out, "posted %s\n", a.ID)
	return nil
}

func (c *Console) update(ctx context.Context, args []string) error {
	fs := newFlagSet("update")
	title := fs.String("title", "", "new title")
	desc := fs.String("desc", "", "new description")
	imagePath := fs.String("image", "", "path of a replacement image")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	id, err := requireID(fs)
	if err != nil {
		return err
	}
	if _, err := c.ensureSignedIn(ctx); err != nil {
		return err
	}

	current, err := c.find(ctx, id)
	if err != nil {
		return err
	}
	if fs.Changed("title") {
		current.Title = *title
	}
	if fs.Changed("desc") {
		current.Description = *desc
	}
	if *imagePath != "" {
		if current.ImageData, err = os.ReadFile(*imagePath); err != nil {
			return fmt.Errorf("read image: %w", err)
		}
	}

	updated, err := c.client.UpdateArticle(ctx, current)
	if err != nil {
		return err
	}
	c.store.Replace(updated)
	fmt.Fprintf(c.out, "updated %s\n", updated.ID)
	return nil
}

func (c *Console) remove(ctx context.Context, args []string) error {
	fs := newFlagSet("delete")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	id, err := requireID(fs)
	if err != nil {
		return err
	}
	if _, err := c.ensureSignedIn(ctx); err != nil {
		return err
	}

	deleted, err := c.client.DeleteArticle(ctx, id)
	if err != nil {
		return err
	}
	c.store.Remove(deleted.ID)
	fmt.Fprintf(c.out, "deleted %s\n", deleted.ID)
	return nil
}

func (c *Console) image(ctx context.Context, args []string) error {
	fs := newFlagSet("image")
	thumb := fs.Bool("thumb", false, "download the thumbnail instead of the full image")
	outPath := fs.String("out", "", "write the image to this file instead of stdout")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	id, err := requireID(fs)
	if err != nil {
		return err
	}

	a, err := c.find(ctx, id)
	if err != nil {
		return err
	}
	ref := a.ImageURL
	if *thumb {
		ref = a.ThumbImageURL
	}
	if ref == "" {
		return fmt.Errorf("article %s has no image", id)
	}

	data, err := c.client.FetchImage(ctx, ref)
	if err != nil {
		return err
	}
	if *outPath == "" {
		_, err = c.out.Write(data)
		return err
	}
	if err := os.WriteFile(*outPath, data, 0o644); err != nil {
		return fmt.Errorf("write image: %w", err)
	}
	fmt.Fprintf(c.out, "saved %d bytes to %s\n", len(data), *outPath)
	return nil
}

// find refreshes the listing and returns the article with id.
func (c *Console) find(ctx context.Context, id string) (domain.Article, error) {
	if err := c.store.Refresh(ctx, c.client); err != nil {
		return domain.Article{}, err
	}
	idx := c.store.Index(id)
	if idx < 0 {
		return domain.Article{}, fmt.Errorf("article %s not found", id)
	}
	return c.store.All()[idx], nil
}
