package boards

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Package boards loads the set of image boards the watcher polls.

// DefaultID names the board synthesised from the configured board URL.
const DefaultID = "default"

type Board struct {
	ID      string         `json:"id" yaml:"id"`
	Name    string         `json:"name" yaml:"name"`
	BaseURL string         `json:"base_url" yaml:"base_url"`
	Config  map[string]any `json:"config" yaml:"config"`
}

type registryFile struct {
	Boards []Board `json:"boards" yaml:"boards"`
}

// Registry is an immutable, validated set of boards.
type Registry struct {
	boards []Board
	idx    map[string]Board
}

// NewRegistry sanitizes and validates boards into a Registry.
func NewRegistry(boards []Board) (*Registry, error) {
	if len(boards) == 0 {
		return nil, errors.New("no boards configured")
	}

	reg := &Registry{
		boards: make([]Board, 0, len(boards)),
		idx:    make(map[string]Board, len(boards)),
	}
	for i, b := range boards {
		b = sanitizeBoard(b)
		if err := validateBoard(b); err != nil {
			return nil, fmt.Errorf("board[%d]: %w", i, err)
		}
		if _, exists := reg.idx[b.ID]; exists {
			return nil, fmt.Errorf("duplicate board id %q", b.ID)
		}
		reg.boards = append(reg.boards, b)
		reg.idx[b.ID] = b
	}
	return reg, nil
}

// LoadRegistry reads a YAML or JSON boards file.
func LoadRegistry(path string) (*Registry, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("boards file path is empty")
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open boards file: %w", err)
	}
	defer file.Close()

	raw, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("read boards file: %w", err)
	}

	parsed, err := parseRegistryFile(raw, filepath.Ext(path))
	if err != nil {
		return nil, err
	}
	if len(parsed.Boards) == 0 {
		return nil, errors.New("boards file contains no boards entries")
	}
	return NewRegistry(parsed.Boards)
}

// Default builds a single-board registry for baseURL.
func Default(baseURL, userAgent string) (*Registry, error) {
	b := Board{ID: DefaultID, Name: "Default board", BaseURL: baseURL}
	if ua := strings.TrimSpace(userAgent); ua != "" {
		b.Config = map[string]any{ConfigUserAgentKey: ua}
	}
	return NewRegistry([]Board{b})
}

// All returns a copy of the boards in file order.
func (r *Registry) All() []Board {
	if r == nil {
		return nil
	}
	out := make([]Board, len(r.boards))
	copy(out, r.boards)
	return out
}

// ByID returns the board with the given id, if present.
func (r *Registry) ByID(id string) (Board, bool) {
	if r == nil {
		return Board{}, false
	}
	b, ok := r.idx[strings.TrimSpace(id)]
	return b, ok
}

func parseRegistryFile(data []byte, ext string) (registryFile, error) {
	ext = strings.ToLower(strings.TrimSpace(ext))

	decoders := []struct {
		name string
		ext  string
		fn   unmarshalFn
	}{
		{name: "yaml", ext: ".yaml", fn: yaml.Unmarshal},
		{name: "yaml", ext: ".yml", fn: yaml.Unmarshal},
		{name: "json", ext: ".json", fn: json.Unmarshal},
	}

	for _, d := range decoders {
		if ext != "" && ext != d.ext {
			continue
		}
		var reg registryFile
		if err := d.fn(data, &reg); err == nil {
			return reg, nil
		}
	}

	return registryFile{}, errors.New("boards file format not recognized (expected YAML or JSON)")
}

type unmarshalFn func([]byte, any) error

func sanitizeBoard(b Board) Board {
	b.ID = strings.TrimSpace(b.ID)
	b.Name = strings.TrimSpace(b.Name)
	b.BaseURL = strings.TrimRight(strings.TrimSpace(b.BaseURL), "/")
	if b.Config == nil {
		b.Config = map[string]any{}
	}
	return b
}

func validateBoard(b Board) error {
	if b.ID == "" {
		return errors.New("id is required")
	}
	if b.Name == "" {
		return fmt.Errorf("name is required for board %q", b.ID)
	}
	if b.BaseURL == "" {
		return fmt.Errorf("base_url is required for board %q", b.ID)
	}
	u, err := url.Parse(b.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("base_url %q for board %q must be an absolute http(s) URL", b.BaseURL, b.ID)
	}
	return nil
}
