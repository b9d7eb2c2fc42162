// Package boardapitest provides an in-memory image board for tests.
package boardapitest

import (
	"bytes"
	"encoding/base64"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/google/uuid"
)

const sessionCookie = "connect.sid"

// Article is the board's wire form of an article.
type Article struct {
	ID             string `json:"_id"`
	Title          string `json:"image_title"`
	Description    string `json:"image_desc"`
	ImageURL       string `json:"image_url"`
	ThumbImageURL  string `json:"thumb_image_url"`
	Author         string `json:"author"`
	AuthorNickname string `json:"author_nickname"`
	CreatedAt      int64  `json:"created_at"`
}

type wireUser struct {
	ID       string `json:"_id"`
	Email    string `json:"email"`
	Nickname string `json:"nickname"`
}

type account struct {
	wireUser
	password string
}

// RecordedRequest is a request as the server saw it.
type RecordedRequest struct {
	Method string
	Path   string
	Header http.Header
	Body   []byte
}

// Server is an httptest server speaking the board protocol.
type Server struct {
	*httptest.Server

	mu           sync.Mutex
	users        map[string]account // by email
	sessions     map[string]string  // token -> user id
	articles     []Article          // newest first
	images       map[string][]byte
	listOverride []byte
	requests     []RecordedRequest
}

// NewServer starts a board. Close it when done.
func NewServer() *Server {
	s := &Server{
		users:    make(map[string]account),
		sessions: make(map[string]string),
		images:   make(map[string][]byte),
	}

	r := chi.NewRouter()
	r.Use(s.record)
	r.Get("/", s.handleList)
	r.Post("/login", s.handleLogin)
	r.Post("/user", s.handleSignUp)
	r.Get("/images/{name}", s.handleImage)
	r.Group(func(r chi.Router) {
		r.Use(s.requireSession)
		r.Post("/image", s.handlePost)
		r.Post("/image/{id}", s.handleUpdate)
		r.Delete("/image/{id}", s.handleDelete)
	})

	s.Server = httptest.NewServer(r)
	return s
}

// SeedUser registers an account and returns its id.
func (s *Server) SeedUser(email, password, nickname string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	acc := account{
		wireUser: wireUser{ID: uuid.NewString(), Email: email, Nickname: nickname},
		password: password,
	}
	s.users[email] = acc
	return acc.ID
}

// SeedArticle places an article at the top of the board.
func (s *Server) SeedArticle(title, description, authorID string) Article {
	s.mu.Lock()
	defer s.mu.Unlock()
	a := s.newArticleLocked(title, description, authorID, []byte("seed"))
	return a
}

// RemoveArticle drops an article without going through the API.
func (s *Server) RemoveArticle(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.removeLocked(id)
}

// SetListBody makes GET / answer with raw instead of the stored articles. nil restores normal behaviour.
func (s *Server) SetListBody(raw []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listOverride = raw
}

// Articles returns the stored articles, newest first.
func (s *Server) Articles() []Article {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Article(nil), s.articles...)
}

// Image returns the stored bytes for an article image.
func (s *Server) Image(articleID string) []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.images[articleID]
}

// Requests returns every request received so far.
func (s *Server) Requests() []RecordedRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]RecordedRequest(nil), s.requests...)
}

func (s *Server) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		r.Body = io.NopCloser(bytes.NewReader(body))

		s.mu.Lock()
		s.requests = append(s.requests, RecordedRequest{
			Method: r.Method,
			Path:   r.URL.Path,
			Header: r.Header.Clone(),
			Body:   body,
		})
		s.mu.Unlock()

		next.ServeHTTP(w, r)
	})
}

func (s *Server) requireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := r.Cookie(sessionCookie)
		s.mu.Lock()
		_, ok := s.sessions[cookieValue(c, err)]
		s.mu.Unlock()
		if !ok {
			fail(w, r, http.StatusUnauthorized, "login required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	override := s.listOverride
	articles := append([]Article{}, s.articles...)
	s.mu.Unlock()

	if override != nil {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(override)
		return
	}
	render.JSON(w, r, articles)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := render.DecodeJSON(r.Body, &body); err != nil {
		fail(w, r, http.StatusBadRequest, err.Error())
		return
	}

	s.mu.Lock()
	acc, ok := s.users[body.Email]
	if ok && acc.password == body.Password {
		token := uuid.NewString()
		s.sessions[token] = acc.ID
		http.SetCookie(w, &http.Cookie{Name: sessionCookie, Value: token, Path: "/", HttpOnly: true})
	}
	s.mu.Unlock()

	if !ok || acc.password != body.Password {
		fail(w, r, http.StatusUnauthorized, "invalid email or password")
		return
	}
	render.JSON(w, r, acc.wireUser)
}

func (s *Server) handleSignUp(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Email    string `json:"email"`
		Password string `json:"password"`
		Nickname string `json:"nickname"`
	}
	if err := render.DecodeJSON(r.Body, &body); err != nil {
		fail(w, r, http.StatusBadRequest, err.Error())
		return
	}

	s.mu.Lock()
	_, exists := s.users[body.Email]
	s.mu.Unlock()
	if exists {
		fail(w, r, http.StatusNotAcceptable, "email already exists")
		return
	}

	id := s.SeedUser(body.Email, body.Password, body.Nickname)
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, wireUser{ID: id, Email: body.Email, Nickname: body.Nickname})
}

type articleRequest struct {
	ImageTitle       string  `json:"imageTitle"`
	ImageDescription string  `json:"imageDescription"`
	ImageData        *string `json:"imageData"`
}

func (s *Server) handlePost(w http.ResponseWriter, r *http.Request) {
	var body articleRequest
	if err := render.DecodeJSON(r.Body, &body); err != nil {
		fail(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if body.ImageData == nil {
		fail(w, r, http.StatusBadRequest, "imageData is required")
		return
	}
	img, err := base64.StdEncoding.DecodeString(*body.ImageData)
	if err != nil {
		fail(w, r, http.StatusBadRequest, "imageData is not base64")
		return
	}

	s.mu.Lock()
	a := s.newArticleLocked(body.ImageTitle, body.ImageDescription, s.sessionUserLocked(r), img)
	s.mu.Unlock()

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, a)
}

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	var body articleRequest
	if err := render.DecodeJSON(r.Body, &body); err != nil {
		fail(w, r, http.StatusBadRequest, err.Error())
		return
	}
	var img []byte
	if body.ImageData != nil {
		decoded, err := base64.StdEncoding.DecodeString(*body.ImageData)
		if err != nil {
			fail(w, r, http.StatusBadRequest, "imageData is not base64")
			return
		}
		img = decoded
	}

	id := chi.URLParam(r, "id")
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := s.indexLocked(id)
	if idx < 0 {
		fail(w, r, http.StatusNotFound, "no such article")
		return
	}
	if s.articles[idx].Author != s.sessionUserLocked(r) {
		fail(w, r, http.StatusForbidden, "not the author")
		return
	}
	s.articles[idx].Title = body.ImageTitle
	s.articles[idx].Description = body.ImageDescription
	if img != nil {
		s.images[id] = img
	}
	render.JSON(w, r, s.articles[idx])
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := s.indexLocked(id)
	if idx < 0 {
		fail(w, r, http.StatusNotFound, "no such article")
		return
	}
	if s.articles[idx].Author != s.sessionUserLocked(r) {
		fail(w, r, http.StatusForbidden, "not the author")
		return
	}
	deleted := s.articles[idx]
	s.removeLocked(id)
	render.JSON(w, r, []Article{deleted})
}

func (s *Server) handleImage(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	s.mu.Lock()
	var img []byte
	for _, a := range s.articles {
		if name == a.ID+".jpg" || name == a.ID+"_thumb.jpg" {
			img = s.images[a.ID]
			break
		}
	}
	s.mu.Unlock()

	if img == nil {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "image/jpeg")
	_, _ = w.Write(img)
}

func (s *Server) newArticleLocked(title, description, authorID string, img []byte) Article {
	nickname := ""
	for _, acc := range s.users {
		if acc.ID == authorID {
			nickname = acc.Nickname
			break
		}
	}
	id := uuid.NewString()
	a := Article{
		ID:             id,
		Title:          title,
		Description:    description,
		ImageURL:       "/images/" + id + ".jpg",
		ThumbImageURL:  "/images/" + id + "_thumb.jpg",
		Author:         authorID,
		AuthorNickname: nickname,
		CreatedAt:      time.Now().Unix(),
	}
	s.articles = append([]Article{a}, s.articles...)
	s.images[id] = img
	return a
}

func (s *Server) removeLocked(id string) {
	if idx := s.indexLocked(id); idx >= 0 {
		s.articles = append(s.articles[:idx], s.articles[idx+1:]...)
		delete(s.images, id)
	}
}

func (s *Server) indexLocked(id string) int {
	for i, a := range s.articles {
		if a.ID == id {
			return i
		}
	}
	return -1
}

func (s *Server) sessionUserLocked(r *http.Request) string {
	c, err := r.Cookie(sessionCookie)
	return s.sessions[cookieValue(c, err)]
}

func cookieValue(c *http.Cookie, err error) string {
	if err != nil || c == nil {
		return ""
	}
	return c.Value
}

func fail(w http.ResponseWriter, r *http.Request, status int, msg string) {
	render.Status(r, status)
	render.JSON(w, r, map[string]string{"message": msg})
}
