package boardapi

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/samvad-hq/imageboard-client/internal/domain"
	"github.com/samvad-hq/imageboard-client/pkg/httpclient"
)

const (
	headerContentType = "Content-Type"
	contentTypeJSON   = "application/json"

	pathLogin = "login"
	pathUser  = "user"
	pathImage = "image"
)

// Request body keys.
const (
	KeyEmail            = "email"
	KeyPassword         = "password"
	KeyNickname         = "nickname"
	KeyImageTitle       = "imageTitle"
	KeyImageDescription = "imageDescription"
	KeyImageData        = "imageData"
)

var (
	errMissingImage     = errors.New("image data is required")
	errMissingArticleID = errors.New("article id is required")
	errInvalidArticleID = errors.New("article id must not be a dot segment")
)

// requestBuilder turns typed operation parameters into request descriptors.
// It never touches the network.
type requestBuilder struct {
	base    *url.URL
	headers map[string]string
}

func newRequestBuilder(baseURL string, headers map[string]string) (requestBuilder, error) {
	base, err := url.Parse(strings.TrimSpace(baseURL))
	if err != nil {
		return requestBuilder{}, fmt.Errorf("parse base url: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return requestBuilder{}, fmt.Errorf("base url %q must be http or https", baseURL)
	}
	if base.Host == "" {
		return requestBuilder{}, fmt.Errorf("base url %q has no host", baseURL)
	}

	cp := make(map[string]string, len(headers))
	for k, v := range headers {
		cp[k] = v
	}
	return requestBuilder{base: base, headers: cp}, nil
}

type signInBody struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type signUpBody struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Nickname string `json:"nickname"`
}

type articleBody struct {
	ImageTitle       string `json:"imageTitle"`
	ImageDescription string `json:"imageDescription"`
	ImageData        string `json:"imageData,omitempty"`
}

func (b requestBuilder) signIn(creds domain.Credentials) (httpclient.Request, error) {
	return b.jsonRequest(http.MethodPost, signInBody{
		Email:    creds.Email,
		Password: creds.Password,
	}, pathLogin)
}

func (b requestBuilder) signUp(u domain.User) (httpclient.Request, error) {
	return b.jsonRequest(http.MethodPost, signUpBody{
		Email:    u.Email,
		Password: u.Password,
		Nickname: u.Nickname,
	}, pathUser)
}

func (b requestBuilder) listArticles() (httpclient.Request, error) {
	return b.request(http.MethodGet, nil)
}

func (b requestBuilder) postArticle(a domain.Article) (httpclient.Request, error) {
	if len(a.ImageData) == 0 {
		return httpclient.Request{}, fmt.Errorf("%w: %w", ErrRequestSerialization, errMissingImage)
	}
	return b.jsonRequest(http.MethodPost, articleBody{
		ImageTitle:       a.Title,
		ImageDescription: a.Description,
		ImageData:        base64.StdEncoding.EncodeToString(a.ImageData),
	}, pathImage)
}

// updateArticle only carries imageData when a new image is supplied.
func (b requestBuilder) updateArticle(a domain.Article) (httpclient.Request, error) {
	id, err := articleID(a.ID)
	if err != nil {
		return httpclient.Request{}, err
	}
	body := articleBody{
		ImageTitle:       a.Title,
		ImageDescription: a.Description,
	}
	if len(a.ImageData) > 0 {
		body.ImageData = base64.StdEncoding.EncodeToString(a.ImageData)
	}
	return b.jsonRequest(http.MethodPost, body, pathImage, id)
}

func (b requestBuilder) deleteArticle(id string) (httpclient.Request, error) {
	id, err := articleID(id)
	if err != nil {
		return httpclient.Request{}, err
	}
	return b.request(http.MethodDelete, nil, pathImage, id)
}

// articleID trims id and rejects the dot segments url.JoinPath would clean
// away, so /image/{id} never collapses onto /image or the board root.
func articleID(id string) (string, error) {
	id = strings.TrimSpace(id)
	switch {
	case id == "":
		return "", fmt.Errorf("%w: %w", ErrRequestSerialization, errMissingArticleID)
	case id == "." || id == "..":
		return "", fmt.Errorf("%w: %w: %q", ErrRequestSerialization, errInvalidArticleID, id)
	}
	return id, nil
}

// resolve returns ref as an absolute URL against the board base. Absolute refs pass through.
func (b requestBuilder) resolve(ref string) (string, error) {
	parsed, err := url.Parse(strings.TrimSpace(ref))
	if err != nil {
		return "", fmt.Errorf("parse image path: %w", err)
	}
	return b.base.ResolveReference(parsed).String(), nil
}

func (b requestBuilder) jsonRequest(method string, payload any, elems ...string) (httpclient.Request, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return httpclient.Request{}, fmt.Errorf("%w: encode body: %w", ErrRequestSerialization, err)
	}
	req, err := b.request(method, body, elems...)
	if err != nil {
		return httpclient.Request{}, err
	}
	req.Headers[headerContentType] = contentTypeJSON
	return req, nil
}

func (b requestBuilder) request(method string, body []byte, elems ...string) (httpclient.Request, error) {
	target := b.base.String()
	if len(elems) > 0 {
		escaped := make([]string, len(elems))
		for i, e := range elems {
			escaped[i] = url.PathEscape(e)
		}
		joined, err := url.JoinPath(target, escaped...)
		if err != nil {
			return httpclient.Request{}, fmt.Errorf("%w: build url: %w", ErrRequestSerialization, err)
		}
		target = joined
	}

	headers := make(map[string]string, len(b.headers)+1)
	for k, v := range b.headers {
		headers[k] = v
	}
	return httpclient.Request{
		Method:  method,
		URL:     target,
		Headers: headers,
		Body:    body,
	}, nil
}
