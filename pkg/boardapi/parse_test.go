package boardapi

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/samvad-hq/imageboard-client/internal/domain"
)

const validArticle = `{
  "_id": "a1",
  "image_title": "sunset",
  "image_desc": "over the han river",
  "image_url": "/images/a1.jpg",
  "thumb_image_url": "/images/a1_thumb.jpg",
  "author": "u1",
  "author_nickname": "ju",
  "created_at": 1501300000
}`

func TestParseArticleFull(t *testing.T) {
	a, err := parseArticle([]byte(validArticle))
	if err != nil {
		t.Fatalf("parseArticle: %v", err)
	}
	want := domain.Article{
		ID:             "a1",
		Title:          "sunset",
		Description:    "over the han river",
		AuthorID:       "u1",
		AuthorNickname: "ju",
		ImageURL:       "/images/a1.jpg",
		ThumbImageURL:  "/images/a1_thumb.jpg",
		CreatedAt:      time.Unix(1501300000, 0).UTC(),
	}
	if a.ID != want.ID || a.Title != want.Title || a.Description != want.Description ||
		a.AuthorID != want.AuthorID || a.AuthorNickname != want.AuthorNickname ||
		a.ImageURL != want.ImageURL || a.ThumbImageURL != want.ThumbImageURL ||
		!a.CreatedAt.Equal(want.CreatedAt) {
		t.Fatalf("parseArticle = %+v, want %+v", a, want)
	}
}

func TestParseArticleMissingRequiredFieldYieldsZeroRecord(t *testing.T) {
	cases := map[string]string{
		"no id":          `{"image_title":"t","image_desc":"d","author":"u"}`,
		"blank id":       `{"_id":" ","image_title":"t","image_desc":"d","author":"u"}`,
		"no title":       `{"_id":"a","image_desc":"d","author":"u"}`,
		"null desc":      `{"_id":"a","image_title":"t","image_desc":null,"author":"u"}`,
		"no author":      `{"_id":"a","image_title":"t","image_desc":"d"}`,
		"numeric title":  `{"_id":"a","image_title":5,"image_desc":"d","author":"u"}`,
		"bad optional":   `{"_id":"a","image_title":"t","image_desc":"d","author":"u","image_url":[]}`,
		"bad created_at": `{"_id":"a","image_title":"t","image_desc":"d","author":"u","created_at":"yesterday"}`,
	}
	for name, body := range cases {
		a, err := parseArticle([]byte(body))
		if !errors.Is(err, ErrRecordInitialization) {
			t.Errorf("%s: expected ErrRecordInitialization, got %v", name, err)
		}
		if !reflect.DeepEqual(a, domain.Article{}) {
			t.Errorf("%s: expected zero article, got %+v", name, a)
		}
	}
}

func TestParseArticleRejectsNonObject(t *testing.T) {
	for _, body := range []string{``, `[]`, `"x"`, `{"_id":`, `<html></html>`} {
		if _, err := parseArticle([]byte(body)); !errors.Is(err, ErrResponseDeserialization) {
			t.Errorf("%q: expected ErrResponseDeserialization, got %v", body, err)
		}
	}
}

func TestParseArticleCreatedAtFormats(t *testing.T) {
	want := time.Date(2017, 7, 29, 3, 0, 0, 0, time.UTC)
	for _, v := range []string{`1501297200`, `1501297200000`, `"2017-07-29T03:00:00Z"`, `"2017-07-29T12:00:00+09:00"`} {
		body := `{"_id":"a","image_title":"t","image_desc":"d","author":"u","created_at":` + v + `}`
		a, err := parseArticle([]byte(body))
		if err != nil {
			t.Fatalf("%s: %v", v, err)
		}
		if !a.CreatedAt.Equal(want) {
			t.Errorf("%s: CreatedAt = %v want %v", v, a.CreatedAt, want)
		}
	}
}

func TestParseArticleListSkipsMalformed(t *testing.T) {
	body := `[` + validArticle + `,
	  {"_id":"broken"},
	  42,
	  {"_id":"a2","image_title":"t2","image_desc":"d2","author":"u2"}
	]`
	articles, skipped, err := parseArticleList([]byte(body))
	if err != nil {
		t.Fatalf("parseArticleList: %v", err)
	}
	if len(articles) != 2 || articles[0].ID != "a1" || articles[1].ID != "a2" {
		t.Fatalf("unexpected articles %+v", articles)
	}
	if skipped != 2 {
		t.Fatalf("skipped = %d want 2", skipped)
	}
}

func TestParseArticleListFailsWhenNoneValid(t *testing.T) {
	for _, body := range []string{`[]`, `[{"_id":"x"}, null, "s"]`, `{}`, `nope`} {
		articles, _, err := parseArticleList([]byte(body))
		if !errors.Is(err, ErrResponseDeserialization) {
			t.Errorf("%q: expected ErrResponseDeserialization, got %v", body, err)
		}
		if articles != nil {
			t.Errorf("%q: expected nil articles", body)
		}
	}
}

func TestParseDeletedArticleUsesFirstElement(t *testing.T) {
	a, err := parseDeletedArticle([]byte(`[` + validArticle + `, {"_id":"other"}]`))
	if err != nil {
		t.Fatalf("parseDeletedArticle: %v", err)
	}
	if a.ID != "a1" {
		t.Fatalf("ID = %s", a.ID)
	}

	if _, err := parseDeletedArticle([]byte(`[]`)); !errors.Is(err, ErrResponseDeserialization) {
		t.Fatalf("empty array: expected ErrResponseDeserialization, got %v", err)
	}
	if _, err := parseDeletedArticle([]byte(validArticle)); !errors.Is(err, ErrResponseDeserialization) {
		t.Fatalf("object body: expected ErrResponseDeserialization, got %v", err)
	}
	if _, err := parseDeletedArticle([]byte(`[{"_id":"x"}]`)); !errors.Is(err, ErrRecordInitialization) {
		t.Fatalf("bad first element: expected ErrRecordInitialization, got %v", err)
	}
}

func TestParseUser(t *testing.T) {
	u, err := parseUser([]byte(`{"_id":"u1","email":"a@b.c","nickname":"ju","password":"ignored"}`))
	if err != nil {
		t.Fatalf("parseUser: %v", err)
	}
	if u.ID != "u1" || u.Email != "a@b.c" || u.Nickname != "ju" || u.Password != "" {
		t.Fatalf("unexpected user %+v", u)
	}

	u, err = parseUser([]byte(`{"email":"a@b.c"}`))
	if !errors.Is(err, ErrRecordInitialization) {
		t.Fatalf("expected ErrRecordInitialization, got %v", err)
	}
	if u != (domain.User{}) {
		t.Fatalf("expected zero user, got %+v", u)
	}
}
