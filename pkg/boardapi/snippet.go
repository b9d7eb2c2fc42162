package boardapi

import (
	"bytes"
	"mime"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
)

const maxSnippetLen = 256

// bodySnippet summarizes a response body for error messages. HTML error
// pages are reduced to their title and visible text.
func bodySnippet(contentType string, body []byte) string {
	text := strings.TrimSpace(string(body))
	if looksLikeHTML(contentType, body) {
		if extracted := htmlText(body); extracted != "" {
			text = extracted
		}
	}
	text = strings.Join(strings.Fields(text), " ")
	if text == "" {
		return "<empty>"
	}
	if len(text) > maxSnippetLen {
		n := maxSnippetLen
		for n > 0 && !utf8.RuneStart(text[n]) {
			n--
		}
		return text[:n] + "..."
	}
	return text
}

func looksLikeHTML(contentType string, body []byte) bool {
	if mediaType, _, err := mime.ParseMediaType(contentType); err == nil && mediaType == "text/html" {
		return true
	}
	head := bytes.ToLower(bytes.TrimSpace(body))
	return bytes.HasPrefix(head, []byte("<!doctype html")) || bytes.HasPrefix(head, []byte("<html"))
}

func htmlText(body []byte) string {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return ""
	}
	doc.Find("script, style").Remove()

	title := strings.TrimSpace(doc.Find("title").First().Text())
	text := strings.TrimSpace(doc.Find("body").First().Text())
	switch {
	case title == "":
		return text
	case text == "" || strings.HasPrefix(text, title):
		return title
	default:
		return title + ": " + text
	}
}
