package boardapi

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestBodySnippet(t *testing.T) {
	if got := bodySnippet("", nil); got != "<empty>" {
		t.Fatalf("empty body snippet = %q", got)
	}
	if got := bodySnippet("application/json", []byte(`{"message":  "login required"}`)); got != `{"message": "login required"}` {
		t.Fatalf("json snippet = %q", got)
	}

	html := `<!DOCTYPE html><html><head><title>Error</title><script>var x=1</script></head>
<body><pre>Cannot POST /image/x</pre></body></html>`
	if got := bodySnippet("", []byte(html)); got != "Error: Cannot POST /image/x" {
		t.Fatalf("html snippet = %q", got)
	}

	long := strings.Repeat("x", maxSnippetLen+50)
	if got := bodySnippet("text/plain", []byte(long)); len(got) != maxSnippetLen+3 {
		t.Fatalf("expected truncation, got len %d", len(got))
	}

	hangul := "ab" + strings.Repeat("가", 200)
	got := bodySnippet("text/plain; charset=utf-8", []byte(hangul))
	if !utf8.ValidString(got) {
		t.Fatalf("truncated snippet is not valid utf-8: %q", got)
	}
	if !strings.HasSuffix(got, "가...") || len(got) > maxSnippetLen+3 {
		t.Fatalf("hangul snippet = %q (len %d)", got, len(got))
	}
}
