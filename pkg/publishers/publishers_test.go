package publishers

import (
	"os"
	"path/filepath"
	"testing"
)

func writeRegistry(t *testing.T, name, raw string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(raw), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}
	return path
}

func TestLoadRegistryEnabledFilter(t *testing.T) {
	path := writeRegistry(t, "publishers.yaml", `
publishers:
  - id: http1
    type: http
    enabled: false
    http:
      url: https://example.com
  - id: http2
    type: HTTP
    http:
      url: " https://example.com/2 "
      headers:
        X-Token: abc
        X-Empty: ""
  - id: topic
    type: sns
    sns:
      topic_arn: arn:aws:sns:us-east-1:1:t
      region: us-east-1
      credentials:
        access_key_id: AKID
        secret_access_key: secret
  - id: ps
    type: pubsub
    pubsub:
      project_id: proj
      topic: boards
`)

	reg, err := LoadRegistry(path)
	if err != nil {
		t.Fatalf("LoadRegistry: %v", err)
	}
	enabled := reg.Enabled()
	if len(enabled) != 3 || enabled[0].ID != "http2" {
		t.Fatalf("expected http1 filtered out, got %#v", enabled)
	}

	h, _ := reg.ByID("http2")
	if h.Type != TypeHTTP || h.HTTP.URL != "https://example.com/2" || h.HTTP.Method != "POST" || h.HTTP.TimeoutSeconds != httpDefaultTimeoutSeconds {
		t.Fatalf("http config not sanitized: %+v", h.HTTP)
	}
	if _, ok := h.HTTP.Headers["X-Empty"]; ok || h.HTTP.Headers["X-Token"] != "abc" {
		t.Fatalf("headers not sanitized: %v", h.HTTP.Headers)
	}
	if s, _ := reg.ByID("topic"); s.SNS.Credentials == nil || s.SNS.Credentials.AccessKeyID != "AKID" {
		t.Fatalf("sns credentials not loaded: %+v", s.SNS)
	}
}

func TestLoadRegistryJSON(t *testing.T) {
	path := writeRegistry(t, "publishers.json", `{"publishers":[{"id":"q","type":"sqs","sqs":{"uri":"https://sqs/q","region":"eu-west-1"}}]}`)
	reg, err := LoadRegistry(path)
	if err != nil {
		t.Fatalf("LoadRegistry: %v", err)
	}
	if q, ok := reg.ByID("q"); !ok || q.SQS.Region != "eu-west-1" {
		t.Fatalf("unexpected sqs config: %+v", q)
	}
}

func TestValidatePublisherConfigRejectsIncomplete(t *testing.T) {
	cases := map[string]PublisherConfig{
		"missing http":      {ID: "h1", Type: TypeHTTP},
		"missing topic arn": {ID: "s1", Type: TypeSNS, SNS: &SNSPublisherConfig{Region: "us-east-1"}},
		"missing project":   {ID: "p1", Type: TypePubSub, PubSub: &PubSubPublisherConfig{Topic: "t"}},
		"half credentials": {ID: "q1", Type: TypeSQS, SQS: &SQSPublisherConfig{
			QueueURL: "https://sqs/q", Region: "r", Credentials: &AWSCredentials{AccessKeyID: "AKID"},
		}},
	}
	for name, cfg := range cases {
		if err := validatePublisherConfig(sanitizePublisherConfig(cfg)); err == nil {
			t.Errorf("%s: expected validation error", name)
		}
	}
}
