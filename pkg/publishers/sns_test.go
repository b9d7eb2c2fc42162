package publishers

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/samvad-hq/imageboard-client/internal/domain"
)

type fakeSNSClient struct {
	input *sns.PublishInput
	err   error
}

func (f *fakeSNSClient) Publish(_ context.Context, params *sns.PublishInput, _ ...func(*sns.Options)) (*sns.PublishOutput, error) {
	f.input = params
	if f.err != nil {
		return nil, f.err
	}
	return &sns.PublishOutput{MessageId: aws.String("msg-123")}, nil
}

func TestSNSPublisherPublishesToTopic(t *testing.T) {
	client := &fakeSNSClient{}
	pub := &snsPublisher{
		id:       "topic",
		topicARN: "arn:aws:sns:::topic",
		client:   client,
		log:      noopLogger{},
	}

	err := pub.Publish(context.Background(), NewEvent(KindArticleRemoved, "board-1", "Board", domain.Article{ID: "a1"}))
	if err != nil {
		t.Fatalf("Publish returned error: %v", err)
	}
	if client.input == nil {
		t.Fatalf("client was not called")
	}
	if got := aws.ToString(client.input.TopicArn); got != "arn:aws:sns:::topic" {
		t.Fatalf("TopicArn = %s", got)
	}
	attr, ok := client.input.MessageAttributes["board_id"]
	if !ok || aws.ToString(attr.StringValue) != "board-1" || aws.ToString(attr.DataType) != "String" {
		t.Fatalf("board_id attribute missing or wrong: %#v", attr)
	}
	if msg := aws.ToString(client.input.Message); !strings.Contains(msg, `"kind":"article.removed"`) {
		t.Fatalf("Message missing kind: %s", msg)
	}
}

func TestSNSPublisherPublishError(t *testing.T) {
	pub := &snsPublisher{
		id:       "topic",
		topicARN: "arn:aws:sns:::topic",
		client:   &fakeSNSClient{err: errors.New("boom")},
		log:      noopLogger{},
	}
	if err := pub.Publish(context.Background(), Event{BoardID: "b"}); err == nil {
		t.Fatalf("expected error from Publish")
	}
}

func TestBuildAWSPublishersWithStaticCredentials(t *testing.T) {
	creds := &AWSCredentials{AccessKeyID: "AKID", SecretAccessKey: "secret"}
	pubs, err := BuildAll(context.Background(), DefaultRegistry(), []PublisherConfig{
		{ID: "q", Type: TypeSQS, SQS: &SQSPublisherConfig{QueueURL: "http://localhost:4566/000000000000/q", Region: "us-east-1", Endpoint: "http://localhost:4566", Credentials: creds}},
		{ID: "t", Type: TypeSNS, SNS: &SNSPublisherConfig{TopicARN: "arn:aws:sns:us-east-1:000000000000:t", Region: "us-east-1", Credentials: creds}},
	}, nil)
	if err != nil {
		t.Fatalf("BuildAll: %v", err)
	}
	if len(pubs) != 2 || pubs[0].Type() != TypeSQS || pubs[1].Type() != TypeSNS {
		t.Fatalf("unexpected publishers: %#v", pubs)
	}
}
