package notify

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sqs"

	"github.com/courtwatch-hq/courtwatch-scraper/internal/logger"
)

// fakeSQSClient records sent messages and can fail.
type fakeSQSClient struct {
	inputs []*sqs.SendMessageInput
	err    error
}

func (f *fakeSQSClient) SendMessage(_ context.Context, params *sqs.SendMessageInput, _ ...func(*sqs.Options)) (*sqs.SendMessageOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.inputs = append(f.inputs, params)
	return &sqs.SendMessageOutput{}, nil
}

// fakeSNSClient records published messages and can fail.
type fakeSNSClient struct {
	inputs []*sns.PublishInput
	err    error
}

func (f *fakeSNSClient) Publish(_ context.Context, params *sns.PublishInput, _ ...func(*sns.Options)) (*sns.PublishOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.inputs = append(f.inputs, params)
	return &sns.PublishOutput{}, nil
}

func TestSQSSinkSendsMessageWithAttributes(t *testing.T) {
	client := &fakeSQSClient{}
	sink := &sqsSink{
		id:       "slots-sqs",
		typ:      TypeSQS,
		queueURL: "https://sqs.eu-west-2.amazonaws.com/1/court-slots",
		client:   client,
		log:      logger.NopLogger{},
	}

	n := NewNotification(testSlot(), "clubspark")
	if err := sink.Publish(context.Background(), n); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	if len(client.inputs) != 1 {
		t.Fatalf("expected 1 message, got %d", len(client.inputs))
	}
	input := client.inputs[0]
	if *input.QueueUrl != sink.queueURL {
		t.Fatalf("wrong queue url %q", *input.QueueUrl)
	}

	var got Notification
	if err := json.Unmarshal([]byte(*input.MessageBody), &got); err != nil {
		t.Fatalf("body not valid JSON: %v", err)
	}
	if got.VenueID != n.VenueID {
		t.Fatalf("body mismatch %+v", got)
	}

	attr, ok := input.MessageAttributes["venue_id"]
	if !ok || *attr.StringValue != n.VenueID {
		t.Fatalf("venue_id attribute missing or wrong: %+v", input.MessageAttributes)
	}
	if attr, ok := input.MessageAttributes["platform"]; !ok || *attr.StringValue != "clubspark" {
		t.Fatalf("platform attribute missing or wrong")
	}
}

func TestSQSSinkPropagatesSendErrors(t *testing.T) {
	sink := &sqsSink{
		id:       "slots-sqs",
		typ:      TypeSQS,
		queueURL: "https://sqs.eu-west-2.amazonaws.com/1/court-slots",
		client:   &fakeSQSClient{err: errors.New("throttled")},
		log:      logger.NopLogger{},
	}

	if err := sink.Publish(context.Background(), NewNotification(testSlot(), "clubspark")); err == nil {
		t.Fatalf("expected send error")
	}
}

func TestSNSSinkPublishesToTopic(t *testing.T) {
	client := &fakeSNSClient{}
	sink := &snsSink{
		id:       "slots-sns",
		typ:      TypeSNS,
		topicARN: "arn:aws:sns:eu-west-2:1:court-slots",
		client:   client,
		log:      logger.NopLogger{},
	}

	n := NewNotification(testSlot(), "clubspark")
	if err := sink.Publish(context.Background(), n); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	if len(client.inputs) != 1 {
		t.Fatalf("expected 1 publish, got %d", len(client.inputs))
	}
	input := client.inputs[0]
	if *input.TopicArn != sink.topicARN {
		t.Fatalf("wrong topic arn %q", *input.TopicArn)
	}

	var got Notification
	if err := json.Unmarshal([]byte(*input.Message), &got); err != nil {
		t.Fatalf("message not valid JSON: %v", err)
	}
	if got.CourtID != n.CourtID {
		t.Fatalf("message mismatch %+v", got)
	}
}

func TestSNSSinkValidatesBeforePublish(t *testing.T) {
	client := &fakeSNSClient{}
	sink := &snsSink{
		id:       "slots-sns",
		typ:      TypeSNS,
		topicARN: "arn:aws:sns:eu-west-2:1:court-slots",
		client:   client,
		log:      logger.NopLogger{},
	}

	n := NewNotification(testSlot(), "clubspark")
	n.Date = ""
	if err := sink.Publish(context.Background(), n); err == nil {
		t.Fatalf("expected validation error")
	}
	if len(client.inputs) != 0 {
		t.Fatalf("invalid notification must not be published")
	}
}
