package aws

import (
	"context"
	"encoding/json"
	"fmt"

	awsv2 "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sns/types"

	"reasoncare-orchestrator/internal/common/logger"
	"reasoncare-orchestrator/internal/models"
)

type SNSService interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// SNSNotifier publishes request lifecycle events. Events never carry case data.
type SNSNotifier struct {
	client   SNSService
	topicARN string
	logger   logger.Logger
}

func NewSNSNotifier(ctx context.Context, region, topicARN string, log logger.Logger) (*SNSNotifier, error) {
	cfg, err := LoadConfig(ctx, region)
	if err != nil {
		return nil, err
	}
	return NewSNSNotifierWithClient(sns.NewFromConfig(cfg), topicARN, log), nil
}

func NewSNSNotifierWithClient(client SNSService, topicARN string, log logger.Logger) *SNSNotifier {
	return &SNSNotifier{client: client, topicARN: topicARN, logger: logger.ForComponent(log, "sns")}
}

func (s *SNSNotifier) Publish(ctx context.Context, event models.Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}

	out, err := s.client.Publish(ctx, &sns.PublishInput{
		TopicArn: awsv2.String(s.topicARN),
		Message:  awsv2.String(string(body)),
		MessageAttributes: map[string]types.MessageAttributeValue{
			"event_type": {
				DataType:    awsv2.String("String"),
				StringValue: awsv2.String(string(event.Type)),
			},
		},
	})
	if err != nil {
		return fmt.Errorf("sns publish %s: %w", event.Type, err)
	}

	s.logger.Debug("event published", map[string]interface{}{
		"eventType": string(event.Type),
		"requestId": event.RequestID,
		"messageId": awsv2.ToString(out.MessageId),
	})
	return nil
}
