// internal/notify/sns.go
package notify

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sns"

	"conference-engine/internal/common/logger"
	"conference-engine/internal/links"
)

// SNSNotifier publishes the client link to an SNS topic, for push-style
// delivery handled downstream.
type SNSNotifier struct {
	client   *sns.Client
	topicARN string
	logger   logger.Logger
}

func NewSNSNotifier(ctx context.Context, region, topicARN string, log logger.Logger) (*SNSNotifier, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, err
	}
	return &SNSNotifier{
		client:   sns.NewFromConfig(cfg),
		topicARN: topicARN,
		logger:   log.WithFields(map[string]interface{}{"notifier": "sns"}),
	}, nil
}

func (n *SNSNotifier) SendLink(ctx context.Context, recipient string, link *links.Link) error {
	_, body := LinkMessage(link)

	_, err := n.client.Publish(ctx, &sns.PublishInput{
		TopicArn: aws.String(n.topicARN),
		Subject:  aws.String("conference-link"),
		Message:  aws.String(body),
	})
	if err != nil {
		n.logger.Error("failed to publish link", map[string]interface{}{
			"recipient": recipient,
			"error":     err,
		})
		return err
	}
	return nil
}
