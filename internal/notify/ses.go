// internal/notify/ses.go
package notify

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"

	"conference-engine/internal/common/logger"
	"conference-engine/internal/links"
)

// SESNotifier emails the client link through AWS SES.
type SESNotifier struct {
	client    *ses.Client
	fromEmail string
	logger    logger.Logger
}

func NewSESNotifier(ctx context.Context, region, fromEmail string, log logger.Logger) (*SESNotifier, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, err
	}
	return &SESNotifier{
		client:    ses.NewFromConfig(cfg),
		fromEmail: fromEmail,
		logger:    log.WithFields(map[string]interface{}{"notifier": "ses"}),
	}, nil
}

func (n *SESNotifier) SendLink(ctx context.Context, recipient string, link *links.Link) error {
	subject, body := LinkMessage(link)

	_, err := n.client.SendEmail(ctx, &ses.SendEmailInput{
		Destination: &types.Destination{
			ToAddresses: []string{recipient},
		},
		Message: &types.Message{
			Subject: &types.Content{Data: aws.String(subject)},
			Body: &types.Body{
				Text: &types.Content{Data: aws.String(body)},
			},
		},
		Source: aws.String(n.fromEmail),
	})
	if err != nil {
		n.logger.Error("failed to send link email", map[string]interface{}{
			"recipient": recipient,
			"error":     err,
		})
		return err
	}

	n.logger.Info("link email sent", map[string]interface{}{
		"recipient":    recipient,
		"conferenceId": link.ConferenceID,
	})
	return nil
}
