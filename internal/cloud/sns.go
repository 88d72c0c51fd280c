package cloud

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/rs/zerolog/log"

	"github.com/fermwise/farm-monitoring/internal/domain"
)

type snsPublisher interface {
	Publish(ctx context.Context, in *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// SNSClient publishes monitoring notifications to a topic
type SNSClient struct {
	svc      snsPublisher
	topicArn string
}

func NewSNSClient(cfg aws.Config, topicArn string) *SNSClient {
	return &SNSClient{svc: sns.NewFromConfig(cfg), topicArn: topicArn}
}

// SendAlert sends a notification via SNS
func (c *SNSClient) SendAlert(ctx context.Context, subject, message string) error {
	input := &sns.PublishInput{
		TopicArn: aws.String(c.topicArn),
		Subject:  aws.String(truncate(subject, 100)),
		Message:  aws.String(message),
	}

	result, err := c.svc.Publish(ctx, input)
	if err != nil {
		return fmt.Errorf("failed to publish to SNS: %w", err)
	}

	log.Debug().Str("message_id", aws.ToString(result.MessageId)).Msg("alert published")
	return nil
}

// NotifyFarm publishes the critical and warning alerts of a farm verdict.
func (c *SNSClient) NotifyFarm(ctx context.Context, v domain.FarmVerdict) error {
	subject := fmt.Sprintf("Farm %s: %s", v.FarmID, strings.ReplaceAll(string(v.Status), "_", " "))

	var b strings.Builder
	b.WriteString(v.Summary)
	b.WriteString("\n\n")
	n := 0
	for _, a := range v.Alerts {
		if a.Level == domain.LevelInfo {
			continue
		}
		n++
		fmt.Fprintf(&b, "%d. [%s] %s\n", n, strings.ToUpper(string(a.Level)), a.Message)
	}
	if len(v.Recommendations) > 0 {
		b.WriteString("\nRecommended actions:\n")
		for _, r := range v.Recommendations {
			fmt.Fprintf(&b, "- (%s) %s\n", r.Priority, r.Message)
		}
	}
	return c.SendAlert(ctx, subject, b.String())
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
