package publishers

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awscfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	snstypes "github.com/aws/aws-sdk-go-v2/service/sns/types"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	sqstypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"
)

const attrArticleID = "article_id"

// sqsClient is the subset of the SQS client the sender uses.
type sqsClient interface {
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
}

// snsClient is the subset of the SNS client the sender uses.
type snsClient interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// loadAWSConfig builds an aws.Config with static credentials for region.
func loadAWSConfig(ctx context.Context, region, keyID, secret string) (aws.Config, error) {
	creds := credentials.NewStaticCredentialsProvider(keyID, secret, "")
	cfg, err := awscfg.LoadDefaultConfig(ctx,
		awscfg.WithRegion(region),
		awscfg.WithCredentialsProvider(creds),
	)
	if err != nil {
		return aws.Config{}, fmt.Errorf("load aws config: %w", err)
	}
	return cfg, nil
}

type awsSQSSender struct {
	queueURL string
	client   sqsClient
	log      Logger
}

func newAWSSQSSender(ctx context.Context, cfg *AWSSQSPublisherConfig, log Logger) (queueSender, error) {
	if cfg == nil {
		return nil, fmt.Errorf("aws sqs configuration is missing")
	}
	awsCfg, err := loadAWSConfig(ctx, cfg.Region, cfg.AccessKeyID, cfg.SecretAccessKey)
	if err != nil {
		return nil, err
	}
	return &awsSQSSender{queueURL: cfg.QueueURL, client: sqs.NewFromConfig(awsCfg), log: ensureLogger(log)}, nil
}

// Send enqueues the share event as a JSON message body.
func (s *awsSQSSender) Send(ctx context.Context, evt ShareEvent) error {
	payload, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("marshal share event: %w", err)
	}

	resp, err := s.client.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:    aws.String(s.queueURL),
		MessageBody: aws.String(string(payload)),
		MessageAttributes: map[string]sqstypes.MessageAttributeValue{
			attrArticleID: {DataType: aws.String("Number"), StringValue: aws.String(evt.articleAttr())},
		},
	})
	if err != nil {
		s.log.ErrorObj("sqs share send failed", "publisher_sqs_error", map[string]any{
			"article_id": evt.ArticleID,
			"error":      err.Error(),
		})
		return fmt.Errorf("send message to sqs: %w", err)
	}
	s.log.DebugObj("sqs share delivered", "publisher_sqs_delivery", map[string]any{
		"article_id": evt.ArticleID,
		"message_id": aws.ToString(resp.MessageId),
	})
	return nil
}

type awsSNSSender struct {
	topicARN string
	client   snsClient
	log      Logger
}

func newAWSSNSSender(ctx context.Context, cfg *AWSSNSPublisherConfig, log Logger) (queueSender, error) {
	if cfg == nil {
		return nil, fmt.Errorf("aws sns configuration is missing")
	}
	awsCfg, err := loadAWSConfig(ctx, cfg.Region, cfg.AccessKeyID, cfg.SecretAccessKey)
	if err != nil {
		return nil, err
	}
	return &awsSNSSender{topicARN: cfg.TopicARN, client: sns.NewFromConfig(awsCfg), log: ensureLogger(log)}, nil
}

// Send publishes the share event to the topic. The caption doubles as the subject
// line for email subscribers, trimmed to the SNS limit.
func (s *awsSNSSender) Send(ctx context.Context, evt ShareEvent) error {
	payload, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("marshal share event: %w", err)
	}

	input := &sns.PublishInput{
		TopicArn: aws.String(s.topicARN),
		Message:  aws.String(string(payload)),
		MessageAttributes: map[string]snstypes.MessageAttributeValue{
			attrArticleID: {DataType: aws.String("Number"), StringValue: aws.String(evt.articleAttr())},
		},
	}
	if subject := snsSubject(evt.Title); subject != "" {
		input.Subject = aws.String(subject)
	}

	resp, err := s.client.Publish(ctx, input)
	if err != nil {
		s.log.ErrorObj("sns share send failed", "publisher_sns_error", map[string]any{
			"article_id": evt.ArticleID,
			"error":      err.Error(),
		})
		return fmt.Errorf("publish to sns: %w", err)
	}
	s.log.DebugObj("sns share delivered", "publisher_sns_delivery", map[string]any{
		"article_id": evt.ArticleID,
		"message_id": aws.ToString(resp.MessageId),
	})
	return nil
}

// snsSubject keeps the printable ASCII of s, capped at the 100 character SNS limit.
func snsSubject(s string) string {
	const maxSubject = 100
	out := make([]byte, 0, maxSubject)
	for _, r := range s {
		if len(out) == maxSubject {
			break
		}
		if r >= 0x20 && r < 0x7f {
			out = append(out, byte(r))
		}
	}
	return string(out)
}
