package sns

import (
	"context"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/go-notify-api/internal/config"
)

// PushSender delivers push notifications via AWS SNS. The target is the
// recipient's platform endpoint ARN, registered by the (external) device
// management system.
type PushSender interface {
	SendPush(ctx context.Context, targetARN, message string) error
}

type sender struct {
	client *sns.Client
}

func NewSender(cfg *config.Config) (PushSender, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(),
		awsconfig.WithRegion(cfg.SNSRegion),
	)
	if err != nil {
		return nil, err
	}
	return &sender{client: sns.NewFromConfig(awsCfg)}, nil
}

func (s *sender) SendPush(ctx context.Context, targetARN, message string) error {
	_, err := s.client.Publish(ctx, &sns.PublishInput{
		TargetArn: &targetARN,
		Message:   &message,
	})
	return err
}
