package aws

import (
	"context"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
)

type sesAPI interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

// Email is a single-recipient message.
type Email struct {
	To      string
	Subject string
	Text    string
	HTML    string
}

type SESClient struct {
	client sesAPI
	from   string
}

func NewSESClient(cfg awssdk.Config, from string) *SESClient {
	return &SESClient{client: ses.NewFromConfig(cfg), from: from}
}

// SendEmail sends msg and returns the SES message id.
func (s *SESClient) SendEmail(ctx context.Context, msg Email) (string, error) {
	html := msg.HTML
	if html == "" {
		html = msg.Text
	}

	out, err := s.client.SendEmail(ctx, &ses.SendEmailInput{
		Destination: &types.Destination{
			ToAddresses: []string{msg.To},
		},
		Message: &types.Message{
			Subject: &types.Content{Data: awssdk.String(msg.Subject)},
			Body: &types.Body{
				Text: &types.Content{Data: awssdk.String(msg.Text)},
				Html: &types.Content{Data: awssdk.String(html)},
			},
		},
		Source: awssdk.String(s.from),
	})
	if err != nil {
		return "", err
	}
	return awssdk.ToString(out.MessageId), nil
}
