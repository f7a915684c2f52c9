package notify

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"

	"campusevents/internal/domain"
)

type sesNotifier struct {
	client      *ses.Client
	fromAddress string
	fromName    string
	toAddress   string
	logger      *slog.Logger
}

func (s *sesNotifier) Remind(ctx context.Context, event *domain.EventWithCreator, kind domain.ReminderKind) error {
	subject := fmt.Sprintf("Tadbir eslatmasi: %s (%s)", event.Title, LeadLabel(kind))
	return s.send(ctx, subject, ReminderMessage(event, kind))
}

func (s *sesNotifier) Announce(ctx context.Context, event *domain.EventWithCreator) error {
	subject := fmt.Sprintf("Yangi tadbir: %s", event.Title)
	return s.send(ctx, subject, AnnouncementMessage(event))
}

func (s *sesNotifier) send(ctx context.Context, subject, html string) error {
	source := s.fromAddress
	if s.fromName != "" {
		source = fmt.Sprintf("%s <%s>", s.fromName, s.fromAddress)
	}
	input := &ses.SendEmailInput{
		Source: aws.String(source),
		Destination: &types.Destination{
			ToAddresses: []string{s.toAddress},
		},
		Message: &types.Message{
			Subject: &types.Content{
				Data:    aws.String(subject),
				Charset: aws.String("UTF-8"),
			},
			Body: &types.Body{
				Html: &types.Content{
					Data:    aws.String(html),
					Charset: aws.String("UTF-8"),
				},
			},
		},
	}
	ctx, cancel := context.WithTimeout(ctx, deliveryTimeout)
	defer cancel()
	result, err := s.client.SendEmail(ctx, input)
	if err != nil {
		return sinkErr("ses send", err)
	}
	s.logger.Debug("email delivered via SES", "message_id", aws.ToString(result.MessageId))
	return nil
}
