package service

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"
	"go.uber.org/zap"
)

// SESClient is the subset of the SES v2 client used to send mail
type SESClient interface {
	SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

// EmailService sends messages via Amazon SES. It implements Mailer.
type EmailService struct {
	client    SESClient
	fromEmail string
	fromName  string
	enabled   bool
	logger    *zap.Logger
}

// NewEmailService creates a new email service. Without a sender address the
// service is disabled: it logs what it would have sent and returns ErrEmailDisabled.
func NewEmailService(ctx context.Context, awsRegion, fromEmail, fromName string, logger *zap.Logger) (*EmailService, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	if fromEmail == "" {
		logger.Info("email service disabled: SES_FROM_EMAIL not configured")
		return &EmailService{enabled: false, logger: logger}, nil
	}

	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(awsRegion))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	logger.Info("email service enabled",
		zap.String("from", fromEmail),
		zap.String("region", awsRegion))

	return NewEmailServiceWithClient(sesv2.NewFromConfig(cfg), fromEmail, fromName, logger), nil
}

// NewEmailServiceWithClient creates an enabled email service around an existing client
func NewEmailServiceWithClient(client SESClient, fromEmail, fromName string, logger *zap.Logger) *EmailService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EmailService{
		client:    client,
		fromEmail: fromEmail,
		fromName:  fromName,
		enabled:   true,
		logger:    logger,
	}
}

// IsEnabled returns whether the email service is enabled
func (s *EmailService) IsEnabled() bool {
	return s.enabled
}

// Send delivers msg through SES
func (s *EmailService) Send(ctx context.Context, msg Message) error {
	if !s.enabled {
		s.logger.Info("skipping email send (service disabled)",
			zap.String("to", msg.To),
			zap.String("subject", msg.Subject))
		return ErrEmailDisabled
	}

	fromAddress := s.fromEmail
	if s.fromName != "" {
		fromAddress = fmt.Sprintf("%s <%s>", s.fromName, s.fromEmail)
	}

	input := &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(fromAddress),
		Destination: &types.Destination{
			ToAddresses: []string{msg.To},
		},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{
					Data:    aws.String(msg.Subject),
					Charset: aws.String("UTF-8"),
				},
				Body: &types.Body{
					Html: &types.Content{
						Data:    aws.String(msg.HTMLBody),
						Charset: aws.String("UTF-8"),
					},
					Text: &types.Content{
						Data:    aws.String(msg.TextBody),
						Charset: aws.String("UTF-8"),
					},
				},
			},
		},
	}

	result, err := s.client.SendEmail(ctx, input)
	if err != nil {
		return fmt.Errorf("failed to send email to %s: %w", msg.To, err)
	}

	fields := []zap.Field{zap.String("to", msg.To), zap.String("subject", msg.Subject)}
	if result != nil && result.MessageId != nil {
		fields = append(fields, zap.String("message_id", *result.MessageId))
	}
	s.logger.Debug("email sent", fields...)
	return nil
}
