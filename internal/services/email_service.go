package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"

	"github.com/nexusai/terminal-api/internal/config"
)

// EmailService sends transactional mail to account holders
type EmailService interface {
	SendPasswordReset(ctx context.Context, to, resetLink string) error
}

// AWSSESEmailService implements EmailService using AWS SES
type AWSSESEmailService struct {
	client      *ses.Client
	fromAddress string
	logger      *slog.Logger
}

// NewAWSSESEmailService creates a new SES email service
func NewAWSSESEmailService(ctx context.Context, cfg *config.EmailConfig, logger *slog.Logger) (*AWSSESEmailService, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWSRegion))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return &AWSSESEmailService{
		client:      ses.NewFromConfig(awsCfg),
		fromAddress: cfg.FromAddress,
		logger:      logger,
	}, nil
}

// SendPasswordReset sends a password reset email with the recovery link
func (s *AWSSESEmailService) SendPasswordReset(ctx context.Context, to, resetLink string) error {
	subject := "Reset your password"
	htmlBody := fmt.Sprintf(`
		<html>
		<body>
			<h2>Password Reset</h2>
			<p>We received a request to reset the password for your account.</p>
			<p><a href="%s">Reset your password</a></p>
			<p>This link expires in 10 minutes. If you did not request a reset, you can ignore this email.</p>
		</body>
		</html>
	`, resetLink)
	textBody := fmt.Sprintf("We received a request to reset the password for your account.\n\nOpen this link to choose a new password: %s\n\nThe link expires in 10 minutes. If you did not request a reset, you can ignore this email.", resetLink)

	input := &ses.SendEmailInput{
		Source: aws.String(s.fromAddress),
		Destination: &types.Destination{
			ToAddresses: []string{to},
		},
		Message: &types.Message{
			Subject: &types.Content{
				Data:    aws.String(subject),
				Charset: aws.String("UTF-8"),
			},
			Body: &types.Body{
				Html: &types.Content{
					Data:    aws.String(htmlBody),
					Charset: aws.String("UTF-8"),
				},
				Text: &types.Content{
					Data:    aws.String(textBody),
					Charset: aws.String("UTF-8"),
				},
			},
		},
	}

	if _, err := s.client.SendEmail(ctx, input); err != nil {
		s.logger.Error("failed to send password reset email", slog.Any("error", err))
		return fmt.Errorf("failed to send email: %w", err)
	}

	s.logger.Info("password reset email sent")
	return nil
}

// SimulatedEmailService logs outbound mail instead of sending it. Used in
// development when no mail transport is configured.
type SimulatedEmailService struct {
	logger *slog.Logger
}

// NewSimulatedEmailService creates a log-only email service
func NewSimulatedEmailService(logger *slog.Logger) *SimulatedEmailService {
	return &SimulatedEmailService{logger: logger}
}

// SendPasswordReset logs the reset link that would have been mailed
func (s *SimulatedEmailService) SendPasswordReset(_ context.Context, to, resetLink string) error {
	s.logger.Info("simulated password reset email",
		slog.String("to", to),
		slog.String("reset_link", resetLink))
	return nil
}
