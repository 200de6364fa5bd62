// Package notifier delivers OTP codes and encrypted documents over email and SMS.
// Every failure is logged and reported as false; nothing is returned as an error.
package notifier

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"gateway/internal/config"
	"gateway/internal/model"
)

// Notifier sends side-channel messages. Implementations never panic on delivery
// failures and never return errors; the bool is the whole result.
type Notifier interface {
	SendOtpEmail(ctx context.Context, email, otp, purpose string) bool
	SendOtpSms(ctx context.Context, phone, otp, purpose string) bool
	SendEncryptedDocument(ctx context.Context, base64Pdf, email, purpose string) bool
}

type notifier struct {
	mail mailer
	sms  *smsSender
	log  zerolog.Logger
}

// New builds a Notifier from the email and SMS configuration.
func New(email config.EmailConfig, sms config.SMSConfig, log zerolog.Logger) (Notifier, error) {
	sender, err := newSMSSender(sms)
	if err != nil {
		return nil, fmt.Errorf("sms client: %w", err)
	}
	return &notifier{
		mail: newGoMailer(email.Active()),
		sms:  sender,
		log:  log,
	}, nil
}

func (n *notifier) SendOtpEmail(ctx context.Context, email, otp, purpose string) bool {
	msg, err := otpEmail(email, otp, purpose)
	if err == nil {
		err = n.mail.Send(ctx, msg)
	}
	return n.report("otp_email", email, purpose, err)
}

func (n *notifier) SendOtpSms(ctx context.Context, phone, otp, purpose string) bool {
	err := n.sms.Send(ctx, phone, otp)
	return n.report("otp_sms", phone, purpose, err)
}

func (n *notifier) SendEncryptedDocument(ctx context.Context, base64Pdf, email, purpose string) bool {
	if base64Pdf == "" {
		return true
	}
	msg, err := encryptedDocumentEmail(base64Pdf, email)
	if err == nil {
		err = n.mail.Send(ctx, msg)
	}
	return n.report("encrypted_document_email", email, purpose, err)
}

func (n *notifier) report(event, target, purpose string, err error) bool {
	if err != nil {
		n.log.Error().
			Err(err).
			Str("event", event).
			Str("target", model.MaskTarget(target)).
			Str("purpose", purpose).
			Msg("delivery failed")
		return false
	}
	n.log.Info().
		Str("event", event).
		Str("target", model.MaskTarget(target)).
		Str("purpose", purpose).
		Msg("delivered")
	return true
}
