package notifier

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"html/template"
	"strings"

	"github.com/wneessen/go-mail"

	"gateway/internal/config"
	"gateway/internal/model"
)

const (
	subjectOtp          = "OTP - FPI Monitor"
	subjectRegistration = "FPI Portal: Email Verification for User Registration"
	subjectPasswordPDF  = "Password Reset Request on FPI Monitor"

	attachmentName = "ResetPassword.pdf"
)

type attachment struct {
	Name        string
	ContentType string
	Data        []byte
}

type emailMessage struct {
	To         string
	Subject    string
	HTMLBody   string
	Attachment *attachment
}

type mailer interface {
	Send(ctx context.Context, msg emailMessage) error
}

var otpTemplate = template.Must(template.New("otp").Parse(`<html>
<body style="font-family: Arial, sans-serif; margin: 0; padding: 20px;">
  <div style="max-width: 600px; margin: 0 auto; padding: 20px; border: 1px solid #ccc; border-radius: 8px;">
    <h2 style="text-align: center;">OTP Verification</h2>
    <p>Dear User,</p>
    {{- if eq .Purpose "LOGIN" }}
    <p>Your One Time Password (OTP) for Login to FPI Monitor is {{ .Otp }}. This OTP is valid for 30 minutes and one login session.</p>
    {{- else if eq .Purpose "FORGOT_PASSWORD" }}
    <p>Your One Time Password (OTP) for Password Reset to FPI Monitor is {{ .Otp }}. This OTP is valid for 30 minutes and one login session.</p>
    {{- else }}
    <p>Welcome to the <strong>FPI Portal</strong>!</p>
    <p>Please find below the email verification code for user registration of the Common Application Form on the FPI Portal.</p>
    <p>Enter the following code on the portal to continue your registration process:</p>
    <p>Verification Code: <strong>{{ .Otp }}</strong></p>
    <p><strong>Email ID (as user ID):</strong> {{ .Email }}</p>
    {{- end }}
    <p>Please do not share this with anyone.</p>
    <p>Regards,<br>FPI Monitor</p>
    <p style="font-size: 12px; color: #888;"><small>This email was sent to {{ .Email }}. Please do not reply directly to this email.</small></p>
  </div>
</body>
</html>`))

var passwordPDFTemplate = template.Must(template.New("password_pdf").Parse(`<html>
<body style="font-family: Arial, sans-serif;">
  <div style="max-width: 600px; margin: 40px auto; padding: 20px;">
    <p><strong>Password Reset Request on FPI Monitor</strong></p>
    <p>Dear Sir / Madam,</p>
    <p>This has reference to your password reset request on FPI Monitor Portal. Please find enclosed a PDF file containing your new password.
    The code for opening the file is the first 4 letters of your organization name in lower case followed by the first 4 letters of your name in lower case.</p>
    <p>Regards,<br>FPI Monitor</p>
    <p style="font-style: italic;">This is an auto-generated email sent to {{ .Email }}. Please do not reply to this email.</p>
  </div>
</body>
</html>`))

// otpSubject picks the subject line for purpose. Login and password reset share the
// short transactional subject; anything else is treated as registration.
func otpSubject(purpose string) string {
	switch purpose {
	case model.PurposeLogin, model.PurposeForgotPassword:
		return subjectOtp
	default:
		return subjectRegistration
	}
}

func otpEmail(email, otp, purpose string) (emailMessage, error) {
	var body bytes.Buffer
	data := struct{ Email, Otp, Purpose string }{email, otp, purpose}
	if err := otpTemplate.Execute(&body, data); err != nil {
		return emailMessage{}, fmt.Errorf("render otp email: %w", err)
	}
	return emailMessage{To: email, Subject: otpSubject(purpose), HTMLBody: body.String()}, nil
}

func encryptedDocumentEmail(base64Pdf, email string) (emailMessage, error) {
	pdf, err := base64.StdEncoding.DecodeString(strings.TrimSpace(base64Pdf))
	if err != nil {
		return emailMessage{}, fmt.Errorf("decode pdf payload: %w", err)
	}
	var body bytes.Buffer
	if err := passwordPDFTemplate.Execute(&body, struct{ Email string }{email}); err != nil {
		return emailMessage{}, fmt.Errorf("render password email: %w", err)
	}
	return emailMessage{
		To:       email,
		Subject:  subjectPasswordPDF,
		HTMLBody: body.String(),
		Attachment: &attachment{
			Name:        attachmentName,
			ContentType: "application/pdf",
			Data:        pdf,
		},
	}, nil
}

// goMailer delivers through one SMTP account. A new connection is dialed per message.
type goMailer struct {
	account config.SMTPAccount
}

func newGoMailer(account config.SMTPAccount) *goMailer {
	return &goMailer{account: account}
}

var errMailNotConfigured = errors.New("smtp host or sender not configured")

func (g *goMailer) Send(ctx context.Context, msg emailMessage) error {
	if g.account.Host == "" || g.account.From == "" {
		return errMailNotConfigured
	}

	m := mail.NewMsg()
	if err := m.From(g.account.From); err != nil {
		return fmt.Errorf("from: %w", err)
	}
	if err := m.To(msg.To); err != nil {
		return fmt.Errorf("to: %w", err)
	}
	m.Subject(msg.Subject)
	m.SetBodyString(mail.TypeTextHTML, msg.HTMLBody)
	if a := msg.Attachment; a != nil {
		if err := m.AttachReader(a.Name, bytes.NewReader(a.Data), mail.WithFileContentType(mail.ContentType(a.ContentType))); err != nil {
			return fmt.Errorf("attach %s: %w", a.Name, err)
		}
	}

	opts := []mail.Option{mail.WithPort(g.account.Port)}
	if g.account.UseTLS {
		opts = append(opts, mail.WithTLSPolicy(mail.TLSMandatory))
	} else {
		opts = append(opts, mail.WithTLSPolicy(mail.NoTLS))
	}
	if g.account.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(g.account.Username),
			mail.WithPassword(g.account.Password),
		)
	}

	client, err := mail.NewClient(g.account.Host, opts...)
	if err != nil {
		return fmt.Errorf("smtp client: %w", err)
	}
	if err := client.DialAndSendWithContext(ctx, m); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	return nil
}
