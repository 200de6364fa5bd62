package model

import (
	"strings"
	"time"
)

// OTP purposes the backend puts in data.message.
const (
	PurposeLogin          = "LOGIN"
	PurposeForgotPassword = "FORGOT_PASSWORD"
)

// OtpNotification is built from an OTP-bearing envelope and discarded once the notifier returns.
type OtpNotification struct {
	Email   string
	Phone   string
	Otp     string
	Purpose string
}

// WantsEmail reports whether the email channel has everything it needs.
func (n OtpNotification) WantsEmail() bool {
	return notBlank(n.Email) && notBlank(n.Otp) && notBlank(n.Purpose)
}

// WantsSMS reports whether the SMS channel has everything it needs.
func (n OtpNotification) WantsSMS() bool {
	return notBlank(n.Phone) && notBlank(n.Otp) && notBlank(n.Purpose)
}

func notBlank(s string) bool { return strings.TrimSpace(s) != "" }

// SideEffect is one journaled notifier or document store call.
// Target is masked before it is stored; secrets are never journaled.
type SideEffect struct {
	ID         string    `json:"id"`
	RequestID  string    `json:"request_id"`
	Route      string    `json:"route"`
	Kind       string    `json:"kind"`
	Target     string    `json:"target"`
	Success    bool      `json:"success"`
	Error      string    `json:"error,omitempty"`
	DurationMs int64     `json:"duration_ms"`
	CreatedAt  time.Time `json:"created_at"`
}

// MaskTarget hides most of an email address, phone number, or path for journaling.
func MaskTarget(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	if at := strings.IndexByte(s, '@'); at > 0 {
		return s[:1] + strings.Repeat("*", at-1) + s[at:]
	}
	if strings.ContainsAny(s, "/\\") {
		return s
	}
	if len(s) <= 4 {
		return strings.Repeat("*", len(s))
	}
	return strings.Repeat("*", len(s)-4) + s[len(s)-4:]
}
