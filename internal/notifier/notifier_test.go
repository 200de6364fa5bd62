package notifier

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gateway/internal/config"
)

type fakeMailer struct {
	mu   sync.Mutex
	sent []emailMessage
	err  error
}

func (f *fakeMailer) Send(_ context.Context, msg emailMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, msg)
	return nil
}

func newTestNotifier(t *testing.T, m mailer, smsEndpoint string, logs *bytes.Buffer) *notifier {
	t.Helper()
	sender, err := newSMSSender(config.SMSConfig{Endpoint: smsEndpoint})
	require.NoError(t, err)
	return &notifier{mail: m, sms: sender, log: zerolog.New(logs)}
}

func TestSendOtpEmail_PurposeSubjects(t *testing.T) {
	tests := []struct {
		purpose     string
		wantSubject string
		wantText    string
	}{
		{"LOGIN", "OTP - FPI Monitor", "for Login to FPI Monitor is 123456"},
		{"FORGOT_PASSWORD", "OTP - FPI Monitor", "for Password Reset to FPI Monitor is 123456"},
		{"REGISTRATION", "FPI Portal: Email Verification for User Registration", "Verification Code: <strong>123456</strong>"},
	}

	for _, tt := range tests {
		t.Run(tt.purpose, func(t *testing.T) {
			m := &fakeMailer{}
			n := newTestNotifier(t, m, "", &bytes.Buffer{})

			ok := n.SendOtpEmail(context.Background(), "a@b.com", "123456", tt.purpose)
			require.True(t, ok)
			require.Len(t, m.sent, 1)
			assert.Equal(t, "a@b.com", m.sent[0].To)
			assert.Equal(t, tt.wantSubject, m.sent[0].Subject)
			assert.Contains(t, m.sent[0].HTMLBody, tt.wantText)
			assert.Nil(t, m.sent[0].Attachment)
		})
	}
}

func TestSendOtpEmail_EscapesInput(t *testing.T) {
	m := &fakeMailer{}
	n := newTestNotifier(t, m, "", &bytes.Buffer{})

	require.True(t, n.SendOtpEmail(context.Background(), "a@b.com", "<script>", "REGISTRATION"))
	assert.NotContains(t, m.sent[0].HTMLBody, "<script>")
}

func TestSendOtpEmail_FailureIsFalseAndLogged(t *testing.T) {
	logs := &bytes.Buffer{}
	n := newTestNotifier(t, &fakeMailer{err: errors.New("smtp down")}, "", logs)

	assert.False(t, n.SendOtpEmail(context.Background(), "alice@b.com", "123456", "LOGIN"))
	assert.Contains(t, logs.String(), "smtp down")
	assert.Contains(t, logs.String(), "a****@b.com")
	assert.NotContains(t, logs.String(), "123456")
}

func TestSendEncryptedDocument(t *testing.T) {
	pdf := []byte("%PDF-1.4 secret")
	m := &fakeMailer{}
	n := newTestNotifier(t, m, "", &bytes.Buffer{})

	ok := n.SendEncryptedDocument(context.Background(), base64.StdEncoding.EncodeToString(pdf), "a@b.com", "FORGOT_PASSWORD")
	require.True(t, ok)
	require.Len(t, m.sent, 1)
	assert.Equal(t, "Password Reset Request on FPI Monitor", m.sent[0].Subject)
	require.NotNil(t, m.sent[0].Attachment)
	assert.Equal(t, "ResetPassword.pdf", m.sent[0].Attachment.Name)
	assert.Equal(t, "application/pdf", m.sent[0].Attachment.ContentType)
	assert.Equal(t, pdf, m.sent[0].Attachment.Data)
}

func TestSendEncryptedDocument_EmptyPayloadIsNoop(t *testing.T) {
	m := &fakeMailer{err: errors.New("must not be called")}
	n := newTestNotifier(t, m, "", &bytes.Buffer{})

	assert.True(t, n.SendEncryptedDocument(context.Background(), "", "a@b.com", "FORGOT_PASSWORD"))
}

func TestSendEncryptedDocument_BadBase64(t *testing.T) {
	m := &fakeMailer{}
	n := newTestNotifier(t, m, "", &bytes.Buffer{})

	assert.False(t, n.SendEncryptedDocument(context.Background(), "!!!", "a@b.com", "FORGOT_PASSWORD"))
	assert.Empty(t, m.sent)
}

func TestSendOtpSms(t *testing.T) {
	var gotPhone, gotOtp string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPhone = r.URL.Query().Get("to")
		gotOtp = r.URL.Query().Get("code")
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	n := newTestNotifier(t, &fakeMailer{}, srv.URL+"/send?to=@Phoneno&code=@otp", &bytes.Buffer{})

	assert.True(t, n.SendOtpSms(context.Background(), "9999999999", "123456", "LOGIN"))
	assert.Equal(t, "9999999999", gotPhone)
	assert.Equal(t, "123456", gotOtp)
}

func TestSendOtpSms_Failures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	t.Run("non-2xx", func(t *testing.T) {
		n := newTestNotifier(t, &fakeMailer{}, srv.URL+"?p=@Phoneno", &bytes.Buffer{})
		assert.False(t, n.SendOtpSms(context.Background(), "9999999999", "1", "LOGIN"))
	})

	t.Run("no endpoint", func(t *testing.T) {
		n := newTestNotifier(t, &fakeMailer{}, "", &bytes.Buffer{})
		assert.False(t, n.SendOtpSms(context.Background(), "9999999999", "1", "LOGIN"))
	})

	t.Run("unreachable", func(t *testing.T) {
		dead := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
		url := dead.URL
		dead.Close()
		n := newTestNotifier(t, &fakeMailer{}, url+"?p=@Phoneno", &bytes.Buffer{})
		assert.False(t, n.SendOtpSms(context.Background(), "9999999999", "1", "LOGIN"))
	})
}

func TestSendOtpSms_TransportErrorKeepsSecretsOutOfLogs(t *testing.T) {
	dead := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	endpoint := dead.URL + "/send?to=@Phoneno&msg=@otp"
	dead.Close()

	logs := &bytes.Buffer{}
	n := newTestNotifier(t, &fakeMailer{}, endpoint, logs)

	require.False(t, n.SendOtpSms(context.Background(), "9876543210", "482913", "LOGIN"))
	assert.Contains(t, logs.String(), "delivery failed")
	assert.Contains(t, logs.String(), "******3210")
	assert.NotContains(t, logs.String(), "482913")
	assert.NotContains(t, logs.String(), "9876543210")
}

func TestSMSProxyURL(t *testing.T) {
	u, err := smsProxyURL(config.SMSConfig{
		ProxyAddress:  "proxy.local:8080",
		ProxyUsername: "svc",
		ProxyPassword: "pw",
		ProxyDomain:   "CORP",
	})
	require.NoError(t, err)
	assert.Equal(t, "http", u.Scheme)
	assert.Equal(t, "proxy.local:8080", u.Host)
	assert.Equal(t, `CORP\svc`, u.User.Username())
	pw, _ := u.User.Password()
	assert.Equal(t, "pw", pw)

	u, err = smsProxyURL(config.SMSConfig{ProxyAddress: "https://p:3128"})
	require.NoError(t, err)
	assert.Nil(t, u.User)

	_, err = smsProxyURL(config.SMSConfig{ProxyAddress: ""})
	assert.Error(t, err)
}

func TestGoMailer_NotConfigured(t *testing.T) {
	err := newGoMailer(config.SMTPAccount{}).Send(context.Background(), emailMessage{To: "a@b.com"})
	assert.ErrorIs(t, err, errMailNotConfigured)
}

func TestNew(t *testing.T) {
	n, err := New(config.EmailConfig{}, config.SMSConfig{UseProxy: true, ProxyAddress: "proxy:1"}, zerolog.Nop())
	require.NoError(t, err)
	assert.NotNil(t, n)
}
