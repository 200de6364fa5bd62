package notifier

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"gateway/internal/config"
)

// Placeholders substituted into the SMS endpoint template.
const (
	phonePlaceholder = "@Phoneno"
	otpPlaceholder   = "@otp"
)

var errNoSMSEndpoint = errors.New("no sms endpoint configured")

type smsSender struct {
	endpoint string
	client   *http.Client
}

func newSMSSender(cfg config.SMSConfig) (*smsSender, error) {
	base := http.DefaultTransport.(*http.Transport).Clone()
	if cfg.UseProxy {
		proxyURL, err := smsProxyURL(cfg)
		if err != nil {
			return nil, err
		}
		base.Proxy = http.ProxyURL(proxyURL)
	}
	// Not wrapped in otelhttp: its client spans record the full URL, otp included.
	// The side-effect span already covers the send.
	return &smsSender{
		endpoint: cfg.Endpoint,
		client:   &http.Client{Transport: base},
	}, nil
}

// smsProxyURL builds the proxy URL. A domain is folded into the user name as DOMAIN\user.
func smsProxyURL(cfg config.SMSConfig) (*url.URL, error) {
	addr := cfg.ProxyAddress
	if !strings.Contains(addr, "://") {
		addr = "http://" + addr
	}
	u, err := url.Parse(addr)
	if err != nil || u.Host == "" {
		return nil, fmt.Errorf("invalid sms proxy address %q", cfg.ProxyAddress)
	}
	if cfg.ProxyUsername != "" {
		user := cfg.ProxyUsername
		if cfg.ProxyDomain != "" {
			user = cfg.ProxyDomain + `\` + user
		}
		u.User = url.UserPassword(user, cfg.ProxyPassword)
	}
	return u, nil
}

// Send issues a GET to the endpoint template with phone and otp substituted.
// Any non-2xx answer is a failure.
func (s *smsSender) Send(ctx context.Context, phone, otp string) error {
	if s.endpoint == "" {
		return errNoSMSEndpoint
	}
	target := strings.NewReplacer(
		phonePlaceholder, url.QueryEscape(phone),
		otpPlaceholder, url.QueryEscape(otp),
	).Replace(s.endpoint)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return fmt.Errorf("build sms request: %w", err)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		// The URL carries the phone number and the otp; keep it out of the error.
		var ue *url.Error
		if errors.As(err, &ue) {
			err = ue.Err
		}
		return fmt.Errorf("sms request to %s: %w", req.URL.Host, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("sms endpoint returned %d", resp.StatusCode)
	}
	return nil
}
