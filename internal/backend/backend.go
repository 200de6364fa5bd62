// Package backend forwards intercepted requests to the upstream API and returns its raw response.
package backend

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"sort"
	"strings"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"gateway/internal/config"
	"gateway/internal/model"
)

// ErrUnavailable wraps transport-level failures (connection refused, reset, timeout).
var ErrUnavailable = errors.New("backend unavailable")

// Request is an inbound request reduced to what the backend needs.
// When Form is set the body is rebuilt as multipart and Body/ContentType are ignored.
type Request struct {
	Method        string
	Path          string
	RawQuery      string
	Body          []byte
	ContentType   string
	Authorization string
	RequestID     string
	Form          *multipart.Form
}

// Response is the backend's answer, fully read.
type Response struct {
	StatusCode  int
	ContentType string
	Body        []byte
}

// IsSuccess reports a 2xx status.
func (r *Response) IsSuccess() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// Caller forwards a request to the backend.
type Caller interface {
	Forward(ctx context.Context, req Request) (*Response, error)
}

type httpCaller struct {
	base   *url.URL
	client *http.Client
}

// NewHTTPCaller builds a Caller for cfg.BaseURL. A nil client gets a traced default client.
func NewHTTPCaller(cfg config.BackendConfig, client *http.Client) (Caller, error) {
	base, err := url.Parse(cfg.BaseURL)
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid backend base url %q", cfg.BaseURL)
	}
	if !strings.HasSuffix(base.Path, "/") {
		base.Path += "/"
	}
	if client == nil {
		client = &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)}
	}
	return &httpCaller{base: base, client: client}, nil
}

// Forward sends req upstream. Any status code is a successful call; only transport
// failures return an error, wrapped with ErrUnavailable.
func (h *httpCaller) Forward(ctx context.Context, req Request) (*Response, error) {
	target := h.base.ResolveReference(&url.URL{Path: strings.TrimLeft(req.Path, "/"), RawQuery: req.RawQuery})

	body, contentType, err := buildBody(req)
	if err != nil {
		return nil, err
	}

	method := req.Method
	if method == "" {
		method = http.MethodGet
	}
	httpReq, err := http.NewRequestWithContext(ctx, method, target.String(), body)
	if err != nil {
		return nil, fmt.Errorf("build backend request: %w", err)
	}
	if contentType != "" {
		httpReq.Header.Set("Content-Type", contentType)
	}
	if token := BearerToken(req.Authorization); token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+token)
	}
	if req.RequestID != "" {
		httpReq.Header.Set(model.RequestIDHeader, req.RequestID)
	}

	resp, err := h.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", ErrUnavailable, err)
	}
	return &Response{
		StatusCode:  resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		Body:        respBody,
	}, nil
}

// BearerToken returns the token portion of an Authorization header value:
// the last whitespace-separated field, whatever scheme precedes it.
func BearerToken(header string) string {
	fields := strings.Fields(header)
	if len(fields) == 0 {
		return ""
	}
	return fields[len(fields)-1]
}

func buildBody(req Request) (io.Reader, string, error) {
	if req.Form != nil {
		buf := &bytes.Buffer{}
		ct, err := writeMultipart(buf, req.Form)
		if err != nil {
			return nil, "", fmt.Errorf("rebuild multipart body: %w", err)
		}
		return buf, ct, nil
	}
	if req.Body == nil {
		return http.NoBody, req.ContentType, nil
	}
	return bytes.NewReader(req.Body), req.ContentType, nil
}

// writeMultipart re-streams every file and field of form into w.
// File headers are reopened, so the same upload can be read again afterwards.
func writeMultipart(w io.Writer, form *multipart.Form) (string, error) {
	mw := multipart.NewWriter(w)

	for _, field := range sortedKeys(form.File) {
		for _, fh := range form.File[field] {
			if err := copyFilePart(mw, field, fh); err != nil {
				return "", err
			}
		}
	}
	for _, field := range sortedKeys(form.Value) {
		for _, v := range form.Value[field] {
			if err := mw.WriteField(field, v); err != nil {
				return "", err
			}
		}
	}
	if err := mw.Close(); err != nil {
		return "", err
	}
	return mw.FormDataContentType(), nil
}

func copyFilePart(mw *multipart.Writer, field string, fh *multipart.FileHeader) error {
	src, err := fh.Open()
	if err != nil {
		return fmt.Errorf("open upload %s: %w", fh.Filename, err)
	}
	defer src.Close()

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`, escapeQuotes(field), escapeQuotes(fh.Filename)))
	ct := fh.Header.Get("Content-Type")
	if ct == "" {
		ct = "application/octet-stream"
	}
	h.Set("Content-Type", ct)

	part, err := mw.CreatePart(h)
	if err != nil {
		return err
	}
	_, err = io.Copy(part, src)
	return err
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func escapeQuotes(s string) string { return quoteEscaper.Replace(s) }

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
