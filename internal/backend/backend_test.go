package backend

import (
	"bytes"
	"context"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gateway/internal/config"
	"gateway/internal/model"
)

func newCaller(t *testing.T, base string) Caller {
	t.Helper()
	c, err := NewHTTPCaller(config.BackendConfig{BaseURL: base}, nil)
	require.NoError(t, err)
	return c
}

func TestForward_JSONBodyAndHeaders(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/auth/login", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "Bearer tok123", r.Header.Get("Authorization"))
		assert.Equal(t, "rid-1", r.Header.Get(model.RequestIDHeader))
		b, _ := io.ReadAll(r.Body)
		assert.JSONEq(t, `{"user":"u"}`, string(b))

		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"success":true}`))
	}))
	defer srv.Close()

	resp, err := newCaller(t, srv.URL).Forward(context.Background(), Request{
		Method:        http.MethodPost,
		Path:          "api/auth/login",
		Body:          []byte(`{"user":"u"}`),
		ContentType:   "application/json",
		Authorization: "Bearer tok123",
		RequestID:     "rid-1",
	})
	require.NoError(t, err)
	assert.True(t, resp.IsSuccess())
	assert.Equal(t, "application/json; charset=utf-8", resp.ContentType)
	assert.Equal(t, `{"success":true}`, string(resp.Body))
}

func TestForward_BasePathAndQuery(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/upstream/api/auth/resend-otp", r.URL.Path)
		assert.Equal(t, "a@b.com", r.URL.Query().Get("email"))
		assert.Empty(t, r.Header.Get("Authorization"))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	resp, err := newCaller(t, srv.URL+"/upstream").Forward(context.Background(), Request{
		Method:   http.MethodPost,
		Path:     "/api/auth/resend-otp",
		RawQuery: "email=a%40b.com",
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestForward_NonSuccessPassesThrough(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte("nope"))
	}))
	defer srv.Close()

	resp, err := newCaller(t, srv.URL).Forward(context.Background(), Request{Method: http.MethodPost, Path: "api/x"})
	require.NoError(t, err)
	assert.False(t, resp.IsSuccess())
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "text/plain", resp.ContentType)
	assert.Equal(t, "nope", string(resp.Body))
}

func TestForward_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	base := srv.URL
	srv.Close()

	_, err := newCaller(t, base).Forward(context.Background(), Request{Method: http.MethodGet, Path: "api/x"})
	assert.True(t, errors.Is(err, ErrUnavailable))
}

func TestForward_MultipartRebuild(t *testing.T) {
	form := buildForm(t, map[string]string{"applicationId": "A1", "docType": "POA"}, "file", "doc.pdf", "application/pdf", []byte("%PDF-1.4 body"))

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "A1", r.FormValue("applicationId"))
		assert.Equal(t, "POA", r.FormValue("docType"))

		f, fh, err := r.FormFile("file")
		require.NoError(t, err)
		defer f.Close()
		assert.Equal(t, "doc.pdf", fh.Filename)
		assert.Equal(t, "application/pdf", fh.Header.Get("Content-Type"))
		b, _ := io.ReadAll(f)
		assert.Equal(t, "%PDF-1.4 body", string(b))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	resp, err := newCaller(t, srv.URL).Forward(context.Background(), Request{
		Method:        http.MethodPost,
		Path:          "api/fvciapplication/UploadFileAsync",
		Form:          form,
		Authorization: "tok-only",
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	// the upload stays readable for local persistence after forwarding
	f, err := form.File["file"][0].Open()
	require.NoError(t, err)
	defer f.Close()
	b, _ := io.ReadAll(f)
	assert.Equal(t, "%PDF-1.4 body", string(b))
}

func TestBearerToken(t *testing.T) {
	assert.Equal(t, "abc", BearerToken("Bearer abc"))
	assert.Equal(t, "abc", BearerToken("bearer   abc"))
	assert.Equal(t, "abc", BearerToken("abc"))
	assert.Equal(t, "", BearerToken("   "))
}

func TestNewHTTPCaller_InvalidBase(t *testing.T) {
	_, err := NewHTTPCaller(config.BackendConfig{BaseURL: "backend:5000"}, nil)
	assert.Error(t, err)
}

// buildForm parses a real multipart body so file headers behave as they do in a server.
func buildForm(t *testing.T, fields map[string]string, fileField, fileName, contentType string, content []byte) *multipart.Form {
	t.Helper()
	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	h := make(map[string][]string)
	h["Content-Disposition"] = []string{`form-data; name="` + fileField + `"; filename="` + fileName + `"`}
	h["Content-Type"] = []string{contentType}
	part, err := mw.CreatePart(h)
	require.NoError(t, err)
	_, _ = part.Write(content)
	require.NoError(t, mw.Close())

	form, err := multipart.NewReader(body, mw.Boundary()).ReadForm(1 << 20)
	require.NoError(t, err)
	return form
}
