package model

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"strings"
)

// Document categories accepted by the upload route.
const (
	DocTypePOA                 = "POA"
	DocTypePOI                 = "POI"
	DocTypeAdditional          = "additional"
	DocTypeFormUpload          = "formUpload"
	DocTypeAnnexureUpload      = "annexureUpload"
	DocTypeDisciplinaryHistory = "disciplinaryHistory"
)

var allowedDocTypes = map[string]struct{}{
	DocTypePOA:                 {},
	DocTypePOI:                 {},
	DocTypeAdditional:          {},
	DocTypeFormUpload:          {},
	DocTypeAnnexureUpload:      {},
	DocTypeDisciplinaryHistory: {},
}

// IsAllowedDocType reports whether t is one of the six upload categories (exact match).
func IsAllowedDocType(t string) bool {
	_, ok := allowedDocTypes[t]
	return ok
}

// UploadMeta is what the gateway knows about an upload before it reaches the backend.
type UploadMeta struct {
	HasFile            bool
	FileName           string
	ContentType        string
	Size               int64
	ApplicationID      string
	DocType            string
	DocumentIdentifier string
}

// DocumentDescriptor is one entry of the list the backend returns after accepting an upload.
type DocumentDescriptor struct {
	FvciApplicationID  string `json:"FvciApplicationId"`
	DocumentType       string `json:"DocumentType"`
	DocumentIdentifier string `json:"DocumentIdentifier"`
	DocumentPath       string `json:"DocumentPath"`
}

// DocumentRecord binds a backend-accepted descriptor to the uploaded bytes.
// The backend only tracks metadata; the gateway owns the physical write.
type DocumentRecord struct {
	ApplicationID      string
	DocumentType       string
	DocumentIdentifier string
	RelativePath       string
	ContentType        string
	Size               int64
	Content            io.Reader
}

// FileRequest identifies a stored document for the delete and download routes.
type FileRequest struct {
	ApplicationID string `json:"ApplicationId"`
	FilePath      string `json:"FilePath"`
	DocType       string `json:"docType"`
}

// ErrMalformedFileRequest is returned when a delete/download payload cannot be decoded.
var ErrMalformedFileRequest = errors.New("malformed file request")

// DecodeFileRequest decodes the base64-of-JSON payload used by delete and download.
// Standard and URL-safe alphabets are both accepted, padded or not.
func DecodeFileRequest(encoded string) (*FileRequest, error) {
	raw, err := decodeBase64(strings.TrimSpace(encoded))
	if err != nil {
		return nil, ErrMalformedFileRequest
	}
	var req FileRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		return nil, ErrMalformedFileRequest
	}
	if req.ApplicationID == "" || req.FilePath == "" || req.DocType == "" {
		return nil, ErrMalformedFileRequest
	}
	return &req, nil
}

// EncodeFileRequest is the inverse of DecodeFileRequest.
func EncodeFileRequest(req FileRequest) string {
	b, _ := json.Marshal(req)
	return base64.StdEncoding.EncodeToString(b)
}

func decodeBase64(s string) ([]byte, error) {
	// A JSON body may carry the payload as a quoted string.
	s = strings.Trim(s, `"`)
	encodings := []*base64.Encoding{
		base64.StdEncoding,
		base64.URLEncoding,
		base64.RawStdEncoding,
		base64.RawURLEncoding,
	}
	var lastErr error
	for _, enc := range encodings {
		b, err := enc.DecodeString(s)
		if err == nil {
			return b, nil
		}
		lastErr = err
	}
	return nil, lastErr
}
