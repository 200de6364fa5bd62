package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"path"
	"path/filepath"
	"strings"

	"gateway/internal/model"
	"gateway/internal/storage"
)

// Upload validation messages shown to the caller.
const (
	MsgFileMissing          = "File is missing"
	MsgApplicationIDMissing = "Application ID is required."
	MsgInvalidDocType       = "Invalid document type."
	MsgInvalidFileType      = "Invalid file type. Only PDF files are allowed."
	MsgIdentifierRequired   = "Document identifier is required for additional documents."
)

const pdfContentType = "application/pdf"

// DocumentStore is the gateway's mirror of backend-tracked documents.
type DocumentStore interface {
	// Validate checks an upload before it is forwarded. It returns a *ValidationError.
	Validate(meta model.UploadMeta) error

	// Persist writes the uploaded bytes under applicationId/doctype/fileName.
	Persist(ctx context.Context, rec model.DocumentRecord) error

	// Delete removes a stored document. Missing documents are not an error.
	Delete(ctx context.Context, req model.FileRequest) error

	// Retrieve opens a stored document. It returns ErrNotFound when absent.
	Retrieve(ctx context.Context, req model.FileRequest) (io.ReadCloser, storage.ObjectInfo, error)
}

type documentStore struct {
	store storage.Storage
}

// NewDocumentStore builds a DocumentStore on top of a storage driver.
func NewDocumentStore(store storage.Storage) DocumentStore {
	return &documentStore{store: store}
}

func (d *documentStore) Validate(meta model.UploadMeta) error {
	if !meta.HasFile {
		return invalid(MsgFileMissing)
	}
	if strings.TrimSpace(meta.ApplicationID) == "" {
		return invalid(MsgApplicationIDMissing)
	}
	if !model.IsAllowedDocType(meta.DocType) {
		return invalid(MsgInvalidDocType)
	}
	if !isPDF(meta.FileName, meta.ContentType) {
		return invalid(MsgInvalidFileType)
	}
	if meta.DocType == model.DocTypeAdditional && strings.TrimSpace(meta.DocumentIdentifier) == "" {
		return invalid(MsgIdentifierRequired)
	}
	return nil
}

// isPDF requires both a .pdf extension and an application/pdf content type.
func isPDF(fileName, contentType string) bool {
	if !strings.EqualFold(filepath.Ext(fileName), ".pdf") {
		return false
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return strings.EqualFold(mediaType, pdfContentType)
}

func (d *documentStore) Persist(ctx context.Context, rec model.DocumentRecord) error {
	if rec.Content == nil {
		return fmt.Errorf("%w: no content", ErrInvalidRequest)
	}
	key, err := ObjectKey(rec.ApplicationID, rec.DocumentType, rec.RelativePath)
	if err != nil {
		return err
	}
	ct := rec.ContentType
	if ct == "" {
		ct = pdfContentType
	}
	size := rec.Size
	if size <= 0 {
		size = -1
	}
	if _, err := d.store.Put(ctx, key, rec.Content, storage.PutObjectOptions{
		Size:        size,
		ContentType: ct,
		Metadata: map[string]string{
			"application-id":      rec.ApplicationID,
			"document-type":       rec.DocumentType,
			"document-identifier": rec.DocumentIdentifier,
		},
	}); err != nil {
		return fmt.Errorf("persist %s: %w", key, err)
	}
	return nil
}

func (d *documentStore) Delete(ctx context.Context, req model.FileRequest) error {
	key, err := ObjectKey(req.ApplicationID, req.DocType, req.FilePath)
	if err != nil {
		return err
	}
	if err := d.store.Delete(ctx, key); err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}

func (d *documentStore) Retrieve(ctx context.Context, req model.FileRequest) (io.ReadCloser, storage.ObjectInfo, error) {
	key, err := ObjectKey(req.ApplicationID, req.DocType, req.FilePath)
	if err != nil {
		return nil, storage.ObjectInfo{}, err
	}
	rc, info, err := d.store.Get(ctx, key)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, storage.ObjectInfo{}, ErrNotFound
		}
		return nil, storage.ObjectInfo{}, fmt.Errorf("retrieve %s: %w", key, err)
	}
	return rc, info, nil
}

// ObjectKey builds applicationId/lowercase(docType)/fileName. The file name is the last
// segment of filePath. Any ".." segment, separator inside the id or type, or empty
// component is rejected with ErrInvalidRequest.
func ObjectKey(applicationID, docType, filePath string) (string, error) {
	appID := strings.TrimSpace(applicationID)
	category := strings.ToLower(strings.TrimSpace(docType))
	if !isPlainSegment(appID) || !isPlainSegment(category) {
		return "", fmt.Errorf("%w: invalid application id or document type", ErrInvalidRequest)
	}

	p := strings.ReplaceAll(strings.TrimSpace(filePath), `\`, "/")
	if p == "" || strings.ContainsRune(p, 0) {
		return "", fmt.Errorf("%w: invalid file path", ErrInvalidRequest)
	}
	for _, seg := range strings.Split(p, "/") {
		if seg == ".." {
			return "", fmt.Errorf("%w: invalid file path", ErrInvalidRequest)
		}
	}
	name := path.Base(p)
	if !isPlainSegment(name) {
		return "", fmt.Errorf("%w: invalid file path", ErrInvalidRequest)
	}
	return appID + "/" + category + "/" + name, nil
}

func isPlainSegment(s string) bool {
	if s == "" || s == "." || s == ".." {
		return false
	}
	return !strings.ContainsAny(s, "/\\\x00")
}
