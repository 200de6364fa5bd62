package service

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"gateway/internal/model"
	"gateway/internal/storage"
	storeMocks "gateway/internal/storage/mocks"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func validMeta() model.UploadMeta {
	return model.UploadMeta{
		HasFile:       true,
		FileName:      "doc1.pdf",
		ContentType:   "application/pdf",
		Size:          10,
		ApplicationID: "A1",
		DocType:       "POA",
	}
}

func TestDocumentStore_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(m *model.UploadMeta)
		wantMsg string
	}{
		{name: "valid", mutate: func(m *model.UploadMeta) {}},
		{name: "upper-case extension", mutate: func(m *model.UploadMeta) { m.FileName = "DOC.PDF" }},
		{name: "content type with params", mutate: func(m *model.UploadMeta) { m.ContentType = "application/pdf; charset=binary" }},
		{name: "missing file", mutate: func(m *model.UploadMeta) { m.HasFile = false }, wantMsg: MsgFileMissing},
		{name: "missing application id", mutate: func(m *model.UploadMeta) { m.ApplicationID = "  " }, wantMsg: MsgApplicationIDMissing},
		{name: "unknown doc type", mutate: func(m *model.UploadMeta) { m.DocType = "passport" }, wantMsg: MsgInvalidDocType},
		{name: "doc type is case-sensitive", mutate: func(m *model.UploadMeta) { m.DocType = "poa" }, wantMsg: MsgInvalidDocType},
		{name: "wrong extension", mutate: func(m *model.UploadMeta) { m.FileName = "doc1.png" }, wantMsg: MsgInvalidFileType},
		{name: "wrong content type", mutate: func(m *model.UploadMeta) { m.ContentType = "image/png" }, wantMsg: MsgInvalidFileType},
		{name: "empty content type", mutate: func(m *model.UploadMeta) { m.ContentType = "" }, wantMsg: MsgInvalidFileType},
		{
			name: "additional without identifier",
			mutate: func(m *model.UploadMeta) {
				m.DocType = model.DocTypeAdditional
				m.DocumentIdentifier = " "
			},
			wantMsg: MsgIdentifierRequired,
		},
		{
			name: "additional with identifier",
			mutate: func(m *model.UploadMeta) {
				m.DocType = model.DocTypeAdditional
				m.DocumentIdentifier = "board-resolution"
			},
		},
	}

	store := NewDocumentStore(new(storeMocks.MockStorage))
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			meta := validMeta()
			tt.mutate(&meta)

			err := store.Validate(meta)
			if tt.wantMsg == "" {
				assert.NoError(t, err)
				return
			}
			var ve *ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tt.wantMsg, ve.Message)
		})
	}
}

func TestObjectKey(t *testing.T) {
	tests := []struct {
		appID, docType, filePath string
		want                     string
		wantErr                  bool
	}{
		{"A1", "POA", "doc1.pdf", "A1/poa/doc1.pdf", false},
		{"A1", "formUpload", `uploads\A1\formupload\f.pdf`, "A1/formupload/f.pdf", false},
		{"A1", "POI", "/srv/uploads/A1/poi/x.pdf", "A1/poi/x.pdf", false},
		{"A1", "POA", "../../etc/passwd", "", true},
		{"A1", "POA", `..\..\boot.ini`, "", true},
		{"A1", "POA", "a/../b.pdf", "", true},
		{"../A1", "POA", "doc.pdf", "", true},
		{"A1", "../poa", "doc.pdf", "", true},
		{"A1", "POA", "", "", true},
		{"A1", "POA", "dir/", "A1/poa/dir", false},
		{"", "POA", "doc.pdf", "", true},
		{"A1", "POA", "bad\x00.pdf", "", true},
	}

	for _, tt := range tests {
		got, err := ObjectKey(tt.appID, tt.docType, tt.filePath)
		if tt.wantErr {
			assert.ErrorIs(t, err, ErrInvalidRequest, "%q %q %q", tt.appID, tt.docType, tt.filePath)
			continue
		}
		assert.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}
}

func TestDocumentStore_Persist(t *testing.T) {
	ctx := context.Background()

	t.Run("writes under application and lower-cased type", func(t *testing.T) {
		mStore := new(storeMocks.MockStorage)
		mStore.On("Put", ctx, "A1/poa/doc1.pdf", mock.Anything, mock.MatchedBy(func(o storage.PutObjectOptions) bool {
			return o.ContentType == "application/pdf" && o.Size == 4
		})).Return(storage.ObjectInfo{Key: "A1/poa/doc1.pdf", Size: 4}, nil)

		err := NewDocumentStore(mStore).Persist(ctx, model.DocumentRecord{
			ApplicationID: "A1",
			DocumentType:  "POA",
			RelativePath:  "doc1.pdf",
			ContentType:   "application/pdf",
			Size:          4,
			Content:       strings.NewReader("%PDF"),
		})
		assert.NoError(t, err)
		mStore.AssertExpectations(t)
	})

	t.Run("storage error is returned", func(t *testing.T) {
		mStore := new(storeMocks.MockStorage)
		mStore.On("Put", ctx, mock.Anything, mock.Anything, mock.Anything).
			Return(storage.ObjectInfo{}, errors.New("disk full"))

		err := NewDocumentStore(mStore).Persist(ctx, model.DocumentRecord{
			ApplicationID: "A1", DocumentType: "POA", RelativePath: "x.pdf", Content: strings.NewReader("x"),
		})
		assert.ErrorContains(t, err, "disk full")
	})

	t.Run("nil content", func(t *testing.T) {
		err := NewDocumentStore(new(storeMocks.MockStorage)).Persist(ctx, model.DocumentRecord{
			ApplicationID: "A1", DocumentType: "POA", RelativePath: "x.pdf",
		})
		assert.ErrorIs(t, err, ErrInvalidRequest)
	})
}

func TestDocumentStore_DeleteIsIdempotent(t *testing.T) {
	ctx := context.Background()
	local, err := storage.NewLocal(t.TempDir())
	require.NoError(t, err)
	store := NewDocumentStore(local)

	req := model.FileRequest{ApplicationID: "A1", FilePath: "doc1.pdf", DocType: "POA"}
	require.NoError(t, store.Persist(ctx, model.DocumentRecord{
		ApplicationID: "A1", DocumentType: "POA", RelativePath: "doc1.pdf", Content: strings.NewReader("%PDF"),
	}))

	assert.NoError(t, store.Delete(ctx, req))
	assert.NoError(t, store.Delete(ctx, req))

	_, _, err = store.Retrieve(ctx, req)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDocumentStore_Retrieve(t *testing.T) {
	ctx := context.Background()
	req := model.FileRequest{ApplicationID: "A1", FilePath: "doc1.pdf", DocType: "POA"}

	t.Run("found", func(t *testing.T) {
		mStore := new(storeMocks.MockStorage)
		mStore.On("Get", ctx, "A1/poa/doc1.pdf").
			Return(io.NopCloser(strings.NewReader("%PDF")), storage.ObjectInfo{Key: "A1/poa/doc1.pdf", Size: 4}, nil)

		rc, info, err := NewDocumentStore(mStore).Retrieve(ctx, req)
		require.NoError(t, err)
		defer rc.Close()
		assert.Equal(t, int64(4), info.Size)
	})

	t.Run("not found", func(t *testing.T) {
		mStore := new(storeMocks.MockStorage)
		mStore.On("Get", ctx, "A1/poa/doc1.pdf").Return(nil, storage.ObjectInfo{}, storage.ErrNotFound)

		rc, _, err := NewDocumentStore(mStore).Retrieve(ctx, req)
		assert.ErrorIs(t, err, ErrNotFound)
		assert.Nil(t, rc)
	})

	t.Run("traversal rejected before storage", func(t *testing.T) {
		mStore := new(storeMocks.MockStorage)
		_, _, err := NewDocumentStore(mStore).Retrieve(ctx, model.FileRequest{ApplicationID: "A1", FilePath: "../x.pdf", DocType: "POA"})
		assert.ErrorIs(t, err, ErrInvalidRequest)
		mStore.AssertNotCalled(t, "Get", mock.Anything, mock.Anything)
	})
}
