package practice

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/wellness-api/internal/model"
	"github.com/jwalitptl/wellness-api/internal/repository/mocks"
	"github.com/jwalitptl/wellness-api/pkg/blobstore"
	apperrors "github.com/jwalitptl/wellness-api/pkg/errors"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n0000")

func setup() (*Service, *mocks.PracticeRepository, *blobstore.MemoryStore) {
	repo := &mocks.PracticeRepository{}
	blobs := blobstore.NewMemoryStore()
	auditor := &mocks.Recorder{}
	auditor.On("Record", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Maybe()
	return NewService(repo, blobs, auditor), repo, blobs
}

func TestGetBeforeFirstSave(t *testing.T) {
	svc, repo, _ := setup()
	repo.On("Get", mock.Anything).Return(nil, apperrors.NotFound("practice settings", nil))

	s, err := svc.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, model.PracticeSettingsID, s.ID)
	assert.Nil(t, s.Logo)
}

func TestUpdate(t *testing.T) {
	svc, repo, _ := setup()
	repo.On("Get", mock.Anything).Return(&model.PracticeSettings{ID: model.PracticeSettingsID, Name: "Old", Phone: "555"}, nil)
	repo.On("Upsert", mock.Anything, mock.AnythingOfType("*model.PracticeSettings")).Return(nil)

	name, tz := "Main Street Clinic", "America/Chicago"
	s, err := svc.Update(context.Background(), &model.UpdatePracticeRequest{Name: &name, Timezone: &tz})
	require.NoError(t, err)
	assert.Equal(t, "Main Street Clinic", s.Name)
	assert.Equal(t, "555", s.Phone)
}

func TestUpdateRejectsUnknownTimezone(t *testing.T) {
	svc, repo, _ := setup()
	repo.On("Get", mock.Anything).Return(&model.PracticeSettings{Name: "Clinic"}, nil)

	tz := "Mars/Olympus"
	_, err := svc.Update(context.Background(), &model.UpdatePracticeRequest{Timezone: &tz})
	assert.True(t, apperrors.IsBadRequest(err))
	repo.AssertNotCalled(t, "Upsert", mock.Anything, mock.Anything)
}

func TestUploadLogoReplacesPrevious(t *testing.T) {
	svc, repo, blobs := setup()
	ctx := context.Background()
	require.NoError(t, blobs.Put(ctx, "practice/old.png", pngHeader, "image/png"))

	current := &model.PracticeSettings{ID: model.PracticeSettingsID, Name: "Clinic", Logo: &model.Logo{Key: "practice/old.png"}}
	repo.On("Get", mock.Anything).Return(current, nil)
	repo.On("Upsert", mock.Anything, current).Return(nil)

	s, err := svc.UploadLogo(ctx, "", pngHeader)
	require.NoError(t, err)
	require.NotNil(t, s.Logo)
	assert.Equal(t, "image/png", s.Logo.ContentType)
	assert.EqualValues(t, len(pngHeader), s.Logo.Size)

	_, err = blobs.Get(ctx, "practice/old.png")
	assert.ErrorIs(t, err, blobstore.ErrBlobNotFound)

	obj, err := svc.Logo(ctx)
	require.NoError(t, err)
	assert.Equal(t, pngHeader, obj.Data)
}

func TestUploadLogoValidation(t *testing.T) {
	svc, _, _ := setup()
	ctx := context.Background()

	_, err := svc.UploadLogo(ctx, "image/png", nil)
	assert.True(t, apperrors.IsBadRequest(err))

	_, err = svc.UploadLogo(ctx, "image/png", bytes.Repeat([]byte{1}, MaxLogoSize+1))
	assert.True(t, apperrors.IsBadRequest(err))

	_, err = svc.UploadLogo(ctx, "application/pdf", []byte("%PDF-1.4"))
	assert.True(t, apperrors.IsBadRequest(err))
}

func TestUploadLogoRejectsScriptableContent(t *testing.T) {
	svg := []byte(`<svg xmlns="http://www.w3.org/2000/svg"><script>alert(1)</script></svg>`)
	tests := map[string]string{
		"svg":              "image/svg+xml",
		"svg labelled png": "image/png",
		"undeclared":       "",
	}
	for name, declared := range tests {
		t.Run(name, func(t *testing.T) {
			svc, repo, _ := setup()
			_, err := svc.UploadLogo(context.Background(), declared, svg)
			assert.True(t, apperrors.IsBadRequest(err), err)
			repo.AssertNotCalled(t, "Upsert", mock.Anything, mock.Anything)
		})
	}
}

func TestUploadLogoStoresSniffedType(t *testing.T) {
	svc, repo, _ := setup()
	repo.On("Get", mock.Anything).Return(&model.PracticeSettings{ID: model.PracticeSettingsID, Name: "Clinic"}, nil)
	repo.On("Upsert", mock.Anything, mock.Anything).Return(nil)

	s, err := svc.UploadLogo(context.Background(), "application/octet-stream", pngHeader)
	require.NoError(t, err)
	assert.Equal(t, "image/png", s.Logo.ContentType)
	assert.True(t, strings.HasSuffix(s.Logo.Key, ".png"))
}

func TestLogoAndDeleteWithoutLogo(t *testing.T) {
	svc, repo, _ := setup()
	repo.On("Get", mock.Anything).Return(&model.PracticeSettings{Name: "Clinic"}, nil)

	_, err := svc.Logo(context.Background())
	assert.True(t, apperrors.IsNotFound(err))

	_, err = svc.DeleteLogo(context.Background())
	assert.True(t, apperrors.IsNotFound(err))
}

func TestDeleteLogo(t *testing.T) {
	svc, repo, blobs := setup()
	ctx := context.Background()
	require.NoError(t, blobs.Put(ctx, "practice/logo.png", pngHeader, "image/png"))

	current := &model.PracticeSettings{Name: "Clinic", Logo: &model.Logo{Key: "practice/logo.png"}}
	repo.On("Get", mock.Anything).Return(current, nil)
	repo.On("Upsert", mock.Anything, current).Return(nil)

	s, err := svc.DeleteLogo(ctx)
	require.NoError(t, err)
	assert.Nil(t, s.Logo)

	_, err = blobs.Get(ctx, "practice/logo.png")
	assert.ErrorIs(t, err, blobstore.ErrBlobNotFound)
}
