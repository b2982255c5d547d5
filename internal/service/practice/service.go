package practice

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/jwalitptl/wellness-api/internal/model"
	"github.com/jwalitptl/wellness-api/internal/repository"
	"github.com/jwalitptl/wellness-api/internal/service/audit"
	"github.com/jwalitptl/wellness-api/pkg/blobstore"
	apperrors "github.com/jwalitptl/wellness-api/pkg/errors"
)

// MaxLogoSize is the largest logo accepted for upload.
const MaxLogoSize = 2 << 20

var logoTypes = map[string]string{
	"image/png":     "png",
	"image/jpeg":    "jpg",
	"image/webp":    "webp",
}

type PracticeService interface {
	Get(ctx context.Context) (*model.PracticeSettings, error)
	Update(ctx context.Context, req *model.UpdatePracticeRequest) (*model.PracticeSettings, error)
	UploadLogo(ctx context.Context, contentType string, data []byte) (*model.PracticeSettings, error)
	Logo(ctx context.Context) (*blobstore.Object, error)
	DeleteLogo(ctx context.Context) (*model.PracticeSettings, error)
}

type Service struct {
	repo    repository.PracticeRepository
	blobs   blobstore.Store
	auditor audit.Recorder
}

func NewService(repo repository.PracticeRepository, blobs blobstore.Store, auditor audit.Recorder) *Service {
	return &Service{
		repo:    repo,
		blobs:   blobs,
		auditor: auditor,
	}
}

// Get returns the stored settings, or empty settings before the first save.
func (s *Service) Get(ctx context.Context) (*model.PracticeSettings, error) {
	settings, err := s.repo.Get(ctx)
	if apperrors.IsNotFound(err) {
		return &model.PracticeSettings{ID: model.PracticeSettingsID}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get practice settings: %w", err)
	}
	return settings, nil
}

func (s *Service) Update(ctx context.Context, req *model.UpdatePracticeRequest) (*model.PracticeSettings, error) {
	settings, err := s.Get(ctx)
	if err != nil {
		return nil, err
	}
	req.Apply(settings)
	if strings.TrimSpace(settings.Name) == "" {
		return nil, apperrors.Validation("name is required")
	}
	if settings.Timezone != "" {
		if _, err := time.LoadLocation(settings.Timezone); err != nil {
			return nil, apperrors.Validation("unknown timezone %q", settings.Timezone)
		}
	}

	if err := s.save(ctx, settings); err != nil {
		return nil, err
	}
	s.auditor.Record(ctx, model.AuditActionUpdate, model.AuditEntityPractice, model.PracticeSettingsID, req)
	return settings, nil
}

func (s *Service) save(ctx context.Context, settings *model.PracticeSettings) error {
	if actor, ok := model.ActorFromContext(ctx); ok && !actor.UserID.IsZero() {
		uid := actor.UserID
		settings.UpdatedBy = &uid
	}
	if err := s.repo.Upsert(ctx, settings); err != nil {
		return fmt.Errorf("failed to save practice settings: %w", err)
	}
	return nil
}

// UploadLogo stores a new logo and replaces the previous one.
func (s *Service) UploadLogo(ctx context.Context, contentType string, data []byte) (*model.PracticeSettings, error) {
	if len(data) == 0 {
		return nil, apperrors.Validation("logo file is empty")
	}
	if len(data) > MaxLogoSize {
		return nil, apperrors.Validation("logo must be at most 2MB")
	}
	contentType, err := logoContentType(contentType, data)
	if err != nil {
		return nil, err
	}
	ext := logoTypes[contentType]

	settings, err := s.Get(ctx)
	if err != nil {
		return nil, err
	}

	key := fmt.Sprintf("practice/logo-%s.%s", uuid.NewString(), ext)
	if err := s.blobs.Put(ctx, key, data, contentType); err != nil {
		return nil, fmt.Errorf("failed to store logo: %w", err)
	}

	previous := settings.Logo
	settings.Logo = &model.Logo{
		Key:         key,
		ContentType: contentType,
		Size:        int64(len(data)),
		UploadedAt:  time.Now().UTC(),
	}
	if err := s.save(ctx, settings); err != nil {
		return nil, err
	}
	if previous != nil {
		s.removeBlob(ctx, previous.Key)
	}

	s.auditor.Record(ctx, model.AuditActionUpdate, model.AuditEntityPractice, model.PracticeSettingsID, map[string]interface{}{
		"logo": settings.Logo,
	})
	return settings, nil
}

// logoContentType trusts a declared image type and sniffs otherwise.
// logoContentType returns the sniffed type of data. A declared type, when
// given, must agree with it.
func logoContentType(declared string, data []byte) (string, error) {
	sniffed := http.DetectContentType(data)
	if _, ok := logoTypes[sniffed]; !ok {
		return "", apperrors.Validation("logo must be a PNG, JPEG or WebP image")
	}
	declared = strings.ToLower(strings.TrimSpace(strings.SplitN(declared, ";", 2)[0]))
	if declared != "" && declared != "application/octet-stream" && declared != sniffed {
		return "", apperrors.Validation("logo content is %s, not %s", sniffed, declared)
	}
	return sniffed, nil
}

func (s *Service) Logo(ctx context.Context) (*blobstore.Object, error) {
	settings, err := s.Get(ctx)
	if err != nil {
		return nil, err
	}
	if settings.Logo == nil {
		return nil, apperrors.NotFound("logo", nil)
	}

	obj, err := s.blobs.Get(ctx, settings.Logo.Key)
	if errors.Is(err, blobstore.ErrBlobNotFound) {
		return nil, apperrors.NotFound("logo", err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read logo: %w", err)
	}
	if obj.ContentType == "" {
		obj.ContentType = settings.Logo.ContentType
	}
	return obj, nil
}

func (s *Service) DeleteLogo(ctx context.Context) (*model.PracticeSettings, error) {
	settings, err := s.Get(ctx)
	if err != nil {
		return nil, err
	}
	if settings.Logo == nil {
		return nil, apperrors.NotFound("logo", nil)
	}

	key := settings.Logo.Key
	settings.Logo = nil
	if err := s.save(ctx, settings); err != nil {
		return nil, err
	}
	s.removeBlob(ctx, key)

	s.auditor.Record(ctx, model.AuditActionDelete, model.AuditEntityPractice, model.PracticeSettingsID, map[string]interface{}{"logo": nil})
	return settings, nil
}

func (s *Service) removeBlob(ctx context.Context, key string) {
	if err := s.blobs.Delete(ctx, key); err != nil && !errors.Is(err, blobstore.ErrBlobNotFound) {
		log.Warn().Err(err).Str("key", key).Msg("failed to delete old logo")
	}
}
