package service

import (
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"lgcms/internal/apperr"
	"lgcms/internal/config"
	"lgcms/internal/ids"
	"lgcms/internal/models"
)

type EvidenceStore interface {
	PresignPut(ctx context.Context, key string, expiry time.Duration) (string, error)
	URI(key string) string
}

var evidenceTypes = map[string]string{
	"image/jpeg":      ".jpg",
	"image/png":       ".png",
	"image/webp":      ".webp",
	"video/mp4":       ".mp4",
	"application/pdf": ".pdf",
}

type EvidenceService struct {
	store EvidenceStore
	cfg   *config.AppConfig
	now   func() time.Time
}

func NewEvidenceService(store EvidenceStore, cfg *config.AppConfig) *EvidenceService {
	return &EvidenceService{store: store, cfg: cfg, now: time.Now}
}

// CreateUpload reserves an object key for one piece of evidence. The returned
// URI is what the client later passes to Submit.
func (s *EvidenceService) CreateUpload(ctx context.Context, uploader *models.Identity, contentType string) (models.EvidenceUpload, error) {
	contentType = strings.ToLower(strings.TrimSpace(contentType))
	ext, ok := evidenceTypes[contentType]
	if !ok {
		return models.EvidenceUpload{}, apperr.Validation(fmt.Sprintf("unsupported evidence type %q", contentType))
	}

	owner := "anonymous"
	if uploader != nil {
		owner = uploader.ID
	}

	now := s.now().UTC()
	key := path.Join("complaints", now.Format("2006/01/02"), owner, ids.New()+ext)

	expiry := s.cfg.Storage.PresignExpiry
	uploadURL, err := s.store.PresignPut(ctx, key, expiry)
	if err != nil {
		return models.EvidenceUpload{}, apperr.Wrap(apperr.KindUpstream, "evidence storage unavailable", err)
	}

	return models.EvidenceUpload{
		URI:       s.store.URI(key),
		UploadURL: uploadURL,
		ExpiresAt: now.Add(expiry),
	}, nil
}
