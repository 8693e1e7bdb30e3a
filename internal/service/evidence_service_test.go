package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lgcms/internal/apperr"
)

type fakeEvidenceStore struct {
	keys []string
	err  error
}

func (s *fakeEvidenceStore) PresignPut(_ context.Context, key string, _ time.Duration) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	s.keys = append(s.keys, key)
	return "https://objects.example.org/" + key + "?sig=1", nil
}

func (s *fakeEvidenceStore) URI(key string) string { return "s3://evidence/" + key }

func TestCreateUpload(t *testing.T) {
	store := &fakeEvidenceStore{}
	svc := NewEvidenceService(store, testConfig())

	up, err := svc.CreateUpload(context.Background(), &citizen, "image/JPEG")
	require.NoError(t, err)
	require.Len(t, store.keys, 1)
	assert.True(t, strings.HasSuffix(store.keys[0], ".jpg"))
	assert.Contains(t, store.keys[0], citizen.ID)
	assert.Equal(t, "s3://evidence/"+store.keys[0], up.URI)
}

func TestCreateUploadRejectsType(t *testing.T) {
	svc := NewEvidenceService(&fakeEvidenceStore{}, testConfig())
	_, err := svc.CreateUpload(context.Background(), nil, "application/x-msdownload")
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestCreateUploadStoreDown(t *testing.T) {
	svc := NewEvidenceService(&fakeEvidenceStore{err: errBoom}, testConfig())
	_, err := svc.CreateUpload(context.Background(), nil, "image/png")
	assert.ErrorIs(t, err, apperr.ErrUpstream)
}
