// Package artifact implements the Artifact Service (C4): uploading step
// output (text or binary) under a tenant/job prefix, inferring MIME,
// recording an Artifact row, and resolving already-hosted image URLs
// without a redundant download/re-upload round trip.
package artifact

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"mime"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/grandcanyonsmith/lead-magnet-ai-platform-sub001/internal/image"
	"github.com/grandcanyonsmith/lead-magnet-ai-platform-sub001/internal/models"
	"github.com/grandcanyonsmith/lead-magnet-ai-platform-sub001/internal/ports"
)

// Service stores artifacts and resolves their public URLs.
type Service struct {
	objects ports.ObjectStore
	records ports.RecordStore

	// OwnBucketHosts names hostnames/URL prefixes this engine's object
	// store serves directly (its own bucket/CDN domain); URLs already
	// under one of these are reused rather than re-downloaded.
	OwnBucketHosts []string

	// ShareHook is invoked best-effort, asynchronously, after an artifact
	// is stored (e.g. a webhook notifying a sharing service). Nil disables
	// the hook entirely.
	ShareHook func(ctx context.Context, artifact *models.Artifact)
}

// New builds a Service.
func New(objects ports.ObjectStore, records ports.RecordStore) *Service {
	return &Service{objects: objects, records: records}
}

func key(tenantID, jobID, name string) string {
	return fmt.Sprintf("%s/jobs/%s/%s", tenantID, jobID, sanitizeName(name))
}

var filenameDisallowed = strings.NewReplacer(
	"/", "_", "\\", "_", "..", "_",
)

func sanitizeName(name string) string {
	return filenameDisallowed.Replace(name)
}

func inferMIME(name, explicit string) string {
	if explicit != "" {
		return explicit
	}
	if t := mime.TypeByExtension(filepath.Ext(name)); t != "" {
		return t
	}
	return "application/octet-stream"
}

func checksum(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}

// Store uploads content under {tenant_id}/jobs/{job_id}/{name}, writes an
// Artifact row, and fires the share hook best-effort. contentType may be
// empty to infer from name's extension.
func (s *Service) Store(ctx context.Context, tenantID, jobID, name string, content []byte, contentType string) (*models.Artifact, error) {
	mimeType := inferMIME(name, contentType)
	k := key(tenantID, jobID, name)

	blobURL, err := s.objects.Put(ctx, k, content, mimeType)
	if err != nil {
		return nil, fmt.Errorf("artifact: put %s: %w", k, err)
	}

	art := &models.Artifact{
		ArtifactID: uuid.NewString(),
		JobID:      jobID,
		TenantID:   tenantID,
		Kind:       kindFromMIME(mimeType),
		Name:       name,
		BlobKey:    k,
		BlobURL:    blobURL,
		PublicURL:  s.objects.PublicURL(k),
		IsPublic:   true,
		Size:       int64(len(content)),
		MIME:       mimeType,
		Checksum:   checksum(content),
		CreatedAt:  now(),
	}

	if err := s.records.PutArtifact(ctx, art); err != nil {
		return nil, fmt.Errorf("artifact: persist record for %s: %w", k, err)
	}

	if s.ShareHook != nil {
		go s.ShareHook(context.WithoutCancel(ctx), art)
	}

	return art, nil
}

func kindFromMIME(mimeType string) models.ArtifactKind {
	switch {
	case strings.HasPrefix(mimeType, "image/"):
		return models.ArtifactImage
	case mimeType == "text/html":
		return models.ArtifactHTML
	default:
		return models.ArtifactText
	}
}

// StoreImageFromURL implements the image-arriving-as-URL decision in
// spec §4.4: if rawURL already points into our own bucket/CDN, it's
// reused without a download; otherwise it's downloaded, MIME-sniffed,
// validated via the image pipeline, and re-uploaded.
func (s *Service) StoreImageFromURL(ctx context.Context, tenantID, jobID, name, rawURL string, download func(ctx context.Context, rawURL string) (*image.Decoded, error)) (*models.Artifact, error) {
	if s.isOwnBucketURL(rawURL) {
		art := &models.Artifact{
			ArtifactID: uuid.NewString(),
			JobID:      jobID,
			TenantID:   tenantID,
			Kind:       models.ArtifactImage,
			Name:       name,
			BlobURL:    rawURL,
			PublicURL:  rawURL,
			IsPublic:   true,
			CreatedAt:  now(),
		}
		if err := s.records.PutArtifact(ctx, art); err != nil {
			return nil, fmt.Errorf("artifact: persist reused-URL record: %w", err)
		}
		return art, nil
	}

	if download == nil {
		return nil, fmt.Errorf("artifact: no downloader configured for foreign image URL %s", rawURL)
	}
	decoded, err := download(ctx, rawURL)
	if err != nil {
		return nil, fmt.Errorf("artifact: download image %s: %w", rawURL, err)
	}
	return s.Store(ctx, tenantID, jobID, name, decoded.Data, decoded.MIME)
}

func (s *Service) isOwnBucketURL(rawURL string) bool {
	for _, host := range s.OwnBucketHosts {
		if host != "" && strings.Contains(rawURL, host) {
			return true
		}
	}
	return false
}

// GetPublicURL returns artifactID's public URL, erroring if the artifact
// is missing or carries no public URL.
func (s *Service) GetPublicURL(ctx context.Context, artifactID string) (string, error) {
	art, err := s.records.GetArtifact(ctx, artifactID)
	if err != nil {
		return "", fmt.Errorf("artifact: lookup %s: %w", artifactID, err)
	}
	if art == nil {
		return "", fmt.Errorf("artifact: %s not found", artifactID)
	}
	if art.PublicURL == "" {
		return "", fmt.Errorf("artifact: %s has no public URL", artifactID)
	}
	return art.PublicURL, nil
}

func now() time.Time { return time.Now().UTC() }
