// Package wiring holds the composition-root adapters that let the
// narrowly-typed internal/handler collaborator interfaces be satisfied by
// the engine's concrete service implementations. Adapters live here
// rather than in the lower-level packages themselves so that
// internal/handler never needs to import internal/artifact or
// internal/image directly.
package wiring

import (
	"context"

	"github.com/grandcanyonsmith/lead-magnet-ai-platform-sub001/internal/artifact"
	"github.com/grandcanyonsmith/lead-magnet-ai-platform-sub001/internal/handler"
	"github.com/grandcanyonsmith/lead-magnet-ai-platform-sub001/internal/image"
	"github.com/grandcanyonsmith/lead-magnet-ai-platform-sub001/internal/models"
)

// ArtifactStoreAdapter bridges artifact.Service's image.Decoded-shaped
// download callback to handler.ArtifactStore's DownloadFunc/ImageBytes
// shape, so *artifact.Service can be handed straight to handler.Deps.
type ArtifactStoreAdapter struct {
	Service *artifact.Service
}

func (a *ArtifactStoreAdapter) Store(ctx context.Context, tenantID, jobID, name string, content []byte, contentType string) (*models.Artifact, error) {
	return a.Service.Store(ctx, tenantID, jobID, name, content, contentType)
}

func (a *ArtifactStoreAdapter) StoreImageFromURL(ctx context.Context, tenantID, jobID, name, rawURL string, download handler.DownloadFunc) (*models.Artifact, error) {
	var adapted func(ctx context.Context, rawURL string) (*image.Decoded, error)
	if download != nil {
		adapted = func(ctx context.Context, rawURL string) (*image.Decoded, error) {
			bytes, err := download(ctx, rawURL)
			if err != nil {
				return nil, err
			}
			return &image.Decoded{MIME: bytes.MIME, Data: bytes.Data}, nil
		}
	}
	return a.Service.StoreImageFromURL(ctx, tenantID, jobID, name, rawURL, adapted)
}
