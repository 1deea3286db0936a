package wiring

import (
	"context"
	"net/http"

	"github.com/grandcanyonsmith/lead-magnet-ai-platform-sub001/internal/handler"
	"github.com/grandcanyonsmith/lead-magnet-ai-platform-sub001/internal/image"
)

// NewImageDownloader returns a handler.DownloadFunc backed by the image
// pipeline's validate-on-download path, for wiring into handler.Deps.
func NewImageDownloader(client *http.Client) handler.DownloadFunc {
	return func(ctx context.Context, rawURL string) (handler.ImageBytes, error) {
		decoded, err := image.Download(ctx, client, rawURL)
		if err != nil {
			return handler.ImageBytes{}, err
		}
		return handler.ImageBytes{MIME: decoded.MIME, Data: decoded.Data}, nil
	}
}

// NewDataURLDownloader returns a modelcall.Dispatcher.DownloadImage
// function that substitutes an unreachable image URL with a base64 data
// URL, for the image-retry tool loop's recovery path.
func NewDataURLDownloader(client *http.Client) func(ctx context.Context, rawURL string) (string, error) {
	return func(ctx context.Context, rawURL string) (string, error) {
		decoded, err := image.Download(ctx, client, rawURL)
		if err != nil {
			return "", err
		}
		return decoded.ToDataURL(), nil
	}
}
