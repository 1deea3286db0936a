// Package image implements the Image Pipeline (C6): validating,
// deduplicating, downloading, and base64-converting image URLs, plus
// recovery for hosts known to be inaccessible to the model provider.
// Decoders come from the standard image/png, image/jpeg, image/gif; WebP
// is detected by magic bytes only (no maintained pure-Go WebP decoder
// appears anywhere in the corpus, and the spec only ever requires
// signature detection, never pixel access — see DESIGN.md).
package image

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	maxDownloadBytes = 25 * 1024 * 1024
	defaultDownloadTimeout = 30 * time.Second
)

// problematicHosts are providers whose URLs are individually accessible
// but the model can't fetch directly (token-gated storage, etc.) — these
// are pre-downloaded to base64 before being sent to the LLM.
var problematicHosts = []string{
	"firebasestorage.googleapis.com",
}

// hostileHosts are skipped entirely: known to reject even our own
// best-effort downloads.
var hostileHosts = []string{}

// IsValidImageInput reports whether rawURL is an acceptable image input:
// an HTTP(S) URL, not a base64 data URL (those are rejected here to
// prevent oversized payloads flowing back through this layer).
func IsValidImageInput(rawURL string) bool {
	if strings.HasPrefix(rawURL, "data:") {
		return false
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	return u.Scheme == "http" || u.Scheme == "https"
}

// IsProblematicHost reports whether rawURL's host is known-inaccessible
// to the provider and should be pre-downloaded to base64.
func IsProblematicHost(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	return matchesAny(u.Hostname(), problematicHosts)
}

// IsHostileHost reports whether rawURL should be skipped entirely.
func IsHostileHost(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	return matchesAny(u.Hostname(), hostileHosts)
}

func matchesAny(host string, hosts []string) bool {
	for _, h := range hosts {
		if host == h || strings.HasSuffix(host, "."+h) {
			return true
		}
	}
	return false
}

// Decoded is the result of validating and canonicalizing image bytes.
type Decoded struct {
	MIME string
	Data []byte
}

// magicSniff identifies well-known image signatures, including WebP's
// RIFF/WEBP container, which the standard library cannot decode but
// which is detectable without decoding pixels.
func magicSniff(b []byte) (mime string, ok bool) {
	switch {
	case len(b) >= 8 && bytes.Equal(b[:8], []byte{0x89, 'P', 'N', 'G', 0x0d, 0x0a, 0x1a, 0x0a}):
		return "image/png", true
	case len(b) >= 3 && b[0] == 0xFF && b[1] == 0xD8 && b[2] == 0xFF:
		return "image/jpeg", true
	case len(b) >= 6 && (bytes.Equal(b[:6], []byte("GIF87a")) || bytes.Equal(b[:6], []byte("GIF89a"))):
		return "image/gif", true
	case len(b) >= 12 && bytes.Equal(b[0:4], []byte("RIFF")) && bytes.Equal(b[8:12], []byte("WEBP")):
		return "image/webp", true
	}
	return "", false
}

// Validate decodes b, confirming it really is an image and returning its
// canonical MIME type. WebP bypasses the image.Decode call (magic-byte
// sniff only; see package doc).
func Validate(b []byte) (*Decoded, error) {
	if len(b) == 0 {
		return nil, fmt.Errorf("image: empty body")
	}
	if mime, ok := magicSniff(b); ok {
		if mime == "image/webp" {
			return &Decoded{MIME: mime, Data: b}, nil
		}
		if _, _, err := image.Decode(bytes.NewReader(b)); err != nil {
			return nil, fmt.Errorf("image: failed to decode as %s: %w", mime, err)
		}
		return &Decoded{MIME: mime, Data: b}, nil
	}
	return nil, fmt.Errorf("image: unrecognized image signature")
}

// Download fetches rawURL, validates the body is really an image, and
// returns the canonical decoded form. Empty or oversized bodies are
// rejected before decode.
func Download(ctx context.Context, client *http.Client, rawURL string) (*Decoded, error) {
	if client == nil {
		client = &http.Client{Timeout: defaultDownloadTimeout}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("image: build request for %s: %w", rawURL, err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("image: download %s: %w", rawURL, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("image: download %s: status %d", rawURL, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxDownloadBytes+1))
	if err != nil {
		return nil, fmt.Errorf("image: read body of %s: %w", rawURL, err)
	}
	if len(body) == 0 {
		return nil, fmt.Errorf("image: empty body for %s", rawURL)
	}
	if len(body) > maxDownloadBytes {
		return nil, fmt.Errorf("image: body for %s exceeds %d bytes", rawURL, maxDownloadBytes)
	}

	decoded, err := Validate(body)
	if err != nil {
		return nil, err
	}
	return decoded, nil
}

// ToDataURL renders a Decoded image as a data:<mime>;base64,<...> URL.
func (d *Decoded) ToDataURL() string {
	return fmt.Sprintf("data:%s;base64,%s", d.MIME, base64.StdEncoding.EncodeToString(d.Data))
}

// DedupURLs removes duplicate URLs while preserving first-seen order.
func DedupURLs(urls []string) []string {
	seen := make(map[string]bool, len(urls))
	out := make([]string, 0, len(urls))
	for _, u := range urls {
		if seen[u] {
			continue
		}
		seen[u] = true
		out = append(out, u)
	}
	return out
}

// FilterAndSubstitute implements the image URL dedup & validation
// invariant (spec.md §8): data-URLs are filtered out, problematic hosts
// are converted to base64 and substituted in place, ordering is
// preserved modulo dedup. download is injected so callers can provide a
// real or fake downloader.
func FilterAndSubstitute(ctx context.Context, urls []string, download func(ctx context.Context, rawURL string) (*Decoded, error)) []string {
	deduped := DedupURLs(urls)
	out := make([]string, 0, len(deduped))
	for _, u := range deduped {
		if !IsValidImageInput(u) {
			continue
		}
		if IsHostileHost(u) {
			continue
		}
		if IsProblematicHost(u) && download != nil {
			if decoded, err := download(ctx, u); err == nil {
				out = append(out, decoded.ToDataURL())
				continue
			}
		}
		out = append(out, u)
	}
	return out
}
