package image

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"testing"
)

func buildPNGBytes() []byte {
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	var buf bytes.Buffer
	_ = png.Encode(&buf, img)
	return buf.Bytes()
}

func TestValidateAcceptsRealPNG(t *testing.T) {
	decoded, err := Validate(buildPNGBytes())
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if decoded.MIME != "image/png" {
		t.Errorf("expected image/png, got %s", decoded.MIME)
	}
}

func TestValidateRejectsGarbage(t *testing.T) {
	if _, err := Validate([]byte("not an image")); err == nil {
		t.Fatal("expected error for non-image bytes")
	}
}

func TestValidateDetectsWebPByMagicBytesOnly(t *testing.T) {
	riff := append([]byte("RIFF"), []byte{0, 0, 0, 0}...)
	riff = append(riff, []byte("WEBP")...)
	decoded, err := Validate(riff)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if decoded.MIME != "image/webp" {
		t.Errorf("expected image/webp, got %s", decoded.MIME)
	}
}

func TestIsValidImageInputRejectsDataURLs(t *testing.T) {
	if IsValidImageInput("data:image/png;base64,abcd") {
		t.Error("expected data URLs to be rejected")
	}
	if !IsValidImageInput("https://example.com/a.png") {
		t.Error("expected https URL to be accepted")
	}
}

func TestDedupURLsPreservesOrder(t *testing.T) {
	in := []string{"a", "b", "a", "c", "b"}
	out := DedupURLs(in)
	want := []string{"a", "b", "c"}
	if len(out) != len(want) {
		t.Fatalf("got %v, want %v", out, want)
	}
	for i := range want {
		if out[i] != want[i] {
			t.Errorf("index %d: got %s, want %s", i, out[i], want[i])
		}
	}
}

func TestFilterAndSubstituteReplacesProblematicHosts(t *testing.T) {
	urls := []string{
		"https://firebasestorage.googleapis.com/x.png",
		"https://cdn.example.com/y.png",
	}
	download := func(ctx context.Context, rawURL string) (*Decoded, error) {
		return &Decoded{MIME: "image/png", Data: buildPNGBytes()}, nil
	}
	out := FilterAndSubstitute(context.Background(), urls, download)
	if len(out) != 2 {
		t.Fatalf("expected 2 urls, got %v", out)
	}
	if out[0][:5] != "data:" {
		t.Errorf("expected first url to be substituted to a data URL, got %s", out[0])
	}
	if out[1] != "https://cdn.example.com/y.png" {
		t.Errorf("expected second url unchanged, got %s", out[1])
	}
}
