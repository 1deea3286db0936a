package llm

import "testing"

func TestExtractEmbeddedAssetsParsesBase64Assets(t *testing.T) {
	doc := `{"assets":[{"encoding":"base64","content_type":"image/png","data":"aGVsbG8="}]}`
	assets, ok := ExtractEmbeddedAssets(doc)
	if !ok {
		t.Fatal("expected ok=true")
	}
	if len(assets) != 1 || assets[0].Data != "aGVsbG8=" {
		t.Fatalf("unexpected assets: %+v", assets)
	}
}

func TestExtractEmbeddedAssetsReturnsFalseForPlainText(t *testing.T) {
	if _, ok := ExtractEmbeddedAssets("just some text"); ok {
		t.Fatal("expected ok=false for non-JSON text")
	}
}

func TestRewriteEmbeddedAssetsSubstitutesURLs(t *testing.T) {
	doc := `{"assets":[{"encoding":"base64","content_type":"image/png","data":"aGVsbG8="}]}`
	rewritten, changed := RewriteEmbeddedAssets(doc, func(i int, a EmbeddedAsset) string {
		return "https://cdn.example.com/uploaded.png"
	})
	if !changed {
		t.Fatal("expected changed=true")
	}
	if !contains(rewritten, "https://cdn.example.com/uploaded.png") {
		t.Fatalf("expected rewritten doc to contain uploaded URL, got %s", rewritten)
	}
}

func TestParseImageDownloadFailureURLExtractsURL(t *testing.T) {
	msg := "Error while downloading https://example.com/broken.png: connection reset"
	url, ok := ParseImageDownloadFailureURL(msg)
	if !ok {
		t.Fatal("expected ok=true")
	}
	if url != "https://example.com/broken.png" {
		t.Fatalf("unexpected url: %q", url)
	}
}

func TestParseImageDownloadFailureURLReturnsFalseForUnrelatedError(t *testing.T) {
	if _, ok := ParseImageDownloadFailureURL("rate limit exceeded"); ok {
		t.Fatal("expected ok=false for a non-URL error")
	}
}
