package llm

import (
	"encoding/json"
	"regexp"
)

// EmbeddedAsset is one entry of a `{assets:[{encoding,content_type,data}]}`
// shaped JSON document emitted inline in output_text.
type EmbeddedAsset struct {
	Encoding    string `json:"encoding"`
	ContentType string `json:"content_type"`
	Data        string `json:"data"`
}

type assetDocument struct {
	Assets []EmbeddedAsset `json:"assets"`
}

// ExtractEmbeddedAssets parses docText looking for the
// `{assets:[{encoding:"base64", content_type:"image/...", data:"..."}]}`
// shape and returns any base64-encoded assets found. Returns ok=false if
// docText doesn't parse as that shape.
func ExtractEmbeddedAssets(docText string) ([]EmbeddedAsset, bool) {
	var doc assetDocument
	if err := json.Unmarshal([]byte(docText), &doc); err != nil {
		return nil, false
	}
	if len(doc.Assets) == 0 {
		return nil, false
	}
	var out []EmbeddedAsset
	for _, a := range doc.Assets {
		if a.Encoding == "base64" && a.Data != "" {
			out = append(out, a)
		}
	}
	return out, len(out) > 0
}

// RewriteEmbeddedAssets replaces each asset's base64 data field with its
// uploaded URL, given a resolver keyed by the asset's index within the
// embedded array (in encounter order).
func RewriteEmbeddedAssets(docText string, resolve func(index int, asset EmbeddedAsset) string) (string, bool) {
	var raw map[string]any
	if err := json.Unmarshal([]byte(docText), &raw); err != nil {
		return docText, false
	}
	assetsRaw, ok := raw["assets"].([]any)
	if !ok {
		return docText, false
	}
	changed := false
	for i, a := range assetsRaw {
		m, ok := a.(map[string]any)
		if !ok {
			continue
		}
		encoding, _ := m["encoding"].(string)
		if encoding != "base64" {
			continue
		}
		data, _ := m["data"].(string)
		contentType, _ := m["content_type"].(string)
		url := resolve(i, EmbeddedAsset{Encoding: encoding, ContentType: contentType, Data: data})
		if url == "" {
			continue
		}
		m["data"] = url
		m["encoding"] = "url"
		changed = true
	}
	if !changed {
		return docText, false
	}
	b, err := json.Marshal(raw)
	if err != nil {
		return docText, false
	}
	return string(b), true
}

// imageDownloadFailureKeyword gates whether a message plausibly cites an
// image-download failure at all, before we bother scanning for a URL.
var imageDownloadFailureKeyword = regexp.MustCompile(`(?i)download|fetch`)

// urlPattern finds the first http(s) URL in a string.
var urlPattern = regexp.MustCompile(`https?://\S+`)

// trailingPunctuation strips characters a URL would never legitimately
// end with but that commonly trail it in prose (": ...", ", ...", etc).
var trailingPunctuation = regexp.MustCompile(`[.,:;)\]]+$`)

// ParseImageDownloadFailureURL extracts the offending image URL from a
// provider error message citing an image-download failure, or returns
// ok=false when the message doesn't name a URL (a non-URL error, which
// the retry loop must not retry on).
func ParseImageDownloadFailureURL(errMsg string) (url string, ok bool) {
	if !imageDownloadFailureKeyword.MatchString(errMsg) {
		return "", false
	}
	m := urlPattern.FindString(errMsg)
	if m == "" {
		return "", false
	}
	return trailingPunctuation.ReplaceAllString(m, ""), true
}
