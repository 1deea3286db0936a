// Package tmpl renders the webhook handler's custom `{{dotted.path}}`
// templates against an arbitrary JSON-shaped context. Go's text/template
// cannot express a literal dotted-path lookup against an untyped
// map[string]any without a bespoke FuncMap indirection, so this renders
// paths with tidwall/gjson (a teacher dependency reused here, see
// DESIGN.md) instead of reinventing path resolution on top of stdlib.
package tmpl

import (
	"encoding/json"
	"fmt"
	"regexp"

	"github.com/tidwall/gjson"
)

var placeholderRe = regexp.MustCompile(`\{\{\s*([a-zA-Z0-9_.\[\]]+)\s*\}\}`)

// Render substitutes every {{dotted.path}} placeholder in template with
// the value found at that path within context, JSON-marshaled first so
// gjson can path into it uniformly.
func Render(template string, context map[string]any) (string, error) {
	raw, err := json.Marshal(context)
	if err != nil {
		return "", fmt.Errorf("marshal template context: %w", err)
	}
	doc := string(raw)

	var outerErr error
	result := placeholderRe.ReplaceAllStringFunc(template, func(match string) string {
		sub := placeholderRe.FindStringSubmatch(match)
		if len(sub) != 2 {
			return match
		}
		path := sub[1]
		res := gjson.Get(doc, path)
		if !res.Exists() {
			return ""
		}
		return res.String()
	})
	return result, outerErr
}

// RenderJSON renders template and re-parses the result as a JSON value,
// for the custom-template webhook body mode when the destination
// content-type is JSON.
func RenderJSON(template string, context map[string]any) (json.RawMessage, error) {
	rendered, err := Render(template, context)
	if err != nil {
		return nil, err
	}
	if json.Valid([]byte(rendered)) {
		return json.RawMessage(rendered), nil
	}
	// Not valid JSON on its own (e.g. the template produced a bare
	// string) — wrap it as the webhook handler's raw_body fallback shape.
	wrapped, err := json.Marshal(map[string]string{"raw_body": rendered})
	if err != nil {
		return nil, err
	}
	return wrapped, nil
}
