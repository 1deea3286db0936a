// Package tracking injects a tracking script into HTML deliverables at job
// finalization. Uses golang.org/x/net/html for a parse-tree-safe insertion
// before </body> rather than regex splicing, falling back to a raw string
// append when no <body> tag is present, per the idempotence rule in
// spec.md §9: a stable marker makes the injector safe to run twice.
package tracking

import (
	"bytes"
	"strings"

	"golang.org/x/net/html"
)

// Marker is the stable string identifying an already-injected script; its
// presence makes Inject idempotent.
const Marker = "Lead Magnet Tracking Script"

// Injector renders and inserts a tracking <script> block.
type Injector struct {
	script string
}

// New builds an Injector that inserts scriptBody (the raw JS, without the
// surrounding <script> tag or marker comment) before </body>.
func New(scriptBody string) *Injector {
	return &Injector{script: scriptBody}
}

func (i *Injector) snippet() string {
	return "<!-- " + Marker + " -->\n<script>\n" + i.script + "\n</script>\n"
}

// Inject returns doc with the tracking snippet inserted before </body>,
// or appended if no body tag exists. A no-op if the marker is already
// present.
func (i *Injector) Inject(doc string) string {
	if strings.Contains(doc, Marker) {
		return doc
	}

	node, err := html.Parse(strings.NewReader(doc))
	if err != nil {
		return doc + i.snippet()
	}

	body := findBody(node)
	if body == nil {
		return doc + i.snippet()
	}

	scriptFragment, err := html.ParseFragment(strings.NewReader(i.snippet()), body)
	if err != nil || len(scriptFragment) == 0 {
		return doc + i.snippet()
	}
	for _, n := range scriptFragment {
		body.AppendChild(n)
	}

	var buf bytes.Buffer
	if err := html.Render(&buf, node); err != nil {
		return doc + i.snippet()
	}
	return buf.String()
}

func findBody(n *html.Node) *html.Node {
	if n.Type == html.ElementNode && n.Data == "body" {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if b := findBody(c); b != nil {
			return b
		}
	}
	return nil
}
