package tracking

import (
	"strings"
	"testing"
)

func TestInjectAddsMarkerBeforeBodyClose(t *testing.T) {
	inj := New("console.log('hi')")
	doc := "<html><body><h1>hi</h1></body></html>"
	out := inj.Inject(doc)
	if !strings.Contains(out, Marker) {
		t.Fatalf("expected marker in output: %s", out)
	}
	if strings.Index(out, Marker) > strings.Index(out, "</body>") {
		t.Errorf("expected tracking script before </body>, got %s", out)
	}
}

func TestInjectAppendsWhenNoBody(t *testing.T) {
	inj := New("console.log('hi')")
	doc := "just some text, no html at all"
	out := inj.Inject(doc)
	if !strings.Contains(out, Marker) {
		t.Fatalf("expected marker appended: %s", out)
	}
}

func TestInjectIsIdempotent(t *testing.T) {
	inj := New("console.log('hi')")
	doc := "<html><body><h1>hi</h1></body></html>"
	once := inj.Inject(doc)
	twice := inj.Inject(once)
	if once != twice {
		t.Errorf("Inject is not idempotent:\nonce=%s\ntwice=%s", once, twice)
	}
}
