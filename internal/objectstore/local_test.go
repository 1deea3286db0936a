package objectstore

import (
	"context"
	"testing"
)

func TestLocalStorePutGetRoundTrip(t *testing.T) {
	store, err := NewLocalStore(t.TempDir(), "")
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	url, err := store.Put(ctx, "tenant1/jobs/j1/out.txt", []byte("hello"), "text/plain")
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	if url == "" {
		t.Error("expected non-empty blob URL")
	}

	got, err := store.Get(ctx, "tenant1/jobs/j1/out.txt")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(got) != "hello" {
		t.Errorf("Get() = %q, want %q", got, "hello")
	}
}

func TestLocalStorePublicURLUsesCDNWhenConfigured(t *testing.T) {
	store, err := NewLocalStore(t.TempDir(), "https://cdn.example")
	if err != nil {
		t.Fatal(err)
	}
	if got := store.PublicURL("a/b.png"); got != "https://cdn.example/a/b.png" {
		t.Errorf("PublicURL() = %q", got)
	}
}
