package openairesponses

import (
	"context"
	"encoding/json"
	"testing"
)

type fakeHTTPClient struct {
	status int
	body   []byte
	gotURL string
	gotHeaders map[string]string
}

func (f *fakeHTTPClient) Do(ctx context.Context, method, url string, headers map[string]string, body []byte) (int, []byte, error) {
	f.gotURL = url
	f.gotHeaders = headers
	return f.status, f.body, nil
}

func TestCreateResponseDecodesBody(t *testing.T) {
	respBody, _ := json.Marshal(map[string]any{"id": "resp_1", "output_text": "hi"})
	fake := &fakeHTTPClient{status: 200, body: respBody}
	p := New(fake, "https://api.example.com/v1/responses", "sk-test")

	out, err := p.CreateResponse(context.Background(), map[string]any{"model": "gpt-4.1"})
	if err != nil {
		t.Fatalf("CreateResponse: %v", err)
	}
	if out["id"] != "resp_1" {
		t.Errorf("unexpected response: %+v", out)
	}
	if fake.gotHeaders["Authorization"] != "Bearer sk-test" {
		t.Errorf("expected bearer auth header, got %+v", fake.gotHeaders)
	}
}

func TestCreateResponseReturnsStatusErrorOnFailure(t *testing.T) {
	fake := &fakeHTTPClient{status: 429, body: []byte(`{"error":"rate limited"}`)}
	p := New(fake, "https://api.example.com/v1/responses", "sk-test")

	_, err := p.CreateResponse(context.Background(), map[string]any{})
	if err == nil {
		t.Fatal("expected error for 429 response")
	}
	statusErr, ok := err.(*StatusError)
	if !ok {
		t.Fatalf("expected *StatusError, got %T", err)
	}
	if statusErr.StatusCode() != 429 {
		t.Errorf("unexpected status: %d", statusErr.StatusCode())
	}
}
