package sms

import (
	"context"
	"encoding/json"
	"testing"
)

type fakeHTTPClient struct {
	status  int
	lastURL string
	lastBody []byte
}

func (f *fakeHTTPClient) Do(ctx context.Context, method, url string, headers map[string]string, body []byte) (int, []byte, error) {
	f.lastURL = url
	f.lastBody = body
	return f.status, []byte(`{"ok":true}`), nil
}

func TestSendPostsExpectedPayload(t *testing.T) {
	fake := &fakeHTTPClient{status: 200}
	gw := New(fake, "https://sms.example.com/send", map[string]string{"X-Api-Key": "secret"})

	if err := gw.Send(context.Background(), "+15551234567", "+15557654321", "hello"); err != nil {
		t.Fatalf("Send: %v", err)
	}

	var payload map[string]string
	if err := json.Unmarshal(fake.lastBody, &payload); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if payload["to"] != "+15551234567" || payload["from"] != "+15557654321" || payload["body"] != "hello" {
		t.Errorf("unexpected payload: %+v", payload)
	}
	if fake.lastURL != "https://sms.example.com/send" {
		t.Errorf("unexpected url: %s", fake.lastURL)
	}
}

func TestSendReturnsErrorOnFailureStatus(t *testing.T) {
	fake := &fakeHTTPClient{status: 500}
	gw := New(fake, "https://sms.example.com/send", nil)

	if err := gw.Send(context.Background(), "+1", "+2", "hi"); err == nil {
		t.Fatal("expected error for 5xx response")
	}
}
