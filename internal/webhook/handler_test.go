package webhook

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

type fakeProcessor struct {
	messages []InboundMessage
}

func (p *fakeProcessor) Process(ctx context.Context, msg InboundMessage) {
	p.messages = append(p.messages, msg)
}

func newTestServer(t *testing.T) (*httptest.Server, *fakeProcessor) {
	t.Helper()
	processor := &fakeProcessor{}
	server := httptest.NewServer(NewHandler("secret-token", processor))
	t.Cleanup(server.Close)
	return server, processor
}

const textEvent = `{
  "object": "whatsapp_business_account",
  "entry": [{
    "id": "1",
    "changes": [{
      "field": "messages",
      "value": {
        "messaging_product": "whatsapp",
        "metadata": {"display_phone_number": "15550001111", "phone_number_id": "105551234"},
        "contacts": [{"wa_id": "919900112233", "profile": {"name": "Asha"}}],
        "messages": [{"from": "919900112233", "id": "wamid.x", "type": "text", "text": {"body": "What are your office hours?"}}]
      }
    }]
  }]
}`

func TestVerifyHandshake(t *testing.T) {
	server, _ := newTestServer(t)

	resp, err := http.Get(server.URL + "/webhook?hub.mode=subscribe&hub.verify_token=secret-token&hub.challenge=12345")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	body := make([]byte, 16)
	n, _ := resp.Body.Read(body)
	if got := string(body[:n]); got != "12345" {
		t.Fatalf("expected challenge echoed back, got %q", got)
	}
}

func TestVerifyBadToken(t *testing.T) {
	server, _ := newTestServer(t)

	resp, err := http.Get(server.URL + "/webhook?hub.verify_token=wrong&hub.challenge=12345")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", resp.StatusCode)
	}
}

func TestNotificationDispatchesTextMessage(t *testing.T) {
	server, processor := newTestServer(t)

	resp, err := http.Post(server.URL+"/webhook", "application/json", strings.NewReader(textEvent))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	if len(processor.messages) != 1 {
		t.Fatalf("expected 1 processed message, got %d", len(processor.messages))
	}
	msg := processor.messages[0]
	if msg.From != "919900112233" {
		t.Fatalf("unexpected sender: %q", msg.From)
	}
	if msg.ProfileName != "Asha" {
		t.Fatalf("unexpected profile name: %q", msg.ProfileName)
	}
	if msg.Endpoint != "15550001111" {
		t.Fatalf("unexpected endpoint: %q", msg.Endpoint)
	}
	if msg.Body != "What are your office hours?" {
		t.Fatalf("unexpected body: %q", msg.Body)
	}
}

func TestNotificationAcknowledgesNonMessageEvents(t *testing.T) {
	cases := []struct {
		name string
		body string
	}{
		{"status update", `{"entry":[{"changes":[{"value":{"statuses":[{"status":"delivered"}]}}]}]}`},
		{"image message", `{"entry":[{"changes":[{"value":{"messages":[{"from":"1","type":"image"}]}}]}]}`},
		{"empty text body", `{"entry":[{"changes":[{"value":{"messages":[{"from":"1","type":"text","text":{"body":""}}]}}]}]}`},
		{"empty entry", `{"entry":[]}`},
		{"malformed json", `{"entry": [`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			server, processor := newTestServer(t)

			resp, err := http.Post(server.URL+"/webhook", "application/json", strings.NewReader(tc.body))
			if err != nil {
				t.Fatalf("request failed: %v", err)
			}
			defer resp.Body.Close()
			if resp.StatusCode != http.StatusOK {
				t.Fatalf("expected 200, got %d", resp.StatusCode)
			}
			if len(processor.messages) != 0 {
				t.Fatalf("expected no processed messages, got %d", len(processor.messages))
			}
		})
	}
}

func TestHealth(t *testing.T) {
	server, _ := newTestServer(t)

	resp, err := http.Get(server.URL + "/health")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
}
