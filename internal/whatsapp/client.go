// Package whatsapp sends outbound messages through the WhatsApp Business
// Cloud API (Meta Graph).
package whatsapp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

const (
	defaultBaseURL = "https://graph.facebook.com/v22.0"
	defaultTimeout = 30 * time.Second

	maxButtonLabel = 20
)

// Button kinds the Graph API can render as a call-to-action.
const (
	ButtonPhone = "phone_number"
	ButtonURL   = "url"
)

// Button is an optional call-to-action attached to an outbound message.
type Button struct {
	Kind   string
	Label  string
	Target string
}

// Client talks to the Graph API messages endpoint for one business phone number.
type Client struct {
	accessToken   string
	phoneNumberID string
	baseURL       string
	httpClient    *http.Client
	logger        *slog.Logger
}

// NewClient creates a Client for the given business phone number ID.
func NewClient(accessToken, phoneNumberID string) *Client {
	return &Client{
		accessToken:   accessToken,
		phoneNumberID: phoneNumberID,
		baseURL:       defaultBaseURL,
		httpClient: &http.Client{
			Timeout: defaultTimeout,
		},
		logger: slog.Default(),
	}
}

// NewClientWithBaseURL creates a client pointing at a custom base URL (for testing).
func NewClientWithBaseURL(accessToken, phoneNumberID, baseURL string) *Client {
	c := NewClient(accessToken, phoneNumberID)
	c.baseURL = strings.TrimRight(baseURL, "/")
	return c
}

type textPayload struct {
	Body string `json:"body"`
}

type ctaParameters struct {
	DisplayText string `json:"display_text"`
	URL         string `json:"url"`
}

type ctaAction struct {
	Name       string        `json:"name"`
	Parameters ctaParameters `json:"parameters"`
}

type interactiveBody struct {
	Text string `json:"text"`
}

type interactivePayload struct {
	Type   string          `json:"type"`
	Body   interactiveBody `json:"body"`
	Action ctaAction       `json:"action"`
}

type messagePayload struct {
	MessagingProduct string              `json:"messaging_product"`
	To               string              `json:"to"`
	Type             string              `json:"type"`
	Text             *textPayload        `json:"text,omitempty"`
	Interactive      *interactivePayload `json:"interactive,omitempty"`
}

// Send delivers body to the recipient. When button is usable the message goes
// out as an interactive call-to-action; a button that cannot be normalized is
// dropped and the message degrades to plain text.
func (c *Client) Send(ctx context.Context, to, body string, button *Button) error {
	payload := messagePayload{
		MessagingProduct: "whatsapp",
		To:               to,
		Type:             "text",
		Text:             &textPayload{Body: body},
	}

	if button != nil {
		if target, ok := buttonTarget(button); ok {
			payload = messagePayload{
				MessagingProduct: "whatsapp",
				To:               to,
				Type:             "interactive",
				Interactive: &interactivePayload{
					Type: "cta_url",
					Body: interactiveBody{Text: body},
					Action: ctaAction{
						Name: "cta_url",
						Parameters: ctaParameters{
							DisplayText: truncateLabel(button.Label),
							URL:         target,
						},
					},
				},
			}
		} else {
			c.logger.Warn("dropping unusable button",
				"kind", button.Kind, "target", button.Target)
		}
	}

	return c.post(ctx, payload)
}

func (c *Client) post(ctx context.Context, payload messagePayload) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshaling message: %w", err)
	}

	url := fmt.Sprintf("%s/%s/messages", c.baseURL, c.phoneNumberID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.accessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("sending message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("whatsapp api status %d: %s", resp.StatusCode, string(respBody))
	}
	return nil
}

// buttonTarget normalizes a button into a cta_url target. Phone numbers become
// tel: links; URLs get an https:// scheme unless one is already present.
func buttonTarget(b *Button) (string, bool) {
	value := strings.TrimSpace(b.Target)
	if value == "" {
		return "", false
	}
	switch b.Kind {
	case ButtonPhone:
		return "tel:" + value, true
	case ButtonURL:
		lower := strings.ToLower(value)
		if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") || strings.HasPrefix(lower, "mailto:") {
			return value, true
		}
		return "https://" + value, true
	default:
		return "", false
	}
}

func truncateLabel(label string) string {
	runes := []rune(label)
	if len(runes) <= maxButtonLabel {
		return label
	}
	return string(runes[:maxButtonLabel])
}
