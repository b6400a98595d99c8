package webhook

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
)

const maxRequestBodySize = 1 << 20 // 1MB

// Processor handles one inbound text message end to end. Implemented by
// bot.Orchestrator.
type Processor interface {
	Process(ctx context.Context, msg InboundMessage)
}

// NewHandler returns the HTTP handler for the Meta webhook surface:
// GET /webhook (verification handshake), POST /webhook (notifications),
// and GET /health.
func NewHandler(verifyToken string, processor Processor) http.Handler {
	r := chi.NewRouter()

	r.Get("/health", handleHealth)
	r.Get("/webhook", handleVerify(verifyToken))
	r.Post("/webhook", handleNotification(processor))

	return r
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

// handleVerify implements Meta's subscription handshake: echo hub.challenge
// when hub.verify_token matches, 403 otherwise.
func handleVerify(verifyToken string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := r.URL.Query().Get("hub.verify_token")
		challenge := r.URL.Query().Get("hub.challenge")
		if token != verifyToken {
			slog.Warn("webhook verification failed", "remote", r.RemoteAddr)
			http.Error(w, "Invalid verification token", http.StatusForbidden)
			return
		}
		w.Write([]byte(challenge))
	}
}

// handleNotification acknowledges every notification with 200 so Meta does
// not retry; structural problems are logged with the raw payload instead of
// surfaced to the caller.
func handleNotification(processor Processor) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		raw, err := io.ReadAll(r.Body)
		if err != nil {
			slog.Warn("failed to read webhook body", "error", err)
			w.Write([]byte("ok"))
			return
		}

		var event Event
		if err := json.Unmarshal(raw, &event); err != nil {
			slog.Warn("malformed webhook payload", "error", err, "payload", string(raw))
			w.Write([]byte("ok"))
			return
		}

		msg, ok := event.FirstTextMessage()
		if !ok {
			slog.Debug("ignoring non-text webhook event")
			w.Write([]byte("ok"))
			return
		}

		processor.Process(r.Context(), msg)
		w.Write([]byte("ok"))
	}
}
