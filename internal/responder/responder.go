// Package responder turns user messages into structured agent replies using
// a cloud LLM, and distills finished conversations into intent/purpose pairs.
package responder

import (
	"context"
	"encoding/json"
	"log/slog"
	"regexp"
	"strings"

	"github.com/baapco/diksha/internal/session"
)

// Generator is the interface for text generation. Implemented by gemini.Client.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Button describes an optional call-to-action attached to a reply.
// Type is "phone_number" or "url".
type Button struct {
	Type  string `json:"type"`
	Label string `json:"label"`
	Value string `json:"value"`
}

// StructuredReply is the JSON contract the model must answer with.
type StructuredReply struct {
	ResponseText string  `json:"response_text"`
	Button       *Button `json:"button,omitempty"`
}

// Analysis holds the distilled outcome of an expired conversation.
type Analysis struct {
	Intent  string `json:"intent"`
	Purpose string `json:"purpose"`
}

// Fallback texts sent when the model cannot produce a usable reply. The user
// always gets something back.
const (
	fallbackGenerate = "I apologize, but I'm having trouble processing that right now. Could you please rephrase or try again later?"
	fallbackParse    = "Sorry, I received an unreadable response. Can you please rephrase?"
)

// allowedIntents is the closed label set for conversation analysis.
var allowedIntents = map[string]bool{
	"general_info":          true,
	"product_info":          true,
	"pricing_inquiry":       true,
	"appointment_booking":   true,
	"support_request":       true,
	"lead_capture":          true,
	"portfolio_showcase":    true,
	"smart_recommendation":  true,
	"offers_inquiry":        true,
	"career_or_partnership": true,
}

// fencedJSON matches a ```json (or bare ```) code fence and captures its body.
var fencedJSON = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)\\s*```")

// Responder generates persona replies and conversation analyses.
type Responder struct {
	gen           Generator
	replyLanguage string
	logger        *slog.Logger
}

// New creates a Responder. replyLanguage is "english" or "mirror".
func New(gen Generator, replyLanguage string) *Responder {
	return &Responder{
		gen:           gen,
		replyLanguage: replyLanguage,
		logger:        slog.Default(),
	}
}

// GenerateReply produces the agent's reply to userMessage given retrieved
// knowledge chunks and the session history so far. It never fails: model or
// parse errors degrade to a fallback text reply with no button.
func (r *Responder) GenerateReply(ctx context.Context, userMessage string, contextChunks []string, history []session.Turn) StructuredReply {
	prompt := buildReplyPrompt(userMessage, contextChunks, history, r.replyLanguage)

	raw, err := r.gen.Generate(ctx, prompt)
	if err != nil {
		r.logger.Warn("reply generation failed", "error", err)
		return StructuredReply{ResponseText: fallbackGenerate}
	}

	body := extractJSON(raw)
	var reply StructuredReply
	if err := json.Unmarshal([]byte(body), &reply); err != nil || reply.ResponseText == "" {
		r.logger.Warn("failed to parse structured reply",
			"error", err, "raw", raw, "attempted", body)
		return StructuredReply{ResponseText: fallbackParse}
	}
	return reply
}

// Analyze distills a finished conversation into an intent label and a short
// purpose summary. On any failure it returns a zero Analysis; a non-empty
// intent outside the allowed set is coerced to general_info.
func (r *Responder) Analyze(ctx context.Context, turns []session.Turn) Analysis {
	if len(turns) == 0 {
		return Analysis{}
	}

	prompt := buildAnalysisPrompt(turns)

	raw, err := r.gen.Generate(ctx, prompt)
	if err != nil {
		r.logger.Warn("conversation analysis failed", "error", err)
		return Analysis{}
	}

	body := extractJSON(raw)
	var result Analysis
	if err := json.Unmarshal([]byte(body), &result); err != nil {
		r.logger.Warn("failed to parse conversation analysis",
			"error", err, "raw", raw, "attempted", body)
		return Analysis{}
	}

	if result.Intent != "" && !allowedIntents[result.Intent] {
		r.logger.Warn("model returned unknown intent label", "intent", result.Intent)
		result.Intent = "general_info"
	}
	return result
}

// extractJSON strips a markdown code fence from model output if present,
// otherwise returns the trimmed output unchanged.
func extractJSON(raw string) string {
	if m := fencedJSON.FindStringSubmatch(raw); m != nil {
		return strings.TrimSpace(m[1])
	}
	return strings.TrimSpace(raw)
}
