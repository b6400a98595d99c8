// Package bot wires the inbound message flow: customer registration, session
// tracking, knowledge retrieval, reply generation, and outbound delivery.
package bot

import (
	"context"
	"errors"
	"log/slog"

	"github.com/baapco/diksha/internal/responder"
	"github.com/baapco/diksha/internal/session"
	"github.com/baapco/diksha/internal/storage"
	"github.com/baapco/diksha/internal/webhook"
	"github.com/baapco/diksha/internal/whatsapp"
)

// Ledger is the durable customer record store. Implemented by storage.Store.
type Ledger interface {
	GetCustomer(identity string) (storage.Customer, error)
	CreateCustomer(c storage.Customer) error
}

// Sessions tracks active conversations. Implemented by session.Store.
type Sessions interface {
	Append(identity, endpoint string, turn session.Turn) []session.Turn
}

// Retriever returns knowledge excerpts relevant to a query. Implemented by
// retrieval.Index.
type Retriever interface {
	Query(ctx context.Context, text string, topK int) []string
}

// ReplyGenerator produces the agent's reply. Implemented by responder.Responder.
type ReplyGenerator interface {
	GenerateReply(ctx context.Context, userMessage string, contextChunks []string, history []session.Turn) responder.StructuredReply
}

// Gateway delivers outbound messages. Implemented by whatsapp.Client.
type Gateway interface {
	Send(ctx context.Context, to, body string, button *whatsapp.Button) error
}

// Orchestrator processes inbound messages end to end. Every stage degrades
// independently so a single failure never drops the turn entirely.
type Orchestrator struct {
	ledger    Ledger
	sessions  Sessions
	retriever Retriever
	replies   ReplyGenerator
	gateway   Gateway
	topK      int
	logger    *slog.Logger
}

// New creates an Orchestrator. topK is the number of knowledge excerpts to
// retrieve per message.
func New(ledger Ledger, sessions Sessions, retriever Retriever, replies ReplyGenerator, gateway Gateway, topK int) *Orchestrator {
	return &Orchestrator{
		ledger:    ledger,
		sessions:  sessions,
		retriever: retriever,
		replies:   replies,
		gateway:   gateway,
		topK:      topK,
		logger:    slog.Default(),
	}
}

// Process handles one inbound text message: registers the sender if new,
// records the turn, generates a reply, and sends it back.
func (o *Orchestrator) Process(ctx context.Context, msg webhook.InboundMessage) {
	o.logger.Info("inbound message",
		"from", msg.From, "name", msg.ProfileName, "length", len(msg.Body))

	o.ensureCustomer(msg)

	history := o.sessions.Append(msg.From, msg.Endpoint, session.Turn{
		Role: session.RoleUser,
		Text: msg.Body,
	})
	// The pending message goes to the generator separately; history covers
	// only the turns before it.
	prior := history[:len(history)-1]

	chunks := o.retriever.Query(ctx, msg.Body, o.topK)
	if len(chunks) == 0 {
		o.logger.Debug("no knowledge excerpts retrieved", "from", msg.From)
	}

	reply := o.replies.GenerateReply(ctx, msg.Body, chunks, prior)

	o.sessions.Append(msg.From, msg.Endpoint, session.Turn{
		Role: session.RoleAgent,
		Text: reply.ResponseText,
	})

	if err := o.gateway.Send(ctx, msg.From, reply.ResponseText, toGatewayButton(reply.Button)); err != nil {
		o.logger.Error("failed to deliver reply", "to", msg.From, "error", err)
		return
	}
	o.logger.Info("reply delivered", "to", msg.From, "button", reply.Button != nil)
}

// ensureCustomer records first-time senders in the ledger. Ledger failures are
// logged and the turn continues without a durable record.
func (o *Orchestrator) ensureCustomer(msg webhook.InboundMessage) {
	_, err := o.ledger.GetCustomer(msg.From)
	if err == nil {
		return
	}
	if !errors.Is(err, storage.ErrNotFound) {
		o.logger.Warn("customer lookup failed", "identity", msg.From, "error", err)
		return
	}

	err = o.ledger.CreateCustomer(storage.Customer{
		Endpoint:    msg.Endpoint,
		Identity:    msg.From,
		DisplayName: msg.ProfileName,
	})
	switch {
	case err == nil:
		o.logger.Info("new customer registered", "identity", msg.From, "name", msg.ProfileName)
	case errors.Is(err, storage.ErrDuplicate):
		// Lost a race with a concurrent webhook delivery for the same sender.
	default:
		o.logger.Warn("customer registration failed", "identity", msg.From, "error", err)
	}
}

func toGatewayButton(b *responder.Button) *whatsapp.Button {
	if b == nil {
		return nil
	}
	return &whatsapp.Button{
		Kind:   b.Type,
		Label:  b.Label,
		Target: b.Value,
	}
}
