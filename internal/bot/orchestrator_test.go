package bot

import (
	"context"
	"errors"
	"testing"

	"github.com/baapco/diksha/internal/responder"
	"github.com/baapco/diksha/internal/session"
	"github.com/baapco/diksha/internal/storage"
	"github.com/baapco/diksha/internal/webhook"
	"github.com/baapco/diksha/internal/whatsapp"
)

type fakeLedger struct {
	customers map[string]storage.Customer
	getErr    error
	createErr error
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{customers: make(map[string]storage.Customer)}
}

func (l *fakeLedger) GetCustomer(identity string) (storage.Customer, error) {
	if l.getErr != nil {
		return storage.Customer{}, l.getErr
	}
	c, ok := l.customers[identity]
	if !ok {
		return storage.Customer{}, storage.ErrNotFound
	}
	return c, nil
}

func (l *fakeLedger) CreateCustomer(c storage.Customer) error {
	if l.createErr != nil {
		return l.createErr
	}
	if _, ok := l.customers[c.Identity]; ok {
		return storage.ErrDuplicate
	}
	l.customers[c.Identity] = c
	return nil
}

type fakeRetriever struct {
	chunks []string
	query  string
	topK   int
}

func (r *fakeRetriever) Query(ctx context.Context, text string, topK int) []string {
	r.query = text
	r.topK = topK
	return r.chunks
}

type fakeReplies struct {
	reply   responder.StructuredReply
	message string
	chunks  []string
	history []session.Turn
}

func (f *fakeReplies) GenerateReply(ctx context.Context, userMessage string, contextChunks []string, history []session.Turn) responder.StructuredReply {
	f.message = userMessage
	f.chunks = contextChunks
	f.history = append([]session.Turn(nil), history...)
	return f.reply
}

type sentMessage struct {
	to     string
	body   string
	button *whatsapp.Button
}

type fakeGateway struct {
	sent []sentMessage
	err  error
}

func (g *fakeGateway) Send(ctx context.Context, to, body string, button *whatsapp.Button) error {
	g.sent = append(g.sent, sentMessage{to: to, body: body, button: button})
	return g.err
}

func inbound(body string) webhook.InboundMessage {
	return webhook.InboundMessage{
		From:        "919900112233",
		ProfileName: "Asha",
		Endpoint:    "15550001111",
		Body:        body,
	}
}

func TestProcessInformationalReply(t *testing.T) {
	ledger := newFakeLedger()
	sessions := session.NewStore()
	retriever := &fakeRetriever{chunks: []string{"Our offices are open 9 AM to 6 PM, Monday through Saturday."}}
	replies := &fakeReplies{reply: responder.StructuredReply{
		ResponseText: "We're open 9 AM to 6 PM, Monday to Saturday.",
	}}
	gateway := &fakeGateway{}

	o := New(ledger, sessions, retriever, replies, gateway, 3)
	o.Process(context.Background(), inbound("What are your office hours?"))

	if retriever.query != "What are your office hours?" || retriever.topK != 3 {
		t.Fatalf("unexpected retrieval call: query=%q topK=%d", retriever.query, retriever.topK)
	}
	if replies.message != "What are your office hours?" {
		t.Fatalf("unexpected generator message: %q", replies.message)
	}
	if len(replies.history) != 0 {
		t.Fatalf("first turn should have empty prior history, got %d turns", len(replies.history))
	}
	if len(replies.chunks) != 1 {
		t.Fatalf("expected retrieved chunk forwarded, got %d", len(replies.chunks))
	}

	if len(gateway.sent) != 1 {
		t.Fatalf("expected 1 outbound message, got %d", len(gateway.sent))
	}
	sent := gateway.sent[0]
	if sent.to != "919900112233" || sent.body != "We're open 9 AM to 6 PM, Monday to Saturday." {
		t.Fatalf("unexpected outbound message: %+v", sent)
	}
	if sent.button != nil {
		t.Fatalf("informational reply should carry no button, got %+v", sent.button)
	}

	if _, ok := ledger.customers["919900112233"]; !ok {
		t.Fatal("first-time sender should be registered in the ledger")
	}
	history, _ := sessions.History("919900112233")
	if len(history) != 2 {
		t.Fatalf("expected user and agent turns recorded, got %d", len(history))
	}
	if history[0].Role != session.RoleUser || history[1].Role != session.RoleAgent {
		t.Fatalf("unexpected turn roles: %+v", history)
	}
}

func TestProcessPhoneButtonReply(t *testing.T) {
	ledger := newFakeLedger()
	sessions := session.NewStore()
	retriever := &fakeRetriever{chunks: []string{"Reach us at 9876543210."}}
	replies := &fakeReplies{reply: responder.StructuredReply{
		ResponseText: "You can reach us at 9876543210.",
		Button: &responder.Button{
			Type:  "phone_number",
			Label: "Call Now",
			Value: "9876543210",
		},
	}}
	gateway := &fakeGateway{}

	o := New(ledger, sessions, retriever, replies, gateway, 3)
	o.Process(context.Background(), inbound("Call me at your number"))

	if len(gateway.sent) != 1 {
		t.Fatalf("expected 1 outbound message, got %d", len(gateway.sent))
	}
	button := gateway.sent[0].button
	if button == nil {
		t.Fatal("expected a button on the outbound message")
	}
	if button.Kind != whatsapp.ButtonPhone || button.Target != "9876543210" || button.Label != "Call Now" {
		t.Fatalf("unexpected button: %+v", button)
	}
}

func TestProcessKnownCustomerNotReRegistered(t *testing.T) {
	ledger := newFakeLedger()
	ledger.customers["919900112233"] = storage.Customer{Identity: "919900112233", DisplayName: "Old Name"}
	sessions := session.NewStore()
	replies := &fakeReplies{reply: responder.StructuredReply{ResponseText: "hi"}}
	gateway := &fakeGateway{}

	o := New(ledger, sessions, &fakeRetriever{}, replies, gateway, 3)
	o.Process(context.Background(), inbound("hello again"))

	if got := ledger.customers["919900112233"].DisplayName; got != "Old Name" {
		t.Fatalf("existing record should be untouched, got name %q", got)
	}
}

func TestProcessHistoryGrowsAcrossTurns(t *testing.T) {
	ledger := newFakeLedger()
	sessions := session.NewStore()
	replies := &fakeReplies{reply: responder.StructuredReply{ResponseText: "answer"}}
	gateway := &fakeGateway{}

	o := New(ledger, sessions, &fakeRetriever{}, replies, gateway, 3)
	o.Process(context.Background(), inbound("first question"))
	o.Process(context.Background(), inbound("second question"))

	if len(replies.history) != 2 {
		t.Fatalf("second turn should see 2 prior turns, got %d", len(replies.history))
	}
	if replies.history[0].Text != "first question" || replies.history[1].Text != "answer" {
		t.Fatalf("unexpected prior history: %+v", replies.history)
	}
}

func TestProcessLedgerFailureDoesNotBlockReply(t *testing.T) {
	ledger := newFakeLedger()
	ledger.getErr = errors.New("database locked")
	sessions := session.NewStore()
	replies := &fakeReplies{reply: responder.StructuredReply{ResponseText: "still here"}}
	gateway := &fakeGateway{}

	o := New(ledger, sessions, &fakeRetriever{}, replies, gateway, 3)
	o.Process(context.Background(), inbound("hello"))

	if len(gateway.sent) != 1 {
		t.Fatalf("reply should still be sent, got %d messages", len(gateway.sent))
	}
}

func TestProcessGatewayFailureStillRecordsTurns(t *testing.T) {
	ledger := newFakeLedger()
	sessions := session.NewStore()
	replies := &fakeReplies{reply: responder.StructuredReply{ResponseText: "oops"}}
	gateway := &fakeGateway{err: errors.New("network down")}

	o := New(ledger, sessions, &fakeRetriever{}, replies, gateway, 3)
	o.Process(context.Background(), inbound("hello"))

	history, _ := sessions.History("919900112233")
	if len(history) != 2 {
		t.Fatalf("both turns should be recorded despite delivery failure, got %d", len(history))
	}
}
