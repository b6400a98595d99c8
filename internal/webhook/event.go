// Package webhook receives WhatsApp Business Cloud API callbacks: the GET
// verification handshake and POST message notifications.
package webhook

// Event mirrors the nested Meta webhook notification payload. Only the fields
// the bot consumes are declared; everything else is ignored on decode.
type Event struct {
	Entry []Entry `json:"entry"`
}

type Entry struct {
	Changes []Change `json:"changes"`
}

type Change struct {
	Value Value `json:"value"`
}

type Value struct {
	Metadata Metadata  `json:"metadata"`
	Contacts []Contact `json:"contacts"`
	Messages []Message `json:"messages"`
}

type Metadata struct {
	DisplayPhoneNumber string `json:"display_phone_number"`
}

type Contact struct {
	WaID    string  `json:"wa_id"`
	Profile Profile `json:"profile"`
}

type Profile struct {
	Name string `json:"name"`
}

type Message struct {
	From string   `json:"from"`
	Type string   `json:"type"`
	Text TextBody `json:"text"`
}

type TextBody struct {
	Body string `json:"body"`
}

// InboundMessage is the flattened view of one incoming text message.
type InboundMessage struct {
	From        string
	ProfileName string
	Endpoint    string
	Body        string
}

// FirstTextMessage extracts the first text message from the event. It returns
// false for status updates, non-text messages, and empty bodies.
func (e Event) FirstTextMessage() (InboundMessage, bool) {
	if len(e.Entry) == 0 || len(e.Entry[0].Changes) == 0 {
		return InboundMessage{}, false
	}
	value := e.Entry[0].Changes[0].Value
	if len(value.Messages) == 0 {
		return InboundMessage{}, false
	}

	msg := value.Messages[0]
	if msg.Type != "text" || msg.Text.Body == "" {
		return InboundMessage{}, false
	}

	in := InboundMessage{
		From:     msg.From,
		Endpoint: value.Metadata.DisplayPhoneNumber,
		Body:     msg.Text.Body,
	}
	if len(value.Contacts) > 0 {
		in.ProfileName = value.Contacts[0].Profile.Name
	}
	return in, true
}
