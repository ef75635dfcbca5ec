package core

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// AccountStatus tracks where a subscriber is in their lifecycle.
// Accounts are never hard-deleted; unsubscribing flips the status back.
type AccountStatus string

const (
	StatusBrandNew     AccountStatus = "brand_new"
	StatusSubscribed   AccountStatus = "subscribed"
	StatusUnsubscribed AccountStatus = "unsubscribed"
)

// MaxRecentVerses bounds the anti-repetition window for Sabbath messages.
const MaxRecentVerses = 10

// Account is one subscriber, keyed by phone number.
type Account struct {
	ID                     string        `json:"id"`
	PhoneNumber            string        `json:"phone_number"`
	Status                 AccountStatus `json:"status"`
	ZipCode                string        `json:"zip_code,omitempty"`
	LastSabbathMessageTime time.Time     `json:"last_sabbath_message_time,omitempty"`
	CycleKey               string        `json:"cycle_key,omitempty"`
	RecentlySentVerses     []string      `json:"recently_sent_verses,omitempty"`
	CreatedAt              time.Time     `json:"created_at"`
	UpdatedAt              time.Time     `json:"updated_at"`
}

// RememberVerse appends a verse reference to the recently-sent window,
// evicting the oldest entry once the window is full.
func (a *Account) RememberVerse(ref string) {
	a.RecentlySentVerses = append(a.RecentlySentVerses, ref)
	if len(a.RecentlySentVerses) > MaxRecentVerses {
		a.RecentlySentVerses = a.RecentlySentVerses[len(a.RecentlySentVerses)-MaxRecentVerses:]
	}
}

// RecentlySent reports whether the verse reference is inside the window.
func (a *Account) RecentlySent(ref string) bool {
	for _, r := range a.RecentlySentVerses {
		if r == ref {
			return true
		}
	}
	return false
}

// EventType names the internal events flowing through the event queue.
// Values are serialized as-is into the message body, so they are part
// of the wire contract.
type EventType string

const (
	EventAccountCreated     EventType = "AccountCreated"
	EventAccountSubscribed  EventType = "AccountSubscribed"
	EventAccountCycle       EventType = "AccountCycle"
	EventSabbath            EventType = "Sabbath"
	EventZipCodeUpdated     EventType = "ZipCodeUpdated"
	EventGreetingsRequested EventType = "GreetingsRequested"
)

// Message is the envelope for everything that moves through the
// pipeline: inbound SMS, internal events, and outbound replies.
// EventType is empty for real user traffic.
type Message struct {
	ID           string    `json:"id"`
	Sender       string    `json:"sender"`
	Recipient    string    `json:"recipient,omitempty"`
	Body         string    `json:"body"`
	EventType    EventType `json:"event_type,omitempty"`
	Parameter    string    `json:"parameter,omitempty"`
	CreationTime time.Time `json:"creation_time"`
	ExternalID   string    `json:"external_id,omitempty"`
}

// NewInbound wraps a user SMS received from the transport provider.
func NewInbound(sender, recipient, body string, now time.Time) *Message {
	return &Message{
		ID:           uuid.NewString(),
		Sender:       sender,
		Recipient:    recipient,
		Body:         body,
		CreationTime: now,
	}
}

// NewEvent builds an internal event addressed at the account identified
// by phone. The body carries the event name plus the optional parameter
// so the router can match events with the same patterns it uses for
// inbound text.
func NewEvent(evt EventType, phone, parameter string, now time.Time) *Message {
	body := string(evt)
	if parameter != "" {
		body += " " + parameter
	}
	return &Message{
		ID:           uuid.NewString(),
		Sender:       phone,
		Body:         body,
		EventType:    evt,
		Parameter:    parameter,
		CreationTime: now,
	}
}

// NewReply builds an outbound SMS addressed at recipient.
func NewReply(recipient, body string, now time.Time) *Message {
	return &Message{
		ID:           uuid.NewString(),
		Recipient:    recipient,
		Body:         body,
		CreationTime: now,
	}
}

// IsEvent reports whether the message originated from the event queue
// rather than from a real user.
func (m *Message) IsEvent() bool { return m.EventType != "" }

// NormalizedBody is the body trimmed for matching.
func (m *Message) NormalizedBody() string { return strings.TrimSpace(m.Body) }
