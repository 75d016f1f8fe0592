package amqp

import (
	"encoding/json"
	"time"

	"snstotal/internal/core"
)

// CardOutcomeMessage is the wire form of one card's outcome.
type CardOutcomeMessage struct {
	RunID         string    `json:"run_id"`
	CardIndex     int       `json:"card_index"`
	State         string    `json:"state"`
	Direct        bool      `json:"direct"`
	TotalText     string    `json:"total_text,omitempty"`
	Currency      string    `json:"currency,omitempty"`
	Total         string    `json:"total,omitempty"`
	NotSubscribed []ItemRef `json:"not_subscribed"`
	Unavailable   []ItemRef `json:"unavailable"`
	Error         string    `json:"error,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
}

type ItemRef struct {
	Name string `json:"name"`
	Link string `json:"link"`
}

// NewCardOutcomeMessage converts an outcome for publishing.
func NewCardOutcomeMessage(runID string, o core.CardOutcome) *CardOutcomeMessage {
	msg := &CardOutcomeMessage{
		RunID:         runID,
		CardIndex:     o.Index,
		State:         o.State.String(),
		NotSubscribed: []ItemRef{},
		Unavailable:   []ItemRef{},
		Timestamp:     time.Now().UTC(),
	}
	if o.Err != nil {
		msg.Error = o.Err.Error()
	}
	if t := o.Total; t != nil && o.State == core.CardComputed {
		msg.Direct = t.Direct
		msg.TotalText = t.TotalText
		msg.Currency = t.Currency
		msg.Total = t.Value.StringFixed(2)
		msg.NotSubscribed = refs(t.NotSubscribed)
		msg.Unavailable = refs(t.Unavailable)
	}
	return msg
}

func refs(in []core.ItemRef) []ItemRef {
	out := make([]ItemRef, 0, len(in))
	for _, r := range in {
		out = append(out, ItemRef{Name: r.Name, Link: r.Link})
	}
	return out
}

// ToJSON converts the message to JSON bytes
func (m *CardOutcomeMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// CardOutcomeMessageFromJSON decodes a published message.
func CardOutcomeMessageFromJSON(data []byte) (*CardOutcomeMessage, error) {
	var msg CardOutcomeMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
