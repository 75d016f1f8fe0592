package render

import (
	"context"
	"encoding/json"
	"io"
	"sync"

	"snstotal/internal/core"
)

// CardView is the JSON form of one card outcome. A failed card carries only
// its index, state and error.
type CardView struct {
	Index         int            `json:"index"`
	State         string         `json:"state"`
	Direct        bool           `json:"direct"`
	TotalText     string         `json:"total_text,omitempty"`
	Currency      string         `json:"currency,omitempty"`
	Total         string         `json:"total,omitempty"`
	NotSubscribed []core.ItemRef `json:"not_subscribed,omitempty"`
	Unavailable   []core.ItemRef `json:"unavailable,omitempty"`
	Error         string         `json:"error,omitempty"`
}

func NewCardView(o core.CardOutcome) CardView {
	v := CardView{Index: o.Index, State: o.State.String()}
	if o.Err != nil {
		v.Error = o.Err.Error()
	}
	if t := o.Total; t != nil && o.State == core.CardComputed {
		v.Direct = t.Direct
		v.TotalText = t.TotalText
		v.Currency = t.Currency
		v.Total = t.Value.StringFixed(2)
		v.NotSubscribed = t.NotSubscribed
		v.Unavailable = t.Unavailable
	}
	return v
}

// JSONSink writes one JSON object per card and line.
type JSONSink struct {
	mu  sync.Mutex
	enc *json.Encoder
}

func NewJSONSink(w io.Writer) *JSONSink {
	return &JSONSink{enc: json.NewEncoder(w)}
}

type jsonLine struct {
	RunID string `json:"run_id"`
	CardView
}

func (s *JSONSink) Deliver(_ context.Context, runID string, outcome core.CardOutcome) error {
	line := jsonLine{RunID: runID, CardView: NewCardView(outcome)}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.enc.Encode(line)
}
