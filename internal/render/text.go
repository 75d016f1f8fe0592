// Package render writes card outcomes for people to read.
package render

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"snstotal/internal/core"
)

// TextSink writes one block per card. Blocks from concurrent cards never
// interleave.
type TextSink struct {
	mu sync.Mutex
	w  io.Writer
}

func NewTextSink(w io.Writer) *TextSink {
	return &TextSink{w: w}
}

func (s *TextSink) Deliver(_ context.Context, _ string, outcome core.CardOutcome) error {
	block := Format(outcome)
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := io.WriteString(s.w, block)
	return err
}

// Format renders a card outcome as text.
func Format(outcome core.CardOutcome) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Card %d\n", outcome.Index+1)

	switch outcome.State {
	case core.CardPending:
		b.WriteString("  Total est: pending\n")
	case core.CardFailed:
		fmt.Fprintf(&b, "  Total est: unavailable (%v)\n", outcome.Err)
	case core.CardComputed:
		t := outcome.Total
		if t.Direct {
			fmt.Fprintf(&b, "  Total: %s\n", t.TotalText)
		} else {
			fmt.Fprintf(&b, "  Total est: %s\n", t.TotalText)
		}
		writeRefs(&b, "Not subscribed", t.NotSubscribed)
		writeRefs(&b, "Potential unavailable", t.Unavailable)
	}
	return b.String()
}

func writeRefs(b *strings.Builder, label string, refs []core.ItemRef) {
	if len(refs) == 0 {
		return
	}
	fmt.Fprintf(b, "  %s:\n", label)
	for _, r := range refs {
		fmt.Fprintf(b, "    %s <%s>\n", r.Name, r.Link)
	}
}
