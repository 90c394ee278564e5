package model

import (
	"fmt"
	"strings"
)

// Span locates a reading in the sentence text, in bytes.
type Span struct {
	Start            int
	Len              int
	WhitespaceBefore bool
}

// End is the exclusive end offset.
func (s Span) End() int { return s.Start + s.Len }

// Sentence is the positional sequence of readings for one sentence.
// Readings[0] is always the sentinel with an empty span at offset 0.
type Sentence struct {
	Text     string
	Readings []Reading
	Spans    []Span
}

// NewSentence builds a sentence from the surface tokens of text and their readings.
// readings must be aligned with tokens; offsets are accumulated from token lengths.
func NewSentence(text string, tokens []string, readings []Reading) (*Sentence, error) {
	if len(tokens) != len(readings) {
		return nil, fmt.Errorf("token/reading count mismatch: %d != %d", len(tokens), len(readings))
	}
	s := &Sentence{
		Text:     text,
		Readings: make([]Reading, 0, len(readings)+1),
		Spans:    make([]Span, 0, len(readings)+1),
	}
	s.Readings = append(s.Readings, SentinelReading())
	s.Spans = append(s.Spans, Span{})

	offset := 0
	prevSpace := false
	for i, tok := range tokens {
		s.Readings = append(s.Readings, readings[i])
		s.Spans = append(s.Spans, Span{Start: offset, Len: len(tok), WhitespaceBefore: prevSpace})
		offset += len(tok)
		prevSpace = tok != "" && strings.TrimSpace(tok) == ""
	}
	return s, s.Validate()
}

// Len is the number of positions, sentinel included.
func (s *Sentence) Len() int { return len(s.Readings) }

// Clone copies the slot slices so the caller owns the returned sequence.
// Token slices are shared; stages replace them rather than editing them.
func (s *Sentence) Clone() *Sentence {
	out := &Sentence{
		Text:     s.Text,
		Readings: make([]Reading, len(s.Readings)),
		Spans:    make([]Span, len(s.Spans)),
	}
	copy(out.Readings, s.Readings)
	copy(out.Spans, s.Spans)
	return out
}

// NonWhitespace returns the indexes of readings that are neither whitespace nor the sentinel.
func (s *Sentence) NonWhitespace() []int {
	idx := make([]int, 0, len(s.Readings))
	for i, r := range s.Readings {
		if i == 0 || r.IsWhitespace() {
			continue
		}
		idx = append(idx, i)
	}
	return idx
}

// Validate checks that the spans partition the text with no gaps or overlaps.
func (s *Sentence) Validate() error {
	if len(s.Readings) != len(s.Spans) {
		return fmt.Errorf("readings/spans mismatch: %d != %d", len(s.Readings), len(s.Spans))
	}
	if len(s.Readings) == 0 || !s.Readings[0].IsSentenceStart() {
		return fmt.Errorf("sentence does not start with the sentinel reading")
	}
	pos := 0
	for i, sp := range s.Spans[1:] {
		if sp.Start != pos {
			return fmt.Errorf("span %d starts at %d, expected %d", i+1, sp.Start, pos)
		}
		pos = sp.End()
	}
	if pos != len(s.Text) {
		return fmt.Errorf("spans cover %d bytes of %d", pos, len(s.Text))
	}
	return nil
}

func (s *Sentence) String() string {
	var b strings.Builder
	for i, r := range s.Readings {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(r.String())
	}
	return b.String()
}
