// Package model holds the analysis types shared by every stage of the pipeline:
// tokens, readings and sentences.
package model

import (
	"regexp"
	"strings"
)

// SentenceStart is the reserved tag carried by the sentinel reading at the head of every sentence.
const SentenceStart = "SENT_START"

// Token is one candidate analysis of a surface form.
// The zero values of Lemma and Tag are only meaningful when HasLemma/HasTag are set.
type Token struct {
	Form     string
	Lemma    string
	Tag      string
	HasLemma bool
	HasTag   bool
}

// NewToken returns a fully analyzed token.
func NewToken(form, lemma, tag string) Token {
	return Token{Form: form, Lemma: lemma, Tag: tag, HasLemma: true, HasTag: true}
}

// UnknownToken returns a token for a word with no analysis.
func UnknownToken(form string) Token {
	return Token{Form: form}
}

// Unknown reports whether the token carries neither lemma nor tag.
func (t Token) Unknown() bool {
	return !t.HasLemma && !t.HasTag
}

func (t Token) String() string {
	if t.Unknown() {
		return t.Form + "/null"
	}
	return t.Form + "/" + t.Lemma + "/" + t.Tag
}

// Reading is the ordered candidate list for one input position.
// Order is discovery order, not probability.
type Reading struct {
	Tokens    []Token
	ChunkTags []string
	Immunized bool
}

// NewReading builds a reading from one or more tokens.
func NewReading(tokens ...Token) Reading {
	return Reading{Tokens: tokens}
}

// UnknownReading is the single-token reading of an unrecognized word.
func UnknownReading(form string) Reading {
	return Reading{Tokens: []Token{UnknownToken(form)}}
}

// SentinelReading is the sentence-start marker reading.
func SentinelReading() Reading {
	return Reading{Tokens: []Token{{Tag: SentenceStart, HasTag: true}}}
}

// Surface returns the surface text of the position.
func (r Reading) Surface() string {
	if len(r.Tokens) == 0 {
		return ""
	}
	return r.Tokens[0].Form
}

// IsSentenceStart reports whether r is the sentinel.
func (r Reading) IsSentenceStart() bool {
	return r.HasTag(SentenceStart)
}

// IsWhitespace reports whether the surface is non-empty whitespace only.
func (r Reading) IsWhitespace() bool {
	s := r.Surface()
	return s != "" && strings.TrimSpace(s) == ""
}

// HasTag reports whether any token carries tag.
func (r Reading) HasTag(tag string) bool {
	for _, t := range r.Tokens {
		if t.HasTag && t.Tag == tag {
			return true
		}
	}
	return false
}

// HasTagLemma reports whether a single token carries both tag and lemma.
func (r Reading) HasTagLemma(tag, lemma string) bool {
	for _, t := range r.Tokens {
		if t.HasTag && t.Tag == tag && t.HasLemma && t.Lemma == lemma {
			return true
		}
	}
	return false
}

// MatchTag reports whether any token's tag matches re.
func (r Reading) MatchTag(re *regexp.Regexp) bool {
	for _, t := range r.Tokens {
		if t.HasTag && re.MatchString(t.Tag) {
			return true
		}
	}
	return false
}

// Recognized reports whether at least one token has an analysis.
func (r Reading) Recognized() bool {
	for _, t := range r.Tokens {
		if !t.Unknown() {
			return true
		}
	}
	return false
}

// Equal compares token lists; chunk tags and immunization are ignored.
func (r Reading) Equal(o Reading) bool {
	if len(r.Tokens) != len(o.Tokens) {
		return false
	}
	for i := range r.Tokens {
		if r.Tokens[i] != o.Tokens[i] {
			return false
		}
	}
	return true
}

// WithTokens returns a copy of r with its token list replaced.
func (r Reading) WithTokens(tokens []Token) Reading {
	r.Tokens = tokens
	return r
}

// WithChunkTag returns a copy of r carrying an extra chunk tag.
func (r Reading) WithChunkTag(tag string) Reading {
	for _, c := range r.ChunkTags {
		if c == tag {
			return r
		}
	}
	tags := make([]string, len(r.ChunkTags), len(r.ChunkTags)+1)
	copy(tags, r.ChunkTags)
	r.ChunkTags = append(tags, tag)
	return r
}

func (r Reading) String() string {
	parts := make([]string, len(r.Tokens))
	for i, t := range r.Tokens {
		parts[i] = t.String()
	}
	return "[" + strings.Join(parts, ", ") + "]"
}
