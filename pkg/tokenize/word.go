package tokenize

import (
	"fmt"
	"regexp"
	"strings"
	"sync"
	"unicode"
	"unicode/utf8"
)

// DefaultDelimiters are split off as single-rune tokens, in addition to every space rune.
const DefaultDelimiters = ".,;:!?()[]{}<>\"«»„“”‚…¿¡/\\|*+=&%$§#@~^`"

var (
	emailPattern = regexp.MustCompile(`[\p{L}\p{N}._%+-]+@[\p{L}\p{N}-]+(?:\.[\p{L}\p{N}-]+)*\.\p{L}{2,}`)
	urlPattern   = regexp.MustCompile(`(?i)(?:(?:https?|ftp)://|www\.)[^\s<>"]*[^\s<>".,;:!?)\]'"]` +
		`|\b[\p{L}\p{N}-]+(?:\.[\p{L}\p{N}-]+)*\.(?:com|org|net|edu|gov|io|info|eu|de|fr|es|it|pl|ca|uk|pt|nl)/[^\s<>"]*[^\s<>".,;:!?)\]'"]`)
)

// CliticRule splits a word matching Pattern into its capture groups.
// The pattern must match the whole word and the groups must concatenate back to it.
type CliticRule struct {
	Pattern *regexp.Regexp
}

// NewCliticRule compiles a clitic pattern. The pattern is anchored if it is not already.
func NewCliticRule(pattern string) (CliticRule, error) {
	if !strings.HasPrefix(pattern, "^") && !strings.HasPrefix(pattern, "(?i)^") {
		pattern = "^(?:" + pattern + ")$"
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return CliticRule{}, fmt.Errorf("invalid clitic pattern %q: %w", pattern, err)
	}
	if re.NumSubexp() < 2 {
		return CliticRule{}, fmt.Errorf("clitic pattern %q needs at least two groups", pattern)
	}
	return CliticRule{Pattern: re}, nil
}

// split returns the non-empty groups when the rule applies to word.
func (c CliticRule) split(word string) ([]string, bool) {
	m := c.Pattern.FindStringSubmatch(word)
	if m == nil || m[0] != word {
		return nil, false
	}
	parts := make([]string, 0, len(m)-1)
	for _, g := range m[1:] {
		if g != "" {
			parts = append(parts, g)
		}
	}
	if len(parts) < 2 || strings.Join(parts, "") != word {
		return nil, false
	}
	return parts, true
}

// EnglishClitics covers negative and auxiliary contractions.
func EnglishClitics() []CliticRule {
	return mustClitics(
		`(?i)^(.+)(n['’]t)$`,
		`(?i)^(.+)(['’](?:ll|re|ve|s|d|m))$`,
	)
}

// RomanceClitics covers elided articles and pronouns before a word (l'home, d'aigua, qu'il).
func RomanceClitics() []CliticRule {
	return mustClitics(
		`(?i)^([ldjmnst]['’]|qu['’])(\p{L}.*)$`,
	)
}

func mustClitics(patterns ...string) []CliticRule {
	rules := make([]CliticRule, 0, len(patterns))
	for _, p := range patterns {
		r, err := NewCliticRule(p)
		if err != nil {
			panic(err)
		}
		rules = append(rules, r)
	}
	return rules
}

// WordOptions configures word splitting.
type WordOptions struct {
	// Delimiters replaces DefaultDelimiters when non-empty.
	Delimiters string
	Clitics    []CliticRule
	// Lexicon enables compound splitting: a hyphenated word is split only when
	// the lexicon does not know the whole compound.
	Lexicon Lexicon
}

// WordTokenizer splits a sentence into words, punctuation and whitespace.
type WordTokenizer struct {
	delimiters map[rune]bool
	clitics    []CliticRule
	lexicon    Lexicon
	// lexicon implementations may keep scratch state, so lookups are serialized
	mu sync.Mutex
}

// NewWordTokenizer builds a word tokenizer.
func NewWordTokenizer(opts WordOptions) *WordTokenizer {
	delims := opts.Delimiters
	if delims == "" {
		delims = DefaultDelimiters
	}
	set := make(map[rune]bool, len(delims))
	for _, r := range delims {
		set[r] = true
	}
	return &WordTokenizer{delimiters: set, clitics: opts.Clitics, lexicon: opts.Lexicon}
}

type piece struct {
	text  string
	start int
}

// Tokenize implements Tokenizer.
func (wt *WordTokenizer) Tokenize(text string) []string {
	pieces := wt.split(text)
	pieces = joinSpans(pieces, text, emailPattern)
	pieces = joinSpans(pieces, text, urlPattern)

	protected := protectedSpans(text)
	out := make([]string, 0, len(pieces))
	for _, p := range pieces {
		if isProtected(p, protected) || !isWordPiece(p.text) {
			out = append(out, p.text)
			continue
		}
		out = append(out, wt.refine(p.text)...)
	}
	return out
}

// split performs the generic delimiter split, keeping delimiters as tokens.
// A period or comma between two digits stays inside the number.
func (wt *WordTokenizer) split(text string) []piece {
	var pieces []piece
	wordStart := -1
	flush := func(end int) {
		if wordStart >= 0 && end > wordStart {
			pieces = append(pieces, piece{text: text[wordStart:end], start: wordStart})
		}
		wordStart = -1
	}

	prev := rune(-1)
	for i := 0; i < len(text); {
		r, size := utf8.DecodeRuneInString(text[i:])
		isDelim := unicode.IsSpace(r) || wt.delimiters[r]
		if isDelim && (r == '.' || r == ',') && unicode.IsDigit(prev) {
			if next, _ := utf8.DecodeRuneInString(text[i+size:]); i+size < len(text) && unicode.IsDigit(next) {
				isDelim = false
			}
		}
		if isDelim {
			flush(i)
			pieces = append(pieces, piece{text: text[i : i+size], start: i})
		} else if wordStart < 0 {
			wordStart = i
		}
		prev = r
		i += size
	}
	flush(len(text))
	return pieces
}

// joinSpans merges pieces covered by a match of re into one piece.
func joinSpans(pieces []piece, text string, re *regexp.Regexp) []piece {
	matches := re.FindAllStringIndex(text, -1)
	if len(matches) == 0 {
		return pieces
	}
	out := make([]piece, 0, len(pieces))
	m := 0
	for i := 0; i < len(pieces); {
		p := pieces[i]
		for m < len(matches) && matches[m][1] <= p.start {
			m++
		}
		if m < len(matches) && p.start == matches[m][0] {
			end := matches[m][1]
			j := i
			for j < len(pieces) && pieces[j].start < end {
				j++
			}
			last := pieces[j-1]
			out = append(out, piece{text: text[p.start : last.start+len(last.text)], start: p.start})
			i = j
			continue
		}
		out = append(out, p)
		i++
	}
	return out
}

// protectedSpans are e-mail and URL matches; their tokens are never refined.
func protectedSpans(text string) [][]int {
	spans := emailPattern.FindAllStringIndex(text, -1)
	return append(spans, urlPattern.FindAllStringIndex(text, -1)...)
}

func isProtected(p piece, spans [][]int) bool {
	for _, s := range spans {
		if p.start == s[0] && len(p.text) >= s[1]-s[0] {
			return true
		}
	}
	return false
}

func isWordPiece(s string) bool {
	r, _ := utf8.DecodeRuneInString(s)
	return !unicode.IsSpace(r)
}

// refine splits edge hyphens and apostrophes, clitics and unknown compounds.
func (wt *WordTokenizer) refine(word string) []string {
	var lead, trail []string
	for len(word) > 0 {
		r, size := utf8.DecodeRuneInString(word)
		if !isEdgeMark(r) || size == len(word) {
			break
		}
		lead = append(lead, word[:size])
		word = word[size:]
	}
	for len(word) > 0 {
		r, size := utf8.DecodeLastRuneInString(word)
		if !isEdgeMark(r) || size == len(word) {
			break
		}
		trail = append([]string{word[len(word)-size:]}, trail...)
		word = word[:len(word)-size]
	}

	out := append(lead, wt.splitCore(word)...)
	return append(out, trail...)
}

func (wt *WordTokenizer) splitCore(word string) []string {
	for _, c := range wt.clitics {
		if parts, ok := c.split(word); ok {
			return parts
		}
	}
	if wt.lexicon != nil && strings.Contains(word, "-") && !isEdgeMark(firstRune(word)) {
		wt.mu.Lock()
		known := wt.lexicon.Known(word)
		wt.mu.Unlock()
		if !known {
			return splitKeep(word, '-')
		}
	}
	return []string{word}
}

// splitKeep splits s around sep, keeping each separator as its own token.
func splitKeep(s string, sep rune) []string {
	var out []string
	start := 0
	for i, r := range s {
		if r != sep {
			continue
		}
		if i > start {
			out = append(out, s[start:i])
		}
		out = append(out, string(sep))
		start = i + utf8.RuneLen(sep)
	}
	if start < len(s) {
		out = append(out, s[start:])
	}
	return out
}

func isEdgeMark(r rune) bool {
	return r == '-' || r == '\'' || r == '’' || r == '‐'
}

func firstRune(s string) rune {
	r, _ := utf8.DecodeRuneInString(s)
	return r
}
