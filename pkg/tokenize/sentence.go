package tokenize

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// SentenceOptions configures sentence splitting.
type SentenceOptions struct {
	// SingleLineBreakIsParagraph makes one line break end a sentence.
	// Two consecutive line breaks always do.
	SingleLineBreakIsParagraph bool
	// Abbreviations never end a sentence. The trailing period is optional.
	Abbreviations []string
}

// SentenceTokenizer splits text into sentences. Trailing whitespace stays with
// the sentence it follows.
type SentenceTokenizer struct {
	singleLineBreak bool
	abbreviations   map[string]bool
}

// NewSentenceTokenizer builds a sentence tokenizer.
func NewSentenceTokenizer(opts SentenceOptions) *SentenceTokenizer {
	abbr := make(map[string]bool, len(opts.Abbreviations))
	for _, a := range opts.Abbreviations {
		a = strings.ToLower(strings.TrimSuffix(strings.TrimSpace(a), "."))
		if a != "" {
			abbr[a] = true
		}
	}
	return &SentenceTokenizer{singleLineBreak: opts.SingleLineBreakIsParagraph, abbreviations: abbr}
}

// Tokenize implements Tokenizer.
func (st *SentenceTokenizer) Tokenize(text string) []string {
	var sentences []string
	start := 0
	i := 0
	for i < len(text) {
		r, size := utf8.DecodeRuneInString(text[i:])
		switch {
		case r == '\n' || r == '\r':
			end, breaks := scanLineBreaks(text, i)
			if breaks >= 2 || st.singleLineBreak {
				sentences = append(sentences, text[start:end])
				start = end
			}
			i = end
			continue
		case isTerminal(r):
			punctStart := i
			j := i
			for j < len(text) {
				r2, s2 := utf8.DecodeRuneInString(text[j:])
				if !isTerminal(r2) {
					break
				}
				j += s2
			}
			for j < len(text) {
				r2, s2 := utf8.DecodeRuneInString(text[j:])
				if !isClosing(r2) {
					break
				}
				j += s2
			}
			if j < len(text) {
				next, _ := utf8.DecodeRuneInString(text[j:])
				if !unicode.IsSpace(next) {
					i = j
					continue
				}
			}
			if st.isBoundary(text, punctStart, j) {
				end := skipSpaces(text, j)
				sentences = append(sentences, text[start:end])
				start = end
				i = end
				continue
			}
			i = j
			continue
		}
		i += size
	}
	if start < len(text) {
		sentences = append(sentences, text[start:])
	}
	return sentences
}

// isBoundary decides whether the terminal run text[punctStart:punctEnd] ends a sentence.
func (st *SentenceTokenizer) isBoundary(text string, punctStart, punctEnd int) bool {
	next := nextWord(text, punctEnd)
	if next == "" {
		return true
	}
	nr, _ := utf8.DecodeRuneInString(next)
	if unicode.IsLower(nr) {
		return false
	}

	punct := strings.TrimRightFunc(text[punctStart:punctEnd], isClosing)
	if punct != "." {
		return true
	}

	prev := previousWord(text, punctStart)
	if prev == "" {
		return true
	}
	if st.abbreviations[strings.ToLower(prev)] {
		return false
	}
	if utf8.RuneCountInString(prev) == 1 {
		pr, _ := utf8.DecodeRuneInString(prev)
		if unicode.IsUpper(pr) {
			return false
		}
	}
	// ordinals and dates: "5. května", "12. 3. 2020"
	if isDigits(prev) && unicode.IsDigit(nr) {
		return false
	}
	return true
}

func scanLineBreaks(text string, i int) (end, breaks int) {
	j := i
	for j < len(text) {
		switch text[j] {
		case '\n':
			breaks++
			j++
		case '\r':
			if j+1 < len(text) && text[j+1] == '\n' {
				j++
				continue
			}
			breaks++
			j++
		case ' ', '\t':
			j++
		default:
			return j, breaks
		}
	}
	return j, breaks
}

func skipSpaces(text string, i int) int {
	for i < len(text) {
		r, size := utf8.DecodeRuneInString(text[i:])
		if !unicode.IsSpace(r) {
			break
		}
		i += size
	}
	return i
}

// previousWord returns the non-space run ending at byte offset end.
func previousWord(text string, end int) string {
	start := end
	for start > 0 {
		r, size := utf8.DecodeLastRuneInString(text[:start])
		if unicode.IsSpace(r) || r == '(' || r == '"' {
			break
		}
		start -= size
	}
	return text[start:end]
}

// nextWord returns the text after the whitespace following offset i, up to the next space.
func nextWord(text string, i int) string {
	i = skipSpaces(text, i)
	j := i
	for j < len(text) {
		r, size := utf8.DecodeRuneInString(text[j:])
		if unicode.IsSpace(r) {
			break
		}
		j += size
	}
	return strings.TrimLeftFunc(text[i:j], func(r rune) bool {
		return isClosing(r) || r == '(' || r == '„' || r == '«' || r == '¿' || r == '¡'
	})
}

func isTerminal(r rune) bool {
	return r == '.' || r == '!' || r == '?' || r == '…'
}

func isClosing(r rune) bool {
	switch r {
	case '"', '\'', ')', ']', '»', '”', '’', '“':
		return true
	}
	return false
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}
