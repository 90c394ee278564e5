package disambig

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/bastiangx/grammarserve/internal/utils"
	"github.com/bastiangx/grammarserve/pkg/model"
	"github.com/charmbracelet/log"
	"github.com/tchap/go-patricia/v2/patricia"
)

const (
	// MaxPhraseTokens bounds the number of positions a phrase may span.
	MaxPhraseTokens = 20
	// LowPriorityTag is only added to a single token that has no analysis,
	// and loses ties against other phrases when collapsing.
	LowPriorityTag = "NPCN000"
	// MultiwordChunk is the chunk tag carried by collapsed readings.
	MultiwordChunk = "multiword"
)

// ChunkerOptions configures a MultiWordChunker.
type ChunkerOptions struct {
	AllowFirstCapitalized bool
	AllowAllUppercase     bool
	// RemovePreviousTags collapses marked phrases into plain readings.
	RemovePreviousTags bool
}

type phraseEntry struct {
	lemma string
	tag   string
}

// MultiWordChunker tags fixed multi-word expressions read from a phrase list.
// Phrase keys are the surface tokens joined as in the text, with any
// whitespace run reduced to one space.
type MultiWordChunker struct {
	phrases *patricia.Trie
	opts    ChunkerOptions
	size    int
}

// LoadMultiWordChunker reads a phrase list file.
func LoadMultiWordChunker(path string, opts ChunkerOptions) (*MultiWordChunker, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open phrase list: %w", err)
	}
	defer f.Close()
	c, err := NewMultiWordChunker(f, opts)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

// NewMultiWordChunker parses "phrase<TAB>tag" lines. Blank lines and lines
// starting with '#' are ignored; any other malformed line is an error.
func NewMultiWordChunker(r io.Reader, opts ChunkerOptions) (*MultiWordChunker, error) {
	c := &MultiWordChunker{phrases: patricia.NewTrie(), opts: opts}
	sc := bufio.NewScanner(r)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		parts := strings.Split(line, "\t")
		if len(parts) != 2 {
			return nil, fmt.Errorf("line %d: expected two tab-separated fields, got %q", lineNo, line)
		}
		phrase := strings.Join(strings.Fields(parts[0]), " ")
		tag := strings.TrimSpace(parts[1])
		if phrase == "" || tag == "" {
			return nil, fmt.Errorf("line %d: empty phrase or tag", lineNo)
		}
		c.add(phrase, phraseEntry{lemma: phrase, tag: tag})
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("failed to read phrase list: %w", err)
	}
	log.Debugf("Loaded %d multi-word phrases", c.size)
	return c, nil
}

func (c *MultiWordChunker) add(phrase string, e phraseEntry) {
	keys := []string{phrase}
	if c.opts.AllowAllUppercase {
		keys = append(keys, strings.ToUpper(phrase))
	}
	if c.opts.AllowFirstCapitalized {
		keys = append(keys, utils.UppercaseFirst(phrase))
	}
	for i, k := range keys {
		// variants never shadow a phrase listed explicitly
		if i > 0 && k == phrase {
			continue
		}
		if c.phrases.Get(patricia.Prefix(k)) != nil {
			if i == 0 {
				c.phrases.Set(patricia.Prefix(k), e)
			}
			continue
		}
		c.phrases.Insert(patricia.Prefix(k), e)
		c.size++
	}
}

// Disambiguate implements Stage.
func (c *MultiWordChunker) Disambiguate(ctx context.Context, s *model.Sentence) *model.Sentence {
	out := s.Clone()
	if !c.mark(ctx, out) {
		return out
	}
	if c.opts.RemovePreviousTags {
		c.collapse(ctx, out)
	}
	return out
}

// mark adds start/end marker tokens for every phrase found in the sentence.
// It reports false when cancelled.
func (c *MultiWordChunker) mark(ctx context.Context, s *model.Sentence) bool {
	rs := s.Readings
	for i := 1; i < len(rs); i++ {
		if cancelled(ctx) {
			return false
		}
		if rs[i].IsWhitespace() || rs[i].Surface() == "" {
			continue
		}
		var key strings.Builder
		for j := i; j < len(rs) && j-i < MaxPhraseTokens; j++ {
			if rs[j].IsWhitespace() {
				if !rs[j-1].IsWhitespace() {
					key.WriteByte(' ')
				}
				continue
			}
			key.WriteString(rs[j].Surface())
			k := patricia.Prefix(key.String())
			if item := c.phrases.Get(k); item != nil {
				e := item.(phraseEntry)
				if i == j {
					if e.tag != LowPriorityTag || !rs[i].Recognized() {
						rs[i] = addToken(rs[i], model.NewToken(rs[i].Surface(), e.lemma, e.tag))
					}
				} else {
					rs[i] = addToken(rs[i], model.NewToken(rs[i].Surface(), e.lemma, "<"+e.tag+">"))
					rs[j] = addToken(rs[j], model.NewToken(rs[j].Surface(), e.lemma, "</"+e.tag+">"))
				}
			}
			if !c.phrases.MatchSubtree(k) {
				break
			}
		}
	}
	return true
}

// collapse replaces marked phrases with one reading per position: the phrase
// tag on the first token and the derived tag on the following ones.
func (c *MultiWordChunker) collapse(ctx context.Context, s *model.Sentence) {
	rs := s.Readings
	for i := 1; i < len(rs); i++ {
		if cancelled(ctx) {
			return
		}
		if rs[i].IsWhitespace() {
			continue
		}
		tag, lemma, end := longestPhrase(rs, i)
		if end < 0 {
			continue
		}
		rs[i] = model.NewReading(model.NewToken(rs[i].Surface(), lemma, tag)).WithChunkTag(MultiwordChunk)
		next := derivedTag(tag)
		for j := i + 1; j <= end; j++ {
			if rs[j].IsWhitespace() {
				continue
			}
			rs[j] = model.NewReading(model.NewToken(rs[j].Surface(), lemma, next)).WithChunkTag(MultiwordChunk)
		}
		i = end
	}
}

// longestPhrase resolves the start markers of rs[i] against the nearest
// matching end marker and picks the longest span. On equal spans a tag other
// than LowPriorityTag wins. end is -1 when nothing resolves.
func longestPhrase(rs []model.Reading, i int) (tag, lemma string, end int) {
	end = -1
	for _, t := range rs[i].Tokens {
		inner, ok := startMarker(t.Tag)
		if !ok {
			continue
		}
		closing := "</" + inner + ">"
		for j := i + 1; j < len(rs); j++ {
			if !rs[j].HasTagLemma(closing, t.Lemma) {
				continue
			}
			if j > end || (j == end && inner != LowPriorityTag && tag == LowPriorityTag) {
				tag, lemma, end = inner, t.Lemma, j
			}
			break
		}
	}
	return tag, lemma, end
}

func startMarker(tag string) (string, bool) {
	if len(tag) < 3 || tag[0] != '<' || tag[1] == '/' || tag[len(tag)-1] != '>' {
		return "", false
	}
	return tag[1 : len(tag)-1], true
}

// derivedTag is the tag given to the non-initial words of a collapsed phrase:
// a common noun becomes an adjective of the same gender and number.
func derivedTag(tag string) string {
	switch {
	case strings.HasPrefix(tag, "NC") && len(tag) >= 4:
		return "AQ0" + tag[2:4] + "0"
	case strings.HasPrefix(tag, "N "):
		return "J " + tag[2:]
	}
	return tag
}

// addToken appends t, replacing the placeholder token of an unknown reading.
func addToken(r model.Reading, t model.Token) model.Reading {
	if !r.Recognized() {
		return r.WithTokens([]model.Token{t})
	}
	for _, old := range r.Tokens {
		if old == t {
			return r
		}
	}
	tokens := make([]model.Token, len(r.Tokens), len(r.Tokens)+1)
	copy(tokens, r.Tokens)
	return r.WithTokens(append(tokens, t))
}
