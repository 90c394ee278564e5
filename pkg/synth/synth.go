// Package synth turns a lemma and a target tag back into inflected forms.
package synth

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/bastiangx/grammarserve/internal/logger"
	"github.com/bastiangx/grammarserve/internal/utils"
	"github.com/bastiangx/grammarserve/pkg/dictionary"
	"github.com/charmbracelet/log"
)

// Synthesizer produces surface forms for a lemma.
type Synthesizer interface {
	Synthesize(lemma, tag string) ([]string, error)
	SynthesizePattern(lemma, pattern string) ([]string, error)
	SynthesizeAll(lemma string, patterns []string) ([]string, error)
}

// Options configures a DictSynthesizer. Every field is optional.
type Options struct {
	Determiner Determiner
	Negation   *Negation
	Codec      *DiacriticCodec
}

// DictSynthesizer synthesizes through the reverse index of a dictionary.
type DictSynthesizer struct {
	dict   *dictionary.Handle
	opts   Options
	logger *log.Logger
}

var _ Synthesizer = (*DictSynthesizer)(nil)

// New creates a synthesizer over a lazily loaded dictionary.
func New(dict *dictionary.Handle, opts Options) *DictSynthesizer {
	return &DictSynthesizer{dict: dict, opts: opts, logger: logger.New("synth")}
}

// Synthesize returns the forms of lemma with exactly tag. Forms of different
// entries are all returned, duplicates included.
func (s *DictSynthesizer) Synthesize(lemma, tag string) ([]string, error) {
	if s.opts.Determiner != nil {
		if req, ok := s.opts.Determiner.Parse(tag); ok {
			return s.withDeterminer(lemma, req)
		}
	}
	d, err := s.dict.Get()
	if err != nil {
		return nil, fmt.Errorf("synth: %w", err)
	}
	forms := s.lookup(d, lemma, tag)
	if len(forms) == 0 && s.opts.Negation != nil {
		if aff, ok := s.opts.Negation.affirmative(tag); ok {
			forms = s.opts.Negation.prefix(s.lookup(d, lemma, aff))
		}
	}
	return forms, nil
}

// SynthesizePattern matches pattern, anchored, against the tag inventory and
// returns the union of the forms of every matching tag without duplicates.
// An invalid pattern is logged and yields no forms.
func (s *DictSynthesizer) SynthesizePattern(lemma, pattern string) ([]string, error) {
	re, err := compileTagPattern(pattern)
	if err != nil {
		s.logger.Warnf("Skipping invalid tag pattern %q for %q: %v", pattern, lemma, err)
		return nil, nil
	}
	d, err := s.dict.Get()
	if err != nil {
		return nil, fmt.Errorf("synth: %w", err)
	}
	inventory, err := s.dict.Tags()
	if err != nil {
		return nil, fmt.Errorf("synth: tag inventory: %w", err)
	}

	var out []string
	add := func(forms []string) { out = append(out, forms...) }
	for _, tag := range inventory {
		if re.MatchString(tag) {
			add(s.lookup(d, lemma, tag))
		}
	}
	if neg := s.opts.Negation; neg != nil {
		if affPattern, ok := neg.affirmative(pattern); ok {
			if affRe, err := compileTagPattern(affPattern); err == nil {
				for _, tag := range inventory {
					if affRe.MatchString(tag) && !neg.excluded(tag) {
						add(neg.prefix(s.lookup(d, lemma, tag)))
					}
				}
			}
		}
	}
	return utils.Unique(out), nil
}

// SynthesizeAll runs several patterns and unions the results. Invalid
// patterns are skipped; the others still contribute.
func (s *DictSynthesizer) SynthesizeAll(lemma string, patterns []string) ([]string, error) {
	var out []string
	for _, p := range patterns {
		forms, err := s.SynthesizePattern(lemma, p)
		if err != nil {
			return nil, err
		}
		out = append(out, forms...)
	}
	return utils.Unique(out), nil
}

// lookup is the reverse lookup with the diacritic codec applied on both sides.
func (s *DictSynthesizer) lookup(d *dictionary.Dictionary, lemma, tag string) []string {
	codec := s.opts.Codec
	if codec == nil {
		forms := d.ReverseLookup(lemma, tag)
		out := make([]string, len(forms))
		copy(out, forms)
		return out
	}
	forms := d.ReverseLookup(codec.Encode(lemma), tag)
	out := make([]string, len(forms))
	for i, f := range forms {
		out[i] = codec.Decode(f)
	}
	return out
}

func (s *DictSynthesizer) withDeterminer(lemma string, req DeterminerRequest) ([]string, error) {
	type formTag struct{ form, tag string }
	var bare []formTag
	switch {
	case req.Base == "":
		bare = append(bare, formTag{lemma, ""})
	case req.Pattern:
		re, err := compileTagPattern(req.Base)
		if err != nil {
			s.logger.Warnf("Skipping invalid determiner pattern %q: %v", req.Base, err)
			return nil, nil
		}
		d, err := s.dict.Get()
		if err != nil {
			return nil, fmt.Errorf("synth: %w", err)
		}
		// the lemma's own tags are enough here, no need to walk the inventory
		for _, tag := range d.LemmaTags(s.encode(lemma)) {
			if !re.MatchString(tag) {
				continue
			}
			for _, f := range s.lookup(d, lemma, tag) {
				bare = append(bare, formTag{f, tag})
			}
		}
	default:
		forms, err := s.Synthesize(lemma, req.Base)
		if err != nil {
			return nil, err
		}
		for _, f := range forms {
			bare = append(bare, formTag{f, req.Base})
		}
	}

	var out []string
	for _, b := range bare {
		out = append(out, s.opts.Determiner.Decorate(b.form, b.tag, req)...)
	}
	return utils.Unique(out), nil
}

func (s *DictSynthesizer) encode(lemma string) string {
	if s.opts.Codec == nil {
		return lemma
	}
	return s.opts.Codec.Encode(lemma)
}

func compileTagPattern(pattern string) (*regexp.Regexp, error) {
	if strings.TrimSpace(pattern) == "" {
		return nil, fmt.Errorf("empty pattern")
	}
	return regexp.Compile("^(?:" + pattern + ")$")
}
