package disambig

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"

	"github.com/bastiangx/grammarserve/pkg/model"
	"github.com/charmbracelet/log"
	"gopkg.in/yaml.v3"
)

// Action is what a matching rule does to the marked readings.
type Action string

const (
	// ActionFilter keeps the tokens whose tag matches the rule postag.
	// A reading without any such token is left alone.
	ActionFilter Action = "filter"
	// ActionRemove drops the tokens whose tag matches the rule postag,
	// unless that would leave the reading empty.
	ActionRemove Action = "remove"
	// ActionReplace reduces the reading to one token carrying the rule postag.
	ActionReplace Action = "replace"
	// ActionAdd appends a token with the rule postag.
	ActionAdd Action = "add"
	// ActionFilterAll filters every marked reading by its own pattern element.
	ActionFilterAll Action = "filterall"
	// ActionImmunize protects the readings from later rules.
	ActionImmunize Action = "immunize"
)

// ElementSpec is one pattern element as written in a rule file.
// Empty fields match anything.
type ElementSpec struct {
	Token  string `yaml:"token,omitempty"`
	Lemma  string `yaml:"lemma,omitempty"`
	Postag string `yaml:"postag,omitempty"`
	Negate bool   `yaml:"negate,omitempty"`
}

// RuleSpec is one rule as written in a rule file.
type RuleSpec struct {
	ID       string        `yaml:"id"`
	Pattern  []ElementSpec `yaml:"pattern"`
	MarkFrom *int          `yaml:"mark_from,omitempty"`
	MarkTo   *int          `yaml:"mark_to,omitempty"`
	Action   Action        `yaml:"action"`
	Postag   string        `yaml:"postag,omitempty"`
	Lemma    string        `yaml:"lemma,omitempty"`
	Rescan   bool          `yaml:"rescan,omitempty"`
}

// RuleFile is the top-level document of a rule file.
type RuleFile struct {
	Rules []RuleSpec `yaml:"rules"`
}

type element struct {
	token, lemma, postag *regexp.Regexp
	negate               bool
}

// Rule is a compiled disambiguation rule.
type Rule struct {
	ID       string
	elements []element
	markFrom int
	markTo   int
	action   Action
	postag   string
	postagRe *regexp.Regexp
	lemma    string
	rescan   bool
}

// RuleDisambiguator applies pattern rules in order.
type RuleDisambiguator struct {
	rules []*Rule
}

// LoadRules reads and compiles a YAML rule file.
func LoadRules(path string) ([]*Rule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read rule file: %w", err)
	}
	rules, err := ParseRules(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return rules, nil
}

// ParseRules decodes and compiles a YAML rule document. Unknown fields are rejected.
func ParseRules(r io.Reader) ([]*Rule, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	var f RuleFile
	if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRule, err)
	}
	return CompileRules(f.Rules)
}

// CompileRules validates and compiles rule specs, failing on the first bad rule.
func CompileRules(specs []RuleSpec) ([]*Rule, error) {
	rules := make([]*Rule, 0, len(specs))
	for i, spec := range specs {
		r, err := compileRule(spec)
		if err != nil {
			name := spec.ID
			if name == "" {
				name = fmt.Sprintf("#%d", i+1)
			}
			return nil, fmt.Errorf("rule %s: %w", name, err)
		}
		rules = append(rules, r)
	}
	log.Debugf("Compiled %d disambiguation rules", len(rules))
	return rules, nil
}

func compileRule(spec RuleSpec) (*Rule, error) {
	if len(spec.Pattern) == 0 {
		return nil, fmt.Errorf("%w: empty pattern", ErrInvalidRule)
	}
	r := &Rule{
		ID:       spec.ID,
		markFrom: 0,
		markTo:   len(spec.Pattern) - 1,
		action:   spec.Action,
		postag:   spec.Postag,
		lemma:    spec.Lemma,
		rescan:   spec.Rescan,
	}
	if spec.MarkFrom != nil {
		r.markFrom = *spec.MarkFrom
	}
	if spec.MarkTo != nil {
		r.markTo = *spec.MarkTo
	}
	if r.markFrom < 0 || r.markTo >= len(spec.Pattern) || r.markFrom > r.markTo {
		return nil, fmt.Errorf("%w: marks %d..%d out of range for %d elements",
			ErrInvalidRule, r.markFrom, r.markTo, len(spec.Pattern))
	}

	switch r.action {
	case ActionFilter, ActionRemove:
		if r.postag == "" {
			return nil, fmt.Errorf("%w: action %q needs a postag", ErrInvalidRule, r.action)
		}
		re, err := anchored(r.postag)
		if err != nil {
			return nil, err
		}
		r.postagRe = re
	case ActionReplace, ActionAdd:
		if r.postag == "" {
			return nil, fmt.Errorf("%w: action %q needs a postag", ErrInvalidRule, r.action)
		}
	case ActionFilterAll, ActionImmunize:
	default:
		return nil, fmt.Errorf("%w: unknown action %q", ErrInvalidRule, r.action)
	}

	for _, es := range spec.Pattern {
		var el element
		var err error
		if el.token, err = anchored(es.Token); err != nil {
			return nil, err
		}
		if el.lemma, err = anchored(es.Lemma); err != nil {
			return nil, err
		}
		if el.postag, err = anchored(es.Postag); err != nil {
			return nil, err
		}
		el.negate = es.Negate
		r.elements = append(r.elements, el)
	}
	return r, nil
}

func anchored(expr string) (*regexp.Regexp, error) {
	if expr == "" {
		return nil, nil
	}
	re, err := regexp.Compile("^(?:" + expr + ")$")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRule, err)
	}
	return re, nil
}

// NewRuleDisambiguator compiles specs into a stage.
func NewRuleDisambiguator(specs []RuleSpec) (*RuleDisambiguator, error) {
	rules, err := CompileRules(specs)
	if err != nil {
		return nil, err
	}
	return &RuleDisambiguator{rules: rules}, nil
}

// LoadRuleDisambiguator builds a stage from a rule file.
func LoadRuleDisambiguator(path string) (*RuleDisambiguator, error) {
	rules, err := LoadRules(path)
	if err != nil {
		return nil, err
	}
	return &RuleDisambiguator{rules: rules}, nil
}

// Rules returns the compiled rules in application order.
func (d *RuleDisambiguator) Rules() []*Rule { return d.rules }

// Disambiguate implements Stage.
func (d *RuleDisambiguator) Disambiguate(ctx context.Context, s *model.Sentence) *model.Sentence {
	out := s.Clone()
	for _, r := range d.rules {
		if !r.apply(ctx, out) {
			break
		}
	}
	return out
}

// positions lists the reading indexes rules match against: the sentinel and
// every non-whitespace reading.
func positions(s *model.Sentence) []int {
	return append([]int{0}, s.NonWhitespace()...)
}

// apply runs one forward pass of r. It reports false when cancelled.
func (r *Rule) apply(ctx context.Context, s *model.Sentence) bool {
	pos := positions(s)
	rescanned := make(map[int]bool)
	for p := 0; p+len(r.elements) <= len(pos); {
		if cancelled(ctx) {
			return false
		}
		if !r.matchAt(s, pos[p:p+len(r.elements)]) {
			p++
			continue
		}
		r.fire(s, pos[p:p+len(r.elements)])
		if r.rescan && !rescanned[p] {
			rescanned[p] = true
			continue
		}
		p++
	}
	return true
}

func (r *Rule) matchAt(s *model.Sentence, window []int) bool {
	for k, idx := range window {
		if !r.elements[k].matches(s.Readings[idx]) {
			return false
		}
	}
	return true
}

func (e element) matches(rd model.Reading) bool {
	return e.matchToken(rd) != e.negate
}

// matchToken reports whether some token satisfies every constraint of e.
func (e element) matchToken(rd model.Reading) bool {
	for _, t := range rd.Tokens {
		if e.tokenOK(t) {
			return true
		}
	}
	return false
}

func (e element) tokenOK(t model.Token) bool {
	if e.token != nil && !e.token.MatchString(t.Form) {
		return false
	}
	if e.lemma != nil && (!t.HasLemma || !e.lemma.MatchString(t.Lemma)) {
		return false
	}
	if e.postag != nil && (!t.HasTag || !e.postag.MatchString(t.Tag)) {
		return false
	}
	return true
}

func (r *Rule) fire(s *model.Sentence, window []int) {
	for k := r.markFrom; k <= r.markTo; k++ {
		idx := window[k]
		rd := s.Readings[idx]
		if rd.Immunized || rd.IsSentenceStart() {
			continue
		}
		switch r.action {
		case ActionFilter:
			rd = keepTokens(rd, func(t model.Token) bool { return t.HasTag && r.postagRe.MatchString(t.Tag) })
		case ActionRemove:
			rd = keepTokens(rd, func(t model.Token) bool { return !t.HasTag || !r.postagRe.MatchString(t.Tag) })
		case ActionReplace:
			rd = rd.WithTokens([]model.Token{model.NewToken(rd.Surface(), r.replacementLemma(rd), r.postag)})
		case ActionAdd:
			lemma := r.lemma
			if lemma == "" {
				lemma = rd.Surface()
			}
			rd = addToken(rd, model.NewToken(rd.Surface(), lemma, r.postag))
		case ActionFilterAll:
			el := r.elements[k]
			if !el.negate {
				rd = keepTokens(rd, el.tokenOK)
			}
		case ActionImmunize:
			rd.Immunized = true
		}
		s.Readings[idx] = rd
	}
}

// replacementLemma prefers the rule lemma, then the lemma of a token already
// carrying the target tag, then the first token's lemma.
func (r *Rule) replacementLemma(rd model.Reading) string {
	if r.lemma != "" {
		return r.lemma
	}
	for _, t := range rd.Tokens {
		if t.HasTag && t.Tag == r.postag && t.HasLemma {
			return t.Lemma
		}
	}
	if len(rd.Tokens) > 0 && rd.Tokens[0].HasLemma {
		return rd.Tokens[0].Lemma
	}
	return rd.Surface()
}

// keepTokens filters rd's tokens. A filter that would empty the reading is not applied.
func keepTokens(rd model.Reading, keep func(model.Token) bool) model.Reading {
	kept := make([]model.Token, 0, len(rd.Tokens))
	for _, t := range rd.Tokens {
		if keep(t) {
			kept = append(kept, t)
		}
	}
	if len(kept) == 0 || len(kept) == len(rd.Tokens) {
		return rd
	}
	return rd.WithTokens(kept)
}
