// Package engine wires the tokenizers, the tagger, the disambiguation pipeline
// and the synthesizer into one analysis entry point.
package engine

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/bastiangx/grammarserve/internal/logger"
	"github.com/bastiangx/grammarserve/pkg/disambig"
	"github.com/bastiangx/grammarserve/pkg/model"
	"github.com/bastiangx/grammarserve/pkg/scoring"
	"github.com/bastiangx/grammarserve/pkg/synth"
	"github.com/bastiangx/grammarserve/pkg/tagger"
	"github.com/bastiangx/grammarserve/pkg/tokenize"
	"github.com/charmbracelet/log"
)

// ErrNoScorer is returned by scoring calls on an engine built without a scoring client.
var ErrNoScorer = errors.New("no scoring client configured")

// Options holds the components of an Engine. Sentences, Words and Tagger are required.
type Options struct {
	Sentences   tokenize.Tokenizer
	Words       tokenize.Tokenizer
	Tagger      tagger.Tagger
	Pipeline    *disambig.Pipeline
	Synthesizer synth.Synthesizer
	Scorer      *scoring.Client
	// Closers are released by Close, after the scorer.
	Closers []io.Closer
}

// Engine analyzes text. It is safe for concurrent use when its components are.
type Engine struct {
	opts   Options
	ranker *scoring.Ranker
	logger *log.Logger
}

// New validates opts and builds an engine.
func New(opts Options) (*Engine, error) {
	if opts.Sentences == nil || opts.Words == nil || opts.Tagger == nil {
		return nil, fmt.Errorf("engine needs sentence and word tokenizers and a tagger")
	}
	if opts.Pipeline == nil {
		opts.Pipeline = disambig.NewPipeline()
	}
	e := &Engine{opts: opts, logger: logger.New("engine")}
	if opts.Scorer != nil {
		e.ranker = scoring.NewRanker(opts.Scorer)
	}
	return e, nil
}

// Analyze splits text into sentences, tags them and runs the disambiguation pipeline.
// On cancellation the sentences finished so far are returned with the context error;
// the sentence in flight is returned partially disambiguated.
func (e *Engine) Analyze(ctx context.Context, text string) ([]*model.Sentence, error) {
	var out []*model.Sentence
	for _, sentence := range e.opts.Sentences.Tokenize(text) {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		s, err := e.AnalyzeSentence(ctx, sentence)
		if err != nil {
			return out, err
		}
		out = append(out, s)
	}
	return out, ctx.Err()
}

// AnalyzeSentence runs the pipeline on text taken as exactly one sentence.
func (e *Engine) AnalyzeSentence(ctx context.Context, text string) (*model.Sentence, error) {
	tokens := e.opts.Words.Tokenize(text)
	readings, err := e.opts.Tagger.Tag(tokens)
	if err != nil {
		return nil, fmt.Errorf("tagging sentence: %w", err)
	}
	s, err := model.NewSentence(text, tokens, readings)
	if err != nil {
		return nil, fmt.Errorf("building sentence: %w", err)
	}
	return e.opts.Pipeline.Disambiguate(ctx, s), nil
}

// Synthesize returns the forms of lemma with tag.
func (e *Engine) Synthesize(lemma, tag string) ([]string, error) {
	if e.opts.Synthesizer == nil {
		return nil, fmt.Errorf("no synthesizer configured")
	}
	return e.opts.Synthesizer.Synthesize(lemma, tag)
}

// SynthesizePattern returns the forms of lemma whose tag matches pattern.
func (e *Engine) SynthesizePattern(lemma, pattern string) ([]string, error) {
	if e.opts.Synthesizer == nil {
		return nil, fmt.Errorf("no synthesizer configured")
	}
	return e.opts.Synthesizer.SynthesizePattern(lemma, pattern)
}

// SynthesizeAll unions the forms of several patterns, first-seen order.
func (e *Engine) SynthesizeAll(lemma string, patterns []string) ([]string, error) {
	if e.opts.Synthesizer == nil {
		return nil, fmt.Errorf("no synthesizer configured")
	}
	return e.opts.Synthesizer.SynthesizeAll(lemma, patterns)
}

// Score scores the candidates of every request, through the cache.
func (e *Engine) Score(ctx context.Context, reqs []scoring.Request) ([][]float64, error) {
	if e.opts.Scorer == nil {
		return nil, ErrNoScorer
	}
	return e.opts.Scorer.BatchScore(ctx, reqs)
}

// Rank reorders the suggestions of the matches by their score in context.
func (e *Engine) Rank(ctx context.Context, sentences []scoring.SentenceMatches) error {
	if e.ranker == nil {
		return ErrNoScorer
	}
	return e.ranker.Rank(ctx, sentences)
}

// HasScorer reports whether scoring calls are available.
func (e *Engine) HasScorer() bool {
	return e.opts.Scorer != nil
}

// Close releases the scoring client and every other owned resource.
func (e *Engine) Close() error {
	var errs []error
	if e.opts.Scorer != nil {
		errs = append(errs, e.opts.Scorer.Close())
	}
	for _, c := range e.opts.Closers {
		errs = append(errs, c.Close())
	}
	err := errors.Join(errs...)
	if err != nil {
		e.logger.Warnf("Closing engine: %v", err)
	}
	return err
}
