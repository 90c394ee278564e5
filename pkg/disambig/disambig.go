// Package disambig narrows the readings of a tagged sentence.
//
// A Pipeline runs its stages in a fixed order, once each. Every stage works on
// its own clone of the sentence and polls the context once per reading; a
// cancelled stage returns what it has processed so far.
package disambig

import (
	"context"
	"errors"

	"github.com/bastiangx/grammarserve/pkg/model"
	"github.com/charmbracelet/log"
)

// ErrInvalidRule is wrapped by every rule construction error.
var ErrInvalidRule = errors.New("invalid disambiguation rule")

// Stage rewrites the readings of a sentence and returns the sentence it owns.
type Stage interface {
	Disambiguate(ctx context.Context, s *model.Sentence) *model.Sentence
}

// StageFunc adapts a function to Stage.
type StageFunc func(ctx context.Context, s *model.Sentence) *model.Sentence

// Disambiguate implements Stage.
func (f StageFunc) Disambiguate(ctx context.Context, s *model.Sentence) *model.Sentence {
	return f(ctx, s)
}

// Pipeline composes stages in order.
type Pipeline struct {
	stages []Stage
}

// NewPipeline returns a pipeline over the given stages. Nil stages are dropped.
func NewPipeline(stages ...Stage) *Pipeline {
	p := &Pipeline{stages: make([]Stage, 0, len(stages))}
	for _, s := range stages {
		if s != nil {
			p.stages = append(p.stages, s)
		}
	}
	return p
}

// Len is the number of stages.
func (p *Pipeline) Len() int { return len(p.stages) }

// Disambiguate implements Stage. Stages after a cancellation are not run.
func (p *Pipeline) Disambiguate(ctx context.Context, s *model.Sentence) *model.Sentence {
	out := s.Clone()
	for i, st := range p.stages {
		if err := ctx.Err(); err != nil {
			log.Debugf("Disambiguation stopped before stage %d: %v", i, err)
			break
		}
		out = st.Disambiguate(ctx, out)
	}
	return out
}

// cancelled is polled once per reading by the stages.
func cancelled(ctx context.Context) bool {
	return ctx.Err() != nil
}
