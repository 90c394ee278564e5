package cli

import (
	"bytes"
	"context"
	"reflect"
	"strings"
	"testing"

	"github.com/bastiangx/grammarserve/internal/logger"
	"github.com/bastiangx/grammarserve/pkg/model"
)

func init() {
	logger.Quiet()
}

type stubAnalyzer struct{}

func (stubAnalyzer) Analyze(_ context.Context, text string) ([]*model.Sentence, error) {
	tokens := []string{"dogs", " ", "xq"}
	readings := []model.Reading{
		model.NewReading(model.NewToken("dogs", "dog", "NNS"), model.NewToken("dogs", "dog", "VBZ")),
		model.UnknownReading(" "),
		model.UnknownReading("xq"),
	}
	s, err := model.NewSentence("dogs xq", tokens, readings)
	return []*model.Sentence{s}, err
}

func (stubAnalyzer) Synthesize(lemma, tag string) ([]string, error) {
	return []string{lemma + "+" + tag}, nil
}

func (stubAnalyzer) SynthesizePattern(lemma, pattern string) ([]string, error) {
	return nil, nil
}

func TestFormatSentence(t *testing.T) {
	sentences, _ := stubAnalyzer{}.Analyze(context.Background(), "")
	got := FormatSentence(sentences[0])
	want := []string{
		"dogs                dog/NNS | dog/VBZ",
		"xq                  ?",
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("FormatSentence = %q, want %q", got, want)
	}
}

func TestInputHandler(t *testing.T) {
	testCases := []struct {
		input       string
		contains    string
		description string
	}{
		{"dogs xq\n", "dog/VBZ", "analysis line"},
		{":syn run VBD\n", " 1. run+VBD", "synthesis command"},
		{"dogs xq", "dog/NNS", "last line without newline"},
	}
	for _, tc := range testCases {
		var out bytes.Buffer
		h := NewInputHandler(stubAnalyzer{}, strings.NewReader(tc.input), &out)
		if err := h.Start(context.Background()); err != nil {
			t.Fatalf("%s: %v", tc.description, err)
		}
		if !strings.Contains(out.String(), tc.contains) {
			t.Errorf("%s: output %q does not contain %q", tc.description, out.String(), tc.contains)
		}
	}
}
