// Package cli handles cmd line input for DBG and testing the analysis pipeline
package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/bastiangx/grammarserve/pkg/model"
	"github.com/charmbracelet/log"
)

// Analyzer is the part of the engine the CLI drives.
type Analyzer interface {
	Analyze(ctx context.Context, text string) ([]*model.Sentence, error)
	Synthesize(lemma, tag string) ([]string, error)
	SynthesizePattern(lemma, pattern string) ([]string, error)
}

// InputHandler reads lines from the user and prints the readings of every token.
// Lines starting with ":syn lemma tag" or ":pat lemma pattern" run the synthesizer instead.
type InputHandler struct {
	analyzer     Analyzer
	in           io.Reader
	out          io.Writer
	requestCount int
}

// NewInputHandler handles initialization of the InputHandler
func NewInputHandler(analyzer Analyzer, in io.Reader, out io.Writer) *InputHandler {
	return &InputHandler{analyzer: analyzer, in: in, out: out}
}

// Start begins the interface loop. It returns nil when the input ends.
func (h *InputHandler) Start(ctx context.Context) error {
	log.Print("GrammarServe CLI [BETA]")
	log.Print("type a sentence and press Enter to see its readings (Ctrl+C to exit):")
	reader := bufio.NewReader(h.in)

	for {
		log.Print("> ")
		line, err := reader.ReadString('\n')
		if line = strings.TrimSpace(line); line != "" {
			h.handleInput(ctx, line)
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
	}
}

func (h *InputHandler) handleInput(ctx context.Context, line string) {
	h.requestCount++
	if strings.HasPrefix(line, ":") {
		h.handleCommand(line)
		return
	}

	start := time.Now()
	sentences, err := h.analyzer.Analyze(ctx, line)
	log.Debugf("Took [ %v ] for %d sentences", time.Since(start), len(sentences))
	if err != nil {
		log.Errorf("Analysis failed: %v", err)
		return
	}
	for _, s := range sentences {
		for _, l := range FormatSentence(s) {
			fmt.Fprintln(h.out, l)
		}
	}
}

func (h *InputHandler) handleCommand(line string) {
	fields := strings.Fields(line)
	if len(fields) != 3 || (fields[0] != ":syn" && fields[0] != ":pat") {
		log.Errorf("Usage: :syn <lemma> <tag> | :pat <lemma> <pattern>")
		return
	}
	var forms []string
	var err error
	if fields[0] == ":syn" {
		forms, err = h.analyzer.Synthesize(fields[1], fields[2])
	} else {
		forms, err = h.analyzer.SynthesizePattern(fields[1], fields[2])
	}
	if err != nil {
		log.Errorf("Synthesis failed: %v", err)
		return
	}
	if len(forms) == 0 {
		log.Warnf("No forms for %s %s", fields[1], fields[2])
		return
	}
	for i, f := range forms {
		fmt.Fprintf(h.out, "%2d. %s\n", i+1, f)
	}
}

// FormatSentence renders one line per non-whitespace token: the surface, then
// every lemma/tag pair, then the chunk tags in brackets.
func FormatSentence(s *model.Sentence) []string {
	lines := make([]string, 0, s.Len())
	for i := 1; i < s.Len(); i++ {
		r := s.Readings[i]
		if r.IsWhitespace() {
			continue
		}
		var b strings.Builder
		fmt.Fprintf(&b, "%-20s", r.Surface())
		for j, t := range r.Tokens {
			if j > 0 {
				b.WriteString(" | ")
			}
			if t.Unknown() {
				b.WriteString("?")
				continue
			}
			b.WriteString(t.Lemma + "/" + t.Tag)
		}
		if len(r.ChunkTags) > 0 {
			b.WriteString(" [" + strings.Join(r.ChunkTags, ",") + "]")
		}
		if r.Immunized {
			b.WriteString(" (immunized)")
		}
		lines = append(lines, b.String())
	}
	return lines
}
