package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
	"unicode/utf8"

	"github.com/bastiangx/grammarserve/internal/logger"
	"github.com/bastiangx/grammarserve/pkg/config"
	"github.com/bastiangx/grammarserve/pkg/model"
	"github.com/bastiangx/grammarserve/pkg/scoring"
	"github.com/charmbracelet/log"
	"github.com/vmihailenco/msgpack/v5"
)

// Engine is the analysis surface the server exposes.
type Engine interface {
	Analyze(ctx context.Context, text string) ([]*model.Sentence, error)
	Synthesize(lemma, tag string) ([]string, error)
	SynthesizePattern(lemma, pattern string) ([]string, error)
	SynthesizeAll(lemma string, patterns []string) ([]string, error)
	Score(ctx context.Context, reqs []scoring.Request) ([][]float64, error)
	HasScorer() bool
}

// dispatcher executes requests for both transports.
type dispatcher struct {
	engine  Engine
	maxText int
}

// handle runs one request and returns its response value and status code.
func (d *dispatcher) handle(ctx context.Context, req Request) (any, int) {
	switch req.Op {
	case OpAnalyze:
		return d.analyze(ctx, req)
	case OpSynthesize:
		return d.synthesize(req)
	case OpScore:
		return d.score(ctx, req)
	case OpHealth:
		return StatusResponse{ID: req.ID, Status: "ok", Scoring: d.engine.HasScorer()}, http.StatusOK
	case "":
		return errorResponse(req.ID, "missing 'op' field", http.StatusBadRequest)
	default:
		return errorResponse(req.ID, fmt.Sprintf("unknown op: %s", req.Op), http.StatusBadRequest)
	}
}

func (d *dispatcher) analyze(ctx context.Context, req Request) (any, int) {
	if d.maxText > 0 && utf8.RuneCountInString(req.Text) > d.maxText {
		return errorResponse(req.ID, fmt.Sprintf("text exceeds maximum length of %d characters", d.maxText),
			http.StatusRequestEntityTooLarge)
	}
	start := time.Now()
	sentences, err := d.engine.Analyze(ctx, req.Text)
	if err != nil {
		log.Errorf("Analyze request %s failed: %v", req.ID, err)
		code := http.StatusInternalServerError
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			code = http.StatusServiceUnavailable
		}
		return errorResponse(req.ID, err.Error(), code)
	}
	results := ToSentenceResults(sentences)
	return AnalyzeResponse{
		ID:        req.ID,
		Sentences: results,
		Count:     len(results),
		TimeTaken: time.Since(start).Microseconds(),
	}, http.StatusOK
}

func (d *dispatcher) synthesize(req Request) (any, int) {
	if req.Lemma == "" {
		return errorResponse(req.ID, "missing 'lemma' parameter", http.StatusBadRequest)
	}
	start := time.Now()
	var forms []string
	var err error
	switch {
	case len(req.Patterns) > 0:
		forms, err = d.engine.SynthesizeAll(req.Lemma, req.Patterns)
	case req.Pattern != "":
		forms, err = d.engine.SynthesizePattern(req.Lemma, req.Pattern)
	case req.Tag != "":
		forms, err = d.engine.Synthesize(req.Lemma, req.Tag)
	default:
		return errorResponse(req.ID, "one of 'tag', 'pattern' or 'patterns' is required", http.StatusBadRequest)
	}
	if err != nil {
		log.Errorf("Synthesize request %s failed: %v", req.ID, err)
		return errorResponse(req.ID, err.Error(), http.StatusInternalServerError)
	}
	if forms == nil {
		forms = []string{}
	}
	return SynthesizeResponse{
		ID:        req.ID,
		Forms:     forms,
		Count:     len(forms),
		TimeTaken: time.Since(start).Microseconds(),
	}, http.StatusOK
}

func (d *dispatcher) score(ctx context.Context, req Request) (any, int) {
	if !d.engine.HasScorer() {
		return errorResponse(req.ID, "scoring is not configured", http.StatusServiceUnavailable)
	}
	if len(req.Scoring) == 0 {
		return errorResponse(req.ID, "missing 'reqs' parameter", http.StatusBadRequest)
	}
	start := time.Now()
	scores, err := d.engine.Score(ctx, req.Scoring)
	if err != nil {
		log.Errorf("Score request %s failed: %v", req.ID, err)
		return errorResponse(req.ID, err.Error(), http.StatusBadGateway)
	}
	return ScoreResponse{ID: req.ID, Scores: scores, TimeTaken: time.Since(start).Microseconds()}, http.StatusOK
}

func errorResponse(id, message string, code int) (any, int) {
	return ErrorResponse{ID: id, Error: message, Code: code}, code
}

// ToSentenceResults flattens analyzed sentences into wire results with document offsets.
// The sentinel reading is not part of the output.
func ToSentenceResults(sentences []*model.Sentence) []SentenceResult {
	out := make([]SentenceResult, 0, len(sentences))
	offset := 0
	for _, s := range sentences {
		res := SentenceResult{Offset: offset, Text: s.Text, Tokens: make([]TokenResult, 0, s.Len())}
		for i := 1; i < s.Len(); i++ {
			r := s.Readings[i]
			tok := TokenResult{
				Surface:          r.Surface(),
				Offset:           offset + s.Spans[i].Start,
				WhitespaceBefore: s.Spans[i].WhitespaceBefore,
				Readings:         []ReadingResult{},
				Chunks:           r.ChunkTags,
				Immunized:        r.Immunized,
			}
			for _, t := range r.Tokens {
				if t.Unknown() {
					continue
				}
				tok.Readings = append(tok.Readings, ReadingResult{Lemma: t.Lemma, Tag: t.Tag})
			}
			res.Tokens = append(res.Tokens, tok)
		}
		out = append(out, res)
		offset += len(s.Text)
	}
	return out
}

// Server handles msgpack IPC for analysis requests.
type Server struct {
	dispatcher
	dec    *msgpack.Decoder
	enc    *msgpack.Encoder
	logger *log.Logger
}

// NewServer creates an IPC server reading requests from r and writing responses to w.
func NewServer(engine Engine, cfg config.ServerConfig, r io.Reader, w io.Writer) *Server {
	return &Server{
		dispatcher: dispatcher{engine: engine, maxText: cfg.MaxTextLength},
		dec:        msgpack.NewDecoder(r),
		enc:        msgpack.NewEncoder(w),
		logger:     logger.New("ipc"),
	}
}

// Start announces readiness and serves requests until the input ends or ctx is done.
// A request that cannot be decoded ends the stream; its error is returned.
func (s *Server) Start(ctx context.Context) error {
	s.logger.Debug("Starting IPC server")
	if err := s.send(StatusResponse{Status: "ready"}); err != nil {
		return err
	}

	for {
		if err := ctx.Err(); err != nil {
			return nil
		}
		var req Request
		if err := s.dec.Decode(&req); err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			s.logger.Errorf("Decoding request: %v", err)
			resp, _ := errorResponse("", "invalid msgpack request", http.StatusBadRequest)
			_ = s.send(resp)
			return fmt.Errorf("decoding request: %w", err)
		}
		s.logger.Debug("Processing request", "id", req.ID, "op", req.Op)
		resp, _ := s.handle(ctx, req)
		if err := s.send(resp); err != nil {
			return err
		}
	}
}

// send writes one response. A response that cannot be encoded is replaced by an error.
func (s *Server) send(response any) error {
	if err := s.enc.Encode(response); err != nil {
		s.logger.Errorf("Encoding response: %v", err)
		if _, isErr := response.(ErrorResponse); isErr {
			return err
		}
		return s.enc.Encode(ErrorResponse{Error: "internal server error", Code: http.StatusInternalServerError})
	}
	return nil
}
